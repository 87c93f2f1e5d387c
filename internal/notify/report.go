package notify

import (
	"duvidapp/internal/errors"
	"duvidapp/ports"
)

const (
	msgUnauthenticated = "Você não está autenticado. Por favor, faça login novamente."
	msgNetwork         = "Não foi possível conectar ao servidor."
)

// ErrorMessage picks the toast text for a failed store operation. Backend
// messages win; fallback covers everything the backend did not explain.
func ErrorMessage(err error, fallback string) string {
	switch {
	case errors.IsUnauthenticated(err):
		return msgUnauthenticated
	case errors.IsNetwork(err):
		return msgNetwork
	}
	if httpErr, ok := errors.AsHTTPError(err); ok && httpErr.Message != "" {
		return httpErr.Message
	}
	return fallback
}

// ReportError raises an error toast for err unless it is a validation failure,
// which belongs inline on the form. It returns err unchanged.
func ReportError(n ports.Notifier, err error, fallback string) error {
	if err == nil || n == nil || errors.IsValidation(err) {
		return err
	}
	n.ShowToast(ErrorMessage(err, fallback), ports.SeverityError)
	return err
}
