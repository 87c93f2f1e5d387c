package ports

// Severity of a toast notification
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
)

// Notifier raises toasts. Stores depend on this rather than on the concrete
// notification center.
type Notifier interface {
	ShowToast(message string, severity Severity) string
}
