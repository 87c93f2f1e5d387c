package validation

import (
	stderrors "errors"
	"fmt"
	"strings"

	"duvidapp/internal/errors"

	"github.com/go-playground/validator/v10"
)

// field labels as shown on the forms
var labels = map[string]string{
	"Title":           "O título",
	"Content":         "O conteúdo",
	"Tags":            "As tags",
	"Name":            "O nome",
	"Email":           "O email",
	"Password":        "A senha",
	"CurrentPassword": "A senha atual",
	"Role":            "O perfil",
}

// translate turns validator errors into a single ValidationError
func translate(err error) error {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.Wrap(err, "validation failed")
	}

	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		messages = append(messages, message(fe))
	}
	return errors.ValidationError(strings.Join(messages, "; "))
}

func message(fe validator.FieldError) string {
	field := fe.StructField()
	// only Tags dives into its elements
	if strings.Contains(field, "[") {
		return fmt.Sprintf("Cada tag deve ter no máximo %s caracteres", fe.Param())
	}
	label, ok := labels[field]
	if !ok {
		label = field
	}

	switch {
	case field == "Content" && fe.Tag() == "min" && fe.Param() == "20":
		return "A descrição deve ter pelo menos 20 caracteres"
	case field == "Tags" && fe.Tag() == "min":
		return "Adicione pelo menos uma tag"
	case field == "Tags" && fe.Tag() == "max":
		return fmt.Sprintf("Use no máximo %s tags", fe.Param())
	case field == "CurrentPassword":
		return "Informe a senha atual para definir uma nova senha"
	}

	switch fe.Tag() {
	case "required":
		return label + " é obrigatório"
	case "email":
		return label + " deve ser um endereço válido"
	case "min":
		return fmt.Sprintf("%s deve ter pelo menos %s caracteres", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s deve ter no máximo %s caracteres", label, fe.Param())
	case "role":
		return "Selecione aluno ou professor"
	default:
		return label + " é inválido"
	}
}
