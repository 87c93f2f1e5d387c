// Package validation checks user-submitted forms before anything is sent to the
// backend. Every failure is an errors.ValidationError carrying a message that can
// be shown next to the form.
package validation

import (
	"fmt"
	"slices"
	"strings"

	"duvidapp/internal/errors"
	"duvidapp/models"

	"github.com/go-playground/validator/v10"
)

// MaxCommentLength bounds the optional comment of an answer verification
const MaxCommentLength = 500

// QuestionForm is a normalized new-question submission
type QuestionForm struct {
	Title   string   `validate:"min=10,max=200"`
	Content string   `validate:"min=20"`
	Tags    []string `validate:"min=1,max=5,dive,required,max=30"`
}

// AnswerForm is a normalized answer submission
type AnswerForm struct {
	Content string `validate:"min=10"`
}

// RegistrationForm is a normalized sign-up submission
type RegistrationForm struct {
	Name     string      `validate:"required,max=100"`
	Email    string      `validate:"required,email"`
	Password string      `validate:"min=6"`
	Role     models.Role `validate:"role"`
}

// ProfileForm is a normalized profile update; nil fields are left untouched
type ProfileForm struct {
	Name            *string `validate:"omitempty,required,max=100"`
	Email           *string `validate:"omitempty,required,email"`
	Password        *string `validate:"omitempty,min=6"`
	CurrentPassword *string `validate:"required_with=Password"`
}

// Empty reports whether the form changes nothing
func (f ProfileForm) Empty() bool {
	return f.Name == nil && f.Email == nil && f.Password == nil
}

// Validator wraps go-playground validator with the form rules
type Validator struct {
	validate *validator.Validate
}

// New creates a validator with the custom role rule registered
func New() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("role", validateRole)
	return &Validator{validate: v}
}

var defaultValidator = New()

// Default returns the shared validator
func Default() *Validator {
	return defaultValidator
}

func validateRole(fl validator.FieldLevel) bool {
	return models.Role(fl.Field().String()).Valid()
}

// Question trims and normalizes a new question, then validates it
func (v *Validator) Question(title, content string, tags []string) (QuestionForm, error) {
	form := QuestionForm{
		Title:   strings.TrimSpace(title),
		Content: strings.TrimSpace(content),
		Tags:    NormalizeTags(tags),
	}
	if err := v.validate.Struct(form); err != nil {
		return QuestionForm{}, translate(err)
	}
	return form, nil
}

// Answer trims and validates answer content
func (v *Validator) Answer(content string) (AnswerForm, error) {
	form := AnswerForm{Content: strings.TrimSpace(content)}
	if err := v.validate.Struct(form); err != nil {
		return AnswerForm{}, translate(err)
	}
	return form, nil
}

// Registration trims and validates a sign-up form
func (v *Validator) Registration(name, email, password string, role models.Role) (RegistrationForm, error) {
	form := RegistrationForm{
		Name:     strings.TrimSpace(name),
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Password: password,
		Role:     role,
	}
	if err := v.validate.Struct(form); err != nil {
		return RegistrationForm{}, translate(err)
	}
	return form, nil
}

// Profile validates a profile update. Blank strings count as "not provided".
func (v *Validator) Profile(name, email, password, currentPassword *string) (ProfileForm, error) {
	form := ProfileForm{
		Name:            trimmedOrNil(name),
		Email:           trimmedOrNil(email),
		Password:        nonEmptyOrNil(password),
		CurrentPassword: nonEmptyOrNil(currentPassword),
	}
	if form.Email != nil {
		lower := strings.ToLower(*form.Email)
		form.Email = &lower
	}
	if err := v.validate.Struct(form); err != nil {
		return ProfileForm{}, translate(err)
	}
	return form, nil
}

// VerificationComment trims an optional teacher comment
func (v *Validator) VerificationComment(comment string) (string, error) {
	comment = strings.TrimSpace(comment)
	if err := v.validate.Var(comment, fmt.Sprintf("max=%d", MaxCommentLength)); err != nil {
		return "", errors.ValidationError(fmt.Sprintf("O comentário deve ter no máximo %d caracteres", MaxCommentLength))
	}
	return comment, nil
}

// NormalizeTags trims, lowercases and deduplicates tags, keeping first-seen order
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || slices.Contains(out, tag) {
			continue
		}
		out = append(out, tag)
	}
	return out
}

// SplitTags parses a comma separated tag input
func SplitTags(input string) []string {
	return NormalizeTags(strings.Split(input, ","))
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func nonEmptyOrNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
