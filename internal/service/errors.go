package service

import "errors"

var (
	ErrUserNotFound = errors.New("user not found")
	ErrCaseNotFound = errors.New("case not found")
	ErrChatNotFound = errors.New("chat not found")
	ErrNotCompleted = errors.New("case not completed")
	ErrInvalidInput = errors.New("invalid input")
)

// FieldError es un ErrInvalidInput atribuido a un campo del request.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return ErrInvalidInput.Error() + ": " + e.Message
}

func (e *FieldError) Unwrap() error { return ErrInvalidInput }

func invalidField(field, message string) error {
	return &FieldError{Field: field, Message: message}
}
