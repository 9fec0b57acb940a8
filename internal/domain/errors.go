package domain

import (
	"errors"
	"strings"
)

// Kind - класс ошибки, который транспорт переводит в код ответа.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindInvalidCredentials
	KindUnauthorized
	KindForbidden
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "Validation"
	case KindConflict:
		return "Conflict"
	case KindInvalidCredentials:
		return "InvalidCredentials"
	case KindUnauthorized:
		return "Unauthorized"
	case KindForbidden:
		return "Forbidden"
	case KindNotFound:
		return "NotFound"
	default:
		return "ServerError"
	}
}

// FieldError описывает одно нарушенное поле запроса.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error - ошибка ядра: класс, короткое сообщение и, для валидации, список полей.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

var (
	ErrInternal           = newError(KindInternal, "internal server error")
	ErrUserAlreadyExists  = newError(KindConflict, "user with this email or username already exists")
	ErrInvalidCredentials = newError(KindInvalidCredentials, "invalid credentials")
	ErrUnauthorized       = newError(KindUnauthorized, "not authorized to access this route")
	ErrUserNotFound       = newError(KindNotFound, "user not found")
	ErrPostNotFound       = newError(KindNotFound, "post not found")
	ErrCommentNotFound    = newError(KindNotFound, "comment not found")
	ErrForbidden          = newError(KindForbidden, "you are not authorized to modify this resource")
)

// NewValidationError собирает все нарушенные поля в одну ошибку.
func NewValidationError(fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: "validation failed", Fields: fields}
}

// KindOf возвращает класс ошибки; всё неизвестное считается внутренней ошибкой.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

func IsValidationError(err error) bool {
	return KindOf(err) == KindValidation
}
