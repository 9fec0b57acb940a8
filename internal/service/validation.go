package service

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/UkralStul/blog-platform/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type RegisterInput struct {
	Username string  `json:"username" validate:"required,min=3,max=20"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6,max=72,maxbytes=72"`
	Bio      *string `json:"bio" validate:"omitnil,max=200"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileInput struct {
	Bio            *string `json:"bio" validate:"omitnil,max=200"`
	ProfilePicture *string `json:"profilePicture" validate:"omitnil,min=1"`
}

type CreatePostInput struct {
	Title   string   `json:"title" validate:"required,max=100"`
	Content string   `json:"content" validate:"required,min=10"`
	Tags    []string `json:"tags"`
	Image   *string  `json:"image"`
}

// UpdatePostInput: nil-поля не изменяются.
type UpdatePostInput struct {
	Title   *string   `json:"title" validate:"omitnil,min=1,max=100"`
	Content *string   `json:"content" validate:"omitnil,min=10"`
	Tags    *[]string `json:"tags"`
	Image   *string   `json:"image"`
}

type CreateCommentInput struct {
	PostID  string `json:"postId" validate:"required"`
	Content string `json:"content" validate:"required,max=500"`
}

type UpdateCommentInput struct {
	Content string `json:"content" validate:"required,max=500"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// в ошибках поля называются по json-тегам
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	// bcrypt не принимает пароли длиннее 72 байт, а max считает символы
	if err := v.RegisterValidation("maxbytes", maxBytes); err != nil {
		panic(err)
	}
	return v
}

func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

// validateInput проверяет все поля и возвращает все нарушения сразу.
func validateInput(input interface{}) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make([]domain.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, domain.FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return domain.NewValidationError(fields...)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		if fe.Param() == "1" {
			return "must not be empty"
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "maxbytes":
		return fmt.Sprintf("must be at most %s bytes", fe.Param())
	}
	return fmt.Sprintf("failed on %s", fe.Tag())
}

// requireID отклоняет id, которые не могут указывать на сохраненный ресурс.
func requireID(id, what string) (string, error) {
	u, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", domain.NewValidationError(domain.FieldError{Field: "id", Message: "invalid " + what + " ID"})
	}
	return u.String(), nil
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

// normalizeTags обрезает пробелы и убирает пустые теги, порядок сохраняется.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func (in *RegisterInput) normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Bio = trimPtr(in.Bio)
}

func (in *LoginInput) normalize() {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
}

func (in *UpdateProfileInput) normalize() {
	in.Bio = trimPtr(in.Bio)
	in.ProfilePicture = trimPtr(in.ProfilePicture)
}

func (in *CreatePostInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Tags = normalizeTags(in.Tags)
	in.Image = trimPtr(in.Image)
}

func (in *UpdatePostInput) normalize() {
	in.Title = trimPtr(in.Title)
	if in.Tags != nil {
		tags := normalizeTags(*in.Tags)
		in.Tags = &tags
	}
	in.Image = trimPtr(in.Image)
}

func (in *CreateCommentInput) normalize() {
	in.PostID = strings.TrimSpace(in.PostID)
	in.Content = strings.TrimSpace(in.Content)
}

func (in *UpdateCommentInput) normalize() {
	in.Content = strings.TrimSpace(in.Content)
}
