package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/UkralStul/blog-platform/internal/domain"
	"go.uber.org/zap"
)

// envelope - тело любого JSON-ответа.
type envelope struct {
	Success    bool                `json:"success"`
	Message    string              `json:"message,omitempty"`
	Error      string              `json:"error,omitempty"`
	Errors     []domain.FieldError `json:"errors,omitempty"`
	Token      string              `json:"token,omitempty"`
	User       interface{}         `json:"user,omitempty"`
	Data       interface{}         `json:"data,omitempty"`
	Pagination *domain.PageInfo    `json:"pagination,omitempty"`
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (h *handler) ok(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, h.logger, status, envelope{Success: true, Data: data})
}

func (h *handler) message(w http.ResponseWriter, msg string) {
	writeJSON(w, h.logger, http.StatusOK, envelope{Success: true, Message: msg})
}

// statusFor переводит класс ошибки в HTTP-статус.
// Конфликт при регистрации отвечает 400, этого ждут существующие клиенты.
func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation, domain.KindConflict:
		return http.StatusBadRequest
	case domain.KindInvalidCredentials, domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// handleServiceError превращает ошибки сервисов в HTTP-ответ.
// Детали внутренних ошибок клиенту не отдаются.
func (h *handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var derr *domain.Error
	if !errors.As(err, &derr) {
		h.logger.Error("unhandled error",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		derr = domain.ErrInternal
	}
	writeJSON(w, h.logger, statusFor(derr.Kind), envelope{
		Success: false,
		Message: derr.Message,
		Error:   derr.Kind.String(),
		Errors:  derr.Fields,
	})
}

// decodeJSON читает один JSON-объект и отклоняет неизвестные поля.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return badRequest(err)
	}
	if dec.More() {
		return badRequest(errors.New("body must contain a single JSON object"))
	}
	return nil
}

func badRequest(err error) error {
	msg := "invalid request body"
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		msg = "request body is empty"
	case errors.As(err, &syntaxErr):
		msg = fmt.Sprintf("malformed JSON at position %d", syntaxErr.Offset)
	case errors.As(err, &typeErr):
		msg = fmt.Sprintf("field %q has the wrong type", typeErr.Field)
	default:
		if len(err.Error()) > 0 {
			msg = err.Error()
		}
	}
	return domain.NewValidationError(domain.FieldError{Field: "body", Message: msg})
}
