package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/UkralStul/blog-platform/internal/domain"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type contextKey string

const callerKey = contextKey("caller")

// RequireAuth проверяет bearer-токен и кладет пользователя в контекст запроса.
func (h *handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			h.handleServiceError(w, r, domain.ErrUnauthorized)
			return
		}

		user, err := h.svc.ResolveToken(r.Context(), token)
		if err != nil {
			h.handleServiceError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), callerKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// caller возвращает текущего пользователя. Работает только после RequireAuth.
func caller(r *http.Request) *domain.User {
	user, _ := r.Context().Value(callerKey).(*domain.User)
	return user
}

func callerID(r *http.Request) string {
	if user := caller(r); user != nil {
		return user.ID
	}
	return ""
}

// requestLogger пишет одну структурированную строку на запрос.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
