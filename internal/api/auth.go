package api

import (
	"net/http"

	"github.com/UkralStul/blog-platform/internal/service"
)

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var input service.RegisterInput
	if err := decodeJSON(r, &input); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	res, err := h.svc.Register(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, envelope{Success: true, Token: res.Token, User: res.User})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var input service.LoginInput
	if err := decodeJSON(r, &input); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	res, err := h.svc.Authenticate(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, envelope{Success: true, Token: res.Token, User: res.User})
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.Me(r.Context(), callerID(r))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, envelope{Success: true, User: profile})
}
