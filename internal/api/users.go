package api

import (
	"net/http"

	"github.com/UkralStul/blog-platform/internal/service"
	"github.com/go-chi/chi/v5"
)

func (h *handler) getProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.GetProfile(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, profile)
}

func (h *handler) listUserPosts(w http.ResponseWriter, r *http.Request) {
	query, err := pageQuery(r)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	posts, page, err := h.svc.ListByUser(r.Context(), chi.URLParam(r, "username"), query)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, envelope{Success: true, Data: posts, Pagination: &page})
}

func (h *handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var input service.UpdateProfileInput
	if err := decodeJSON(r, &input); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	profile, err := h.svc.UpdateProfile(r.Context(), callerID(r), input)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, profile)
}
