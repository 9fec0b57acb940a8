package api

import (
	"net/http"

	"github.com/UkralStul/blog-platform/internal/domain"
	"github.com/UkralStul/blog-platform/internal/service"
	"github.com/go-chi/chi/v5"
)

func pageQuery(r *http.Request) (domain.PageQuery, error) {
	q := r.URL.Query()
	return service.ParsePageQuery(q.Get("page"), q.Get("limit"), q.Get("tag"))
}

func (h *handler) listPosts(w http.ResponseWriter, r *http.Request) {
	query, err := pageQuery(r)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	posts, page, err := h.svc.Posts.List(r.Context(), query)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, envelope{Success: true, Data: posts, Pagination: &page})
}

func (h *handler) getPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.svc.Posts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, post)
}

func (h *handler) createPost(w http.ResponseWriter, r *http.Request) {
	var input service.CreatePostInput
	if err := decodeJSON(r, &input); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	post, err := h.svc.Posts.Create(r.Context(), callerID(r), input)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.ok(w, http.StatusCreated, post)
}

func (h *handler) updatePost(w http.ResponseWriter, r *http.Request) {
	var input service.UpdatePostInput
	if err := decodeJSON(r, &input); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	post, err := h.svc.Posts.Update(r.Context(), callerID(r), chi.URLParam(r, "id"), input)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, post)
}

func (h *handler) deletePost(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Posts.Delete(r.Context(), callerID(r), chi.URLParam(r, "id")); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.message(w, "Post deleted successfully")
}

func (h *handler) likePost(w http.ResponseWriter, r *http.Request) {
	post, err := h.svc.Posts.ToggleLike(r.Context(), callerID(r), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, post)
}
