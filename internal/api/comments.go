package api

import (
	"net/http"

	"github.com/UkralStul/blog-platform/internal/presence"
	"github.com/UkralStul/blog-platform/internal/service"
	"github.com/go-chi/chi/v5"
)

func (h *handler) listComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.svc.Comments.ListForPost(r.Context(), chi.URLParam(r, "postId"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, comments)
}

func (h *handler) createComment(w http.ResponseWriter, r *http.Request) {
	var input service.CreateCommentInput
	if err := decodeJSON(r, &input); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	comment, err := h.svc.Comments.Create(r.Context(), callerID(r), input)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	// зрители поста получают комментарий только после сохранения
	h.events.Broadcast(comment.PostID, presence.EventCommentAdded, comment)
	h.ok(w, http.StatusCreated, comment)
}

func (h *handler) updateComment(w http.ResponseWriter, r *http.Request) {
	var input service.UpdateCommentInput
	if err := decodeJSON(r, &input); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	comment, err := h.svc.Comments.Update(r.Context(), callerID(r), chi.URLParam(r, "id"), input)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, comment)
}

func (h *handler) deleteComment(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Comments.Delete(r.Context(), callerID(r), chi.URLParam(r, "id")); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.message(w, "Comment deleted successfully")
}

func (h *handler) likeComment(w http.ResponseWriter, r *http.Request) {
	comment, err := h.svc.Comments.ToggleLike(r.Context(), callerID(r), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, comment)
}
