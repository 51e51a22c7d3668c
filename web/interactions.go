package web

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/nasermirzaei89/snapfeed/identity"
)

type likeResponse struct {
	Likes []string `json:"likes"`
	Liked bool     `json:"liked"`
}

type likeFailureResponse struct {
	errorResponse
	likeResponse
}

func (h *Handler) HandleToggleLike(w http.ResponseWriter, r *http.Request) {
	current, err := identity.FromContext(r.Context())
	if err != nil {
		writeError(w, r, err)

		return
	}

	likes, err := h.toggler.ToggleLike(r.Context(), chi.URLParam(r, "postID"), current.UserID)
	if err != nil && likes == nil {
		writeError(w, r, err)

		return
	}

	resp := likeResponse{
		Likes: likes,
		Liked: slices.Contains(likes, current.UserID),
	}

	if err != nil {
		// The write failed after the read. Clients keep the optimistic set
		// and show the error.
		status := errorStatus(err)
		slog.ErrorContext(r.Context(), "failed to toggle like", "postId", chi.URLParam(r, "postID"), "error", err)

		writeJSON(r.Context(), w, status, likeFailureResponse{
			errorResponse: errorResponse{Error: http.StatusText(status)},
			likeResponse:  resp,
		})

		return
	}

	writeJSON(r.Context(), w, http.StatusOK, resp)
}

type saveResponse struct {
	Saved bool `json:"saved"`
}

func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	current, err := identity.FromContext(r.Context())
	if err != nil {
		writeError(w, r, err)

		return
	}

	err = h.savedManager.Save(r.Context(), chi.URLParam(r, "postID"), current.UserID)
	if err != nil {
		writeError(w, r, err)

		return
	}

	writeJSON(r.Context(), w, http.StatusOK, saveResponse{Saved: true})
}

func (h *Handler) HandleUnsave(w http.ResponseWriter, r *http.Request) {
	current, err := identity.FromContext(r.Context())
	if err != nil {
		writeError(w, r, err)

		return
	}

	err = h.savedManager.Unsave(r.Context(), chi.URLParam(r, "postID"), current.UserID)
	if err != nil {
		writeError(w, r, err)

		return
	}

	writeJSON(r.Context(), w, http.StatusOK, saveResponse{Saved: false})
}

func (h *Handler) HandleListSaved(w http.ResponseWriter, r *http.Request) {
	current, err := identity.FromContext(r.Context())
	if err != nil {
		writeError(w, r, err)

		return
	}

	posts, err := h.savedManager.ListSaved(r.Context(), current.UserID)
	if err != nil {
		writeError(w, r, err)

		return
	}

	writeJSON(r.Context(), w, http.StatusOK, listPostsResponse{Items: posts})
}

func (h *Handler) HandleReconcileSaved(w http.ResponseWriter, r *http.Request) {
	current, err := identity.FromContext(r.Context())
	if err != nil {
		writeError(w, r, err)

		return
	}

	report, err := h.savedManager.Reconcile(r.Context(), current.UserID)
	if err != nil {
		writeError(w, r, err)

		return
	}

	writeJSON(r.Context(), w, http.StatusOK, report)
}
