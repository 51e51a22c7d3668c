package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/nasermirzaei89/snapfeed/contents"
	"github.com/nasermirzaei89/snapfeed/feed"
	"github.com/nasermirzaei89/snapfeed/identity"
	"github.com/nasermirzaei89/snapfeed/validation"
)

type listPostsResponse struct {
	Items []*contents.Post `json:"items"`
}

func (h *Handler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	cursor, err := feed.ParseCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, r, err)

		return
	}

	size := h.feed.PageSize()

	if limit := r.URL.Query().Get("limit"); limit != "" {
		size, err = strconv.Atoi(limit)
		if err != nil || size < 1 || size > feed.MaxPageSize {
			writeError(w, r, &validation.Error{Field: "limit", Reason: "must be a number between 1 and 50"})

			return
		}
	}

	page, err := h.feed.FetchPageSize(r.Context(), cursor, size)
	if err != nil {
		writeError(w, r, err)

		return
	}

	writeJSON(r.Context(), w, http.StatusOK, page)
}

type createPostRequest struct {
	ImageURL string `json:"imageURL"`
}

func (h *Handler) HandleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest

	err := decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, r, err)

		return
	}

	current, err := identity.FromContext(r.Context())
	if err != nil {
		writeError(w, r, err)

		return
	}

	post, err := h.contentsSvc.CreatePost(r.Context(), contents.CreatePostRequest{
		AuthorID:   current.UserID,
		AuthorName: current.Name(),
		ImageURL:   req.ImageURL,
	})
	if err != nil {
		writeError(w, r, err)

		return
	}

	writeJSON(r.Context(), w, http.StatusCreated, post)
}

func (h *Handler) HandleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.contentsSvc.GetPost(r.Context(), chi.URLParam(r, "postID"))
	if err != nil {
		writeError(w, r, err)

		return
	}

	writeJSON(r.Context(), w, http.StatusOK, post)
}

func (h *Handler) HandleDeletePost(w http.ResponseWriter, r *http.Request) {
	current, err := identity.FromContext(r.Context())
	if err != nil {
		writeError(w, r, err)

		return
	}

	err = h.contentsSvc.DeletePost(r.Context(), chi.URLParam(r, "postID"), current.UserID)
	if err != nil {
		writeError(w, r, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleMyPosts(w http.ResponseWriter, r *http.Request) {
	current, err := identity.FromContext(r.Context())
	if err != nil {
		writeError(w, r, err)

		return
	}

	posts, err := h.contentsSvc.ListPostsByAuthor(r.Context(), current.UserID)
	if err != nil {
		writeError(w, r, err)

		return
	}

	writeJSON(r.Context(), w, http.StatusOK, listPostsResponse{Items: posts})
}
