package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nasermirzaei89/snapfeed/discuss"
	"github.com/nasermirzaei89/snapfeed/identity"
)

type threadResponse struct {
	Comments []*discuss.Node `json:"comments"`
	Count    int             `json:"count"`
	Hidden   int             `json:"hidden"`
}

func (h *Handler) HandleListComments(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postID")

	_, err := h.contentsSvc.GetPost(r.Context(), postID)
	if err != nil {
		writeError(w, r, err)

		return
	}

	forest, err := h.discussSvc.LoadThread(r.Context(), postID)
	if err != nil {
		writeError(w, r, err)

		return
	}

	writeJSON(r.Context(), w, http.StatusOK, threadResponse{
		Comments: forest.Roots(),
		Count:    forest.Len(),
		Hidden:   len(forest.Orphans()),
	})
}

type createCommentRequest struct {
	Text     string `json:"text"`
	ParentID string `json:"parentId"`
}

func (h *Handler) HandleCreateComment(w http.ResponseWriter, r *http.Request) {
	var req createCommentRequest

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

	comment, err := h.discussSvc.CreateComment(r.Context(), discuss.CreateCommentRequest{
		PostID:     chi.URLParam(r, "postID"),
		AuthorID:   current.UserID,
		AuthorName: current.Name(),
		Text:       req.Text,
		ParentID:   req.ParentID,
	})
	if err != nil {
		writeError(w, r, err)

		return
	}

	writeJSON(r.Context(), w, http.StatusCreated, comment)
}
