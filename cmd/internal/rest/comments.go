package rest

import (
	"net/http"
	"strings"

	"pulse/cmd/identity"
	"pulse/cmd/internal/feed"
)

func (h *Handler) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	callerID, ok := caller(w, r)
	if !ok {
		return
	}

	var req createCommentRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	postID := strings.TrimSpace(req.PostID)
	if !identity.IsValidID(postID) {
		writeInvalidID(w, "post", postID)
		return
	}

	c, err := h.feed.CreateComment(r.Context(), callerID, postID, req.Content)
	if err != nil {
		h.writeDomainError(w, "rest.comments.create.fail", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCommentResponse(c))
}

func (h *Handler) handleListComments(w http.ResponseWriter, r *http.Request) {
	in := feed.ListCommentsInput{
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}
	if v := strings.TrimSpace(r.URL.Query().Get("post")); v != "" {
		if !identity.IsValidID(v) {
			writeInvalidID(w, "post", v)
			return
		}
		in.PostID = &v
	}

	comments, err := h.feed.ListComments(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, "rest.comments.list.fail", err)
		return
	}
	writeJSON(w, http.StatusOK, toCommentResponses(comments))
}

func (h *Handler) handleGetComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "comment")
	if !ok {
		return
	}
	c, err := h.feed.GetComment(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "rest.comments.get.fail", err)
		return
	}
	writeJSON(w, http.StatusOK, toCommentResponse(c))
}

func (h *Handler) handleUpdateComment(w http.ResponseWriter, r *http.Request) {
	callerID, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "comment")
	if !ok {
		return
	}

	var req updateCommentRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.feed.UpdateComment(r.Context(), callerID, id, req.Content)
	if err != nil {
		h.writeDomainError(w, "rest.comments.update.fail", err)
		return
	}
	writeJSON(w, http.StatusOK, toCommentResponse(c))
}

func (h *Handler) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	callerID, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "comment")
	if !ok {
		return
	}

	if err := h.feed.DeleteComment(r.Context(), callerID, id); err != nil {
		h.writeDomainError(w, "rest.comments.delete.fail", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteAllComments(w http.ResponseWriter, r *http.Request) {
	callerID, ok := caller(w, r)
	if !ok {
		return
	}

	n, err := h.feed.DeleteAllComments(r.Context(), callerID)
	if err != nil {
		h.writeDomainError(w, "rest.comments.delete_all.fail", err)
		return
	}
	writeJSON(w, http.StatusOK, deletedResponse{Deleted: n})
}
