package rest

import (
	"net/http"
	"strings"

	"pulse/cmd/identity"
	"pulse/cmd/internal/feed"
)

func (h *Handler) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	callerID, ok := caller(w, r)
	if !ok {
		return
	}

	var req createPostRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.feed.CreatePost(r.Context(), callerID, req.Title, req.Content)
	if err != nil {
		h.writeDomainError(w, "rest.posts.create.fail", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPostResponse(p))
}

func (h *Handler) handleListPosts(w http.ResponseWriter, r *http.Request) {
	in := feed.ListPostsInput{
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}
	if v := strings.TrimSpace(r.URL.Query().Get("sender")); v != "" {
		if !identity.IsValidID(v) {
			writeInvalidID(w, "sender", v)
			return
		}
		in.SenderID = &v
	}

	posts, err := h.feed.ListPosts(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, "rest.posts.list.fail", err)
		return
	}
	writeJSON(w, http.StatusOK, toPostResponses(posts))
}

func (h *Handler) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "post")
	if !ok {
		return
	}
	p, err := h.feed.GetPost(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "rest.posts.get.fail", err)
		return
	}
	writeJSON(w, http.StatusOK, toPostResponse(p))
}

func (h *Handler) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	callerID, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "post")
	if !ok {
		return
	}

	var req updatePostRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.feed.UpdatePost(r.Context(), callerID, id, req.Title, req.Content)
	if err != nil {
		h.writeDomainError(w, "rest.posts.update.fail", err)
		return
	}
	writeJSON(w, http.StatusOK, toPostResponse(p))
}

func (h *Handler) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	callerID, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "post")
	if !ok {
		return
	}

	if err := h.feed.DeletePost(r.Context(), callerID, id); err != nil {
		h.writeDomainError(w, "rest.posts.delete.fail", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteAllPosts(w http.ResponseWriter, r *http.Request) {
	callerID, ok := caller(w, r)
	if !ok {
		return
	}

	n, err := h.feed.DeleteAllPosts(r.Context(), callerID)
	if err != nil {
		h.writeDomainError(w, "rest.posts.delete_all.fail", err)
		return
	}
	writeJSON(w, http.StatusOK, deletedResponse{Deleted: n})
}
