package rest

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pulse/cmd/identity"
	authapi "pulse/cmd/internal/auth/api"
	"pulse/cmd/internal/feed"
)

// Handler serves the user, post and comment resources.
type Handler struct {
	log          *slog.Logger
	users        identity.Store
	feed         *feed.Service
	auth         *authapi.Handler
	maxBodyBytes int64
}

// NewHandler constructs a REST Handler. auth provides the access-token
// middleware for protected routes.
func NewHandler(log *slog.Logger, users identity.Store, feedSvc *feed.Service, auth *authapi.Handler, maxBodyBytes int64) (*Handler, error) {
	if users == nil || feedSvc == nil || auth == nil {
		return nil, errors.New("rest: nil dependency")
	}
	if log == nil {
		log = slog.Default()
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = 1 << 20
	}
	return &Handler{
		log:          log,
		users:        users,
		feed:         feedSvc,
		auth:         auth,
		maxBodyBytes: maxBodyBytes,
	}, nil
}

// Register wires resource routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}

	// Users. Signup is the one open mutation.
	mux.HandleFunc("POST /users", h.handleSignup)
	mux.HandleFunc("GET /users", h.handleListUsers)
	mux.HandleFunc("GET /users/{id}", h.handleGetUser)
	mux.Handle("PUT /users/{id}", h.protected(h.handleUpdateUser))
	mux.Handle("DELETE /users/{id}", h.protected(h.handleDeleteUser))

	// Posts.
	mux.Handle("POST /posts", h.protected(h.handleCreatePost))
	mux.HandleFunc("GET /posts", h.handleListPosts)
	mux.HandleFunc("GET /posts/{id}", h.handleGetPost)
	mux.Handle("PUT /posts/{id}", h.protected(h.handleUpdatePost))
	mux.Handle("DELETE /posts/{id}", h.protected(h.handleDeletePost))
	mux.Handle("DELETE /posts", h.protected(h.handleDeleteAllPosts))

	// Comments.
	mux.Handle("POST /comments", h.protected(h.handleCreateComment))
	mux.HandleFunc("GET /comments", h.handleListComments)
	mux.HandleFunc("GET /comments/{id}", h.handleGetComment)
	mux.Handle("PUT /comments/{id}", h.protected(h.handleUpdateComment))
	mux.Handle("DELETE /comments/{id}", h.protected(h.handleDeleteComment))
	mux.Handle("DELETE /comments", h.protected(h.handleDeleteAllComments))
}

func (h *Handler) protected(fn http.HandlerFunc) http.Handler {
	return h.auth.RequireAuth(fn)
}

// caller returns the authenticated user id placed by the middleware.
func caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := authapi.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return "", false
	}
	return id, true
}

// pathID validates the {id} wildcard, writing the 400 itself on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	if !identity.IsValidID(id) {
		writeInvalidID(w, name, id)
		return "", false
	}
	return id, true
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}

// ---- users ----

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.users.CreateUser(r.Context(), identity.CreateUserInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		IsPrivate: req.IsPrivate,
		Bio:       req.Bio,
		AvatarURL: req.AvatarURL,
		Now:       time.Now().UTC(),
	})
	if err != nil {
		h.writeDomainError(w, "rest.signup.fail", err)
		return
	}

	h.log.Info("rest.signup.ok", "user_id", u.ID)
	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	in := identity.ListUsersInput{
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}
	if v := strings.TrimSpace(r.URL.Query().Get("username")); v != "" {
		in.Username = &v
	}

	users, err := h.users.ListUsers(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, "rest.users.list.fail", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponses(users))
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "user")
	if !ok {
		return
	}
	u, err := h.users.GetUserByID(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "rest.users.get.fail", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	callerID, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "user")
	if !ok {
		return
	}
	if id != callerID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	var req updateUserRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.users.UpdateUser(r.Context(), id, identity.UpdateUserInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		IsPrivate: req.IsPrivate,
		Bio:       req.Bio,
		AvatarURL: req.AvatarURL,
		Now:       time.Now().UTC(),
	})
	if err != nil {
		h.writeDomainError(w, "rest.users.update.fail", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	callerID, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "user")
	if !ok {
		return
	}
	if id != callerID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	ctx := r.Context()
	// Content first, then the account itself.
	if _, err := h.feed.DeleteAllComments(ctx, id); err != nil {
		h.writeDomainError(w, "rest.users.delete.fail", err)
		return
	}
	if _, err := h.feed.DeleteAllPosts(ctx, id); err != nil {
		h.writeDomainError(w, "rest.users.delete.fail", err)
		return
	}
	if err := h.users.DeleteUser(ctx, id); err != nil {
		h.writeDomainError(w, "rest.users.delete.fail", err)
		return
	}

	h.log.Info("rest.users.delete.ok", "user_id", id)
	w.WriteHeader(http.StatusNoContent)
}
