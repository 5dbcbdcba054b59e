package authapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"pulse/cmd/identity"
	"pulse/cmd/internal/auth/session"
)

// Handler wires the HTTP auth endpoints to the session service.
type Handler struct {
	log      *slog.Logger
	cfg      Config
	sessions *session.Service
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, sessions *session.Service) (*Handler, error) {
	if sessions == nil {
		return nil, errors.New("auth: nil session service")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{log: log, cfg: cfg, sessions: sessions}, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/auth/login", h.handleLogin)
	mux.HandleFunc("/auth/refresh", h.handleRefresh)
	// Logout proves identity with the (possibly still valid) access token and
	// uses the refresh cookie only to locate the session.
	mux.Handle("/auth/logout", h.RequireAuth(http.HandlerFunc(h.handleLogout)))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	ctx := r.Context()
	ip := clientIP(r, h.cfg.TrustProxy)

	user, issued, err := h.sessions.Login(ctx, username, req.Password, ip)
	if err != nil {
		// Unknown user and wrong password answer identically.
		if errors.Is(err, session.ErrInvalidCredentials) {
			writeError(w, http.StatusNotFound, "invalid credentials")
			return
		}
		h.log.Error("auth.login.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.setRefreshCookie(w, issued.RefreshToken, issued.RefreshExpiresAt, time.Now().UTC())
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: issued.AccessToken,
		User:        toUserResponse(user),
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	refreshToken, ok := h.refreshTokenFromCookie(r)
	if !ok {
		writeAuthError(w, http.StatusUnauthorized, "refresh token missing", session.ReasonNoToken)
		return
	}

	issued, err := h.sessions.Refresh(r.Context(), refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNoToken),
			errors.Is(err, session.ErrInvalidToken),
			errors.Is(err, session.ErrTokenExpired),
			errors.Is(err, session.ErrNoSession):
			writeAuthError(w, http.StatusUnauthorized, "refresh failed", session.ReasonForError(err))
		default:
			h.log.Error("auth.refresh.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	h.setRefreshCookie(w, issued.RefreshToken, issued.RefreshExpiresAt, time.Now().UTC())
	writeJSON(w, http.StatusOK, refreshResponse{NewAccessToken: issued.AccessToken})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	userID, ok := UserID(r.Context())
	if !ok || !identity.IsValidID(userID) {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	refreshToken, ok := h.refreshTokenFromCookie(r)
	if !ok {
		// Nothing to clear.
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := h.sessions.Logout(r.Context(), refreshToken); err != nil {
		if errors.Is(err, session.ErrInvalidSessionID) {
			h.clearRefreshCookie(w)
			writeError(w, http.StatusBadRequest, "invalid session")
			return
		}
		h.log.Error("auth.logout.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, logoutResponse{Message: "logged out"})
}
