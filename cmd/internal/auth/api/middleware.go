package authapi

import (
	"context"
	"net/http"

	"pulse/cmd/internal/auth/session"
)

type contextKey struct{}

var userIDKey contextKey

// UserID returns the authenticated user id stored by RequireAuth.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// RequireAuth gates next on a valid bearer access token. An absent token is
// a 403; a token that fails verification is a 401 with a reason code.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeAuthError(w, http.StatusForbidden, "access token required", session.ReasonNoToken)
			return
		}

		userID, err := h.sessions.ValidateAccess(token)
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, "invalid access token", session.ReasonForError(err))
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}
