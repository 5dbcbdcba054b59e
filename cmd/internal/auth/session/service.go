package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pulse/cmd/identity"
	"pulse/cmd/security/token"
)

// Issued is a freshly signed token pair plus the session it belongs to.
type Issued struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	SessionID        string
}

// Service implements the login / refresh / logout state machine on top of a
// Store and a TokenManager.
type Service struct {
	store  Store
	tokens *TokenManager
	users  identity.Store
	logger *slog.Logger
	now    func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the service clock. Tests use it to drive expiry.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires a Service.
func NewService(store Store, tokens *TokenManager, users identity.Store, opts ...ServiceOption) (*Service, error) {
	if store == nil || tokens == nil || users == nil {
		return nil, fmt.Errorf("%w: service requires a store, a token manager and a user store", ErrConfig)
	}
	s := &Service{
		store:  store,
		tokens: tokens,
		users:  users,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Token validation must follow the same clock the service issues with,
	// or an injected clock would fail exp/nbf checks against wall time.
	tokens.now = s.now

	return s, nil
}

// Tokens exposes the token manager for transport-layer verification.
func (s *Service) Tokens() *TokenManager { return s.tokens }

// Login verifies the credentials and replaces the user's session with a new
// one. Credential failures collapse into ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password, ip string) (identity.User, Issued, error) {
	now := s.now().UTC()

	auth, err := s.users.GetUserAuthByUsername(ctx, username)
	if err != nil {
		if identity.IsNotFound(err) {
			// Burn a comparison so unknown usernames cost the same as a
			// wrong password.
			identity.VerifyPassword(password, dummyHash)
			s.logger.InfoContext(ctx, "auth.login.fail", "reason", "unknown_user")
			return identity.User{}, Issued{}, ErrInvalidCredentials
		}
		return identity.User{}, Issued{}, fmt.Errorf("session: login: %w", err)
	}

	ok, err := identity.VerifyPassword(password, auth.PasswordHash)
	if err != nil {
		return identity.User{}, Issued{}, fmt.Errorf("session: login: %w", err)
	}
	if !ok {
		s.logger.InfoContext(ctx, "auth.login.fail", "reason", "bad_password", "user_id", auth.User.ID)
		return identity.User{}, Issued{}, ErrInvalidCredentials
	}

	issued, err := s.issue(ctx, now, auth.User.ID, ip)
	if err != nil {
		return identity.User{}, Issued{}, err
	}

	s.logger.InfoContext(ctx, "auth.login.ok", "user_id", auth.User.ID, "session_id", issued.SessionID)
	return auth.User, issued, nil
}

// Refresh rotates the token pair bound to the presented refresh token. The
// rotation is guarded by the stored fingerprint, so a rotated token can be
// used exactly once.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Issued, error) {
	now := s.now().UTC()

	userID, sessionID, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return Issued{}, err
	}

	row, err := s.store.GetByID(ctx, sessionID)
	if err != nil {
		return Issued{}, err
	}
	if row.UserID != userID {
		return Issued{}, ErrInvalidToken
	}
	if row.Expired(now) {
		return Issued{}, ErrTokenExpired
	}

	oldHash := token.FingerprintHex(refreshToken)
	if !token.FingerprintEqual(row.RefreshTokenHash, oldHash) {
		s.logger.WarnContext(ctx, "auth.refresh.reuse", "session_id", sessionID, "user_id", userID)
		return Issued{}, ErrInvalidToken
	}

	newRefresh, refreshExp, err := s.tokens.IssueRefresh(userID, sessionID, now)
	if err != nil {
		return Issued{}, err
	}
	if err := s.store.Rotate(ctx, now, sessionID, oldHash, token.FingerprintHex(newRefresh), refreshExp); err != nil {
		if errors.Is(err, ErrInvalidToken) {
			s.logger.WarnContext(ctx, "auth.refresh.race", "session_id", sessionID)
		}
		return Issued{}, err
	}

	access, accessExp, err := s.tokens.IssueAccess(userID, now)
	if err != nil {
		return Issued{}, err
	}

	s.logger.InfoContext(ctx, "auth.refresh.ok", "user_id", userID, "session_id", sessionID)
	return Issued{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     newRefresh,
		RefreshExpiresAt: refreshExp,
		SessionID:        sessionID,
	}, nil
}

// Logout removes the session named by the refresh token. Expired tokens are
// accepted; the signature still has to verify. Deleting an already absent
// session is not an error.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	sessionID, err := s.tokens.ExtractRefreshSession(refreshToken)
	if err != nil {
		return errors.Join(ErrInvalidSessionID, err)
	}
	if !identity.IsValidID(sessionID) {
		return ErrInvalidSessionID
	}
	if err := s.store.Delete(ctx, sessionID); err != nil && !errors.Is(err, ErrNoSession) {
		return fmt.Errorf("session: logout: %w", err)
	}
	s.logger.InfoContext(ctx, "auth.logout.ok", "session_id", sessionID)
	return nil
}

// ValidateAccess verifies an access token and returns the user id it names.
func (s *Service) ValidateAccess(accessToken string) (string, error) {
	return s.tokens.VerifyAccess(accessToken)
}

// DeleteExpired removes sessions past their expiry. The app's janitor calls
// this on a ticker.
func (s *Service) DeleteExpired(ctx context.Context) (int64, error) {
	return s.store.DeleteExpired(ctx, s.now().UTC())
}

func (s *Service) issue(ctx context.Context, now time.Time, userID, ip string) (Issued, error) {
	sessionID, err := s.store.Create(ctx, now, userID, ip)
	if err != nil {
		return Issued{}, err
	}

	refresh, refreshExp, err := s.tokens.IssueRefresh(userID, sessionID, now)
	if err != nil {
		return Issued{}, err
	}
	if err := s.store.AttachRefreshToken(ctx, now, sessionID, token.FingerprintHex(refresh), refreshExp); err != nil {
		return Issued{}, err
	}

	access, accessExp, err := s.tokens.IssueAccess(userID, now)
	if err != nil {
		return Issued{}, err
	}

	return Issued{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
		SessionID:        sessionID,
	}, nil
}

// dummyHash is a valid bcrypt hash of a random string, used to equalize the
// cost of login attempts against unknown usernames.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
