package session

import (
	"errors"
	"fmt"
	"time"

	"pulse/cmd/identity"

	"github.com/golang-jwt/jwt/v5"
)

// accessClaims is the payload of an access token.
type accessClaims struct {
	jwt.RegisteredClaims
}

// refreshClaims is the payload of a refresh token. It additionally carries
// the session id so a refresh can be routed to its session record without a
// lookup by token value.
type refreshClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies the access/refresh token pair.
// The two token kinds use distinct secrets; a token signed with one secret
// never verifies under the other.
type TokenManager struct {
	cfg Config

	// now is the clock exp/nbf claims are validated against. The owning
	// service replaces it when it runs on an injected clock.
	now func() time.Time
}

// NewTokenManager validates cfg and returns a manager.
func NewTokenManager(cfg Config) (*TokenManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &TokenManager{cfg: cfg, now: time.Now}, nil
}

// AccessTokenTTL reports the configured access token lifetime.
func (m *TokenManager) AccessTokenTTL() time.Duration { return m.cfg.AccessTokenTTL }

// RefreshTokenTTL reports the configured refresh token lifetime.
func (m *TokenManager) RefreshTokenTTL() time.Duration { return m.cfg.RefreshTokenTTL }

// IssueAccess signs a new access token for userID.
func (m *TokenManager) IssueAccess(userID string, now time.Time) (string, time.Time, error) {
	exp := now.Add(m.cfg.AccessTokenTTL)
	claims := accessClaims{
		RegisteredClaims: m.registered(userID, now, exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.cfg.AccessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("session: sign access token: %w", err)
	}
	return signed, exp, nil
}

// IssueRefresh signs a new refresh token for userID bound to sessionID.
// Every token carries a fresh jti so that two tokens issued for the same
// session within the same second still rotate to distinct fingerprints.
func (m *TokenManager) IssueRefresh(userID, sessionID string, now time.Time) (string, time.Time, error) {
	jti, err := identity.NewULID(now)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("session: refresh token id: %w", err)
	}

	exp := now.Add(m.cfg.RefreshTokenTTL)
	claims := refreshClaims{
		SessionID:        sessionID,
		RegisteredClaims: m.registered(userID, now, exp),
	}
	claims.ID = jti
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.cfg.RefreshSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("session: sign refresh token: %w", err)
	}
	return signed, exp, nil
}

// VerifyAccess checks an access token and returns the subject user id.
func (m *TokenManager) VerifyAccess(token string) (string, error) {
	var claims accessClaims
	if err := m.parse(token, &claims, m.cfg.AccessSecret); err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// VerifyRefresh checks a refresh token and returns the subject user id and
// the session id it is bound to.
func (m *TokenManager) VerifyRefresh(token string) (userID, sessionID string, err error) {
	var claims refreshClaims
	if err := m.parse(token, &claims, m.cfg.RefreshSecret); err != nil {
		return "", "", err
	}
	if claims.Subject == "" || claims.SessionID == "" {
		return "", "", ErrInvalidToken
	}
	return claims.Subject, claims.SessionID, nil
}

// ExtractRefreshSession returns the session id of a refresh token whose
// signature verifies, without enforcing expiry. Logout accepts expired
// tokens so a stale client can still clear its session.
func (m *TokenManager) ExtractRefreshSession(token string) (string, error) {
	if token == "" {
		return "", ErrNoToken
	}
	var claims refreshClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(t *jwt.Token) (any, error) { return m.cfg.RefreshSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || claims.SessionID == "" {
		return "", ErrInvalidToken
	}
	return claims.SessionID, nil
}

func (m *TokenManager) registered(subject string, now, exp time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    m.cfg.Issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
}

func (m *TokenManager) parse(token string, claims jwt.Claims, secret []byte) error {
	if token == "" {
		return ErrNoToken
	}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.cfg.Issuer),
		jwt.WithLeeway(m.cfg.ClockSkew),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return ErrInvalidToken
	}
}
