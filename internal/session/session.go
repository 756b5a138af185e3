// Package session tracks the authenticated principal for a browser session.
// A Session is a request-scoped handle over a persistent token-keyed store;
// the HTTP layer loads it from the session cookie and writes the cookie back
// when the token changes.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"spendtrack/internal/models"
)

// tokenBytes is the entropy of a session token; tokens are the hex
// encoding, so twice this many characters.
const tokenBytes = 32

// GenerateToken returns a new random session token.
func GenerateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Backend persists session rows. *storage.DB satisfies it. GetSession must
// fail for tokens without a live row; DeleteSession of an absent token is
// not an error.
type Backend interface {
	CreateSession(token string, userID int64, expiresAt time.Time) error
	GetSession(token string) (*models.Session, error)
	DeleteSession(token string) error
}

// Session is the per-request session handle. It is not safe for concurrent
// use; each request gets its own.
type Session struct {
	backend Backend
	token   string
	ttl     time.Duration
	changed bool
}

// New returns a handle for the given client token, which may be empty when
// the client presented no cookie.
func New(backend Backend, token string, ttl time.Duration) *Session {
	return &Session{backend: backend, token: token, ttl: ttl}
}

// Token returns the current session token, empty when the session carries
// none.
func (s *Session) Token() string { return s.token }

// Changed reports whether the token differs from the one the client
// presented, meaning the session cookie must be rewritten.
func (s *Session) Changed() bool { return s.changed }

// UserID returns the principal recorded for the current token. The second
// return is false when there is no token, no live session row, or the
// lookup fails.
func (s *Session) UserID() (int64, bool) {
	if s.token == "" {
		return 0, false
	}
	row, err := s.backend.GetSession(s.token)
	if err != nil {
		return 0, false
	}
	return row.UserID, true
}

// SetUserID records the principal for the current token, creating the
// session row. Regenerate must have been called first on a fresh login.
func (s *Session) SetUserID(userID int64) error {
	if s.token == "" {
		return fmt.Errorf("set principal: session has no token")
	}
	return s.backend.CreateSession(s.token, userID, time.Now().Add(s.ttl))
}

// Clear removes the session row and forgets the token. It succeeds even
// when no row exists.
func (s *Session) Clear() error {
	if s.token == "" {
		return nil
	}
	err := s.backend.DeleteSession(s.token)
	s.token = ""
	s.changed = true
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Regenerate invalidates the current token and issues a fresh one. Callers
// must sequence this before writing a new principal so a pre-login token
// can never be promoted to an authenticated session.
func (s *Session) Regenerate() error {
	if s.token != "" {
		if err := s.backend.DeleteSession(s.token); err != nil {
			return fmt.Errorf("invalidate session token: %w", err)
		}
	}
	token, err := GenerateToken()
	if err != nil {
		return fmt.Errorf("generate session token: %w", err)
	}
	s.token = token
	s.changed = true
	return nil
}
