// Package auth resolves the current user for a request and manages the
// login and logout transitions.
package auth

import (
	"spendtrack/internal/models"
)

// UserDirectory resolves and creates user accounts. *storage.DB satisfies
// it.
type UserDirectory interface {
	GetUserByID(id int64) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
	CreateUser(username, passwordHash string) (*models.User, error)
}

// Principal is the session-side contract the service needs: read, write and
// clear the authenticated user id, and swap the session token.
// *session.Session satisfies it.
type Principal interface {
	UserID() (int64, bool)
	SetUserID(userID int64) error
	Clear() error
	Regenerate() error
}

// Credentials is a submitted login payload.
type Credentials struct {
	Username string
	Password string
}

// Service answers "who is making this request" with at most one directory
// lookup. Instances are request-scoped: the resolved-user cache makes a
// shared instance leak one user's identity into another's request.
type Service struct {
	dir  UserDirectory
	sess Principal

	user     *models.User
	resolved bool
}

// New creates a Service for a single request.
func New(dir UserDirectory, sess Principal) *Service {
	return &Service{dir: dir, sess: sess}
}

// User returns the authenticated user, or nil when the session carries no
// principal or the principal no longer resolves to a user. A stale session
// is not cleared here; it simply stops resolving. The result is cached, so
// repeated calls within the request hit the directory at most once.
func (s *Service) User() *models.User {
	if s.resolved {
		return s.user
	}
	s.resolved = true

	userID, ok := s.sess.UserID()
	if !ok {
		return nil
	}
	user, err := s.dir.GetUserByID(userID)
	if err != nil {
		return nil
	}
	s.user = user
	return s.user
}

// AttemptLogin verifies the credentials and, on success, rotates the
// session token and records the user as the session principal. Any failure
// (unknown user, wrong password, session error) returns false; invalid
// credentials leave the session untouched. The token rotation happens
// strictly before the principal write so a pre-login token can never become
// an authenticated session.
func (s *Service) AttemptLogin(creds Credentials) bool {
	user, err := s.dir.GetUserByUsername(creds.Username)
	if err != nil || !s.CheckCredentials(user, creds) {
		return false
	}

	if err := s.sess.Regenerate(); err != nil {
		return false
	}
	if err := s.sess.SetUserID(user.ID); err != nil {
		return false
	}

	s.user = user
	s.resolved = true
	return true
}

// CheckCredentials reports whether the submitted password matches the
// user's stored hash.
func (s *Service) CheckCredentials(user *models.User, creds Credentials) bool {
	return CheckPassword(creds.Password, user.PasswordHash)
}

// LogOut clears the session principal and the cached user unconditionally.
func (s *Service) LogOut() {
	_ = s.sess.Clear()
	s.user = nil
	s.resolved = false
}
