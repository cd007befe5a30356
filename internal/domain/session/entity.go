package session

import (
	"time"

	"github.com/google/uuid"
)

// Default lifetime policy. A session lives 30 days and is pushed forward
// whenever it is validated within the last 15 days of its life.
const (
	DefaultLifetime    = 30 * 24 * time.Hour
	DefaultRenewWithin = 15 * 24 * time.Hour
)

// Session is a server-side login session. ID is the lowercase hex SHA-256
// of the token held by the client; the token itself is never stored.
type Session struct {
	ID        string
	UserID    uuid.UUID
	ExpiresAt time.Time
}

// New creates a session for userID expiring lifetime after now.
func New(id string, userID uuid.UUID, now time.Time, lifetime time.Duration) *Session {
	return &Session{
		ID:        id,
		UserID:    userID,
		ExpiresAt: now.Add(lifetime),
	}
}

// IsExpired reports whether the session is no longer valid at now.
// A session is expired at the exact instant of ExpiresAt.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// NeedsRenewal reports whether now falls inside the renewal window
// that ends at ExpiresAt.
func (s *Session) NeedsRenewal(now time.Time, window time.Duration) bool {
	return !now.Before(s.ExpiresAt.Add(-window))
}

// Renew moves the expiry to lifetime after now.
func (s *Session) Renew(now time.Time, lifetime time.Duration) {
	s.ExpiresAt = now.Add(lifetime)
}

// Info is the public view of the current session.
type Info struct {
	ExpiresAt time.Time `json:"expires_at"`
}

// ToInfo converts the session to its public form. The id is omitted since
// it is derived from the credential.
func (s *Session) ToInfo() Info {
	return Info{ExpiresAt: s.ExpiresAt}
}
