package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ruziba3vich/toolshed/config"
	"github.com/ruziba3vich/toolshed/internal/domain/session"
	"github.com/ruziba3vich/toolshed/internal/domain/user"
	"github.com/ruziba3vich/toolshed/internal/infrastructure/crypto"
	"github.com/ruziba3vich/toolshed/internal/infrastructure/metrics"
	"github.com/ruziba3vich/toolshed/pkg/errors"
)

// SessionService owns the session lifecycle: issue, validate with rolling
// renewal, and invalidate. It keeps no state of its own; every decision is
// made against the repository.
type SessionService struct {
	repo        session.Repository
	lifetime    time.Duration
	renewWithin time.Duration
	now         func() time.Time
	metrics     *metrics.Metrics
}

// NewSessionService creates a session service. Zero durations in cfg fall
// back to the defaults.
func NewSessionService(repo session.Repository, cfg config.SessionConfig, m *metrics.Metrics) *SessionService {
	lifetime := cfg.Lifetime
	if lifetime <= 0 {
		lifetime = session.DefaultLifetime
	}
	renewWithin := cfg.RenewWithin
	if renewWithin <= 0 {
		renewWithin = session.DefaultRenewWithin
	}

	return &SessionService{
		repo:        repo,
		lifetime:    lifetime,
		renewWithin: renewWithin,
		now:         func() time.Time { return time.Now().UTC() },
		metrics:     m,
	}
}

// WithClock replaces the time source.
func (s *SessionService) WithClock(now func() time.Time) *SessionService {
	s.now = now
	return s
}

// Lifetime returns how long a fresh or renewed session lives.
func (s *SessionService) Lifetime() time.Duration {
	return s.lifetime
}

// GenerateSessionToken returns a new random session token.
func (s *SessionService) GenerateSessionToken() (string, error) {
	return crypto.GenerateSessionToken()
}

// CreateSession stores a session for token. Only the token's hash is persisted.
func (s *SessionService) CreateSession(ctx context.Context, token string, userID uuid.UUID) (*session.Session, error) {
	sess := session.New(crypto.HashToken(token), userID, s.now(), s.lifetime)
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, errors.Wrap(err, "failed to create session")
	}
	s.metrics.SessionCreated()
	return sess, nil
}

// IssueSession generates a token and creates its session. The token is the
// only copy of the credential and must be handed to the client.
func (s *SessionService) IssueSession(ctx context.Context, userID uuid.UUID) (string, *session.Session, error) {
	token, err := s.GenerateSessionToken()
	if err != nil {
		return "", nil, err
	}
	sess, err := s.CreateSession(ctx, token, userID)
	if err != nil {
		return "", nil, err
	}
	return token, sess, nil
}

// ValidateSessionToken resolves a client token to its live session.
func (s *SessionService) ValidateSessionToken(ctx context.Context, token string) (*session.Session, *user.User, error) {
	return s.ValidateSession(ctx, crypto.HashToken(token))
}

// ValidateSession resolves a session id. It returns (nil, nil, nil) when
// the session does not exist or has expired; an expired row is deleted.
// A session inside its renewal window gets a fresh lifetime. At most one
// lookup and one write are made.
func (s *SessionService) ValidateSession(ctx context.Context, sessionID string) (*session.Session, *user.User, error) {
	sess, u, err := s.repo.GetWithUser(ctx, sessionID)
	if err != nil {
		if errors.Is(err, errors.ErrSessionNotFound) {
			return nil, nil, nil
		}
		return nil, nil, errors.Wrap(err, "failed to load session")
	}

	now := s.now()

	if sess.IsExpired(now) {
		if err := s.repo.Delete(ctx, sess.ID); err != nil {
			return nil, nil, errors.Wrap(err, "failed to delete expired session")
		}
		s.metrics.SessionExpired()
		return nil, nil, nil
	}

	if sess.NeedsRenewal(now, s.renewWithin) {
		sess.Renew(now, s.lifetime)
		if err := s.repo.UpdateExpiry(ctx, sess.ID, sess.ExpiresAt); err != nil {
			return nil, nil, errors.Wrap(err, "failed to renew session")
		}
		s.metrics.SessionRenewed()
	}

	s.metrics.SessionValidated()
	return sess, u, nil
}

// InvalidateSession deletes a session. Unknown ids are not an error.
func (s *SessionService) InvalidateSession(ctx context.Context, sessionID string) error {
	if err := s.repo.Delete(ctx, sessionID); err != nil {
		return errors.Wrap(err, "failed to invalidate session")
	}
	s.metrics.SessionInvalidated()
	return nil
}

// InvalidateUserSessions deletes every session belonging to userID.
func (s *SessionService) InvalidateUserSessions(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.DeleteByUserID(ctx, userID); err != nil {
		return errors.Wrap(err, "failed to invalidate user sessions")
	}
	s.metrics.SessionInvalidated()
	return nil
}
