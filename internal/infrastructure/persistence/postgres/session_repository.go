package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ruziba3vich/toolshed/internal/domain/session"
	"github.com/ruziba3vich/toolshed/internal/domain/user"
	apperrors "github.com/ruziba3vich/toolshed/pkg/errors"
)

const (
	createSession = `INSERT INTO user_sessions (id, user_id, expires_at) VALUES ($1, $2, $3)`

	getSessionWithUser = `SELECT s.id, s.user_id, s.expires_at, u.id, u.username, u.role, u.created_at
FROM user_sessions s
INNER JOIN users u ON u.id = s.user_id
WHERE s.id = $1`

	updateSessionExpiry = `UPDATE user_sessions SET expires_at = $2 WHERE id = $1`

	deleteSession = `DELETE FROM user_sessions WHERE id = $1`

	deleteSessionsByUserID = `DELETE FROM user_sessions WHERE user_id = $1`
)

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, s *session.Session) error {
	_, err := r.db.Exec(ctx, createSession, s.ID, toPgUUID(s.UserID), toPgTimestamptz(s.ExpiresAt))
	if err != nil {
		return apperrors.Wrap(err, "failed to create session")
	}
	return nil
}

// GetWithUser never selects the password hash.
func (r *SessionRepository) GetWithUser(ctx context.Context, id string) (*session.Session, *user.User, error) {
	var (
		s         session.Session
		u         user.User
		sessUser  pgtype.UUID
		userID    pgtype.UUID
		expiresAt pgtype.Timestamptz
		createdAt pgtype.Timestamptz
		role      string
	)

	err := r.db.QueryRow(ctx, getSessionWithUser, id).Scan(
		&s.ID, &sessUser, &expiresAt,
		&userID, &u.Username, &role, &createdAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil, apperrors.ErrSessionNotFound
		}
		return nil, nil, apperrors.Wrap(err, "failed to get session")
	}

	s.UserID = fromPgUUID(sessUser)
	s.ExpiresAt = expiresAt.Time
	u.ID = fromPgUUID(userID)
	u.Role = user.Role(role)
	u.CreatedAt = createdAt.Time

	return &s, &u, nil
}

func (r *SessionRepository) UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	if _, err := r.db.Exec(ctx, updateSessionExpiry, id, toPgTimestamptz(expiresAt)); err != nil {
		return apperrors.Wrap(err, "failed to update session expiry")
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, deleteSession, id); err != nil {
		return apperrors.Wrap(err, "failed to delete session")
	}
	return nil
}

func (r *SessionRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, deleteSessionsByUserID, toPgUUID(userID)); err != nil {
		return apperrors.Wrap(err, "failed to delete user sessions")
	}
	return nil
}
