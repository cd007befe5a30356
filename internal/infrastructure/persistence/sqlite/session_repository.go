package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/ruziba3vich/toolshed/internal/domain/session"
	"github.com/ruziba3vich/toolshed/internal/domain/user"
	apperrors "github.com/ruziba3vich/toolshed/pkg/errors"
)

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db.SQL}
}

func (r *SessionRepository) Create(ctx context.Context, s *session.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_sessions (id, user_id, expires_at) VALUES (?, ?, ?)`,
		s.ID, s.UserID.String(), toUnix(s.ExpiresAt),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create session")
	}
	return nil
}

func (r *SessionRepository) GetWithUser(ctx context.Context, id string) (*session.Session, *user.User, error) {
	var (
		s         session.Session
		u         user.User
		expiresAt int64
		createdAt int64
		role      string
	)

	err := r.db.QueryRowContext(ctx, `SELECT s.id, s.user_id, s.expires_at, u.id, u.username, u.role, u.created_at
FROM user_sessions s
INNER JOIN users u ON u.id = s.user_id
WHERE s.id = ?`, id).Scan(&s.ID, &s.UserID, &expiresAt, &u.ID, &u.Username, &role, &createdAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil, apperrors.ErrSessionNotFound
		}
		return nil, nil, apperrors.Wrap(err, "failed to get session")
	}

	s.ExpiresAt = fromUnix(expiresAt)
	u.Role = user.Role(role)
	u.CreatedAt = fromUnix(createdAt)
	return &s, &u, nil
}

func (r *SessionRepository) UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE user_sessions SET expires_at = ? WHERE id = ?`, toUnix(expiresAt), id)
	if err != nil {
		return apperrors.Wrap(err, "failed to update session expiry")
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE id = ?`, id); err != nil {
		return apperrors.Wrap(err, "failed to delete session")
	}
	return nil
}

func (r *SessionRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE user_id = ?`, userID.String()); err != nil {
		return apperrors.Wrap(err, "failed to delete user sessions")
	}
	return nil
}
