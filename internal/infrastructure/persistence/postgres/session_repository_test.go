package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruziba3vich/toolshed/internal/domain/session"
	"github.com/ruziba3vich/toolshed/internal/domain/user"
	apperrors "github.com/ruziba3vich/toolshed/pkg/errors"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func TestSessionRepositoryCreate(t *testing.T) {
	mock := newMock(t)
	repo := NewSessionRepository(mock)

	s := &session.Session{
		ID:        "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8",
		UserID:    uuid.New(),
		ExpiresAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec(`INSERT INTO user_sessions`).
		WithArgs(s.ID, toPgUUID(s.UserID), toPgTimestamptz(s.ExpiresAt)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), s))
}

func TestSessionRepositoryGetWithUser(t *testing.T) {
	mock := newMock(t)
	repo := NewSessionRepository(mock)

	userID := uuid.New()
	expiresAt := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	createdAt := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows([]string{"id", "user_id", "expires_at", "id", "username", "role", "created_at"}).
		AddRow("abc", toPgUUID(userID), toPgTimestamptz(expiresAt), toPgUUID(userID), "alice", "admin", toPgTimestamptz(createdAt))
	mock.ExpectQuery(`SELECT s.id, s.user_id, s.expires_at, u.id, u.username, u.role, u.created_at`).
		WithArgs("abc").
		WillReturnRows(rows)

	s, u, err := repo.GetWithUser(context.Background(), "abc")
	require.NoError(t, err)

	assert.Equal(t, "abc", s.ID)
	assert.Equal(t, userID, s.UserID)
	assert.Equal(t, expiresAt, s.ExpiresAt)
	assert.Equal(t, userID, u.ID)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, user.RoleAdmin, u.Role)
	assert.Nil(t, u.PasswordHash)
}

func TestSessionRepositoryGetWithUserNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewSessionRepository(mock)

	mock.ExpectQuery(`FROM user_sessions`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	s, u, err := repo.GetWithUser(context.Background(), "missing")
	assert.Nil(t, s)
	assert.Nil(t, u)
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestSessionRepositoryGetWithUserFailure(t *testing.T) {
	mock := newMock(t)
	repo := NewSessionRepository(mock)

	mock.ExpectQuery(`FROM user_sessions`).
		WithArgs("abc").
		WillReturnError(errors.New("connection reset"))

	_, _, err := repo.GetWithUser(context.Background(), "abc")
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestSessionRepositoryUpdateExpiry(t *testing.T) {
	mock := newMock(t)
	repo := NewSessionRepository(mock)

	expiresAt := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(`UPDATE user_sessions SET expires_at`).
		WithArgs("abc", toPgTimestamptz(expiresAt)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.UpdateExpiry(context.Background(), "abc", expiresAt))
}

func TestSessionRepositoryDeleteIsIdempotent(t *testing.T) {
	mock := newMock(t)
	repo := NewSessionRepository(mock)

	mock.ExpectExec(`DELETE FROM user_sessions WHERE id`).
		WithArgs("abc").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM user_sessions WHERE id`).
		WithArgs("abc").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, repo.Delete(context.Background(), "abc"))
	require.NoError(t, repo.Delete(context.Background(), "abc"))
}

func TestSessionRepositoryDeleteByUserID(t *testing.T) {
	mock := newMock(t)
	repo := NewSessionRepository(mock)

	userID := uuid.New()
	mock.ExpectExec(`DELETE FROM user_sessions WHERE user_id`).
		WithArgs(pgtype.UUID{Bytes: userID, Valid: true}).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	require.NoError(t, repo.DeleteByUserID(context.Background(), userID))
}
