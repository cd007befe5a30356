package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ruziba3vich/toolshed/internal/domain/user"
	apperrors "github.com/ruziba3vich/toolshed/pkg/errors"
)

const (
	createUser = `INSERT INTO users (id, username, password_hash, role, created_at) VALUES ($1, $2, $3, $4, $5)`

	getUserByID = `SELECT id, username, role, created_at FROM users WHERE id = $1`

	getUserByUsername = `SELECT id, username, password_hash, role, created_at FROM users WHERE username = $1`

	updateUserPassword = `UPDATE users SET password_hash = $2 WHERE id = $1`

	getUserByOAuthAccount = `SELECT u.id, u.username, u.role, u.created_at
FROM oauth_accounts a
INNER JOIN users u ON u.id = a.user_id
WHERE a.provider = $1 AND a.provider_user_id = $2`

	createOAuthAccount = `INSERT INTO oauth_accounts (provider, provider_user_id, user_id) VALUES ($1, $2, $3)`
)

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	return insertUser(ctx, r.db, u)
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u, err := scanPublicUser(r.db.QueryRow(ctx, getUserByID, toPgUUID(id)))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get user by ID")
	}
	return u, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	var (
		u         user.User
		id        pgtype.UUID
		hash      pgtype.Text
		role      string
		createdAt pgtype.Timestamptz
	)

	err := r.db.QueryRow(ctx, getUserByUsername, username).Scan(&id, &u.Username, &hash, &role, &createdAt)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get user by username")
	}

	u.ID = fromPgUUID(id)
	u.PasswordHash = fromPgTextNullable(hash)
	u.Role = user.Role(role)
	u.CreatedAt = createdAt.Time
	return &u, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	tag, err := r.db.Exec(ctx, updateUserPassword, toPgUUID(id), passwordHash)
	if err != nil {
		return apperrors.Wrap(err, "failed to update password")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) GetByOAuthAccount(ctx context.Context, provider, providerUserID string) (*user.User, error) {
	u, err := scanPublicUser(r.db.QueryRow(ctx, getUserByOAuthAccount, provider, providerUserID))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get user by oauth account")
	}
	return u, nil
}

func (r *UserRepository) CreateWithOAuthAccount(ctx context.Context, u *user.User, provider, providerUserID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return apperrors.Wrap(err, "failed to begin transaction")
	}

	if err := insertUser(ctx, tx, u); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if _, err := tx.Exec(ctx, createOAuthAccount, provider, providerUserID, toPgUUID(u.ID)); err != nil {
		_ = tx.Rollback(ctx)
		if isPgUniqueViolation(err) {
			return apperrors.ErrOAuthAccountTaken
		}
		return apperrors.Wrap(err, "failed to link oauth account")
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertUser(ctx context.Context, db execer, u *user.User) error {
	_, err := db.Exec(ctx, createUser,
		toPgUUID(u.ID),
		u.Username,
		toPgTextNullable(u.PasswordHash),
		string(u.Role),
		toPgTimestamptz(u.CreatedAt),
	)
	if err != nil {
		if isPgUniqueViolation(err) {
			return apperrors.ErrUserAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create user")
	}
	return nil
}

func scanPublicUser(row pgx.Row) (*user.User, error) {
	var (
		u         user.User
		id        pgtype.UUID
		role      string
		createdAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &u.Username, &role, &createdAt); err != nil {
		return nil, err
	}
	u.ID = fromPgUUID(id)
	u.Role = user.Role(role)
	u.CreatedAt = createdAt.Time
	return &u, nil
}
