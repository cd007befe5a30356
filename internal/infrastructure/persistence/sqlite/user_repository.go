package sqlite

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/ruziba3vich/toolshed/internal/domain/user"
	apperrors "github.com/ruziba3vich/toolshed/pkg/errors"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db.SQL}
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	return insertUser(ctx, r.db, u)
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u, err := scanPublicUser(r.db.QueryRowContext(ctx,
		`SELECT id, username, role, created_at FROM users WHERE id = ?`, id.String()))
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
		hash      sql.NullString
		role      string
		createdAt int64
	)

	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, role, created_at FROM users WHERE username = ?`, username,
	).Scan(&u.ID, &u.Username, &hash, &role, &createdAt)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get user by username")
	}

	if hash.Valid {
		u.PasswordHash = &hash.String
	}
	u.Role = user.Role(role)
	u.CreatedAt = fromUnix(createdAt)
	return &u, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id.String())
	if err != nil {
		return apperrors.Wrap(err, "failed to update password")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if n == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) GetByOAuthAccount(ctx context.Context, provider, providerUserID string) (*user.User, error) {
	u, err := scanPublicUser(r.db.QueryRowContext(ctx, `SELECT u.id, u.username, u.role, u.created_at
FROM oauth_accounts a
INNER JOIN users u ON u.id = a.user_id
WHERE a.provider = ? AND a.provider_user_id = ?`, provider, providerUserID))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get user by oauth account")
	}
	return u, nil
}

func (r *UserRepository) CreateWithOAuthAccount(ctx context.Context, u *user.User, provider, providerUserID string) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = insertUser(ctx, tx, u); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO oauth_accounts (provider, provider_user_id, user_id) VALUES (?, ?, ?)`,
		provider, providerUserID, u.ID.String(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrOAuthAccountTaken
		}
		return apperrors.Wrap(err, "failed to link oauth account")
	}

	if err = tx.Commit(); err != nil {
		return apperrors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

func insertUser(ctx context.Context, db execer, u *user.User) error {
	var hash sql.NullString
	if u.PasswordHash != nil {
		hash = sql.NullString{String: *u.PasswordHash, Valid: true}
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, role, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID.String(), u.Username, hash, string(u.Role), toUnix(u.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrUserAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create user")
	}
	return nil
}

func scanPublicUser(row *sql.Row) (*user.User, error) {
	var (
		u         user.User
		role      string
		createdAt int64
	)
	if err := row.Scan(&u.ID, &u.Username, &role, &createdAt); err != nil {
		return nil, err
	}
	u.Role = user.Role(role)
	u.CreatedAt = fromUnix(createdAt)
	return &u, nil
}
