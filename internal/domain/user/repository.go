package user

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for user persistence operations.
// This interface is implemented by the infrastructure layer.
type Repository interface {
	// Create persists a new user. Returns ErrUserAlreadyExists when the
	// username is taken.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user without the password hash.
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// GetByUsername retrieves a user including the password hash.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error

	// GetByOAuthAccount finds the user linked to a provider account.
	GetByOAuthAccount(ctx context.Context, provider, providerUserID string) (*User, error)

	// CreateWithOAuthAccount creates a user and links the provider account
	// in one transaction.
	CreateWithOAuthAccount(ctx context.Context, user *User, provider, providerUserID string) error
}
