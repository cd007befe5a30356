package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ruziba3vich/toolshed/internal/domain/user"
)

// Repository handles session storage.
type Repository interface {
	Create(ctx context.Context, session *Session) error

	// GetWithUser loads a session joined with the public fields of its
	// owner. Returns ErrSessionNotFound when no row matches.
	GetWithUser(ctx context.Context, id string) (*Session, *user.User, error)

	UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error

	// Delete removes one session. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error

	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
}
