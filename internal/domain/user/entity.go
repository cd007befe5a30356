package user

import (
	"time"

	"github.com/google/uuid"
)

// Role is a coarse authorization level.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents an account. PasswordHash is nil for accounts that only
// sign in through an external provider, and is never populated by lookups
// that serve request identity.
type User struct {
	ID           uuid.UUID
	Username     string
	PasswordHash *string
	Role         Role
	CreatedAt    time.Time
}

// NewUser creates a user with the default role. passwordHash may be empty
// for provider-only accounts.
func NewUser(username, passwordHash string) *User {
	u := &User{
		ID:        uuid.New(),
		Username:  username,
		Role:      RoleUser,
		CreatedAt: time.Now().UTC(),
	}
	if passwordHash != "" {
		u.PasswordHash = &passwordHash
	}
	return u
}

// HasPassword reports whether the account can sign in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// SetPassword replaces the password hash.
func (u *User) SetPassword(hash string) {
	u.PasswordHash = &hash
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Public is the API view of a user.
type Public struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// ToPublic strips credentials from the user.
func (u *User) ToPublic() Public {
	return Public{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
