package dto

import (
	"github.com/ruziba3vich/toolshed/internal/domain/session"
	"github.com/ruziba3vich/toolshed/internal/domain/user"
)

// RegisterRequest represents a user registration request. Field rules are
// enforced by the service so that failures carry field-level messages.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest represents a password login request.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ChangePasswordRequest replaces the caller's password. CurrentPassword is
// ignored for accounts that have none yet.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// AuthResult is the outcome of any flow that signs a user in. Token is the
// raw session token destined for the cookie.
type AuthResult struct {
	Token   string
	Session *session.Session
	User    *user.User
}

// AuthResponse describes the signed-in user and the session.
type AuthResponse struct {
	User    user.Public  `json:"user"`
	Session session.Info `json:"session"`
}

// NewAuthResponse builds the public view of r.
func NewAuthResponse(r *AuthResult) AuthResponse {
	return AuthResponse{
		User:    r.User.ToPublic(),
		Session: r.Session.ToInfo(),
	}
}

// MessageResponse is a generic acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}
