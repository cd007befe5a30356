package oauth

import "context"

// Provider is an external login provider.
type Provider interface {
	Name() string
	AuthCodeURL(state string, scopes []string) string
	// Exchange trades an authorization code for the caller's identity.
	Exchange(ctx context.Context, code string) (*Identity, error)
}
