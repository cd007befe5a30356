package oauth

import (
	"strings"
	"time"
)

// StateTTL bounds how long a login started at a provider may take.
const StateTTL = 10 * time.Minute

// RedirectCookieName holds the post-login target across the provider round trip.
const RedirectCookieName = "oauth_redirect"

// StateCookieName returns the cookie that carries the state for provider.
func StateCookieName(provider string) string {
	return provider + "_oauth_state"
}

// AuthRequest is the outcome of starting a provider login.
type AuthRequest struct {
	Provider string
	URL      string
	State    string
	// RedirectTarget is empty when the caller supplied none or an unsafe one.
	RedirectTarget string
}

// Identity is a provider profile normalized to what account linking needs.
type Identity struct {
	Provider       string
	ProviderUserID string
	Username       string
}

// ValidateRedirectTarget reports whether target is a same-site path that
// is safe to redirect to after login.
func ValidateRedirectTarget(target string) bool {
	if !strings.HasPrefix(target, "/") {
		return false
	}
	if strings.HasPrefix(target, "//") {
		return false
	}
	if strings.Contains(target, "://") || strings.Contains(target, `\`) {
		return false
	}
	return true
}
