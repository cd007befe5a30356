package middleware

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ruziba3vich/toolshed/internal/domain/oauth"
)

// SessionCookieName carries the raw session token.
const SessionCookieName = "auth-session"

// Cookies writes the session and OAuth cookies with consistent attributes.
// Secure is set in production only so local HTTP development works.
type Cookies struct {
	secure bool
	domain string
}

// NewCookies creates a cookie writer.
func NewCookies(secure bool, domain string) *Cookies {
	return &Cookies{secure: secure, domain: domain}
}

// SetSession sets the cookie for a freshly issued session.
func (k *Cookies) SetSession(c *gin.Context, token string, lifetime time.Duration) {
	k.set(c, &http.Cookie{
		Name:   SessionCookieName,
		Value:  token,
		MaxAge: int(lifetime.Seconds()),
	})
}

// RefreshSession rewrites the session cookie so it expires with the session.
func (k *Cookies) RefreshSession(c *gin.Context, token string, expiresAt time.Time) {
	k.set(c, &http.Cookie{
		Name:    SessionCookieName,
		Value:   token,
		Expires: expiresAt,
	})
}

// ClearSession deletes the session cookie.
func (k *Cookies) ClearSession(c *gin.Context) {
	k.clear(c, SessionCookieName)
}

// SetOAuthState stores the state for a provider login in progress.
func (k *Cookies) SetOAuthState(c *gin.Context, provider, state string) {
	k.set(c, &http.Cookie{
		Name:   oauth.StateCookieName(provider),
		Value:  state,
		MaxAge: int(oauth.StateTTL.Seconds()),
	})
}

// SetOAuthRedirect stores the post-login target. The value is escaped
// because gin unescapes cookies on read.
func (k *Cookies) SetOAuthRedirect(c *gin.Context, target string) {
	k.set(c, &http.Cookie{
		Name:   oauth.RedirectCookieName,
		Value:  url.QueryEscape(target),
		MaxAge: int(oauth.StateTTL.Seconds()),
	})
}

// TakeOAuth reads and deletes the state and redirect cookies for provider.
// Both are single use whatever the outcome of the callback.
func (k *Cookies) TakeOAuth(c *gin.Context, provider string) (state, redirect string) {
	state, _ = c.Cookie(oauth.StateCookieName(provider))
	redirect, _ = c.Cookie(oauth.RedirectCookieName)
	k.clear(c, oauth.StateCookieName(provider))
	k.clear(c, oauth.RedirectCookieName)
	return state, redirect
}

func (k *Cookies) clear(c *gin.Context, name string) {
	k.set(c, &http.Cookie{Name: name, MaxAge: -1})
}

func (k *Cookies) set(c *gin.Context, cookie *http.Cookie) {
	cookie.Path = "/"
	cookie.Domain = k.domain
	cookie.Secure = k.secure
	cookie.HttpOnly = true
	cookie.SameSite = http.SameSiteLaxMode
	http.SetCookie(c.Writer, cookie)
}
