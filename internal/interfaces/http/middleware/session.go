package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ruziba3vich/toolshed/internal/domain/session"
	"github.com/ruziba3vich/toolshed/internal/domain/user"
	"github.com/ruziba3vich/toolshed/pkg/logger"
)

// ContextKey is a type for context keys.
type ContextKey string

const (
	// ContextKeyUser is the gin context key for the signed-in user.
	ContextKeyUser ContextKey = "user"
	// ContextKeySession is the gin context key for the current session.
	ContextKeySession ContextKey = "session"
)

// SessionValidator resolves a raw session token.
type SessionValidator interface {
	ValidateSessionToken(ctx context.Context, token string) (*session.Session, *user.User, error)
}

// SessionMiddleware attaches the caller's identity to each request.
type SessionMiddleware struct {
	sessions SessionValidator
	cookies  *Cookies
}

// NewSessionMiddleware creates a new session middleware.
func NewSessionMiddleware(sessions SessionValidator, cookies *Cookies) *SessionMiddleware {
	return &SessionMiddleware{
		sessions: sessions,
		cookies:  cookies,
	}
}

// Resolve runs on every request. Without a session cookie the request is
// anonymous and the store is not touched. A cookie that no longer maps to
// a live session is cleared. A live session refreshes the cookie expiry so
// the browser tracks rolling renewal.
func (m *SessionMiddleware) Resolve() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookieName)
		if err != nil || token == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		sess, u, err := m.sessions.ValidateSessionToken(ctx, token)
		if err != nil {
			logger.FromContext(ctx).Error("session validation failed", logger.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":             "server_error",
				"error_description": "internal server error",
			})
			return
		}

		if sess == nil {
			m.cookies.ClearSession(c)
			c.Next()
			return
		}

		m.cookies.RefreshSession(c, token, sess.ExpiresAt)
		c.Set(string(ContextKeyUser), u)
		c.Set(string(ContextKeySession), sess)
		c.Request = c.Request.WithContext(WithIdentity(ctx, u, sess))

		c.Next()
	}
}

// RequireAuth rejects anonymous requests. It only reads what Resolve attached.
func (m *SessionMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":             "unauthorized",
				"error_description": "authentication required",
			})
			return
		}
		c.Next()
	}
}

// RequireRole rejects callers without role. It implies RequireAuth.
func (m *SessionMiddleware) RequireRole(role user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":             "unauthorized",
				"error_description": "authentication required",
			})
			return
		}
		if u.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":             "forbidden",
				"error_description": "access denied",
			})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the signed-in user, or nil.
func CurrentUser(c *gin.Context) *user.User {
	if v, exists := c.Get(string(ContextKeyUser)); exists {
		if u, ok := v.(*user.User); ok {
			return u
		}
	}
	return nil
}

// CurrentSession returns the current session, or nil.
func CurrentSession(c *gin.Context) *session.Session {
	if v, exists := c.Get(string(ContextKeySession)); exists {
		if s, ok := v.(*session.Session); ok {
			return s
		}
	}
	return nil
}

type identityKey struct{}

type identity struct {
	user    *user.User
	session *session.Session
}

// WithIdentity returns a context carrying u and sess.
func WithIdentity(ctx context.Context, u *user.User, sess *session.Session) context.Context {
	return context.WithValue(ctx, identityKey{}, identity{user: u, session: sess})
}

// UserFromContext returns the user attached by Resolve, or nil.
func UserFromContext(ctx context.Context) *user.User {
	if id, ok := ctx.Value(identityKey{}).(identity); ok {
		return id.user
	}
	return nil
}

// SessionFromContext returns the session attached by Resolve, or nil.
func SessionFromContext(ctx context.Context) *session.Session {
	if id, ok := ctx.Value(identityKey{}).(identity); ok {
		return id.session
	}
	return nil
}

// GetClientIP returns the client address. Forwarding headers count only
// when the engine trusts the peer they came from.
func GetClientIP(c *gin.Context) string {
	return c.ClientIP()
}
