package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ruziba3vich/toolshed/internal/application/dto"
	"github.com/ruziba3vich/toolshed/internal/application/services"
	"github.com/ruziba3vich/toolshed/internal/domain/oauth"
	"github.com/ruziba3vich/toolshed/internal/interfaces/http/middleware"
)

// OAuthHandler handles sign-in through external providers.
type OAuthHandler struct {
	oauthService *services.OAuthService
	cookies      *middleware.Cookies
	lifetime     time.Duration
}

// NewOAuthHandler creates a new OAuth handler.
func NewOAuthHandler(oauthService *services.OAuthService, cookies *middleware.Cookies, lifetime time.Duration) *OAuthHandler {
	return &OAuthHandler{
		oauthService: oauthService,
		cookies:      cookies,
		lifetime:     lifetime,
	}
}

// Login redirects to the provider's consent page.
// GET /login/:provider?redirect=/path
func (h *OAuthHandler) Login(c *gin.Context) {
	req, err := h.oauthService.Begin(c.Param("provider"), c.Query("redirect"))
	if err != nil {
		handleAuthError(c, err)
		return
	}

	h.cookies.SetOAuthState(c, req.Provider, req.State)
	if req.RedirectTarget != "" {
		h.cookies.SetOAuthRedirect(c, req.RedirectTarget)
	}

	c.Redirect(http.StatusFound, req.URL)
}

// Callback completes a provider login and redirects to the stored target.
// GET /login/:provider/callback
func (h *OAuthHandler) Callback(c *gin.Context) {
	provider := c.Param("provider")
	storedState, redirect := h.cookies.TakeOAuth(c, provider)

	res, err := h.oauthService.Complete(c.Request.Context(), &dto.OAuthCallback{
		Provider:    provider,
		State:       c.Query("state"),
		StoredState: storedState,
		Code:        c.Query("code"),
	})
	if err != nil {
		handleAuthError(c, err)
		return
	}

	h.cookies.SetSession(c, res.Token, h.lifetime)

	// The cookie is client-controlled, so it is checked again.
	if !oauth.ValidateRedirectTarget(redirect) {
		redirect = "/"
	}
	c.Redirect(http.StatusFound, redirect)
}
