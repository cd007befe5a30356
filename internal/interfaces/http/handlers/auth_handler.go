package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ruziba3vich/toolshed/internal/application/dto"
	"github.com/ruziba3vich/toolshed/internal/application/services"
	"github.com/ruziba3vich/toolshed/internal/interfaces/http/middleware"
	"github.com/ruziba3vich/toolshed/pkg/errors"
)

// AuthHandler handles password account endpoints.
type AuthHandler struct {
	authService *services.AuthService
	cookies     *middleware.Cookies
	lifetime    time.Duration
}

// NewAuthHandler creates a new auth handler. lifetime is the session
// lifetime used for the cookie Max-Age.
func NewAuthHandler(authService *services.AuthService, cookies *middleware.Cookies, lifetime time.Duration) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookies:     cookies,
		lifetime:    lifetime,
	}
}

// Register handles user registration.
// POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		handleAuthError(c, err)
		return
	}

	h.cookies.SetSession(c, res.Token, h.lifetime)
	c.JSON(http.StatusCreated, dto.NewAuthResponse(res))
}

// Login handles password login.
// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		handleAuthError(c, err)
		return
	}

	h.cookies.SetSession(c, res.Token, h.lifetime)
	c.JSON(http.StatusOK, dto.NewAuthResponse(res))
}

// Logout ends the current session.
// POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	if sess == nil {
		handleAuthError(c, errors.ErrUnauthorized)
		return
	}

	if err := h.authService.Logout(c.Request.Context(), sess.ID); err != nil {
		handleAuthError(c, err)
		return
	}

	h.cookies.ClearSession(c)
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "logged out successfully"})
}

// Me returns the signed-in user and session.
// GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	u := middleware.CurrentUser(c)
	sess := middleware.CurrentSession(c)
	if u == nil || sess == nil {
		handleAuthError(c, errors.ErrUnauthorized)
		return
	}

	c.JSON(http.StatusOK, dto.AuthResponse{
		User:    u.ToPublic(),
		Session: sess.ToInfo(),
	})
}

// ChangePassword sets a new password and replaces every session of the
// account with a fresh one.
// POST /auth/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	u := middleware.CurrentUser(c)
	if u == nil {
		handleAuthError(c, errors.ErrUnauthorized)
		return
	}

	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := h.authService.ChangePassword(c.Request.Context(), u, &req)
	if err != nil {
		handleAuthError(c, err)
		return
	}

	h.cookies.SetSession(c, res.Token, h.lifetime)
	c.JSON(http.StatusOK, dto.NewAuthResponse(res))
}
