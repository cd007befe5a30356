package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ruziba3vich/toolshed/pkg/errors"
	"github.com/ruziba3vich/toolshed/pkg/logger"
)

// handleAuthError converts domain errors to HTTP responses.
func handleAuthError(c *gin.Context, err error) {
	var fieldErr *errors.ValidationError
	var fieldErrs *errors.ValidationErrors

	switch {
	case errors.As(err, &fieldErrs):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "validation failed",
			"errors":            fieldErrs.Errors,
		})
	case errors.As(err, &fieldErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": fieldErr.Error(),
			"errors":            []errors.ValidationError{*fieldErr},
		})
	case errors.Is(err, errors.ErrUserAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{
			"error":             "user_exists",
			"error_description": "username is already taken",
		})
	case errors.Is(err, errors.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":             "invalid_credentials",
			"error_description": "invalid username or password",
		})
	case errors.Is(err, errors.ErrTooManyAttempts):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":             "too_many_attempts",
			"error_description": "too many failed logins, try again later",
		})
	case errors.Is(err, errors.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":             "user_not_found",
			"error_description": "user not found",
		})
	case errors.Is(err, errors.ErrUnknownProvider):
		c.JSON(http.StatusNotFound, gin.H{
			"error":             "unknown_provider",
			"error_description": "unknown login provider",
		})
	case errors.Is(err, errors.ErrInvalidState):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_state",
			"error_description": "login request expired or was tampered with",
		})
	case errors.Is(err, errors.ErrProviderExchange):
		logger.FromContext(c.Request.Context()).Warn("provider login failed", logger.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "provider_error",
			"error_description": "login with provider failed",
		})
	case errors.Is(err, errors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":             "unauthorized",
			"error_description": "authentication required",
		})
	case errors.Is(err, errors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{
			"error":             "forbidden",
			"error_description": "access denied",
		})
	default:
		logger.FromContext(c.Request.Context()).Error("request failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":             "server_error",
			"error_description": "internal server error",
		})
	}
}

func badRequest(c *gin.Context, description string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":             "invalid_request",
		"error_description": description,
	})
}
