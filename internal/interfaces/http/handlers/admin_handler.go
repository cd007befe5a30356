package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ruziba3vich/toolshed/internal/application/dto"
	"github.com/ruziba3vich/toolshed/internal/application/services"
	"github.com/ruziba3vich/toolshed/internal/interfaces/http/middleware"
	"github.com/ruziba3vich/toolshed/pkg/logger"
)

// AdminHandler serves operator endpoints.
type AdminHandler struct {
	sessionService *services.SessionService
}

func NewAdminHandler(sessionService *services.SessionService) *AdminHandler {
	return &AdminHandler{sessionService: sessionService}
}

// InvalidateUserSessions signs a user out everywhere.
// DELETE /admin/users/:user_id/sessions
func (h *AdminHandler) InvalidateUserSessions(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		badRequest(c, "invalid user_id")
		return
	}

	ctx := c.Request.Context()
	if err := h.sessionService.InvalidateUserSessions(ctx, userID); err != nil {
		handleAuthError(c, err)
		return
	}

	admin := middleware.CurrentUser(c)
	logger.FromContext(ctx).Info("user sessions invalidated",
		logger.UserID(userID.String()),
		logger.AdminID(admin.ID.String()),
	)
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "all sessions invalidated"})
}
