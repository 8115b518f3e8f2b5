package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nodeflow-go/internal/user/app/service"
	"github.com/nodeflow-go/pkg/logger"
	authmw "github.com/nodeflow-go/pkg/middleware/auth"
	"github.com/nodeflow-go/pkg/web"
)

type UserHandlers struct {
	service *service.UserService
	logger  logger.Logger
}

func NewUserHandlers(service *service.UserService, logger logger.Logger) *UserHandlers {
	return &UserHandlers{
		service: service,
		logger:  logger,
	}
}

// ========== User Handlers ==========

func (h *UserHandlers) GetCurrentUser(c *gin.Context) {
	userID, _ := authmw.GetUserID(c)

	u, err := h.service.GetUser(c.Request.Context(), userID)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// DeleteCurrentUser removes the caller together with everything they own.
func (h *UserHandlers) DeleteCurrentUser(c *gin.Context) {
	userID, _ := authmw.GetUserID(c)

	if err := h.service.DeleteUser(c.Request.Context(), userID); err != nil {
		web.Error(c, h.logger, err)
		return
	}
	web.Deleted(c, "User")
}
