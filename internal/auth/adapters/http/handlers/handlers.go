package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nodeflow-go/internal/auth/app/service"
	"github.com/nodeflow-go/pkg/logger"
	authmw "github.com/nodeflow-go/pkg/middleware/auth"
	"github.com/nodeflow-go/pkg/web"
)

type AuthHandlers struct {
	service *service.AuthService
	logger  logger.Logger
}

func NewAuthHandlers(service *service.AuthService, logger logger.Logger) *AuthHandlers {
	return &AuthHandlers{
		service: service,
		logger:  logger,
	}
}

func (h *AuthHandlers) Register(c *gin.Context) {
	var creds service.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		web.BadRequest(c, err.Error())
		return
	}

	u, err := h.service.Register(c.Request.Context(), creds)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *AuthHandlers) Login(c *gin.Context) {
	var creds service.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		web.BadRequest(c, err.Error())
		return
	}

	token, err := h.service.Login(c.Request.Context(), creds)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, token)
}

// Logout runs behind the bearer middleware and revokes the presented token.
func (h *AuthHandlers) Logout(c *gin.Context) {
	token, _ := authmw.GetToken(c)
	if err := h.service.Logout(c.Request.Context(), token); err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Logged out"})
}
