package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nodeflow-go/internal/provider/app/service"
	"github.com/nodeflow-go/pkg/logger"
	authmw "github.com/nodeflow-go/pkg/middleware/auth"
	"github.com/nodeflow-go/pkg/web"
)

// ProviderHandlers exposes the caller's LLM providers. Providers of other
// users answer 404.
type ProviderHandlers struct {
	service *service.ProviderService
	logger  logger.Logger
}

func NewProviderHandlers(service *service.ProviderService, logger logger.Logger) *ProviderHandlers {
	return &ProviderHandlers{
		service: service,
		logger:  logger,
	}
}

func (h *ProviderHandlers) CreateProvider(c *gin.Context) {
	var req service.CreateProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadRequest(c, err.Error())
		return
	}
	userID, _ := authmw.GetUserID(c)

	p, err := h.service.Create(c.Request.Context(), userID, req)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *ProviderHandlers) ListProviders(c *gin.Context) {
	userID, _ := authmw.GetUserID(c)
	providers, err := h.service.List(c.Request.Context(), &userID)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, providers)
}

func (h *ProviderHandlers) GetProvider(c *gin.Context) {
	id, ok := h.owned(c)
	if !ok {
		return
	}
	p, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProviderHandlers) UpdateProvider(c *gin.Context) {
	id, ok := h.owned(c)
	if !ok {
		return
	}
	var req service.UpdateProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadRequest(c, err.Error())
		return
	}

	p, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProviderHandlers) DeleteProvider(c *gin.Context) {
	id, ok := h.owned(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		web.Error(c, h.logger, err)
		return
	}
	web.Deleted(c, "LLM provider")
}

func (h *ProviderHandlers) owned(c *gin.Context) (int64, bool) {
	id, ok := web.ParamID(c, "id")
	if !ok {
		return 0, false
	}
	userID, _ := authmw.GetUserID(c)
	if _, err := h.service.GetOwned(c.Request.Context(), id, userID); err != nil {
		web.Error(c, h.logger, err)
		return 0, false
	}
	return id, true
}
