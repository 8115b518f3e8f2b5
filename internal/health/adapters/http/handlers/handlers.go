package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nodeflow-go/internal/health/app/service"
)

type HealthHandlers struct {
	service *service.HealthService
}

func NewHealthHandlers(service *service.HealthService) *HealthHandlers {
	return &HealthHandlers{service: service}
}

func (h *HealthHandlers) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": true})
}

// Readiness always answers 200; the body reports each dependency.
func (h *HealthHandlers) Readiness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"services": h.service.Readiness(c.Request.Context())})
}
