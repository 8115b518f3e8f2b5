package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nodeflow-go/internal/domain/node"
	"github.com/nodeflow-go/internal/nodeconfig/app/service"
	"github.com/nodeflow-go/pkg/logger"
	authmw "github.com/nodeflow-go/pkg/middleware/auth"
	"github.com/nodeflow-go/pkg/web"
)

// NodeAccess reports whether a node belongs to one of the user's workflows.
type NodeAccess interface {
	Node(ctx context.Context, nodeID, userID int64) error
	NodeIDs(ctx context.Context, userID int64) (map[int64]bool, error)
}

type NodeConfigHandlers struct {
	service *service.NodeConfigService
	access  NodeAccess
	logger  logger.Logger
}

func NewNodeConfigHandlers(service *service.NodeConfigService, access NodeAccess, logger logger.Logger) *NodeConfigHandlers {
	return &NodeConfigHandlers{
		service: service,
		access:  access,
		logger:  logger,
	}
}

func (h *NodeConfigHandlers) allow(c *gin.Context, nodeID int64) bool {
	userID, _ := authmw.GetUserID(c)
	if err := h.access.Node(c.Request.Context(), nodeID, userID); err != nil {
		web.Error(c, h.logger, err)
		return false
	}
	return true
}

func (h *NodeConfigHandlers) ownedParam(c *gin.Context) (int64, bool) {
	nodeID, ok := web.ParamID(c, "id")
	if !ok || !h.allow(c, nodeID) {
		return 0, false
	}
	return nodeID, true
}

// visible keeps the configurations whose node the caller can see.
func visible[T any](c *gin.Context, h *NodeConfigHandlers, all []*T, nodeID func(*T) int64) ([]*T, bool) {
	userID, _ := authmw.GetUserID(c)
	owned, err := h.access.NodeIDs(c.Request.Context(), userID)
	if err != nil {
		web.Error(c, h.logger, err)
		return nil, false
	}
	out := make([]*T, 0, len(all))
	for _, cfg := range all {
		if owned[nodeID(cfg)] {
			out = append(out, cfg)
		}
	}
	return out, true
}

// ========== Input nodes ==========

func (h *NodeConfigHandlers) CreateInputNode(c *gin.Context) {
	var req service.CreateInputNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadRequest(c, err.Error())
		return
	}
	if !h.allow(c, req.NodeID) {
		return
	}

	cfg, err := h.service.CreateInputNode(c.Request.Context(), req)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, cfg)
}

func (h *NodeConfigHandlers) ListInputNodes(c *gin.Context) {
	all, err := h.service.ListInputNodes(c.Request.Context())
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	out, ok := visible(c, h, all, func(cfg *node.InputNode) int64 { return cfg.NodeID })
	if !ok {
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *NodeConfigHandlers) GetInputNode(c *gin.Context) {
	nodeID, ok := h.ownedParam(c)
	if !ok {
		return
	}
	cfg, err := h.service.GetInputNode(c.Request.Context(), nodeID)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *NodeConfigHandlers) UpdateInputNode(c *gin.Context) {
	nodeID, ok := h.ownedParam(c)
	if !ok {
		return
	}
	var req service.UpdateInputNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadRequest(c, err.Error())
		return
	}
	cfg, err := h.service.UpdateInputNode(c.Request.Context(), nodeID, req)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *NodeConfigHandlers) DeleteInputNode(c *gin.Context) {
	nodeID, ok := h.ownedParam(c)
	if !ok {
		return
	}
	if err := h.service.DeleteInputNode(c.Request.Context(), nodeID); err != nil {
		web.Error(c, h.logger, err)
		return
	}
	web.Deleted(c, "Input node")
}

// ========== LLM nodes ==========

func (h *NodeConfigHandlers) CreateLLMNode(c *gin.Context) {
	var req service.CreateLLMNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadRequest(c, err.Error())
		return
	}
	if !h.allow(c, req.NodeID) {
		return
	}

	cfg, err := h.service.CreateLLMNode(c.Request.Context(), req)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, cfg)
}

func (h *NodeConfigHandlers) ListLLMNodes(c *gin.Context) {
	all, err := h.service.ListLLMNodes(c.Request.Context())
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	out, ok := visible(c, h, all, func(cfg *node.LLMNode) int64 { return cfg.NodeID })
	if !ok {
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *NodeConfigHandlers) GetLLMNode(c *gin.Context) {
	nodeID, ok := h.ownedParam(c)
	if !ok {
		return
	}
	cfg, err := h.service.GetLLMNode(c.Request.Context(), nodeID)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *NodeConfigHandlers) UpdateLLMNode(c *gin.Context) {
	nodeID, ok := h.ownedParam(c)
	if !ok {
		return
	}
	var req service.UpdateLLMNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadRequest(c, err.Error())
		return
	}
	cfg, err := h.service.UpdateLLMNode(c.Request.Context(), nodeID, req)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *NodeConfigHandlers) DeleteLLMNode(c *gin.Context) {
	nodeID, ok := h.ownedParam(c)
	if !ok {
		return
	}
	if err := h.service.DeleteLLMNode(c.Request.Context(), nodeID); err != nil {
		web.Error(c, h.logger, err)
		return
	}
	web.Deleted(c, "LLM node")
}

// ========== Output nodes ==========

func (h *NodeConfigHandlers) CreateOutputNode(c *gin.Context) {
	var req service.CreateOutputNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadRequest(c, err.Error())
		return
	}
	if !h.allow(c, req.NodeID) {
		return
	}

	cfg, err := h.service.CreateOutputNode(c.Request.Context(), req)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, cfg)
}

func (h *NodeConfigHandlers) ListOutputNodes(c *gin.Context) {
	all, err := h.service.ListOutputNodes(c.Request.Context())
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	out, ok := visible(c, h, all, func(cfg *node.OutputNode) int64 { return cfg.NodeID })
	if !ok {
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *NodeConfigHandlers) GetOutputNode(c *gin.Context) {
	nodeID, ok := h.ownedParam(c)
	if !ok {
		return
	}
	cfg, err := h.service.GetOutputNode(c.Request.Context(), nodeID)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *NodeConfigHandlers) UpdateOutputNode(c *gin.Context) {
	nodeID, ok := h.ownedParam(c)
	if !ok {
		return
	}
	var req service.UpdateOutputNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadRequest(c, err.Error())
		return
	}
	cfg, err := h.service.UpdateOutputNode(c.Request.Context(), nodeID, req)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *NodeConfigHandlers) DeleteOutputNode(c *gin.Context) {
	nodeID, ok := h.ownedParam(c)
	if !ok {
		return
	}
	if err := h.service.DeleteOutputNode(c.Request.Context(), nodeID); err != nil {
		web.Error(c, h.logger, err)
		return
	}
	web.Deleted(c, "Output node")
}
