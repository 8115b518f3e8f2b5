package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nodeflow-go/internal/domain/workflow"
	"github.com/nodeflow-go/internal/workflow/app/service"
	"github.com/nodeflow-go/pkg/apperrors"
	"github.com/nodeflow-go/pkg/logger"
	authmw "github.com/nodeflow-go/pkg/middleware/auth"
	"github.com/nodeflow-go/pkg/web"
)

// WorkflowHandlers serves workflows and their graph: nodes and edges. Every
// route requires an authenticated caller and only exposes the caller's own
// workflows.
type WorkflowHandlers struct {
	workflows *service.WorkflowService
	nodes     *service.NodeService
	edges     *service.EdgeService
	access    *service.Access
	logger    logger.Logger
}

func NewWorkflowHandlers(
	workflows *service.WorkflowService,
	nodes *service.NodeService,
	edges *service.EdgeService,
	access *service.Access,
	logger logger.Logger,
) *WorkflowHandlers {
	return &WorkflowHandlers{
		workflows: workflows,
		nodes:     nodes,
		edges:     edges,
		access:    access,
		logger:    logger,
	}
}

type CreateWorkflowRequest struct {
	Name string `json:"name" binding:"required"`
}

type CreateEdgeRequest struct {
	WorkflowID   int64 `json:"workflow_id" binding:"required,gt=0"`
	SourceNodeID int64 `json:"source_node_id" binding:"required,gt=0"`
	TargetNodeID int64 `json:"target_node_id" binding:"required,gt=0"`
}

func callerID(c *gin.Context) int64 {
	id, _ := authmw.GetUserID(c)
	return id
}

// ========== Workflows ==========

func (h *WorkflowHandlers) CreateWorkflow(c *gin.Context) {
	var req CreateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadRequest(c, err.Error())
		return
	}

	wf, err := h.workflows.Create(c.Request.Context(), callerID(c), req.Name)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, wf)
}

func (h *WorkflowHandlers) ListWorkflows(c *gin.Context) {
	ownerID := callerID(c)
	workflows, err := h.workflows.List(c.Request.Context(), &ownerID)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, workflows)
}

func (h *WorkflowHandlers) GetWorkflow(c *gin.Context) {
	id, ok := web.ParamID(c, "id")
	if !ok {
		return
	}

	wf, err := h.workflows.GetOwned(c.Request.Context(), id, callerID(c))
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, wf)
}

func (h *WorkflowHandlers) UpdateWorkflow(c *gin.Context) {
	id, ok := web.ParamID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadRequest(c, err.Error())
		return
	}
	if err := h.access.Workflow(c.Request.Context(), id, callerID(c)); err != nil {
		web.Error(c, h.logger, err)
		return
	}

	wf, err := h.workflows.Update(c.Request.Context(), id, req)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, wf)
}

func (h *WorkflowHandlers) DeleteWorkflow(c *gin.Context) {
	id, ok := web.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.access.Workflow(c.Request.Context(), id, callerID(c)); err != nil {
		web.Error(c, h.logger, err)
		return
	}

	if err := h.workflows.Delete(c.Request.Context(), id); err != nil {
		web.Error(c, h.logger, err)
		return
	}
	web.Deleted(c, "Workflow")
}

// ========== Nodes ==========

func (h *WorkflowHandlers) CreateNode(c *gin.Context) {
	var req service.CreateNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadRequest(c, err.Error())
		return
	}
	if err := h.access.Workflow(c.Request.Context(), req.WorkflowID, callerID(c)); err != nil {
		web.Error(c, h.logger, err)
		return
	}

	n, err := h.nodes.Create(c.Request.Context(), req)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, n)
}

// ListNodes returns the nodes of one workflow when workflow_id is given, or
// of all the caller's workflows otherwise.
func (h *WorkflowHandlers) ListNodes(c *gin.Context) {
	workflowIDs, ok := h.scope(c)
	if !ok {
		return
	}

	nodes := make([]*workflow.Node, 0)
	for _, workflowID := range workflowIDs {
		found, err := h.nodes.List(c.Request.Context(), &workflowID)
		if err != nil {
			web.Error(c, h.logger, err)
			return
		}
		nodes = append(nodes, found...)
	}
	c.JSON(http.StatusOK, nodes)
}

func (h *WorkflowHandlers) GetNode(c *gin.Context) {
	id, ok := h.ownedNode(c)
	if !ok {
		return
	}

	n, err := h.nodes.Get(c.Request.Context(), id)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h *WorkflowHandlers) UpdateNode(c *gin.Context) {
	id, ok := h.ownedNode(c)
	if !ok {
		return
	}
	var req service.UpdateNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadRequest(c, err.Error())
		return
	}

	n, err := h.nodes.Update(c.Request.Context(), id, req)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h *WorkflowHandlers) DeleteNode(c *gin.Context) {
	id, ok := h.ownedNode(c)
	if !ok {
		return
	}

	if err := h.nodes.Delete(c.Request.Context(), id); err != nil {
		web.Error(c, h.logger, err)
		return
	}
	web.Deleted(c, "Node")
}

// ========== Edges ==========

func (h *WorkflowHandlers) CreateEdge(c *gin.Context) {
	var req CreateEdgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadRequest(c, err.Error())
		return
	}
	if err := h.access.Workflow(c.Request.Context(), req.WorkflowID, callerID(c)); err != nil {
		web.Error(c, h.logger, err)
		return
	}

	edge, err := h.edges.Create(c.Request.Context(), req.WorkflowID, req.SourceNodeID, req.TargetNodeID)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, edge)
}

func (h *WorkflowHandlers) ListEdges(c *gin.Context) {
	workflowIDs, ok := h.scope(c)
	if !ok {
		return
	}

	edges := make([]*workflow.Edge, 0)
	for _, workflowID := range workflowIDs {
		found, err := h.edges.List(c.Request.Context(), &workflowID)
		if err != nil {
			web.Error(c, h.logger, err)
			return
		}
		edges = append(edges, found...)
	}
	c.JSON(http.StatusOK, edges)
}

func (h *WorkflowHandlers) GetEdge(c *gin.Context) {
	id, ok := h.ownedEdge(c)
	if !ok {
		return
	}

	edge, err := h.edges.Get(c.Request.Context(), id)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, edge)
}

func (h *WorkflowHandlers) UpdateEdge(c *gin.Context) {
	id, ok := h.ownedEdge(c)
	if !ok {
		return
	}
	var req service.UpdateEdgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadRequest(c, err.Error())
		return
	}

	edge, err := h.edges.Update(c.Request.Context(), id, req)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, edge)
}

func (h *WorkflowHandlers) DeleteEdge(c *gin.Context) {
	id, ok := h.ownedEdge(c)
	if !ok {
		return
	}

	if err := h.edges.Delete(c.Request.Context(), id); err != nil {
		web.Error(c, h.logger, err)
		return
	}
	web.Deleted(c, "Edge")
}

// scope resolves the optional workflow_id filter into the workflows to read.
func (h *WorkflowHandlers) scope(c *gin.Context) ([]int64, bool) {
	workflowID, ok := web.QueryID(c, "workflow_id")
	if !ok {
		return nil, false
	}

	if workflowID != nil {
		if err := h.access.Workflow(c.Request.Context(), *workflowID, callerID(c)); err != nil {
			web.Error(c, h.logger, err)
			return nil, false
		}
		return []int64{*workflowID}, true
	}

	ids, err := h.access.WorkflowIDs(c.Request.Context(), callerID(c))
	if err != nil {
		web.Error(c, h.logger, err)
		return nil, false
	}
	return ids, true
}

func (h *WorkflowHandlers) ownedNode(c *gin.Context) (int64, bool) {
	id, ok := web.ParamID(c, "id")
	if !ok {
		return 0, false
	}
	if err := h.access.Node(c.Request.Context(), id, callerID(c)); err != nil {
		web.Error(c, h.logger, err)
		return 0, false
	}
	return id, true
}

func (h *WorkflowHandlers) ownedEdge(c *gin.Context) (int64, bool) {
	id, ok := web.ParamID(c, "id")
	if !ok {
		return 0, false
	}
	edge, err := h.edges.Get(c.Request.Context(), id)
	if err != nil {
		web.Error(c, h.logger, err)
		return 0, false
	}
	if err := h.access.Workflow(c.Request.Context(), edge.WorkflowID, callerID(c)); err != nil {
		if apperrors.IsNotFound(err) {
			err = apperrors.ErrEdgeNotFound
		}
		web.Error(c, h.logger, err)
		return 0, false
	}
	return id, true
}
