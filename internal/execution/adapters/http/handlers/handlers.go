package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nodeflow-go/internal/domain/workflow"
	"github.com/nodeflow-go/internal/execution/app/service"
	"github.com/nodeflow-go/pkg/apperrors"
	"github.com/nodeflow-go/pkg/logger"
	authmw "github.com/nodeflow-go/pkg/middleware/auth"
	"github.com/nodeflow-go/pkg/web"
)

type WorkflowAccess interface {
	Workflow(ctx context.Context, workflowID, userID int64) error
	WorkflowIDs(ctx context.Context, userID int64) ([]int64, error)
}

type ExecutionHandlers struct {
	service *service.ExecutionService
	access  WorkflowAccess
	logger  logger.Logger
}

func NewExecutionHandlers(service *service.ExecutionService, access WorkflowAccess, logger logger.Logger) *ExecutionHandlers {
	return &ExecutionHandlers{
		service: service,
		access:  access,
		logger:  logger,
	}
}

func (h *ExecutionHandlers) CreateExecution(c *gin.Context) {
	var req service.CreateExecutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadRequest(c, err.Error())
		return
	}
	userID, _ := authmw.GetUserID(c)
	if err := h.access.Workflow(c.Request.Context(), req.WorkflowID, userID); err != nil {
		web.Error(c, h.logger, err)
		return
	}

	exec, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, exec)
}

// ListExecutions returns the executions of one workflow when workflow_id is
// given, or of all the caller's workflows otherwise.
func (h *ExecutionHandlers) ListExecutions(c *gin.Context) {
	workflowID, ok := web.QueryID(c, "workflow_id")
	if !ok {
		return
	}
	userID, _ := authmw.GetUserID(c)

	var workflowIDs []int64
	if workflowID != nil {
		if err := h.access.Workflow(c.Request.Context(), *workflowID, userID); err != nil {
			web.Error(c, h.logger, err)
			return
		}
		workflowIDs = []int64{*workflowID}
	} else {
		ids, err := h.access.WorkflowIDs(c.Request.Context(), userID)
		if err != nil {
			web.Error(c, h.logger, err)
			return
		}
		workflowIDs = ids
	}

	executions := make([]*workflow.Execution, 0)
	for _, id := range workflowIDs {
		found, err := h.service.List(c.Request.Context(), &id)
		if err != nil {
			web.Error(c, h.logger, err)
			return
		}
		executions = append(executions, found...)
	}
	c.JSON(http.StatusOK, executions)
}

func (h *ExecutionHandlers) GetExecution(c *gin.Context) {
	exec, ok := h.owned(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, exec)
}

func (h *ExecutionHandlers) UpdateExecution(c *gin.Context) {
	current, ok := h.owned(c)
	if !ok {
		return
	}
	var req service.UpdateExecutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadRequest(c, err.Error())
		return
	}

	exec, err := h.service.Update(c.Request.Context(), current.ID, req)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, exec)
}

func (h *ExecutionHandlers) DeleteExecution(c *gin.Context) {
	current, ok := h.owned(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), current.ID); err != nil {
		web.Error(c, h.logger, err)
		return
	}
	web.Deleted(c, "Execution")
}

// owned loads the execution named by the path and hides it unless its
// workflow belongs to the caller.
func (h *ExecutionHandlers) owned(c *gin.Context) (*workflow.Execution, bool) {
	id, ok := web.ParamID(c, "id")
	if !ok {
		return nil, false
	}
	exec, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		web.Error(c, h.logger, err)
		return nil, false
	}
	userID, _ := authmw.GetUserID(c)
	if err := h.access.Workflow(c.Request.Context(), exec.WorkflowID, userID); err != nil {
		if apperrors.IsNotFound(err) {
			err = apperrors.ErrExecutionNotFound
		}
		web.Error(c, h.logger, err)
		return nil, false
	}
	return exec, true
}
