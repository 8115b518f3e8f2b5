// Package service records the lifecycle of workflow executions. Nothing here
// runs a graph: status, output and timing are written by the caller.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/nodeflow-go/internal/domain/workflow"
	"github.com/nodeflow-go/internal/execution/ports"
	"github.com/nodeflow-go/pkg/apperrors"
	"github.com/nodeflow-go/pkg/database"
	"github.com/nodeflow-go/pkg/events"
	"github.com/nodeflow-go/pkg/logger"
	"github.com/nodeflow-go/pkg/metrics"
	"github.com/nodeflow-go/pkg/repository"
	"github.com/nodeflow-go/pkg/telemetry"
)

type CreateExecutionRequest struct {
	WorkflowID int64          `json:"workflow_id" binding:"required,gt=0"`
	InputData  map[string]any `json:"input_data"`
}

// UpdateExecutionRequest carries the fields to change; nil fields are left alone.
type UpdateExecutionRequest struct {
	Status     *workflow.ExecutionStatus `json:"status"`
	OutputData map[string]any            `json:"output_data"`
	Error      *string                   `json:"error"`
	FinishedAt *time.Time                `json:"finished_at"`
}

func (r UpdateExecutionRequest) Fields() map[string]any {
	fields := map[string]any{}
	if r.Status != nil {
		fields["status"] = *r.Status
	}
	if r.OutputData != nil {
		fields["output_data"] = database.JSONMap(r.OutputData)
	}
	if r.Error != nil {
		fields["error"] = *r.Error
	}
	if r.FinishedAt != nil {
		fields["finished_at"] = r.FinishedAt.UTC()
	}
	return fields
}

type ExecutionService struct {
	tx         database.Transactor
	workflows  ports.WorkflowRepository
	executions ports.ExecutionRepository
	publisher  ports.EventPublisher
	logger     logger.Logger
	now        func() time.Time
}

func NewExecutionService(
	tx database.Transactor,
	workflows ports.WorkflowRepository,
	executions ports.ExecutionRepository,
	publisher ports.EventPublisher,
	logger logger.Logger,
) *ExecutionService {
	return &ExecutionService{
		tx:         tx,
		workflows:  workflows,
		executions: executions,
		publisher:  publisher,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *ExecutionService) Create(ctx context.Context, req CreateExecutionRequest) (exec *workflow.Execution, err error) {
	ctx, span := telemetry.StartSpan(ctx, "ExecutionService.Create", telemetry.WorkflowIDAttribute(req.WorkflowID))
	defer func() { telemetry.End(span, err) }()

	err = s.tx.Transaction(ctx, func(ctx context.Context) error {
		if _, err := repository.GetOr(ctx, s.workflows, repository.Filters{"id": req.WorkflowID}, apperrors.ErrWorkflowNotFound); err != nil {
			return err
		}
		exec = &workflow.Execution{
			WorkflowID: req.WorkflowID,
			Status:     workflow.ExecutionCreated,
			InputData:  database.JSONMap(req.InputData),
			StartedAt:  s.now(),
		}
		if err := s.executions.Create(ctx, exec); err != nil {
			return fmt.Errorf("failed to create execution: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordExecutionStatus(string(exec.Status))
	s.logger.Info("Execution created", "execution_id", exec.ID, "workflow_id", exec.WorkflowID)
	s.publisher.Publish(ctx, events.NewEventBuilder(events.ExecutionCreated).
		WithAggregate("execution", exec.ID).
		WithPayload("workflow_id", exec.WorkflowID).
		Build())

	return exec, nil
}

func (s *ExecutionService) Get(ctx context.Context, id int64) (*workflow.Execution, error) {
	return repository.GetOr(ctx, s.executions, repository.Filters{"id": id}, apperrors.ErrExecutionNotFound)
}

func (s *ExecutionService) List(ctx context.Context, workflowID *int64) ([]*workflow.Execution, error) {
	filters := repository.Filters{}
	if workflowID != nil {
		filters["workflow_id"] = *workflowID
	}
	return s.executions.GetAll(ctx, filters)
}

// Update applies the supplied fields. Setting a terminal status without an
// explicit finished_at stamps finished_at with the current time. Any status
// may follow any other.
func (s *ExecutionService) Update(ctx context.Context, id int64, req UpdateExecutionRequest) (exec *workflow.Execution, err error) {
	if req.Status != nil && !req.Status.Valid() {
		return nil, apperrors.ErrInvalidExecutionStatus
	}

	fields := req.Fields()
	if len(fields) == 0 {
		return s.Get(ctx, id)
	}
	if req.Status != nil && req.Status.IsTerminal() && req.FinishedAt == nil {
		fields["finished_at"] = s.now()
	}

	ctx, span := telemetry.StartSpan(ctx, "ExecutionService.Update", telemetry.ExecutionIDAttribute(id))
	defer func() { telemetry.End(span, err) }()

	exec, err = repository.UpdateOr(ctx, s.executions, repository.Filters{"id": id}, fields, apperrors.ErrExecutionNotFound)
	if err != nil {
		return nil, err
	}

	if req.Status != nil {
		metrics.RecordExecutionStatus(string(exec.Status))
		if exec.Status.IsTerminal() && exec.FinishedAt != nil {
			metrics.RecordExecutionDuration(exec.FinishedAt.Sub(exec.StartedAt).Seconds())
		}
		s.logger.Info("Execution status changed", "execution_id", exec.ID, "status", exec.Status)
	}

	s.publisher.Publish(ctx, events.NewEventBuilder(events.ExecutionUpdated).
		WithAggregate("execution", exec.ID).
		WithPayload("workflow_id", exec.WorkflowID).
		WithPayload("status", string(exec.Status)).
		Build())

	return exec, nil
}

func (s *ExecutionService) Delete(ctx context.Context, id int64) error {
	if err := repository.DeleteOr(ctx, s.executions, repository.Filters{"id": id}, apperrors.ErrExecutionNotFound); err != nil {
		return err
	}

	s.publisher.Publish(ctx, events.NewEventBuilder(events.ExecutionDeleted).
		WithAggregate("execution", id).
		Build())
	return nil
}
