package service

import (
	"context"
	"fmt"

	"github.com/nodeflow-go/internal/domain/workflow"
	"github.com/nodeflow-go/internal/workflow/ports"
	"github.com/nodeflow-go/pkg/apperrors"
	"github.com/nodeflow-go/pkg/database"
	"github.com/nodeflow-go/pkg/events"
	"github.com/nodeflow-go/pkg/logger"
	"github.com/nodeflow-go/pkg/metrics"
	"github.com/nodeflow-go/pkg/repository"
	"github.com/nodeflow-go/pkg/telemetry"
)

type UpdateWorkflowRequest struct {
	Name *string `json:"name"`
}

func (r UpdateWorkflowRequest) Fields() map[string]any {
	fields := map[string]any{}
	if r.Name != nil {
		fields["name"] = *r.Name
	}
	return fields
}

type WorkflowService struct {
	tx        database.Transactor
	users     ports.UserRepository
	workflows ports.WorkflowRepository
	publisher ports.EventPublisher
	logger    logger.Logger
}

func NewWorkflowService(
	tx database.Transactor,
	users ports.UserRepository,
	workflows ports.WorkflowRepository,
	publisher ports.EventPublisher,
	logger logger.Logger,
) *WorkflowService {
	return &WorkflowService{
		tx:        tx,
		users:     users,
		workflows: workflows,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *WorkflowService) Create(ctx context.Context, ownerID int64, name string) (wf *workflow.Workflow, err error) {
	ctx, span := telemetry.StartSpan(ctx, "WorkflowService.Create")
	defer func() { telemetry.End(span, err) }()

	err = s.tx.Transaction(ctx, func(ctx context.Context) error {
		if _, err := repository.GetOr(ctx, s.users, repository.Filters{"id": ownerID}, apperrors.ErrUserNotFound); err != nil {
			return err
		}
		wf = &workflow.Workflow{OwnerID: ownerID, Name: name}
		if err := s.workflows.Create(ctx, wf); err != nil {
			return fmt.Errorf("failed to create workflow: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordEntityOperation("workflow", "create")
	s.logger.Info("Workflow created", "workflow_id", wf.ID, "owner_id", ownerID)
	s.publisher.Publish(ctx, events.NewEventBuilder(events.WorkflowCreated).
		WithAggregate("workflow", wf.ID).
		WithPayload("owner_id", ownerID).
		WithPayload("name", wf.Name).
		Build())

	return wf, nil
}

// List returns all workflows, or only those of ownerID when it is set.
func (s *WorkflowService) List(ctx context.Context, ownerID *int64) ([]*workflow.Workflow, error) {
	filters := repository.Filters{}
	if ownerID != nil {
		filters["owner_id"] = *ownerID
	}
	return s.workflows.GetAll(ctx, filters)
}

func (s *WorkflowService) Get(ctx context.Context, id int64) (*workflow.Workflow, error) {
	return repository.GetOr(ctx, s.workflows, repository.Filters{"id": id}, apperrors.ErrWorkflowNotFound)
}

// GetOwned returns the workflow only when ownerID owns it. Workflows of other
// users are reported as missing.
func (s *WorkflowService) GetOwned(ctx context.Context, id, ownerID int64) (*workflow.Workflow, error) {
	return repository.GetOr(ctx, s.workflows, repository.Filters{"id": id, "owner_id": ownerID}, apperrors.ErrWorkflowNotFound)
}

func (s *WorkflowService) Update(ctx context.Context, id int64, req UpdateWorkflowRequest) (*workflow.Workflow, error) {
	fields := req.Fields()
	if len(fields) == 0 {
		return s.Get(ctx, id)
	}

	wf, err := repository.UpdateOr(ctx, s.workflows, repository.Filters{"id": id}, fields, apperrors.ErrWorkflowNotFound)
	if err != nil {
		return nil, err
	}

	metrics.RecordEntityOperation("workflow", "update")
	s.publisher.Publish(ctx, events.NewEventBuilder(events.WorkflowUpdated).
		WithAggregate("workflow", wf.ID).
		WithPayload("name", wf.Name).
		Build())

	return wf, nil
}

// Delete removes the workflow together with its nodes, edges and executions.
func (s *WorkflowService) Delete(ctx context.Context, id int64) error {
	if err := repository.DeleteOr(ctx, s.workflows, repository.Filters{"id": id}, apperrors.ErrWorkflowNotFound); err != nil {
		return err
	}

	metrics.RecordEntityOperation("workflow", "delete")
	s.logger.Info("Workflow deleted", "workflow_id", id)
	s.publisher.Publish(ctx, events.NewEventBuilder(events.WorkflowDeleted).
		WithAggregate("workflow", id).
		Build())

	return nil
}
