package service

import (
	"context"
	"fmt"

	"github.com/nodeflow-go/internal/domain/workflow"
	"github.com/nodeflow-go/internal/workflow/ports"
	"github.com/nodeflow-go/pkg/apperrors"
	"github.com/nodeflow-go/pkg/database"
	"github.com/nodeflow-go/pkg/logger"
	"github.com/nodeflow-go/pkg/metrics"
	"github.com/nodeflow-go/pkg/repository"
	"github.com/nodeflow-go/pkg/telemetry"
)

type UpdateEdgeRequest struct {
	SourceNodeID *int64 `json:"source_node_id"`
	TargetNodeID *int64 `json:"target_node_id"`
}

func (r UpdateEdgeRequest) Fields() map[string]any {
	fields := map[string]any{}
	if r.SourceNodeID != nil {
		fields["source_node_id"] = *r.SourceNodeID
	}
	if r.TargetNodeID != nil {
		fields["target_node_id"] = *r.TargetNodeID
	}
	return fields
}

// EdgeService keeps every edge inside a single workflow: both endpoints must
// exist and belong to the edge's workflow.
type EdgeService struct {
	tx        database.Transactor
	workflows ports.WorkflowRepository
	nodes     ports.NodeRepository
	edges     ports.EdgeRepository
	logger    logger.Logger
}

func NewEdgeService(
	tx database.Transactor,
	workflows ports.WorkflowRepository,
	nodes ports.NodeRepository,
	edges ports.EdgeRepository,
	logger logger.Logger,
) *EdgeService {
	return &EdgeService{
		tx:        tx,
		workflows: workflows,
		nodes:     nodes,
		edges:     edges,
		logger:    logger,
	}
}

// Create checks, in order: the workflow exists, the source exists, the target
// exists, the source belongs to the workflow, the target belongs to the workflow.
func (s *EdgeService) Create(ctx context.Context, workflowID, sourceNodeID, targetNodeID int64) (edge *workflow.Edge, err error) {
	ctx, span := telemetry.StartSpan(ctx, "EdgeService.Create", telemetry.WorkflowIDAttribute(workflowID))
	defer func() { telemetry.End(span, err) }()

	err = s.tx.Transaction(ctx, func(ctx context.Context) error {
		if _, err := repository.GetOr(ctx, s.workflows, repository.Filters{"id": workflowID}, apperrors.ErrWorkflowNotFound); err != nil {
			return err
		}
		if err := s.checkEndpoints(ctx, workflowID, sourceNodeID, targetNodeID); err != nil {
			return err
		}

		edge = &workflow.Edge{
			WorkflowID:   workflowID,
			SourceNodeID: sourceNodeID,
			TargetNodeID: targetNodeID,
		}
		if err := s.edges.Create(ctx, edge); err != nil {
			return fmt.Errorf("failed to create edge: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordEntityOperation("edge", "create")
	s.logger.Debug("Edge created", "edge_id", edge.ID, "workflow_id", workflowID,
		"source_node_id", sourceNodeID, "target_node_id", targetNodeID)
	return edge, nil
}

func (s *EdgeService) checkEndpoints(ctx context.Context, workflowID, sourceNodeID, targetNodeID int64) error {
	source, err := repository.GetOr(ctx, s.nodes, repository.Filters{"id": sourceNodeID}, apperrors.ErrNodeNotFound)
	if err != nil {
		return err
	}
	target, err := repository.GetOr(ctx, s.nodes, repository.Filters{"id": targetNodeID}, apperrors.ErrNodeNotFound)
	if err != nil {
		return err
	}
	if source.WorkflowID != workflowID {
		return fmt.Errorf("source node %d: %w", sourceNodeID, apperrors.ErrEdgeNodeMismatch)
	}
	if target.WorkflowID != workflowID {
		return fmt.Errorf("target node %d: %w", targetNodeID, apperrors.ErrEdgeNodeMismatch)
	}
	return nil
}

func (s *EdgeService) Get(ctx context.Context, id int64) (*workflow.Edge, error) {
	return repository.GetOr(ctx, s.edges, repository.Filters{"id": id}, apperrors.ErrEdgeNotFound)
}

func (s *EdgeService) List(ctx context.Context, workflowID *int64) ([]*workflow.Edge, error) {
	filters := repository.Filters{}
	if workflowID != nil {
		filters["workflow_id"] = *workflowID
	}
	return s.edges.GetAll(ctx, filters)
}

// Update re-validates the effective endpoints against the edge's existing
// workflow. An empty request returns the edge unchanged.
func (s *EdgeService) Update(ctx context.Context, id int64, req UpdateEdgeRequest) (edge *workflow.Edge, err error) {
	fields := req.Fields()
	if len(fields) == 0 {
		return s.Get(ctx, id)
	}

	ctx, span := telemetry.StartSpan(ctx, "EdgeService.Update", telemetry.EdgeIDAttribute(id))
	defer func() { telemetry.End(span, err) }()

	err = s.tx.Transaction(ctx, func(ctx context.Context) error {
		current, err := s.Get(ctx, id)
		if err != nil {
			return err
		}

		source, target := current.SourceNodeID, current.TargetNodeID
		if req.SourceNodeID != nil {
			source = *req.SourceNodeID
		}
		if req.TargetNodeID != nil {
			target = *req.TargetNodeID
		}
		if err := s.checkEndpoints(ctx, current.WorkflowID, source, target); err != nil {
			return err
		}

		edge, err = repository.UpdateOr(ctx, s.edges, repository.Filters{"id": id}, fields, apperrors.ErrEdgeNotFound)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordEntityOperation("edge", "update")
	return edge, nil
}

func (s *EdgeService) Delete(ctx context.Context, id int64) error {
	if err := repository.DeleteOr(ctx, s.edges, repository.Filters{"id": id}, apperrors.ErrEdgeNotFound); err != nil {
		return err
	}
	metrics.RecordEntityOperation("edge", "delete")
	return nil
}
