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
)

type CreateNodeRequest struct {
	WorkflowID int64             `json:"workflow_id" binding:"required,gt=0"`
	Type       workflow.NodeType `json:"type" binding:"required"`
	Data       map[string]any    `json:"data"`
	PositionX  float64           `json:"position_x"`
	PositionY  float64           `json:"position_y"`
}

// UpdateNodeRequest changes placement and payload. The node type is fixed.
type UpdateNodeRequest struct {
	Data      map[string]any `json:"data"`
	PositionX *float64       `json:"position_x"`
	PositionY *float64       `json:"position_y"`
}

func (r UpdateNodeRequest) Fields() map[string]any {
	fields := map[string]any{}
	if r.Data != nil {
		fields["data"] = database.JSONMap(r.Data)
	}
	if r.PositionX != nil {
		fields["position_x"] = *r.PositionX
	}
	if r.PositionY != nil {
		fields["position_y"] = *r.PositionY
	}
	return fields
}

type NodeService struct {
	tx        database.Transactor
	workflows ports.WorkflowRepository
	nodes     ports.NodeRepository
	logger    logger.Logger
}

func NewNodeService(
	tx database.Transactor,
	workflows ports.WorkflowRepository,
	nodes ports.NodeRepository,
	logger logger.Logger,
) *NodeService {
	return &NodeService{
		tx:        tx,
		workflows: workflows,
		nodes:     nodes,
		logger:    logger,
	}
}

func (s *NodeService) Create(ctx context.Context, req CreateNodeRequest) (*workflow.Node, error) {
	if !req.Type.Valid() {
		return nil, apperrors.ErrInvalidNodeType
	}

	data := database.JSONMap(req.Data)
	if data == nil {
		data = database.JSONMap{}
	}

	var n *workflow.Node
	err := s.tx.Transaction(ctx, func(ctx context.Context) error {
		if _, err := repository.GetOr(ctx, s.workflows, repository.Filters{"id": req.WorkflowID}, apperrors.ErrWorkflowNotFound); err != nil {
			return err
		}
		n = &workflow.Node{
			WorkflowID: req.WorkflowID,
			Type:       req.Type,
			Data:       data,
			PositionX:  req.PositionX,
			PositionY:  req.PositionY,
		}
		if err := s.nodes.Create(ctx, n); err != nil {
			return fmt.Errorf("failed to create node: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordEntityOperation("node", "create")
	s.logger.Debug("Node created", "node_id", n.ID, "workflow_id", n.WorkflowID, "type", n.Type)
	return n, nil
}

func (s *NodeService) List(ctx context.Context, workflowID *int64) ([]*workflow.Node, error) {
	filters := repository.Filters{}
	if workflowID != nil {
		filters["workflow_id"] = *workflowID
	}
	return s.nodes.GetAll(ctx, filters)
}

func (s *NodeService) Get(ctx context.Context, id int64) (*workflow.Node, error) {
	return repository.GetOr(ctx, s.nodes, repository.Filters{"id": id}, apperrors.ErrNodeNotFound)
}

func (s *NodeService) Update(ctx context.Context, id int64, req UpdateNodeRequest) (*workflow.Node, error) {
	fields := req.Fields()
	if len(fields) == 0 {
		return s.Get(ctx, id)
	}

	n, err := repository.UpdateOr(ctx, s.nodes, repository.Filters{"id": id}, fields, apperrors.ErrNodeNotFound)
	if err != nil {
		return nil, err
	}
	metrics.RecordEntityOperation("node", "update")
	return n, nil
}

// Delete removes the node with its configuration and attached edges.
func (s *NodeService) Delete(ctx context.Context, id int64) error {
	if err := repository.DeleteOr(ctx, s.nodes, repository.Filters{"id": id}, apperrors.ErrNodeNotFound); err != nil {
		return err
	}
	metrics.RecordEntityOperation("node", "delete")
	return nil
}
