package service

import (
	"context"

	"github.com/nodeflow-go/internal/workflow/ports"
	"github.com/nodeflow-go/pkg/apperrors"
	"github.com/nodeflow-go/pkg/repository"
)

// Access scopes workflows and their parts to the owning user. Anything owned
// by someone else is reported as missing.
type Access struct {
	workflows ports.WorkflowRepository
	nodes     ports.NodeRepository
}

func NewAccess(workflows ports.WorkflowRepository, nodes ports.NodeRepository) *Access {
	return &Access{workflows: workflows, nodes: nodes}
}

func (a *Access) Workflow(ctx context.Context, workflowID, userID int64) error {
	_, err := repository.GetOr(ctx, a.workflows, repository.Filters{"id": workflowID, "owner_id": userID}, apperrors.ErrWorkflowNotFound)
	return err
}

func (a *Access) Node(ctx context.Context, nodeID, userID int64) error {
	n, err := repository.GetOr(ctx, a.nodes, repository.Filters{"id": nodeID}, apperrors.ErrNodeNotFound)
	if err != nil {
		return err
	}
	if err := a.Workflow(ctx, n.WorkflowID, userID); err != nil {
		return apperrors.ErrNodeNotFound
	}
	return nil
}

// WorkflowIDs lists the ids of every workflow userID owns.
func (a *Access) WorkflowIDs(ctx context.Context, userID int64) ([]int64, error) {
	workflows, err := a.workflows.GetAll(ctx, repository.Filters{"owner_id": userID})
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(workflows))
	for i, wf := range workflows {
		ids[i] = wf.ID
	}
	return ids, nil
}

// NodeIDs lists the ids of every node in workflows userID owns.
func (a *Access) NodeIDs(ctx context.Context, userID int64) (map[int64]bool, error) {
	workflowIDs, err := a.WorkflowIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make(map[int64]bool)
	for _, workflowID := range workflowIDs {
		nodes, err := a.nodes.GetAll(ctx, repository.Filters{"workflow_id": workflowID})
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			ids[n.ID] = true
		}
	}
	return ids, nil
}
