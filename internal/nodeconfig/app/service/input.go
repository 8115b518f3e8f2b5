package service

import (
	"context"

	"github.com/nodeflow-go/internal/domain/node"
	"github.com/nodeflow-go/internal/domain/workflow"
	"github.com/nodeflow-go/pkg/apperrors"
	"github.com/nodeflow-go/pkg/repository"
)

type CreateInputNodeRequest struct {
	NodeID int64            `json:"node_id" binding:"required,gt=0"`
	Format node.InputFormat `json:"format"`
}

type UpdateInputNodeRequest struct {
	Format *node.InputFormat `json:"format"`
}

func (r UpdateInputNodeRequest) Fields() map[string]any {
	fields := map[string]any{}
	if r.Format != nil {
		fields["format"] = *r.Format
	}
	return fields
}

func (s *NodeConfigService) CreateInputNode(ctx context.Context, req CreateInputNodeRequest) (*node.InputNode, error) {
	if req.Format == "" {
		req.Format = node.InputFormatText
	}
	if !req.Format.Valid() {
		return nil, apperrors.ErrInvalidFormat
	}

	cfg := &node.InputNode{NodeID: req.NodeID, Format: req.Format}
	if err := createConfig(ctx, s, s.inputs, workflow.NodeTypeInput, req.NodeID, cfg, nil); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *NodeConfigService) GetInputNode(ctx context.Context, nodeID int64) (*node.InputNode, error) {
	return getConfig(ctx, s.inputs, nodeID)
}

func (s *NodeConfigService) ListInputNodes(ctx context.Context) ([]*node.InputNode, error) {
	return s.inputs.GetAll(ctx, repository.Filters{})
}

func (s *NodeConfigService) UpdateInputNode(ctx context.Context, nodeID int64, req UpdateInputNodeRequest) (*node.InputNode, error) {
	if req.Format != nil && !req.Format.Valid() {
		return nil, apperrors.ErrInvalidFormat
	}
	return updateConfig(ctx, s.inputs, nodeID, req.Fields())
}

func (s *NodeConfigService) DeleteInputNode(ctx context.Context, nodeID int64) error {
	return deleteConfig(ctx, s.inputs, nodeID)
}
