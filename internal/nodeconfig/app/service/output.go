package service

import (
	"context"

	"github.com/nodeflow-go/internal/domain/node"
	"github.com/nodeflow-go/internal/domain/workflow"
	"github.com/nodeflow-go/pkg/apperrors"
	"github.com/nodeflow-go/pkg/repository"
)

type CreateOutputNodeRequest struct {
	NodeID int64             `json:"node_id" binding:"required,gt=0"`
	Format node.OutputFormat `json:"format"`
}

type UpdateOutputNodeRequest struct {
	Format *node.OutputFormat `json:"format"`
}

func (r UpdateOutputNodeRequest) Fields() map[string]any {
	fields := map[string]any{}
	if r.Format != nil {
		fields["format"] = *r.Format
	}
	return fields
}

func (s *NodeConfigService) CreateOutputNode(ctx context.Context, req CreateOutputNodeRequest) (*node.OutputNode, error) {
	if req.Format == "" {
		req.Format = node.OutputFormatText
	}
	if !req.Format.Valid() {
		return nil, apperrors.ErrInvalidFormat
	}

	cfg := &node.OutputNode{NodeID: req.NodeID, Format: req.Format}
	if err := createConfig(ctx, s, s.outputs, workflow.NodeTypeOutput, req.NodeID, cfg, nil); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *NodeConfigService) GetOutputNode(ctx context.Context, nodeID int64) (*node.OutputNode, error) {
	return getConfig(ctx, s.outputs, nodeID)
}

func (s *NodeConfigService) ListOutputNodes(ctx context.Context) ([]*node.OutputNode, error) {
	return s.outputs.GetAll(ctx, repository.Filters{})
}

func (s *NodeConfigService) UpdateOutputNode(ctx context.Context, nodeID int64, req UpdateOutputNodeRequest) (*node.OutputNode, error) {
	if req.Format != nil && !req.Format.Valid() {
		return nil, apperrors.ErrInvalidFormat
	}
	return updateConfig(ctx, s.outputs, nodeID, req.Fields())
}

func (s *NodeConfigService) DeleteOutputNode(ctx context.Context, nodeID int64) error {
	return deleteConfig(ctx, s.outputs, nodeID)
}
