package service

import (
	"context"

	"github.com/nodeflow-go/internal/domain/node"
	"github.com/nodeflow-go/internal/domain/workflow"
	"github.com/nodeflow-go/pkg/apperrors"
	"github.com/nodeflow-go/pkg/repository"
)

type CreateLLMNodeRequest struct {
	NodeID        int64    `json:"node_id" binding:"required,gt=0"`
	LLMProviderID int64    `json:"llm_provider_id" binding:"required,gt=0"`
	Model         string   `json:"model" binding:"required"`
	Temperature   *float64 `json:"temperature"`
	MaxTokens     *int     `json:"max_tokens"`
}

type UpdateLLMNodeRequest struct {
	LLMProviderID *int64   `json:"llm_provider_id"`
	Model         *string  `json:"model"`
	Temperature   *float64 `json:"temperature"`
	MaxTokens     *int     `json:"max_tokens"`
}

func (r UpdateLLMNodeRequest) Fields() map[string]any {
	fields := map[string]any{}
	if r.LLMProviderID != nil {
		fields["llm_provider_id"] = *r.LLMProviderID
	}
	if r.Model != nil {
		fields["model"] = *r.Model
	}
	if r.Temperature != nil {
		fields["temperature"] = *r.Temperature
	}
	if r.MaxTokens != nil {
		fields["max_tokens"] = *r.MaxTokens
	}
	return fields
}

func (s *NodeConfigService) providerExists(id int64) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := repository.GetOr(ctx, s.providers, repository.Filters{"id": id}, apperrors.ErrLLMProviderNotFound)
		return err
	}
}

func (s *NodeConfigService) CreateLLMNode(ctx context.Context, req CreateLLMNodeRequest) (*node.LLMNode, error) {
	cfg := &node.LLMNode{
		NodeID:        req.NodeID,
		LLMProviderID: req.LLMProviderID,
		Model:         req.Model,
		Temperature:   node.DefaultTemperature,
		MaxTokens:     node.DefaultMaxTokens,
	}
	if req.Temperature != nil {
		cfg.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		cfg.MaxTokens = *req.MaxTokens
	}

	err := createConfig(ctx, s, s.llms, workflow.NodeTypeLLM, req.NodeID, cfg, s.providerExists(req.LLMProviderID))
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *NodeConfigService) GetLLMNode(ctx context.Context, nodeID int64) (*node.LLMNode, error) {
	return getConfig(ctx, s.llms, nodeID)
}

func (s *NodeConfigService) ListLLMNodes(ctx context.Context) ([]*node.LLMNode, error) {
	return s.llms.GetAll(ctx, repository.Filters{})
}

// UpdateLLMNode checks the new provider, when one is given, in the same
// transaction as the write.
func (s *NodeConfigService) UpdateLLMNode(ctx context.Context, nodeID int64, req UpdateLLMNodeRequest) (*node.LLMNode, error) {
	fields := req.Fields()
	if len(fields) == 0 {
		return s.GetLLMNode(ctx, nodeID)
	}

	var cfg *node.LLMNode
	err := s.tx.Transaction(ctx, func(ctx context.Context) error {
		if _, err := s.GetLLMNode(ctx, nodeID); err != nil {
			return err
		}
		if req.LLMProviderID != nil {
			if err := s.providerExists(*req.LLMProviderID)(ctx); err != nil {
				return err
			}
		}

		var err error
		cfg, err = updateConfig(ctx, s.llms, nodeID, fields)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *NodeConfigService) DeleteLLMNode(ctx context.Context, nodeID int64) error {
	return deleteConfig(ctx, s.llms, nodeID)
}
