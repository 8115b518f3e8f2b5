// Package service implements the per-type node configuration usecases. A node
// is created first with its type; its configuration is attached in a second
// call and must match that type.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/nodeflow-go/internal/domain/workflow"
	"github.com/nodeflow-go/internal/nodeconfig/ports"
	"github.com/nodeflow-go/pkg/apperrors"
	"github.com/nodeflow-go/pkg/database"
	"github.com/nodeflow-go/pkg/logger"
	"github.com/nodeflow-go/pkg/metrics"
	"github.com/nodeflow-go/pkg/repository"
	"github.com/nodeflow-go/pkg/telemetry"
)

type NodeConfigService struct {
	tx        database.Transactor
	nodes     ports.NodeRepository
	providers ports.ProviderRepository
	inputs    ports.InputNodeRepository
	llms      ports.LLMNodeRepository
	outputs   ports.OutputNodeRepository
	logger    logger.Logger
}

func NewNodeConfigService(
	tx database.Transactor,
	nodes ports.NodeRepository,
	providers ports.ProviderRepository,
	inputs ports.InputNodeRepository,
	llms ports.LLMNodeRepository,
	outputs ports.OutputNodeRepository,
	logger logger.Logger,
) *NodeConfigService {
	return &NodeConfigService{
		tx:        tx,
		nodes:     nodes,
		providers: providers,
		inputs:    inputs,
		llms:      llms,
		outputs:   outputs,
		logger:    logger,
	}
}

// createConfig stores cfg for nodeID after checking, in order, that the node
// exists, that it has the given kind, that check passes and that the node has
// no configuration yet.
func createConfig[T any](
	ctx context.Context,
	s *NodeConfigService,
	repo repository.Repository[T],
	kind workflow.NodeType,
	nodeID int64,
	cfg *T,
	check func(ctx context.Context) error,
) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "NodeConfigService.Create",
		telemetry.NodeIDAttribute(nodeID), telemetry.NodeTypeAttribute(string(kind)))
	defer func() { telemetry.End(span, err) }()

	err = s.tx.Transaction(ctx, func(ctx context.Context) error {
		n, err := repository.GetOr(ctx, s.nodes, repository.Filters{"id": nodeID}, apperrors.ErrNodeNotFound)
		if err != nil {
			return err
		}
		if n.Type != kind {
			return fmt.Errorf("node %d has type %s: %w", nodeID, n.Type, apperrors.ErrNodeTypeMismatch)
		}
		if check != nil {
			if err := check(ctx); err != nil {
				return err
			}
		}

		_, err = repo.GetBy(ctx, repository.Filters{"node_id": nodeID})
		switch {
		case err == nil:
			return apperrors.ErrNodeConfigExists
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}

		if err := repo.Create(ctx, cfg); err != nil {
			return fmt.Errorf("failed to create %s node config: %w", kind, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	metrics.RecordNodeConfig(string(kind))
	s.logger.Debug("Node configured", "node_id", nodeID, "type", kind)
	return nil
}

// getConfig reports a missing configuration as a missing node.
func getConfig[T any](ctx context.Context, repo repository.Repository[T], nodeID int64) (*T, error) {
	return repository.GetOr(ctx, repo, repository.Filters{"node_id": nodeID}, apperrors.ErrNodeNotFound)
}

func updateConfig[T any](ctx context.Context, repo repository.Repository[T], nodeID int64, fields map[string]any) (*T, error) {
	if len(fields) == 0 {
		return getConfig(ctx, repo, nodeID)
	}
	return repository.UpdateOr(ctx, repo, repository.Filters{"node_id": nodeID}, fields, apperrors.ErrNodeNotFound)
}

func deleteConfig[T any](ctx context.Context, repo repository.Repository[T], nodeID int64) error {
	return repository.DeleteOr(ctx, repo, repository.Filters{"node_id": nodeID}, apperrors.ErrNodeNotFound)
}
