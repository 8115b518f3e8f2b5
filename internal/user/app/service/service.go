package service

import (
	"context"
	"fmt"

	"github.com/nodeflow-go/internal/domain/user"
	"github.com/nodeflow-go/internal/user/ports"
	"github.com/nodeflow-go/pkg/apperrors"
	"github.com/nodeflow-go/pkg/database"
	"github.com/nodeflow-go/pkg/events"
	"github.com/nodeflow-go/pkg/logger"
	"github.com/nodeflow-go/pkg/metrics"
	"github.com/nodeflow-go/pkg/repository"
)

type UserService struct {
	tx        database.Transactor
	users     ports.UserRepository
	workflows ports.WorkflowRepository
	providers ports.ProviderRepository
	llmNodes  ports.LLMNodeRepository
	publisher ports.EventPublisher
	logger    logger.Logger
}

func NewUserService(
	tx database.Transactor,
	users ports.UserRepository,
	workflows ports.WorkflowRepository,
	providers ports.ProviderRepository,
	llmNodes ports.LLMNodeRepository,
	publisher ports.EventPublisher,
	logger logger.Logger,
) *UserService {
	return &UserService{
		tx:        tx,
		users:     users,
		workflows: workflows,
		providers: providers,
		llmNodes:  llmNodes,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*user.User, error) {
	return repository.GetOr(ctx, s.users, repository.Filters{"id": id}, apperrors.ErrUserNotFound)
}

// DeleteUser removes the user and everything they own. Workflows go first so
// the user's own LLM nodes stop referencing the user's providers.
func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	err := s.tx.Transaction(ctx, func(ctx context.Context) error {
		if _, err := s.GetUser(ctx, id); err != nil {
			return err
		}
		if _, err := s.workflows.DeleteBy(ctx, repository.Filters{"owner_id": id}); err != nil {
			return fmt.Errorf("failed to delete workflows: %w", err)
		}

		providers, err := s.providers.GetAll(ctx, repository.Filters{"user_id": id})
		if err != nil {
			return err
		}
		for _, p := range providers {
			refs, err := s.llmNodes.GetAll(ctx, repository.Filters{"llm_provider_id": p.ID})
			if err != nil {
				return err
			}
			if len(refs) > 0 {
				return fmt.Errorf("provider %d: %w", p.ID, apperrors.ErrLLMProviderInUse)
			}
		}

		return repository.DeleteOr(ctx, s.users, repository.Filters{"id": id}, apperrors.ErrUserNotFound)
	})
	if err != nil {
		return err
	}

	metrics.RecordEntityOperation("user", "delete")
	s.logger.Info("User deleted", "user_id", id)
	s.publisher.Publish(ctx, events.NewEventBuilder(events.UserDeleted).
		WithAggregate("user", id).
		Build())
	return nil
}
