package service

import (
	"context"
	"fmt"

	"github.com/nodeflow-go/internal/domain/provider"
	"github.com/nodeflow-go/internal/provider/ports"
	"github.com/nodeflow-go/pkg/apperrors"
	"github.com/nodeflow-go/pkg/database"
	"github.com/nodeflow-go/pkg/logger"
	"github.com/nodeflow-go/pkg/metrics"
	"github.com/nodeflow-go/pkg/repository"
)

type CreateProviderRequest struct {
	Name      string                `json:"name" binding:"required"`
	Type      provider.ProviderType `json:"type" binding:"required"`
	APIKey    string                `json:"api_key" binding:"required"`
	BaseURL   *string               `json:"base_url"`
	IsDefault bool                  `json:"is_default"`
}

type UpdateProviderRequest struct {
	Name      *string                `json:"name"`
	Type      *provider.ProviderType `json:"type"`
	APIKey    *string                `json:"api_key"`
	BaseURL   *string                `json:"base_url"`
	IsDefault *bool                  `json:"is_default"`
}

func (r UpdateProviderRequest) Fields() map[string]any {
	fields := map[string]any{}
	if r.Name != nil {
		fields["name"] = *r.Name
	}
	if r.Type != nil {
		fields["type"] = *r.Type
	}
	if r.APIKey != nil {
		fields["api_key"] = *r.APIKey
	}
	if r.BaseURL != nil {
		fields["base_url"] = *r.BaseURL
	}
	if r.IsDefault != nil {
		fields["is_default"] = *r.IsDefault
	}
	return fields
}

type ProviderService struct {
	tx        database.Transactor
	users     ports.UserRepository
	providers ports.ProviderRepository
	llmNodes  ports.LLMNodeRepository
	cipher    ports.Cipher
	logger    logger.Logger
}

func NewProviderService(
	tx database.Transactor,
	users ports.UserRepository,
	providers ports.ProviderRepository,
	llmNodes ports.LLMNodeRepository,
	cipher ports.Cipher,
	logger logger.Logger,
) *ProviderService {
	return &ProviderService{
		tx:        tx,
		users:     users,
		providers: providers,
		llmNodes:  llmNodes,
		cipher:    cipher,
		logger:    logger,
	}
}

func (s *ProviderService) Create(ctx context.Context, userID int64, req CreateProviderRequest) (*provider.LLMProvider, error) {
	if !req.Type.Valid() {
		return nil, apperrors.ErrInvalidProviderType
	}

	sealed, err := s.cipher.Encrypt(req.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt api key: %w", err)
	}

	var p *provider.LLMProvider
	err = s.tx.Transaction(ctx, func(ctx context.Context) error {
		if _, err := repository.GetOr(ctx, s.users, repository.Filters{"id": userID}, apperrors.ErrUserNotFound); err != nil {
			return err
		}
		p = &provider.LLMProvider{
			UserID:    userID,
			Name:      req.Name,
			Type:      req.Type,
			APIKey:    sealed,
			BaseURL:   req.BaseURL,
			IsDefault: req.IsDefault,
		}
		if err := s.providers.Create(ctx, p); err != nil {
			return fmt.Errorf("failed to create llm provider: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordEntityOperation("llm_provider", "create")
	s.logger.Info("LLM provider created", "provider_id", p.ID, "user_id", userID, "type", p.Type)
	return p, nil
}

func (s *ProviderService) List(ctx context.Context, userID *int64) ([]*provider.LLMProvider, error) {
	filters := repository.Filters{}
	if userID != nil {
		filters["user_id"] = *userID
	}
	return s.providers.GetAll(ctx, filters)
}

func (s *ProviderService) Get(ctx context.Context, id int64) (*provider.LLMProvider, error) {
	return repository.GetOr(ctx, s.providers, repository.Filters{"id": id}, apperrors.ErrLLMProviderNotFound)
}

// GetOwned hides providers of other users.
func (s *ProviderService) GetOwned(ctx context.Context, id, userID int64) (*provider.LLMProvider, error) {
	return repository.GetOr(ctx, s.providers, repository.Filters{"id": id, "user_id": userID}, apperrors.ErrLLMProviderNotFound)
}

// APIKey returns the decrypted key of a provider.
func (s *ProviderService) APIKey(ctx context.Context, id int64) (string, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return s.cipher.Decrypt(p.APIKey)
}

func (s *ProviderService) Update(ctx context.Context, id int64, req UpdateProviderRequest) (*provider.LLMProvider, error) {
	if req.Type != nil && !req.Type.Valid() {
		return nil, apperrors.ErrInvalidProviderType
	}

	fields := req.Fields()
	if len(fields) == 0 {
		return s.Get(ctx, id)
	}
	if req.APIKey != nil {
		sealed, err := s.cipher.Encrypt(*req.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt api key: %w", err)
		}
		fields["api_key"] = sealed
	}

	p, err := repository.UpdateOr(ctx, s.providers, repository.Filters{"id": id}, fields, apperrors.ErrLLMProviderNotFound)
	if err != nil {
		return nil, err
	}
	metrics.RecordEntityOperation("llm_provider", "update")
	return p, nil
}

// Delete refuses to remove a provider that an LLM node still points at.
func (s *ProviderService) Delete(ctx context.Context, id int64) error {
	err := s.tx.Transaction(ctx, func(ctx context.Context) error {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		refs, err := s.llmNodes.GetAll(ctx, repository.Filters{"llm_provider_id": id})
		if err != nil {
			return err
		}
		if len(refs) > 0 {
			return fmt.Errorf("provider %d used by %d llm nodes: %w", id, len(refs), apperrors.ErrLLMProviderInUse)
		}
		return repository.DeleteOr(ctx, s.providers, repository.Filters{"id": id}, apperrors.ErrLLMProviderNotFound)
	})
	if err != nil {
		return err
	}

	metrics.RecordEntityOperation("llm_provider", "delete")
	s.logger.Info("LLM provider deleted", "provider_id", id)
	return nil
}
