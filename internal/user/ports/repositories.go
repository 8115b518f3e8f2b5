package ports

import (
	"context"

	"github.com/nodeflow-go/internal/domain/node"
	"github.com/nodeflow-go/internal/domain/provider"
	"github.com/nodeflow-go/internal/domain/user"
	"github.com/nodeflow-go/internal/domain/workflow"
	"github.com/nodeflow-go/pkg/events"
	"github.com/nodeflow-go/pkg/repository"
)

type UserRepository = repository.Repository[user.User]

type WorkflowRepository = repository.Repository[workflow.Workflow]

type ProviderRepository = repository.Repository[provider.LLMProvider]

type LLMNodeRepository = repository.Repository[node.LLMNode]

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event)
}
