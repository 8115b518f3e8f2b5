package ports

import (
	"context"

	"github.com/nodeflow-go/internal/domain/user"
	"github.com/nodeflow-go/internal/domain/workflow"
	"github.com/nodeflow-go/pkg/events"
	"github.com/nodeflow-go/pkg/repository"
)

type UserRepository = repository.Repository[user.User]

type WorkflowRepository = repository.Repository[workflow.Workflow]

type NodeRepository = repository.Repository[workflow.Node]

type EdgeRepository = repository.Repository[workflow.Edge]

// EventPublisher emits domain events once a change is committed.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event)
}
