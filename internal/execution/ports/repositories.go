package ports

import (
	"context"

	"github.com/nodeflow-go/internal/domain/workflow"
	"github.com/nodeflow-go/pkg/events"
	"github.com/nodeflow-go/pkg/repository"
)

type WorkflowRepository = repository.Repository[workflow.Workflow]

type ExecutionRepository = repository.Repository[workflow.Execution]

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event)
}
