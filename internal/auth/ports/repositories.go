package ports

import (
	"context"

	"github.com/nodeflow-go/internal/domain/user"
	"github.com/nodeflow-go/pkg/events"
	"github.com/nodeflow-go/pkg/repository"
)

type UserRepository = repository.Repository[user.User]

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event)
}
