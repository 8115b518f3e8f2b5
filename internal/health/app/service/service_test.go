package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nodeflow-go/internal/health/ports"
	"github.com/nodeflow-go/pkg/logger"
)

type fakeChecker struct {
	name  string
	check func(ctx context.Context) error
}

func (f fakeChecker) Name() string                    { return f.name }
func (f fakeChecker) Check(ctx context.Context) error { return f.check(ctx) }

func TestHealthService_Readiness(t *testing.T) {
	checkers := []ports.Checker{
		fakeChecker{"postgres", func(context.Context) error { return nil }},
		fakeChecker{"redis", func(context.Context) error { return errors.New("connection refused") }},
		fakeChecker{"chroma", func(context.Context) error { panic("boom") }},
		fakeChecker{"prefect", func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}},
	}
	svc := NewHealthService(checkers, 50*time.Millisecond, logger.NewNop())

	start := time.Now()
	statuses := svc.Readiness(context.Background())

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, []ServiceStatus{
		{Name: "postgres", Status: true},
		{Name: "redis", Status: false},
		{Name: "chroma", Status: false},
		{Name: "prefect", Status: false},
	}, statuses)
}

func TestHealthService_NoCheckers(t *testing.T) {
	svc := NewHealthService(nil, 0, logger.NewNop())
	assert.Empty(t, svc.Readiness(context.Background()))
}
