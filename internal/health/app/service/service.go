package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nodeflow-go/internal/health/ports"
	"github.com/nodeflow-go/pkg/logger"
	"github.com/nodeflow-go/pkg/metrics"
)

type ServiceStatus struct {
	Name   string `json:"name"`
	Status bool   `json:"status"`
}

type HealthService struct {
	checkers []ports.Checker
	timeout  time.Duration
	logger   logger.Logger
}

func NewHealthService(checkers []ports.Checker, timeout time.Duration, logger logger.Logger) *HealthService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthService{
		checkers: checkers,
		timeout:  timeout,
		logger:   logger,
	}
}

// Readiness runs every checker concurrently and reports one status per
// checker, in registration order. A checker that fails, times out or panics
// is reported as down without affecting the others.
func (s *HealthService) Readiness(ctx context.Context) []ServiceStatus {
	statuses := make([]ServiceStatus, len(s.checkers))

	var wg sync.WaitGroup
	for i, checker := range s.checkers {
		wg.Add(1)
		go func(i int, checker ports.Checker) {
			defer wg.Done()

			err := s.run(ctx, checker)
			if err != nil {
				s.logger.Warn("Dependency check failed", "service", checker.Name(), "error", err)
			}
			statuses[i] = ServiceStatus{Name: checker.Name(), Status: err == nil}
			metrics.RecordDependency(checker.Name(), err == nil)
		}(i, checker)
	}
	wg.Wait()

	return statuses
}

func (s *HealthService) run(ctx context.Context, checker ports.Checker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("check panicked: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return checker.Check(ctx)
}
