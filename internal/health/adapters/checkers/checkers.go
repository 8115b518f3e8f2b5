// Package checkers provides readiness probes for the builder's dependencies.
package checkers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/nodeflow-go/pkg/resilience"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type DatabaseChecker struct {
	name string
	db   Pinger
}

func NewDatabaseChecker(name string, db Pinger) *DatabaseChecker {
	return &DatabaseChecker{name: name, db: db}
}

func (c *DatabaseChecker) Name() string { return c.name }

func (c *DatabaseChecker) Check(ctx context.Context) error {
	return c.db.Ping(ctx)
}

type RedisChecker struct {
	client *redis.Client
}

func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Name() string { return "redis" }

func (c *RedisChecker) Check(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("redis is not configured")
	}
	return c.client.Ping(ctx).Err()
}

// HTTPChecker expects a 2xx answer from baseURL+path. Calls go through a
// circuit breaker so a dead dependency is reported without waiting on it.
type HTTPChecker struct {
	name    string
	url     string
	client  *http.Client
	breaker *resilience.CircuitBreaker
}

func NewHTTPChecker(name, baseURL, path string, client *http.Client, breaker *resilience.CircuitBreaker) *HTTPChecker {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPChecker{
		name:    name,
		url:     strings.TrimRight(baseURL, "/") + path,
		client:  client,
		breaker: breaker,
	}
}

func (c *HTTPChecker) Name() string { return c.name }

func (c *HTTPChecker) Check(ctx context.Context) error {
	if c.breaker == nil {
		return c.get(ctx)
	}
	return c.breaker.Do(ctx, c.get)
}

func (c *HTTPChecker) get(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s answered %d", c.url, resp.StatusCode)
	}
	return nil
}
