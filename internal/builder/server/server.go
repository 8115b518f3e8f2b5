package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	authhandlers "github.com/nodeflow-go/internal/auth/adapters/http/handlers"
	authservice "github.com/nodeflow-go/internal/auth/app/service"
	"github.com/nodeflow-go/internal/builder/adapters/db/repository"
	exechandlers "github.com/nodeflow-go/internal/execution/adapters/http/handlers"
	execservice "github.com/nodeflow-go/internal/execution/app/service"
	"github.com/nodeflow-go/internal/health/adapters/checkers"
	healthhandlers "github.com/nodeflow-go/internal/health/adapters/http/handlers"
	healthservice "github.com/nodeflow-go/internal/health/app/service"
	healthports "github.com/nodeflow-go/internal/health/ports"
	confighandlers "github.com/nodeflow-go/internal/nodeconfig/adapters/http/handlers"
	configservice "github.com/nodeflow-go/internal/nodeconfig/app/service"
	providerhandlers "github.com/nodeflow-go/internal/provider/adapters/http/handlers"
	providerservice "github.com/nodeflow-go/internal/provider/app/service"
	userhandlers "github.com/nodeflow-go/internal/user/adapters/http/handlers"
	userservice "github.com/nodeflow-go/internal/user/app/service"
	workflowhandlers "github.com/nodeflow-go/internal/workflow/adapters/http/handlers"
	workflowservice "github.com/nodeflow-go/internal/workflow/app/service"
	"github.com/nodeflow-go/pkg/auth/jwt"
	"github.com/nodeflow-go/pkg/config"
	"github.com/nodeflow-go/pkg/database"
	"github.com/nodeflow-go/pkg/events"
	"github.com/nodeflow-go/pkg/logger"
	authmw "github.com/nodeflow-go/pkg/middleware/auth"
	"github.com/nodeflow-go/pkg/ratelimit"
	"github.com/nodeflow-go/pkg/resilience"
	"github.com/nodeflow-go/pkg/telemetry"
	"github.com/nodeflow-go/pkg/vault"
)

const serviceName = "builder"

// Dependencies are the connections the server is built on. Redis may be nil;
// revocation and the redis rate limiter are then disabled.
type Dependencies struct {
	DB        *database.DB
	Redis     *redis.Client
	EventBus  events.EventBus
	Telemetry *telemetry.Telemetry
}

type Server struct {
	config     *config.Config
	logger     logger.Logger
	httpServer *http.Server
	router     *gin.Engine
	deps       Dependencies
	monitor    *database.Monitor
	cancel     context.CancelFunc
}

type handlerSet struct {
	auth       *authhandlers.AuthHandlers
	users      *userhandlers.UserHandlers
	workflows  *workflowhandlers.WorkflowHandlers
	configs    *confighandlers.NodeConfigHandlers
	executions *exechandlers.ExecutionHandlers
	providers  *providerhandlers.ProviderHandlers
	health     *healthhandlers.HealthHandlers
}

func New(cfg *config.Config, log logger.Logger, deps Dependencies) (*Server, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database is required")
	}
	if deps.EventBus == nil {
		deps.EventBus = events.NopEventBus{}
	}
	if deps.Telemetry == nil {
		deps.Telemetry = telemetry.NewNop()
	}

	jwtManager, err := jwt.NewManager(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create jwt manager: %w", err)
	}
	cipher, err := vault.New(cfg.Vault.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault: %w", err)
	}
	monitor, err := database.NewMonitor(deps.DB, log, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to register database monitor: %w", err)
	}

	repos := repository.New(deps.DB)
	publisher := events.NewPublisher(deps.EventBus, log)

	// Services
	authService := authservice.NewAuthService(deps.DB, repos.Users, jwtManager, deps.Redis, publisher, log)
	userService := userservice.NewUserService(deps.DB, repos.Users, repos.Workflows, repos.Providers, repos.LLMNodes, publisher, log)
	workflowService := workflowservice.NewWorkflowService(deps.DB, repos.Users, repos.Workflows, publisher, log)
	nodeService := workflowservice.NewNodeService(deps.DB, repos.Workflows, repos.Nodes, log)
	edgeService := workflowservice.NewEdgeService(deps.DB, repos.Workflows, repos.Nodes, repos.Edges, log)
	access := workflowservice.NewAccess(repos.Workflows, repos.Nodes)
	configService := configservice.NewNodeConfigService(deps.DB, repos.Nodes, repos.Providers, repos.InputNodes, repos.LLMNodes, repos.OutputNodes, log)
	executionService := execservice.NewExecutionService(deps.DB, repos.Workflows, repos.Executions, publisher, log)
	providerService := providerservice.NewProviderService(deps.DB, repos.Users, repos.Providers, repos.LLMNodes, cipher, log)
	healthService := healthservice.NewHealthService(healthCheckers(cfg, deps, log), cfg.Health.Timeout(), log)

	h := handlerSet{
		auth:       authhandlers.NewAuthHandlers(authService, log),
		users:      userhandlers.NewUserHandlers(userService, log),
		workflows:  workflowhandlers.NewWorkflowHandlers(workflowService, nodeService, edgeService, access, log),
		configs:    confighandlers.NewNodeConfigHandlers(configService, access, log),
		executions: exechandlers.NewExecutionHandlers(executionService, access, log),
		providers:  providerhandlers.NewProviderHandlers(providerService, log),
		health:     healthhandlers.NewHealthHandlers(healthService),
	}

	jwtMiddleware := authmw.NewJWTMiddleware(jwtManager, deps.Redis, authService.ResolveUserID)
	router := setupRouter(cfg, log, deps, h, jwtMiddleware)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	return &Server{
		config:     cfg,
		logger:     log,
		httpServer: httpServer,
		router:     router,
		deps:       deps,
		monitor:    monitor,
	}, nil
}

// healthCheckers lists the readiness probes. HTTP dependencies sit behind a
// circuit breaker each.
func healthCheckers(cfg *config.Config, deps Dependencies, log logger.Logger) []healthports.Checker {
	client := &http.Client{Timeout: cfg.Health.Timeout()}
	return []healthports.Checker{
		checkers.NewDatabaseChecker(databaseCheckName(cfg.Database.Driver), deps.DB),
		checkers.NewRedisChecker(deps.Redis),
		checkers.NewHTTPChecker("chroma", cfg.Health.ChromaURL, "/api/v2/heartbeat", client,
			resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("chroma"), log)),
		checkers.NewHTTPChecker("prefect", cfg.Health.PrefectURL, "/api/health", client,
			resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("prefect"), log)),
	}
}

func databaseCheckName(driver string) string {
	if driver == database.DriverSQLite {
		return "sqlite"
	}
	return "postgres"
}

func setupRouter(cfg *config.Config, log logger.Logger, deps Dependencies, h handlerSet, jwtMiddleware *authmw.JWTMiddleware) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(corsMiddleware())
	router.Use(deps.Telemetry.HTTPMiddleware())
	router.Use(loggingMiddleware(log))
	router.Use(metricsMiddleware())

	// Health checks
	router.GET("/health/liveness", h.health.Liveness)
	router.GET("/health/readiness", h.health.Readiness)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authenticated := jwtMiddleware.Handle()

	auth := router.Group("/auth")
	{
		limited := auth.Group("")
		if cfg.RateLimit.Enabled {
			limited.Use(ratelimit.Middleware(newLimiter(cfg, deps), ratelimit.IPKeyFunc))
		}
		limited.POST("/register", h.auth.Register)
		limited.POST("/login", h.auth.Login)
		auth.POST("/logout", authenticated, h.auth.Logout)
	}

	api := router.Group("", authenticated)

	users := api.Group("/users")
	{
		users.GET("/me", h.users.GetCurrentUser)
		users.DELETE("/me", h.users.DeleteCurrentUser)
	}

	workflows := api.Group("/workflows")
	{
		workflows.POST("", h.workflows.CreateWorkflow)
		workflows.GET("", h.workflows.ListWorkflows)
		workflows.GET("/:id", h.workflows.GetWorkflow)
		workflows.PATCH("/:id", h.workflows.UpdateWorkflow)
		workflows.DELETE("/:id", h.workflows.DeleteWorkflow)
	}

	nodes := api.Group("/nodes")
	{
		nodes.POST("", h.workflows.CreateNode)
		nodes.GET("", h.workflows.ListNodes)
		nodes.GET("/:id", h.workflows.GetNode)
		nodes.PATCH("/:id", h.workflows.UpdateNode)
		nodes.DELETE("/:id", h.workflows.DeleteNode)
	}

	edges := api.Group("/edges")
	{
		edges.POST("", h.workflows.CreateEdge)
		edges.GET("", h.workflows.ListEdges)
		edges.GET("/:id", h.workflows.GetEdge)
		edges.PATCH("/:id", h.workflows.UpdateEdge)
		edges.DELETE("/:id", h.workflows.DeleteEdge)
	}

	inputs := api.Group("/input-nodes")
	{
		inputs.POST("", h.configs.CreateInputNode)
		inputs.GET("", h.configs.ListInputNodes)
		inputs.GET("/:id", h.configs.GetInputNode)
		inputs.PATCH("/:id", h.configs.UpdateInputNode)
		inputs.DELETE("/:id", h.configs.DeleteInputNode)
	}

	llms := api.Group("/llm-nodes")
	{
		llms.POST("", h.configs.CreateLLMNode)
		llms.GET("", h.configs.ListLLMNodes)
		llms.GET("/:id", h.configs.GetLLMNode)
		llms.PATCH("/:id", h.configs.UpdateLLMNode)
		llms.DELETE("/:id", h.configs.DeleteLLMNode)
	}

	outputs := api.Group("/output-nodes")
	{
		outputs.POST("", h.configs.CreateOutputNode)
		outputs.GET("", h.configs.ListOutputNodes)
		outputs.GET("/:id", h.configs.GetOutputNode)
		outputs.PATCH("/:id", h.configs.UpdateOutputNode)
		outputs.DELETE("/:id", h.configs.DeleteOutputNode)
	}

	executions := api.Group("/executions")
	{
		executions.POST("", h.executions.CreateExecution)
		executions.GET("", h.executions.ListExecutions)
		executions.GET("/:id", h.executions.GetExecution)
		executions.PATCH("/:id", h.executions.UpdateExecution)
		executions.DELETE("/:id", h.executions.DeleteExecution)
	}

	providers := api.Group("/llm-providers")
	{
		providers.POST("", h.providers.CreateProvider)
		providers.GET("", h.providers.ListProviders)
		providers.GET("/:id", h.providers.GetProvider)
		providers.PATCH("/:id", h.providers.UpdateProvider)
		providers.DELETE("/:id", h.providers.DeleteProvider)
	}

	return router
}

// newLimiter shares the budget across replicas through redis when it is
// available and falls back to an in-process token bucket otherwise.
func newLimiter(cfg *config.Config, deps Dependencies) ratelimit.RateLimiter {
	if deps.Redis != nil {
		return ratelimit.NewRedisRateLimiter(deps.Redis, cfg.RateLimit.Burst, time.Second)
	}
	return ratelimit.NewKeyedTokenBucketLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.monitor.Run(ctx)

	s.logger.Info("Starting HTTP server", "service", serviceName, "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	if s.cancel != nil {
		s.cancel()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	if err := s.deps.EventBus.Close(); err != nil {
		s.logger.Error("Failed to close event bus", "error", err)
	}

	if s.deps.Redis != nil {
		if err := s.deps.Redis.Close(); err != nil {
			s.logger.Error("Failed to close Redis", "error", err)
		}
	}

	if err := s.deps.Telemetry.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to flush traces", "error", err)
	}

	if err := s.deps.DB.Close(); err != nil {
		s.logger.Error("Failed to close database", "error", err)
	}

	return nil
}
