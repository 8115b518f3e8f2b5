package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbrepo "github.com/nodeflow-go/internal/builder/adapters/db/repository"
	"github.com/nodeflow-go/internal/domain/user"
	"github.com/nodeflow-go/internal/domain/workflow"
	nodeconfig "github.com/nodeflow-go/internal/nodeconfig/app/service"
	workflows "github.com/nodeflow-go/internal/workflow/app/service"
	"github.com/nodeflow-go/pkg/apperrors"
	"github.com/nodeflow-go/pkg/config"
	"github.com/nodeflow-go/pkg/database"
	"github.com/nodeflow-go/pkg/events"
	"github.com/nodeflow-go/pkg/logger"
)

type testEnv struct {
	db    *database.DB
	repos *dbrepo.Repositories
	bus   *events.MemoryEventBus
	svc   *ExecutionService
}

func setupTestEnv(t *testing.T) testEnv {
	t.Helper()

	db, err := database.New(config.DatabaseConfig{Driver: database.DriverSQLite, Path: ":memory:"}, logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, dbrepo.Migrate(db))
	t.Cleanup(func() { _ = db.Close() })

	repos := dbrepo.New(db)
	bus := &events.MemoryEventBus{}
	svc := NewExecutionService(db, repos.Workflows, repos.Executions, events.NewPublisher(bus, logger.NewNop()), logger.NewNop())

	return testEnv{db: db, repos: repos, bus: bus, svc: svc}
}

func createWorkflow(t *testing.T, env testEnv) *workflow.Workflow {
	t.Helper()
	ctx := context.Background()

	u := &user.User{Email: "runner@example.com", HashedPassword: "hash"}
	require.NoError(t, env.repos.Users.Create(ctx, u))
	wf := &workflow.Workflow{OwnerID: u.ID, Name: "flow"}
	require.NoError(t, env.repos.Workflows.Create(ctx, wf))
	return wf
}

func statusPtr(s workflow.ExecutionStatus) *workflow.ExecutionStatus { return &s }

func TestExecutionService_Create(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)
	wf := createWorkflow(t, env)

	t.Run("Success", func(t *testing.T) {
		before := time.Now()
		exec, err := env.svc.Create(ctx, CreateExecutionRequest{WorkflowID: wf.ID, InputData: map[string]any{"x": 1}})
		require.NoError(t, err)

		assert.Equal(t, workflow.ExecutionCreated, exec.Status)
		assert.Nil(t, exec.FinishedAt)
		assert.False(t, exec.StartedAt.Before(before.Truncate(time.Microsecond)))
		assert.Contains(t, env.bus.Types(), events.ExecutionCreated)

		stored, err := env.svc.Get(ctx, exec.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, stored.InputData["x"])
		assert.Nil(t, stored.FinishedAt)
	})

	t.Run("MissingWorkflow", func(t *testing.T) {
		exec, err := env.svc.Create(ctx, CreateExecutionRequest{WorkflowID: 999})
		assert.ErrorIs(t, err, apperrors.ErrWorkflowNotFound)
		assert.Nil(t, exec)
	})
}

func TestExecutionService_Update(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)
	wf := createWorkflow(t, env)

	newExecution := func(t *testing.T) *workflow.Execution {
		exec, err := env.svc.Create(ctx, CreateExecutionRequest{WorkflowID: wf.ID})
		require.NoError(t, err)
		return exec
	}

	t.Run("RunningDoesNotStamp", func(t *testing.T) {
		exec := newExecution(t)
		got, err := env.svc.Update(ctx, exec.ID, UpdateExecutionRequest{Status: statusPtr(workflow.ExecutionRunning)})
		require.NoError(t, err)
		assert.Equal(t, workflow.ExecutionRunning, got.Status)
		assert.Nil(t, got.FinishedAt)
	})

	t.Run("TerminalStatusStamps", func(t *testing.T) {
		for _, status := range []workflow.ExecutionStatus{workflow.ExecutionSuccess, workflow.ExecutionFailed} {
			exec := newExecution(t)
			got, err := env.svc.Update(ctx, exec.ID, UpdateExecutionRequest{Status: statusPtr(status)})
			require.NoError(t, err)
			assert.Equal(t, status, got.Status)
			assert.NotNil(t, got.FinishedAt, "status %s", status)
		}
	})

	t.Run("ExplicitFinishedAtWins", func(t *testing.T) {
		exec := newExecution(t)
		at := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
		got, err := env.svc.Update(ctx, exec.ID, UpdateExecutionRequest{Status: statusPtr(workflow.ExecutionSuccess), FinishedAt: &at})
		require.NoError(t, err)
		require.NotNil(t, got.FinishedAt)
		assert.True(t, at.Equal(*got.FinishedAt))
	})

	t.Run("TransitionsAreUnconstrained", func(t *testing.T) {
		exec := newExecution(t)
		_, err := env.svc.Update(ctx, exec.ID, UpdateExecutionRequest{Status: statusPtr(workflow.ExecutionSuccess)})
		require.NoError(t, err)

		got, err := env.svc.Update(ctx, exec.ID, UpdateExecutionRequest{Status: statusPtr(workflow.ExecutionCreated)})
		require.NoError(t, err)
		assert.Equal(t, workflow.ExecutionCreated, got.Status)
	})

	t.Run("UnknownStatus", func(t *testing.T) {
		exec := newExecution(t)
		_, err := env.svc.Update(ctx, exec.ID, UpdateExecutionRequest{Status: statusPtr("paused")})
		assert.ErrorIs(t, err, apperrors.ErrInvalidExecutionStatus)
	})

	t.Run("OutputOnly", func(t *testing.T) {
		exec := newExecution(t)
		msg := "boom"
		got, err := env.svc.Update(ctx, exec.ID, UpdateExecutionRequest{OutputData: map[string]any{"y": "z"}, Error: &msg})
		require.NoError(t, err)
		assert.Equal(t, workflow.ExecutionCreated, got.Status)
		assert.Equal(t, "z", got.OutputData["y"])
		require.NotNil(t, got.Error)
		assert.Equal(t, "boom", *got.Error)
		assert.Nil(t, got.FinishedAt)
	})

	t.Run("EmptyPatchPublishesNothing", func(t *testing.T) {
		exec := newExecution(t)
		published := len(env.bus.Events())

		got, err := env.svc.Update(ctx, exec.ID, UpdateExecutionRequest{})
		require.NoError(t, err)
		assert.Equal(t, exec.Status, got.Status)
		assert.Len(t, env.bus.Events(), published)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := env.svc.Update(ctx, 999, UpdateExecutionRequest{Status: statusPtr(workflow.ExecutionRunning)})
		assert.ErrorIs(t, err, apperrors.ErrExecutionNotFound)
	})
}

func TestExecutionService_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)
	wf := createWorkflow(t, env)
	other := &workflow.Workflow{OwnerID: wf.OwnerID, Name: "other"}
	require.NoError(t, env.repos.Workflows.Create(ctx, other))

	first, err := env.svc.Create(ctx, CreateExecutionRequest{WorkflowID: wf.ID})
	require.NoError(t, err)
	_, err = env.svc.Create(ctx, CreateExecutionRequest{WorkflowID: other.ID})
	require.NoError(t, err)

	all, err := env.svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scoped, err := env.svc.List(ctx, &wf.ID)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, first.ID, scoped[0].ID)

	require.NoError(t, env.svc.Delete(ctx, first.ID))
	assert.ErrorIs(t, env.svc.Delete(ctx, first.ID), apperrors.ErrExecutionNotFound)
	_, err = env.svc.Get(ctx, first.ID)
	assert.ErrorIs(t, err, apperrors.ErrExecutionNotFound)
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)
	log := logger.NewNop()
	publisher := events.NewPublisher(env.bus, log)

	wfSvc := workflows.NewWorkflowService(env.db, env.repos.Users, env.repos.Workflows, publisher, log)
	nodeSvc := workflows.NewNodeService(env.db, env.repos.Workflows, env.repos.Nodes, log)
	edgeSvc := workflows.NewEdgeService(env.db, env.repos.Workflows, env.repos.Nodes, env.repos.Edges, log)
	configSvc := nodeconfig.NewNodeConfigService(env.db, env.repos.Nodes, env.repos.Providers,
		env.repos.InputNodes, env.repos.LLMNodes, env.repos.OutputNodes, log)

	u1 := &user.User{Email: "u1@example.com", HashedPassword: "hash"}
	require.NoError(t, env.repos.Users.Create(ctx, u1))

	w1, err := wfSvc.Create(ctx, u1.ID, "w1")
	require.NoError(t, err)

	n1, err := nodeSvc.Create(ctx, workflows.CreateNodeRequest{WorkflowID: w1.ID, Type: workflow.NodeTypeInput})
	require.NoError(t, err)
	n2, err := nodeSvc.Create(ctx, workflows.CreateNodeRequest{WorkflowID: w1.ID, Type: workflow.NodeTypeOutput})
	require.NoError(t, err)

	_, err = configSvc.CreateInputNode(ctx, nodeconfig.CreateInputNodeRequest{NodeID: n1.ID})
	require.NoError(t, err)
	_, err = configSvc.CreateOutputNode(ctx, nodeconfig.CreateOutputNodeRequest{NodeID: n2.ID})
	require.NoError(t, err)

	_, err = edgeSvc.Create(ctx, w1.ID, n1.ID, n2.ID)
	require.NoError(t, err)

	exec, err := env.svc.Create(ctx, CreateExecutionRequest{WorkflowID: w1.ID, InputData: map[string]any{"x": 1}})
	require.NoError(t, err)
	assert.Equal(t, workflow.ExecutionCreated, exec.Status)

	done, err := env.svc.Update(ctx, exec.ID, UpdateExecutionRequest{
		Status:     statusPtr(workflow.ExecutionSuccess),
		OutputData: map[string]any{"y": 2},
	})
	require.NoError(t, err)
	assert.Equal(t, workflow.ExecutionSuccess, done.Status)
	assert.NotNil(t, done.FinishedAt)
	assert.EqualValues(t, 2, done.OutputData["y"])

	assert.Equal(t, []string{events.WorkflowCreated, events.ExecutionCreated, events.ExecutionUpdated}, env.bus.Types())
}
