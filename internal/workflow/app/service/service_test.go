package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	dbrepo "github.com/nodeflow-go/internal/builder/adapters/db/repository"
	"github.com/nodeflow-go/internal/domain/user"
	"github.com/nodeflow-go/internal/domain/workflow"
	"github.com/nodeflow-go/pkg/apperrors"
	"github.com/nodeflow-go/pkg/config"
	"github.com/nodeflow-go/pkg/database"
	"github.com/nodeflow-go/pkg/events"
	"github.com/nodeflow-go/pkg/logger"
	"github.com/nodeflow-go/pkg/repository"
)

type services struct {
	repos     *dbrepo.Repositories
	bus       *events.MemoryEventBus
	workflows *WorkflowService
	nodes     *NodeService
	edges     *EdgeService
}

func setupTestServices(t *testing.T) services {
	t.Helper()

	db, err := database.New(config.DatabaseConfig{Driver: database.DriverSQLite, Path: ":memory:"}, logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, dbrepo.Migrate(db))
	t.Cleanup(func() { _ = db.Close() })

	repos := dbrepo.New(db)
	log := logger.NewNop()
	bus := &events.MemoryEventBus{}
	publisher := events.NewPublisher(bus, log)

	return services{
		repos:     repos,
		bus:       bus,
		workflows: NewWorkflowService(db, repos.Users, repos.Workflows, publisher, log),
		nodes:     NewNodeService(db, repos.Workflows, repos.Nodes, log),
		edges:     NewEdgeService(db, repos.Workflows, repos.Nodes, repos.Edges, log),
	}
}

func createUser(t *testing.T, s services, email string) *user.User {
	t.Helper()
	u := &user.User{Email: email, HashedPassword: "hash"}
	require.NoError(t, s.repos.Users.Create(context.Background(), u))
	return u
}

func createNode(t *testing.T, s services, workflowID int64, nodeType workflow.NodeType) *workflow.Node {
	t.Helper()
	n, err := s.nodes.Create(context.Background(), CreateNodeRequest{WorkflowID: workflowID, Type: nodeType})
	require.NoError(t, err)
	return n
}

func TestWorkflowService(t *testing.T) {
	ctx := context.Background()

	t.Run("Create", func(t *testing.T) {
		s := setupTestServices(t)
		owner := createUser(t, s, "owner@example.com")

		wf, err := s.workflows.Create(ctx, owner.ID, "summarize")
		require.NoError(t, err)
		assert.NotZero(t, wf.ID)
		assert.Equal(t, owner.ID, wf.OwnerID)
		assert.Equal(t, "summarize", wf.Name)
		assert.Equal(t, []string{events.WorkflowCreated}, s.bus.Types())
	})

	t.Run("CreateForMissingUser", func(t *testing.T) {
		s := setupTestServices(t)

		wf, err := s.workflows.Create(ctx, 42, "orphan")
		assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
		assert.Nil(t, wf)
		assert.Empty(t, s.bus.Events())
	})

	t.Run("ListFiltersByOwner", func(t *testing.T) {
		s := setupTestServices(t)
		alice := createUser(t, s, "alice@example.com")
		bob := createUser(t, s, "bob@example.com")
		_, err := s.workflows.Create(ctx, alice.ID, "a")
		require.NoError(t, err)
		_, err = s.workflows.Create(ctx, bob.ID, "b")
		require.NoError(t, err)

		all, err := s.workflows.List(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		mine, err := s.workflows.List(ctx, &alice.ID)
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, "a", mine[0].Name)
	})

	t.Run("GetOwnedHidesForeignWorkflows", func(t *testing.T) {
		s := setupTestServices(t)
		alice := createUser(t, s, "alice@example.com")
		bob := createUser(t, s, "bob@example.com")
		wf, err := s.workflows.Create(ctx, alice.ID, "private")
		require.NoError(t, err)

		_, err = s.workflows.GetOwned(ctx, wf.ID, bob.ID)
		assert.ErrorIs(t, err, apperrors.ErrWorkflowNotFound)

		got, err := s.workflows.GetOwned(ctx, wf.ID, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, wf.ID, got.ID)
	})

	t.Run("Update", func(t *testing.T) {
		s := setupTestServices(t)
		owner := createUser(t, s, "owner@example.com")
		wf, err := s.workflows.Create(ctx, owner.ID, "draft")
		require.NoError(t, err)

		name := "final"
		updated, err := s.workflows.Update(ctx, wf.ID, UpdateWorkflowRequest{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, "final", updated.Name)

		unchanged, err := s.workflows.Update(ctx, wf.ID, UpdateWorkflowRequest{})
		require.NoError(t, err)
		assert.Equal(t, "final", unchanged.Name)

		_, err = s.workflows.Update(ctx, wf.ID+100, UpdateWorkflowRequest{Name: &name})
		assert.ErrorIs(t, err, apperrors.ErrWorkflowNotFound)
	})

	t.Run("DeleteCascades", func(t *testing.T) {
		s := setupTestServices(t)
		owner := createUser(t, s, "owner@example.com")
		wf, err := s.workflows.Create(ctx, owner.ID, "doomed")
		require.NoError(t, err)
		a := createNode(t, s, wf.ID, workflow.NodeTypeInput)
		b := createNode(t, s, wf.ID, workflow.NodeTypeOutput)
		_, err = s.edges.Create(ctx, wf.ID, a.ID, b.ID)
		require.NoError(t, err)

		require.NoError(t, s.workflows.Delete(ctx, wf.ID))

		nodes, err := s.nodes.List(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, nodes)
		edges, err := s.edges.List(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, edges)

		assert.ErrorIs(t, s.workflows.Delete(ctx, wf.ID), apperrors.ErrWorkflowNotFound)
	})
}

func TestNodeService(t *testing.T) {
	ctx := context.Background()

	t.Run("CreateDefaultsData", func(t *testing.T) {
		s := setupTestServices(t)
		owner := createUser(t, s, "owner@example.com")
		wf, err := s.workflows.Create(ctx, owner.ID, "flow")
		require.NoError(t, err)

		n, err := s.nodes.Create(ctx, CreateNodeRequest{WorkflowID: wf.ID, Type: workflow.NodeTypeLLM, PositionX: 10, PositionY: 20})
		require.NoError(t, err)
		assert.Equal(t, workflow.NodeTypeLLM, n.Type)
		assert.NotNil(t, n.Data)
		assert.Empty(t, n.Data)

		got, err := s.nodes.Get(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, 10.0, got.PositionX)
		assert.Equal(t, 20.0, got.PositionY)
	})

	t.Run("CreateRejectsUnknownType", func(t *testing.T) {
		s := setupTestServices(t)
		_, err := s.nodes.Create(ctx, CreateNodeRequest{WorkflowID: 1, Type: "router"})
		assert.ErrorIs(t, err, apperrors.ErrInvalidNodeType)
	})

	t.Run("CreateInMissingWorkflow", func(t *testing.T) {
		s := setupTestServices(t)
		_, err := s.nodes.Create(ctx, CreateNodeRequest{WorkflowID: 7, Type: workflow.NodeTypeInput})
		assert.ErrorIs(t, err, apperrors.ErrWorkflowNotFound)
	})

	t.Run("UpdateKeepsType", func(t *testing.T) {
		s := setupTestServices(t)
		owner := createUser(t, s, "owner@example.com")
		wf, err := s.workflows.Create(ctx, owner.ID, "flow")
		require.NoError(t, err)
		n := createNode(t, s, wf.ID, workflow.NodeTypeInput)

		x := 99.5
		updated, err := s.nodes.Update(ctx, n.ID, UpdateNodeRequest{
			Data:      map[string]any{"label": "question"},
			PositionX: &x,
		})
		require.NoError(t, err)
		assert.Equal(t, workflow.NodeTypeInput, updated.Type)
		assert.Equal(t, 99.5, updated.PositionX)
		assert.Equal(t, "question", updated.Data["label"])
	})

	t.Run("ListByWorkflow", func(t *testing.T) {
		s := setupTestServices(t)
		owner := createUser(t, s, "owner@example.com")
		first, err := s.workflows.Create(ctx, owner.ID, "first")
		require.NoError(t, err)
		second, err := s.workflows.Create(ctx, owner.ID, "second")
		require.NoError(t, err)
		createNode(t, s, first.ID, workflow.NodeTypeInput)
		createNode(t, s, first.ID, workflow.NodeTypeOutput)
		createNode(t, s, second.ID, workflow.NodeTypeInput)

		nodes, err := s.nodes.List(ctx, &first.ID)
		require.NoError(t, err)
		assert.Len(t, nodes, 2)
		assert.Less(t, nodes[0].ID, nodes[1].ID)
	})

	t.Run("DeleteMissing", func(t *testing.T) {
		s := setupTestServices(t)
		assert.ErrorIs(t, s.nodes.Delete(ctx, 1), apperrors.ErrNodeNotFound)
	})
}

func TestEdgeService_Create(t *testing.T) {
	ctx := context.Background()
	s := setupTestServices(t)
	owner := createUser(t, s, "owner@example.com")
	wf, err := s.workflows.Create(ctx, owner.ID, "main")
	require.NoError(t, err)
	other, err := s.workflows.Create(ctx, owner.ID, "other")
	require.NoError(t, err)

	a := createNode(t, s, wf.ID, workflow.NodeTypeInput)
	b := createNode(t, s, wf.ID, workflow.NodeTypeLLM)
	foreign := createNode(t, s, other.ID, workflow.NodeTypeOutput)

	tests := []struct {
		name       string
		workflowID int64
		source     int64
		target     int64
		want       error
	}{
		{"MissingWorkflow", 999, a.ID, b.ID, apperrors.ErrWorkflowNotFound},
		{"MissingWorkflowWinsOverMissingNodes", 999, 998, 997, apperrors.ErrWorkflowNotFound},
		{"MissingSource", wf.ID, 998, b.ID, apperrors.ErrNodeNotFound},
		{"MissingTarget", wf.ID, a.ID, 998, apperrors.ErrNodeNotFound},
		{"ForeignSource", wf.ID, foreign.ID, b.ID, apperrors.ErrEdgeNodeMismatch},
		{"ForeignTarget", wf.ID, a.ID, foreign.ID, apperrors.ErrEdgeNodeMismatch},
		{"MissingTargetWinsOverForeignSource", wf.ID, foreign.ID, 998, apperrors.ErrNodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edge, err := s.edges.Create(ctx, tt.workflowID, tt.source, tt.target)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, edge)
		})
	}

	edges, err := s.edges.List(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, edges, "rejected edges must not be stored")

	t.Run("Success", func(t *testing.T) {
		edge, err := s.edges.Create(ctx, wf.ID, a.ID, b.ID)
		require.NoError(t, err)
		assert.Equal(t, wf.ID, edge.WorkflowID)
		assert.Equal(t, a.ID, edge.SourceNodeID)
		assert.Equal(t, b.ID, edge.TargetNodeID)
	})

	t.Run("SelfLoop", func(t *testing.T) {
		edge, err := s.edges.Create(ctx, wf.ID, a.ID, a.ID)
		require.NoError(t, err)
		assert.Equal(t, edge.SourceNodeID, edge.TargetNodeID)
	})
}

func TestEdgeService_Update(t *testing.T) {
	ctx := context.Background()
	s := setupTestServices(t)
	owner := createUser(t, s, "owner@example.com")
	wf, err := s.workflows.Create(ctx, owner.ID, "main")
	require.NoError(t, err)
	other, err := s.workflows.Create(ctx, owner.ID, "other")
	require.NoError(t, err)

	a := createNode(t, s, wf.ID, workflow.NodeTypeInput)
	b := createNode(t, s, wf.ID, workflow.NodeTypeLLM)
	c := createNode(t, s, wf.ID, workflow.NodeTypeOutput)
	foreign := createNode(t, s, other.ID, workflow.NodeTypeOutput)

	edge, err := s.edges.Create(ctx, wf.ID, a.ID, b.ID)
	require.NoError(t, err)

	t.Run("RetargetWithinWorkflow", func(t *testing.T) {
		updated, err := s.edges.Update(ctx, edge.ID, UpdateEdgeRequest{TargetNodeID: &c.ID})
		require.NoError(t, err)
		assert.Equal(t, a.ID, updated.SourceNodeID)
		assert.Equal(t, c.ID, updated.TargetNodeID)
	})

	t.Run("RejectForeignNode", func(t *testing.T) {
		_, err := s.edges.Update(ctx, edge.ID, UpdateEdgeRequest{SourceNodeID: &foreign.ID})
		assert.ErrorIs(t, err, apperrors.ErrEdgeNodeMismatch)

		stored, err := s.edges.Get(ctx, edge.ID)
		require.NoError(t, err)
		assert.Equal(t, a.ID, stored.SourceNodeID)
	})

	t.Run("RejectMissingNode", func(t *testing.T) {
		missing := int64(12345)
		_, err := s.edges.Update(ctx, edge.ID, UpdateEdgeRequest{TargetNodeID: &missing})
		assert.ErrorIs(t, err, apperrors.ErrNodeNotFound)
	})

	t.Run("EmptyPatch", func(t *testing.T) {
		got, err := s.edges.Update(ctx, edge.ID, UpdateEdgeRequest{})
		require.NoError(t, err)
		assert.Equal(t, edge.ID, got.ID)
	})

	t.Run("MissingEdge", func(t *testing.T) {
		_, err := s.edges.Update(ctx, 999, UpdateEdgeRequest{SourceNodeID: &a.ID})
		assert.ErrorIs(t, err, apperrors.ErrEdgeNotFound)
	})

	t.Run("DeletingNodeRemovesEdge", func(t *testing.T) {
		require.NoError(t, s.nodes.Delete(ctx, a.ID))
		_, err := s.edges.Get(ctx, edge.ID)
		assert.ErrorIs(t, err, apperrors.ErrEdgeNotFound)
	})
}

// MockEdgeRepository is a mock implementation of ports.EdgeRepository
type MockEdgeRepository struct {
	mock.Mock
}

func (m *MockEdgeRepository) Create(ctx context.Context, e *workflow.Edge) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockEdgeRepository) GetBy(ctx context.Context, filters repository.Filters) (*workflow.Edge, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workflow.Edge), args.Error(1)
}

func (m *MockEdgeRepository) GetAll(ctx context.Context, filters repository.Filters) ([]*workflow.Edge, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*workflow.Edge), args.Error(1)
}

func (m *MockEdgeRepository) UpdateBy(ctx context.Context, filters repository.Filters, fields map[string]any) (*workflow.Edge, error) {
	args := m.Called(ctx, filters, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workflow.Edge), args.Error(1)
}

func (m *MockEdgeRepository) DeleteBy(ctx context.Context, filters repository.Filters) (bool, error) {
	args := m.Called(ctx, filters)
	return args.Bool(0), args.Error(1)
}

type passthroughTx struct{}

func (passthroughTx) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func TestEdgeService_EmptyPatchDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	edges := new(MockEdgeRepository)
	svc := NewEdgeService(passthroughTx{}, nil, nil, edges, logger.NewNop())

	stored := &workflow.Edge{ID: 3, WorkflowID: 1, SourceNodeID: 4, TargetNodeID: 5}
	edges.On("GetBy", ctx, repository.Filters{"id": int64(3)}).Return(stored, nil).Once()

	got, err := svc.Update(ctx, 3, UpdateEdgeRequest{})
	require.NoError(t, err)
	assert.Equal(t, stored, got)

	edges.AssertExpectations(t)
	edges.AssertNotCalled(t, "UpdateBy", mock.Anything, mock.Anything, mock.Anything)
}

func TestAccess(t *testing.T) {
	ctx := context.Background()
	s := setupTestServices(t)
	access := NewAccess(s.repos.Workflows, s.repos.Nodes)

	owner := createUser(t, s, "owner@example.com")
	other := createUser(t, s, "other@example.com")
	wf, err := s.workflows.Create(ctx, owner.ID, "mine")
	require.NoError(t, err)
	n := createNode(t, s, wf.ID, workflow.NodeTypeInput)

	assert.NoError(t, access.Workflow(ctx, wf.ID, owner.ID))
	assert.ErrorIs(t, access.Workflow(ctx, wf.ID, other.ID), apperrors.ErrWorkflowNotFound)

	assert.NoError(t, access.Node(ctx, n.ID, owner.ID))
	assert.ErrorIs(t, access.Node(ctx, n.ID, other.ID), apperrors.ErrNodeNotFound)
	assert.ErrorIs(t, access.Node(ctx, 999, owner.ID), apperrors.ErrNodeNotFound)

	ids, err := access.WorkflowIDs(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{wf.ID}, ids)

	nodes, err := access.NodeIDs(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, map[int64]bool{n.ID: true}, nodes)

	nodes, err = access.NodeIDs(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, nodes)
}
