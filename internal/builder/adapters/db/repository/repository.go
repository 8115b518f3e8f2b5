// Package repository wires the generic gorm repository to every builder table.
package repository

import (
	"github.com/nodeflow-go/internal/domain/node"
	"github.com/nodeflow-go/internal/domain/provider"
	"github.com/nodeflow-go/internal/domain/user"
	"github.com/nodeflow-go/internal/domain/workflow"
	"github.com/nodeflow-go/pkg/database"
	"github.com/nodeflow-go/pkg/repository"
)

type Repositories struct {
	Users       *repository.GormRepository[user.User]
	Workflows   *repository.GormRepository[workflow.Workflow]
	Nodes       *repository.GormRepository[workflow.Node]
	Edges       *repository.GormRepository[workflow.Edge]
	Executions  *repository.GormRepository[workflow.Execution]
	Providers   *repository.GormRepository[provider.LLMProvider]
	InputNodes  *repository.GormRepository[node.InputNode]
	LLMNodes    *repository.GormRepository[node.LLMNode]
	OutputNodes *repository.GormRepository[node.OutputNode]
}

func New(db *database.DB) *Repositories {
	return &Repositories{
		Users:       repository.New[user.User](db, "id"),
		Workflows:   repository.New[workflow.Workflow](db, "id"),
		Nodes:       repository.New[workflow.Node](db, "id"),
		Edges:       repository.New[workflow.Edge](db, "id"),
		Executions:  repository.New[workflow.Execution](db, "id"),
		Providers:   repository.New[provider.LLMProvider](db, "id"),
		InputNodes:  repository.New[node.InputNode](db, "node_id"),
		LLMNodes:    repository.New[node.LLMNode](db, "node_id"),
		OutputNodes: repository.New[node.OutputNode](db, "node_id"),
	}
}

// Models lists every persisted type in dependency order.
func Models() []interface{} {
	return []interface{}{
		&user.User{},
		&workflow.Workflow{},
		&provider.LLMProvider{},
		&workflow.Node{},
		&workflow.Edge{},
		&workflow.Execution{},
		&node.InputNode{},
		&node.LLMNode{},
		&node.OutputNode{},
	}
}

func Migrate(db *database.DB) error {
	return db.Migrate(Models()...)
}
