package workflow

import (
	"time"

	"github.com/nodeflow-go/internal/domain/user"
	"github.com/nodeflow-go/pkg/database"
)

type Workflow struct {
	ID        int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	OwnerID   int64      `json:"owner_id" gorm:"not null;index"`
	Owner     *user.User `json:"-" gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
	Name      string     `json:"name" gorm:"size:255;not null"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Workflow) TableName() string { return "workflows" }

// NodeType is fixed when a node is created and selects which configuration
// table may hold its details.
type NodeType string

const (
	NodeTypeInput  NodeType = "input"
	NodeTypeLLM    NodeType = "llm"
	NodeTypeOutput NodeType = "output"
)

func (t NodeType) Valid() bool {
	switch t {
	case NodeTypeInput, NodeTypeLLM, NodeTypeOutput:
		return true
	}
	return false
}

type Node struct {
	ID         int64            `json:"id" gorm:"primaryKey;autoIncrement"`
	WorkflowID int64            `json:"workflow_id" gorm:"not null;index"`
	Workflow   *Workflow        `json:"-" gorm:"foreignKey:WorkflowID;constraint:OnDelete:CASCADE"`
	Type       NodeType         `json:"type" gorm:"size:16;not null"`
	Data       database.JSONMap `json:"data"`
	PositionX  float64          `json:"position_x"`
	PositionY  float64          `json:"position_y"`
}

func (Node) TableName() string { return "nodes" }

// Edge connects two nodes of the same workflow.
type Edge struct {
	ID           int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	WorkflowID   int64     `json:"workflow_id" gorm:"not null;index"`
	Workflow     *Workflow `json:"-" gorm:"foreignKey:WorkflowID;constraint:OnDelete:CASCADE"`
	SourceNodeID int64     `json:"source_node_id" gorm:"not null;index"`
	SourceNode   *Node     `json:"-" gorm:"foreignKey:SourceNodeID;constraint:OnDelete:CASCADE"`
	TargetNodeID int64     `json:"target_node_id" gorm:"not null;index"`
	TargetNode   *Node     `json:"-" gorm:"foreignKey:TargetNodeID;constraint:OnDelete:CASCADE"`
}

func (Edge) TableName() string { return "edges" }
