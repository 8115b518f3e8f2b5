// Package node holds the per-type configuration records attached one-to-one
// to workflow nodes.
package node

import (
	"github.com/nodeflow-go/internal/domain/provider"
	"github.com/nodeflow-go/internal/domain/workflow"
)

type InputFormat string

const InputFormatText InputFormat = "text"

func (f InputFormat) Valid() bool { return f == InputFormatText }

type OutputFormat string

const OutputFormatText OutputFormat = "text"

func (f OutputFormat) Valid() bool { return f == OutputFormatText }

const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1024
)

type InputNode struct {
	NodeID int64          `json:"node_id" gorm:"primaryKey;autoIncrement:false"`
	Node   *workflow.Node `json:"-" gorm:"foreignKey:NodeID;constraint:OnDelete:CASCADE"`
	Format InputFormat    `json:"format" gorm:"size:16;not null"`
}

func (InputNode) TableName() string { return "input_nodes" }

type LLMNode struct {
	NodeID        int64                 `json:"node_id" gorm:"primaryKey;autoIncrement:false"`
	Node          *workflow.Node        `json:"-" gorm:"foreignKey:NodeID;constraint:OnDelete:CASCADE"`
	LLMProviderID int64                 `json:"llm_provider_id" gorm:"not null;index"`
	LLMProvider   *provider.LLMProvider `json:"-" gorm:"foreignKey:LLMProviderID;constraint:OnDelete:RESTRICT"`
	Model         string                `json:"model" gorm:"size:128;not null"`
	Temperature   float64               `json:"temperature"`
	MaxTokens     int                   `json:"max_tokens"`
}

func (LLMNode) TableName() string { return "llm_nodes" }

type OutputNode struct {
	NodeID int64          `json:"node_id" gorm:"primaryKey;autoIncrement:false"`
	Node   *workflow.Node `json:"-" gorm:"foreignKey:NodeID;constraint:OnDelete:CASCADE"`
	Format OutputFormat   `json:"format" gorm:"size:16;not null"`
}

func (OutputNode) TableName() string { return "output_nodes" }
