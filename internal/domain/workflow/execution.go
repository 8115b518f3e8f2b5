package workflow

import (
	"time"

	"github.com/nodeflow-go/pkg/database"
)

// ExecutionStatus is the modeled lifecycle of an execution:
// created -> running -> success | failed. Transitions are not enforced.
type ExecutionStatus string

const (
	ExecutionCreated ExecutionStatus = "created"
	ExecutionRunning ExecutionStatus = "running"
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionFailed  ExecutionStatus = "failed"
)

func (s ExecutionStatus) Valid() bool {
	switch s {
	case ExecutionCreated, ExecutionRunning, ExecutionSuccess, ExecutionFailed:
		return true
	}
	return false
}

// IsTerminal reports whether reaching s completes the execution.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionSuccess || s == ExecutionFailed
}

type Execution struct {
	ID         int64            `json:"id" gorm:"primaryKey;autoIncrement"`
	WorkflowID int64            `json:"workflow_id" gorm:"not null;index"`
	Workflow   *Workflow        `json:"-" gorm:"foreignKey:WorkflowID;constraint:OnDelete:CASCADE"`
	Status     ExecutionStatus  `json:"status" gorm:"size:16;not null"`
	InputData  database.JSONMap `json:"input_data"`
	OutputData database.JSONMap `json:"output_data"`
	Error      *string          `json:"error" gorm:"type:text"`
	StartedAt  time.Time        `json:"started_at" gorm:"not null"`
	FinishedAt *time.Time       `json:"finished_at"`
}

func (Execution) TableName() string { return "executions" }
