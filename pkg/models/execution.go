package models

import "time"

// ExecutionStatus defines the possible states of a workflow execution.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// Execution is one run instance of a workflow. The execution side owns
// these records; the editor only displays them.
type Execution struct {
	ID           string          `json:"id"`
	WorkflowID   string          `json:"workflow_id"`
	Status       ExecutionStatus `json:"status"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   *time.Time      `json:"finished_at,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// NodeResult records the outcome of a single node visit during an
// execution. Failures are branch-local: a failed node stops its own
// branch but never aborts siblings.
type NodeResult struct {
	NodeID    string         `json:"node_id"`
	Status    ExecutionStatus `json:"status"`
	Data      map[string]any `json:"data,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
