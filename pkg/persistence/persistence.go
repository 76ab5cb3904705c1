// Package persistence provides the storage abstraction for workflows
// and their execution history.
package persistence

import (
	"context"

	"github.com/atelierhq/flowbuilder/pkg/models"
)

// Persistence is the storage backend contract. Implementations exist
// for the file system, PostgreSQL, and Redis.
type Persistence interface {
	Workflows(ctx context.Context) ([]*models.Workflow, error)
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	DeleteWorkflow(ctx context.Context, id string) error

	// Executions are append-mostly: a run is appended as running, then
	// updated once with its terminal status.
	AppendExecution(ctx context.Context, execution *models.Execution) error
	UpdateExecution(ctx context.Context, execution *models.Execution) error
	// ExecutionsByWorkflow returns up to limit executions, newest first.
	ExecutionsByWorkflow(ctx context.Context, workflowID string, limit int) ([]*models.Execution, error)

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// DefaultExecutionLimit bounds execution history reads when the caller
// does not pick a limit.
const DefaultExecutionLimit = 20
