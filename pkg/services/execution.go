package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/atelierhq/flowbuilder/pkg/eventbus"
	"github.com/atelierhq/flowbuilder/pkg/events"
	"github.com/atelierhq/flowbuilder/pkg/models"
	"github.com/atelierhq/flowbuilder/pkg/persistence"
	"github.com/google/uuid"
)

// Execution dispatches workflow runs and reads execution history. Runs
// are asynchronous: the service records a running execution and
// publishes a run request for a worker to pick up.
type Execution struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
}

// NewExecution creates a new execution service.
func NewExecution(p persistence.Persistence, publisher eventbus.EventPublisher, logger *slog.Logger) *Execution {
	if logger == nil {
		logger = slog.Default()
	}

	return &Execution{
		persistence: p,
		publisher:   publisher,
		logger:      logger.With("module", "services"),
	}
}

// Run records a running execution for the workflow and publishes a run
// request. The entity snapshot rides along on the event.
func (e *Execution) Run(ctx context.Context, workflowID string, entity models.Entity) (*models.Execution, error) {
	workflow, err := e.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if !workflow.IsActive {
		return nil, NewValidationError("Run", "workflow must be active to run", ErrWorkflowInactive)
	}

	// One run at a time per workflow. The worker flips the newest
	// record to a terminal status, which releases the next run.
	latest, err := e.persistence.ExecutionsByWorkflow(ctx, workflow.ID, 1)
	if err != nil {
		return nil, err
	}

	if len(latest) > 0 && latest[0].Status == models.ExecutionStatusRunning {
		return nil, NewValidationError("Run", "workflow already has a running execution", ErrRunInProgress)
	}

	execution := &models.Execution{
		ID:         uuid.New().String(),
		WorkflowID: workflow.ID,
		Status:     models.ExecutionStatusRunning,
		StartedAt:  time.Now().UTC(),
	}

	if err := e.persistence.AppendExecution(ctx, execution); err != nil {
		return nil, fmt.Errorf("failed to record execution: %w", err)
	}

	event := events.WorkflowRunRequested{
		BaseEvent:   events.NewBaseEvent(events.WorkflowRunRequestedEvent, workflow.ID),
		ExecutionID: execution.ID,
		Entity:      entity,
	}

	if err := e.publisher.Publish(ctx, workflow.ID, event); err != nil {
		return nil, fmt.Errorf("failed to publish run request: %w", err)
	}

	e.logger.InfoContext(ctx, "workflow run requested",
		"workflow_id", workflow.ID, "execution_id", execution.ID)

	return execution, nil
}

// List returns up to limit executions for a workflow, newest first.
func (e *Execution) List(ctx context.Context, workflowID string, limit int) ([]*models.Execution, error) {
	if _, err := e.persistence.WorkflowByID(ctx, workflowID); err != nil {
		return nil, err
	}

	return e.persistence.ExecutionsByWorkflow(ctx, workflowID, limit)
}
