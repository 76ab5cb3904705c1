package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/atelierhq/flowbuilder/pkg/eventbus"
	"github.com/atelierhq/flowbuilder/pkg/events"
	"github.com/atelierhq/flowbuilder/pkg/models"
	"github.com/atelierhq/flowbuilder/pkg/persistence"
	"github.com/atelierhq/flowbuilder/pkg/runner"
	"github.com/atelierhq/flowbuilder/pkg/services"
)

// Worker consumes run requests, executes the workflow graph, and writes
// the terminal execution status back. Publishes a completed or failed
// event for each run.
type Worker struct {
	id          string
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	executor    *runner.Executor
	workflows   *services.Workflow
}

func NewWorker(
	id string,
	p persistence.Persistence,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
	opts ...runner.Option,
) *Worker {
	return &Worker{
		id:          id,
		logger:      logger.With("module", "worker", "worker_id", id),
		persistence: p,
		eventBus:    eventBus,
		executor:    runner.NewExecutor(logger, opts...),
		workflows:   services.NewWorkflow(p, logger),
	}
}

// Start subscribes to run requests and blocks until SIGINT or SIGTERM.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker subscriptions")

	if err := w.eventBus.Handle(events.WorkflowRunRequestedEvent, w.handleRunRequested); err != nil {
		return err
	}

	if err := w.eventBus.Subscribe(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	w.logger.InfoContext(ctx, "Shutting down worker...")

	return nil
}

func (w *Worker) handleRunRequested(ctx context.Context, event any) error {
	runRequested, ok := event.(*events.WorkflowRunRequested)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for WorkflowRunRequested")

		return nil
	}

	logger := w.logger.With(
		"workflow_id", runRequested.WorkflowID,
		"execution_id", runRequested.ExecutionID,
		"event_id", runRequested.ID,
	)
	logger.InfoContext(ctx, "Processing workflow run request")

	workflow, err := w.persistence.WorkflowByID(ctx, runRequested.WorkflowID)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to fetch workflow", "error", err)

		return err
	}

	result := w.executor.Run(ctx, workflow, runRequested.Entity)

	// The API appended the execution record when it accepted the run;
	// the worker's result takes over that record's identity.
	execution := result.Execution
	execution.ID = runRequested.ExecutionID

	if err := w.persistence.UpdateExecution(ctx, execution); err != nil {
		logger.ErrorContext(ctx, "Failed to update execution record", "error", err)

		return err
	}

	succeeded := execution.Status == models.ExecutionStatusCompleted
	if err := w.workflows.RecordExecutionOutcome(ctx, workflow.ID, succeeded); err != nil {
		logger.ErrorContext(ctx, "Failed to record execution outcome", "error", err)
	}

	duration := execution.FinishedAt.Sub(execution.StartedAt)

	var outcome eventbus.Event

	if succeeded {
		completed := events.WorkflowExecutionCompleted{
			BaseEvent:   events.NewBaseEvent(events.WorkflowExecutionCompletedEvent, workflow.ID),
			ExecutionID: execution.ID,
			Duration:    duration,
		}
		completed.WorkerID = w.id
		outcome = completed
	} else {
		failed := events.WorkflowExecutionFailed{
			BaseEvent:   events.NewBaseEvent(events.WorkflowExecutionFailedEvent, workflow.ID),
			ExecutionID: execution.ID,
			Error:       execution.ErrorMessage,
			Duration:    duration,
		}
		failed.WorkerID = w.id
		outcome = failed
	}

	if err := w.eventBus.Publish(ctx, workflow.ID, outcome); err != nil {
		logger.ErrorContext(ctx, "Failed to publish execution outcome", "error", err)

		return err
	}

	logger.InfoContext(ctx, "Workflow run finished",
		"status", execution.Status,
		"duration", duration,
		"nodes_visited", len(result.NodeResults))

	return nil
}
