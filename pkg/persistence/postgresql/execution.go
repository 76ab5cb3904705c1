package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/atelierhq/flowbuilder/pkg/models"
	"github.com/atelierhq/flowbuilder/pkg/persistence"
)

type executionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (p *Persistence) AppendExecution(ctx context.Context, execution *models.Execution) error {
	return p.executions.append(ctx, execution)
}

func (p *Persistence) UpdateExecution(ctx context.Context, execution *models.Execution) error {
	return p.executions.update(ctx, execution)
}

func (p *Persistence) ExecutionsByWorkflow(ctx context.Context, workflowID string, limit int) ([]*models.Execution, error) {
	return p.executions.listByWorkflow(ctx, workflowID, limit)
}

func (r *executionRepository) append(ctx context.Context, execution *models.Execution) error {
	query := `
		INSERT INTO executions (id, workflow_id, status, started_at, finished_at, error_message)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		execution.ID,
		execution.WorkflowID,
		execution.Status,
		execution.StartedAt,
		execution.FinishedAt,
		execution.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to append execution %s: %w", execution.ID, err)
	}

	return nil
}

func (r *executionRepository) update(ctx context.Context, execution *models.Execution) error {
	query := `
		UPDATE executions
		SET status = $2, finished_at = $3, error_message = $4
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		execution.ID,
		execution.Status,
		execution.FinishedAt,
		execution.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to update execution %s: %w", execution.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}

	if affected == 0 {
		return persistence.NewExecutionError("Update", execution.ID, persistence.ErrExecutionNotFound)
	}

	return nil
}

func (r *executionRepository) listByWorkflow(ctx context.Context, workflowID string, limit int) ([]*models.Execution, error) {
	if limit <= 0 {
		limit = persistence.DefaultExecutionLimit
	}

	query := `
		SELECT id, workflow_id, status, started_at, finished_at, error_message
		FROM executions
		WHERE workflow_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	executions := make([]*models.Execution, 0)

	for rows.Next() {
		var execution models.Execution

		err := rows.Scan(
			&execution.ID,
			&execution.WorkflowID,
			&execution.Status,
			&execution.StartedAt,
			&execution.FinishedAt,
			&execution.ErrorMessage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, &execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}
