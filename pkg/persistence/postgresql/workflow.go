package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/atelierhq/flowbuilder/pkg/models"
	"github.com/atelierhq/flowbuilder/pkg/persistence"
)

type workflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (p *Persistence) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	return p.workflows.getAll(ctx)
}

func (p *Persistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	return p.workflows.getByID(ctx, id)
}

func (p *Persistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	return p.workflows.save(ctx, workflow)
}

func (p *Persistence) DeleteWorkflow(ctx context.Context, id string) error {
	return p.workflows.delete(ctx, id)
}

const workflowColumns = `
	id
  , name
  , description
  , trigger_type
  , is_active
  , execution_count
  , success_count
  , nodes
  , connections
  , created_at
  , updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *workflowRepository) getAll(ctx context.Context) ([]*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

func (r *workflowRepository) getByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1`

	workflow, err := scanWorkflow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	return workflow, nil
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var (
		workflow        models.Workflow
		nodesJSON       []byte
		connectionsJSON []byte
	)

	err := row.Scan(
		&workflow.ID,
		&workflow.Name,
		&workflow.Description,
		&workflow.TriggerType,
		&workflow.IsActive,
		&workflow.ExecutionCount,
		&workflow.SuccessCount,
		&nodesJSON,
		&connectionsJSON,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(nodesJSON, &workflow.Nodes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal nodes: %w", err)
	}

	if err := json.Unmarshal(connectionsJSON, &workflow.Connections); err != nil {
		return nil, fmt.Errorf("failed to unmarshal connections: %w", err)
	}

	return &workflow, nil
}

func (r *workflowRepository) save(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	nodesJSON, err := json.Marshal(workflow.Nodes)
	if err != nil {
		return fmt.Errorf("failed to marshal nodes: %w", err)
	}

	connectionsJSON, err := json.Marshal(workflow.Connections)
	if err != nil {
		return fmt.Errorf("failed to marshal connections: %w", err)
	}

	query := `
		INSERT INTO workflows (
			id, name, description, trigger_type, is_active,
			execution_count, success_count, nodes, connections,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			trigger_type = EXCLUDED.trigger_type,
			is_active = EXCLUDED.is_active,
			execution_count = EXCLUDED.execution_count,
			success_count = EXCLUDED.success_count,
			nodes = EXCLUDED.nodes,
			connections = EXCLUDED.connections,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.Name,
		workflow.Description,
		workflow.TriggerType,
		workflow.IsActive,
		workflow.ExecutionCount,
		workflow.SuccessCount,
		nodesJSON,
		connectionsJSON,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", workflow.ID, err)
	}

	return nil
}

func (r *workflowRepository) delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}

	if affected == 0 {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}
