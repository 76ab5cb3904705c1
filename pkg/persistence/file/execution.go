package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/atelierhq/flowbuilder/pkg/models"
	"github.com/atelierhq/flowbuilder/pkg/persistence"
)

type executionRepository struct {
	root string
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

func (er *executionRepository) filePath(workflowID string) string {
	return filepath.Clean(path.Join(er.root, "executions", workflowID+".json"))
}

func (er *executionRepository) load(workflowID string) ([]*models.Execution, error) {
	body, err := os.ReadFile(er.filePath(workflowID))
	if err != nil {
		if os.IsNotExist(err) {
			return []*models.Execution{}, nil
		}

		return nil, fmt.Errorf("failed to read executions for workflow %s: %w", workflowID, err)
	}

	var executions []*models.Execution

	err = json.Unmarshal(body, &executions)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal executions for workflow %s: %w", workflowID, err)
	}

	return executions, nil
}

func (er *executionRepository) store(workflowID string, executions []*models.Execution) error {
	err := os.MkdirAll(path.Join(er.root, "executions"), 0750)
	if err != nil {
		return fmt.Errorf("failed to create executions directory: %w", err)
	}

	data, err := json.MarshalIndent(executions, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal executions for workflow %s: %w", workflowID, err)
	}

	return os.WriteFile(er.filePath(workflowID), data, 0600)
}

func (er *executionRepository) append(_ context.Context, execution *models.Execution) error {
	executions, err := er.load(execution.WorkflowID)
	if err != nil {
		return err
	}

	executions = append(executions, execution)

	return er.store(execution.WorkflowID, executions)
}

func (er *executionRepository) update(_ context.Context, execution *models.Execution) error {
	executions, err := er.load(execution.WorkflowID)
	if err != nil {
		return err
	}

	for i, existing := range executions {
		if existing.ID == execution.ID {
			executions[i] = execution

			return er.store(execution.WorkflowID, executions)
		}
	}

	return persistence.NewExecutionError("Update", execution.ID, persistence.ErrExecutionNotFound)
}

func (er *executionRepository) listByWorkflow(_ context.Context, workflowID string, limit int) ([]*models.Execution, error) {
	executions, err := er.load(workflowID)
	if err != nil {
		return nil, err
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].StartedAt.After(executions[j].StartedAt)
	})

	if limit <= 0 {
		limit = persistence.DefaultExecutionLimit
	}

	if len(executions) > limit {
		executions = executions[:limit]
	}

	return executions, nil
}

func (er *executionRepository) deleteByWorkflow(_ context.Context, workflowID string) error {
	err := os.Remove(er.filePath(workflowID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete executions for workflow %s: %w", workflowID, err)
	}

	return nil
}
