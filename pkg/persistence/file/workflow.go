package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/atelierhq/flowbuilder/pkg/models"
	"github.com/atelierhq/flowbuilder/pkg/persistence"
)

type workflowRepository struct {
	root string
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
	if err := p.workflows.delete(ctx, id); err != nil {
		return err
	}

	return p.executions.deleteByWorkflow(ctx, id)
}

func (wr *workflowRepository) getAll(ctx context.Context) ([]*models.Workflow, error) {
	dir := path.Join(wr.root, "workflows")
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return []*models.Workflow{}, nil
	}

	jsonFiles, err := fs.Glob(os.DirFS(dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		workflowID := file[:len(file)-5]

		workflow, err := wr.getByID(ctx, workflowID)
		if err != nil {
			return nil, fmt.Errorf("failed to load workflow %s: %w", workflowID, err)
		}

		workflows = append(workflows, workflow)
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.After(workflows[j].CreatedAt)
	})

	return workflows, nil
}

func (wr *workflowRepository) getByID(_ context.Context, workflowID string) (*models.Workflow, error) {
	filePath := filepath.Clean(path.Join(wr.root, "workflows", workflowID+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewWorkflowError("GetByID", workflowID, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to fetch workflow %s: %w", workflowID, err)
	}

	var workflow models.Workflow

	err = json.Unmarshal(body, &workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow %s: %w", workflowID, err)
	}

	return &workflow, nil
}

func (wr *workflowRepository) save(_ context.Context, workflow *models.Workflow) error {
	err := os.MkdirAll(path.Join(wr.root, "workflows"), 0750)
	if err != nil {
		return fmt.Errorf("failed to create workflows directory: %w", err)
	}

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	data, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal workflow %s: %w", workflow.ID, err)
	}

	filePath := path.Join(wr.root, "workflows", workflow.ID+".json")

	return os.WriteFile(filePath, data, 0600)
}

func (wr *workflowRepository) delete(_ context.Context, id string) error {
	filePath := path.Join(wr.root, "workflows", id+".json")

	err := os.Remove(filePath)
	if err != nil && os.IsNotExist(err) {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	return nil
}
