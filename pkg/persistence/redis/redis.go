// Package redis provides Redis persistence for workflows and
// executions. Workflows are JSON values under a hash; executions are
// per-workflow sorted sets scored by start time.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/atelierhq/flowbuilder/pkg/models"
	"github.com/atelierhq/flowbuilder/pkg/persistence"
	goredis "github.com/redis/go-redis/v9"
)

const (
	workflowHashKey    = "flowbuilder:workflows"
	executionKeyPrefix = "flowbuilder:executions:"
	executionHashKey   = "flowbuilder:execution_records"
)

// Persistence implements persistence.Persistence on Redis.
type Persistence struct {
	client *goredis.Client
	logger *slog.Logger
}

// NewPersistence connects to Redis using a redis:// URL.
func NewPersistence(ctx context.Context, logger *slog.Logger, redisURL string) (*Persistence, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = client.Ping(pingCtx).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Persistence{client: client, logger: logger}, nil
}

// Close closes the Redis connection.
func (p *Persistence) Close(_ context.Context) error {
	return p.client.Close()
}

// HealthCheck pings the server.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.client.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}

	return nil
}

// Workflows returns all workflows, newest first.
func (p *Persistence) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	values, err := p.client.HVals(ctx, workflowHashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(values))

	for _, value := range values {
		var workflow models.Workflow

		if err := json.Unmarshal([]byte(value), &workflow); err != nil {
			return nil, fmt.Errorf("failed to unmarshal workflow: %w", err)
		}

		workflows = append(workflows, &workflow)
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.After(workflows[j].CreatedAt)
	})

	return workflows, nil
}

// WorkflowByID returns a workflow by its ID.
func (p *Persistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	value, err := p.client.HGet(ctx, workflowHashKey, id).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to fetch workflow %s: %w", id, err)
	}

	var workflow models.Workflow

	if err := json.Unmarshal([]byte(value), &workflow); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow %s: %w", id, err)
	}

	return &workflow, nil
}

// SaveWorkflow stores a workflow.
func (p *Persistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	data, err := json.Marshal(workflow)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow %s: %w", workflow.ID, err)
	}

	err = p.client.HSet(ctx, workflowHashKey, workflow.ID, data).Err()
	if err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", workflow.ID, err)
	}

	return nil
}

// DeleteWorkflow removes a workflow and its execution history.
func (p *Persistence) DeleteWorkflow(ctx context.Context, id string) error {
	removed, err := p.client.HDel(ctx, workflowHashKey, id).Result()
	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	if removed == 0 {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	executionIDs, err := p.client.ZRange(ctx, executionKeyPrefix+id, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to list executions for workflow %s: %w", id, err)
	}

	if len(executionIDs) > 0 {
		if err := p.client.HDel(ctx, executionHashKey, executionIDs...).Err(); err != nil {
			return fmt.Errorf("failed to delete execution records for workflow %s: %w", id, err)
		}
	}

	if err := p.client.Del(ctx, executionKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete execution index for workflow %s: %w", id, err)
	}

	return nil
}

// AppendExecution stores a new execution record.
func (p *Persistence) AppendExecution(ctx context.Context, execution *models.Execution) error {
	data, err := json.Marshal(execution)
	if err != nil {
		return fmt.Errorf("failed to marshal execution %s: %w", execution.ID, err)
	}

	pipe := p.client.TxPipeline()
	pipe.HSet(ctx, executionHashKey, execution.ID, data)
	pipe.ZAdd(ctx, executionKeyPrefix+execution.WorkflowID, goredis.Z{
		Score:  float64(execution.StartedAt.UnixNano()),
		Member: execution.ID,
	})

	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to append execution %s: %w", execution.ID, err)
	}

	return nil
}

// UpdateExecution replaces an existing execution record.
func (p *Persistence) UpdateExecution(ctx context.Context, execution *models.Execution) error {
	exists, err := p.client.HExists(ctx, executionHashKey, execution.ID).Result()
	if err != nil {
		return fmt.Errorf("failed to check execution %s: %w", execution.ID, err)
	}

	if !exists {
		return persistence.NewExecutionError("Update", execution.ID, persistence.ErrExecutionNotFound)
	}

	data, err := json.Marshal(execution)
	if err != nil {
		return fmt.Errorf("failed to marshal execution %s: %w", execution.ID, err)
	}

	err = p.client.HSet(ctx, executionHashKey, execution.ID, data).Err()
	if err != nil {
		return fmt.Errorf("failed to update execution %s: %w", execution.ID, err)
	}

	return nil
}

// ExecutionsByWorkflow returns up to limit executions, newest first.
func (p *Persistence) ExecutionsByWorkflow(ctx context.Context, workflowID string, limit int) ([]*models.Execution, error) {
	if limit <= 0 {
		limit = persistence.DefaultExecutionLimit
	}

	executionIDs, err := p.client.ZRevRange(ctx, executionKeyPrefix+workflowID, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list executions for workflow %s: %w", workflowID, err)
	}

	executions := make([]*models.Execution, 0, len(executionIDs))
	if len(executionIDs) == 0 {
		return executions, nil
	}

	values, err := p.client.HMGet(ctx, executionHashKey, executionIDs...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch execution records: %w", err)
	}

	for _, value := range values {
		str, ok := value.(string)
		if !ok {
			continue
		}

		var execution models.Execution

		if err := json.Unmarshal([]byte(str), &execution); err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution: %w", err)
		}

		executions = append(executions, &execution)
	}

	return executions, nil
}
