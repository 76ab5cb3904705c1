package redis

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/atelierhq/flowbuilder/pkg/models"
	"github.com/atelierhq/flowbuilder/pkg/persistence"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requires a live server; set REDIS_URL to run.
func newTestPersistence(t *testing.T) *Persistence {
	t.Helper()

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("REDIS_URL not set")
	}

	p, err := NewPersistence(context.Background(), slog.Default(), redisURL)
	require.NoError(t, err)

	t.Cleanup(func() { _ = p.Close(context.Background()) })

	return p
}

func TestWorkflowRoundTrip(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	workflow := &models.Workflow{
		ID:          uuid.New().String(),
		Name:        "redis round trip",
		TriggerType: models.TriggerClientCreated,
		Nodes:       []*models.Node{},
		Connections: []*models.Connection{},
	}

	require.NoError(t, p.SaveWorkflow(ctx, workflow))

	t.Cleanup(func() { _ = p.DeleteWorkflow(ctx, workflow.ID) })

	got, err := p.WorkflowByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, "redis round trip", got.Name)

	_, err = p.WorkflowByID(ctx, uuid.New().String())
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestExecutionHistory(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	workflowID := uuid.New().String()
	workflow := &models.Workflow{ID: workflowID, Name: "redis executions", TriggerType: models.TriggerLeadCreated}
	require.NoError(t, p.SaveWorkflow(ctx, workflow))

	t.Cleanup(func() { _ = p.DeleteWorkflow(ctx, workflowID) })

	first := &models.Execution{
		ID: uuid.New().String(), WorkflowID: workflowID,
		Status: models.ExecutionStatusRunning, StartedAt: time.Now().UTC().Add(-time.Minute),
	}
	second := &models.Execution{
		ID: uuid.New().String(), WorkflowID: workflowID,
		Status: models.ExecutionStatusRunning, StartedAt: time.Now().UTC(),
	}

	require.NoError(t, p.AppendExecution(ctx, first))
	require.NoError(t, p.AppendExecution(ctx, second))

	finished := time.Now().UTC()
	first.Status = models.ExecutionStatusFailed
	first.FinishedAt = &finished
	first.ErrorMessage = "boom"
	require.NoError(t, p.UpdateExecution(ctx, first))

	executions, err := p.ExecutionsByWorkflow(ctx, workflowID, 10)
	require.NoError(t, err)
	require.Len(t, executions, 2)
	assert.Equal(t, second.ID, executions[0].ID)
	assert.Equal(t, models.ExecutionStatusFailed, executions[1].Status)

	limited, err := p.ExecutionsByWorkflow(ctx, workflowID, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
