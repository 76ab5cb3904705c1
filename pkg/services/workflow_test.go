package services

import (
	"context"
	"testing"

	"github.com/atelierhq/flowbuilder/pkg/models"
	"github.com/atelierhq/flowbuilder/pkg/persistence"
	"github.com/atelierhq/flowbuilder/pkg/persistence/file"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorkflowService(t *testing.T) *Workflow {
	t.Helper()

	return NewWorkflow(file.NewPersistence(t.TempDir()), nil)
}

func TestCreate_SpawnsTriggerNode(t *testing.T) {
	svc := newTestWorkflowService(t)

	workflow, err := svc.Create(context.Background(), CreateWorkflowRequest{
		Name:        "lead welcome",
		TriggerType: models.TriggerLeadCreated,
	})
	require.NoError(t, err)

	assert.False(t, workflow.IsActive)
	assert.Zero(t, workflow.ExecutionCount)
	require.Len(t, workflow.Nodes, 1)
	assert.Empty(t, workflow.Connections)

	trigger := workflow.Nodes[0]
	assert.Equal(t, models.NodeKindTrigger, trigger.Kind)
	assert.Equal(t, models.TriggerActionType(models.TriggerLeadCreated), trigger.ActionType)
	assert.Equal(t, defaultTriggerX, trigger.PositionX)
	assert.NotEmpty(t, trigger.Label)
}

func TestCreate_Validation(t *testing.T) {
	svc := newTestWorkflowService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateWorkflowRequest{Name: "ab", TriggerType: models.TriggerLeadCreated})
	assert.True(t, IsValidationError(err))

	_, err = svc.Create(ctx, CreateWorkflowRequest{Name: "valid name", TriggerType: "meteor_strike"})
	assert.True(t, IsValidationError(err))
}

func TestToggle_FlipsAndPersists(t *testing.T) {
	svc := newTestWorkflowService(t)
	ctx := context.Background()

	workflow, err := svc.Create(ctx, CreateWorkflowRequest{Name: "toggle me", TriggerType: models.TriggerFormSubmitted})
	require.NoError(t, err)

	toggled, err := svc.Toggle(ctx, workflow.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsActive)

	// Toggling twice lands back on the original state.
	toggled, err = svc.Toggle(ctx, workflow.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	stored, err := svc.Get(ctx, workflow.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
}

func TestReplaceGraph_FullReplace(t *testing.T) {
	svc := newTestWorkflowService(t)
	ctx := context.Background()

	workflow, err := svc.Create(ctx, CreateWorkflowRequest{Name: "graph edit", TriggerType: models.TriggerLeadCreated})
	require.NoError(t, err)

	trigger := workflow.Nodes[0]
	action := &models.Node{
		ID:         uuid.New().String(),
		Kind:       models.NodeKindAction,
		ActionType: models.ActionAddNote,
		Label:      "Add Note",
		PositionX:  400,
		Config:     map[string]any{"content": "hello"},
	}

	updated, err := svc.ReplaceGraph(ctx, workflow.ID,
		[]*models.Node{trigger, action},
		[]*models.Connection{{
			ID: uuid.New().String(), SourceNodeID: trigger.ID, TargetNodeID: action.ID, SourceHandle: models.HandleDefault,
		}},
	)
	require.NoError(t, err)
	assert.Len(t, updated.Nodes, 2)
	assert.Len(t, updated.Connections, 1)

	// Last write wins: a second replace with just the trigger drops the
	// action silently.
	updated, err = svc.ReplaceGraph(ctx, workflow.ID, []*models.Node{trigger}, nil)
	require.NoError(t, err)
	assert.Len(t, updated.Nodes, 1)
}

func TestReplaceGraph_RejectsInvalidGraphs(t *testing.T) {
	svc := newTestWorkflowService(t)
	ctx := context.Background()

	workflow, err := svc.Create(ctx, CreateWorkflowRequest{Name: "graph rules", TriggerType: models.TriggerLeadCreated})
	require.NoError(t, err)

	trigger := workflow.Nodes[0]

	tests := []struct {
		name        string
		nodes       []*models.Node
		connections []*models.Connection
	}{
		{"no trigger", []*models.Node{{
			ID: "a", Kind: models.NodeKindAction, ActionType: models.ActionAddNote, Config: map[string]any{},
		}}, nil},
		{"two triggers", []*models.Node{trigger, {
			ID: "t2", Kind: models.NodeKindTrigger, ActionType: models.TriggerActionType(models.TriggerLeadCreated),
		}}, nil},
		{"wrong trigger type", []*models.Node{{
			ID: "t2", Kind: models.NodeKindTrigger, ActionType: models.TriggerActionType(models.TriggerClientCreated),
		}}, nil},
		{"unknown action type", []*models.Node{trigger, {
			ID: "a", Kind: models.NodeKindAction, ActionType: "launch_rocket",
		}}, nil},
		{"self loop", []*models.Node{trigger}, []*models.Connection{{
			ID: "c", SourceNodeID: trigger.ID, TargetNodeID: trigger.ID, SourceHandle: models.HandleDefault,
		}}},
		{"dangling connection", []*models.Node{trigger}, []*models.Connection{{
			ID: "c", SourceNodeID: trigger.ID, TargetNodeID: "ghost", SourceHandle: models.HandleDefault,
		}}},
		{"connection into trigger", []*models.Node{trigger, {
			ID: "a", Kind: models.NodeKindAction, ActionType: models.ActionAddNote, Config: map[string]any{},
		}}, []*models.Connection{{
			ID: "c", SourceNodeID: "a", TargetNodeID: trigger.ID, SourceHandle: models.HandleDefault,
		}}},
		{"branch handle on non-condition node", []*models.Node{trigger, {
			ID: "a", Kind: models.NodeKindAction, ActionType: models.ActionAddNote, Config: map[string]any{},
		}}, []*models.Connection{{
			ID: "c", SourceNodeID: trigger.ID, TargetNodeID: "a", SourceHandle: models.HandleTrue,
		}}},
		{"default handle on condition node", []*models.Node{trigger,
			{ID: "cond", Kind: models.NodeKindCondition, ActionType: models.ActionCondition, Config: map[string]any{}},
			{ID: "a", Kind: models.NodeKindAction, ActionType: models.ActionAddNote, Config: map[string]any{}},
		}, []*models.Connection{{
			ID: "c", SourceNodeID: "cond", TargetNodeID: "a", SourceHandle: models.HandleDefault,
		}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.ReplaceGraph(ctx, workflow.ID, tc.nodes, tc.connections)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestDelete(t *testing.T) {
	svc := newTestWorkflowService(t)
	ctx := context.Background()

	workflow, err := svc.Create(ctx, CreateWorkflowRequest{Name: "short lived", TriggerType: models.TriggerScheduled})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, workflow.ID))

	_, err = svc.Get(ctx, workflow.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestRecordExecutionOutcome(t *testing.T) {
	svc := newTestWorkflowService(t)
	ctx := context.Background()

	workflow, err := svc.Create(ctx, CreateWorkflowRequest{Name: "counters", TriggerType: models.TriggerLeadCreated})
	require.NoError(t, err)

	require.NoError(t, svc.RecordExecutionOutcome(ctx, workflow.ID, true))
	require.NoError(t, svc.RecordExecutionOutcome(ctx, workflow.ID, false))

	stored, err := svc.Get(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.ExecutionCount)
	assert.Equal(t, 1, stored.SuccessCount)
}
