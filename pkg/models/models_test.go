package models

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflow_Validation_ValidWorkflow(t *testing.T) {
	workflow := &Workflow{
		ID:          "wf-123",
		Name:        "Lead follow-up",
		TriggerType: TriggerLeadCreated,
	}

	validate := validator.New()
	err := validate.Struct(workflow)
	assert.NoError(t, err)
}

func TestWorkflow_Validation_NameTooShort(t *testing.T) {
	workflow := &Workflow{
		ID:          "wf-123",
		Name:        "ab",
		TriggerType: TriggerLeadCreated,
	}

	validate := validator.New()
	err := validate.Struct(workflow)
	assert.Error(t, err)
}

func TestTriggerType_Valid(t *testing.T) {
	assert.True(t, TriggerLeadCreated.Valid())
	assert.True(t, TriggerScheduled.Valid())
	assert.False(t, TriggerType("lead_deleted").Valid())
	assert.False(t, TriggerType("").Valid())
}

func TestTriggerActionType(t *testing.T) {
	assert.Equal(t, ActionTriggerLeadCreated, TriggerActionType(TriggerLeadCreated))
	assert.Equal(t, ActionTriggerScheduled, TriggerActionType(TriggerScheduled))
}

func TestWorkflow_TriggerNode(t *testing.T) {
	workflow := &Workflow{
		Nodes: []*Node{
			{ID: "a", Kind: NodeKindAction, ActionType: ActionSendEmail},
			{ID: "t", Kind: NodeKindTrigger, ActionType: ActionTriggerLeadCreated},
		},
	}

	trigger := workflow.TriggerNode()
	require.NotNil(t, trigger)
	assert.Equal(t, "t", trigger.ID)

	empty := &Workflow{}
	assert.Nil(t, empty.TriggerNode())
}
