// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/atelierhq/flowbuilder/pkg/models"
	"github.com/google/uuid"
)

// CreateTestNode creates a node with default values that can be overridden.
func CreateTestNode(overrides ...func(*models.Node)) *models.Node {
	node := &models.Node{
		ID:         uuid.New().String(),
		Kind:       models.NodeKindAction,
		ActionType: models.ActionAddNote,
		Label:      "Add Note",
		Config:     map[string]any{"content": "test note"},
		PositionX:  100,
		PositionY:  200,
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithTriggerNode configures the node as a lead_created trigger.
func WithTriggerNode() func(*models.Node) {
	return func(n *models.Node) {
		n.Kind = models.NodeKindTrigger
		n.ActionType = models.TriggerActionType(models.TriggerLeadCreated)
		n.Label = "Lead Created"
		n.Config = map[string]any{}
	}
}

// WithActionType sets the node's action type and kind together.
func WithActionType(kind models.NodeKind, actionType models.ActionType) func(*models.Node) {
	return func(n *models.Node) {
		n.Kind = kind
		n.ActionType = actionType
	}
}

// WithConfig sets the node configuration.
func WithConfig(config map[string]any) func(*models.Node) {
	return func(n *models.Node) {
		n.Config = config
	}
}

// WithLabel sets the node label.
func WithLabel(label string) func(*models.Node) {
	return func(n *models.Node) {
		n.Label = label
	}
}

// WithPosition sets the node position.
func WithPosition(x, y float64) func(*models.Node) {
	return func(n *models.Node) {
		n.PositionX = x
		n.PositionY = y
	}
}

// WithID sets the node ID.
func WithID(id string) func(*models.Node) {
	return func(n *models.Node) {
		n.ID = id
	}
}

// CreateTestWorkflow creates an empty active workflow.
func CreateTestWorkflow() *models.Workflow {
	now := time.Now().UTC()

	return &models.Workflow{
		ID:          uuid.New().String(),
		Name:        "Test Workflow",
		Description: "A workflow for testing",
		TriggerType: models.TriggerLeadCreated,
		IsActive:    true,
		Nodes:       []*models.Node{},
		Connections: []*models.Connection{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// CreateTestWorkflowWithNodes creates a workflow whose trigger feeds a
// single add_note action.
func CreateTestWorkflowWithNodes() *models.Workflow {
	workflow := CreateTestWorkflow()

	trigger := CreateTestNode(WithTriggerNode(), WithID("trigger-1"))
	action := CreateTestNode(WithID("action-1"), WithLabel("Log Note"))

	workflow.Nodes = []*models.Node{trigger, action}
	workflow.Connections = []*models.Connection{
		CreateTestConnection("trigger-1", "action-1"),
	}

	return workflow
}

// CreateTestConnection creates a default-handle connection between two nodes.
func CreateTestConnection(sourceNodeID, targetNodeID string) *models.Connection {
	return &models.Connection{
		ID:           uuid.New().String(),
		SourceNodeID: sourceNodeID,
		TargetNodeID: targetNodeID,
		SourceHandle: models.HandleDefault,
	}
}
