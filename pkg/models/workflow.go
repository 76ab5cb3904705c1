// Package models defines the core domain models for the workflow builder.
package models

import "time"

// TriggerType identifies the event that starts a workflow. It is fixed
// at creation time and determines the action type of the single trigger
// node in the graph.
type TriggerType string

const (
	TriggerLeadCreated       TriggerType = "lead_created"
	TriggerLeadStatusChanged TriggerType = "lead_status_changed"
	TriggerClientCreated     TriggerType = "client_created"
	TriggerFormSubmitted     TriggerType = "form_submitted"
	TriggerScheduled         TriggerType = "scheduled"
)

// TriggerTypes lists every valid trigger type.
var TriggerTypes = []TriggerType{
	TriggerLeadCreated,
	TriggerLeadStatusChanged,
	TriggerClientCreated,
	TriggerFormSubmitted,
	TriggerScheduled,
}

// Valid reports whether t is a known trigger type.
func (t TriggerType) Valid() bool {
	for _, known := range TriggerTypes {
		if t == known {
			return true
		}
	}

	return false
}

// Workflow represents an automation workflow: a directed graph of nodes
// owned by a trigger, plus server-maintained execution counters.
type Workflow struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"         validate:"required,min=3"`
	Description string      `json:"description"`
	TriggerType TriggerType `json:"trigger_type" validate:"required"`
	IsActive    bool        `json:"is_active"`

	// ExecutionCount and SuccessCount are aggregate counters maintained
	// by the execution side. The editor treats them as read-only.
	ExecutionCount int `json:"execution_count"`
	SuccessCount   int `json:"success_count"`

	Nodes       []*Node       `json:"nodes"`
	Connections []*Connection `json:"connections"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TriggerNode returns the workflow's trigger node, or nil if the graph
// has none (a freshly deserialized invalid graph).
func (w *Workflow) TriggerNode() *Node {
	for _, node := range w.Nodes {
		if node.Kind == NodeKindTrigger {
			return node
		}
	}

	return nil
}
