// Package web provides HTTP request and response types for the
// workflow API. Wire names are camelCase per the frozen contract;
// internal models keep their own tags.
package web

import (
	"time"

	"github.com/atelierhq/flowbuilder/pkg/models"
)

// CreateWorkflowRequest represents the request body for creating a new workflow.
type CreateWorkflowRequest struct {
	Name        string `json:"name"        validate:"required,min=3"`
	Description string `json:"description"`
	TriggerType string `json:"triggerType" validate:"required"`
}

// NodePayload is a node as the editor sends it. The nodeUid is
// client-generated; the server assigns the stable id.
type NodePayload struct {
	NodeUID    string         `json:"nodeUid"    validate:"required"`
	NodeType   string         `json:"nodeType"   validate:"required"`
	ActionType string         `json:"actionType" validate:"required"`
	Label      string         `json:"label"`
	Config     map[string]any `json:"config"`
	PositionX  float64        `json:"positionX"`
	PositionY  float64        `json:"positionY"`
}

// ConnectionPayload is a connection as the editor sends it. Source and
// target reference nodeUids.
type ConnectionPayload struct {
	Source       string `json:"source"       validate:"required"`
	Target       string `json:"target"       validate:"required"`
	SourceHandle string `json:"sourceHandle"`
}

// UpdateGraphRequest is a full-graph replace.
type UpdateGraphRequest struct {
	Nodes       []NodePayload       `json:"nodes"`
	Connections []ConnectionPayload `json:"connections"`
}

// RunRequest optionally carries the entity snapshot a manual run
// should execute against.
type RunRequest struct {
	Entity models.Entity `json:"entity,omitempty"`
}

// NodeResponse echoes the client's nodeUid next to the server-assigned
// id so the editor can remap without mutating ids in place.
type NodeResponse struct {
	ID         string         `json:"id"`
	NodeUID    string         `json:"nodeUid,omitempty"`
	NodeType   string         `json:"nodeType"`
	ActionType string         `json:"actionType"`
	Label      string         `json:"label"`
	Config     map[string]any `json:"config"`
	PositionX  float64        `json:"positionX"`
	PositionY  float64        `json:"positionY"`
}

// ConnectionResponse serializes a connection with server node ids.
type ConnectionResponse struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle"`
}

// WorkflowResponse is the full workflow representation.
type WorkflowResponse struct {
	ID             string               `json:"id"`
	Name           string               `json:"name"`
	Description    string               `json:"description"`
	TriggerType    string               `json:"triggerType"`
	IsActive       bool                 `json:"isActive"`
	ExecutionCount int                  `json:"executionCount"`
	SuccessCount   int                  `json:"successCount"`
	Nodes          []NodeResponse       `json:"nodes"`
	Connections    []ConnectionResponse `json:"connections"`
	CreatedAt      time.Time            `json:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt"`
}

// ExecutionResponse serializes one execution record.
type ExecutionResponse struct {
	ID           string     `json:"id"`
	Status       string     `json:"status"`
	StartedAt    time.Time  `json:"startedAt"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
}

// TransformNodeResponse converts a stored node to the wire shape. The
// uidByID table, when present, restores the client uid the node was
// saved under.
func TransformNodeResponse(node *models.Node, uidByID map[string]string) NodeResponse {
	return NodeResponse{
		ID:         node.ID,
		NodeUID:    uidByID[node.ID],
		NodeType:   string(node.Kind),
		ActionType: string(node.ActionType),
		Label:      node.Label,
		Config:     node.Config,
		PositionX:  node.PositionX,
		PositionY:  node.PositionY,
	}
}

// TransformConnectionResponse converts a stored connection to the wire shape.
func TransformConnectionResponse(conn *models.Connection) ConnectionResponse {
	return ConnectionResponse{
		ID:           conn.ID,
		Source:       conn.SourceNodeID,
		Target:       conn.TargetNodeID,
		SourceHandle: conn.SourceHandle,
	}
}

// TransformWorkflowResponse converts a stored workflow to the wire shape.
func TransformWorkflowResponse(workflow *models.Workflow, uidByID map[string]string) WorkflowResponse {
	nodes := make([]NodeResponse, 0, len(workflow.Nodes))
	for _, node := range workflow.Nodes {
		nodes = append(nodes, TransformNodeResponse(node, uidByID))
	}

	connections := make([]ConnectionResponse, 0, len(workflow.Connections))
	for _, conn := range workflow.Connections {
		connections = append(connections, TransformConnectionResponse(conn))
	}

	return WorkflowResponse{
		ID:             workflow.ID,
		Name:           workflow.Name,
		Description:    workflow.Description,
		TriggerType:    string(workflow.TriggerType),
		IsActive:       workflow.IsActive,
		ExecutionCount: workflow.ExecutionCount,
		SuccessCount:   workflow.SuccessCount,
		Nodes:          nodes,
		Connections:    connections,
		CreatedAt:      workflow.CreatedAt,
		UpdatedAt:      workflow.UpdatedAt,
	}
}

// TransformExecutionResponse converts a stored execution to the wire shape.
func TransformExecutionResponse(execution *models.Execution) ExecutionResponse {
	return ExecutionResponse{
		ID:           execution.ID,
		Status:       string(execution.Status),
		StartedAt:    execution.StartedAt,
		FinishedAt:   execution.FinishedAt,
		ErrorMessage: execution.ErrorMessage,
	}
}
