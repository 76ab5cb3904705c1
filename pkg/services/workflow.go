package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/atelierhq/flowbuilder/pkg/models"
	"github.com/atelierhq/flowbuilder/pkg/persistence"
	"github.com/atelierhq/flowbuilder/pkg/registry"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ErrWorkflowNotFound is returned when a workflow is not found.
var ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

// Trigger nodes spawn at a fixed canvas position; the user drags them
// from there.
const (
	defaultTriggerX = 250.0
	defaultTriggerY = 100.0
)

// Workflow is the workflow application service.
type Workflow struct {
	persistence persistence.Persistence
	validator   *validator.Validate
	logger      *slog.Logger
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(p persistence.Persistence, logger *slog.Logger) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}

	return &Workflow{
		persistence: p,
		validator:   validator.New(),
		logger:      logger.With("module", "services"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// CreateWorkflowRequest contains the fields for creating a workflow.
type CreateWorkflowRequest struct {
	Name        string `validate:"required,min=3"`
	Description string
	TriggerType models.TriggerType `validate:"required"`
}

// Create creates a workflow with its trigger node already on the
// canvas. New workflows start inactive with an empty history.
func (w *Workflow) Create(ctx context.Context, req CreateWorkflowRequest) (*models.Workflow, error) {
	if err := w.validator.Struct(req); err != nil {
		return nil, NewValidationError("Create", err.Error(), ErrWorkflowNameRequired)
	}

	if !req.TriggerType.Valid() {
		return nil, NewValidationError("Create", fmt.Sprintf("unknown trigger type %q", req.TriggerType), ErrInvalidTriggerType)
	}

	actionType := models.TriggerActionType(req.TriggerType)

	definition, err := registry.Get(actionType)
	if err != nil {
		return nil, NewValidationError("Create", err.Error(), ErrInvalidTriggerType)
	}

	workflow := &models.Workflow{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		TriggerType: req.TriggerType,
		Nodes: []*models.Node{
			{
				ID:         uuid.New().String(),
				Kind:       models.NodeKindTrigger,
				ActionType: actionType,
				Label:      definition.DisplayLabel,
				PositionX:  defaultTriggerX,
				PositionY:  defaultTriggerY,
				Config:     map[string]any{},
			},
		},
		Connections: []*models.Connection{},
	}

	if err := w.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	w.logger.InfoContext(ctx, "workflow created", "workflow_id", workflow.ID, "trigger_type", req.TriggerType)

	return workflow, nil
}

// Get returns a workflow by its ID.
func (w *Workflow) Get(ctx context.Context, id string) (*models.Workflow, error) {
	return w.persistence.WorkflowByID(ctx, id)
}

// List returns all workflows, newest first.
func (w *Workflow) List(ctx context.Context) ([]*models.Workflow, error) {
	return w.persistence.Workflows(ctx)
}

// ReplaceGraph replaces a workflow's nodes and connections wholesale.
// Last write wins: the incoming graph overwrites whatever is stored,
// with no merge and no conflict detection.
func (w *Workflow) ReplaceGraph(ctx context.Context, id string, nodes []*models.Node, connections []*models.Connection) (*models.Workflow, error) {
	workflow, err := w.persistence.WorkflowByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := validateGraph(workflow.TriggerType, nodes, connections); err != nil {
		return nil, err
	}

	workflow.Nodes = nodes
	workflow.Connections = connections
	workflow.UpdatedAt = time.Now().UTC()

	if err := w.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow graph: %w", err)
	}

	return workflow, nil
}

// Toggle flips the active flag and returns the updated workflow.
func (w *Workflow) Toggle(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := w.persistence.WorkflowByID(ctx, id)
	if err != nil {
		return nil, err
	}

	workflow.IsActive = !workflow.IsActive

	if err := w.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to toggle workflow: %w", err)
	}

	w.logger.InfoContext(ctx, "workflow toggled", "workflow_id", id, "is_active", workflow.IsActive)

	return workflow, nil
}

// Delete removes a workflow and its execution history.
func (w *Workflow) Delete(ctx context.Context, id string) error {
	return w.persistence.DeleteWorkflow(ctx, id)
}

// RecordExecutionOutcome bumps the workflow counters after a run.
func (w *Workflow) RecordExecutionOutcome(ctx context.Context, id string, succeeded bool) error {
	workflow, err := w.persistence.WorkflowByID(ctx, id)
	if err != nil {
		return err
	}

	workflow.ExecutionCount++
	if succeeded {
		workflow.SuccessCount++
	}

	return w.persistence.SaveWorkflow(ctx, workflow)
}

// validateGraph enforces the structural invariants before a graph is
// stored: known node types, exactly one trigger matching the workflow's
// trigger type, live connection endpoints, no edges into the trigger,
// handles matching the source kind, no self-loops, no duplicate edges.
func validateGraph(triggerType models.TriggerType, nodes []*models.Node, connections []*models.Connection) error {
	nodeByID := make(map[string]*models.Node, len(nodes))
	defByID := make(map[string]registry.Definition, len(nodes))
	triggerCount := 0

	for _, node := range nodes {
		if _, exists := nodeByID[node.ID]; exists {
			return NewValidationError("ReplaceGraph", fmt.Sprintf("duplicate node id %q", node.ID), ErrInvalidGraph)
		}

		nodeByID[node.ID] = node

		definition, err := registry.Get(node.ActionType)
		if err != nil {
			return NewValidationError("ReplaceGraph", fmt.Sprintf("unknown node type %q", node.ActionType), ErrInvalidGraph)
		}

		if definition.Kind != node.Kind {
			return NewValidationError("ReplaceGraph",
				fmt.Sprintf("node %s kind %q does not match type %q", node.ID, node.Kind, node.ActionType), ErrInvalidGraph)
		}

		defByID[node.ID] = definition

		if node.IsTrigger() {
			triggerCount++

			if node.ActionType != models.TriggerActionType(triggerType) {
				return NewValidationError("ReplaceGraph",
					fmt.Sprintf("trigger node %s does not match workflow trigger type %q", node.ID, triggerType), ErrInvalidGraph)
			}
		}
	}

	if triggerCount != 1 {
		return NewValidationError("ReplaceGraph",
			fmt.Sprintf("graph must have exactly one trigger node, got %d", triggerCount), ErrInvalidGraph)
	}

	seen := make(map[string]bool, len(connections))

	for _, conn := range connections {
		if conn.SourceNodeID == conn.TargetNodeID {
			return NewValidationError("ReplaceGraph", fmt.Sprintf("connection %s is a self-loop", conn.ID), ErrInvalidGraph)
		}

		source, sourceKnown := nodeByID[conn.SourceNodeID]
		if !sourceKnown || nodeByID[conn.TargetNodeID] == nil {
			return NewValidationError("ReplaceGraph",
				fmt.Sprintf("connection %s references a missing node", conn.ID), ErrInvalidGraph)
		}

		if defByID[conn.TargetNodeID].InputCount() == 0 {
			return NewValidationError("ReplaceGraph",
				fmt.Sprintf("connection %s targets trigger node %s", conn.ID, conn.TargetNodeID), ErrInvalidGraph)
		}

		if err := validateHandle(source, conn); err != nil {
			return err
		}

		triple := conn.SourceNodeID + "\x00" + conn.TargetNodeID + "\x00" + conn.SourceHandle
		if seen[triple] {
			return NewValidationError("ReplaceGraph", fmt.Sprintf("duplicate connection %s", conn.ID), ErrInvalidGraph)
		}

		seen[triple] = true
	}

	return nil
}

// validateHandle checks the source handle against the source node's
// kind: conditions branch on "true"/"false", everything else emits on
// "default". An empty handle means "default".
func validateHandle(source *models.Node, conn *models.Connection) error {
	handle := conn.SourceHandle
	if handle == "" {
		handle = models.HandleDefault
	}

	if source.IsCondition() {
		if handle != models.HandleTrue && handle != models.HandleFalse {
			return NewValidationError("ReplaceGraph",
				fmt.Sprintf("connection %s uses handle %q on a condition node", conn.ID, conn.SourceHandle), ErrInvalidGraph)
		}

		return nil
	}

	if handle != models.HandleDefault {
		return NewValidationError("ReplaceGraph",
			fmt.Sprintf("connection %s uses handle %q on a %s node", conn.ID, conn.SourceHandle, source.Kind), ErrInvalidGraph)
	}

	return nil
}
