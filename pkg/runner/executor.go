// Package runner executes a workflow graph against a triggering entity.
// The graph encodes the semantics; the runner walks it: the trigger
// fires, downstream nodes run in connection order, condition nodes
// branch on their true/false handles, delay nodes suspend their branch,
// and action failures stay local to their branch.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/atelierhq/flowbuilder/pkg/models"
	"github.com/atelierhq/flowbuilder/pkg/nodeconfig"
	"github.com/atelierhq/flowbuilder/pkg/otelhelper"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SleepFunc suspends a branch for a delay node. The default honors
// context cancellation; tests inject an instant clock.
type SleepFunc func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Result carries everything one execution produced: the execution
// record, per-node results in visit order, the side effects, and the
// (possibly mutated) entity.
type Result struct {
	Execution   *models.Execution
	NodeResults []models.NodeResult
	Effects     []Effect
	Entity      models.Entity
}

// Executor runs workflow graphs. Safe for concurrent use; each Run
// works on its own traversal state.
type Executor struct {
	logger     *slog.Logger
	tracer     trace.Tracer
	httpClient *http.Client
	templates  nodeconfig.TemplateSource
	sleep      SleepFunc
}

// Option configures an Executor.
type Option func(*Executor)

// WithSleep replaces the delay implementation.
func WithSleep(sleep SleepFunc) Option {
	return func(e *Executor) { e.sleep = sleep }
}

// WithHTTPClient replaces the webhook HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Executor) { e.httpClient = client }
}

// WithTemplates provides the email template source.
func WithTemplates(templates nodeconfig.TemplateSource) Option {
	return func(e *Executor) { e.templates = templates }
}

// NewExecutor creates an executor with sane defaults.
func NewExecutor(logger *slog.Logger, opts ...Option) *Executor {
	if logger == nil {
		logger = slog.Default()
	}

	executor := &Executor{
		logger:     logger.With("module", "runner"),
		tracer:     otel.Tracer("flowbuilder/runner"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		sleep:      defaultSleep,
	}

	for _, opt := range opts {
		opt(executor)
	}

	return executor
}

type traversal struct {
	executor *Executor
	workflow *models.Workflow
	entity   models.Entity
	outgoing map[string][]*models.Connection
	nodes    map[string]*models.Node

	results      []models.NodeResult
	effects      []Effect
	branchErrors []string
}

// Run executes the workflow against the entity and returns the
// execution record plus per-node results. A workflow without a trigger
// node fails outright; branch failures are recorded but do not abort
// sibling branches.
func (e *Executor) Run(ctx context.Context, workflow *models.Workflow, entity models.Entity) *Result {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.execute",
		attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
		attribute.String(otelhelper.TriggerTypeKey, string(workflow.TriggerType)),
	)
	defer span.End()

	execution := &models.Execution{
		ID:         "exec-" + uuid.New().String()[:8],
		WorkflowID: workflow.ID,
		Status:     models.ExecutionStatusRunning,
		StartedAt:  time.Now().UTC(),
	}

	logger := e.logger.With("workflow_id", workflow.ID, "execution_id", execution.ID)
	logger.Info("starting workflow execution")

	if entity == nil {
		entity = models.Entity{}
	}

	result := &Result{Execution: execution, Entity: entity}

	trigger := workflow.TriggerNode()
	if trigger == nil {
		e.finish(execution, []string{"workflow has no trigger node"})

		return result
	}

	walk := &traversal{
		executor: e,
		workflow: workflow,
		entity:   entity,
		outgoing: indexConnections(workflow.Connections),
		nodes:    indexNodes(workflow.Nodes),
	}

	walk.visit(ctx, trigger, map[string]bool{})

	result.NodeResults = walk.results
	result.Effects = walk.effects

	e.finish(execution, walk.branchErrors)
	logger.Info("workflow execution finished",
		"status", execution.Status,
		"nodes_visited", len(walk.results))

	return result
}

func (e *Executor) finish(execution *models.Execution, branchErrors []string) {
	now := time.Now().UTC()
	execution.FinishedAt = &now

	if len(branchErrors) > 0 {
		execution.Status = models.ExecutionStatusFailed
		execution.ErrorMessage = branchErrors[0]

		return
	}

	execution.Status = models.ExecutionStatusCompleted
}

// visit runs one node and continues down its outgoing edges. The path
// map holds the nodes on the current branch: revisiting one stops the
// branch with a recorded error instead of looping.
func (t *traversal) visit(ctx context.Context, node *models.Node, path map[string]bool) {
	ctx, span := otelhelper.StartSpan(ctx, t.executor.tracer, "node.execute",
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.ActionTypeKey, string(node.ActionType)),
	)
	defer span.End()

	path[node.ID] = true
	defer delete(path, node.ID)

	handle, err := t.executeNode(ctx, node)

	result := models.NodeResult{
		NodeID:    node.ID,
		Status:    models.ExecutionStatusCompleted,
		Timestamp: time.Now().UTC(),
	}

	if err != nil {
		otelhelper.SetError(span, err, attribute.String(otelhelper.NodeIDKey, node.ID))

		result.Status = models.ExecutionStatusFailed
		result.Error = err.Error()
		t.results = append(t.results, result)
		t.branchErrors = append(t.branchErrors, fmt.Sprintf("node %s (%s): %v", node.ID, node.ActionType, err))
		t.executor.logger.Warn("node failed, stopping its branch",
			"node_id", node.ID, "action_type", node.ActionType, "error", err)

		return
	}

	result.Data = map[string]any{"handle": handle}
	t.results = append(t.results, result)

	for _, conn := range t.outgoing[node.ID] {
		if conn.SourceHandle != handle {
			continue
		}

		next, ok := t.nodes[conn.TargetNodeID]
		if !ok {
			// Should be impossible: the graph store's cascade invariant
			// guarantees live endpoints.
			t.branchErrors = append(t.branchErrors,
				fmt.Sprintf("connection %s targets missing node %s", conn.ID, conn.TargetNodeID))

			continue
		}

		if path[next.ID] {
			t.branchErrors = append(t.branchErrors,
				fmt.Sprintf("cycle detected at node %s", next.ID))

			continue
		}

		t.visit(ctx, next, path)
	}
}

// executeNode dispatches on the node kind and returns the output handle
// execution continues on.
func (t *traversal) executeNode(ctx context.Context, node *models.Node) (string, error) {
	switch node.Kind {
	case models.NodeKindTrigger:
		return models.HandleDefault, nil
	case models.NodeKindCondition:
		matched, err := t.evaluateCondition(node)
		if err != nil {
			return "", err
		}

		if matched {
			return models.HandleTrue, nil
		}

		return models.HandleFalse, nil
	case models.NodeKindDelay:
		if err := t.runDelay(ctx, node); err != nil {
			return "", err
		}

		return models.HandleDefault, nil
	case models.NodeKindAction:
		if err := t.runAction(ctx, node); err != nil {
			return "", err
		}

		return models.HandleDefault, nil
	default:
		return "", fmt.Errorf("unknown node kind %q", node.Kind)
	}
}

func (t *traversal) evaluateCondition(node *models.Node) (bool, error) {
	field := configString(node.Config, "field")
	operator := models.ConditionOperator(configString(node.Config, "operator"))
	value := configString(node.Config, "value")

	return models.EvaluateCondition(t.entity, field, operator, value)
}

func (t *traversal) runDelay(ctx context.Context, node *models.Node) error {
	value := configInt(node.Config, "value")
	if value < 1 {
		return fmt.Errorf("delay value %d below minimum", value)
	}

	var unit time.Duration

	switch configString(node.Config, "unit") {
	case "minutes":
		unit = time.Minute
	case "hours":
		unit = time.Hour
	case "days":
		unit = 24 * time.Hour
	default:
		return fmt.Errorf("unknown delay unit %q", configString(node.Config, "unit"))
	}

	duration := time.Duration(value) * unit
	t.effects = append(t.effects, Effect{
		Kind:   EffectDelayed,
		NodeID: node.ID,
		Details: map[string]any{
			"duration": duration.String(),
		},
	})

	return t.executor.sleep(ctx, duration)
}

func indexConnections(connections []*models.Connection) map[string][]*models.Connection {
	outgoing := make(map[string][]*models.Connection)
	for _, conn := range connections {
		outgoing[conn.SourceNodeID] = append(outgoing[conn.SourceNodeID], conn)
	}

	return outgoing
}

func indexNodes(nodes []*models.Node) map[string]*models.Node {
	index := make(map[string]*models.Node, len(nodes))
	for _, node := range nodes {
		index[node.ID] = node
	}

	return index
}

func configString(config map[string]any, key string) string {
	value, _ := config[key].(string)

	return value
}

func configInt(config map[string]any, key string) int {
	switch v := config[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
