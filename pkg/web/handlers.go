package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/atelierhq/flowbuilder/pkg/models"
	"github.com/atelierhq/flowbuilder/pkg/persistence"
	"github.com/atelierhq/flowbuilder/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type APIHandlers struct {
	workflowService  *services.Workflow
	executionService *services.Execution
	validator        *validator.Validate
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	executionService *services.Execution,
	validate *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		workflowService:  workflowService,
		executionService: executionService,
		validator:        validate,
	}
}

// Register mounts the workflow routes on the app.
func (h *APIHandlers) Register(app *fiber.App) {
	w := app.Group("/workflows")
	w.Get("/", h.GetWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Put("/:id/graph", h.UpdateGraph)
	w.Post("/:id/toggle", h.ToggleWorkflow)
	w.Post("/:id/run", h.RunWorkflow)
	w.Get("/:id/executions", h.GetExecutions)
	w.Delete("/:id", h.DeleteWorkflow)

	app.Get("/health", h.HealthCheck)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, ok := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.workflowService.List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	responses := make([]WorkflowResponse, 0, len(workflows))
	for _, workflow := range workflows {
		responses = append(responses, TransformWorkflowResponse(workflow, nil))
	}

	return c.JSON(fiber.Map{"workflows": responses})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.workflowService.Get(c.Context(), id)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		return internalError(c, err)
	}

	return c.JSON(TransformWorkflowResponse(workflow, nil))
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.workflowService.Create(c.Context(), services.CreateWorkflowRequest{
		Name:        req.Name,
		Description: req.Description,
		TriggerType: models.TriggerType(req.TriggerType),
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(TransformWorkflowResponse(created, nil))
}

// UpdateGraph replaces a workflow's graph. Client-generated nodeUids
// are remapped to server ids; already-saved nodes keep their ids, new
// nodes get fresh ones. The response echoes each node's uid next to
// its assigned id.
func (h *APIHandlers) UpdateGraph(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req UpdateGraphRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	existing, err := h.workflowService.Get(c.Context(), id)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		return internalError(c, err)
	}

	knownIDs := make(map[string]bool, len(existing.Nodes))
	for _, node := range existing.Nodes {
		knownIDs[node.ID] = true
	}

	idByUID := make(map[string]string, len(req.Nodes))
	uidByID := make(map[string]string, len(req.Nodes))
	nodes := make([]*models.Node, 0, len(req.Nodes))

	for _, payload := range req.Nodes {
		if err := h.validator.Struct(payload); err != nil {
			return badRequest(c, err.Error())
		}

		nodeID := payload.NodeUID
		if !knownIDs[nodeID] {
			nodeID = uuid.New().String()
		}

		idByUID[payload.NodeUID] = nodeID
		uidByID[nodeID] = payload.NodeUID

		config := payload.Config
		if config == nil {
			config = map[string]any{}
		}

		nodes = append(nodes, &models.Node{
			ID:         nodeID,
			Kind:       models.NodeKind(payload.NodeType),
			ActionType: models.ActionType(payload.ActionType),
			Label:      payload.Label,
			PositionX:  payload.PositionX,
			PositionY:  payload.PositionY,
			Config:     config,
		})
	}

	connections := make([]*models.Connection, 0, len(req.Connections))

	for _, payload := range req.Connections {
		handle := payload.SourceHandle
		if handle == "" {
			handle = models.HandleDefault
		}

		source, ok := idByUID[payload.Source]
		if !ok {
			return badRequest(c, "connection source references unknown node "+payload.Source)
		}

		target, ok := idByUID[payload.Target]
		if !ok {
			return badRequest(c, "connection target references unknown node "+payload.Target)
		}

		connections = append(connections, &models.Connection{
			ID:           uuid.New().String(),
			SourceNodeID: source,
			TargetNodeID: target,
			SourceHandle: handle,
		})
	}

	updated, err := h.workflowService.ReplaceGraph(c.Context(), id, nodes, connections)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(TransformWorkflowResponse(updated, uidByID))
}

func (h *APIHandlers) ToggleWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.workflowService.Toggle(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(TransformWorkflowResponse(workflow, nil))
}

// RunWorkflow accepts a manual run request. The run is asynchronous,
// so the handler answers 202 with the running execution record.
func (h *APIHandlers) RunWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req RunRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	execution, err := h.executionService.Run(c.Context(), id, req.Entity)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(TransformExecutionResponse(execution))
}

func (h *APIHandlers) GetExecutions(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	limit := 0

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			return badRequest(c, "Invalid limit parameter")
		}

		limit = parsed
	}

	executions, err := h.executionService.List(c.Context(), id, limit)
	if err != nil {
		return handleServiceError(c, err)
	}

	responses := make([]ExecutionResponse, 0, len(executions))
	for _, execution := range executions {
		responses = append(responses, TransformExecutionResponse(execution))
	}

	return c.JSON(fiber.Map{"executions": responses})
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	err := h.workflowService.Delete(c.Context(), id)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
