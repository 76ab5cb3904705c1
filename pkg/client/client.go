// Package client is the editor's adapter to the workflow API. It owns
// the id-remapping table between client-generated node uids and the
// server-assigned ids, so the graph store's ids are never mutated in
// place during a save round trip.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/atelierhq/flowbuilder/pkg/graph"
	"github.com/atelierhq/flowbuilder/pkg/models"
	"github.com/atelierhq/flowbuilder/pkg/web"
)

var (
	// ErrSaveInFlight rejects a save while another one is outstanding.
	// Two concurrent saves would race to overwrite the server's node-id
	// assignment.
	ErrSaveInFlight = errors.New("save already in progress")

	// ErrRunInFlight rejects a run while another one is outstanding.
	ErrRunInFlight = errors.New("run already in progress")

	// ErrNotFound maps 404 responses.
	ErrNotFound = errors.New("workflow not found")
)

// APIError carries a non-2xx response the server explained.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api returned status %d: %s", e.StatusCode, e.Detail)
}

// Client talks to the workflow API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	mu           sync.Mutex
	saveInFlight bool
	runInFlight  bool
	// serverIDs maps local node ids to the ids the server assigned on
	// the last successful save.
	serverIDs map[string]string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// New creates a client for the API at baseURL.
func New(baseURL string, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	client := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With("module", "client"),
		serverIDs:  make(map[string]string),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// ServerID returns the server id a local node id maps to, or the local
// id itself when the node has not been saved yet.
func (c *Client) ServerID(localID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if serverID, ok := c.serverIDs[localID]; ok {
		return serverID
	}

	return localID
}

// Create creates a workflow and returns its server representation.
func (c *Client) Create(ctx context.Context, name, description string, triggerType models.TriggerType) (*web.WorkflowResponse, error) {
	var workflow web.WorkflowResponse

	err := c.do(ctx, http.MethodPost, "/workflows", web.CreateWorkflowRequest{
		Name:        name,
		Description: description,
		TriggerType: string(triggerType),
	}, &workflow)
	if err != nil {
		return nil, err
	}

	return &workflow, nil
}

// GetByID fetches a workflow.
func (c *Client) GetByID(ctx context.Context, id string) (*web.WorkflowResponse, error) {
	var workflow web.WorkflowResponse

	err := c.do(ctx, http.MethodGet, "/workflows/"+id, nil, &workflow)
	if err != nil {
		return nil, err
	}

	return &workflow, nil
}

// LoadGraph fetches a workflow and hydrates the store with its graph.
// Server ids become the store's local ids, so the remap table restarts
// as identity.
func (c *Client) LoadGraph(ctx context.Context, id string, store *graph.Store) error {
	workflow, err := c.GetByID(ctx, id)
	if err != nil {
		return err
	}

	nodes := make([]*models.Node, 0, len(workflow.Nodes))
	for _, wireNode := range workflow.Nodes {
		config := wireNode.Config
		if config == nil {
			config = map[string]any{}
		}

		nodes = append(nodes, &models.Node{
			ID:         wireNode.ID,
			Kind:       models.NodeKind(wireNode.NodeType),
			ActionType: models.ActionType(wireNode.ActionType),
			Label:      wireNode.Label,
			PositionX:  wireNode.PositionX,
			PositionY:  wireNode.PositionY,
			Config:     config,
		})
	}

	connections := make([]*models.Connection, 0, len(workflow.Connections))
	for _, wireConn := range workflow.Connections {
		connections = append(connections, &models.Connection{
			ID:           wireConn.ID,
			SourceNodeID: wireConn.Source,
			TargetNodeID: wireConn.Target,
			SourceHandle: wireConn.SourceHandle,
		})
	}

	store.Hydrate(nodes, connections)

	c.mu.Lock()
	c.serverIDs = make(map[string]string)
	c.mu.Unlock()

	return nil
}

// SaveGraph serializes the store's graph and replaces the server copy.
// Exactly one save may be outstanding. On success the remap table is
// rebuilt from the server's id assignments; on failure the store is
// left untouched, the edits are not rolled back.
func (c *Client) SaveGraph(ctx context.Context, id string, store *graph.Store) error {
	c.mu.Lock()
	if c.saveInFlight {
		c.mu.Unlock()

		return ErrSaveInFlight
	}

	c.saveInFlight = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.saveInFlight = false
		c.mu.Unlock()
	}()

	nodes, connections := store.Snapshot()

	req := web.UpdateGraphRequest{
		Nodes:       make([]web.NodePayload, 0, len(nodes)),
		Connections: make([]web.ConnectionPayload, 0, len(connections)),
	}

	// localByUID inverts the outgoing uid choice so the response can be
	// matched back to local ids.
	localByUID := make(map[string]string, len(nodes))

	for _, node := range nodes {
		uid := c.ServerID(node.ID)
		localByUID[uid] = node.ID

		req.Nodes = append(req.Nodes, web.NodePayload{
			NodeUID:    uid,
			NodeType:   string(node.Kind),
			ActionType: string(node.ActionType),
			Label:      node.Label,
			Config:     node.Config,
			PositionX:  node.PositionX,
			PositionY:  node.PositionY,
		})
	}

	for _, conn := range connections {
		req.Connections = append(req.Connections, web.ConnectionPayload{
			Source:       c.ServerID(conn.SourceNodeID),
			Target:       c.ServerID(conn.TargetNodeID),
			SourceHandle: conn.SourceHandle,
		})
	}

	var updated web.WorkflowResponse

	err := c.do(ctx, http.MethodPut, "/workflows/"+id+"/graph", req, &updated)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.serverIDs = make(map[string]string, len(updated.Nodes))

	for _, wireNode := range updated.Nodes {
		localID, ok := localByUID[wireNode.NodeUID]
		if !ok {
			continue
		}

		c.serverIDs[localID] = wireNode.ID
	}

	return nil
}

// Toggle flips the workflow's active flag and returns the new value.
func (c *Client) Toggle(ctx context.Context, id string) (bool, error) {
	var workflow web.WorkflowResponse

	err := c.do(ctx, http.MethodPost, "/workflows/"+id+"/toggle", nil, &workflow)
	if err != nil {
		return false, err
	}

	return workflow.IsActive, nil
}

// Run requests a manual execution. Exactly one run may be outstanding.
func (c *Client) Run(ctx context.Context, id string, entity models.Entity) (*web.ExecutionResponse, error) {
	c.mu.Lock()
	if c.runInFlight {
		c.mu.Unlock()

		return nil, ErrRunInFlight
	}

	c.runInFlight = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.runInFlight = false
		c.mu.Unlock()
	}()

	var execution web.ExecutionResponse

	err := c.do(ctx, http.MethodPost, "/workflows/"+id+"/run", web.RunRequest{Entity: entity}, &execution)
	if err != nil {
		return nil, err
	}

	return &execution, nil
}

// Executions returns up to limit execution records, newest first.
func (c *Client) Executions(ctx context.Context, id string, limit int) ([]web.ExecutionResponse, error) {
	path := "/workflows/" + id + "/executions"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var list struct {
		Executions []web.ExecutionResponse `json:"executions"`
	}

	err := c.do(ctx, http.MethodGet, path, nil, &list)
	if err != nil {
		return nil, err
	}

	return list.Executions, nil
}

// Delete removes a workflow.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/workflows/"+id, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}

		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)

		detail := parseProblemDetail(raw)
		c.logger.Warn("api request failed", "method", method, "path", path, "status", resp.StatusCode)

		return &APIError{StatusCode: resp.StatusCode, Detail: detail}
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

func parseProblemDetail(raw []byte) string {
	var problem struct {
		Detail string `json:"detail"`
	}

	if err := json.Unmarshal(raw, &problem); err == nil && problem.Detail != "" {
		return problem.Detail
	}

	return string(raw)
}
