package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/atelierhq/flowbuilder/pkg/graph"
	"github.com/atelierhq/flowbuilder/pkg/models"
	"github.com/atelierhq/flowbuilder/pkg/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAPI mimics the server's graph endpoint: known uids keep their
// ids, unknown ones get server-assigned ids, connections are rewritten.
type stubAPI struct {
	mu       sync.Mutex
	nextID   int
	workflow web.WorkflowResponse
	saves    int
	delay    time.Duration
}

func (s *stubAPI) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("PUT /workflows/{id}/graph", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.delay > 0 {
			time.Sleep(s.delay)
		}

		var req web.UpdateGraphRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)

			return
		}

		s.saves++

		known := make(map[string]bool)
		for _, node := range s.workflow.Nodes {
			known[node.ID] = true
		}

		idByUID := make(map[string]string)
		nodes := make([]web.NodeResponse, 0, len(req.Nodes))

		for _, payload := range req.Nodes {
			id := payload.NodeUID
			if !known[id] {
				s.nextID++
				id = fmt.Sprintf("srv-%d", s.nextID)
			}

			idByUID[payload.NodeUID] = id
			nodes = append(nodes, web.NodeResponse{
				ID:         id,
				NodeUID:    payload.NodeUID,
				NodeType:   payload.NodeType,
				ActionType: payload.ActionType,
				Label:      payload.Label,
				Config:     payload.Config,
				PositionX:  payload.PositionX,
				PositionY:  payload.PositionY,
			})
		}

		connections := make([]web.ConnectionResponse, 0, len(req.Connections))
		for i, payload := range req.Connections {
			handle := payload.SourceHandle
			if handle == "" {
				handle = models.HandleDefault
			}

			connections = append(connections, web.ConnectionResponse{
				ID:           fmt.Sprintf("conn-%d", i+1),
				Source:       idByUID[payload.Source],
				Target:       idByUID[payload.Target],
				SourceHandle: handle,
			})
		}

		s.workflow.Nodes = nodes
		s.workflow.Connections = connections

		_ = json.NewEncoder(w).Encode(s.workflow)
	})

	mux.HandleFunc("GET /workflows/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		// The stored copy never carries uids; those only exist in the
		// save response.
		stored := s.workflow
		stored.Nodes = make([]web.NodeResponse, len(s.workflow.Nodes))

		for i, node := range s.workflow.Nodes {
			node.NodeUID = ""
			stored.Nodes[i] = node
		}

		_ = json.NewEncoder(w).Encode(stored)
	})

	return mux
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return New(server.URL, nil)
}

func buildEditorGraph(t *testing.T) (*graph.Store, *models.Node, *models.Node, *models.Node) {
	t.Helper()

	store := graph.NewStore(nil)

	trigger, err := store.AddNode(models.TriggerActionType(models.TriggerLeadCreated), 250, 100)
	require.NoError(t, err)
	cond, err := store.AddNode(models.ActionCondition, 450, 100)
	require.NoError(t, err)
	note, err := store.AddNode(models.ActionAddNote, 650, 50)
	require.NoError(t, err)

	store.SetNodeConfig(cond.ID, map[string]any{"field": "status", "operator": "equals", "value": "new"})
	store.SetNodeConfig(note.ID, map[string]any{"content": "hot lead {{name}}"})

	store.Connect(trigger.ID, cond.ID, "")
	store.Connect(cond.ID, note.ID, models.HandleTrue)

	return store, trigger, cond, note
}

func TestSaveGraph_RemapsWithoutMutatingStore(t *testing.T) {
	api := &stubAPI{}
	c := newTestClient(t, api.handler())

	store, trigger, cond, note := buildEditorGraph(t)
	localIDs := []string{trigger.ID, cond.ID, note.ID}

	require.NoError(t, c.SaveGraph(context.Background(), "wf-1", store))

	// The store's local ids are untouched; the remap table points each
	// one at a server id.
	for _, localID := range localIDs {
		require.NotNil(t, store.Node(localID))
		assert.True(t, strings.HasPrefix(c.ServerID(localID), "srv-"))
	}

	// A second save reuses the assigned ids, so the server sees the
	// same nodes instead of assigning fresh ones.
	require.NoError(t, c.SaveGraph(context.Background(), "wf-1", store))
	assert.Equal(t, 2, api.saves)

	api.mu.Lock()
	defer api.mu.Unlock()

	assert.Len(t, api.workflow.Nodes, 3)
	assert.Equal(t, 3, api.nextID)
}

func TestSaveThenLoad_RoundTripsStructure(t *testing.T) {
	api := &stubAPI{}
	c := newTestClient(t, api.handler())

	store, _, cond, _ := buildEditorGraph(t)

	require.NoError(t, c.SaveGraph(context.Background(), "wf-1", store))

	restored := graph.NewStore(nil)
	require.NoError(t, c.LoadGraph(context.Background(), "wf-1", restored))

	// Same shape modulo id remapping.
	require.Len(t, restored.Nodes(), 3)
	require.Len(t, restored.Connections(), 2)

	// LoadGraph resets the remap table, so the old local id now maps to
	// itself and the condition is found by type instead.
	assert.Equal(t, cond.ID, c.ServerID(cond.ID))

	var restoredCond *models.Node

	for _, node := range restored.Nodes() {
		if node.ActionType == models.ActionCondition {
			restoredCond = node
		}
	}

	require.NotNil(t, restoredCond)
	assert.Equal(t, "new", restoredCond.Config["value"])
	assert.Equal(t, 450.0, restoredCond.PositionX)

	trueEdges := restored.ConnectionsFrom(restoredCond.ID, models.HandleTrue)
	require.Len(t, trueEdges, 1)
}

func TestSaveGraph_RejectsConcurrentSave(t *testing.T) {
	api := &stubAPI{delay: 150 * time.Millisecond}
	c := newTestClient(t, api.handler())

	store, _, _, _ := buildEditorGraph(t)

	errs := make(chan error, 2)

	var wg sync.WaitGroup

	wg.Add(2)

	for range 2 {
		go func() {
			defer wg.Done()

			errs <- c.SaveGraph(context.Background(), "wf-1", store)
		}()
	}

	wg.Wait()
	close(errs)

	var inFlight, succeeded int

	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case err == ErrSaveInFlight:
			inFlight++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, inFlight)
	assert.Equal(t, 1, api.saves)
}

func TestSaveGraph_FailureLeavesStoreUntouched(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "storage offline"})
	}))

	store, trigger, _, _ := buildEditorGraph(t)

	err := c.SaveGraph(context.Background(), "wf-1", store)
	require.Error(t, err)

	var apiErr *APIError

	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "storage offline", apiErr.Detail)

	// No rollback: the edits are still there to retry with.
	assert.Len(t, store.Nodes(), 3)
	assert.Equal(t, trigger.ID, store.Nodes()[0].ID)

	// And the failed save released the single-flight guard.
	err = c.SaveGraph(context.Background(), "wf-1", store)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSaveInFlight)
}

func TestRun_SingleFlightAndNotFound(t *testing.T) {
	release := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("POST /workflows/wf-1/run", func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(web.ExecutionResponse{ID: "e1", Status: "running"})
	})
	mux.HandleFunc("POST /workflows/ghost/run", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	c := newTestClient(t, mux)

	done := make(chan error, 1)

	go func() {
		_, err := c.Run(context.Background(), "wf-1", nil)
		done <- err
	}()

	// Wait for the first run to hold the guard.
	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()

		return c.runInFlight
	}, time.Second, 5*time.Millisecond)

	_, err := c.Run(context.Background(), "wf-1", nil)
	assert.ErrorIs(t, err, ErrRunInFlight)

	close(release)
	require.NoError(t, <-done)

	_, err = c.Run(context.Background(), "ghost", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestToggleAndExecutions(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /workflows/wf-1/toggle", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(web.WorkflowResponse{ID: "wf-1", IsActive: true})
	})
	mux.HandleFunc("GET /workflows/wf-1/executions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"executions": []web.ExecutionResponse{
				{ID: "e2", Status: "completed"},
				{ID: "e1", Status: "failed", ErrorMessage: "webhook returned status 502"},
			},
		})
	})

	c := newTestClient(t, mux)

	active, err := c.Toggle(context.Background(), "wf-1")
	require.NoError(t, err)
	assert.True(t, active)

	executions, err := c.Executions(context.Background(), "wf-1", 3)
	require.NoError(t, err)
	require.Len(t, executions, 2)
	assert.Equal(t, "e2", executions[0].ID)
	assert.Equal(t, "webhook returned status 502", executions[1].ErrorMessage)
}
