// Package canvas translates pointer input into graph store mutations.
// The pending-connection interaction is an explicit finite state
// machine value, so the whole controller is unit-testable without a
// rendering harness.
package canvas

import (
	"log/slog"

	"github.com/atelierhq/flowbuilder/pkg/graph"
	"github.com/atelierhq/flowbuilder/pkg/models"
)

// ConnectState is the pending-connection state machine.
type ConnectState int

const (
	// Idle means no connection gesture is in progress.
	Idle ConnectState = iota
	// AwaitingTarget means a source handle was clicked and the next
	// handle click completes (or cancels) the connection.
	AwaitingTarget
)

type dragState struct {
	active  bool
	nodeID  string
	originX float64
	originY float64
	// pointer position is tracked locally during the drag; the store is
	// only touched once, at drag end, so intermediate motion never
	// floods the persistence or undo layers.
	pointerX float64
	pointerY float64
}

// Controller owns the editor's transient interaction state: the current
// drag, and the pending connection. It is reset whenever the editor
// view is entered or left, so navigation can never strand it mid-gesture.
type Controller struct {
	logger *slog.Logger
	store  *graph.Store

	drag          dragState
	connectState  ConnectState
	pendingSource string
	pendingHandle string
}

// NewController creates a controller over a graph store.
func NewController(store *graph.Store, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}

	return &Controller{
		logger: logger.With("module", "canvas"),
		store:  store,
	}
}

// ConnectState returns the pending-connection state.
func (c *Controller) ConnectState() ConnectState {
	return c.connectState
}

// PendingSource returns the node awaiting a connection target, or "".
func (c *Controller) PendingSource() string {
	if c.connectState != AwaitingTarget {
		return ""
	}

	return c.pendingSource
}

// BeginDrag records the pointer origin for a node drag. Starting a drag
// does not change selection.
func (c *Controller) BeginDrag(nodeID string, x, y float64) {
	if c.store.Node(nodeID) == nil {
		c.logger.Warn("drag start on missing node", "node_id", nodeID)

		return
	}

	c.drag = dragState{active: true, nodeID: nodeID, originX: x, originY: y, pointerX: x, pointerY: y}
}

// DragTo updates the tracked pointer position. No store mutation.
func (c *Controller) DragTo(x, y float64) {
	if !c.drag.active {
		return
	}

	c.drag.pointerX = x
	c.drag.pointerY = y
}

// EndDrag computes the pointer delta and moves the node once.
func (c *Controller) EndDrag(x, y float64) {
	if !c.drag.active {
		return
	}

	dx := x - c.drag.originX
	dy := y - c.drag.originY

	if dx != 0 || dy != 0 {
		c.store.MoveNode(c.drag.nodeID, dx, dy)
	}

	c.drag = dragState{}
}

// ClickNode selects a node, which opens the configuration panel.
func (c *Controller) ClickNode(nodeID string) {
	c.store.Select(nodeID)
}

// ClickCanvas clears selection and cancels any pending connection.
func (c *Controller) ClickCanvas() {
	c.store.Select("")
	c.cancelPending()
}

// ClickHandle drives the pending-connection state machine. First click
// on an output handle arms it; a second click on another node's handle
// connects pending→clicked, a click on the same node cancels.
func (c *Controller) ClickHandle(nodeID, handle string) {
	if handle == "" {
		handle = models.HandleDefault
	}

	switch c.connectState {
	case Idle:
		if c.store.Node(nodeID) == nil {
			c.logger.Warn("connect start on missing node", "node_id", nodeID)

			return
		}

		c.connectState = AwaitingTarget
		c.pendingSource = nodeID
		c.pendingHandle = handle
	case AwaitingTarget:
		if nodeID == c.pendingSource {
			c.cancelPending()

			return
		}

		c.store.Connect(c.pendingSource, nodeID, c.pendingHandle)
		c.cancelPending()
	}
}

// RemoveNode deletes a node through the store. The cascade and the
// deselection both live there; the controller only has to make sure a
// pending connection involving the node dies with it.
func (c *Controller) RemoveNode(nodeID string) {
	if c.connectState == AwaitingTarget && c.pendingSource == nodeID {
		c.cancelPending()
	}

	c.store.DeleteNode(nodeID)
}

// Reset clears all transient interaction state. Called when entering or
// leaving the editor view.
func (c *Controller) Reset() {
	c.drag = dragState{}
	c.cancelPending()
	c.store.Select("")
}

func (c *Controller) cancelPending() {
	c.connectState = Idle
	c.pendingSource = ""
	c.pendingHandle = ""
}
