// Package graph owns the canonical in-memory representation of a
// workflow under edit: its nodes, connections, and the current
// selection. All mutation goes through the store so the graph
// invariants hold by construction.
package graph

import (
	"errors"
	"log/slog"
	"maps"

	"github.com/atelierhq/flowbuilder/pkg/models"
	"github.com/atelierhq/flowbuilder/pkg/registry"
	"github.com/google/uuid"
)

// ErrDuplicateTrigger is returned when adding a second trigger node.
// A workflow has exactly one entry point.
var ErrDuplicateTrigger = errors.New("workflow already has a trigger node")

// Store holds a single workflow's graph. It is not safe for concurrent
// use: the editor is event-driven and mutates the graph synchronously
// inside input handlers.
type Store struct {
	logger      *slog.Logger
	nodes       []*models.Node
	connections []*models.Connection
	selectedID  string
}

// NewStore creates an empty graph store.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{logger: logger.With("module", "graph")}
}

// AddNode creates a node of the given action type at a canvas position.
// The node gets a fresh local id, the registry's default label, and an
// empty configuration.
func (s *Store) AddNode(actionType models.ActionType, x, y float64) (*models.Node, error) {
	def, err := registry.Get(actionType)
	if err != nil {
		return nil, err
	}

	if def.Kind == models.NodeKindTrigger && s.triggerNode() != nil {
		return nil, ErrDuplicateTrigger
	}

	node := &models.Node{
		ID:         uuid.New().String(),
		Kind:       def.Kind,
		ActionType: actionType,
		Label:      def.DisplayLabel,
		PositionX:  x,
		PositionY:  y,
		Config:     map[string]any{},
	}
	s.nodes = append(s.nodes, node)

	return node, nil
}

// MoveNode translates a node's position by (dx, dy). A stale id is
// logged and ignored: drag events can race node deletion within the
// same event loop tick.
func (s *Store) MoveNode(id string, dx, dy float64) {
	node := s.Node(id)
	if node == nil {
		s.logger.Warn("move on missing node", "node_id", id)

		return
	}

	node.PositionX += dx
	node.PositionY += dy
}

// DeleteNode removes the node and, atomically, every connection that
// references it. No connection may ever reference a missing node.
func (s *Store) DeleteNode(id string) {
	index := -1

	for i, node := range s.nodes {
		if node.ID == id {
			index = i

			break
		}
	}

	if index < 0 {
		s.logger.Warn("delete on missing node", "node_id", id)

		return
	}

	s.nodes = append(s.nodes[:index], s.nodes[index+1:]...)

	kept := s.connections[:0]

	for _, conn := range s.connections {
		if conn.SourceNodeID == id || conn.TargetNodeID == id {
			continue
		}

		kept = append(kept, conn)
	}

	s.connections = kept

	if s.selectedID == id {
		s.selectedID = ""
	}
}

// Connect appends a connection from source to target on the given
// handle (empty means "default"). Self-loops, duplicate
// (source, target, handle) triples, and targets without an input handle
// are rejected silently: the interaction state machine prevents them by
// construction, so they are integrity guards, not user errors. Returns
// the new connection or nil.
func (s *Store) Connect(sourceID, targetID, handle string) *models.Connection {
	if handle == "" {
		handle = models.HandleDefault
	}

	if sourceID == targetID {
		return nil
	}

	target := s.Node(targetID)
	if s.Node(sourceID) == nil || target == nil {
		s.logger.Warn("connect on missing node", "source", sourceID, "target", targetID)

		return nil
	}

	if def, err := registry.Get(target.ActionType); err == nil && def.InputCount() == 0 {
		s.logger.Warn("connect into node without input handle", "target", targetID)

		return nil
	}

	for _, conn := range s.connections {
		if conn.SourceNodeID == sourceID && conn.TargetNodeID == targetID && conn.SourceHandle == handle {
			return nil
		}
	}

	conn := &models.Connection{
		ID:           uuid.New().String(),
		SourceNodeID: sourceID,
		TargetNodeID: targetID,
		SourceHandle: handle,
	}
	s.connections = append(s.connections, conn)

	return conn
}

// Disconnect removes exactly one connection by id.
func (s *Store) Disconnect(connectionID string) {
	for i, conn := range s.connections {
		if conn.ID == connectionID {
			s.connections = append(s.connections[:i], s.connections[i+1:]...)

			return
		}
	}

	s.logger.Warn("disconnect on missing connection", "connection_id", connectionID)
}

// SetNodeConfig merges a partial configuration into the node's existing
// config. The merge is deep for nested objects: setting schedule.hour
// keeps a previously set schedule.type. Validation happens before this
// call (nodeconfig); the store itself only guarantees the merge is
// non-destructive.
func (s *Store) SetNodeConfig(id string, partial map[string]any) {
	node := s.Node(id)
	if node == nil {
		s.logger.Warn("configure on missing node", "node_id", id)

		return
	}

	if node.Config == nil {
		node.Config = map[string]any{}
	}

	mergeConfig(node.Config, partial)
}

func mergeConfig(dst, src map[string]any) {
	for key, value := range src {
		nested, isMap := value.(map[string]any)
		if !isMap {
			dst[key] = value

			continue
		}

		existing, ok := dst[key].(map[string]any)
		if !ok {
			existing = map[string]any{}
			dst[key] = existing
		}

		mergeConfig(existing, nested)
	}
}

// Select sets the single selected node; an empty id clears selection.
// The editor has no multi-select.
func (s *Store) Select(id string) {
	if id != "" && s.Node(id) == nil {
		s.logger.Warn("select on missing node", "node_id", id)

		return
	}

	s.selectedID = id
}

// SelectedID returns the currently selected node id, or "".
func (s *Store) SelectedID() string {
	return s.selectedID
}

// Node returns the node with the given id, or nil.
func (s *Store) Node(id string) *models.Node {
	for _, node := range s.nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// Nodes returns the nodes in insertion order. Callers must not mutate.
func (s *Store) Nodes() []*models.Node {
	return s.nodes
}

// Connections returns the connections in insertion order, which is also
// the execution engine's visiting order for a node's outgoing edges.
func (s *Store) Connections() []*models.Connection {
	return s.connections
}

// ConnectionsFrom returns the outgoing connections of a node on one
// handle, in insertion order.
func (s *Store) ConnectionsFrom(nodeID, handle string) []*models.Connection {
	var out []*models.Connection

	for _, conn := range s.connections {
		if conn.SourceNodeID == nodeID && conn.SourceHandle == handle {
			out = append(out, conn)
		}
	}

	return out
}

// Snapshot returns deep copies of the graph's nodes and connections,
// suitable for serialization while editing continues.
func (s *Store) Snapshot() ([]*models.Node, []*models.Connection) {
	nodes := make([]*models.Node, 0, len(s.nodes))

	for _, node := range s.nodes {
		copied := *node
		copied.Config = deepCopyConfig(node.Config)
		nodes = append(nodes, &copied)
	}

	connections := make([]*models.Connection, 0, len(s.connections))

	for _, conn := range s.connections {
		copied := *conn
		connections = append(connections, &copied)
	}

	return nodes, connections
}

func deepCopyConfig(config map[string]any) map[string]any {
	if config == nil {
		return nil
	}

	copied := make(map[string]any, len(config))
	maps.Copy(copied, config)

	for key, value := range config {
		if nested, ok := value.(map[string]any); ok {
			copied[key] = deepCopyConfig(nested)
		}
	}

	return copied
}

// Hydrate replaces the graph's contents, clearing selection. Used by
// the persistence adapter when loading a workflow into the editor.
func (s *Store) Hydrate(nodes []*models.Node, connections []*models.Connection) {
	s.nodes = nodes
	s.connections = connections
	s.selectedID = ""
}

func (s *Store) triggerNode() *models.Node {
	for _, node := range s.nodes {
		if node.Kind == models.NodeKindTrigger {
			return node
		}
	}

	return nil
}
