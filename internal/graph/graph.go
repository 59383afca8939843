// Package graph owns the in-memory flowchart model and its mutation
// operations. All invariants (unique ids, no dangling connections) are
// enforced here; callers never modify the underlying slices directly.
package graph

import (
	"time"

	"github.com/google/uuid"

	"github.com/flowdeck/flowdeck/pkg/schema"
)

// Model is the mutable flowchart graph. It is not safe for concurrent use;
// a single owner (the editor controller) performs all writes.
type Model struct {
	flowchart *schema.Flowchart
}

// New creates an empty Model.
func New() *Model {
	return &Model{flowchart: &schema.Flowchart{}}
}

// FromFlowchart creates a Model owning a deep copy of f.
func FromFlowchart(f *schema.Flowchart) *Model {
	return &Model{flowchart: f.Clone()}
}

// Snapshot returns a deep copy of the current flowchart.
func (m *Model) Snapshot() *schema.Flowchart {
	return m.flowchart.Clone()
}

// Nodes returns the live node slice. Callers must not mutate it.
func (m *Model) Nodes() []*schema.Node {
	return m.flowchart.Nodes
}

// Connections returns the live connection slice. Callers must not mutate it.
func (m *Model) Connections() []*schema.Connection {
	return m.flowchart.Connections
}

// Node returns the node with the given id, or nil.
func (m *Model) Node(id string) *schema.Node {
	return m.flowchart.Node(id)
}

// Connection returns the connection with the given id, or nil.
func (m *Model) Connection(id string) *schema.Connection {
	return m.flowchart.Connection(id)
}

// AddNode creates a node of the given type at (x, y) with the type's default
// size and returns it.
func (m *Model) AddNode(t schema.NodeType, x, y float64, text string) (*schema.Node, error) {
	if !schema.ValidNodeType(t) {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "unknown node type %q", t)
	}

	w, h := schema.DefaultSize(t)
	n := &schema.Node{
		ID:       uuid.NewString(),
		Type:     t,
		X:        x,
		Y:        y,
		Width:    w,
		Height:   h,
		Text:     text,
		Comments: []schema.Comment{},
	}
	m.flowchart.Nodes = append(m.flowchart.Nodes, n)
	return n, nil
}

// RemoveNode deletes the node and cascades deletion of every connection
// referencing it.
func (m *Model) RemoveNode(id string) error {
	idx := -1
	for i, n := range m.flowchart.Nodes {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return schema.NewErrorf(schema.ErrCodeNotFound, "node %q not found", id).WithNode(id)
	}

	m.flowchart.Nodes = append(m.flowchart.Nodes[:idx], m.flowchart.Nodes[idx+1:]...)

	kept := m.flowchart.Connections[:0]
	for _, c := range m.flowchart.Connections {
		if c.From != id && c.To != id {
			kept = append(kept, c)
		}
	}
	m.flowchart.Connections = kept
	return nil
}

// AddConnection creates a directed connection between two existing nodes
// anchored on the given ports.
func (m *Model) AddConnection(from, to string, fromPort, toPort schema.Port, label string) (*schema.Connection, error) {
	if !schema.ValidPort(fromPort) {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "invalid source port %q", fromPort)
	}
	if !schema.ValidPort(toPort) {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "invalid target port %q", toPort)
	}
	if m.flowchart.Node(from) == nil {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "node %q not found", from).WithNode(from)
	}
	if m.flowchart.Node(to) == nil {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "node %q not found", to).WithNode(to)
	}

	c := &schema.Connection{
		ID:       uuid.NewString(),
		From:     from,
		To:       to,
		FromPort: fromPort,
		ToPort:   toPort,
		Label:    label,
	}
	m.flowchart.Connections = append(m.flowchart.Connections, c)
	return c, nil
}

// RemoveConnection deletes a connection by id.
func (m *Model) RemoveConnection(id string) error {
	for i, c := range m.flowchart.Connections {
		if c.ID == id {
			m.flowchart.Connections = append(m.flowchart.Connections[:i], m.flowchart.Connections[i+1:]...)
			return nil
		}
	}
	return schema.NewErrorf(schema.ErrCodeNotFound, "connection %q not found", id)
}

// UpdateNodeText replaces a node's display text.
func (m *Model) UpdateNodeText(id, text string) error {
	n := m.flowchart.Node(id)
	if n == nil {
		return schema.NewErrorf(schema.ErrCodeNotFound, "node %q not found", id).WithNode(id)
	}
	n.Text = text
	return nil
}

// UpdateNodeCode replaces a node's source-code reference.
func (m *Model) UpdateNodeCode(id, code string) error {
	n := m.flowchart.Node(id)
	if n == nil {
		return schema.NewErrorf(schema.ErrCodeNotFound, "node %q not found", id).WithNode(id)
	}
	n.CodeReference = code
	return nil
}

// MoveNode sets a node's top-left position in logical units.
func (m *Model) MoveNode(id string, x, y float64) error {
	n := m.flowchart.Node(id)
	if n == nil {
		return schema.NewErrorf(schema.ErrCodeNotFound, "node %q not found", id).WithNode(id)
	}
	n.X = x
	n.Y = y
	return nil
}

// AddComment appends a comment to a node. Comments are append-only and
// never reordered.
func (m *Model) AddComment(nodeID, author, text string) (*schema.Comment, error) {
	n := m.flowchart.Node(nodeID)
	if n == nil {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "node %q not found", nodeID).WithNode(nodeID)
	}

	c := schema.Comment{
		ID:        uuid.NewString(),
		Author:    author,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
	n.Comments = append(n.Comments, c)
	return &n.Comments[len(n.Comments)-1], nil
}

// Replace swaps the entire flowchart for a deep copy of f. Used by the
// generator and by history restore.
func (m *Model) Replace(f *schema.Flowchart) {
	m.flowchart = f.Clone()
}
