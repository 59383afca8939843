package schema

import "time"

// NodeType classifies a flowchart node by the step shape it represents.
type NodeType string

const (
	NodeTypeStart    NodeType = "start"
	NodeTypeEnd      NodeType = "end"
	NodeTypeProcess  NodeType = "process"
	NodeTypeDecision NodeType = "decision"
	NodeTypeInput    NodeType = "input"
	NodeTypeOutput   NodeType = "output"
)

// ValidNodeType reports whether t is one of the six supported node types.
func ValidNodeType(t NodeType) bool {
	switch t {
	case NodeTypeStart, NodeTypeEnd, NodeTypeProcess, NodeTypeDecision, NodeTypeInput, NodeTypeOutput:
		return true
	}
	return false
}

// DefaultSize returns the default width and height for a node type:
// decision 180x100, start/end 120x60, everything else 180x80.
func DefaultSize(t NodeType) (width, height float64) {
	switch t {
	case NodeTypeDecision:
		return 180, 100
	case NodeTypeStart, NodeTypeEnd:
		return 120, 60
	default:
		return 180, 80
	}
}

// Port identifies one of the four fixed compass anchors on a node's bounding box.
type Port string

const (
	PortTop    Port = "top"
	PortRight  Port = "right"
	PortBottom Port = "bottom"
	PortLeft   Port = "left"
)

// ValidPort reports whether p is one of the four compass ports.
func ValidPort(p Port) bool {
	switch p {
	case PortTop, PortRight, PortBottom, PortLeft:
		return true
	}
	return false
}

// Comment is an annotation attached to a node. Comments are append-only
// from the editor and are never reordered.
type Comment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Node is a typed, positioned flowchart step. Position is the top-left
// corner in unscaled logical units; zoom never rescales these.
type Node struct {
	ID            string    `json:"id"`
	Type          NodeType  `json:"type"`
	X             float64   `json:"x"`
	Y             float64   `json:"y"`
	Width         float64   `json:"width"`
	Height        float64   `json:"height"`
	Text          string    `json:"text"`
	CodeReference string    `json:"codeReference"`
	Comments      []Comment `json:"comments"`
	// Hidden marks merge points: they participate in connection routing
	// but are not rendered or selectable.
	Hidden bool `json:"hidden,omitempty"`
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	c := *n
	c.Comments = make([]Comment, len(n.Comments))
	copy(c.Comments, n.Comments)
	return &c
}

// Connection is a directed, port-anchored edge between two nodes.
type Connection struct {
	ID       string `json:"id"`
	From     string `json:"from"`
	To       string `json:"to"`
	FromPort Port   `json:"fromPort"`
	ToPort   Port   `json:"toPort"`
	// Label is rendered at the path midpoint; used for true/false/case-value
	// branch labels.
	Label string `json:"label,omitempty"`
}

// Flowchart is the persistence shape passed to and from the generator
// and captured by history snapshots.
type Flowchart struct {
	Nodes       []*Node       `json:"nodes"`
	Connections []*Connection `json:"connections"`
}

// Clone returns a deep copy of the flowchart.
func (f *Flowchart) Clone() *Flowchart {
	c := &Flowchart{
		Nodes:       make([]*Node, len(f.Nodes)),
		Connections: make([]*Connection, len(f.Connections)),
	}
	for i, n := range f.Nodes {
		c.Nodes[i] = n.Clone()
	}
	for i, conn := range f.Connections {
		cc := *conn
		c.Connections[i] = &cc
	}
	return c
}

// Node returns the node with the given id, or nil.
func (f *Flowchart) Node(id string) *Node {
	for _, n := range f.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Connection returns the connection with the given id, or nil.
func (f *Flowchart) Connection(id string) *Connection {
	for _, c := range f.Connections {
		if c.ID == id {
			return c
		}
	}
	return nil
}
