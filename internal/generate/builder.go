package generate

import (
	"fmt"

	"github.com/flowdeck/flowdeck/pkg/schema"
)

// Vertical layout advance per node type. Nodes stack top to bottom at a
// fixed horizontal position; overlapping branches are not laid out side by
// side.
const (
	generatedX     = 400.0
	initialY       = 50.0
	advanceDefault = 130.0
	advanceDecide  = 150.0
	advanceTerm    = 120.0
)

// truncateAt is the display-text limit; codeReference keeps the full
// fragment.
const truncateAt = 30

// builder accumulates generated nodes and connections with deterministic
// counter-based ids and the vertical layout cursor.
type builder struct {
	nodes     []*schema.Node
	conns     []*schema.Connection
	nodeSeq   int
	connSeq   int
	yPosition float64
}

func newBuilder() *builder {
	return &builder{yPosition: initialY}
}

// node creates a node of the given type at the current layout cursor and
// advances the cursor by the type's vertical spacing.
func (b *builder) node(t schema.NodeType, text, codeRef string) *schema.Node {
	w, h := schema.DefaultSize(t)
	n := &schema.Node{
		ID:            fmt.Sprintf("node-%d", b.nodeSeq),
		Type:          t,
		X:             generatedX,
		Y:             b.yPosition,
		Width:         w,
		Height:        h,
		Text:          text,
		CodeReference: codeRef,
		Comments:      []schema.Comment{},
	}
	b.nodeSeq++
	b.nodes = append(b.nodes, n)

	switch t {
	case schema.NodeTypeDecision:
		b.yPosition += advanceDecide
	case schema.NodeTypeStart, schema.NodeTypeEnd:
		b.yPosition += advanceTerm
	default:
		b.yPosition += advanceDefault
	}
	return n
}

// connect adds an edge between two nodes with explicit ports and label.
func (b *builder) connect(from, to *schema.Node, fromPort, toPort schema.Port, label string) {
	b.conns = append(b.conns, &schema.Connection{
		ID:       fmt.Sprintf("conn-%d", b.connSeq),
		From:     from.ID,
		To:       to.ID,
		FromPort: fromPort,
		ToPort:   toPort,
		Label:    label,
	})
	b.connSeq++
}

// connectDefault adds a plain bottom-to-top edge.
func (b *builder) connectDefault(from, to *schema.Node) {
	b.connect(from, to, schema.PortBottom, schema.PortTop, "")
}

// connectExit wires an exit point into a target node's top port, carrying
// the exit's port and label.
func (b *builder) connectExit(e ExitPoint, to *schema.Node) {
	b.connect(e.Node(), to, e.Port(), schema.PortTop, e.Label())
}

// flowchart returns the accumulated document. Empty collections stay
// non-nil so they serialize as arrays, which document validation requires.
func (b *builder) flowchart() *schema.Flowchart {
	if b.nodes == nil {
		b.nodes = []*schema.Node{}
	}
	if b.conns == nil {
		b.conns = []*schema.Connection{}
	}
	return &schema.Flowchart{Nodes: b.nodes, Connections: b.conns}
}

// truncate shortens display text to the rune limit with an ellipsis.
func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
