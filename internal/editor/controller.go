// Package editor implements the interaction controller: a state machine
// over pointer and keyboard input that owns the ephemeral view state
// (selection, in-progress connection, drag, pan, zoom) and is the single
// writer of the graph model and the history log.
package editor

import (
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/flowdeck/flowdeck/internal/geometry"
	"github.com/flowdeck/flowdeck/internal/graph"
	"github.com/flowdeck/flowdeck/internal/history"
	"github.com/flowdeck/flowdeck/internal/render"
	"github.com/flowdeck/flowdeck/pkg/schema"
)

// Zoom bounds and step.
const (
	ZoomMin  = 0.5
	ZoomMax  = 2.0
	ZoomStep = 0.1
)

// Node placement for toolbar additions.
const (
	placeX       = 100.0
	placeY       = 80.0
	placeSpacing = 110.0
)

// Config configures a Controller.
type Config struct {
	Model      *graph.Model
	History    *history.Log
	Parser     CodeParser
	Logger     *slog.Logger
	SnapToGrid bool
}

// Controller owns all editor state. It is not safe for concurrent use
// except for AbortGeneration, which may be called while a generate request
// is in flight.
type Controller struct {
	model  *graph.Model
	log    *history.Log
	parser CodeParser
	logger *slog.Logger

	state                State
	selectedNodeID       string
	selectedConnectionID string

	connectingFrom     string
	connectingFromPort schema.Port

	draggedNodeID            string
	dragOffsetX, dragOffsetY float64
	dragMoved                bool

	lastScreenX, lastScreenY float64
	panX, panY               float64

	zoom           float64
	mouseX, mouseY float64

	editingNodeID string

	snapToGrid bool

	inFlight   chan struct{} // 1-buffered; held while a generate is in flight
	generation atomic.Uint64
}

// New creates a Controller in the Idle state at zoom 1.0.
func New(cfg Config) *Controller {
	if cfg.Model == nil {
		cfg.Model = graph.New()
	}
	if cfg.History == nil {
		cfg.History = history.NewLog()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Controller{
		model:      cfg.Model,
		log:        cfg.History,
		parser:     cfg.Parser,
		logger:     cfg.Logger,
		state:      StateIdle,
		zoom:       1.0,
		snapToGrid: cfg.SnapToGrid,
		inFlight:   make(chan struct{}, 1),
	}
}

// State returns the current interaction state.
func (c *Controller) State() State { return c.state }

// Model returns the owned graph model.
func (c *Controller) Model() *graph.Model { return c.model }

// History returns the owned history log.
func (c *Controller) History() *history.Log { return c.log }

// SelectedNodeID returns the selected node id, or "".
func (c *Controller) SelectedNodeID() string { return c.selectedNodeID }

// SelectedConnectionID returns the selected connection id, or "".
func (c *Controller) SelectedConnectionID() string { return c.selectedConnectionID }

// Zoom returns the current zoom factor.
func (c *Controller) Zoom() float64 { return c.zoom }

// Pan returns the canvas pan offset in screen units.
func (c *Controller) Pan() (x, y float64) { return c.panX, c.panY }

// SetSnapToGrid toggles grid snapping for placement and drags.
func (c *Controller) SetSnapToGrid(on bool) { c.snapToGrid = on }

// View projects the ephemeral state for the renderer.
func (c *Controller) View() render.View {
	return render.View{
		Zoom:                 c.zoom,
		SelectedNodeID:       c.selectedNodeID,
		SelectedConnectionID: c.selectedConnectionID,
		ConnectingFrom:       c.connectingFrom,
		ConnectingFromPort:   c.connectingFromPort,
		MouseX:               c.mouseX,
		MouseY:               c.mouseY,
	}
}

// toLogical converts screen coordinates to logical model coordinates,
// undoing pan and zoom.
func (c *Controller) toLogical(sx, sy float64) geometry.Point {
	return geometry.Point{
		X: (sx - c.panX) / c.zoom,
		Y: (sy - c.panY) / c.zoom,
	}
}

// nodeAt returns the topmost visible node under the logical point, or nil.
// Later nodes paint on top, so the slice is scanned in reverse.
func (c *Controller) nodeAt(p geometry.Point) *schema.Node {
	nodes := c.model.Nodes()
	for i := len(nodes) - 1; i >= 0; i-- {
		if geometry.PointInNode(p, nodes[i]) {
			return nodes[i]
		}
	}
	return nil
}

// connectionAt returns the connection whose path passes under the logical
// point, or nil.
func (c *Controller) connectionAt(p geometry.Point) *schema.Connection {
	for _, conn := range c.model.Connections() {
		from := c.model.Node(conn.From)
		to := c.model.Node(conn.To)
		if from == nil || to == nil {
			continue
		}
		if geometry.ConnectionHit(p, conn, from, to) {
			return conn
		}
	}
	return nil
}

// MouseDown handles a pointer press at screen coordinates.
func (c *Controller) MouseDown(sx, sy float64) error {
	p := c.toLogical(sx, sy)
	c.mouseX, c.mouseY = p.X, p.Y
	c.lastScreenX, c.lastScreenY = sx, sy

	if c.state == StateConnecting {
		return c.finishConnecting(p)
	}

	// Port handles are only live on the selected node.
	if c.state == StateNodeSelected {
		if sel := c.model.Node(c.selectedNodeID); sel != nil {
			if port := geometry.PortAt(p, sel); port != "" {
				c.connectingFrom = sel.ID
				c.connectingFromPort = port
				return c.transition(StateConnecting)
			}
		}
	}

	if n := c.nodeAt(p); n != nil {
		c.selectedNodeID = n.ID
		c.selectedConnectionID = ""
		c.draggedNodeID = n.ID
		c.dragOffsetX = p.X - n.X
		c.dragOffsetY = p.Y - n.Y
		c.dragMoved = false
		return c.transition(StateDragging)
	}

	if conn := c.connectionAt(p); conn != nil {
		c.selectedNodeID = ""
		c.selectedConnectionID = conn.ID
		return c.transition(StateConnectionSelected)
	}

	// Empty canvas: clear selection and start panning.
	c.selectedNodeID = ""
	c.selectedConnectionID = ""
	return c.transition(StatePanning)
}

// MouseMove handles pointer movement at screen coordinates. Dragging moves
// the grabbed node synchronously on every event; panning scrolls the
// viewport by the pointer delta.
func (c *Controller) MouseMove(sx, sy float64) error {
	p := c.toLogical(sx, sy)
	c.mouseX, c.mouseY = p.X, p.Y

	switch c.state {
	case StateDragging:
		x := p.X - c.dragOffsetX
		y := p.Y - c.dragOffsetY
		if c.snapToGrid {
			x = geometry.Snap(x)
			y = geometry.Snap(y)
		}
		n := c.model.Node(c.draggedNodeID)
		if n == nil {
			return schema.NewErrorf(schema.ErrCodeNotFound, "dragged node %q not found", c.draggedNodeID)
		}
		if x != n.X || y != n.Y {
			c.dragMoved = true
		}
		return c.model.MoveNode(c.draggedNodeID, x, y)

	case StatePanning:
		c.panX += sx - c.lastScreenX
		c.panY += sy - c.lastScreenY
	}

	c.lastScreenX, c.lastScreenY = sx, sy
	return nil
}

// MouseUp handles a pointer release. A completed drag records exactly one
// history entry; a click without movement records nothing.
func (c *Controller) MouseUp(sx, sy float64) error {
	switch c.state {
	case StateDragging:
		nodeID := c.draggedNodeID
		c.draggedNodeID = ""
		if err := c.transition(StateNodeSelected); err != nil {
			return err
		}
		if c.dragMoved {
			c.dragMoved = false
			return c.record(fmt.Sprintf("Moved node %s", nodeID))
		}
		return nil

	case StatePanning:
		return c.transition(StateIdle)
	}
	return nil
}

// finishConnecting resolves a press while a connection is being drawn. An
// explicit port click on another node uses both chosen ports verbatim; a
// body click picks the best-facing target port; anything else cancels.
func (c *Controller) finishConnecting(p geometry.Point) error {
	from := c.connectingFrom
	fromPort := c.connectingFromPort
	c.connectingFrom = ""
	c.connectingFromPort = ""

	defer func() { _ = c.transition(StateIdle) }()

	source := c.model.Node(from)
	if source == nil {
		return schema.NewErrorf(schema.ErrCodeNotFound, "connection source %q not found", from)
	}

	var target *schema.Node
	var toPort schema.Port
	for _, n := range c.model.Nodes() {
		if port := geometry.PortAt(p, n); port != "" {
			target = n
			toPort = port
			break
		}
	}
	if target == nil {
		if n := c.nodeAt(p); n != nil {
			target = n
			toPort = geometry.BestTargetPort(geometry.PortPosition(source, fromPort), n)
		}
	}

	if target == nil || target.ID == from {
		return nil
	}

	if _, err := c.model.AddConnection(from, target.ID, fromPort, toPort, ""); err != nil {
		return err
	}
	return c.record("Added connection")
}

// DoubleClick opens inline text editing on the node under the pointer.
func (c *Controller) DoubleClick(sx, sy float64) error {
	p := c.toLogical(sx, sy)
	n := c.nodeAt(p)
	if n == nil {
		return nil
	}
	c.selectedNodeID = n.ID
	c.selectedConnectionID = ""
	c.editingNodeID = n.ID
	return c.transition(StateEditingText)
}

// CommitText ends text editing, applying the new text and recording one
// history entry when it changed.
func (c *Controller) CommitText(text string) error {
	if c.state != StateEditingText {
		return schema.NewErrorf(schema.ErrCodeInvalidTransition,
			"commit text while %s", c.state)
	}
	nodeID := c.editingNodeID
	c.editingNodeID = ""
	if err := c.transition(StateNodeSelected); err != nil {
		return err
	}

	n := c.model.Node(nodeID)
	if n == nil {
		return schema.NewErrorf(schema.ErrCodeNotFound, "node %q not found", nodeID).WithNode(nodeID)
	}
	if n.Text == text {
		return nil
	}
	if err := c.model.UpdateNodeText(nodeID, text); err != nil {
		return err
	}
	return c.record("Edited node text")
}

// RevertText ends text editing without applying changes.
func (c *Controller) RevertText() error {
	if c.state != StateEditingText {
		return schema.NewErrorf(schema.ErrCodeInvalidTransition,
			"revert text while %s", c.state)
	}
	c.editingNodeID = ""
	return c.transition(StateNodeSelected)
}

// Escape cancels the current in-progress mode: an in-flight connection or
// text edit is dropped, otherwise the selection is cleared.
func (c *Controller) Escape() error {
	switch c.state {
	case StateConnecting:
		c.connectingFrom = ""
		c.connectingFromPort = ""
		return c.transition(StateIdle)
	case StateEditingText:
		return c.RevertText()
	case StateNodeSelected, StateConnectionSelected:
		c.selectedNodeID = ""
		c.selectedConnectionID = ""
		return c.transition(StateIdle)
	}
	return nil
}

// AddNode creates a node of the given type at the next vertical slot and
// records one history entry.
func (c *Controller) AddNode(t schema.NodeType) (*schema.Node, error) {
	x := placeX
	y := placeY + placeSpacing*float64(len(c.model.Nodes()))
	if c.snapToGrid {
		x = geometry.Snap(x)
		y = geometry.Snap(y)
	}

	n, err := c.model.AddNode(t, x, y, defaultText(t))
	if err != nil {
		return nil, err
	}
	if err := c.record(fmt.Sprintf("Added %s node", t)); err != nil {
		return nil, err
	}
	return n, nil
}

func defaultText(t schema.NodeType) string {
	switch t {
	case schema.NodeTypeStart:
		return "Start"
	case schema.NodeTypeEnd:
		return "End"
	case schema.NodeTypeDecision:
		return "Condition"
	case schema.NodeTypeInput:
		return "Input"
	case schema.NodeTypeOutput:
		return "Output"
	default:
		return "Process"
	}
}

// DeleteSelected removes the selected node (cascading its connections) or
// the selected connection, records one history entry, and returns to Idle.
func (c *Controller) DeleteSelected() error {
	switch {
	case c.selectedNodeID != "":
		id := c.selectedNodeID
		if err := c.model.RemoveNode(id); err != nil {
			return err
		}
		c.selectedNodeID = ""
		if err := c.transition(StateIdle); err != nil {
			return err
		}
		return c.record("Deleted node")

	case c.selectedConnectionID != "":
		id := c.selectedConnectionID
		if err := c.model.RemoveConnection(id); err != nil {
			return err
		}
		c.selectedConnectionID = ""
		if err := c.transition(StateIdle); err != nil {
			return err
		}
		return c.record("Deleted connection")
	}
	return nil
}

// SetNodeCode updates a node's source-code reference and records one
// history entry.
func (c *Controller) SetNodeCode(nodeID, code string) error {
	if err := c.model.UpdateNodeCode(nodeID, code); err != nil {
		return err
	}
	return c.record("Edited node code")
}

// AddComment appends a comment to a node and records one history entry.
func (c *Controller) AddComment(nodeID, author, text string) (*schema.Comment, error) {
	cm, err := c.model.AddComment(nodeID, author, text)
	if err != nil {
		return nil, err
	}
	if err := c.record("Added comment"); err != nil {
		return nil, err
	}
	return cm, nil
}

// ZoomIn increases zoom by one step up to the maximum.
func (c *Controller) ZoomIn() float64 { return c.SetZoom(c.zoom + ZoomStep) }

// ZoomOut decreases zoom by one step down to the minimum.
func (c *Controller) ZoomOut() float64 { return c.SetZoom(c.zoom - ZoomStep) }

// SetZoom clamps and applies a zoom factor, rounded to the step grid. Zoom
// affects rendering only; logical coordinates never rescale.
func (c *Controller) SetZoom(z float64) float64 {
	z = math.Round(z/ZoomStep) * ZoomStep
	if z < ZoomMin {
		z = ZoomMin
	}
	if z > ZoomMax {
		z = ZoomMax
	}
	c.zoom = z
	return c.zoom
}

// RestoreHistory replaces the live graph with a deep copy of the chosen
// history entry's snapshot and clears selection and in-progress state.
// The restore itself is not recorded.
func (c *Controller) RestoreHistory(entryID string) error {
	f, err := c.log.Restore(entryID)
	if err != nil {
		return err
	}
	c.model.Replace(f)
	c.clearEphemeral()
	c.state = StateIdle
	return nil
}

// clearEphemeral drops selection and every in-progress interaction.
func (c *Controller) clearEphemeral() {
	c.selectedNodeID = ""
	c.selectedConnectionID = ""
	c.connectingFrom = ""
	c.connectingFromPort = ""
	c.draggedNodeID = ""
	c.dragMoved = false
	c.editingNodeID = ""
}

// record appends a history entry capturing the current model state.
func (c *Controller) record(description string) error {
	if _, err := c.log.Record(description, c.model.Snapshot()); err != nil {
		return err
	}
	c.logger.Debug("recorded history entry", "description", description, "entries", c.log.Len())
	return nil
}
