// Package render projects a flowchart and the ephemeral view state into
// drawing primitives. It holds no state of its own: every renderer here is
// a pure function of its inputs, so the same graph can be drawn to a
// display list, an SVG document, a PNG raster, or Mermaid text.
package render

import (
	"github.com/flowdeck/flowdeck/internal/geometry"
	"github.com/flowdeck/flowdeck/pkg/schema"
)

// View is the slice of editor state the renderer needs. Zoom scales every
// emitted coordinate and stroke; logical model coordinates are never
// rescaled.
type View struct {
	Zoom                 float64
	SelectedNodeID       string
	SelectedConnectionID string
	ConnectingFrom       string
	ConnectingFromPort   schema.Port
	MouseX               float64
	MouseY               float64
}

// Colors used across all render targets, matching the editor palette.
const (
	colorStroke      = "#667eea"
	colorEdge        = "#64748b"
	colorSelected    = "#3b82f6"
	colorText        = "#2d3748"
	colorLabelText   = "#1e293b"
	colorLabelStroke = "#64748b"
)

// BoxCommand draws one node as a rounded rectangle with centered text.
// All coordinates are pre-multiplied by the view zoom.
type BoxCommand struct {
	NodeID   string
	Type     schema.NodeType
	X, Y     float64
	W, H     float64
	Radius   float64
	Stroke   float64
	FontSize float64
	Text     string
	Selected bool
}

// CurveCommand draws one connection as a cubic bezier with an arrowhead at
// the end point, plus an optional midpoint label.
type CurveCommand struct {
	ConnectionID   string
	Start, C1      geometry.Point
	C2, End        geometry.Point
	Stroke         float64
	ArrowSize      float64
	Dashed         bool
	Selected       bool
	Label          string
	LabelAt        geometry.Point
	LabelFontSize  float64
}

// PortCommand draws one clickable port handle on the selected node.
type PortCommand struct {
	NodeID string
	Port   schema.Port
	At     geometry.Point
	Radius float64
}

// DisplayList is the full set of primitives for one frame, in paint order:
// curves first, then boxes, then port handles, then the connection preview.
type DisplayList struct {
	Curves  []CurveCommand
	Boxes   []BoxCommand
	Ports   []PortCommand
	Preview *CurveCommand
}

// Build projects the flowchart and view into a display list. Hidden nodes
// are skipped entirely; connections touching them are still routed through
// their port anchors so merge points work.
func Build(f *schema.Flowchart, v View) *DisplayList {
	zoom := v.Zoom
	if zoom <= 0 {
		zoom = 1
	}

	dl := &DisplayList{}

	for _, c := range f.Connections {
		from := f.Node(c.From)
		to := f.Node(c.To)
		if from == nil || to == nil {
			continue
		}
		dl.Curves = append(dl.Curves, curveFor(c, from, to, v, zoom))
	}

	for _, n := range f.Nodes {
		if n.Hidden {
			continue
		}
		dl.Boxes = append(dl.Boxes, BoxCommand{
			NodeID:   n.ID,
			Type:     n.Type,
			X:        n.X * zoom,
			Y:        n.Y * zoom,
			W:        n.Width * zoom,
			H:        n.Height * zoom,
			Radius:   8 * zoom,
			Stroke:   2 * zoom,
			FontSize: 14 * zoom,
			Text:     n.Text,
			Selected: n.ID == v.SelectedNodeID,
		})

		if n.ID == v.SelectedNodeID {
			for _, p := range []schema.Port{schema.PortTop, schema.PortRight, schema.PortBottom, schema.PortLeft} {
				anchor := geometry.PortPosition(n, p)
				dl.Ports = append(dl.Ports, PortCommand{
					NodeID: n.ID,
					Port:   p,
					At:     geometry.Point{X: anchor.X * zoom, Y: anchor.Y * zoom},
					Radius: 5 * zoom,
				})
			}
		}
	}

	if v.ConnectingFrom != "" {
		if src := f.Node(v.ConnectingFrom); src != nil {
			start := geometry.PortPosition(src, v.ConnectingFromPort)
			end := geometry.Point{X: v.MouseX, Y: v.MouseY}
			c1, c2 := geometry.BezierControls(start, v.ConnectingFromPort, end, schema.PortTop)
			dl.Preview = &CurveCommand{
				Start:     scale(start, zoom),
				C1:        scale(c1, zoom),
				C2:        scale(c2, zoom),
				End:       scale(end, zoom),
				Stroke:    2 * zoom,
				ArrowSize: 0,
				Dashed:    true,
			}
		}
	}

	return dl
}

func curveFor(c *schema.Connection, from, to *schema.Node, v View, zoom float64) CurveCommand {
	start := geometry.PortPosition(from, c.FromPort)
	end := geometry.PortPosition(to, c.ToPort)
	c1, c2 := geometry.BezierControls(start, c.FromPort, end, c.ToPort)

	cmd := CurveCommand{
		ConnectionID:  c.ID,
		Start:         scale(start, zoom),
		C1:            scale(c1, zoom),
		C2:            scale(c2, zoom),
		End:           scale(end, zoom),
		Stroke:        3 * zoom,
		ArrowSize:     10 * zoom,
		Selected:      c.ID == v.SelectedConnectionID,
		Label:         c.Label,
		LabelFontSize: 12 * zoom,
	}
	if c.Label != "" {
		mid := geometry.Midpoint(c, from, to)
		cmd.LabelAt = scale(mid, zoom)
	}
	return cmd
}

func scale(p geometry.Point, zoom float64) geometry.Point {
	return geometry.Point{X: p.X * zoom, Y: p.Y * zoom}
}
