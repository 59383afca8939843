package render

import (
	"fmt"
	"strings"

	"github.com/flowdeck/flowdeck/internal/geometry"
	"github.com/flowdeck/flowdeck/pkg/schema"
)

// Export canvas dimensions. The export is independent of on-screen pan and
// zoom: it always draws the logical coordinates onto a fixed 1200x800
// viewport.
const (
	ExportWidth  = 1200
	ExportHeight = 800
)

// ExportSVG produces a standalone vector document with every connection and
// every visible node box, rounded rectangles with centered text and an
// embedded arrowhead marker so the artifact is self-contained.
func ExportSVG(f *schema.Flowchart) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, `<svg width="%d" height="%d" viewBox="0 0 %d %d" xmlns="http://www.w3.org/2000/svg">`+"\n",
		ExportWidth, ExportHeight, ExportWidth, ExportHeight)

	// Arrowhead marker, referenced by every connection path.
	const arrowSize = 10.0
	fmt.Fprintf(&b, `  <defs><marker id="arrowhead" markerWidth="%g" markerHeight="%g" refX="%g" refY="%g" orient="auto" markerUnits="userSpaceOnUse">`,
		arrowSize, arrowSize, arrowSize*0.9, arrowSize*0.3)
	fmt.Fprintf(&b, `<polygon points="0 0, %g %g, 0 %g" fill="%s"/></marker></defs>`+"\n",
		arrowSize, arrowSize*0.3, arrowSize*0.6, colorEdge)

	for _, c := range f.Connections {
		from := f.Node(c.From)
		to := f.Node(c.To)
		if from == nil || to == nil {
			continue
		}
		start := geometry.PortPosition(from, c.FromPort)
		end := geometry.PortPosition(to, c.ToPort)
		c1, c2 := geometry.BezierControls(start, c.FromPort, end, c.ToPort)

		fmt.Fprintf(&b, `  <path d="M %g %g C %g %g, %g %g, %g %g" fill="none" stroke="%s" stroke-width="3" marker-end="url(#arrowhead)"/>`+"\n",
			start.X, start.Y, c1.X, c1.Y, c2.X, c2.Y, end.X, end.Y, colorEdge)

		if c.Label != "" {
			mid := geometry.Midpoint(c, from, to)
			w := labelBoxWidth(c.Label)
			fmt.Fprintf(&b, `  <rect x="%g" y="%g" width="%g" height="18" fill="#ffffff" stroke="%s" rx="4"/>`+"\n",
				mid.X-w/2, mid.Y-9, w, colorLabelStroke)
			fmt.Fprintf(&b, `  <text x="%g" y="%g" text-anchor="middle" dominant-baseline="middle" font-size="12" fill="%s">%s</text>`+"\n",
				mid.X, mid.Y, colorLabelText, escapeXML(c.Label))
		}
	}

	for _, n := range f.Nodes {
		if n.Hidden {
			continue
		}
		fmt.Fprintf(&b, `  <g transform="translate(%g, %g)">`+"\n", n.X, n.Y)
		fmt.Fprintf(&b, `    <rect width="%g" height="%g" fill="white" stroke="%s" stroke-width="2" rx="8"/>`+"\n",
			n.Width, n.Height, colorStroke)
		fmt.Fprintf(&b, `    <text x="%g" y="%g" text-anchor="middle" dominant-baseline="middle" font-size="14" font-weight="600" fill="%s">%s</text>`+"\n",
			n.Width/2, n.Height/2, colorText, escapeXML(n.Text))
		b.WriteString("  </g>\n")
	}

	b.WriteString("</svg>\n")
	return []byte(b.String())
}

// labelBoxWidth estimates the background box width for a midpoint label.
func labelBoxWidth(label string) float64 {
	w := float64(len([]rune(label)))*7 + 10
	if w < 24 {
		w = 24
	}
	return w
}

func escapeXML(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)
	return r.Replace(s)
}
