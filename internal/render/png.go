package render

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"

	"github.com/flowdeck/flowdeck/internal/geometry"
	"github.com/flowdeck/flowdeck/pkg/schema"
)

// ExportPNG rasterizes the flowchart onto the fixed export canvas and
// returns the encoded PNG bytes. Connections are drawn first so node boxes
// paint over them.
func ExportPNG(f *schema.Flowchart) ([]byte, error) {
	dc := gg.NewContext(ExportWidth, ExportHeight)
	dc.SetColor(color.White)
	dc.Clear()

	ttfFont, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("render: parse font: %w", err)
	}
	face := truetype.NewFace(ttfFont, &truetype.Options{
		Size:    12,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	dc.SetFontFace(face)

	for _, c := range f.Connections {
		from := f.Node(c.From)
		to := f.Node(c.To)
		if from == nil || to == nil {
			continue
		}
		drawConnectionPNG(dc, c, from, to)
	}

	for _, n := range f.Nodes {
		if n.Hidden {
			continue
		}
		drawNodePNG(dc, n)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("render: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func drawConnectionPNG(dc *gg.Context, c *schema.Connection, from, to *schema.Node) {
	start := geometry.PortPosition(from, c.FromPort)
	end := geometry.PortPosition(to, c.ToPort)
	c1, c2 := geometry.BezierControls(start, c.FromPort, end, c.ToPort)

	dc.SetLineWidth(2.0)
	dc.SetHexColor(colorEdge)
	dc.MoveTo(start.X, start.Y)
	dc.CubicTo(c1.X, c1.Y, c2.X, c2.Y, end.X, end.Y)
	dc.Stroke()

	drawArrowPNG(dc, c2, end)

	if c.Label != "" {
		mid := geometry.Midpoint(c, from, to)
		w := labelBoxWidth(c.Label)
		dc.SetColor(color.White)
		dc.DrawRoundedRectangle(mid.X-w/2, mid.Y-9, w, 18, 4)
		dc.FillPreserve()
		dc.SetHexColor(colorLabelStroke)
		dc.SetLineWidth(1.0)
		dc.Stroke()
		dc.SetHexColor(colorLabelText)
		dc.DrawStringAnchored(c.Label, mid.X, mid.Y, 0.5, 0.35)
	}
}

// drawArrowPNG fills a triangular arrowhead at the path end, oriented along
// the incoming tangent (approximated by the last control point).
func drawArrowPNG(dc *gg.Context, from, tip geometry.Point) {
	dx := tip.X - from.X
	dy := tip.Y - from.Y
	length := math.Hypot(dx, dy)
	if length < 0.1 {
		return
	}
	dx /= length
	dy /= length

	const arrowSize = 6.0
	const arrowAngle = 0.5

	baseX1 := tip.X - arrowSize*dx + arrowSize*dy*arrowAngle
	baseY1 := tip.Y - arrowSize*dy - arrowSize*dx*arrowAngle
	baseX2 := tip.X - arrowSize*dx - arrowSize*dy*arrowAngle
	baseY2 := tip.Y - arrowSize*dy + arrowSize*dx*arrowAngle

	dc.SetHexColor(colorEdge)
	dc.MoveTo(tip.X, tip.Y)
	dc.LineTo(baseX1, baseY1)
	dc.LineTo(baseX2, baseY2)
	dc.ClosePath()
	dc.Fill()
}

func drawNodePNG(dc *gg.Context, n *schema.Node) {
	dc.SetColor(color.White)
	dc.DrawRoundedRectangle(n.X, n.Y, n.Width, n.Height, 8)
	dc.FillPreserve()
	dc.SetHexColor(colorStroke)
	dc.SetLineWidth(2.0)
	dc.Stroke()

	dc.SetHexColor(colorText)
	dc.DrawStringAnchored(n.Text, n.X+n.Width/2, n.Y+n.Height/2, 0.5, 0.35)
}
