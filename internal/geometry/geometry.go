// Package geometry computes port anchor coordinates, bezier control points
// for port-to-port paths, and hit-test regions. All computation is in
// logical (zoom-independent) coordinates; callers divide pointer positions
// by the zoom factor before hit testing.
package geometry

import (
	"math"

	"github.com/flowdeck/flowdeck/pkg/schema"
)

// GridSize is the snap grid pitch in logical units.
const GridSize = 20

// PortHitRadius is the logical radius around a port anchor that counts as
// clicking the port.
const PortHitRadius = 10

// pathHitDistance is the max logical distance from a connection path that
// still counts as clicking it.
const pathHitDistance = 6

// pathSamples is the number of segments used to approximate a bezier for
// hit testing.
const pathSamples = 24

// Point is a position in logical coordinates.
type Point struct {
	X float64
	Y float64
}

// PortPosition returns the anchor point of a port on the node's bounding
// box edge: top and bottom are horizontally centered, left and right are
// vertically centered.
func PortPosition(n *schema.Node, p schema.Port) Point {
	cx := n.X + n.Width/2
	cy := n.Y + n.Height/2
	switch p {
	case schema.PortTop:
		return Point{X: cx, Y: n.Y}
	case schema.PortRight:
		return Point{X: n.X + n.Width, Y: cy}
	case schema.PortBottom:
		return Point{X: cx, Y: n.Y + n.Height}
	case schema.PortLeft:
		return Point{X: n.X, Y: cy}
	}
	return Point{X: cx, Y: cy}
}

// Center returns the center of the node's bounding box.
func Center(n *schema.Node) Point {
	return Point{X: n.X + n.Width/2, Y: n.Y + n.Height/2}
}

// BezierControls returns the two control points for a cubic bezier from a
// source port anchor to a target port anchor. Each control point is
// displaced from its endpoint along the axis implied by the port direction
// so curves leave and enter nodes perpendicular to their edge.
func BezierControls(from Point, fromPort schema.Port, to Point, toPort schema.Port) (c1, c2 Point) {
	dx := to.X - from.X
	dy := to.Y - from.Y
	offset := math.Min(math.Abs(dx), math.Abs(dy)) * 0.5

	c1 = displace(from, fromPort, offset)
	c2 = displace(to, toPort, offset)
	return c1, c2
}

// displace moves a point outward from a node edge along the port's axis.
func displace(p Point, port schema.Port, offset float64) Point {
	switch port {
	case schema.PortTop:
		return Point{X: p.X, Y: p.Y - offset}
	case schema.PortBottom:
		return Point{X: p.X, Y: p.Y + offset}
	case schema.PortLeft:
		return Point{X: p.X - offset, Y: p.Y}
	case schema.PortRight:
		return Point{X: p.X + offset, Y: p.Y}
	}
	return p
}

// BestTargetPort picks the port on the target node facing the source port
// anchor: the larger axis of the delta from the source anchor to the target
// center decides between top/bottom and left/right.
func BestTargetPort(fromAnchor Point, target *schema.Node) schema.Port {
	c := Center(target)
	dx := c.X - fromAnchor.X
	dy := c.Y - fromAnchor.Y
	if math.Abs(dy) > math.Abs(dx) {
		if dy > 0 {
			return schema.PortTop
		}
		return schema.PortBottom
	}
	if dx > 0 {
		return schema.PortLeft
	}
	return schema.PortRight
}

// Snap rounds a coordinate to the nearest grid line.
func Snap(v float64) float64 {
	return math.Round(v/GridSize) * GridSize
}

// SnapPoint rounds both coordinates of a point to the grid.
func SnapPoint(p Point) Point {
	return Point{X: Snap(p.X), Y: Snap(p.Y)}
}

// PointInNode reports whether a logical point lies within the node's
// bounding box. Hidden nodes are never hit.
func PointInNode(p Point, n *schema.Node) bool {
	if n.Hidden {
		return false
	}
	return p.X >= n.X && p.X <= n.X+n.Width && p.Y >= n.Y && p.Y <= n.Y+n.Height
}

// PortAt returns the port of n whose anchor is within PortHitRadius of p,
// or "" when no port is hit. Hidden nodes have no clickable ports.
func PortAt(p Point, n *schema.Node) schema.Port {
	if n.Hidden {
		return ""
	}
	for _, port := range []schema.Port{schema.PortTop, schema.PortRight, schema.PortBottom, schema.PortLeft} {
		anchor := PortPosition(n, port)
		if dist(p, anchor) <= PortHitRadius {
			return port
		}
	}
	return ""
}

// ConnectionHit reports whether a logical point lies close enough to the
// bezier path between the two nodes' anchored ports. The curve is
// approximated by sampled line segments.
func ConnectionHit(p Point, c *schema.Connection, from, to *schema.Node) bool {
	start := PortPosition(from, c.FromPort)
	end := PortPosition(to, c.ToPort)
	c1, c2 := BezierControls(start, c.FromPort, end, c.ToPort)

	prev := start
	for i := 1; i <= pathSamples; i++ {
		t := float64(i) / pathSamples
		cur := cubicPoint(start, c1, c2, end, t)
		if distToSegment(p, prev, cur) <= pathHitDistance {
			return true
		}
		prev = cur
	}
	return false
}

// Midpoint returns the point at t=0.5 on the bezier path of a connection,
// where branch labels are rendered.
func Midpoint(c *schema.Connection, from, to *schema.Node) Point {
	start := PortPosition(from, c.FromPort)
	end := PortPosition(to, c.ToPort)
	c1, c2 := BezierControls(start, c.FromPort, end, c.ToPort)
	return cubicPoint(start, c1, c2, end, 0.5)
}

// cubicPoint evaluates a cubic bezier at parameter t.
func cubicPoint(p0, p1, p2, p3 Point, t float64) Point {
	u := 1 - t
	a := u * u * u
	b := 3 * u * u * t
	c := 3 * u * t * t
	d := t * t * t
	return Point{
		X: a*p0.X + b*p1.X + c*p2.X + d*p3.X,
		Y: a*p0.Y + b*p1.Y + c*p2.Y + d*p3.Y,
	}
}

func dist(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// distToSegment returns the distance from p to the segment ab.
func distToSegment(p, a, b Point) float64 {
	abx := b.X - a.X
	aby := b.Y - a.Y
	lenSq := abx*abx + aby*aby
	if lenSq == 0 {
		return dist(p, a)
	}
	t := ((p.X-a.X)*abx + (p.Y-a.Y)*aby) / lenSq
	t = math.Max(0, math.Min(1, t))
	return dist(p, Point{X: a.X + t*abx, Y: a.Y + t*aby})
}
