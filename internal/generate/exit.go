package generate

import "github.com/flowdeck/flowdeck/pkg/schema"

// ExitPoint is the point from which a processed construct's control flow
// continues to the next statement. A direct exit leaves through the node's
// default bottom port with no label; a ported exit leaves through a
// specific port with a branch label, e.g. the false branch of a condition
// exiting via its right port.
type ExitPoint struct {
	node   *schema.Node
	port   schema.Port
	label  string
	ported bool
}

// Direct creates an exit through the node's default bottom port.
func Direct(n *schema.Node) ExitPoint {
	return ExitPoint{node: n}
}

// Ported creates a labeled exit through a specific port.
func Ported(n *schema.Node, port schema.Port, label string) ExitPoint {
	return ExitPoint{node: n, port: port, label: label, ported: true}
}

// Node returns the node this exit leaves from.
func (e ExitPoint) Node() *schema.Node {
	return e.node
}

// Port returns the port the exit leaves through.
func (e ExitPoint) Port() schema.Port {
	if !e.ported {
		return schema.PortBottom
	}
	return e.port
}

// Label returns the branch label carried onto the outgoing connection.
func (e ExitPoint) Label() string {
	return e.label
}
