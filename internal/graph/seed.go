package graph

import "github.com/flowdeck/flowdeck/pkg/schema"

// Seed returns a model preloaded with the starter document that new
// flowcharts open with: a start node flowing into a variable
// initialization process and a decision.
func Seed() *Model {
	m := New()

	start, _ := m.AddNode(schema.NodeTypeStart, 400, 50, "Start")
	process, _ := m.AddNode(schema.NodeTypeProcess, 370, 150, "Initialize\nvariables")
	decision, _ := m.AddNode(schema.NodeTypeDecision, 370, 270, "x < y?")

	_ = m.UpdateNodeCode(process.ID, "int x = 0;\nint y = 10;")
	_ = m.UpdateNodeCode(decision.ID, "if (x < y)")

	_, _ = m.AddConnection(start.ID, process.ID, schema.PortBottom, schema.PortTop, "")
	_, _ = m.AddConnection(process.ID, decision.ID, schema.PortBottom, schema.PortTop, "")

	return m
}
