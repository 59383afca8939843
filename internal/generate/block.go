package generate

import (
	"strings"

	"github.com/flowdeck/flowdeck/pkg/schema"
)

// outputMarkers and inputMarkers classify io statements by substring.
// Output wins when a statement matches both.
var outputMarkers = []string{"Writeln", "Write", "cout", "printf"}
var inputMarkers = []string{"Readln", "Read", "scanf", "cin"}

func classifyIO(text string) schema.NodeType {
	for _, m := range outputMarkers {
		if strings.Contains(text, m) {
			return schema.NodeTypeOutput
		}
	}
	for _, m := range inputMarkers {
		if strings.Contains(text, m) {
			return schema.NodeTypeInput
		}
	}
	return schema.NodeTypeProcess
}

// processBlock walks one statement sequence and emits its nodes and
// connections. parent is the construct node that owns this block (the
// caller wires the entry edge itself, so exits pointing back at parent are
// never connected here). The returned exits are the points from which the
// statement following this block continues.
func (b *builder) processBlock(stmts []Statement, parent *schema.Node) (blockNodes []*schema.Node, exits []ExitPoint) {
	prev := []ExitPoint{}
	if parent != nil {
		prev = []ExitPoint{Direct(parent)}
	}

	for i := 0; i < len(stmts); i++ {
		s := stmts[i]
		var current *schema.Node
		var next []ExitPoint

		switch s.Kind {
		case KindIO:
			current = b.node(classifyIO(s.Value), truncate(s.Value, truncateAt), s.Value)
			b.linkPrev(prev, current, parent)
			next = []ExitPoint{Direct(current)}

		case KindAssign, KindExpr:
			if s.Value == "" {
				continue
			}
			current = b.node(schema.NodeTypeProcess, truncate(s.Value, truncateAt), s.Value)
			b.linkPrev(prev, current, parent)
			next = []ExitPoint{Direct(current)}

		case KindIf:
			cond := b.node(schema.NodeTypeDecision, truncate(s.Condition, truncateAt), s.Condition)
			b.linkPrev(prev, cond, parent)

			trueExits := b.processBranch(s.Body, cond, schema.PortLeft, "true")

			if i+1 < len(stmts) && stmts[i+1].Kind == KindElse {
				elseStmt := stmts[i+1]
				i++ // the else is consumed here

				falseExits := b.processBranch(elseStmt.Body, cond, schema.PortRight, "false")

				next = append(filterNode(trueExits, cond), filterNode(falseExits, cond)...)
				if len(next) == 0 {
					// Both branches empty: the next statement hangs off the
					// condition itself.
					next = []ExitPoint{Direct(cond)}
				}
			} else {
				// No else: control also leaves through the condition's
				// right port labeled false.
				next = append(filterNode(trueExits, cond), Ported(cond, schema.PortRight, "false"))
			}
			current = cond

		case KindElse:
			// Consumed together with the preceding if; a stray else is
			// skipped.
			continue

		case KindWhile, KindFor:
			cond := b.node(schema.NodeTypeDecision, truncate(s.Condition, truncateAt), s.Condition)
			b.linkPrev(prev, cond, parent)

			bodyNodes, bodyExits := b.processBlock(s.Body, cond)
			if len(bodyNodes) > 0 {
				b.connect(cond, bodyNodes[0], schema.PortLeft, schema.PortTop, "true")
				// Every body exit loops back to the condition, not forward.
				for _, e := range bodyExits {
					if e.Node() != cond {
						b.connectExit(e, cond)
					}
				}
			}
			next = []ExitPoint{Ported(cond, schema.PortRight, "false")}
			current = cond

		case KindUntil:
			// Post-test loop: the body comes first, the condition after it.
			bodyParent := parent
			if len(prev) > 0 {
				bodyParent = prev[0].Node()
			}
			bodyNodes, bodyExits := b.processBlock(s.Body, bodyParent)

			var firstBody *schema.Node
			if len(bodyNodes) > 0 {
				firstBody = bodyNodes[0]
				blockNodes = append(blockNodes, bodyNodes...)
				b.linkPrev(prev, firstBody, parent)
			}

			cond := b.node(schema.NodeTypeDecision, truncate(s.Condition, truncateAt), s.Condition)

			if len(bodyExits) > 0 && firstBody != nil {
				for _, e := range bodyExits {
					if e.Node() != cond {
						b.connectExit(e, cond)
					}
				}
			} else if len(prev) > 0 && prev[0].Node() != parent {
				b.connectDefault(prev[0].Node(), cond)
			}

			if firstBody != nil {
				// The true branch loops back to the body's first node; the
				// loop exit anchors on that same node's right port. The
				// asymmetry with while/for mirrors long-standing editor
				// behavior and is kept deliberately.
				b.connect(cond, firstBody, schema.PortLeft, schema.PortTop, "true")
				next = []ExitPoint{Ported(firstBody, schema.PortRight, "false")}
			} else {
				next = []ExitPoint{Ported(cond, schema.PortLeft, "true")}
			}
			current = cond

		case KindCase:
			label := truncate("Case: "+s.CompareValue, truncateAt)
			cond := b.node(schema.NodeTypeDecision, label, s.CompareValue)
			b.linkPrev(prev, cond, parent)

			var branchExits []ExitPoint
			for _, branch := range s.Branches {
				branchNodes, exits := b.processBlock(branch.Body, cond)
				if len(branchNodes) == 0 {
					continue
				}
				b.connect(cond, branchNodes[0], schema.PortBottom, schema.PortTop, branch.Label)
				branchExits = append(branchExits, exits...)
			}

			if len(branchExits) > 0 {
				next = branchExits
			} else {
				next = []ExitPoint{Direct(cond)}
			}
			current = cond

		default:
			continue
		}

		if current != nil {
			blockNodes = append(blockNodes, current)
			prev = next
		}
	}

	return blockNodes, prev
}

// processBranch processes a construct's body block and wires the entry edge
// from the owning decision node's branch port. Returns the branch's exits;
// an empty body exits through the decision node itself.
func (b *builder) processBranch(body []Statement, cond *schema.Node, port schema.Port, label string) []ExitPoint {
	bodyNodes, bodyExits := b.processBlock(body, cond)
	if len(bodyNodes) == 0 {
		return []ExitPoint{Direct(cond)}
	}
	b.connect(cond, bodyNodes[0], port, schema.PortTop, label)
	return bodyExits
}

// linkPrev connects every pending exit point into the new node's top port.
// Exits leaving from the owning parent are skipped; the caller wires that
// entry edge with the correct branch port.
func (b *builder) linkPrev(prev []ExitPoint, to, parent *schema.Node) {
	for _, e := range prev {
		if e.Node() == to || e.Node() == parent {
			continue
		}
		b.connectExit(e, to)
	}
}

// filterNode drops exits anchored on the given node.
func filterNode(exits []ExitPoint, n *schema.Node) []ExitPoint {
	out := make([]ExitPoint, 0, len(exits))
	for _, e := range exits {
		if e.Node() != n {
			out = append(out, e)
		}
	}
	return out
}
