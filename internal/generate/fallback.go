package generate

import (
	"strings"

	"github.com/flowdeck/flowdeck/pkg/schema"
)

// Fallback is the degraded generator used when the parser service is
// unreachable or its output is unusable. It classifies raw source lines by
// substring into a flat, unconnected chain of nodes between a start and an
// end node. It is total: any string input yields a result, never an error.
func Fallback(source string) *schema.Flowchart {
	b := newBuilder()
	b.node(schema.NodeTypeStart, "Start", "")

	for _, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		switch {
		case containsAny(trimmed, "if", "while", "for"):
			n := b.node(schema.NodeTypeDecision, clip(trimmed, truncateAt), trimmed)
			n.X = fallbackX
		case containsAny(trimmed, "print", "console.log", "cout", "Writeln", "Write"):
			n := b.node(schema.NodeTypeOutput, "Output", trimmed)
			n.X = fallbackX
		case containsAny(trimmed, "input", "scanf", "cin"):
			n := b.node(schema.NodeTypeInput, "Input", trimmed)
			n.X = fallbackX
		case trimmed != "{" && trimmed != "}":
			n := b.node(schema.NodeTypeProcess, clip(trimmed, truncateAt), trimmed)
			n.X = fallbackX
		}
	}

	b.node(schema.NodeTypeEnd, "End", "")
	return b.flowchart()
}

// fallbackX offsets scanned lines slightly left of the start/end column.
const fallbackX = 370.0

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// clip cuts display text at the rune limit without an ellipsis; the
// fallback keeps the raw prefix the way the line scanner always has.
func clip(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
