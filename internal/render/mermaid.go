package render

import (
	"fmt"
	"strings"

	"github.com/flowdeck/flowdeck/pkg/schema"
)

// Mermaid renders a flowchart as Mermaid graph text. Hidden merge points
// keep their edges but get an invisible point shape.
func Mermaid(f *schema.Flowchart) string {
	var b strings.Builder

	b.WriteString("graph TD\n")

	for _, n := range f.Nodes {
		b.WriteString(fmt.Sprintf("    %s\n", mermaidNodeDef(n)))
	}

	for _, c := range f.Connections {
		label := ""
		if c.Label != "" {
			label = fmt.Sprintf("|%s|", c.Label)
		}
		b.WriteString(fmt.Sprintf("    %s -->%s %s\n",
			mermaidSafeID(c.From), label, mermaidSafeID(c.To)))
	}

	return b.String()
}

// mermaidNodeDef returns a Mermaid node definition with the shape implied
// by the node type.
func mermaidNodeDef(n *schema.Node) string {
	id := mermaidSafeID(n.ID)
	if n.Hidden {
		return fmt.Sprintf("%s(( ))", id)
	}

	label := mermaidLabel(n.Text)
	switch n.Type {
	case schema.NodeTypeStart, schema.NodeTypeEnd:
		return fmt.Sprintf("%s([%q])", id, label)
	case schema.NodeTypeDecision:
		return fmt.Sprintf("%s{%q}", id, label)
	case schema.NodeTypeInput, schema.NodeTypeOutput:
		return fmt.Sprintf("%s[/%q/]", id, label)
	default: // process
		return fmt.Sprintf("%s[%q]", id, label)
	}
}

// mermaidSafeID converts a node ID to a Mermaid-safe identifier.
// Replaces dots and dashes with underscores.
func mermaidSafeID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", " ", "_")
	return r.Replace(id)
}

// mermaidLabel keeps labels single-line.
func mermaidLabel(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return " "
	}
	return s
}
