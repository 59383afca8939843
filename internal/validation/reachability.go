package validation

import (
	"fmt"
	"sort"

	"github.com/flowdeck/flowdeck/pkg/schema"
)

// analyzeReachability performs graph analysis on the flowchart: BFS from the
// start nodes over outgoing connections, warning about nodes no execution
// path can reach. Cycles are legal in flowcharts (loops), so this only
// reports orphans. Hidden merge points are skipped; they exist for routing.
func analyzeReachability(f *schema.Flowchart) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	if len(f.Nodes) == 0 {
		return result
	}

	outgoing := make(map[string][]string, len(f.Nodes))
	for _, c := range f.Connections {
		outgoing[c.From] = append(outgoing[c.From], c.To)
	}

	roots := make([]string, 0, 1)
	for _, n := range f.Nodes {
		if n.Type == schema.NodeTypeStart {
			roots = append(roots, n.ID)
		}
	}
	if len(roots) == 0 {
		return result // no start node already warned by analyzeStructure
	}
	sort.Strings(roots)

	reachable := make(map[string]bool, len(f.Nodes))
	queue := make([]string, len(roots))
	copy(queue, roots)
	for _, r := range roots {
		reachable[r] = true
	}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, next := range outgoing[node] {
			if !reachable[next] {
				reachable[next] = true
				queue = append(queue, next)
			}
		}
	}

	for _, n := range f.Nodes {
		if n.Hidden || reachable[n.ID] {
			continue
		}
		result.AddWarning(fmt.Sprintf("nodes[%s]", n.ID),
			schema.ErrCodeValidation,
			fmt.Sprintf("node %q is unreachable from any start node", n.ID))
	}

	return result
}
