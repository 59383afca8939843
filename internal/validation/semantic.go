package validation

import (
	"fmt"

	"github.com/flowdeck/flowdeck/pkg/schema"
)

// analyzeStructure performs semantic analysis that does not affect document
// validity: start/end node counts, self loops, duplicate edges between the
// same port pair. These surface as warnings in the editor status line.
func analyzeStructure(f *schema.Flowchart) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	var startCount, endCount int
	for _, n := range f.Nodes {
		switch n.Type {
		case schema.NodeTypeStart:
			startCount++
		case schema.NodeTypeEnd:
			endCount++
		}
	}
	if startCount == 0 {
		result.AddWarning("/nodes", schema.ErrCodeValidation, "flowchart has no start node")
	}
	if startCount > 1 {
		result.AddWarning("/nodes", schema.ErrCodeValidation,
			fmt.Sprintf("flowchart has %d start nodes", startCount))
	}
	if endCount == 0 {
		result.AddWarning("/nodes", schema.ErrCodeValidation, "flowchart has no end node")
	}

	seen := make(map[string]string, len(f.Connections))
	for i, c := range f.Connections {
		path := fmt.Sprintf("connections[%d]", i)
		if c.From == c.To {
			result.AddWarning(path, schema.ErrCodeValidation,
				fmt.Sprintf("connection %q loops node %q onto itself", c.ID, c.From))
		}
		key := c.From + "/" + string(c.FromPort) + ">" + c.To + "/" + string(c.ToPort)
		if prev, dup := seen[key]; dup {
			result.AddWarning(path, schema.ErrCodeValidation,
				fmt.Sprintf("connection %q duplicates %q on the same port pair", c.ID, prev))
		} else {
			seen[key] = c.ID
		}
	}

	return result
}
