// Package trace walks a flowchart from its start node, evaluating decision
// conditions against caller-supplied variable bindings and following the
// matching labeled edges. It answers "which path does this input take"
// without executing any real program.
package trace

import (
	"context"
	"fmt"
	"strings"

	"github.com/flowdeck/flowdeck/pkg/schema"
)

// DefaultMaxSteps bounds a trace so cyclic graphs (loops) terminate.
const DefaultMaxSteps = 1000

// Step is one visited node on the traced path.
type Step struct {
	NodeID string          `json:"node_id"`
	Type   schema.NodeType `json:"type"`
	Text   string          `json:"text"`
	// Branch is the label of the edge taken out of this node, "" for the
	// default edge.
	Branch string `json:"branch,omitempty"`
}

// Result is the traced path through the flowchart.
type Result struct {
	Steps     []Step `json:"steps"`
	Completed bool   `json:"completed"`
}

// Tracer walks flowcharts using an expression evaluator for decisions.
type Tracer struct {
	eval     *Evaluator
	maxSteps int
}

// New creates a Tracer with the default step bound.
func New() *Tracer {
	return &Tracer{eval: NewEvaluator(), maxSteps: DefaultMaxSteps}
}

// WithMaxSteps overrides the step bound.
func (t *Tracer) WithMaxSteps(n int) *Tracer {
	if n > 0 {
		t.maxSteps = n
	}
	return t
}

// Trace follows the flowchart from its start node under the given variable
// bindings. Decision nodes evaluate their code fragment (falling back to
// their display text) and follow the true/false edge; multi-way decisions
// match the evaluated value against branch labels. The trace completes
// when it reaches an end node; it fails when a decision has no matching
// outgoing edge or the step bound is exceeded.
func (t *Tracer) Trace(ctx context.Context, f *schema.Flowchart, vars map[string]any) (*Result, error) {
	start := findStart(f)
	if start == nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "flowchart has no start node")
	}

	res := &Result{}
	current := start

	for steps := 0; steps < t.maxSteps; steps++ {
		step := Step{NodeID: current.ID, Type: current.Type, Text: current.Text}

		if current.Type == schema.NodeTypeEnd {
			res.Steps = append(res.Steps, step)
			res.Completed = true
			return res, nil
		}

		next, branch, err := t.follow(ctx, f, current, vars)
		if err != nil {
			res.Steps = append(res.Steps, step)
			return res, err
		}
		if next == nil {
			// Dead end short of an end node.
			res.Steps = append(res.Steps, step)
			return res, nil
		}

		step.Branch = branch
		res.Steps = append(res.Steps, step)
		current = next
	}

	return res, schema.NewErrorf(schema.ErrCodeEvaluation,
		"trace exceeded %d steps; the flowchart likely contains a non-terminating loop for these inputs", t.maxSteps)
}

// follow picks the outgoing edge from a node and returns the target node
// and the taken branch label.
func (t *Tracer) follow(ctx context.Context, f *schema.Flowchart, n *schema.Node, vars map[string]any) (*schema.Node, string, error) {
	out := outgoing(f, n.ID)
	if len(out) == 0 {
		return nil, "", nil
	}

	if n.Type != schema.NodeTypeDecision {
		// Non-decision nodes follow their single default edge; an
		// unlabeled edge wins over labeled ones (loop-back edges carry
		// labels).
		for _, c := range out {
			if c.Label == "" {
				return f.Node(c.To), "", nil
			}
		}
		c := out[0]
		return f.Node(c.To), c.Label, nil
	}

	condition := n.CodeReference
	if condition == "" {
		condition = n.Text
	}
	value, err := t.eval.Evaluate(ctx, condition, vars)
	if err != nil {
		return nil, "", err
	}

	if b, ok := value.(bool); ok {
		want := "false"
		if b {
			want = "true"
		}
		for _, c := range out {
			if c.Label == want {
				return f.Node(c.To), c.Label, nil
			}
		}
		return nil, "", schema.NewErrorf(schema.ErrCodeEvaluation,
			"decision %q has no %s branch", n.Text, want).WithNode(n.ID)
	}

	// Multi-way: match the value against branch labels, which may list
	// several comma-separated values.
	rendered := fmt.Sprint(value)
	for _, c := range out {
		for _, v := range strings.Split(c.Label, ",") {
			if strings.TrimSpace(v) == rendered {
				return f.Node(c.To), c.Label, nil
			}
		}
	}
	return nil, "", schema.NewErrorf(schema.ErrCodeEvaluation,
		"decision %q has no branch matching %q", n.Text, rendered).WithNode(n.ID)
}

func findStart(f *schema.Flowchart) *schema.Node {
	for _, n := range f.Nodes {
		if n.Type == schema.NodeTypeStart {
			return n
		}
	}
	return nil
}

func outgoing(f *schema.Flowchart, nodeID string) []*schema.Connection {
	var out []*schema.Connection
	for _, c := range f.Connections {
		if c.From == nodeID {
			out = append(out, c)
		}
	}
	return out
}
