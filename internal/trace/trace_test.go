package trace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdeck/flowdeck/pkg/schema"
)

func node(id string, t schema.NodeType, text, code string) *schema.Node {
	w, h := schema.DefaultSize(t)
	return &schema.Node{ID: id, Type: t, Width: w, Height: h, Text: text, CodeReference: code}
}

func conn(id, from, to, label string) *schema.Connection {
	return &schema.Connection{ID: id, From: from, To: to, FromPort: schema.PortBottom, ToPort: schema.PortTop, Label: label}
}

// branchChart is start -> decision(x < 10) -> true: "small" / false: "big" -> end.
func branchChart() *schema.Flowchart {
	return &schema.Flowchart{
		Nodes: []*schema.Node{
			node("start", schema.NodeTypeStart, "Start", ""),
			node("cond", schema.NodeTypeDecision, "x < 10", "x < 10"),
			node("small", schema.NodeTypeOutput, "small", ""),
			node("big", schema.NodeTypeOutput, "big", ""),
			node("end", schema.NodeTypeEnd, "End", ""),
		},
		Connections: []*schema.Connection{
			conn("c1", "start", "cond", ""),
			conn("c2", "cond", "small", "true"),
			conn("c3", "cond", "big", "false"),
			conn("c4", "small", "end", ""),
			conn("c5", "big", "end", ""),
		},
	}
}

func pathIDs(r *Result) []string {
	ids := make([]string, len(r.Steps))
	for i, s := range r.Steps {
		ids[i] = s.NodeID
	}
	return ids
}

func TestTrace_TrueBranch(t *testing.T) {
	tr := New()

	res, err := tr.Trace(context.Background(), branchChart(), map[string]any{"x": 3})
	require.NoError(t, err)

	assert.True(t, res.Completed)
	assert.Equal(t, []string{"start", "cond", "small", "end"}, pathIDs(res))
	assert.Equal(t, "true", res.Steps[1].Branch)
}

func TestTrace_FalseBranch(t *testing.T) {
	tr := New()

	res, err := tr.Trace(context.Background(), branchChart(), map[string]any{"x": 42})
	require.NoError(t, err)

	assert.True(t, res.Completed)
	assert.Equal(t, []string{"start", "cond", "big", "end"}, pathIDs(res))
	assert.Equal(t, "false", res.Steps[1].Branch)
}

func TestTrace_LoopUnrollsUntilConditionFlips(t *testing.T) {
	// start -> cond(i < 3) -> true: body (loops back) / false: end.
	// The loop body edge back to the condition carries the label-free
	// default, the condition's top port closes the loop.
	f := &schema.Flowchart{
		Nodes: []*schema.Node{
			node("start", schema.NodeTypeStart, "Start", ""),
			node("cond", schema.NodeTypeDecision, "i < 3", "i < 3"),
			node("body", schema.NodeTypeProcess, "work", ""),
			node("end", schema.NodeTypeEnd, "End", ""),
		},
		Connections: []*schema.Connection{
			conn("c1", "start", "cond", ""),
			conn("c2", "cond", "body", "true"),
			conn("c3", "body", "cond", ""),
			conn("c4", "cond", "end", "false"),
		},
	}

	// i never changes, so the loop cannot exit.
	tr := New().WithMaxSteps(50)
	_, err := tr.Trace(context.Background(), f, map[string]any{"i": 0})
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeEvaluation, schema.ErrorCode(err))

	// With the condition false up front, the path skips the body.
	res, err := tr.Trace(context.Background(), f, map[string]any{"i": 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "cond", "end"}, pathIDs(res))
}

func TestTrace_CaseBranchByValue(t *testing.T) {
	f := &schema.Flowchart{
		Nodes: []*schema.Node{
			node("start", schema.NodeTypeStart, "Start", ""),
			node("sw", schema.NodeTypeDecision, "grade", "grade"),
			node("a", schema.NodeTypeOutput, "excellent", ""),
			node("b", schema.NodeTypeOutput, "passing", ""),
			node("end", schema.NodeTypeEnd, "End", ""),
		},
		Connections: []*schema.Connection{
			conn("c1", "start", "sw", ""),
			conn("c2", "sw", "a", "5"),
			conn("c3", "sw", "b", "3, 4"),
			conn("c4", "a", "end", ""),
			conn("c5", "b", "end", ""),
		},
	}
	tr := New()

	res, err := tr.Trace(context.Background(), f, map[string]any{"grade": 4})
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "sw", "b", "end"}, pathIDs(res), "comma-separated labels match any listed value")

	_, err = tr.Trace(context.Background(), f, map[string]any{"grade": 1})
	require.Error(t, err, "no branch matches the value")
	assert.Equal(t, schema.ErrCodeEvaluation, schema.ErrorCode(err))
}

func TestTrace_NoStartNode(t *testing.T) {
	tr := New()

	_, err := tr.Trace(context.Background(), &schema.Flowchart{}, nil)
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeValidation, schema.ErrorCode(err))
}

func TestTrace_DeadEndStopsWithoutCompleting(t *testing.T) {
	f := &schema.Flowchart{
		Nodes: []*schema.Node{
			node("start", schema.NodeTypeStart, "Start", ""),
			node("p", schema.NodeTypeProcess, "orphan", ""),
		},
		Connections: []*schema.Connection{
			conn("c1", "start", "p", ""),
		},
	}
	tr := New()

	res, err := tr.Trace(context.Background(), f, nil)
	require.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Equal(t, []string{"start", "p"}, pathIDs(res))
}

func TestEvaluator_CachesAndReports(t *testing.T) {
	e := NewEvaluator()
	ctx := context.Background()

	v, err := e.Evaluate(ctx, "x * 2", map[string]any{"x": 21})
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	// Same expression from cache with different bindings.
	v, err = e.Evaluate(ctx, "x * 2", map[string]any{"x": 5})
	require.NoError(t, err)
	assert.Equal(t, 10, v)

	_, err = e.Evaluate(ctx, "", nil)
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeValidation, schema.ErrorCode(err))

	_, err = e.Evaluate(ctx, "x +", nil)
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeValidation, schema.ErrorCode(err))
}
