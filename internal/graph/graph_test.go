package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdeck/flowdeck/pkg/schema"
)

func TestAddNode_DefaultSizes(t *testing.T) {
	tests := []struct {
		name   string
		typ    schema.NodeType
		width  float64
		height float64
	}{
		{"decision", schema.NodeTypeDecision, 180, 100},
		{"start", schema.NodeTypeStart, 120, 60},
		{"end", schema.NodeTypeEnd, 120, 60},
		{"process", schema.NodeTypeProcess, 180, 80},
		{"input", schema.NodeTypeInput, 180, 80},
		{"output", schema.NodeTypeOutput, 180, 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			n, err := m.AddNode(tt.typ, 100, 200, "label")
			require.NoError(t, err)
			assert.Equal(t, tt.width, n.Width)
			assert.Equal(t, tt.height, n.Height)
			assert.Equal(t, 100.0, n.X)
			assert.Equal(t, 200.0, n.Y)
			assert.NotEmpty(t, n.ID)
		})
	}
}

func TestAddNode_UnknownType(t *testing.T) {
	m := New()
	_, err := m.AddNode("subroutine", 0, 0, "")
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeValidation, schema.ErrorCode(err))
}

func TestAddNode_UniqueIDs(t *testing.T) {
	m := New()
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		n, err := m.AddNode(schema.NodeTypeProcess, 0, 0, "")
		require.NoError(t, err)
		require.False(t, seen[n.ID], "duplicate node id %s", n.ID)
		seen[n.ID] = true
	}
}

func TestRemoveNode_CascadesConnections(t *testing.T) {
	m := New()
	a, _ := m.AddNode(schema.NodeTypeStart, 0, 0, "Start")
	b, _ := m.AddNode(schema.NodeTypeProcess, 0, 120, "work")
	c, _ := m.AddNode(schema.NodeTypeEnd, 0, 240, "End")

	_, err := m.AddConnection(a.ID, b.ID, schema.PortBottom, schema.PortTop, "")
	require.NoError(t, err)
	_, err = m.AddConnection(b.ID, c.ID, schema.PortBottom, schema.PortTop, "")
	require.NoError(t, err)
	_, err = m.AddConnection(c.ID, b.ID, schema.PortLeft, schema.PortLeft, "retry")
	require.NoError(t, err)

	require.NoError(t, m.RemoveNode(b.ID))

	assert.Len(t, m.Nodes(), 2)
	assert.Empty(t, m.Connections(), "all connections touching the removed node must be pruned")
}

func TestRemoveNode_NotFound(t *testing.T) {
	m := New()
	err := m.RemoveNode("ghost")
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeNotFound, schema.ErrorCode(err))
}

func TestAddConnection_Validation(t *testing.T) {
	m := New()
	a, _ := m.AddNode(schema.NodeTypeStart, 0, 0, "")
	b, _ := m.AddNode(schema.NodeTypeEnd, 0, 120, "")

	_, err := m.AddConnection(a.ID, "ghost", schema.PortBottom, schema.PortTop, "")
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeNotFound, schema.ErrorCode(err))

	_, err = m.AddConnection(a.ID, b.ID, "middle", schema.PortTop, "")
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeValidation, schema.ErrorCode(err))

	conn, err := m.AddConnection(a.ID, b.ID, schema.PortBottom, schema.PortTop, "ok")
	require.NoError(t, err)
	assert.Equal(t, a.ID, conn.From)
	assert.Equal(t, b.ID, conn.To)
	assert.Equal(t, "ok", conn.Label)
}

func TestRemoveConnection(t *testing.T) {
	m := New()
	a, _ := m.AddNode(schema.NodeTypeStart, 0, 0, "")
	b, _ := m.AddNode(schema.NodeTypeEnd, 0, 120, "")
	conn, _ := m.AddConnection(a.ID, b.ID, schema.PortBottom, schema.PortTop, "")

	require.NoError(t, m.RemoveConnection(conn.ID))
	assert.Empty(t, m.Connections())

	err := m.RemoveConnection(conn.ID)
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeNotFound, schema.ErrorCode(err))
}

func TestUpdateNodeTextAndCode(t *testing.T) {
	m := New()
	n, _ := m.AddNode(schema.NodeTypeProcess, 0, 0, "old")

	require.NoError(t, m.UpdateNodeText(n.ID, "new"))
	require.NoError(t, m.UpdateNodeCode(n.ID, "x := x + 1"))

	got := m.Node(n.ID)
	assert.Equal(t, "new", got.Text)
	assert.Equal(t, "x := x + 1", got.CodeReference)

	assert.Error(t, m.UpdateNodeText("ghost", "t"))
	assert.Error(t, m.UpdateNodeCode("ghost", "c"))
}

func TestAddComment_AppendOnly(t *testing.T) {
	m := New()
	n, _ := m.AddNode(schema.NodeTypeProcess, 0, 0, "")

	first, err := m.AddComment(n.ID, "ana", "first")
	require.NoError(t, err)
	second, err := m.AddComment(n.ID, "bo", "second")
	require.NoError(t, err)

	got := m.Node(n.ID)
	require.Len(t, got.Comments, 2)
	assert.Equal(t, first.ID, got.Comments[0].ID)
	assert.Equal(t, second.ID, got.Comments[1].ID)
	assert.False(t, got.Comments[0].Timestamp.IsZero())
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	m := New()
	n, _ := m.AddNode(schema.NodeTypeProcess, 10, 20, "original")
	_, err := m.AddComment(n.ID, "ana", "note")
	require.NoError(t, err)

	snap := m.Snapshot()

	require.NoError(t, m.UpdateNodeText(n.ID, "mutated"))
	require.NoError(t, m.MoveNode(n.ID, 99, 99))
	_, err = m.AddComment(n.ID, "bo", "later")
	require.NoError(t, err)

	assert.Equal(t, "original", snap.Nodes[0].Text)
	assert.Equal(t, 10.0, snap.Nodes[0].X)
	assert.Len(t, snap.Nodes[0].Comments, 1)
}

func TestReplace_TakesDeepCopy(t *testing.T) {
	m := New()
	src := &schema.Flowchart{
		Nodes: []*schema.Node{
			{ID: "n1", Type: schema.NodeTypeStart, X: 0, Y: 0, Width: 120, Height: 60, Text: "Start"},
		},
	}

	m.Replace(src)
	src.Nodes[0].Text = "mutated after replace"

	assert.Equal(t, "Start", m.Node("n1").Text)
}
