package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdeck/flowdeck/pkg/schema"
)

func TestSeed(t *testing.T) {
	m := Seed()

	nodes := m.Nodes()
	require.Len(t, nodes, 3)
	assert.Equal(t, schema.NodeTypeStart, nodes[0].Type)
	assert.Equal(t, schema.NodeTypeProcess, nodes[1].Type)
	assert.Equal(t, schema.NodeTypeDecision, nodes[2].Type)
	assert.Equal(t, "int x = 0;\nint y = 10;", nodes[1].CodeReference)

	conns := m.Connections()
	require.Len(t, conns, 2)
	assert.Equal(t, nodes[0].ID, conns[0].From)
	assert.Equal(t, nodes[1].ID, conns[0].To)
	assert.Equal(t, schema.PortBottom, conns[0].FromPort)
	assert.Equal(t, nodes[1].ID, conns[1].From)
	assert.Equal(t, nodes[2].ID, conns[1].To)
}
