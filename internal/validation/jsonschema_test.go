package validation

import (
	"testing"

	"github.com/flowdeck/flowdeck/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validFlowchart() *schema.Flowchart {
	return &schema.Flowchart{
		Nodes: []*schema.Node{
			{ID: "n1", Type: schema.NodeTypeStart, X: 400, Y: 50, Width: 120, Height: 60, Text: "Start", Comments: []schema.Comment{}},
			{ID: "n2", Type: schema.NodeTypeProcess, X: 400, Y: 170, Width: 180, Height: 80, Text: "x := 1", Comments: []schema.Comment{}},
			{ID: "n3", Type: schema.NodeTypeEnd, X: 400, Y: 290, Width: 120, Height: 60, Text: "End", Comments: []schema.Comment{}},
		},
		Connections: []*schema.Connection{
			{ID: "c1", From: "n1", To: "n2", FromPort: schema.PortBottom, ToPort: schema.PortTop},
			{ID: "c2", From: "n2", To: "n3", FromPort: schema.PortBottom, ToPort: schema.PortTop},
		},
	}
}

func TestValidateDocument_Valid(t *testing.T) {
	v, err := NewJSONSchemaValidator()
	require.NoError(t, err)

	require.NoError(t, v.ValidateDocument(validFlowchart()))
}

func TestValidateDocument_Nil(t *testing.T) {
	v, err := NewJSONSchemaValidator()
	require.NoError(t, err)

	err = v.ValidateDocument(nil)
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeValidation, schema.ErrorCode(err))
}

func TestValidateDocument_BadNodeType(t *testing.T) {
	v, err := NewJSONSchemaValidator()
	require.NoError(t, err)

	f := validFlowchart()
	f.Nodes[1].Type = "subroutine"

	err = v.ValidateDocument(f)
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeValidation, schema.ErrorCode(err))
}

func TestValidateDocument_NonPositiveSize(t *testing.T) {
	v, err := NewJSONSchemaValidator()
	require.NoError(t, err)

	f := validFlowchart()
	f.Nodes[0].Width = 0

	err = v.ValidateDocument(f)
	require.Error(t, err)
}

func TestValidateDocument_DuplicateNodeID(t *testing.T) {
	v, err := NewJSONSchemaValidator()
	require.NoError(t, err)

	f := validFlowchart()
	f.Nodes[2].ID = "n1"
	// Rewire so no connection dangles; the duplicate id is the only defect.
	f.Connections = f.Connections[:1]

	err = v.ValidateDocument(f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate node id")
}

func TestValidateDocument_DanglingConnection(t *testing.T) {
	v, err := NewJSONSchemaValidator()
	require.NoError(t, err)

	f := validFlowchart()
	f.Connections[1].To = "ghost"

	err = v.ValidateDocument(f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing node")
}

func TestValidateDocument_BadPort(t *testing.T) {
	v, err := NewJSONSchemaValidator()
	require.NoError(t, err)

	f := validFlowchart()
	f.Connections[0].FromPort = "center"

	err = v.ValidateDocument(f)
	require.Error(t, err)
}

func TestAnalyze_StructureWarnings(t *testing.T) {
	v, err := NewJSONSchemaValidator()
	require.NoError(t, err)

	f := validFlowchart()
	f.Nodes[2].Type = schema.NodeTypeProcess // no end node left
	f.Connections = append(f.Connections, &schema.Connection{
		ID: "c3", From: "n2", To: "n2",
		FromPort: schema.PortRight, ToPort: schema.PortLeft,
	})

	result := v.Analyze(f)
	require.True(t, result.Valid())

	var messages []string
	for _, w := range result.Warnings {
		messages = append(messages, w.Message)
	}
	assert.Contains(t, messages, "flowchart has no end node")

	found := false
	for _, m := range messages {
		if m == `connection "c3" loops node "n2" onto itself` {
			found = true
		}
	}
	assert.True(t, found, "expected self-loop warning, got %v", messages)
}
