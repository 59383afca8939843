package generate

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdeck/flowdeck/pkg/schema"
)

// findNode returns the single node whose text matches, failing the test on
// zero or multiple matches.
func findNode(t *testing.T, f *schema.Flowchart, text string) *schema.Node {
	t.Helper()
	var found *schema.Node
	for _, n := range f.Nodes {
		if n.Text == text {
			require.Nil(t, found, "multiple nodes with text %q", text)
			found = n
		}
	}
	require.NotNil(t, found, "no node with text %q", text)
	return found
}

// findConn returns the single connection between two nodes.
func findConn(t *testing.T, f *schema.Flowchart, from, to *schema.Node) *schema.Connection {
	t.Helper()
	var found *schema.Connection
	for _, c := range f.Connections {
		if c.From == from.ID && c.To == to.ID {
			require.Nil(t, found, "multiple connections %s -> %s", from.Text, to.Text)
			found = c
		}
	}
	require.NotNil(t, found, "no connection %s -> %s", from.Text, to.Text)
	return found
}

func incoming(f *schema.Flowchart, n *schema.Node) []*schema.Connection {
	var in []*schema.Connection
	for _, c := range f.Connections {
		if c.To == n.ID {
			in = append(in, c)
		}
	}
	return in
}

func mustDecode(t *testing.T, doc string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(doc), &m))
	return m
}

func TestCppIfWithoutElse_RoutesBothPathsToEnd(t *testing.T) {
	rep := mustDecode(t, `{
		"type": "Program",
		"name": "main",
		"body": {
			"type": "Block",
			"statements": [
				{
					"type": "If",
					"condition": "x < y",
					"then": {
						"type": "Block",
						"statements": [
							{"type": "ExpressionStatement", "value": "cout << 1"}
						]
					}
				}
			]
		}
	}`)

	f := FromRepresentation(rep, "cpp")

	require.Len(t, f.Nodes, 4)
	start := findNode(t, f, "Start")
	cond := findNode(t, f, "x < y")
	out := findNode(t, f, "cout << 1")
	end := findNode(t, f, "End")

	assert.Equal(t, schema.NodeTypeStart, start.Type)
	assert.Equal(t, schema.NodeTypeDecision, cond.Type)
	assert.Equal(t, schema.NodeTypeOutput, out.Type, "cout statements classify as output")
	assert.Equal(t, schema.NodeTypeEnd, end.Type)

	findConn(t, f, start, cond)

	trueEdge := findConn(t, f, cond, out)
	assert.Equal(t, schema.PortLeft, trueEdge.FromPort)
	assert.Equal(t, "true", trueEdge.Label)

	falseEdge := findConn(t, f, cond, end)
	assert.Equal(t, schema.PortRight, falseEdge.FromPort)
	assert.Equal(t, "false", falseEdge.Label)

	findConn(t, f, out, end)
	assert.Len(t, f.Connections, 4)
}

func TestPascalIfElse_NextStatementHasTwoIncoming(t *testing.T) {
	rep := mustDecode(t, `{
		"program": {
			"name": "demo",
			"sections": {
				"mainBlock": {
					"expr1": {
						"type": "if",
						"condition": "a > 0",
						"body": {"expr1": {"type": "assign", "value": "b := 1"}}
					},
					"expr2": {
						"type": "else",
						"body": {"expr1": {"type": "assign", "value": "b := 2"}}
					},
					"expr3": {"type": "assign", "value": "c := b"}
				}
			}
		}
	}`)

	f := FromRepresentation(rep, "pascal")

	thenNode := findNode(t, f, "b := 1")
	elseNode := findNode(t, f, "b := 2")
	after := findNode(t, f, "c := b")
	cond := findNode(t, f, "a > 0")

	in := incoming(f, after)
	require.Len(t, in, 2, "statement after if/else receives one edge per branch")
	froms := map[string]bool{in[0].From: true, in[1].From: true}
	assert.True(t, froms[thenNode.ID])
	assert.True(t, froms[elseNode.ID])

	assert.Equal(t, "true", findConn(t, f, cond, thenNode).Label)
	assert.Equal(t, schema.PortLeft, findConn(t, f, cond, thenNode).FromPort)
	assert.Equal(t, "false", findConn(t, f, cond, elseNode).Label)
	assert.Equal(t, schema.PortRight, findConn(t, f, cond, elseNode).FromPort)
}

func TestPascalWhile_LoopBackAndFalseExit(t *testing.T) {
	rep := mustDecode(t, `{
		"program": {
			"sections": {
				"mainBlock": {
					"expr1": {
						"type": "while",
						"condition": "i < 10",
						"body": {"expr1": {"type": "assign", "value": "i := i + 1"}}
					},
					"expr2": {"type": "io", "value": "Writeln(i)"}
				}
			}
		}
	}`)

	f := FromRepresentation(rep, "pascal")

	cond := findNode(t, f, "i < 10")
	body := findNode(t, f, "i := i + 1")
	after := findNode(t, f, "Writeln(i)")

	assert.Equal(t, schema.NodeTypeOutput, after.Type)

	enter := findConn(t, f, cond, body)
	assert.Equal(t, schema.PortLeft, enter.FromPort)
	assert.Equal(t, "true", enter.Label)

	loopBack := findConn(t, f, body, cond)
	assert.Equal(t, schema.PortTop, loopBack.ToPort, "body exits loop back to the condition's top port")

	exit := findConn(t, f, cond, after)
	assert.Equal(t, schema.PortRight, exit.FromPort)
	assert.Equal(t, "false", exit.Label)
}

func TestPascalUntil_BodyFirstAsymmetricExit(t *testing.T) {
	rep := mustDecode(t, `{
		"program": {
			"sections": {
				"mainBlock": {
					"expr1": {
						"type": "until",
						"condition": "i = 0",
						"body": {
							"expr1": {"type": "assign", "value": "i := i - 1"}
						}
					},
					"expr2": {"type": "assign", "value": "done := true"}
				}
			}
		}
	}`)

	f := FromRepresentation(rep, "pascal")

	body := findNode(t, f, "i := i - 1")
	cond := findNode(t, f, "i = 0")
	after := findNode(t, f, "done := true")

	// Body precedes the condition on the vertical layout.
	assert.Less(t, body.Y, cond.Y)

	findConn(t, f, body, cond)

	loop := findConn(t, f, cond, body)
	assert.Equal(t, schema.PortLeft, loop.FromPort)
	assert.Equal(t, "true", loop.Label)

	// The loop exit anchors on the body's first node, not the condition.
	exit := findConn(t, f, body, after)
	assert.Equal(t, schema.PortRight, exit.FromPort)
	assert.Equal(t, "false", exit.Label)
}

func TestPascalCaseOf_BranchFanInAndLabels(t *testing.T) {
	rep := mustDecode(t, `{
		"program": {
			"sections": {
				"mainBlock": {
					"expr1": {
						"type": "caseOf",
						"compareValue": "grade",
						"body": {
							"branch1": {
								"conditionValues": "1, 2",
								"todo": {"expr1": {"type": "io", "value": "Writeln('low')"}}
							},
							"branch2": {
								"todo": {"expr1": {"type": "io", "value": "Writeln('high')"}}
							}
						}
					},
					"expr2": {"type": "assign", "value": "finish := true"}
				}
			}
		}
	}`)

	f := FromRepresentation(rep, "pascal")

	cond := findNode(t, f, "Case: grade")
	low := findNode(t, f, "Writeln('low')")
	high := findNode(t, f, "Writeln('high')")
	after := findNode(t, f, "finish := true")

	lowEdge := findConn(t, f, cond, low)
	assert.Equal(t, schema.PortBottom, lowEdge.FromPort)
	assert.Equal(t, "1, 2", lowEdge.Label, "label comes from conditionValues")

	highEdge := findConn(t, f, cond, high)
	assert.Equal(t, "branch2", highEdge.Label, "label falls back to the branch key")

	in := incoming(f, after)
	require.Len(t, in, 2, "next statement fans in from every branch exit")
}

func TestPascalSections_DeclarationsAndFiltering(t *testing.T) {
	rep := mustDecode(t, `{
		"program": {
			"name": "demo",
			"sections": {
				"functionBlock": {
					"expr1": {"declaration": "function Max(a, b: integer): integer"}
				},
				"constantBlock": {
					"expr1": "PI : real = 3.14",
					"expr2": "x := 5",
					"expr3": {"type": "assign", "value": "y := 6"},
					"expr4": "name : string"
				},
				"variableBlock": {
					"expr1": {"value": "i : integer"}
				},
				"mainBlock": {
					"expr1": {"type": "io", "value": "Readln(i)"}
				}
			}
		}
	}`)

	f := FromRepresentation(rep, "pascal")

	fn := findNode(t, f, "function Max(a, b: integer): integer")
	pi := findNode(t, f, "PI : real = 3.14")
	vi := findNode(t, f, "i : integer")
	read := findNode(t, f, "Readln(i)")
	assert.Equal(t, schema.NodeTypeInput, read.Type)

	// Assignments and untyped declarations leaking into the constant
	// section are dropped.
	for _, n := range f.Nodes {
		assert.NotEqual(t, "x := 5", n.Text)
		assert.NotEqual(t, "y := 6", n.Text)
		assert.NotEqual(t, "name : string", n.Text)
	}

	// Sections chain in order: start -> fn -> pi -> vi -> read -> end.
	start := findNode(t, f, "Start")
	end := findNode(t, f, "End")
	findConn(t, f, start, fn)
	findConn(t, f, fn, pi)
	findConn(t, f, pi, vi)
	findConn(t, f, vi, read)
	findConn(t, f, read, end)
}

func TestGenerate_TruncatesDisplayTextKeepsCode(t *testing.T) {
	long := strings.Repeat("a", 45)
	rep := mustDecode(t, `{
		"program": {
			"sections": {
				"mainBlock": {
					"expr1": {"type": "assign", "value": "`+long+`"}
				}
			}
		}
	}`)

	f := FromRepresentation(rep, "pascal")

	var node *schema.Node
	for _, n := range f.Nodes {
		if n.CodeReference == long {
			node = n
		}
	}
	require.NotNil(t, node)
	assert.Equal(t, long[:30]+"...", node.Text)
}

func TestGenerate_UnrecognizedShapeStillTerminates(t *testing.T) {
	f := FromRepresentation(map[string]any{"weird": true}, "pascal")

	require.Len(t, f.Nodes, 2)
	start := findNode(t, f, "Start")
	end := findNode(t, f, "End")
	findConn(t, f, start, end)
}

func TestGenerate_VerticalLayoutAdvances(t *testing.T) {
	rep := mustDecode(t, `{
		"program": {
			"sections": {
				"mainBlock": {
					"expr1": {"type": "assign", "value": "a := 1"},
					"expr2": {"type": "if", "condition": "a > 0", "body": {}},
					"expr3": {"type": "assign", "value": "b := 2"}
				}
			}
		}
	}`)

	f := FromRepresentation(rep, "pascal")

	start := findNode(t, f, "Start")
	first := findNode(t, f, "a := 1")
	cond := findNode(t, f, "a > 0")
	second := findNode(t, f, "b := 2")

	assert.Equal(t, 50.0, start.Y)
	assert.Equal(t, start.Y+120, first.Y)
	assert.Equal(t, first.Y+130, cond.Y)
	assert.Equal(t, cond.Y+150, second.Y)
	for _, n := range f.Nodes {
		assert.Equal(t, 400.0, n.X)
	}
}

func TestDecodeRepresentation(t *testing.T) {
	direct, err := DecodeRepresentation(json.RawMessage(`{"program": {}}`))
	require.NoError(t, err)
	assert.Contains(t, direct, "program")

	// Double-encoded: a JSON string containing the JSON document.
	encoded, err := json.Marshal(`{"program": {}}`)
	require.NoError(t, err)
	doubled, err := DecodeRepresentation(encoded)
	require.NoError(t, err)
	assert.Contains(t, doubled, "program")

	_, err = DecodeRepresentation(nil)
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeParseFailed, schema.ErrorCode(err))

	_, err = DecodeRepresentation(json.RawMessage(`[1, 2]`))
	require.Error(t, err)
}
