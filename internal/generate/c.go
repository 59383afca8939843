package generate

import (
	"github.com/flowdeck/flowdeck/pkg/schema"
)

// C and C++ trees arrive as {"type": "Program", "name": ..., "body":
// {"type": "Block", "statements": [...]}}. Statements carry capitalized
// type tags; an If's else clause is attached on the statement itself and
// is split back into a sibling else here.

// cStatements decodes a statement array into the common form.
func cStatements(raw []any) []Statement {
	stmts := make([]Statement, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		stmts = append(stmts, cStatement(m)...)
	}
	return stmts
}

// cStatement decodes one statement; an If with an else clause expands into
// two sibling statements.
func cStatement(m map[string]any) []Statement {
	typ, _ := m["type"].(string)

	switch typ {
	case "If":
		out := []Statement{{
			Kind:      KindIf,
			Condition: stringOr(str(m, "condition"), "Condition"),
			Body:      cBlockBody(firstOf(m, "then", "body")),
		}}
		if elseBody, ok := m["else"]; ok && elseBody != nil {
			out = append(out, Statement{Kind: KindElse, Body: cBlockBody(elseBody)})
		}
		return out

	case "While":
		return []Statement{{
			Kind:      KindWhile,
			Condition: stringOr(str(m, "condition"), "Loop condition"),
			Body:      cBlockBody(m["body"]),
		}}

	case "For":
		return []Statement{{
			Kind:      KindFor,
			Condition: stringOr(str(m, "condition"), "For loop"),
			Body:      cBlockBody(m["body"]),
		}}

	case "DoWhile":
		return []Statement{{
			Kind:      KindUntil,
			Condition: stringOr(str(m, "condition"), "Until condition"),
			Body:      cBlockBody(m["body"]),
		}}

	case "Switch":
		return []Statement{{
			Kind:         KindCase,
			CompareValue: stringOr(str(m, "discriminant"), str(m, "compareValue")),
			Branches:     cCases(m["cases"]),
		}}

	case "ExpressionStatement", "Expression", "IO":
		if v := str(m, "value"); v != "" {
			// classifyIO sorts these into output, input or process.
			return []Statement{{Kind: KindIO, Value: v}}
		}
		return nil
	}

	if v := str(m, "value"); v != "" {
		return []Statement{{Kind: KindExpr, Value: v}}
	}
	return nil
}

// cBlockBody unwraps a Block node or a bare statement array into statements.
func cBlockBody(v any) []Statement {
	switch body := v.(type) {
	case map[string]any:
		if stmts, ok := body["statements"].([]any); ok {
			return cStatements(stmts)
		}
		// A single unbraced statement.
		return cStatement(body)
	case []any:
		return cStatements(body)
	}
	return nil
}

// cCases decodes switch arms in declared order. The edge label comes from
// the arm's matched values, falling back to its test expression.
func cCases(v any) []CaseBranch {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}

	branches := make([]CaseBranch, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		label := stringOr(str(m, "values"), str(m, "test"))
		branches = append(branches, CaseBranch{
			Key:   label,
			Label: label,
			Body:  cBlockBody(m["body"]),
		})
	}
	return branches
}

// fromC walks a C/C++ program body and emits the flowchart between a
// synthetic start and end node. Every exit point of the top-level block
// connects to the end node with its port and label intact, so an if with
// no else routes both its fallthrough and its false branch to the end.
func fromC(root map[string]any) *schema.Flowchart {
	b := newBuilder()
	start := b.node(schema.NodeTypeStart, "Start", "")

	exits := []ExitPoint{Direct(start)}
	if body, ok := root["body"].(map[string]any); ok {
		if t, _ := body["type"].(string); t == "Block" {
			stmts, _ := body["statements"].([]any)
			blockNodes, blockExits := b.processBlock(cStatements(stmts), start)
			if len(blockNodes) > 0 {
				b.connectDefault(start, blockNodes[0])
				exits = blockExits
			}
		}
	}

	end := b.node(schema.NodeTypeEnd, "End", "")
	for _, e := range exits {
		if e.Node() != end {
			b.connectExit(e, end)
		}
	}

	return b.flowchart()
}

// firstOf returns the first present key's value.
func firstOf(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}
