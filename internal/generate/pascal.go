package generate

import (
	"sort"
	"strconv"
	"strings"

	"github.com/flowdeck/flowdeck/pkg/schema"
)

// Pascal trees arrive as {"program": {"name": ..., "sections": {...}}} with
// statement blocks keyed exprN. Sections walked in order: function
// declarations, constants, variables, then the main block.

// pascalStatements decodes an exprN-keyed block into ordered statements.
func pascalStatements(block map[string]any) []Statement {
	type entry struct {
		num  int
		expr map[string]any
	}

	entries := make([]entry, 0, len(block))
	for key, v := range block {
		if !strings.HasPrefix(key, "expr") {
			continue
		}
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		num, _ := strconv.Atoi(strings.TrimPrefix(key, "expr"))
		entries = append(entries, entry{num: num, expr: m})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].num < entries[j].num })

	stmts := make([]Statement, 0, len(entries))
	for _, e := range entries {
		if s, ok := pascalStatement(e.expr); ok {
			stmts = append(stmts, s)
		}
	}
	return stmts
}

func pascalStatement(m map[string]any) (Statement, bool) {
	typ, _ := m["type"].(string)

	switch typ {
	case "io":
		return Statement{Kind: KindIO, Value: str(m, "value")}, true
	case "assign":
		return Statement{Kind: KindAssign, Value: stringOr(str(m, "value"), "Assignment")}, true
	case "if", "If":
		return Statement{
			Kind:      KindIf,
			Condition: stringOr(str(m, "condition"), "Condition"),
			Body:      pascalBody(m),
		}, true
	case "else", "Else":
		return Statement{Kind: KindElse, Body: pascalBody(m)}, true
	case "while", "While":
		return Statement{
			Kind:      KindWhile,
			Condition: stringOr(str(m, "condition"), "Loop condition"),
			Body:      pascalBody(m),
		}, true
	case "for", "For":
		return Statement{
			Kind:      KindFor,
			Condition: stringOr(str(m, "condition"), "For loop"),
			Body:      pascalBody(m),
		}, true
	case "until":
		return Statement{
			Kind:      KindUntil,
			Condition: stringOr(str(m, "condition"), "Until condition"),
			Body:      pascalBody(m),
		}, true
	case "caseOf":
		return Statement{
			Kind:         KindCase,
			CompareValue: str(m, "compareValue"),
			Branches:     pascalBranches(m),
		}, true
	}

	if v := str(m, "value"); v != "" {
		return Statement{Kind: KindExpr, Value: v}, true
	}
	return Statement{}, false
}

func pascalBody(m map[string]any) []Statement {
	body, ok := m["body"].(map[string]any)
	if !ok {
		return nil
	}
	return pascalStatements(body)
}

// pascalBranches decodes caseOf arms. Branch keys are walked in sorted
// order; the edge label comes from conditionValues, falling back to the
// branch key itself.
func pascalBranches(m map[string]any) []CaseBranch {
	body, ok := m["body"].(map[string]any)
	if !ok {
		return nil
	}

	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	branches := make([]CaseBranch, 0, len(keys))
	for _, k := range keys {
		branch, ok := body[k].(map[string]any)
		if !ok {
			continue
		}
		todo, ok := branch["todo"].(map[string]any)
		if !ok {
			continue
		}
		branches = append(branches, CaseBranch{
			Key:   k,
			Label: stringOr(str(branch, "conditionValues"), k),
			Body:  pascalStatements(todo),
		})
	}
	return branches
}

// fromPascal walks a Pascal program's sections and emits the flowchart
// between a synthetic start node and end node. Every exit point of the main
// block connects to the end node with its port and label intact.
func fromPascal(root map[string]any) *schema.Flowchart {
	b := newBuilder()
	start := b.node(schema.NodeTypeStart, "Start", "")
	lastMain := start

	program, _ := root["program"].(map[string]any)
	sections, _ := program["sections"].(map[string]any)

	if fb, ok := sections["functionBlock"].(map[string]any); ok {
		lastMain = b.pascalFunctions(fb, lastMain)
	}
	if cb, ok := sections["constantBlock"].(map[string]any); ok {
		lastMain = b.pascalConstants(cb, lastMain)
	}
	if vb, ok := sections["variableBlock"].(map[string]any); ok {
		lastMain = b.pascalVariables(vb, lastMain)
	}

	exits := []ExitPoint{Direct(lastMain)}
	if mb, ok := sections["mainBlock"].(map[string]any); ok {
		mainNodes, mainExits := b.processBlock(pascalStatements(mb), lastMain)
		if len(mainNodes) > 0 {
			b.connectDefault(lastMain, mainNodes[0])
			exits = mainExits
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

// pascalFunctions emits one process node per function or procedure
// declaration. Bodies are not expanded.
func (b *builder) pascalFunctions(block map[string]any, lastMain *schema.Node) *schema.Node {
	for _, s := range pascalSectionEntries(block) {
		decl := stringOr(str(s, "declaration"), "No declaration")
		n := b.node(schema.NodeTypeProcess, truncate(decl, 50), decl)
		b.connectDefault(lastMain, n)
		lastMain = n
	}
	return lastMain
}

// pascalConstants emits nodes for true constant declarations of the form
// "name : type = value". Assignments that leak into the section ("name :=
// value" has nothing between the colon and the equals sign) are skipped.
func (b *builder) pascalConstants(block map[string]any, lastMain *schema.Node) *schema.Node {
	for _, text := range pascalDeclTexts(block, "Constant") {
		colon := strings.Index(text, ":")
		equals := strings.Index(text, "=")

		if colon >= 0 && equals > colon {
			if strings.TrimSpace(text[colon+1:equals]) == "" {
				continue // ":=" assignment, not a constant
			}
		} else if colon >= 0 {
			continue
		}
		if !strings.Contains(text, "=") || !strings.Contains(text, ":") {
			continue
		}

		n := b.node(schema.NodeTypeProcess, truncate(text, truncateAt), text)
		b.connectDefault(lastMain, n)
		lastMain = n
	}
	return lastMain
}

func (b *builder) pascalVariables(block map[string]any, lastMain *schema.Node) *schema.Node {
	for _, text := range pascalDeclTexts(block, "Variable") {
		n := b.node(schema.NodeTypeProcess, truncate(text, truncateAt), text)
		b.connectDefault(lastMain, n)
		lastMain = n
	}
	return lastMain
}

// pascalDeclTexts extracts declaration texts from a section that may hold
// plain strings or {type, value} objects. Objects tagged assign are
// skipped; they belong to the main block.
func pascalDeclTexts(block map[string]any, fallback string) []string {
	var texts []string
	for _, raw := range pascalSectionValues(block) {
		switch v := raw.(type) {
		case string:
			texts = append(texts, v)
		case map[string]any:
			if t, _ := v["type"].(string); t == "assign" {
				continue
			}
			texts = append(texts, stringOr(str(v, "value"), fallback))
		}
	}
	return texts
}

// pascalSectionEntries returns exprN object entries in numeric order.
func pascalSectionEntries(block map[string]any) []map[string]any {
	var entries []map[string]any
	for _, raw := range pascalSectionValues(block) {
		if m, ok := raw.(map[string]any); ok {
			entries = append(entries, m)
		}
	}
	return entries
}

// pascalSectionValues returns raw exprN values in numeric key order.
func pascalSectionValues(block map[string]any) []any {
	type entry struct {
		num int
		val any
	}
	entries := make([]entry, 0, len(block))
	for key, v := range block {
		if !strings.HasPrefix(key, "expr") {
			continue
		}
		num, _ := strconv.Atoi(strings.TrimPrefix(key, "expr"))
		entries = append(entries, entry{num: num, val: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].num < entries[j].num })

	vals := make([]any, len(entries))
	for i, e := range entries {
		vals[i] = e.val
	}
	return vals
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func stringOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
