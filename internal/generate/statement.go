// Package generate transforms a parser's syntax-tree JSON into a positioned
// flowchart. Language front-ends normalize their tree shapes into a common
// statement form; a recursive block processor then emits nodes and
// connections with correct exit-point propagation for branches, loops and
// multi-way dispatch.
package generate

// StatementKind classifies a normalized statement.
type StatementKind string

const (
	KindIO     StatementKind = "io"
	KindAssign StatementKind = "assign"
	KindExpr   StatementKind = "expr"
	KindIf     StatementKind = "if"
	KindElse   StatementKind = "else"
	KindWhile  StatementKind = "while"
	KindFor    StatementKind = "for"
	KindUntil  StatementKind = "until"
	KindCase   StatementKind = "caseOf"
)

// Statement is the language-neutral form both front-ends decode into.
// An else clause stays a sibling statement immediately after its if, the
// way source order has it; the block processor pairs them back up.
type Statement struct {
	Kind         StatementKind
	Value        string
	Condition    string
	CompareValue string
	Body         []Statement
	Branches     []CaseBranch
}

// CaseBranch is one arm of a caseOf statement. Branches are kept in the
// front-end's sorted key order.
type CaseBranch struct {
	Key   string
	Label string
	Body  []Statement
}
