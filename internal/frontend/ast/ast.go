// Package ast defines Stratum's parse-tree node types, generalizing the
// teacher's ast/ast.go (string-tagged NodeType, Stmt/Expr marker interfaces)
// to the node set this module's parser actually produces -- including
// BreakStatement/ContinueStatement, which the teacher's own ast.go omitted
// despite its parser.go constructing them.
package ast

type NodeType string

const (
	ProgramNode NodeType = "Program"

	NumericLiteralNode      NodeType = "NumericLiteral"
	StringLiteralNode       NodeType = "StringLiteral"
	InterpolatedStringNode  NodeType = "InterpolatedString"
	BooleanLiteralNode NodeType = "BooleanLiteral"
	NullLiteralNode    NodeType = "NullLiteral"
	IdentifierNode     NodeType = "Identifier"
	ArrayLiteralNode   NodeType = "ArrayLiteral"
	MapLiteralNode     NodeType = "MapLiteral"

	BinaryExprNode     NodeType = "BinaryExpr"
	LogicalExprNode    NodeType = "LogicalExpr"
	UnaryExprNode      NodeType = "UnaryExpr"
	AssignmentExprNode NodeType = "AssignmentExpr"
	CallExprNode       NodeType = "CallExpr"
	MemberExprNode     NodeType = "MemberExpr"
	IndexExprNode      NodeType = "IndexExpr"
	RangeExprNode      NodeType = "RangeExpr"
	FunctionExprNode   NodeType = "FunctionExpr"

	VarDeclarationNode  NodeType = "VarDeclaration"
	BlockStatementNode  NodeType = "BlockStatement"
	IfStatementNode     NodeType = "IfStatement"
	WhileStatementNode  NodeType = "WhileStatement"
	ForStatementNode    NodeType = "ForStatement"
	FunctionDeclNode    NodeType = "FunctionDeclaration"
	ReturnStatementNode NodeType = "ReturnStatement"
	BreakStatementNode  NodeType = "BreakStatement"
	ContinueStmtNode    NodeType = "ContinueStatement"
	TryStatementNode    NodeType = "TryStatement"
	ImportStatementNode NodeType = "ImportStatement"
	ExprStatementNode   NodeType = "ExprStatement"
)

// Node is implemented by every statement and expression; Kind lets a
// consumer (the compiler, a pretty-printer) type-switch without a full
// reflect-based walk.
type Node interface {
	Kind() NodeType
	Line() int
}

type Stmt interface{ Node }
type Expr interface{ Node }

type base struct {
	NodeKind NodeType
	LineNo   int
}

func (b base) Kind() NodeType { return b.NodeKind }
func (b base) Line() int      { return b.LineNo }

// Program is the root node, a flat statement list (§ top level == implicit
// function body).
type Program struct {
	base
	Body []Stmt
}

func NewProgram(line int) *Program { return &Program{base: base{ProgramNode, line}} }

// --- literals & identifiers ----------------------------------------------

type NumericLiteral struct {
	base
	Value float64
}

func NewNumericLiteral(v float64, line int) *NumericLiteral {
	return &NumericLiteral{base{NumericLiteralNode, line}, v}
}

type StringLiteral struct {
	base
	Value string
}

func NewStringLiteral(v string, line int) *StringLiteral {
	return &StringLiteral{base{StringLiteralNode, line}, v}
}

// InterpolationPart is one segment of an InterpolatedString, in source
// order: either a literal run of text or a spliced expression.
type InterpolationPart struct {
	Literal string
	Expr    Expr
	IsExpr  bool
}

// InterpolatedString is `"...{expr}..."` (§3.1), compiled as a chain of
// string concatenations. Add only concatenates two Strings, so the compiler
// first converts each splice with the host's `io.str`.
type InterpolatedString struct {
	base
	Parts []InterpolationPart
}

func NewInterpolatedString(parts []InterpolationPart, line int) *InterpolatedString {
	return &InterpolatedString{base{InterpolatedStringNode, line}, parts}
}

type BooleanLiteral struct {
	base
	Value bool
}

func NewBooleanLiteral(v bool, line int) *BooleanLiteral {
	return &BooleanLiteral{base{BooleanLiteralNode, line}, v}
}

type NullLiteral struct{ base }

func NewNullLiteral(line int) *NullLiteral { return &NullLiteral{base{NullLiteralNode, line}} }

type Identifier struct {
	base
	Name string
}

func NewIdentifier(name string, line int) *Identifier {
	return &Identifier{base{IdentifierNode, line}, name}
}

type ArrayLiteral struct {
	base
	Elements []Expr
}

func NewArrayLiteral(elems []Expr, line int) *ArrayLiteral {
	return &ArrayLiteral{base{ArrayLiteralNode, line}, elems}
}

type MapProperty struct {
	Key   Expr
	Value Expr
}

type MapLiteral struct {
	base
	Properties []MapProperty
}

func NewMapLiteral(props []MapProperty, line int) *MapLiteral {
	return &MapLiteral{base{MapLiteralNode, line}, props}
}

// --- expressions -----------------------------------------------------------

type BinaryExpr struct {
	base
	Left, Right Expr
	Operator    string
}

func NewBinaryExpr(left, right Expr, op string, line int) *BinaryExpr {
	return &BinaryExpr{base{BinaryExprNode, line}, left, right, op}
}

type LogicalExpr struct {
	base
	Left, Right Expr
	Operator    string // "&&" | "||"
}

func NewLogicalExpr(left, right Expr, op string, line int) *LogicalExpr {
	return &LogicalExpr{base{LogicalExprNode, line}, left, right, op}
}

type UnaryExpr struct {
	base
	Operand  Expr
	Operator string
	Prefix   bool
}

func NewUnaryExpr(operand Expr, op string, prefix bool, line int) *UnaryExpr {
	return &UnaryExpr{base{UnaryExprNode, line}, operand, op, prefix}
}

type AssignmentExpr struct {
	base
	Target Expr
	Value  Expr
	Op     string // always "=": the parser builds no compound assignments
}

func NewAssignmentExpr(target, value Expr, op string, line int) *AssignmentExpr {
	return &AssignmentExpr{base{AssignmentExprNode, line}, target, value, op}
}

type CallExpr struct {
	base
	Callee Expr
	Args   []Expr
}

func NewCallExpr(callee Expr, args []Expr, line int) *CallExpr {
	return &CallExpr{base{CallExprNode, line}, callee, args}
}

type MemberExpr struct {
	base
	Object   Expr
	Property string
}

func NewMemberExpr(object Expr, property string, line int) *MemberExpr {
	return &MemberExpr{base{MemberExprNode, line}, object, property}
}

type IndexExpr struct {
	base
	Object Expr
	Index  Expr
}

func NewIndexExpr(object, index Expr, line int) *IndexExpr {
	return &IndexExpr{base{IndexExprNode, line}, object, index}
}

// RangeExpr is `start..end` / `start..=end` (§3.1 Range), constructed from
// the for-loop iterand or used standalone.
type RangeExpr struct {
	base
	Start, End Expr
	Inclusive  bool
}

func NewRangeExpr(start, end Expr, inclusive bool, line int) *RangeExpr {
	return &RangeExpr{base{RangeExprNode, line}, start, end, inclusive}
}

type FunctionExpr struct {
	base
	Params []string
	Body   *BlockStatement
}

func NewFunctionExpr(params []string, body *BlockStatement, line int) *FunctionExpr {
	return &FunctionExpr{base{FunctionExprNode, line}, params, body}
}

// --- statements --------------------------------------------------------

type VarDeclaration struct {
	base
	Identifier string
	Value      Expr
	Constant   bool
}

func NewVarDeclaration(ident string, value Expr, constant bool, line int) *VarDeclaration {
	return &VarDeclaration{base{VarDeclarationNode, line}, ident, value, constant}
}

type BlockStatement struct {
	base
	Body []Stmt
}

func NewBlockStatement(body []Stmt, line int) *BlockStatement {
	return &BlockStatement{base{BlockStatementNode, line}, body}
}

type IfStatement struct {
	base
	Condition Expr
	Then      *BlockStatement
	Else      Stmt // *BlockStatement or *IfStatement (else-if chain), nil if absent
}

func NewIfStatement(cond Expr, then *BlockStatement, els Stmt, line int) *IfStatement {
	return &IfStatement{base{IfStatementNode, line}, cond, then, els}
}

type WhileStatement struct {
	base
	Condition Expr
	Body      *BlockStatement
}

func NewWhileStatement(cond Expr, body *BlockStatement, line int) *WhileStatement {
	return &WhileStatement{base{WhileStatementNode, line}, cond, body}
}

// ForStatement is `for ident in iterable { ... }` (§3.1 Range/container
// iteration), generalizing the teacher's for-range-only ForStatement to any
// iterable expression.
type ForStatement struct {
	base
	Identifier string
	Iterable   Expr
	Body       *BlockStatement
}

func NewForStatement(ident string, iterable Expr, body *BlockStatement, line int) *ForStatement {
	return &ForStatement{base{ForStatementNode, line}, ident, iterable, body}
}

type FunctionDeclaration struct {
	base
	Name   string
	Params []string
	Body   *BlockStatement
}

func NewFunctionDeclaration(name string, params []string, body *BlockStatement, line int) *FunctionDeclaration {
	return &FunctionDeclaration{base{FunctionDeclNode, line}, name, params, body}
}

type ReturnStatement struct {
	base
	Value Expr // nil for bare `return`
}

func NewReturnStatement(value Expr, line int) *ReturnStatement {
	return &ReturnStatement{base{ReturnStatementNode, line}, value}
}

type BreakStatement struct{ base }

func NewBreakStatement(line int) *BreakStatement {
	return &BreakStatement{base{BreakStatementNode, line}}
}

type ContinueStatement struct{ base }

func NewContinueStatement(line int) *ContinueStatement {
	return &ContinueStatement{base{ContinueStmtNode, line}}
}

type TryStatement struct {
	base
	TryBlock   *BlockStatement
	ErrorVar   string
	CatchBlock *BlockStatement
}

func NewTryStatement(try *BlockStatement, errVar string, catch *BlockStatement, line int) *TryStatement {
	return &TryStatement{base{TryStatementNode, line}, try, errVar, catch}
}

type ImportStatement struct {
	base
	Path  string
	Alias string
}

func NewImportStatement(path, alias string, line int) *ImportStatement {
	return &ImportStatement{base{ImportStatementNode, line}, path, alias}
}

// ExprStatement wraps an expression used in statement position (a bare call,
// an assignment), matching how the teacher's parseStmt falls through to
// parseExpr by default.
type ExprStatement struct {
	base
	Expr Expr
}

func NewExprStatement(expr Expr, line int) *ExprStatement {
	return &ExprStatement{base{ExprStatementNode, line}, expr}
}
