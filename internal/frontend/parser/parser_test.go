package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratum/internal/frontend/ast"
)

func TestParseVarDeclaration(t *testing.T) {
	prog, err := Parse(`let x = 5`)
	require.NoError(t, err)
	require.Len(t, prog.Body, 1)
	decl, ok := prog.Body[0].(*ast.VarDeclaration)
	require.True(t, ok)
	assert.Equal(t, "x", decl.Identifier)
	assert.False(t, decl.Constant)
	lit, ok := decl.Value.(*ast.NumericLiteral)
	require.True(t, ok)
	assert.Equal(t, 5.0, lit.Value)
}

func TestParseConstDeclaration(t *testing.T) {
	prog, err := Parse(`const pi = 3.14`)
	require.NoError(t, err)
	decl := prog.Body[0].(*ast.VarDeclaration)
	assert.True(t, decl.Constant)
}

func TestParseIfElse(t *testing.T) {
	prog, err := Parse(`if x > 0 { y = 1 } else { y = 2 }`)
	require.NoError(t, err)
	stmt, ok := prog.Body[0].(*ast.IfStatement)
	require.True(t, ok)
	cond, ok := stmt.Condition.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ">", cond.Operator)
	require.NotNil(t, stmt.Else)
}

func TestParseElseIfChain(t *testing.T) {
	prog, err := Parse(`if a { } else if b { } else { }`)
	require.NoError(t, err)
	stmt := prog.Body[0].(*ast.IfStatement)
	elseIf, ok := stmt.Else.(*ast.IfStatement)
	require.True(t, ok)
	require.NotNil(t, elseIf.Else)
}

func TestParseWhileLoop(t *testing.T) {
	prog, err := Parse(`while i < 10 { i = i + 1 }`)
	require.NoError(t, err)
	stmt, ok := prog.Body[0].(*ast.WhileStatement)
	require.True(t, ok)
	require.Len(t, stmt.Body.Body, 1)
}

func TestParseForIn(t *testing.T) {
	prog, err := Parse(`for item in items { print(item) }`)
	require.NoError(t, err)
	stmt, ok := prog.Body[0].(*ast.ForStatement)
	require.True(t, ok)
	assert.Equal(t, "item", stmt.Identifier)
	ident, ok := stmt.Iterable.(*ast.Identifier)
	require.True(t, ok)
	assert.Equal(t, "items", ident.Name)
}

func TestParseFunctionDeclaration(t *testing.T) {
	prog, err := Parse(`func add(a, b) { return a + b }`)
	require.NoError(t, err)
	fn, ok := prog.Body[0].(*ast.FunctionDeclaration)
	require.True(t, ok)
	assert.Equal(t, "add", fn.Name)
	assert.Equal(t, []string{"a", "b"}, fn.Params)
	ret, ok := fn.Body.Body[0].(*ast.ReturnStatement)
	require.True(t, ok)
	require.NotNil(t, ret.Value)
}

func TestParseAnonymousFunctionExpr(t *testing.T) {
	prog, err := Parse(`let f = func(x) { return x }`)
	require.NoError(t, err)
	decl := prog.Body[0].(*ast.VarDeclaration)
	_, ok := decl.Value.(*ast.FunctionExpr)
	assert.True(t, ok)
}

func TestParseCallAndMemberChain(t *testing.T) {
	prog, err := Parse(`obj.method(1, 2).other`)
	require.NoError(t, err)
	stmt := prog.Body[0].(*ast.ExprStatement)
	member, ok := stmt.Expr.(*ast.MemberExpr)
	require.True(t, ok)
	assert.Equal(t, "other", member.Property)
	call, ok := member.Object.(*ast.CallExpr)
	require.True(t, ok)
	require.Len(t, call.Args, 2)
}

func TestParseIndexExpr(t *testing.T) {
	prog, err := Parse(`xs[0]`)
	require.NoError(t, err)
	stmt := prog.Body[0].(*ast.ExprStatement)
	idx, ok := stmt.Expr.(*ast.IndexExpr)
	require.True(t, ok)
	lit, ok := idx.Index.(*ast.NumericLiteral)
	require.True(t, ok)
	assert.Equal(t, 0.0, lit.Value)
}

func TestParseArrayAndMapLiteral(t *testing.T) {
	prog, err := Parse(`let xs = [1, 2, 3]`)
	require.NoError(t, err)
	decl := prog.Body[0].(*ast.VarDeclaration)
	arr, ok := decl.Value.(*ast.ArrayLiteral)
	require.True(t, ok)
	assert.Len(t, arr.Elements, 3)

	prog, err = Parse(`let m = {name: "a", age: 1}`)
	require.NoError(t, err)
	decl = prog.Body[0].(*ast.VarDeclaration)
	m, ok := decl.Value.(*ast.MapLiteral)
	require.True(t, ok)
	assert.Len(t, m.Properties, 2)
}

func TestParseTryCatch(t *testing.T) {
	prog, err := Parse(`try { risky() } catch (e) { handle(e) }`)
	require.NoError(t, err)
	stmt, ok := prog.Body[0].(*ast.TryStatement)
	require.True(t, ok)
	assert.Equal(t, "e", stmt.ErrorVar)
}

func TestParseBreakContinue(t *testing.T) {
	prog, err := Parse(`while true { break } while true { continue }`)
	require.NoError(t, err)
	w1 := prog.Body[0].(*ast.WhileStatement)
	_, ok := w1.Body.Body[0].(*ast.BreakStatement)
	assert.True(t, ok)
	w2 := prog.Body[1].(*ast.WhileStatement)
	_, ok = w2.Body.Body[0].(*ast.ContinueStatement)
	assert.True(t, ok)
}

func TestParseImport(t *testing.T) {
	prog, err := Parse(`import "math" as m`)
	require.NoError(t, err)
	imp, ok := prog.Body[0].(*ast.ImportStatement)
	require.True(t, ok)
	assert.Equal(t, "math", imp.Path)
	assert.Equal(t, "m", imp.Alias)
}

func TestParsePrecedence(t *testing.T) {
	prog, err := Parse(`1 + 2 * 3`)
	require.NoError(t, err)
	stmt := prog.Body[0].(*ast.ExprStatement)
	bin, ok := stmt.Expr.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "+", bin.Operator)
	_, ok = bin.Right.(*ast.BinaryExpr)
	assert.True(t, ok, "multiplication should bind tighter and nest on the right")
}

func TestParseSyntaxError(t *testing.T) {
	_, err := Parse(`let = 5`)
	assert.Error(t, err)
}
