// Package parser implements a recursive-descent parser over internal/frontend/lexer's
// token stream, producing internal/frontend/ast nodes. It keeps the teacher's
// parser.go structure (a 3-token lookahead cache, a precedence-climbing
// expression chain, statement-keyword dispatch) but targets the token/AST
// types that are actually defined in this module, since the teacher's own
// parser.go referenced lexer/ast members its own lexer.go and ast.go never
// declared.
package parser

import (
	"fmt"

	"stratum/internal/frontend/ast"
	"stratum/internal/frontend/lexer"
)

// ParseError reports a syntax error with its source position, mirroring the
// teacher's practice of including line/column in panics -- returned here
// instead of panicking, since a library parser should never abort its
// caller's process.
type ParseError struct {
	Line, Column int
	Msg          string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d:%d: %s", e.Line, e.Column, e.Msg)
}

type Parser struct {
	tokens []lexer.Token
	pos    int
}

func New(tokens []lexer.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse tokenizes nothing itself -- call lexer.Tokenize first -- and returns
// the full program AST or the first syntax error encountered.
func Parse(source string) (prog *ast.Program, err error) {
	tokens, lexErr := lexer.Tokenize(source)
	if lexErr != nil {
		return nil, lexErr
	}
	p := New(tokens)
	defer func() {
		if r := recover(); r != nil {
			if pe, ok := r.(*ParseError); ok {
				err = pe
				return
			}
			panic(r)
		}
	}()
	return p.parseProgram(), nil
}

func (p *Parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(offset int) lexer.Token {
	idx := p.pos + offset
	if idx >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[idx]
}

func (p *Parser) atEnd() bool { return p.current().Type == lexer.EOF }

func (p *Parser) advance() lexer.Token {
	t := p.current()
	if !p.atEnd() {
		p.pos++
	}
	return t
}

func (p *Parser) check(t lexer.TokenType) bool { return p.current().Type == t }

func (p *Parser) match(types ...lexer.TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) expect(t lexer.TokenType, context string) lexer.Token {
	if !p.check(t) {
		tok := p.current()
		p.fail(tok, fmt.Sprintf("expected %s %s, got %q", t, context, tok.Value))
	}
	return p.advance()
}

func (p *Parser) fail(tok lexer.Token, msg string) {
	panic(&ParseError{Line: tok.Line, Column: tok.Column, Msg: msg})
}

// --- program & statements ------------------------------------------------

func (p *Parser) parseProgram() *ast.Program {
	prog := ast.NewProgram(1)
	for !p.atEnd() {
		prog.Body = append(prog.Body, p.parseStmt())
	}
	return prog
}

func (p *Parser) parseStmt() ast.Stmt {
	switch p.current().Type {
	case lexer.Import:
		return p.parseImportStatement()
	case lexer.Func:
		return p.parseFunctionDeclaration()
	case lexer.Return:
		return p.parseReturnStatement()
	case lexer.Try:
		return p.parseTryStatement()
	case lexer.Break:
		line := p.advance().Line
		return ast.NewBreakStatement(line)
	case lexer.Continue:
		line := p.advance().Line
		return ast.NewContinueStatement(line)
	case lexer.Let, lexer.Var, lexer.Const:
		return p.parseVarDeclaration()
	case lexer.If:
		return p.parseIfStatement()
	case lexer.For:
		return p.parseForStatement()
	case lexer.While:
		return p.parseWhileStatement()
	case lexer.OpenBrace:
		return p.parseBlockStatement()
	default:
		line := p.current().Line
		expr := p.parseExpr()
		return ast.NewExprStatement(expr, line)
	}
}

func (p *Parser) parseImportStatement() ast.Stmt {
	line := p.advance().Line // 'import'
	pathTok := p.expect(lexer.String, "after import")
	alias := ""
	if p.match(lexer.As) {
		alias = p.expect(lexer.Identifier, "after as").Value
	}
	return ast.NewImportStatement(pathTok.Value, alias, line)
}

func (p *Parser) parseVarDeclaration() ast.Stmt {
	kindTok := p.advance() // let/var/const
	constant := kindTok.Type == lexer.Const
	name := p.expect(lexer.Identifier, "in declaration").Value
	var value ast.Expr
	if p.match(lexer.Equals) {
		value = p.parseExpr()
	}
	return ast.NewVarDeclaration(name, value, constant, kindTok.Line)
}

func (p *Parser) parseBlockStatement() *ast.BlockStatement {
	brace := p.expect(lexer.OpenBrace, "to start block")
	var body []ast.Stmt
	for !p.check(lexer.CloseBrace) && !p.atEnd() {
		body = append(body, p.parseStmt())
	}
	p.expect(lexer.CloseBrace, "to close block")
	return ast.NewBlockStatement(body, brace.Line)
}

func (p *Parser) parseIfStatement() ast.Stmt {
	line := p.advance().Line // 'if'
	cond := p.parseExpr()
	then := p.parseBlockStatement()
	var elseStmt ast.Stmt
	if p.match(lexer.Else) {
		if p.check(lexer.If) {
			elseStmt = p.parseIfStatement()
		} else {
			elseStmt = p.parseBlockStatement()
		}
	}
	return ast.NewIfStatement(cond, then, elseStmt, line)
}

func (p *Parser) parseWhileStatement() ast.Stmt {
	line := p.advance().Line // 'while'
	cond := p.parseExpr()
	body := p.parseBlockStatement()
	return ast.NewWhileStatement(cond, body, line)
}

// parseForStatement handles `for ident in iterable { ... }`.
func (p *Parser) parseForStatement() ast.Stmt {
	line := p.advance().Line // 'for'
	ident := p.expect(lexer.Identifier, "after for").Value
	p.expect(lexer.In, "after for identifier")
	iterable := p.parseExpr()
	body := p.parseBlockStatement()
	return ast.NewForStatement(ident, iterable, body, line)
}

func (p *Parser) parseFunctionDeclaration() ast.Stmt {
	line := p.advance().Line // 'func'
	name := p.expect(lexer.Identifier, "after func").Value
	params := p.parseParamList()
	body := p.parseBlockStatement()
	return ast.NewFunctionDeclaration(name, params, body, line)
}

func (p *Parser) parseParamList() []string {
	p.expect(lexer.OpenParen, "to start parameter list")
	var params []string
	for !p.check(lexer.CloseParen) {
		params = append(params, p.expect(lexer.Identifier, "parameter name").Value)
		if !p.check(lexer.CloseParen) {
			p.expect(lexer.Comma, "between parameters")
		}
	}
	p.expect(lexer.CloseParen, "to close parameter list")
	return params
}

func (p *Parser) parseReturnStatement() ast.Stmt {
	line := p.advance().Line // 'return'
	if p.check(lexer.CloseBrace) || p.atEnd() {
		return ast.NewReturnStatement(nil, line)
	}
	return ast.NewReturnStatement(p.parseExpr(), line)
}

func (p *Parser) parseTryStatement() ast.Stmt {
	line := p.advance().Line // 'try'
	tryBlock := p.parseBlockStatement()
	p.expect(lexer.Catch, "after try block")
	p.expect(lexer.OpenParen, "before catch binding")
	errVar := p.expect(lexer.Identifier, "catch binding").Value
	p.expect(lexer.CloseParen, "after catch binding")
	catchBlock := p.parseBlockStatement()
	return ast.NewTryStatement(tryBlock, errVar, catchBlock, line)
}

// --- expressions: precedence climbing -------------------------------------
//
// parseExpr -> assignment -> logical-or-ish -> coalesce -> comparison ->
// additive -> multiplicative -> power -> range -> unary -> call/member/index
// -> primary, mirroring the teacher's chain with coalesce, power, range and
// bracket-index levels inserted.

func (p *Parser) parseExpr() ast.Expr {
	return p.parseAssignmentExpr()
}

func (p *Parser) parseAssignmentExpr() ast.Expr {
	left := p.parseLogicalExpr()
	if p.check(lexer.Equals) {
		line := p.advance().Line
		value := p.parseAssignmentExpr()
		return ast.NewAssignmentExpr(left, value, "=", line)
	}
	return left
}

func (p *Parser) parseLogicalExpr() ast.Expr {
	left := p.parseCoalesceExpr()
	for p.check(lexer.LogicalOperator) {
		opTok := p.advance()
		right := p.parseCoalesceExpr()
		left = ast.NewLogicalExpr(left, right, opTok.Value, opTok.Line)
	}
	return left
}

// parseCoalesceExpr handles `??` (§4.2.2 NullCoalesce), binding looser than
// comparison but tighter than &&/||, mirroring the original lexer's
// DoubleQuestion token sitting beside |>/?. in its operator set.
func (p *Parser) parseCoalesceExpr() ast.Expr {
	left := p.parseComparisonExpr()
	for p.check(lexer.DoubleQuestion) {
		opTok := p.advance()
		right := p.parseComparisonExpr()
		left = ast.NewLogicalExpr(left, right, opTok.Value, opTok.Line)
	}
	return left
}

func (p *Parser) parseComparisonExpr() ast.Expr {
	left := p.parseAdditiveExpr()
	for p.check(lexer.ComparisonOperator) {
		opTok := p.advance()
		right := p.parseAdditiveExpr()
		left = ast.NewBinaryExpr(left, right, opTok.Value, opTok.Line)
	}
	return left
}

func (p *Parser) parseAdditiveExpr() ast.Expr {
	left := p.parseMultiplicativeExpr()
	for p.check(lexer.BinaryOperator) && (p.current().Value == "+" || p.current().Value == "-") {
		opTok := p.advance()
		right := p.parseMultiplicativeExpr()
		left = ast.NewBinaryExpr(left, right, opTok.Value, opTok.Line)
	}
	return left
}

func (p *Parser) parseMultiplicativeExpr() ast.Expr {
	left := p.parsePowerExpr()
	for p.check(lexer.BinaryOperator) && (p.current().Value == "*" || p.current().Value == "/" || p.current().Value == "%") {
		opTok := p.advance()
		right := p.parsePowerExpr()
		left = ast.NewBinaryExpr(left, right, opTok.Value, opTok.Line)
	}
	return left
}

func (p *Parser) parsePowerExpr() ast.Expr {
	left := p.parseRangeExpr()
	if p.check(lexer.Caret) {
		opTok := p.advance()
		right := p.parsePowerExpr() // right-associative
		return ast.NewBinaryExpr(left, right, opTok.Value, opTok.Line)
	}
	return left
}

func (p *Parser) parseRangeExpr() ast.Expr {
	left := p.parseUnaryExpr()
	if p.check(lexer.DotDot) || p.check(lexer.DotDotEq) {
		inclusive := p.check(lexer.DotDotEq)
		line := p.advance().Line
		right := p.parseUnaryExpr()
		return ast.NewRangeExpr(left, right, inclusive, line)
	}
	return left
}

func (p *Parser) parseUnaryExpr() ast.Expr {
	if p.check(lexer.Bang) || (p.check(lexer.BinaryOperator) && p.current().Value == "-") {
		opTok := p.advance()
		operand := p.parseUnaryExpr()
		return ast.NewUnaryExpr(operand, opTok.Value, true, opTok.Line)
	}
	if p.check(lexer.Increment) || p.check(lexer.Decrement) {
		opTok := p.advance()
		operand := p.parseUnaryExpr()
		return ast.NewUnaryExpr(operand, opTok.Value, true, opTok.Line)
	}
	return p.parseCallMemberIndexExpr()
}

func (p *Parser) parseCallMemberIndexExpr() ast.Expr {
	expr := p.parsePrimaryExpr()
	for {
		switch {
		case p.check(lexer.Dot):
			p.advance()
			prop := p.expect(lexer.Identifier, "after '.'")
			expr = ast.NewMemberExpr(expr, prop.Value, prop.Line)
		case p.check(lexer.OpenParen):
			line := p.current().Line
			args := p.parseArgList()
			expr = ast.NewCallExpr(expr, args, line)
		case p.check(lexer.OpenBracket):
			line := p.advance().Line
			idx := p.parseExpr()
			p.expect(lexer.CloseBracket, "to close index")
			expr = ast.NewIndexExpr(expr, idx, line)
		case p.check(lexer.Increment) || p.check(lexer.Decrement):
			opTok := p.advance()
			expr = ast.NewUnaryExpr(expr, opTok.Value, false, opTok.Line)
		default:
			return expr
		}
	}
}

func (p *Parser) parseArgList() []ast.Expr {
	p.expect(lexer.OpenParen, "to start arguments")
	var args []ast.Expr
	for !p.check(lexer.CloseParen) {
		args = append(args, p.parseExpr())
		if !p.check(lexer.CloseParen) {
			p.expect(lexer.Comma, "between arguments")
		}
	}
	p.expect(lexer.CloseParen, "to close arguments")
	return args
}

// parseInterpolatedString turns a lexer.InterpolatedString token's Parts
// into an ast.InterpolatedString, independently re-tokenizing and parsing
// each `{expr}` splice's raw source -- the sub-parser only ever needs to
// read one expression off its own token stream, so a fresh Parser instance
// per splice is simpler than threading a second cursor through this one.
func (p *Parser) parseInterpolatedString(tok lexer.Token) ast.Expr {
	parts := make([]ast.InterpolationPart, 0, len(tok.Parts))
	for _, part := range tok.Parts {
		if !part.IsExpr {
			parts = append(parts, ast.InterpolationPart{Literal: part.Literal})
			continue
		}
		sub, err := parseExprSource(part.Expr, tok.Line)
		if err != nil {
			panic(&ParseError{Line: tok.Line, Column: tok.Column, Msg: "in string splice: " + err.Error()})
		}
		parts = append(parts, ast.InterpolationPart{Expr: sub, IsExpr: true})
	}
	return ast.NewInterpolatedString(parts, tok.Line)
}

// parseExprSource parses a single expression from raw source text, used for
// `{expr}` splices inside interpolated strings, which the lexer hands back
// as unparsed text rather than a token sub-stream.
func parseExprSource(source string, line int) (ast.Expr, error) {
	tokens, err := lexer.Tokenize(source)
	if err != nil {
		return nil, err
	}
	for i := range tokens {
		tokens[i].Line = line
	}
	sub := New(tokens)
	var expr ast.Expr
	var perr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				if pe, ok := r.(*ParseError); ok {
					perr = pe
					return
				}
				panic(r)
			}
		}()
		expr = sub.parseExpr()
	}()
	return expr, perr
}

func (p *Parser) parsePrimaryExpr() ast.Expr {
	tok := p.current()
	switch tok.Type {
	case lexer.Number:
		p.advance()
		var f float64
		fmt.Sscanf(tok.Value, "%g", &f)
		return ast.NewNumericLiteral(f, tok.Line)
	case lexer.String:
		p.advance()
		return ast.NewStringLiteral(tok.Value, tok.Line)
	case lexer.InterpolatedString:
		p.advance()
		return p.parseInterpolatedString(tok)
	case lexer.True:
		p.advance()
		return ast.NewBooleanLiteral(true, tok.Line)
	case lexer.False:
		p.advance()
		return ast.NewBooleanLiteral(false, tok.Line)
	case lexer.Null:
		p.advance()
		return ast.NewNullLiteral(tok.Line)
	case lexer.Identifier:
		p.advance()
		return ast.NewIdentifier(tok.Value, tok.Line)
	case lexer.Func:
		return p.parseFunctionExpr()
	case lexer.OpenParen:
		p.advance()
		expr := p.parseExpr()
		p.expect(lexer.CloseParen, "to close grouped expression")
		return expr
	case lexer.OpenBracket:
		return p.parseArrayLiteral()
	case lexer.OpenBrace:
		return p.parseMapLiteral()
	default:
		p.fail(tok, fmt.Sprintf("unexpected token %q", tok.Value))
		return nil
	}
}

func (p *Parser) parseFunctionExpr() ast.Expr {
	line := p.advance().Line // 'func'
	params := p.parseParamList()
	body := p.parseBlockStatement()
	return ast.NewFunctionExpr(params, body, line)
}

func (p *Parser) parseArrayLiteral() ast.Expr {
	line := p.advance().Line // '['
	var elems []ast.Expr
	for !p.check(lexer.CloseBracket) {
		elems = append(elems, p.parseExpr())
		if !p.check(lexer.CloseBracket) {
			p.expect(lexer.Comma, "between array elements")
		}
	}
	p.expect(lexer.CloseBracket, "to close array literal")
	return ast.NewArrayLiteral(elems, line)
}

func (p *Parser) parseMapLiteral() ast.Expr {
	line := p.advance().Line // '{'
	var props []ast.MapProperty
	for !p.check(lexer.CloseBrace) {
		var key ast.Expr
		if p.check(lexer.String) {
			t := p.advance()
			key = ast.NewStringLiteral(t.Value, t.Line)
		} else {
			t := p.expect(lexer.Identifier, "as map key")
			key = ast.NewStringLiteral(t.Value, t.Line)
		}
		p.expect(lexer.Colon, "after map key")
		value := p.parseExpr()
		props = append(props, ast.MapProperty{Key: key, Value: value})
		if !p.check(lexer.CloseBrace) {
			p.expect(lexer.Comma, "between map entries")
		}
	}
	p.expect(lexer.CloseBrace, "to close map literal")
	return ast.NewMapLiteral(props, line)
}
