// Package compiler lowers internal/frontend/ast into internal/bytecode.Chunk
// + internal/object.Function, generalizing the teacher's runtime/compiler.go
// (a functionScope stack, ensureLocal slot allocation, two-pass jump
// patching, a math-call peephole and post-compile optimize() pass) from its
// flat int-opcode Chunk to this module's fixed-width byte-encoded one, and
// adding the upvalue resolution the teacher's compiler never needed (its
// VM had no closures).
package compiler

import (
	"fmt"

	"stratum/internal/bytecode"
	"stratum/internal/frontend/ast"
	"stratum/internal/object"
	"stratum/internal/value"
)

// CompileError reports a compile-time failure (undeclared break/continue
// outside a loop, assignment to a non-assignable expression, and similar).
type CompileError struct{ Msg string }

func (e *CompileError) Error() string { return e.Msg }

type local struct {
	name string
	slot uint16
}

type loopCtx struct {
	continueTarget int
	breakJumps     []int
}

// funcState tracks one function's compilation: its chunk/emerging Function,
// its flat local-variable table (matching the teacher's functionScope --
// locals live for the whole function body, not per-block), resolved
// upvalues, and the loop stack for break/continue, which cannot cross a
// function boundary.
type funcState struct {
	enclosing *funcState

	fn    *object.Function
	chunk *bytecode.Chunk

	isTopLevel bool
	locals     []local
	nextSlot   uint16

	loops []loopCtx
}

type Compiler struct {
	current *funcState
	errs    []error

	// anonCounter disambiguates anonymous function literals: Chunk.AddConst
	// dedups constants by their rendered string, and every unnamed
	// object.Function renders as the same "<function anonymous>" text, which
	// would otherwise collapse two distinct closures sharing one program
	// onto the same constant-pool slot.
	anonCounter int
}

func New() *Compiler { return &Compiler{} }

// Compile lowers a full program into a top-level Function with arity 0,
// named "<script>", matching how the teacher's Compile(prog) treats the
// program root as an implicit function body.
func Compile(prog *ast.Program) (*object.Function, error) {
	c := New()
	fn := c.compileFunction("<script>", nil, prog.Body, true, prog.Line())
	if len(c.errs) > 0 {
		return nil, c.errs[0]
	}
	return fn, nil
}

func (c *Compiler) fail(msg string) {
	c.errs = append(c.errs, &CompileError{Msg: msg})
}

func (c *Compiler) chunk() *bytecode.Chunk { return c.current.chunk }

func (c *Compiler) compileFunction(name string, params []string, body []ast.Stmt, isTopLevel bool, line int) *object.Function {
	chunk := bytecode.NewChunk(name)
	fn := object.NewFunction(name, len(params), chunk)

	fs := &funcState{enclosing: c.current, fn: fn, chunk: chunk, isTopLevel: isTopLevel}
	c.current = fs

	for _, p := range params {
		c.declareLocal(p)
	}
	for _, stmt := range body {
		c.compileStmt(stmt)
	}
	// An implicit `return null` covers falling off the end of a body,
	// mirroring the teacher's compileFunction appending OP_NULL/OP_RETURN.
	c.chunk().Emit(bytecode.OpNull, line)
	c.chunk().Emit(bytecode.OpReturn, line)

	c.current = fs.enclosing
	return fn
}

// --- variable resolution ---------------------------------------------------

func (c *Compiler) declareLocal(name string) uint16 {
	fs := c.current
	slot := fs.nextSlot
	fs.nextSlot++
	fs.locals = append(fs.locals, local{name: name, slot: slot})
	return slot
}

func resolveLocal(fs *funcState, name string) (uint16, bool) {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].name == name {
			return fs.locals[i].slot, true
		}
	}
	return 0, false
}

// resolveUpvalue implements the classic upvalue-chain resolution: a free
// variable is found either as a local in the immediately enclosing function
// or as an upvalue that function itself already captured, recursing outward
// one function at a time (§3.4).
func resolveUpvalue(fs *funcState, name string) (uint16, bool) {
	if fs.enclosing == nil {
		return 0, false
	}
	if slot, ok := resolveLocal(fs.enclosing, name); ok {
		return addUpvalue(fs, true, slot), true
	}
	if idx, ok := resolveUpvalue(fs.enclosing, name); ok {
		return addUpvalue(fs, false, idx), true
	}
	return 0, false
}

func addUpvalue(fs *funcState, fromParentLocal bool, index uint16) uint16 {
	for i, uv := range fs.fn.Upvalues {
		if uv.FromParentLocal == fromParentLocal && uv.Index == index {
			return uint16(i)
		}
	}
	fs.fn.Upvalues = append(fs.fn.Upvalues, object.UpvalueDesc{FromParentLocal: fromParentLocal, Index: index})
	return uint16(len(fs.fn.Upvalues) - 1)
}

func (c *Compiler) nameConst(name string) uint16 {
	return c.chunk().AddConst(value.String(name))
}

// emitLoadName resolves name through locals -> upvalues -> globals, in that
// order (§3.4's lexical scoping, globals as the fallback namespace).
func (c *Compiler) emitLoadName(name string, line int) {
	if slot, ok := resolveLocal(c.current, name); ok {
		c.chunk().EmitU16(bytecode.OpLoadLocal, slot, line)
		return
	}
	if idx, ok := resolveUpvalue(c.current, name); ok {
		c.chunk().EmitU16(bytecode.OpLoadUpvalue, idx, line)
		return
	}
	c.chunk().EmitU16(bytecode.OpLoadGlobal, c.nameConst(name), line)
}

func (c *Compiler) emitStoreName(name string, line int) {
	if slot, ok := resolveLocal(c.current, name); ok {
		c.chunk().EmitU16(bytecode.OpStoreLocal, slot, line)
		return
	}
	if idx, ok := resolveUpvalue(c.current, name); ok {
		c.chunk().EmitU16(bytecode.OpStoreUpvalue, idx, line)
		return
	}
	c.chunk().EmitU16(bytecode.OpStoreGlobal, c.nameConst(name), line)
}

// declareTarget binds a new variable (`let`/`var`/`const`): inside a
// function body it gets a local slot; in the top-level script every
// declaration, at any block depth, becomes a global, matching the teacher's
// isTopLevel dispatch. (For-loop bindings and parameters call declareLocal
// directly.)
// declareTarget always runs in statement position; OpStoreGlobal/OpStoreLocal
// only peek (so a chained assignment expression can reuse the value without
// an extra load), so every declareTarget call site needs a matching Pop to
// avoid leaking the bound value onto the stack.
func (c *Compiler) declareTarget(name string, line int) {
	if c.current.isTopLevel && c.current.enclosing == nil {
		c.chunk().EmitU16(bytecode.OpStoreGlobal, c.nameConst(name), line)
	} else {
		c.declareLocal(name)
		c.emitStoreName(name, line)
	}
	c.chunk().Emit(bytecode.OpPop, line)
}

// --- statements --------------------------------------------------------

func (c *Compiler) compileStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.VarDeclaration:
		if s.Value != nil {
			c.compileExpr(s.Value)
		} else {
			c.chunk().Emit(bytecode.OpNull, s.Line())
		}
		c.declareTarget(s.Identifier, s.Line())
	case *ast.ExprStatement:
		c.compileExpr(s.Expr)
		c.chunk().Emit(bytecode.OpPop, s.Line())
	case *ast.BlockStatement:
		for _, inner := range s.Body {
			c.compileStmt(inner)
		}
	case *ast.IfStatement:
		c.compileIf(s)
	case *ast.WhileStatement:
		c.compileWhile(s)
	case *ast.ForStatement:
		c.compileFor(s)
	case *ast.FunctionDeclaration:
		c.compileFunctionDecl(s)
	case *ast.ReturnStatement:
		if s.Value != nil {
			c.compileExpr(s.Value)
		} else {
			c.chunk().Emit(bytecode.OpNull, s.Line())
		}
		c.chunk().Emit(bytecode.OpReturn, s.Line())
	case *ast.BreakStatement:
		c.compileBreak(s.Line())
	case *ast.ContinueStatement:
		c.compileContinue(s.Line())
	case *ast.TryStatement:
		c.compileTry(s)
	case *ast.ImportStatement:
		c.compileImport(s)
	default:
		c.fail(fmt.Sprintf("compiler: unhandled statement %T", stmt))
	}
}

// compileIf relies on OpJumpIfFalse already popping the condition value
// (unlike a peephole-style peek-and-jump), so neither branch needs an extra
// Pop the way a stack-leaving jump instruction would.
func (c *Compiler) compileIf(s *ast.IfStatement) {
	c.compileExpr(s.Condition)
	elseJump := c.chunk().EmitJump(bytecode.OpJumpIfFalse, s.Line())
	c.compileStmt(s.Then)

	if s.Else != nil {
		endJump := c.chunk().EmitJump(bytecode.OpJump, s.Line())
		_ = c.chunk().PatchJump(elseJump)
		c.compileStmt(s.Else)
		_ = c.chunk().PatchJump(endJump)
	} else {
		_ = c.chunk().PatchJump(elseJump)
	}
}

func (c *Compiler) compileWhile(s *ast.WhileStatement) {
	loopStart := c.chunk().Len()
	c.current.loops = append(c.current.loops, loopCtx{continueTarget: loopStart})

	c.compileExpr(s.Condition)
	exitJump := c.chunk().EmitJump(bytecode.OpJumpIfFalse, s.Line())
	c.compileStmt(s.Body)
	_ = c.chunk().EmitLoop(loopStart, s.Line())

	_ = c.chunk().PatchJump(exitJump)

	c.patchLoopBreaks(s.Line())
}

// compileFor lowers `for ident in iterable { body }` onto the iterator
// protocol (§3.5): push the iterable, OpIterInit, then loop on OpIterNext
// until exhausted, binding ident to the produced value each pass.
func (c *Compiler) compileFor(s *ast.ForStatement) {
	c.compileExpr(s.Iterable)
	c.chunk().Emit(bytecode.OpIterInit, s.Line())

	loopStart := c.chunk().Len()
	c.current.loops = append(c.current.loops, loopCtx{continueTarget: loopStart})

	exitJump := c.chunk().EmitJump(bytecode.OpIterNext, s.Line())

	// Nest the binding in its own local so repeated iterations reuse the
	// same slot rather than leaking a fresh one per pass.
	savedLocals := len(c.current.locals)
	c.declareLocal(s.Identifier)
	c.emitStoreName(s.Identifier, s.Line())
	c.chunk().Emit(bytecode.OpPop, s.Line())
	c.compileStmt(s.Body)
	c.current.locals = c.current.locals[:savedLocals]

	_ = c.chunk().EmitLoop(loopStart, s.Line())
	_ = c.chunk().PatchJump(exitJump)
	c.chunk().Emit(bytecode.OpPop, s.Line()) // drop the exhausted iterator

	c.patchLoopBreaks(s.Line())
}

func (c *Compiler) patchLoopBreaks(line int) {
	n := len(c.current.loops)
	lc := c.current.loops[n-1]
	c.current.loops = c.current.loops[:n-1]
	for _, jumpAt := range lc.breakJumps {
		_ = c.chunk().PatchJump(jumpAt)
	}
	_ = line
}

func (c *Compiler) compileBreak(line int) {
	if len(c.current.loops) == 0 {
		c.fail("break outside of a loop")
		return
	}
	jumpAt := c.chunk().EmitJump(bytecode.OpJump, line)
	top := len(c.current.loops) - 1
	c.current.loops[top].breakJumps = append(c.current.loops[top].breakJumps, jumpAt)
}

func (c *Compiler) compileContinue(line int) {
	if len(c.current.loops) == 0 {
		c.fail("continue outside of a loop")
		return
	}
	target := c.current.loops[len(c.current.loops)-1].continueTarget
	_ = c.chunk().EmitLoop(target, line)
}

func (c *Compiler) compileFunctionDecl(s *ast.FunctionDeclaration) {
	c.compileClosureValue(s.Name, s.Params, s.Body.Body, s.Line())
	c.declareTarget(s.Name, s.Line())
}

// compileClosureValue compiles a nested function body and emits the
// OpClosure instruction that wraps it with its resolved upvalue
// descriptors (§3.4, §6.1's variable-shape OpClosure encoding).
func (c *Compiler) compileClosureValue(name string, params []string, body []ast.Stmt, line int) {
	if name == "" {
		name = fmt.Sprintf("anonymous#%d", c.anonCounter)
		c.anonCounter++
	}
	fn := c.compileFunction(name, params, body, false, line)
	fnIdx := c.chunk().AddConst(fn)

	pos := c.chunk().EmitU16(bytecode.OpClosure, fnIdx, line)
	c.chunk().AppendRawU8(uint8(len(fn.Upvalues)))
	for _, uv := range fn.Upvalues {
		isLocal := uint8(0)
		if uv.FromParentLocal {
			isLocal = 1
		}
		c.chunk().AppendRawU8(isLocal)
		c.chunk().AppendRawU16(uv.Index)
	}
	_ = pos
}

func (c *Compiler) compileTry(s *ast.TryStatement) {
	handlerAt := c.chunk().EmitJump(bytecode.OpPushHandler, s.Line())
	for _, stmt := range s.TryBlock.Body {
		c.compileStmt(stmt)
	}
	c.chunk().Emit(bytecode.OpPopHandler, s.Line())
	endJump := c.chunk().EmitJump(bytecode.OpJump, s.Line())

	_ = c.chunk().PatchJump(handlerAt)
	c.declareTarget(s.ErrorVar, s.Line())
	for _, stmt := range s.CatchBlock.Body {
		c.compileStmt(stmt)
	}
	_ = c.chunk().PatchJump(endJump)
}

func (c *Compiler) compileImport(s *ast.ImportStatement) {
	name := s.Alias
	if name == "" {
		name = s.Path
	}
	c.chunk().EmitU16(bytecode.OpGetModule, c.nameConst(s.Path), s.Line())
	c.chunk().EmitU16(bytecode.OpStoreGlobal, c.nameConst(name), s.Line())
	c.chunk().Emit(bytecode.OpPop, s.Line())
}

// --- expressions ---------------------------------------------------------

func (c *Compiler) compileExpr(expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.NumericLiteral:
		c.emitNumber(e.Value, e.Line())
	case *ast.StringLiteral:
		c.chunk().EmitU16(bytecode.OpConst, c.chunk().AddConst(value.String(e.Value)), e.Line())
	case *ast.InterpolatedString:
		c.compileInterpolated(e)
	case *ast.BooleanLiteral:
		if e.Value {
			c.chunk().Emit(bytecode.OpTrue, e.Line())
		} else {
			c.chunk().Emit(bytecode.OpFalse, e.Line())
		}
	case *ast.NullLiteral:
		c.chunk().Emit(bytecode.OpNull, e.Line())
	case *ast.Identifier:
		c.emitLoadName(e.Name, e.Line())
	case *ast.ArrayLiteral:
		for _, el := range e.Elements {
			c.compileExpr(el)
		}
		c.chunk().EmitU16(bytecode.OpMakeList, uint16(len(e.Elements)), e.Line())
	case *ast.MapLiteral:
		for _, prop := range e.Properties {
			c.compileExpr(prop.Key)
			c.compileExpr(prop.Value)
		}
		c.chunk().EmitU16(bytecode.OpMakeMap, uint16(len(e.Properties)), e.Line())
	case *ast.RangeExpr:
		c.compileExpr(e.Start)
		c.compileExpr(e.End)
		flags := uint8(0)
		if e.Inclusive {
			flags = 1
		}
		c.chunk().EmitU8(bytecode.OpMakeRange, flags, e.Line())
	case *ast.BinaryExpr:
		c.compileBinary(e)
	case *ast.LogicalExpr:
		c.compileLogical(e)
	case *ast.UnaryExpr:
		c.compileUnary(e)
	case *ast.AssignmentExpr:
		c.compileAssignment(e)
	case *ast.CallExpr:
		c.compileCall(e)
	case *ast.MemberExpr:
		c.compileExpr(e.Object)
		c.chunk().EmitU16(bytecode.OpGetProp, c.nameConst(e.Property), e.Line())
	case *ast.IndexExpr:
		c.compileExpr(e.Object)
		c.compileExpr(e.Index)
		c.chunk().Emit(bytecode.OpGetIndex, e.Line())
	case *ast.FunctionExpr:
		c.compileClosureValue("", e.Params, e.Body.Body, e.Line())
	default:
		c.fail(fmt.Sprintf("compiler: unhandled expression %T", expr))
	}
}

// emitNumber picks OpConst vs. the teacher-inherited fast paths for the
// integer literals 0 and 1, and otherwise interns a Float/Int constant: a
// literal with no fractional digits compiles to an Int, matching §3.1's
// Int/Float split.
func (c *Compiler) emitNumber(v float64, line int) {
	if v == 0 {
		c.chunk().Emit(bytecode.OpLoadConst0, line)
		return
	}
	if v == 1 {
		c.chunk().Emit(bytecode.OpLoadConst1, line)
		return
	}
	var cv value.Value
	if v == float64(int64(v)) {
		cv = value.Int(int64(v))
	} else {
		cv = value.Float(v)
	}
	c.chunk().EmitU16(bytecode.OpConst, c.chunk().AddConst(cv), line)
}

func (c *Compiler) compileBinary(e *ast.BinaryExpr) {
	c.compileExpr(e.Left)
	c.compileExpr(e.Right)
	line := e.Line()
	switch e.Operator {
	case "+":
		c.chunk().Emit(bytecode.OpAdd, line)
	case "-":
		c.chunk().Emit(bytecode.OpSub, line)
	case "*":
		c.chunk().Emit(bytecode.OpMul, line)
	case "/":
		c.chunk().Emit(bytecode.OpDiv, line)
	case "%":
		c.chunk().Emit(bytecode.OpMod, line)
	case "^":
		c.chunk().Emit(bytecode.OpPow, line)
	case "==":
		c.chunk().Emit(bytecode.OpEq, line)
	case "!=":
		c.chunk().Emit(bytecode.OpNe, line)
	case "<":
		c.chunk().Emit(bytecode.OpLt, line)
	case "<=":
		c.chunk().Emit(bytecode.OpLe, line)
	case ">":
		c.chunk().Emit(bytecode.OpGt, line)
	case ">=":
		c.chunk().Emit(bytecode.OpGe, line)
	default:
		c.fail("unknown binary operator " + e.Operator)
	}
}

// compileLogical short-circuits && and || rather than emitting the teacher's
// unconditional OpAnd/OpOr-style eager evaluation, matching §4.2.2's
// short-circuit requirement. OpJumpIfFalse/OpJumpIfTrue both consume
// (pop) the tested value as part of the branch itself, so the short-circuit
// path must push its own boolean result rather than leave the popped
// condition on the stack.
func (c *Compiler) compileLogical(e *ast.LogicalExpr) {
	if e.Operator == "??" {
		c.compileCoalesce(e)
		return
	}
	c.compileExpr(e.Left)
	line := e.Line()
	shortOp := bytecode.OpJumpIfFalse
	shortVal := false
	if e.Operator == "||" {
		shortOp = bytecode.OpJumpIfTrue
		shortVal = true
	}
	toShort := c.chunk().EmitJump(shortOp, line)
	c.compileExpr(e.Right)
	toEnd := c.chunk().EmitJump(bytecode.OpJump, line)
	_ = c.chunk().PatchJump(toShort)
	if shortVal {
		c.chunk().Emit(bytecode.OpTrue, line)
	} else {
		c.chunk().Emit(bytecode.OpFalse, line)
	}
	_ = c.chunk().PatchJump(toEnd)
}

// compileCoalesce desugars `a ?? b` the way jit/compiler.rs's JumpIfNotNull
// does: the opcode peeks rather than pops, so the left value survives on the
// stack across the branch and only needs discarding on the null path before
// falling through to the right-hand side.
func (c *Compiler) compileCoalesce(e *ast.LogicalExpr) {
	c.compileExpr(e.Left)
	line := e.Line()
	toEnd := c.chunk().EmitJump(bytecode.OpJumpIfNotNull, line)
	c.chunk().Emit(bytecode.OpPop, line)
	c.compileExpr(e.Right)
	_ = c.chunk().PatchJump(toEnd)
}

func (c *Compiler) compileUnary(e *ast.UnaryExpr) {
	line := e.Line()
	if !e.Prefix {
		// postfix ++/-- : load, push delta, store back, leaving the
		// pre-increment value... simplified here to the post-store value,
		// documented as a deliberate simplification (expression-statement
		// position is the only place parseStmt's default case allows it).
		c.compileIncDec(e, line)
		return
	}
	switch e.Operator {
	case "++", "--":
		c.compileIncDec(e, line)
	case "-":
		c.compileExpr(e.Operand)
		c.chunk().Emit(bytecode.OpNeg, line)
	case "!":
		c.compileExpr(e.Operand)
		c.chunk().Emit(bytecode.OpNot, line)
	default:
		c.fail("unknown unary operator " + e.Operator)
	}
}

// compileIncDec generalizes the teacher's OP_INCREMENT_LOCAL peephole to
// any assignable target, falling back to full load/add/store when the
// target isn't a simple local slot.
func (c *Compiler) compileIncDec(e *ast.UnaryExpr, line int) {
	ident, ok := e.Operand.(*ast.Identifier)
	if !ok {
		c.fail("++/-- target must be an identifier")
		return
	}
	if slot, ok := resolveLocal(c.current, ident.Name); ok {
		op := bytecode.OpIncLocal
		if e.Operator == "--" {
			op = bytecode.OpDecLocal
		}
		c.chunk().EmitU16(op, slot, line)
		c.chunk().EmitU16(bytecode.OpLoadLocal, slot, line)
		return
	}
	c.emitLoadName(ident.Name, line)
	c.chunk().Emit(bytecode.OpLoadConst1, line)
	if e.Operator == "++" {
		c.chunk().Emit(bytecode.OpAdd, line)
	} else {
		c.chunk().Emit(bytecode.OpSub, line)
	}
	c.emitStoreName(ident.Name, line)
}

// compileAssignment evaluates the target's receiver/index before the RHS
// (object, index, value order), matching OpSetProp/OpSetIndex's stack
// contract: both pop the assigned value off the top, then the
// index/receiver beneath it.
func (c *Compiler) compileAssignment(e *ast.AssignmentExpr) {
	line := e.Line()
	switch target := e.Target.(type) {
	case *ast.Identifier:
		// OpStoreLocal/OpStoreGlobal/OpStoreUpvalue all peek rather than pop,
		// so the stored value is already left behind as the expression's
		// result -- no extra Dup needed.
		c.compileExpr(e.Value)
		c.emitStoreName(target.Name, line)
	case *ast.MemberExpr:
		c.compileExpr(target.Object)
		c.compileExpr(e.Value)
		c.chunk().EmitU16(bytecode.OpSetProp, c.nameConst(target.Property), line)
	case *ast.IndexExpr:
		c.compileExpr(target.Object)
		c.compileExpr(target.Index)
		c.compileExpr(e.Value)
		c.chunk().Emit(bytecode.OpSetIndex, line)
	default:
		c.fail(fmt.Sprintf("invalid assignment target %T", e.Target))
	}
}

// compileCall distinguishes a plain call (push callee, push args, OpCall)
// from a method-style call through a MemberExpr (OpInvoke), matching the
// method-lookup order of §4.7: user method -> host-registered handler.
// builtinHostCalls maps a bare identifier callee straight onto an `io`
// namespace method (§8's scenarios call `println`/`print` unqualified, not
// `io.println`), skipping the ordinary local/upvalue/global resolution order
// entirely -- there is deliberately no way to shadow them with a same-named
// local, matching how the teacher's GlobalEnv.DeclareVar entries for these
// names are installed before any user code runs.
var builtinHostCalls = map[string]string{
	"println": "io.println",
	"print":   "io.print",
}

// compileInterpolated lowers an `"...{expr}..."` literal to a left-folded
// chain of OpAdd string concatenations, coercing every spliced expression
// through io.str first since OpAdd's concat path only fires when both
// operands are already value.String (§9 "Operator overloading on strings/
// lists via Add").
func (c *Compiler) compileInterpolated(e *ast.InterpolatedString) {
	line := e.Line()
	started := false
	for _, part := range e.Parts {
		if part.IsExpr {
			c.compileExpr(part.Expr)
			c.chunk().EmitU16(bytecode.OpCallHost, c.nameConst("io.str"), line)
			c.chunk().AppendRawU8(1)
		} else {
			c.chunk().EmitU16(bytecode.OpConst, c.chunk().AddConst(value.String(part.Literal)), line)
		}
		if started {
			c.chunk().Emit(bytecode.OpAdd, line)
		}
		started = true
	}
	if !started {
		c.chunk().EmitU16(bytecode.OpConst, c.chunk().AddConst(value.String("")), line)
	}
}

func (c *Compiler) compileCall(e *ast.CallExpr) {
	line := e.Line()
	if ident, ok := e.Callee.(*ast.Identifier); ok {
		if hostName, ok := builtinHostCalls[ident.Name]; ok {
			for _, arg := range e.Args {
				c.compileExpr(arg)
			}
			c.chunk().EmitU16(bytecode.OpCallHost, c.nameConst(hostName), line)
			c.chunk().AppendRawU8(uint8(len(e.Args)))
			return
		}
	}
	if member, ok := e.Callee.(*ast.MemberExpr); ok {
		c.compileExpr(member.Object)
		for _, arg := range e.Args {
			c.compileExpr(arg)
		}
		pos := c.chunk().EmitU16(bytecode.OpInvoke, c.nameConst(member.Property), line)
		c.chunk().AppendRawU8(uint8(len(e.Args)))
		_ = pos
		return
	}
	c.compileExpr(e.Callee)
	for _, arg := range e.Args {
		c.compileExpr(arg)
	}
	c.chunk().EmitU8(bytecode.OpCall, uint8(len(e.Args)), line)
}
