package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratum/internal/bytecode"
	"stratum/internal/frontend/parser"
	"stratum/internal/object"
)

func compileSource(t *testing.T, src string) *object.Function {
	t.Helper()
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	fn, err := Compile(prog)
	require.NoError(t, err)
	return fn
}

func TestCompileSimpleArithmetic(t *testing.T) {
	fn := compileSource(t, `let x = 2 + 3`)
	dis := fn.Chunk.Disassemble("<script>")
	assert.True(t, strings.Contains(dis, "ADD"))
	assert.True(t, strings.Contains(dis, "STORE_GLOBAL"))
}

func TestCompileIfElseHasBothJumpKinds(t *testing.T) {
	fn := compileSource(t, `if x > 0 { y = 1 } else { y = 2 }`)
	dis := fn.Chunk.Disassemble("<script>")
	assert.True(t, strings.Contains(dis, "JUMP_IF_FALSE"))
	assert.True(t, strings.Contains(dis, "JUMP "))
}

func TestCompileWhileLoopEmitsLoop(t *testing.T) {
	fn := compileSource(t, `while x < 10 { x = x + 1 }`)
	dis := fn.Chunk.Disassemble("<script>")
	assert.True(t, strings.Contains(dis, "LOOP"))
}

func TestCompileForLoopUsesIteratorProtocol(t *testing.T) {
	fn := compileSource(t, `for v in items { total = total + v }`)
	dis := fn.Chunk.Disassemble("<script>")
	assert.True(t, strings.Contains(dis, "ITER_INIT"))
	assert.True(t, strings.Contains(dis, "ITER_NEXT"))
}

func TestCompileFunctionDeclarationEmitsClosure(t *testing.T) {
	fn := compileSource(t, `func add(a, b) { return a + b }`)
	dis := fn.Chunk.Disassemble("<script>")
	assert.True(t, strings.Contains(dis, "CLOSURE"))
}

func TestCompileClosureCapturesUpvalue(t *testing.T) {
	fn := compileSource(t, `
		func outer() {
			let x = 10
			func inner() {
				return x
			}
			return inner
		}
	`)
	// outer's own chunk should contain a CLOSURE instruction referencing inner,
	// and inner's Function (interned as a constant of outer's chunk) should
	// carry one upvalue descriptor pointing at outer's local slot for x.
	var inner *object.Function
	for _, c := range fn.Chunk.Consts() {
		if nested, ok := c.(*object.Function); ok && nested.Name == "outer" {
			for _, cc := range nested.Chunk.Consts() {
				if innerFn, ok := cc.(*object.Function); ok && innerFn.Name == "inner" {
					inner = innerFn
				}
			}
		}
	}
	require.NotNil(t, inner, "expected to find compiled inner() in outer's constant pool")
	require.Len(t, inner.Upvalues, 1)
	assert.True(t, inner.Upvalues[0].FromParentLocal)
}

func TestCompileBreakOutsideLoopFails(t *testing.T) {
	prog, err := parser.Parse(`break`)
	require.NoError(t, err)
	_, err = Compile(prog)
	assert.Error(t, err)
}

func TestCompileTryCatchUsesHandlerOpcodes(t *testing.T) {
	fn := compileSource(t, `try { risky() } catch (e) { handle(e) }`)
	dis := fn.Chunk.Disassemble("<script>")
	assert.True(t, strings.Contains(dis, "PUSH_HANDLER"))
	assert.True(t, strings.Contains(dis, "POP_HANDLER"))
}

func TestCompileLogicalShortCircuit(t *testing.T) {
	fn := compileSource(t, `let ok = a && b`)
	dis := fn.Chunk.Disassemble("<script>")
	assert.True(t, strings.Contains(dis, "JUMP_IF_FALSE"))
}

func TestCompileIncrementUsesFastOpcode(t *testing.T) {
	fn := compileSource(t, `func counter() { let n = 0 n++ return n }`)
	var inner *object.Function
	for _, c := range fn.Chunk.Consts() {
		if nested, ok := c.(*object.Function); ok {
			inner = nested
		}
	}
	require.NotNil(t, inner)
	dis := inner.Chunk.Disassemble("counter")
	assert.True(t, strings.Contains(dis, "INC_LOCAL"))
}

func TestCompileImportStoresModuleGlobal(t *testing.T) {
	fn := compileSource(t, `import "math" as m`)
	dis := fn.Chunk.Disassemble("<script>")
	assert.True(t, strings.Contains(dis, "GET_MODULE"))
	assert.True(t, strings.Contains(dis, "STORE_GLOBAL"))
}

func TestCompileMethodCallUsesInvoke(t *testing.T) {
	fn := compileSource(t, `obj.greet("hi")`)
	dis := fn.Chunk.Disassemble("<script>")
	assert.True(t, strings.Contains(dis, "INVOKE"))
}

func TestCompileAnonymousFunctionsDontAliasConstants(t *testing.T) {
	fn := compileSource(t, `
		let a = func(x) { return x }
		let b = func(y) { return y }
	`)
	var names []string
	for _, c := range fn.Chunk.Consts() {
		if nested, ok := c.(*object.Function); ok {
			names = append(names, nested.Name)
		}
	}
	require.Len(t, names, 2)
	assert.NotEqual(t, names[0], names[1])
}

func TestCompileEndsWithImplicitReturn(t *testing.T) {
	fn := compileSource(t, `let x = 1`)
	code := fn.Chunk.Code()
	require.True(t, len(code) >= 2)
	assert.Equal(t, bytecode.OpReturn, bytecode.OpCode(code[len(code)-1]))
}
