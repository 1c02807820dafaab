package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratum/internal/bytecode"
	"stratum/internal/jit"
	"stratum/internal/object"
	"stratum/internal/value"
)

// buildDouble compiles, by hand, `func double(n) { return n * 2 }` -- small
// enough to sit entirely in §4.6's translatable subset, so it doubles as the
// JIT/interpreter-equivalence fixture (§8 invariant 7).
func buildDouble() *object.Function {
	c := bytecode.NewChunk("double")
	c.EmitU16(bytecode.OpLoadLocal, 0, 1)
	idx := c.AddConst(value.Int(2))
	c.EmitU16(bytecode.OpConst, idx, 1)
	c.Emit(bytecode.OpMul, 1)
	c.Emit(bytecode.OpReturn, 1)
	return object.NewFunction("double", 1, c)
}

// buildCallDouble builds a top-level script chunk that calls double(arg) and
// returns its result, exercising OpCall/invoke end to end.
func buildCallDouble(fn *object.Function, arg int64) *object.Function {
	c := bytecode.NewChunk("<script>")
	fnIdx := c.AddConst(fn)
	c.EmitU16(bytecode.OpConst, fnIdx, 1)
	argIdx := c.AddConst(value.Int(arg))
	c.EmitU16(bytecode.OpConst, argIdx, 1)
	c.EmitU8(bytecode.OpCall, 1, 1)
	c.Emit(bytecode.OpReturn, 1)
	return object.NewFunction("<script>", 0, c)
}

func TestRunCallWithoutJIT(t *testing.T) {
	fn := buildDouble()
	script := buildCallDouble(fn, 21)

	machine := New(Config{})
	result, err := machine.Run(script)
	require.NoError(t, err)
	assert.Equal(t, value.Int(42), result)
}

func TestRunCallUsesNativePathOnceHot(t *testing.T) {
	engine := jit.NewEngine(0)
	engine.SetHotnessThreshold(2)

	for i := int64(0); i < 4; i++ {
		fn := buildDouble()
		script := buildCallDouble(fn, 10+i)

		machine := New(Config{JIT: engine})
		result, err := machine.Run(script)
		require.NoError(t, err)
		assert.Equal(t, value.Int((10+i)*2), result)
	}
	_, _, cached := engine.Lookup("double")
	assert.True(t, cached)
}
