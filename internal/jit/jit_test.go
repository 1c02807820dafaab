package jit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratum/internal/bytecode"
	"stratum/internal/object"
	"stratum/internal/value"
)

// buildSumToN compiles, by hand, the bytecode for:
//
//	func sumTo(n) {
//	    total = 0
//	    i = 0
//	    while i < n { total = total + i; i++ }
//	    return total
//	}
//
// exercising the jump/loop control flow of the translatable subset.
func buildSumToN(t *testing.T) *object.Function {
	t.Helper()
	c := bytecode.NewChunk("sumTo")

	c.Emit(bytecode.OpLoadConst0, 1)
	c.EmitU16(bytecode.OpStoreLocal, 1, 1)
	c.Emit(bytecode.OpPop, 1)

	c.Emit(bytecode.OpLoadConst0, 1)
	c.EmitU16(bytecode.OpStoreLocal, 2, 1)
	c.Emit(bytecode.OpPop, 1)

	loopStart := c.Len()
	c.EmitU16(bytecode.OpLoadLocal, 2, 1)
	c.EmitU16(bytecode.OpLoadLocal, 0, 1)
	c.Emit(bytecode.OpLt, 1)
	exitJump := c.EmitJump(bytecode.OpJumpIfFalse, 1)

	c.EmitU16(bytecode.OpLoadLocal, 1, 1)
	c.EmitU16(bytecode.OpLoadLocal, 2, 1)
	c.Emit(bytecode.OpAdd, 1)
	c.EmitU16(bytecode.OpStoreLocal, 1, 1)
	c.Emit(bytecode.OpPop, 1)
	c.EmitU16(bytecode.OpIncLocal, 2, 1)
	require.NoError(t, c.EmitLoop(loopStart, 1))

	require.NoError(t, c.PatchJump(exitJump))
	c.EmitU16(bytecode.OpLoadLocal, 1, 1)
	c.Emit(bytecode.OpReturn, 1)

	return object.NewFunction("sumTo", 1, c)
}

func buildAddTimesTwo(t *testing.T) *object.Function {
	t.Helper()
	c := bytecode.NewChunk("addTimesTwo")
	c.EmitU16(bytecode.OpLoadLocal, 0, 1)
	c.EmitU16(bytecode.OpLoadLocal, 1, 1)
	c.Emit(bytecode.OpAdd, 1)
	idx := c.AddConst(value.Int(2))
	c.EmitU16(bytecode.OpConst, idx, 1)
	c.Emit(bytecode.OpMul, 1)
	c.Emit(bytecode.OpReturn, 1)
	return object.NewFunction("addTimesTwo", 2, c)
}

func buildUsesUnsupportedOpcode(t *testing.T) *object.Function {
	t.Helper()
	c := bytecode.NewChunk("makesList")
	c.EmitU16(bytecode.OpMakeList, 0, 1)
	c.Emit(bytecode.OpReturn, 1)
	return object.NewFunction("makesList", 0, c)
}

func TestTranslateArithmetic(t *testing.T) {
	fn := buildAddTimesTwo(t)
	native, err := translate(fn)
	require.NoError(t, err)
	result := native([]Word{{Tag: wordTagInt, I: 3}, {Tag: wordTagInt, I: 4}})
	assert.Equal(t, wordTagInt, result.Tag)
	assert.Equal(t, int64(14), result.I)
}

func TestTranslateLoop(t *testing.T) {
	fn := buildSumToN(t)
	native, err := translate(fn)
	require.NoError(t, err)
	result := native([]Word{{Tag: wordTagInt, I: 5}})
	assert.Equal(t, wordTagInt, result.Tag)
	assert.Equal(t, int64(10), result.I)
}

func TestTranslateRejectsUnsupportedOpcode(t *testing.T) {
	fn := buildUsesUnsupportedOpcode(t)
	_, err := translate(fn)
	require.Error(t, err)
	var target *unsupportedOpError
	assert.ErrorAs(t, err, &target)
}

func TestTranslateDivisionByZeroAborts(t *testing.T) {
	c := bytecode.NewChunk("divZero")
	c.EmitU16(bytecode.OpLoadLocal, 0, 1)
	c.EmitU16(bytecode.OpLoadLocal, 1, 1)
	c.Emit(bytecode.OpDiv, 1)
	c.Emit(bytecode.OpReturn, 1)
	fn := object.NewFunction("divZero", 2, c)

	native, err := translate(fn)
	require.NoError(t, err)
	result := native([]Word{{Tag: wordTagInt, I: 1}, {Tag: wordTagInt, I: 0}})
	assert.True(t, result.isAbort())
}

func TestEngineCompileCachesByName(t *testing.T) {
	e := NewEngine(0)
	fn := buildAddTimesTwo(t)

	native1, ok := e.Compile(fn)
	require.True(t, ok)
	cached, arity, ok := e.Lookup(fn.Name)
	require.True(t, ok)
	assert.Equal(t, fn.Arity, arity)

	native2, ok := e.Compile(fn)
	require.True(t, ok)
	_ = native1
	_ = native2
	_ = cached
}

func TestEngineRecordCallCrossesThreshold(t *testing.T) {
	e := NewEngine(0)
	e.SetHotnessThreshold(3)
	assert.False(t, e.RecordCall("hot"))
	assert.False(t, e.RecordCall("hot"))
	assert.True(t, e.RecordCall("hot"))
	assert.False(t, e.RecordCall("hot"))
}

func TestEngineCompileRejectsUnsupportedFunction(t *testing.T) {
	e := NewEngine(0)
	fn := buildUsesUnsupportedOpcode(t)
	_, ok := e.Compile(fn)
	assert.False(t, ok)
	_, _, cached := e.Lookup(fn.Name)
	assert.False(t, cached)
}

func TestInvokeMarshalsValues(t *testing.T) {
	fn := buildAddTimesTwo(t)
	native, err := translate(fn)
	require.NoError(t, err)

	result, ok := Invoke(native, []value.Value{value.Int(5), value.Int(6)})
	require.True(t, ok)
	assert.Equal(t, value.Int(22), result)
}

func TestInvokeFallsBackOnNonPrimitiveArgument(t *testing.T) {
	fn := buildAddTimesTwo(t)
	native, err := translate(fn)
	require.NoError(t, err)

	_, ok := Invoke(native, []value.Value{fn, value.Int(1)})
	assert.False(t, ok)
}
