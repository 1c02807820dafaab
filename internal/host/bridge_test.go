package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratum/internal/bytecode"
	"stratum/internal/object"
	"stratum/internal/value"
	"stratum/internal/vm"
)

func newTestBridge() *Bridge {
	b := NewBridge()
	RegisterFmaths(b)
	RegisterTime(b)
	RegisterPlaceholders(b)
	return b
}

func TestModuleResolvesRegisteredNamespace(t *testing.T) {
	b := newTestBridge()
	m, err := b.Module("fmaths")
	require.NoError(t, err)
	opaque, ok := m.(*value.Opaque)
	require.True(t, ok)
	assert.Equal(t, "fmaths", opaque.TypeName)
}

func TestModuleUnknownNameErrors(t *testing.T) {
	b := newTestBridge()
	_, err := b.Module("nope")
	assert.Error(t, err)
}

func TestDispatchRoutesFmathsMethodCalls(t *testing.T) {
	b := newTestBridge()
	m, err := b.Module("fmaths")
	require.NoError(t, err)

	result, err := b.Dispatch(m, "sqrt", []value.Value{value.Float(16)})
	require.NoError(t, err)
	assert.Equal(t, value.Float(4), result)

	result, err = b.Dispatch(m, "pow", []value.Value{value.Int(2), value.Int(10)})
	require.NoError(t, err)
	assert.Equal(t, value.Float(1024), result)

	result, err = b.Dispatch(m, "pi", nil)
	require.NoError(t, err)
	assert.InDelta(t, 3.14159, float64(result.(value.Float)), 1e-4)
}

func TestDispatchRoutesTimeMethodCalls(t *testing.T) {
	b := newTestBridge()
	m, err := b.Module("time")
	require.NoError(t, err)

	result, err := b.Dispatch(m, "now", nil)
	require.NoError(t, err)
	_, ok := result.(value.Float)
	assert.True(t, ok)
}

func TestDispatchUnknownMethodIsAttributeError(t *testing.T) {
	b := newTestBridge()
	m, _ := b.Module("fmaths")
	_, err := b.Dispatch(m, "frobnicate", nil)
	assert.Error(t, err)
}

func TestCallNamespaceSplitsCombinedName(t *testing.T) {
	b := newTestBridge()
	result, err := b.CallNamespace("fmaths.abs", []value.Value{value.Int(-5)})
	require.NoError(t, err)
	assert.Equal(t, value.Float(5), result)
}

func TestCallNamespaceMalformedNameErrors(t *testing.T) {
	b := newTestBridge()
	_, err := b.CallNamespace("noDot", nil)
	assert.Error(t, err)
}

// buildConstFn builds `func() { return <c> }` for a zero-arity closure a
// host callback can invoke via CallSync.
func buildConstFn(name string, c value.Value) *object.Function {
	chunk := bytecode.NewChunk(name)
	idx := chunk.AddConst(c)
	chunk.EmitU16(bytecode.OpConst, idx, 1)
	chunk.Emit(bytecode.OpReturn, 1)
	return object.NewFunction(name, 0, chunk)
}

func TestGuiOnInvokesCallbackSynchronously(t *testing.T) {
	b := newTestBridge()
	machine := vm.New(vm.Config{Host: b})
	b.BindVM(machine)

	guiModule, err := b.Module("Gui")
	require.NoError(t, err)
	callback := buildConstFn("callback", value.Int(7))

	result, err := b.Dispatch(guiModule, "on", []value.Value{callback})
	require.NoError(t, err)
	assert.Equal(t, value.Int(7), result)
}

func TestGuiDispatchUnknownMethodErrors(t *testing.T) {
	b := newTestBridge()
	machine := vm.New(vm.Config{Host: b})
	b.BindVM(machine)

	guiModule, _ := b.Module("Gui")
	_, err := b.Dispatch(guiModule, "resize", nil)
	assert.Error(t, err)
}

func TestDataFrameAndCubeModulesResolveWithoutMethods(t *testing.T) {
	b := newTestBridge()
	_, err := b.Module("DataFrame")
	require.NoError(t, err)
	_, err = b.Module("Cube")
	require.NoError(t, err)
}
