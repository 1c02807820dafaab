package debug

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratum/internal/frontend/compiler"
	"stratum/internal/frontend/parser"
	hostpkg "stratum/internal/host"
	"stratum/internal/object"
	"stratum/internal/value"
	"stratum/internal/vm"
)

func compileSource(t *testing.T, src string) *object.Function {
	t.Helper()
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	fn, err := compiler.Compile(prog)
	require.NoError(t, err)
	fn.Chunk.Source = "<test>"
	return fn
}

func newMachine() *vm.VM {
	bridge := hostpkg.NewBridge()
	hostpkg.RegisterIO(bridge)
	machine := vm.New(vm.Config{Host: bridge})
	bridge.BindVM(machine)
	return machine
}

// captureStdout redirects os.Stdout for the duration of fn, returning
// whatever was written -- println writes there directly (internal/host's
// io.go), so this is the only way to observe §8(g)'s `continue_debug`
// stdout assertion without threading a writer through the whole bridge.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	old := os.Stdout
	os.Stdout = w
	fn()
	os.Stdout = old
	w.Close()
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}

// TestRunDebugBreakpointThenStepOverThenContinue reproduces §8 scenario (g)
// verbatim: a breakpoint on line 2 of `let x = 1\nlet y = 2\nprintln(x + y)`.
func TestRunDebugBreakpointThenStepOverThenContinue(t *testing.T) {
	const src = "let x = 1\nlet y = 2\nprintln(x + y)"
	fn := compileSource(t, src)
	machine := newMachine()
	session := NewSession(machine)
	session.AddBreakpoint(fn.Chunk.Source, 2)

	res := session.Start(fn, false)
	require.Equal(t, Paused, res.Kind)
	assert.Equal(t, ReasonBreakpoint, res.Reason)

	res = session.StepOverNow()
	require.Equal(t, Paused, res.Kind)
	assert.Equal(t, ReasonStep, res.Reason)
	require.NotEmpty(t, res.State.Frames)
	assert.Equal(t, 3, res.State.Frames[0].Line)

	var out string
	final := DebugStepResult{}
	out = captureStdout(t, func() {
		final = session.Continue()
	})
	assert.Equal(t, Completed, final.Kind)
	assert.Equal(t, value.NullValue, final.Value)
	assert.Equal(t, "3\n", out)
}

// TestRunDebugWithoutStopOnEntryRunsStraightToBreakpoint guards against the
// regression this reproduces: Start must not pause on the first instruction
// unless stopOnEntry is explicitly requested.
func TestRunDebugWithoutStopOnEntryRunsStraightToBreakpoint(t *testing.T) {
	const src = "let x = 1\nlet y = 2\nlet z = 3"
	fn := compileSource(t, src)
	machine := newMachine()
	session := NewSession(machine)
	session.AddBreakpoint(fn.Chunk.Source, 3)

	res := session.Start(fn, false)
	require.Equal(t, Paused, res.Kind)
	assert.Equal(t, ReasonBreakpoint, res.Reason)
	require.NotEmpty(t, res.State.Frames)
	assert.Equal(t, 3, res.State.Frames[0].Line)
}

// TestRunDebugStopOnEntryPausesBeforeFirstInstruction exercises the opt-in
// path, the only way ReasonEntry should ever be observed.
func TestRunDebugStopOnEntryPausesBeforeFirstInstruction(t *testing.T) {
	const src = "let x = 1\nlet y = 2"
	fn := compileSource(t, src)
	machine := newMachine()
	session := NewSession(machine)

	res := session.Start(fn, true)
	require.Equal(t, Paused, res.Kind)
	assert.Equal(t, ReasonEntry, res.Reason)

	res = session.Continue()
	assert.Equal(t, Completed, res.Kind)
}
