package vm_test

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratum/internal/frontend/compiler"
	"stratum/internal/frontend/parser"
	"stratum/internal/host"
	"stratum/internal/vm"
)

// runProgram compiles and runs src through the same bridge cmd/stratum's
// `run` subcommand wires up, capturing whatever println/print wrote to
// stdout alongside the program's own result.
func runProgram(t *testing.T, src string) (result string, stdout string) {
	t.Helper()
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	fn, err := compiler.Compile(prog)
	require.NoError(t, err)
	fn.Chunk.Source = "<test>"

	bridge := host.NewBridge()
	host.RegisterIO(bridge)
	host.RegisterFmaths(bridge)
	host.RegisterTime(bridge)
	machine := vm.New(vm.Config{Host: bridge})
	bridge.BindVM(machine)

	r, w, err := os.Pipe()
	require.NoError(t, err)
	old := os.Stdout
	os.Stdout = w

	val, runErr := machine.Run(fn)

	os.Stdout = old
	w.Close()
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, runErr)

	return val.String(), string(out)
}

// TestScenarioArithmetic reproduces §8(a): `println(1 + 2 * 3)` prints `7`
// and the program's own result is Null.
func TestScenarioArithmetic(t *testing.T) {
	result, stdout := runProgram(t, `println(1 + 2 * 3)`)
	assert.Equal(t, "7\n", stdout)
	assert.Equal(t, "null", result)
}

// TestScenarioStringInterpolation reproduces §8(b).
func TestScenarioStringInterpolation(t *testing.T) {
	_, stdout := runProgram(t, `
let n = "World"
println("Hello, {n}!")
`)
	assert.Equal(t, "Hello, World!\n", stdout)
}

// TestScenarioClosureCounter reproduces §8(c): a closure over a captured
// local increments across three calls.
func TestScenarioClosureCounter(t *testing.T) {
	_, stdout := runProgram(t, `
func make_counter() {
	let c = 0
	return func() {
		c = c + 1
		return c
	}
}
let f = make_counter()
println(f())
println(f())
println(f())
`)
	assert.Equal(t, "1\n2\n3\n", stdout)
}

// TestScenarioForRangeLoop reproduces §8(d): `for i in 1..=3 { println(i) }`.
func TestScenarioForRangeLoop(t *testing.T) {
	_, stdout := runProgram(t, `
for i in 1..=3 {
	println(i)
}
`)
	assert.Equal(t, "1\n2\n3\n", stdout)
}

// TestScenarioNullCoalesce exercises `??`'s compiled desugaring
// (JumpIfNotNull/Pop rather than a dedicated consuming opcode).
func TestScenarioNullCoalesce(t *testing.T) {
	_, stdout := runProgram(t, `
let a = null
let b = a ?? 5
println(b)
println(10 ?? 99)
`)
	assert.Equal(t, "5\n10\n", stdout)
}
