// Package jit implements Stratum's optional native code generator (spec
// §4.6): a best-effort translator from a safe subset of bytecode to a native
// calling convention, with a per-function-name cache and a call-count
// hotness heuristic.
//
// It generalizes the teacher's runtime.HybridEngine (a VM-vs-interpreter
// heuristic keyed by per-function *FunctionStats.CallCount) from "tree-walk
// vs. bytecode VM" to "bytecode VM vs. compiled native closure". Because this
// module targets portable Go rather than an assembler (no machine-code
// backend exists anywhere in the retrieval pack that fits a scripting-VM
// domain -- see SPEC_FULL.md §4.6), "native code" here means compiling a
// Chunk into a Go closure operating on packed Word pairs instead of
// value.Value, which is still a real, measurable fast path: it skips the
// interface-dispatch and retain/release bookkeeping the interpreter pays for
// every instruction, for the arithmetic-and-control-flow subset that never
// touches a container.
package jit

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"stratum/internal/object"
	"stratum/internal/value"
)

// CompiledFunc is the native calling convention of §4.6: every argument and
// the return value travel as a Word pair.
type CompiledFunc func(args []Word) Word

type compiledEntry struct {
	fn    CompiledFunc
	arity int
}

// DefaultHotnessThreshold is the call count a function must reach before
// Engine considers it worth translating, grounded on the teacher's
// loopComplexityThreshold-style tunable (runtime/hybrid.go) rather than
// translating on the very first call, which would pay compilation cost for
// functions only ever called once.
const DefaultHotnessThreshold = 8

// Engine owns the compiled-native-code cache (§4.6: "its machine entry is
// cached by function name") and the hotness counters that decide when a
// function is first worth translating.
type Engine struct {
	cache     *lru.Cache[string, *compiledEntry]
	calls     map[string]int
	threshold int
}

// NewEngine constructs an Engine whose native-code cache holds at most
// cacheSize entries (an LRU, not an unbounded map, so a program compiling
// many short-lived functions can't grow the cache without bound -- the §9
// open question on retry/eviction policy this module answers).
func NewEngine(cacheSize int) *Engine {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New[string, *compiledEntry](cacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, already guarded above.
		panic(err)
	}
	return &Engine{cache: cache, calls: map[string]int{}, threshold: DefaultHotnessThreshold}
}

// SetHotnessThreshold overrides DefaultHotnessThreshold.
func (e *Engine) SetHotnessThreshold(n int) {
	if n > 0 {
		e.threshold = n
	}
}

// RecordCall bumps fn's call counter and reports whether this call just
// crossed the translation threshold, mirroring the teacher's
// FunctionStats.CallCount bookkeeping (runtime/hybrid.go).
func (e *Engine) RecordCall(name string) bool {
	e.calls[name]++
	return e.calls[name] == e.threshold
}

// Lookup returns a previously cached native entry for name, if any.
func (e *Engine) Lookup(name string) (CompiledFunc, int, bool) {
	entry, ok := e.cache.Get(name)
	if !ok {
		return nil, 0, false
	}
	return entry.fn, entry.arity, true
}

// Compile attempts to translate fn's chunk to a native closure, caching it by
// name on success. Per §4.6's invariant ("translation failure is never a
// runtime error"), a failed translation is reported only via the boolean
// return -- callers fall back to the interpreter, they never propagate an
// error up to user-visible `run`.
func (e *Engine) Compile(fn *object.Function) (CompiledFunc, bool) {
	if cached, _, ok := e.Lookup(fn.Name); ok {
		return cached, true
	}
	native, err := translate(fn)
	if err != nil {
		return nil, false
	}
	e.cache.Add(fn.Name, &compiledEntry{fn: native, arity: fn.Arity})
	return native, true
}

// Invoke marshals interpreter-stack values into Words, calls the native
// entry, and marshals the result back, per §4.6's "thin shim" compilation
// policy. A Word-incompatible argument or an in-flight abort both report as
// ok=false so the caller can fall back to interpreting this one call without
// evicting the cached entry -- most calls to the same function will still use
// primitive-only arguments.
func Invoke(native CompiledFunc, args []value.Value) (value.Value, bool) {
	words := make([]Word, len(args))
	for i, a := range args {
		w, ok := wordFromValue(a)
		if !ok {
			return nil, false
		}
		words[i] = w
	}
	result := native(words)
	if result.isAbort() {
		return nil, false
	}
	return result.toValue(), true
}
