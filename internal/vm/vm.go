// Package vm implements Stratum's bytecode interpreter loop (spec §4.2),
// generalizing the teacher's runtime.VM{stack, sp, frames, globals} from a
// flat int-opcode dispatch over interface{} values to a byte-encoded
// dispatch over value.Value, with the upvalue/handler/coroutine machinery
// the teacher never needed.
package vm

import (
	"stratum/internal/bytecode"
	"stratum/internal/heap"
	"stratum/internal/jit"
	"stratum/internal/object"
	"stratum/internal/value"
	"stratum/internal/verr"
)

// HostBridge is the minimal surface internal/vm needs from internal/host,
// broken out as an interface here (rather than importing internal/host
// directly) so internal/host can import internal/vm's types without an
// import cycle (§4.7).
type HostBridge interface {
	// CallNamespace dispatches `namespace.function(args...)` (§4.7 registry
	// 1: namespace dispatch).
	CallNamespace(name string, args []value.Value) (value.Value, error)
	// Module returns the namespace value for `import name` / module-getter
	// opcodes.
	Module(name string) (value.Value, error)
	// Dispatch implements the method-lookup order of §4.7: user struct/enum
	// method -> registered type-name handler -> AttributeError.
	Dispatch(receiver value.Value, method string, args []value.Value) (value.Value, error)
}

// Config bundles the tunables a VM instance is constructed with.
type Config struct {
	GCThreshold uint64
	Host        HostBridge
	// JIT is the optional native code generator of §4.6. Nil disables the
	// fast path entirely; every call then goes through the ordinary
	// frame-based interpreter loop.
	JIT *jit.Engine
}

// VM is one Stratum execution context: its value stack, call-frame stack,
// globals, open-upvalue table, and cycle collector. It is not goroutine-
// safe, matching §5: "single-threaded cooperative VM ... no locking is
// required".
type VM struct {
	stack   []value.Value
	frames  []*object.Frame
	globals map[string]value.Value

	// openUpvalues maps an absolute stack index to the Upvalue capturing it,
	// so two closures capturing the same local share one cell (§3.4).
	openUpvalues map[int]*object.Upvalue

	collector *heap.Collector
	host      HostBridge
	jit       *jit.Engine

	// instrumentation hooks, set by internal/debug and internal/coverage;
	// nil by default so plain execution pays no overhead.
	onInstruction func(frame *object.Frame, op bytecode.OpCode) bool
	onBranch      func(offset, line int, taken bool)

	// current is the coroutine Resume is driving (nil for the top-level
	// program); Yield stores its value and suspended state there.
	current *object.Coroutine
}

func New(cfg Config) *VM {
	threshold := cfg.GCThreshold
	if threshold == 0 {
		threshold = heap.DefaultThreshold
	}
	return &VM{
		globals:      map[string]value.Value{},
		openUpvalues: map[int]*object.Upvalue{},
		collector:    heap.WithThreshold(threshold),
		host:         cfg.Host,
		jit:          cfg.JIT,
	}
}

func (vm *VM) Collector() *heap.Collector { return vm.collector }

func (vm *VM) Global(name string) (value.Value, bool) {
	v, ok := vm.globals[name]
	return v, ok
}

func (vm *VM) SetGlobal(name string, v value.Value) {
	value.Retain(v)
	if old, ok := vm.globals[name]; ok {
		value.Release(old)
	}
	vm.globals[name] = v
}

// SetInstructionHook installs internal/debug's and internal/coverage's
// per-instruction observer. Returning true from hook pauses the loop before
// the instruction executes; Continue resumes it (§4.4).
func (vm *VM) SetInstructionHook(hook func(frame *object.Frame, op bytecode.OpCode) bool) {
	vm.onInstruction = hook
}

// SetBranchHook installs internal/coverage's branch-outcome observer.
// offset is the bytecode offset of the branch instruction itself, matching
// FunctionCoverage.AnalyzeChunk's Branches key.
func (vm *VM) SetBranchHook(hook func(offset, line int, taken bool)) {
	vm.onBranch = hook
}

func (vm *VM) push(v value.Value) {
	value.Retain(v)
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() value.Value {
	n := len(vm.stack) - 1
	v := vm.stack[n]
	vm.stack = vm.stack[:n]
	value.Release(v)
	return v
}

func (vm *VM) peek(fromTop int) value.Value {
	return vm.stack[len(vm.stack)-1-fromTop]
}

func (vm *VM) currentFrame() *object.Frame {
	return vm.frames[len(vm.frames)-1]
}

// ErrPaused is returned by Run/Continue when the installed instruction hook
// requested a pause (§4.4). The VM's stack and frames are left exactly as
// they were, so a later Continue resumes from that same instruction.
var ErrPaused = verr.New(verr.InternalError, "execution paused")

// Run executes a top-level Function to completion (§6.3 Run), or until a
// debug hook pauses it (ErrPaused) or it suspends at Yield (errYielded).
func (vm *VM) Run(fn *object.Function) (value.Value, error) {
	closure := object.NewClosure(fn, nil)
	vm.collector.Track(closure)
	frame := object.NewFrame(closure, len(vm.stack))
	vm.frames = append(vm.frames, frame)
	return vm.loop()
}

// Continue resumes a VM previously returned via ErrPaused, from exactly the
// instruction it paused before.
func (vm *VM) Continue() (value.Value, error) {
	return vm.loop()
}

// CurrentFrame exposes the topmost frame for debug/coverage snapshots.
func (vm *VM) CurrentFrame() *object.Frame {
	if len(vm.frames) == 0 {
		return nil
	}
	return vm.currentFrame()
}

// Frames exposes the live frame stack for debug snapshots (§4.4).
func (vm *VM) Frames() []*object.Frame { return vm.frames }

// Stack exposes the live value stack for debug snapshots (§4.4).
func (vm *VM) Stack() []value.Value { return vm.stack }

// invoke sets up a new Frame for a callable Value applied to args, without
// recursing into loop: the existing dispatch loop picks up the newly pushed
// frame on its next iteration, exactly as a real stack-based VM would.
func (vm *VM) invoke(callee value.Value, args []value.Value) error {
	var closure *object.Closure
	switch c := callee.(type) {
	case *object.Closure:
		closure = c
	case *object.Function:
		closure = object.NewClosure(c, nil)
		vm.collector.Track(closure)
	case *object.BoundMethod:
		closure = object.NewClosure(c.Method, nil)
		vm.collector.Track(closure)
		args = append([]value.Value{c.Receiver}, args...)
	default:
		return verr.Newf(verr.TypeError, "%s is not callable", callee.Type())
	}
	if len(args) != closure.Fn.Arity {
		return verr.Newf(verr.ArityError, "%s expects %d argument(s), got %d", closure.Fn.Name, closure.Fn.Arity, len(args))
	}

	if vm.tryNativeCall(closure.Fn, args) {
		return nil
	}

	base := len(vm.stack)
	for _, a := range args {
		vm.push(a)
	}
	vm.frames = append(vm.frames, object.NewFrame(closure, base))
	return nil
}

// tryNativeCall attempts §4.6's fast path for a call about to be made:
// record the hotness counter, compile on first crossing the threshold (or
// reuse an already-cached entry), and -- only if both translation and Word
// marshalling succeed -- execute natively and push its result directly,
// exactly the "thin shim" policy of §4.6's compilation policy. Skipping
// tryNativeCall is always correct (the ordinary frame-based path below
// handles every callable), so any false return here, for any reason,
// silently falls back to interpreting this call.
func (vm *VM) tryNativeCall(fn *object.Function, args []value.Value) bool {
	if vm.jit == nil {
		return false
	}
	native, _, cached := vm.jit.Lookup(fn.Name)
	if !cached {
		if !vm.jit.RecordCall(fn.Name) {
			return false
		}
		var ok bool
		native, ok = vm.jit.Compile(fn)
		if !ok {
			return false
		}
	}
	result, ok := jit.Invoke(native, args)
	if !ok {
		return false
	}
	vm.push(result)
	return true
}

// loop is the fetch-decode-dispatch core (§4.2.1): runUntil with the entry
// target depth of zero.
func (vm *VM) loop() (value.Value, error) {
	return vm.runUntil(0)
}

// runUntil drives the fetch-decode-dispatch core until the frame stack
// shrinks back to targetDepth, an uncaught error propagates past it, or a
// Yield/Await suspends execution. targetDepth is 0 for a top-level Run/
// Continue; CallSync passes the depth it was invoked at, so a host callback
// re-entering the interpreter (§4.7: "host dispatchers must be reentrant")
// returns to its Go caller as soon as its own frame is done, instead of
// running until every frame beneath it -- including the one that triggered
// the host call in the first place -- has also returned.
func (vm *VM) runUntil(targetDepth int) (value.Value, error) {
	for len(vm.frames) > targetDepth {
		if vm.collector.ShouldCollect() {
			vm.collectGarbage()
		}

		frame := vm.currentFrame()
		code := frame.Closure.Fn.Chunk.Code()
		if frame.IP >= len(code) {
			return value.NullValue, verr.New(verr.InternalError, "ip ran off the end of chunk")
		}
		op := bytecode.OpCode(code[frame.IP])
		if vm.onInstruction != nil && vm.onInstruction(frame, op) {
			return value.NullValue, ErrPaused
		}
		frame.IP++

		result, finished, err := vm.dispatch(frame, op)
		if err == errYielded {
			return value.NullValue, err
		}
		if err != nil {
			if vm.unwind(err) {
				continue
			}
			return nil, err
		}
		if finished {
			return result, nil
		}
	}
	if targetDepth == 0 {
		return value.NullValue, nil
	}
	// The frame we were waiting on returned with frames still below
	// targetDepth; doReturn already pushed its value onto vm.stack for
	// whichever frame resumes next (the same place an ordinary nested call's
	// result lands), so take it back off for our direct Go caller instead of
	// leaving it for bytecode above targetDepth to find unexpectedly.
	return vm.pop(), nil
}

// CallSync invokes a callable value and runs it to completion before
// returning, for use by host dispatchers that need to call back into a user
// closure synchronously (§4.7) -- e.g. a Gui event registration invoking its
// callback. It is safe to call while already inside the interpreter loop
// (from a host dispatch triggered by OpCallHost/OpInvoke): it only drives
// frames pushed by this call, never frames belonging to its own caller.
func (vm *VM) CallSync(callee value.Value, args []value.Value) (value.Value, error) {
	depth := len(vm.frames)
	if err := vm.invoke(callee, args); err != nil {
		return nil, err
	}
	if len(vm.frames) == depth {
		// tryNativeCall already ran it and pushed the result directly.
		return vm.pop(), nil
	}
	return vm.runUntil(depth)
}

// unwind searches for the nearest exception handler, from the top frame
// down, per §4.2.4. It returns true if a handler was found and execution
// should resume there.
func (vm *VM) unwind(cause error) bool {
	thrown := errToValue(cause)
	for len(vm.frames) > 0 {
		frame := vm.currentFrame()
		if h, ok := frame.TopHandler(); ok {
			frame.PopHandler()
			for len(vm.stack) > frame.Base+h.StackDepth {
				vm.pop()
			}
			frame.IP = h.CatchOffset
			vm.push(thrown)
			return true
		}
		vm.frames = vm.frames[:len(vm.frames)-1]
		for len(vm.stack) > frame.Base {
			vm.pop()
		}
	}
	return false
}

func errToValue(err error) value.Value {
	if ve, ok := err.(*verr.VError); ok && ve.Payload != nil {
		if v, ok := ve.Payload.(value.Value); ok {
			return v
		}
	}
	return value.String(err.Error())
}

func (vm *VM) collectGarbage() {
	roots := heap.Roots{Stack: vm.stack, Globals: vm.globals}
	for _, uv := range vm.openUpvalues {
		roots.OpenUpvalues = append(roots.OpenUpvalues, uv.Get())
	}
	vm.collector.Collect(roots)
}
