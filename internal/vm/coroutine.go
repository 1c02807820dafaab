package vm

import (
	"stratum/internal/object"
	"stratum/internal/value"
	"stratum/internal/verr"
)

// Spawn creates a suspended Coroutine wrapping closure applied to args,
// without running any of its bytecode yet (§5).
func (vm *VM) Spawn(closure *object.Closure, args []value.Value) (*object.Coroutine, error) {
	if len(args) != closure.Fn.Arity {
		return nil, verr.Newf(verr.ArityError, "%s expects %d argument(s), got %d", closure.Fn.Name, closure.Fn.Arity, len(args))
	}
	co := object.NewCoroutine(closure)
	co.Stack = append(co.Stack, args...)
	for _, a := range args {
		value.Retain(a)
	}
	vm.collector.Track(co)
	return co, nil
}

// Resume implements the VM's one stepping routine for both the top-level
// program and any suspended Coroutine (§9: "coroutine stack-swap via a
// single shared stepping routine parameterized by execution state"): it
// swaps the live stack/frames out for the coroutine's saved ones, drives the
// ordinary fetch-decode-dispatch loop, then swaps back and records whatever
// state the coroutine ended up in.
func (vm *VM) Resume(co *object.Coroutine, resumeValue value.Value) (value.Value, bool, error) {
	if co.State == object.CoroutineDone {
		return value.NullValue, true, verr.New(verr.InternalError, "resume on a completed coroutine")
	}

	savedStack, savedFrames, savedCurrent := vm.stack, vm.frames, vm.current
	vm.stack, vm.frames, vm.current = co.Stack, co.Frames, co

	if co.State == object.CoroutineSuspended && len(vm.stack) > 0 {
		vm.push(resumeValue)
	}
	co.State = object.CoroutineRunning

	result, err := vm.loop()

	co.Stack, co.Frames = vm.stack, vm.frames
	vm.stack, vm.frames, vm.current = savedStack, savedFrames, savedCurrent

	if err == errYielded {
		return co.ResumeValue, false, nil
	}
	if err != nil {
		co.State = object.CoroutineDone
		return nil, true, err
	}
	co.State = object.CoroutineDone
	return result, true, nil
}
