package vm

import (
	"stratum/internal/bytecode"
	"stratum/internal/object"
	"stratum/internal/value"
	"stratum/internal/verr"
)

// dispatch executes one already-fetched opcode against frame. It returns
// (result, finished, err): finished is true only when the entry frame
// itself returned (OpReturn with no caller frame left), in which case
// result is the overall value Run should hand back.
func (vm *VM) dispatch(frame *object.Frame, op bytecode.OpCode) (value.Value, bool, error) {
	chunk := frame.Closure.Fn.Chunk
	code := chunk.Code()

	readU8 := func() uint8 {
		v := bytecode.ReadU8(code, frame.IP)
		frame.IP++
		return v
	}
	readU16 := func() uint16 {
		v := bytecode.ReadU16(code, frame.IP)
		frame.IP += 2
		return v
	}
	readI16 := func() int16 {
		v := bytecode.ReadI16(code, frame.IP)
		frame.IP += 2
		return v
	}

	switch op {
	case bytecode.OpConst:
		vm.push(chunk.Const(readU16()))
	case bytecode.OpPop:
		vm.pop()
	case bytecode.OpDup:
		vm.push(vm.peek(0))
	case bytecode.OpSwap:
		a, b := vm.pop(), vm.pop()
		vm.push(a)
		vm.push(b)
	case bytecode.OpNull:
		vm.push(value.NullValue)
	case bytecode.OpTrue:
		vm.push(value.Bool(true))
	case bytecode.OpFalse:
		vm.push(value.Bool(false))

	case bytecode.OpLoadLocal:
		slot := int(readU16())
		vm.push(vm.stack[frame.Base+slot])
	case bytecode.OpStoreLocal:
		slot := int(readU16())
		v := vm.peek(0)
		value.Retain(v)
		value.Release(vm.stack[frame.Base+slot])
		vm.stack[frame.Base+slot] = v
	case bytecode.OpLoadGlobal:
		name := string(chunk.Const(readU16()).(value.String))
		v, ok := vm.globals[name]
		if !ok {
			return nil, false, verr.Newf(verr.NameError, "undefined global %q", name)
		}
		vm.push(v)
	case bytecode.OpStoreGlobal:
		name := string(chunk.Const(readU16()).(value.String))
		vm.SetGlobal(name, vm.peek(0))
	case bytecode.OpLoadUpvalue:
		idx := int(readU16())
		vm.push(frame.Closure.Upvalues[idx].Get())
	case bytecode.OpStoreUpvalue:
		idx := int(readU16())
		frame.Closure.Upvalues[idx].Set(vm.peek(0))

	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod, bytecode.OpPow:
		b, a := vm.pop(), vm.pop()
		r, err := binaryArith(op, a, b)
		if err != nil {
			return nil, false, err
		}
		vm.push(r)
	case bytecode.OpNeg:
		a := vm.pop()
		r, err := negate(a)
		if err != nil {
			return nil, false, err
		}
		vm.push(r)
	case bytecode.OpNot:
		a := vm.pop()
		vm.push(value.Bool(!value.Truthy(a)))
	case bytecode.OpEq:
		b, a := vm.pop(), vm.pop()
		vm.push(value.Bool(value.StructurallyEqual(a, b)))
	case bytecode.OpNe:
		b, a := vm.pop(), vm.pop()
		vm.push(value.Bool(!value.StructurallyEqual(a, b)))
	case bytecode.OpLt, bytecode.OpLe, bytecode.OpGt, bytecode.OpGe:
		b, a := vm.pop(), vm.pop()
		r, err := compare(op, a, b)
		if err != nil {
			return nil, false, err
		}
		vm.push(value.Bool(r))
	case bytecode.OpAnd:
		b, a := vm.pop(), vm.pop()
		vm.push(value.Bool(value.Truthy(a) && value.Truthy(b)))
	case bytecode.OpOr:
		b, a := vm.pop(), vm.pop()
		vm.push(value.Bool(value.Truthy(a) || value.Truthy(b)))

	case bytecode.OpIsNull:
		_, isNull := vm.pop().(value.Null)
		vm.push(value.Bool(isNull))
	case bytecode.OpJumpIfNull:
		// Peeks rather than pops (dap.rs/jit/compiler.rs's JumpIfNull): the
		// value survives the branch either way, so `a ?? b` can compile as
		// JumpIfNotNull <skip>; Pop; <push b>; skip: without a separate
		// consuming opcode for the non-null path.
		disp := readI16()
		_, isNull := vm.peek(0).(value.Null)
		vm.reportBranch(frame.IP, isNull)
		if isNull {
			frame.IP += int(disp)
		}
	case bytecode.OpJumpIfNotNull:
		disp := readI16()
		_, isNull := vm.peek(0).(value.Null)
		taken := !isNull
		vm.reportBranch(frame.IP, taken)
		if taken {
			frame.IP += int(disp)
		}
	case bytecode.OpNullCoalesce:
		b, a := vm.pop(), vm.pop()
		if _, isNull := a.(value.Null); isNull {
			vm.push(b)
		} else {
			vm.push(a)
		}
	case bytecode.OpPopBelow:
		n := int(readU8())
		top := vm.pop()
		vm.popN(n)
		vm.push(top)

	case bytecode.OpMakeList:
		n := int(readU16())
		elems := make([]value.Value, n)
		copy(elems, vm.stack[len(vm.stack)-n:])
		vm.popN(n)
		vm.pushTracked(value.NewList(elems))
	case bytecode.OpMakeMap:
		n := int(readU16())
		entries := map[value.HashKey]value.Value{}
		base := len(vm.stack) - n*2
		for i := 0; i < n; i++ {
			k := vm.stack[base+i*2]
			v := vm.stack[base+i*2+1]
			hk, ok := value.ToHashKey(k)
			if !ok {
				return nil, false, verr.Newf(verr.TypeError, "%s is not hashable", k.Type())
			}
			entries[hk] = v
		}
		vm.popN(n * 2)
		vm.pushTracked(value.NewMap(entries))
	case bytecode.OpMakeSet:
		n := int(readU16())
		keys := make([]value.HashKey, 0, n)
		for _, v := range vm.stack[len(vm.stack)-n:] {
			hk, ok := value.ToHashKey(v)
			if !ok {
				return nil, false, verr.Newf(verr.TypeError, "%s is not hashable", v.Type())
			}
			keys = append(keys, hk)
		}
		vm.popN(n)
		vm.pushTracked(value.NewSet(keys))
	case bytecode.OpGetIndex:
		idx, recv := vm.pop(), vm.pop()
		r, err := getIndex(recv, idx)
		if err != nil {
			return nil, false, err
		}
		vm.push(r)
	case bytecode.OpSetIndex:
		v, idx, recv := vm.pop(), vm.pop(), vm.pop()
		if err := setIndex(recv, idx, v); err != nil {
			return nil, false, err
		}
		vm.push(v)
	case bytecode.OpGetProp:
		name := string(chunk.Const(readU16()).(value.String))
		recv := vm.pop()
		r, err := vm.getProp(recv, name)
		if err != nil {
			return nil, false, err
		}
		vm.push(r)
	case bytecode.OpSetProp:
		name := string(chunk.Const(readU16()).(value.String))
		v, recv := vm.pop(), vm.pop()
		if err := setProp(recv, name, v); err != nil {
			return nil, false, err
		}
		vm.push(v)
	case bytecode.OpMakeRange:
		flags := readU8()
		end, start := vm.pop(), vm.pop()
		si, sok := start.(value.Int)
		ei, eok := end.(value.Int)
		if !sok || !eok {
			return nil, false, verr.New(verr.TypeError, "range bounds must be Int")
		}
		vm.push(value.Range{Start: int64(si), End: int64(ei), Inclusive: flags&1 != 0})

	case bytecode.OpMakeStruct:
		typeIdx := readU16()
		fieldCount := int(readU8())
		fields := map[string]value.Value{}
		base := len(vm.stack) - fieldCount*2
		for i := 0; i < fieldCount; i++ {
			fname := string(vm.stack[base+i*2].(value.String))
			fval := vm.stack[base+i*2+1]
			fields[fname] = fval
		}
		vm.popN(fieldCount * 2)
		typeName := string(chunk.Const(typeIdx).(value.String))
		vm.pushTracked(value.NewStruct(typeName, fields))
	case bytecode.OpMakeEnumVariant:
		typeIdx := readU16()
		variantIdx := readU16()
		hasPayload := readU8()
		var payload value.Value
		if hasPayload != 0 {
			payload = vm.pop()
		}
		typeName := string(chunk.Const(typeIdx).(value.String))
		variantName := string(chunk.Const(variantIdx).(value.String))
		vm.push(value.NewEnumVariant(typeName, variantName, payload))

	case bytecode.OpJump:
		disp := readI16()
		frame.IP += int(disp)
	case bytecode.OpJumpIfFalse:
		disp := readI16()
		taken := !value.Truthy(vm.pop())
		vm.reportBranch(frame.IP, taken)
		if taken {
			frame.IP += int(disp)
		}
	case bytecode.OpJumpIfTrue:
		disp := readI16()
		taken := value.Truthy(vm.pop())
		vm.reportBranch(frame.IP, taken)
		if taken {
			frame.IP += int(disp)
		}
	case bytecode.OpLoop:
		disp := readI16()
		frame.IP += int(disp)

	case bytecode.OpCall:
		argc := int(readU8())
		args := make([]value.Value, argc)
		copy(args, vm.stack[len(vm.stack)-argc:])
		callee := vm.stack[len(vm.stack)-argc-1]
		vm.popN(argc + 1)
		if err := vm.invoke(callee, args); err != nil {
			return nil, false, err
		}
	case bytecode.OpInvoke:
		nameIdx := readU16()
		argc := int(readU8())
		name := string(chunk.Const(nameIdx).(value.String))
		args := make([]value.Value, argc)
		copy(args, vm.stack[len(vm.stack)-argc:])
		recv := vm.stack[len(vm.stack)-argc-1]
		vm.popN(argc + 1)
		if callee, ok := lookupUserMethod(recv, name); ok {
			// A user-defined method resolves to ordinary Stratum bytecode:
			// push its frame and let the running loop pick it up next
			// iteration. Its return value reaches our stack via doReturn,
			// not here.
			if err := vm.invoke(callee, append([]value.Value{recv}, args...)); err != nil {
				return nil, false, err
			}
			break
		}
		if vm.host == nil {
			return nil, false, verr.Newf(verr.AttributeError, "no method %q on %s", name, recv.Type())
		}
		r, err := vm.host.Dispatch(recv, name, args)
		if err != nil {
			return nil, false, err
		}
		vm.push(r)
	case bytecode.OpReturn:
		retVal := vm.pop()
		finished, result, err := vm.doReturn(frame, retVal)
		if err != nil {
			return nil, false, err
		}
		if finished {
			return result, true, nil
		}
	case bytecode.OpClosure:
		fnIdx := readU16()
		upvalCount := int(readU8())
		fn := chunk.Const(fnIdx).(*object.Function)
		upvalues := make([]*object.Upvalue, upvalCount)
		for i := 0; i < upvalCount; i++ {
			isLocal := readU8()
			idx := int(readU16())
			if isLocal != 0 {
				upvalues[i] = vm.captureUpvalue(frame.Base + idx)
			} else {
				upvalues[i] = frame.Closure.Upvalues[idx]
			}
		}
		closure := object.NewClosure(fn, upvalues)
		vm.collector.Track(closure)
		vm.push(closure)
	case bytecode.OpCloseUpvalue:
		vm.closeUpvalues(len(vm.stack) - 1)
		vm.pop()

	case bytecode.OpIterInit:
		src := vm.pop()
		it, err := vm.makeIterator(src)
		if err != nil {
			return nil, false, err
		}
		vm.push(it)
	case bytecode.OpIterNext:
		disp := readI16()
		it, ok := vm.peek(0).(*value.Iterator)
		if !ok {
			return nil, false, verr.New(verr.TypeError, "ITER_NEXT on a non-iterator")
		}
		v, more := it.Next()
		vm.reportBranch(frame.IP, !more)
		if !more {
			vm.pop()
			frame.IP += int(disp)
		} else {
			vm.push(v)
		}

	case bytecode.OpPushHandler:
		disp := readI16()
		frame.PushHandler(frame.IP+int(disp), len(vm.stack)-frame.Base)
	case bytecode.OpPopHandler:
		frame.PopHandler()
	case bytecode.OpThrow:
		thrown := vm.pop()
		return nil, false, verr.UncaughtValue(thrown)

	case bytecode.OpAwait:
		fut, ok := vm.pop().(*object.Future)
		if !ok {
			return nil, false, verr.New(verr.TypeError, "AWAIT on a non-future")
		}
		for fut.State == object.FuturePending {
			// cooperative: a real scheduler resumes other coroutines here;
			// the reference interpreter has none registered, so a pending
			// await on an unresolved future is a deadlock reported as such.
			return nil, false, verr.New(verr.Cancelled, "await on a future with no pending resumer")
		}
		if fut.State == object.FutureRejected {
			return nil, false, verr.UncaughtValue(fut.Result)
		}
		vm.push(fut.Result)
	case bytecode.OpYield:
		v := vm.pop()
		if vm.current == nil {
			return nil, false, verr.New(verr.InternalError, "YIELD outside a coroutine")
		}
		vm.current.ResumeValue = v
		vm.current.State = object.CoroutineSuspended
		return nil, false, errYielded

	case bytecode.OpCallHost:
		nameIdx := readU16()
		argc := int(readU8())
		name := string(chunk.Const(nameIdx).(value.String))
		args := make([]value.Value, argc)
		copy(args, vm.stack[len(vm.stack)-argc:])
		vm.popN(argc)
		if vm.host == nil {
			return nil, false, verr.Newf(verr.NameError, "no host bridge registered for %q", name)
		}
		r, err := vm.host.CallNamespace(name, args)
		if err != nil {
			return nil, false, err
		}
		vm.push(r)
	case bytecode.OpGetModule:
		nameIdx := readU16()
		name := string(chunk.Const(nameIdx).(value.String))
		if vm.host == nil {
			return nil, false, verr.Newf(verr.NameError, "no host bridge registered for module %q", name)
		}
		r, err := vm.host.Module(name)
		if err != nil {
			return nil, false, err
		}
		vm.push(r)

	case bytecode.OpIncLocal:
		slot := int(readU16())
		i := vm.stack[frame.Base+slot].(value.Int)
		vm.stack[frame.Base+slot] = i + 1
	case bytecode.OpDecLocal:
		slot := int(readU16())
		i := vm.stack[frame.Base+slot].(value.Int)
		vm.stack[frame.Base+slot] = i - 1
	case bytecode.OpLoadConst0:
		vm.push(value.Int(0))
	case bytecode.OpLoadConst1:
		vm.push(value.Int(1))

	default:
		return nil, false, verr.Newf(verr.InternalError, "unimplemented opcode %s", op)
	}
	return nil, false, nil
}

func (vm *VM) popN(n int) {
	for i := 0; i < n; i++ {
		vm.pop()
	}
}

// pushTracked pushes a freshly constructed container and registers it with
// the cycle collector in one step (§4.3: "each container-producing opcode
// registers the new container with the collector").
func (vm *VM) pushTracked(c value.Container) {
	vm.collector.Track(c)
	vm.push(c)
}

// reportBranch notifies the coverage hook of a branch outcome. instrIP is
// the frame.IP value captured right after the opcode byte and its two-byte
// displacement were consumed (so instrIP-3 is the instruction's own offset,
// matching AnalyzeChunk's keys).
func (vm *VM) reportBranch(instrIP int, taken bool) {
	if vm.onBranch != nil {
		at := instrIP - 3
		vm.onBranch(at, vm.currentFrame().Closure.Fn.Chunk.GetLine(at), taken)
	}
}

// errYielded is a sentinel unwind cause internal to coroutine stepping
// (internal/vm's Resume/Step), never surfaced as a VM-level error: a Yield
// suspends the coroutine's own loop invocation rather than unwinding past a
// handler.
var errYielded = verr.New(verr.InternalError, "coroutine yielded")

// doReturn implements OpReturn: it pops the current frame, closes any open
// upvalues pointing into it, and either hands the value back as the overall
// result (no caller frame remains) or pushes it onto the caller's stack.
func (vm *VM) doReturn(frame *object.Frame, retVal value.Value) (finished bool, result value.Value, err error) {
	vm.closeUpvalues(frame.Base)
	for len(vm.stack) > frame.Base {
		vm.pop()
	}
	vm.frames = vm.frames[:len(vm.frames)-1]
	if len(vm.frames) == 0 {
		return true, retVal, nil
	}
	vm.push(retVal)
	return false, nil, nil
}

// captureUpvalue returns the open Upvalue for absolute stack index idx,
// creating and registering it if this is the first closure to capture that
// slot (§3.4: "two closures capturing the same local share one cell").
func (vm *VM) captureUpvalue(idx int) *object.Upvalue {
	if uv, ok := vm.openUpvalues[idx]; ok {
		return uv
	}
	uv := object.NewOpenUpvalue(&vm.stack[idx])
	vm.openUpvalues[idx] = uv
	return uv
}

// closeUpvalues closes every open upvalue at or above absolute stack index
// from, called when the frame owning those slots is about to return or when
// a block-scoped local goes out of scope (§3.4).
func (vm *VM) closeUpvalues(from int) {
	for idx, uv := range vm.openUpvalues {
		if idx >= from {
			uv.Close()
			delete(vm.openUpvalues, idx)
		}
	}
}

// lookupUserMethod implements the first step of §4.7's dispatch order: a
// function or closure stored as a struct field named `name`, treated as a
// self-receiving method (the caller prepends recv to args).
func lookupUserMethod(recv value.Value, name string) (value.Value, bool) {
	s, ok := recv.(*value.Struct)
	if !ok {
		return nil, false
	}
	v, ok := s.Get(name)
	if !ok {
		return nil, false
	}
	switch v.(type) {
	case *object.Closure, *object.Function:
		return v, true
	default:
		return nil, false
	}
}

func (vm *VM) getProp(recv value.Value, name string) (value.Value, error) {
	switch r := recv.(type) {
	case *value.Struct:
		if v, ok := r.Get(name); ok {
			return v, nil
		}
	case *value.EnumVariant:
		switch name {
		case "type":
			return value.String(r.TypeName), nil
		case "variant":
			return value.String(r.VariantName), nil
		}
	}
	return nil, verr.Newf(verr.AttributeError, "%s has no attribute %q", recv.Type(), name)
}

func setProp(recv value.Value, name string, v value.Value) error {
	s, ok := recv.(*value.Struct)
	if !ok {
		return verr.Newf(verr.AttributeError, "%s has no settable attribute %q", recv.Type(), name)
	}
	if err := s.Set(name, v); err != nil {
		return verr.Wrap(err, "set "+name)
	}
	return nil
}
