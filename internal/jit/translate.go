package jit

import (
	"fmt"

	"stratum/internal/bytecode"
	"stratum/internal/object"
)

// unsupportedOpError reports the specific instruction that took a function
// out of the translatable subset (§4.6: "any unsupported instruction aborts
// translation of that function and the interpreter continues to own it").
type unsupportedOpError struct{ op bytecode.OpCode }

func (e *unsupportedOpError) Error() string {
	return fmt.Sprintf("jit: opcode %s is outside the translatable subset", e.op)
}

// isSupported reports whether op is in §4.6's minimum translatable subset:
// constants of primitive type, Pop/Dup/Swap/PopBelow, LoadLocal/StoreLocal,
// int/float arithmetic and negation, comparison and equality, logical not,
// the jump family (including JumpIfNull/JumpIfNotNull), Loop, and Return.
// The teacher-derived Inc/DecLocal fast paths (§9: interpreter accelerants)
// translate too, since they desugar to exactly the arithmetic+store this
// subset already covers.
func isSupported(op bytecode.OpCode) bool {
	switch op {
	case bytecode.OpConst, bytecode.OpPop, bytecode.OpDup, bytecode.OpSwap, bytecode.OpPopBelow,
		bytecode.OpNull, bytecode.OpTrue, bytecode.OpFalse,
		bytecode.OpLoadLocal, bytecode.OpStoreLocal,
		bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod, bytecode.OpPow, bytecode.OpNeg,
		bytecode.OpEq, bytecode.OpNe, bytecode.OpLt, bytecode.OpLe, bytecode.OpGt, bytecode.OpGe, bytecode.OpNot,
		bytecode.OpJump, bytecode.OpJumpIfFalse, bytecode.OpJumpIfTrue, bytecode.OpJumpIfNull, bytecode.OpJumpIfNotNull,
		bytecode.OpLoop,
		bytecode.OpReturn, bytecode.OpIncLocal, bytecode.OpDecLocal,
		bytecode.OpLoadConst0, bytecode.OpLoadConst1:
		return true
	default:
		return false
	}
}

// translate attempts to compile fn's chunk into a native CompiledFunc. It
// performs a single static pass to reject any function touching an opcode
// outside the subset (closures, containers, calls, host dispatch, handlers,
// iteration -- all of §4.1's richer instruction families stay interpreter-
// only) before ever building the closure, so a rejected function costs one
// Walk and nothing else.
func translate(fn *object.Function) (CompiledFunc, error) {
	chunk := fn.Chunk
	code := chunk.Code()
	consts := chunk.Consts()

	maxSlot := fn.Arity - 1
	var badOp *bytecode.OpCode
	chunk.Walk(func(instr bytecode.Instruction) {
		if badOp != nil {
			return
		}
		if !isSupported(instr.Op) {
			op := instr.Op
			badOp = &op
			return
		}
		switch instr.Op {
		case bytecode.OpLoadLocal, bytecode.OpStoreLocal, bytecode.OpIncLocal, bytecode.OpDecLocal:
			slot := int(bytecode.ReadU16(code, instr.Offset+1))
			if slot > maxSlot {
				maxSlot = slot
			}
		}
	})
	if badOp != nil {
		return nil, &unsupportedOpError{op: *badOp}
	}

	numLocals := maxSlot + 1
	arity := fn.Arity

	wordConsts := make([]Word, len(consts))
	for i, c := range consts {
		w, ok := wordFromValue(c)
		if !ok {
			// A non-primitive constant (e.g. a nested Function) reached a
			// chunk that otherwise only used supported opcodes; translation
			// still can't proceed since OpConst would have no Word to push.
			return nil, &unsupportedOpError{op: bytecode.OpConst}
		}
		wordConsts[i] = w
	}

	compiled := func(args []Word) (result Word) {
		defer func() {
			if recover() != nil {
				result = abortWord()
			}
		}()

		locals := make([]Word, numLocals)
		for i := 0; i < arity && i < len(args); i++ {
			locals[i] = args[i]
		}
		stack := make([]Word, 0, 8)
		push := func(w Word) { stack = append(stack, w) }
		pop := func() Word {
			n := len(stack) - 1
			w := stack[n]
			stack = stack[:n]
			return w
		}

		ip := 0
		for ip < len(code) {
			op := bytecode.OpCode(code[ip])
			switch op {
			case bytecode.OpConst:
				push(wordConsts[bytecode.ReadU16(code, ip+1)])
				ip += 3
			case bytecode.OpNull:
				push(Word{Tag: wordTagNull})
				ip++
			case bytecode.OpTrue:
				push(boolWord(true))
				ip++
			case bytecode.OpFalse:
				push(boolWord(false))
				ip++
			case bytecode.OpLoadConst0:
				push(Word{Tag: wordTagInt, I: 0})
				ip++
			case bytecode.OpLoadConst1:
				push(Word{Tag: wordTagInt, I: 1})
				ip++
			case bytecode.OpPop:
				pop()
				ip++
			case bytecode.OpDup:
				push(stack[len(stack)-1])
				ip++
			case bytecode.OpSwap:
				n := len(stack)
				stack[n-1], stack[n-2] = stack[n-2], stack[n-1]
				ip++
			case bytecode.OpPopBelow:
				n := int(bytecode.ReadU8(code, ip+1))
				top := pop()
				stack = stack[:len(stack)-n]
				push(top)
				ip += 2
			case bytecode.OpLoadLocal:
				push(locals[bytecode.ReadU16(code, ip+1)])
				ip += 3
			case bytecode.OpStoreLocal:
				locals[bytecode.ReadU16(code, ip+1)] = stack[len(stack)-1]
				ip += 3
			case bytecode.OpIncLocal:
				slot := bytecode.ReadU16(code, ip+1)
				locals[slot] = incDec(locals[slot], 1)
				ip += 3
			case bytecode.OpDecLocal:
				slot := bytecode.ReadU16(code, ip+1)
				locals[slot] = incDec(locals[slot], -1)
				ip += 3
			case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod, bytecode.OpPow:
				b, a := pop(), pop()
				w, ok := wordArith(op, a, b)
				if !ok {
					return abortWord()
				}
				push(w)
				ip++
			case bytecode.OpNeg:
				w, ok := wordNeg(pop())
				if !ok {
					return abortWord()
				}
				push(w)
				ip++
			case bytecode.OpNot:
				push(boolWord(!pop().truthy()))
				ip++
			case bytecode.OpEq, bytecode.OpNe:
				b, a := pop(), pop()
				eq := wordEqual(a, b)
				if op == bytecode.OpNe {
					eq = !eq
				}
				push(boolWord(eq))
				ip++
			case bytecode.OpLt, bytecode.OpLe, bytecode.OpGt, bytecode.OpGe:
				b, a := pop(), pop()
				cmp, ok := wordCompare(op, a, b)
				if !ok {
					return abortWord()
				}
				push(boolWord(cmp))
				ip++
			case bytecode.OpJump, bytecode.OpLoop:
				disp := bytecode.ReadI16(code, ip+1)
				ip = ip + 3 + int(disp)
			case bytecode.OpJumpIfFalse:
				disp := bytecode.ReadI16(code, ip+1)
				cond := pop()
				if !cond.truthy() {
					ip = ip + 3 + int(disp)
				} else {
					ip += 3
				}
			case bytecode.OpJumpIfTrue:
				disp := bytecode.ReadI16(code, ip+1)
				cond := pop()
				if cond.truthy() {
					ip = ip + 3 + int(disp)
				} else {
					ip += 3
				}
			case bytecode.OpJumpIfNull:
				disp := bytecode.ReadI16(code, ip+1)
				v := stack[len(stack)-1]
				if v.Tag == wordTagNull {
					ip = ip + 3 + int(disp)
				} else {
					ip += 3
				}
			case bytecode.OpJumpIfNotNull:
				disp := bytecode.ReadI16(code, ip+1)
				v := stack[len(stack)-1]
				if v.Tag != wordTagNull {
					ip = ip + 3 + int(disp)
				} else {
					ip += 3
				}
			case bytecode.OpReturn:
				return pop()
			default:
				return abortWord()
			}
		}
		return Word{Tag: wordTagNull}
	}

	return compiled, nil
}
