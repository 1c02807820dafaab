package jit

import (
	"math"

	"stratum/internal/bytecode"
)

// wordArith implements the int/float arithmetic tower of §4.2.5, restricted
// to the Word pair representation and to the translatable subset's Int/Float
// operands (§4.6: "integer and float arithmetic and negation" -- String
// concatenation and List.Concat never translate, so a string/list Add simply
// reports !ok and the caller aborts the native call, falling back to the
// interpreter for that invocation).
func wordArith(op bytecode.OpCode, a, b Word) (Word, bool) {
	if !a.isNumeric() || !b.isNumeric() {
		return Word{}, false
	}
	if a.Tag == wordTagInt && b.Tag == wordTagInt && op != bytecode.OpDiv {
		switch op {
		case bytecode.OpAdd:
			return Word{Tag: wordTagInt, I: a.I + b.I}, true
		case bytecode.OpSub:
			return Word{Tag: wordTagInt, I: a.I - b.I}, true
		case bytecode.OpMul:
			return Word{Tag: wordTagInt, I: a.I * b.I}, true
		case bytecode.OpMod:
			if b.I == 0 {
				return Word{}, false
			}
			return Word{Tag: wordTagInt, I: a.I % b.I}, true
		case bytecode.OpPow:
			return Word{Tag: wordTagInt, I: intPow(a.I, b.I)}, true
		}
	}
	af, bf := a.asFloat(), b.asFloat()
	switch op {
	case bytecode.OpAdd:
		return Word{Tag: wordTagFloat, F: af + bf}, true
	case bytecode.OpSub:
		return Word{Tag: wordTagFloat, F: af - bf}, true
	case bytecode.OpMul:
		return Word{Tag: wordTagFloat, F: af * bf}, true
	case bytecode.OpDiv:
		if bf == 0 {
			return Word{}, false
		}
		return Word{Tag: wordTagFloat, F: af / bf}, true
	case bytecode.OpMod:
		return Word{Tag: wordTagFloat, F: math.Mod(af, bf)}, true
	case bytecode.OpPow:
		return Word{Tag: wordTagFloat, F: math.Pow(af, bf)}, true
	}
	return Word{}, false
}

func intPow(base, exp int64) int64 {
	if exp < 0 {
		return 0
	}
	result := int64(1)
	for i := int64(0); i < exp; i++ {
		result *= base
	}
	return result
}

func wordNeg(a Word) (Word, bool) {
	switch a.Tag {
	case wordTagInt:
		return Word{Tag: wordTagInt, I: -a.I}, true
	case wordTagFloat:
		return Word{Tag: wordTagFloat, F: -a.F}, true
	default:
		return Word{}, false
	}
}

func wordCompare(op bytecode.OpCode, a, b Word) (bool, bool) {
	if !a.isNumeric() || !b.isNumeric() {
		return false, false
	}
	af, bf := a.asFloat(), b.asFloat()
	switch op {
	case bytecode.OpLt:
		return af < bf, true
	case bytecode.OpLe:
		return af <= bf, true
	case bytecode.OpGt:
		return af > bf, true
	case bytecode.OpGe:
		return af >= bf, true
	}
	return false, false
}

// wordEqual implements structural equality for the primitive tags the
// translatable subset carries, mirroring value.StructurallyEqual's numeric
// cross-tag rule (an Int and a Float holding the same magnitude compare
// equal).
func wordEqual(a, b Word) bool {
	if a.isNumeric() && b.isNumeric() {
		return a.asFloat() == b.asFloat()
	}
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case wordTagNull:
		return true
	case wordTagBool:
		return a.I == b.I
	case wordTagString:
		return a.S == b.S
	default:
		return false
	}
}

func incDec(w Word, delta int64) Word {
	switch w.Tag {
	case wordTagInt:
		return Word{Tag: wordTagInt, I: w.I + delta}
	case wordTagFloat:
		return Word{Tag: wordTagFloat, F: w.F + float64(delta)}
	default:
		return w
	}
}
