package vm

import (
	"math"

	"stratum/internal/bytecode"
	"stratum/internal/value"
	"stratum/internal/verr"
)

// binaryArith implements §4.2.5's numeric-tower rules: Int op Int stays
// Int except Div (always Float, per §9's explicit redesign away from the
// host language's integer-division-by-default surprise), and any Float
// operand promotes the whole expression to Float. Add also covers List
// concatenation and String concatenation.
func binaryArith(op bytecode.OpCode, a, b value.Value) (value.Value, error) {
	if op == bytecode.OpAdd {
		if al, ok := a.(*value.List); ok {
			if bl, ok := b.(*value.List); ok {
				return al.Concat(bl), nil
			}
		}
		if as, ok := a.(value.String); ok {
			if bs, ok := b.(value.String); ok {
				return as + bs, nil
			}
		}
	}

	ai, aIsInt := a.(value.Int)
	bi, bIsInt := b.(value.Int)
	if aIsInt && bIsInt && op != bytecode.OpDiv {
		switch op {
		case bytecode.OpAdd:
			return ai + bi, nil
		case bytecode.OpSub:
			return ai - bi, nil
		case bytecode.OpMul:
			return ai * bi, nil
		case bytecode.OpMod:
			if bi == 0 {
				return nil, verr.New(verr.ArithmeticError, "modulo by zero")
			}
			return ai % bi, nil
		case bytecode.OpPow:
			return value.Int(intPow(int64(ai), int64(bi))), nil
		}
	}

	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return nil, verr.Newf(verr.TypeError, "unsupported operand types for %s: %s, %s", op, a.Type(), b.Type())
	}
	switch op {
	case bytecode.OpAdd:
		return af + bf, nil
	case bytecode.OpSub:
		return af - bf, nil
	case bytecode.OpMul:
		return af * bf, nil
	case bytecode.OpDiv:
		if bf == 0 {
			return nil, verr.New(verr.ArithmeticError, "division by zero")
		}
		return af / bf, nil
	case bytecode.OpMod:
		return value.Float(math.Mod(float64(af), float64(bf))), nil
	case bytecode.OpPow:
		return value.Float(math.Pow(float64(af), float64(bf))), nil
	}
	return nil, verr.Newf(verr.InternalError, "unreachable arithmetic opcode %s", op)
}

func negate(a value.Value) (value.Value, error) {
	switch v := a.(type) {
	case value.Int:
		return -v, nil
	case value.Float:
		return -v, nil
	default:
		return nil, verr.Newf(verr.TypeError, "cannot negate %s", a.Type())
	}
}

func compare(op bytecode.OpCode, a, b value.Value) (bool, error) {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch op {
		case bytecode.OpLt:
			return af < bf, nil
		case bytecode.OpLe:
			return af <= bf, nil
		case bytecode.OpGt:
			return af > bf, nil
		case bytecode.OpGe:
			return af >= bf, nil
		}
	}
	if as, ok := a.(value.String); ok {
		if bs, ok := b.(value.String); ok {
			switch op {
			case bytecode.OpLt:
				return as < bs, nil
			case bytecode.OpLe:
				return as <= bs, nil
			case bytecode.OpGt:
				return as > bs, nil
			case bytecode.OpGe:
				return as >= bs, nil
			}
		}
	}
	return false, verr.Newf(verr.TypeError, "unsupported comparison between %s and %s", a.Type(), b.Type())
}

func toFloat(v value.Value) (value.Float, bool) {
	switch t := v.(type) {
	case value.Int:
		return value.Float(t), true
	case value.Float:
		return t, true
	default:
		return 0, false
	}
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

