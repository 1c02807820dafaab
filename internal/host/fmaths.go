package host

import (
	"math"

	"stratum/internal/value"
	"stratum/internal/verr"
)

// RegisterFmaths wires the `fmaths` namespace (§4.7, SPEC_FULL §4.7 domain
// stack: "extended math beyond the arithmetic operators"). Its function list
// is ported from the teacher's libraries/fmaths.go -- the richer, clearly-
// intended-complete set of names -- but its plumbing is grounded on
// runtime/interpreter.go's builtinModules(), the one copy of a math module
// that is actually wired into the teacher's execution path: libraries/
// fmaths.go itself calls runtime.Function/runtime.RuntimeVal/runtime.NumberVal
// while also declaring its own incompatible local types of the same names,
// and is never imported by main.go or runtime/interpreter.go. Constants
// (pi, e, ...) are exposed as zero-argument methods rather than properties,
// since host values only ever reach Stratum source through import + method
// call (getProp has no case for an Opaque receiver).
func RegisterFmaths(b *Bridge) {
	b.RegisterNamespace("fmaths", fmathsDispatch)
}

func fmathsDispatch(method string, args []value.Value) (value.Value, error) {
	switch method {
	case "pi":
		return value.Float(math.Pi), nil
	case "e":
		return value.Float(math.E), nil
	case "phi":
		return value.Float(math.Phi), nil
	case "sqrt2":
		return value.Float(math.Sqrt2), nil
	case "ln2":
		return value.Float(math.Ln2), nil
	case "ln10":
		return value.Float(math.Log(10)), nil
	}

	if fn, ok := unaryMathFuncs[method]; ok {
		x, err := arg1(method, args)
		if err != nil {
			return nil, err
		}
		return value.Float(fn(x)), nil
	}

	switch method {
	case "pow":
		x, y, err := arg2(method, args)
		if err != nil {
			return nil, err
		}
		return value.Float(math.Pow(x, y)), nil
	case "atan2":
		x, y, err := arg2(method, args)
		if err != nil {
			return nil, err
		}
		return value.Float(math.Atan2(x, y)), nil
	case "min":
		x, y, err := arg2(method, args)
		if err != nil {
			return nil, err
		}
		return value.Float(math.Min(x, y)), nil
	case "max":
		x, y, err := arg2(method, args)
		if err != nil {
			return nil, err
		}
		return value.Float(math.Max(x, y)), nil
	case "factorial":
		n, err := arg1Int(method, args)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, verr.New(verr.ArithmeticError, "factorial of a negative number")
		}
		result := int64(1)
		for i := int64(2); i <= n; i++ {
			result *= i
		}
		return value.Int(result), nil
	case "gamma":
		x, err := arg1(method, args)
		if err != nil {
			return nil, err
		}
		return value.Float(math.Gamma(x)), nil
	}
	return nil, verr.Newf(verr.NameError, "fmaths has no function %q", method)
}

// unaryMathFuncs covers every single-argument entry of libraries/fmaths.go's
// mathFuncs table that math.* implements directly.
var unaryMathFuncs = map[string]func(float64) float64{
	"sqrt":  math.Sqrt,
	"cbrt":  math.Cbrt,
	"log":   math.Log,
	"log10": math.Log10,
	"log2":  math.Log2,
	"exp":   math.Exp,
	"exp2":  math.Exp2,
	"sin":   math.Sin,
	"cos":   math.Cos,
	"tan":   math.Tan,
	"asin":  math.Asin,
	"acos":  math.Acos,
	"atan":  math.Atan,
	"sinh":  math.Sinh,
	"cosh":  math.Cosh,
	"tanh":  math.Tanh,
	"abs":   math.Abs,
	"ceil":  math.Ceil,
	"floor": math.Floor,
	"round": math.Round,
}

func arg1(method string, args []value.Value) (float64, error) {
	if len(args) < 1 {
		return 0, verr.Newf(verr.ArityError, "fmaths.%s requires 1 argument", method)
	}
	x, ok := asFloat(args[0])
	if !ok {
		return 0, verr.Newf(verr.TypeError, "fmaths.%s requires a numeric argument", method)
	}
	return x, nil
}

func arg1Int(method string, args []value.Value) (int64, error) {
	if len(args) < 1 {
		return 0, verr.Newf(verr.ArityError, "fmaths.%s requires 1 argument", method)
	}
	n, ok := args[0].(value.Int)
	if !ok {
		return 0, verr.Newf(verr.TypeError, "fmaths.%s requires an integer argument", method)
	}
	return int64(n), nil
}

func arg2(method string, args []value.Value) (float64, float64, error) {
	if len(args) < 2 {
		return 0, 0, verr.Newf(verr.ArityError, "fmaths.%s requires 2 arguments", method)
	}
	x, ok1 := asFloat(args[0])
	y, ok2 := asFloat(args[1])
	if !ok1 || !ok2 {
		return 0, 0, verr.Newf(verr.TypeError, "fmaths.%s requires numeric arguments", method)
	}
	return x, y, nil
}

func asFloat(v value.Value) (float64, bool) {
	switch t := v.(type) {
	case value.Int:
		return float64(t), true
	case value.Float:
		return float64(t), true
	default:
		return 0, false
	}
}
