package host

import (
	"time"

	"stratum/internal/value"
	"stratum/internal/verr"
)

// RegisterTime wires the `time` namespace, grounded directly on
// runtime/interpreter.go's builtinModules() time module (now/millis/nanos),
// the one actually-wired reference for this namespace's behavior -- unlike
// libraries/time.go, which references runtime.Environment.Set,
// runtime.BuiltinFunction, runtime.Number, runtime.NumberValue, and
// runtime.Null, none of which the runtime package exports, and is never
// imported from main.go's execution path.
func RegisterTime(b *Bridge) {
	b.RegisterNamespace("time", timeDispatch)
}

func timeDispatch(method string, args []value.Value) (value.Value, error) {
	switch method {
	case "now":
		return value.Float(float64(time.Now().UnixNano()) / 1e9), nil
	case "millis":
		return value.Float(float64(time.Now().UnixNano()) / 1e6), nil
	case "nanos":
		return value.Float(float64(time.Now().UnixNano())), nil
	case "sleepMillis":
		if len(args) < 1 {
			return nil, verr.New(verr.ArityError, "time.sleepMillis requires 1 argument")
		}
		ms, ok := asFloat(args[0])
		if !ok {
			return nil, verr.New(verr.TypeError, "time.sleepMillis requires a numeric argument")
		}
		time.Sleep(time.Duration(ms * float64(time.Millisecond)))
		return value.NullValue, nil
	}
	return nil, verr.Newf(verr.NameError, "time has no function %q", method)
}
