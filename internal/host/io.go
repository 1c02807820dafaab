package host

import (
	"fmt"

	"stratum/internal/value"
	"stratum/internal/verr"
)

// RegisterIO wires the `io` namespace backing the `print`/`println` builtins
// (§8's end-to-end scenarios call both as bare identifiers, not `io.print`;
// internal/frontend/compiler special-cases those two names straight onto
// OP_CALL_HOST "io.print"/"io.println" rather than routing them through an
// ordinary global lookup). Grounded on the teacher's GlobalEnv.DeclareVar
// "println" (runtime/interpreter.go), adapted to print the bare value with no
// "[println]: " prefix -- the prefix is the teacher's own debugging habit,
// not a language-level contract, and §8's scenarios pin the exact stdout
// bytes a conforming println must produce.
func RegisterIO(b *Bridge) {
	b.RegisterNamespace("io", ioDispatch)
}

func ioDispatch(method string, args []value.Value) (value.Value, error) {
	switch method {
	case "println":
		for _, a := range args {
			fmt.Println(a.String())
		}
		if len(args) == 0 {
			fmt.Println()
		}
		return value.NullValue, nil
	case "print":
		for _, a := range args {
			fmt.Print(a.String())
		}
		return value.NullValue, nil
	case "str":
		// Backs string interpolation (§3.1): internal/frontend/compiler emits
		// this around every `{expr}` splice so OpAdd's string-concat path
		// (which requires both operands to already be Strings) always
		// receives one.
		if len(args) != 1 {
			return nil, verr.New(verr.ArityError, "io.str requires 1 argument")
		}
		return value.String(args[0].String()), nil
	}
	return nil, verr.Newf(verr.NameError, "io has no function %q", method)
}
