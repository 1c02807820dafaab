// Package verr implements the VM's closed error taxonomy (spec §7).
//
// It replaces the teacher's bare *runtime.Error{Message, Line, Column} with a
// typed Kind plus the same line/column carrying, and wraps construction sites
// with github.com/pkg/errors so an Uncaught error also carries a Go-level
// stack trace alongside the VM-level frame trace the interpreter attaches.
package verr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind names one of the error concepts of spec §7. Values are concepts, not
// identifiers stable across versions.
type Kind int

const (
	TypeError Kind = iota
	ArityError
	NameError
	AttributeError
	IndexError
	KeyError
	ArithmeticError
	ConcurrentModificationError
	Cancelled
	Uncaught
	UserError
	InternalError
)

func (k Kind) String() string {
	switch k {
	case TypeError:
		return "TypeError"
	case ArityError:
		return "ArityError"
	case NameError:
		return "NameError"
	case AttributeError:
		return "AttributeError"
	case IndexError:
		return "IndexError"
	case KeyError:
		return "KeyError"
	case ArithmeticError:
		return "ArithmeticError"
	case ConcurrentModificationError:
		return "ConcurrentModificationError"
	case Cancelled:
		return "Cancelled"
	case Uncaught:
		return "Uncaught"
	case UserError:
		return "UserError"
	case InternalError:
		return "InternalError"
	default:
		return "UnknownError"
	}
}

// Value is the minimal surface of value.Value that verr depends on, broken
// out to avoid an import cycle between internal/verr and internal/value.
type Value interface {
	String() string
}

// VError is the VM's runtime error value. A *VError is itself usable as a
// thrown Value by the interpreter's exception machinery (§4.2.4): Throw pops
// a Value, and an uncaught *VError reaching the top level is the boundary
// error returned from Run (§6.3).
type VError struct {
	Kind    Kind
	Message string
	Line    int
	Column  int
	// Payload is the thrown Value for Uncaught(value); nil for engine-raised
	// errors that never went through a user `throw`.
	Payload Value
	// stack is attached by pkg/errors at construction time.
	stack error
}

func (e *VError) Error() string {
	if e == nil {
		return "runtime error: unknown"
	}
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("%s at %d:%d: %s", e.Kind, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the pkg/errors-attached stack so callers can
// errors.Is/errors.As through it.
func (e *VError) Unwrap() error { return e.stack }

// New constructs a VError of the given kind at an unknown source location.
func New(kind Kind, message string) *VError {
	return &VError{Kind: kind, Message: message, stack: errors.New(message)}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(kind Kind, format string, args ...interface{}) *VError {
	msg := fmt.Sprintf(format, args...)
	return &VError{Kind: kind, Message: msg, stack: errors.New(msg)}
}

// At attaches a source location to a VError, as the compiler's line table
// would resolve for the instruction that raised it.
func At(kind Kind, line, column int, message string) *VError {
	e := New(kind, message)
	e.Line, e.Column = line, column
	return e
}

// UncaughtValue wraps a user `throw`'d Value that reached the top level
// without a matching handler (§4.2.4).
func UncaughtValue(v Value) *VError {
	return &VError{
		Kind:    Uncaught,
		Message: v.String(),
		Payload: v,
		stack:   errors.New("uncaught thrown value"),
	}
}

// Wrap annotates a host-bridge error as a VM UserError (§4.7: host
// dispatchers propagate failures this way), preserving the original error's
// stack via pkg/errors.Wrap.
func Wrap(err error, message string) *VError {
	if err == nil {
		return nil
	}
	wrapped := errors.Wrap(err, message)
	return &VError{Kind: UserError, Message: wrapped.Error(), stack: wrapped}
}
