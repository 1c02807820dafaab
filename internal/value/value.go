// Package value implements Stratum's tagged Value representation (spec §3.1)
// and the ownership discipline containers use to cooperate with the cycle
// collector (spec §4.3).
//
// This generalizes the teacher's (runtime.RuntimeVal, *runtime.NumberVal, ...)
// interface-plus-struct family to the full variant list of spec §3.1, and
// adds the explicit Retain/Release bookkeeping the teacher never needed
// because its values were never part of a cycle collector's root set.
package value

import "fmt"

// Type tags a Value's variant, mirroring the teacher's runtime.ValueType but
// covering the full §3.1 variant list.
type Type int

const (
	TNull Type = iota
	TBool
	TInt
	TFloat
	TString
	TList
	TMap
	TSet
	TStruct
	TRange
	TIterator
	TFunction
	TClosure
	TBoundMethod
	TEnumVariant
	TFuture
	TCoroutine
	TWeakRef
	TExpectation
	TOpaque
)

func (t Type) String() string {
	names := [...]string{
		"Null", "Bool", "Int", "Float", "String", "List", "Map", "Set",
		"Struct", "Range", "Iterator", "Function", "Closure", "BoundMethod",
		"EnumVariant", "Future", "Coroutine", "WeakRef", "Expectation", "Opaque",
	}
	if int(t) < len(names) {
		return names[t]
	}
	return "Unknown"
}

// Value is the tagged sum over every Stratum runtime value (§3.1).
type Value interface {
	Type() Type
	String() string
}

// Container is implemented by every shared, interior-mutable, refcounted
// variant (List, Map, Set, Struct, Closure, Future, Coroutine). It is the set of
// values the cycle collector tracks (§3.6, §4.3).
type Container interface {
	Value
	// Retain bumps the container's strong-holder count. Called whenever a
	// new holder (a stack slot, a local, a container field, a closure
	// upvalue) starts observing the container.
	Retain()
	// Release drops the strong-holder count by one. Called whenever a
	// holder stops observing the container (a slot is overwritten, a frame
	// is torn down, a field is reassigned).
	Release()
	// RefCount reports the current strong-holder count. A WeakRef may only
	// upgrade while this is > 0 (§8 invariant 9).
	RefCount() int32
	// Children returns the Values this container directly holds (one level
	// only -- the collector performs the transitive walk). Used only by the
	// cycle collector (internal/heap); a container never reports a WeakRef
	// target here (§3.1, §4.3: WeakRef is never followed).
	Children() []Value
	// ID is the container's identity for the collector's tracked-object
	// table. Two live containers never share an ID. Exported (rather than
	// the more common Go convention of an unexported id()) so Container
	// implementations defined outside this package -- internal/object's
	// Closure, Future, and Coroutine, which must embed value.Header to gain
	// the refcount/identity machinery -- can satisfy this interface; an
	// unexported method can only be promoted from an embedded type declared
	// in this same package.
	ID() uintptr
	// Clear breaks a cycle by discarding the container's interior state
	// (§4.3: "list empties, map empties, struct fields clear, ...").
	Clear()
}

// Retain is a nil-safe helper: retaining a non-container Value is a no-op,
// since only containers participate in the refcounting discipline (§3.1).
func Retain(v Value) {
	if c, ok := v.(Container); ok && c != nil {
		c.Retain()
	}
}

// Release mirrors Retain.
func Release(v Value) {
	if c, ok := v.(Container); ok && c != nil {
		c.Release()
	}
}

// --- by-value primitives -------------------------------------------------

type Null struct{}

func (Null) Type() Type      { return TNull }
func (Null) String() string  { return "null" }

// NullValue is the single shared Null instance; Null carries no state so
// every occurrence can share it.
var NullValue = Null{}

type Bool bool

func (b Bool) Type() Type     { return TBool }
func (b Bool) String() string { return fmt.Sprintf("%v", bool(b)) }

type Int int64

func (i Int) Type() Type     { return TInt }
func (i Int) String() string { return fmt.Sprintf("%d", int64(i)) }

type Float float64

func (f Float) Type() Type     { return TFloat }
func (f Float) String() string { return fmt.Sprintf("%v", float64(f)) }

// String is immutable and shared; "mutating" it always produces a new
// String, per §3.1. Go strings are already immutable, so no refcounted
// wrapper is needed for correctness, only for the Container-adjacent parts
// of the spec that key Map/Set contents off interned string handles (see
// HashKey in hash.go).
type String string

func (s String) Type() Type     { return TString }
func (s String) String() string { return string(s) }

// Truthy implements §4.2.2's truthiness rule: Null and Bool(false) are
// falsy, everything else truthy.
func Truthy(v Value) bool {
	switch t := v.(type) {
	case Null:
		return false
	case Bool:
		return bool(t)
	default:
		return true
	}
}

// StructurallyEqual implements the Eq/Ne opcode family's equality rule
// (§3.1: "structural for primitives ... by-identity for containers unless a
// value-specific equality is defined").
func StructurallyEqual(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Int:
		switch bv := b.(type) {
		case Int:
			return av == bv
		case Float:
			return Float(av) == bv
		}
		return false
	case Float:
		switch bv := b.(type) {
		case Int:
			return av == Float(bv)
		case Float:
			return av == bv
		}
		return false
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	default:
		// containers, closures, etc.: identity equality.
		ac, aok := a.(Container)
		bc, bok := b.(Container)
		if aok && bok {
			return ac.ID() == bc.ID()
		}
		return a == b
	}
}
