package value

import "fmt"

// Embedder is implemented by non-Container values that still hold other
// Values the cycle collector's mark pass must recurse into (§4.3: "enum-
// variant payloads", "bound-method receivers + methods"). Values that
// implement neither Container nor Embedder are collector leaves.
type Embedder interface {
	Embedded() []Value
}

// --- Range ------------------------------------------------------------

// Range is a by-value (start, end, inclusive?) pair of Int (§3.1).
type Range struct {
	Start     int64
	End       int64
	Inclusive bool
}

func (r Range) Type() Type { return TRange }
func (r Range) String() string {
	op := ".."
	if r.Inclusive {
		op = "..="
	}
	return fmt.Sprintf("%d%s%d", r.Start, op, r.End)
}

// Len reports how many Int values the range yields.
func (r Range) Len() int64 {
	if r.Inclusive {
		if r.End < r.Start {
			return 0
		}
		return r.End - r.Start + 1
	}
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

// --- Iterator -----------------------------------------------------------

// Iterator is a resumable cursor over a source (§3.1). It is shared (two
// holders of the same Iterator value observe the same cursor position) but
// is not a Container: it cannot itself be cyclic, since it never holds more
// than the single "next" closure over its source.
type Iterator struct {
	id   uintptr
	name string
	next func() (Value, bool)
	done bool
}

func NewIterator(name string, next func() (Value, bool)) *Iterator {
	return &Iterator{id: allocID(), name: name, next: next}
}

func (it *Iterator) Type() Type     { return TIterator }
func (it *Iterator) String() string { return fmt.Sprintf("<iterator %s>", it.name) }

// Next advances the cursor. Per §8 invariant 6, once Next reports
// exhaustion the iterator must not be used again; callers that violate this
// simply keep receiving (Null, false).
func (it *Iterator) Next() (Value, bool) {
	if it.done || it.next == nil {
		return NullValue, false
	}
	v, ok := it.next()
	if !ok {
		it.done = true
	}
	return v, ok
}

func (it *Iterator) Done() bool { return it.done }

// --- EnumVariant ----------------------------------------------------------

// EnumVariant is (type tag, variant tag, optional payload Value) (§3.1).
type EnumVariant struct {
	id          uintptr
	TypeName    string
	VariantName string
	Payload     Value
	HasPayload  bool
}

func NewEnumVariant(typeName, variantName string, payload Value) *EnumVariant {
	return &EnumVariant{
		id:          allocID(),
		TypeName:    typeName,
		VariantName: variantName,
		Payload:     payload,
		HasPayload:  payload != nil,
	}
}

func (e *EnumVariant) Type() Type { return TEnumVariant }
func (e *EnumVariant) String() string {
	if e.HasPayload {
		return fmt.Sprintf("%s.%s(%s)", e.TypeName, e.VariantName, e.Payload)
	}
	return fmt.Sprintf("%s.%s", e.TypeName, e.VariantName)
}

func (e *EnumVariant) Embedded() []Value {
	if e.HasPayload {
		return []Value{e.Payload}
	}
	return nil
}

// --- WeakRef ----------------------------------------------------------

// WeakRef is a non-owning handle that may upgrade to a strong Value or
// report the target dead (§3.1, §8 invariant 9). It is never followed by
// the cycle collector's mark pass (§3.1, §4.3) -- it deliberately holds no
// Retain on its target, so it carries no Embedder/Container implementation.
type WeakRef struct {
	id     uintptr
	target Container
}

func NewWeakRef(target Container) *WeakRef {
	return &WeakRef{id: allocID(), target: target}
}

func (w *WeakRef) Type() Type     { return TWeakRef }
func (w *WeakRef) String() string { return "<weak>" }

// Upgrade returns (value, true) iff the target has at least one strong
// holder remaining (§8 invariant 9); otherwise (Null, false).
func (w *WeakRef) Upgrade() (Value, bool) {
	if w.target == nil || w.target.RefCount() <= 0 {
		return NullValue, false
	}
	return w.target, true
}

// --- Expectation ----------------------------------------------------------

// Expectation is a test-assertion subject produced by the language's
// `expect(x)` builtin (§3.1). The VM core treats it as an opaque, host-
// dispatched value; its behavior lives entirely in the host bridge's
// "Expectation" value-method registry (§4.7, SPEC_FULL §3).
type Expectation struct {
	id      uintptr
	Subject Value
}

func NewExpectation(subject Value) *Expectation {
	return &Expectation{id: allocID(), Subject: subject}
}

func (e *Expectation) Type() Type     { return TExpectation }
func (e *Expectation) String() string { return fmt.Sprintf("expect(%s)", e.Subject) }

func (e *Expectation) Embedded() []Value { return []Value{e.Subject} }

// --- Opaque host values ---------------------------------------------------

// Opaque wraps a host-provided value (DataFrame, Series, Cube, CubeQuery,
// GuiElement, regex, socket, DB connection, ...). The VM never interprets
// its Payload; all behavior is reached through the host bridge's type-name
// value-method registry (§4.7, §9 "Opaque host values").
type Opaque struct {
	id       uintptr
	TypeName string
	Payload  interface{}
	tracer   func(interface{}, func(Value)) // optional host-provided trace hook
}

func NewOpaque(typeName string, payload interface{}) *Opaque {
	return &Opaque{id: allocID(), TypeName: typeName, Payload: payload}
}

func (o *Opaque) Type() Type     { return TOpaque }
func (o *Opaque) String() string { return fmt.Sprintf("<%s>", o.TypeName) }

// SetTracer registers a host-provided tracing hook (§9: "The cycle collector
// must still walk into [opaque values] only if a host-provided tracing hook
// is registered; otherwise treat them as leaves").
func (o *Opaque) SetTracer(trace func(payload interface{}, visit func(Value))) {
	o.tracer = trace
}

func (o *Opaque) Embedded() []Value {
	if o.tracer == nil {
		return nil
	}
	var out []Value
	o.tracer(o.Payload, func(v Value) { out = append(out, v) })
	return out
}
