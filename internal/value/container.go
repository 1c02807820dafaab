package value

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	mapset "github.com/deckarep/golang-set/v2"
)

var nextID atomic.Uintptr

func allocID() uintptr {
	return nextID.Add(1)
}

// NewID hands out a collector-identity value for Container implementations
// that live outside this package (internal/object's Closure, Future,
// Coroutine), so every tracked container in the process shares one identity
// space regardless of which package defines its Go type.
func NewID() uintptr { return allocID() }

// Header is an exported embeddable version of header for Container
// implementations defined in other packages. Behavior is identical; it
// exists only because Go embedding requires the field to be visible outside
// this package.
type Header struct{ h header }

func NewHeaderWithID(id uintptr) Header { return Header{h: header{ident: id, refs: 1}} }

func (h *Header) ID() uintptr     { return h.h.ID() }
func (h *Header) Retain()         { h.h.Retain() }
func (h *Header) Release()        { h.h.Release() }
func (h *Header) RefCount() int32 { return h.h.RefCount() }
func (h *Header) EnterBorrow() bool { return h.h.enterBorrow() }
func (h *Header) ExitBorrow()       { h.h.exitBorrow() }
func (h *Header) Borrowed() bool    { return h.h.borrowed() }

// header is embedded by every Container implementation. It carries the
// collector-facing identity and the strong-holder refcount (§3.6, §4.3), plus
// a borrow-depth counter used to detect the reentrant-mutation-during-
// iteration pattern called out in §5 and §9 (ConcurrentModificationError).
//
// The VM is single-threaded (§5: "no locking is required because the VM is
// single-threaded"), so these are plain ints, not atomics -- unlike the
// cycle collector's process-wide allocation counter (internal/heap), which
// is shared across collection triggers and uses go.uber.org/atomic instead.
type header struct {
	ident  uintptr
	refs   int32
	borrow int32
}

func newHeader() header {
	return header{ident: allocID(), refs: 1}
}

func (h *header) ID() uintptr      { return h.ident }
func (h *header) Retain()          { h.refs++ }
func (h *header) Release()         { h.refs-- }
func (h *header) RefCount() int32  { return h.refs }

// enterBorrow/exitBorrow implement the dynamic recursive-borrow check of §5:
// "A recursive-borrow pattern on the same container ... is detected
// dynamically and raises ConcurrentModificationError." Mutating methods call
// enterBorrow before touching the interior and exitBorrow via defer.
func (h *header) enterBorrow() bool {
	h.borrow++
	return h.borrow == 1
}

func (h *header) exitBorrow() { h.borrow-- }

func (h *header) borrowed() bool { return h.borrow > 0 }

// ConcurrentModificationError is returned (wrapped by the caller into a
// *verr.VError) when a container is mutated while already borrowed by an
// in-progress iteration or mutation on the same container.
type ConcurrentModificationError struct{ Container string }

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("concurrent modification of %s during iteration", e.Container)
}

// --- List -----------------------------------------------------------------

type List struct {
	header
	elems []Value
}

func NewList(elems []Value) *List {
	l := &List{header: newHeader(), elems: elems}
	for _, e := range elems {
		Retain(e)
	}
	return l
}

func (l *List) Type() Type     { return TList }
func (l *List) String() string { return "[...List]" }

func (l *List) Len() int { return len(l.elems) }

func (l *List) Get(i int) (Value, bool) {
	if i < 0 || i >= len(l.elems) {
		return nil, false
	}
	return l.elems[i], true
}

func (l *List) Set(i int, v Value) error {
	if l.borrowed() {
		return &ConcurrentModificationError{Container: "List"}
	}
	if i < 0 || i >= len(l.elems) {
		return fmt.Errorf("list index %d out of range", i)
	}
	Retain(v)
	Release(l.elems[i])
	l.elems[i] = v
	return nil
}

func (l *List) Append(v Value) {
	Retain(v)
	l.elems = append(l.elems, v)
}

// Concat implements Add on two Lists (§4.2.5): produces a fresh List.
func (l *List) Concat(other *List) *List {
	out := make([]Value, 0, len(l.elems)+len(other.elems))
	out = append(out, l.elems...)
	out = append(out, other.elems...)
	return NewList(out)
}

func (l *List) Elements() []Value { return l.elems }

func (l *List) Children() []Value { return l.elems }

func (l *List) Clear() {
	for _, e := range l.elems {
		Release(e)
	}
	l.elems = nil
}

// --- Map --------------------------------------------------------------

type Map struct {
	header
	entries map[HashKey]Value
}

func NewMap(entries map[HashKey]Value) *Map {
	m := &Map{header: newHeader(), entries: entries}
	for _, v := range m.entries {
		Retain(v)
	}
	return m
}

func (m *Map) Type() Type     { return TMap }
func (m *Map) String() string { return "{...Map}" }

func (m *Map) Len() int { return len(m.entries) }

func (m *Map) Get(k HashKey) (Value, bool) {
	v, ok := m.entries[k]
	return v, ok
}

func (m *Map) Set(k HashKey, v Value) error {
	if m.borrowed() {
		return &ConcurrentModificationError{Container: "Map"}
	}
	if old, ok := m.entries[k]; ok {
		Release(old)
	}
	Retain(v)
	m.entries[k] = v
	return nil
}

func (m *Map) Delete(k HashKey) error {
	if m.borrowed() {
		return &ConcurrentModificationError{Container: "Map"}
	}
	if old, ok := m.entries[k]; ok {
		Release(old)
		delete(m.entries, k)
	}
	return nil
}

func (m *Map) Keys() []HashKey {
	keys := make([]HashKey, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	return keys
}

// Children returns only the entry values; HashKey-backed keys carry no
// container payload in this port (string interning is a plain Go string).
func (m *Map) Children() []Value {
	out := make([]Value, 0, len(m.entries))
	for _, v := range m.entries {
		out = append(out, v)
	}
	return out
}

func (m *Map) Clear() {
	for _, v := range m.entries {
		Release(v)
	}
	m.entries = map[HashKey]Value{}
}

// --- Set ----------------------------------------------------------------

// Set backs Stratum's Set value with github.com/deckarep/golang-set/v2
// instead of a hand-rolled map[HashKey]struct{}, per SPEC_FULL §A.2.
type Set struct {
	header
	backing mapset.Set[HashKey]
}

func NewSet(items []HashKey) *Set {
	return &Set{header: newHeader(), backing: mapset.NewSet(items...)}
}

func (s *Set) Type() Type     { return TSet }
func (s *Set) String() string { return "{...Set}" }

func (s *Set) Len() int { return s.backing.Cardinality() }

func (s *Set) Contains(k HashKey) bool { return s.backing.Contains(k) }

func (s *Set) Add(k HashKey) error {
	if s.borrowed() {
		return &ConcurrentModificationError{Container: "Set"}
	}
	s.backing.Add(k)
	return nil
}

func (s *Set) Remove(k HashKey) error {
	if s.borrowed() {
		return &ConcurrentModificationError{Container: "Set"}
	}
	s.backing.Remove(k)
	return nil
}

func (s *Set) Items() []HashKey { return s.backing.ToSlice() }

// Children is always empty: Sets hold only HashableValue members
// (Null/Bool/Int/String), none of which are containers or Embedders --
// matching original_source's gc/mod.rs, which marks a Set's own identity but
// never descends past its interned string keys.
func (s *Set) Children() []Value { return nil }

func (s *Set) Clear() { s.backing.Clear() }

// --- Struct ---------------------------------------------------------------

// Struct is a named-field record (§3.1): a type tag plus a field map.
type Struct struct {
	header
	TypeName string
	fields   map[string]Value
}

func NewStruct(typeName string, fields map[string]Value) *Struct {
	s := &Struct{header: newHeader(), TypeName: typeName, fields: fields}
	for _, v := range s.fields {
		Retain(v)
	}
	return s
}

func (s *Struct) Type() Type { return TStruct }
func (s *Struct) String() string {
	return fmt.Sprintf("%s{...}", s.TypeName)
}

func (s *Struct) Get(name string) (Value, bool) {
	v, ok := s.fields[name]
	return v, ok
}

func (s *Struct) Set(name string, v Value) error {
	if s.borrowed() {
		return &ConcurrentModificationError{Container: "Struct"}
	}
	if old, ok := s.fields[name]; ok {
		Release(old)
	}
	Retain(v)
	s.fields[name] = v
	return nil
}

func (s *Struct) FieldNames() []string {
	names := make([]string, 0, len(s.fields))
	for n := range s.fields {
		names = append(names, n)
	}
	return names
}

func (s *Struct) Children() []Value {
	out := make([]Value, 0, len(s.fields))
	for _, v := range s.fields {
		out = append(out, v)
	}
	return out
}

func (s *Struct) Clear() {
	for _, v := range s.fields {
		Release(v)
	}
	s.fields = map[string]Value{}
}

// DumpFields renders a Struct's fields deterministically for debug/pretty
// output, sorted by field name.
func (s *Struct) DumpFields() string {
	names := s.FieldNames()
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, n := range names {
		v := s.fields[n]
		parts = append(parts, fmt.Sprintf("%s: %s", n, v))
	}
	return strings.Join(parts, ", ")
}
