package object

import (
	"fmt"

	"stratum/internal/value"
)

// Closure pairs a Function with its captured Upvalues (§3.1, §3.4). Unlike
// Function, a Closure IS collector-tracked: two closures can capture each
// other's upvalues (directly or through an intervening Struct/List field),
// forming a cycle the collector must be able to break (§4.3 TrackedContainer
// includes Closure).
type Closure struct {
	value.Header
	Fn       *Function
	Upvalues []*Upvalue
}

func NewClosure(fn *Function, upvalues []*Upvalue) *Closure {
	c := &Closure{Header: value.NewHeaderWithID(value.NewID()), Fn: fn, Upvalues: upvalues}
	for _, uv := range upvalues {
		value.Retain(uv.Get())
	}
	return c
}

func (c *Closure) Type() value.Type { return value.TClosure }
func (c *Closure) String() string   { return fmt.Sprintf("<closure %s>", c.Fn.Name) }

// Children reports only closed upvalues' values. Open upvalues point into a
// still-live frame's stack, which the collector already marks directly as
// part of the stack root set (§4.3), so walking them a second time here
// would be redundant -- matching original_source/gc/mod.rs's closure
// handling, which marks "only Closed upvalues' inner value".
func (c *Closure) Children() []value.Value {
	out := make([]value.Value, 0, len(c.Upvalues))
	for _, uv := range c.Upvalues {
		if uv.IsOpen() {
			continue
		}
		out = append(out, uv.Get())
	}
	return out
}

// clear breaks a cycle routed through this closure. Per original_source's
// gc/mod.rs, a Closure's upvalues are treated as immutable once built
// (break_cycle returns false for the Closure variant there): severing a live
// upvalue cell out from under every other holder of the same closure would
// silently change observable behavior. The collector instead relies on
// breaking the cycle at a List/Map/Struct link elsewhere in the loop; this
// method exists only to satisfy value.Container and is a deliberate no-op.
func (c *Closure) Clear() {}
