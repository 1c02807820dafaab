package object

import (
	"fmt"

	"stratum/internal/value"
)

// FutureState is a Future's lifecycle stage (§5: Await suspends until a
// Future settles).
type FutureState int

const (
	FuturePending FutureState = iota
	FutureResolved
	FutureRejected
)

func (s FutureState) String() string {
	switch s {
	case FutureResolved:
		return "resolved"
	case FutureRejected:
		return "rejected"
	default:
		return "pending"
	}
}

// Future is a collector-tracked, shared handle to an eventually-available
// result (§3.1, §4.3 TrackedContainer::Future). Metadata holds host-supplied
// bookkeeping (e.g. a cancellation token or originating task id) -- kept as
// a Value rather than a Go field so it can be an arbitrary Struct without
// internal/object needing to know its shape.
type Future struct {
	value.Header
	State    FutureState
	Result   value.Value
	Metadata value.Value
}

func NewFuture() *Future {
	return &Future{Header: value.NewHeaderWithID(value.NewID()), State: FuturePending}
}

func (f *Future) Type() value.Type { return value.TFuture }
func (f *Future) String() string   { return fmt.Sprintf("<future %s>", f.State) }

// Resolve and Reject settle a pending Future exactly once; later calls are
// no-ops, matching the "settle once" semantics a Future implementation must
// have regardless of host language.
func (f *Future) Resolve(v value.Value) {
	if f.State != FuturePending {
		return
	}
	value.Retain(v)
	f.Result = v
	f.State = FutureResolved
}

func (f *Future) Reject(v value.Value) {
	if f.State != FuturePending {
		return
	}
	value.Retain(v)
	f.Result = v
	f.State = FutureRejected
}

func (f *Future) Children() []value.Value {
	var out []value.Value
	if f.Result != nil {
		out = append(out, f.Result)
	}
	if f.Metadata != nil {
		out = append(out, f.Metadata)
	}
	return out
}

func (f *Future) Clear() {
	value.Release(f.Result)
	value.Release(f.Metadata)
	f.Result = nil
	f.Metadata = nil
}

// CoroutineState is a Coroutine's lifecycle stage (§5).
type CoroutineState int

const (
	CoroutineSuspended CoroutineState = iota
	CoroutineRunning
	CoroutineDone
)

func (s CoroutineState) String() string {
	switch s {
	case CoroutineRunning:
		return "running"
	case CoroutineDone:
		return "done"
	default:
		return "suspended"
	}
}

// Coroutine is a collector-tracked, suspendable call stack (§3.1, §4.3
// TrackedContainer::Coroutine): its own value stack and frame stack, saved
// across Yield/resume the way internal/vm's single stepping routine swaps
// the live VM's stack/frames out for a coroutine's and back (§5, §9:
// "coroutine stack-swap via a single shared stepping routine parameterized
// by execution state").
type Coroutine struct {
	value.Header
	State          CoroutineState
	Stack          []value.Value
	Frames         []*Frame
	AwaitedFuture  *Future
	ResumeValue    value.Value
}

func NewCoroutine(entry *Closure) *Coroutine {
	c := &Coroutine{Header: value.NewHeaderWithID(value.NewID())}
	c.Frames = append(c.Frames, NewFrame(entry, 0))
	value.Retain(entry)
	return c
}

func (c *Coroutine) Type() value.Type { return value.TCoroutine }
func (c *Coroutine) String() string   { return fmt.Sprintf("<coroutine %s>", c.State) }

func (c *Coroutine) Children() []value.Value {
	out := make([]value.Value, 0, len(c.Stack)+len(c.Frames)+1)
	out = append(out, c.Stack...)
	for _, fr := range c.Frames {
		if fr.Closure != nil {
			out = append(out, fr.Closure)
		}
	}
	if c.AwaitedFuture != nil {
		out = append(out, c.AwaitedFuture)
	}
	return out
}

func (c *Coroutine) Clear() {
	for _, v := range c.Stack {
		value.Release(v)
	}
	for _, fr := range c.Frames {
		value.Release(fr.Closure)
	}
	c.Stack = nil
	c.Frames = nil
	c.AwaitedFuture = nil
}
