// Package heap implements Stratum's cycle collector (spec §3.6, §4.3),
// ported from original_source's stratum-core/src/gc/mod.rs: a
// reference-counted heap backstopped by a periodic mark-sweep pass over
// tracked containers only, rooted at the VM's stack, globals, and open
// upvalues.
//
// Go's own tracing GC already reclaims memory safely; this package exists
// purely to simulate the original's Rc<RefCell<T>>/Weak<T> liveness model so
// WeakRef.Upgrade and "is this container still strongly held" queries behave
// the way the spec describes, and so cyclic references between Stratum
// values (which Go's GC would otherwise leak as live-but-unreachable-by-the-
// language memory) get broken. Go's collector remains the actual memory-
// safety backstop regardless of what happens here.
package heap

import (
	"go.uber.org/atomic"

	"stratum/internal/value"
)

// DefaultThreshold and MinThreshold mirror original_source/gc/mod.rs's
// DEFAULT_THRESHOLD (10_000) and MIN_THRESHOLD (100).
const (
	DefaultThreshold = 10_000
	MinThreshold     = 100
)

// Stats mirrors gc/mod.rs's GcStats: collections run, cycles broken,
// currently tracked objects, allocations since last reset, and the active
// threshold, surfaced to `cmd/stratum`'s diagnostics and internal/debug.
type Stats struct {
	Collections      uint64
	CyclesBroken      uint64
	TrackedObjects    int
	AllocationCount   uint64
	Threshold         uint64
}

// Roots is everything the collector must treat as reachable before tracing
// (§4.3: "roots = stack + globals + open upvalues"). The VM package supplies
// this at each collection point; heap never reaches back into internal/vm
// itself, to avoid an import cycle (the VM imports heap to drive it).
type Roots struct {
	Stack         []value.Value
	Globals       map[string]value.Value
	OpenUpvalues  []value.Value // each entry is the *currently pointed-to* value of an open upvalue
}

// Collector is the process-wide (really: per-VM-instance) cycle collector.
type Collector struct {
	tracked   map[uintptr]value.Container
	allocs    atomic.Uint64
	threshold uint64
	autoCollect bool

	collections  atomic.Uint64
	cyclesBroken atomic.Uint64
}

func New() *Collector {
	return &Collector{
		tracked:     map[uintptr]value.Container{},
		threshold:   DefaultThreshold,
		autoCollect: true,
	}
}

func WithThreshold(threshold uint64) *Collector {
	if threshold < MinThreshold {
		threshold = MinThreshold
	}
	c := New()
	c.threshold = threshold
	return c
}

func (c *Collector) SetAutoCollect(enabled bool) { c.autoCollect = enabled }
func (c *Collector) AutoCollectEnabled() bool     { return c.autoCollect }

// Track registers a freshly constructed container with the collector
// (§4.3: "each container-producing opcode registers the new container with
// the collector"). Non-container values and already-tracked identities are
// no-ops, mirroring gc/mod.rs's track(): "dedups by raw ptr ... non-container
// variants return immediately".
func (c *Collector) Track(v value.Value) {
	container, ok := v.(value.Container)
	if !ok {
		return
	}
	id := container.ID()
	if _, already := c.tracked[id]; already {
		return
	}
	c.tracked[id] = container
	c.allocs.Inc()
}

// ShouldCollect reports whether the allocation counter has crossed the
// threshold while auto-collection is enabled (§4.3: "auto_collect &&
// allocation_count >= threshold"). internal/vm calls this at opcode safe
// points between instructions (§5).
func (c *Collector) ShouldCollect() bool {
	return c.autoCollect && c.allocs.Load() >= c.threshold
}

// Collect runs one mark-sweep pass: find containers reachable from roots,
// then break_cycle every tracked container that is unreachable (garbage by
// definition, since a Container with RefCount > 0 but not reachable from any
// root can only be kept alive by another container, which is itself either
// reachable or also garbage).
func (c *Collector) Collect(roots Roots) int {
	reachable := map[uintptr]bool{}

	for _, v := range roots.Stack {
		markValue(v, reachable)
	}
	for _, v := range roots.Globals {
		markValue(v, reachable)
	}
	for _, v := range roots.OpenUpvalues {
		markValue(v, reachable)
	}

	brokenCount := 0
	for id, container := range c.tracked {
		if container.RefCount() <= 0 || !reachable[id] {
			container.Clear()
			brokenCount++
			delete(c.tracked, id)
		}
	}

	c.allocs.Store(0)
	c.collections.Inc()
	if brokenCount > 0 {
		c.cyclesBroken.Add(uint64(brokenCount))
	}
	return brokenCount
}

// ForceCollect runs Collect regardless of the threshold/auto_collect gate
// (gc/mod.rs's force_collect: "temporarily forces auto_collect=true and
// allocation_count=threshold then calls collect, restores auto_collect").
func (c *Collector) ForceCollect(roots Roots) int {
	prevAuto := c.autoCollect
	c.autoCollect = true
	c.allocs.Store(c.threshold)
	broken := c.Collect(roots)
	c.autoCollect = prevAuto
	return broken
}

func (c *Collector) Stats() Stats {
	return Stats{
		Collections:     c.collections.Load(),
		CyclesBroken:    c.cyclesBroken.Load(),
		TrackedObjects:  len(c.tracked),
		AllocationCount: c.allocs.Load(),
		Threshold:       c.threshold,
	}
}

// markValue implements the recursive reachability walk of gc/mod.rs's
// mark(): a Container marks itself reachable and recurses into Children();
// an Embedder (EnumVariant payloads, BoundMethod receivers) is not itself
// collector-tracked but still recurses into Embedded() so a cycle reached
// only through one is still found; a WeakRef implements neither interface
// and is therefore never followed, by construction.
func markValue(v value.Value, reachable map[uintptr]bool) {
	if v == nil {
		return
	}
	if container, ok := v.(value.Container); ok {
		if reachable[container.ID()] {
			return
		}
		reachable[container.ID()] = true
		for _, child := range container.Children() {
			markValue(child, reachable)
		}
		return
	}
	if embedder, ok := v.(value.Embedder); ok {
		for _, inner := range embedder.Embedded() {
			markValue(inner, reachable)
		}
	}
}
