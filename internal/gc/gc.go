// Package gc implements the tri-color mark-and-sweep collector that reclaims
// heap.Heap arenas. It knows nothing about the VM or compiler directly;
// anything that can hold live handles registers as a RootProvider.
package gc

import "rlox/internal/heap"

// RootProvider is implemented by every long-lived owner of Values: the VM
// (operand stack, call frames, open upvalues, globals) and each active
// compiler context (its function-in-progress). Collect gathers roots from
// every registered provider before tracing.
type RootProvider interface {
	GCRoots() []heap.Value
}

// Collector owns the heap it collects and the set of root providers
// consulted on every run. Stats are kept for diagnostics (the --trace-gc
// CLI flag) and are not load-bearing for correctness.
type Collector struct {
	Heap      *heap.Heap
	Providers []RootProvider

	gray []heap.Handle

	Collections int
	LastFreed   int
}

func New(h *heap.Heap) *Collector {
	c := &Collector{Heap: h}
	h.CollectFn = c.Collect
	return c
}

func (c *Collector) Register(p RootProvider) {
	c.Providers = append(c.Providers, p)
}

// Collect runs one full mark-and-sweep pass: clear marks, mark every root,
// drain the gray worklist darkening referents, sweep each arena, prune the
// string table of unmarked entries before its arena is swept, then grow the
// threshold from the new live-byte count.
func (c *Collector) Collect() {
	c.clearMarks()

	for _, p := range c.Providers {
		for _, v := range p.GCRoots() {
			c.markValue(v)
		}
	}
	c.markHandle(c.Heap.InitString)

	c.drain()

	c.Heap.Interned.RemoveUnmarked()

	freed := 0
	freed += c.Heap.Strings.Sweep()
	freed += c.Heap.Functions.Sweep()
	freed += c.Heap.Natives.Sweep()
	freed += c.Heap.Closures.Sweep()
	freed += c.Heap.Upvalues.Sweep()
	freed += c.Heap.Classes.Sweep()
	freed += c.Heap.Instances.Sweep()
	freed += c.Heap.BoundMethods.Sweep()

	c.Heap.LiveBytes -= freed
	if c.Heap.LiveBytes < 0 {
		c.Heap.LiveBytes = 0
	}
	c.Heap.GrowThreshold()

	c.Collections++
	c.LastFreed = freed
}

func (c *Collector) clearMarks() {
	c.Heap.Strings.ClearMarks()
	c.Heap.Functions.ClearMarks()
	c.Heap.Natives.ClearMarks()
	c.Heap.Closures.ClearMarks()
	c.Heap.Upvalues.ClearMarks()
	c.Heap.Classes.ClearMarks()
	c.Heap.Instances.ClearMarks()
	c.Heap.BoundMethods.ClearMarks()
	c.gray = c.gray[:0]
}

func (c *Collector) markValue(v heap.Value) {
	if !v.IsObject() {
		return
	}
	c.markHandle(v.AsHandle())
}

// markHandle grays h on first sight; an already-marked handle (or the nil
// handle) is a no-op, which is what keeps cyclic graphs from looping.
func (c *Collector) markHandle(h heap.Handle) {
	if h.IsNil() {
		return
	}
	var already bool
	switch h.Kind {
	case heap.KindString:
		already = c.Heap.Strings.Mark(h)
	case heap.KindFunction:
		already = c.Heap.Functions.Mark(h)
	case heap.KindNative:
		already = c.Heap.Natives.Mark(h)
	case heap.KindClosure:
		already = c.Heap.Closures.Mark(h)
	case heap.KindUpvalue:
		already = c.Heap.Upvalues.Mark(h)
	case heap.KindClass:
		already = c.Heap.Classes.Mark(h)
	case heap.KindInstance:
		already = c.Heap.Instances.Mark(h)
	case heap.KindBoundMethod:
		already = c.Heap.BoundMethods.Mark(h)
	default:
		return
	}
	if !already {
		c.gray = append(c.gray, h)
	}
}

// drain pops from the gray worklist until empty, darkening each handle's
// referents. Using an explicit slice instead of recursion keeps deep object
// graphs (long closure chains, long instance field chains) from blowing the
// Go call stack.
func (c *Collector) drain() {
	for len(c.gray) > 0 {
		h := c.gray[len(c.gray)-1]
		c.gray = c.gray[:len(c.gray)-1]
		c.darken(h)
	}
}

func (c *Collector) darken(h heap.Handle) {
	switch h.Kind {
	case heap.KindString:
		// Leaf: no referents.
	case heap.KindFunction:
		f := c.Heap.Functions.Get(h)
		c.markHandle(f.Name)
		for _, v := range f.Constants {
			c.markValue(v)
		}
	case heap.KindNative:
		// Leaf: no referents.
	case heap.KindClosure:
		cl := c.Heap.Closures.Get(h)
		c.markHandle(cl.Function)
		for _, uv := range cl.Upvalues {
			c.markHandle(uv)
		}
	case heap.KindUpvalue:
		uv := c.Heap.Upvalues.Get(h)
		if !uv.Open {
			c.markValue(uv.Closed)
		}
		// Open upvalues alias a live stack slot, already covered because
		// the VM's operand stack is itself a root.
	case heap.KindClass:
		cls := c.Heap.Classes.Get(h)
		c.markHandle(cls.Name)
		for name, method := range cls.Methods {
			c.markHandle(name)
			c.markHandle(method)
		}
	case heap.KindInstance:
		inst := c.Heap.Instances.Get(h)
		c.markHandle(inst.Class)
		for name, v := range inst.Fields {
			c.markHandle(name)
			c.markValue(v)
		}
	case heap.KindBoundMethod:
		bm := c.Heap.BoundMethods.Get(h)
		c.markHandle(bm.Receiver)
		c.markHandle(bm.Method)
	}
}
