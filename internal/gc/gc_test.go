package gc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"rlox/internal/heap"
)

type fakeRoots struct {
	values []heap.Value
}

func (f *fakeRoots) GCRoots() []heap.Value { return f.values }

func TestCollectFreesUnreachableStrings(t *testing.T) {
	h := heap.New()
	c := New(h)

	reachable := h.NewString([]byte("kept"))
	unreachable := h.NewString([]byte("dropped"))

	roots := &fakeRoots{values: []heap.Value{heap.Object(reachable)}}
	c.Register(roots)

	c.Collect()

	require.True(t, h.Strings.IsLive(reachable))
	require.False(t, h.Strings.IsLive(unreachable))
	require.Equal(t, 1, c.Collections)
}

func TestCollectTracesThroughClosureGraph(t *testing.T) {
	h := heap.New()
	c := New(h)

	fnName := h.NewString([]byte("f"))
	fn := h.NewFunction(heap.FunctionObject{Name: fnName})
	closure := h.NewClosure(heap.ClosureObject{Function: fn})

	roots := &fakeRoots{values: []heap.Value{heap.Object(closure)}}
	c.Register(roots)
	c.Collect()

	require.True(t, h.Closures.IsLive(closure))
	require.True(t, h.Functions.IsLive(fn))
	require.True(t, h.Strings.IsLive(fnName), "function name must be traced from the closure")
}

func TestCollectHandlesCycles(t *testing.T) {
	h := heap.New()
	c := New(h)

	className := h.NewString([]byte("Node"))
	class := h.NewClass(heap.ClassObject{Name: className})
	instance := h.NewInstance(heap.InstanceObject{Class: class})

	fieldName := h.NewString([]byte("next"))
	h.Instances.Get(instance).Fields[fieldName] = heap.Object(instance) // self-reference

	roots := &fakeRoots{values: []heap.Value{heap.Object(instance)}}
	c.Register(roots)
	c.Collect()

	require.True(t, h.Instances.IsLive(instance), "a cyclic reference must not stop the collector from terminating nor free a reachable object")
	require.True(t, h.Classes.IsLive(class))
}

func TestCollectUnreachableCycleIsFreed(t *testing.T) {
	h := heap.New()
	c := New(h)

	className := h.NewString([]byte("Orphan"))
	class := h.NewClass(heap.ClassObject{Name: className})
	instance := h.NewInstance(heap.InstanceObject{Class: class})
	fieldName := h.NewString([]byte("self"))
	h.Instances.Get(instance).Fields[fieldName] = heap.Object(instance)

	c.Register(&fakeRoots{}) // nothing reachable
	c.Collect()

	require.False(t, h.Instances.IsLive(instance))
	require.False(t, h.Classes.IsLive(class))
}
