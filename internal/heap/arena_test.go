package heap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestArena() *Arena[StringObject] {
	return NewArena[StringObject](KindString, func(s *StringObject) int { return sizeOfString(s) })
}

func TestArenaAllocateAndGet(t *testing.T) {
	a := newTestArena()
	h, n := a.Allocate(StringObject{Data: []byte("hi")})
	require.Equal(t, KindString, h.Kind)
	require.NotEqual(t, uint32(0), h.Index, "slot 0 is reserved")
	require.Greater(t, n, 0)
	require.Equal(t, "hi", a.Get(h).String())
	require.True(t, a.IsLive(h))
}

func TestArenaSweepFreesUnmarked(t *testing.T) {
	a := newTestArena()
	live, _ := a.Allocate(StringObject{Data: []byte("kept")})
	dead, _ := a.Allocate(StringObject{Data: []byte("gone")})

	a.Mark(live)
	freed := a.Sweep()

	require.Greater(t, freed, 0)
	require.True(t, a.IsLive(live))
	require.False(t, a.IsLive(dead))
}

func TestArenaFreeListReused(t *testing.T) {
	a := newTestArena()
	first, _ := a.Allocate(StringObject{Data: []byte("x")})
	a.Sweep() // nothing marked: first slot goes to the free list

	second, _ := a.Allocate(StringObject{Data: []byte("y")})
	require.Equal(t, first.Index, second.Index, "freed slot should be reused before growing")
}

func TestArenaClearMarksResetsMarkBits(t *testing.T) {
	a := newTestArena()
	h, _ := a.Allocate(StringObject{Data: []byte("z")})
	a.Mark(h)
	require.True(t, a.IsMarked(h))
	a.ClearMarks()
	require.False(t, a.IsMarked(h))
}

func TestArenaLiveIteratesOnlyAllocated(t *testing.T) {
	a := newTestArena()
	h1, _ := a.Allocate(StringObject{Data: []byte("a")})
	h2, _ := a.Allocate(StringObject{Data: []byte("b")})
	a.Mark(h1)
	a.Sweep() // frees h2

	var seen []Handle
	a.Live(func(h Handle) { seen = append(seen, h) })
	require.Equal(t, []Handle{h1}, seen)
}
