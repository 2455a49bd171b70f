package heap

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func newInternTable() (*Arena[StringObject], *StringTable) {
	a := NewArena[StringObject](KindString, func(s *StringObject) int { return sizeOfString(s) })
	return a, NewStringTable(a)
}

func intern(a *Arena[StringObject], table *StringTable, s string) Handle {
	h, _ := table.Intern([]byte(s), func(hash uint32) (Handle, int) {
		return a.Allocate(StringObject{Data: []byte(s), Hash: hash})
	})
	return h
}

func TestInternReturnsSameHandleForEqualContent(t *testing.T) {
	a, table := newInternTable()
	h1 := intern(a, table, "hello")
	h2 := intern(a, table, "hello")
	require.Equal(t, h1, h2)
}

func TestInternDistinguishesDifferentContent(t *testing.T) {
	a, table := newInternTable()
	h1 := intern(a, table, "foo")
	h2 := intern(a, table, "bar")
	require.NotEqual(t, h1, h2)
}

func TestInternGrowsAndStillFindsEverything(t *testing.T) {
	a, table := newInternTable()
	handles := make(map[string]Handle)
	for i := 0; i < 200; i++ {
		s := fmt.Sprintf("key-%d", i)
		handles[s] = intern(a, table, s)
	}
	for s, want := range handles {
		got := intern(a, table, s)
		require.Equal(t, want, got, "content %q must still resolve to its original handle after growth", s)
	}
}

// TestRemoveUnmarkedPreservesProbeChains exercises the open-addressing edge
// case that motivated rebuilding the table instead of deleting in place: a
// removed entry in the middle of a collision chain must not strand a
// surviving entry that was displaced past it.
func TestRemoveUnmarkedPreservesProbeChains(t *testing.T) {
	a, table := newInternTable()

	var kept, removed []Handle
	var keptNames []string
	for i := 0; i < 64; i++ {
		s := fmt.Sprintf("item-%d", i)
		h := intern(a, table, s)
		if i%2 == 0 {
			kept = append(kept, h)
			keptNames = append(keptNames, s)
		} else {
			removed = append(removed, h)
		}
	}

	for _, h := range kept {
		a.Mark(h)
	}
	_ = removed

	table.RemoveUnmarked()

	for i, h := range kept {
		got := intern(a, table, keptNames[i])
		require.Equal(t, h, got, "surviving entry must still be found by content after a removal pass")
	}
}
