package heap

// StringTable interns string content so that two equal byte sequences
// always resolve to the same Handle. It is a classic open-addressed hash
// table keyed by the FNV-1a hash of the content: insertion probes linearly
// from hash mod capacity, stopping at the first empty slot or the first
// slot whose stored handle has matching content. The hash itself is never
// recomputed on collision — distinct content sharing a hash simply probes
// further down the table.
type StringTable struct {
	arena    *Arena[StringObject]
	handles  []Handle // capacity-sized, Handle{} (nil) marks empty
	occupied int
}

const fnvOffset32 = 2166136261
const fnvPrime32 = 16777619

func fnv1a(data []byte) uint32 {
	h := uint32(fnvOffset32)
	for _, b := range data {
		h ^= uint32(b)
		h *= fnvPrime32
	}
	return h
}

func NewStringTable(arena *Arena[StringObject]) *StringTable {
	t := &StringTable{arena: arena}
	t.handles = make([]Handle, 16)
	return t
}

// Intern returns the canonical handle for data, allocating a new
// StringObject via newObj only on first sight of this content. newObj is
// called with the already-computed hash so callers (the heap) can populate
// the arena without recomputing it.
func (t *StringTable) Intern(data []byte, newObj func(hash uint32) (Handle, int)) (Handle, int) {
	hash := fnv1a(data)
	if h, ok := t.find(data, hash); ok {
		return h, 0
	}
	if float64(t.occupied+1) > float64(len(t.handles))*0.75 {
		t.grow()
	}
	h, charged := newObj(hash)
	t.insert(h, hash)
	return h, charged
}

func (t *StringTable) find(data []byte, hash uint32) (Handle, bool) {
	cap := uint32(len(t.handles))
	idx := hash % cap
	for i := uint32(0); i < cap; i++ {
		slot := t.handles[idx]
		if slot.IsNil() {
			return Handle{}, false
		}
		obj := t.arena.Get(slot)
		if obj.Hash == hash && string(obj.Data) == string(data) {
			return slot, true
		}
		idx = (idx + 1) % cap
	}
	return Handle{}, false
}

func (t *StringTable) insert(h Handle, hash uint32) {
	cap := uint32(len(t.handles))
	idx := hash % cap
	for !t.handles[idx].IsNil() {
		idx = (idx + 1) % cap
	}
	t.handles[idx] = h
	t.occupied++
}

func (t *StringTable) grow() {
	old := t.handles
	t.handles = make([]Handle, len(old)*2)
	t.occupied = 0
	for _, h := range old {
		if h.IsNil() {
			continue
		}
		obj := t.arena.Get(h)
		t.insert(h, obj.Hash)
	}
}

// RemoveUnmarked deletes every interned entry whose StringObject the
// collector did not mark, so the sweep that follows never leaves this
// index pointing at a freed slot. Must run before the String arena's Sweep.
//
// A bare delete-in-place would leave holes in the middle of open-addressing
// probe chains, stranding any surviving entry that was displaced past a now
// hole by the original collision; Intern's find() would then stop short and
// report it missing, interning a duplicate. Rebuilding the index from the
// surviving handles keeps every probe chain contiguous.
func (t *StringTable) RemoveUnmarked() {
	survivors := make([]Handle, 0, t.occupied)
	for _, h := range t.handles {
		if !h.IsNil() && t.arena.IsMarked(h) {
			survivors = append(survivors, h)
		}
	}
	capacity := len(t.handles)
	for float64(len(survivors)) > float64(capacity)*0.75 {
		capacity *= 2
	}
	t.handles = make([]Handle, capacity)
	t.occupied = 0
	for _, h := range survivors {
		obj := t.arena.Get(h)
		t.insert(h, obj.Hash)
	}
}
