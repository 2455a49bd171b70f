package vm

import "rlox/internal/heap"

// captureUpvalue returns the existing open upvalue for stackIndex if the
// open list already has one (invariant: at most one per slot), else
// allocates a new Open upvalue and inserts it keeping openUpvalues sorted
// by descending StackIndex.
func (vm *VM) captureUpvalue(stackIndex int) heap.Handle {
	for _, h := range vm.openUpvalues {
		uv := vm.heap.Upvalues.Get(h)
		if uv.StackIndex == stackIndex {
			return h
		}
		if uv.StackIndex < stackIndex {
			break
		}
	}

	handle := vm.heap.NewUpvalue(heap.UpvalueObject{Open: true, StackIndex: stackIndex})

	insertAt := len(vm.openUpvalues)
	for i, h := range vm.openUpvalues {
		if vm.heap.Upvalues.Get(h).StackIndex < stackIndex {
			insertAt = i
			break
		}
	}
	vm.openUpvalues = append(vm.openUpvalues, heap.Handle{})
	copy(vm.openUpvalues[insertAt+1:], vm.openUpvalues[insertAt:])
	vm.openUpvalues[insertAt] = handle

	return handle
}

// closeUpvalues closes every open upvalue whose StackIndex is >= from,
// copying the value out of the about-to-be-invalidated stack slot. Because
// the list is sorted descending, these are always a prefix.
func (vm *VM) closeUpvalues(from int) {
	n := 0
	for n < len(vm.openUpvalues) {
		uv := vm.heap.Upvalues.Get(vm.openUpvalues[n])
		if uv.StackIndex < from {
			break
		}
		uv.Open = false
		uv.Closed = vm.stack[uv.StackIndex]
		n++
	}
	vm.openUpvalues = vm.openUpvalues[n:]
}
