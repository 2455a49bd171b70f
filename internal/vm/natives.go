package vm

import (
	"time"

	"rlox/internal/heap"
)

var startTime = time.Now()

// registerNatives installs the built-in global functions available to every
// script, per §6. clock takes no arguments and returns seconds elapsed since
// an arbitrary fixed point, as a float.
func registerNatives(vm *VM) {
	vm.defineNative("clock", 0, func(args []heap.Value) (heap.Value, error) {
		return heap.Number(time.Since(startTime).Seconds()), nil
	})
}

func (vm *VM) defineNative(name string, arity int, fn heap.NativeFunc) {
	nameHandle := vm.heap.NewString([]byte(name))
	native := vm.heap.NewNative(heap.NativeObject{Name: name, Arity: arity, Fn: fn})
	vm.globals[nameHandle] = heap.Object(native)
}
