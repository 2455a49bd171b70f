// Package vm implements the stack-based bytecode interpreter: the dispatch
// loop, call frames, open/closed upvalue management, and method/field
// dispatch described in the specification's VM component.
package vm

import (
	"fmt"

	"rlox/internal/bytecode"
	"rlox/internal/errors"
	"rlox/internal/heap"
)

const stackMax = 16384
const framesMax = 64

// frame is one active call: which closure is running, where its
// instruction pointer sits in that closure's function code, and the
// operand-stack index at which its locals begin.
type frame struct {
	closure heap.Handle
	ip      int
	base    int
}

// VM is the dispatch engine. It holds the operand stack, the call-frame
// stack, the sorted open-upvalue list, and the globals table; Interpret
// drives all of it against one Heap.
type VM struct {
	heap *heap.Heap

	stack    []heap.Value
	stackTop int

	frames     []frame
	frameCount int

	// openUpvalues is kept sorted by descending StackIndex so closing every
	// upvalue at or above a given stack position is a simple prefix scan,
	// per §4.6's aliasing and ordering requirements.
	openUpvalues []heap.Handle

	globals map[heap.Handle]heap.Value

	StdOut func(string)
}

func New(h *heap.Heap) *VM {
	vm := &VM{
		heap:    h,
		stack:   make([]heap.Value, stackMax),
		frames:  make([]frame, framesMax),
		globals: make(map[heap.Handle]heap.Value),
		StdOut:  func(s string) { fmt.Print(s) },
	}
	registerNatives(vm)
	return vm
}

// GCRoots implements gc.RootProvider: the live operand stack, every active
// frame's closure, every open upvalue (as a live object — its referenced
// stack slot is already covered by the stack root above), and the globals
// table — both its name-string keys and its values, mirroring clox's
// markTable marking both halves of every entry.
func (vm *VM) GCRoots() []heap.Value {
	roots := make([]heap.Value, 0, vm.stackTop+vm.frameCount+len(vm.openUpvalues)+2*len(vm.globals))
	roots = append(roots, vm.stack[:vm.stackTop]...)
	for i := 0; i < vm.frameCount; i++ {
		roots = append(roots, heap.Object(vm.frames[i].closure))
	}
	for _, uv := range vm.openUpvalues {
		roots = append(roots, heap.Object(uv))
	}
	for k, v := range vm.globals {
		roots = append(roots, heap.Object(k))
		roots = append(roots, v)
	}
	return roots
}

func (vm *VM) push(v heap.Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() heap.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) heap.Value {
	return vm.stack[vm.stackTop-1-distance]
}

func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frameCount = 0
	vm.openUpvalues = vm.openUpvalues[:0]
}

// Interpret wraps a freshly compiled top-level Function in a closure, calls
// it, and runs the dispatch loop until the outermost frame returns. fn is
// pushed before NewClosure so the allocation's own collection pass (under
// StressGC, or once it crosses the threshold) finds it rooted on the stack
// rather than reachable only from this local (clox: push(OBJ_VAL(function));
// newClosure(); pop()).
func (vm *VM) Interpret(fn heap.Handle) error {
	vm.push(heap.Object(fn))
	closure := vm.heap.NewClosure(heap.ClosureObject{Function: fn})
	vm.pop()
	vm.push(heap.Object(closure))
	err := vm.call(closure, 0)
	if err == nil {
		err = vm.run()
	}
	if err != nil {
		// Drop the aborted frames so a later Interpret starts from an empty
		// stack instead of resuming them once its own script returns.
		vm.resetStack()
	}
	return err
}

func (vm *VM) currentFrame() *frame {
	return &vm.frames[vm.frameCount-1]
}

func (vm *VM) currentFunction(f *frame) *heap.FunctionObject {
	closure := vm.heap.Closures.Get(f.closure)
	return vm.heap.Functions.Get(closure.Function)
}

func (vm *VM) lineAt(f *frame) int {
	fn := vm.currentFunction(f)
	ip := f.ip - 1
	if ip < 0 {
		ip = 0
	}
	return bytecode.LineFor(fn.Lines, ip)
}

// runtimeError builds a RuntimeError with a stack trace walked from the
// innermost frame outward, per §7's runtime error reporting requirement.
func (vm *VM) runtimeError(format string, args ...interface{}) *errors.RuntimeError {
	line := 0
	if vm.frameCount > 0 {
		line = vm.lineAt(vm.currentFrame())
	}
	err := errors.NewRuntimeError(line, format, args...)

	var trace []errors.StackFrame
	for i := vm.frameCount - 1; i >= 0; i-- {
		f := &vm.frames[i]
		fn := vm.currentFunction(f)
		name := "script"
		if !fn.Name.IsNil() {
			name = vm.heap.StringValue(fn.Name) + "()"
		}
		trace = append(trace, errors.StackFrame{FunctionName: name, Line: vm.lineAt(f)})
	}
	return err.WithStack(trace)
}
