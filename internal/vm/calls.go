package vm

import (
	"rlox/internal/errors"
	"rlox/internal/heap"
)

// callValue implements CALL argc's callee dispatch, per §4.6: a Closure
// pushes a new frame; a Native calls straight through; a BoundMethod
// rewrites its own stack slot to the receiver and calls the underlying
// closure; a Class allocates an Instance and, if it has an init method,
// invokes it.
func (vm *VM) callValue(callee heap.Value, argc int) error {
	if !callee.IsObject() {
		return vm.runtimeError("can only call functions and classes")
	}
	h := callee.AsHandle()
	switch h.Kind {
	case heap.KindClosure:
		return vm.call(h, argc)
	case heap.KindNative:
		return vm.callNative(h, argc)
	case heap.KindBoundMethod:
		bm := vm.heap.BoundMethods.Get(h)
		vm.stack[vm.stackTop-argc-1] = heap.Object(bm.Receiver)
		return vm.call(bm.Method, argc)
	case heap.KindClass:
		return vm.instantiate(h, argc)
	default:
		return vm.runtimeError("can only call functions and classes")
	}
}

func (vm *VM) instantiate(class heap.Handle, argc int) error {
	instance := vm.heap.NewInstance(heap.InstanceObject{Class: class})
	vm.stack[vm.stackTop-argc-1] = heap.Object(instance)

	cls := vm.heap.Classes.Get(class)
	if initializer, ok := cls.Methods[vm.heap.InitString]; ok {
		return vm.call(initializer, argc)
	}
	if argc != 0 {
		return vm.runtimeError("expected 0 arguments but got %d", argc)
	}
	return nil
}

func (vm *VM) call(closureHandle heap.Handle, argc int) error {
	closure := vm.heap.Closures.Get(closureHandle)
	fn := vm.heap.Functions.Get(closure.Function)
	if argc != fn.Arity {
		return vm.runtimeError("expected %d arguments but got %d", fn.Arity, argc)
	}
	if vm.frameCount == framesMax {
		return vm.runtimeError("stack overflow")
	}
	vm.frames[vm.frameCount] = frame{
		closure: closureHandle,
		ip:      0,
		base:    vm.stackTop - argc - 1,
	}
	vm.frameCount++
	return nil
}

func (vm *VM) callNative(h heap.Handle, argc int) error {
	native := vm.heap.Natives.Get(h)
	if native.Arity >= 0 && argc != native.Arity {
		return vm.runtimeError("expected %d arguments but got %d", native.Arity, argc)
	}
	args := make([]heap.Value, argc)
	copy(args, vm.stack[vm.stackTop-argc:vm.stackTop])
	result, err := native.Fn(args)
	if err != nil {
		traced := vm.runtimeError("%s", err.Error())
		return errors.WrapRuntimeError(err, traced.Line).WithStack(traced.CallStack)
	}
	vm.stackTop -= argc + 1
	vm.push(result)
	return nil
}

// invoke implements INVOKE name,argc's fast path: look the name up among
// the receiver's fields first (a field can shadow a method and be called
// directly), falling back to a direct method dispatch that never allocates
// a BoundMethod.
func (vm *VM) invoke(name heap.Handle, argc int) error {
	receiver := vm.peek(argc)
	if !receiver.IsObject() || receiver.AsHandle().Kind != heap.KindInstance {
		return vm.runtimeError("only instances have methods")
	}
	instance := vm.heap.Instances.Get(receiver.AsHandle())

	if field, ok := instance.Fields[name]; ok {
		vm.stack[vm.stackTop-argc-1] = field
		return vm.callValue(field, argc)
	}

	return vm.invokeFromClass(instance.Class, name, argc)
}

func (vm *VM) invokeFromClass(class, name heap.Handle, argc int) error {
	cls := vm.heap.Classes.Get(class)
	method, ok := cls.Methods[name]
	if !ok {
		return vm.runtimeError("undefined property '%s'", vm.heap.StringValue(name))
	}
	return vm.call(method, argc)
}

// bindMethod allocates a BoundMethod pairing the Instance value currently
// on top of the stack with class's method named name, replacing the
// receiver on the stack with the bound method. The receiver stays on the
// stack (peeked, not popped) until after NewBoundMethod returns, so a
// collection triggered by that allocation still finds it rooted (clox:
// newBoundMethod(peek(0), ...); pop(); push(bound)).
func (vm *VM) bindMethod(class, name heap.Handle) error {
	cls := vm.heap.Classes.Get(class)
	method, ok := cls.Methods[name]
	if !ok {
		return vm.runtimeError("undefined property '%s'", vm.heap.StringValue(name))
	}
	receiver := vm.peek(0)
	bound := vm.heap.NewBoundMethod(heap.BoundMethodObject{
		Receiver: receiver.AsHandle(),
		Method:   method,
	})
	vm.pop()
	vm.push(heap.Object(bound))
	return nil
}
