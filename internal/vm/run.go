package vm

import (
	"fmt"
	"math"

	"rlox/internal/bytecode"
	"rlox/internal/heap"
)

// run is the dispatch loop: it decodes one instruction at a time from the
// current frame's function code and executes it per §4.4/§4.6. Side
// effects happen strictly in program order; the only suspension point is
// the GC, which only ever runs underneath an allocating op at a safe
// point between instructions.
func (vm *VM) run() error {
	f := vm.currentFrame()
	fn := vm.currentFunction(f)

	readByte := func() byte {
		b := fn.Code[f.ip]
		f.ip++
		return b
	}
	readShort := func() int {
		hi := fn.Code[f.ip]
		lo := fn.Code[f.ip+1]
		f.ip += 2
		return int(hi)<<8 | int(lo)
	}
	readConstant := func() heap.Value {
		return fn.Constants[readByte()]
	}
	readString := func() heap.Handle {
		return readConstant().AsHandle()
	}

	for {
		op := bytecode.OpCode(readByte())
		switch op {
		case bytecode.OpConstant:
			vm.push(readConstant())

		case bytecode.OpNil:
			vm.push(heap.Nil)
		case bytecode.OpTrue:
			vm.push(heap.Bool(true))
		case bytecode.OpFalse:
			vm.push(heap.Bool(false))
		case bytecode.OpPop:
			vm.pop()

		case bytecode.OpGetLocal:
			slot := readByte()
			vm.push(vm.stack[f.base+int(slot)])
		case bytecode.OpSetLocal:
			slot := readByte()
			vm.stack[f.base+int(slot)] = vm.peek(0)

		case bytecode.OpGetGlobal:
			name := readString()
			v, ok := vm.globals[name]
			if !ok {
				return vm.runtimeError("undefined variable '%s'", vm.heap.StringValue(name))
			}
			vm.push(v)
		case bytecode.OpSetGlobal:
			name := readString()
			if _, ok := vm.globals[name]; !ok {
				return vm.runtimeError("undefined variable '%s'", vm.heap.StringValue(name))
			}
			vm.globals[name] = vm.peek(0)
		case bytecode.OpDefineGlobal:
			name := readString()
			vm.globals[name] = vm.pop()

		case bytecode.OpGetUpvalue:
			idx := readByte()
			closure := vm.heap.Closures.Get(f.closure)
			uv := vm.heap.Upvalues.Get(closure.Upvalues[idx])
			if uv.Open {
				vm.push(vm.stack[uv.StackIndex])
			} else {
				vm.push(uv.Closed)
			}
		case bytecode.OpSetUpvalue:
			idx := readByte()
			closure := vm.heap.Closures.Get(f.closure)
			uv := vm.heap.Upvalues.Get(closure.Upvalues[idx])
			if uv.Open {
				vm.stack[uv.StackIndex] = vm.peek(0)
			} else {
				uv.Closed = vm.peek(0)
			}

		case bytecode.OpGetProperty:
			name := readString()
			recv := vm.peek(0)
			if !recv.IsObject() || recv.AsHandle().Kind != heap.KindInstance {
				return vm.runtimeError("only instances have properties")
			}
			instance := vm.heap.Instances.Get(recv.AsHandle())
			if v, ok := instance.Fields[name]; ok {
				vm.pop()
				vm.push(v)
				break
			}
			if err := vm.bindMethod(instance.Class, name); err != nil {
				return err
			}

		case bytecode.OpSetProperty:
			name := readString()
			recv := vm.peek(1)
			if !recv.IsObject() || recv.AsHandle().Kind != heap.KindInstance {
				return vm.runtimeError("only instances have fields")
			}
			instance := vm.heap.Instances.Get(recv.AsHandle())
			instance.Fields[name] = vm.peek(0)
			v := vm.pop()
			vm.pop()
			vm.push(v)

		case bytecode.OpGetSuper:
			name := readString()
			super := vm.pop()
			if err := vm.bindMethod(super.AsHandle(), name); err != nil {
				return err
			}

		case bytecode.OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(heap.Bool(heap.Equal(a, b)))
		case bytecode.OpGreater:
			if err := vm.numericBinary(func(a, b float64) heap.Value { return heap.Bool(a > b) }); err != nil {
				return err
			}
		case bytecode.OpLess:
			if err := vm.numericBinary(func(a, b float64) heap.Value { return heap.Bool(a < b) }); err != nil {
				return err
			}

		case bytecode.OpAdd:
			if err := vm.add(); err != nil {
				return err
			}
		case bytecode.OpSubtract:
			if err := vm.numericBinary(func(a, b float64) heap.Value { return heap.Number(a - b) }); err != nil {
				return err
			}
		case bytecode.OpMultiply:
			if err := vm.numericBinary(func(a, b float64) heap.Value { return heap.Number(a * b) }); err != nil {
				return err
			}
		case bytecode.OpDivide:
			if err := vm.numericBinary(func(a, b float64) heap.Value { return heap.Number(a / b) }); err != nil {
				return err
			}

		case bytecode.OpNot:
			vm.push(heap.Bool(heap.IsFalsey(vm.pop())))
		case bytecode.OpNegate:
			v := vm.peek(0)
			if !v.IsNumber() {
				return vm.runtimeError("operand must be a number")
			}
			vm.pop()
			vm.push(heap.Number(-v.AsNumber()))

		case bytecode.OpPrint:
			vm.StdOut(vm.stringify(vm.pop()) + "\n")

		case bytecode.OpJump:
			offset := readShort()
			f.ip += offset
		case bytecode.OpJumpIfFalse:
			offset := readShort()
			if heap.IsFalsey(vm.peek(0)) {
				f.ip += offset
			}
		case bytecode.OpLoop:
			offset := readShort()
			f.ip -= offset

		case bytecode.OpCall:
			argc := int(readByte())
			if err := vm.callValue(vm.peek(argc), argc); err != nil {
				return err
			}
			f = vm.currentFrame()
			fn = vm.currentFunction(f)

		case bytecode.OpInvoke:
			name := readString()
			argc := int(readByte())
			if err := vm.invoke(name, argc); err != nil {
				return err
			}
			f = vm.currentFrame()
			fn = vm.currentFunction(f)

		case bytecode.OpSuperInvoke:
			name := readString()
			argc := int(readByte())
			super := vm.pop()
			if err := vm.invokeFromClass(super.AsHandle(), name, argc); err != nil {
				return err
			}
			f = vm.currentFrame()
			fn = vm.currentFunction(f)

		case bytecode.OpClosure:
			fnValue := readConstant()
			fnHandle := fnValue.AsHandle()
			target := vm.heap.Functions.Get(fnHandle)
			upvalues := make([]heap.Handle, target.UpvalueCount)
			for i := 0; i < target.UpvalueCount; i++ {
				isLocal := readByte()
				index := readByte()
				if isLocal == 1 {
					upvalues[i] = vm.captureUpvalue(f.base + int(index))
				} else {
					closure := vm.heap.Closures.Get(f.closure)
					upvalues[i] = closure.Upvalues[index]
				}
			}
			closureHandle := vm.heap.NewClosure(heap.ClosureObject{Function: fnHandle, Upvalues: upvalues})
			vm.push(heap.Object(closureHandle))

		case bytecode.OpCloseUpvalue:
			vm.closeUpvalues(vm.stackTop - 1)
			vm.pop()

		case bytecode.OpReturn:
			result := vm.pop()
			vm.closeUpvalues(f.base)
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return nil
			}
			vm.stackTop = f.base
			vm.push(result)
			f = vm.currentFrame()
			fn = vm.currentFunction(f)

		case bytecode.OpClass:
			name := readString()
			handle := vm.heap.NewClass(heap.ClassObject{Name: name})
			vm.push(heap.Object(handle))

		case bytecode.OpInherit:
			super := vm.peek(1)
			if !super.IsObject() || super.AsHandle().Kind != heap.KindClass {
				return vm.runtimeError("superclass must be a class")
			}
			superclass := vm.heap.Classes.Get(super.AsHandle())
			subclass := vm.heap.Classes.Get(vm.peek(0).AsHandle())
			for name, method := range superclass.Methods {
				subclass.Methods[name] = method
			}
			vm.pop() // drop the extra subclass reference pushed for this opcode; the superclass stays bound to "super"

		case bytecode.OpMethod:
			name := readString()
			method := vm.pop()
			class := vm.heap.Classes.Get(vm.peek(0).AsHandle())
			class.Methods[name] = method.AsHandle()

		default:
			return vm.runtimeError("unknown opcode %d", op)
		}
	}
}

func (vm *VM) numericBinary(op func(a, b float64) heap.Value) error {
	b := vm.peek(0)
	a := vm.peek(1)
	if !a.IsNumber() || !b.IsNumber() {
		return vm.runtimeError("operands must be numbers")
	}
	vm.pop()
	vm.pop()
	vm.push(op(a.AsNumber(), b.AsNumber()))
	return nil
}

// add implements the one polymorphic arithmetic op: number+number or
// string+string (concatenation, allocating a freshly interned String).
func (vm *VM) add() error {
	b := vm.peek(0)
	a := vm.peek(1)
	switch {
	case a.IsNumber() && b.IsNumber():
		vm.pop()
		vm.pop()
		vm.push(heap.Number(a.AsNumber() + b.AsNumber()))
	case a.IsString() && b.IsString():
		vm.pop()
		vm.pop()
		vm.push(heap.Object(vm.heap.Concat(a.AsHandle(), b.AsHandle())))
	default:
		return vm.runtimeError("operands must be two numbers or two strings")
	}
	return nil
}

func (vm *VM) stringify(v heap.Value) string {
	switch v.Kind() {
	case heap.KindNil:
		return "nil"
	case heap.KindBool:
		return fmt.Sprintf("%t", v.AsBool())
	case heap.KindNumber:
		n := v.AsNumber()
		if math.IsInf(n, 1) {
			return "inf"
		}
		if math.IsInf(n, -1) {
			return "-inf"
		}
		if n == math.Trunc(n) && math.Abs(n) < 1e15 {
			return fmt.Sprintf("%d", int64(n))
		}
		return fmt.Sprintf("%g", n)
	case heap.KindString:
		return vm.heap.StringValue(v.AsHandle())
	case heap.KindFunction:
		fn := vm.heap.Functions.Get(v.AsHandle())
		return vm.funcName(fn)
	case heap.KindNative:
		return "<native fn>"
	case heap.KindClosure:
		closure := vm.heap.Closures.Get(v.AsHandle())
		fn := vm.heap.Functions.Get(closure.Function)
		return vm.funcName(fn)
	case heap.KindClass:
		cls := vm.heap.Classes.Get(v.AsHandle())
		return vm.heap.StringValue(cls.Name)
	case heap.KindInstance:
		inst := vm.heap.Instances.Get(v.AsHandle())
		cls := vm.heap.Classes.Get(inst.Class)
		return vm.heap.StringValue(cls.Name) + " instance"
	case heap.KindBoundMethod:
		bm := vm.heap.BoundMethods.Get(v.AsHandle())
		closure := vm.heap.Closures.Get(bm.Method)
		fn := vm.heap.Functions.Get(closure.Function)
		return vm.funcName(fn)
	default:
		return "<value>"
	}
}

func (vm *VM) funcName(fn *heap.FunctionObject) string {
	if fn.Name.IsNil() {
		return "<script>"
	}
	return "<fn " + vm.heap.StringValue(fn.Name) + ">"
}
