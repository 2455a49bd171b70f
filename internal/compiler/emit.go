package compiler

import (
	"rlox/internal/bytecode"
	"rlox/internal/heap"
)

func (c *Compiler) emitByte(b byte) {
	c.fn.chunk.WriteByte(b, c.line())
}

func (c *Compiler) emitOp(op bytecode.OpCode) {
	c.fn.chunk.WriteOp(op, c.line())
}

func (c *Compiler) emitOpByte(op bytecode.OpCode, operand byte) {
	c.emitOp(op)
	c.emitByte(operand)
}

func (c *Compiler) emitReturn() {
	if c.fn.kind == kindInitializer {
		c.emitOpByte(bytecode.OpGetLocal, 0)
	} else {
		c.emitOp(bytecode.OpNil)
	}
	c.emitOp(bytecode.OpReturn)
}

// emitConstant adds val to the current function's constant pool and emits
// OpConstant for it, reporting a compile error instead if the pool is full.
func (c *Compiler) emitConstant(val heap.Value) {
	idx := c.fn.chunk.AddConstant(val)
	if idx < 0 {
		c.error("too many constants in one function")
		return
	}
	c.emitOpByte(bytecode.OpConstant, byte(idx))
}

// identifierConstant interns name as a Value and adds it to the current
// function's constants, for use as a GET/SET_GLOBAL, GET/SET_PROPERTY,
// CLASS, or METHOD operand.
func (c *Compiler) identifierConstant(name string) byte {
	handle := c.heap.NewString([]byte(name))
	idx := c.fn.chunk.AddConstant(heap.Object(handle))
	if idx < 0 {
		c.error("too many constants in one function")
		return 0
	}
	return byte(idx)
}

func (c *Compiler) emitJump(op bytecode.OpCode) int {
	return c.fn.chunk.EmitJump(op, c.line())
}

func (c *Compiler) patchJump(offset int) {
	if err := c.fn.chunk.PatchJump(offset); err != nil {
		c.error(err.Error())
	}
}

func (c *Compiler) emitLoop(loopStart int) {
	if err := c.fn.chunk.EmitLoop(loopStart, c.line()); err != nil {
		c.error(err.Error())
	}
}
