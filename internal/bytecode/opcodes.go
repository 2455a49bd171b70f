// Package bytecode defines the instruction set and the per-function code
// buffer the compiler emits into and the VM executes.
package bytecode

type OpCode byte

const (
	OpConstant OpCode = iota
	OpNil
	OpTrue
	OpFalse
	OpPop

	OpGetLocal
	OpSetLocal
	OpGetGlobal
	OpSetGlobal
	OpDefineGlobal
	OpGetUpvalue
	OpSetUpvalue
	OpGetProperty
	OpSetProperty
	OpGetSuper

	OpEqual
	OpGreater
	OpLess
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpNot
	OpNegate

	OpPrint

	OpJump
	OpJumpIfFalse
	OpLoop

	OpCall
	OpInvoke
	OpSuperInvoke
	OpClosure
	OpCloseUpvalue
	OpReturn

	OpClass
	OpInherit
	OpMethod
)

func (op OpCode) String() string {
	names := [...]string{
		"CONSTANT", "NIL", "TRUE", "FALSE", "POP",
		"GET_LOCAL", "SET_LOCAL", "GET_GLOBAL", "SET_GLOBAL", "DEFINE_GLOBAL",
		"GET_UPVALUE", "SET_UPVALUE", "GET_PROPERTY", "SET_PROPERTY", "GET_SUPER",
		"EQUAL", "GREATER", "LESS", "ADD", "SUBTRACT", "MULTIPLY", "DIVIDE", "NOT", "NEGATE",
		"PRINT",
		"JUMP", "JUMP_IF_FALSE", "LOOP",
		"CALL", "INVOKE", "SUPER_INVOKE", "CLOSURE", "CLOSE_UPVALUE", "RETURN",
		"CLASS", "INHERIT", "METHOD",
	}
	if int(op) < len(names) {
		return names[op]
	}
	return "UNKNOWN_OP"
}
