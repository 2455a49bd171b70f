package compiler

import (
	"rlox/internal/bytecode"
	"rlox/internal/heap"
	"rlox/internal/lexer"
)

func (c *Compiler) declaration() {
	switch {
	case c.match(lexer.Class):
		c.classDeclaration()
	case c.match(lexer.Fun):
		c.funDeclaration()
	case c.match(lexer.Var):
		c.varDeclaration()
	default:
		c.statement()
	}
	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) statement() {
	switch {
	case c.match(lexer.Print):
		c.printStatement()
	case c.match(lexer.If):
		c.ifStatement()
	case c.match(lexer.While):
		c.whileStatement()
	case c.match(lexer.For):
		c.forStatement()
	case c.match(lexer.Return):
		c.returnStatement()
	case c.match(lexer.LeftBrace):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) block() {
	for !c.check(lexer.RightBrace) && !c.check(lexer.EOF) {
		c.declaration()
	}
	c.consume(lexer.RightBrace, "expect '}' after block")
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(lexer.Semicolon, "expect ';' after value")
	c.emitOp(bytecode.OpPrint)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(lexer.Semicolon, "expect ';' after expression")
	c.emitOp(bytecode.OpPop)
}

func (c *Compiler) ifStatement() {
	c.consume(lexer.LeftParen, "expect '(' after 'if'")
	c.expression()
	c.consume(lexer.RightParen, "expect ')' after condition")

	thenJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emitOp(bytecode.OpPop)
	c.statement()

	elseJump := c.emitJump(bytecode.OpJump)
	c.patchJump(thenJump)
	c.emitOp(bytecode.OpPop)

	if c.match(lexer.Else) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.fn.chunk.Code)
	c.consume(lexer.LeftParen, "expect '(' after 'while'")
	c.expression()
	c.consume(lexer.RightParen, "expect ')' after condition")

	exitJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emitOp(bytecode.OpPop)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(bytecode.OpPop)
}

// forStatement desugars to the equivalent while loop: its own scope holds
// the initializer, a JumpIfFalse/Pop pair tests the condition, and the
// increment is emitted before the body but jumped around on entry; the body
// loops back to it, and it loops back to the condition.
func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(lexer.LeftParen, "expect '(' after 'for'")

	switch {
	case c.match(lexer.Semicolon):
		// no initializer
	case c.match(lexer.Var):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := len(c.fn.chunk.Code)
	exitJump := -1
	if !c.match(lexer.Semicolon) {
		c.expression()
		c.consume(lexer.Semicolon, "expect ';' after loop condition")
		exitJump = c.emitJump(bytecode.OpJumpIfFalse)
		c.emitOp(bytecode.OpPop)
	}

	if !c.match(lexer.RightParen) {
		bodyJump := c.emitJump(bytecode.OpJump)
		incrementStart := len(c.fn.chunk.Code)
		c.expression()
		c.emitOp(bytecode.OpPop)
		c.consume(lexer.RightParen, "expect ')' after for clauses")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(bytecode.OpPop)
	}
	c.endScope()
}

func (c *Compiler) returnStatement() {
	if c.fn.kind == kindScript {
		c.error("can't return from top-level code")
	}
	if c.match(lexer.Semicolon) {
		c.emitReturn()
		return
	}
	if c.fn.kind == kindInitializer {
		c.error("can't return a value from an initializer")
	}
	c.expression()
	c.consume(lexer.Semicolon, "expect ';' after return value")
	c.emitOp(bytecode.OpReturn)
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("expect variable name")

	if c.match(lexer.Equal) {
		c.expression()
	} else {
		c.emitOp(bytecode.OpNil)
	}
	c.consume(lexer.Semicolon, "expect ';' after variable declaration")
	c.defineVariable(global)
}

// parseVariable consumes an identifier, declaring it as a local (if we're
// inside a scope) and returning the constant-pool index to use with
// DEFINE_GLOBAL when it isn't.
func (c *Compiler) parseVariable(message string) byte {
	c.consume(lexer.Identifier, message)
	name := c.lexeme(c.previous)
	c.declareLocal(name)
	if c.fn.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(name)
}

func (c *Compiler) defineVariable(global byte) {
	if c.fn.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitOpByte(bytecode.OpDefineGlobal, global)
}

func (c *Compiler) funDeclaration() {
	global := c.parseVariable("expect function name")
	c.markInitialized()
	c.function(kindFunction)
	c.defineVariable(global)
}

// function compiles one function literal (parameter list plus body) in a
// fresh funcState, emitting OpClosure with its upvalue-capture operands
// back in the enclosing context once the body is done.
func (c *Compiler) function(kind funcKind) {
	name := ""
	if kind != kindScript {
		name = c.lexeme(c.previous)
	}
	c.pushFunc(kind, name)
	c.beginScope()

	c.consume(lexer.LeftParen, "expect '(' after function name")
	if !c.check(lexer.RightParen) {
		for {
			c.fn.arity++
			if c.fn.arity > 255 {
				c.errorAtCurrent("can't have more than 255 parameters")
			}
			paramConst := c.parseVariable("expect parameter name")
			c.defineVariable(paramConst)
			if !c.match(lexer.Comma) {
				break
			}
		}
	}
	c.consume(lexer.RightParen, "expect ')' after parameters")
	c.consume(lexer.LeftBrace, "expect '{' before function body")
	c.block()

	fs := c.fn
	handle := c.endFunc()

	idx := c.fn.chunk.AddConstant(heap.Object(handle))
	if idx < 0 {
		c.error("too many constants in one function")
		return
	}
	c.emitOpByte(bytecode.OpClosure, byte(idx))
	for _, uv := range fs.upvalues {
		if uv.isLocal {
			c.emitByte(1)
		} else {
			c.emitByte(0)
		}
		c.emitByte(uv.index)
	}
}
