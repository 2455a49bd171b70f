package compiler

import (
	"rlox/internal/bytecode"
	"rlox/internal/lexer"
)

// classDeclaration implements §4.5's class-declaration production: emit
// CLASS, optionally wire up a superclass (pushing an implicit `super`
// local and emitting INHERIT), then compile each method as a closure
// followed by METHOD, leaving the class itself on the stack throughout so
// METHOD can find it at second-from-top.
func (c *Compiler) classDeclaration() {
	c.consume(lexer.Identifier, "expect class name")
	nameTok := c.previous
	className := c.lexeme(nameTok)
	nameConst := c.identifierConstant(className)
	c.declareLocal(className)

	c.emitOpByte(bytecode.OpClass, nameConst)
	c.defineVariable(nameConst)

	cs := &classState{enclosing: c.class}
	c.class = cs

	if c.match(lexer.Less) {
		c.consume(lexer.Identifier, "expect superclass name")
		if c.lexeme(c.previous) == className {
			c.error("a class can't inherit from itself")
		}
		c.variable(false) // pushes the superclass value

		c.beginScope()
		c.addLocal("super")
		c.defineVariable(0)

		c.namedVariable(className, false)
		c.emitOp(bytecode.OpInherit)
		cs.hasSuperclass = true
	}

	c.namedVariable(className, false)
	c.consume(lexer.LeftBrace, "expect '{' before class body")
	for !c.check(lexer.RightBrace) && !c.check(lexer.EOF) {
		c.method()
	}
	c.consume(lexer.RightBrace, "expect '}' after class body")
	c.emitOp(bytecode.OpPop) // discard the class value pushed for METHOD

	if cs.hasSuperclass {
		c.endScope()
	}
	c.class = c.class.enclosing
}

func (c *Compiler) method() {
	c.consume(lexer.Identifier, "expect method name")
	name := c.lexeme(c.previous)
	nameConst := c.identifierConstant(name)

	kind := kindMethod
	if name == "init" {
		kind = kindInitializer
	}
	c.function(kind)
	c.emitOpByte(bytecode.OpMethod, nameConst)
}
