package compiler

import (
	"strconv"

	"rlox/internal/bytecode"
	"rlox/internal/heap"
	"rlox/internal/lexer"
)

type precedence int

const (
	precNone       precedence = iota
	precAssignment            // =
	precOr                    // or
	precAnd                   // and
	precEquality              // == !=
	precComparison            // < > <= >=
	precTerm                  // + -
	precFactor                // * /
	precUnary                 // ! -
	precCall                  // . ()
	precPrimary
)

type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence precedence
}

var rules map[lexer.TokenType]parseRule

func init() {
	rules = map[lexer.TokenType]parseRule{
		lexer.LeftParen:    {prefix: (*Compiler).grouping, infix: (*Compiler).call, precedence: precCall},
		lexer.Dot:          {infix: (*Compiler).dot, precedence: precCall},
		lexer.Minus:        {prefix: (*Compiler).unary, infix: (*Compiler).binary, precedence: precTerm},
		lexer.Plus:         {infix: (*Compiler).binary, precedence: precTerm},
		lexer.Slash:        {infix: (*Compiler).binary, precedence: precFactor},
		lexer.Star:         {infix: (*Compiler).binary, precedence: precFactor},
		lexer.Bang:         {prefix: (*Compiler).unary},
		lexer.BangEqual:    {infix: (*Compiler).binary, precedence: precEquality},
		lexer.EqualEqual:   {infix: (*Compiler).binary, precedence: precEquality},
		lexer.Greater:      {infix: (*Compiler).binary, precedence: precComparison},
		lexer.GreaterEqual: {infix: (*Compiler).binary, precedence: precComparison},
		lexer.Less:         {infix: (*Compiler).binary, precedence: precComparison},
		lexer.LessEqual:    {infix: (*Compiler).binary, precedence: precComparison},
		lexer.Identifier:   {prefix: (*Compiler).variable},
		lexer.String:       {prefix: (*Compiler).stringLiteral},
		lexer.Number:       {prefix: (*Compiler).number},
		lexer.And:          {infix: (*Compiler).and, precedence: precAnd},
		lexer.Or:           {infix: (*Compiler).or, precedence: precOr},
		lexer.Fun:          {prefix: (*Compiler).funExpression},
		lexer.False:        {prefix: (*Compiler).literal},
		lexer.True:         {prefix: (*Compiler).literal},
		lexer.Nil:          {prefix: (*Compiler).literal},
		lexer.This:         {prefix: (*Compiler).this},
		lexer.Super:        {prefix: (*Compiler).super},
	}
}

func getRule(t lexer.TokenType) parseRule {
	return rules[t]
}

func (c *Compiler) expression() {
	c.parsePrecedence(precAssignment)
}

func (c *Compiler) parsePrecedence(prec precedence) {
	c.advance()
	rule := getRule(c.previous.Type)
	if rule.prefix == nil {
		c.error("expect expression")
		return
	}
	canAssign := prec <= precAssignment
	rule.prefix(c, canAssign)

	for prec <= getRule(c.current.Type).precedence {
		c.advance()
		infix := getRule(c.previous.Type).infix
		infix(c, canAssign)
	}

	if canAssign && c.match(lexer.Equal) {
		c.error("invalid assignment target")
	}
}

func (c *Compiler) number(canAssign bool) {
	text := c.lexeme(c.previous)
	n, _ := strconv.ParseFloat(text, 64)
	c.emitConstant(heap.Number(n))
}

func (c *Compiler) stringLiteral(canAssign bool) {
	tok := c.previous
	raw := c.lexeme(tok)
	// strip surrounding quotes
	content := raw[1 : len(raw)-1]
	handle := c.heap.NewString([]byte(content))
	c.emitConstant(heap.Object(handle))
}

func (c *Compiler) literal(canAssign bool) {
	switch c.previous.Type {
	case lexer.False:
		c.emitOp(bytecode.OpFalse)
	case lexer.True:
		c.emitOp(bytecode.OpTrue)
	case lexer.Nil:
		c.emitOp(bytecode.OpNil)
	}
}

// funExpression compiles an anonymous `fun (params) { body }` literal in
// expression position, leaving the new closure on the stack. The literal has
// no name of its own, so it takes the text of the `fun` keyword as its name.
func (c *Compiler) funExpression(canAssign bool) {
	c.function(kindFunction)
}

func (c *Compiler) grouping(canAssign bool) {
	c.expression()
	c.consume(lexer.RightParen, "expect ')' after expression")
}

func (c *Compiler) unary(canAssign bool) {
	op := c.previous.Type
	c.parsePrecedence(precUnary)
	switch op {
	case lexer.Minus:
		c.emitOp(bytecode.OpNegate)
	case lexer.Bang:
		c.emitOp(bytecode.OpNot)
	}
}

func (c *Compiler) binary(canAssign bool) {
	op := c.previous.Type
	rule := getRule(op)
	c.parsePrecedence(rule.precedence + 1)
	switch op {
	case lexer.BangEqual:
		c.emitOp(bytecode.OpEqual)
		c.emitOp(bytecode.OpNot)
	case lexer.EqualEqual:
		c.emitOp(bytecode.OpEqual)
	case lexer.Greater:
		c.emitOp(bytecode.OpGreater)
	case lexer.GreaterEqual:
		c.emitOp(bytecode.OpLess)
		c.emitOp(bytecode.OpNot)
	case lexer.Less:
		c.emitOp(bytecode.OpLess)
	case lexer.LessEqual:
		c.emitOp(bytecode.OpGreater)
		c.emitOp(bytecode.OpNot)
	case lexer.Plus:
		c.emitOp(bytecode.OpAdd)
	case lexer.Minus:
		c.emitOp(bytecode.OpSubtract)
	case lexer.Star:
		c.emitOp(bytecode.OpMultiply)
	case lexer.Slash:
		c.emitOp(bytecode.OpDivide)
	}
}

func (c *Compiler) and(canAssign bool) {
	endJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emitOp(bytecode.OpPop)
	c.parsePrecedence(precAnd)
	c.patchJump(endJump)
}

func (c *Compiler) or(canAssign bool) {
	elseJump := c.emitJump(bytecode.OpJumpIfFalse)
	endJump := c.emitJump(bytecode.OpJump)
	c.patchJump(elseJump)
	c.emitOp(bytecode.OpPop)
	c.parsePrecedence(precOr)
	c.patchJump(endJump)
}

func (c *Compiler) call(canAssign bool) {
	argc := c.argumentList()
	c.emitOpByte(bytecode.OpCall, argc)
}

func (c *Compiler) argumentList() byte {
	var count int
	if !c.check(lexer.RightParen) {
		for {
			c.expression()
			if count == 255 {
				c.error("can't have more than 255 arguments")
			}
			count++
			if !c.match(lexer.Comma) {
				break
			}
		}
	}
	c.consume(lexer.RightParen, "expect ')' after arguments")
	return byte(count)
}

func (c *Compiler) dot(canAssign bool) {
	c.consume(lexer.Identifier, "expect property name after '.'")
	name := c.identifierConstant(c.lexeme(c.previous))

	switch {
	case canAssign && c.match(lexer.Equal):
		c.expression()
		c.emitOpByte(bytecode.OpSetProperty, name)
	case c.match(lexer.LeftParen):
		argc := c.argumentList()
		c.emitOpByte(bytecode.OpInvoke, name)
		c.emitByte(argc)
	default:
		c.emitOpByte(bytecode.OpGetProperty, name)
	}
}

func (c *Compiler) variable(canAssign bool) {
	c.namedVariable(c.lexeme(c.previous), canAssign)
}

// namedVariable implements §4.5's resolution order: local, then upvalue,
// then global.
func (c *Compiler) namedVariable(name string, canAssign bool) {
	var getOp, setOp bytecode.OpCode
	var arg int

	if idx := resolveLocal(c.fn, name); idx != -1 {
		if c.fn.locals[idx].depth == -1 {
			c.error("can't read local variable in its own initializer")
		}
		getOp, setOp, arg = bytecode.OpGetLocal, bytecode.OpSetLocal, idx
	} else if idx := resolveUpvalue(c, c.fn, name); idx != -1 {
		getOp, setOp, arg = bytecode.OpGetUpvalue, bytecode.OpSetUpvalue, idx
	} else {
		arg = int(c.identifierConstant(name))
		getOp, setOp = bytecode.OpGetGlobal, bytecode.OpSetGlobal
	}

	if canAssign && c.match(lexer.Equal) {
		c.expression()
		c.emitOpByte(setOp, byte(arg))
	} else {
		c.emitOpByte(getOp, byte(arg))
	}
}

func (c *Compiler) this(canAssign bool) {
	if c.class == nil {
		c.error("can't use 'this' outside of a class")
		return
	}
	c.variable(false)
}

func (c *Compiler) super(canAssign bool) {
	if c.class == nil {
		c.error("can't use 'super' outside of a class")
	} else if !c.class.hasSuperclass {
		c.error("can't use 'super' in a class with no superclass")
	}
	c.consume(lexer.Dot, "expect '.' after 'super'")
	c.consume(lexer.Identifier, "expect superclass method name")
	name := c.identifierConstant(c.lexeme(c.previous))

	c.namedVariable("this", false)
	if c.match(lexer.LeftParen) {
		argc := c.argumentList()
		c.namedVariable("super", false)
		c.emitOpByte(bytecode.OpSuperInvoke, name)
		c.emitByte(argc)
	} else {
		c.namedVariable("super", false)
		c.emitOpByte(bytecode.OpGetSuper, name)
	}
}
