// Package compiler implements rlox's single-pass compiler: a Pratt parser
// that emits bytecode directly as it recognizes productions, with no
// intermediate AST. Locals, upvalues, jump targets, and class/superclass
// wiring are all resolved inline; see funcState and classState below for the
// bookkeeping that makes that possible in one pass.
package compiler

import (
	"fmt"

	"rlox/internal/bytecode"
	"rlox/internal/errors"
	"rlox/internal/heap"
	"rlox/internal/lexer"
)

const maxLocals = 256
const maxUpvalues = 256

type funcKind int

const (
	kindFunction funcKind = iota
	kindInitializer
	kindMethod
	kindScript
)

type local struct {
	name       string
	depth      int // -1 means "declared but not yet initialized"
	isCaptured bool
}

type upvalueDesc struct {
	index   uint8
	isLocal bool
}

// funcState is one nested compilation context: one per function/method
// literal being compiled, plus the implicit one for top-level script code.
// funcState forms a stack via enclosing, mirroring the nesting of `fun`
// declarations in the source.
type funcState struct {
	enclosing *funcState
	kind      funcKind
	name      string

	chunk *bytecode.Chunk
	arity int

	locals     []local
	upvalues   []upvalueDesc
	scopeDepth int
}

// classState tracks the innermost enclosing class declaration, so `this`
// and `super` can be validated and `super` resolved as an implicit local.
type classState struct {
	enclosing     *classState
	hasSuperclass bool
}

// Compiler holds all state for one compile pass: the token cursor, the
// stack of in-progress functions, the stack of in-progress classes, and
// accumulated diagnostics. A Compiler compiles exactly one source unit;
// the REPL constructs a fresh one per line but shares the Heap so globals
// and interned strings persist.
type Compiler struct {
	heap    *heap.Heap
	scanner *lexer.Scanner
	source  string

	previous lexer.Token
	current  lexer.Token

	fn    *funcState
	class *classState

	hadError  bool
	panicMode bool
	errs      errors.CompileErrors
}

// New creates a compiler for source, ready to Compile it into a top-level
// Function object rooted in h.
func New(h *heap.Heap, source string) *Compiler {
	c := &Compiler{heap: h, scanner: lexer.New(source), source: source}
	c.pushFunc(kindScript, "")
	return c
}

// GCRoots implements gc.RootProvider: while compiling, the function(s) under
// construction aren't heap objects yet, so the collector must be told
// directly about every value already sitting in their in-progress constant
// pools (interned identifier and string constants, finished nested
// functions).
func (c *Compiler) GCRoots() []heap.Value {
	var roots []heap.Value
	for fs := c.fn; fs != nil; fs = fs.enclosing {
		for _, v := range fs.chunk.Constants {
			roots = append(roots, v)
		}
	}
	return roots
}

// Compile runs the whole source through the parser, returning the
// top-level script Function handle on success or the accumulated
// CompileErrors on failure.
func (c *Compiler) Compile() (heap.Handle, error) {
	c.advance()
	for !c.match(lexer.EOF) {
		c.declaration()
	}
	fn := c.endFunc()
	if len(c.errs) > 0 {
		return heap.Handle{}, c.errs
	}
	return fn, nil
}

func (c *Compiler) pushFunc(kind funcKind, name string) {
	fs := &funcState{enclosing: c.fn, kind: kind, name: name, chunk: bytecode.NewChunk()}
	// Slot 0 is reserved: `this` for methods/initializers, the callee
	// itself otherwise (never directly addressable by source names).
	slotName := ""
	if kind == kindMethod || kind == kindInitializer {
		slotName = "this"
	}
	fs.locals = append(fs.locals, local{name: slotName, depth: 0})
	c.fn = fs
}

func (c *Compiler) endFunc() heap.Handle {
	c.emitReturn()
	fs := c.fn
	var nameHandle heap.Handle
	if fs.name != "" {
		nameHandle = c.heap.NewString([]byte(fs.name))
	}
	obj := fs.chunk.Freeze(nameHandle, fs.arity, len(fs.upvalues))
	handle := c.heap.NewFunction(obj)
	c.fn = fs.enclosing
	return handle
}

func (c *Compiler) line() int {
	return c.scanner.Line(c.previous.Offset)
}

func (c *Compiler) lexeme(t lexer.Token) string {
	return c.scanner.Lexeme(t)
}

// --- token cursor -----------------------------------------------------

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.scanner.Next()
		if c.current.Type != lexer.Error {
			break
		}
		c.errorAtCurrent(c.current.Message)
	}
}

func (c *Compiler) check(t lexer.TokenType) bool {
	return c.current.Type == t
}

func (c *Compiler) match(t lexer.TokenType) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(t lexer.TokenType, message string) {
	if c.current.Type == t {
		c.advance()
		return
	}
	c.errorAtCurrent(message)
}

// --- error reporting / panic-mode recovery -----------------------------

func (c *Compiler) errorAtCurrent(message string) {
	c.errorAt(c.current, message)
}

func (c *Compiler) error(message string) {
	c.errorAt(c.previous, message)
}

func (c *Compiler) errorAt(tok lexer.Token, message string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true

	line := c.line()
	if tok.Offset >= 0 {
		line = c.scanner.Line(tok.Offset)
	}
	where := ""
	switch {
	case tok.Type == lexer.EOF:
		where = " at end"
	case tok.Type == lexer.Error:
		// message is the scan error itself
	default:
		where = fmt.Sprintf(" at '%s'", c.lexeme(tok))
	}
	c.errs = append(c.errs, &errors.CompileError{Line: line, Message: message + where})
}

// synchronize resynchronizes after a parse error by discarding tokens
// until a likely statement boundary: a semicolon, or a keyword that can
// start a new statement.
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.current.Type != lexer.EOF {
		if c.previous.Type == lexer.Semicolon {
			return
		}
		switch c.current.Type {
		case lexer.Class, lexer.Fun, lexer.Var, lexer.For, lexer.If,
			lexer.While, lexer.Print, lexer.Return:
			return
		}
		c.advance()
	}
}
