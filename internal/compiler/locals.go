package compiler

import "rlox/internal/bytecode"

func (c *Compiler) beginScope() {
	c.fn.scopeDepth++
}

// endScope pops every local declared at the scope being closed. A captured
// local gets OpCloseUpvalue (so any closure over it keeps a live copy
// instead of a dangling stack reference); an uncaptured one just needs
// OpPop.
func (c *Compiler) endScope() {
	fs := c.fn
	fs.scopeDepth--
	for len(fs.locals) > 0 && fs.locals[len(fs.locals)-1].depth > fs.scopeDepth {
		if fs.locals[len(fs.locals)-1].isCaptured {
			c.emitOp(bytecode.OpCloseUpvalue)
		} else {
			c.emitOp(bytecode.OpPop)
		}
		fs.locals = fs.locals[:len(fs.locals)-1]
	}
}

// declareLocal registers name as a new local in the current scope. It is
// left uninitialized (depth -1) until markInitialized runs, so that a
// local's own initializer expression can't refer to itself (`var a = a;`
// inside a local scope is a compile error).
func (c *Compiler) declareLocal(name string) {
	if c.fn.scopeDepth == 0 {
		return
	}
	for i := len(c.fn.locals) - 1; i >= 0; i-- {
		l := c.fn.locals[i]
		if l.depth != -1 && l.depth < c.fn.scopeDepth {
			break
		}
		if l.name == name {
			c.error("already a variable with this name in this scope")
			return
		}
	}
	c.addLocal(name)
}

func (c *Compiler) addLocal(name string) {
	if len(c.fn.locals) >= maxLocals {
		c.error("too many local variables in function")
		return
	}
	c.fn.locals = append(c.fn.locals, local{name: name, depth: -1})
}

func (c *Compiler) markInitialized() {
	if c.fn.scopeDepth == 0 {
		return
	}
	c.fn.locals[len(c.fn.locals)-1].depth = c.fn.scopeDepth
}

// resolveLocal walks fs's locals from the top (innermost first). Returns
// -1 if name isn't a local of fs.
func resolveLocal(fs *funcState, name string) int {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].name == name {
			return i
		}
	}
	return -1
}

// resolveUpvalue looks for name as a local of some enclosing function,
// adding an upvalue descriptor to every intermediate context on the way
// back out, per §4.5's variable resolution order.
func resolveUpvalue(c *Compiler, fs *funcState, name string) int {
	if fs.enclosing == nil {
		return -1
	}
	if idx := resolveLocal(fs.enclosing, name); idx != -1 {
		fs.enclosing.locals[idx].isCaptured = true
		return addUpvalue(c, fs, uint8(idx), true)
	}
	if idx := resolveUpvalue(c, fs.enclosing, name); idx != -1 {
		return addUpvalue(c, fs, uint8(idx), false)
	}
	return -1
}

// addUpvalue reuses an existing matching descriptor if one exists, so a
// variable captured by multiple nested closures in the same function gets
// a single upvalue slot rather than duplicates.
func addUpvalue(c *Compiler, fs *funcState, index uint8, isLocal bool) int {
	for i, uv := range fs.upvalues {
		if uv.index == index && uv.isLocal == isLocal {
			return i
		}
	}
	if len(fs.upvalues) >= maxUpvalues {
		c.error("too many closure variables in function")
		return 0
	}
	fs.upvalues = append(fs.upvalues, upvalueDesc{index: index, isLocal: isLocal})
	return len(fs.upvalues) - 1
}
