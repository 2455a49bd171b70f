// Package repl implements the interactive prompt described in §6: one
// compile+execute pass per line, sharing a single Heap/VM across the whole
// session so globals, classes, and interned strings persist between lines.
package repl

import (
	"bufio"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"rlox/internal/compiler"
	"rlox/internal/gc"
	"rlox/internal/heap"
	"rlox/internal/vm"
)

const prompt = "> "

var errColor = color.New(color.FgRed)

// Start runs the REPL against in/out until EOF (Ctrl-D) or a read error.
// Each line is compiled and, on success, executed against the same VM;
// compile and runtime errors are reported without ending the session.
func Start(in io.Reader, out io.Writer) {
	h := heap.New()
	machine := vm.New(h)
	machine.StdOut = func(s string) { fmt.Fprint(out, s) }
	collector := gc.New(h)
	collector.Register(machine)

	interactive := false
	if f, ok := in.(interface{ Fd() uintptr }); ok {
		interactive = isatty.IsTerminal(f.Fd())
	}

	scanner := bufio.NewScanner(in)
	for {
		if interactive {
			fmt.Fprint(out, prompt)
		}
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		if line == "" {
			continue
		}

		c := compiler.New(h, line)
		collector.Register(c)
		fn, err := c.Compile()
		unregisterLast(collector)
		if err != nil {
			errColor.Fprintln(out, err.Error())
			continue
		}

		if err := machine.Interpret(fn); err != nil {
			errColor.Fprintln(out, err.Error())
		}
	}
}

// unregisterLast drops the most recently registered root provider (the
// per-line Compiler), whose function-in-progress is either already rooted
// via the VM's globals/stack or dead once Compile returns.
func unregisterLast(c *gc.Collector) {
	c.Providers = c.Providers[:len(c.Providers)-1]
}
