// Command rlox is the compiler+VM front end: run a script file or, given no
// arguments, start the interactive prompt.
package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"rlox/internal/compiler"
	"rlox/internal/gc"
	"rlox/internal/heap"
	"rlox/internal/repl"
	"rlox/internal/vm"
)

const (
	exitCompileError = 65
	exitRuntimeError = 70
)

var (
	stressGC bool
	traceGC  bool
)

func main() {
	root := &cobra.Command{
		Use:   "rlox [script]",
		Short: "Compile and run a script, or start the REPL with no arguments",
		Args:  cobra.MaximumNArgs(1),
		RunE:  run,
	}
	root.Flags().BoolVar(&stressGC, "stress-gc", false, "collect before every allocation, to shake out GC bugs")
	root.Flags().BoolVar(&traceGC, "trace-gc", false, "log a line for every collection")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		repl.Start(os.Stdin, os.Stdout)
		return nil
	}
	return runFile(args[0])
}

func runFile(path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read %q: %w", path, err)
	}

	h := heap.New()
	h.StressGC = stressGC
	collector := gc.New(h)

	if traceGC {
		c := color.New(color.FgCyan)
		collectCount := 0
		origCollect := h.CollectFn
		h.CollectFn = func() {
			origCollect()
			collectCount++
			c.Fprintf(os.Stderr, "gc #%d: freed %s, live %s, threshold %s\n",
				collectCount,
				humanize.Bytes(uint64(collector.LastFreed)),
				humanize.Bytes(uint64(h.LiveBytes)),
				humanize.Bytes(uint64(h.Threshold)))
		}
	}

	comp := compiler.New(h, string(source))
	collector.Register(comp)
	fn, err := comp.Compile()
	if err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, err.Error())
		os.Exit(exitCompileError)
	}

	machine := vm.New(h)
	collector.Register(machine)
	if err := machine.Interpret(fn); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, err.Error())
		os.Exit(exitRuntimeError)
	}
	return nil
}
