package vm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"rlox/internal/compiler"
	"rlox/internal/gc"
	"rlox/internal/heap"
)

// runSource compiles and executes source against a fresh Heap/VM/Collector,
// returning everything written via `print`.
func runSource(t *testing.T, source string) string {
	t.Helper()
	h := heap.New()
	c := compiler.New(h, source)
	fn, err := c.Compile()
	require.NoError(t, err)

	machine := New(h)
	var out strings.Builder
	machine.StdOut = func(s string) { out.WriteString(s) }

	collector := gc.New(h)
	collector.Register(machine)

	require.NoError(t, machine.Interpret(fn))
	return out.String()
}

func TestClosuresAndMutation(t *testing.T) {
	out := runSource(t, `
		var counter = (fun () { var i = 0; fun count() { i = i + 1; return i; } return count; })();
		print counter(); print counter(); print counter();
	`)
	require.Equal(t, "1\n2\n3\n", out)
}

func TestInheritanceAndSuper(t *testing.T) {
	out := runSource(t, `
		class A { greet() { print "A"; } }
		class B < A { greet() { super.greet(); print "B"; } }
		B().greet();
	`)
	require.Equal(t, "A\nB\n", out)
}

func TestInitAndFields(t *testing.T) {
	out := runSource(t, `
		class Pair { init(a,b) { this.a = a; this.b = b; } }
		var p = Pair(1,2); print p.a + p.b;
	`)
	require.Equal(t, "3\n", out)
}

func TestStringInterningEquality(t *testing.T) {
	out := runSource(t, `
		var a = "foo"; var b = "f" + "oo"; print a == b;
	`)
	require.Equal(t, "true\n", out)
}

func TestRecursiveFibonacci(t *testing.T) {
	out := runSource(t, `
		fun fib(n) { if (n < 2) return n; return fib(n-1) + fib(n-2); }
		print fib(10);
	`)
	require.Equal(t, "55\n", out)
}

func TestFieldShadowsMethodUnderInvoke(t *testing.T) {
	out := runSource(t, `
		class Box { value() { return "method"; } }
		var b = Box();
		b.value = fun () { return "field"; };
		print b.value();
	`)
	require.Equal(t, "field\n", out)
}

func TestUndefinedVariableIsRuntimeError(t *testing.T) {
	h := heap.New()
	c := compiler.New(h, `print undefined_name;`)
	fn, err := c.Compile()
	require.NoError(t, err)

	machine := New(h)
	err = machine.Interpret(fn)
	require.Error(t, err)
	require.Contains(t, err.Error(), "undefined variable")
}

func TestCallingNonCallableIsRuntimeError(t *testing.T) {
	h := heap.New()
	c := compiler.New(h, `var x = 1; x();`)
	fn, err := c.Compile()
	require.NoError(t, err)

	machine := New(h)
	err = machine.Interpret(fn)
	require.Error(t, err)
	require.Contains(t, err.Error(), "can only call")
}

func TestInheritingFromNonClassIsRuntimeError(t *testing.T) {
	h := heap.New()
	c := compiler.New(h, `
		var NotAClass = 1;
		class A < NotAClass {}
	`)
	fn, err := c.Compile()
	require.NoError(t, err)

	machine := New(h)
	err = machine.Interpret(fn)
	require.Error(t, err)
	require.Contains(t, err.Error(), "superclass must be a class")
}

func TestClockNativeReturnsNumber(t *testing.T) {
	out := runSource(t, `print clock() >= 0;`)
	require.Equal(t, "true\n", out)
}

func TestGCDoesNotCollectLiveClosureAcrossCalls(t *testing.T) {
	h := heap.New()
	h.StressGC = true

	c := compiler.New(h, `
		fun makeCounter() {
			var i = 0;
			fun bump() { i = i + 1; return i; }
			return bump;
		}
		var bump = makeCounter();
		print bump(); print bump(); print bump();
	`)
	fn, err := c.Compile()
	require.NoError(t, err)

	machine := New(h)
	var out strings.Builder
	machine.StdOut = func(s string) { out.WriteString(s) }

	collector := gc.New(h)
	collector.Register(machine)

	require.NoError(t, machine.Interpret(fn))
	require.Equal(t, "1\n2\n3\n", out.String())
}
