package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"rlox/internal/heap"
)

func compileOK(t *testing.T, source string) heap.Handle {
	t.Helper()
	h := heap.New()
	c := New(h, source)
	fn, err := c.Compile()
	require.NoError(t, err)
	return fn
}

func compileErr(t *testing.T, source string) error {
	t.Helper()
	h := heap.New()
	c := New(h, source)
	_, err := c.Compile()
	require.Error(t, err)
	return err
}

func TestCompileSimpleProgram(t *testing.T) {
	fn := compileOK(t, `print 1 + 2;`)
	require.False(t, fn.IsNil())
}

func TestCompileReadUninitializedLocalIsError(t *testing.T) {
	err := compileErr(t, `{ var a = a; }`)
	require.Contains(t, err.Error(), "own initializer")
}

func TestCompileDuplicateLocalInScopeIsError(t *testing.T) {
	err := compileErr(t, `{ var a = 1; var a = 2; }`)
	require.Contains(t, err.Error(), "already a variable")
}

func TestCompileReturnFromTopLevelIsError(t *testing.T) {
	err := compileErr(t, `return 1;`)
	require.Contains(t, err.Error(), "can't return from top-level")
}

func TestCompileReturnValueFromInitializerIsError(t *testing.T) {
	err := compileErr(t, `class A { init() { return 1; } }`)
	require.Contains(t, err.Error(), "can't return a value from an initializer")
}

func TestCompileThisOutsideClassIsError(t *testing.T) {
	err := compileErr(t, `print this;`)
	require.Contains(t, err.Error(), "can't use 'this'")
}

func TestCompileSuperOutsideClassIsError(t *testing.T) {
	err := compileErr(t, `print super.foo;`)
	require.Contains(t, err.Error(), "can't use 'super'")
}

func TestCompileSuperWithoutSuperclassIsError(t *testing.T) {
	err := compileErr(t, `class A { foo() { super.foo(); } }`)
	require.Contains(t, err.Error(), "no superclass")
}

func TestCompileClassInheritingFromItselfIsError(t *testing.T) {
	err := compileErr(t, `class A < A {}`)
	require.Contains(t, err.Error(), "inherit from itself")
}

func TestCompile255LocalsOK(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("fun f() {\n")
	for i := 0; i < 255; i++ {
		sb.WriteString("var x")
		sb.WriteString(itoa(i))
		sb.WriteString(" = 0;\n")
	}
	sb.WriteString("}\n")
	compileOK(t, sb.String())
}

func TestCompile256LocalsIsError(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("fun f() {\n")
	for i := 0; i < 256; i++ {
		sb.WriteString("var x")
		sb.WriteString(itoa(i))
		sb.WriteString(" = 0;\n")
	}
	sb.WriteString("}\n")
	err := compileErr(t, sb.String())
	require.Contains(t, err.Error(), "too many local variables")
}

func TestCompileTooManyConstantsIsError(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 300; i++ {
		sb.WriteString(`print "s`)
		sb.WriteString(itoa(i))
		sb.WriteString("\";\n")
	}
	err := compileErr(t, sb.String())
	require.Contains(t, err.Error(), "too many constants")
}

func TestCompileJumpTooFarIsError(t *testing.T) {
	// One `if` branch padded past the 16-bit jump-offset limit. Each `true;`
	// is two bytecode bytes (OpTrue, OpPop) and touches no constant, so this
	// overflows the jump distance without ever touching the constant pool.
	var sb strings.Builder
	sb.WriteString("if (true) {\n")
	for i := 0; i < 40000; i++ {
		sb.WriteString("true;\n")
	}
	sb.WriteString("}\n")
	err := compileErr(t, sb.String())
	require.Contains(t, err.Error(), "jump")
}

func TestCompileMultipleErrorsAccumulateViaPanicMode(t *testing.T) {
	h := heap.New()
	c := New(h, `this; super.x; return 1;`)
	_, err := c.Compile()
	require.Error(t, err)
	errs, ok := err.(interface{ Error() string })
	require.True(t, ok)
	// All three statements are independent errors; panic-mode recovery must
	// resynchronize at each ';' rather than stopping at the first one.
	require.GreaterOrEqual(t, len(strings.Split(errs.Error(), "\n")), 2)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := []byte{}
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}
