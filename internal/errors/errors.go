// Package errors defines the two error categories rlox reports: compile
// errors (collected during a compile pass, never aborting it) and runtime
// errors (which unwind the VM). Both carry source location the way the
// scanner/compiler hand it to us: a line number, since offsets alone mean
// nothing to a user reading a terminal.
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// CompileError is one diagnostic produced while compiling a single source
// line or file. The compiler keeps collecting these in panic-mode recovery
// rather than stopping at the first one.
type CompileError struct {
	Message string
	Line    int
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("[line %d] Error: %s", e.Line, e.Message)
}

// CompileErrors is every diagnostic from one compile pass. A non-empty
// CompileErrors means compilation failed.
type CompileErrors []*CompileError

func (es CompileErrors) Error() string {
	var sb strings.Builder
	for i, e := range es {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(e.Error())
	}
	return sb.String()
}

// StackFrame is one entry of a runtime error's call-stack dump, derived
// from a VM call frame plus its function's line table.
type StackFrame struct {
	FunctionName string
	Line         int
}

// RuntimeError aborts VM execution. Wrapped with github.com/pkg/errors so a
// Cause() chain survives past native-function boundaries (a native can
// return a plain error and have it arrive here with context attached,
// without losing the original for errors.Is/As).
type RuntimeError struct {
	cause     error
	Line      int
	CallStack []StackFrame
}

func NewRuntimeError(line int, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{
		cause: errors.Errorf(format, args...),
		Line:  line,
	}
}

func WrapRuntimeError(cause error, line int) *RuntimeError {
	return &RuntimeError{cause: errors.WithStack(cause), Line: line}
}

func (e *RuntimeError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.cause.Error())
	sb.WriteByte('\n')
	if len(e.CallStack) == 0 {
		fmt.Fprintf(&sb, "[line %d] in script\n", e.Line)
	}
	for _, f := range e.CallStack {
		fmt.Fprintf(&sb, "[line %d] in %s\n", f.Line, f.FunctionName)
	}
	return sb.String()
}

func (e *RuntimeError) Unwrap() error { return e.cause }

func (e *RuntimeError) WithStack(frames []StackFrame) *RuntimeError {
	e.CallStack = frames
	return e
}
