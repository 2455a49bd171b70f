package heap

// LineRun is one run-length-encoded entry of the line table: `count`
// consecutive bytecode bytes all attributed to source `Line`.
type LineRun struct {
	Line  int
	Count int
}

// StringObject is immutable byte content plus its precomputed FNV-1a hash.
// At most one StringObject exists per distinct byte sequence; the string
// table enforces that.
type StringObject struct {
	Data []byte
	Hash uint32
}

func (s *StringObject) String() string { return string(s.Data) }

// FunctionObject is the compiled body of a `fun` declaration (or the
// implicit top-level script). Arity and UpvalueCount drive the VM's call
// protocol and OpClosure's capture loop respectively.
type FunctionObject struct {
	Name         Handle // String, or the nil Handle for anonymous/script
	Arity        int
	UpvalueCount int
	Code         []byte
	Constants    []Value
	Lines        []LineRun
}

// NativeFunc is the signature every native (built-in) callable must
// implement. It receives its already-evaluated arguments and returns either
// a result or a runtime error message.
type NativeFunc func(args []Value) (Value, error)

type NativeObject struct {
	Name  string
	Arity int
	Fn    NativeFunc
}

// UpvalueObject is either Open, aliasing a live VM stack slot, or Closed,
// holding its own copy of the value. The transition is one-way and happens
// exactly once, when the referenced stack slot goes out of scope.
type UpvalueObject struct {
	Open       bool
	StackIndex int
	Closed     Value
}

type ClosureObject struct {
	Function Handle
	Upvalues []Handle
}

// ClassObject's method table always maps a String handle to a Closure
// handle, never a bare function.
type ClassObject struct {
	Name    Handle
	Methods map[Handle]Handle
}

type InstanceObject struct {
	Class  Handle
	Fields map[Handle]Value
}

type BoundMethodObject struct {
	Receiver Handle
	Method   Handle
}

func sizeOfString(s *StringObject) int   { return 32 + len(s.Data) }
func sizeOfFunction(f *FunctionObject) int {
	return 64 + len(f.Code) + len(f.Constants)*16 + len(f.Lines)*16
}
func sizeOfNative(*NativeObject) int { return 48 }
func sizeOfUpvalue(*UpvalueObject) int { return 24 }
func sizeOfClosure(c *ClosureObject) int { return 24 + len(c.Upvalues)*8 }
func sizeOfClass(c *ClassObject) int { return 32 + len(c.Methods)*16 }
func sizeOfInstance(i *InstanceObject) int { return 24 + len(i.Fields)*24 }
func sizeOfBoundMethod(*BoundMethodObject) int { return 16 }
