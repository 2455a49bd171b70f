package heap

const initialThreshold = 1 << 20 // 1 MiB
const growthFactor = 2

// Heap bundles every typed arena, the string intern table, and the
// byte-counter that drives collection. It has no knowledge of the compiler
// or VM; CollectFn is installed by whichever owns GC policy (normally
// internal/gc.Collector.Collect) and invoked at allocation safe points once
// LiveBytes crosses Threshold.
type Heap struct {
	Strings      *Arena[StringObject]
	Functions    *Arena[FunctionObject]
	Natives      *Arena[NativeObject]
	Closures     *Arena[ClosureObject]
	Upvalues     *Arena[UpvalueObject]
	Classes      *Arena[ClassObject]
	Instances    *Arena[InstanceObject]
	BoundMethods *Arena[BoundMethodObject]

	Interned *StringTable

	LiveBytes int
	Threshold int
	StressGC  bool

	// CollectFn, when set, is invoked before an allocation that would push
	// LiveBytes past Threshold. It must itself mark roots and sweep; the
	// heap only decides *when* to call it.
	CollectFn func()

	InitString Handle
}

func New() *Heap {
	h := &Heap{
		Strings:      NewArena[StringObject](KindString, func(s *StringObject) int { return sizeOfString(s) }),
		Functions:    NewArena[FunctionObject](KindFunction, func(f *FunctionObject) int { return sizeOfFunction(f) }),
		Natives:      NewArena[NativeObject](KindNative, func(n *NativeObject) int { return sizeOfNative(n) }),
		Closures:     NewArena[ClosureObject](KindClosure, func(c *ClosureObject) int { return sizeOfClosure(c) }),
		Upvalues:     NewArena[UpvalueObject](KindUpvalue, func(u *UpvalueObject) int { return sizeOfUpvalue(u) }),
		Classes:      NewArena[ClassObject](KindClass, func(c *ClassObject) int { return sizeOfClass(c) }),
		Instances:    NewArena[InstanceObject](KindInstance, func(i *InstanceObject) int { return sizeOfInstance(i) }),
		BoundMethods: NewArena[BoundMethodObject](KindBoundMethod, func(b *BoundMethodObject) int { return sizeOfBoundMethod(b) }),
		Threshold:    initialThreshold,
	}
	h.Interned = NewStringTable(h.Strings)
	h.InitString = h.NewString([]byte("init"))
	return h
}

// reserve runs the GC (if installed) when charging `want` more bytes would
// cross Threshold, then charges the bytes. Called before every allocation,
// matching the "safe point" model of §4.7: collection only ever happens at
// allocation boundaries, never mid-instruction.
func (h *Heap) reserve(want int) {
	if h.CollectFn != nil && (h.StressGC || h.LiveBytes+want > h.Threshold) {
		h.CollectFn()
	}
	h.LiveBytes += want
}

// GrowThreshold recomputes the collection threshold from current live
// bytes, per §4.7 step 6.
func (h *Heap) GrowThreshold() {
	h.Threshold = h.LiveBytes * growthFactor
	if h.Threshold < initialThreshold {
		h.Threshold = initialThreshold
	}
}

func (h *Heap) NewString(data []byte) Handle {
	handle, charged := h.Interned.Intern(data, func(hash uint32) (Handle, int) {
		h.reserve(sizeOfString(&StringObject{Data: data}))
		return h.Strings.Allocate(StringObject{Data: data, Hash: hash})
	})
	if charged == 0 {
		// Already interned: still a safe point, but nothing new to charge.
		h.reserve(0)
	}
	return handle
}

func (h *Heap) NewFunction(f FunctionObject) Handle {
	h.reserve(sizeOfFunction(&f))
	handle, _ := h.Functions.Allocate(f)
	return handle
}

func (h *Heap) NewNative(n NativeObject) Handle {
	h.reserve(sizeOfNative(&n))
	handle, _ := h.Natives.Allocate(n)
	return handle
}

func (h *Heap) NewClosure(c ClosureObject) Handle {
	h.reserve(sizeOfClosure(&c))
	handle, _ := h.Closures.Allocate(c)
	return handle
}

func (h *Heap) NewUpvalue(u UpvalueObject) Handle {
	h.reserve(sizeOfUpvalue(&u))
	handle, _ := h.Upvalues.Allocate(u)
	return handle
}

func (h *Heap) NewClass(c ClassObject) Handle {
	if c.Methods == nil {
		c.Methods = make(map[Handle]Handle)
	}
	h.reserve(sizeOfClass(&c))
	handle, _ := h.Classes.Allocate(c)
	return handle
}

func (h *Heap) NewInstance(i InstanceObject) Handle {
	if i.Fields == nil {
		i.Fields = make(map[Handle]Value)
	}
	h.reserve(sizeOfInstance(&i))
	handle, _ := h.Instances.Allocate(i)
	return handle
}

func (h *Heap) NewBoundMethod(b BoundMethodObject) Handle {
	h.reserve(sizeOfBoundMethod(&b))
	handle, _ := h.BoundMethods.Allocate(b)
	return handle
}

// Concat allocates the interned String for the byte-concatenation of a and
// b, as required by Value `+` over two Strings.
func (h *Heap) Concat(a, b Handle) Handle {
	as := h.Strings.Get(a)
	bs := h.Strings.Get(b)
	buf := make([]byte, 0, len(as.Data)+len(bs.Data))
	buf = append(buf, as.Data...)
	buf = append(buf, bs.Data...)
	return h.NewString(buf)
}

func (h *Heap) StringValue(s Handle) string {
	return string(h.Strings.Get(s).Data)
}
