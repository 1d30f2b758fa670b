package object

import (
	"sync"
	"sync/atomic"

	"github.com/jvmcore/gojvm/pkg/value"
)

var nextIdentityHash int64

func allocIdentityHash() int32 {
	return int32(atomic.AddInt64(&nextIdentityHash, 1))
}

// HeapObject is satisfied by both *Instance (ordinary objects) and
// *ArrayInstance, mirroring the Class/ArrayClass split one level up.
type HeapObject interface {
	Class() Class
	IdentityHash() int32
	Marked() bool
	SetMarked(bool)
}

// Instance is a live object of an OrdinaryClass: heap-allocated field
// storage plus the monitor state java/lang/Object's synchronized methods
// and wait/notify need, and an opaque NativePayload slot host-implemented
// classes use to attach Go-side state (e.g. a java/io/PrintStream's
// underlying io.Writer) without polluting the Value model with a second
// reference kind.
type Instance struct {
	class   Class
	storage *FieldStorage
	hash    int32
	marked  bool

	monitor sync.Mutex
	cond    *sync.Cond
	holder  int64 // goroutine-independent owner token; 0 means unlocked
	depth   int   // reentrant lock depth

	// NativePayload holds host-side state for instances of classes
	// declared via pkg/hostbridge.ClassPrototype, e.g. a *bufio.Writer
	// backing a PrintStream or the Go slice backing a StringBuilder.
	// Opaque here by design: object never needs to know its shape.
	NativePayload any
}

func NewInstance(class Class, slotCount int) *Instance {
	inst := &Instance{
		class:   class,
		storage: NewFieldStorage(slotCount),
		hash:    allocIdentityHash(),
	}
	inst.cond = sync.NewCond(&inst.monitor)
	return inst
}

func (o *Instance) Class() Class         { return o.class }
func (o *Instance) IdentityHash() int32  { return o.hash }
func (o *Instance) Marked() bool         { return o.marked }
func (o *Instance) SetMarked(m bool)     { o.marked = m }
func (o *Instance) Storage() *FieldStorage { return o.storage }

// MonitorEnter acquires this object's intrinsic lock, reentrantly, for
// the calling task. owner distinguishes tasks without binding to a
// goroutine ID (cooperative tasks may migrate goroutines on resume).
func (o *Instance) MonitorEnter(owner int64) {
	o.monitor.Lock()
	defer o.monitor.Unlock()
	for o.holder != 0 && o.holder != owner {
		o.cond.Wait()
	}
	o.holder = owner
	o.depth++
}

// MonitorExit releases one level of this object's intrinsic lock.
func (o *Instance) MonitorExit(owner int64) {
	o.monitor.Lock()
	defer o.monitor.Unlock()
	if o.holder != owner {
		return // monitorexit on a lock the caller doesn't hold: IllegalMonitorStateException is raised by the caller
	}
	o.depth--
	if o.depth == 0 {
		o.holder = 0
		o.cond.Signal()
	}
}

// Wait releases the monitor and blocks until Notify/NotifyAll, per
// java/lang/Object#wait semantics (timeouts are the caller's concern).
func (o *Instance) Wait(owner int64) {
	o.monitor.Lock()
	defer o.monitor.Unlock()
	savedDepth := o.depth
	o.holder = 0
	o.depth = 0
	o.cond.Broadcast()
	o.cond.Wait()
	o.holder = owner
	o.depth = savedDepth
}

func (o *Instance) Notify()    { o.monitor.Lock(); o.cond.Signal(); o.monitor.Unlock() }
func (o *Instance) NotifyAll() { o.monitor.Lock(); o.cond.Broadcast(); o.monitor.Unlock() }

// ArrayInstance is a live array. Both primitive and reference arrays
// store one value.Value per element (prim and refs respectively);
// primitive elements are not packed into a byte buffer.
type ArrayInstance struct {
	class  Class
	length int
	hash   int32
	marked bool

	elemKind value.Kind
	prim     []value.Value // used when elemKind is not value.Object
	refs     []value.Value // used when elemKind is value.Object
}

func NewArrayInstance(class Class, elemKind value.Kind, length int) *ArrayInstance {
	a := &ArrayInstance{class: class, length: length, elemKind: elemKind, hash: allocIdentityHash()}
	if elemKind == value.Object {
		a.refs = make([]value.Value, length)
		for i := range a.refs {
			a.refs[i] = value.NullValue()
		}
	} else {
		a.prim = make([]value.Value, length)
		for i := range a.prim {
			a.prim[i] = value.Default(elemKind)
		}
	}
	return a
}

func (a *ArrayInstance) Class() Class        { return a.class }
func (a *ArrayInstance) IdentityHash() int32 { return a.hash }
func (a *ArrayInstance) Marked() bool        { return a.marked }
func (a *ArrayInstance) SetMarked(m bool)    { a.marked = m }
func (a *ArrayInstance) Length() int         { return a.length }
func (a *ArrayInstance) ElemKind() value.Kind { return a.elemKind }

func (a *ArrayInstance) Get(index int) value.Value {
	if a.elemKind == value.Object {
		return a.refs[index]
	}
	return a.prim[index]
}

func (a *ArrayInstance) Set(index int, v value.Value) {
	if a.elemKind == value.Object {
		a.refs[index] = v
		return
	}
	a.prim[index] = v
}

// RawBuffer exposes the backing primitive slice directly, for
// embedder-facing bulk access (§6 load_array/array_raw_buffer): callers
// must not retain it past a GC-triggering call.
func (a *ArrayInstance) RawBuffer() []value.Value {
	if a.elemKind == value.Object {
		return a.refs
	}
	return a.prim
}
