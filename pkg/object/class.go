// Package object defines the runtime class and instance model: the shapes
// produced by linking a parsed classfile (or a host-declared prototype)
// into something the interpreter can dispatch against and the garbage
// collector can walk. It sits below pkg/classloader and pkg/interp and
// must not import either, so its cross-package contracts are expressed as
// small interfaces (Loader, Invoker) rather than concrete types.
package object

import (
	"sync"
	"sync/atomic"

	"github.com/jvmcore/gojvm/pkg/classfile"
	"github.com/jvmcore/gojvm/pkg/value"
)

// InitState tracks a class's <clinit> lifecycle (JVM Specification 5.5).
type InitState int32

const (
	NotInitialized InitState = iota
	Initializing
	Initialized
	InitializationFailed
)

// Class is implemented by both OrdinaryClass and ArrayClass: the one
// registry entry shape the rest of the system dispatches against,
// regardless of whether it was parsed from bytes or lowered from a host
// prototype (see pkg/hostbridge), or synthesized for an array type.
type Class interface {
	Name() string
	SuperName() string
	Super() Class
	SetSuper(Class)
	Interfaces() []Class
	SetInterfaces([]Class)
	Loader() Loader
	IsInterface() bool
	IsArray() bool

	FindMethod(name, descriptor string) *Method
	FindField(name, descriptor string) *Field
	DeclaredMethods() []*Method
	DeclaredFields() []*Field

	// InstanceSize returns the total instance field slot count this
	// class contributes, including inherited slots: a subclass's
	// storage array has exactly this many slots.
	InstanceSize() int

	// ConstantPool returns the class's own constant pool, used by the
	// interpreter to resolve constant-pool-indexed operands (ldc,
	// getstatic/putstatic, invoke*, new, checkcast, instanceof,
	// (multi)anewarray). nil for classes with no bytecode of their own
	// (array classes, host-declared prototype classes).
	ConstantPool() []classfile.ConstantPoolEntry

	// InitState reports and transitions this class's <clinit> state.
	// Implementations use a CAS so concurrent resolvers racing to run
	// <clinit> agree on exactly one winner (mirrors the collapsing
	// behavior classloader.Registry gets from singleflight for loading
	// itself; this guards the separate initialization step).
	InitState() InitState
	CompareAndSwapInitState(old, new InitState) bool

	// StaticFields holds the class's own static storage, a slot array
	// addressed by each static Field's SlotIndex.
	StaticFields() *FieldStorage
}

// Loader is the subset of classloader.Registry that object and its
// consumers need: resolving a name to a linked Class. Defined here
// (rather than imported from pkg/classloader) so object has no import on
// classloader, breaking what would otherwise be a cycle through Class.
type Loader interface {
	Resolve(name string) (Class, error)
	Name() string // loader identity, used for the JVM's same-loader class identity rule
}

// Invoker executes a method body. pkg/interp implements this; object only
// needs the shape so Method.Native closures and bridge glue can call back
// into the interpreter without object importing interp.
type Invoker interface {
	Invoke(method *Method, args []value.Value) (value.Value, error)
}

// NativeFunc is a host-implemented method body, either a genuine JNI-style
// native or a bridge function installed by pkg/gfunction.
type NativeFunc func(inv Invoker, this *Instance, args []value.Value) (value.Value, error)

// Method is a resolved, dispatch-ready method. Bytecode decoding is
// deferred to pkg/interp, which keeps its own decode cache keyed by the
// *classfile.CodeAttribute pointer; object only carries the raw
// attribute so it never needs interp's decoded-instruction type.
type Method struct {
	Owner       Class
	Name        string
	Descriptor  string
	AccessFlags uint16
	Code        *classfile.CodeAttribute // nil when Native != nil or abstract
	Native      NativeFunc               // nil for ordinary bytecode methods
	Exceptions  []string                 // checked-exception class names, informational only

	// ExceptionTable is Code.ExceptionHandlers with CatchType pre-resolved
	// to a class name ("" for catch-any), so the interpreter never needs
	// the owning classfile's constant pool at runtime to match a handler.
	ExceptionTable []ExceptionHandler
}

// ExceptionHandler is one exception-table row with its catch type already
// resolved to a class name (JVM Specification 4.7.3).
type ExceptionHandler struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType string // "" means catch-any (finally-style handler)
}

func (m *Method) IsStatic() bool   { return m.AccessFlags&classfile.AccStatic != 0 }
func (m *Method) IsAbstract() bool { return m.AccessFlags&classfile.AccAbstract != 0 }
func (m *Method) IsNative() bool   { return m.AccessFlags&classfile.AccNative != 0 }
func (m *Method) IsFinal() bool    { return m.AccessFlags&classfile.AccFinal != 0 }
func (m *Method) IsPrivate() bool  { return m.AccessFlags&classfile.AccPrivate != 0 }

// Field is a resolved, dispatch-ready field declaration.
type Field struct {
	Owner       Class
	Name        string
	Descriptor  string
	AccessFlags uint16
	Kind        value.Kind
	SlotIndex   int // index into the owning storage's slots
}

func (f *Field) IsStatic() bool { return f.AccessFlags&classfile.AccStatic != 0 }
func (f *Field) IsFinal() bool  { return f.AccessFlags&classfile.AccFinal != 0 }

// FieldStorage is a fixed-layout slot array shared by both a class's
// static storage and, via Instance, its instance storage. Using slots
// addressed by Field.SlotIndex (assigned once at link time) instead of a
// name-keyed map avoids a map lookup on every getfield/putfield.
type FieldStorage struct {
	mu    sync.RWMutex
	slots []value.Value
}

func NewFieldStorage(size int) *FieldStorage {
	return &FieldStorage{slots: make([]value.Value, size)}
}

func (s *FieldStorage) Get(index int) value.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slots[index]
}

func (s *FieldStorage) Set(index int, v value.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[index] = v
}

// OrdinaryClass is a linked, non-array class: either parsed from a
// classfile (classloader.Registry) or lowered from a host ClassPrototype
// (pkg/hostbridge). Both origins converge on this single struct so
// dispatch never has to branch on where a class came from.
type OrdinaryClass struct {
	ClassName        string
	SuperClassName   string
	InterfaceNames   []string
	AccFlags         uint16
	LoaderRef        Loader
	Methods          []*Method
	Fields           []*Field
	InstanceSlotSize int // total slots across this class and all supers

	superClass    Class
	interfaces    []Class
	initState     int32
	staticStoreMu sync.Mutex
	staticStore   *FieldStorage

	Pool []classfile.ConstantPoolEntry
}

func NewOrdinaryClass(name, superName string, interfaceNames []string, accessFlags uint16, loader Loader) *OrdinaryClass {
	return &OrdinaryClass{
		ClassName:      name,
		SuperClassName: superName,
		InterfaceNames: interfaceNames,
		AccFlags:       accessFlags,
		LoaderRef:      loader,
	}
}

func (c *OrdinaryClass) Name() string      { return c.ClassName }
func (c *OrdinaryClass) SuperName() string { return c.SuperClassName }
func (c *OrdinaryClass) Super() Class      { return c.superClass }
func (c *OrdinaryClass) SetSuper(s Class)  { c.superClass = s }
func (c *OrdinaryClass) Interfaces() []Class {
	return c.interfaces
}
func (c *OrdinaryClass) SetInterfaces(ifaces []Class) { c.interfaces = ifaces }
func (c *OrdinaryClass) Loader() Loader                { return c.LoaderRef }
func (c *OrdinaryClass) IsInterface() bool             { return c.AccFlags&classfile.AccInterface != 0 }
func (c *OrdinaryClass) IsArray() bool                 { return false }

func (c *OrdinaryClass) DeclaredMethods() []*Method { return c.Methods }
func (c *OrdinaryClass) DeclaredFields() []*Field   { return c.Fields }

func (c *OrdinaryClass) FindMethod(name, descriptor string) *Method {
	for _, m := range c.Methods {
		if m.Name == name && m.Descriptor == descriptor {
			return m
		}
	}
	return nil
}

func (c *OrdinaryClass) FindField(name, descriptor string) *Field {
	for _, f := range c.Fields {
		if f.Name == name && f.Descriptor == descriptor {
			return f
		}
	}
	return nil
}

func (c *OrdinaryClass) InitState() InitState {
	return InitState(atomic.LoadInt32(&c.initState))
}

func (c *OrdinaryClass) CompareAndSwapInitState(old, new InitState) bool {
	return atomic.CompareAndSwapInt32(&c.initState, int32(old), int32(new))
}

func (c *OrdinaryClass) InstanceSize() int { return c.InstanceSlotSize }
func (c *OrdinaryClass) ConstantPool() []classfile.ConstantPoolEntry { return c.Pool }

func (c *OrdinaryClass) StaticFields() *FieldStorage {
	c.staticStoreMu.Lock()
	defer c.staticStoreMu.Unlock()
	if c.staticStore == nil {
		count := 0
		for _, f := range c.Fields {
			if f.IsStatic() {
				count++
			}
		}
		c.staticStore = NewFieldStorage(count)
	}
	return c.staticStore
}

// ArrayClass represents a synthesized array type such as "[I" or
// "[Ljava/lang/String;". Array classes have no declared fields/methods of
// their own beyond what java/lang/Object contributes through Super.
type ArrayClass struct {
	ClassName  string
	ElemKind   value.Kind // element kind for primitive arrays; value.Object for reference arrays
	ElemClass  Class      // set when ElemKind == value.Object; nil for primitive arrays
	LoaderRef  Loader
	superClass Class
	initState  int32
}

func NewArrayClass(name string, elemKind value.Kind, elemClass Class, loader Loader) *ArrayClass {
	return &ArrayClass{ClassName: name, ElemKind: elemKind, ElemClass: elemClass, LoaderRef: loader}
}

func (c *ArrayClass) Name() string          { return c.ClassName }
func (c *ArrayClass) SuperName() string     { return "java/lang/Object" }
func (c *ArrayClass) Super() Class          { return c.superClass }
func (c *ArrayClass) SetSuper(s Class)      { c.superClass = s }
func (c *ArrayClass) Interfaces() []Class   { return nil }
func (c *ArrayClass) SetInterfaces([]Class) {}
func (c *ArrayClass) Loader() Loader        { return c.LoaderRef }
func (c *ArrayClass) IsInterface() bool     { return false }
func (c *ArrayClass) IsArray() bool         { return true }

func (c *ArrayClass) FindMethod(name, descriptor string) *Method { return nil }
func (c *ArrayClass) FindField(name, descriptor string) *Field   { return nil }
func (c *ArrayClass) DeclaredMethods() []*Method                 { return nil }
func (c *ArrayClass) DeclaredFields() []*Field                   { return nil }

func (c *ArrayClass) InitState() InitState { return Initialized } // arrays have no <clinit>
func (c *ArrayClass) CompareAndSwapInitState(old, new InitState) bool {
	return old == Initialized && new == Initialized
}
func (c *ArrayClass) StaticFields() *FieldStorage { return nil }
func (c *ArrayClass) InstanceSize() int           { return 0 }
func (c *ArrayClass) ConstantPool() []classfile.ConstantPoolEntry { return nil }

// IsAssignableFrom reports whether a value of class from can be assigned
// to a variable of class c, i.e. from is c or a (transitive) subclass or
// implementor of c. Used by checkcast/instanceof and exception-table
// matching (JVM Specification 4.10.1.9.1).
func IsAssignableFrom(c, from Class) bool {
	if c == nil || from == nil {
		return false
	}
	if c.Name() == from.Name() {
		return true
	}
	if c.IsArray() && from.IsArray() {
		return arrayAssignable(c.(*ArrayClass), from.(*ArrayClass))
	}
	for cur := from.Super(); cur != nil; cur = cur.Super() {
		if cur.Name() == c.Name() {
			return true
		}
	}
	if implementsInterface(from, c.Name()) {
		return true
	}
	return false
}

func arrayAssignable(c, from *ArrayClass) bool {
	if c.ElemKind != value.Object {
		return c.ElemKind == from.ElemKind
	}
	if from.ElemKind != value.Object {
		return false
	}
	if c.ElemClass == nil || from.ElemClass == nil {
		return c.ElemClass == from.ElemClass
	}
	return IsAssignableFrom(c.ElemClass, from.ElemClass)
}

func implementsInterface(class Class, name string) bool {
	for cur := class; cur != nil; cur = cur.Super() {
		for _, iface := range cur.Interfaces() {
			if iface.Name() == name {
				return true
			}
			if implementsInterface(iface, name) {
				return true
			}
		}
	}
	return false
}
