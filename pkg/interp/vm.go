// Package interp implements the bytecode interpreter, method dispatch,
// and embedder-facing API (§4.4, §4.6, §6). It is the orchestrator layer:
// the only package that imports both pkg/classloader and pkg/gc, and the
// package responsible for running a class's <clinit> the first time the
// class is touched (see DESIGN.md's Open Questions entry on why
// classloader itself does not do this).
package interp

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/jvmcore/gojvm/pkg/classloader"
	"github.com/jvmcore/gojvm/pkg/gc"
	"github.com/jvmcore/gojvm/pkg/hostcap"
	"github.com/jvmcore/gojvm/pkg/object"
	"github.com/jvmcore/gojvm/pkg/value"
)

// maxFrameDepth bounds recursive method invocation the way
// _examples/daimatz-gojvm/pkg/vm/vm.go's frameDepth counter does; beyond
// it a StackOverflowError is raised rather than exhausting the Go stack.
const maxFrameDepth = 2048

// VM is the interpreter and embedder surface: it owns a boot class
// loader, the live heap, the runtime capability surface, and the set of
// currently-running threads. It satisfies object.Invoker so
// hostbridge-declared native methods can call back into bytecode (e.g.
// a Comparator callback invoked from a native Collections.sort).
type VM struct {
	Boot *classloader.Registry
	Cap  hostcap.Capability
	Heap *gc.Heap
	Log  *zap.Logger

	mu      sync.Mutex
	threads map[int64]*ThreadState

	internMu sync.Mutex
	interned map[string]*object.Instance // string pool, keyed by content (§8 string identity)

	depthMu sync.Mutex
	depth   map[int64]int

	initMu  sync.Mutex
	initBy  map[object.Class]hostcap.TaskID // class currently in Initializing -> the task running its <clinit>
}

func New(boot *classloader.Registry, cap hostcap.Capability, log *zap.Logger) *VM {
	if log == nil {
		log = zap.NewNop()
	}
	return &VM{
		Boot:     boot,
		Cap:      cap,
		Heap:     gc.NewHeap(log),
		Log:      log,
		threads:  make(map[int64]*ThreadState),
		interned: make(map[string]*object.Instance),
		depth:    make(map[int64]int),
		initBy:   make(map[object.Class]hostcap.TaskID),
	}
}

func (vm *VM) threadFor(taskID int64) *ThreadState {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	t, ok := vm.threads[taskID]
	if !ok {
		t = &ThreadState{TaskID: taskID}
		vm.threads[taskID] = t
	}
	return t
}

// Roots implements gc.RootProvider across every live thread plus every
// loaded class's static storage, satisfying §5's "GC walks thread
// frames and classloader statics" liveness requirement.
func (vm *VM) Roots() []value.Value {
	vm.mu.Lock()
	threads := make([]*ThreadState, 0, len(vm.threads))
	for _, t := range vm.threads {
		threads = append(threads, t)
	}
	vm.mu.Unlock()

	var roots []value.Value
	for _, t := range threads {
		roots = append(roots, t.Roots()...)
	}
	for _, s := range vm.interned {
		roots = append(roots, value.RefValue(s))
	}
	return roots
}

// CollectGarbage runs one mark-sweep pass over the live heap (§6
// collect_garbage).
func (vm *VM) CollectGarbage() gc.Stats {
	return vm.Heap.Collect(vm)
}

// Execute runs mainClassName's public static void main(String[]) with
// args, the CLI driver's entry point (§1, §8 scenarios 1-5).
func (vm *VM) Execute(ctx context.Context, mainClassName string, args []string) error {
	class, err := vm.Boot.Resolve(mainClassName)
	if err != nil {
		return err
	}
	method := class.FindMethod("main", "([Ljava/lang/String;)V")
	if method == nil {
		return fmt.Errorf("class %s has no main([Ljava/lang/String;)V method", mainClassName)
	}

	argsArray, err := vm.buildStringArray(args)
	if err != nil {
		return err
	}

	_, err = vm.InvokeStatic(ctx, class, method, []value.Value{argsArray})
	return err
}

func (vm *VM) buildStringArray(args []string) (value.Value, error) {
	arrClass, err := vm.Boot.Resolve("[Ljava/lang/String;")
	if err != nil {
		return value.Value{}, err
	}
	arr := object.NewArrayInstance(arrClass, value.Object, len(args))
	vm.Heap.Track(arr)
	for i, s := range args {
		arr.Set(i, vm.InternString(s))
	}
	return value.RefValue(arr), nil
}

// InternString returns the canonical string instance for s (§8's string
// identity/interning testable property): repeated calls with the same
// content return the same *object.Instance, so == comparisons on
// references behave the way Java's string literal pool does.
func (vm *VM) InternString(s string) value.Value {
	vm.internMu.Lock()
	defer vm.internMu.Unlock()
	if inst, ok := vm.interned[s]; ok {
		return value.RefValue(inst)
	}
	class, err := vm.Boot.Resolve("java/lang/String")
	if err != nil {
		// java/lang/String must always resolve in a correctly bootstrapped
		// VM; a Go string value.Value as a fallback keeps callers simple
		// when invoked before bootstrap finishes (e.g. constant pool load).
		return value.RefValue(s)
	}
	inst := object.NewInstance(class, class.InstanceSize())
	inst.NativePayload = s
	vm.Heap.Track(inst)
	vm.interned[s] = inst
	return value.RefValue(inst)
}

func stringValue(s string) value.Value {
	return value.RefValue(s)
}

// ensureInitialized runs class's <clinit> exactly once, the first time
// any caller is about to execute one of its methods or touch one of its
// static fields (JVM Specification 5.5). The CAS loop is how concurrent
// callers racing to trigger initialization settle on a single runner
// while every other caller blocks until it is done, matching the
// recursive-no-reentry invariant without classloader needing to own
// execution (see DESIGN.md). initBy records which task won the CAS so an
// Initializing observer can tell its own recursive <clinit> (proceed)
// apart from a different task that merely lost the race (keep waiting).
func (vm *VM) ensureInitialized(ctx context.Context, class object.Class) error {
	for {
		switch class.InitState() {
		case object.Initialized:
			return nil
		case object.InitializationFailed:
			return fmt.Errorf("class %s failed initialization previously (NoClassDefFoundError)", class.Name())
		case object.Initializing:
			if vm.isInitializingTask(ctx, class) {
				// Recursion from the very task running this class's
				// own <clinit>; must proceed without blocking.
				return nil
			}
			// A different task lost the CAS race below; keep observing
			// until the initializing task finishes or fails.
		default:
			if class.CompareAndSwapInitState(object.NotInitialized, object.Initializing) {
				vm.setInitializingTask(ctx, class)
				if class.Super() != nil {
					if err := vm.ensureInitialized(ctx, class.Super()); err != nil {
						class.CompareAndSwapInitState(object.Initializing, object.InitializationFailed)
						return err
					}
				}
				clinit := class.FindMethod("<clinit>", "()V")
				if clinit != nil {
					if _, err := vm.InvokeStatic(ctx, class, clinit, nil); err != nil {
						class.CompareAndSwapInitState(object.Initializing, object.InitializationFailed)
						return fmt.Errorf("initializing %s: %w", class.Name(), err)
					}
				}
				class.CompareAndSwapInitState(object.Initializing, object.Initialized)
				return nil
			}
			// Lost the CAS race: another goroutine is initializing this
			// class right now; loop and observe the state it leaves.
		}
	}
}

func (vm *VM) setInitializingTask(ctx context.Context, class object.Class) {
	vm.initMu.Lock()
	defer vm.initMu.Unlock()
	vm.initBy[class] = vm.Cap.CurrentTaskID(ctx)
}

func (vm *VM) isInitializingTask(ctx context.Context, class object.Class) bool {
	vm.initMu.Lock()
	defer vm.initMu.Unlock()
	return vm.initBy[class] == vm.Cap.CurrentTaskID(ctx)
}

// Invoke implements object.Invoker, letting hostbridge-declared native
// method bodies call back into bytecode (e.g. invoking a Comparator
// passed to a native sort routine).
func (vm *VM) Invoke(method *object.Method, args []value.Value) (value.Value, error) {
	return vm.invokeMethod(context.Background(), method.Owner, method, args)
}

// InvokeStatic implements the embedder-facing static-dispatch entry
// point (§6 invoke_static_method).
func (vm *VM) InvokeStatic(ctx context.Context, class object.Class, method *object.Method, args []value.Value) (value.Value, error) {
	return vm.invokeMethod(ctx, class, method, args)
}

// invokeMethod is the common call path for every dispatch form: it
// allocates a frame, runs the interpreter loop for bytecode methods, or
// calls straight through to a NativeFunc closure. taskID is the hash of
// vm.Cap.CurrentTaskID(ctx) (spawned Java threads carry an ID via
// hostcap; the main thread hashes the nil TaskID), and 0 when vm.Cap is
// nil.
func (vm *VM) invokeMethod(ctx context.Context, class object.Class, method *object.Method, args []value.Value) (value.Value, error) {
	taskID := int64(0)
	if vm.Cap != nil {
		taskID = int64(hashTaskID(vm.Cap.CurrentTaskID(ctx)))
	}

	if err := vm.ensureInitialized(ctx, class); err != nil {
		return value.Value{}, err
	}

	if method.Native != nil {
		var this *object.Instance
		rest := args
		if !method.IsStatic() && len(args) > 0 {
			if inst, ok := args[0].Ref.(*object.Instance); ok {
				this = inst
			}
			rest = args[1:]
		}
		return method.Native(vm, this, rest)
	}

	if method.IsAbstract() || method.Code == nil {
		return value.Value{}, fmt.Errorf("AbstractMethodError: %s.%s%s", class.Name(), method.Name, method.Descriptor)
	}

	vm.depthMu.Lock()
	vm.depth[taskID]++
	d := vm.depth[taskID]
	vm.depthMu.Unlock()
	defer func() {
		vm.depthMu.Lock()
		vm.depth[taskID]--
		vm.depthMu.Unlock()
	}()
	if d > maxFrameDepth {
		exc, err := vm.newVMException("java/lang/StackOverflowError", "")
		if err != nil {
			return value.Value{}, err
		}
		return value.Value{}, exc
	}

	frame := NewFrame(method, class)
	slot := 0
	for _, a := range args {
		frame.SetLocal(slot, a)
		slot += a.Kind.Width()
	}

	thread := vm.threadFor(taskID)
	thread.push(frame)
	defer thread.pop()

	return vm.runFrame(ctx, frame)
}

// runFrame is the main fetch-decode-execute loop (§4.6): it dispatches
// one opcode at a time via executeInstruction and handles the control
// signals that instruction returns (normal fallthrough, a value return,
// or a thrown exception matched against the method's exception table).
func (vm *VM) runFrame(ctx context.Context, frame *Frame) (value.Value, error) {
	for frame.PC < len(frame.Code) {
		instructionPC := frame.PC
		opcode := frame.ReadU8()

		retVal, hasReturn, err := vm.executeInstruction(ctx, frame, opcode)
		if err != nil {
			javaExc, isJavaExc := err.(*JavaException)
			if !isJavaExc {
				return value.Value{}, fmt.Errorf("in %s.%s%s at pc=%d: %w", frame.Class.Name(), frame.Method.Name, frame.Method.Descriptor, instructionPC, err)
			}
			handler := vm.findExceptionHandler(frame.Method, instructionPC, javaExc)
			if handler != nil {
				frame.SP = 0
				frame.Push(value.RefValue(javaExc.Instance))
				frame.PC = int(handler.HandlerPC)
				continue
			}
			return value.Value{}, javaExc
		}
		if hasReturn {
			return retVal, nil
		}
	}
	return value.Value{}, nil // fell off the end: implicit return for void methods
}

// findExceptionHandler searches method's exception table for a handler
// whose range covers pc and whose catch type is assignable from the
// thrown instance's class (JVM Specification 2.10, 4.10.1.9.1: exact
// match, superclass match, or catch-any all qualify).
func (vm *VM) findExceptionHandler(method *object.Method, pc int, exc *JavaException) *object.ExceptionHandler {
	for i := range method.ExceptionTable {
		h := &method.ExceptionTable[i]
		if pc < int(h.StartPC) || pc >= int(h.EndPC) {
			continue
		}
		if h.CatchType == "" {
			return h
		}
		catchClass, err := vm.Boot.Resolve(h.CatchType)
		if err != nil {
			continue
		}
		if object.IsAssignableFrom(catchClass, exc.Instance.Class()) {
			return h
		}
	}
	return nil
}

func hashTaskID(id hostcap.TaskID) uint64 {
	s := id.String()
	var h uint64 = 1469598103934665603
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}
