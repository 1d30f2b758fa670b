package interp

import (
	"context"
	"fmt"

	"github.com/jvmcore/gojvm/pkg/gc"
	"github.com/jvmcore/gojvm/pkg/hostcap"
	"github.com/jvmcore/gojvm/pkg/object"
	"github.com/jvmcore/gojvm/pkg/value"
)

// This file is the embedder-facing surface (§6): the operations a host
// program drives the VM with directly, as opposed to the opcode-level
// machinery bytecode execution uses internally. Grounded on
// _examples/daimatz-gojvm/pkg/vm/vm.go's exported VM methods, which play
// the same "public API over the same internal call path" role for that
// teacher's embedding use (its own main.go driving class loading and
// main-method invocation).

// ResolveClass resolves a class by its internal (slash-separated) name
// through the boot loader, linking it if this is the first reference.
func (vm *VM) ResolveClass(name string) (object.Class, error) {
	return vm.Boot.Resolve(name)
}

// Capability exposes the runtime capability interface granted to this VM
// (§6), so host-implemented natives in pkg/gfunction can reach stdio and
// the clock by duck-typing the generic object.Invoker argument every
// NativeFunc receives against interface{ Capability() hostcap.Capability }.
func (vm *VM) Capability() hostcap.Capability {
	return vm.Cap
}

// RegisterClass installs a host-declared class (built via
// pkg/hostbridge.Lower) directly into the boot loader's table, for
// embedders extending the runtime with their own native classes.
func (vm *VM) RegisterClass(class *object.OrdinaryClass) error {
	return vm.Boot.RegisterPrototype(class)
}

// NewInstance allocates a zero-initialized instance of class, running its
// <clinit> first if this is the first touch, without invoking any
// constructor (mirrors JVM new semantics: <init> is a separate,
// explicit invokespecial by the caller).
func (vm *VM) NewInstance(ctx context.Context, class object.Class) (*object.Instance, error) {
	if err := vm.ensureInitialized(ctx, class); err != nil {
		return nil, err
	}
	inst := object.NewInstance(class, class.InstanceSize())
	vm.Heap.Track(inst)
	return inst, nil
}

// NewArray allocates a length-sized array of elemKind whose class is the
// array class className resolves to.
func (vm *VM) NewArray(className string, elemKind value.Kind, length int) (*object.ArrayInstance, error) {
	if length < 0 {
		return nil, fmt.Errorf("array length must be non-negative, got %d", length)
	}
	class, err := vm.Boot.Resolve(className)
	if err != nil {
		return nil, err
	}
	arr := object.NewArrayInstance(class, elemKind, length)
	vm.Heap.Track(arr)
	return arr, nil
}

// GetField reads an instance field by name, resolving through the
// class's superclass chain the same way getfield does.
func (vm *VM) GetField(inst *object.Instance, name string) (value.Value, error) {
	field, err := resolveField(inst.Class(), name)
	if err != nil {
		return value.Value{}, err
	}
	return inst.Storage().Get(field.SlotIndex), nil
}

// PutField writes an instance field by name.
func (vm *VM) PutField(inst *object.Instance, name string, v value.Value) error {
	field, err := resolveField(inst.Class(), name)
	if err != nil {
		return err
	}
	inst.Storage().Set(field.SlotIndex, v)
	return nil
}

// GetStaticField reads class's own static field by name, triggering
// <clinit> first if needed.
func (vm *VM) GetStaticField(ctx context.Context, class object.Class, name string) (value.Value, error) {
	field, err := resolveField(class, name)
	if err != nil {
		return value.Value{}, err
	}
	if err := vm.ensureInitialized(ctx, field.Owner); err != nil {
		return value.Value{}, err
	}
	return field.Owner.StaticFields().Get(field.SlotIndex), nil
}

// PutStaticField writes a static field by name, triggering <clinit>
// first if needed.
func (vm *VM) PutStaticField(ctx context.Context, class object.Class, name string, v value.Value) error {
	field, err := resolveField(class, name)
	if err != nil {
		return err
	}
	if err := vm.ensureInitialized(ctx, field.Owner); err != nil {
		return err
	}
	field.Owner.StaticFields().Set(field.SlotIndex, v)
	return nil
}

// InvokeVirtual dispatches method (by name/descriptor) against receiver's
// runtime class, for embedders that already hold a live instance rather
// than decoding an invokevirtual instruction.
func (vm *VM) InvokeVirtual(ctx context.Context, receiver *object.Instance, name, descriptor string, args []value.Value) (value.Value, error) {
	method, owner, err := resolveVirtual(receiver.Class(), name, descriptor)
	if err != nil {
		return value.Value{}, err
	}
	fullArgs := append([]value.Value{value.RefValue(receiver)}, args...)
	return vm.invokeMethod(ctx, owner, method, fullArgs)
}

// InvokeSpecial dispatches method without virtual override selection
// (constructors, private methods, explicit super calls).
func (vm *VM) InvokeSpecial(ctx context.Context, declClass object.Class, receiver *object.Instance, name, descriptor string, args []value.Value) (value.Value, error) {
	method, owner, err := resolveSpecial(declClass, name, descriptor)
	if err != nil {
		return value.Value{}, err
	}
	fullArgs := append([]value.Value{value.RefValue(receiver)}, args...)
	return vm.invokeMethod(ctx, owner, method, fullArgs)
}

// LoadArrayElement and StoreArrayElement give an embedder bounds-checked
// access to a live array without going through bytecode.
func (vm *VM) LoadArrayElement(arr *object.ArrayInstance, index int) (value.Value, error) {
	if index < 0 || index >= arr.Length() {
		return value.Value{}, fmt.Errorf("array index %d out of bounds for length %d", index, arr.Length())
	}
	return arr.Get(index), nil
}

func (vm *VM) StoreArrayElement(arr *object.ArrayInstance, index int, v value.Value) error {
	if index < 0 || index >= arr.Length() {
		return fmt.Errorf("array index %d out of bounds for length %d", index, arr.Length())
	}
	arr.Set(index, v)
	return nil
}

// ArrayLength returns an array's length (§6 array_length).
func (vm *VM) ArrayLength(arr *object.ArrayInstance) int { return arr.Length() }

// ArrayRawBuffer exposes an array's backing slice for bulk embedder
// access (§6 array_raw_buffer); callers must not retain the slice across
// a call that may trigger garbage collection.
func (vm *VM) ArrayRawBuffer(arr *object.ArrayInstance) []value.Value { return arr.RawBuffer() }

// GCStats reports the last collection's outcome (§6 collect_garbage
// return shape); re-exported here under the embedder's naming so callers
// driving the VM via this file's API don't need pkg/gc in scope.
type GCStats = gc.Stats
