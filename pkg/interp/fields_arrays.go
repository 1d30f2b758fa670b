package interp

import (
	"context"
	"fmt"

	"github.com/jvmcore/gojvm/pkg/classfile"
	"github.com/jvmcore/gojvm/pkg/object"
	"github.com/jvmcore/gojvm/pkg/value"
)

// executeArrayLoad implements the iaload/laload/faload/daload/aaload/
// baload/caload/saload family: pop index and arrayref, bounds-check, and
// push the element (JVM Specification 6.5.*aload).
func (vm *VM) executeArrayLoad(frame *Frame) (value.Value, bool, error) {
	index := frame.Pop().Int()
	ref := frame.Pop()
	if ref.IsNull() {
		return vm.nullPointerException()
	}
	arr, ok := ref.Ref.(*object.ArrayInstance)
	if !ok {
		return value.Value{}, false, fmt.Errorf("array load: not an array")
	}
	if index < 0 || int(index) >= arr.Length() {
		exc, err := vm.newVMException("java/lang/ArrayIndexOutOfBoundsException", fmt.Sprintf("Index %d out of bounds for length %d", index, arr.Length()))
		if err != nil {
			return value.Value{}, false, err
		}
		return value.Value{}, false, exc
	}
	frame.Push(arr.Get(int(index)))
	return value.Value{}, false, nil
}

// executeArrayStore implements the i/l/f/d/a/b/c/sastore family.
// Narrowing to the array's element width happens here, since byte/char/
// short arrays are stored with an int32-typed value on the operand stack
// (JVM Specification 6.5.*astore).
func (vm *VM) executeArrayStore(frame *Frame, opcode byte) (value.Value, bool, error) {
	val := frame.Pop()
	index := frame.Pop().Int()
	ref := frame.Pop()
	if ref.IsNull() {
		return vm.nullPointerException()
	}
	arr, ok := ref.Ref.(*object.ArrayInstance)
	if !ok {
		return value.Value{}, false, fmt.Errorf("array store: not an array")
	}
	if index < 0 || int(index) >= arr.Length() {
		exc, err := vm.newVMException("java/lang/ArrayIndexOutOfBoundsException", fmt.Sprintf("Index %d out of bounds for length %d", index, arr.Length()))
		if err != nil {
			return value.Value{}, false, err
		}
		return value.Value{}, false, exc
	}
	if opcode == OpAastore && arr.ElemKind() == value.Object && !val.IsNull() {
		ac, ok := arr.Class().(*object.ArrayClass)
		inst, instOK := val.Ref.(object.HeapObject)
		if ok && instOK && ac.ElemClass != nil && !object.IsAssignableFrom(ac.ElemClass, inst.Class()) {
			exc, err := vm.newVMException("java/lang/ArrayStoreException", inst.Class().Name())
			if err != nil {
				return value.Value{}, false, err
			}
			return value.Value{}, false, exc
		}
	}
	switch arr.ElemKind() {
	case value.Boolean, value.Byte, value.Char, value.Short:
		arr.Set(int(index), value.NarrowTo(arr.ElemKind(), val.AsInt()))
	default:
		arr.Set(int(index), val)
	}
	return value.Value{}, false, nil
}

// resolveFieldref resolves a getfield/putfield/getstatic/putstatic
// operand to its owning class and *object.Field, walking supers via
// resolveField (JVM Specification 5.4.3.2).
func (vm *VM) resolveFieldref(pool []classfile.ConstantPoolEntry, index uint16) (object.Class, *object.Field, error) {
	ref, err := classfile.ResolveFieldref(pool, index)
	if err != nil {
		return nil, nil, err
	}
	class, err := vm.Boot.Resolve(ref.ClassName)
	if err != nil {
		return nil, nil, err
	}
	field, err := resolveField(class, ref.MemberName)
	if err != nil {
		return nil, nil, err
	}
	return class, field, nil
}

func (vm *VM) executeGetstatic(ctx context.Context, frame *Frame, pool []classfile.ConstantPoolEntry) (value.Value, bool, error) {
	index := frame.ReadU16()
	_, field, err := vm.resolveFieldref(pool, index)
	if err != nil {
		return value.Value{}, false, fmt.Errorf("getstatic: %w", err)
	}
	if err := vm.ensureInitialized(ctx, field.Owner); err != nil {
		return value.Value{}, false, err
	}
	frame.Push(field.Owner.StaticFields().Get(field.SlotIndex))
	return value.Value{}, false, nil
}

func (vm *VM) executePutstatic(ctx context.Context, frame *Frame, pool []classfile.ConstantPoolEntry) (value.Value, bool, error) {
	index := frame.ReadU16()
	_, field, err := vm.resolveFieldref(pool, index)
	if err != nil {
		return value.Value{}, false, fmt.Errorf("putstatic: %w", err)
	}
	if err := vm.ensureInitialized(ctx, field.Owner); err != nil {
		return value.Value{}, false, err
	}
	val := frame.Pop()
	field.Owner.StaticFields().Set(field.SlotIndex, val)
	return value.Value{}, false, nil
}

func (vm *VM) executeGetfield(frame *Frame, pool []classfile.ConstantPoolEntry) (value.Value, bool, error) {
	index := frame.ReadU16()
	_, field, err := vm.resolveFieldref(pool, index)
	if err != nil {
		return value.Value{}, false, fmt.Errorf("getfield: %w", err)
	}
	ref := frame.Pop()
	if ref.IsNull() {
		return vm.nullPointerException()
	}
	inst, ok := ref.Ref.(*object.Instance)
	if !ok {
		return value.Value{}, false, fmt.Errorf("getfield: receiver is not an object instance")
	}
	frame.Push(inst.Storage().Get(field.SlotIndex))
	return value.Value{}, false, nil
}

func (vm *VM) executePutfield(frame *Frame, pool []classfile.ConstantPoolEntry) (value.Value, bool, error) {
	index := frame.ReadU16()
	_, field, err := vm.resolveFieldref(pool, index)
	if err != nil {
		return value.Value{}, false, fmt.Errorf("putfield: %w", err)
	}
	val := frame.Pop()
	ref := frame.Pop()
	if ref.IsNull() {
		return vm.nullPointerException()
	}
	inst, ok := ref.Ref.(*object.Instance)
	if !ok {
		return value.Value{}, false, fmt.Errorf("putfield: receiver is not an object instance")
	}
	inst.Storage().Set(field.SlotIndex, val)
	return value.Value{}, false, nil
}

// executeNew implements the new opcode: resolve the class-name operand,
// trigger <clinit> if this is the first touch, and push a freshly
// allocated, zero-initialized instance (JVM Specification 6.5.new).
// Grounded on _examples/daimatz-gojvm/pkg/vm/vm.go's executeNew.
func (vm *VM) executeNew(ctx context.Context, frame *Frame, pool []classfile.ConstantPoolEntry) (value.Value, bool, error) {
	index := frame.ReadU16()
	name, err := classfile.GetClassName(pool, index)
	if err != nil {
		return value.Value{}, false, fmt.Errorf("new: %w", err)
	}
	class, err := vm.Boot.Resolve(name)
	if err != nil {
		return value.Value{}, false, fmt.Errorf("new: %w", err)
	}
	if err := vm.ensureInitialized(ctx, class); err != nil {
		return value.Value{}, false, err
	}
	inst := object.NewInstance(class, class.InstanceSize())
	vm.Heap.Track(inst)
	frame.Push(value.RefValue(inst))
	return value.Value{}, false, nil
}

// executeNewarray implements newarray for the eight primitive element
// types (JVM Specification 6.5.newarray).
func (vm *VM) executeNewarray(frame *Frame) (value.Value, bool, error) {
	atype := frame.ReadU8()
	count := frame.Pop().Int()
	if count < 0 {
		exc, err := vm.newVMException("java/lang/NegativeArraySizeException", fmt.Sprintf("%d", count))
		if err != nil {
			return value.Value{}, false, err
		}
		return value.Value{}, false, exc
	}
	kind, className := primitiveArrayType(atype)
	if className == "" {
		return value.Value{}, false, fmt.Errorf("newarray: unknown atype %d", atype)
	}
	arrClass, err := vm.Boot.Resolve(className)
	if err != nil {
		return value.Value{}, false, fmt.Errorf("newarray: %w", err)
	}
	arr := object.NewArrayInstance(arrClass, kind, int(count))
	vm.Heap.Track(arr)
	frame.Push(value.RefValue(arr))
	return value.Value{}, false, nil
}

func primitiveArrayType(atype uint8) (value.Kind, string) {
	switch atype {
	case ATBoolean:
		return value.Boolean, "[Z"
	case ATChar:
		return value.Char, "[C"
	case ATFloat:
		return value.Float, "[F"
	case ATDouble:
		return value.Double, "[D"
	case ATByte:
		return value.Byte, "[B"
	case ATShort:
		return value.Short, "[S"
	case ATInt:
		return value.Int, "[I"
	case ATLong:
		return value.Long, "[J"
	default:
		return value.Void, ""
	}
}

// executeAnewarray implements anewarray: allocates a single-dimension
// reference array of the named element class (JVM Specification
// 6.5.anewarray).
func (vm *VM) executeAnewarray(frame *Frame, pool []classfile.ConstantPoolEntry) (value.Value, bool, error) {
	index := frame.ReadU16()
	elemName, err := classfile.GetClassName(pool, index)
	if err != nil {
		return value.Value{}, false, fmt.Errorf("anewarray: %w", err)
	}
	count := frame.Pop().Int()
	if count < 0 {
		exc, err := vm.newVMException("java/lang/NegativeArraySizeException", fmt.Sprintf("%d", count))
		if err != nil {
			return value.Value{}, false, err
		}
		return value.Value{}, false, exc
	}
	arrClass, err := vm.Boot.Resolve("[L" + elemName + ";")
	if err != nil {
		return value.Value{}, false, fmt.Errorf("anewarray: %w", err)
	}
	arr := object.NewArrayInstance(arrClass, value.Object, int(count))
	vm.Heap.Track(arr)
	frame.Push(value.RefValue(arr))
	return value.Value{}, false, nil
}

// executeMultianewarray implements multianewarray (JVM Specification
// 6.5.multianewarray): pops `dimensions` sizes, building the array nested
// from the outermost dimension in.
func (vm *VM) executeMultianewarray(frame *Frame, pool []classfile.ConstantPoolEntry) (value.Value, bool, error) {
	index := frame.ReadU16()
	arrayName, err := classfile.GetClassName(pool, index)
	if err != nil {
		return value.Value{}, false, fmt.Errorf("multianewarray: %w", err)
	}
	dimensions := int(frame.ReadU8())
	if dimensions < 1 {
		return value.Value{}, false, fmt.Errorf("multianewarray: dimensions must be >= 1")
	}
	counts := make([]int32, dimensions)
	for i := dimensions - 1; i >= 0; i-- {
		counts[i] = frame.Pop().Int()
		if counts[i] < 0 {
			exc, err := vm.newVMException("java/lang/NegativeArraySizeException", fmt.Sprintf("%d", counts[i]))
			if err != nil {
				return value.Value{}, false, err
			}
			return value.Value{}, false, exc
		}
	}
	arr, err := vm.buildMultiArray(arrayName, counts)
	if err != nil {
		return value.Value{}, false, fmt.Errorf("multianewarray: %w", err)
	}
	frame.Push(value.RefValue(arr))
	return value.Value{}, false, nil
}

func (vm *VM) buildMultiArray(arrayName string, counts []int32) (*object.ArrayInstance, error) {
	arrClass, err := vm.Boot.Resolve(arrayName)
	if err != nil {
		return nil, err
	}
	ac, ok := arrClass.(*object.ArrayClass)
	if !ok {
		return nil, fmt.Errorf("%s did not resolve to an array class", arrayName)
	}
	n := int(counts[0])
	if len(counts) == 1 {
		arr := object.NewArrayInstance(arrClass, ac.ElemKind, n)
		vm.Heap.Track(arr)
		return arr, nil
	}
	arr := object.NewArrayInstance(arrClass, value.Object, n)
	vm.Heap.Track(arr)
	innerName := arrayName[1:]
	for i := 0; i < n; i++ {
		sub, err := vm.buildMultiArray(innerName, counts[1:])
		if err != nil {
			return nil, err
		}
		arr.Set(i, value.RefValue(sub))
	}
	return arr, nil
}

// executeCheckcast implements checkcast: a no-op on success, a
// ClassCastException when the top-of-stack reference is non-null and not
// assignable to the named type (JVM Specification 6.5.checkcast).
func (vm *VM) executeCheckcast(frame *Frame, pool []classfile.ConstantPoolEntry) (value.Value, bool, error) {
	index := frame.ReadU16()
	name, err := classfile.GetClassName(pool, index)
	if err != nil {
		return value.Value{}, false, fmt.Errorf("checkcast: %w", err)
	}
	ref := frame.Peek()
	if ref.IsNull() {
		return value.Value{}, false, nil
	}
	target, err := vm.Boot.Resolve(name)
	if err != nil {
		return value.Value{}, false, fmt.Errorf("checkcast: %w", err)
	}
	inst, ok := ref.Ref.(object.HeapObject)
	if !ok {
		return value.Value{}, false, fmt.Errorf("checkcast: operand has no runtime class")
	}
	if !object.IsAssignableFrom(target, inst.Class()) {
		exc, err := vm.newVMException("java/lang/ClassCastException", fmt.Sprintf("class %s cannot be cast to class %s", inst.Class().Name(), name))
		if err != nil {
			return value.Value{}, false, err
		}
		return value.Value{}, false, exc
	}
	return value.Value{}, false, nil
}

// executeInstanceof implements instanceof: pushes 1/0, never throws
// (null always yields false per JVM Specification 6.5.instanceof).
func (vm *VM) executeInstanceof(frame *Frame, pool []classfile.ConstantPoolEntry) (value.Value, bool, error) {
	index := frame.ReadU16()
	name, err := classfile.GetClassName(pool, index)
	if err != nil {
		return value.Value{}, false, fmt.Errorf("instanceof: %w", err)
	}
	ref := frame.Pop()
	if ref.IsNull() {
		frame.Push(value.IntValue(0))
		return value.Value{}, false, nil
	}
	target, err := vm.Boot.Resolve(name)
	if err != nil {
		return value.Value{}, false, fmt.Errorf("instanceof: %w", err)
	}
	inst, ok := ref.Ref.(object.HeapObject)
	if !ok {
		frame.Push(value.IntValue(0))
		return value.Value{}, false, nil
	}
	if object.IsAssignableFrom(target, inst.Class()) {
		frame.Push(value.IntValue(1))
	} else {
		frame.Push(value.IntValue(0))
	}
	return value.Value{}, false, nil
}

