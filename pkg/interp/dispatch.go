package interp

import (
	"context"
	"fmt"

	"github.com/jvmcore/gojvm/pkg/classfile"
	"github.com/jvmcore/gojvm/pkg/object"
	"github.com/jvmcore/gojvm/pkg/typedesc"
	"github.com/jvmcore/gojvm/pkg/value"
)

// resolveVirtual walks from class up through its superclasses looking
// for the most-derived override of (name, descriptor) — standard virtual
// method resolution (JVM Specification 5.4.6) for invokevirtual, where
// the receiver's *runtime* class (not the compile-time static type named
// in the constant pool) determines which override runs.
func resolveVirtual(class object.Class, name, descriptor string) (*object.Method, object.Class, error) {
	for cur := class; cur != nil; cur = cur.Super() {
		if m := cur.FindMethod(name, descriptor); m != nil {
			return m, cur, nil
		}
	}
	return nil, nil, fmt.Errorf("NoSuchMethodError: %s%s not found on %s or its superclasses", name, descriptor, class.Name())
}

// resolveInterfaceMethod additionally searches the receiver's interface
// set (and their supers) when no class in the superclass chain declares
// the method, covering default-method-style dispatch for invokeinterface.
func resolveInterfaceMethod(class object.Class, name, descriptor string) (*object.Method, object.Class, error) {
	if m, owner, err := resolveVirtual(class, name, descriptor); err == nil {
		return m, owner, nil
	}
	var found *object.Method
	var owner object.Class
	var walk func(object.Class)
	walk = func(c object.Class) {
		if c == nil || found != nil {
			return
		}
		for _, iface := range c.Interfaces() {
			if m := iface.FindMethod(name, descriptor); m != nil {
				found, owner = m, iface
				return
			}
			walk(iface)
		}
		walk(c.Super())
	}
	walk(class)
	if found == nil {
		return nil, nil, fmt.Errorf("NoSuchMethodError: %s%s not found on %s's interfaces", name, descriptor, class.Name())
	}
	return found, owner, nil
}

// resolveSpecial resolves invokespecial targets: a declared-class lookup
// (no virtual override selection) used for <init>, private methods, and
// super calls (JVM Specification 5.4.3.3/6.5.invokespecial).
func resolveSpecial(startClass object.Class, name, descriptor string) (*object.Method, object.Class, error) {
	for cur := startClass; cur != nil; cur = cur.Super() {
		if m := cur.FindMethod(name, descriptor); m != nil {
			return m, cur, nil
		}
	}
	return nil, nil, fmt.Errorf("NoSuchMethodError: %s%s not found on %s", name, descriptor, startClass.Name())
}

// resolveStatic resolves invokestatic targets: declared-class lookup,
// walking supers for inherited statics.
func resolveStatic(class object.Class, name, descriptor string) (*object.Method, object.Class, error) {
	for cur := class; cur != nil; cur = cur.Super() {
		if m := cur.FindMethod(name, descriptor); m != nil {
			return m, cur, nil
		}
	}
	return nil, nil, fmt.Errorf("NoSuchMethodError: %s%s not found on %s", name, descriptor, class.Name())
}

// resolveField walks the superclass chain looking for a field
// declaration by name (JVM Specification 5.4.3.2); fields are not
// virtually dispatched, but a subclass's storage inherits its
// superclass's slots so lookup still needs to find which class declared
// the field to get its SlotIndex.
func resolveField(class object.Class, name string) (*object.Field, error) {
	for cur := class; cur != nil; cur = cur.Super() {
		for _, f := range cur.DeclaredFields() {
			if f.Name == name {
				return f, nil
			}
		}
	}
	return nil, fmt.Errorf("NoSuchFieldError: %s not found on %s", name, class.Name())
}

func isVoidReturn(descriptor string) bool { return typedesc.IsVoidReturn(descriptor) }

func popArgs(frame *Frame, descriptor string) ([]value.Value, error) {
	m, err := typedesc.ParseMethod(descriptor)
	if err != nil {
		return nil, fmt.Errorf("parsing descriptor %s: %w", descriptor, err)
	}
	args := make([]value.Value, len(m.Params))
	for i := len(m.Params) - 1; i >= 0; i-- {
		args[i] = frame.Pop()
	}
	return args, nil
}

// invokeVirtualImpl implements the invokevirtual opcode (§4.4): pop the
// receiver and arguments, verify non-null, resolve against the
// receiver's runtime class, and recurse into invokeMethod.
func (vm *VM) invokeVirtualImpl(ctx context.Context, frame *Frame, pool []classfile.ConstantPoolEntry) (value.Value, bool, error) {
	index := frame.ReadU16()
	ref, err := classfile.ResolveMethodref(pool, index)
	if err != nil {
		return value.Value{}, false, fmt.Errorf("invokevirtual: %w", err)
	}
	args, err := popArgs(frame, ref.Descriptor)
	if err != nil {
		return value.Value{}, false, err
	}
	receiver := frame.Pop()
	if receiver.IsNull() {
		exc, err := vm.newVMException("java/lang/NullPointerException", "")
		if err != nil {
			return value.Value{}, false, err
		}
		return value.Value{}, false, exc
	}
	inst, ok := receiver.Ref.(*object.Instance)
	if !ok {
		return value.Value{}, false, fmt.Errorf("invokevirtual: receiver of %s.%s is not an object instance", ref.ClassName, ref.MemberName)
	}
	method, owner, err := resolveVirtual(inst.Class(), ref.MemberName, ref.Descriptor)
	if err != nil {
		return value.Value{}, false, err
	}
	fullArgs := append([]value.Value{receiver}, args...)
	retVal, err := vm.invokeMethod(ctx, owner, method, fullArgs)
	if err != nil {
		return value.Value{}, false, err
	}
	if !isVoidReturn(ref.Descriptor) {
		frame.Push(retVal)
	}
	return value.Value{}, false, nil
}

func (vm *VM) invokeSpecialImpl(ctx context.Context, frame *Frame, pool []classfile.ConstantPoolEntry) (value.Value, bool, error) {
	index := frame.ReadU16()
	ref, err := classfile.ResolveMethodref(pool, index)
	if err != nil {
		return value.Value{}, false, fmt.Errorf("invokespecial: %w", err)
	}
	args, err := popArgs(frame, ref.Descriptor)
	if err != nil {
		return value.Value{}, false, err
	}
	receiver := frame.Pop()
	if receiver.IsNull() {
		exc, err := vm.newVMException("java/lang/NullPointerException", "")
		if err != nil {
			return value.Value{}, false, err
		}
		return value.Value{}, false, exc
	}
	declClass, err := vm.Boot.Resolve(ref.ClassName)
	if err != nil {
		return value.Value{}, false, err
	}
	method, owner, err := resolveSpecial(declClass, ref.MemberName, ref.Descriptor)
	if err != nil {
		return value.Value{}, false, err
	}
	fullArgs := append([]value.Value{receiver}, args...)
	retVal, err := vm.invokeMethod(ctx, owner, method, fullArgs)
	if err != nil {
		return value.Value{}, false, err
	}
	if !isVoidReturn(ref.Descriptor) {
		frame.Push(retVal)
	}
	return value.Value{}, false, nil
}

func (vm *VM) invokeStaticImpl(ctx context.Context, frame *Frame, pool []classfile.ConstantPoolEntry) (value.Value, bool, error) {
	index := frame.ReadU16()
	ref, err := classfile.ResolveMethodref(pool, index)
	if err != nil {
		return value.Value{}, false, fmt.Errorf("invokestatic: %w", err)
	}
	args, err := popArgs(frame, ref.Descriptor)
	if err != nil {
		return value.Value{}, false, err
	}
	declClass, err := vm.Boot.Resolve(ref.ClassName)
	if err != nil {
		return value.Value{}, false, err
	}
	method, owner, err := resolveStatic(declClass, ref.MemberName, ref.Descriptor)
	if err != nil {
		return value.Value{}, false, err
	}
	retVal, err := vm.invokeMethod(ctx, owner, method, args)
	if err != nil {
		return value.Value{}, false, err
	}
	if !isVoidReturn(ref.Descriptor) {
		frame.Push(retVal)
	}
	return value.Value{}, false, nil
}

func (vm *VM) invokeInterfaceImpl(ctx context.Context, frame *Frame, pool []classfile.ConstantPoolEntry) (value.Value, bool, error) {
	index := frame.ReadU16()
	ref, err := classfile.ResolveInterfaceMethodref(pool, index)
	if err != nil {
		return value.Value{}, false, fmt.Errorf("invokeinterface: %w", err)
	}
	frame.ReadU8() // count, informational only (JVM Specification 6.5.invokeinterface)
	frame.ReadU8() // must be zero
	args, err := popArgs(frame, ref.Descriptor)
	if err != nil {
		return value.Value{}, false, err
	}
	receiver := frame.Pop()
	if receiver.IsNull() {
		exc, err := vm.newVMException("java/lang/NullPointerException", "")
		if err != nil {
			return value.Value{}, false, err
		}
		return value.Value{}, false, exc
	}
	inst, ok := receiver.Ref.(*object.Instance)
	if !ok {
		return value.Value{}, false, fmt.Errorf("invokeinterface: receiver of %s.%s is not an object instance", ref.ClassName, ref.MemberName)
	}
	method, owner, err := resolveInterfaceMethod(inst.Class(), ref.MemberName, ref.Descriptor)
	if err != nil {
		return value.Value{}, false, err
	}
	fullArgs := append([]value.Value{receiver}, args...)
	retVal, err := vm.invokeMethod(ctx, owner, method, fullArgs)
	if err != nil {
		return value.Value{}, false, err
	}
	if !isVoidReturn(ref.Descriptor) {
		frame.Push(retVal)
	}
	return value.Value{}, false, nil
}
