// Package hostbridge lowers host-declared classes into the same
// object.Class shape produced by parsing real bytecode, so the
// interpreter never has to special-case where a class came from (§4.7).
// The pattern is grounded in the Rust original's JavaClassProto
// (java_class_proto/src/proto.rs): a class is declared as a struct of
// methods and fields with Go closures instead of parsed bytecode bodies.
package hostbridge

import (
	"fmt"

	"github.com/jvmcore/gojvm/pkg/classfile"
	"github.com/jvmcore/gojvm/pkg/object"
	"github.com/jvmcore/gojvm/pkg/typedesc"
)

// MethodPrototype declares one native method of a host-implemented class.
type MethodPrototype struct {
	Name       string
	Descriptor string
	Static     bool
	Body       object.NativeFunc
}

// FieldPrototype declares one field of a host-implemented class. Host
// classes rarely need instance fields (state usually lives in
// object.Instance.NativePayload instead), but static constants
// (System.out's PrintStream, Integer.MAX_VALUE) are represented here.
type FieldPrototype struct {
	Name       string
	Descriptor string
	Static     bool
}

// ClassPrototype declares a host-implemented class: java/lang/Object,
// java/lang/String, java/io/PrintStream, and the rest of the bridge
// surface in pkg/gfunction are all built this way.
type ClassPrototype struct {
	Name       string
	Super      string // "" only for java/lang/Object itself
	Interfaces []string
	Methods    []MethodPrototype
	Fields     []FieldPrototype
}

// Lower converts a ClassPrototype into an *object.OrdinaryClass, the same
// registry entry type classloader.Registry produces for parsed bytecode.
// Linking (resolving Super/Interfaces to live object.Class values) is
// still the registry's job; Lower only builds the class's own members.
func Lower(proto ClassPrototype, loader object.Loader) (*object.OrdinaryClass, error) {
	var accessFlags uint16 = classfile.AccPublic
	class := object.NewOrdinaryClass(proto.Name, proto.Super, proto.Interfaces, accessFlags, loader)

	methods := make([]*object.Method, 0, len(proto.Methods))
	for _, mp := range proto.Methods {
		if _, err := typedesc.ParseMethod(mp.Descriptor); err != nil {
			return nil, fmt.Errorf("hostbridge: lowering %s.%s%s: %w", proto.Name, mp.Name, mp.Descriptor, err)
		}
		flags := uint16(classfile.AccPublic | classfile.AccNative)
		if mp.Static {
			flags |= classfile.AccStatic
		}
		methods = append(methods, &object.Method{
			Owner:       class,
			Name:        mp.Name,
			Descriptor:  mp.Descriptor,
			AccessFlags: flags,
			Native:      mp.Body,
		})
	}
	class.Methods = methods

	fields := make([]*object.Field, 0, len(proto.Fields))
	for i, fp := range proto.Fields {
		desc, err := typedesc.ParseField(fp.Descriptor)
		if err != nil {
			return nil, fmt.Errorf("hostbridge: lowering field %s.%s: %w", proto.Name, fp.Name, err)
		}
		flags := uint16(classfile.AccPublic)
		if fp.Static {
			flags |= classfile.AccStatic
		}
		fields = append(fields, &object.Field{
			Owner:       class,
			Name:        fp.Name,
			Descriptor:  fp.Descriptor,
			AccessFlags: flags,
			Kind:        desc.Kind,
			SlotIndex:   i,
		})
	}
	class.Fields = fields
	class.InstanceSlotSize = len(fields)

	return class, nil
}

// Registerer is satisfied by classloader.Registry: hostbridge uses it to
// install prototype-lowered classes into the bootstrap loader's registry
// without importing classloader directly.
type Registerer interface {
	RegisterPrototype(class *object.OrdinaryClass) error
}

// Install lowers and registers a batch of prototypes, in the order given
// (later prototypes may reference earlier ones as Super, so pkg/gfunction
// orders its table with java/lang/Object first).
func Install(reg Registerer, loader object.Loader, protos []ClassPrototype) error {
	for _, proto := range protos {
		class, err := Lower(proto, loader)
		if err != nil {
			return err
		}
		if err := reg.RegisterPrototype(class); err != nil {
			return fmt.Errorf("hostbridge: registering %s: %w", proto.Name, err)
		}
	}
	return nil
}
