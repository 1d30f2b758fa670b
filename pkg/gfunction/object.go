// Package gfunction declares the host-implemented classes every JVM
// needs before it can run anything user-supplied: java/lang/Object,
// String, StringBuilder, the boxed primitive classes, System, and
// java/io/PrintStream. Grounded on
// _examples/daimatz-gojvm/pkg/vm/vm.go's executeNativeMethod switch
// (registerNatives no-ops, System.arraycopy, System.out, PrintStream
// println/print, String/StringBuilder instance methods, Integer/Long/
// Double boxing), but expressed as pkg/hostbridge.ClassPrototype tables
// instead of one large string-keyed switch, since every class here is
// installed once at bootstrap rather than dispatched to from inside the
// interpreter's invoke opcodes.
package gfunction

import (
	"fmt"

	"github.com/jvmcore/gojvm/pkg/hostbridge"
	"github.com/jvmcore/gojvm/pkg/object"
	"github.com/jvmcore/gojvm/pkg/value"
)

// Bootstrap returns every host-declared class this runtime provides, in
// an order where each entry's Super already appears earlier (Object
// first). Pass to hostbridge.Install against the boot registry before
// resolving any user class.
func Bootstrap() []hostbridge.ClassPrototype {
	var protos []hostbridge.ClassPrototype
	protos = append(protos, objectClass())
	protos = append(protos, throwableClasses()...)
	protos = append(protos, stringClass())
	protos = append(protos, stringBuilderClass())
	protos = append(protos, boxedClasses()...)
	protos = append(protos, systemClass())
	protos = append(protos, printStreamClass())
	return protos
}

// objectClass implements java/lang/Object: identity hashCode, reference
// equals, a toString that reads "ClassName@hexhash" the way the real JDK
// does, and the monitor primitives (wait/notify/notifyAll) wired onto
// object.Instance's own monitor fields (JVM Specification 2.11.10 and
// the Rust original's builtin Object class in class/java/lang/object.rs).
func objectClass() hostbridge.ClassPrototype {
	return hostbridge.ClassPrototype{
		Name: "java/lang/Object",
		Methods: []hostbridge.MethodPrototype{
			{Name: "<init>", Descriptor: "()V", Body: noop},
			{Name: "registerNatives", Descriptor: "()V", Static: true, Body: noop},
			{Name: "hashCode", Descriptor: "()I", Body: func(_ object.Invoker, this *object.Instance, _ []value.Value) (value.Value, error) {
				return value.IntValue(this.IdentityHash()), nil
			}},
			{Name: "equals", Descriptor: "(Ljava/lang/Object;)Z", Body: func(_ object.Invoker, this *object.Instance, args []value.Value) (value.Value, error) {
				other := args[0]
				return value.BoolValue(!other.IsNull() && other.Ref == any(this)), nil
			}},
			{Name: "toString", Descriptor: "()Ljava/lang/String;", Body: func(inv object.Invoker, this *object.Instance, _ []value.Value) (value.Value, error) {
				s := fmt.Sprintf("%s@%x", this.Class().Name(), uint32(this.IdentityHash()))
				return newString(inv, s)
			}},
			{Name: "getClass", Descriptor: "()Ljava/lang/Class;", Body: func(_ object.Invoker, this *object.Instance, _ []value.Value) (value.Value, error) {
				return value.RefValue(this.Class()), nil
			}},
			{Name: "wait", Descriptor: "()V", Body: func(_ object.Invoker, this *object.Instance, _ []value.Value) (value.Value, error) {
				this.Wait(0)
				return value.VoidValue(), nil
			}},
			{Name: "notify", Descriptor: "()V", Body: func(_ object.Invoker, this *object.Instance, _ []value.Value) (value.Value, error) {
				this.Notify()
				return value.VoidValue(), nil
			}},
			{Name: "notifyAll", Descriptor: "()V", Body: func(_ object.Invoker, this *object.Instance, _ []value.Value) (value.Value, error) {
				this.NotifyAll()
				return value.VoidValue(), nil
			}},
		},
	}
}

func noop(_ object.Invoker, _ *object.Instance, _ []value.Value) (value.Value, error) {
	return value.VoidValue(), nil
}

// throwableClasses declares java/lang/Throwable and the exception
// hierarchy the interpreter's own fault paths throw
// (newVMException/findExceptionHandler in pkg/interp), so those classes
// resolve through the same boot registry as everything else rather than
// needing special-cased handling.
func throwableClasses() []hostbridge.ClassPrototype {
	messageField := []hostbridge.FieldPrototype{{Name: "message", Descriptor: "Ljava/lang/String;"}}
	getMessage := hostbridge.MethodPrototype{
		Name: "getMessage", Descriptor: "()Ljava/lang/String;",
		Body: func(_ object.Invoker, this *object.Instance, _ []value.Value) (value.Value, error) {
			f, err := resolveDeclaredField(this.Class(), "message")
			if err != nil {
				return value.NullValue(), nil
			}
			return this.Storage().Get(f.SlotIndex), nil
		},
	}
	initNoArg := hostbridge.MethodPrototype{Name: "<init>", Descriptor: "()V", Body: noop}
	initMsg := hostbridge.MethodPrototype{
		Name: "<init>", Descriptor: "(Ljava/lang/String;)V",
		Body: func(_ object.Invoker, this *object.Instance, args []value.Value) (value.Value, error) {
			f, err := resolveDeclaredField(this.Class(), "message")
			if err != nil {
				return value.VoidValue(), nil
			}
			this.Storage().Set(f.SlotIndex, args[0])
			return value.VoidValue(), nil
		},
	}
	base := func(name, super string) hostbridge.ClassPrototype {
		return hostbridge.ClassPrototype{
			Name: name, Super: super,
			Fields:  messageField,
			Methods: []hostbridge.MethodPrototype{initNoArg, initMsg, getMessage},
		}
	}
	return []hostbridge.ClassPrototype{
		base("java/lang/Throwable", "java/lang/Object"),
		base("java/lang/Exception", "java/lang/Throwable"),
		base("java/lang/RuntimeException", "java/lang/Exception"),
		base("java/lang/Error", "java/lang/Throwable"),
		base("java/lang/NullPointerException", "java/lang/RuntimeException"),
		base("java/lang/ArithmeticException", "java/lang/RuntimeException"),
		base("java/lang/ArrayIndexOutOfBoundsException", "java/lang/RuntimeException"),
		base("java/lang/ArrayStoreException", "java/lang/RuntimeException"),
		base("java/lang/NegativeArraySizeException", "java/lang/RuntimeException"),
		base("java/lang/ClassCastException", "java/lang/RuntimeException"),
		base("java/lang/NumberFormatException", "java/lang/RuntimeException"),
		base("java/lang/IllegalArgumentException", "java/lang/RuntimeException"),
		base("java/lang/IllegalStateException", "java/lang/RuntimeException"),
		base("java/lang/IndexOutOfBoundsException", "java/lang/RuntimeException"),
		base("java/lang/StringIndexOutOfBoundsException", "java/lang/IndexOutOfBoundsException"),
		base("java/lang/UnsupportedOperationException", "java/lang/RuntimeException"),
		base("java/lang/StackOverflowError", "java/lang/Error"),
		base("java/lang/OutOfMemoryError", "java/lang/Error"),
		base("java/lang/NoClassDefFoundError", "java/lang/Error"),
		base("java/lang/AbstractMethodError", "java/lang/Error"),
	}
}

func resolveDeclaredField(class object.Class, name string) (*object.Field, error) {
	for cur := class; cur != nil; cur = cur.Super() {
		for _, f := range cur.DeclaredFields() {
			if f.Name == name {
				return f, nil
			}
		}
	}
	return nil, fmt.Errorf("no field named %s on %s", name, class.Name())
}

// newString allocates a java/lang/String instance carrying s as its
// NativePayload, through inv (an object.Invoker backed by *interp.VM in
// practice) so every native that manufactures a string goes through the
// same interning path as the interpreter's ldc/new-string handling.
func newString(inv object.Invoker, s string) (value.Value, error) {
	interner, ok := inv.(interface{ InternString(string) value.Value })
	if !ok {
		return value.Value{}, fmt.Errorf("gfunction: invoker does not support string interning")
	}
	return interner.InternString(s), nil
}

func goString(v value.Value) (string, error) {
	if v.IsNull() {
		return "", fmt.Errorf("gfunction: unexpected null where a String was required")
	}
	inst, ok := v.Ref.(*object.Instance)
	if !ok {
		return "", fmt.Errorf("gfunction: value is not a String instance")
	}
	s, ok := inst.NativePayload.(string)
	if !ok {
		return "", fmt.Errorf("gfunction: String instance has no backing Go string")
	}
	return s, nil
}
