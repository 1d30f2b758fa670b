package interp

import "github.com/jvmcore/gojvm/pkg/object"

// JavaException carries a thrown Java object through Go's error-return
// plumbing. Kept as its own type (rather than a sentinel value) so host
// faults (§7's other error category: malformed classfile, I/O failure,
// VM-internal invariant violation) and Java-visible exceptions stay
// distinguishable with a type switch. Grounded on
// _examples/daimatz-gojvm/pkg/vm/exception.go's JavaException.
type JavaException struct {
	Instance *object.Instance
}

func (e *JavaException) Error() string {
	return "JavaException: " + e.Instance.Class().Name()
}

// newVMException synthesizes a throwable instance for a VM-raised
// condition (NullPointerException, ArithmeticException,
// ArrayIndexOutOfBoundsException, ClassCastException, and the like) when
// no host exception class is registered to carry a message field; vm
// resolves className through the current class loader so a real,
// dispatchable instance is thrown rather than a bare string.
func (vm *VM) newVMException(className, message string) (*JavaException, error) {
	class, err := vm.Boot.Resolve(className)
	if err != nil {
		return nil, err
	}
	inst := object.NewInstance(class, class.InstanceSize())
	vm.Heap.Track(inst)
	if f := findFieldByName(class, "message"); f != nil {
		inst.Storage().Set(f.SlotIndex, stringValue(message))
	}
	return &JavaException{Instance: inst}, nil
}

// NewHostException lets host-implemented natives (pkg/gfunction) raise a
// real, dispatchable Java exception without importing pkg/interp
// themselves: they assert vm (received as the generic object.Invoker
// argument every NativeFunc gets) against a small local interface
// exposing just this method.
func (vm *VM) NewHostException(className, message string) error {
	exc, err := vm.newVMException(className, message)
	if err != nil {
		return err
	}
	return exc
}

func findFieldByName(class object.Class, name string) *object.Field {
	for cur := class; cur != nil; cur = cur.Super() {
		for _, f := range cur.DeclaredFields() {
			if f.Name == name {
				return f
			}
		}
	}
	return nil
}
