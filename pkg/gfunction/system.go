package gfunction

import (
	"time"

	"github.com/jvmcore/gojvm/pkg/hostbridge"
	"github.com/jvmcore/gojvm/pkg/hostcap"
	"github.com/jvmcore/gojvm/pkg/object"
	"github.com/jvmcore/gojvm/pkg/value"
)

// systemClass implements java/lang/System's native surface over the
// granted hostcap.Capability rather than the Go process directly, so an
// embedder sandboxing stdio or the clock (§6) is honored by System.out,
// System.currentTimeMillis, and friends. Grounded on
// _examples/daimatz-gojvm/pkg/vm/vm.go's System.registerNatives,
// System.arraycopy (nativeArraycopy) and System.nanoTime handling, and
// the getstatic special case wiring System.out to vm.Stdout.
func systemClass() hostbridge.ClassPrototype {
	return hostbridge.ClassPrototype{
		Name:  "java/lang/System",
		Super: "java/lang/Object",
		Fields: []hostbridge.FieldPrototype{
			{Name: "out", Descriptor: "Ljava/io/PrintStream;", Static: true},
			{Name: "err", Descriptor: "Ljava/io/PrintStream;", Static: true},
		},
		Methods: []hostbridge.MethodPrototype{
			{Name: "registerNatives", Descriptor: "()V", Static: true, Body: noop},
			{Name: "<clinit>", Descriptor: "()V", Static: true, Body: systemClinit},
			{Name: "arraycopy", Descriptor: "(Ljava/lang/Object;ILjava/lang/Object;II)V", Static: true, Body: systemArraycopy},
			{Name: "currentTimeMillis", Descriptor: "()J", Static: true, Body: systemCurrentTimeMillis},
			{Name: "nanoTime", Descriptor: "()J", Static: true, Body: systemNanoTime},
			{Name: "exit", Descriptor: "(I)V", Static: true, Body: systemExit},
			{Name: "identityHashCode", Descriptor: "(Ljava/lang/Object;)I", Static: true, Body: systemIdentityHashCode},
			{Name: "lineSeparator", Descriptor: "()Ljava/lang/String;", Static: true, Body: systemLineSeparator},
		},
	}
}

// systemClinit leaves System.out/System.err for pkg/config to populate
// after java/lang/System first links: wiring them here would need a
// context.Context this native's signature has no room for, and
// java/io/PrintStream must already be resolvable, which is only
// guaranteed once the whole bootstrap table has been installed.
func systemClinit(_ object.Invoker, _ *object.Instance, _ []value.Value) (value.Value, error) {
	return value.VoidValue(), nil
}

func systemArraycopy(inv object.Invoker, _ *object.Instance, args []value.Value) (value.Value, error) {
	srcV, destV := args[0], args[2]
	srcPos, destPos, length := args[1].Int(), args[3].Int(), args[4].Int()

	thrower, hasThrower := inv.(interface{ NewHostException(string, string) error })

	if srcV.IsNull() || destV.IsNull() {
		if hasThrower {
			return value.Value{}, thrower.NewHostException("java/lang/NullPointerException", "")
		}
		return value.Value{}, nil
	}
	src, ok1 := srcV.Ref.(*object.ArrayInstance)
	dest, ok2 := destV.Ref.(*object.ArrayInstance)
	if !ok1 || !ok2 {
		if hasThrower {
			return value.Value{}, thrower.NewHostException("java/lang/ArrayStoreException", "")
		}
		return value.Value{}, nil
	}
	if srcPos < 0 || destPos < 0 || length < 0 ||
		int(srcPos+length) > src.Length() || int(destPos+length) > dest.Length() {
		if hasThrower {
			return value.Value{}, thrower.NewHostException("java/lang/ArrayIndexOutOfBoundsException", "arraycopy")
		}
		return value.Value{}, nil
	}
	for i := int32(0); i < length; i++ {
		dest.Set(int(destPos+i), src.Get(int(srcPos+i)))
	}
	return value.VoidValue(), nil
}

func systemCurrentTimeMillis(inv object.Invoker, _ *object.Instance, _ []value.Value) (value.Value, error) {
	capper, ok := inv.(interface{ Capability() hostcap.Capability })
	now := time.Now()
	if ok {
		now = capper.Capability().Now()
	}
	return value.LongValue(now.UnixMilli()), nil
}

func systemNanoTime(inv object.Invoker, _ *object.Instance, _ []value.Value) (value.Value, error) {
	capper, ok := inv.(interface{ Capability() hostcap.Capability })
	now := time.Now()
	if ok {
		now = capper.Capability().Now()
	}
	return value.LongValue(now.UnixNano()), nil
}

// systemExit is intentionally a no-op rather than calling os.Exit:
// terminating the host process out from under an embedder isn't this
// runtime's call to make (§6 draws the line at the capability surface,
// and process lifetime sits outside it).
func systemExit(_ object.Invoker, _ *object.Instance, _ []value.Value) (value.Value, error) {
	return value.VoidValue(), nil
}

func systemIdentityHashCode(_ object.Invoker, _ *object.Instance, args []value.Value) (value.Value, error) {
	if args[0].IsNull() {
		return value.IntValue(0), nil
	}
	if inst, ok := args[0].Ref.(object.HeapObject); ok {
		return value.IntValue(inst.IdentityHash()), nil
	}
	return value.IntValue(0), nil
}

func systemLineSeparator(inv object.Invoker, _ *object.Instance, _ []value.Value) (value.Value, error) {
	return newString(inv, "\n")
}
