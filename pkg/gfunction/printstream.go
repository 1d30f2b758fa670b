package gfunction

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/jvmcore/gojvm/pkg/hostbridge"
	"github.com/jvmcore/gojvm/pkg/object"
	"github.com/jvmcore/gojvm/pkg/value"
)

// printStreamClass implements java/io/PrintStream's print/println
// overload set over an io.Writer captured in NativePayload, grounded on
// _examples/daimatz-gojvm/pkg/vm/vm.go's handlePrintStream. pkg/config
// constructs the two live instances (System.out/System.err) by setting
// NativePayload directly to the granted hostcap.Capability's
// Stdout()/Stderr() writer rather than going through <init>, mirroring
// how the teacher pre-built its native.PrintStream{Writer: vm.Stdout}
// rather than running bytecode for it.
func printStreamClass() hostbridge.ClassPrototype {
	return hostbridge.ClassPrototype{
		Name:  "java/io/PrintStream",
		Super: "java/lang/Object",
		Methods: []hostbridge.MethodPrototype{
			{Name: "println", Descriptor: "()V", Body: psPrintlnVoid},
			{Name: "println", Descriptor: "(I)V", Body: psPrintlnInt},
			{Name: "println", Descriptor: "(J)V", Body: psPrintlnLong},
			{Name: "println", Descriptor: "(D)V", Body: psPrintlnDouble},
			{Name: "println", Descriptor: "(F)V", Body: psPrintlnFloat},
			{Name: "println", Descriptor: "(Z)V", Body: psPrintlnBool},
			{Name: "println", Descriptor: "(C)V", Body: psPrintlnChar},
			{Name: "println", Descriptor: "(Ljava/lang/String;)V", Body: psPrintlnString},
			{Name: "println", Descriptor: "(Ljava/lang/Object;)V", Body: psPrintlnObject},
			{Name: "print", Descriptor: "(I)V", Body: psPrintInt},
			{Name: "print", Descriptor: "(J)V", Body: psPrintLong},
			{Name: "print", Descriptor: "(D)V", Body: psPrintDouble},
			{Name: "print", Descriptor: "(F)V", Body: psPrintFloat},
			{Name: "print", Descriptor: "(Z)V", Body: psPrintBool},
			{Name: "print", Descriptor: "(C)V", Body: psPrintChar},
			{Name: "print", Descriptor: "(Ljava/lang/String;)V", Body: psPrintString},
			{Name: "print", Descriptor: "(Ljava/lang/Object;)V", Body: psPrintObject},
			{Name: "flush", Descriptor: "()V", Body: psFlush},
		},
	}
}

func psWriter(this *object.Instance) io.Writer {
	if w, ok := this.NativePayload.(io.Writer); ok {
		return w
	}
	return io.Discard
}

// formatJavaDouble matches java.lang.Double#toString's habit of always
// showing at least one fractional digit for whole-valued doubles
// (1.0, not 1), grounded on the teacher's formatDouble helper.
func formatJavaDouble(d float64) string {
	if d == float64(int64(d)) && !math.IsInf(d, 0) {
		return strconv.FormatFloat(d, 'f', 1, 64)
	}
	return strconv.FormatFloat(d, 'f', -1, 64)
}

func psPrintlnVoid(_ object.Invoker, this *object.Instance, _ []value.Value) (value.Value, error) {
	fmt.Fprintln(psWriter(this))
	return value.VoidValue(), nil
}

func psPrintlnInt(_ object.Invoker, this *object.Instance, args []value.Value) (value.Value, error) {
	fmt.Fprintln(psWriter(this), args[0].Int())
	return value.VoidValue(), nil
}

func psPrintlnLong(_ object.Invoker, this *object.Instance, args []value.Value) (value.Value, error) {
	fmt.Fprintln(psWriter(this), args[0].Long())
	return value.VoidValue(), nil
}

func psPrintlnDouble(_ object.Invoker, this *object.Instance, args []value.Value) (value.Value, error) {
	fmt.Fprintln(psWriter(this), formatJavaDouble(args[0].Double()))
	return value.VoidValue(), nil
}

func psPrintlnFloat(_ object.Invoker, this *object.Instance, args []value.Value) (value.Value, error) {
	fmt.Fprintln(psWriter(this), args[0].Float())
	return value.VoidValue(), nil
}

func psPrintlnBool(_ object.Invoker, this *object.Instance, args []value.Value) (value.Value, error) {
	fmt.Fprintln(psWriter(this), args[0].Bool())
	return value.VoidValue(), nil
}

func psPrintlnChar(_ object.Invoker, this *object.Instance, args []value.Value) (value.Value, error) {
	fmt.Fprintln(psWriter(this), string(rune(args[0].Char())))
	return value.VoidValue(), nil
}

func psPrintlnString(_ object.Invoker, this *object.Instance, args []value.Value) (value.Value, error) {
	w := psWriter(this)
	if args[0].IsNull() {
		fmt.Fprintln(w, "null")
		return value.VoidValue(), nil
	}
	s, err := goString(args[0])
	if err != nil {
		return value.Value{}, err
	}
	fmt.Fprintln(w, s)
	return value.VoidValue(), nil
}

func psPrintlnObject(inv object.Invoker, this *object.Instance, args []value.Value) (value.Value, error) {
	s, err := strValueOfObject(inv, nil, args)
	if err != nil {
		return value.Value{}, err
	}
	str, err := goString(s)
	if err != nil {
		return value.Value{}, err
	}
	fmt.Fprintln(psWriter(this), str)
	return value.VoidValue(), nil
}

func psPrintInt(_ object.Invoker, this *object.Instance, args []value.Value) (value.Value, error) {
	fmt.Fprint(psWriter(this), args[0].Int())
	return value.VoidValue(), nil
}

func psPrintLong(_ object.Invoker, this *object.Instance, args []value.Value) (value.Value, error) {
	fmt.Fprint(psWriter(this), args[0].Long())
	return value.VoidValue(), nil
}

func psPrintDouble(_ object.Invoker, this *object.Instance, args []value.Value) (value.Value, error) {
	fmt.Fprint(psWriter(this), formatJavaDouble(args[0].Double()))
	return value.VoidValue(), nil
}

func psPrintFloat(_ object.Invoker, this *object.Instance, args []value.Value) (value.Value, error) {
	fmt.Fprint(psWriter(this), args[0].Float())
	return value.VoidValue(), nil
}

func psPrintBool(_ object.Invoker, this *object.Instance, args []value.Value) (value.Value, error) {
	fmt.Fprint(psWriter(this), args[0].Bool())
	return value.VoidValue(), nil
}

func psPrintChar(_ object.Invoker, this *object.Instance, args []value.Value) (value.Value, error) {
	fmt.Fprint(psWriter(this), string(rune(args[0].Char())))
	return value.VoidValue(), nil
}

func psPrintString(_ object.Invoker, this *object.Instance, args []value.Value) (value.Value, error) {
	w := psWriter(this)
	if args[0].IsNull() {
		fmt.Fprint(w, "null")
		return value.VoidValue(), nil
	}
	s, err := goString(args[0])
	if err != nil {
		return value.Value{}, err
	}
	fmt.Fprint(w, s)
	return value.VoidValue(), nil
}

func psPrintObject(inv object.Invoker, this *object.Instance, args []value.Value) (value.Value, error) {
	s, err := strValueOfObject(inv, nil, args)
	if err != nil {
		return value.Value{}, err
	}
	str, err := goString(s)
	if err != nil {
		return value.Value{}, err
	}
	fmt.Fprint(psWriter(this), str)
	return value.VoidValue(), nil
}

func psFlush(_ object.Invoker, this *object.Instance, _ []value.Value) (value.Value, error) {
	if f, ok := psWriter(this).(interface{ Flush() error }); ok {
		_ = f.Flush()
	}
	return value.VoidValue(), nil
}
