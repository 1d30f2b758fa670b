package gfunction

import (
	"strconv"
	"strings"

	"github.com/jvmcore/gojvm/pkg/hostbridge"
	"github.com/jvmcore/gojvm/pkg/object"
	"github.com/jvmcore/gojvm/pkg/value"
)

// stringBuilderClass implements java/lang/StringBuilder backed by a Go
// *strings.Builder in NativePayload, grounded on
// _examples/daimatz-gojvm/pkg/vm/vm.go's handleStringBuilder (append
// overloads for String/int/long/char/boolean, toString, length).
func stringBuilderClass() hostbridge.ClassPrototype {
	return hostbridge.ClassPrototype{
		Name:  "java/lang/StringBuilder",
		Super: "java/lang/Object",
		Methods: []hostbridge.MethodPrototype{
			{Name: "<init>", Descriptor: "()V", Body: sbInit},
			{Name: "<init>", Descriptor: "(Ljava/lang/String;)V", Body: sbInitString},
			{Name: "append", Descriptor: "(Ljava/lang/String;)Ljava/lang/StringBuilder;", Body: sbAppendString},
			{Name: "append", Descriptor: "(I)Ljava/lang/StringBuilder;", Body: sbAppendInt},
			{Name: "append", Descriptor: "(J)Ljava/lang/StringBuilder;", Body: sbAppendLong},
			{Name: "append", Descriptor: "(C)Ljava/lang/StringBuilder;", Body: sbAppendChar},
			{Name: "append", Descriptor: "(Z)Ljava/lang/StringBuilder;", Body: sbAppendBool},
			{Name: "append", Descriptor: "(D)Ljava/lang/StringBuilder;", Body: sbAppendDouble},
			{Name: "append", Descriptor: "(Ljava/lang/Object;)Ljava/lang/StringBuilder;", Body: sbAppendObject},
			{Name: "length", Descriptor: "()I", Body: sbLength},
			{Name: "toString", Descriptor: "()Ljava/lang/String;", Body: sbToString},
			{Name: "reverse", Descriptor: "()Ljava/lang/StringBuilder;", Body: sbReverse},
		},
	}
}

func sbBuilder(this *object.Instance) *strings.Builder {
	b, ok := this.NativePayload.(*strings.Builder)
	if !ok {
		b = &strings.Builder{}
		this.NativePayload = b
	}
	return b
}

func sbInit(_ object.Invoker, this *object.Instance, _ []value.Value) (value.Value, error) {
	this.NativePayload = &strings.Builder{}
	return value.VoidValue(), nil
}

func sbInitString(_ object.Invoker, this *object.Instance, args []value.Value) (value.Value, error) {
	s, err := goString(args[0])
	if err != nil {
		return value.Value{}, err
	}
	b := &strings.Builder{}
	b.WriteString(s)
	this.NativePayload = b
	return value.VoidValue(), nil
}

func sbAppendString(_ object.Invoker, this *object.Instance, args []value.Value) (value.Value, error) {
	b := sbBuilder(this)
	if args[0].IsNull() {
		b.WriteString("null")
	} else {
		s, err := goString(args[0])
		if err != nil {
			return value.Value{}, err
		}
		b.WriteString(s)
	}
	return value.RefValue(this), nil
}

func sbAppendInt(_ object.Invoker, this *object.Instance, args []value.Value) (value.Value, error) {
	sbBuilder(this).WriteString(strconv.FormatInt(int64(args[0].Int()), 10))
	return value.RefValue(this), nil
}

func sbAppendLong(_ object.Invoker, this *object.Instance, args []value.Value) (value.Value, error) {
	sbBuilder(this).WriteString(strconv.FormatInt(args[0].Long(), 10))
	return value.RefValue(this), nil
}

func sbAppendChar(_ object.Invoker, this *object.Instance, args []value.Value) (value.Value, error) {
	sbBuilder(this).WriteRune(rune(args[0].Char()))
	return value.RefValue(this), nil
}

func sbAppendBool(_ object.Invoker, this *object.Instance, args []value.Value) (value.Value, error) {
	sbBuilder(this).WriteString(strconv.FormatBool(args[0].Bool()))
	return value.RefValue(this), nil
}

func sbAppendDouble(_ object.Invoker, this *object.Instance, args []value.Value) (value.Value, error) {
	sbBuilder(this).WriteString(strconv.FormatFloat(args[0].Double(), 'g', -1, 64))
	return value.RefValue(this), nil
}

func sbAppendObject(inv object.Invoker, this *object.Instance, args []value.Value) (value.Value, error) {
	b := sbBuilder(this)
	if args[0].IsNull() {
		b.WriteString("null")
		return value.RefValue(this), nil
	}
	s, err := strValueOfObject(inv, nil, args)
	if err != nil {
		return value.Value{}, err
	}
	str, err := goString(s)
	if err != nil {
		return value.Value{}, err
	}
	b.WriteString(str)
	return value.RefValue(this), nil
}

func sbLength(_ object.Invoker, this *object.Instance, _ []value.Value) (value.Value, error) {
	return value.IntValue(int32(sbBuilder(this).Len())), nil
}

func sbToString(inv object.Invoker, this *object.Instance, _ []value.Value) (value.Value, error) {
	return newString(inv, sbBuilder(this).String())
}

func sbReverse(_ object.Invoker, this *object.Instance, _ []value.Value) (value.Value, error) {
	b := sbBuilder(this)
	runes := []rune(b.String())
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	b.Reset()
	b.WriteString(string(runes))
	return value.RefValue(this), nil
}
