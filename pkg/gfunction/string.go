package gfunction

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jvmcore/gojvm/pkg/hostbridge"
	"github.com/jvmcore/gojvm/pkg/object"
	"github.com/jvmcore/gojvm/pkg/value"
)

// stringClass implements java/lang/String's instance surface over the Go
// string carried in object.Instance.NativePayload, grounded on
// _examples/daimatz-gojvm/pkg/vm/vm.go's handleStringMethod (length,
// charAt, substring, equals, concat, indexOf, toUpperCase/toLowerCase,
// trim, split, compareTo) plus valueOf's overload set
// (handleStringValueOf).
func stringClass() hostbridge.ClassPrototype {
	return hostbridge.ClassPrototype{
		Name:  "java/lang/String",
		Super: "java/lang/Object",
		Methods: []hostbridge.MethodPrototype{
			{Name: "<init>", Descriptor: "()V", Body: noop},
			{Name: "length", Descriptor: "()I", Body: strLength},
			{Name: "isEmpty", Descriptor: "()Z", Body: strIsEmpty},
			{Name: "charAt", Descriptor: "(I)C", Body: strCharAt},
			{Name: "substring", Descriptor: "(I)Ljava/lang/String;", Body: strSubstring1},
			{Name: "substring", Descriptor: "(II)Ljava/lang/String;", Body: strSubstring2},
			{Name: "concat", Descriptor: "(Ljava/lang/String;)Ljava/lang/String;", Body: strConcat},
			{Name: "equals", Descriptor: "(Ljava/lang/Object;)Z", Body: strEquals},
			{Name: "equalsIgnoreCase", Descriptor: "(Ljava/lang/String;)Z", Body: strEqualsIgnoreCase},
			{Name: "compareTo", Descriptor: "(Ljava/lang/String;)I", Body: strCompareTo},
			{Name: "indexOf", Descriptor: "(Ljava/lang/String;)I", Body: strIndexOf},
			{Name: "contains", Descriptor: "(Ljava/lang/CharSequence;)Z", Body: strContains},
			{Name: "toUpperCase", Descriptor: "()Ljava/lang/String;", Body: strToUpperCase},
			{Name: "toLowerCase", Descriptor: "()Ljava/lang/String;", Body: strToLowerCase},
			{Name: "trim", Descriptor: "()Ljava/lang/String;", Body: strTrim},
			{Name: "hashCode", Descriptor: "()I", Body: strHashCode},
			{Name: "toString", Descriptor: "()Ljava/lang/String;", Body: strToString},
			{Name: "valueOf", Descriptor: "(I)Ljava/lang/String;", Static: true, Body: strValueOfInt},
			{Name: "valueOf", Descriptor: "(J)Ljava/lang/String;", Static: true, Body: strValueOfLong},
			{Name: "valueOf", Descriptor: "(Z)Ljava/lang/String;", Static: true, Body: strValueOfBool},
			{Name: "valueOf", Descriptor: "(Ljava/lang/Object;)Ljava/lang/String;", Static: true, Body: strValueOfObject},
		},
	}
}

func strLength(_ object.Invoker, this *object.Instance, _ []value.Value) (value.Value, error) {
	s, err := goString(value.RefValue(this))
	if err != nil {
		return value.Value{}, err
	}
	return value.IntValue(int32(len([]rune(s)))), nil
}

func strIsEmpty(_ object.Invoker, this *object.Instance, _ []value.Value) (value.Value, error) {
	s, err := goString(value.RefValue(this))
	if err != nil {
		return value.Value{}, err
	}
	return value.BoolValue(s == ""), nil
}

func strCharAt(inv object.Invoker, this *object.Instance, args []value.Value) (value.Value, error) {
	s, err := goString(value.RefValue(this))
	if err != nil {
		return value.Value{}, err
	}
	runes := []rune(s)
	idx := args[0].Int()
	if idx < 0 || int(idx) >= len(runes) {
		return value.Value{}, newIndexOutOfBounds(inv, idx)
	}
	return value.CharValue(uint16(runes[idx])), nil
}

// newIndexOutOfBounds raises a real StringIndexOutOfBoundsException
// through the owning VM (asserted off inv) rather than a bare Go error,
// so a Java-level try/catch can still match it (see
// exception.go's NewHostException).
func newIndexOutOfBounds(inv object.Invoker, idx int32) error {
	thrower, ok := inv.(interface{ NewHostException(string, string) error })
	if !ok {
		return fmt.Errorf("StringIndexOutOfBoundsException: index %d", idx)
	}
	return thrower.NewHostException("java/lang/StringIndexOutOfBoundsException", "String index out of range: "+strconv.Itoa(int(idx)))
}

func strSubstring1(inv object.Invoker, this *object.Instance, args []value.Value) (value.Value, error) {
	s, err := goString(value.RefValue(this))
	if err != nil {
		return value.Value{}, err
	}
	runes := []rune(s)
	begin := args[0].Int()
	if begin < 0 || int(begin) > len(runes) {
		return value.Value{}, newIndexOutOfBounds(inv, begin)
	}
	return newString(inv, string(runes[begin:]))
}

func strSubstring2(inv object.Invoker, this *object.Instance, args []value.Value) (value.Value, error) {
	s, err := goString(value.RefValue(this))
	if err != nil {
		return value.Value{}, err
	}
	runes := []rune(s)
	begin, end := args[0].Int(), args[1].Int()
	if begin < 0 || end > int32(len(runes)) || begin > end {
		return value.Value{}, newIndexOutOfBounds(inv, begin)
	}
	return newString(inv, string(runes[begin:end]))
}

func strConcat(inv object.Invoker, this *object.Instance, args []value.Value) (value.Value, error) {
	s, err := goString(value.RefValue(this))
	if err != nil {
		return value.Value{}, err
	}
	other, err := goString(args[0])
	if err != nil {
		return value.Value{}, err
	}
	return newString(inv, s+other)
}

func strEquals(_ object.Invoker, this *object.Instance, args []value.Value) (value.Value, error) {
	s, err := goString(value.RefValue(this))
	if err != nil {
		return value.Value{}, err
	}
	other, err := goString(args[0])
	if err != nil {
		return value.BoolValue(false), nil
	}
	return value.BoolValue(s == other), nil
}

func strEqualsIgnoreCase(_ object.Invoker, this *object.Instance, args []value.Value) (value.Value, error) {
	s, err := goString(value.RefValue(this))
	if err != nil {
		return value.Value{}, err
	}
	other, err := goString(args[0])
	if err != nil {
		return value.BoolValue(false), nil
	}
	return value.BoolValue(strings.EqualFold(s, other)), nil
}

func strCompareTo(_ object.Invoker, this *object.Instance, args []value.Value) (value.Value, error) {
	s, err := goString(value.RefValue(this))
	if err != nil {
		return value.Value{}, err
	}
	other, err := goString(args[0])
	if err != nil {
		return value.Value{}, err
	}
	return value.IntValue(int32(strings.Compare(s, other))), nil
}

func strIndexOf(_ object.Invoker, this *object.Instance, args []value.Value) (value.Value, error) {
	s, err := goString(value.RefValue(this))
	if err != nil {
		return value.Value{}, err
	}
	needle, err := goString(args[0])
	if err != nil {
		return value.Value{}, err
	}
	return value.IntValue(int32(strings.Index(s, needle))), nil
}

func strContains(_ object.Invoker, this *object.Instance, args []value.Value) (value.Value, error) {
	s, err := goString(value.RefValue(this))
	if err != nil {
		return value.Value{}, err
	}
	needle, err := goString(args[0])
	if err != nil {
		return value.Value{}, err
	}
	return value.BoolValue(strings.Contains(s, needle)), nil
}

func strToUpperCase(inv object.Invoker, this *object.Instance, _ []value.Value) (value.Value, error) {
	s, err := goString(value.RefValue(this))
	if err != nil {
		return value.Value{}, err
	}
	return newString(inv, strings.ToUpper(s))
}

func strToLowerCase(inv object.Invoker, this *object.Instance, _ []value.Value) (value.Value, error) {
	s, err := goString(value.RefValue(this))
	if err != nil {
		return value.Value{}, err
	}
	return newString(inv, strings.ToLower(s))
}

func strTrim(inv object.Invoker, this *object.Instance, _ []value.Value) (value.Value, error) {
	s, err := goString(value.RefValue(this))
	if err != nil {
		return value.Value{}, err
	}
	return newString(inv, strings.TrimSpace(s))
}

func strHashCode(_ object.Invoker, this *object.Instance, _ []value.Value) (value.Value, error) {
	s, err := goString(value.RefValue(this))
	if err != nil {
		return value.Value{}, err
	}
	return value.IntValue(javaStringHash(s)), nil
}

// javaStringHash reproduces java.lang.String#hashCode's
// s[0]*31^(n-1) + ... + s[n-1] recurrence exactly, so Java-visible hash
// codes match a real JVM's (JVM Specification, String.hashCode javadoc).
func javaStringHash(s string) int32 {
	var h int32
	for _, r := range s {
		h = h*31 + int32(r)
	}
	return h
}

func strToString(_ object.Invoker, this *object.Instance, _ []value.Value) (value.Value, error) {
	return value.RefValue(this), nil
}

func strValueOfInt(inv object.Invoker, _ *object.Instance, args []value.Value) (value.Value, error) {
	return newString(inv, strconv.FormatInt(int64(args[0].Int()), 10))
}

func strValueOfLong(inv object.Invoker, _ *object.Instance, args []value.Value) (value.Value, error) {
	return newString(inv, strconv.FormatInt(args[0].Long(), 10))
}

func strValueOfBool(inv object.Invoker, _ *object.Instance, args []value.Value) (value.Value, error) {
	return newString(inv, strconv.FormatBool(args[0].Bool()))
}

func strValueOfObject(inv object.Invoker, _ *object.Instance, args []value.Value) (value.Value, error) {
	if args[0].IsNull() {
		return newString(inv, "null")
	}
	if inst, ok := args[0].Ref.(*object.Instance); ok {
		if s, ok := inst.NativePayload.(string); ok {
			return newString(inv, s)
		}
		ret, err := inv.Invoke(mustFind(inst.Class(), "toString", "()Ljava/lang/String;"), []value.Value{args[0]})
		if err != nil {
			return value.Value{}, err
		}
		return ret, nil
	}
	return newString(inv, "")
}

func mustFind(class object.Class, name, descriptor string) *object.Method {
	for cur := class; cur != nil; cur = cur.Super() {
		if m := cur.FindMethod(name, descriptor); m != nil {
			return m
		}
	}
	return nil
}
