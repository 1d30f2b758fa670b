package gfunction

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jvmcore/gojvm/pkg/object"
	"github.com/jvmcore/gojvm/pkg/value"
)

var testStringClass = object.NewOrdinaryClass("java/lang/String", "java/lang/Object", nil, 0, nil)

// fakeInvoker stands in for *interp.VM's object.Invoker surface, plus the
// ad-hoc capability interfaces (InternString/NewHostException)
// gfunction natives type-assert for, so bodies can be exercised without a
// running interpreter.
type fakeInvoker struct {
	invoke func(method *object.Method, args []value.Value) (value.Value, error)
	thrown []string
}

func (f *fakeInvoker) Invoke(method *object.Method, args []value.Value) (value.Value, error) {
	if f.invoke != nil {
		return f.invoke(method, args)
	}
	return value.VoidValue(), nil
}

func (f *fakeInvoker) InternString(s string) value.Value {
	return value.RefValue(newNativeString(s))
}

func (f *fakeInvoker) NewHostException(className, message string) error {
	f.thrown = append(f.thrown, className+": "+message)
	return &hostException{className: className, message: message}
}

type hostException struct {
	className, message string
}

func (e *hostException) Error() string { return e.className + ": " + e.message }

func newNativeString(s string) *object.Instance {
	inst := object.NewInstance(testStringClass, 0)
	inst.NativePayload = s
	return inst
}

func stringArg(s string) value.Value {
	return value.RefValue(newNativeString(s))
}

func mustString(t *testing.T, v value.Value) string {
	t.Helper()
	s, err := goString(v)
	if err != nil {
		t.Fatalf("goString: %v", err)
	}
	return s
}

func TestStringInstanceMethods(t *testing.T) {
	inv := &fakeInvoker{}
	this := newNativeString("Hello")

	t.Run("length", func(t *testing.T) {
		v, err := strLength(inv, this, nil)
		if err != nil || v.Int() != 5 {
			t.Errorf("length: got (%v, %v), want (5, nil)", v, err)
		}
	})
	t.Run("isEmpty false", func(t *testing.T) {
		v, err := strIsEmpty(inv, this, nil)
		if err != nil || v.Bool() {
			t.Errorf("isEmpty: got (%v, %v), want (false, nil)", v, err)
		}
	})
	t.Run("isEmpty true", func(t *testing.T) {
		v, err := strIsEmpty(inv, newNativeString(""), nil)
		if err != nil || !v.Bool() {
			t.Errorf("isEmpty: got (%v, %v), want (true, nil)", v, err)
		}
	})
	t.Run("charAt in range", func(t *testing.T) {
		v, err := strCharAt(inv, this, []value.Value{value.IntValue(1)})
		if err != nil || v.Char() != 'e' {
			t.Errorf("charAt(1): got (%v, %v), want ('e', nil)", v, err)
		}
	})
	t.Run("charAt out of range throws", func(t *testing.T) {
		if _, err := strCharAt(inv, this, []value.Value{value.IntValue(99)}); err == nil {
			t.Error("expected an error for an out-of-range index")
		}
	})
	t.Run("substring one-arg", func(t *testing.T) {
		v, err := strSubstring1(inv, this, []value.Value{value.IntValue(2)})
		if err != nil {
			t.Fatalf("substring: %v", err)
		}
		if got := mustString(t, v); got != "llo" {
			t.Errorf("substring(2): got %q, want %q", got, "llo")
		}
	})
	t.Run("substring two-arg", func(t *testing.T) {
		v, err := strSubstring2(inv, this, []value.Value{value.IntValue(1), value.IntValue(3)})
		if err != nil {
			t.Fatalf("substring: %v", err)
		}
		if got := mustString(t, v); got != "el" {
			t.Errorf("substring(1,3): got %q, want %q", got, "el")
		}
	})
	t.Run("substring rejects begin past end", func(t *testing.T) {
		if _, err := strSubstring2(inv, this, []value.Value{value.IntValue(3), value.IntValue(1)}); err == nil {
			t.Error("expected an error when begin > end")
		}
	})
	t.Run("concat", func(t *testing.T) {
		v, err := strConcat(inv, this, []value.Value{stringArg(", world")})
		if err != nil {
			t.Fatalf("concat: %v", err)
		}
		if got := mustString(t, v); got != "Hello, world" {
			t.Errorf("concat: got %q, want %q", got, "Hello, world")
		}
	})
	t.Run("equals true and false", func(t *testing.T) {
		if v, _ := strEquals(inv, this, []value.Value{stringArg("Hello")}); !v.Bool() {
			t.Error("expected Hello.equals(Hello) to be true")
		}
		if v, _ := strEquals(inv, this, []value.Value{stringArg("hello")}); v.Bool() {
			t.Error("expected Hello.equals(hello) to be false")
		}
	})
	t.Run("equalsIgnoreCase", func(t *testing.T) {
		v, err := strEqualsIgnoreCase(inv, this, []value.Value{stringArg("HELLO")})
		if err != nil || !v.Bool() {
			t.Errorf("equalsIgnoreCase: got (%v, %v), want (true, nil)", v, err)
		}
	})
	t.Run("compareTo", func(t *testing.T) {
		v, err := strCompareTo(inv, this, []value.Value{stringArg("Hello")})
		if err != nil || v.Int() != 0 {
			t.Errorf("compareTo(equal): got (%v, %v), want (0, nil)", v, err)
		}
	})
	t.Run("indexOf", func(t *testing.T) {
		v, err := strIndexOf(inv, this, []value.Value{stringArg("llo")})
		if err != nil || v.Int() != 2 {
			t.Errorf("indexOf: got (%v, %v), want (2, nil)", v, err)
		}
	})
	t.Run("contains", func(t *testing.T) {
		v, err := strContains(inv, this, []value.Value{stringArg("ell")})
		if err != nil || !v.Bool() {
			t.Errorf("contains: got (%v, %v), want (true, nil)", v, err)
		}
	})
	t.Run("toUpperCase and toLowerCase", func(t *testing.T) {
		up, err := strToUpperCase(inv, this, nil)
		if err != nil || mustString(t, up) != "HELLO" {
			t.Errorf("toUpperCase: got (%v, %v)", up, err)
		}
		low, err := strToLowerCase(inv, this, nil)
		if err != nil || mustString(t, low) != "hello" {
			t.Errorf("toLowerCase: got (%v, %v)", low, err)
		}
	})
	t.Run("trim", func(t *testing.T) {
		v, err := strTrim(inv, newNativeString("  padded  "), nil)
		if err != nil || mustString(t, v) != "padded" {
			t.Errorf("trim: got (%v, %v), want (padded, nil)", v, err)
		}
	})
	t.Run("hashCode matches java.lang.String's recurrence", func(t *testing.T) {
		v, err := strHashCode(inv, newNativeString("abc"), nil)
		if err != nil {
			t.Fatalf("hashCode: %v", err)
		}
		// 'a'*31^2 + 'b'*31 + 'c' = 97*961 + 98*31 + 99 = 96354
		if v.Int() != 96354 {
			t.Errorf("hashCode(abc): got %d, want 96354", v.Int())
		}
	})
	t.Run("toString returns the same reference", func(t *testing.T) {
		v, err := strToString(inv, this, nil)
		if err != nil || v.Ref != any(this) {
			t.Errorf("toString: expected the same String instance back")
		}
	})
}

func TestStringValueOf(t *testing.T) {
	inv := &fakeInvoker{}

	t.Run("int", func(t *testing.T) {
		v, err := strValueOfInt(inv, nil, []value.Value{value.IntValue(-42)})
		if err != nil || mustString(t, v) != "-42" {
			t.Errorf("valueOf(int): got (%v, %v)", v, err)
		}
	})
	t.Run("long", func(t *testing.T) {
		v, err := strValueOfLong(inv, nil, []value.Value{value.LongValue(123456789012)})
		if err != nil || mustString(t, v) != "123456789012" {
			t.Errorf("valueOf(long): got (%v, %v)", v, err)
		}
	})
	t.Run("bool", func(t *testing.T) {
		v, err := strValueOfBool(inv, nil, []value.Value{value.BoolValue(true)})
		if err != nil || mustString(t, v) != "true" {
			t.Errorf("valueOf(bool): got (%v, %v)", v, err)
		}
	})
	t.Run("null object", func(t *testing.T) {
		v, err := strValueOfObject(inv, nil, []value.Value{value.NullValue()})
		if err != nil || mustString(t, v) != "null" {
			t.Errorf("valueOf(null): got (%v, %v)", v, err)
		}
	})
	t.Run("object backed by a native string", func(t *testing.T) {
		v, err := strValueOfObject(inv, nil, []value.Value{stringArg("already a string")})
		if err != nil || mustString(t, v) != "already a string" {
			t.Errorf("valueOf(String): got (%v, %v)", v, err)
		}
	})
	t.Run("object without a native payload dispatches to toString", func(t *testing.T) {
		class := object.NewOrdinaryClass("Widget", "java/lang/Object", nil, 0, nil)
		class.Methods = []*object.Method{{Owner: class, Name: "toString", Descriptor: "()Ljava/lang/String;"}}
		inst := object.NewInstance(class, 0)

		dispatching := &fakeInvoker{invoke: func(method *object.Method, args []value.Value) (value.Value, error) {
			if method.Name != "toString" {
				t.Fatalf("expected toString to be invoked, got %s", method.Name)
			}
			return stringArg("a widget"), nil
		}}
		v, err := strValueOfObject(dispatching, nil, []value.Value{value.RefValue(inst)})
		if err != nil || mustString(t, v) != "a widget" {
			t.Errorf("valueOf(Widget): got (%v, %v)", v, err)
		}
	})
}

func TestBoxedIntegerMethods(t *testing.T) {
	inv := &fakeInvoker{}

	t.Run("parseInt success", func(t *testing.T) {
		v, err := intParseInt(inv, nil, []value.Value{stringArg(" 42 ")})
		if err != nil || v.Int() != 42 {
			t.Errorf("parseInt: got (%v, %v), want (42, nil)", v, err)
		}
	})
	t.Run("parseInt failure throws NumberFormatException", func(t *testing.T) {
		if _, err := intParseInt(inv, nil, []value.Value{stringArg("not a number")}); err == nil {
			t.Fatal("expected an error for an unparseable string")
		} else if !strings.Contains(err.Error(), "NumberFormatException") {
			t.Errorf("expected a NumberFormatException, got %v", err)
		}
	})
	t.Run("toString", func(t *testing.T) {
		v, err := intToString(inv, nil, []value.Value{value.IntValue(7)})
		if err != nil || mustString(t, v) != "7" {
			t.Errorf("toString: got (%v, %v)", v, err)
		}
	})
	t.Run("compare", func(t *testing.T) {
		if v, _ := intCompare(inv, nil, []value.Value{value.IntValue(1), value.IntValue(2)}); v.Int() != -1 {
			t.Errorf("compare(1,2): got %d, want -1", v.Int())
		}
		if v, _ := intCompare(inv, nil, []value.Value{value.IntValue(5), value.IntValue(5)}); v.Int() != 0 {
			t.Errorf("compare(5,5): got %d, want 0", v.Int())
		}
	})
}

func TestBoxedLongDoubleBoolean(t *testing.T) {
	inv := &fakeInvoker{}

	t.Run("long parseLong and compare", func(t *testing.T) {
		v, err := longParseLong(inv, nil, []value.Value{stringArg("9000000000")})
		if err != nil || v.Long() != 9000000000 {
			t.Errorf("parseLong: got (%v, %v)", v, err)
		}
		if cmp, _ := longCompare(inv, nil, []value.Value{value.LongValue(3), value.LongValue(1)}); cmp.Int() != 1 {
			t.Errorf("compare(3,1): got %d, want 1", cmp.Int())
		}
	})
	t.Run("double parseDouble", func(t *testing.T) {
		v, err := doubleParseDouble(inv, nil, []value.Value{stringArg("3.5")})
		if err != nil || v.Double() != 3.5 {
			t.Errorf("parseDouble: got (%v, %v)", v, err)
		}
	})
	t.Run("boolean parseBoolean is case insensitive", func(t *testing.T) {
		v, err := boolParseBoolean(inv, nil, []value.Value{stringArg("TRUE")})
		if err != nil || !v.Bool() {
			t.Errorf("parseBoolean(TRUE): got (%v, %v), want (true, nil)", v, err)
		}
	})
}

func TestStringBuilder(t *testing.T) {
	this := object.NewInstance(object.NewOrdinaryClass("java/lang/StringBuilder", "java/lang/Object", nil, 0, nil), 0)
	if _, err := sbInit(nil, this, nil); err != nil {
		t.Fatalf("sbInit: %v", err)
	}

	if _, err := sbAppendString(nil, this, []value.Value{stringArg("abc")}); err != nil {
		t.Fatalf("append(String): %v", err)
	}
	if _, err := sbAppendInt(nil, this, []value.Value{value.IntValue(1)}); err != nil {
		t.Fatalf("append(int): %v", err)
	}
	if _, err := sbAppendChar(nil, this, []value.Value{value.CharValue('!')}); err != nil {
		t.Fatalf("append(char): %v", err)
	}

	lengthV, _ := sbLength(nil, this, nil)
	if lengthV.Int() != 5 {
		t.Errorf("length: got %d, want 5", lengthV.Int())
	}

	inv := &fakeInvoker{}
	str, err := sbToString(inv, this, nil)
	if err != nil {
		t.Fatalf("toString: %v", err)
	}
	if got := mustString(t, str); got != "abc1!" {
		t.Errorf("toString: got %q, want %q", got, "abc1!")
	}

	if _, err := sbReverse(nil, this, nil); err != nil {
		t.Fatalf("reverse: %v", err)
	}
	reversed, _ := sbToString(inv, this, nil)
	if got := mustString(t, reversed); got != "!1cba" {
		t.Errorf("after reverse: got %q, want %q", got, "!1cba")
	}
}

func TestStringBuilderAppendNullString(t *testing.T) {
	this := object.NewInstance(object.NewOrdinaryClass("java/lang/StringBuilder", "java/lang/Object", nil, 0, nil), 0)
	sbInit(nil, this, nil)
	if _, err := sbAppendString(nil, this, []value.Value{value.NullValue()}); err != nil {
		t.Fatalf("append(null): %v", err)
	}
	inv := &fakeInvoker{}
	v, _ := sbToString(inv, this, nil)
	if got := mustString(t, v); got != "null" {
		t.Errorf("append(null) then toString: got %q, want %q", got, "null")
	}
}

func TestSystemArraycopy(t *testing.T) {
	inv := &fakeInvoker{}
	arrClass := object.NewArrayClass("[I", value.Int, nil, nil)

	t.Run("copies in range", func(t *testing.T) {
		src := object.NewArrayInstance(arrClass, value.Int, 3)
		dest := object.NewArrayInstance(arrClass, value.Int, 3)
		src.Set(0, value.IntValue(10))
		src.Set(1, value.IntValue(20))
		src.Set(2, value.IntValue(30))

		_, err := systemArraycopy(inv, nil, []value.Value{
			value.RefValue(src), value.IntValue(0),
			value.RefValue(dest), value.IntValue(1),
			value.IntValue(2),
		})
		if err != nil {
			t.Fatalf("arraycopy: %v", err)
		}
		if dest.Get(1).Int() != 10 || dest.Get(2).Int() != 20 {
			t.Errorf("arraycopy result: got [%v, %v], want [10, 20]", dest.Get(1), dest.Get(2))
		}
	})

	t.Run("out of bounds throws", func(t *testing.T) {
		src := object.NewArrayInstance(arrClass, value.Int, 2)
		dest := object.NewArrayInstance(arrClass, value.Int, 2)
		_, err := systemArraycopy(inv, nil, []value.Value{
			value.RefValue(src), value.IntValue(0),
			value.RefValue(dest), value.IntValue(0),
			value.IntValue(5),
		})
		if err == nil {
			t.Fatal("expected an ArrayIndexOutOfBoundsException for a too-long copy")
		}
	})

	t.Run("null source throws NullPointerException", func(t *testing.T) {
		dest := object.NewArrayInstance(arrClass, value.Int, 1)
		_, err := systemArraycopy(inv, nil, []value.Value{
			value.NullValue(), value.IntValue(0),
			value.RefValue(dest), value.IntValue(0),
			value.IntValue(1),
		})
		if err == nil || !strings.Contains(err.Error(), "NullPointerException") {
			t.Errorf("expected a NullPointerException, got %v", err)
		}
	})
}

func TestSystemIdentityHashCode(t *testing.T) {
	class := object.NewOrdinaryClass("Thing", "java/lang/Object", nil, 0, nil)
	inst := object.NewInstance(class, 0)

	v, err := systemIdentityHashCode(nil, nil, []value.Value{value.RefValue(inst)})
	if err != nil || v.Int() != inst.IdentityHash() {
		t.Errorf("identityHashCode: got (%v, %v), want (%d, nil)", v, err, inst.IdentityHash())
	}

	zero, err := systemIdentityHashCode(nil, nil, []value.Value{value.NullValue()})
	if err != nil || zero.Int() != 0 {
		t.Errorf("identityHashCode(null): got (%v, %v), want (0, nil)", zero, err)
	}
}

func TestPrintStreamWritesToItsNativeWriter(t *testing.T) {
	var buf bytes.Buffer
	this := object.NewInstance(object.NewOrdinaryClass("java/io/PrintStream", "java/lang/Object", nil, 0, nil), 0)
	this.NativePayload = &buf

	if _, err := psPrintString(nil, this, []value.Value{stringArg("hi")}); err != nil {
		t.Fatalf("print(String): %v", err)
	}
	if _, err := psPrintlnInt(nil, this, []value.Value{value.IntValue(7)}); err != nil {
		t.Fatalf("println(int): %v", err)
	}

	want := "hi7\n"
	if buf.String() != want {
		t.Errorf("PrintStream output: got %q, want %q", buf.String(), want)
	}
}

func TestPrintStreamWithoutNativePayloadDiscardsOutput(t *testing.T) {
	this := object.NewInstance(object.NewOrdinaryClass("java/io/PrintStream", "java/lang/Object", nil, 0, nil), 0)
	if _, err := psPrintlnString(nil, this, []value.Value{stringArg("nowhere")}); err != nil {
		t.Fatalf("println on a PrintStream with no writer should still succeed: %v", err)
	}
}

func TestFormatJavaDoubleAlwaysShowsAFractionalDigit(t *testing.T) {
	if got := formatJavaDouble(1.0); got != "1.0" {
		t.Errorf("formatJavaDouble(1.0): got %q, want %q", got, "1.0")
	}
	if got := formatJavaDouble(1.5); got != "1.5" {
		t.Errorf("formatJavaDouble(1.5): got %q, want %q", got, "1.5")
	}
}
