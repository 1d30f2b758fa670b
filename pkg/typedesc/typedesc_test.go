package typedesc

import (
	"testing"

	"github.com/jvmcore/gojvm/pkg/value"
)

func TestParseFieldPrimitives(t *testing.T) {
	tests := []struct {
		descriptor string
		want       value.Kind
	}{
		{"Z", value.Boolean}, {"B", value.Byte}, {"C", value.Char},
		{"S", value.Short}, {"I", value.Int}, {"J", value.Long},
		{"F", value.Float}, {"D", value.Double}, {"V", value.Void},
	}
	for _, tt := range tests {
		t.Run(tt.descriptor, func(t *testing.T) {
			d, err := ParseField(tt.descriptor)
			if err != nil {
				t.Fatalf("ParseField(%q): %v", tt.descriptor, err)
			}
			if d.Kind != tt.want {
				t.Errorf("Kind: got %v, want %v", d.Kind, tt.want)
			}
			if d.IsArray() {
				t.Error("expected a primitive descriptor not to report IsArray")
			}
		})
	}
}

func TestParseFieldClassType(t *testing.T) {
	d, err := ParseField("Ljava/lang/String;")
	if err != nil {
		t.Fatalf("ParseField: %v", err)
	}
	if d.Kind != value.Object {
		t.Errorf("Kind: got %v, want Object", d.Kind)
	}
	if d.ClassName != "java/lang/String" {
		t.Errorf("ClassName: got %q, want %q", d.ClassName, "java/lang/String")
	}
	if d.IsArray() {
		t.Error("a plain class type should not report IsArray")
	}
}

func TestParseFieldArrayTypes(t *testing.T) {
	t.Run("array of int", func(t *testing.T) {
		d, err := ParseField("[I")
		if err != nil {
			t.Fatalf("ParseField: %v", err)
		}
		if !d.IsArray() {
			t.Fatal("expected IsArray to be true")
		}
		if d.Elem.Kind != value.Int {
			t.Errorf("Elem.Kind: got %v, want Int", d.Elem.Kind)
		}
	})
	t.Run("array of arrays", func(t *testing.T) {
		d, err := ParseField("[[D")
		if err != nil {
			t.Fatalf("ParseField: %v", err)
		}
		if !d.IsArray() || !d.Elem.IsArray() {
			t.Fatal("expected a two-dimensional array descriptor")
		}
		if d.Elem.Elem.Kind != value.Double {
			t.Errorf("innermost Kind: got %v, want Double", d.Elem.Elem.Kind)
		}
	})
	t.Run("array of objects", func(t *testing.T) {
		d, err := ParseField("[Ljava/lang/Object;")
		if err != nil {
			t.Fatalf("ParseField: %v", err)
		}
		if d.Elem.ClassName != "java/lang/Object" {
			t.Errorf("Elem.ClassName: got %q, want java/lang/Object", d.Elem.ClassName)
		}
	})
}

func TestParseFieldErrors(t *testing.T) {
	tests := []string{"", "Q", "Ljava/lang/String", "IJ"}
	for _, tt := range tests {
		t.Run(tt, func(t *testing.T) {
			if _, err := ParseField(tt); err == nil {
				t.Errorf("ParseField(%q): expected an error", tt)
			}
		})
	}
}

func TestDescriptorStringRoundTrip(t *testing.T) {
	tests := []string{"Z", "B", "C", "S", "I", "J", "F", "D", "V", "Ljava/lang/String;", "[I", "[[Ljava/lang/Object;"}
	for _, tt := range tests {
		t.Run(tt, func(t *testing.T) {
			d, err := ParseField(tt)
			if err != nil {
				t.Fatalf("ParseField(%q): %v", tt, err)
			}
			if got := d.String(); got != tt {
				t.Errorf("String(): got %q, want %q", got, tt)
			}
		})
	}
}

func TestArrayClassName(t *testing.T) {
	elem, err := ParseField("I")
	if err != nil {
		t.Fatalf("ParseField: %v", err)
	}
	if got := ArrayClassName(elem); got != "[I" {
		t.Errorf("ArrayClassName(I): got %q, want %q", got, "[I")
	}
}

func TestParseMethodNoArgsVoid(t *testing.T) {
	m, err := ParseMethod("()V")
	if err != nil {
		t.Fatalf("ParseMethod: %v", err)
	}
	if len(m.Params) != 0 {
		t.Errorf("Params: got %d, want 0", len(m.Params))
	}
	if m.Return.Kind != value.Void {
		t.Errorf("Return.Kind: got %v, want Void", m.Return.Kind)
	}
}

func TestParseMethodWithParamsAndObjectReturn(t *testing.T) {
	m, err := ParseMethod("(Ljava/lang/String;I[D)Ljava/lang/Object;")
	if err != nil {
		t.Fatalf("ParseMethod: %v", err)
	}
	if len(m.Params) != 3 {
		t.Fatalf("Params: got %d, want 3", len(m.Params))
	}
	if m.Params[0].Kind != value.Object || m.Params[0].ClassName != "java/lang/String" {
		t.Errorf("Params[0]: got %+v, want a java/lang/String reference", m.Params[0])
	}
	if m.Params[1].Kind != value.Int {
		t.Errorf("Params[1].Kind: got %v, want Int", m.Params[1].Kind)
	}
	if !m.Params[2].IsArray() || m.Params[2].Elem.Kind != value.Double {
		t.Errorf("Params[2]: got %+v, want [D", m.Params[2])
	}
	if m.Return.Kind != value.Object || m.Return.ClassName != "java/lang/Object" {
		t.Errorf("Return: got %+v, want a java/lang/Object reference", m.Return)
	}
}

func TestParseMethodErrors(t *testing.T) {
	tests := []string{"V", "(I", "(I)", "(I)VX"}
	for _, tt := range tests {
		t.Run(tt, func(t *testing.T) {
			if _, err := ParseMethod(tt); err == nil {
				t.Errorf("ParseMethod(%q): expected an error", tt)
			}
		})
	}
}

func TestParamCount(t *testing.T) {
	n, err := ParamCount("(IJLjava/lang/String;)V")
	if err != nil {
		t.Fatalf("ParamCount: %v", err)
	}
	if n != 3 {
		t.Errorf("ParamCount: got %d, want 3 (long still counts as one descriptor slot)", n)
	}
}

func TestIsVoidReturn(t *testing.T) {
	if !IsVoidReturn("(I)V") {
		t.Error("IsVoidReturn(\"(I)V\"): got false, want true")
	}
	if IsVoidReturn("(I)I") {
		t.Error("IsVoidReturn(\"(I)I\"): got true, want false")
	}
}
