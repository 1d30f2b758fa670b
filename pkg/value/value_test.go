package value

import "testing"

func TestNumericRoundTrip(t *testing.T) {
	t.Run("byte sign extension", func(t *testing.T) {
		if got := ByteValue(-5).Byte(); got != -5 {
			t.Errorf("Byte(): got %d, want -5", got)
		}
	})
	t.Run("char is unsigned", func(t *testing.T) {
		v := CharValue(0xFFFF)
		if got := v.Char(); got != 0xFFFF {
			t.Errorf("Char(): got %d, want 65535", got)
		}
	})
	t.Run("short sign extension", func(t *testing.T) {
		if got := ShortValue(-32768).Short(); got != -32768 {
			t.Errorf("Short(): got %d, want -32768", got)
		}
	})
	t.Run("int negative", func(t *testing.T) {
		if got := IntValue(-1).Int(); got != -1 {
			t.Errorf("Int(): got %d, want -1", got)
		}
	})
	t.Run("long full range", func(t *testing.T) {
		v := LongValue(-9223372036854775808)
		if got := v.Long(); got != -9223372036854775808 {
			t.Errorf("Long(): got %d, want math.MinInt64", got)
		}
	})
	t.Run("float bit pattern round trip", func(t *testing.T) {
		if got := FloatValue(3.5).Float(); got != 3.5 {
			t.Errorf("Float(): got %v, want 3.5", got)
		}
	})
	t.Run("double bit pattern round trip", func(t *testing.T) {
		if got := DoubleValue(-2.25).Double(); got != -2.25 {
			t.Errorf("Double(): got %v, want -2.25", got)
		}
	})
	t.Run("bool true and false", func(t *testing.T) {
		if !BoolValue(true).Bool() {
			t.Error("BoolValue(true).Bool(): got false")
		}
		if BoolValue(false).Bool() {
			t.Error("BoolValue(false).Bool(): got true")
		}
	})
}

func TestNullAndReference(t *testing.T) {
	t.Run("NullValue is a null object reference", func(t *testing.T) {
		v := NullValue()
		if v.Kind != Object {
			t.Errorf("NullValue().Kind: got %v, want Object", v.Kind)
		}
		if !v.IsNull() {
			t.Error("NullValue().IsNull(): got false")
		}
	})
	t.Run("RefValue is non-null", func(t *testing.T) {
		obj := &struct{}{}
		v := RefValue(obj)
		if v.IsNull() {
			t.Error("RefValue(obj).IsNull(): got true")
		}
		if v.Ref != obj {
			t.Error("RefValue(obj).Ref: reference identity not preserved")
		}
	})
}

func TestKindWidth(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{Boolean, 1}, {Byte, 1}, {Char, 1}, {Short, 1}, {Int, 1}, {Float, 1}, {Object, 1},
		{Long, 2}, {Double, 2},
	}
	for _, tt := range tests {
		if got := tt.kind.Width(); got != tt.want {
			t.Errorf("%s.Width(): got %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestAsInt(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want int32
	}{
		{"boolean true", BoolValue(true), 1},
		{"boolean false", BoolValue(false), 0},
		{"byte negative", ByteValue(-1), -1},
		{"char", CharValue(65), 65},
		{"short negative", ShortValue(-100), -100},
		{"int passthrough", IntValue(12345), 12345},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.AsInt(); got != tt.want {
				t.Errorf("AsInt(): got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNarrowTo(t *testing.T) {
	t.Run("byte truncates and sign-extends", func(t *testing.T) {
		v := NarrowTo(Byte, 0x1FF) // 511 -> low byte 0xFF -> -1 as int8
		if v.Kind != Byte {
			t.Fatalf("Kind: got %v, want Byte", v.Kind)
		}
		if got := v.Byte(); got != -1 {
			t.Errorf("Byte(): got %d, want -1", got)
		}
	})
	t.Run("char truncates without sign extension", func(t *testing.T) {
		v := NarrowTo(Char, -1)
		if got := v.Char(); got != 0xFFFF {
			t.Errorf("Char(): got %d, want 65535", got)
		}
	})
	t.Run("boolean narrows to the low bit", func(t *testing.T) {
		if got := NarrowTo(Boolean, 2).Bool(); got {
			t.Error("NarrowTo(Boolean, 2).Bool(): got true, want false (low bit of 2 is 0)")
		}
		if got := NarrowTo(Boolean, 3).Bool(); !got {
			t.Error("NarrowTo(Boolean, 3).Bool(): got false, want true (low bit of 3 is 1)")
		}
		if got := NarrowTo(Boolean, 4).Bool(); got {
			t.Error("NarrowTo(Boolean, 4).Bool(): got true, want false (low bit of 4 is 0)")
		}
	})
	t.Run("default falls through to int", func(t *testing.T) {
		v := NarrowTo(Int, -7)
		if v.Kind != Int || v.Int() != -7 {
			t.Errorf("NarrowTo(Int, -7): got %+v", v)
		}
	})
}

func TestDefault(t *testing.T) {
	tests := []struct {
		kind Kind
	}{{Boolean}, {Byte}, {Char}, {Short}, {Int}, {Long}, {Float}, {Double}, {Object}, {Void}}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			got := Default(tt.kind)
			if got.Kind != tt.kind {
				t.Errorf("Default(%s).Kind: got %v, want %v", tt.kind, got.Kind, tt.kind)
			}
			if tt.kind == Object && !got.IsNull() {
				t.Error("Default(Object) should be the null reference")
			}
		})
	}
}
