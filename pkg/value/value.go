// Package value implements the JVM's tagged value model: the primitive
// kinds plus object references that flow through the operand stack,
// local variables, and field storage.
package value

import "math"

// Kind identifies the tag of a Value.
type Kind int

const (
	Void Kind = iota
	Boolean
	Byte
	Char
	Short
	Int
	Long
	Float
	Double
	Object
)

func (k Kind) String() string {
	switch k {
	case Void:
		return "void"
	case Boolean:
		return "boolean"
	case Byte:
		return "byte"
	case Char:
		return "char"
	case Short:
		return "short"
	case Int:
		return "int"
	case Long:
		return "long"
	case Float:
		return "float"
	case Double:
		return "double"
	case Object:
		return "object"
	default:
		return "unknown"
	}
}

// Width returns the number of local-variable/operand-stack slots the JVM
// spec assigns to this kind: 2 for long/double (category 2), 1 otherwise.
// This model stores every Value in a single slot (see Value doc); Width
// exists so callers that must mimic two-slot local-variable layouts (wide
// loads/stores, pop2, dup2) can skip the sibling index correctly.
func (k Kind) Width() int {
	if k == Long || k == Double {
		return 2
	}
	return 1
}

// IsReference reports whether the kind carries an object reference
// (including the null reference, which still carries Kind Object).
func (k Kind) IsReference() bool {
	return k == Object
}

// Value is a tagged JVM value. Numeric payloads are stored as raw bits in
// a single uint64 and reinterpreted by Kind; object references live in Ref.
// A null reference is represented as Kind Object with Ref == nil.
type Value struct {
	Kind Kind
	bits uint64
	Ref  any
}

func Default(k Kind) Value {
	switch k {
	case Void:
		return Value{Kind: Void}
	case Boolean, Byte, Char, Short, Int:
		return Value{Kind: k}
	case Long:
		return Value{Kind: Long}
	case Float:
		return Value{Kind: Float}
	case Double:
		return Value{Kind: Double}
	default:
		return Value{Kind: Object, Ref: nil}
	}
}

func VoidValue() Value { return Value{Kind: Void} }

func BoolValue(b bool) Value {
	var bits uint64
	if b {
		bits = 1
	}
	return Value{Kind: Boolean, bits: bits}
}

func ByteValue(b int8) Value   { return Value{Kind: Byte, bits: uint64(uint32(int32(b)))} }
func CharValue(c uint16) Value { return Value{Kind: Char, bits: uint64(c)} }
func ShortValue(s int16) Value { return Value{Kind: Short, bits: uint64(uint32(int32(s)))} }
func IntValue(i int32) Value   { return Value{Kind: Int, bits: uint64(uint32(i))} }
func LongValue(l int64) Value  { return Value{Kind: Long, bits: uint64(l)} }
func FloatValue(f float32) Value {
	return Value{Kind: Float, bits: uint64(math.Float32bits(f))}
}
func DoubleValue(d float64) Value { return Value{Kind: Double, bits: math.Float64bits(d)} }

// RefValue creates a non-null object reference. ref is typically an
// *object.Instance or *object.ArrayInstance, but is kept untyped
// here to avoid an import cycle between value and object.
func RefValue(ref any) Value { return Value{Kind: Object, Ref: ref} }

func NullValue() Value { return Value{Kind: Object, Ref: nil} }

func (v Value) IsNull() bool { return v.Kind == Object && v.Ref == nil }

func (v Value) Bool() bool     { return v.bits != 0 }
func (v Value) Byte() int8     { return int8(int32(uint32(v.bits))) }
func (v Value) Char() uint16   { return uint16(v.bits) }
func (v Value) Short() int16   { return int16(int32(uint32(v.bits))) }
func (v Value) Int() int32     { return int32(uint32(v.bits)) }
func (v Value) Long() int64    { return int64(v.bits) }
func (v Value) Float() float32 { return math.Float32frombits(uint32(v.bits)) }
func (v Value) Double() float64 {
	return math.Float64frombits(v.bits)
}

// AsInt widens boolean/byte/char/short to the int32 representation the
// operand stack and local-variable array use for sub-int categories, per
// the JVM spec's category-1 widening rule.
func (v Value) AsInt() int32 {
	switch v.Kind {
	case Boolean:
		if v.Bool() {
			return 1
		}
		return 0
	case Byte:
		return int32(v.Byte())
	case Char:
		return int32(v.Char())
	case Short:
		return int32(v.Short())
	default:
		return v.Int()
	}
}

// NarrowTo narrows an int32-typed Value to the storage width of k, used
// when writing to byte/char/short/boolean array elements or fields.
func NarrowTo(k Kind, raw int32) Value {
	switch k {
	case Boolean:
		return BoolValue(raw&1 != 0)
	case Byte:
		return ByteValue(int8(raw))
	case Char:
		return CharValue(uint16(raw))
	case Short:
		return ShortValue(int16(raw))
	default:
		return IntValue(raw)
	}
}
