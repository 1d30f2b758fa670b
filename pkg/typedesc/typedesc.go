// Package typedesc parses JVM type and method descriptor strings, e.g.
// "Ljava/lang/String;", "[I", "(Ljava/lang/String;I)V".
package typedesc

import (
	"fmt"
	"strings"

	"github.com/jvmcore/gojvm/pkg/value"
)

// Descriptor is a parsed field/array/primitive type descriptor.
type Descriptor struct {
	Kind      value.Kind
	ClassName string      // set when Kind == value.Object and not an array
	Elem      *Descriptor // set when this descriptor is an array type
}

// IsArray reports whether this descriptor denotes an array type.
func (d Descriptor) IsArray() bool { return d.Elem != nil }

// String renders the descriptor back to JVM encoding.
func (d Descriptor) String() string {
	if d.IsArray() {
		return "[" + d.Elem.String()
	}
	switch d.Kind {
	case value.Boolean:
		return "Z"
	case value.Byte:
		return "B"
	case value.Char:
		return "C"
	case value.Short:
		return "S"
	case value.Int:
		return "I"
	case value.Long:
		return "J"
	case value.Float:
		return "F"
	case value.Double:
		return "D"
	case value.Void:
		return "V"
	default:
		return "L" + d.ClassName + ";"
	}
}

// ArrayClassName returns the JVM internal class name for this descriptor
// when used as an array element, e.g. "[I" or "[Ljava/lang/String;".
func ArrayClassName(elem Descriptor) string {
	return "[" + elem.String()
}

// ParseField parses a single field type descriptor.
func ParseField(s string) (Descriptor, error) {
	d, rest, err := parseOne(s)
	if err != nil {
		return Descriptor{}, err
	}
	if rest != "" {
		return Descriptor{}, fmt.Errorf("typedesc: trailing data after field descriptor %q: %q", s, rest)
	}
	return d, nil
}

func parseOne(s string) (Descriptor, string, error) {
	if s == "" {
		return Descriptor{}, "", fmt.Errorf("typedesc: empty descriptor")
	}
	switch s[0] {
	case 'Z':
		return Descriptor{Kind: value.Boolean}, s[1:], nil
	case 'B':
		return Descriptor{Kind: value.Byte}, s[1:], nil
	case 'C':
		return Descriptor{Kind: value.Char}, s[1:], nil
	case 'S':
		return Descriptor{Kind: value.Short}, s[1:], nil
	case 'I':
		return Descriptor{Kind: value.Int}, s[1:], nil
	case 'J':
		return Descriptor{Kind: value.Long}, s[1:], nil
	case 'F':
		return Descriptor{Kind: value.Float}, s[1:], nil
	case 'D':
		return Descriptor{Kind: value.Double}, s[1:], nil
	case 'V':
		return Descriptor{Kind: value.Void}, s[1:], nil
	case 'L':
		idx := strings.IndexByte(s, ';')
		if idx < 0 {
			return Descriptor{}, "", fmt.Errorf("typedesc: unterminated class descriptor %q", s)
		}
		return Descriptor{Kind: value.Object, ClassName: s[1:idx]}, s[idx+1:], nil
	case '[':
		elem, rest, err := parseOne(s[1:])
		if err != nil {
			return Descriptor{}, "", err
		}
		return Descriptor{Kind: value.Object, Elem: &elem}, rest, nil
	default:
		return Descriptor{}, "", fmt.Errorf("typedesc: invalid descriptor char %q in %q", s[0], s)
	}
}

// Method is a parsed method descriptor: "(params)return".
type Method struct {
	Params []Descriptor
	Return Descriptor
}

// ParseMethod parses a method descriptor string.
func ParseMethod(s string) (Method, error) {
	if len(s) == 0 || s[0] != '(' {
		return Method{}, fmt.Errorf("typedesc: method descriptor must start with '(': %q", s)
	}
	rest := s[1:]
	var params []Descriptor
	for len(rest) > 0 && rest[0] != ')' {
		d, r, err := parseOne(rest)
		if err != nil {
			return Method{}, fmt.Errorf("typedesc: parsing method descriptor %q: %w", s, err)
		}
		params = append(params, d)
		rest = r
	}
	if len(rest) == 0 {
		return Method{}, fmt.Errorf("typedesc: method descriptor %q missing ')'", s)
	}
	rest = rest[1:] // skip ')'
	ret, rest, err := parseOne(rest)
	if err != nil {
		return Method{}, fmt.Errorf("typedesc: parsing return type of %q: %w", s, err)
	}
	if rest != "" {
		return Method{}, fmt.Errorf("typedesc: trailing data after method descriptor %q: %q", s, rest)
	}
	return Method{Params: params, Return: ret}, nil
}

// ParamCount returns the number of operand-stack slots consumed by the
// parameters of a method descriptor: every parameter contributes exactly
// one slot in this model (category-2 values still occupy a single slot;
// see value.Kind.Width).
func ParamCount(descriptor string) (int, error) {
	m, err := ParseMethod(descriptor)
	if err != nil {
		return 0, err
	}
	return len(m.Params), nil
}

// IsVoidReturn reports whether a method descriptor's return type is void.
func IsVoidReturn(descriptor string) bool {
	return strings.HasSuffix(descriptor, ")V")
}
