package classfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Constant pool tags (JVM Specification 4.4).
const (
	TagUtf8               = 1
	TagInteger            = 3
	TagFloat              = 4
	TagLong               = 5
	TagDouble             = 6
	TagClass              = 7
	TagString             = 8
	TagFieldref           = 9
	TagMethodref          = 10
	TagInterfaceMethodref = 11
	TagNameAndType        = 12
	TagMethodHandle       = 15
	TagMethodType         = 16
	TagDynamic            = 17
	TagInvokeDynamic      = 18
	TagModule             = 19
	TagPackage            = 20
)

// ConstantPoolEntry is implemented by every constant pool entry kind.
type ConstantPoolEntry interface {
	Tag() uint8
}

type ConstantUtf8 struct{ Value string }

func (c *ConstantUtf8) Tag() uint8 { return TagUtf8 }

type ConstantInteger struct{ Value int32 }

func (c *ConstantInteger) Tag() uint8 { return TagInteger }

type ConstantFloat struct{ Value float32 }

func (c *ConstantFloat) Tag() uint8 { return TagFloat }

type ConstantLong struct{ Value int64 }

func (c *ConstantLong) Tag() uint8 { return TagLong }

type ConstantDouble struct{ Value float64 }

func (c *ConstantDouble) Tag() uint8 { return TagDouble }

type ConstantClass struct{ NameIndex uint16 }

func (c *ConstantClass) Tag() uint8 { return TagClass }

type ConstantString struct{ StringIndex uint16 }

func (c *ConstantString) Tag() uint8 { return TagString }

type ConstantFieldref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantFieldref) Tag() uint8 { return TagFieldref }

type ConstantMethodref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantMethodref) Tag() uint8 { return TagMethodref }

type ConstantInterfaceMethodref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantInterfaceMethodref) Tag() uint8 { return TagInterfaceMethodref }

type ConstantNameAndType struct {
	NameIndex       uint16
	DescriptorIndex uint16
}

func (c *ConstantNameAndType) Tag() uint8 { return TagNameAndType }

// ConstantMethodHandle is recognized but not resolved to a live handle;
// invokedynamic execution is out of scope (see §4.6/REDESIGN notes).
type ConstantMethodHandle struct {
	ReferenceKind  uint8
	ReferenceIndex uint16
}

func (c *ConstantMethodHandle) Tag() uint8 { return TagMethodHandle }

type ConstantMethodType struct{ DescriptorIndex uint16 }

func (c *ConstantMethodType) Tag() uint8 { return TagMethodType }

type ConstantDynamic struct {
	BootstrapMethodAttrIndex uint16
	NameAndTypeIndex         uint16
}

func (c *ConstantDynamic) Tag() uint8 { return TagDynamic }

type ConstantInvokeDynamic struct {
	BootstrapMethodAttrIndex uint16
	NameAndTypeIndex         uint16
}

func (c *ConstantInvokeDynamic) Tag() uint8 { return TagInvokeDynamic }

type ConstantModule struct{ NameIndex uint16 }

func (c *ConstantModule) Tag() uint8 { return TagModule }

type ConstantPackage struct{ NameIndex uint16 }

func (c *ConstantPackage) Tag() uint8 { return TagPackage }

// parseConstantPool reads constant_pool_count-1 entries. The returned
// slice is 1-indexed (index 0 is nil); Long/Double entries occupy two
// indices, per the JVM spec's long-standing quirk.
func parseConstantPool(r io.Reader, count uint16) ([]ConstantPoolEntry, error) {
	pool := make([]ConstantPoolEntry, count)

	for i := uint16(1); i < count; i++ {
		var tag uint8
		if err := binary.Read(r, binary.BigEndian, &tag); err != nil {
			return nil, fmt.Errorf("reading constant pool tag at index %d: %w", i, err)
		}

		switch tag {
		case TagUtf8:
			var length uint16
			if err := binary.Read(r, binary.BigEndian, &length); err != nil {
				return nil, fmt.Errorf("reading Utf8 length at index %d: %w", i, err)
			}
			raw := make([]byte, length)
			if _, err := io.ReadFull(r, raw); err != nil {
				return nil, fmt.Errorf("reading Utf8 bytes at index %d: %w", i, err)
			}
			pool[i] = &ConstantUtf8{Value: string(raw)}

		case TagInteger:
			var val int32
			if err := binary.Read(r, binary.BigEndian, &val); err != nil {
				return nil, fmt.Errorf("reading Integer at index %d: %w", i, err)
			}
			pool[i] = &ConstantInteger{Value: val}

		case TagFloat:
			var bits uint32
			if err := binary.Read(r, binary.BigEndian, &bits); err != nil {
				return nil, fmt.Errorf("reading Float at index %d: %w", i, err)
			}
			pool[i] = &ConstantFloat{Value: math.Float32frombits(bits)}

		case TagLong:
			var val int64
			if err := binary.Read(r, binary.BigEndian, &val); err != nil {
				return nil, fmt.Errorf("reading Long at index %d: %w", i, err)
			}
			pool[i] = &ConstantLong{Value: val}
			i++ // occupies two constant-pool slots

		case TagDouble:
			var bits uint64
			if err := binary.Read(r, binary.BigEndian, &bits); err != nil {
				return nil, fmt.Errorf("reading Double at index %d: %w", i, err)
			}
			pool[i] = &ConstantDouble{Value: math.Float64frombits(bits)}
			i++ // occupies two constant-pool slots

		case TagClass:
			var nameIndex uint16
			if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
				return nil, fmt.Errorf("reading Class at index %d: %w", i, err)
			}
			pool[i] = &ConstantClass{NameIndex: nameIndex}

		case TagString:
			var stringIndex uint16
			if err := binary.Read(r, binary.BigEndian, &stringIndex); err != nil {
				return nil, fmt.Errorf("reading String at index %d: %w", i, err)
			}
			pool[i] = &ConstantString{StringIndex: stringIndex}

		case TagFieldref:
			classIndex, natIndex, err := readRef(r)
			if err != nil {
				return nil, fmt.Errorf("reading Fieldref at index %d: %w", i, err)
			}
			pool[i] = &ConstantFieldref{ClassIndex: classIndex, NameAndTypeIndex: natIndex}

		case TagMethodref:
			classIndex, natIndex, err := readRef(r)
			if err != nil {
				return nil, fmt.Errorf("reading Methodref at index %d: %w", i, err)
			}
			pool[i] = &ConstantMethodref{ClassIndex: classIndex, NameAndTypeIndex: natIndex}

		case TagInterfaceMethodref:
			classIndex, natIndex, err := readRef(r)
			if err != nil {
				return nil, fmt.Errorf("reading InterfaceMethodref at index %d: %w", i, err)
			}
			pool[i] = &ConstantInterfaceMethodref{ClassIndex: classIndex, NameAndTypeIndex: natIndex}

		case TagNameAndType:
			nameIndex, descIndex, err := readRef(r)
			if err != nil {
				return nil, fmt.Errorf("reading NameAndType at index %d: %w", i, err)
			}
			pool[i] = &ConstantNameAndType{NameIndex: nameIndex, DescriptorIndex: descIndex}

		case TagMethodHandle:
			var refKind uint8
			if err := binary.Read(r, binary.BigEndian, &refKind); err != nil {
				return nil, fmt.Errorf("reading MethodHandle kind at index %d: %w", i, err)
			}
			var refIndex uint16
			if err := binary.Read(r, binary.BigEndian, &refIndex); err != nil {
				return nil, fmt.Errorf("reading MethodHandle ref index at index %d: %w", i, err)
			}
			pool[i] = &ConstantMethodHandle{ReferenceKind: refKind, ReferenceIndex: refIndex}

		case TagMethodType:
			var descIndex uint16
			if err := binary.Read(r, binary.BigEndian, &descIndex); err != nil {
				return nil, fmt.Errorf("reading MethodType at index %d: %w", i, err)
			}
			pool[i] = &ConstantMethodType{DescriptorIndex: descIndex}

		case TagDynamic:
			bsmIndex, natIndex, err := readRef(r)
			if err != nil {
				return nil, fmt.Errorf("reading Dynamic at index %d: %w", i, err)
			}
			pool[i] = &ConstantDynamic{BootstrapMethodAttrIndex: bsmIndex, NameAndTypeIndex: natIndex}

		case TagInvokeDynamic:
			bsmIndex, natIndex, err := readRef(r)
			if err != nil {
				return nil, fmt.Errorf("reading InvokeDynamic at index %d: %w", i, err)
			}
			pool[i] = &ConstantInvokeDynamic{BootstrapMethodAttrIndex: bsmIndex, NameAndTypeIndex: natIndex}

		case TagModule:
			var nameIndex uint16
			if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
				return nil, fmt.Errorf("reading Module at index %d: %w", i, err)
			}
			pool[i] = &ConstantModule{NameIndex: nameIndex}

		case TagPackage:
			var nameIndex uint16
			if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
				return nil, fmt.Errorf("reading Package at index %d: %w", i, err)
			}
			pool[i] = &ConstantPackage{NameIndex: nameIndex}

		default:
			return nil, fmt.Errorf("unknown constant pool tag %d at index %d", tag, i)
		}
	}

	return pool, nil
}

func readRef(r io.Reader) (uint16, uint16, error) {
	var a, b uint16
	if err := binary.Read(r, binary.BigEndian, &a); err != nil {
		return 0, 0, err
	}
	if err := binary.Read(r, binary.BigEndian, &b); err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func checkIndex(pool []ConstantPoolEntry, index uint16) error {
	if int(index) >= len(pool) || pool[index] == nil {
		return fmt.Errorf("constant pool index %d out of range (pool size %d)", index, len(pool))
	}
	return nil
}

// GetUtf8 resolves a Utf8 constant pool entry to its string value.
func GetUtf8(pool []ConstantPoolEntry, index uint16) (string, error) {
	if err := checkIndex(pool, index); err != nil {
		return "", err
	}
	utf8, ok := pool[index].(*ConstantUtf8)
	if !ok {
		return "", fmt.Errorf("constant pool index %d is not Utf8 (tag=%d)", index, pool[index].Tag())
	}
	return utf8.Value, nil
}

// GetClassName resolves a Class constant pool entry to its internal name.
func GetClassName(pool []ConstantPoolEntry, index uint16) (string, error) {
	if err := checkIndex(pool, index); err != nil {
		return "", err
	}
	class, ok := pool[index].(*ConstantClass)
	if !ok {
		return "", fmt.Errorf("constant pool index %d is not Class (tag=%d)", index, pool[index].Tag())
	}
	return GetUtf8(pool, class.NameIndex)
}

// NameAndType resolves a NameAndType constant pool entry to its name and
// descriptor strings.
func NameAndType(pool []ConstantPoolEntry, index uint16) (name, descriptor string, err error) {
	if err := checkIndex(pool, index); err != nil {
		return "", "", err
	}
	nat, ok := pool[index].(*ConstantNameAndType)
	if !ok {
		return "", "", fmt.Errorf("constant pool index %d is not NameAndType (tag=%d)", index, pool[index].Tag())
	}
	name, err = GetUtf8(pool, nat.NameIndex)
	if err != nil {
		return "", "", err
	}
	descriptor, err = GetUtf8(pool, nat.DescriptorIndex)
	if err != nil {
		return "", "", err
	}
	return name, descriptor, nil
}

// MemberRef is the resolved (class, name, descriptor) triple shared by
// Fieldref/Methodref/InterfaceMethodref entries.
type MemberRef struct {
	ClassName  string
	MemberName string
	Descriptor string
}

// ResolveFieldref resolves a Fieldref constant pool entry.
func ResolveFieldref(pool []ConstantPoolEntry, index uint16) (MemberRef, error) {
	if err := checkIndex(pool, index); err != nil {
		return MemberRef{}, err
	}
	fr, ok := pool[index].(*ConstantFieldref)
	if !ok {
		return MemberRef{}, fmt.Errorf("constant pool index %d is not Fieldref (tag=%d)", index, pool[index].Tag())
	}
	return resolveMember(pool, fr.ClassIndex, fr.NameAndTypeIndex)
}

// ResolveMethodref resolves a Methodref constant pool entry.
func ResolveMethodref(pool []ConstantPoolEntry, index uint16) (MemberRef, error) {
	if err := checkIndex(pool, index); err != nil {
		return MemberRef{}, err
	}
	mr, ok := pool[index].(*ConstantMethodref)
	if !ok {
		return MemberRef{}, fmt.Errorf("constant pool index %d is not Methodref (tag=%d)", index, pool[index].Tag())
	}
	return resolveMember(pool, mr.ClassIndex, mr.NameAndTypeIndex)
}

// ResolveInterfaceMethodref resolves an InterfaceMethodref constant pool entry.
func ResolveInterfaceMethodref(pool []ConstantPoolEntry, index uint16) (MemberRef, error) {
	if err := checkIndex(pool, index); err != nil {
		return MemberRef{}, err
	}
	imr, ok := pool[index].(*ConstantInterfaceMethodref)
	if !ok {
		return MemberRef{}, fmt.Errorf("constant pool index %d is not InterfaceMethodref (tag=%d)", index, pool[index].Tag())
	}
	return resolveMember(pool, imr.ClassIndex, imr.NameAndTypeIndex)
}

func resolveMember(pool []ConstantPoolEntry, classIndex, natIndex uint16) (MemberRef, error) {
	className, err := GetClassName(pool, classIndex)
	if err != nil {
		return MemberRef{}, err
	}
	name, desc, err := NameAndType(pool, natIndex)
	if err != nil {
		return MemberRef{}, err
	}
	return MemberRef{ClassName: className, MemberName: name, Descriptor: desc}, nil
}
