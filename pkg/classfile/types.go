// Package classfile parses the binary .class format (JVM Specification
// chapter 4) into an in-memory structure. It performs no linking: names
// and descriptors are resolved symbolically here and lowered into runtime
// handles by pkg/classloader.
package classfile

// Access flag bits (subset used by the linking layer; the full table is
// preserved verbatim in AccessFlags for anything this core does not act
// on, e.g. ACC_SYNTHETIC).
const (
	AccPublic       = 0x0001
	AccPrivate      = 0x0002
	AccProtected    = 0x0004
	AccStatic       = 0x0008
	AccFinal        = 0x0010
	AccSuper        = 0x0020
	AccSynchronized = 0x0020
	AccVolatile     = 0x0040
	AccBridge       = 0x0040
	AccVarargs      = 0x0080
	AccTransient    = 0x0080
	AccNative       = 0x0100
	AccInterface    = 0x0200
	AccAbstract     = 0x0400
	AccStrict       = 0x0800
	AccSynthetic    = 0x1000
	AccAnnotation   = 0x2000
	AccEnum         = 0x4000
)

// ClassMagic is the fixed value that opens every .class file.
const ClassMagic = 0xCAFEBABE

// ClassFile is the fully decoded form of a .class file.
type ClassFile struct {
	MinorVersion uint16
	MajorVersion uint16
	ConstantPool []ConstantPoolEntry // 1-indexed; index 0 is nil
	AccessFlags  uint16
	ThisClass    uint16
	SuperClass   uint16
	Interfaces   []uint16
	Fields       []FieldInfo
	Methods      []MethodInfo

	SourceFile       string
	InnerClasses     []InnerClassInfo
	BootstrapMethods []BootstrapMethod
	NestHost         uint16
	NestMembers      []uint16
}

// FieldInfo is one entry of the field table.
type FieldInfo struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	Attributes  []AttributeInfo
}

// MethodInfo is one entry of the method table.
type MethodInfo struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	Attributes  []AttributeInfo
	Code        *CodeAttribute // nil for abstract/native methods
	Exceptions  []uint16       // checked-exception class constant-pool indices
}

// AttributeInfo is a raw, name-resolved attribute. On fields, methods and
// Code attributes, the attributes this parser does not interpret further
// (LineNumberTable, LocalVariableTable, StackMapTable, and any
// unrecognized attribute) are kept here verbatim. Class-level attributes
// are not kept raw: ClassFile holds only the ones it decodes (SourceFile,
// InnerClasses, BootstrapMethods, NestHost, NestMembers), and any other
// class-level attribute is dropped.
type AttributeInfo struct {
	Name string
	Data []byte
}

// ExceptionHandler is one row of a Code attribute's exception table.
type ExceptionHandler struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType uint16 // 0 means "catch any" (finally-style handler)
}

// CodeAttribute is the decoded Code attribute of a bytecode method.
type CodeAttribute struct {
	MaxStack          uint16
	MaxLocals         uint16
	Code              []byte
	ExceptionHandlers []ExceptionHandler
	Attributes        []AttributeInfo // nested attributes (LineNumberTable etc.), preserved raw
}

// InnerClassInfo is one entry of an InnerClasses attribute.
type InnerClassInfo struct {
	InnerClassIndex      uint16
	OuterClassIndex      uint16
	InnerNameIndex       uint16
	InnerClassAccessFlags uint16
}

// BootstrapMethod is one entry of the BootstrapMethods attribute, used to
// resolve invokedynamic call sites.
type BootstrapMethod struct {
	MethodRef          uint16
	BootstrapArguments []uint16
}

// ClassName returns this class's own fully-qualified internal name.
func (cf *ClassFile) ClassName() (string, error) {
	return GetClassName(cf.ConstantPool, cf.ThisClass)
}

// SuperClassName returns the super class's internal name, or "" when
// SuperClass is zero (only valid for java/lang/Object).
func (cf *ClassFile) SuperClassName() string {
	if cf.SuperClass == 0 {
		return ""
	}
	name, err := GetClassName(cf.ConstantPool, cf.SuperClass)
	if err != nil {
		return ""
	}
	return name
}

// InterfaceNames resolves the interface index list to internal names.
func (cf *ClassFile) InterfaceNames() ([]string, error) {
	names := make([]string, 0, len(cf.Interfaces))
	for _, idx := range cf.Interfaces {
		name, err := GetClassName(cf.ConstantPool, idx)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

// FindMethod finds a method declared directly on this class by name and
// descriptor. It does not search superclasses.
func (cf *ClassFile) FindMethod(name, descriptor string) *MethodInfo {
	for i := range cf.Methods {
		if cf.Methods[i].Name == name && cf.Methods[i].Descriptor == descriptor {
			return &cf.Methods[i]
		}
	}
	return nil
}

// FindField finds a field declared directly on this class by name and
// descriptor.
func (cf *ClassFile) FindField(name, descriptor string) *FieldInfo {
	for i := range cf.Fields {
		if cf.Fields[i].Name == name && cf.Fields[i].Descriptor == descriptor {
			return &cf.Fields[i]
		}
	}
	return nil
}

// IsInterface reports whether the ACC_INTERFACE flag is set.
func (cf *ClassFile) IsInterface() bool { return cf.AccessFlags&AccInterface != 0 }
