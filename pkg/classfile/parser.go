package classfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// ClassFormatError reports a structurally invalid .class file: bad magic,
// truncated input, unknown constant-pool tag, or an out-of-range
// constant-pool reference (JVM Specification 4.8, and §4.1 of this core).
type ClassFormatError struct {
	Reason string
}

func (e *ClassFormatError) Error() string { return "ClassFormatError: " + e.Reason }

// ParseFile opens and parses a .class file from the given path.
func ParseFile(path string) (*ClassFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a .class file from r and returns the decoded ClassFile.
func Parse(r io.Reader) (*ClassFile, error) {
	cf := &ClassFile{}

	var magic uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return nil, &ClassFormatError{Reason: fmt.Sprintf("reading magic: %v", err)}
	}
	if magic != ClassMagic {
		return nil, &ClassFormatError{Reason: fmt.Sprintf("bad magic 0x%X, want 0x%X", magic, uint32(ClassMagic))}
	}

	if err := binary.Read(r, binary.BigEndian, &cf.MinorVersion); err != nil {
		return nil, &ClassFormatError{Reason: fmt.Sprintf("reading minor version: %v", err)}
	}
	if err := binary.Read(r, binary.BigEndian, &cf.MajorVersion); err != nil {
		return nil, &ClassFormatError{Reason: fmt.Sprintf("reading major version: %v", err)}
	}

	var cpCount uint16
	if err := binary.Read(r, binary.BigEndian, &cpCount); err != nil {
		return nil, &ClassFormatError{Reason: fmt.Sprintf("reading constant pool count: %v", err)}
	}
	pool, err := parseConstantPool(r, cpCount)
	if err != nil {
		return nil, &ClassFormatError{Reason: fmt.Sprintf("parsing constant pool: %v", err)}
	}
	cf.ConstantPool = pool

	if err := binary.Read(r, binary.BigEndian, &cf.AccessFlags); err != nil {
		return nil, &ClassFormatError{Reason: fmt.Sprintf("reading access flags: %v", err)}
	}
	if err := binary.Read(r, binary.BigEndian, &cf.ThisClass); err != nil {
		return nil, &ClassFormatError{Reason: fmt.Sprintf("reading this_class: %v", err)}
	}
	if err := binary.Read(r, binary.BigEndian, &cf.SuperClass); err != nil {
		return nil, &ClassFormatError{Reason: fmt.Sprintf("reading super_class: %v", err)}
	}

	var interfacesCount uint16
	if err := binary.Read(r, binary.BigEndian, &interfacesCount); err != nil {
		return nil, &ClassFormatError{Reason: fmt.Sprintf("reading interfaces count: %v", err)}
	}
	cf.Interfaces = make([]uint16, interfacesCount)
	for i := range cf.Interfaces {
		if err := binary.Read(r, binary.BigEndian, &cf.Interfaces[i]); err != nil {
			return nil, &ClassFormatError{Reason: fmt.Sprintf("reading interface %d: %v", i, err)}
		}
	}

	var fieldsCount uint16
	if err := binary.Read(r, binary.BigEndian, &fieldsCount); err != nil {
		return nil, &ClassFormatError{Reason: fmt.Sprintf("reading fields count: %v", err)}
	}
	cf.Fields, err = parseFields(r, cf.ConstantPool, fieldsCount)
	if err != nil {
		return nil, fmt.Errorf("parsing fields: %w", err)
	}

	var methodsCount uint16
	if err := binary.Read(r, binary.BigEndian, &methodsCount); err != nil {
		return nil, &ClassFormatError{Reason: fmt.Sprintf("reading methods count: %v", err)}
	}
	cf.Methods, err = parseMethods(r, cf.ConstantPool, methodsCount)
	if err != nil {
		return nil, fmt.Errorf("parsing methods: %w", err)
	}

	if err := cf.parseClassAttributes(r); err != nil {
		return nil, fmt.Errorf("parsing class attributes: %w", err)
	}

	return cf, nil
}

func parseFields(r io.Reader, pool []ConstantPoolEntry, count uint16) ([]FieldInfo, error) {
	fields := make([]FieldInfo, count)
	for i := range fields {
		var accessFlags, nameIndex, descIndex, attrCount uint16
		if err := binary.Read(r, binary.BigEndian, &accessFlags); err != nil {
			return nil, fmt.Errorf("reading field %d access flags: %w", i, err)
		}
		if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
			return nil, fmt.Errorf("reading field %d name index: %w", i, err)
		}
		if err := binary.Read(r, binary.BigEndian, &descIndex); err != nil {
			return nil, fmt.Errorf("reading field %d descriptor index: %w", i, err)
		}
		if err := binary.Read(r, binary.BigEndian, &attrCount); err != nil {
			return nil, fmt.Errorf("reading field %d attributes count: %w", i, err)
		}

		name, err := GetUtf8(pool, nameIndex)
		if err != nil {
			return nil, fmt.Errorf("resolving field %d name: %w", i, err)
		}
		desc, err := GetUtf8(pool, descIndex)
		if err != nil {
			return nil, fmt.Errorf("resolving field %d descriptor: %w", i, err)
		}
		attrs, err := parseAttributeInfos(r, pool, attrCount)
		if err != nil {
			return nil, fmt.Errorf("parsing field %d attributes: %w", i, err)
		}

		fields[i] = FieldInfo{AccessFlags: accessFlags, Name: name, Descriptor: desc, Attributes: attrs}
	}
	return fields, nil
}

func parseMethods(r io.Reader, pool []ConstantPoolEntry, count uint16) ([]MethodInfo, error) {
	methods := make([]MethodInfo, count)
	for i := range methods {
		var accessFlags, nameIndex, descIndex, attrCount uint16
		if err := binary.Read(r, binary.BigEndian, &accessFlags); err != nil {
			return nil, fmt.Errorf("reading method %d access flags: %w", i, err)
		}
		if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
			return nil, fmt.Errorf("reading method %d name index: %w", i, err)
		}
		if err := binary.Read(r, binary.BigEndian, &descIndex); err != nil {
			return nil, fmt.Errorf("reading method %d descriptor index: %w", i, err)
		}
		if err := binary.Read(r, binary.BigEndian, &attrCount); err != nil {
			return nil, fmt.Errorf("reading method %d attributes count: %w", i, err)
		}

		name, err := GetUtf8(pool, nameIndex)
		if err != nil {
			return nil, fmt.Errorf("resolving method %d name: %w", i, err)
		}
		desc, err := GetUtf8(pool, descIndex)
		if err != nil {
			return nil, fmt.Errorf("resolving method %d descriptor: %w", i, err)
		}
		attrs, err := parseAttributeInfos(r, pool, attrCount)
		if err != nil {
			return nil, fmt.Errorf("parsing method %d attributes: %w", i, err)
		}

		m := MethodInfo{AccessFlags: accessFlags, Name: name, Descriptor: desc, Attributes: attrs}

		for _, attr := range attrs {
			switch attr.Name {
			case "Code":
				code, err := parseCodeAttribute(pool, attr.Data)
				if err != nil {
					return nil, fmt.Errorf("parsing Code attribute for method %s%s: %w", name, desc, err)
				}
				m.Code = code
			case "Exceptions":
				idxs, err := parseExceptionsAttribute(attr.Data)
				if err != nil {
					return nil, fmt.Errorf("parsing Exceptions attribute for method %s%s: %w", name, desc, err)
				}
				m.Exceptions = idxs
			}
		}

		methods[i] = m
	}
	return methods, nil
}

func parseAttributeInfos(r io.Reader, pool []ConstantPoolEntry, count uint16) ([]AttributeInfo, error) {
	attrs := make([]AttributeInfo, count)
	for i := range attrs {
		var nameIndex uint16
		if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
			return nil, fmt.Errorf("reading attribute %d name index: %w", i, err)
		}
		var length uint32
		if err := binary.Read(r, binary.BigEndian, &length); err != nil {
			return nil, fmt.Errorf("reading attribute %d length: %w", i, err)
		}
		data := make([]byte, length)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, fmt.Errorf("reading attribute %d data: %w", i, err)
		}

		name, err := GetUtf8(pool, nameIndex)
		if err != nil {
			return nil, fmt.Errorf("resolving attribute %d name: %w", i, err)
		}

		attrs[i] = AttributeInfo{Name: name, Data: data}
	}
	return attrs, nil
}

func parseCodeAttribute(pool []ConstantPoolEntry, data []byte) (*CodeAttribute, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("Code attribute too short: %d bytes", len(data))
	}

	maxStack := binary.BigEndian.Uint16(data[0:2])
	maxLocals := binary.BigEndian.Uint16(data[2:4])
	codeLength := binary.BigEndian.Uint32(data[4:8])

	if uint64(len(data)) < 8+uint64(codeLength) {
		return nil, fmt.Errorf("Code attribute data too short for code_length %d", codeLength)
	}

	code := make([]byte, codeLength)
	copy(code, data[8:8+codeLength])
	offset := 8 + int(codeLength)

	if offset+2 > len(data) {
		return nil, fmt.Errorf("Code attribute truncated before exception table")
	}
	exTableLen := binary.BigEndian.Uint16(data[offset : offset+2])
	offset += 2
	handlers := make([]ExceptionHandler, exTableLen)
	for i := range handlers {
		if offset+8 > len(data) {
			return nil, fmt.Errorf("Code attribute truncated in exception table entry %d", i)
		}
		handlers[i] = ExceptionHandler{
			StartPC:   binary.BigEndian.Uint16(data[offset : offset+2]),
			EndPC:     binary.BigEndian.Uint16(data[offset+2 : offset+4]),
			HandlerPC: binary.BigEndian.Uint16(data[offset+4 : offset+6]),
			CatchType: binary.BigEndian.Uint16(data[offset+6 : offset+8]),
		}
		offset += 8
	}

	var nestedAttrs []AttributeInfo
	if offset+2 <= len(data) {
		count := binary.BigEndian.Uint16(data[offset : offset+2])
		offset += 2
		nestedAttrs = make([]AttributeInfo, 0, count)
		for i := uint16(0); i < count; i++ {
			if offset+6 > len(data) {
				break
			}
			nameIndex := binary.BigEndian.Uint16(data[offset : offset+2])
			length := binary.BigEndian.Uint32(data[offset+2 : offset+6])
			offset += 6
			if offset+int(length) > len(data) {
				break
			}
			attrData := make([]byte, length)
			copy(attrData, data[offset:offset+int(length)])
			offset += int(length)
			name, err := GetUtf8(pool, nameIndex)
			if err != nil {
				continue
			}
			nestedAttrs = append(nestedAttrs, AttributeInfo{Name: name, Data: attrData})
		}
	}

	return &CodeAttribute{
		MaxStack:          maxStack,
		MaxLocals:         maxLocals,
		Code:              code,
		ExceptionHandlers: handlers,
		Attributes:        nestedAttrs,
	}, nil
}

func parseExceptionsAttribute(data []byte) ([]uint16, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("Exceptions attribute too short")
	}
	count := binary.BigEndian.Uint16(data[0:2])
	offset := 2
	idxs := make([]uint16, count)
	for i := range idxs {
		if offset+2 > len(data) {
			return nil, fmt.Errorf("Exceptions attribute truncated at entry %d", i)
		}
		idxs[i] = binary.BigEndian.Uint16(data[offset : offset+2])
		offset += 2
	}
	return idxs, nil
}

func (cf *ClassFile) parseClassAttributes(r io.Reader) error {
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return err
	}
	for i := uint16(0); i < count; i++ {
		var nameIndex uint16
		if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
			return err
		}
		var length uint32
		if err := binary.Read(r, binary.BigEndian, &length); err != nil {
			return err
		}
		data := make([]byte, length)
		if _, err := io.ReadFull(r, data); err != nil {
			return err
		}
		name, err := GetUtf8(cf.ConstantPool, nameIndex)
		if err != nil {
			continue // unresolvable attribute name: preserve nothing, skip
		}

		switch name {
		case "SourceFile":
			if len(data) >= 2 {
				idx := binary.BigEndian.Uint16(data[0:2])
				if sf, err := GetUtf8(cf.ConstantPool, idx); err == nil {
					cf.SourceFile = sf
				}
			}
		case "BootstrapMethods":
			bms, err := parseBootstrapMethods(data)
			if err != nil {
				return fmt.Errorf("parsing BootstrapMethods: %w", err)
			}
			cf.BootstrapMethods = bms
		case "InnerClasses":
			ics, err := parseInnerClasses(data)
			if err != nil {
				return fmt.Errorf("parsing InnerClasses: %w", err)
			}
			cf.InnerClasses = ics
		case "NestHost":
			if len(data) >= 2 {
				cf.NestHost = binary.BigEndian.Uint16(data[0:2])
			}
		case "NestMembers":
			members, err := parseExceptionsAttribute(data) // same u2-count-then-u2-list shape
			if err != nil {
				return fmt.Errorf("parsing NestMembers: %w", err)
			}
			cf.NestMembers = members
		}
	}
	return nil
}

func parseBootstrapMethods(data []byte) ([]BootstrapMethod, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("BootstrapMethods data too short")
	}
	numMethods := binary.BigEndian.Uint16(data[0:2])
	offset := 2
	methods := make([]BootstrapMethod, numMethods)
	for i := range methods {
		if offset+4 > len(data) {
			return nil, fmt.Errorf("BootstrapMethods truncated at method %d", i)
		}
		methodRef := binary.BigEndian.Uint16(data[offset : offset+2])
		numArgs := binary.BigEndian.Uint16(data[offset+2 : offset+4])
		offset += 4
		args := make([]uint16, numArgs)
		for j := range args {
			if offset+2 > len(data) {
				return nil, fmt.Errorf("BootstrapMethods truncated at arg %d of method %d", j, i)
			}
			args[j] = binary.BigEndian.Uint16(data[offset : offset+2])
			offset += 2
		}
		methods[i] = BootstrapMethod{MethodRef: methodRef, BootstrapArguments: args}
	}
	return methods, nil
}

func parseInnerClasses(data []byte) ([]InnerClassInfo, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("InnerClasses data too short")
	}
	count := binary.BigEndian.Uint16(data[0:2])
	offset := 2
	out := make([]InnerClassInfo, count)
	for i := range out {
		if offset+8 > len(data) {
			return nil, fmt.Errorf("InnerClasses truncated at entry %d", i)
		}
		out[i] = InnerClassInfo{
			InnerClassIndex:       binary.BigEndian.Uint16(data[offset : offset+2]),
			OuterClassIndex:       binary.BigEndian.Uint16(data[offset+2 : offset+4]),
			InnerNameIndex:        binary.BigEndian.Uint16(data[offset+4 : offset+6]),
			InnerClassAccessFlags: binary.BigEndian.Uint16(data[offset+6 : offset+8]),
		}
		offset += 8
	}
	return out, nil
}
