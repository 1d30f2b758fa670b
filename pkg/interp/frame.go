package interp

import (
	"fmt"

	"github.com/jvmcore/gojvm/pkg/object"
	"github.com/jvmcore/gojvm/pkg/value"
)

// Frame is one activation record (JVM Specification 2.6): a local
// variable array, an operand stack, and a cursor into the owning
// method's bytecode. Grounded directly on
// _examples/daimatz-gojvm/pkg/vm/frame.go's Frame, generalized from
// int-only Value storage to the full value.Value model.
type Frame struct {
	Locals  []value.Value
	Stack   []value.Value
	SP      int
	Code    []byte
	PC      int
	Method  *object.Method
	Class   object.Class

	// MonitorOwner is never assigned by the interpreter and is always 0;
	// monitor ownership is tracked on object.Instance itself.
	MonitorOwner int64
}

func NewFrame(method *object.Method, class object.Class) *Frame {
	code := method.Code
	return &Frame{
		Locals: make([]value.Value, code.MaxLocals),
		Stack:  make([]value.Value, code.MaxStack),
		Code:   code.Code,
		Method: method,
		Class:  class,
	}
}

func (f *Frame) Push(v value.Value) {
	if f.SP >= len(f.Stack) {
		panic(fmt.Sprintf("operand stack overflow: SP=%d max=%d in %s.%s", f.SP, len(f.Stack), f.Class.Name(), f.Method.Name))
	}
	f.Stack[f.SP] = v
	f.SP++
}

func (f *Frame) Pop() value.Value {
	if f.SP <= 0 {
		panic(fmt.Sprintf("operand stack underflow in %s.%s", f.Class.Name(), f.Method.Name))
	}
	f.SP--
	return f.Stack[f.SP]
}

func (f *Frame) Peek() value.Value { return f.Stack[f.SP-1] }

func (f *Frame) GetLocal(index int) value.Value {
	if index < 0 || index >= len(f.Locals) {
		panic(fmt.Sprintf("local variable index out of range: %d (max %d)", index, len(f.Locals)))
	}
	return f.Locals[index]
}

func (f *Frame) SetLocal(index int, v value.Value) {
	if index < 0 || index >= len(f.Locals) {
		panic(fmt.Sprintf("local variable index out of range: %d (max %d)", index, len(f.Locals)))
	}
	f.Locals[index] = v
}

func (f *Frame) ReadU8() uint8 {
	v := f.Code[f.PC]
	f.PC++
	return v
}

func (f *Frame) ReadI8() int8 { return int8(f.ReadU8()) }

func (f *Frame) ReadU16() uint16 {
	v := uint16(f.Code[f.PC])<<8 | uint16(f.Code[f.PC+1])
	f.PC += 2
	return v
}

func (f *Frame) ReadI16() int16 { return int16(f.ReadU16()) }

func (f *Frame) ReadU32() uint32 {
	v := uint32(f.Code[f.PC])<<24 | uint32(f.Code[f.PC+1])<<16 | uint32(f.Code[f.PC+2])<<8 | uint32(f.Code[f.PC+3])
	f.PC += 4
	return v
}

func (f *Frame) ReadI32() int32 { return int32(f.ReadU32()) }

// ThreadState is one Java thread's call stack (§3 Thread state): the
// frames currently active, used both by the interpreter's own recursive
// call chain (each Go-level invokeMethod call pushes/pops one Frame
// here purely for introspection — actual control flow is plain Go
// recursion) and by pkg/gc, which walks Frames for roots.
type ThreadState struct {
	TaskID int64
	Frames []*Frame
}

func (t *ThreadState) push(f *Frame) { t.Frames = append(t.Frames, f) }
func (t *ThreadState) pop()          { t.Frames = t.Frames[:len(t.Frames)-1] }

// Roots implements gc.RootProvider: every live value on every active
// frame's operand stack and local variable array.
func (t *ThreadState) Roots() []value.Value {
	var roots []value.Value
	for _, f := range t.Frames {
		roots = append(roots, f.Stack[:f.SP]...)
		roots = append(roots, f.Locals...)
	}
	return roots
}
