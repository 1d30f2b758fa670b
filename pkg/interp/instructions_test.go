package interp

import (
	"context"
	"testing"

	"github.com/jvmcore/gojvm/pkg/classloader"
	"github.com/jvmcore/gojvm/pkg/gc"
	"github.com/jvmcore/gojvm/pkg/object"
	"github.com/jvmcore/gojvm/pkg/value"
)

// testClass gives a Frame a non-nil object.Class with an empty constant
// pool, enough for opcodes that never touch the pool (arithmetic, stack
// manipulation, branches, local variable access).
func testClass() object.Class {
	return object.NewOrdinaryClass("Test", "java/lang/Object", nil, 0, nil)
}

// executeAndGetInt runs code (raw bytecode bytes) against a fresh frame
// and returns the value an ireturn produces, grounded on
// _examples/daimatz-gojvm/pkg/vm/instructions_test.go's own
// executeAndGetInt harness.
func executeAndGetInt(t *testing.T, code []byte, locals ...int32) int32 {
	t.Helper()
	maxLocals := len(locals)
	if maxLocals < 4 {
		maxLocals = 4
	}
	frame := &Frame{
		Locals: make([]value.Value, maxLocals),
		Stack:  make([]value.Value, 16),
		Code:   code,
		Class:  testClass(),
		Method: &object.Method{Name: "test", Descriptor: "()I"},
	}
	for i, l := range locals {
		frame.Locals[i] = value.IntValue(l)
	}
	vm := &VM{Log: nil}
	ctx := context.Background()
	for frame.PC < len(frame.Code) {
		opcode := frame.Code[frame.PC]
		frame.PC++
		retVal, hasReturn, err := vm.executeInstruction(ctx, frame, opcode)
		if err != nil {
			t.Fatalf("execution error at PC=%d: %v", frame.PC-1, err)
		}
		if hasReturn {
			return retVal.Int()
		}
	}
	t.Fatal("bytecode did not return a value (missing ireturn?)")
	return 0
}

func TestIconstFamily(t *testing.T) {
	tests := []struct {
		name   string
		opcode byte
		want   int32
	}{
		{"iconst_m1", OpIconstM1, -1},
		{"iconst_0", OpIconst0, 0},
		{"iconst_1", OpIconst1, 1},
		{"iconst_5", OpIconst5, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := []byte{tt.opcode, OpIreturn}
			if got := executeAndGetInt(t, code); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBipushSipush(t *testing.T) {
	t.Run("bipush positive", func(t *testing.T) {
		code := []byte{OpBipush, 42, OpIreturn}
		if got := executeAndGetInt(t, code); got != 42 {
			t.Errorf("got %d, want 42", got)
		}
	})
	t.Run("bipush negative", func(t *testing.T) {
		code := []byte{OpBipush, 0xFB, OpIreturn} // -5 as signed byte
		if got := executeAndGetInt(t, code); got != -5 {
			t.Errorf("got %d, want -5", got)
		}
	})
	t.Run("sipush", func(t *testing.T) {
		code := []byte{OpSipush, 0x01, 0x00, OpIreturn} // 256
		if got := executeAndGetInt(t, code); got != 256 {
			t.Errorf("got %d, want 256", got)
		}
	})
}

func TestArithmetic(t *testing.T) {
	t.Run("iadd", func(t *testing.T) {
		code := []byte{OpBipush, 10, OpBipush, 32, OpIadd, OpIreturn}
		if got := executeAndGetInt(t, code); got != 42 {
			t.Errorf("got %d, want 42", got)
		}
	})
	t.Run("isub", func(t *testing.T) {
		code := []byte{OpBipush, 50, OpBipush, 8, OpIsub, OpIreturn}
		if got := executeAndGetInt(t, code); got != 42 {
			t.Errorf("got %d, want 42", got)
		}
	})
	t.Run("imul", func(t *testing.T) {
		code := []byte{OpBipush, 6, OpBipush, 7, OpImul, OpIreturn}
		if got := executeAndGetInt(t, code); got != 42 {
			t.Errorf("got %d, want 42", got)
		}
	})
	t.Run("idiv", func(t *testing.T) {
		code := []byte{OpBipush, 84, OpBipush, 2, OpIdiv, OpIreturn}
		if got := executeAndGetInt(t, code); got != 42 {
			t.Errorf("got %d, want 42", got)
		}
	})
	t.Run("idiv by zero throws ArithmeticException", func(t *testing.T) {
		code := []byte{OpIconst1, OpIconst0, OpIdiv, OpIreturn}
		frame := &Frame{
			Locals: make([]value.Value, 4),
			Stack:  make([]value.Value, 16),
			Code:   code,
			Class:  testClass(),
			Method: &object.Method{Name: "test", Descriptor: "()I"},
		}
		boot := classloader.New("bootstrap", nil, nil, nil)
		if err := boot.RegisterPrototype(object.NewOrdinaryClass("java/lang/ArithmeticException", "", nil, 0, nil)); err != nil {
			t.Fatalf("registering ArithmeticException: %v", err)
		}
		vm := &VM{Boot: boot, Heap: gc.NewHeap(nil)}
		ctx := context.Background()
		var lastErr error
		for frame.PC < len(frame.Code) {
			opcode := frame.Code[frame.PC]
			frame.PC++
			_, _, err := vm.executeInstruction(ctx, frame, opcode)
			if err != nil {
				lastErr = err
				break
			}
		}
		if lastErr == nil {
			t.Fatal("expected ArithmeticException, got nil")
		}
		je, ok := lastErr.(*JavaException)
		if !ok {
			t.Fatalf("expected *JavaException, got %T: %v", lastErr, lastErr)
		}
		if je.Instance.Class().Name() != "java/lang/ArithmeticException" {
			t.Errorf("got exception class %s, want java/lang/ArithmeticException", je.Instance.Class().Name())
		}
	})
	t.Run("iinc", func(t *testing.T) {
		code := []byte{OpIinc, 0, 5, OpIload0, OpIreturn}
		if got := executeAndGetInt(t, code, 37); got != 42 {
			t.Errorf("got %d, want 42", got)
		}
	})
}

func TestStackManipulation(t *testing.T) {
	t.Run("dup", func(t *testing.T) {
		code := []byte{OpBipush, 21, OpDup, OpIadd, OpIreturn}
		if got := executeAndGetInt(t, code); got != 42 {
			t.Errorf("got %d, want 42", got)
		}
	})
	t.Run("pop discards top", func(t *testing.T) {
		code := []byte{OpBipush, 42, OpBipush, 99, OpPop, OpIreturn}
		if got := executeAndGetInt(t, code); got != 42 {
			t.Errorf("got %d, want 42", got)
		}
	})
	t.Run("swap", func(t *testing.T) {
		// push 10, 32; swap leaves 32 below 10 on the stack, so isub
		// computes 32-10 instead of the unswapped 10-32.
		code := []byte{OpBipush, 10, OpBipush, 32, OpSwap, OpIsub, OpIreturn}
		if got := executeAndGetInt(t, code); got != 22 {
			t.Errorf("got %d, want 22", got)
		}
	})
}

func TestBranches(t *testing.T) {
	t.Run("ifeq taken", func(t *testing.T) {
		// iconst_0; ifeq branches over the 9-path to the 42-path.
		code := []byte{
			OpIconst0,
			OpIfeq, 0x00, 0x06,
			OpBipush, 9, OpIreturn,
			OpBipush, 42, OpIreturn,
		}
		if got := executeAndGetInt(t, code); got != 42 {
			t.Errorf("got %d, want 42", got)
		}
	})
	t.Run("if_icmpgt not taken falls through", func(t *testing.T) {
		code := []byte{
			OpBipush, 1, OpBipush, 2,
			OpIfIcmpgt, 0x00, 0x06,
			OpBipush, 42, OpIreturn,
			OpBipush, 9, OpIreturn,
		}
		if got := executeAndGetInt(t, code); got != 42 {
			t.Errorf("got %d, want 42", got)
		}
	})
	t.Run("goto skips forward", func(t *testing.T) {
		code := []byte{
			OpGoto, 0x00, 0x06,
			OpBipush, 9, OpIreturn,
			OpBipush, 42, OpIreturn,
		}
		if got := executeAndGetInt(t, code); got != 42 {
			t.Errorf("got %d, want 42", got)
		}
	})
}

func TestLocalVariableRoundTrip(t *testing.T) {
	code := []byte{OpIload0, OpIload1, OpIadd, OpIstore2, OpIload2, OpIreturn}
	if got := executeAndGetInt(t, code, 19, 23); got != 42 {
		t.Errorf("got %d, want 42", got)
	}
}
