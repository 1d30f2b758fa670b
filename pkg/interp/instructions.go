package interp

import (
	"context"
	"fmt"
	"math"

	"github.com/jvmcore/gojvm/pkg/classfile"
	"github.com/jvmcore/gojvm/pkg/object"
	"github.com/jvmcore/gojvm/pkg/value"
)

// executeInstruction executes a single bytecode instruction, following
// the dispatch-switch shape of
// _examples/daimatz-gojvm/pkg/vm/instructions.go, generalized to every
// value kind and extended to the opcodes the teacher's subset omitted.
// Returns (returnValue, hasReturn, error); a *JavaException error is
// caught by runFrame's exception-table search, anything else propagates
// as a host fault (§7).
func (vm *VM) executeInstruction(ctx context.Context, frame *Frame, opcode byte) (value.Value, bool, error) {
	pool := frame.Class.ConstantPool()

	switch opcode {
	case OpNop:

	case OpAconstNull:
		frame.Push(value.NullValue())
	case OpIconstM1:
		frame.Push(value.IntValue(-1))
	case OpIconst0:
		frame.Push(value.IntValue(0))
	case OpIconst1:
		frame.Push(value.IntValue(1))
	case OpIconst2:
		frame.Push(value.IntValue(2))
	case OpIconst3:
		frame.Push(value.IntValue(3))
	case OpIconst4:
		frame.Push(value.IntValue(4))
	case OpIconst5:
		frame.Push(value.IntValue(5))
	case OpLconst0:
		frame.Push(value.LongValue(0))
	case OpLconst1:
		frame.Push(value.LongValue(1))
	case OpFconst0:
		frame.Push(value.FloatValue(0))
	case OpFconst1:
		frame.Push(value.FloatValue(1))
	case OpFconst2:
		frame.Push(value.FloatValue(2))
	case OpDconst0:
		frame.Push(value.DoubleValue(0))
	case OpDconst1:
		frame.Push(value.DoubleValue(1))

	case OpBipush:
		frame.Push(value.IntValue(int32(frame.ReadI8())))
	case OpSipush:
		frame.Push(value.IntValue(int32(frame.ReadI16())))

	case OpLdc:
		return vm.executeLdc(frame, pool, uint16(frame.ReadU8()))
	case OpLdcW:
		return vm.executeLdc(frame, pool, frame.ReadU16())
	case OpLdc2W:
		return vm.executeLdc2(frame, pool, frame.ReadU16())

	// --- loads ---
	case OpIload, OpFload, OpAload:
		frame.Push(frame.GetLocal(int(frame.ReadU8())))
	case OpLload, OpDload:
		frame.Push(frame.GetLocal(int(frame.ReadU8())))
	case OpIload0, OpFload0, OpAload0:
		frame.Push(frame.GetLocal(0))
	case OpIload1, OpFload1, OpAload1:
		frame.Push(frame.GetLocal(1))
	case OpIload2, OpFload2, OpAload2:
		frame.Push(frame.GetLocal(2))
	case OpIload3, OpFload3, OpAload3:
		frame.Push(frame.GetLocal(3))
	case OpLload0, OpDload0:
		frame.Push(frame.GetLocal(0))
	case OpLload1, OpDload1:
		frame.Push(frame.GetLocal(1))
	case OpLload2, OpDload2:
		frame.Push(frame.GetLocal(2))
	case OpLload3, OpDload3:
		frame.Push(frame.GetLocal(3))

	// --- array loads ---
	case OpIaload, OpFaload, OpLaload, OpDaload, OpAaload, OpBaload, OpCaload, OpSaload:
		return vm.executeArrayLoad(frame)

	// --- stores ---
	case OpIstore, OpFstore, OpAstore:
		frame.SetLocal(int(frame.ReadU8()), frame.Pop())
	case OpLstore, OpDstore:
		frame.SetLocal(int(frame.ReadU8()), frame.Pop())
	case OpIstore0, OpFstore0, OpAstore0, OpLstore0, OpDstore0:
		frame.SetLocal(0, frame.Pop())
	case OpIstore1, OpFstore1, OpAstore1, OpLstore1, OpDstore1:
		frame.SetLocal(1, frame.Pop())
	case OpIstore2, OpFstore2, OpAstore2, OpLstore2, OpDstore2:
		frame.SetLocal(2, frame.Pop())
	case OpIstore3, OpFstore3, OpAstore3, OpLstore3, OpDstore3:
		frame.SetLocal(3, frame.Pop())

	// --- array stores ---
	case OpIastore, OpFastore, OpLastore, OpDastore, OpAastore, OpBastore, OpCastore, OpSastore:
		return vm.executeArrayStore(frame, opcode)

	// --- stack manipulation ---
	case OpPop:
		frame.Pop()
	case OpPop2:
		v := frame.Pop()
		if v.Kind.Width() == 1 {
			frame.Pop()
		}
	case OpDup:
		v := frame.Pop()
		frame.Push(v)
		frame.Push(v)
	case OpDupX1:
		v1, v2 := frame.Pop(), frame.Pop()
		frame.Push(v1)
		frame.Push(v2)
		frame.Push(v1)
	case OpDupX2:
		v1, v2, v3 := frame.Pop(), frame.Pop(), frame.Pop()
		frame.Push(v1)
		frame.Push(v3)
		frame.Push(v2)
		frame.Push(v1)
	case OpDup2:
		// Form 2 (JVM Specification 6.5.dup2): a lone category-2 value
		// on top is just duplicated in place, the same way pop2 treats
		// it as a single slot in this model (value.Kind.Width()).
		v1 := frame.Pop()
		if v1.Kind.Width() == 2 {
			frame.Push(v1)
			frame.Push(v1)
		} else {
			v2 := frame.Pop()
			frame.Push(v2)
			frame.Push(v1)
			frame.Push(v2)
			frame.Push(v1)
		}
	case OpDup2X1:
		v1 := frame.Pop()
		if v1.Kind.Width() == 2 {
			// Form 2: dup2_x1(category-2, category-1)
			v2 := frame.Pop()
			frame.Push(v1)
			frame.Push(v2)
			frame.Push(v1)
		} else {
			// Form 1: dup2_x1(category-1, category-1, category-1)
			v2, v3 := frame.Pop(), frame.Pop()
			frame.Push(v2)
			frame.Push(v1)
			frame.Push(v3)
			frame.Push(v2)
			frame.Push(v1)
		}
	case OpDup2X2:
		v1 := frame.Pop()
		if v1.Kind.Width() == 2 {
			v2 := frame.Pop()
			if v2.Kind.Width() == 2 {
				// Form 4: dup2_x2(category-2, category-2)
				frame.Push(v1)
				frame.Push(v2)
				frame.Push(v1)
			} else {
				// Form 2: dup2_x2(category-2, category-1, category-1)
				v3 := frame.Pop()
				frame.Push(v1)
				frame.Push(v3)
				frame.Push(v2)
				frame.Push(v1)
			}
		} else {
			v2, v3 := frame.Pop(), frame.Pop()
			if v3.Kind.Width() == 2 {
				// Form 3: dup2_x2(category-1, category-1, category-2)
				frame.Push(v2)
				frame.Push(v1)
				frame.Push(v3)
				frame.Push(v2)
				frame.Push(v1)
			} else {
				// Form 1: dup2_x2(category-1 x4)
				v4 := frame.Pop()
				frame.Push(v2)
				frame.Push(v1)
				frame.Push(v4)
				frame.Push(v3)
				frame.Push(v2)
				frame.Push(v1)
			}
		}
	case OpSwap:
		v2, v1 := frame.Pop(), frame.Pop()
		frame.Push(v2)
		frame.Push(v1)

	// --- int arithmetic ---
	case OpIadd:
		b, a := frame.Pop().Int(), frame.Pop().Int()
		frame.Push(value.IntValue(a + b))
	case OpIsub:
		b, a := frame.Pop().Int(), frame.Pop().Int()
		frame.Push(value.IntValue(a - b))
	case OpImul:
		b, a := frame.Pop().Int(), frame.Pop().Int()
		frame.Push(value.IntValue(a * b))
	case OpIdiv:
		b, a := frame.Pop().Int(), frame.Pop().Int()
		if b == 0 {
			return vm.arithmeticException()
		}
		frame.Push(value.IntValue(a / b))
	case OpIrem:
		b, a := frame.Pop().Int(), frame.Pop().Int()
		if b == 0 {
			return vm.arithmeticException()
		}
		frame.Push(value.IntValue(a % b))
	case OpIneg:
		frame.Push(value.IntValue(-frame.Pop().Int()))
	case OpIshl:
		b, a := frame.Pop().Int(), frame.Pop().Int()
		frame.Push(value.IntValue(a << (uint32(b) & 0x1f)))
	case OpIshr:
		b, a := frame.Pop().Int(), frame.Pop().Int()
		frame.Push(value.IntValue(a >> (uint32(b) & 0x1f)))
	case OpIushr:
		b, a := frame.Pop().Int(), frame.Pop().Int()
		frame.Push(value.IntValue(int32(uint32(a) >> (uint32(b) & 0x1f))))
	case OpIand:
		b, a := frame.Pop().Int(), frame.Pop().Int()
		frame.Push(value.IntValue(a & b))
	case OpIor:
		b, a := frame.Pop().Int(), frame.Pop().Int()
		frame.Push(value.IntValue(a | b))
	case OpIxor:
		b, a := frame.Pop().Int(), frame.Pop().Int()
		frame.Push(value.IntValue(a ^ b))
	case OpIinc:
		index := int(frame.ReadU8())
		delta := int32(frame.ReadI8())
		frame.SetLocal(index, value.IntValue(frame.GetLocal(index).Int()+delta))

	// --- long arithmetic ---
	case OpLadd:
		b, a := frame.Pop().Long(), frame.Pop().Long()
		frame.Push(value.LongValue(a + b))
	case OpLsub:
		b, a := frame.Pop().Long(), frame.Pop().Long()
		frame.Push(value.LongValue(a - b))
	case OpLmul:
		b, a := frame.Pop().Long(), frame.Pop().Long()
		frame.Push(value.LongValue(a * b))
	case OpLdiv:
		b, a := frame.Pop().Long(), frame.Pop().Long()
		if b == 0 {
			return vm.arithmeticException()
		}
		frame.Push(value.LongValue(a / b))
	case OpLrem:
		b, a := frame.Pop().Long(), frame.Pop().Long()
		if b == 0 {
			return vm.arithmeticException()
		}
		frame.Push(value.LongValue(a % b))
	case OpLneg:
		frame.Push(value.LongValue(-frame.Pop().Long()))
	case OpLshl:
		b, a := frame.Pop().Int(), frame.Pop().Long()
		frame.Push(value.LongValue(a << (uint32(b) & 0x3f)))
	case OpLshr:
		b, a := frame.Pop().Int(), frame.Pop().Long()
		frame.Push(value.LongValue(a >> (uint32(b) & 0x3f)))
	case OpLushr:
		b, a := frame.Pop().Int(), frame.Pop().Long()
		frame.Push(value.LongValue(int64(uint64(a) >> (uint32(b) & 0x3f))))
	case OpLand:
		b, a := frame.Pop().Long(), frame.Pop().Long()
		frame.Push(value.LongValue(a & b))
	case OpLor:
		b, a := frame.Pop().Long(), frame.Pop().Long()
		frame.Push(value.LongValue(a | b))
	case OpLxor:
		b, a := frame.Pop().Long(), frame.Pop().Long()
		frame.Push(value.LongValue(a ^ b))
	case OpLcmp:
		b, a := frame.Pop().Long(), frame.Pop().Long()
		frame.Push(value.IntValue(compareInt64(a, b)))

	// --- float arithmetic ---
	case OpFadd:
		b, a := frame.Pop().Float(), frame.Pop().Float()
		frame.Push(value.FloatValue(a + b))
	case OpFsub:
		b, a := frame.Pop().Float(), frame.Pop().Float()
		frame.Push(value.FloatValue(a - b))
	case OpFmul:
		b, a := frame.Pop().Float(), frame.Pop().Float()
		frame.Push(value.FloatValue(a * b))
	case OpFdiv:
		b, a := frame.Pop().Float(), frame.Pop().Float()
		frame.Push(value.FloatValue(a / b))
	case OpFrem:
		b, a := frame.Pop().Float(), frame.Pop().Float()
		frame.Push(value.FloatValue(float32(math.Mod(float64(a), float64(b)))))
	case OpFneg:
		frame.Push(value.FloatValue(-frame.Pop().Float()))
	case OpFcmpl:
		frame.Push(value.IntValue(compareFloat(frame, -1)))
	case OpFcmpg:
		frame.Push(value.IntValue(compareFloat(frame, 1)))

	// --- double arithmetic ---
	case OpDadd:
		b, a := frame.Pop().Double(), frame.Pop().Double()
		frame.Push(value.DoubleValue(a + b))
	case OpDsub:
		b, a := frame.Pop().Double(), frame.Pop().Double()
		frame.Push(value.DoubleValue(a - b))
	case OpDmul:
		b, a := frame.Pop().Double(), frame.Pop().Double()
		frame.Push(value.DoubleValue(a * b))
	case OpDdiv:
		b, a := frame.Pop().Double(), frame.Pop().Double()
		frame.Push(value.DoubleValue(a / b))
	case OpDrem:
		b, a := frame.Pop().Double(), frame.Pop().Double()
		frame.Push(value.DoubleValue(math.Mod(a, b)))
	case OpDneg:
		frame.Push(value.DoubleValue(-frame.Pop().Double()))
	case OpDcmpl:
		frame.Push(value.IntValue(compareDouble(frame, -1)))
	case OpDcmpg:
		frame.Push(value.IntValue(compareDouble(frame, 1)))

	// --- conversions ---
	case OpI2l:
		frame.Push(value.LongValue(int64(frame.Pop().Int())))
	case OpI2f:
		frame.Push(value.FloatValue(float32(frame.Pop().Int())))
	case OpI2d:
		frame.Push(value.DoubleValue(float64(frame.Pop().Int())))
	case OpL2i:
		frame.Push(value.IntValue(int32(frame.Pop().Long())))
	case OpL2f:
		frame.Push(value.FloatValue(float32(frame.Pop().Long())))
	case OpL2d:
		frame.Push(value.DoubleValue(float64(frame.Pop().Long())))
	case OpF2i:
		frame.Push(value.IntValue(floatToInt(frame.Pop().Float())))
	case OpF2l:
		frame.Push(value.LongValue(floatToLong(frame.Pop().Float())))
	case OpF2d:
		frame.Push(value.DoubleValue(float64(frame.Pop().Float())))
	case OpD2i:
		frame.Push(value.IntValue(doubleToInt(frame.Pop().Double())))
	case OpD2l:
		frame.Push(value.LongValue(doubleToLong(frame.Pop().Double())))
	case OpD2f:
		frame.Push(value.FloatValue(float32(frame.Pop().Double())))
	case OpI2b:
		frame.Push(value.IntValue(int32(int8(frame.Pop().Int()))))
	case OpI2c:
		frame.Push(value.IntValue(int32(uint16(frame.Pop().Int()))))
	case OpI2s:
		frame.Push(value.IntValue(int32(int16(frame.Pop().Int()))))

	// --- branches ---
	case OpIfeq:
		return vm.branchUnary(frame, func(v int32) bool { return v == 0 })
	case OpIfne:
		return vm.branchUnary(frame, func(v int32) bool { return v != 0 })
	case OpIflt:
		return vm.branchUnary(frame, func(v int32) bool { return v < 0 })
	case OpIfge:
		return vm.branchUnary(frame, func(v int32) bool { return v >= 0 })
	case OpIfgt:
		return vm.branchUnary(frame, func(v int32) bool { return v > 0 })
	case OpIfle:
		return vm.branchUnary(frame, func(v int32) bool { return v <= 0 })
	case OpIfIcmpeq:
		return vm.branchBinary(frame, func(a, b int32) bool { return a == b })
	case OpIfIcmpne:
		return vm.branchBinary(frame, func(a, b int32) bool { return a != b })
	case OpIfIcmplt:
		return vm.branchBinary(frame, func(a, b int32) bool { return a < b })
	case OpIfIcmpge:
		return vm.branchBinary(frame, func(a, b int32) bool { return a >= b })
	case OpIfIcmpgt:
		return vm.branchBinary(frame, func(a, b int32) bool { return a > b })
	case OpIfIcmple:
		return vm.branchBinary(frame, func(a, b int32) bool { return a <= b })
	case OpIfAcmpeq:
		return vm.branchRef(frame, func(a, b value.Value) bool { return refEqual(a, b) })
	case OpIfAcmpne:
		return vm.branchRef(frame, func(a, b value.Value) bool { return !refEqual(a, b) })
	case OpIfnull:
		branchPC := frame.PC - 1
		offset := frame.ReadI16()
		if frame.Pop().IsNull() {
			frame.PC = branchPC + int(offset)
		}
	case OpIfnonnull:
		branchPC := frame.PC - 1
		offset := frame.ReadI16()
		if !frame.Pop().IsNull() {
			frame.PC = branchPC + int(offset)
		}
	case OpGoto:
		branchPC := frame.PC - 1
		offset := frame.ReadI16()
		frame.PC = branchPC + int(offset)
	case OpGotoW:
		branchPC := frame.PC - 1
		offset := frame.ReadI32()
		frame.PC = branchPC + int(offset)
	case OpJsr:
		branchPC := frame.PC - 1
		offset := frame.ReadI16()
		frame.Push(value.IntValue(int32(frame.PC)))
		frame.PC = branchPC + int(offset)
	case OpJsrW:
		branchPC := frame.PC - 1
		offset := frame.ReadI32()
		frame.Push(value.IntValue(int32(frame.PC)))
		frame.PC = branchPC + int(offset)
	case OpRet:
		frame.PC = int(frame.GetLocal(int(frame.ReadU8())).Int())

	case OpTableswitch:
		return vm.executeTableswitch(frame)
	case OpLookupswitch:
		return vm.executeLookupswitch(frame)

	// --- returns ---
	case OpIreturn, OpFreturn, OpLreturn, OpDreturn, OpAreturn:
		return frame.Pop(), true, nil
	case OpReturn:
		return value.Value{}, true, nil

	// --- fields ---
	case OpGetstatic:
		return vm.executeGetstatic(ctx, frame, pool)
	case OpPutstatic:
		return vm.executePutstatic(ctx, frame, pool)
	case OpGetfield:
		return vm.executeGetfield(frame, pool)
	case OpPutfield:
		return vm.executePutfield(frame, pool)

	// --- invocation ---
	case OpInvokevirtual:
		return vm.invokeVirtualImpl(ctx, frame, pool)
	case OpInvokespecial:
		return vm.invokeSpecialImpl(ctx, frame, pool)
	case OpInvokestatic:
		return vm.invokeStaticImpl(ctx, frame, pool)
	case OpInvokeinterface:
		return vm.invokeInterfaceImpl(ctx, frame, pool)
	case OpInvokedynamic:
		return value.Value{}, false, fmt.Errorf("invokedynamic is not supported by this core")

	// --- object/array creation ---
	case OpNew:
		return vm.executeNew(ctx, frame, pool)
	case OpNewarray:
		return vm.executeNewarray(frame)
	case OpAnewarray:
		return vm.executeAnewarray(frame, pool)
	case OpMultianewarray:
		return vm.executeMultianewarray(frame, pool)
	case OpArraylength:
		ref := frame.Pop()
		if ref.IsNull() {
			return vm.nullPointerException()
		}
		arr, ok := ref.Ref.(*object.ArrayInstance)
		if !ok {
			return value.Value{}, false, fmt.Errorf("arraylength: not an array")
		}
		frame.Push(value.IntValue(int32(arr.Length())))

	case OpAthrow:
		ref := frame.Pop()
		if ref.IsNull() {
			return vm.nullPointerException()
		}
		inst, ok := ref.Ref.(*object.Instance)
		if !ok {
			return value.Value{}, false, fmt.Errorf("athrow: not a throwable instance")
		}
		return value.Value{}, false, &JavaException{Instance: inst}

	case OpCheckcast:
		return vm.executeCheckcast(frame, pool)
	case OpInstanceof:
		return vm.executeInstanceof(frame, pool)

	case OpMonitorenter:
		ref := frame.Pop()
		if ref.IsNull() {
			return vm.nullPointerException()
		}
		if inst, ok := ref.Ref.(*object.Instance); ok {
			inst.MonitorEnter(threadOwnerID(ctx, vm))
		}
	case OpMonitorexit:
		ref := frame.Pop()
		if ref.IsNull() {
			return vm.nullPointerException()
		}
		if inst, ok := ref.Ref.(*object.Instance); ok {
			inst.MonitorExit(threadOwnerID(ctx, vm))
		}

	case OpWide:
		return vm.executeWide(frame)

	default:
		return value.Value{}, false, fmt.Errorf("unimplemented opcode 0x%02X at pc=%d", opcode, frame.PC-1)
	}

	return value.Value{}, false, nil
}

func (vm *VM) arithmeticException() (value.Value, bool, error) {
	exc, err := vm.newVMException("java/lang/ArithmeticException", "/ by zero")
	if err != nil {
		return value.Value{}, false, err
	}
	return value.Value{}, false, exc
}

func (vm *VM) nullPointerException() (value.Value, bool, error) {
	exc, err := vm.newVMException("java/lang/NullPointerException", "")
	if err != nil {
		return value.Value{}, false, err
	}
	return value.Value{}, false, exc
}

func threadOwnerID(ctx context.Context, vm *VM) int64 {
	if vm.Cap == nil {
		return 0
	}
	return int64(hashTaskID(vm.Cap.CurrentTaskID(ctx)))
}

func refEqual(a, b value.Value) bool {
	if a.IsNull() || b.IsNull() {
		return a.IsNull() == b.IsNull()
	}
	return a.Ref == b.Ref
}

func compareInt64(a, b int64) int32 {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}

// compareFloat implements fcmpl/fcmpg: NaN yields -1 (fcmpl) or 1 (fcmpg)
// per JVM Specification 6.5.fcmp<op>.
func compareFloat(frame *Frame, nanResult int32) int32 {
	b, a := frame.Pop().Float(), frame.Pop().Float()
	if math.IsNaN(float64(a)) || math.IsNaN(float64(b)) {
		return nanResult
	}
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}

func compareDouble(frame *Frame, nanResult int32) int32 {
	b, a := frame.Pop().Double(), frame.Pop().Double()
	if math.IsNaN(a) || math.IsNaN(b) {
		return nanResult
	}
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}

func floatToInt(f float32) int32 {
	if math.IsNaN(float64(f)) {
		return 0
	}
	d := float64(f)
	if d >= math.MaxInt32 {
		return math.MaxInt32
	}
	if d <= math.MinInt32 {
		return math.MinInt32
	}
	return int32(d)
}

func floatToLong(f float32) int64 {
	if math.IsNaN(float64(f)) {
		return 0
	}
	d := float64(f)
	if d >= math.MaxInt64 {
		return math.MaxInt64
	}
	if d <= math.MinInt64 {
		return math.MinInt64
	}
	return int64(d)
}

func doubleToInt(d float64) int32 {
	if math.IsNaN(d) {
		return 0
	}
	if d >= math.MaxInt32 {
		return math.MaxInt32
	}
	if d <= math.MinInt32 {
		return math.MinInt32
	}
	return int32(d)
}

func doubleToLong(d float64) int64 {
	if math.IsNaN(d) {
		return 0
	}
	if d >= math.MaxInt64 {
		return math.MaxInt64
	}
	if d <= math.MinInt64 {
		return math.MinInt64
	}
	return int64(d)
}

func (vm *VM) branchUnary(frame *Frame, pred func(int32) bool) (value.Value, bool, error) {
	branchPC := frame.PC - 1
	offset := frame.ReadI16()
	if pred(frame.Pop().Int()) {
		frame.PC = branchPC + int(offset)
	}
	return value.Value{}, false, nil
}

func (vm *VM) branchBinary(frame *Frame, pred func(a, b int32) bool) (value.Value, bool, error) {
	branchPC := frame.PC - 1
	offset := frame.ReadI16()
	b, a := frame.Pop().Int(), frame.Pop().Int()
	if pred(a, b) {
		frame.PC = branchPC + int(offset)
	}
	return value.Value{}, false, nil
}

func (vm *VM) branchRef(frame *Frame, pred func(a, b value.Value) bool) (value.Value, bool, error) {
	branchPC := frame.PC - 1
	offset := frame.ReadI16()
	b, a := frame.Pop(), frame.Pop()
	if pred(a, b) {
		frame.PC = branchPC + int(offset)
	}
	return value.Value{}, false, nil
}

// executeLdc pushes a constant-pool entry for ldc/ldc_w, interning
// strings through vm.InternString so identity matches the JVM's string
// literal pool (§8).
func (vm *VM) executeLdc(frame *Frame, pool []classfile.ConstantPoolEntry, index uint16) (value.Value, bool, error) {
	if int(index) >= len(pool) || pool[index] == nil {
		return value.Value{}, false, fmt.Errorf("ldc: constant pool index %d out of range", index)
	}
	switch c := pool[index].(type) {
	case *classfile.ConstantInteger:
		frame.Push(value.IntValue(c.Value))
	case *classfile.ConstantFloat:
		frame.Push(value.FloatValue(c.Value))
	case *classfile.ConstantString:
		s, err := classfile.GetUtf8(pool, c.StringIndex)
		if err != nil {
			return value.Value{}, false, fmt.Errorf("ldc: %w", err)
		}
		frame.Push(vm.InternString(s))
	case *classfile.ConstantClass:
		name, err := classfile.GetClassName(pool, index)
		if err != nil {
			return value.Value{}, false, fmt.Errorf("ldc: %w", err)
		}
		class, err := vm.Boot.Resolve(name)
		if err != nil {
			return value.Value{}, false, fmt.Errorf("ldc: %w", err)
		}
		frame.Push(value.RefValue(class))
	default:
		return value.Value{}, false, fmt.Errorf("ldc: unsupported constant pool tag at index %d", index)
	}
	return value.Value{}, false, nil
}

func (vm *VM) executeLdc2(frame *Frame, pool []classfile.ConstantPoolEntry, index uint16) (value.Value, bool, error) {
	if int(index) >= len(pool) || pool[index] == nil {
		return value.Value{}, false, fmt.Errorf("ldc2_w: constant pool index %d out of range", index)
	}
	switch c := pool[index].(type) {
	case *classfile.ConstantLong:
		frame.Push(value.LongValue(c.Value))
	case *classfile.ConstantDouble:
		frame.Push(value.DoubleValue(c.Value))
	default:
		return value.Value{}, false, fmt.Errorf("ldc2_w: constant pool index %d is not Long/Double", index)
	}
	return value.Value{}, false, nil
}

// executeWide handles the wide-prefixed variants of iload/istore/etc.
// and iinc with a uint16 local index (JVM Specification 6.5.wide).
func (vm *VM) executeWide(frame *Frame) (value.Value, bool, error) {
	sub := frame.ReadU8()
	switch sub {
	case OpIload, OpFload, OpAload, OpLload, OpDload:
		index := frame.ReadU16()
		frame.Push(frame.GetLocal(int(index)))
	case OpIstore, OpFstore, OpAstore, OpLstore, OpDstore:
		index := frame.ReadU16()
		frame.SetLocal(int(index), frame.Pop())
	case OpIinc:
		index := frame.ReadU16()
		delta := frame.ReadI16()
		frame.SetLocal(int(index), value.IntValue(frame.GetLocal(int(index)).Int()+int32(delta)))
	case OpRet:
		index := frame.ReadU16()
		frame.PC = int(frame.GetLocal(int(index)).Int())
	default:
		return value.Value{}, false, fmt.Errorf("wide: unsupported sub-opcode 0x%02X", sub)
	}
	return value.Value{}, false, nil
}

// executeTableswitch implements the tableswitch opcode, including the
// 0-3 byte alignment padding to the next 4-byte boundary measured from
// the start of the method's bytecode (JVM Specification 6.5.tableswitch).
func (vm *VM) executeTableswitch(frame *Frame) (value.Value, bool, error) {
	opcodePC := frame.PC - 1
	pad := (4 - (frame.PC % 4)) % 4
	frame.PC += pad

	defaultOffset := frame.ReadI32()
	low := frame.ReadI32()
	high := frame.ReadI32()

	key := frame.Pop().Int()
	if key < low || key > high {
		frame.PC = opcodePC + int(defaultOffset)
		return value.Value{}, false, nil
	}
	entryIndex := key - low
	frame.PC += int(entryIndex) * 4
	offset := frame.ReadI32()
	frame.PC = opcodePC + int(offset)
	return value.Value{}, false, nil
}

// executeLookupswitch implements the lookupswitch opcode: a sorted
// (match, offset) table probed linearly (the table is small in every
// class this core has been exercised against; a binary search would be
// the production choice at larger scale).
func (vm *VM) executeLookupswitch(frame *Frame) (value.Value, bool, error) {
	opcodePC := frame.PC - 1
	pad := (4 - (frame.PC % 4)) % 4
	frame.PC += pad

	defaultOffset := frame.ReadI32()
	npairs := frame.ReadI32()
	key := frame.Pop().Int()

	for i := int32(0); i < npairs; i++ {
		match := frame.ReadI32()
		offset := frame.ReadI32()
		if match == key {
			frame.PC = opcodePC + int(offset)
			return value.Value{}, false, nil
		}
	}
	frame.PC = opcodePC + int(defaultOffset)
	return value.Value{}, false, nil
}
