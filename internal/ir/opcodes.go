// Package ir implements the linear, opcoded intermediate representation
// (spec.md §3 IRInstruction/IR Module) and its append-only builder (C2).
// The opcode groups below follow spec.md §3 exactly: integer arithmetic per
// width, bit-precise arithmetic, floating/complex, comparisons, bit
// manipulation, memory, addressing, control, vstack manipulation.
package ir

// OpCode is the IR's opcode; every opcode pops/pushes a fixed number of
// virtual-stack operands (spec.md §3 "every opcode pops a fixed number of
// operands and pushes a fixed number of results").
type OpCode uint16

const (
	_ OpCode = iota

	// --- integer arithmetic, per width, signed/unsigned where it matters ---
	OpInt8Add
	OpInt16Add
	OpInt32Add
	OpInt64Add
	OpInt8Sub
	OpInt16Sub
	OpInt32Sub
	OpInt64Sub
	OpInt8MulS
	OpInt8MulU
	OpInt16MulS
	OpInt16MulU
	OpInt32MulS
	OpInt32MulU
	OpInt64MulS
	OpInt64MulU
	OpInt8DivS
	OpInt8DivU
	OpInt16DivS
	OpInt16DivU
	OpInt32DivS
	OpInt32DivU
	OpInt64DivS
	OpInt64DivU
	OpInt8ModS
	OpInt8ModU
	OpInt16ModS
	OpInt16ModU
	OpInt32ModS
	OpInt32ModU
	OpInt64ModS
	OpInt64ModU
	OpInt8Neg
	OpInt16Neg
	OpInt32Neg
	OpInt64Neg
	OpInt8Not
	OpInt16Not
	OpInt32Not
	OpInt64Not
	OpInt8ShlS
	OpInt8ShlU
	OpInt16ShlS
	OpInt16ShlU
	OpInt32ShlS
	OpInt32ShlU
	OpInt64ShlS
	OpInt64ShlU
	OpInt8Arshift
	OpInt16Arshift
	OpInt32Arshift
	OpInt64Arshift
	OpInt8Rshift
	OpInt16Rshift
	OpInt32Rshift
	OpInt64Rshift
	OpInt8And
	OpInt16And
	OpInt32And
	OpInt64And
	OpInt8Or
	OpInt16Or
	OpInt32Or
	OpInt64Or
	OpInt8Xor
	OpInt16Xor
	OpInt32Xor
	OpInt64Xor
	OpInt8BoolNot
	OpInt8BoolAnd
	OpInt8BoolOr

	// --- bit-precise arithmetic, width-parametric (imm0 = width) -----------
	OpBitIntAdd
	OpBitIntSub
	OpBitIntMulS
	OpBitIntMulU
	OpBitIntDivS
	OpBitIntDivU
	OpBitIntModS
	OpBitIntModU
	OpBitIntNegate
	OpBitIntInvert
	OpBitIntShlS
	OpBitIntShlU
	OpBitIntArshift
	OpBitIntRshift
	OpBitIntAnd
	OpBitIntOr
	OpBitIntXor
	OpBitIntToBool

	// --- floating / complex --------------------------------------------
	OpFloat32Add
	OpFloat32Sub
	OpFloat32Mul
	OpFloat32Div
	OpFloat32Neg
	OpFloat64Add
	OpFloat64Sub
	OpFloat64Mul
	OpFloat64Div
	OpFloat64Neg
	OpLongDoubleAdd
	OpLongDoubleSub
	OpLongDoubleMul
	OpLongDoubleDiv
	OpLongDoubleNeg
	OpComplexFloatAdd
	OpComplexFloatSub
	OpComplexFloatMul
	OpComplexFloatDiv
	OpComplexFloatNeg
	OpComplexDoubleAdd
	OpComplexDoubleSub
	OpComplexDoubleMul
	OpComplexDoubleDiv
	OpComplexDoubleNeg
	OpComplexLongDoubleAdd
	OpComplexLongDoubleSub
	OpComplexLongDoubleMul
	OpComplexLongDoubleDiv
	OpComplexLongDoubleNeg
	OpComplexFloatFrom  // pack (re, im) -> complex float
	OpComplexDoubleFrom
	OpComplexLongDoubleFrom

	// --- comparisons: emit 0/1 into an 8-bit value --------------------------
	OpInt8Eq
	OpInt16Eq
	OpInt32Eq
	OpInt64Eq
	OpInt8Lt
	OpInt16LtS
	OpInt16LtU
	OpInt32LtS
	OpInt32LtU
	OpInt64LtS
	OpInt64LtU
	OpFloat32Eq
	OpFloat32Lt
	OpFloat64Eq
	OpFloat64Lt
	OpLongDoubleEq
	OpLongDoubleLt
	OpComplexFloatEq
	OpComplexDoubleEq
	OpComplexLongDoubleEq

	// --- bit manipulation: insert/extract signed/unsigned ---------------
	OpBitsExtractS // imm0=bit offset, imm1=width
	OpBitsExtractU
	OpBitsInsert // imm0=bit offset, imm1=width

	// --- memory: load/store per width; aggregate copy; atomics ----------
	OpInt8Load
	OpInt16Load
	OpInt32Load
	OpInt64Load
	OpFloat32Load
	OpFloat64Load
	OpLongDoubleLoad
	OpComplexFloatLoad
	OpComplexDoubleLoad
	OpComplexLongDoubleLoad
	OpBitIntLoad // imm0=width, imm1=signed(0/1), imm2=memflags
	OpInt8Store
	OpInt16Store
	OpInt32Store
	OpInt64Store
	OpFloat32Store
	OpFloat64Store
	OpLongDoubleStore
	OpComplexFloatStore
	OpComplexDoubleStore
	OpComplexLongDoubleStore
	OpBitIntStore
	OpCopyMemory // imm0=size

	OpAtomicLoad8
	OpAtomicLoad16
	OpAtomicLoad32
	OpAtomicLoad64
	OpAtomicLoadLongDouble
	OpAtomicLoadComplexFloat
	OpAtomicLoadComplexDouble
	OpAtomicLoadComplexLongDouble
	OpAtomicStore8
	OpAtomicStore16
	OpAtomicStore32
	OpAtomicStore64
	OpAtomicStoreLongDouble
	OpAtomicStoreComplexFloat
	OpAtomicStoreComplexDouble
	OpAtomicStoreComplexLongDouble
	OpAtomicCmpxchg8
	OpAtomicCmpxchg16
	OpAtomicCmpxchg32
	OpAtomicCmpxchg64
	OpAtomicCopyMemoryFrom // imm0=order, imm1=ir type id, imm2=layout value
	OpAtomicCopyMemoryTo

	// --- scalar conversions: width/representation changes between an
	// already-loaded value's source and destination type (spec.md §4.7.1) ---
	OpSignExtend  // imm0=from width, imm1=to width
	OpZeroExtend  // imm0=from width, imm1=to width
	OpTruncate    // imm0=to width
	OpBitIntExtend // imm0=from width, imm1=to width, imm2=signed(0/1)
	OpBitIntTruncate // imm0=to width
	OpIntToFloat  // imm0=int width, imm1=signed(0/1), imm2=float width(32/64/128)
	OpFloatToInt  // imm0=float width, imm1=int width, imm2=signed(0/1)
	OpFloatConvert // imm0=from width, imm1=to width (32/64/128)
	OpComplexDrop  // discard imaginary component, leaving the real part
	OpComplexZeroImag // push a zero imaginary part beneath a real scalar already on the stack, forming a complex pair

	// --- addressing -------------------------------------------------------
	OpUintConst // imm0/imm1 = low/high 32 bits
	OpIntConst
	OpFloat32Const
	OpFloat64Const
	OpLongDoubleConst
	OpGetLocal   // imm0=type id, imm1=layout value
	OpGetGlobal  // imm0=symbol id
	OpGetThreadLocal
	OpPushLabel  // imm0=target index (back-patched)
	OpPointerAdd
	OpPointerScale // multiply top-of-stack integer by imm0 (element size)
	OpVLAElementResolve

	// --- control ------------------------------------------------------
	OpJump           // imm0=target index
	OpJumpIfFalse    // imm0=target index, imm1=condition width
	OpJumpIndirect   // pops a target index (as produced by PUSH_LABEL) and jumps to it; backs GNU computed goto
	OpInvoke         // imm0=function id
	OpInvokeVirtual  // imm0=declared function type id
	OpVaStart
	OpVaEnd
	OpVaArg
	OpVaCopy
	OpAlloca        // imm0=alignment
	OpFenvSave
	OpFenvClear
	OpFenvUpdate
	OpFunctionEntry // imm0=function id
	OpFunctionExit

	OpAddOverflow // imm0/imm1 = operand signedness tri-bits
	OpSubOverflow
	OpMulOverflow

	// --- vstack manipulation --------------------------------------------
	OpVstackPick     // imm0=depth from top
	OpVstackExchange // swap top two operands
	OpVstackPop
)

// MemoryOrder mirrors C11's <stdatomic.h> orders the IR's atomic opcodes
// carry as an immediate (spec.md §4.6 "Atomic load... the 0-argument
// seq_cst model").
type MemoryOrder int

const (
	OrderSeqCst MemoryOrder = iota
	OrderAcquire
	OrderRelease
	OrderAcqRel
	OrderRelaxed
)

// ConditionWidth is the width immediate a branch opcode carries
// (spec.md §6 "Branches take (target-index, condition-width)").
type ConditionWidth int

const (
	Cond8 ConditionWidth = iota
	Cond32
	Cond64
)

// MemFlag bits an instruction's memory-flags immediate carries.
type MemFlag uint32

const (
	MemVolatile MemFlag = 1 << iota
)
