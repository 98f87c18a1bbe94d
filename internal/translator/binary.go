package translator

import (
	"kefir/internal/ast"
	"kefir/internal/errors"
	"kefir/internal/ir"
	"kefir/internal/layout"
	"kefir/internal/target"
)

// translateBinary implements spec.md §4.7.4: evaluate both operands
// left-to-right, classify by target.Classify, and dispatch to the opcode
// family for that data-model class. Pointer arithmetic (ptr +/- int,
// ptr - ptr) is handled before the generic classification, since its shape
// doesn't fit the uniform same-type-operand model the rest of the table
// assumes.
func (tr *Translator) translateBinary(n *ast.BinaryExpr) error {
	if isPointerArithmetic(n) {
		return tr.translatePointerArithmetic(n)
	}

	leftType, err := tr.TranslateExpr(n.Left)
	if err != nil {
		return err
	}
	resultType := n.Properties().Expr.Type
	operandType := binaryOperandType(n, resultType)
	if err := tr.convertScalar(leftType, operandType); err != nil {
		return err
	}
	rightType, err := tr.TranslateExpr(n.Right)
	if err != nil {
		return err
	}
	if err := tr.convertScalar(rightType, operandType); err != nil {
		return err
	}

	class := target.Classify(operandType)
	signed := target.Signed(operandType, tr.Traits)
	if err := tr.emitBinaryOp(n.Op, class, operandType, signed); err != nil {
		return err
	}
	tr.setResult(resultType)
	return nil
}

// binaryOperandType is the common type both operands are converted to before
// the operator executes: the comparison operators' node type is their
// (always-int/bool) result, so they convert to whichever operand type
// widerType ranks higher (the left one on a tie); shifts use the left
// operand's type; every other operator uses the node's result type.
func binaryOperandType(n *ast.BinaryExpr, resultType *ast.Type) *ast.Type {
	switch n.Op {
	case ast.BinEq, ast.BinNe, ast.BinLt, ast.BinLe, ast.BinGt, ast.BinGe:
		lt := n.Left.Properties().Expr.Type
		rt := n.Right.Properties().Expr.Type
		if widerType(lt, rt) {
			return lt
		}
		return rt
	case ast.BinShl, ast.BinShr:
		return n.Left.Properties().Expr.Type
	default:
		return resultType
	}
}

// widerType is a conservative, translator-local "pick the wider of two
// arithmetic types" used to settle which side's type the comparison family
// and compound assignment (compoundCommonType) convert to — the analyzer has already verified their usual
// arithmetic conversion is legal, so this only needs to break ties, not
// perform the full conversion-rank algorithm.
func widerType(a, b *ast.Type) bool {
	ab, _ := ast.Unqualify(a)
	bb, _ := ast.Unqualify(b)
	if ab == nil || bb == nil {
		return true
	}
	return rank(ab) >= rank(bb)
}

func rank(t *ast.Type) int {
	switch t.Kind {
	case ast.TypeComplex:
		return 300 + int(t.Float)
	case ast.TypeFloat:
		return 200 + int(t.Float)
	case ast.TypeBitInt:
		return 100 + t.BitWidth
	default:
		return intWidthOf(t)
	}
}

func isPointerArithmetic(n *ast.BinaryExpr) bool {
	if n.Op != ast.BinAdd && n.Op != ast.BinSub {
		return false
	}
	lb, _ := ast.Unqualify(n.Left.Properties().Expr.Type)
	rb, _ := ast.Unqualify(n.Right.Properties().Expr.Type)
	return (lb != nil && lb.Kind == ast.TypePointer) || (rb != nil && rb.Kind == ast.TypePointer)
}

// translatePointerArithmetic implements spec.md §4.7.4's pointer family:
// ptr+int, int+ptr, ptr-int (all scaled by the pointee's size) and ptr-ptr
// (difference divided by the pointee's size). A void pointee, and with
// ExtPointerArithmetics a function pointee, is sized by the traits oracle's
// IncompleteSubstitute when the extension is enabled and a substitute is
// set, and as 1 otherwise; a function pointee without the extension is an
// ANALYSIS_ERROR; any other pointee the layout oracle cannot lay out fails
// with the oracle's error.
func (tr *Translator) translatePointerArithmetic(n *ast.BinaryExpr) error {
	lb, _ := ast.Unqualify(n.Left.Properties().Expr.Type)
	rb, _ := ast.Unqualify(n.Right.Properties().Expr.Type)

	if lb.Kind == ast.TypePointer && rb.Kind == ast.TypePointer {
		return tr.translatePointerDifference(n, lb)
	}

	ptrOnLeft := lb.Kind == ast.TypePointer
	var referenced *ast.Type
	if ptrOnLeft {
		referenced = lb.Referenced
	} else {
		referenced = rb.Referenced
	}
	elemSize, err := tr.pointeeSize(referenced)
	if err != nil {
		return err
	}

	if ptrOnLeft {
		if _, err := tr.TranslateExpr(n.Left); err != nil {
			return err
		}
		if err := tr.pushScaledOffset(n.Right, elemSize); err != nil {
			return err
		}
	} else {
		// int + ptr: the scaled integer is evaluated first (source order),
		// then the pointer; the exchange restores PointerAdd's
		// (pointer, scaled-offset) operand order.
		if err := tr.pushScaledOffset(n.Left, elemSize); err != nil {
			return err
		}
		if _, err := tr.TranslateExpr(n.Right); err != nil {
			return err
		}
		tr.Emit(ir.OpVstackExchange)
	}

	if n.Op == ast.BinSub {
		tr.Emit(ir.OpInt64Neg)
	}
	tr.Emit(ir.OpPointerAdd)
	tr.setResult(n.Properties().Expr.Type)
	return nil
}

func (tr *Translator) pointeeSize(referenced *ast.Type) (int, error) {
	base, _ := ast.Unqualify(referenced)
	if base != nil && base.Kind == ast.TypeFunction && !tr.Traits.ExtPointerArithmetics {
		return 0, errors.New(errors.AnalysisError, "binary: pointer arithmetic on a function pointer without the pointer-arithmetic extension")
	}
	if base != nil && (base.Kind == ast.TypeVoid || base.Kind == ast.TypeFunction) {
		if tr.Traits.ExtPointerArithmetics && tr.Traits.IncompleteSubstitute != nil {
			l, err := tr.LocalOracle.Compute(tr.Traits.IncompleteSubstitute, layout.Local)
			if err != nil {
				return 0, err
			}
			return l.Size, nil
		}
		return 1, nil // GNU void* arithmetic treats sizeof(void) as 1 even without the extension flag set
	}
	l, err := tr.LocalOracle.Compute(referenced, layout.Local)
	if err != nil {
		return 0, err
	}
	return l.Size, nil
}

func (tr *Translator) pushScaledOffset(intExpr ast.Expr, elemSize int) error {
	t, err := tr.TranslateExpr(intExpr)
	if err != nil {
		return err
	}
	if err := tr.convertScalar(t, tr.Traits.PtrdiffType()); err != nil {
		return err
	}
	tr.Emit(ir.OpPointerScale, uint32(elemSize))
	return nil
}

func (tr *Translator) translatePointerDifference(n *ast.BinaryExpr, ptrType *ast.Type) error {
	elemSize, err := tr.pointeeSize(ptrType.Referenced)
	if err != nil {
		return err
	}
	if elemSize == 0 {
		return errors.New(errors.TypeUnsupported, "binary: pointer difference over a zero-sized pointee")
	}
	if _, err := tr.TranslateExpr(n.Left); err != nil {
		return err
	}
	if _, err := tr.TranslateExpr(n.Right); err != nil {
		return err
	}
	tr.Emit(ir.OpInt64Neg)
	tr.Emit(ir.OpPointerAdd)
	tr.Emit(ir.OpUintConst, uint32(elemSize), 0)
	tr.Emit(ir.OpInt64DivS)
	tr.setResult(tr.Traits.PtrdiffType())
	return nil
}

// emitBinaryOp picks the opcode family for a fully-converted, same-typed
// operand pair, per spec.md §4.7.4's per-data-model dispatch table.
func (tr *Translator) emitBinaryOp(op ast.BinaryOp, class target.DataModelClass, t *ast.Type, signed bool) error {
	switch class {
	case target.ClassInt8, target.ClassInt16, target.ClassInt32, target.ClassInt64:
		return tr.emitIntBinaryOp(op, intClassWidth(class), signed)
	case target.ClassBitInt:
		return tr.emitBitIntBinaryOp(op, t.BitWidth, signed)
	case target.ClassFloat, target.ClassDouble, target.ClassLongDouble:
		return tr.emitFloatBinaryOp(op, floatClassWidth(class))
	case target.ClassComplexFloat, target.ClassComplexDouble, target.ClassComplexLongDouble:
		return tr.emitComplexBinaryOp(op, floatClassWidth(class))
	}
	return errors.Newf(errors.InvalidState, "binary: unclassified data model %v", class)
}

func intClassWidth(c target.DataModelClass) int {
	switch c {
	case target.ClassInt8:
		return 8
	case target.ClassInt16:
		return 16
	case target.ClassInt32:
		return 32
	default:
		return 64
	}
}

func floatClassWidth(c target.DataModelClass) ast.FloatWidth {
	switch c {
	case target.ClassFloat, target.ClassComplexFloat:
		return ast.FloatF32
	case target.ClassDouble, target.ClassComplexDouble:
		return ast.FloatF64
	default:
		return ast.FloatLongDouble
	}
}

func (tr *Translator) emitIntBinaryOp(op ast.BinaryOp, width int, signed bool) error {
	switch op {
	case ast.BinAdd:
		tr.Emit(widthAddOp(width))
	case ast.BinSub:
		tr.Emit(widthSubOp(width))
	case ast.BinMul:
		tr.Emit(intMulOp(width, signed))
	case ast.BinDiv:
		tr.Emit(intDivOp(width, signed))
	case ast.BinMod:
		tr.Emit(intModOp(width, signed))
	case ast.BinShl:
		tr.Emit(intShlOp(width, signed))
	case ast.BinShr:
		if signed {
			tr.Emit(intArshiftOp(width))
		} else {
			tr.Emit(intRshiftOp(width))
		}
	case ast.BinBitAnd:
		tr.Emit(intAndOp(width))
	case ast.BinBitOr:
		tr.Emit(intOrOp(width))
	case ast.BinBitXor:
		tr.Emit(intXorOp(width))
	case ast.BinEq, ast.BinNe, ast.BinLt, ast.BinLe, ast.BinGt, ast.BinGe:
		return tr.emitIntComparison(op, width, signed)
	default:
		return errors.Newf(errors.InvalidState, "binary: unsupported integer operator %v", op)
	}
	return nil
}

func intMulOp(w int, signed bool) ir.OpCode {
	switch {
	case w <= 8:
		return pickSigned(signed, ir.OpInt8MulS, ir.OpInt8MulU)
	case w <= 16:
		return pickSigned(signed, ir.OpInt16MulS, ir.OpInt16MulU)
	case w <= 32:
		return pickSigned(signed, ir.OpInt32MulS, ir.OpInt32MulU)
	default:
		return pickSigned(signed, ir.OpInt64MulS, ir.OpInt64MulU)
	}
}

func intDivOp(w int, signed bool) ir.OpCode {
	switch {
	case w <= 8:
		return pickSigned(signed, ir.OpInt8DivS, ir.OpInt8DivU)
	case w <= 16:
		return pickSigned(signed, ir.OpInt16DivS, ir.OpInt16DivU)
	case w <= 32:
		return pickSigned(signed, ir.OpInt32DivS, ir.OpInt32DivU)
	default:
		return pickSigned(signed, ir.OpInt64DivS, ir.OpInt64DivU)
	}
}

func intModOp(w int, signed bool) ir.OpCode {
	switch {
	case w <= 8:
		return pickSigned(signed, ir.OpInt8ModS, ir.OpInt8ModU)
	case w <= 16:
		return pickSigned(signed, ir.OpInt16ModS, ir.OpInt16ModU)
	case w <= 32:
		return pickSigned(signed, ir.OpInt32ModS, ir.OpInt32ModU)
	default:
		return pickSigned(signed, ir.OpInt64ModS, ir.OpInt64ModU)
	}
}

func intShlOp(w int, signed bool) ir.OpCode {
	switch {
	case w <= 8:
		return pickSigned(signed, ir.OpInt8ShlS, ir.OpInt8ShlU)
	case w <= 16:
		return pickSigned(signed, ir.OpInt16ShlS, ir.OpInt16ShlU)
	case w <= 32:
		return pickSigned(signed, ir.OpInt32ShlS, ir.OpInt32ShlU)
	default:
		return pickSigned(signed, ir.OpInt64ShlS, ir.OpInt64ShlU)
	}
}

func intArshiftOp(w int) ir.OpCode {
	switch {
	case w <= 8:
		return ir.OpInt8Arshift
	case w <= 16:
		return ir.OpInt16Arshift
	case w <= 32:
		return ir.OpInt32Arshift
	default:
		return ir.OpInt64Arshift
	}
}

func intRshiftOp(w int) ir.OpCode {
	switch {
	case w <= 8:
		return ir.OpInt8Rshift
	case w <= 16:
		return ir.OpInt16Rshift
	case w <= 32:
		return ir.OpInt32Rshift
	default:
		return ir.OpInt64Rshift
	}
}

func intAndOp(w int) ir.OpCode {
	switch {
	case w <= 8:
		return ir.OpInt8And
	case w <= 16:
		return ir.OpInt16And
	case w <= 32:
		return ir.OpInt32And
	default:
		return ir.OpInt64And
	}
}

func intOrOp(w int) ir.OpCode {
	switch {
	case w <= 8:
		return ir.OpInt8Or
	case w <= 16:
		return ir.OpInt16Or
	case w <= 32:
		return ir.OpInt32Or
	default:
		return ir.OpInt64Or
	}
}

func intXorOp(w int) ir.OpCode {
	switch {
	case w <= 8:
		return ir.OpInt8Xor
	case w <= 16:
		return ir.OpInt16Xor
	case w <= 32:
		return ir.OpInt32Xor
	default:
		return ir.OpInt64Xor
	}
}

func pickSigned(signed bool, s, u ir.OpCode) ir.OpCode {
	if signed {
		return s
	}
	return u
}

// emitIntComparison emits the width-appropriate comparison and, for the four
// ordering operators (only Eq/Lt are native opcodes), a combination built
// from them, per spec.md §3's "every opcode pops a fixed number of operands".
func (tr *Translator) emitIntComparison(op ast.BinaryOp, width int, signed bool) error {
	switch op {
	case ast.BinEq:
		tr.Emit(intEqOp(width))
	case ast.BinNe:
		tr.Emit(intEqOp(width))
		tr.Emit(ir.OpInt8BoolNot)
	case ast.BinLt:
		tr.Emit(intLtOp(width, signed))
	case ast.BinGe:
		tr.Emit(intLtOp(width, signed))
		tr.Emit(ir.OpInt8BoolNot)
	case ast.BinGt:
		tr.Emit(ir.OpVstackExchange)
		tr.Emit(intLtOp(width, signed))
	case ast.BinLe:
		tr.Emit(ir.OpVstackExchange)
		tr.Emit(intLtOp(width, signed))
		tr.Emit(ir.OpInt8BoolNot)
	default:
		return errors.Newf(errors.InvalidState, "binary: unsupported comparison %v", op)
	}
	return nil
}

func intEqOp(w int) ir.OpCode {
	switch {
	case w <= 8:
		return ir.OpInt8Eq
	case w <= 16:
		return ir.OpInt16Eq
	case w <= 32:
		return ir.OpInt32Eq
	default:
		return ir.OpInt64Eq
	}
}

func intLtOp(w int, signed bool) ir.OpCode {
	switch {
	case w <= 8:
		return ir.OpInt8Lt
	case w <= 16:
		return pickSigned(signed, ir.OpInt16LtS, ir.OpInt16LtU)
	case w <= 32:
		return pickSigned(signed, ir.OpInt32LtS, ir.OpInt32LtU)
	default:
		return pickSigned(signed, ir.OpInt64LtS, ir.OpInt64LtU)
	}
}

func (tr *Translator) emitBitIntBinaryOp(op ast.BinaryOp, width int, signed bool) error {
	w := uint32(width)
	switch op {
	case ast.BinAdd:
		tr.Emit(ir.OpBitIntAdd, w)
	case ast.BinSub:
		tr.Emit(ir.OpBitIntSub, w)
	case ast.BinMul:
		tr.Emit(pickSigned(signed, ir.OpBitIntMulS, ir.OpBitIntMulU), w)
	case ast.BinDiv:
		tr.Emit(pickSigned(signed, ir.OpBitIntDivS, ir.OpBitIntDivU), w)
	case ast.BinMod:
		tr.Emit(pickSigned(signed, ir.OpBitIntModS, ir.OpBitIntModU), w)
	case ast.BinShl:
		tr.Emit(pickSigned(signed, ir.OpBitIntShlS, ir.OpBitIntShlU), w)
	case ast.BinShr:
		if signed {
			tr.Emit(ir.OpBitIntArshift, w)
		} else {
			tr.Emit(ir.OpBitIntRshift, w)
		}
	case ast.BinBitAnd:
		tr.Emit(ir.OpBitIntAnd, w)
	case ast.BinBitOr:
		tr.Emit(ir.OpBitIntOr, w)
	case ast.BinBitXor:
		tr.Emit(ir.OpBitIntXor, w)
	case ast.BinEq, ast.BinNe, ast.BinLt, ast.BinLe, ast.BinGt, ast.BinGe:
		// bit-precise comparisons normalize through the same bool-to-0/1
		// convention as scalar comparisons: subtract and test sign/zero.
		return tr.emitBitIntComparison(op, width, signed)
	default:
		return errors.Newf(errors.InvalidState, "binary: unsupported bit-precise operator %v", op)
	}
	return nil
}

func (tr *Translator) emitBitIntComparison(op ast.BinaryOp, width int, signed bool) error {
	w := uint32(width)
	switch op {
	case ast.BinEq:
		tr.Emit(ir.OpBitIntXor, w)
		tr.Emit(ir.OpBitIntToBool, w)
		tr.Emit(ir.OpInt8BoolNot)
	case ast.BinNe:
		tr.Emit(ir.OpBitIntXor, w)
		tr.Emit(ir.OpBitIntToBool, w)
	case ast.BinLt, ast.BinGe:
		tr.Emit(ir.OpBitIntSub, w)
		if signed {
			tr.Emit(ir.OpBitIntArshift, w)
		} else {
			tr.Emit(ir.OpBitIntToBool, w)
		}
		tr.Emit(ir.OpBitIntToBool, w)
		if op == ast.BinGe {
			tr.Emit(ir.OpInt8BoolNot)
		}
	case ast.BinGt, ast.BinLe:
		tr.Emit(ir.OpVstackExchange)
		tr.Emit(ir.OpBitIntSub, w)
		tr.Emit(ir.OpBitIntToBool, w)
		if op == ast.BinLe {
			tr.Emit(ir.OpInt8BoolNot)
		}
	default:
		return errors.Newf(errors.InvalidState, "binary: unsupported bit-precise comparison %v", op)
	}
	return nil
}

func (tr *Translator) emitFloatBinaryOp(op ast.BinaryOp, w ast.FloatWidth) error {
	switch op {
	case ast.BinAdd:
		tr.Emit(floatAddOp(w))
	case ast.BinSub:
		tr.Emit(floatSubOp(w))
	case ast.BinMul:
		tr.Emit(floatMulOp(w))
	case ast.BinDiv:
		tr.Emit(floatDivOp(w))
	case ast.BinEq:
		tr.Emit(floatEqOp(w))
	case ast.BinNe:
		tr.Emit(floatEqOp(w))
		tr.Emit(ir.OpInt8BoolNot)
	case ast.BinLt:
		tr.Emit(floatLtOp(w))
	case ast.BinGe:
		tr.Emit(floatLtOp(w))
		tr.Emit(ir.OpInt8BoolNot)
	case ast.BinGt:
		tr.Emit(ir.OpVstackExchange)
		tr.Emit(floatLtOp(w))
	case ast.BinLe:
		tr.Emit(ir.OpVstackExchange)
		tr.Emit(floatLtOp(w))
		tr.Emit(ir.OpInt8BoolNot)
	default:
		return errors.Newf(errors.InvalidState, "binary: unsupported floating operator %v", op)
	}
	return nil
}

func floatMulOp(w ast.FloatWidth) ir.OpCode {
	switch w {
	case ast.FloatF32:
		return ir.OpFloat32Mul
	case ast.FloatF64:
		return ir.OpFloat64Mul
	default:
		return ir.OpLongDoubleMul
	}
}

func floatDivOp(w ast.FloatWidth) ir.OpCode {
	switch w {
	case ast.FloatF32:
		return ir.OpFloat32Div
	case ast.FloatF64:
		return ir.OpFloat64Div
	default:
		return ir.OpLongDoubleDiv
	}
}

func floatEqOp(w ast.FloatWidth) ir.OpCode {
	switch w {
	case ast.FloatF32:
		return ir.OpFloat32Eq
	case ast.FloatF64:
		return ir.OpFloat64Eq
	default:
		return ir.OpLongDoubleEq
	}
}

func floatLtOp(w ast.FloatWidth) ir.OpCode {
	switch w {
	case ast.FloatF32:
		return ir.OpFloat32Lt
	case ast.FloatF64:
		return ir.OpFloat64Lt
	default:
		return ir.OpLongDoubleLt
	}
}

func (tr *Translator) emitComplexBinaryOp(op ast.BinaryOp, w ast.FloatWidth) error {
	switch op {
	case ast.BinAdd:
		tr.Emit(complexAddOp(w))
	case ast.BinSub:
		tr.Emit(complexSubOp(w))
	case ast.BinMul:
		tr.Emit(complexMulOp(w))
	case ast.BinDiv:
		tr.Emit(complexDivOp(w))
	case ast.BinEq:
		tr.Emit(complexEqOp(w))
	case ast.BinNe:
		tr.Emit(complexEqOp(w))
		tr.Emit(ir.OpInt8BoolNot)
	default:
		return errors.Newf(errors.InvalidState, "binary: unsupported complex operator %v", op)
	}
	return nil
}

func complexAddOp(w ast.FloatWidth) ir.OpCode {
	switch w {
	case ast.FloatF32:
		return ir.OpComplexFloatAdd
	case ast.FloatF64:
		return ir.OpComplexDoubleAdd
	default:
		return ir.OpComplexLongDoubleAdd
	}
}

func complexSubOp(w ast.FloatWidth) ir.OpCode {
	switch w {
	case ast.FloatF32:
		return ir.OpComplexFloatSub
	case ast.FloatF64:
		return ir.OpComplexDoubleSub
	default:
		return ir.OpComplexLongDoubleSub
	}
}

func complexMulOp(w ast.FloatWidth) ir.OpCode {
	switch w {
	case ast.FloatF32:
		return ir.OpComplexFloatMul
	case ast.FloatF64:
		return ir.OpComplexDoubleMul
	default:
		return ir.OpComplexLongDoubleMul
	}
}

func complexDivOp(w ast.FloatWidth) ir.OpCode {
	switch w {
	case ast.FloatF32:
		return ir.OpComplexFloatDiv
	case ast.FloatF64:
		return ir.OpComplexDoubleDiv
	default:
		return ir.OpComplexLongDoubleDiv
	}
}

func complexEqOp(w ast.FloatWidth) ir.OpCode {
	switch w {
	case ast.FloatF32:
		return ir.OpComplexFloatEq
	case ast.FloatF64:
		return ir.OpComplexDoubleEq
	default:
		return ir.OpComplexLongDoubleEq
	}
}
