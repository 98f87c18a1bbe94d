package translator

import (
	"kefir/internal/ast"
	"kefir/internal/errors"
	"kefir/internal/ir"
	"kefir/internal/layout"
)

// translateUnary dispatches the twelve unary operator kinds of spec.md
// §4.7.4. Arithmetic/bitwise/logical-not operate on an already-translated
// rvalue; increment/decrement and address-of/deref route through the lvalue
// translator; sizeof/alignof are compile-time constants the analyzer has
// already folded into the node's type information where possible.
func (tr *Translator) translateUnary(n *ast.UnaryExpr) error {
	switch n.Op {
	case ast.UnaryPlus:
		return tr.unaryPlain(n)
	case ast.UnaryMinus:
		return tr.unaryArith(n, true)
	case ast.UnaryBitNot:
		return tr.unaryArith(n, false)
	case ast.UnaryLogicalNot:
		return tr.unaryLogicalNot(n)
	case ast.UnaryPreInc, ast.UnaryPreDec, ast.UnaryPostInc, ast.UnaryPostDec:
		return tr.unaryIncDec(n)
	case ast.UnaryAddressOf:
		t, err := tr.TranslateLvalue(n.Operand)
		if err != nil {
			return err
		}
		tr.setResult(&ast.Type{Kind: ast.TypePointer, Referenced: t})
		return nil
	case ast.UnaryDeref:
		t, err := tr.TranslateExpr(n.Operand)
		if err != nil {
			return err
		}
		base, _ := ast.Unqualify(t)
		if base.Kind != ast.TypePointer {
			return errors.New(errors.InvalidState, "unary: * applied to non-pointer")
		}
		return tr.loadFromAddress(base.Referenced, nil)
	case ast.UnarySizeof, ast.UnaryAlignof:
		return tr.unarySizeofAlignof(n)
	}
	return errors.Newf(errors.InvalidState, "unary: unhandled operator %v", n.Op)
}

func (tr *Translator) unaryPlain(n *ast.UnaryExpr) error {
	t, err := tr.TranslateExpr(n.Operand)
	if err != nil {
		return err
	}
	tr.setResult(t)
	return nil
}

func negOp(width int) ir.OpCode {
	switch {
	case width <= 8:
		return ir.OpInt8Neg
	case width <= 16:
		return ir.OpInt16Neg
	case width <= 32:
		return ir.OpInt32Neg
	default:
		return ir.OpInt64Neg
	}
}

func notOp(width int) ir.OpCode {
	switch {
	case width <= 8:
		return ir.OpInt8Not
	case width <= 16:
		return ir.OpInt16Not
	case width <= 32:
		return ir.OpInt32Not
	default:
		return ir.OpInt64Not
	}
}

// unaryArith implements unary minus (isNeg true) and bitwise-not (isNeg
// false) across every arithmetic classification spec.md §4.7.4 names.
func (tr *Translator) unaryArith(n *ast.UnaryExpr, isNeg bool) error {
	t, err := tr.TranslateExpr(n.Operand)
	if err != nil {
		return err
	}
	base, _ := ast.Unqualify(t)
	switch base.Kind {
	case ast.TypeFloat:
		if !isNeg {
			return errors.New(errors.InvalidState, "unary: ~ applied to floating type")
		}
		tr.Emit(floatNegOp(base.Float))
	case ast.TypeComplex:
		if !isNeg {
			return errors.New(errors.InvalidState, "unary: ~ applied to complex type")
		}
		tr.Emit(complexNegOp(base.Float))
	case ast.TypeBitInt:
		if isNeg {
			tr.Emit(ir.OpBitIntNegate, uint32(base.BitWidth))
		} else {
			tr.Emit(ir.OpBitIntInvert, uint32(base.BitWidth))
		}
	default:
		width := intWidthOf(base)
		if isNeg {
			tr.Emit(negOp(width))
		} else {
			tr.Emit(notOp(width))
		}
	}
	tr.setResult(base)
	return nil
}

func floatNegOp(w ast.FloatWidth) ir.OpCode {
	switch w {
	case ast.FloatF32:
		return ir.OpFloat32Neg
	case ast.FloatF64:
		return ir.OpFloat64Neg
	default:
		return ir.OpLongDoubleNeg
	}
}

func complexNegOp(w ast.FloatWidth) ir.OpCode {
	switch w {
	case ast.FloatF32:
		return ir.OpComplexFloatNeg
	case ast.FloatF64:
		return ir.OpComplexDoubleNeg
	default:
		return ir.OpComplexLongDoubleNeg
	}
}

func (tr *Translator) unaryLogicalNot(n *ast.UnaryExpr) error {
	t, err := tr.TranslateExpr(n.Operand)
	if err != nil {
		return err
	}
	if err := tr.convertToBool(unqualBase(t)); err != nil {
		return err
	}
	tr.Emit(ir.OpInt8BoolNot)
	tr.setResult(n.Properties().Expr.Type)
	return nil
}

// unaryIncDec implements pre/post increment/decrement as an addressed
// read-modify-write (spec.md §4.7). It stashes the old and new values in
// fresh scratch locals rather than juggling them on the virtual stack: a
// store only ever pops a (address, value) pair pushed immediately before it,
// address first/deeper and value last/on top, matching
// translateInitializerAt's convention, so every intermediate step here stays
// at stack depth two.
func (tr *Translator) unaryIncDec(n *ast.UnaryExpr) error {
	props := n.Operand.Properties().Expr
	t := props.Type
	base, _ := ast.Unqualify(t)
	l, err := tr.LocalOracle.Compute(base, layout.Local)
	if err != nil {
		return err
	}

	if props.IsAtomic {
		return tr.atomicIncDec(n, n.Operand, t, base, l)
	}

	if _, err := tr.TranslateLvalue(n.Operand); err != nil {
		return err
	}
	pre := n.Op == ast.UnaryPreInc || n.Op == ast.UnaryPreDec
	inc := n.Op == ast.UnaryPreInc || n.Op == ast.UnaryPostInc

	oldSlot := tr.newScratchLocal(base, l)
	newSlot := tr.newScratchLocal(base, l)

	tr.Emit(ir.OpVstackPick, 0) // [addr, addr]
	if _, err := tr.loadAt(t, l, nil); err != nil {
		return err
	}
	// stack: [addr, old]
	if err := tr.storeScratch(oldSlot, base, l); err != nil {
		return err
	}
	// stack: [addr]

	if _, err := tr.loadScratch(oldSlot, base, l); err != nil {
		return err
	}
	// stack: [addr, old]
	tr.emitStep(base, inc)
	// stack: [addr, new]
	if err := tr.storeScratch(newSlot, base, l); err != nil {
		return err
	}
	// stack: [addr]

	if _, err := tr.loadScratch(newSlot, base, l); err != nil {
		return err
	}
	// stack: [addr, new]
	if err := tr.storeAtFlagged(t, l, nil); err != nil {
		return err
	}
	// stack: [] -- the read-modify-write is complete; produce the result.

	resultSlot := newSlot
	if !pre {
		resultSlot = oldSlot
	}
	if _, err := tr.loadScratch(resultSlot, base, l); err != nil {
		return err
	}
	tr.setResult(base)
	return nil
}

// newScratchLocal allocates a compiler-synthesized local slot not backed by
// any source identifier, used for values that need a stash point outside the
// virtual stack (spec.md's C6/C7 translators have no such notion — this is
// this translator's own choice, the same way a real register-based compiler
// spills to a temporary stack slot when it runs out of registers).
func (tr *Translator) newScratchLocal(t *ast.Type, l *layout.TypeLayout) *LocalSlot {
	tr.scratchCounter++
	id := &ast.ScopedIdentifier{
		Kind:    ast.IdentObject,
		Name:    scratchName(tr.scratchCounter),
		Storage: ast.StorageAuto,
		Type:    t,
	}
	return tr.LocalScope.Define(id, l)
}

func scratchName(n int) string {
	return "$scratch" + itoa(n)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func (tr *Translator) storeScratch(slot *LocalSlot, t *ast.Type, l *layout.TypeLayout) error {
	tr.Emit(ir.OpGetLocal, uint32(slot.Layout.IRTypeID), uint32(slot.SlotValue))
	tr.Emit(ir.OpVstackExchange)
	return tr.storeAt(t, l)
}

func (tr *Translator) loadScratch(slot *LocalSlot, t *ast.Type, l *layout.TypeLayout) (*ast.Type, error) {
	tr.Emit(ir.OpGetLocal, uint32(slot.Layout.IRTypeID), uint32(slot.SlotValue))
	return tr.loadAt(t, l, nil)
}

func (tr *Translator) emitStep(t *ast.Type, inc bool) {
	base, _ := ast.Unqualify(t)
	if base.Kind == ast.TypePointer {
		l, _ := tr.LocalOracle.Compute(base.Referenced, layout.Local)
		size := 1
		if l != nil {
			size = l.Size
		}
		tr.Emit(ir.OpUintConst, uint32(size), 0)
		if inc {
			tr.Emit(ir.OpPointerAdd)
		} else {
			tr.Emit(ir.OpInt64Neg)
			tr.Emit(ir.OpPointerAdd)
		}
		return
	}
	if base.Kind == ast.TypeFloat {
		if base.Float == ast.FloatF32 {
			tr.Emit(ir.OpFloat32Const, 0x3F800000) // 1.0f
		} else {
			tr.Emit(floatOneConst(base.Float), 0, 0x3FF00000) // 1.0 as float64 bits (low, high)
		}
		if inc {
			tr.Emit(floatAddOp(base.Float))
		} else {
			tr.Emit(floatSubOp(base.Float))
		}
		return
	}
	w := intWidthOf(base)
	tr.Emit(ir.OpUintConst, 1, 0)
	if inc {
		tr.Emit(widthAddOp(w))
	} else {
		tr.Emit(widthSubOp(w))
	}
}

func floatOneConst(w ast.FloatWidth) ir.OpCode {
	switch w {
	case ast.FloatF32:
		return ir.OpFloat32Const
	case ast.FloatF64:
		return ir.OpFloat64Const
	default:
		return ir.OpLongDoubleConst
	}
}

func floatAddOp(w ast.FloatWidth) ir.OpCode {
	switch w {
	case ast.FloatF32:
		return ir.OpFloat32Add
	case ast.FloatF64:
		return ir.OpFloat64Add
	default:
		return ir.OpLongDoubleAdd
	}
}

func floatSubOp(w ast.FloatWidth) ir.OpCode {
	switch w {
	case ast.FloatF32:
		return ir.OpFloat32Sub
	case ast.FloatF64:
		return ir.OpFloat64Sub
	default:
		return ir.OpLongDoubleSub
	}
}

func widthAddOp(w int) ir.OpCode {
	switch {
	case w <= 8:
		return ir.OpInt8Add
	case w <= 16:
		return ir.OpInt16Add
	case w <= 32:
		return ir.OpInt32Add
	default:
		return ir.OpInt64Add
	}
}

func widthSubOp(w int) ir.OpCode {
	switch {
	case w <= 8:
		return ir.OpInt8Sub
	case w <= 16:
		return ir.OpInt16Sub
	case w <= 32:
		return ir.OpInt32Sub
	default:
		return ir.OpInt64Sub
	}
}

// unarySizeofAlignof emits the (already analyzer-folded-to-constant) size or
// alignment value. A VLA's sizeof is the one case that is NOT a compile-time
// constant; its runtime element-count expression is evaluated and multiplied
// by the element size (spec.md §4.1 VLA handling, §4.9).
func (tr *Translator) unarySizeofAlignof(n *ast.UnaryExpr) error {
	t := n.SizeofType
	if t == nil {
		t = n.Operand.Properties().Expr.Type
	}
	if ast.IsVLA(t) {
		return tr.sizeofVLA(t)
	}
	l, err := tr.LocalOracle.Compute(t, layout.Local)
	if err != nil {
		return err
	}
	v := l.Size
	if n.Op == ast.UnaryAlignof {
		v = l.Align
		if n.AlignofOverride != nil {
			v = *n.AlignofOverride
		}
	}
	tr.Emit(ir.OpUintConst, uint32(v), uint32(uint64(v)>>32))
	tr.setResult(tr.Traits.SizeType())
	return nil
}

func (tr *Translator) sizeofVLA(t *ast.Type) error {
	elem, err := tr.LocalOracle.Compute(t.ElementType, layout.Local)
	if err != nil {
		return err
	}
	expr, ok := t.LengthExpr.(ast.Expr)
	if !ok {
		return errors.New(errors.InvalidState, "unary: VLA sizeof missing a runtime length expression")
	}
	lenType, err := tr.TranslateExpr(expr)
	if err != nil {
		return err
	}
	if err := tr.convertScalar(lenType, tr.Traits.SizeType()); err != nil {
		return err
	}
	tr.Emit(ir.OpUintConst, uint32(elem.Size), 0)
	tr.Emit(ir.OpInt64MulU)
	tr.setResult(tr.Traits.SizeType())
	return nil
}
