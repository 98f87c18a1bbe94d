package translator

import (
	"kefir/internal/ast"
	"kefir/internal/errors"
	"kefir/internal/ir"
	"kefir/internal/layout"
	"kefir/internal/target"
)

// translateAssignment implements spec.md §4.8 (C8): simple assignment,
// compound assignment, and the atomic compare-exchange retry loop for
// atomically-qualified targets.
func (tr *Translator) translateAssignment(n *ast.AssignmentExpr) error {
	targetType := n.Target.Properties().Expr.Type
	props := n.Target.Properties().Expr
	base := unqualBase(targetType)

	l, err := tr.LocalOracle.Compute(base, layout.Local)
	if err != nil {
		return err
	}
	var bf *layout.BitfieldPlacement
	if props.IsBitfield {
		bf = &layout.BitfieldPlacement{Width: props.BitfieldWidth}
	}

	if props.IsAtomic && n.Op != ast.AssignSimple {
		return tr.atomicCompoundAssign(n, targetType, base, l)
	}
	if n.Op == ast.AssignSimple {
		return tr.simpleAssign(n, targetType, base, l, bf)
	}
	return tr.compoundAssign(n, targetType, base, l, bf)
}

// simpleAssign implements spec.md §4.8 `=`: evaluate RHS, convert to the
// target type if scalar, evaluate LHS as an lvalue, exchange so the address
// sits underneath the value, then store. The lvalue is then re-evaluated
// (rather than cached in a scratch slot) so the expression's value is
// re-fetched from storage: a plain, uniform rule that happens to also give
// the correct signed-bit-field-truncation and volatile-refetch behavior
// without special-casing either.
func (tr *Translator) simpleAssign(n *ast.AssignmentExpr, targetType, base *ast.Type, l *layout.TypeLayout, bf *layout.BitfieldPlacement) error {
	rhsType, err := tr.TranslateExpr(n.Value)
	if err != nil {
		return err
	}
	if !ast.IsAggregate(base) {
		if err := tr.convertScalar(rhsType, targetType); err != nil {
			return err
		}
	}
	if _, err := tr.TranslateLvalue(n.Target); err != nil {
		return err
	}
	// stack: [rhs, addr] -- exchange to the store convention (address
	// deeper, value on top).
	tr.Emit(ir.OpVstackExchange)
	if err := tr.storeAtFlagged(targetType, l, bf); err != nil {
		return err
	}

	if _, err := tr.TranslateLvalue(n.Target); err != nil {
		return err
	}
	if ast.IsAggregate(base) {
		tr.setResult(targetType)
		return nil
	}
	if _, err := tr.loadAt(targetType, l, bf); err != nil {
		return err
	}
	tr.setResult(base)
	return nil
}

// compoundAssign implements spec.md §4.8 `op=` for non-atomic targets:
// evaluate RHS and convert to the common type, evaluate LHS lvalue, load the
// current value, apply the operator, convert back to T, store, then reload
// through the lvalue for the expression's value (the same uniform
// reload-after-store rule simpleAssign uses).
func (tr *Translator) compoundAssign(n *ast.AssignmentExpr, targetType, base *ast.Type, l *layout.TypeLayout, bf *layout.BitfieldPlacement) error {
	rhsType, err := tr.TranslateExpr(n.Value)
	if err != nil {
		return err
	}
	commonType := compoundCommonType(base, rhsType)
	if err := tr.convertScalar(rhsType, commonType); err != nil {
		return err
	}
	commonLayout, err := tr.LocalOracle.Compute(commonType, layout.Local)
	if err != nil {
		return err
	}
	rhsSlot := tr.newScratchLocal(commonType, commonLayout)
	if err := tr.storeScratch(rhsSlot, commonType, commonLayout); err != nil {
		return err
	}

	if _, err := tr.TranslateLvalue(n.Target); err != nil {
		return err
	}
	// stack: [addr]
	tr.Emit(ir.OpVstackPick, 0) // [addr, addr]
	lhsType, err := tr.loadAt(targetType, l, bf)
	if err != nil {
		return err
	}
	// stack: [addr, lhs]
	if err := tr.convertScalar(lhsType, commonType); err != nil {
		return err
	}
	if _, err := tr.loadScratch(rhsSlot, commonType, commonLayout); err != nil {
		return err
	}
	// stack: [addr, lhs(common), rhs(common)] -- already in the left-then-
	// right order every binary.go operator emitter expects.
	binOp, err := assignOpToBinaryOp(n.Op)
	if err != nil {
		return err
	}
	if err := tr.applyCompoundOpTyped(binOp, commonType); err != nil {
		return err
	}
	if err := tr.convertScalar(commonType, targetType); err != nil {
		return err
	}
	// stack: [addr, desired]
	if err := tr.storeAtFlagged(targetType, l, bf); err != nil {
		return err
	}
	// stack: [] -- re-evaluate the lvalue for the reload, same as
	// simpleAssign, instead of caching the address across the store.
	if _, err := tr.TranslateLvalue(n.Target); err != nil {
		return err
	}
	if _, err := tr.loadAt(targetType, l, bf); err != nil {
		return err
	}
	tr.setResult(base)
	return nil
}

func assignOpToBinaryOp(op ast.AssignOp) (ast.BinaryOp, error) {
	switch op {
	case ast.AssignAdd:
		return ast.BinAdd, nil
	case ast.AssignSub:
		return ast.BinSub, nil
	case ast.AssignMul:
		return ast.BinMul, nil
	case ast.AssignDiv:
		return ast.BinDiv, nil
	case ast.AssignMod:
		return ast.BinMod, nil
	case ast.AssignShl:
		return ast.BinShl, nil
	case ast.AssignShr:
		return ast.BinShr, nil
	case ast.AssignBitAnd:
		return ast.BinBitAnd, nil
	case ast.AssignBitOr:
		return ast.BinBitOr, nil
	case ast.AssignBitXor:
		return ast.BinBitXor, nil
	default:
		return 0, errors.Newf(errors.InvalidState, "assignment: unsupported compound operator %v", op)
	}
}

// applyCompoundOpTyped dispatches a binary operator over two already-pushed,
// already-converted operands of type t, reusing binary.go's classified
// opcode emitters.
func (tr *Translator) applyCompoundOpTyped(op ast.BinaryOp, t *ast.Type) error {
	class := target.Classify(t)
	signed := target.Signed(t, tr.Traits)
	return tr.emitBinaryOp(op, class, t, signed)
}

func isFloatingFamily(t *ast.Type) bool {
	return t.Kind == ast.TypeFloat || t.Kind == ast.TypeComplex
}

// compoundCommonType picks the usual-arithmetic-conversion type a compound
// assignment's load/op/store cycle operates in: the wider of the target's
// own type and the (already-evaluated) RHS type, reusing binary.go's rank
// ordering (spec.md §4.8 "convert to the arithmetic common type").
func compoundCommonType(base, rhsType *ast.Type) *ast.Type {
	if widerType(base, rhsType) {
		return base
	}
	return rhsType
}

// atomicCompoundAssign implements spec.md §4.8's atomic compare-exchange
// retry loop for `op=` on an atomically-qualified target.
func (tr *Translator) atomicCompoundAssign(n *ast.AssignmentExpr, targetType, base *ast.Type, l *layout.TypeLayout) error {
	binOp, err := assignOpToBinaryOp(n.Op)
	if err != nil {
		return err
	}

	var commonType *ast.Type
	if base.Kind == ast.TypePointer {
		// Pointer arithmetic is plain byte-address add/sub once the operand
		// is scaled by the pointee size (spec.md §4.7.4); the RMW loop then
		// runs entirely in the pointer's own (ClassInt64) representation.
		elemSize, err := tr.pointeeSize(base.Referenced)
		if err != nil {
			return err
		}
		if err := tr.pushScaledOffset(n.Value, elemSize); err != nil {
			return err
		}
		commonType = base
	} else {
		rhsType, err := tr.TranslateExpr(n.Value)
		if err != nil {
			return err
		}
		commonType = compoundCommonType(base, rhsType)
		if err := tr.convertScalar(rhsType, commonType); err != nil {
			return err
		}
	}

	_, newSlot, err := tr.atomicRMWLoop(n.Target, targetType, base, commonType, l, binOp)
	if err != nil {
		return err
	}
	if _, err := tr.loadScratch(newSlot, base, l); err != nil {
		return err
	}
	tr.setResult(base)
	return nil
}

// atomicIncDec is unaryIncDec's atomic counterpart, sharing the same
// compare-exchange retry loop with a constant +1/-1 "assignment" (spec.md
// §4.8 "`++`/`--` use the same loop with a `+1` or `-1` RHS; prefix yields
// the new value, postfix yields the old value").
func (tr *Translator) atomicIncDec(n *ast.UnaryExpr, targetExpr ast.Expr, targetType, base *ast.Type, l *layout.TypeLayout) error {
	pre := n.Op == ast.UnaryPreInc || n.Op == ast.UnaryPreDec
	inc := n.Op == ast.UnaryPreInc || n.Op == ast.UnaryPostInc
	binOp := ast.BinAdd
	if !inc {
		binOp = ast.BinSub
	}

	commonType := base
	switch {
	case base.Kind == ast.TypePointer:
		elemSize, err := tr.pointeeSize(base.Referenced)
		if err != nil {
			return err
		}
		tr.Emit(ir.OpUintConst, uint32(elemSize), 0)
	case base.Kind == ast.TypeFloat:
		if base.Float == ast.FloatF32 {
			tr.Emit(ir.OpFloat32Const, 0x3F800000) // 1.0f
		} else {
			tr.Emit(floatOneConst(base.Float), 0, 0x3FF00000) // 1.0 as float64 bits (low, high)
		}
	default:
		tr.Emit(ir.OpUintConst, 1, 0)
	}

	oldSlot, newSlot, err := tr.atomicRMWLoop(targetExpr, targetType, base, commonType, l, binOp)
	if err != nil {
		return err
	}
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

// atomicRMWLoop is the shared compare-exchange retry loop spec.md §4.8
// describes, parameterized over the operator and an already-converted RHS
// living on the stack when called: it evaluates target's lvalue address
// fresh on every retry (the address itself never changes, only re-deriving
// it is cheaper than proving a cached one survives across an arbitrary
// number of retries), atomically loads the current value, applies op against
// the (pre-stashed, common-type) rhs, and CAS-installs the result. Returns
// scratch locals holding the pre-op ("old", target-typed) and post-op
// ("new", target-typed) values, letting callers pick whichever spec.md's
// result rule calls for.
func (tr *Translator) atomicRMWLoop(targetExpr ast.Expr, targetType, base, commonType *ast.Type, l *layout.TypeLayout, binOp ast.BinaryOp) (oldSlot, newSlot *LocalSlot, err error) {
	preserveFenv := isFloatingFamily(commonType)

	commonLayout, err := tr.LocalOracle.Compute(commonType, layout.Local)
	if err != nil {
		return nil, nil, err
	}
	rhsSlot := tr.newScratchLocal(commonType, commonLayout)
	if err := tr.storeScratch(rhsSlot, commonType, commonLayout); err != nil {
		return nil, nil, err
	}
	if preserveFenv {
		tr.Emit(ir.OpFenvSave)
		tr.Emit(ir.OpFenvClear)
	}

	oldSlot = tr.newScratchLocal(base, l)
	newSlot = tr.newScratchLocal(base, l)

	failTarget := tr.Block.CurrentIndex()

	if _, err := tr.TranslateLvalue(targetExpr); err != nil {
		return nil, nil, err
	}
	// stack: [addr]
	tr.Emit(ir.OpVstackPick, 0) // [addr, addr]
	expected, err := tr.atomicLoad(targetType, l)
	if err != nil {
		return nil, nil, err
	}
	// stack: [addr, expected(base)]
	tr.Emit(ir.OpVstackPick, 0) // [addr, expected, expected]
	if err := tr.storeScratch(oldSlot, base, l); err != nil {
		return nil, nil, err
	}
	// stack: [addr, expected]
	if err := tr.convertScalar(expected, commonType); err != nil {
		return nil, nil, err
	}
	if _, err := tr.loadScratch(rhsSlot, commonType, commonLayout); err != nil {
		return nil, nil, err
	}
	// stack: [addr, expected(common), rhs(common)]
	if err := tr.applyCompoundOpTyped(binOp, commonType); err != nil {
		return nil, nil, err
	}
	if err := tr.convertScalar(commonType, base); err != nil {
		return nil, nil, err
	}
	// stack: [addr, desired]
	if err := tr.storeScratch(newSlot, base, l); err != nil {
		return nil, nil, err
	}
	// stack: [addr]
	if _, err := tr.loadScratch(oldSlot, base, l); err != nil {
		return nil, nil, err
	}
	if _, err := tr.loadScratch(newSlot, base, l); err != nil {
		return nil, nil, err
	}
	// stack: [addr, expected, desired] -- CAS pops all three and pushes the
	// success flag, mirroring OpJumpIfFalse's own pop-and-test convention
	// (spec.md §4.8's retry loop; see VisitLogical's `||` path for the same BoolNot +
	// JumpIfFalse branch-sense-inversion idiom, since only a jump-if-false
	// opcode exists).
	tr.Emit(tr.atomicCAS(l), uint32(ir.OrderSeqCst))
	// stack: [success]
	tr.Emit(ir.OpInt8BoolNot)
	successJump := tr.Emit(ir.OpJumpIfFalse, 0, uint32(ir.Cond8))
	// CAS failed: refresh fenv and retry from the top with a freshly loaded
	// expected value.
	if preserveFenv {
		tr.Emit(ir.OpFenvClear)
	}
	tr.Emit(ir.OpJump, uint32(failTarget))

	successTarget := tr.Block.CurrentIndex()
	if err := tr.Block.PatchImmediate(successJump, 0, uint32(successTarget)); err != nil {
		return nil, nil, err
	}
	// stack: [] -- CAS succeeded; oldSlot/newSlot already carry everything
	// the caller needs.
	if preserveFenv {
		tr.Emit(ir.OpFenvUpdate)
	}
	return oldSlot, newSlot, nil
}
