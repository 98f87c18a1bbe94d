package translator

import (
	"math"

	"kefir/internal/ast"
	"kefir/internal/errors"
	"kefir/internal/ir"
	"kefir/internal/layout"
)

// Translator implements ast.ExprVisitor: one method per expression kind
// (spec.md §4.7, C7). Every method leaves exactly one value on the virtual
// stack and records its normalized type in tr.resultType, matching the
// teacher's Compiler.visitExpr dispatch (internal/compiler/compiler.go) but
// over the richer C expression grammar.

func (tr *Translator) setResult(t *ast.Type) { tr.resultType = t }

func (tr *Translator) VisitIntConstant(n *ast.IntConstant) error {
	t := n.Properties().Expr.Type
	tr.Emit(ir.OpUintConst, uint32(n.Value), uint32(n.Value>>32))
	tr.setResult(t)
	return nil
}

func (tr *Translator) VisitFloatConstant(n *ast.FloatConstant) error {
	t := n.Properties().Expr.Type
	bits := math.Float64bits(n.Value)
	switch n.Width {
	case ast.FloatF32:
		tr.Emit(ir.OpFloat32Const, math.Float32bits(float32(n.Value)))
	case ast.FloatF64:
		tr.Emit(ir.OpFloat64Const, uint32(bits), uint32(bits>>32))
	default:
		tr.Emit(ir.OpLongDoubleConst, uint32(bits), uint32(bits>>32))
	}
	tr.setResult(t)
	return nil
}

func (tr *Translator) VisitComplexConstant(n *ast.ComplexConstant) error {
	t := n.Properties().Expr.Type
	re, im := math.Float64bits(n.Real), math.Float64bits(n.Imag)
	tr.Emit(ir.OpFloat64Const, uint32(re), uint32(re>>32))
	tr.Emit(ir.OpFloat64Const, uint32(im), uint32(im>>32))
	switch n.Width {
	case ast.FloatF32:
		tr.Emit(ir.OpComplexFloatFrom)
	case ast.FloatF64:
		tr.Emit(ir.OpComplexDoubleFrom)
	default:
		tr.Emit(ir.OpComplexLongDoubleFrom)
	}
	tr.setResult(t)
	return nil
}

func (tr *Translator) VisitBitIntConstant(n *ast.BitIntConstant) error {
	t := n.Properties().Expr.Type
	for i, w := range n.Words {
		if i >= 4 {
			break
		}
		tr.Emit(ir.OpUintConst, uint32(w), uint32(w>>32))
	}
	tr.setResult(t)
	return nil
}

func (tr *Translator) VisitCharConstant(n *ast.CharConstant) error {
	t := n.Properties().Expr.Type
	tr.Emit(ir.OpIntConst, uint32(n.Value))
	tr.setResult(t)
	return nil
}

func (tr *Translator) VisitBoolConstant(n *ast.BoolConstant) error {
	t := n.Properties().Expr.Type
	if n.Value {
		tr.Emit(ir.OpIntConst, 1)
	} else {
		tr.Emit(ir.OpIntConst, 0)
	}
	tr.setResult(t)
	return nil
}

func (tr *Translator) VisitStringLiteral(n *ast.StringLiteral) error {
	t := n.Properties().Expr.Type
	sym := tr.Module.InternString(int(n.Encoding), n.Bytes)
	tr.Emit(ir.OpGetGlobal, uint32(sym))
	tr.setResult(t)
	return nil
}

// VisitIdentifier translates an object identifier as an rvalue load, or a
// function/enum-constant identifier per its kind (spec.md §4.7).
func (tr *Translator) VisitIdentifier(n *ast.Identifier) error {
	props := n.Properties().Expr
	id := props.ScopedID
	if id == nil {
		return errors.New(errors.InvalidState, "expr: identifier has no scoped-id payload")
	}
	switch id.Kind {
	case ast.IdentEnumConstant:
		tr.Emit(ir.OpUintConst, uint32(id.EnumValue), uint32(id.EnumValue>>32))
		tr.setResult(id.EnumType)
		return nil
	case ast.IdentFunction:
		t, err := tr.lvalueFunction(id)
		tr.setResult(t)
		return err
	default:
		t, err := tr.TranslateLvalue(n)
		if err != nil {
			return err
		}
		return tr.loadIdentifierValue(t, props)
	}
}

func (tr *Translator) loadIdentifierValue(t *ast.Type, props ast.ExprProperties) error {
	l, err := tr.LocalOracle.Compute(t, layout.Local)
	if err != nil {
		return err
	}
	var bf *layout.BitfieldPlacement
	if props.IsBitfield {
		bf = &layout.BitfieldPlacement{Width: props.BitfieldWidth}
	}
	result, err := tr.loadAt(t, l, bf)
	if err != nil {
		return err
	}
	tr.setResult(result)
	return nil
}

func (tr *Translator) VisitGenericSelection(n *ast.GenericSelection) error {
	t, err := tr.TranslateExpr(n.Resolved)
	tr.setResult(t)
	return err
}

func (tr *Translator) VisitCompoundLiteral(n *ast.CompoundLiteral) error {
	addrType, err := tr.lvalueCompoundLiteral(n)
	if err != nil {
		return err
	}
	if ast.IsAggregate(addrType) {
		tr.setResult(addrType)
		return nil
	}
	l, err := tr.LocalOracle.Compute(addrType, layout.Local)
	if err != nil {
		return err
	}
	result, err := tr.loadAt(addrType, l, nil)
	if err != nil {
		return err
	}
	tr.setResult(result)
	return nil
}

func (tr *Translator) VisitCast(n *ast.Cast) error {
	from, err := tr.TranslateExpr(n.Operand)
	if err != nil {
		return err
	}
	if err := tr.convertScalar(from, n.TargetType); err != nil {
		return err
	}
	tr.setResult(n.TargetType)
	return nil
}

// VisitArraySubscript and VisitMemberAccess load through the lvalue
// translator: compute the address, then load the element/field value
// (spec.md §4.7 "array subscript: delegate to the lvalue translator, then
// load").
func (tr *Translator) VisitArraySubscript(n *ast.ArraySubscript) error {
	elemType, err := tr.lvalueArraySubscript(n)
	if err != nil {
		return err
	}
	return tr.loadFromAddress(elemType, nil)
}

func (tr *Translator) loadFromAddress(t *ast.Type, bf *layout.BitfieldPlacement) error {
	if ast.IsAggregate(t) {
		tr.setResult(t)
		return nil
	}
	l, err := tr.LocalOracle.Compute(t, layout.Local)
	if err != nil {
		return err
	}
	result, err := tr.loadAt(t, l, bf)
	if err != nil {
		return err
	}
	tr.setResult(result)
	return nil
}

func (tr *Translator) VisitMemberAccess(n *ast.MemberAccess) error {
	fieldType, bf, err := tr.memberFieldBitfield(n)
	if err != nil {
		return err
	}
	return tr.loadFromAddress(fieldType, bf)
}

// memberFieldBitfield is lvalueMember's logic plus the field's bit-field
// placement, needed by both VisitMemberAccess (for loads) and the assignment
// translator (for stores).
func (tr *Translator) memberFieldBitfield(n *ast.MemberAccess) (*ast.Type, *layout.BitfieldPlacement, error) {
	var objType *ast.Type
	var err error
	if n.Indirect {
		objType, err = tr.TranslateExpr(n.Object)
	} else {
		objType, err = tr.TranslateLvalue(n.Object)
	}
	if err != nil {
		return nil, nil, err
	}
	base, _ := ast.Unqualify(objType)
	if n.Indirect {
		base, _ = ast.Unqualify(base.Referenced)
	}
	structLayout, err := tr.LocalOracle.Compute(base, layout.Local)
	if err != nil {
		return nil, nil, err
	}
	field, err := layout.FindField(structLayout, n.Member)
	if err != nil {
		return nil, nil, err
	}
	if field.Bitfield == nil && field.Offset != 0 {
		tr.Emit(ir.OpUintConst, uint32(field.Offset), 0)
		tr.Emit(ir.OpPointerAdd)
	} else if field.Bitfield != nil && field.Bitfield.ByteOffset != 0 {
		tr.Emit(ir.OpUintConst, uint32(field.Bitfield.ByteOffset), 0)
		tr.Emit(ir.OpPointerAdd)
	}
	return field.Layout.Type, field.Bitfield, nil
}

func (tr *Translator) VisitFunctionCall(n *ast.FunctionCall) error {
	return tr.translateCall(n)
}

func (tr *Translator) VisitUnary(n *ast.UnaryExpr) error {
	return tr.translateUnary(n)
}

func (tr *Translator) VisitBinary(n *ast.BinaryExpr) error {
	return tr.translateBinary(n)
}

// VisitLogical implements short-circuit && / || (spec.md §4.7): evaluate the
// left operand, branch around the right operand, normalize to a bool either
// way. The resulting control-flow graph always has exactly one path that
// skips the right operand's side effects, satisfying the short-circuit
// testable property.
func (tr *Translator) VisitLogical(n *ast.LogicalExpr) error {
	leftType, err := tr.TranslateExpr(n.Left)
	if err != nil {
		return err
	}
	if err := tr.convertToBool(unqualBase(leftType)); err != nil {
		return err
	}
	// && short-circuits on false, which is exactly what JumpIfFalse tests.
	// || short-circuits on true, so invert the left operand first: JumpIfFalse
	// on NOT(left) jumps precisely when left was true.
	if !n.And {
		tr.Emit(ir.OpInt8BoolNot)
	}
	shortCircuitJump := tr.Emit(ir.OpJumpIfFalse, 0, uint32(ir.Cond8))
	_, err = tr.TranslateExpr(n.Right)
	if err != nil {
		return err
	}
	rightType := n.Right.Properties().Expr.Type
	if err := tr.convertToBool(unqualBase(rightType)); err != nil {
		return err
	}
	endJump := tr.Emit(ir.OpJump, 0)
	shortCircuitTarget := tr.Block.CurrentIndex()
	if err := tr.Block.PatchImmediate(shortCircuitJump, 0, uint32(shortCircuitTarget)); err != nil {
		return err
	}
	if n.And {
		tr.Emit(ir.OpIntConst, 0)
	} else {
		tr.Emit(ir.OpIntConst, 1)
	}
	endTarget := tr.Block.CurrentIndex()
	if err := tr.Block.PatchImmediate(endJump, 0, uint32(endTarget)); err != nil {
		return err
	}
	tr.setResult(n.Properties().Expr.Type)
	return nil
}

func unqualBase(t *ast.Type) *ast.Type {
	b, _ := ast.Unqualify(t)
	return b
}

// VisitTernary translates `cond ? then : else`: branch on cond, evaluate
// exactly one arm, converge with an unconditional jump (spec.md §4.7).
func (tr *Translator) VisitTernary(n *ast.TernaryExpr) error {
	condType, err := tr.TranslateExpr(n.Cond)
	if err != nil {
		return err
	}
	if err := tr.convertToBool(unqualBase(condType)); err != nil {
		return err
	}
	elseJump := tr.Emit(ir.OpJumpIfFalse, 0, uint32(ir.Cond8))
	resultType := n.Properties().Expr.Type
	thenType, err := tr.TranslateExpr(n.Then)
	if err != nil {
		return err
	}
	if err := tr.convertScalar(thenType, resultType); err != nil {
		return err
	}
	endJump := tr.Emit(ir.OpJump, 0)
	elseTarget := tr.Block.CurrentIndex()
	if err := tr.Block.PatchImmediate(elseJump, 0, uint32(elseTarget)); err != nil {
		return err
	}
	elseType, err := tr.TranslateExpr(n.Else)
	if err != nil {
		return err
	}
	if err := tr.convertScalar(elseType, resultType); err != nil {
		return err
	}
	endTarget := tr.Block.CurrentIndex()
	if err := tr.Block.PatchImmediate(endJump, 0, uint32(endTarget)); err != nil {
		return err
	}
	tr.setResult(resultType)
	return nil
}

func (tr *Translator) VisitComma(n *ast.CommaExpr) error {
	if _, err := tr.TranslateExpr(n.Left); err != nil {
		return err
	}
	tr.Emit(ir.OpVstackPop)
	t, err := tr.TranslateExpr(n.Right)
	if err != nil {
		return err
	}
	tr.setResult(t)
	return nil
}

func (tr *Translator) VisitAssignment(n *ast.AssignmentExpr) error {
	return tr.translateAssignment(n)
}

func (tr *Translator) VisitBuiltin(n *ast.BuiltinExpr) error {
	return tr.translateBuiltin(n)
}

// VisitLabelAddress implements GNU's `&&label` computed-goto operand
// (spec.md §4.7): push a back-patchable PUSH_LABEL, rejecting if any
// enclosing scope has an open VLA (the VLA's stack-relative address would be
// invalidated by an indirect jump out of its scope).
func (tr *Translator) VisitLabelAddress(n *ast.LabelAddress) error {
	if tr.Flow.HasOpenVLA() {
		return errors.New(errors.InvalidState, "expr: address-of-label inside a scope with an open VLA")
	}
	idx := tr.Emit(ir.OpPushLabel, 0)
	name := labelFlowPoint(n.Label)
	if target, ok := tr.Flow.LabelIndex(name); ok {
		if err := tr.Block.PatchImmediate(idx, 0, uint32(target)); err != nil {
			return err
		}
	} else {
		tr.Flow.RegisterLabelBackpatch(name, idx, 0)
	}
	tr.setResult(n.Properties().Expr.Type)
	return nil
}

// VisitStatementExpression translates a GNU statement-expression's block,
// leaving the value of its last expression-statement on the stack (or
// nothing, for a void result) — spec.md §4.7.
func (tr *Translator) VisitStatementExpression(n *ast.StatementExpression) error {
	for i, item := range n.Items {
		last := i == len(n.Items)-1
		if err := tr.translateBlockItem(item, last); err != nil {
			return err
		}
	}
	tr.setResult(n.Properties().Expr.Type)
	return nil
}
