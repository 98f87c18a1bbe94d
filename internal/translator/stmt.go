package translator

import (
	"kefir/internal/ast"
	"kefir/internal/errors"
	"kefir/internal/ir"
	"kefir/internal/layout"
	"kefir/internal/target"
)

// translateBlockItem translates one compound-statement element (spec.md
// §4.9/§4.10's "translates every block-item of the body"). isLast only
// matters for a GNU statement-expression's trailing item: when it is a bare
// expression-statement, its value is left on the stack instead of popped,
// becoming the statement-expression's own result.
func (tr *Translator) translateBlockItem(item ast.BlockItem, isLast bool) error {
	if item.Decl != nil {
		return tr.translateDeclaration(item.Decl)
	}
	if isLast {
		if es, ok := item.Stmt.(*ast.ExpressionStmt); ok && es.Expr != nil {
			tr.Temps.ResetLongDoubleSlots()
			_, err := tr.TranslateExpr(es.Expr)
			return err
		}
	}
	return item.Stmt.AcceptStmt(tr)
}

// translateDeclaration implements spec.md §4.9's declaration rules.
func (tr *Translator) translateDeclaration(d *ast.Declaration) error {
	for _, ve := range d.VariablyModified {
		if _, err := tr.TranslateExpr(ve); err != nil {
			return err
		}
		tr.Emit(ir.OpVstackPop)
	}
	for _, decl := range d.Declarators {
		if err := tr.translateInitDeclarator(decl); err != nil {
			return err
		}
	}
	return nil
}

func (tr *Translator) translateInitDeclarator(d *ast.InitDeclarator) error {
	id := d.ScopedID
	if id == nil {
		return nil
	}
	switch id.Storage {
	case ast.StorageTypedef, ast.StorageConstexpr:
		return nil
	case ast.StorageStatic, ast.StorageExtern, ast.StorageThreadLocal,
		ast.StorageExternThreadLocal, ast.StorageStaticThreadLocal:
		// emitted at module level by the global-scope collaborator.
		return nil
	}
	if ast.IsVLA(id.Type) {
		return tr.translateVLADeclaration(id)
	}
	if d.Initializer == nil {
		return nil
	}
	return tr.translateInitializerFor(d.Initializer, id.Type, id)
}

// translateVLADeclaration implements spec.md §4.9's VLA rule: obtain a
// flow-control element id, compute byte size at runtime, ALLOCA it, and
// store the pointer/size pair into the object's array_ptr/array_size
// fields.
func (tr *Translator) translateVLADeclaration(id *ast.ScopedIdentifier) error {
	base, _ := ast.Unqualify(id.Type)
	countExpr, ok := base.LengthExpr.(ast.Expr)
	if !ok {
		return errors.New(errors.InvalidState, "stmt: VLA declaration missing its runtime length expression")
	}
	elemLayout, err := tr.LocalOracle.Compute(base.ElementType, layout.Local)
	if err != nil {
		return err
	}
	objLayout, err := tr.LocalOracle.Compute(base, layout.Local)
	if err != nil {
		return err
	}
	if !objLayout.IsVLA {
		return errors.New(errors.InvalidState, "stmt: VLA layout missing array_ptr/array_size fields")
	}

	elementID := tr.Flow.NewVLAElementID()
	id.VLADataElementID = &elementID

	countType, err := tr.TranslateExpr(countExpr)
	if err != nil {
		return err
	}
	if err := tr.convertScalar(countType, tr.Traits.SizeType()); err != nil {
		return err
	}
	tr.Emit(ir.OpUintConst, uint32(elemLayout.Size), 0)
	tr.Emit(ir.OpInt64MulU) // stack: [byteSize]

	tr.Emit(ir.OpVstackPick, 0) // [byteSize, byteSize]
	align := elemLayout.Align
	tr.Emit(ir.OpAlloca, uint32(align)) // [byteSize, ptr]

	slot, ok := tr.LocalScope.Resolve(id.Name)
	if !ok {
		slot = tr.LocalScope.Define(id, objLayout)
	}
	ptrType := &ast.Type{Kind: ast.TypePointer, Referenced: &ast.Type{Kind: ast.TypeVoid}}
	ptrLayout, err := tr.LocalOracle.Compute(ptrType, layout.Local)
	if err != nil {
		return err
	}
	tr.Emit(ir.OpGetLocal, uint32(slot.Layout.IRTypeID), uint32(slot.SlotValue))
	if objLayout.ArrayPtrOffset != 0 {
		tr.Emit(ir.OpUintConst, uint32(objLayout.ArrayPtrOffset), 0)
		tr.Emit(ir.OpPointerAdd)
	}
	// stack: [byteSize, ptr, ptrFieldAddr] -- exchange top two to the
	// [addr, value] store convention.
	tr.Emit(ir.OpVstackExchange)
	if err := tr.storeAt(ptrType, ptrLayout); err != nil {
		return err
	}
	// stack: [byteSize]

	sizeType := tr.Traits.SizeType()
	sizeLayout, err := tr.LocalOracle.Compute(sizeType, layout.Local)
	if err != nil {
		return err
	}
	tr.Emit(ir.OpGetLocal, uint32(slot.Layout.IRTypeID), uint32(slot.SlotValue))
	if objLayout.ArraySizeOffset != 0 {
		tr.Emit(ir.OpUintConst, uint32(objLayout.ArraySizeOffset), 0)
		tr.Emit(ir.OpPointerAdd)
	}
	tr.Emit(ir.OpVstackExchange)
	if err := tr.storeAt(sizeType, sizeLayout); err != nil {
		return err
	}

	tr.Flow.RegisterVLA(slot.SlotValue)
	return nil
}

func (tr *Translator) VisitLabeled(n *ast.LabeledStmt) error {
	name := labelFlowPoint(n.Label)
	index := tr.Block.CurrentIndex()
	if err := tr.Flow.DefineLabel(name, index, tr.Block); err != nil {
		return err
	}
	return n.Inner.AcceptStmt(tr)
}

func (tr *Translator) VisitCase(n *ast.CaseStmt) error {
	sf, err := tr.Flow.CurrentSwitch()
	if err != nil {
		return err
	}
	target := tr.Block.CurrentIndex()
	if n.IsDefault {
		sf.RecordDefault(target)
	} else {
		low, ok := caseIntValue(n.Low)
		if !ok {
			return errors.New(errors.InvalidState, "stmt: case label is not a constant integer")
		}
		high := low
		if n.High != nil {
			h, ok := caseIntValue(n.High)
			if !ok {
				return errors.New(errors.InvalidState, "stmt: case range upper bound is not a constant integer")
			}
			high = h
		}
		sf.RecordCase(low, high, target)
	}
	return n.Inner.AcceptStmt(tr)
}

func caseIntValue(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case uint64:
		return int64(x), true
	default:
		return 0, false
	}
}

func (tr *Translator) VisitExpression(n *ast.ExpressionStmt) error {
	if n.Expr == nil {
		return nil
	}
	tr.Temps.ResetLongDoubleSlots()
	if _, err := tr.TranslateExpr(n.Expr); err != nil {
		return err
	}
	tr.Emit(ir.OpVstackPop)
	return nil
}

func (tr *Translator) VisitCompound(n *ast.CompoundStmt) error {
	tr.LocalScope = tr.LocalScope.Push()
	tr.Flow.PushVLAScope()
	for _, item := range n.Items {
		if err := tr.translateBlockItem(item, false); err != nil {
			return err
		}
	}
	tr.Flow.PopVLAScope()
	tr.LocalScope = tr.LocalScope.Pop()
	return nil
}

// VisitIf implements the standard branch-around-else shape (spec.md §4.9):
// evaluate the condition, normalize to bool, jump to else (or end) on false.
func (tr *Translator) VisitIf(n *ast.IfStmt) error {
	condType, err := tr.TranslateExpr(n.Cond)
	if err != nil {
		return err
	}
	if err := tr.convertToBool(unqualBase(condType)); err != nil {
		return err
	}
	elseJump := tr.Emit(ir.OpJumpIfFalse, 0, uint32(ir.Cond8))
	if err := n.Then.AcceptStmt(tr); err != nil {
		return err
	}
	if n.Else == nil {
		endTarget := tr.Block.CurrentIndex()
		return tr.Block.PatchImmediate(elseJump, 0, uint32(endTarget))
	}
	endJump := tr.Emit(ir.OpJump, 0)
	elseTarget := tr.Block.CurrentIndex()
	if err := tr.Block.PatchImmediate(elseJump, 0, uint32(elseTarget)); err != nil {
		return err
	}
	if err := n.Else.AcceptStmt(tr); err != nil {
		return err
	}
	endTarget := tr.Block.CurrentIndex()
	return tr.Block.PatchImmediate(endJump, 0, uint32(endTarget))
}

// VisitSwitch implements a single compare-chain dispatch placed after the
// body (spec.md §4.9 "dispatched to flow control collaborator"): the
// controlling expression is stashed in a scratch local so the dispatch
// chain can reload it once per case/range without re-evaluating side
// effects, the body is emitted once (each case/default label just records
// its position), and an entry jump skips straight to the chain.
func (tr *Translator) VisitSwitch(n *ast.SwitchStmt) error {
	condType, err := tr.TranslateExpr(n.Cond)
	if err != nil {
		return err
	}
	base := unqualBase(condType)
	l, err := tr.LocalOracle.Compute(base, layout.Local)
	if err != nil {
		return err
	}
	slot := tr.newScratchLocal(base, l)
	if err := tr.storeScratch(slot, base, l); err != nil {
		return err
	}
	tr.Flow.PushSwitch(slot, base)

	entryJump := tr.Emit(ir.OpJump, 0)
	if err := n.Body.AcceptStmt(tr); err != nil {
		return err
	}
	bodyEndJump := tr.Emit(ir.OpJump, 0)

	dispatchStart := tr.Block.CurrentIndex()
	if err := tr.Block.PatchImmediate(entryJump, 0, uint32(dispatchStart)); err != nil {
		return err
	}
	sf, err := tr.Flow.CurrentSwitch()
	if err != nil {
		return err
	}
	for _, c := range sf.cases {
		if err := tr.emitCaseDispatch(sf, c); err != nil {
			return err
		}
	}
	if sf.defaultAt >= 0 {
		tr.Emit(ir.OpJump, uint32(sf.defaultAt))
	}

	endTarget := tr.Block.CurrentIndex()
	if err := tr.Block.PatchImmediate(bodyEndJump, 0, uint32(endTarget)); err != nil {
		return err
	}
	return tr.Flow.PopSwitch(tr.Block, endTarget)
}

func (tr *Translator) emitCaseDispatch(sf *switchFrame, c switchCase) error {
	l, err := tr.LocalOracle.Compute(sf.condType, layout.Local)
	if err != nil {
		return err
	}
	w := intWidthOf(sf.condType)
	signed := target.Signed(sf.condType, tr.Traits)

	if c.low == c.high {
		if _, err := tr.loadScratch(sf.condSlot, sf.condType, l); err != nil {
			return err
		}
		tr.Emit(ir.OpUintConst, uint32(uint64(c.low)), uint32(uint64(c.low)>>32))
		if err := tr.emitIntComparison(ast.BinEq, w, signed); err != nil {
			return err
		}
		tr.Emit(ir.OpInt8BoolNot)
		tr.Emit(ir.OpJumpIfFalse, uint32(c.target), uint32(ir.Cond8))
		return nil
	}

	// GNU case range: low <= cond && cond <= high.
	tr.Emit(ir.OpUintConst, uint32(uint64(c.low)), uint32(uint64(c.low)>>32))
	if _, err := tr.loadScratch(sf.condSlot, sf.condType, l); err != nil {
		return err
	}
	if err := tr.emitIntComparison(ast.BinLe, w, signed); err != nil {
		return err
	}
	if _, err := tr.loadScratch(sf.condSlot, sf.condType, l); err != nil {
		return err
	}
	tr.Emit(ir.OpUintConst, uint32(uint64(c.high)), uint32(uint64(c.high)>>32))
	if err := tr.emitIntComparison(ast.BinLe, w, signed); err != nil {
		return err
	}
	tr.Emit(ir.OpInt8BoolAnd)
	tr.Emit(ir.OpInt8BoolNot)
	tr.Emit(ir.OpJumpIfFalse, uint32(c.target), uint32(ir.Cond8))
	return nil
}

// VisitWhile translates a pre-tested loop: re-check the condition at
// startIndex every iteration, `continue` rejoins there too.
func (tr *Translator) VisitWhile(n *ast.WhileStmt) error {
	startIndex := tr.Block.CurrentIndex()
	condType, err := tr.TranslateExpr(n.Cond)
	if err != nil {
		return err
	}
	if err := tr.convertToBool(unqualBase(condType)); err != nil {
		return err
	}
	exitJump := tr.Emit(ir.OpJumpIfFalse, 0, uint32(ir.Cond8))
	tr.Flow.PushLoop(startIndex)
	if err := n.Body.AcceptStmt(tr); err != nil {
		return err
	}
	tr.Emit(ir.OpJump, uint32(startIndex))
	endTarget := tr.Block.CurrentIndex()
	if err := tr.Block.PatchImmediate(exitJump, 0, uint32(endTarget)); err != nil {
		return err
	}
	return tr.Flow.PopLoop(tr.Block, endTarget, startIndex)
}

// VisitDoWhile translates a post-tested loop: the condition, inverted once,
// feeds the same JumpIfFalse opcode to produce a "jump back when true" edge
// with a statically known target (no back-patch needed).
func (tr *Translator) VisitDoWhile(n *ast.DoWhileStmt) error {
	bodyStart := tr.Block.CurrentIndex()
	tr.Flow.PushLoop(bodyStart)
	if err := n.Body.AcceptStmt(tr); err != nil {
		return err
	}
	condStart := tr.Block.CurrentIndex()
	condType, err := tr.TranslateExpr(n.Cond)
	if err != nil {
		return err
	}
	if err := tr.convertToBool(unqualBase(condType)); err != nil {
		return err
	}
	tr.Emit(ir.OpInt8BoolNot)
	tr.Emit(ir.OpJumpIfFalse, uint32(bodyStart), uint32(ir.Cond8))
	endTarget := tr.Block.CurrentIndex()
	return tr.Flow.PopLoop(tr.Block, endTarget, condStart)
}

// VisitFor translates init;cond;post in its own nested scope (so an
// init-clause declaration's name is gone after the loop); `continue` jumps
// to the post-expression, not straight back to the condition.
func (tr *Translator) VisitFor(n *ast.ForStmt) error {
	tr.LocalScope = tr.LocalScope.Push()
	defer func() { tr.LocalScope = tr.LocalScope.Pop() }()

	if n.Init != nil {
		if err := tr.translateBlockItem(*n.Init, false); err != nil {
			return err
		}
	}
	condIndex := tr.Block.CurrentIndex()
	var exitJump int
	haveCond := n.Cond != nil
	if haveCond {
		condType, err := tr.TranslateExpr(n.Cond)
		if err != nil {
			return err
		}
		if err := tr.convertToBool(unqualBase(condType)); err != nil {
			return err
		}
		exitJump = tr.Emit(ir.OpJumpIfFalse, 0, uint32(ir.Cond8))
	}
	tr.Flow.PushLoop(condIndex)
	if err := n.Body.AcceptStmt(tr); err != nil {
		return err
	}
	postIndex := tr.Block.CurrentIndex()
	if n.Post != nil {
		if _, err := tr.TranslateExpr(n.Post); err != nil {
			return err
		}
		tr.Emit(ir.OpVstackPop)
	}
	tr.Emit(ir.OpJump, uint32(condIndex))
	endTarget := tr.Block.CurrentIndex()
	if haveCond {
		if err := tr.Block.PatchImmediate(exitJump, 0, uint32(endTarget)); err != nil {
			return err
		}
	}
	return tr.Flow.PopLoop(tr.Block, endTarget, postIndex)
}

func (tr *Translator) VisitGoto(n *ast.GotoStmt) error {
	if n.Computed != nil {
		if tr.Flow.HasOpenVLA() {
			return errors.New(errors.InvalidState, "stmt: computed goto inside a scope with an open VLA")
		}
		if _, err := tr.TranslateExpr(n.Computed); err != nil {
			return err
		}
		tr.Emit(ir.OpJumpIndirect)
		return nil
	}
	name := labelFlowPoint(n.Label)
	idx := tr.Emit(ir.OpJump, 0)
	if target, ok := tr.Flow.LabelIndex(name); ok {
		return tr.Block.PatchImmediate(idx, 0, uint32(target))
	}
	tr.Flow.RegisterLabelBackpatch(name, idx, 0)
	return nil
}

func (tr *Translator) VisitContinue(n *ast.ContinueStmt) error {
	idx := tr.Emit(ir.OpJump, 0)
	return tr.Flow.RecordContinue(idx)
}

func (tr *Translator) VisitBreak(n *ast.BreakStmt) error {
	idx := tr.Emit(ir.OpJump, 0)
	return tr.Flow.RecordBreak(idx)
}

func (tr *Translator) VisitReturn(n *ast.ReturnStmt) error {
	if n.Value != nil {
		tr.Temps.ResetLongDoubleSlots()
		valType, err := tr.TranslateExpr(n.Value)
		if err != nil {
			return err
		}
		if tr.ReturnType != nil && !ast.IsAggregate(unqualBase(tr.ReturnType)) {
			if err := tr.convertScalar(valType, tr.ReturnType); err != nil {
				return err
			}
		}
	}
	tr.Emit(ir.OpFunctionExit)
	return nil
}

// VisitInlineAssembly captures the operand lists and hands emission to the
// out-of-scope assembly collaborator (spec.md §6 "Emission is delegated to
// a collaborator"); the translator only evaluates each operand expression
// (outputs as lvalues, inputs as rvalues) and pops the result, leaving no
// value on the stack for the collaborator.
func (tr *Translator) VisitInlineAssembly(n *ast.InlineAssemblyStmt) error {
	for i := range n.Outputs {
		if n.Outputs[i].Expr == nil {
			continue
		}
		if _, err := tr.TranslateLvalue(n.Outputs[i].Expr); err != nil {
			return err
		}
		tr.Emit(ir.OpVstackPop)
	}
	for i := range n.Inputs {
		if n.Inputs[i].Expr == nil {
			continue
		}
		if _, err := tr.TranslateExpr(n.Inputs[i].Expr); err != nil {
			return err
		}
		tr.Emit(ir.OpVstackPop)
	}
	return nil
}
