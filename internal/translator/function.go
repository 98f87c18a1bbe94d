package translator

import (
	"kefir/internal/ast"
	"kefir/internal/errors"
	"kefir/internal/ir"
	"kefir/internal/layout"
)

// TranslateFunction implements spec.md §4.10 (C10): builds a local context
// and scope layout, declares the IR function, emits parameter-receiving
// code, translates the body, and records subprogram/object-scope debug info,
// using C's stack-ordered parameter-passing convention rather than a
// closures-over-a-register-window model.
func (c *Context) TranslateFunction(fn *ast.FunctionDefinition) error {
	id := fn.ScopedID
	if id == nil {
		return errors.New(errors.InvalidState, "function: definition has no scoped identifier")
	}
	fnType, _ := ast.Unqualify(id.Type)
	if fnType == nil || fnType.Kind != ast.TypeFunction {
		return errors.Newf(errors.InvalidState, "function: %q has no function type", id.Name)
	}

	paramTypeIDs := make([]int, len(fnType.Params))
	for i, p := range fnType.Params {
		l, err := c.GlobalOracle.Compute(p.Type, layout.Global)
		if err != nil {
			return err
		}
		paramTypeIDs[i] = l.IRTypeID
	}
	resultLayout, err := c.GlobalOracle.Compute(fnType.Return, layout.Global)
	if err != nil {
		return err
	}

	decl := c.Module.DeclareFunction(functionSymbolName(id), paramTypeIDs, resultLayout.IRTypeID, fnType.Variadic)

	debugID := c.PushDebugEntry(ir.TagSubprogram)
	c.Module.Debug.Entry(debugID).Attrs.Name = id.Name
	c.Module.Debug.Entry(debugID).Attrs.External = id.FuncStorage == ast.StorageExtern
	c.Module.Debug.Entry(debugID).Attrs.LinkageName = functionSymbolName(id)

	lc := c.InitLocal(decl)
	lc.ReturnType = fnType.Return
	tr := NewTranslator(lc)

	params := functionParameters(fn)
	if err := tr.receiveParameters(params, fnType); err != nil {
		return err
	}
	if err := tr.evaluateParameterVLABounds(params); err != nil {
		return err
	}

	c.Module.Debug.Entry(debugID).Attrs.LowPC = lc.Block.CurrentIndex()

	if fn.Body != nil {
		if err := fn.Body.AcceptStmt(tr); err != nil {
			return err
		}
	}
	if !lastIsFunctionExit(lc.Block) {
		tr.Emit(ir.OpFunctionExit)
	}

	c.Module.Debug.Entry(debugID).Attrs.HighPC = lc.Block.CurrentIndex()

	if err := tr.emitScopeDebugInfo(fn.LocalScope, params, debugID); err != nil {
		return err
	}
	if err := c.PopDebugEntry(); err != nil {
		return err
	}

	if err := lc.Flow.checkBalanced(); err != nil {
		return errors.Newf(errors.InvalidState, "function %q: malformed flow-control tree: %v", id.Name, err)
	}

	c.Module.DefineFunctionBody(decl.ID, lc.Block)
	return nil
}

// functionParameters resolves the ordered parameter identifiers from the
// analyzer's local-scope tree: the root scope's identifiers are exactly the
// parameter list (spec.md §3 "consumed, not built" — the function body's own
// declarations live in the nested compound-statement scope instead).
func functionParameters(fn *ast.FunctionDefinition) []*ast.ScopedIdentifier {
	if fn.LocalScope == nil {
		return nil
	}
	return fn.LocalScope.Identifiers
}

// receiveParameters implements spec.md §4.10's reverse parameter walk:
// arguments arrive on the virtual stack in push order (leftmost argument
// deepest), so popping them into their object lvalues requires working from
// the last parameter back to the first.
func (tr *Translator) receiveParameters(params []*ast.ScopedIdentifier, fnType *ast.Type) error {
	krStyle := fnType.ParamMode == ast.ParamKRIdentifierList
	for i := len(params) - 1; i >= 0; i-- {
		id := params[i]
		if id == nil || id.Type == nil {
			continue
		}
		l, err := tr.LocalOracle.Compute(id.Type, layout.Local)
		if err != nil {
			return err
		}
		if krStyle {
			if err := tr.convertScalar(defaultArgumentPromotion(id.Type), id.Type); err != nil {
				return err
			}
		}
		slot := tr.LocalScope.Define(id, l)
		tr.Emit(ir.OpGetLocal, uint32(slot.Layout.IRTypeID), uint32(slot.SlotValue))
		tr.Emit(ir.OpVstackExchange)
		if err := tr.storeAt(id.Type, l); err != nil {
			return err
		}
	}
	return nil
}

// evaluateParameterVLABounds re-walks the parameter list forward, emitting
// and discarding each variably-modified parameter type's runtime length
// expression (spec.md §4.9's variably-modified rule applies identically to
// parameters once their storage is in place, per spec.md §4.10 "re-walks
// forward to emit the bodies of variably-modified parameter types").
func (tr *Translator) evaluateParameterVLABounds(params []*ast.ScopedIdentifier) error {
	for _, id := range params {
		if id == nil {
			continue
		}
		base, _ := ast.Unqualify(id.Type)
		if base == nil || base.Kind != ast.TypeArray {
			continue
		}
		expr, ok := base.LengthExpr.(ast.Expr)
		if !ok || expr == nil {
			continue
		}
		if _, err := tr.TranslateExpr(expr); err != nil {
			return err
		}
		tr.Emit(ir.OpVstackPop)
	}
	return nil
}

func lastIsFunctionExit(b *ir.Block) bool {
	if len(b.Code) == 0 {
		return false
	}
	return b.Code[len(b.Code)-1].Op == ir.OpFunctionExit
}

// emitScopeDebugInfo generates DWARF-ish formal-parameter and variable
// entries for fn's ordinary scope tree under parentDebugID (spec.md §4.10
// "generates object-scope debug information for the associated ordinary
// scope"). The root level is the parameter list; each child is a nested
// lexical block for one compound statement's locals.
func (tr *Translator) emitScopeDebugInfo(tree *ast.LocalScopeTree, params []*ast.ScopedIdentifier, parentDebugID int) error {
	if tree == nil {
		return nil
	}
	paramSet := make(map[*ast.ScopedIdentifier]bool, len(params))
	for _, p := range params {
		paramSet[p] = true
	}
	return tr.emitScopeDebugInfoLevel(tree, parentDebugID, paramSet)
}

func (tr *Translator) emitScopeDebugInfoLevel(tree *ast.LocalScopeTree, parentDebugID int, paramSet map[*ast.ScopedIdentifier]bool) error {
	for _, id := range tree.Identifiers {
		if id == nil || id.Kind != ast.IdentObject {
			continue
		}
		tag := ir.TagVariable
		if paramSet[id] {
			tag = ir.TagFormalParameter
		}
		entryID := tr.PushDebugEntry(tag)
		tr.Module.Debug.Entry(entryID).Attrs.Name = id.Name
		if err := tr.PopDebugEntry(); err != nil {
			return err
		}
		id.Payload.DebugEntry = entryID
	}
	for _, child := range tree.Children {
		blockID := tr.PushDebugEntry(ir.TagLexicalBlock)
		if err := tr.emitScopeDebugInfoLevel(child, blockID, nil); err != nil {
			return err
		}
		if err := tr.PopDebugEntry(); err != nil {
			return err
		}
	}
	return nil
}
