package translator

import (
	"kefir/internal/ast"
	"kefir/internal/errors"
	"kefir/internal/ir"
	"kefir/internal/layout"
)

// translateCall implements spec.md §4.7.2's three call modes. For a named
// direct callee the function symbol itself identifies the target (INVOKE);
// for everything else the callee expression is translated first, pushing its
// address, and INVOKE_VIRTUAL dispatches through the declared function type.
func (tr *Translator) translateCall(n *ast.FunctionCall) error {
	calleeType, err := functionTypeOf(n.Callee.Properties().Expr.Type)
	if err != nil {
		return err
	}

	directID, indirect, err := tr.emitCallee(n.Callee)
	if err != nil {
		return err
	}

	paramTypes, err := tr.resolveParamTypes(n, calleeType)
	if err != nil {
		return err
	}
	for i, arg := range n.Args {
		if err := tr.emitCallArgument(arg, paramTypes, i); err != nil {
			return err
		}
	}

	if indirect {
		l, err := tr.LocalOracle.Compute(calleeType, layout.Local)
		if err != nil {
			return err
		}
		tr.Emit(ir.OpInvokeVirtual, uint32(l.IRTypeID))
	} else {
		tr.Emit(ir.OpInvoke, uint32(directID))
	}

	return tr.handleCallResult(n, calleeType.Return)
}

// emitCallee determines whether n is a named direct call (no code emitted;
// the symbol id is returned) or an indirect call through a function pointer
// value (the callee expression is translated, pushing its address ahead of
// the arguments, per spec.md §4.7.2).
func (tr *Translator) emitCallee(callee ast.Expr) (directID int, indirect bool, err error) {
	if id, ok := callee.(*ast.Identifier); ok {
		props := id.Properties().Expr
		if props.ScopedID != nil && props.ScopedID.Kind == ast.IdentFunction {
			name := functionSymbolName(props.ScopedID)
			return tr.Module.InternSymbol(name), false, nil
		}
	}
	if _, err := tr.TranslateExpr(callee); err != nil {
		return 0, false, err
	}
	return 0, true, nil
}

// functionTypeOf unwraps a pointer-to-function decay back to the function
// type proper; a function designator used as a callee carries either shape
// depending on how the analyzer resolved it.
func functionTypeOf(t *ast.Type) (*ast.Type, error) {
	base, _ := ast.Unqualify(t)
	if base == nil {
		return nil, errors.New(errors.InvalidState, "call: callee has no type")
	}
	if base.Kind == ast.TypePointer {
		base, _ = ast.Unqualify(base.Referenced)
	}
	if base == nil || base.Kind != ast.TypeFunction {
		return nil, errors.New(errors.InvalidState, "call: callee type is not a function")
	}
	return base, nil
}

// resolveParamTypes builds the ordered expected-parameter-type list per
// spec.md §4.7.2's three modes. Mode 3 (empty prototype) returns nil,
// signalling emitCallArgument to apply default argument promotion instead of
// a destination-type conversion.
func (tr *Translator) resolveParamTypes(n *ast.FunctionCall, calleeType *ast.Type) ([]*ast.Type, error) {
	switch calleeType.ParamMode {
	case ast.ParamEmpty:
		return nil, nil
	case ast.ParamList, ast.ParamKRIdentifierList:
		// both the prototyped and K&R identifier-list declarators resolve,
		// by the time the AST reaches the translator, to the same ordered
		// Params slice (spec.md §4.7.2 mode 2: "walk the declarator's
		// identifier list to produce an ordered parameter-layout list" is
		// the analyzer's job; the translator only consumes the result).
		types := make([]*ast.Type, len(calleeType.Params))
		for i, p := range calleeType.Params {
			types[i] = p.Type
		}
		return types, nil
	default:
		return nil, errors.Newf(errors.InvalidState, "call: unknown parameter mode %v", calleeType.ParamMode)
	}
}

// emitCallArgument translates one actual argument, converting it to its
// expected parameter type (prototyped modes) or applying default argument
// promotion (empty-prototype mode and variadic trailing arguments), per
// spec.md §4.7.2.
func (tr *Translator) emitCallArgument(arg ast.Expr, paramTypes []*ast.Type, index int) error {
	t, err := tr.TranslateExpr(arg)
	if err != nil {
		return err
	}
	if ast.IsAggregate(t) {
		return nil // aggregates are passed by the address already on the stack
	}
	if index < len(paramTypes) {
		return tr.convertScalar(t, paramTypes[index])
	}
	return tr.convertScalar(t, defaultArgumentPromotion(t))
}

// defaultArgumentPromotion implements the "integer promotions; float→double"
// rule spec.md §4.7.2 mode 3 and variadic trailing arguments both apply.
func defaultArgumentPromotion(t *ast.Type) *ast.Type {
	base, q := ast.Unqualify(t)
	switch base.Kind {
	case ast.TypeFloat:
		if base.Float == ast.FloatF32 {
			return &ast.Type{Kind: ast.TypeFloat, Float: ast.FloatF64}
		}
		return base
	case ast.TypeInteger, ast.TypeBool, ast.TypeChar:
		if intWidthOf(base) < 32 {
			return &ast.Type{Kind: ast.TypeInteger, IntWidth: 32, IntSigned: true}
		}
		return base
	case ast.TypeEnum:
		if base.Underlying != nil {
			return defaultArgumentPromotion(base.Underlying)
		}
		return &ast.Type{Kind: ast.TypeInteger, IntWidth: 32, IntSigned: true}
	default:
		_ = q
		return base
	}
}

// handleCallResult implements the return half of spec.md §4.7.2. Aggregate
// results are copied out of the return-value address into the analyzer's
// reserved temporary, leaving that temporary's address as the expression's
// value (the same "address is the value" convention loadAt uses for
// aggregates generally). Long-double results stay a plain scalar on the
// stack, uniformly with every other floating value this translator handles
// (binary.go/convert.go never special-case a long-double operand as an
// address); the reserved per-call stack slot that spec.md §4.7.1 describes
// is consumed lazily, only if some later conversion of this value actually
// needs one, via TempAllocator.AdvanceLongDoubleSlot.
func (tr *Translator) handleCallResult(n *ast.FunctionCall, resultType *ast.Type) error {
	base, _ := ast.Unqualify(resultType)
	if !ast.IsAggregate(base) {
		tr.setResult(resultType)
		return nil
	}

	l, err := tr.LocalOracle.Compute(base, layout.Local)
	if err != nil {
		return err
	}
	temp := n.Properties().Expr.PreservedTemporary
	if _, err := tr.Temps.Address(temp); err != nil {
		return err
	}
	// stack: [returnedValueAddr, tempAddr] -- exchange to match
	// copyAggregate's [dest, source] convention.
	tr.Emit(ir.OpVstackExchange)
	tr.copyAggregate(l)
	// copyAggregate consumed both addresses; push the temp's address again
	// as the expression's resulting value.
	if _, err := tr.Temps.Address(temp); err != nil {
		return err
	}
	tr.setResult(base)
	return nil
}
