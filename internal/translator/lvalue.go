package translator

import (
	"kefir/internal/ast"
	"kefir/internal/errors"
	"kefir/internal/ir"
	"kefir/internal/layout"
)

// TranslateLvalue emits address-producing code for e, leaving a single
// pointer-sized value on the stack, and returns the addressed object's type
// (spec.md §4.5, C5).
func (tr *Translator) TranslateLvalue(e ast.Expr) (*ast.Type, error) {
	switch n := e.(type) {
	case *ast.Identifier:
		props := n.Properties()
		return tr.lvalueObjectOrFunction(props.Expr.ScopedID)
	case *ast.ArraySubscript:
		return tr.lvalueArraySubscript(n)
	case *ast.MemberAccess:
		return tr.lvalueMember(n)
	case *ast.CompoundLiteral:
		return tr.lvalueCompoundLiteral(n)
	case *ast.UnaryExpr:
		if n.Op == ast.UnaryDeref {
			return tr.TranslateExpr(n.Operand)
		}
	}
	return nil, errors.Newf(errors.InvalidState, "lvalue: node %T is not an lvalue", e)
}

func (tr *Translator) lvalueObjectOrFunction(id *ast.ScopedIdentifier) (*ast.Type, error) {
	if id == nil {
		return nil, errors.New(errors.InvalidState, "lvalue: identifier has no scoped-id payload (invariant (v) violated)")
	}
	switch id.Kind {
	case ast.IdentFunction:
		return tr.lvalueFunction(id)
	case ast.IdentObject:
		return tr.lvalueObject(id)
	default:
		return nil, errors.Newf(errors.InvalidState, "lvalue: identifier kind %v has no address", id.Kind)
	}
}

// lvalueFunction interns the function's (possibly GNU-inline-aliased or
// asm-label-overridden) symbol and emits GET_GLOBAL (spec.md §4.5).
func (tr *Translator) lvalueFunction(id *ast.ScopedIdentifier) (*ast.Type, error) {
	name := functionSymbolName(id)
	sym := tr.Module.InternSymbol(name)
	tr.Emit(ir.OpGetGlobal, uint32(sym))
	return id.Type, nil
}

func functionSymbolName(id *ast.ScopedIdentifier) string {
	if id.AsmLabel != nil {
		return *id.AsmLabel
	}
	if id.GNUInline && id.FuncStorage == ast.StorageExtern {
		return "__kefir_gnu_inline_" + id.Name
	}
	if id.LinkageName != "" {
		return id.LinkageName
	}
	return id.Name
}

// lvalueObject dispatches on storage class (spec.md §4.5 "Object lvalue").
func (tr *Translator) lvalueObject(id *ast.ScopedIdentifier) (*ast.Type, error) {
	if id.AsmLabel != nil {
		sym := tr.Module.InternSymbol(*id.AsmLabel)
		tr.Emit(ir.OpGetGlobal, uint32(sym))
		return id.Type, nil
	}
	switch id.Storage {
	case ast.StorageExtern, ast.StorageThreadLocal, ast.StorageExternThreadLocal:
		sym := tr.Module.InternSymbol(id.Name)
		if id.Storage == ast.StorageThreadLocal || id.Storage == ast.StorageExternThreadLocal {
			tr.Emit(ir.OpGetThreadLocal, uint32(sym))
		} else {
			tr.Emit(ir.OpGetGlobal, uint32(sym))
		}
		return id.Type, nil

	case ast.StorageStatic, ast.StorageStaticThreadLocal:
		// one of two well-known container symbols: initialized vs BSS.
		container := "__kefir_static_bss"
		if id.Initializer != nil {
			container = "__kefir_static_data"
		}
		sym := tr.Module.InternSymbol(container)
		if id.Storage == ast.StorageStaticThreadLocal {
			tr.Emit(ir.OpGetThreadLocal, uint32(sym))
		} else {
			tr.Emit(ir.OpGetGlobal, uint32(sym))
		}
		offset := id.Payload.IRTypeID // the analyzer/translator-assigned field offset within the container, stashed in the payload once computed
		if offset != 0 {
			tr.Emit(ir.OpUintConst, uint32(offset), 0)
			tr.Emit(ir.OpPointerAdd)
		}
		return id.Type, nil

	case ast.StorageAuto, ast.StorageRegister:
		return tr.lvalueLocal(id)

	case ast.StorageTypedef, ast.StorageUnknown:
		return nil, errors.Newf(errors.InvalidState, "lvalue: identifier %q has no storage to address", id.Name)
	default:
		return nil, errors.Newf(errors.InvalidState, "lvalue: unsupported storage class for %q", id.Name)
	}
}

func (tr *Translator) lvalueLocal(id *ast.ScopedIdentifier) (*ast.Type, error) {
	slot, ok := tr.LocalScope.Resolve(id.Name)
	if !ok {
		l, err := tr.LocalOracle.Compute(id.Type, layout.Local)
		if err != nil {
			return nil, err
		}
		slot = tr.LocalScope.Define(id, l)
	}
	tr.Emit(ir.OpGetLocal, uint32(slot.Layout.IRTypeID), uint32(slot.SlotValue))
	if slot.Layout.IsVLA {
		// dereference array_ptr to obtain the runtime base, per spec.md §3
		// "for VLAs, dereference the array_ptr field".
		tr.Emit(ir.OpUintConst, uint32(slot.Layout.ArrayPtrOffset), 0)
		tr.Emit(ir.OpPointerAdd)
		tr.Emit(ir.OpInt64Load)
	}
	return id.Type, nil
}

// lvalueArraySubscript evaluates the array and index in the syntactic order
// of `a[b]` vs `b[a]` (spec.md §4.5), converts the index to size_t, scales
// by element size, and adds.
func (tr *Translator) lvalueArraySubscript(n *ast.ArraySubscript) (*ast.Type, error) {
	arrayType, err := tr.translateArraySubscriptOperands(n)
	if err != nil {
		return nil, err
	}
	base, _ := ast.Unqualify(arrayType)
	var elem *ast.Type
	switch base.Kind {
	case ast.TypeArray:
		elem = base.ElementType
	case ast.TypePointer:
		elem = base.Referenced
	default:
		return nil, errors.New(errors.InvalidState, "lvalue: subscript on non-array/pointer type")
	}
	l, err := tr.LocalOracle.Compute(elem, layout.Local)
	if err != nil {
		return nil, err
	}
	tr.Emit(ir.OpPointerScale, uint32(l.Size))
	tr.Emit(ir.OpPointerAdd)
	return elem, nil
}

// translateArraySubscriptOperands emits [arrayAddr, indexAsSizeT] (in
// whichever order the source wrote them) and returns the array/pointer
// expression's type.
func (tr *Translator) translateArraySubscriptOperands(n *ast.ArraySubscript) (*ast.Type, error) {
	var arrayType, indexType *ast.Type
	var err error
	translateArray := func() error {
		arrayType, err = tr.arrayOperandAddress(n.Array)
		return err
	}
	translateIndex := func() error {
		indexType, err = tr.TranslateExpr(n.Index)
		if err != nil {
			return err
		}
		return tr.convertScalar(indexType, tr.Traits.SizeType())
	}
	if n.ArrayFirst {
		if err := translateArray(); err != nil {
			return nil, err
		}
		if err := translateIndex(); err != nil {
			return nil, err
		}
	} else {
		if err := translateIndex(); err != nil {
			return nil, err
		}
		if err := translateArray(); err != nil {
			return nil, err
		}
		// index was pushed first; reorder so array address is directly
		// under the scaled index before PointerAdd.
		tr.Emit(ir.OpVstackExchange)
	}
	return arrayType, nil
}

// arrayOperandAddress translates n either as an lvalue (array operand decays
// to its address) or as a plain rvalue pointer, matching whichever type n
// actually has.
func (tr *Translator) arrayOperandAddress(e ast.Expr) (*ast.Type, error) {
	t, _ := exprType(e)
	base, _ := ast.Unqualify(t)
	if base != nil && base.Kind == ast.TypeArray {
		return tr.TranslateLvalue(e)
	}
	return tr.TranslateExpr(e)
}

func exprType(e ast.Expr) (*ast.Type, bool) {
	p := e.Properties()
	if p.Expr.Type == nil {
		return nil, false
	}
	return p.Expr.Type, true
}

// lvalueMember resolves direct (.) and indirect (->) member access
// (spec.md §4.5).
func (tr *Translator) lvalueMember(n *ast.MemberAccess) (*ast.Type, error) {
	var objType *ast.Type
	var err error
	if n.Indirect {
		objType, err = tr.TranslateExpr(n.Object)
	} else {
		objType, err = tr.TranslateLvalue(n.Object)
	}
	if err != nil {
		return nil, err
	}
	base, _ := ast.Unqualify(objType)
	if n.Indirect {
		base, _ = ast.Unqualify(base.Referenced)
	}
	structLayout, err := tr.LocalOracle.Compute(base, layout.Local)
	if err != nil {
		return nil, err
	}
	field, err := layout.FindField(structLayout, n.Member)
	if err != nil {
		return nil, err
	}
	if field.Offset != 0 {
		tr.Emit(ir.OpUintConst, uint32(field.Offset), 0)
		tr.Emit(ir.OpPointerAdd)
	}
	return field.Layout.Type, nil
}

// lvalueCompoundLiteral fetches the reserved temporary, translates the
// initializer against it, and leaves the temporary's address on the stack
// (spec.md §4.5).
func (tr *Translator) lvalueCompoundLiteral(n *ast.CompoundLiteral) (*ast.Type, error) {
	if err := tr.translateInitializerFor(n.Initializer, n.TypeName, n.Temporary); err != nil {
		return nil, err
	}
	if _, err := tr.Temps.Address(n.Temporary); err != nil {
		return nil, err
	}
	return n.TypeName, nil
}
