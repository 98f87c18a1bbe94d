package translator

import (
	"kefir/internal/ast"
	"kefir/internal/errors"
	"kefir/internal/ir"
	"kefir/internal/layout"
)

// translateInitializerFor translates init against temp's address, used by
// the statement translator for auto/register declarations with an
// initializer (spec.md §4.9) and by the compound-literal lvalue path
// (spec.md §4.5). It re-derives temp's address via the temporary allocator
// each time it needs to store into a sub-object, rather than requiring the
// caller to have pre-pushed an address, so nested aggregate members can each
// get their own freshly computed offset address.
func (tr *Translator) translateInitializerFor(init *ast.Initializer, t *ast.Type, temp *ast.ScopedIdentifier) error {
	l, err := tr.LocalOracle.Compute(t, layout.Local)
	if err != nil {
		return err
	}
	return tr.translateInitializerAt(init, t, l, temp, 0)
}

// translateInitializerAt recurses through a (possibly nested) brace
// initializer, storing each leaf expression at base+offset.
func (tr *Translator) translateInitializerAt(init *ast.Initializer, t *ast.Type, l *layout.TypeLayout, temp *ast.ScopedIdentifier, offset int) error {
	if init == nil {
		return nil
	}
	base, _ := ast.Unqualify(t)

	if init.Kind == ast.InitExpr {
		if _, err := tr.Temps.Address(temp); err != nil {
			return err
		}
		if offset != 0 {
			tr.Emit(ir.OpUintConst, uint32(offset), 0)
			tr.Emit(ir.OpPointerAdd)
		}
		valType, err := tr.TranslateExpr(init.Expr)
		if err != nil {
			return err
		}
		if ast.IsScalar(t) {
			if err := tr.convertScalar(valType, t); err != nil {
				return err
			}
		}
		return tr.storeAt(t, l)
	}

	// brace-init-list: walk fields/elements positionally (designators are
	// resolved to the same positional slots by the analyzer before this
	// point reaches the translator).
	switch base.Kind {
	case ast.TypeStruct, ast.TypeUnion:
		for i, entry := range init.List {
			if i >= len(l.Fields) {
				break
			}
			fl := l.Fields[i]
			if err := tr.translateInitializerAt(entry.Value, fl.Layout.Type, fl.Layout, temp, offset+fl.Offset); err != nil {
				return err
			}
		}
	case ast.TypeArray:
		if len(l.Fields) == 0 {
			return errors.New(errors.InvalidState, "initializer: array layout missing element entry")
		}
		elem := l.Fields[0].Layout
		for i, entry := range init.List {
			if err := tr.translateInitializerAt(entry.Value, elem.Type, elem, temp, offset+i*elem.Size); err != nil {
				return err
			}
		}
	default:
		return errors.Newf(errors.InvalidState, "initializer: brace-init on non-aggregate %v", base.Kind)
	}
	return nil
}
