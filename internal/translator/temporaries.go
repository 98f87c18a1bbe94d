package translator

import (
	"kefir/internal/ast"
	"kefir/internal/errors"
	"kefir/internal/ir"
	"kefir/internal/layout"
)

// TempAllocator materializes the address of an analyzer-reserved temporary
// (spec.md §4.4, C4). The analyzer reserves `temporary_identifier` slots
// during analysis and installs a scoped-id for each one; the translator only
// emits the local address of that scoped-id (via the lvalue translator's
// object path). It also counts the long-double call-result slots consumed in
// the current expression (AdvanceLongDoubleSlot, ResetLongDoubleSlots), but
// Address does not read that count: the emitted address is the same however
// many calls came before.
type TempAllocator struct {
	lc              *LocalContext
	longDoubleCalls int // count of long-double call-result slots consumed so far in the current expression
}

func NewTempAllocator(lc *LocalContext) *TempAllocator {
	return &TempAllocator{lc: lc}
}

// Address emits the local address of id's reserved temporary, failing with
// UNALLOCATED_TEMPORARY if the analyzer never reserved one
// (spec.md §4.4 error kinds).
func (t *TempAllocator) Address(id *ast.ScopedIdentifier) (*layout.TypeLayout, error) {
	if id == nil {
		return nil, errors.New(errors.UnallocatedTemporary, "temporaries: expression uses a temporary the analyzer did not reserve")
	}
	slot, ok := t.lc.LocalScope.Resolve(id.Name)
	if !ok {
		l, err := t.lc.LocalOracle.Compute(id.Type, layout.Local)
		if err != nil {
			return nil, err
		}
		slot = t.lc.LocalScope.Define(id, l)
	}
	t.lc.Emit(ir.OpGetLocal, uint32(slot.Layout.IRTypeID), uint32(slot.SlotValue))
	return slot.Layout, nil
}

// AdvanceLongDoubleSlot records that one call within the current expression
// consumed a long-double stack slot by incrementing the count; no address is
// derived from the count.
func (t *TempAllocator) AdvanceLongDoubleSlot() {
	t.longDoubleCalls++
}

// ResetLongDoubleSlots is called once per top-level expression statement:
// the slot cursor is only meaningful within a single expression
// (spec.md §4.4 "named lazily, once per eligible expression").
func (t *TempAllocator) ResetLongDoubleSlots() {
	t.longDoubleCalls = 0
}
