package translator

import (
	"kefir/internal/ast"
	"kefir/internal/ir"
	"kefir/internal/layout"
)

// loadAt emits code that pops an address off the stack and pushes the value
// stored there, dispatching on t's classification (spec.md §4.6, C6): plain
// scalar load, bit-field extract with storage-unit masking, atomic load, or
// aggregate left as an address (aggregates are never loaded to a value slot,
// per spec.md §3 invariant (ii) — callers needing a copy use copyAggregate).
func (tr *Translator) loadAt(t *ast.Type, l *layout.TypeLayout, bf *layout.BitfieldPlacement) (*ast.Type, error) {
	base, q := ast.Unqualify(t)
	if q.Has(ast.QualAtomic) {
		return tr.atomicLoad(base, l)
	}
	if bf != nil {
		return tr.bitfieldLoad(base, l, bf)
	}
	switch {
	case ast.IsAggregate(base):
		// the address itself is the aggregate's value representation on the
		// virtual stack; nothing further to emit.
		return base, nil
	default:
		tr.Emit(scalarLoadOp(base), memFlagsImm(q.Has(ast.QualVolatile)))
		return base, nil
	}
}

// storeAt emits code that expects [address, value] on the stack (address
// pushed first/deeper, value pushed last/on top, matching the lvalue
// translator's convention of computing the address immediately before the
// value that will be written there) and pops both, dispatching the same way
// loadAt does.
func (tr *Translator) storeAt(t *ast.Type, l *layout.TypeLayout) error {
	return tr.storeAtFlagged(t, l, nil)
}

func (tr *Translator) storeAtFlagged(t *ast.Type, l *layout.TypeLayout, bf *layout.BitfieldPlacement) error {
	base, q := ast.Unqualify(t)
	if q.Has(ast.QualAtomic) {
		return tr.atomicStore(base, l)
	}
	if bf != nil {
		return tr.bitfieldStore(base, l, bf)
	}
	if ast.IsAggregate(base) {
		tr.Emit(ir.OpCopyMemory, uint32(l.Size))
		return nil
	}
	tr.Emit(scalarStoreOp(base), memFlagsImm(q.Has(ast.QualVolatile)))
	return nil
}

func memFlagsImm(volatile bool) uint32 {
	if volatile {
		return uint32(ir.MemVolatile)
	}
	return 0
}

func scalarLoadOp(t *ast.Type) ir.OpCode {
	switch t.Kind {
	case ast.TypeBool, ast.TypeChar:
		return widthLoadOp(t.IntWidth)
	case ast.TypeInteger, ast.TypeEnum:
		return widthLoadOp(intWidthOf(t))
	case ast.TypeBitInt:
		return ir.OpBitIntLoad
	case ast.TypeFloat:
		return floatLoadOp(t.Float)
	case ast.TypeComplex:
		return complexLoadOp(t.Float)
	default: // pointer, function
		return ir.OpInt64Load
	}
}

func scalarStoreOp(t *ast.Type) ir.OpCode {
	switch t.Kind {
	case ast.TypeBool, ast.TypeChar:
		return widthStoreOp(t.IntWidth)
	case ast.TypeInteger, ast.TypeEnum:
		return widthStoreOp(intWidthOf(t))
	case ast.TypeBitInt:
		return ir.OpBitIntStore
	case ast.TypeFloat:
		return floatStoreOp(t.Float)
	case ast.TypeComplex:
		return complexStoreOp(t.Float)
	default:
		return ir.OpInt64Store
	}
}

func intWidthOf(t *ast.Type) int {
	if t.Kind == ast.TypeEnum {
		if t.Underlying != nil {
			return intWidthOf(t.Underlying)
		}
		return 32
	}
	return t.IntWidth
}

func widthLoadOp(w int) ir.OpCode {
	switch {
	case w <= 8:
		return ir.OpInt8Load
	case w <= 16:
		return ir.OpInt16Load
	case w <= 32:
		return ir.OpInt32Load
	default:
		return ir.OpInt64Load
	}
}

func widthStoreOp(w int) ir.OpCode {
	switch {
	case w <= 8:
		return ir.OpInt8Store
	case w <= 16:
		return ir.OpInt16Store
	case w <= 32:
		return ir.OpInt32Store
	default:
		return ir.OpInt64Store
	}
}

func floatLoadOp(w ast.FloatWidth) ir.OpCode {
	switch w {
	case ast.FloatF32:
		return ir.OpFloat32Load
	case ast.FloatF64:
		return ir.OpFloat64Load
	default:
		return ir.OpLongDoubleLoad
	}
}

func floatStoreOp(w ast.FloatWidth) ir.OpCode {
	switch w {
	case ast.FloatF32:
		return ir.OpFloat32Store
	case ast.FloatF64:
		return ir.OpFloat64Store
	default:
		return ir.OpLongDoubleStore
	}
}

func complexLoadOp(w ast.FloatWidth) ir.OpCode {
	switch w {
	case ast.FloatF32:
		return ir.OpComplexFloatLoad
	case ast.FloatF64:
		return ir.OpComplexDoubleLoad
	default:
		return ir.OpComplexLongDoubleLoad
	}
}

func complexStoreOp(w ast.FloatWidth) ir.OpCode {
	switch w {
	case ast.FloatF32:
		return ir.OpComplexFloatStore
	case ast.FloatF64:
		return ir.OpComplexDoubleStore
	default:
		return ir.OpComplexLongDoubleStore
	}
}

// bitStorageUnitWidths are the natural load/store widths the translator will
// try, widest-compatible-unit first, before falling back to the split-load
// protocol (spec.md §4.6 "bit-field load/store").
var bitStorageUnitWidths = []int{8, 16, 32, 64}

// naturalUnitWidth picks the narrowest storage-unit width that both contains
// the bit-field's span and is itself one of the machine's natural load
// widths.
func naturalUnitWidth(bf *layout.BitfieldPlacement) (int, bool) {
	span := bf.BitOffset + bf.Width
	for _, w := range bitStorageUnitWidths {
		if span <= w {
			return w, true
		}
	}
	return 0, false
}

// bitfieldLoad implements spec.md §4.6's bit-field load protocol: a natural
// load of the narrowest containing unit width, then BITS_EXTRACT. Spans of
// 24/40/48/56 bits don't correspond to a single natural load width; when
// Config.PreciseBitfieldLoadStore is set the translator instead synthesizes
// two narrower loads and combines them (SPEC_FULL.md §D.3 resolves the
// fallthrough-to-wider-load behavior as a latent, never-taken bug once this
// flag is on — so the synthesis below is the only path actually exercised
// when the flag is set).
func (tr *Translator) bitfieldLoad(t *ast.Type, l *layout.TypeLayout, bf *layout.BitfieldPlacement) (*ast.Type, error) {
	unit, natural := naturalUnitWidth(bf)
	if !natural && tr.Config.PreciseBitfieldLoadStore {
		return tr.bitfieldLoadSplit(t, bf)
	}
	if !natural {
		// fall through to the next-wider natural unit (the documented latent
		// behavior, only reachable with the flag unset).
		for _, w := range bitStorageUnitWidths {
			if w > unit {
				unit = w
				break
			}
		}
	}
	tr.Emit(widthLoadOp(unit))
	signed := bitfieldSigned(t)
	if signed {
		tr.Emit(ir.OpBitsExtractS, uint32(bf.BitOffset), uint32(bf.Width))
	} else {
		tr.Emit(ir.OpBitsExtractU, uint32(bf.BitOffset), uint32(bf.Width))
	}
	return t, nil
}

// bitfieldLoadSplit synthesizes an irregular-width load (24/40/48/56 bits) by
// loading two adjacent natural units and splicing the extracted fragments,
// narrow unit first (spec.md §4.6).
func (tr *Translator) bitfieldLoadSplit(t *ast.Type, bf *layout.BitfieldPlacement) (*ast.Type, error) {
	lowBits := bf.Width
	if lowBits > 32 {
		lowBits = 32
	}
	tr.Emit(ir.OpVstackPick, 0) // duplicate the address for the second load
	tr.Emit(widthLoadOp(32))
	tr.Emit(ir.OpBitsExtractU, uint32(bf.BitOffset), uint32(lowBits))
	if bf.Width > lowBits {
		tr.Emit(ir.OpUintConst, uint32(4), 0)
		tr.Emit(ir.OpPointerAdd)
		tr.Emit(widthLoadOp(32))
		highBits := bf.Width - lowBits
		tr.Emit(ir.OpBitsExtractU, 0, uint32(highBits))
		tr.Emit(ir.OpUintConst, uint32(lowBits), 0)
		tr.Emit(ir.OpBitIntShlU, uint32(bf.Width))
		tr.Emit(ir.OpBitIntOr, uint32(bf.Width))
	}
	if bitfieldSigned(t) {
		tr.Emit(ir.OpBitIntExtend, uint32(bf.Width), uint32(intWidthOf(t)), 1)
	}
	return t, nil
}

func bitfieldSigned(t *ast.Type) bool {
	switch t.Kind {
	case ast.TypeBitInt:
		return t.BitSigned
	case ast.TypeInteger:
		return t.IntSigned
	case ast.TypeChar:
		return t.IntSigned
	default:
		return false
	}
}

// bitfieldStore implements spec.md §4.6's store protocol: load-modify-write
// of the containing storage unit via BITS_INSERT, so sibling bit-fields
// sharing the unit are preserved (spec.md's bit-field non-interference
// property).
func (tr *Translator) bitfieldStore(t *ast.Type, l *layout.TypeLayout, bf *layout.BitfieldPlacement) error {
	unit, natural := naturalUnitWidth(bf)
	if !natural {
		for _, w := range bitStorageUnitWidths {
			if w > unit {
				unit = w
				break
			}
		}
	}
	// stack on entry: [address, value] (address deeper, value on top). Fetch
	// the current storage unit via a duplicated address, insert the new bits
	// into it, then write the merged unit back at the original address.
	tr.Emit(ir.OpVstackPick, 1)  // [address, value, address]
	tr.Emit(widthLoadOp(unit))  // [address, value, unit]
	tr.Emit(ir.OpVstackExchange) // [address, unit, value]
	tr.Emit(ir.OpBitsInsert, uint32(bf.BitOffset), uint32(bf.Width)) // [address, merged]
	tr.Emit(widthStoreOp(unit), 0)
	return nil
}

func (tr *Translator) atomicLoad(t *ast.Type, l *layout.TypeLayout) (*ast.Type, error) {
	switch {
	case ast.IsAggregate(t):
		tr.Emit(ir.OpAtomicCopyMemoryFrom, uint32(ir.OrderSeqCst), uint32(l.IRTypeID), uint32(l.Size))
		return t, nil
	case t.Kind == ast.TypeFloat:
		tr.Emit(atomicFloatLoadOp(t.Float))
		return t, nil
	case t.Kind == ast.TypeComplex:
		tr.Emit(atomicComplexLoadOp(t.Float))
		return t, nil
	default:
		tr.Emit(atomicIntLoadOp(l.Size))
		return t, nil
	}
}

func (tr *Translator) atomicStore(t *ast.Type, l *layout.TypeLayout) error {
	switch {
	case ast.IsAggregate(t):
		tr.Emit(ir.OpAtomicCopyMemoryTo, uint32(ir.OrderSeqCst), uint32(l.IRTypeID), uint32(l.Size))
	case t.Kind == ast.TypeFloat:
		tr.Emit(atomicFloatStoreOp(t.Float))
	case t.Kind == ast.TypeComplex:
		tr.Emit(atomicComplexStoreOp(t.Float))
	default:
		tr.Emit(atomicIntStoreOp(l.Size))
	}
	return nil
}

func atomicIntLoadOp(size int) ir.OpCode {
	switch {
	case size <= 1:
		return ir.OpAtomicLoad8
	case size <= 2:
		return ir.OpAtomicLoad16
	case size <= 4:
		return ir.OpAtomicLoad32
	default:
		return ir.OpAtomicLoad64
	}
}

func atomicIntStoreOp(size int) ir.OpCode {
	switch {
	case size <= 1:
		return ir.OpAtomicStore8
	case size <= 2:
		return ir.OpAtomicStore16
	case size <= 4:
		return ir.OpAtomicStore32
	default:
		return ir.OpAtomicStore64
	}
}

func atomicFloatLoadOp(w ast.FloatWidth) ir.OpCode {
	if w == ast.FloatLongDouble {
		return ir.OpAtomicLoadLongDouble
	}
	return atomicIntLoadOp(map[ast.FloatWidth]int{ast.FloatF32: 4, ast.FloatF64: 8}[w])
}

func atomicFloatStoreOp(w ast.FloatWidth) ir.OpCode {
	if w == ast.FloatLongDouble {
		return ir.OpAtomicStoreLongDouble
	}
	return atomicIntStoreOp(map[ast.FloatWidth]int{ast.FloatF32: 4, ast.FloatF64: 8}[w])
}

func atomicComplexLoadOp(w ast.FloatWidth) ir.OpCode {
	switch w {
	case ast.FloatF32:
		return ir.OpAtomicLoadComplexFloat
	case ast.FloatF64:
		return ir.OpAtomicLoadComplexDouble
	default:
		return ir.OpAtomicLoadComplexLongDouble
	}
}

func atomicComplexStoreOp(w ast.FloatWidth) ir.OpCode {
	switch w {
	case ast.FloatF32:
		return ir.OpAtomicStoreComplexFloat
	case ast.FloatF64:
		return ir.OpAtomicStoreComplexDouble
	default:
		return ir.OpAtomicStoreComplexLongDouble
	}
}

// atomicCAS returns the compare-exchange opcode sized to l (spec.md §4.8 via
// C8); it emits nothing itself. The retry loop around it is driven by the
// assignment translator's atomicRMWLoop.
func (tr *Translator) atomicCAS(l *layout.TypeLayout) ir.OpCode {
	switch {
	case l.Size <= 1:
		return ir.OpAtomicCmpxchg8
	case l.Size <= 2:
		return ir.OpAtomicCmpxchg16
	case l.Size <= 4:
		return ir.OpAtomicCmpxchg32
	default:
		return ir.OpAtomicCmpxchg64
	}
}

// copyAggregate emits a plain (non-atomic) whole-object copy, expecting
// [destAddress, sourceAddress] on the stack (dest pushed first/deeper,
// source last/top, matching storeAtFlagged's aggregate case).
func (tr *Translator) copyAggregate(l *layout.TypeLayout) {
	tr.Emit(ir.OpCopyMemory, uint32(l.Size))
}
