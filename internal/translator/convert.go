package translator

import (
	"kefir/internal/ast"
	"kefir/internal/errors"
	"kefir/internal/ir"
	"kefir/internal/target"
)

// convertScalar applies the type-conversion protocol of spec.md §4.7.1,
// converting a value of type `from` already on the stack to type `to`.
// Decomposed by (source, destination) kind pairs, per spec.md §4.7.1.
func (tr *Translator) convertScalar(from, to *ast.Type) error {
	fb, _ := ast.Unqualify(from)
	tb, _ := ast.Unqualify(to)
	if fb == nil || tb == nil || target.Compatible(fb, tb) {
		return nil
	}

	if tb.Kind == ast.TypeBool {
		return tr.convertToBool(fb)
	}

	switch {
	case isIntLike(fb) && isIntLike(tb):
		return tr.convertIntToInt(fb, tb)
	case isIntLike(fb) && tb.Kind == ast.TypeFloat:
		tr.Emit(ir.OpIntToFloat, uint32(intWidth(fb)), boolImm(target.Signed(fb, tr.Traits)), uint32(floatWidth(tb)))
		return nil
	case fb.Kind == ast.TypeFloat && isIntLike(tb):
		tr.Emit(ir.OpFloatToInt, uint32(floatWidth(fb)), uint32(intWidth(tb)), boolImm(target.Signed(tb, tr.Traits)))
		return nil
	case fb.Kind == ast.TypeFloat && tb.Kind == ast.TypeFloat:
		return tr.convertFloatToFloat(fb, tb)
	case fb.Kind == ast.TypeComplex || tb.Kind == ast.TypeComplex:
		return tr.convertComplex(fb, tb)
	case fb.Kind == ast.TypePointer && isIntLike(tb):
		return nil // reinterpret at ABI integer width
	case isIntLike(fb) && tb.Kind == ast.TypePointer:
		return nil
	case fb.Kind == ast.TypePointer && tb.Kind == ast.TypePointer:
		return nil
	}
	return errors.Newf(errors.InvalidState, "convert: unsupported conversion %v -> %v", fb.Kind, tb.Kind)
}

func isIntLike(t *ast.Type) bool {
	switch t.Kind {
	case ast.TypeBool, ast.TypeChar, ast.TypeInteger, ast.TypeBitInt, ast.TypeEnum:
		return true
	default:
		return false
	}
}

func boolImm(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func (tr *Translator) convertIntToInt(from, to *ast.Type) error {
	fw := intWidth(from)
	tw := intWidth(to)
	if from.Kind == ast.TypeBitInt || to.Kind == ast.TypeBitInt {
		if tw <= fw {
			tr.Emit(ir.OpBitIntTruncate, uint32(tw))
		} else {
			tr.Emit(ir.OpBitIntExtend, uint32(fw), uint32(tw), boolImm(target.Signed(from, tr.Traits)))
		}
		return nil
	}
	if tw == fw {
		return nil
	}
	if tw < fw {
		tr.Emit(ir.OpTruncate, uint32(tw))
		return nil
	}
	if target.Signed(from, tr.Traits) {
		tr.Emit(ir.OpSignExtend, uint32(fw), uint32(tw))
	} else {
		tr.Emit(ir.OpZeroExtend, uint32(fw), uint32(tw))
	}
	return nil
}

func intWidth(t *ast.Type) int {
	switch t.Kind {
	case ast.TypeBool:
		return 8
	case ast.TypeBitInt:
		return t.BitWidth
	default:
		return t.IntWidth
	}
}

func floatWidth(t *ast.Type) int {
	switch t.Float {
	case ast.FloatF32:
		return 32
	case ast.FloatF64:
		return 64
	default:
		return 128
	}
}

func (tr *Translator) convertFloatToFloat(from, to *ast.Type) error {
	if from.Float == to.Float {
		return nil
	}
	if to.Float == ast.FloatLongDouble {
		tr.Temps.AdvanceLongDoubleSlot()
	}
	tr.Emit(ir.OpFloatConvert, uint32(floatWidth(from)), uint32(floatWidth(to)))
	return nil
}

func (tr *Translator) convertComplex(from, to *ast.Type) error {
	if from.Kind == ast.TypeComplex && to.Kind != ast.TypeComplex {
		tr.Emit(ir.OpComplexDrop)
		if floatWidth(from) != floatWidth(to) {
			tr.Emit(ir.OpFloatConvert, uint32(floatWidth(from)), uint32(floatWidth(to)))
		}
		return nil
	}
	if from.Kind != ast.TypeComplex && to.Kind == ast.TypeComplex {
		if isIntLike(from) {
			tr.Emit(ir.OpIntToFloat, uint32(intWidth(from)), boolImm(target.Signed(from, tr.Traits)), uint32(floatWidth(to)))
		} else if floatWidth(from) != floatWidth(to) {
			tr.Emit(ir.OpFloatConvert, uint32(floatWidth(from)), uint32(floatWidth(to)))
		}
		tr.Emit(ir.OpComplexZeroImag)
		return nil
	}
	if floatWidth(from) != floatWidth(to) {
		switch to.Float {
		case ast.FloatF32:
			tr.Emit(ir.OpComplexFloatFrom)
		case ast.FloatF64:
			tr.Emit(ir.OpComplexDoubleFrom)
		default:
			tr.Emit(ir.OpComplexLongDoubleFrom)
		}
	}
	return nil
}

// convertToBool implements spec.md §4.7.3: per-source-type conversion to a
// normalized 8-bit boolean by comparing against a zero of the source type and
// inverting, so every source kind except bit-precise integers (a single
// OpBitIntToBool) ends in the same equality-then-BoolNot tail.
func (tr *Translator) convertToBool(from *ast.Type) error {
	switch {
	case from.Kind == ast.TypeBitInt:
		tr.Emit(ir.OpBitIntToBool, uint32(from.BitWidth))
	case from.Kind == ast.TypeFloat:
		switch from.Float {
		case ast.FloatF32:
			tr.Emit(ir.OpFloat32Const, 0)
			tr.Emit(ir.OpFloat32Eq)
		case ast.FloatF64:
			tr.Emit(ir.OpFloat64Const, 0, 0)
			tr.Emit(ir.OpFloat64Eq)
		default:
			tr.Emit(ir.OpLongDoubleConst)
			tr.Emit(ir.OpLongDoubleEq)
		}
		tr.Emit(ir.OpInt8BoolNot)
	case from.Kind == ast.TypeComplex:
		tr.Emit(ir.OpFloat64Const, 0, 0)
		tr.Emit(ir.OpFloat64Const, 0, 0)
		switch from.Float {
		case ast.FloatF32:
			tr.Emit(ir.OpComplexFloatFrom)
			tr.Emit(ir.OpComplexFloatEq)
		case ast.FloatF64:
			tr.Emit(ir.OpComplexDoubleFrom)
			tr.Emit(ir.OpComplexDoubleEq)
		default:
			tr.Emit(ir.OpComplexLongDoubleFrom)
			tr.Emit(ir.OpComplexLongDoubleEq)
		}
		tr.Emit(ir.OpInt8BoolNot)
	case from.Kind == ast.TypePointer:
		tr.Emit(ir.OpUintConst, 0, 0)
		tr.Emit(ir.OpInt64Eq)
		tr.Emit(ir.OpInt8BoolNot)
	default: // integer family, including bool/char/enum: nonzero test at width
		tr.Emit(ir.OpUintConst, 0, 0)
		tr.Emit(widthEqOp(intWidth(from)))
		tr.Emit(ir.OpInt8BoolNot)
	}
	return nil
}

func widthEqOp(w int) ir.OpCode {
	switch {
	case w <= 8:
		return ir.OpInt8Eq
	case w <= 16:
		return ir.OpInt16Eq
	case w <= 32:
		return ir.OpInt32Eq
	default:
		return ir.OpInt64Eq
	}
}
