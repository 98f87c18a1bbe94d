// Package layout implements the type-layout oracle (spec.md §4.1, C1):
// given a semantic type and target environment, compute a concrete layout
// (size, alignment, field offsets, bit-field placement, IR type id).
package layout

import (
	"kefir/internal/ast"
	"kefir/internal/errors"
	"kefir/internal/target"
)

// Kind distinguishes a local (function-aggregated) layout from a
// global/module-registered one, per spec.md §4.1.
type Kind int

const (
	Local Kind = iota
	Global
)

// BitfieldPlacement records a bit-field's absolute placement within its
// enclosing aggregate's storage.
type BitfieldPlacement struct {
	ByteOffset  int
	BitOffset   int // bit offset within the storage unit starting at ByteOffset
	Width       int
}

// FieldLayout is one computed struct/union member.
type FieldLayout struct {
	Name       string
	Offset     int // byte offset from the parent's start
	Layout     *TypeLayout
	Bitfield   *BitfieldPlacement
}

// VLADescriptor is the per-function table entry for a VLA's runtime element
// size (spec.md §4.1 "a separate descriptor in a per-function VLA-elements
// table").
type VLADescriptor struct {
	ElementSizeExpr interface{} // opaque handle back to the size expression
}

// TypeLayout is the concrete ABI-informed layout spec.md §3 describes.
type TypeLayout struct {
	Type      *ast.Type
	Kind      Kind
	Size      int
	Align     int
	IRTypeID  int

	Fields []FieldLayout // structs/unions, in declaration order

	// VLA layouts carry two synthetic fields, per spec.md §3.
	IsVLA       bool
	ArrayPtrOffset  int
	ArraySizeOffset int
	VLA         *VLADescriptor
}

// Oracle computes TypeLayouts for a given target environment and numbers
// their IR type ids, Global and Local from separate counters; it does not
// register types with an IR module.
type Oracle struct {
	Env    *target.Environment
	nextGlobalTypeID int
	nextLocalTypeID  int
	registered map[string]*TypeLayout // keyed by struct/union tag for reuse
}

func NewOracle(env *target.Environment) *Oracle {
	return &Oracle{Env: env, registered: make(map[string]*TypeLayout)}
}

// Compute lays out t, giving each computed layout the next IR type id from
// the Global counter when kind is Global, or from the Local counter otherwise.
func (o *Oracle) Compute(t *ast.Type, kind Kind) (*TypeLayout, error) {
	base, _ := ast.Unqualify(t)
	if base == nil {
		return nil, errors.New(errors.InvalidParameter, "layout: nil type")
	}

	switch base.Kind {
	case ast.TypeVoid:
		return nil, errors.New(errors.TypeUnsupported, "layout: void has no layout")

	case ast.TypeBool:
		return o.scalar(base, 1, 1, kind), nil

	case ast.TypeChar, ast.TypeInteger:
		bytes := base.IntWidth / 8
		if bytes == 0 {
			bytes = 1
		}
		return o.scalar(base, bytes, bytes, kind), nil

	case ast.TypeBitInt:
		bytes := (base.BitWidth + 7) / 8
		align := bytes
		if align > o.Env.PointerWidth/8 {
			align = o.Env.PointerWidth / 8
		}
		return o.scalar(base, bytes, align, kind), nil

	case ast.TypeFloat:
		switch base.Float {
		case ast.FloatF32:
			return o.scalar(base, 4, 4, kind), nil
		case ast.FloatF64:
			return o.scalar(base, 8, 8, kind), nil
		default:
			return o.scalar(base, 16, 16, kind), nil
		}

	case ast.TypeComplex:
		switch base.Float {
		case ast.FloatF32:
			return o.scalar(base, 8, 4, kind), nil
		case ast.FloatF64:
			return o.scalar(base, 16, 8, kind), nil
		default:
			return o.scalar(base, 32, 16, kind), nil
		}

	case ast.TypeEnum:
		u := base.Underlying
		if u == nil {
			u = &ast.Type{Kind: ast.TypeInteger, IntWidth: o.Env.IntWidth, IntSigned: true}
		}
		return o.Compute(u, kind)

	case ast.TypePointer, ast.TypeFunction:
		w := o.Env.PointerWidth / 8
		return o.scalar(base, w, w, kind), nil

	case ast.TypeArray:
		return o.computeArray(base, kind)

	case ast.TypeStruct, ast.TypeUnion:
		if !base.Complete {
			return nil, errors.Newf(errors.TypeIncomplete, "layout: incomplete type %q", base.Tag)
		}
		return o.computeAggregate(base, kind)
	}
	return nil, errors.Newf(errors.TypeUnsupported, "layout: unsupported type kind %v", base.Kind)
}

func (o *Oracle) scalar(t *ast.Type, size, align int, kind Kind) *TypeLayout {
	return &TypeLayout{Type: t, Kind: kind, Size: size, Align: align, IRTypeID: o.nextID(kind)}
}

func (o *Oracle) nextID(kind Kind) int {
	if kind == Global {
		id := o.nextGlobalTypeID
		o.nextGlobalTypeID++
		return id
	}
	id := o.nextLocalTypeID
	o.nextLocalTypeID++
	return id
}

func (o *Oracle) computeArray(t *ast.Type, kind Kind) (*TypeLayout, error) {
	if t.LengthClass == ast.ArrayVLA {
		ptrW := o.Env.PointerWidth / 8
		sizeW := o.Env.SizeTWidth / 8
		l := &TypeLayout{
			Type: t, Kind: kind, IsVLA: true,
			ArrayPtrOffset: 0, ArraySizeOffset: ptrW,
			Size: ptrW + sizeW, Align: ptrW,
			IRTypeID: o.nextID(kind),
			VLA:      &VLADescriptor{ElementSizeExpr: t.LengthExpr},
		}
		return l, nil
	}
	elem, err := o.Compute(t.ElementType, kind)
	if err != nil {
		return nil, err
	}
	n := t.ArrayLength
	if t.LengthClass == ast.ArrayUnbounded {
		n = 0
	}
	return &TypeLayout{
		Type: t, Kind: kind, Size: elem.Size * int(n), Align: elem.Align,
		IRTypeID: o.nextID(kind), Fields: []FieldLayout{{Name: "", Offset: 0, Layout: elem}},
	}, nil
}

func (o *Oracle) computeAggregate(t *ast.Type, kind Kind) (*TypeLayout, error) {
	agg := &TypeLayout{Type: t, Kind: kind, IRTypeID: o.nextID(kind)}

	offset := 0
	bitCursor := 0  // bits consumed in the current storage unit, for runs of bitfields
	storageUnitStart := 0
	maxAlign := 1

	flush := func() {
		if bitCursor > 0 {
			unitBytes := (bitCursor + 7) / 8
			offset = storageUnitStart + unitBytes
			bitCursor = 0
		}
	}

	for _, f := range t.Fields {
		fl, err := o.Compute(f.Type, kind)
		if err != nil {
			return nil, err
		}
		if fl.Align > maxAlign {
			maxAlign = fl.Align
		}

		if f.BitfieldWidth != nil {
			width := *f.BitfieldWidth
			if width < 0 || width > 64 {
				return nil, errors.Newf(errors.BitfieldTooWide, "layout: bit-field %q width %d out of range", f.Name, width)
			}
			unitBits := fl.Size * 8
			if bitCursor == 0 {
				storageUnitStart = offset
			}
			if bitCursor+width > unitBits {
				// crosses the storage unit: start a fresh one, matching the
				// original kefir's padding-to-next-unit behavior.
				offset = storageUnitStart + fl.Size
				storageUnitStart = offset
				bitCursor = 0
			}
			place := &BitfieldPlacement{ByteOffset: storageUnitStart, BitOffset: bitCursor, Width: width}
			agg.Fields = append(agg.Fields, FieldLayout{Name: f.Name, Offset: storageUnitStart, Layout: fl, Bitfield: place})
			bitCursor += width
			if t.Kind == ast.TypeUnion {
				bitCursor = 0
				storageUnitStart = 0
			}
			continue
		}

		flush()
		align := fl.Align
		if t.Kind == ast.TypeStruct {
			offset = alignUp(offset, align)
			agg.Fields = append(agg.Fields, FieldLayout{Name: f.Name, Offset: offset, Layout: fl})
			offset += fl.Size
		} else {
			agg.Fields = append(agg.Fields, FieldLayout{Name: f.Name, Offset: 0, Layout: fl})
			if fl.Size > offset {
				offset = fl.Size
			}
		}
	}
	flush()

	agg.Align = o.Env.Align([]int{maxAlign})
	agg.Size = alignUp(offset, agg.Align)
	if agg.Size == 0 {
		agg.Size = agg.Align
	}
	return agg, nil
}

func alignUp(v, align int) int {
	if align <= 1 {
		return v
	}
	return (v + align - 1) / align * align
}

// FindField looks up a direct member by name, returning its layout entry.
func FindField(l *TypeLayout, name string) (*FieldLayout, error) {
	for i := range l.Fields {
		if l.Fields[i].Name == name {
			return &l.Fields[i], nil
		}
	}
	return nil, errors.Newf(errors.InvalidState, "layout: no member %q", name)
}
