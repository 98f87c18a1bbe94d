// Package target describes the external collaborators the translator reads
// but never owns: the target environment's ABI layout callbacks and the
// type-traits oracle (spec.md §6 "Consumed from the type-traits oracle").
package target

import "kefir/internal/ast"

// DataModelClass is the arithmetic classification spec.md §4.7.4 dispatches
// opcode selection on.
type DataModelClass int

const (
	ClassInt8 DataModelClass = iota
	ClassInt16
	ClassInt32
	ClassInt64
	ClassFloat
	ClassDouble
	ClassLongDouble
	ClassComplexFloat
	ClassComplexDouble
	ClassComplexLongDouble
	ClassBitInt
)

// Environment models the ABI layout callbacks and platform bit-widths a
// target exposes. Implementations are read-only and may be shared across
// concurrently-running translator workers (spec.md §5).
type Environment struct {
	// PointerWidth, IntWidth, LongWidth etc. in bits.
	PointerWidth int
	IntWidth     int
	LongWidth    int
	SizeTWidth   int
	PtrdiffWidth int

	// Align computes the natural alignment for an aggregate with
	// the given member alignments; kept as a function value so targets can
	// vary packing rules (ABI callback, per spec.md §4.1).
	Align func(memberAligns []int) int
}

// DefaultSystemV returns a System V x86-64-like environment: 64-bit
// pointers, long, size_t and ptrdiff_t, 32-bit int, and aggregate alignment
// equal to the largest member alignment.
func DefaultSystemV() *Environment {
	return &Environment{
		PointerWidth: 64,
		IntWidth:     32,
		LongWidth:    64,
		SizeTWidth:   64,
		PtrdiffWidth: 64,
		Align: func(memberAligns []int) int {
			max := 1
			for _, a := range memberAligns {
				if a > max {
					max = a
				}
			}
			return max
		},
	}
}

// Traits is the type-traits oracle: size_type/ptrdiff_type identity,
// character signedness, compatibility, and data-model classification.
type Traits struct {
	Env *Environment
	// CharacterSigned configures whether plain `char` is signed on this
	// target (spec.md §4.7 shift/§4.7.4 `%`/comparison character handling).
	CharacterSigned bool
	// ExtPointerArithmetics enables the GNU void*/function-pointer
	// arithmetic extension (spec.md §4.7.4), substituting IncompleteSubstitute
	// for the referenced type's size computation.
	ExtPointerArithmetics bool
	IncompleteSubstitute *ast.Type
}

// SizeType returns size_t as a concrete Type for this target.
func (t *Traits) SizeType() *ast.Type {
	return &ast.Type{Kind: ast.TypeInteger, IntWidth: t.Env.SizeTWidth, IntSigned: false}
}

// PtrdiffType returns ptrdiff_t as a concrete Type for this target.
func (t *Traits) PtrdiffType() *ast.Type {
	return &ast.Type{Kind: ast.TypeInteger, IntWidth: t.Env.PtrdiffWidth, IntSigned: true}
}

// CharacterTypeSignedness reports whether plain `char` is signed.
func (t *Traits) CharacterTypeSignedness() bool { return t.CharacterSigned }

// Signed reports the effective signedness of an arithmetic type.
func Signed(t *ast.Type, traits *Traits) bool {
	b, _ := ast.Unqualify(t)
	switch b.Kind {
	case ast.TypeInteger, ast.TypeChar:
		if b.IsCharType {
			return traits.CharacterTypeSignedness()
		}
		return b.IntSigned
	case ast.TypeBitInt:
		return b.BitSigned
	case ast.TypeEnum:
		if b.Underlying != nil {
			return Signed(b.Underlying, traits)
		}
		return true
	default:
		return false
	}
}

// Compatible reports C type compatibility. A faithful C11 compatibility
// relation lives with the (out-of-scope) analyzer; the translator only needs
// a conservative structural check for the narrow cases it queries (identical
// qualified pointee types for GNU extensions, etc.), so this stays minimal
// on purpose rather than reimplementing the full rule.
func Compatible(a, b *ast.Type) bool {
	ua, qa := ast.Unqualify(a)
	ub, qb := ast.Unqualify(b)
	if ua == nil || ub == nil {
		return ua == ub
	}
	if qa != qb || ua.Kind != ub.Kind {
		return false
	}
	switch ua.Kind {
	case ast.TypePointer:
		return Compatible(ua.Referenced, ub.Referenced)
	case ast.TypeInteger:
		return ua.IntWidth == ub.IntWidth && ua.IntSigned == ub.IntSigned && ua.IsCharType == ub.IsCharType
	case ast.TypeFloat, ast.TypeComplex:
		return ua.Float == ub.Float
	case ast.TypeStruct, ast.TypeUnion:
		return ua.Tag != "" && ua.Tag == ub.Tag
	default:
		return true
	}
}

// Classify returns the data-model classification spec.md §4.7.4 dispatches
// binary-operator opcode selection on.
func Classify(t *ast.Type) DataModelClass {
	b, _ := ast.Unqualify(t)
	switch b.Kind {
	case ast.TypeBitInt:
		return ClassBitInt
	case ast.TypeFloat:
		switch b.Float {
		case ast.FloatF32:
			return ClassFloat
		case ast.FloatF64:
			return ClassDouble
		default:
			return ClassLongDouble
		}
	case ast.TypeComplex:
		switch b.Float {
		case ast.FloatF32:
			return ClassComplexFloat
		case ast.FloatF64:
			return ClassComplexDouble
		default:
			return ClassComplexLongDouble
		}
	case ast.TypePointer:
		return ClassInt64
	default:
		w := b.IntWidth
		if b.Kind == ast.TypeBool {
			w = 8
		}
		switch {
		case w <= 8:
			return ClassInt8
		case w <= 16:
			return ClassInt16
		case w <= 32:
			return ClassInt32
		default:
			return ClassInt64
		}
	}
}
