// Package ast models the semantically-resolved AST the translator consumes.
//
// Nothing here performs analysis: every Type, ScopedIdentifier and ASTNode
// arrives fully resolved by the (out of scope) parser/analyzer. The package
// only carries the tagged-variant data model spec.md §3 describes, sized to
// C's richer type system.
package ast

// TypeKind tags the arm of a Type variant.
type TypeKind int

const (
	TypeVoid TypeKind = iota
	TypeBool
	TypeChar
	TypeInteger
	TypeBitInt // bit-precise integer, N.Bits is significant
	TypeFloat
	TypeComplex
	TypePointer
	TypeArray
	TypeStruct
	TypeUnion
	TypeEnum
	TypeFunction
	TypeQualified
)

// FloatWidth distinguishes the three floating-point widths spec.md §4.1 names.
type FloatWidth int

const (
	FloatF32 FloatWidth = iota
	FloatF64
	FloatLongDouble
)

// ArrayLengthClass tags how an array's length is known.
type ArrayLengthClass int

const (
	ArrayUnbounded ArrayLengthClass = iota
	ArrayBoundedConst
	ArrayBoundedExpr // length known from a constant expression, not runtime-variable
	ArrayVLA
)

// ParameterMode tags a function type's parameter-list shape.
type ParameterMode int

const (
	ParamList ParameterMode = iota
	ParamKRIdentifierList
	ParamEmpty
)

// Qualifier bits, combinable on TypeQualified.
type Qualifier uint8

const (
	QualConst Qualifier = 1 << iota
	QualVolatile
	QualRestrict
	QualAtomic
)

func (q Qualifier) Has(bit Qualifier) bool { return q&bit != 0 }

// Field is one member of a struct/union type.
type Field struct {
	Name string
	Type *Type
	// BitfieldWidth, if non-nil, marks this field as a bit-field with the given
	// declared width (in bits). Absolute placement is computed by the
	// layout oracle (internal/layout), not stored here.
	BitfieldWidth *int
}

// Parameter is one entry of a function type's parameter list.
type Parameter struct {
	Name string // may be empty for abstract declarators
	Type *Type
}

// Type is the tagged type variant of spec.md §3.
type Type struct {
	Kind TypeKind

	// TypeInteger / TypeChar / TypeBool
	IntWidth    int // 8/16/32/64
	IntSigned   bool
	IsCharType  bool
	IsBoolType  bool

	// TypeBitInt
	BitWidth  int
	BitSigned bool

	// TypeFloat / TypeComplex
	Float FloatWidth

	// TypePointer
	Referenced  *Type
	IsNullPtr   bool // the analyzer's resolved null-pointer-constant marker

	// TypeArray
	ElementType  *Type
	LengthClass  ArrayLengthClass
	ArrayLength  int64 // valid when LengthClass == ArrayBoundedConst
	LengthExpr   interface{} // opaque AST expr handle, valid for ArrayBoundedExpr/ArrayVLA

	// TypeStruct / TypeUnion
	Tag       string
	Complete  bool
	Fields    []Field

	// TypeEnum
	Underlying *Type

	// TypeFunction
	Return     *Type
	ParamMode  ParameterMode
	Params     []Parameter
	Variadic   bool

	// TypeQualified
	Base  *Type
	Quals Qualifier
}

// Unqualify strips qualifiers, returning the base type and the accumulated
// qualifier bits (possibly 0).
func Unqualify(t *Type) (*Type, Qualifier) {
	var q Qualifier
	for t != nil && t.Kind == TypeQualified {
		q |= t.Quals
		t = t.Base
	}
	return t, q
}

// IsScalar reports whether t (after stripping qualifiers) is an arithmetic
// or pointer type — i.e. directly loadable into a single IR value slot.
func IsScalar(t *Type) bool {
	b, _ := Unqualify(t)
	if b == nil {
		return false
	}
	switch b.Kind {
	case TypeBool, TypeChar, TypeInteger, TypeBitInt, TypeFloat, TypeComplex, TypePointer, TypeEnum:
		return true
	default:
		return false
	}
}

// IsAggregate reports whether t is a struct, union, or array type.
func IsAggregate(t *Type) bool {
	b, _ := Unqualify(t)
	if b == nil {
		return false
	}
	return b.Kind == TypeStruct || b.Kind == TypeUnion || b.Kind == TypeArray
}

// IsVLA reports whether t names a variable-length array.
func IsVLA(t *Type) bool {
	b, _ := Unqualify(t)
	return b != nil && b.Kind == TypeArray && b.LengthClass == ArrayVLA
}
