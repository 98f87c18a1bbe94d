package ast

// NodeCategory classifies an ASTNode's properties record, per spec.md §3.
type NodeCategory int

const (
	CategoryExpression NodeCategory = iota
	CategoryType
	CategoryDeclaration
	CategoryInitDeclarator
	CategoryStatement
	CategoryInlineAssembly
	CategoryTranslationUnit
)

// ValueCategory distinguishes lvalues from rvalues, populated by the analyzer.
type ValueCategory int

const (
	RValue ValueCategory = iota
	LValue
)

// ExprProperties is the properties record the analyzer attaches to every
// expression-category ASTNode (spec.md §3, §6 "Consumed from the analyzer").
type ExprProperties struct {
	Type          *Type
	ValueCategory ValueCategory
	IsAtomic      bool
	IsBitfield    bool
	BitfieldWidth int
	BitfieldStorageWidth int // enclosing storage-unit width, when IsBitfield

	// PreservedTemporary names a compiler-generated temporary the analyzer
	// reserved for this node (e.g. an aggregate-returning call, a va_arg
	// destination, a compound literal). Nil when the node needs none.
	PreservedTemporary *ScopedIdentifier

	// ScopedID back-references the identifier this node resolves to, for
	// identifier/enum-constant/function expression nodes.
	ScopedID *ScopedIdentifier
}

// DeclProperties is attached to declaration-category nodes.
type DeclProperties struct {
	Storage        StorageClass
	OriginalType   *Type // pre-decay (e.g. parameter arrays/functions)
	ScopedID       *ScopedIdentifier
}

// NodeProperties is the generic properties record; exactly one of the
// embedded sub-records is meaningful, selected by Category.
type NodeProperties struct {
	Category NodeCategory
	Expr     ExprProperties
	Decl     DeclProperties
}

// ExprKind tags the arm of the expression ASTNode variant (spec.md §3).
type ExprKind int

const (
	ExprIntConstant ExprKind = iota
	ExprFloatConstant
	ExprComplexConstant
	ExprBitIntConstant
	ExprCharConstant
	ExprBoolConstant
	ExprStringLiteral
	ExprIdentifier
	ExprGenericSelection
	ExprCompoundLiteral
	ExprCast
	ExprArraySubscript
	ExprMemberDirect
	ExprMemberIndirect
	ExprFunctionCall
	ExprUnary
	ExprBinary
	ExprTernary
	ExprComma
	ExprAssignment
	ExprBuiltin
	ExprLabelAddress
	ExprStatementExpression
)

// UnaryOp enumerates the unary operator kinds of spec.md §4.7.
type UnaryOp int

const (
	UnaryPlus UnaryOp = iota
	UnaryMinus
	UnaryBitNot
	UnaryLogicalNot
	UnaryPreInc
	UnaryPreDec
	UnaryPostInc
	UnaryPostDec
	UnaryAddressOf
	UnaryDeref
	UnarySizeof
	UnaryAlignof
)

// BinaryOp enumerates binary operator kinds, spec.md §4.7.4 and comparisons.
type BinaryOp int

const (
	BinAdd BinaryOp = iota
	BinSub
	BinMul
	BinDiv
	BinMod
	BinEq
	BinNe
	BinLt
	BinLe
	BinGt
	BinGe
	BinShl
	BinShr
	BinBitAnd
	BinBitOr
	BinBitXor
)

// AssignOp enumerates simple plus the 10 compound assignment variants.
type AssignOp int

const (
	AssignSimple AssignOp = iota
	AssignAdd
	AssignSub
	AssignMul
	AssignDiv
	AssignMod
	AssignShl
	AssignShr
	AssignBitAnd
	AssignBitOr
	AssignBitXor
)

// StringEncoding tags how a string literal's bytes were encoded.
type StringEncoding int

const (
	EncodingChar StringEncoding = iota
	EncodingWide
	EncodingUTF8
	EncodingUTF16
	EncodingUTF32
)

// BuiltinKind enumerates the recognized builtins of spec.md §6.
type BuiltinKind int

const (
	BuiltinVaStart BuiltinKind = iota
	BuiltinVaEnd
	BuiltinVaArg
	BuiltinVaCopy
	BuiltinAlloca
	BuiltinAllocaWithAlign
	BuiltinAllocaWithAlignAndMax
	BuiltinOffsetof
	BuiltinTypesCompatibleP
	BuiltinChooseExpr
	BuiltinConstantP
	BuiltinClassifyType
	BuiltinInff
	BuiltinInf
	BuiltinInfl
	BuiltinNanf
	BuiltinNan
	BuiltinNanl
	BuiltinAddOverflow
	BuiltinSubOverflow
	BuiltinMulOverflow
)

// Node is any AST node; every concrete node type also implements Properties.
type Node interface {
	Properties() *NodeProperties
}

// Expr is an expression-category node, visited via ExprVisitor.
type Expr interface {
	Node
	AcceptExpr(v ExprVisitor) error
}

// base embeds the properties record every node carries.
type base struct {
	Props NodeProperties
}

func (b *base) Properties() *NodeProperties { return &b.Props }

// --- expression node kinds -------------------------------------------------

type IntConstant struct {
	base
	Value  uint64
	Signed bool
}

func (n *IntConstant) AcceptExpr(v ExprVisitor) error { return v.VisitIntConstant(n) }

type FloatConstant struct {
	base
	Value float64
	Width FloatWidth
}

func (n *FloatConstant) AcceptExpr(v ExprVisitor) error { return v.VisitFloatConstant(n) }

type ComplexConstant struct {
	base
	Real, Imag float64
	Width      FloatWidth
}

func (n *ComplexConstant) AcceptExpr(v ExprVisitor) error { return v.VisitComplexConstant(n) }

type BitIntConstant struct {
	base
	Words  []uint64 // little-endian limbs
	Width  int
	Signed bool
}

func (n *BitIntConstant) AcceptExpr(v ExprVisitor) error { return v.VisitBitIntConstant(n) }

type CharConstant struct {
	base
	Value byte
}

func (n *CharConstant) AcceptExpr(v ExprVisitor) error { return v.VisitCharConstant(n) }

type BoolConstant struct {
	base
	Value bool
}

func (n *BoolConstant) AcceptExpr(v ExprVisitor) error { return v.VisitBoolConstant(n) }

type StringLiteral struct {
	base
	Bytes    []byte
	Encoding StringEncoding
}

func (n *StringLiteral) AcceptExpr(v ExprVisitor) error { return v.VisitStringLiteral(n) }

type Identifier struct {
	base
	Name string
}

func (n *Identifier) AcceptExpr(v ExprVisitor) error { return v.VisitIdentifier(n) }

type GenericSelection struct {
	base
	Resolved Expr // pre-resolved by the analyzer to a single arm
}

func (n *GenericSelection) AcceptExpr(v ExprVisitor) error { return v.VisitGenericSelection(n) }

type CompoundLiteral struct {
	base
	TypeName   *Type
	Initializer *Initializer
	Temporary  *ScopedIdentifier
}

func (n *CompoundLiteral) AcceptExpr(v ExprVisitor) error { return v.VisitCompoundLiteral(n) }

type Cast struct {
	base
	TargetType *Type
	Operand    Expr
}

func (n *Cast) AcceptExpr(v ExprVisitor) error { return v.VisitCast(n) }

type ArraySubscript struct {
	base
	Array Expr
	Index Expr
	// ArrayFirst records syntactic order (a[b] vs b[a]) so evaluation order
	// mirrors the source, per spec.md §4.5.
	ArrayFirst bool
}

func (n *ArraySubscript) AcceptExpr(v ExprVisitor) error { return v.VisitArraySubscript(n) }

type MemberAccess struct {
	base
	Object   Expr
	Member   string
	Indirect bool // true for ->, false for .
}

func (n *MemberAccess) AcceptExpr(v ExprVisitor) error { return v.VisitMemberAccess(n) }

type FunctionCall struct {
	base
	Callee Expr
	Args   []Expr
}

func (n *FunctionCall) AcceptExpr(v ExprVisitor) error { return v.VisitFunctionCall(n) }

type UnaryExpr struct {
	base
	Op      UnaryOp
	Operand Expr
	// AlignofOverride carries an explicit _Alignas override for UnaryAlignof.
	AlignofOverride *int
	// SizeofType is set instead of Operand for sizeof/alignof applied to a
	// type-name rather than an expression.
	SizeofType *Type
}

func (n *UnaryExpr) AcceptExpr(v ExprVisitor) error { return v.VisitUnary(n) }

type BinaryExpr struct {
	base
	Op          BinaryOp
	Left, Right Expr
}

func (n *BinaryExpr) AcceptExpr(v ExprVisitor) error { return v.VisitBinary(n) }

type LogicalExpr struct {
	base
	And         bool // true for &&, false for ||
	Left, Right Expr
}

func (n *LogicalExpr) AcceptExpr(v ExprVisitor) error { return v.VisitLogical(n) }

type TernaryExpr struct {
	base
	Cond, Then, Else Expr
}

func (n *TernaryExpr) AcceptExpr(v ExprVisitor) error { return v.VisitTernary(n) }

type CommaExpr struct {
	base
	Left, Right Expr
}

func (n *CommaExpr) AcceptExpr(v ExprVisitor) error { return v.VisitComma(n) }

type AssignmentExpr struct {
	base
	Op       AssignOp
	Target   Expr
	Value    Expr
}

func (n *AssignmentExpr) AcceptExpr(v ExprVisitor) error { return v.VisitAssignment(n) }

type BuiltinExpr struct {
	base
	Kind   BuiltinKind
	Args   []Expr
	Type   *Type   // for offsetof/types_compatible_p/classify_type argument types
	Type2  *Type
	Member string // for offsetof
	Folded interface{} // pre-folded constant result, when applicable
}

func (n *BuiltinExpr) AcceptExpr(v ExprVisitor) error { return v.VisitBuiltin(n) }

type LabelAddress struct {
	base
	Label *ScopedIdentifier
}

func (n *LabelAddress) AcceptExpr(v ExprVisitor) error { return v.VisitLabelAddress(n) }

type StatementExpression struct {
	base
	Items []BlockItem
}

func (n *StatementExpression) AcceptExpr(v ExprVisitor) error { return v.VisitStatementExpression(n) }

// ExprVisitor is the exhaustive pattern match over the expression variant
// (DESIGN NOTES: "the visitor becomes exhaustive pattern matching").
type ExprVisitor interface {
	VisitIntConstant(*IntConstant) error
	VisitFloatConstant(*FloatConstant) error
	VisitComplexConstant(*ComplexConstant) error
	VisitBitIntConstant(*BitIntConstant) error
	VisitCharConstant(*CharConstant) error
	VisitBoolConstant(*BoolConstant) error
	VisitStringLiteral(*StringLiteral) error
	VisitIdentifier(*Identifier) error
	VisitGenericSelection(*GenericSelection) error
	VisitCompoundLiteral(*CompoundLiteral) error
	VisitCast(*Cast) error
	VisitArraySubscript(*ArraySubscript) error
	VisitMemberAccess(*MemberAccess) error
	VisitFunctionCall(*FunctionCall) error
	VisitUnary(*UnaryExpr) error
	VisitBinary(*BinaryExpr) error
	VisitLogical(*LogicalExpr) error
	VisitTernary(*TernaryExpr) error
	VisitComma(*CommaExpr) error
	VisitAssignment(*AssignmentExpr) error
	VisitBuiltin(*BuiltinExpr) error
	VisitLabelAddress(*LabelAddress) error
	VisitStatementExpression(*StatementExpression) error
}
