package ast

// InitDeclarator pairs one declared name with its optional initializer; a
// Declaration groups init-declarators that share a common set of specifiers
// (spec.md §3 "declaration (list of init-declarators sharing specifiers)").
type InitDeclarator struct {
	base
	ScopedID    *ScopedIdentifier
	Initializer *Initializer
}

// Declaration is a declaration-category node.
type Declaration struct {
	base
	Specifiers StorageClass
	Declarators []*InitDeclarator
	// VariablyModified carries the runtime size expressions that must be
	// evaluated in declaration order before storage is touched (spec.md §4.9
	// "emit additional code to evaluate variably-modified types in order").
	VariablyModified []Expr
}

// InitializerKind tags an Initializer's arm.
type InitializerKind int

const (
	InitExpr InitializerKind = iota
	InitList
)

// InitializerListEntry is one (designation, value) pair of a brace
// initializer; Designation is nil for a plain positional entry.
type InitializerListEntry struct {
	Designation []Designator
	Value       *Initializer
}

// Designator is one `.field` or `[index]` component of a designated
// initializer.
type Designator struct {
	Field string // set for .field
	Index *int64 // set for [index], nil otherwise
}

// Initializer is either a single expression or a (possibly nested,
// possibly designated) brace-init-list.
type Initializer struct {
	Kind  InitializerKind
	Expr  Expr
	List  []InitializerListEntry
}

// FunctionDefinition is the top-level external-definition node C10 consumes.
type FunctionDefinition struct {
	base
	ScopedID   *ScopedIdentifier
	Type       *Type
	ParamNames []string // for K&R identifier-list definitions
	Body       *CompoundStmt
	LocalScope *LocalScopeTree
}

// LocalScopeTree is the analyzer's resolved local-scope tree for a function,
// consumed (not built) by the translator per spec.md §3 Lifecycle.
type LocalScopeTree struct {
	Identifiers []*ScopedIdentifier
	Children    []*LocalScopeTree
}

// TranslationUnit is the root node: an ordered sequence of external
// definitions (function definitions and file-scope declarations).
type TranslationUnit struct {
	base
	Functions    []*FunctionDefinition
	Declarations []*Declaration
}
