package translator

import "kefir/internal/ast"

// Translator bundles the per-function LocalContext with the recursive
// expression/statement translation methods (C5–C9). One Translator exists
// per function being translated; it implements ast.ExprVisitor and
// ast.StmtVisitor so the AST's own Accept dispatch drives the walk, the same
// visitor-driven shape a Compiler/StmtCompiler split would use.
type Translator struct {
	*LocalContext

	// resultType is the Go-idiomatic stand-in for the visitor's "return
	// value": ast.ExprVisitor methods return only error (matching the
	// Accept(visitor) contract), so each Visit* method stashes the
	// translated expression's normalized type here before returning.
	resultType *ast.Type
}

// NewTranslator wraps lc in a Translator.
func NewTranslator(lc *LocalContext) *Translator {
	return &Translator{LocalContext: lc}
}

// TranslateExpr translates e as an rvalue, leaving its value on the virtual
// stack, and returns its normalized type (spec.md §3 invariant (i)).
func (tr *Translator) TranslateExpr(e ast.Expr) (*ast.Type, error) {
	prev := tr.resultType
	tr.resultType = nil
	if err := e.AcceptExpr(tr); err != nil {
		tr.resultType = prev
		return nil, err
	}
	result := tr.resultType
	tr.resultType = prev
	return result, nil
}
