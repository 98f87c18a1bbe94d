package translator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"kefir/internal/ast"
	"kefir/internal/target"
)

// Unit is one translation unit's inputs: its parsed/analyzed AST and the
// target environment it is to be translated against.
type Unit struct {
	Name   string
	Tree   *ast.TranslationUnit
	Env    *target.Environment
	Traits *target.Traits
	Config Config
}

// Result pairs one unit's outcome with the Context it produced; Context is
// set even when Err is non-nil.
type Result struct {
	Name    string
	Context *Context
	Err     error
}

// TranslateUnits implements spec.md §5's concurrency model: each translation
// unit gets its own independent Context (no shared mutable state) and is
// walked by a single-threaded worker; separate units run concurrently. This
// is the only place in the package that introduces goroutines — everything
// else is the strictly sequential, suspension-point-free walk §5 describes.
func TranslateUnits(ctx context.Context, units []Unit) ([]Result, error) {
	results := make([]Result, len(units))
	g, gctx := errgroup.WithContext(ctx)
	for i, u := range units {
		i, u := i, u
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			tc := NewContext(u.Env, u.Traits, u.Config)
			err := translateUnit(tc, u.Tree)
			results[i] = Result{Name: u.Name, Context: tc, Err: err}
			return nil
		})
	}
	// TranslateUnits never aborts the batch on a single unit's error (spec.md
	// §7: "the caller chooses whether to continue... useful for batch
	// diagnostics"); g.Wait only ever reports ctx cancellation.
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// translateUnit walks every function definition of tree, then every
// file-scope declaration (each list in its own order), stopping at the first error (spec.md §7: "the first error aborts the
// current function translation").
func translateUnit(tc *Context, tree *ast.TranslationUnit) error {
	for _, fn := range tree.Functions {
		if err := tc.TranslateFunction(fn); err != nil {
			return err
		}
	}
	for _, decl := range tree.Declarations {
		if err := tc.translateFileScopeDeclaration(decl); err != nil {
			return err
		}
	}
	return nil
}
