// Command kefirc is a thin inspection driver over the translator package: it
// reads a JSON-serialized AST fixture and target-environment descriptor,
// runs the translation, and prints the resulting IR module for inspection.
// It is not a C front end — parsing and semantic analysis stay out of scope
// (spec.md §1) and are stood in for by internal/fixture's deliberately
// narrow JSON schema.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"kefir/internal/fixture"
	"kefir/internal/translator"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "kefirc",
		Short: "inspect the AST-to-IR translator's output for a JSON fixture",
		SilenceErrors: true,
	}

	var outPath string
	var dumpDebug bool

	translateCmd := &cobra.Command{
		Use:   "translate <fixture.json>",
		Short: "translate a JSON AST fixture and print the resulting IR module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading fixture: %w", err)
			}
			env, traits, cfg, tree, err := fixture.Load(data)
			if err != nil {
				return err
			}

			results, err := translator.TranslateUnits(context.Background(), []translator.Unit{
				{Name: args[0], Tree: tree, Env: env, Traits: traits, Config: cfg},
			})
			if err != nil {
				return fmt.Errorf("translation batch aborted: %w", err)
			}

			out := os.Stdout
			if outPath != "" && outPath != "-" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("opening output: %w", err)
				}
				defer f.Close()
				out = f
			}

			failed := false
			for _, r := range results {
				if r.Err != nil {
					failed = true
					printDiagnostic(os.Stderr, r.Name, r.Err)
					continue
				}
				renderModule(out, r.Name, r.Context.Module, dumpDebug)
			}
			if failed {
				return errSilentTranslationFailure
			}
			return nil
		},
	}
	translateCmd.Flags().StringVarP(&outPath, "out", "o", "-", "output path, or - for stdout")
	translateCmd.Flags().BoolVar(&dumpDebug, "debug-info", false, "also print the debug-info tree")

	rootCmd.AddCommand(translateCmd)

	if err := rootCmd.Execute(); err != nil {
		if err != errSilentTranslationFailure {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// errSilentTranslationFailure signals a non-zero exit whose diagnostics were
// already printed per-unit by printDiagnostic, so main need not print it
// again with cobra's own "Error: " prefix.
var errSilentTranslationFailure = fmt.Errorf("translation failed")

func printDiagnostic(w *os.File, unit string, err error) {
	if isatty.IsTerminal(w.Fd()) {
		fmt.Fprintf(w, "\x1b[31m%s: %v\x1b[0m\n", unit, err)
		return
	}
	fmt.Fprintf(w, "%s: %v\n", unit, err)
}
