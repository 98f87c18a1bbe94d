package main

import (
	"fmt"
	"io"

	"kefir/internal/ir"
)

// renderModule prints a translated module's functions, instructions, and
// static initializers in a flat, greppable form — a debug dump, not a
// stable serialization format.
func renderModule(w io.Writer, unit string, m *ir.Module, dumpDebug bool) {
	fmt.Fprintf(w, "; unit %s\n", unit)
	for _, decl := range m.Functions {
		body := findBody(m, decl.ID)
		fmt.Fprintf(w, "func %s#%d(params=%v result=%d variadic=%v)\n",
			decl.Name, decl.ID, decl.ParamTypes, decl.ResultType, decl.Variadic)
		if body == nil {
			fmt.Fprintln(w, "  <no body>")
			continue
		}
		for i, inst := range body.Block.Code {
			fmt.Fprintf(w, "  %4d: op#%d %v\n", i, inst.Op, inst.Imm[:inst.Nimm])
		}
	}
	for _, s := range m.Statics {
		if s.Bytes == nil {
			fmt.Fprintf(w, "static %s: bss\n", s.Symbol)
		} else {
			fmt.Fprintf(w, "static %s: %d bytes %x\n", s.Symbol, len(s.Bytes), s.Bytes)
		}
	}
	if dumpDebug {
		renderDebugTree(w, m.Debug, 0, 0)
	}
}

func findBody(m *ir.Module, declID int) *ir.FunctionBody {
	for _, b := range m.Bodies {
		if b.DeclID == declID {
			return b
		}
	}
	return nil
}

func renderDebugTree(w io.Writer, t *ir.DebugTree, id, depth int) {
	e := t.Entry(id)
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	fmt.Fprintf(w, "%sdebug#%d tag=%d name=%q low=%d high=%d\n", indent, e.ID, e.Tag, e.Attrs.Name, e.Attrs.LowPC, e.Attrs.HighPC)
	for _, child := range e.Children {
		renderDebugTree(w, t, child, depth+1)
	}
}
