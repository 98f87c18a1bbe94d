package translator

import (
	"encoding/binary"
	"math"

	"kefir/internal/ast"
	"kefir/internal/errors"
	"kefir/internal/layout"
)

// translateFileScopeDeclaration is the global-scope collaborator spec.md
// §4.9 delegates static/extern/thread-local emission to ("Emission happens
// during module-level layout"): it lays out each declared object and
// registers either its constant-folded byte image or, when it has no
// initializer, a BSS entry with nil bytes; the BSS entry records no size.
func (c *Context) translateFileScopeDeclaration(d *ast.Declaration) error {
	for _, decl := range d.Declarators {
		if err := c.translateFileScopeDeclarator(decl); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) translateFileScopeDeclarator(d *ast.InitDeclarator) error {
	id := d.ScopedID
	if id == nil {
		return nil
	}
	switch id.Storage {
	case ast.StorageTypedef, ast.StorageConstexpr, ast.StorageExtern, ast.StorageExternThreadLocal:
		// a pure declaration (no definition) contributes no storage.
		return nil
	}

	l, err := c.GlobalOracle.Compute(id.Type, layout.Global)
	if err != nil {
		return err
	}
	name := id.Name
	if id.AsmLabel != nil {
		name = *id.AsmLabel
	}

	if d.Initializer == nil {
		c.Module.AddStaticInitializer(name, nil)
		return nil
	}

	bytes := make([]byte, l.Size)
	if err := c.foldInitializerInto(bytes, 0, id.Type, l, d.Initializer); err != nil {
		return err
	}
	c.Module.AddStaticInitializer(name, bytes)
	return nil
}

// foldInitializerInto writes init's constant-folded byte image into buf at
// offset, dispatching on t's classification. Initializers the analyzer
// leaves un-folded (e.g. an address constant referencing another global) are
// left zero-filled at their slot, matching the common-case "BSS plus
// relocations applied by the linker" split a real backend would perform —
// relocation records themselves are out of scope here (spec.md §1).
func (c *Context) foldInitializerInto(buf []byte, offset int, t *ast.Type, l *layout.TypeLayout, init *ast.Initializer) error {
	base, _ := ast.Unqualify(t)
	if init.Kind == ast.InitList {
		return c.foldInitListInto(buf, offset, base, l, init.List)
	}
	return c.foldScalarInto(buf, offset, base, l, init.Expr)
}

func (c *Context) foldScalarInto(buf []byte, offset int, t *ast.Type, l *layout.TypeLayout, e ast.Expr) error {
	switch n := e.(type) {
	case *ast.IntConstant:
		putIntBytes(buf[offset:offset+l.Size], n.Value)
	case *ast.CharConstant:
		if len(buf) > offset {
			buf[offset] = n.Value
		}
	case *ast.BoolConstant:
		if n.Value && len(buf) > offset {
			buf[offset] = 1
		}
	case *ast.FloatConstant:
		switch n.Width {
		case ast.FloatF32:
			binary.LittleEndian.PutUint32(buf[offset:offset+4], math.Float32bits(float32(n.Value)))
		case ast.FloatF64:
			binary.LittleEndian.PutUint64(buf[offset:offset+8], math.Float64bits(n.Value))
		default:
			// long double: store the widened double bit pattern in the low
			// 8 bytes, leaving the extended-precision tail zero.
			binary.LittleEndian.PutUint64(buf[offset:offset+8], math.Float64bits(n.Value))
		}
	case *ast.StringLiteral:
		if t != nil && t.Kind == ast.TypeArray {
			copy(buf[offset:], n.Bytes)
			return nil
		}
		// pointer-to-string-literal initializer: would need a relocation
		// against the interned string symbol; left zero-filled (see
		// foldInitializerInto's doc comment).
	default:
		// a non-constant or address-constant initializer: left zero-filled.
	}
	return nil
}

func (c *Context) foldInitListInto(buf []byte, offset int, t *ast.Type, l *layout.TypeLayout, entries []ast.InitializerListEntry) error {
	if t == nil {
		return errors.New(errors.InvalidState, "global: brace initializer for an untyped declaration")
	}
	switch t.Kind {
	case ast.TypeArray:
		elemLayout := l.Fields[0].Layout
		for i, entry := range entries {
			idx := i
			for _, d := range entry.Designation {
				if d.Index != nil {
					idx = int(*d.Index)
				}
			}
			elemOffset := offset + idx*elemLayout.Size
			if elemOffset+elemLayout.Size > len(buf) {
				continue
			}
			if err := c.foldInitializerInto(buf, elemOffset, t.ElementType, elemLayout, entry.Value); err != nil {
				return err
			}
		}
		return nil
	case ast.TypeStruct, ast.TypeUnion:
		fieldIdx := 0
		for _, entry := range entries {
			idx := fieldIdx
			for _, d := range entry.Designation {
				if d.Field != "" {
					for fi, f := range l.Fields {
						if f.Name == d.Field {
							idx = fi
						}
					}
				}
			}
			if idx < 0 || idx >= len(l.Fields) {
				continue
			}
			fl := l.Fields[idx]
			if err := c.foldInitializerInto(buf, offset+fl.Offset, fl.Layout.Type, fl.Layout, entry.Value); err != nil {
				return err
			}
			fieldIdx = idx + 1
			if t.Kind == ast.TypeUnion {
				break
			}
		}
		return nil
	default:
		if len(entries) == 1 {
			return c.foldInitializerInto(buf, offset, t, l, entries[0].Value)
		}
		return nil
	}
}

func putIntBytes(buf []byte, v uint64) {
	switch len(buf) {
	case 1:
		buf[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(buf, v)
	default:
		for i := 0; i < len(buf) && i < 8; i++ {
			buf[i] = byte(v >> (8 * i))
		}
	}
}
