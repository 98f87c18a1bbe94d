package ir

import "testing"

func TestInternSymbolDeduplicatesByName(t *testing.T) {
	m := NewModule()
	a := m.InternSymbol("foo")
	b := m.InternSymbol("bar")
	c := m.InternSymbol("foo")
	if a != c {
		t.Fatalf("expected InternSymbol to dedupe: %d != %d", a, c)
	}
	if a == b {
		t.Fatalf("expected distinct ids for distinct names")
	}
	if m.SymbolName(a) != "foo" || m.SymbolName(b) != "bar" {
		t.Fatalf("SymbolName mismatch: %q %q", m.SymbolName(a), m.SymbolName(b))
	}
}

func TestInternStringDeduplicatesByEncodingAndContent(t *testing.T) {
	m := NewModule()
	id1 := m.InternString(0, []byte("hello"))
	id2 := m.InternString(0, []byte("hello"))
	id3 := m.InternString(1, []byte("hello"))
	if id1 != id2 {
		t.Fatalf("expected identical (encoding, content) to dedupe")
	}
	if id1 == id3 {
		t.Fatalf("expected different encodings to produce different symbols")
	}
	if len(m.Statics) != 2 {
		t.Fatalf("expected 2 static initializers, got %d", len(m.Statics))
	}
}

func TestDeclareFunctionAndDefineFunctionBody(t *testing.T) {
	m := NewModule()
	decl := m.DeclareFunction("f", []int{1, 2}, 1, false)
	block := NewBlock()
	block.Append(OpFunctionExit, DebugSourceSpan{})
	m.DefineFunctionBody(decl.ID, block)
	if len(m.Bodies) != 1 || m.Bodies[0].DeclID != decl.ID {
		t.Fatalf("expected one body keyed by %d, got %+v", decl.ID, m.Bodies)
	}
}

func TestNewAnonymousTagProducesUniqueNames(t *testing.T) {
	m := NewModule()
	a := m.NewAnonymousTag()
	b := m.NewAnonymousTag()
	if a == b {
		t.Fatalf("expected distinct anonymous tags, got %q twice", a)
	}
}
