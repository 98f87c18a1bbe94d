package layout

import (
	"testing"

	"kefir/internal/ast"
	"kefir/internal/target"
)

func testEnv() *target.Environment {
	return &target.Environment{
		PointerWidth: 64, IntWidth: 32, LongWidth: 64, SizeTWidth: 64, PtrdiffWidth: 64,
		Align: func(aligns []int) int {
			max := 1
			for _, a := range aligns {
				if a > max {
					max = a
				}
			}
			return max
		},
	}
}

func TestComputeScalarSizesAndAlignments(t *testing.T) {
	o := NewOracle(testEnv())
	cases := []struct {
		name string
		t    *ast.Type
		size int
	}{
		{"int", &ast.Type{Kind: ast.TypeInteger, IntWidth: 32, IntSigned: true}, 4},
		{"long", &ast.Type{Kind: ast.TypeInteger, IntWidth: 64, IntSigned: true}, 8},
		{"char", &ast.Type{Kind: ast.TypeChar, IsCharType: true, IntWidth: 8}, 1},
		{"bool", &ast.Type{Kind: ast.TypeBool}, 1},
		{"pointer", &ast.Type{Kind: ast.TypePointer, Referenced: &ast.Type{Kind: ast.TypeVoid}}, 8},
		{"double", &ast.Type{Kind: ast.TypeFloat, Float: ast.FloatF64}, 8},
	}
	for _, c := range cases {
		l, err := o.Compute(c.t, Global)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if l.Size != c.size {
			t.Fatalf("%s: expected size %d, got %d", c.name, c.size, l.Size)
		}
		if l.Align != c.size {
			t.Fatalf("%s: expected natural alignment %d, got %d", c.name, c.size, l.Align)
		}
	}
}

func TestComputeRejectsVoidAndIncompleteAggregates(t *testing.T) {
	o := NewOracle(testEnv())
	if _, err := o.Compute(&ast.Type{Kind: ast.TypeVoid}, Global); err == nil {
		t.Fatalf("expected an error computing void's layout")
	}
	incomplete := &ast.Type{Kind: ast.TypeStruct, Tag: "s", Complete: false}
	if _, err := o.Compute(incomplete, Global); err == nil {
		t.Fatalf("expected an error computing an incomplete struct's layout")
	}
}

func TestComputeStructPadsFieldsToAlignment(t *testing.T) {
	o := NewOracle(testEnv())
	s := &ast.Type{
		Kind:     ast.TypeStruct,
		Tag:      "point",
		Complete: true,
		Fields: []ast.Field{
			{Name: "flag", Type: &ast.Type{Kind: ast.TypeChar, IsCharType: true, IntWidth: 8}},
			{Name: "value", Type: &ast.Type{Kind: ast.TypeInteger, IntWidth: 32, IntSigned: true}},
		},
	}
	l, err := o.Compute(s, Global)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(l.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(l.Fields))
	}
	if l.Fields[0].Offset != 0 {
		t.Fatalf("expected flag at offset 0, got %d", l.Fields[0].Offset)
	}
	if l.Fields[1].Offset != 4 {
		t.Fatalf("expected value aligned to offset 4, got %d", l.Fields[1].Offset)
	}
	if l.Size != 8 {
		t.Fatalf("expected struct size 8 (padded to int alignment), got %d", l.Size)
	}
}

func TestComputeUnionSizesToLargestMember(t *testing.T) {
	o := NewOracle(testEnv())
	u := &ast.Type{
		Kind:     ast.TypeUnion,
		Tag:      "u",
		Complete: true,
		Fields: []ast.Field{
			{Name: "b", Type: &ast.Type{Kind: ast.TypeChar, IsCharType: true, IntWidth: 8}},
			{Name: "i", Type: &ast.Type{Kind: ast.TypeInteger, IntWidth: 32, IntSigned: true}},
		},
	}
	l, err := o.Compute(u, Global)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	for _, f := range l.Fields {
		if f.Offset != 0 {
			t.Fatalf("expected every union member at offset 0, field %q was at %d", f.Name, f.Offset)
		}
	}
	if l.Size != 4 {
		t.Fatalf("expected union size 4 (largest member), got %d", l.Size)
	}
}

func TestFindFieldLocatesAMember(t *testing.T) {
	l := &TypeLayout{Fields: []FieldLayout{{Name: "a"}, {Name: "b"}}}
	f, err := FindField(l, "b")
	if err != nil {
		t.Fatalf("FindField: %v", err)
	}
	if f.Name != "b" {
		t.Fatalf("expected field %q, got %q", "b", f.Name)
	}
	if _, err := FindField(l, "missing"); err == nil {
		t.Fatalf("expected an error for a missing field")
	}
}
