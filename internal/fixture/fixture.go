// Package fixture decodes the JSON-serialized AST fixtures cmd/kefirc reads
// for inspection. It is deliberately narrow: the full C grammar arrives
// pre-resolved from an (out-of-scope) parser/analyzer per spec.md §1, so this
// package only needs to cover the subset of expressions, statements, and
// declarations useful for exercising the translator end to end — scalar
// int/unsigned/long/bool/void arithmetic over straight-line and structured
// control flow, not a second C front end.
package fixture

import (
	"encoding/json"

	"kefir/internal/ast"
	"kefir/internal/errors"
	"kefir/internal/target"
	"kefir/internal/translator"
)

// Document is the top-level fixture shape: a target-environment descriptor
// plus a translation unit's external definitions.
type Document struct {
	Env       envJSON    `json:"env"`
	Config    configJSON `json:"config"`
	Functions []funcJSON `json:"functions"`
	Globals   []declJSON `json:"globals"`
}

type envJSON struct {
	PointerWidth    int  `json:"pointer_width"`
	IntWidth        int  `json:"int_width"`
	LongWidth       int  `json:"long_width"`
	SizeTWidth      int  `json:"size_t_width"`
	PtrdiffWidth    int  `json:"ptrdiff_width"`
	CharacterSigned bool `json:"character_signed"`
}

type configJSON struct {
	PreciseBitfieldLoadStore bool `json:"precise_bitfield_load_store"`
}

type paramJSON struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type funcJSON struct {
	Name     string      `json:"name"`
	Return   string      `json:"return"`
	Params   []paramJSON `json:"params"`
	Body     []stmtJSON  `json:"body"`
	Static   bool        `json:"static"`
	Variadic bool        `json:"variadic"`
}

type declJSON struct {
	Name string   `json:"name"`
	Type string   `json:"type"`
	Init *exprJSON `json:"init"`
}

// stmtJSON is a tagged-union statement node; Kind selects which other fields
// are meaningful. "decl" is the one kind that decodes into a BlockItem.Decl
// arm instead of BlockItem.Stmt (ast.BlockItem mirrors the same split).
type stmtJSON struct {
	Kind string `json:"kind"`

	// "decl"
	Name string    `json:"name"`
	Type string    `json:"type"`
	Init *exprJSON `json:"init"`

	// "return" / "expr"
	Value *exprJSON `json:"value"`

	// "if" / "while" / "for"
	Cond *exprJSON `json:"cond"`
	Then *stmtJSON `json:"then"`
	Else *stmtJSON `json:"else"`
	Body *stmtJSON `json:"body"`

	// "for"
	ForInit *stmtJSON `json:"for_init"`
	Post    *exprJSON `json:"post"`

	// "block"
	Items []stmtJSON `json:"items"`
}

// exprJSON is a tagged-union expression node.
type exprJSON struct {
	Kind string `json:"kind"`

	Value  int64      `json:"value"`  // "int"
	Name   string     `json:"name"`   // "id"
	Op     string     `json:"op"`     // "unary" / "binary" / "assign"
	And    bool       `json:"and"`    // "logical"
	Operand *exprJSON `json:"operand"` // "unary"
	Left   *exprJSON  `json:"left"`
	Right  *exprJSON  `json:"right"`
	Target *exprJSON  `json:"target"` // "assign"
}

// Load decodes data into a translator-ready target environment/traits,
// config, and translation unit.
func Load(data []byte) (*target.Environment, *target.Traits, translator.Config, *ast.TranslationUnit, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, translator.Config{}, nil, errors.Newf(errors.InvalidParameter, "fixture: invalid JSON: %v", err)
	}
	env := &target.Environment{
		PointerWidth: orDefault(doc.Env.PointerWidth, 64),
		IntWidth:     orDefault(doc.Env.IntWidth, 32),
		LongWidth:    orDefault(doc.Env.LongWidth, 64),
		SizeTWidth:   orDefault(doc.Env.SizeTWidth, 64),
		PtrdiffWidth: orDefault(doc.Env.PtrdiffWidth, 64),
		Align: func(memberAligns []int) int {
			max := 1
			for _, a := range memberAligns {
				if a > max {
					max = a
				}
			}
			return max
		},
	}
	traits := &target.Traits{Env: env, CharacterSigned: doc.Env.CharacterSigned}
	cfg := translator.Config{PreciseBitfieldLoadStore: doc.Config.PreciseBitfieldLoadStore}

	b := &builder{env: env}
	tu := &ast.TranslationUnit{}
	for _, g := range doc.Globals {
		d, err := b.globalDeclaration(g)
		if err != nil {
			return nil, nil, translator.Config{}, nil, err
		}
		tu.Declarations = append(tu.Declarations, d)
	}
	for _, f := range doc.Functions {
		fn, err := b.function(f)
		if err != nil {
			return nil, nil, translator.Config{}, nil, err
		}
		tu.Functions = append(tu.Functions, fn)
	}
	return env, traits, cfg, tu, nil
}

func orDefault(v, d int) int {
	if v == 0 {
		return d
	}
	return v
}
