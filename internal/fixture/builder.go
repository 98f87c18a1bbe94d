package fixture

import (
	"kefir/internal/ast"
	"kefir/internal/errors"
	"kefir/internal/target"
)

// builder threads the per-translation-unit state the JSON fixture walk needs:
// the target's integer widths (for resolving "int"/"long"/etc. type names)
// and, while inside a function, the flat name -> identifier symbol table.
type builder struct {
	env  *target.Environment
	vars map[string]*ast.ScopedIdentifier
}

func (b *builder) resolveType(name string) (*ast.Type, error) {
	switch name {
	case "void":
		return &ast.Type{Kind: ast.TypeVoid}, nil
	case "bool", "_Bool":
		return &ast.Type{Kind: ast.TypeBool, IsBoolType: true, IntWidth: 8}, nil
	case "char":
		return &ast.Type{Kind: ast.TypeChar, IsCharType: true, IntWidth: 8, IntSigned: true}, nil
	case "unsigned char":
		return &ast.Type{Kind: ast.TypeChar, IsCharType: true, IntWidth: 8, IntSigned: false}, nil
	case "short":
		return &ast.Type{Kind: ast.TypeInteger, IntWidth: 16, IntSigned: true}, nil
	case "unsigned short":
		return &ast.Type{Kind: ast.TypeInteger, IntWidth: 16, IntSigned: false}, nil
	case "int", "":
		return &ast.Type{Kind: ast.TypeInteger, IntWidth: b.env.IntWidth, IntSigned: true}, nil
	case "unsigned int", "unsigned":
		return &ast.Type{Kind: ast.TypeInteger, IntWidth: b.env.IntWidth, IntSigned: false}, nil
	case "long":
		return &ast.Type{Kind: ast.TypeInteger, IntWidth: b.env.LongWidth, IntSigned: true}, nil
	case "unsigned long":
		return &ast.Type{Kind: ast.TypeInteger, IntWidth: b.env.LongWidth, IntSigned: false}, nil
	case "float":
		return &ast.Type{Kind: ast.TypeFloat, Float: ast.FloatF32}, nil
	case "double":
		return &ast.Type{Kind: ast.TypeFloat, Float: ast.FloatF64}, nil
	default:
		return nil, errors.Newf(errors.InvalidParameter, "fixture: unknown type name %q", name)
	}
}

func (b *builder) globalDeclaration(g declJSON) (*ast.Declaration, error) {
	t, err := b.resolveType(g.Type)
	if err != nil {
		return nil, err
	}
	id := &ast.ScopedIdentifier{Kind: ast.IdentObject, Name: g.Name, Storage: ast.StorageAuto, Type: t}
	decl := &ast.InitDeclarator{ScopedID: id}
	if g.Init != nil {
		e, err := b.expr(g.Init, t)
		if err != nil {
			return nil, err
		}
		decl.Initializer = &ast.Initializer{Kind: ast.InitExpr, Expr: e}
	}
	return &ast.Declaration{Declarators: []*ast.InitDeclarator{decl}}, nil
}

func (b *builder) function(f funcJSON) (*ast.FunctionDefinition, error) {
	retType, err := b.resolveType(f.Return)
	if err != nil {
		return nil, err
	}
	fnType := &ast.Type{Kind: ast.TypeFunction, Return: retType, ParamMode: ast.ParamList, Variadic: f.Variadic}

	b.vars = make(map[string]*ast.ScopedIdentifier, len(f.Params))
	params := make([]*ast.ScopedIdentifier, len(f.Params))
	for i, p := range f.Params {
		pt, err := b.resolveType(p.Type)
		if err != nil {
			return nil, err
		}
		fnType.Params = append(fnType.Params, ast.Parameter{Name: p.Name, Type: pt})
		id := &ast.ScopedIdentifier{Kind: ast.IdentObject, Name: p.Name, Storage: ast.StorageAuto, Type: pt}
		b.vars[p.Name] = id
		params[i] = id
	}

	storage := ast.StorageExtern
	if f.Static {
		storage = ast.StorageStatic
	}
	fnID := &ast.ScopedIdentifier{Kind: ast.IdentFunction, Name: f.Name, Type: fnType, FuncStorage: storage, LinkageName: f.Name}

	var locals []*ast.ScopedIdentifier
	items := make([]ast.BlockItem, 0, len(f.Body))
	for _, s := range f.Body {
		item, decl, err := b.blockItem(s, &locals)
		if err != nil {
			return nil, err
		}
		if decl != nil {
			items = append(items, ast.BlockItem{Decl: decl})
		} else {
			items = append(items, ast.BlockItem{Stmt: item})
		}
	}

	return &ast.FunctionDefinition{
		ScopedID: fnID,
		Type:     fnType,
		Body:     &ast.CompoundStmt{Items: items},
		LocalScope: &ast.LocalScopeTree{
			Identifiers: params,
			Children:    []*ast.LocalScopeTree{{Identifiers: locals}},
		},
	}, nil
}

// blockItem decodes one body entry. Exactly one of the return values
// (stmt, decl) is non-nil, mirroring ast.BlockItem's own split.
func (b *builder) blockItem(s stmtJSON, locals *[]*ast.ScopedIdentifier) (ast.Stmt, *ast.Declaration, error) {
	if s.Kind == "decl" {
		t, err := b.resolveType(s.Type)
		if err != nil {
			return nil, nil, err
		}
		id := &ast.ScopedIdentifier{Kind: ast.IdentObject, Name: s.Name, Storage: ast.StorageAuto, Type: t}
		b.vars[s.Name] = id
		*locals = append(*locals, id)
		d := &ast.InitDeclarator{ScopedID: id}
		if s.Init != nil {
			e, err := b.expr(s.Init, t)
			if err != nil {
				return nil, nil, err
			}
			d.Initializer = &ast.Initializer{Kind: ast.InitExpr, Expr: e}
		}
		return nil, &ast.Declaration{Declarators: []*ast.InitDeclarator{d}}, nil
	}
	st, err := b.stmt(s, locals)
	return st, nil, err
}

func (b *builder) stmt(s stmtJSON, locals *[]*ast.ScopedIdentifier) (ast.Stmt, error) {
	switch s.Kind {
	case "return":
		var v ast.Expr
		if s.Value != nil {
			e, err := b.expr(s.Value, nil)
			if err != nil {
				return nil, err
			}
			v = e
		}
		return &ast.ReturnStmt{Value: v}, nil
	case "expr":
		var v ast.Expr
		if s.Value != nil {
			e, err := b.expr(s.Value, nil)
			if err != nil {
				return nil, err
			}
			v = e
		}
		return &ast.ExpressionStmt{Expr: v}, nil
	case "if":
		cond, err := b.expr(s.Cond, nil)
		if err != nil {
			return nil, err
		}
		thenItem, thenDecl, err := b.blockItem(*s.Then, locals)
		if err != nil {
			return nil, err
		}
		thenStmt := thenItem
		if thenDecl != nil {
			thenStmt = &ast.CompoundStmt{Items: []ast.BlockItem{{Decl: thenDecl}}}
		}
		ifs := &ast.IfStmt{Cond: cond, Then: thenStmt}
		if s.Else != nil {
			elseItem, elseDecl, err := b.blockItem(*s.Else, locals)
			if err != nil {
				return nil, err
			}
			if elseDecl != nil {
				ifs.Else = &ast.CompoundStmt{Items: []ast.BlockItem{{Decl: elseDecl}}}
			} else {
				ifs.Else = elseItem
			}
		}
		return ifs, nil
	case "while":
		cond, err := b.expr(s.Cond, nil)
		if err != nil {
			return nil, err
		}
		body, err := b.stmt(*s.Body, locals)
		if err != nil {
			return nil, err
		}
		return &ast.WhileStmt{Cond: cond, Body: body}, nil
	case "for":
		var initItem *ast.BlockItem
		if s.ForInit != nil {
			st, decl, err := b.blockItem(*s.ForInit, locals)
			if err != nil {
				return nil, err
			}
			if decl != nil {
				initItem = &ast.BlockItem{Decl: decl}
			} else {
				initItem = &ast.BlockItem{Stmt: st}
			}
		}
		var cond, post ast.Expr
		if s.Cond != nil {
			e, err := b.expr(s.Cond, nil)
			if err != nil {
				return nil, err
			}
			cond = e
		}
		if s.Post != nil {
			e, err := b.expr(s.Post, nil)
			if err != nil {
				return nil, err
			}
			post = e
		}
		body, err := b.stmt(*s.Body, locals)
		if err != nil {
			return nil, err
		}
		return &ast.ForStmt{Init: initItem, Cond: cond, Post: post, Body: body}, nil
	case "block":
		items := make([]ast.BlockItem, 0, len(s.Items))
		for _, c := range s.Items {
			st, decl, err := b.blockItem(c, locals)
			if err != nil {
				return nil, err
			}
			if decl != nil {
				items = append(items, ast.BlockItem{Decl: decl})
			} else {
				items = append(items, ast.BlockItem{Stmt: st})
			}
		}
		return &ast.CompoundStmt{Items: items}, nil
	default:
		return nil, errors.Newf(errors.InvalidParameter, "fixture: unknown statement kind %q", s.Kind)
	}
}

var binaryOps = map[string]ast.BinaryOp{
	"+": ast.BinAdd, "-": ast.BinSub, "*": ast.BinMul, "/": ast.BinDiv, "%": ast.BinMod,
	"==": ast.BinEq, "!=": ast.BinNe, "<": ast.BinLt, "<=": ast.BinLe, ">": ast.BinGt, ">=": ast.BinGe,
	"<<": ast.BinShl, ">>": ast.BinShr, "&": ast.BinBitAnd, "|": ast.BinBitOr, "^": ast.BinBitXor,
}

var unaryOps = map[string]ast.UnaryOp{
	"-": ast.UnaryMinus, "+": ast.UnaryPlus, "~": ast.UnaryBitNot, "!": ast.UnaryLogicalNot,
}

var assignOps = map[string]ast.AssignOp{
	"=": ast.AssignSimple, "+=": ast.AssignAdd, "-=": ast.AssignSub, "*=": ast.AssignMul,
	"/=": ast.AssignDiv, "%=": ast.AssignMod, "<<=": ast.AssignShl, ">>=": ast.AssignShr,
	"&=": ast.AssignBitAnd, "|=": ast.AssignBitOr, "^=": ast.AssignBitXor,
}

// expr decodes one expression node and populates its analyzer-normally-owned
// properties record (type, value category, scoped-id) since no analyzer runs
// ahead of this tool (spec.md §1 leaves the parser/analyzer out of scope).
// hint, when non-nil, is used as the resolved type for integer literals so a
// `int x = 5;` declaration folds the constant at the declared width.
func (b *builder) expr(e *exprJSON, hint *ast.Type) (ast.Expr, error) {
	switch e.Kind {
	case "int":
		t := hint
		if t == nil {
			t, _ = b.resolveType("int")
		}
		n := &ast.IntConstant{Value: uint64(e.Value), Signed: true}
		n.Properties().Expr.Type = t
		return n, nil
	case "id":
		id, ok := b.vars[e.Name]
		if !ok {
			return nil, errors.Newf(errors.InvalidParameter, "fixture: undeclared identifier %q", e.Name)
		}
		n := &ast.Identifier{Name: e.Name}
		n.Properties().Expr.Type = id.Type
		n.Properties().Expr.ScopedID = id
		n.Properties().Expr.ValueCategory = ast.LValue
		return n, nil
	case "unary":
		op, ok := unaryOps[e.Op]
		if !ok {
			return nil, errors.Newf(errors.InvalidParameter, "fixture: unknown unary op %q", e.Op)
		}
		operand, err := b.expr(e.Operand, hint)
		if err != nil {
			return nil, err
		}
		n := &ast.UnaryExpr{Op: op, Operand: operand}
		n.Properties().Expr.Type = operand.Properties().Expr.Type
		return n, nil
	case "binary":
		op, ok := binaryOps[e.Op]
		if !ok {
			return nil, errors.Newf(errors.InvalidParameter, "fixture: unknown binary op %q", e.Op)
		}
		left, err := b.expr(e.Left, hint)
		if err != nil {
			return nil, err
		}
		right, err := b.expr(e.Right, left.Properties().Expr.Type)
		if err != nil {
			return nil, err
		}
		n := &ast.BinaryExpr{Op: op, Left: left, Right: right}
		switch op {
		case ast.BinEq, ast.BinNe, ast.BinLt, ast.BinLe, ast.BinGt, ast.BinGe:
			n.Properties().Expr.Type, _ = b.resolveType("int")
		default:
			n.Properties().Expr.Type = left.Properties().Expr.Type
		}
		return n, nil
	case "logical":
		left, err := b.expr(e.Left, nil)
		if err != nil {
			return nil, err
		}
		right, err := b.expr(e.Right, nil)
		if err != nil {
			return nil, err
		}
		n := &ast.LogicalExpr{And: e.And, Left: left, Right: right}
		n.Properties().Expr.Type, _ = b.resolveType("int")
		return n, nil
	case "assign":
		op, ok := assignOps[e.Op]
		if !ok {
			return nil, errors.Newf(errors.InvalidParameter, "fixture: unknown assignment op %q", e.Op)
		}
		target, err := b.expr(e.Target, nil)
		if err != nil {
			return nil, err
		}
		value, err := b.expr(e.Right, target.Properties().Expr.Type)
		if err != nil {
			return nil, err
		}
		n := &ast.AssignmentExpr{Op: op, Target: target, Value: value}
		n.Properties().Expr.Type = target.Properties().Expr.Type
		return n, nil
	default:
		return nil, errors.Newf(errors.InvalidParameter, "fixture: unknown expression kind %q", e.Kind)
	}
}
