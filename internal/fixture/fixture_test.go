package fixture

import "testing"

const sampleDoc = `{
  "env": {"pointer_width": 64, "int_width": 32, "long_width": 64, "size_t_width": 64, "ptrdiff_width": 64, "character_signed": true},
  "globals": [
    {"name": "counter", "type": "int", "init": {"kind": "int", "value": 0}}
  ],
  "functions": [
    {
      "name": "add",
      "return": "int",
      "params": [{"name": "a", "type": "int"}, {"name": "b", "type": "int"}],
      "body": [
        {"kind": "decl", "name": "sum", "type": "int", "init": {
          "kind": "binary", "op": "+",
          "left": {"kind": "id", "name": "a"},
          "right": {"kind": "id", "name": "b"}
        }},
        {"kind": "return", "value": {"kind": "id", "name": "sum"}}
      ]
    }
  ]
}`

func TestLoadDecodesFunctionsAndGlobals(t *testing.T) {
	env, traits, _, tu, err := Load([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if env.IntWidth != 32 || env.PointerWidth != 64 {
		t.Fatalf("unexpected env: %+v", env)
	}
	if traits.Env != env {
		t.Fatalf("traits.Env not wired to the decoded environment")
	}
	if len(tu.Declarations) != 1 || tu.Declarations[0].Declarators[0].ScopedID.Name != "counter" {
		t.Fatalf("global declaration not decoded: %+v", tu.Declarations)
	}
	if len(tu.Functions) != 1 {
		t.Fatalf("expected one function, got %d", len(tu.Functions))
	}
	fn := tu.Functions[0]
	if fn.ScopedID.Name != "add" || len(fn.LocalScope.Identifiers) != 2 {
		t.Fatalf("unexpected function shape: %+v", fn)
	}
	if len(fn.Body.Items) != 2 {
		t.Fatalf("expected 2 body items, got %d", len(fn.Body.Items))
	}
	if fn.Body.Items[0].Decl == nil {
		t.Fatalf("expected first body item to be a declaration")
	}
	if fn.Body.Items[1].Stmt == nil {
		t.Fatalf("expected second body item to be a return statement")
	}
}

func TestLoadRejectsUnknownType(t *testing.T) {
	_, _, _, _, err := Load([]byte(`{"functions":[{"name":"f","return":"blorp","body":[]}]}`))
	if err == nil {
		t.Fatalf("expected an error for an unknown type name")
	}
}

func TestLoadRejectsUndeclaredIdentifier(t *testing.T) {
	doc := `{"functions":[{"name":"f","return":"int","body":[
		{"kind":"return","value":{"kind":"id","name":"nope"}}
	]}]}`
	_, _, _, _, err := Load([]byte(doc))
	if err == nil {
		t.Fatalf("expected an error for an undeclared identifier")
	}
}
