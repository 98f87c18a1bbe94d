package ir

import (
	"fmt"

	"github.com/google/uuid"
)

// IRTypeEntryKind tags one entry of a named IR type's flat sequence
// (spec.md §3 "a flat sequence of type-entries: primitive, struct, union,
// array, pointer, bit-field, long-double").
type IRTypeEntryKind int

const (
	EntryPrimitive IRTypeEntryKind = iota
	EntryStruct
	EntryUnion
	EntryArray
	EntryPointer
	EntryBitfield
	EntryLongDouble
)

type IRTypeEntry struct {
	Kind     IRTypeEntryKind
	Size     int
	Align    int
	Count    int // array element count, struct/union member count
	BitWidth int // EntryBitfield width
}

// IRType is a named module-level IR type: a flat sequence of entries.
type IRType struct {
	ID      int
	Name    string
	Entries []IRTypeEntry
}

// FunctionDecl is a function declaration (spec.md §3 "a set of function
// declarations (name optional; id mandatory; parameter and result type
// ids)").
type FunctionDecl struct {
	ID         int
	Name       string // empty for anonymous/forward declarations
	ParamTypes []int
	ResultType int
	Variadic   bool
}

// FunctionBody is the instruction block for one function declaration.
type FunctionBody struct {
	DeclID int
	Block  *Block
}

// StaticInitializer is a module-level initializer keyed by symbol.
type StaticInitializer struct {
	Symbol string
	Bytes  []byte // BSS (zero) when nil
}

// Module is the IR Module of spec.md §3: named IR types, function
// declarations/bodies, a symbol table, static initializers, and a debug-info
// tree.
type Module struct {
	Types     []*IRType
	Functions []*FunctionDecl
	Bodies    []*FunctionBody
	Statics   []StaticInitializer
	Debug     *DebugTree

	symbolPool   []string
	symbolByName map[string]int
	stringPool   map[stringKey]int // encoding+content -> symbol id

	nextTypeID int
	nextFuncID int
}

type stringKey struct {
	encoding int
	content  string
}

func NewModule() *Module {
	return &Module{
		symbolByName: make(map[string]int),
		stringPool:   make(map[stringKey]int),
		Debug:        NewDebugTree(),
	}
}

// InternSymbol registers name in the module's string pool (used for symbol
// references: globals, functions, string literals), returning a stable id.
func (m *Module) InternSymbol(name string) int {
	if id, ok := m.symbolByName[name]; ok {
		return id
	}
	id := len(m.symbolPool)
	m.symbolPool = append(m.symbolPool, name)
	m.symbolByName[name] = id
	return id
}

func (m *Module) SymbolName(id int) string {
	if id < 0 || id >= len(m.symbolPool) {
		return ""
	}
	return m.symbolPool[id]
}

// InternString registers a string literal's bytes keyed by (encoding,
// content), returning the symbol id of the resulting module-level object
// (spec.md §4.7 "Register the bytes in the module's string pool").
func (m *Module) InternString(encoding int, bytes []byte) int {
	key := stringKey{encoding: encoding, content: string(bytes)}
	if id, ok := m.stringPool[key]; ok {
		return id
	}
	name := fmt.Sprintf(".L.str.%d", len(m.stringPool))
	id := m.InternSymbol(name)
	m.stringPool[key] = id
	m.Statics = append(m.Statics, StaticInitializer{Symbol: name, Bytes: append([]byte(nil), bytes...)})
	return id
}

// NewGlobalType registers a new named module-level IR type and returns it.
func (m *Module) NewGlobalType(name string) *IRType {
	t := &IRType{ID: m.nextTypeID, Name: name}
	m.nextTypeID++
	m.Types = append(m.Types, t)
	return t
}

// NewAnonymousTag mints a stable name for an analyzer-supplied struct/union
// that has no source tag, disambiguated with a uuid so concurrently
// translated translation units never collide when their outputs are linked
// together (spec.md §5 "independent translator context" per worker; §C of
// SPEC_FULL.md wires github.com/google/uuid for exactly this).
func (m *Module) NewAnonymousTag() string {
	return "kefir.anon." + uuid.NewString()
}

// DeclareFunction registers a function declaration.
func (m *Module) DeclareFunction(name string, paramTypes []int, resultType int, variadic bool) *FunctionDecl {
	d := &FunctionDecl{ID: m.nextFuncID, Name: name, ParamTypes: paramTypes, ResultType: resultType, Variadic: variadic}
	m.nextFuncID++
	m.Functions = append(m.Functions, d)
	return d
}

// DefineFunctionBody attaches an instruction block to a previously declared
// function.
func (m *Module) DefineFunctionBody(declID int, block *Block) {
	m.Bodies = append(m.Bodies, &FunctionBody{DeclID: declID, Block: block})
}

// AddStaticInitializer registers a symbol's static-storage initializer
// (spec.md §4.9 "Static/extern/thread-local objects... delegated to the
// global-scope collaborator").
func (m *Module) AddStaticInitializer(symbol string, bytes []byte) {
	m.Statics = append(m.Statics, StaticInitializer{Symbol: symbol, Bytes: bytes})
}
