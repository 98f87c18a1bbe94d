// Package translator implements the AST translator core of spec.md §4:
// the lvalue/value/expression/assignment/statement/function-definition
// translators (C5–C10) threaded through a shared TranslatorContext (C3).
package translator

import (
	"kefir/internal/ast"
	"kefir/internal/errors"
	"kefir/internal/ir"
	"kefir/internal/layout"
	"kefir/internal/target"
)

// Config carries the translator configuration flags spec.md §9 names.
type Config struct {
	// PreciseBitfieldLoadStore enables synthesizing split loads for
	// 24/40/48/56-bit bit-field spans rather than falling through to a
	// wider natural load (spec.md §4.6, Open Question 1 resolved in
	// SPEC_FULL.md §D.3: the fallthrough is treated as a latent bug and is
	// never taken when this flag is set).
	PreciseBitfieldLoadStore bool
}

// Hooks is the extension-plugin interface spec.md §4.3 describes
// ("Extensions see before_translate/after_translate for each node category,
// plus a translate_extension_node hook"). The extension loader itself is out
// of scope (spec.md §1); this is only the seam the core calls through.
type Hooks interface {
	BeforeTranslate(category ast.NodeCategory, node ast.Node)
	AfterTranslate(category ast.NodeCategory, node ast.Node)
	TranslateExtensionNode(node ast.Node) error
}

// Context is the process-wide-per-translation-unit state of spec.md §4.3
// (C3): module, target environment, global scope layout, debug-hierarchy
// stack, extension hooks. It owns the debug-entry stack; everything else is
// a reference the caller continues to own.
type Context struct {
	Module       *ir.Module
	Env          *target.Environment
	Traits       *target.Traits
	GlobalOracle *layout.Oracle
	GlobalScope  *ScopeLayout
	Config       Config

	debugStack []int
	hooks      []Hooks

	// currentFunctionDebugID is set while inside a function (spec.md §4.3
	// "the current function's debug-info record (set while inside a
	// function)"); -1 outside of one.
	currentFunctionDebugID int
}

// NewContext creates the per-translation-unit context with an empty
// debug-hierarchy stack; the module's compile-unit debug entry (id 0) is the
// parent PushDebugEntry uses while the stack is empty.
func NewContext(env *target.Environment, traits *target.Traits, cfg Config) *Context {
	m := ir.NewModule()
	return &Context{
		Module:                 m,
		Env:                    env,
		Traits:                 traits,
		GlobalOracle:           layout.NewOracle(env),
		GlobalScope:            NewRootScope(),
		Config:                 cfg,
		currentFunctionDebugID: -1,
	}
}

// RegisterHook adds an extension hook.
func (c *Context) RegisterHook(h Hooks) { c.hooks = append(c.hooks, h) }

func (c *Context) beforeTranslate(cat ast.NodeCategory, n ast.Node) {
	for _, h := range c.hooks {
		h.BeforeTranslate(cat, n)
	}
}

func (c *Context) afterTranslate(cat ast.NodeCategory, n ast.Node) {
	for _, h := range c.hooks {
		h.AfterTranslate(cat, n)
	}
}

// PushDebugEntry creates a debug entry under the current top of the
// debug-hierarchy stack (or the compile-unit root if empty) and pushes it,
// returning its id (spec.md §4.3).
func (c *Context) PushDebugEntry(tag ir.DebugTag) int {
	parent := 0
	if len(c.debugStack) > 0 {
		parent = c.debugStack[len(c.debugStack)-1]
	}
	id := c.Module.Debug.NewEntry(tag, parent)
	c.debugStack = append(c.debugStack, id)
	return id
}

// PopDebugEntry pops the top of the debug-hierarchy stack.
func (c *Context) PopDebugEntry() error {
	if len(c.debugStack) == 0 {
		return errors.New(errors.InternalError, "context: pop_debug_entry on empty stack")
	}
	c.debugStack = c.debugStack[:len(c.debugStack)-1]
	return nil
}

// TopDebugEntry returns the current top of the debug-hierarchy stack, or -1.
func (c *Context) TopDebugEntry() int {
	if len(c.debugStack) == 0 {
		return -1
	}
	return c.debugStack[len(c.debugStack)-1]
}

// DebugStackDepth returns the current depth of the debug-hierarchy stack,
// for checking that it returned to its function-entry depth (spec.md §3
// invariant (vi)).
func (c *Context) DebugStackDepth() int { return len(c.debugStack) }

// LocalContext is the per-function state spec.md §4.3 describes
// ("init_local(parent) -> local_context"): a local scope layout, the
// in-progress IR function, its instruction block, a local type-layout
// oracle, and a temporary allocator.
type LocalContext struct {
	*Context

	Parent *LocalContext // non-nil for nested statement-expression contexts

	FuncDecl   *ir.FunctionDecl
	Block      *ir.Block
	LocalScope *ScopeLayout
	LocalOracle *layout.Oracle
	Temps      *TempAllocator
	Flow       *FlowControl

	// ReturnType is the function's declared C return type, consulted by
	// VisitReturn to convert the returned value (ir.FunctionDecl.ResultType
	// only carries the already-erased IR type id, not enough to pick a
	// conversion opcode).
	ReturnType *ast.Type

	span ir.DebugSourceSpan

	// scratchCounter mints unique names for compiler-synthesized local slots
	// (spec.md leaves this entirely to the translator's discretion; see
	// unary.go's newScratchLocal).
	scratchCounter int
}

// InitLocal creates a LocalContext for a new function, per spec.md §4.3.
func (c *Context) InitLocal(decl *ir.FunctionDecl) *LocalContext {
	lc := &LocalContext{
		Context:     c,
		FuncDecl:    decl,
		Block:       ir.NewBlock(),
		LocalScope:  NewRootScope(),
		LocalOracle: layout.NewOracle(c.Env),
		Flow:        NewFlowControl(),
	}
	lc.Temps = NewTempAllocator(lc)
	c.currentFunctionDebugID = c.TopDebugEntry()
	return lc
}

// Free releases the local context's resources (spec.md §4.3 "free(local_context)").
func (c *Context) Free(lc *LocalContext) {
	lc.Block.Free()
	c.currentFunctionDebugID = -1
}

// SetSpan updates the source span attached to subsequently emitted
// instructions.
func (lc *LocalContext) SetSpan(file string, line, col int) {
	lc.span = ir.DebugSourceSpan{File: file, Function: lc.funcName(), Line: line, Column: col}
}

func (lc *LocalContext) funcName() string {
	if lc.FuncDecl == nil {
		return ""
	}
	return lc.FuncDecl.Name
}

// Emit appends an instruction to the current function's block, tagging it
// with the current source span (spec.md §4.2 via C2, threaded with debug
// info at the same point each instruction is appended).
func (lc *LocalContext) Emit(op ir.OpCode, imm ...uint32) int {
	return lc.Block.Append(op, lc.span, imm...)
}
