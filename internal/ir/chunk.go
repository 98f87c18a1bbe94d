package ir

import "kefir/internal/errors"

// Instruction is an opcode plus up to four immediate fields (spec.md §3).
// Multi-byte immediates (addresses, floating-point bit patterns) span
// multiple Imm slots, matching spec.md §6 "multi-byte immediates... span
// multiple immediates".
type Instruction struct {
	Op   OpCode
	Imm  [4]uint32
	Nimm int
}

// Block is the append-only instruction buffer of spec.md §4.2 (C2): a
// struct-oriented stream rather than a byte-oriented one, so immediates need
// no manual encode/decode, while keeping the same Append/patch_immediate
// shape a bytecode chunk would.
type Block struct {
	Code  []Instruction
	Debug []DebugSourceSpan
}

// DebugSourceSpan is the per-instruction source-location record threaded
// alongside each appended instruction: Line/Column/File plus a
// containing-function name for the per-function source map (spec.md §3
// "A per-function source map records (begin-ir-index, end-ir-index)").
type DebugSourceSpan struct {
	File, Function string
	Line, Column   int
}

func NewBlock() *Block {
	return &Block{}
}

// Append inserts an instruction, returning its index (spec.md §4.2).
func (b *Block) Append(op OpCode, span DebugSourceSpan, imm ...uint32) int {
	inst := Instruction{Op: op}
	n := copy(inst.Imm[:], imm)
	inst.Nimm = n
	b.Code = append(b.Code, inst)
	b.Debug = append(b.Debug, span)
	return len(b.Code) - 1
}

// CurrentIndex returns the index the next Append will use.
func (b *Block) CurrentIndex() int { return len(b.Code) }

// PatchImmediate rewrites a previously emitted instruction's immediate slot,
// used for forward branches and PUSH_LABEL back-patching (spec.md §4.2, §4.7
// label-address back-patch request, §8 scenario S6).
func (b *Block) PatchImmediate(index, slot int, value uint32) error {
	if index < 0 || index >= len(b.Code) {
		return errors.Newf(errors.OOM, "ir: patch_immediate: index %d out of range", index)
	}
	if slot < 0 || slot >= 4 {
		return errors.Newf(errors.InvalidParameter, "ir: patch_immediate: slot %d out of range", slot)
	}
	inst := &b.Code[index]
	if slot >= inst.Nimm {
		inst.Nimm = slot + 1
	}
	inst.Imm[slot] = value
	return nil
}

// Free releases the block's backing storage. The builder owns no external
// resources, so this only helps the GC reclaim large buffers promptly
// (spec.md §4.2 "free()").
func (b *Block) Free() {
	b.Code = nil
	b.Debug = nil
}
