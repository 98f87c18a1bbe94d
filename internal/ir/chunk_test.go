package ir

import "testing"

func TestBlockAppendReturnsSequentialIndices(t *testing.T) {
	b := NewBlock()
	i0 := b.Append(OpInt32Add, DebugSourceSpan{}, 1, 2)
	i1 := b.Append(OpFunctionExit, DebugSourceSpan{})
	if i0 != 0 || i1 != 1 {
		t.Fatalf("expected indices 0,1, got %d,%d", i0, i1)
	}
	if b.CurrentIndex() != 2 {
		t.Fatalf("expected current index 2, got %d", b.CurrentIndex())
	}
	if b.Code[0].Nimm != 2 || b.Code[0].Imm[0] != 1 || b.Code[0].Imm[1] != 2 {
		t.Fatalf("unexpected immediates: %+v", b.Code[0])
	}
}

func TestPatchImmediateRewritesAPreviouslyEmittedSlot(t *testing.T) {
	b := NewBlock()
	idx := b.Append(OpJump, DebugSourceSpan{}, 0)
	if err := b.PatchImmediate(idx, 0, 42); err != nil {
		t.Fatalf("PatchImmediate: %v", err)
	}
	if b.Code[idx].Imm[0] != 42 {
		t.Fatalf("expected patched immediate 42, got %d", b.Code[idx].Imm[0])
	}
}

func TestPatchImmediateRejectsOutOfRangeIndex(t *testing.T) {
	b := NewBlock()
	b.Append(OpJump, DebugSourceSpan{}, 0)
	if err := b.PatchImmediate(5, 0, 1); err == nil {
		t.Fatalf("expected an error for an out-of-range instruction index")
	}
	if err := b.PatchImmediate(0, 9, 1); err == nil {
		t.Fatalf("expected an error for an out-of-range immediate slot")
	}
}

func TestFreeReleasesBackingStorage(t *testing.T) {
	b := NewBlock()
	b.Append(OpFunctionExit, DebugSourceSpan{})
	b.Free()
	if b.Code != nil || b.Debug != nil {
		t.Fatalf("expected Free to nil out both slices")
	}
}
