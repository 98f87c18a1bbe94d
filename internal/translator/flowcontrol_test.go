package translator

import (
	"testing"

	"kefir/internal/ir"
)

func TestCheckBalancedAcceptsAnEmptyFlowControl(t *testing.T) {
	f := NewFlowControl()
	if err := f.checkBalanced(); err != nil {
		t.Fatalf("expected an empty FlowControl to be balanced, got %v", err)
	}
}

func TestCheckBalancedRejectsAnOpenLoop(t *testing.T) {
	f := NewFlowControl()
	f.PushLoop(0)
	if err := f.checkBalanced(); err == nil {
		t.Fatalf("expected an open loop to be reported as unbalanced")
	}
}

func TestCheckBalancedRejectsAnUndefinedGotoLabel(t *testing.T) {
	f := NewFlowControl()
	f.RegisterLabelBackpatch("nowhere", 0, 0)
	if err := f.checkBalanced(); err == nil {
		t.Fatalf("expected a pending back-patch to an undefined label to be reported")
	}
}

func TestPushLoopRecordsBreakAndContinueAgainstTheInnermostLoop(t *testing.T) {
	f := NewFlowControl()
	block := ir.NewBlock()
	f.PushLoop(0)
	breakIdx := block.Append(ir.OpJump, ir.DebugSourceSpan{}, 0)
	if err := f.RecordBreak(breakIdx); err != nil {
		t.Fatalf("RecordBreak: %v", err)
	}
	continueIdx := block.Append(ir.OpJump, ir.DebugSourceSpan{}, 0)
	if err := f.RecordContinue(continueIdx); err != nil {
		t.Fatalf("RecordContinue: %v", err)
	}
	if err := f.PopLoop(block, 100, 200); err != nil {
		t.Fatalf("PopLoop: %v", err)
	}
	if block.Code[breakIdx].Imm[0] != 100 {
		t.Fatalf("expected break to patch to 100, got %d", block.Code[breakIdx].Imm[0])
	}
	if block.Code[continueIdx].Imm[0] != 200 {
		t.Fatalf("expected continue to patch to 200, got %d", block.Code[continueIdx].Imm[0])
	}
	if err := f.checkBalanced(); err != nil {
		t.Fatalf("expected the loop to be closed after PopLoop: %v", err)
	}
}

func TestRecordBreakOutsideAnyLoopOrSwitchIsAnError(t *testing.T) {
	f := NewFlowControl()
	if err := f.RecordBreak(0); err == nil {
		t.Fatalf("expected break outside a loop/switch to be an error")
	}
}

func TestSwitchFrameTracksCaseAndDefaultTargets(t *testing.T) {
	f := NewFlowControl()
	f.PushSwitch(nil, nil)
	sf, err := f.CurrentSwitch()
	if err != nil {
		t.Fatalf("CurrentSwitch: %v", err)
	}
	sf.RecordCase(1, 1, 10)
	sf.RecordCase(5, 9, 20)
	sf.RecordDefault(30)
	if len(sf.cases) != 2 || sf.defaultAt != 30 {
		t.Fatalf("unexpected switch frame state: %+v", sf)
	}
	block := ir.NewBlock()
	if err := f.PopSwitch(block, 99); err != nil {
		t.Fatalf("PopSwitch: %v", err)
	}
	if err := f.checkBalanced(); err != nil {
		t.Fatalf("expected the switch to be closed after PopSwitch: %v", err)
	}
}

func TestVLAScopeTracksRegisteredAllocations(t *testing.T) {
	f := NewFlowControl()
	f.PushVLAScope()
	f.RegisterVLA(3)
	if !f.HasOpenVLA() {
		t.Fatalf("expected HasOpenVLA to report true once a VLA is registered")
	}
	allocs := f.PopVLAScope()
	if len(allocs) != 1 || allocs[0].ptrLocal != 3 {
		t.Fatalf("unexpected allocations: %+v", allocs)
	}
	if f.HasOpenVLA() {
		t.Fatalf("expected no open VLA after PopVLAScope")
	}
	if err := f.checkBalanced(); err != nil {
		t.Fatalf("expected balanced flow control after the VLA scope closed: %v", err)
	}
}
