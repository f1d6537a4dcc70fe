package bytecode

import (
	"testing"
)

func TestStackEffectFixed(t *testing.T) {
	tests := []struct {
		inst *Instruction
		want int
	}{
		{Inst(OpPushFloat, FloatArg(1)), 1},
		{Inst(OpPop), -1},
		{Inst(OpAdd), -1},
		{Inst(OpAssign, RefArg(Reference{Kind: RefLocal})), 0},
		{Inst(OpAssignPop, RefArg(Reference{Kind: RefLocal})), -1},
		{Inst(OpPushStringFloat, StringArg(1), FloatArg(2)), 2},
		{Inst(OpReturn), -1},
	}
	for _, tt := range tests {
		if got := tt.inst.StackEffect(); got != tt.want {
			t.Errorf("%s: StackEffect() = %d, want %d", tt.inst, got, tt.want)
		}
	}
}

func TestStackEffectVariable(t *testing.T) {
	tests := []struct {
		inst *Instruction
		want int
	}{
		{Inst(OpPushNFloats, ListSizeArg(3), FloatArg(1), FloatArg(2), FloatArg(3)), 3},
		{Inst(OpPushNOfStringFloats, ListSizeArg(2), StringArg(1), FloatArg(1), StringArg(2), FloatArg(2)), 4},
		{Inst(OpCreateList, ListSizeArg(4)), -3},
		{Inst(OpCreateAssociativeList, ListSizeArg(2)), -3},
		{Inst(OpCall, RefArg(Reference{Kind: RefLocal}), ListSizeArg(2)), -1},
		{Inst(OpCallStatement, RefArg(Reference{Kind: RefLocal}), ListSizeArg(2)), -2},
		{Inst(OpDereferenceCall, StringArg(1), ListSizeArg(1)), -1},
		{Inst(OpFormatString, StringArg(0), ListSizeArg(3)), -2},
	}
	for _, tt := range tests {
		if got := tt.inst.StackEffect(); got != tt.want {
			t.Errorf("%s: StackEffect() = %d, want %d", tt.inst, got, tt.want)
		}
	}
}

func TestArgAccessorPanicsOnKindMismatch(t *testing.T) {
	inst := Inst(OpPushFloat, FloatArg(1))
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic reading a float argument as a ref")
		}
	}()
	inst.RefAt(0)
}

func TestArgAccessorPanicsOutOfRange(t *testing.T) {
	inst := Inst(OpPushNull)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic reading a missing argument")
		}
	}()
	inst.FloatAt(0)
}

func TestLocationRoundTrip(t *testing.T) {
	loc := Location{File: "world.qll", Line: 40, Column: 7}
	items := []Item{
		Inst(OpPushNull),
		NewLabel("L"),
		&LocalVariable{Name: "x"},
	}
	for _, item := range items {
		if item.Location().IsValid() {
			t.Errorf("%s: zero location should be invalid", item)
		}
		item.SetLocation(loc)
		if got := item.Location(); got != loc {
			t.Errorf("%s: Location() = %v, want %v", item, got, loc)
		}
	}
	if loc.String() != "world.qll:40:7" {
		t.Errorf("unexpected location formatting %q", loc.String())
	}
}
