package optimizer

import (
	"errors"
	"testing"

	"github.com/quill-lang/quill/pkg/bytecode"
)

// checkWellFormed validates the structural invariants every Convert result
// must satisfy: symmetric edges, reachable non-entry blocks, canonical and
// referenced labels, and jump targets that resolve to blocks in the list.
func checkWellFormed(t *testing.T, blocks []*Block) {
	t.Helper()

	inList := make(map[*Block]bool, len(blocks))
	for _, b := range blocks {
		inList[b] = true
	}
	labels := make(map[string]*Block)
	refs := make(map[string]int)
	for i, b := range blocks {
		for j, item := range b.Items {
			if label, ok := item.(*bytecode.Label); ok {
				if j != 0 {
					t.Errorf("block %d: label %q at position %d", b.ID, label.Name, j)
				}
				labels[label.Name] = b
			}
		}
		if i > 0 && len(b.Predecessors) == 0 {
			t.Errorf("block %d is unreachable", b.ID)
		}
		for _, succ := range b.Successors {
			if !inList[succ] {
				t.Errorf("block %d has successor outside the list", b.ID)
			}
			found := false
			for _, pred := range succ.Predecessors {
				if pred == b {
					found = true
				}
			}
			if !found {
				t.Errorf("edge %d->%d missing its predecessor half", b.ID, succ.ID)
			}
		}
		for _, pred := range b.Predecessors {
			if !pred.HasSuccessor(b) {
				t.Errorf("edge %d->%d missing its successor half", pred.ID, b.ID)
			}
		}
	}
	for _, b := range blocks {
		for _, item := range b.Items {
			inst, ok := item.(*bytecode.Instruction)
			if !ok {
				continue
			}
			for _, arg := range inst.Args {
				name, ok := arg.(bytecode.LabelArg)
				if !ok {
					continue
				}
				if _, exists := labels[string(name)]; !exists {
					t.Errorf("block %d: %s names missing label %q", b.ID, inst.Op, name)
				}
				refs[string(name)]++
			}
		}
	}
	for name := range labels {
		if refs[name] == 0 {
			t.Errorf("label %q survives with no references", name)
		}
	}
}

func TestConvertDeadJumpLayout(t *testing.T) {
	items := Peephole([]bytecode.Item{
		bytecode.Inst(bytecode.OpJump, bytecode.LabelArg("A")),
		bytecode.Inst(bytecode.OpJump, bytecode.LabelArg("B")),
		bytecode.NewLabel("A"),
		bytecode.Inst(bytecode.OpReturn),
	})

	blocks, err := Convert(items, "dead_jump")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkWellFormed(t, blocks)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if len(blocks[0].Items) != 1 || blocks[0].FirstInstruction().Op != bytecode.OpJump {
		t.Fatalf("expected entry {JUMP A}, got %v", blocks[0].Items)
	}
	if len(blocks[0].Successors) != 1 || blocks[0].Successors[0] != blocks[1] {
		t.Fatalf("expected the single edge block0->block1")
	}
	if len(blocks[1].Items) != 2 {
		t.Fatalf("expected {A:, RETURN}, got %v", blocks[1].Items)
	}
}

func TestConvertAliasCollapse(t *testing.T) {
	items := []bytecode.Item{
		bytecode.Inst(bytecode.OpJump, bytecode.LabelArg("Y")),
		bytecode.NewLabel("X"),
		bytecode.NewLabel("Y"),
		bytecode.Inst(bytecode.OpPushFloat, bytecode.FloatArg(0)),
		bytecode.Inst(bytecode.OpReturn),
	}

	blocks, err := Convert(items, "alias_collapse")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkWellFormed(t, blocks)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	jump := blocks[0].FirstInstruction()
	if jump.LabelAt(0) != "X" {
		t.Fatalf("expected jump rewritten to canonical X, got %q", jump.LabelAt(0))
	}
	label, ok := blocks[1].Items[0].(*bytecode.Label)
	if !ok || label.Name != "X" {
		t.Fatalf("expected canonical label X, got %s", blocks[1].Items[0])
	}
	for _, b := range blocks {
		for _, item := range b.Items {
			if l, ok := item.(*bytecode.Label); ok && l.Name == "Y" {
				t.Fatalf("aliased label Y survived")
			}
		}
	}
}

func TestConvertJumpForwarding(t *testing.T) {
	items := []bytecode.Item{
		bytecode.Inst(bytecode.OpJumpIfTrue, bytecode.LabelArg("L1")),
		bytecode.NewLabel("L1"),
		bytecode.Inst(bytecode.OpJump, bytecode.LabelArg("L2")),
		bytecode.NewLabel("L2"),
		bytecode.Inst(bytecode.OpReturn),
	}

	blocks, err := Convert(items, "forwarding")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkWellFormed(t, blocks)
	if len(blocks) != 2 {
		t.Fatalf("expected the trampoline block deleted, got %d blocks", len(blocks))
	}
	jump := blocks[0].FirstInstruction()
	if jump.Op != bytecode.OpJumpIfTrue || jump.LabelAt(0) != "L2" {
		t.Fatalf("expected JUMP_IF_TRUE L2, got %s", jump)
	}
	label := blocks[1].Items[0].(*bytecode.Label)
	if label.Name != "L2" {
		t.Fatalf("expected block1 to start with L2, got %s", blocks[1].Items[0])
	}
}

func TestConvertTryThrowRouting(t *testing.T) {
	items := []bytecode.Item{
		bytecode.Inst(bytecode.OpTry, bytecode.LabelArg("CATCH")),
		bytecode.Inst(bytecode.OpCall, ref(0), bytecode.ListSizeArg(0)),
		bytecode.Inst(bytecode.OpThrow),
		bytecode.NewLabel("CATCH"),
		bytecode.Inst(bytecode.OpReturn),
	}

	blocks, err := Convert(items, "try_throw")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkWellFormed(t, blocks)
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}
	callBlock, throwBlock, catchBlock := blocks[0], blocks[1], blocks[2]

	if len(callBlock.Successors) != 2 {
		t.Fatalf("expected call block to have fallthrough + catch, got %d successors", len(callBlock.Successors))
	}
	if !callBlock.HasSuccessor(throwBlock) || !callBlock.HasSuccessor(catchBlock) {
		t.Fatalf("call block edges wrong: %v", callBlock.Successors)
	}
	if len(throwBlock.Successors) != 1 || throwBlock.Successors[0] != catchBlock {
		t.Fatalf("expected throw block to route only to the catch block")
	}
}

func TestConvertLoopEdges(t *testing.T) {
	items := []bytecode.Item{
		bytecode.NewLabel("top"),
		bytecode.Inst(bytecode.OpPushReferenceValue, ref(0)),
		bytecode.Inst(bytecode.OpJumpIfFalse, bytecode.LabelArg("end")),
		bytecode.Inst(bytecode.OpCallStatement, ref(1), bytecode.ListSizeArg(0)),
		bytecode.Inst(bytecode.OpJump, bytecode.LabelArg("top")),
		bytecode.NewLabel("end"),
		bytecode.Inst(bytecode.OpReturn),
	}

	blocks, err := Convert(items, "loop")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkWellFormed(t, blocks)
	if len(blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(blocks))
	}
	backEdge := blocks[2]
	if got := backEdge.FirstInstruction(); got == nil || got.Op != bytecode.OpJump {
		t.Fatalf("expected back-edge block to end in JUMP, got %v", backEdge.Items)
	}
	if !backEdge.HasSuccessor(blocks[0]) {
		t.Fatalf("expected back edge to the loop head")
	}
	if len(blocks[0].Predecessors) != 1 || blocks[0].Predecessors[0] != backEdge {
		t.Fatalf("expected loop head predecessor to be the back-edge block")
	}
}

func TestConvertJumpCycleStable(t *testing.T) {
	// Two blocks jumping at each other: no finite forwarding destination
	// exists, so the cycle must be preserved rather than spun on.
	items := []bytecode.Item{
		bytecode.Inst(bytecode.OpJump, bytecode.LabelArg("L1")),
		bytecode.NewLabel("L1"),
		bytecode.Inst(bytecode.OpJump, bytecode.LabelArg("L2")),
		bytecode.NewLabel("L2"),
		bytecode.Inst(bytecode.OpJump, bytecode.LabelArg("L1")),
	}

	blocks, err := Convert(items, "jump_cycle")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkWellFormed(t, blocks)
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}
}

func TestConvertUnreachableRemoval(t *testing.T) {
	items := []bytecode.Item{
		bytecode.Inst(bytecode.OpJump, bytecode.LabelArg("done")),
		bytecode.Inst(bytecode.OpPushFloat, bytecode.FloatArg(1)),
		bytecode.Inst(bytecode.OpReturn),
		bytecode.NewLabel("done"),
		bytecode.Inst(bytecode.OpReturn),
	}

	blocks, err := Convert(items, "unreachable")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkWellFormed(t, blocks)
	if len(blocks) != 2 {
		t.Fatalf("expected the dead middle block removed, got %d blocks", len(blocks))
	}
	for _, b := range blocks {
		for _, item := range b.Items {
			if inst, ok := item.(*bytecode.Instruction); ok && inst.Op == bytecode.OpPushFloat {
				t.Fatalf("unreachable code survived")
			}
		}
	}
}

func TestConvertLocalVariablesPassThrough(t *testing.T) {
	items := []bytecode.Item{
		&bytecode.LocalVariable{Name: "count"},
		bytecode.Inst(bytecode.OpPushFloat, bytecode.FloatArg(1)),
		bytecode.Inst(bytecode.OpAssignPop, bytecode.RefArg(bytecode.Reference{Kind: bytecode.RefLocal})),
		bytecode.Inst(bytecode.OpReturn),
	}

	blocks, err := Convert(items, "locals")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkWellFormed(t, blocks)
	if len(blocks) != 1 {
		t.Fatalf("expected a single block, got %d", len(blocks))
	}
	if _, ok := blocks[0].Items[0].(*bytecode.LocalVariable); !ok {
		t.Fatalf("expected local marker preserved at position 0")
	}
}

func TestConvertBlockIDsSequential(t *testing.T) {
	items := []bytecode.Item{
		bytecode.Inst(bytecode.OpJump, bytecode.LabelArg("done")),
		bytecode.Inst(bytecode.OpReturn),
		bytecode.NewLabel("done"),
		bytecode.Inst(bytecode.OpReturn),
	}

	blocks, err := Convert(items, "renumber")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	base := blocks[0].ID
	for i, b := range blocks {
		if b.ID != base+i {
			t.Fatalf("expected sequential ids from %d, got %d at index %d", base, b.ID, i)
		}
	}
}

func TestConvertDuplicateLabel(t *testing.T) {
	items := []bytecode.Item{
		bytecode.NewLabel("L"),
		bytecode.Inst(bytecode.OpReturn),
		bytecode.NewLabel("L"),
		bytecode.Inst(bytecode.OpReturn),
	}

	if _, err := Convert(items, "dup"); !errors.Is(err, ErrDuplicateLabel) {
		t.Fatalf("expected ErrDuplicateLabel, got %v", err)
	}
}

func TestConvertUnknownLabel(t *testing.T) {
	items := []bytecode.Item{
		bytecode.Inst(bytecode.OpJump, bytecode.LabelArg("nowhere")),
	}

	if _, err := Convert(items, "missing"); !errors.Is(err, ErrUnknownLabel) {
		t.Fatalf("expected ErrUnknownLabel, got %v", err)
	}
}

func TestConvertUnbalancedEndTry(t *testing.T) {
	items := []bytecode.Item{
		bytecode.Inst(bytecode.OpEndTry),
		bytecode.Inst(bytecode.OpReturn),
	}

	if _, err := Convert(items, "endtry"); !errors.Is(err, ErrUnbalancedTry) {
		t.Fatalf("expected ErrUnbalancedTry, got %v", err)
	}
}

func TestOptimizePipeline(t *testing.T) {
	proc := &bytecode.Procedure{
		Name: "/mob/proc/greet",
		Items: []bytecode.Item{
			bytecode.Inst(bytecode.OpPushString, bytecode.StringArg(1)),
			bytecode.Inst(bytecode.OpPushString, bytecode.StringArg(2)),
			bytecode.Inst(bytecode.OpCreateList, bytecode.ListSizeArg(2)),
			bytecode.Inst(bytecode.OpAssign, ref(0)),
			bytecode.Inst(bytecode.OpPop),
			bytecode.Inst(bytecode.OpBooleanNot),
			bytecode.Inst(bytecode.OpJumpIfFalse, bytecode.LabelArg("skip")),
			bytecode.Inst(bytecode.OpCallStatement, ref(1), bytecode.ListSizeArg(0)),
			bytecode.NewLabel("skip"),
			bytecode.Inst(bytecode.OpReturn),
		},
	}

	blocks, err := Optimize(proc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkWellFormed(t, blocks)

	flat := FlattenBlocks(blocks)
	first := flat[0].(*bytecode.Instruction)
	if first.Op != bytecode.OpCreateListNStrings {
		t.Fatalf("expected fused list creation first, got %s", first)
	}
	second := flat[1].(*bytecode.Instruction)
	if second.Op != bytecode.OpAssignPop {
		t.Fatalf("expected ASSIGN_POP, got %s", second)
	}
	third := flat[2].(*bytecode.Instruction)
	if third.Op != bytecode.OpJumpIfTrue || third.LabelAt(0) != "skip" {
		t.Fatalf("expected JUMP_IF_TRUE skip, got %s", third)
	}
}
