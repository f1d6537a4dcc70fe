package optimizer

import (
	"github.com/quill-lang/quill/pkg/bytecode"
)

// catalog is the registered rewrite set. Patterns are tried in registration
// order within a window width; fusion outputs (PushN*) feed later fusions
// (CreateListN*), so Peephole iterates the whole catalog to fixpoint.
var catalog = []Pattern{
	{
		Name:    "assign-pop",
		Opcodes: []bytecode.Opcode{bytecode.OpAssign, bytecode.OpPop},
		Apply: func(items []bytecode.Item, i int) ([]bytecode.Item, int) {
			assign := items[i].(*bytecode.Instruction)
			return one(bytecode.OpAssignPop, bytecode.RefArg(assign.RefAt(0))), 2
		},
	},
	{
		Name:    "null-ref",
		Opcodes: []bytecode.Opcode{bytecode.OpPushNull, bytecode.OpAssignPop},
		Apply: func(items []bytecode.Item, i int) ([]bytecode.Item, int) {
			assign := items[i+1].(*bytecode.Instruction)
			return one(bytecode.OpNullRef, bytecode.RefArg(assign.RefAt(0))), 2
		},
	},
	{
		Name:    "push-ref-deref-field",
		Opcodes: []bytecode.Opcode{bytecode.OpPushReferenceValue, bytecode.OpDereferenceField},
		Apply: func(items []bytecode.Item, i int) ([]bytecode.Item, int) {
			push := items[i].(*bytecode.Instruction)
			deref := items[i+1].(*bytecode.Instruction)
			return one(bytecode.OpPushRefAndDereferenceField,
				bytecode.RefArg(push.RefAt(0)), bytecode.StringArg(deref.StringAt(0))), 2
		},
	},
	{
		Name:    "not-jump-if-false",
		Opcodes: []bytecode.Opcode{bytecode.OpBooleanNot, bytecode.OpJumpIfFalse},
		Apply: func(items []bytecode.Item, i int) ([]bytecode.Item, int) {
			jump := items[i+1].(*bytecode.Instruction)
			return one(bytecode.OpJumpIfTrue, bytecode.LabelArg(jump.LabelAt(0))), 2
		},
	},
	{
		Name:    "jump-if-false-ref",
		Opcodes: []bytecode.Opcode{bytecode.OpPushReferenceValue, bytecode.OpJumpIfFalse},
		Apply: func(items []bytecode.Item, i int) ([]bytecode.Item, int) {
			push := items[i].(*bytecode.Instruction)
			jump := items[i+1].(*bytecode.Instruction)
			return one(bytecode.OpJumpIfFalseReference,
				bytecode.RefArg(push.RefAt(0)), bytecode.LabelArg(jump.LabelAt(0))), 2
		},
	},
	greedyRun("push-n-strings", bytecode.OpPushString, bytecode.OpPushNStrings),
	greedyRun("push-n-floats", bytecode.OpPushFloat, bytecode.OpPushNFloats),
	greedyRun("push-n-refs", bytecode.OpPushReferenceValue, bytecode.OpPushNRefs),
	greedyRun("push-n-resources", bytecode.OpPushResource, bytecode.OpPushNResources),
	{
		Name:    "push-string-float",
		Opcodes: []bytecode.Opcode{bytecode.OpPushString, bytecode.OpPushFloat},
		Apply: func(items []bytecode.Item, i int) ([]bytecode.Item, int) {
			s := items[i].(*bytecode.Instruction)
			f := items[i+1].(*bytecode.Instruction)
			return one(bytecode.OpPushStringFloat,
				bytecode.StringArg(s.StringAt(0)), bytecode.FloatArg(f.FloatAt(0))), 2
		},
	},
	{
		// Greedy like the PushN* runs: every contiguous PushStringFloat joins.
		Name:    "push-n-string-floats",
		Opcodes: []bytecode.Opcode{bytecode.OpPushStringFloat, bytecode.OpPushStringFloat},
		Apply: func(items []bytecode.Item, i int) ([]bytecode.Item, int) {
			n := runLength(items, i, bytecode.OpPushStringFloat)
			args := make([]bytecode.Arg, 0, 1+2*n)
			args = append(args, bytecode.ListSizeArg(n))
			for j := 0; j < n; j++ {
				pair := items[i+j].(*bytecode.Instruction)
				args = append(args,
					bytecode.StringArg(pair.StringAt(0)), bytecode.FloatArg(pair.FloatAt(1)))
			}
			return one(bytecode.OpPushNOfStringFloats, args...), n
		},
	},
	{
		Name:    "switch-on-float",
		Opcodes: []bytecode.Opcode{bytecode.OpPushFloat, bytecode.OpSwitchCase},
		Apply: func(items []bytecode.Item, i int) ([]bytecode.Item, int) {
			push := items[i].(*bytecode.Instruction)
			sw := items[i+1].(*bytecode.Instruction)
			return one(bytecode.OpSwitchOnFloat,
				bytecode.FloatArg(push.FloatAt(0)), bytecode.LabelArg(sw.LabelAt(0))), 2
		},
	},
	{
		Name:    "switch-on-string",
		Opcodes: []bytecode.Opcode{bytecode.OpPushString, bytecode.OpSwitchCase},
		Apply: func(items []bytecode.Item, i int) ([]bytecode.Item, int) {
			push := items[i].(*bytecode.Instruction)
			sw := items[i+1].(*bytecode.Instruction)
			return one(bytecode.OpSwitchOnString,
				bytecode.StringArg(push.StringAt(0)), bytecode.LabelArg(sw.LabelAt(0))), 2
		},
	},
	listFusion("create-list-n-floats", bytecode.OpPushNFloats, bytecode.OpCreateListNFloats),
	listFusion("create-list-n-strings", bytecode.OpPushNStrings, bytecode.OpCreateListNStrings),
	listFusion("create-list-n-resources", bytecode.OpPushNResources, bytecode.OpCreateListNResources),
	listFusion("create-list-n-refs", bytecode.OpPushNRefs, bytecode.OpCreateListNRefs),
	{
		// The second jump is unreachable.
		Name:    "dead-jump",
		Opcodes: []bytecode.Opcode{bytecode.OpJump, bytecode.OpJump},
		Apply: func(items []bytecode.Item, i int) ([]bytecode.Item, int) {
			first := items[i].(*bytecode.Instruction)
			return one(bytecode.OpJump, bytecode.LabelArg(first.LabelAt(0))), 2
		},
	},
	{
		Name:    "is-type-direct",
		Opcodes: []bytecode.Opcode{bytecode.OpPushType, bytecode.OpIsType},
		Apply: func(items []bytecode.Item, i int) ([]bytecode.Item, int) {
			push := items[i].(*bytecode.Instruction)
			return one(bytecode.OpIsTypeDirect, bytecode.TypeArg(push.TypeAt(0))), 2
		},
	},
}

func one(op bytecode.Opcode, args ...bytecode.Arg) []bytecode.Item {
	return []bytecode.Item{bytecode.Inst(op, args...)}
}

// runLength counts contiguous instructions with the given opcode at i.
// Callers only see runs of at least the nominal window, so the result is >= 2.
func runLength(items []bytecode.Item, i int, op bytecode.Opcode) int {
	n := 0
	for i+n < len(items) {
		inst, ok := items[i+n].(*bytecode.Instruction)
		if !ok || inst.Op != op {
			break
		}
		n++
	}
	return n
}

// greedyRun fuses a contiguous run of the same push opcode into a single
// counted push, consuming the whole run regardless of the nominal width.
func greedyRun(name string, single, fused bytecode.Opcode) Pattern {
	return Pattern{
		Name:    name,
		Opcodes: []bytecode.Opcode{single, single},
		Apply: func(items []bytecode.Item, i int) ([]bytecode.Item, int) {
			n := runLength(items, i, single)
			args := make([]bytecode.Arg, 0, 1+n)
			args = append(args, bytecode.ListSizeArg(n))
			for j := 0; j < n; j++ {
				args = append(args, items[i+j].(*bytecode.Instruction).Args[0])
			}
			return one(fused, args...), n
		},
	}
}

// listFusion folds a counted push directly into list creation when the list
// consumes exactly the pushed values.
func listFusion(name string, push, fused bytecode.Opcode) Pattern {
	return Pattern{
		Name:    name,
		Opcodes: []bytecode.Opcode{push, bytecode.OpCreateList},
		Check: func(items []bytecode.Item, i int) bool {
			pushed := items[i].(*bytecode.Instruction).ListSizeAt(0)
			consumed := items[i+1].(*bytecode.Instruction).ListSizeAt(0)
			return pushed == consumed
		},
		Apply: func(items []bytecode.Item, i int) ([]bytecode.Item, int) {
			src := items[i].(*bytecode.Instruction)
			args := make([]bytecode.Arg, len(src.Args))
			copy(args, src.Args)
			return one(fused, args...), 2
		},
	}
}
