package optimizer

import (
	"github.com/quill-lang/quill/pkg/bytecode"
)

// Optimize runs the full pipeline over one procedure: peephole rewriting to
// fixpoint, then CFG reconstruction and cleanup. The returned blocks are in
// a linear layout consistent with the reachable ordering of the input; the
// first block is the entry.
func Optimize(proc *bytecode.Procedure) ([]*Block, error) {
	items := Peephole(proc.Items)
	return Convert(items, proc.Name)
}

// FlattenBlocks concatenates optimized blocks back into a linear stream for
// the downstream packer. Every remaining label is canonical and referenced.
func FlattenBlocks(blocks []*Block) []bytecode.Item {
	total := 0
	for _, b := range blocks {
		total += len(b.Items)
	}
	items := make([]bytecode.Item, 0, total)
	for _, b := range blocks {
		items = append(items, b.Items...)
	}
	return items
}
