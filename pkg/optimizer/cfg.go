package optimizer

import (
	"errors"
	"fmt"

	"github.com/quill-lang/quill/pkg/bytecode"
)

// Structural errors reported for malformed input streams. Internal
// invariant violations panic instead; they indicate optimizer bugs.
var (
	ErrDuplicateLabel = errors.New("duplicate label")
	ErrUnknownLabel   = errors.New("unknown jump target")
	ErrMisplacedJump  = errors.New("control-flow opcode not at end of block")
	ErrUnbalancedTry  = errors.New("unbalanced try/endtry")
)

// Block is a basic block: a straight-line run of items with a single entry
// and a single structural exit. Edges are symmetric; AddSuccessor and
// RemoveSuccessor maintain both sides.
type Block struct {
	ID           int
	Items        []bytecode.Item
	Predecessors []*Block
	Successors   []*Block
}

// AddSuccessor adds the edge b->s unless it already exists.
func (b *Block) AddSuccessor(s *Block) {
	if b.HasSuccessor(s) {
		return
	}
	b.Successors = append(b.Successors, s)
	s.Predecessors = append(s.Predecessors, b)
}

// RemoveSuccessor removes the edge b->s if present.
func (b *Block) RemoveSuccessor(s *Block) {
	b.Successors = removeBlock(b.Successors, s)
	s.Predecessors = removeBlock(s.Predecessors, b)
}

// HasSuccessor reports whether the edge b->s exists.
func (b *Block) HasSuccessor(s *Block) bool {
	for _, succ := range b.Successors {
		if succ == s {
			return true
		}
	}
	return false
}

// FirstInstruction returns the block's first instruction, skipping leading
// labels and local-variable markers. Nil when the block holds none.
func (b *Block) FirstInstruction() *bytecode.Instruction {
	for _, item := range b.Items {
		if inst, ok := item.(*bytecode.Instruction); ok {
			return inst
		}
	}
	return nil
}

func removeBlock(blocks []*Block, target *Block) []*Block {
	for i, b := range blocks {
		if b == target {
			return append(blocks[:i], blocks[i+1:]...)
		}
	}
	return blocks
}

// Convert reconstructs a basic-block graph from a linear annotated stream
// and cleans it to fixpoint: label aliases resolved, empty and unreachable
// blocks pruned, trivial jump chains forwarded, unreferenced labels removed.
// The first returned block is the procedure entry. originName identifies the
// procedure in error messages.
//
// All state lives in the call; Convert invocations are independent and may
// run concurrently across procedures.
func Convert(items []bytecode.Item, originName string) ([]*Block, error) {
	c := &converter{
		origin:  originName,
		aliases: make(map[string]string),
	}
	if err := c.split(items); err != nil {
		return nil, err
	}
	if err := c.cleanup(); err != nil {
		return nil, err
	}
	return c.blocks, nil
}

type converter struct {
	origin    string
	blocks    []*Block
	labels    map[string]*Block // canonical label -> block holding it
	labelRefs map[string]int    // canonical label -> jump arguments naming it
	aliases   map[string]string // emitted label -> canonical label
	nextID    int
}

func (c *converter) newBlock() *Block {
	b := &Block{ID: c.nextID}
	c.nextID++
	c.blocks = append(c.blocks, b)
	return b
}

// split is Phase A: walk the stream once, starting a fresh block after every
// block-splitting opcode and at every label. Adjacent labels collapse into
// the first one; later names become aliases and their items are dropped.
func (c *converter) split(items []bytecode.Item) error {
	c.blocks = nil
	c.labels = make(map[string]*Block)
	c.labelRefs = make(map[string]int)

	cur := c.newBlock()
	prevLabel := "" // non-empty while the previous item was a label
	for _, item := range items {
		switch it := item.(type) {
		case *bytecode.Label:
			if c.labelKnown(it.Name) {
				return fmt.Errorf("%w %q in %s", ErrDuplicateLabel, it.Name, c.origin)
			}
			if prevLabel != "" {
				c.aliases[it.Name] = prevLabel
				continue
			}
			if len(cur.Items) > 0 {
				cur = c.newBlock()
			}
			cur.Items = append(cur.Items, it)
			c.labels[it.Name] = cur
			c.labelRefs[it.Name] = 0
			prevLabel = it.Name
		case *bytecode.Instruction:
			cur.Items = append(cur.Items, it)
			if bytecode.Metadata(it.Op).SplitsBlock {
				cur = c.newBlock()
			}
			prevLabel = ""
		case *bytecode.LocalVariable:
			cur.Items = append(cur.Items, it)
			prevLabel = ""
		default:
			panic(fmt.Sprintf("optimizer: unknown item type %T in %s", item, c.origin))
		}
	}

	// A trailing splitter leaves an empty block behind; drop it now rather
	// than waiting a cleanup round.
	if n := len(c.blocks); n > 1 && len(c.blocks[n-1].Items) == 0 {
		c.blocks = c.blocks[:n-1]
	}
	return nil
}

func (c *converter) labelKnown(name string) bool {
	if _, ok := c.labels[name]; ok {
		return true
	}
	_, ok := c.aliases[name]
	return ok
}

// canonical follows the alias chain to the canonical label name.
func (c *converter) canonical(name string) string {
	for {
		next, ok := c.aliases[name]
		if !ok {
			return name
		}
		name = next
	}
}

// cleanup is Phase B: iterate the pass pipeline until a full round reports
// no change. Rounds that removed label items (or left a label mid-block)
// restart from Phase A over the flattened stream.
func (c *converter) cleanup() error {
	for {
		changed := false

		if c.removeEmptyBlocks() {
			changed = true
		}
		c.connectLinear()
		resolved, err := c.resolveJumps()
		if err != nil {
			return err
		}
		if resolved {
			changed = true
		}
		if c.renumber() {
			changed = true
		}
		if c.forwardJumps() {
			changed = true
		}
		if c.removeTrivialJumpBlocks() {
			changed = true
		}
		if c.removeUnreachable() {
			changed = true
		}
		if c.renumber() {
			changed = true
		}
		droppedLabels := c.removeUnreferencedLabels()
		if droppedLabels {
			changed = true
		}

		if !changed {
			return nil
		}

		c.clearEdges()
		if droppedLabels || !c.rebuildLabels() {
			if err := c.split(c.flatten()); err != nil {
				return err
			}
		}
	}
}

// removeEmptyBlocks deletes itemless blocks, keeping the entry. Labels that
// pointed at a deleted block move to the next block in layout order.
func (c *converter) removeEmptyBlocks() bool {
	changed := false
	for i := 1; i < len(c.blocks); {
		b := c.blocks[i]
		if len(b.Items) > 0 {
			i++
			continue
		}
		for _, succ := range b.Successors {
			succ.Predecessors = removeBlock(succ.Predecessors, b)
		}
		for _, pred := range b.Predecessors {
			pred.Successors = removeBlock(pred.Successors, b)
		}
		c.blocks = append(c.blocks[:i], c.blocks[i+1:]...)
		for name, target := range c.labels {
			if target == b {
				if i < len(c.blocks) {
					c.labels[name] = c.blocks[i]
				} else {
					delete(c.labels, name)
					delete(c.labelRefs, name)
				}
			}
		}
		changed = true
	}
	return changed
}

// connectLinear adds the naive fallthrough edge between layout neighbors.
// resolveJumps refines the result.
func (c *converter) connectLinear() {
	for i := 0; i+1 < len(c.blocks); i++ {
		c.blocks[i].AddSuccessor(c.blocks[i+1])
	}
}

// resolveJumps walks every instruction, turning label arguments into edges,
// rewriting aliased names to canonical ones, and counting references. The
// try stack routes Throw and the call opcodes to the active catch block.
func (c *converter) resolveJumps() (bool, error) {
	changed := false
	var tryStack []*Block

	for bi, b := range c.blocks {
		next := (*Block)(nil)
		if bi+1 < len(c.blocks) {
			next = c.blocks[bi+1]
		}
		for ii, item := range b.Items {
			inst, ok := item.(*bytecode.Instruction)
			if !ok {
				continue
			}
			last := ii == len(b.Items)-1

			switch inst.Op {
			case bytecode.OpJumpIfFalse, bytecode.OpJumpIfTrue,
				bytecode.OpJumpIfNull, bytecode.OpJumpIfNullNoPop,
				bytecode.OpBooleanAnd, bytecode.OpBooleanOr,
				bytecode.OpSwitchCase, bytecode.OpSwitchCaseRange,
				bytecode.OpEnumerateNoAssign, bytecode.OpSpawn:
				if !last {
					return false, c.misplaced(inst, b, ii)
				}
				rewrote, err := c.resolveLabelArg(inst, 0, b, true)
				if err != nil {
					return false, err
				}
				changed = changed || rewrote

			case bytecode.OpEnumerate,
				bytecode.OpJumpIfFalseReference, bytecode.OpJumpIfTrueReference,
				bytecode.OpSwitchOnFloat, bytecode.OpSwitchOnString:
				if !last {
					return false, c.misplaced(inst, b, ii)
				}
				rewrote, err := c.resolveLabelArg(inst, 1, b, true)
				if err != nil {
					return false, err
				}
				changed = changed || rewrote

			case bytecode.OpJump:
				if !last {
					return false, c.misplaced(inst, b, ii)
				}
				// An unconditional jump cannot fall through.
				if next != nil {
					b.RemoveSuccessor(next)
				}
				rewrote, err := c.resolveLabelArg(inst, 0, b, true)
				if err != nil {
					return false, err
				}
				changed = changed || rewrote

			case bytecode.OpReturn:
				if next != nil {
					b.RemoveSuccessor(next)
				}

			case bytecode.OpThrow:
				if next != nil {
					b.RemoveSuccessor(next)
				}
				if len(tryStack) > 0 {
					b.AddSuccessor(tryStack[len(tryStack)-1])
				}

			case bytecode.OpCall, bytecode.OpCallStatement, bytecode.OpDereferenceCall:
				// No interprocedural analysis: any call may throw, so the
				// active catch block is a speculative successor.
				if len(tryStack) > 0 {
					b.AddSuccessor(tryStack[len(tryStack)-1])
				}

			case bytecode.OpTry, bytecode.OpTryNoValue:
				rewrote, catch, err := c.resolveCatchArg(inst)
				if err != nil {
					return false, err
				}
				changed = changed || rewrote
				tryStack = append(tryStack, catch)

			case bytecode.OpEndTry:
				if len(tryStack) == 0 {
					return false, fmt.Errorf("%w in %s (block %d)", ErrUnbalancedTry, c.origin, b.ID)
				}
				tryStack = tryStack[:len(tryStack)-1]

			default:
				if bytecode.Metadata(inst.Op).SplitsBlock {
					panic(fmt.Sprintf("optimizer: %s splits blocks but is unhandled (block %d, item %d, %s)",
						inst.Op, b.ID, ii, c.origin))
				}
			}
		}
	}
	return changed, nil
}

// resolveLabelArg canonicalizes the label argument at idx, counts the
// reference, and (when edge is set) connects the block to the target.
func (c *converter) resolveLabelArg(inst *bytecode.Instruction, idx int, from *Block, edge bool) (bool, error) {
	name := inst.LabelAt(idx)
	canon := c.canonical(name)
	target, ok := c.labels[canon]
	if !ok {
		return false, fmt.Errorf("%w %q (%s) in %s", ErrUnknownLabel, name, inst.Op, c.origin)
	}
	changed := false
	if canon != name {
		inst.Args[idx] = bytecode.LabelArg(canon)
		changed = true
	}
	if edge {
		from.AddSuccessor(target)
	}
	c.labelRefs[canon]++
	return changed, nil
}

// resolveCatchArg canonicalizes a Try opcode's catch label and returns the
// catch block. The catch target gets a reference count but no edge; edges
// to it come from the Throw and call sites inside the region.
func (c *converter) resolveCatchArg(inst *bytecode.Instruction) (bool, *Block, error) {
	name := inst.LabelAt(0)
	canon := c.canonical(name)
	target, ok := c.labels[canon]
	if !ok {
		return false, nil, fmt.Errorf("%w %q (%s) in %s", ErrUnknownLabel, name, inst.Op, c.origin)
	}
	changed := false
	if canon != name {
		inst.Args[0] = bytecode.LabelArg(canon)
		changed = true
	}
	c.labelRefs[canon]++
	return changed, target, nil
}

func (c *converter) misplaced(inst *bytecode.Instruction, b *Block, idx int) error {
	return fmt.Errorf("%w: %s (block %d, item %d) in %s", ErrMisplacedJump, inst.Op, b.ID, idx, c.origin)
}

// renumber makes ids sequential again, starting from the entry's current id.
func (c *converter) renumber() bool {
	if len(c.blocks) == 0 {
		return false
	}
	changed := false
	base := c.blocks[0].ID
	for i, b := range c.blocks {
		if b.ID != base+i {
			b.ID = base + i
			changed = true
		}
	}
	return changed
}

// forwardJumps retargets jumps whose destination block does nothing but
// jump again. Chains are followed to their end; chains that close into a
// cycle are left alone, since no finite destination exists.
func (c *converter) forwardJumps() bool {
	changed := false
	for _, b := range c.blocks {
		for _, item := range b.Items {
			inst, ok := item.(*bytecode.Instruction)
			if !ok {
				continue
			}
			idx, ok := jumpLabelIndex(inst.Op)
			if !ok {
				continue
			}
			stored := inst.LabelAt(idx)
			final := c.followJumpChain(c.canonical(stored))
			if final != stored {
				inst.Args[idx] = bytecode.LabelArg(final)
				changed = true
			}
		}
	}
	return changed
}

// jumpLabelIndex returns the label-argument position for jump opcodes.
// Try/TryNoValue are excluded: a catch target is a handler address, not a
// jump, and must keep pointing at its own block.
func jumpLabelIndex(op bytecode.Opcode) (int, bool) {
	switch op {
	case bytecode.OpJump, bytecode.OpJumpIfFalse, bytecode.OpJumpIfTrue,
		bytecode.OpJumpIfNull, bytecode.OpJumpIfNullNoPop,
		bytecode.OpBooleanAnd, bytecode.OpBooleanOr,
		bytecode.OpSwitchCase, bytecode.OpSwitchCaseRange,
		bytecode.OpEnumerateNoAssign, bytecode.OpSpawn:
		return 0, true
	case bytecode.OpEnumerate, bytecode.OpJumpIfFalseReference,
		bytecode.OpJumpIfTrueReference,
		bytecode.OpSwitchOnFloat, bytecode.OpSwitchOnString:
		return 1, true
	default:
		return 0, false
	}
}

// followJumpChain returns the last label reachable from name through blocks
// whose first real instruction is an unconditional jump. On a cycle it
// returns name unchanged.
func (c *converter) followJumpChain(name string) string {
	visited := map[string]bool{name: true}
	cur := name
	for {
		target, ok := c.labels[cur]
		if !ok {
			return cur
		}
		inst := target.FirstInstruction()
		if inst == nil || inst.Op != bytecode.OpJump {
			return cur
		}
		next := c.canonical(inst.LabelAt(0))
		if visited[next] {
			return name
		}
		visited[next] = true
		cur = next
	}
}

// removeTrivialJumpBlocks deletes non-entry, unlabeled blocks that consist
// of a single unconditional jump to the next block in layout. Control
// reaches the same destination by falling through, so the block carries no
// information. The entry block is exempt, like everywhere else.
func (c *converter) removeTrivialJumpBlocks() bool {
	changed := false
	for i := 1; i+1 < len(c.blocks); {
		b := c.blocks[i]
		if len(b.Items) != 1 {
			i++
			continue
		}
		inst, ok := b.Items[0].(*bytecode.Instruction)
		if !ok || inst.Op != bytecode.OpJump {
			i++
			continue
		}
		target, ok := c.labels[c.canonical(inst.LabelAt(0))]
		if !ok || target != c.blocks[i+1] {
			i++
			continue
		}
		for _, succ := range b.Successors {
			succ.Predecessors = removeBlock(succ.Predecessors, b)
		}
		for _, pred := range b.Predecessors {
			pred.Successors = removeBlock(pred.Successors, b)
		}
		c.blocks = append(c.blocks[:i], c.blocks[i+1:]...)
		changed = true
	}
	return changed
}

// removeUnreachable deletes blocks with no predecessors, keeping the entry.
// Successors of a deleted block lose a predecessor and may fall in a later
// round.
func (c *converter) removeUnreachable() bool {
	changed := false
	for i := 1; i < len(c.blocks); {
		b := c.blocks[i]
		if len(b.Predecessors) > 0 {
			i++
			continue
		}
		for _, succ := range b.Successors {
			succ.Predecessors = removeBlock(succ.Predecessors, b)
		}
		b.Successors = nil
		c.blocks = append(c.blocks[:i], c.blocks[i+1:]...)
		changed = true
	}
	return changed
}

// removeUnreferencedLabels drops label items nothing jumps to. Reference
// counts are the ones resolveJumps computed this round, so labels whose
// last reference was forwarded away this round survive until the next.
func (c *converter) removeUnreferencedLabels() bool {
	changed := false
	for _, b := range c.blocks {
		for i := 0; i < len(b.Items); {
			label, ok := b.Items[i].(*bytecode.Label)
			if !ok || c.labelRefs[label.Name] != 0 {
				i++
				continue
			}
			b.Items = append(b.Items[:i], b.Items[i+1:]...)
			delete(c.labels, label.Name)
			delete(c.labelRefs, label.Name)
			changed = true
		}
	}
	return changed
}

func (c *converter) clearEdges() {
	for _, b := range c.blocks {
		b.Predecessors = nil
		b.Successors = nil
	}
}

// rebuildLabels rescans block items into the label table. It reports false
// when a label is no longer the first item of its block, which forces a
// restart from Phase A.
func (c *converter) rebuildLabels() bool {
	labels := make(map[string]*Block)
	refs := make(map[string]int)
	ok := true
	for _, b := range c.blocks {
		for i, item := range b.Items {
			label, isLabel := item.(*bytecode.Label)
			if !isLabel {
				continue
			}
			if i != 0 {
				ok = false
			}
			labels[label.Name] = b
			refs[label.Name] = 0
		}
	}
	c.labels = labels
	c.labelRefs = refs
	return ok
}

// flatten concatenates block items back into a linear stream in layout order.
func (c *converter) flatten() []bytecode.Item {
	total := 0
	for _, b := range c.blocks {
		total += len(b.Items)
	}
	items := make([]bytecode.Item, 0, total)
	for _, b := range c.blocks {
		items = append(items, b.Items...)
	}
	return items
}
