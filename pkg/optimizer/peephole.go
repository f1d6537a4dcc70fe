package optimizer

import (
	"github.com/quill-lang/quill/pkg/bytecode"
)

// Window widths the rewriter scans with, in the order they are tried.
// Longer windows win over shorter ones at each position.
const (
	maxWindow = 5
	minWindow = 2
)

// Pattern is one registered peephole rewrite. Opcodes gives the window it
// matches (its length is the window width); Check is an optional extra
// precondition; Apply produces the replacement items and reports how many
// input items the rewrite consumed. Greedy-run patterns consume more items
// than their nominal window.
//
// Every rewrite must preserve the window's net stack effect and observable
// semantics. A rewrite whose argument casts fail is a bug in the catalog,
// not a recoverable condition.
type Pattern struct {
	Name    string
	Opcodes []bytecode.Opcode
	Check   func(items []bytecode.Item, i int) bool
	Apply   func(items []bytecode.Item, i int) (replacement []bytecode.Item, consumed int)
}

// Peephole rewrites the stream until no registered pattern applies and
// returns the rewritten stream. The input slice is consumed.
func Peephole(items []bytecode.Item) []bytecode.Item {
	for {
		changed := false
		for width := maxWindow; width >= minWindow; width-- {
			patterns := patternsByWidth[width]
			if len(patterns) == 0 {
				continue
			}
			for i := 0; i+width <= len(items); i++ {
				if !instructionWindow(items, i, width) {
					continue
				}
				for _, p := range patterns {
					if !windowMatches(items, i, p.Opcodes) {
						continue
					}
					if p.Check != nil && !p.Check(items, i) {
						continue
					}
					repl, consumed := p.Apply(items, i)
					carryLocation(repl, items[i:i+consumed])
					items = splice(items, i, consumed, repl)
					changed = true
					break
				}
			}
		}
		if !changed {
			return items
		}
	}
}

// instructionWindow reports whether items[i:i+width] holds instructions only.
func instructionWindow(items []bytecode.Item, i, width int) bool {
	for j := i; j < i+width; j++ {
		if _, ok := items[j].(*bytecode.Instruction); !ok {
			return false
		}
	}
	return true
}

func windowMatches(items []bytecode.Item, i int, opcodes []bytecode.Opcode) bool {
	for j, op := range opcodes {
		if items[i+j].(*bytecode.Instruction).Op != op {
			return false
		}
	}
	return true
}

// carryLocation gives the first replacement item the location of the first
// location-bearing item of the matched window, falling back to the window's
// first item.
func carryLocation(repl []bytecode.Item, window []bytecode.Item) {
	if len(repl) == 0 {
		return
	}
	loc := window[0].Location()
	for _, item := range window {
		if item.Location().IsValid() {
			loc = item.Location()
			break
		}
	}
	repl[0].SetLocation(loc)
}

func splice(items []bytecode.Item, i, consumed int, repl []bytecode.Item) []bytecode.Item {
	out := make([]bytecode.Item, 0, len(items)-consumed+len(repl))
	out = append(out, items[:i]...)
	out = append(out, repl...)
	out = append(out, items[i+consumed:]...)
	return out
}

// patternsByWidth buckets the registered catalog by window width, keeping
// registration order as the tie-break within a width.
var patternsByWidth [maxWindow + 1][]*Pattern

func init() {
	for i := range catalog {
		p := &catalog[i]
		w := len(p.Opcodes)
		if w < minWindow || w > maxWindow {
			panic("optimizer: pattern " + p.Name + " has an unsupported window width")
		}
		patternsByWidth[w] = append(patternsByWidth[w], p)
	}
}
