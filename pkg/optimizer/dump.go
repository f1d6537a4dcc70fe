package optimizer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/quill-lang/quill/pkg/bytecode"
)

var log = commonlog.GetLogger("quill.optimizer")

// FormatBlocks returns a textual listing of each block's items, successors
// and predecessors.
func FormatBlocks(blocks []*Block) string {
	var sb strings.Builder
	for _, b := range blocks {
		sb.WriteString(fmt.Sprintf("; block %d", b.ID))
		if len(b.Predecessors) > 0 {
			sb.WriteString(" preds=")
			sb.WriteString(blockIDList(b.Predecessors))
		}
		if len(b.Successors) > 0 {
			sb.WriteString(" succs=")
			sb.WriteString(blockIDList(b.Successors))
		}
		sb.WriteString("\n")
		for _, item := range b.Items {
			writeItem(&sb, item)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatItems returns a flattened instruction listing for the stream.
func FormatItems(items []bytecode.Item) string {
	var sb strings.Builder
	for _, item := range items {
		writeItem(&sb, item)
	}
	return sb.String()
}

func writeItem(sb *strings.Builder, item bytecode.Item) {
	switch item.(type) {
	case *bytecode.Label:
		sb.WriteString(item.String())
	default:
		sb.WriteString("    ")
		sb.WriteString(item.String())
	}
	if loc := item.Location(); loc.IsValid() {
		sb.WriteString("\t; ")
		sb.WriteString(loc.String())
	}
	sb.WriteString("\n")
}

func blockIDList(blocks []*Block) string {
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		parts[i] = fmt.Sprintf("%d", b.ID)
	}
	return strings.Join(parts, ",")
}

// DumpCFG writes the block listing to ./cfg/<name> and a flattened
// instruction listing to ./cfg/<name>_insts, replacing path separators in
// the name with underscores. Debug-only; callers keep it off by default.
func DumpCFG(blocks []*Block, name string) error {
	if err := os.MkdirAll("cfg", 0o755); err != nil {
		return fmt.Errorf("optimizer: create cfg dir: %w", err)
	}
	sanitized := strings.ReplaceAll(name, "/", "_")
	path := filepath.Join("cfg", sanitized)

	if err := os.WriteFile(path, []byte(FormatBlocks(blocks)), 0o644); err != nil {
		return fmt.Errorf("optimizer: write %s: %w", path, err)
	}

	var items []bytecode.Item
	for _, b := range blocks {
		items = append(items, b.Items...)
	}
	instPath := path + "_insts"
	if err := os.WriteFile(instPath, []byte(FormatItems(items)), 0o644); err != nil {
		return fmt.Errorf("optimizer: write %s: %w", instPath, err)
	}

	log.Debugf("dumped CFG for %s to %s", name, path)
	return nil
}
