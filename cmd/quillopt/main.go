// Quillopt - optimizes compiled Quill procedures ahead of packing
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/quill-lang/quill/manifest"
	"github.com/quill-lang/quill/pkg/bytecode"
	"github.com/quill-lang/quill/pkg/cache"
	"github.com/quill-lang/quill/pkg/optimizer"
)

var log = commonlog.GetLogger("quillopt")

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	printListing := flag.Bool("print", false, "Print the optimized instruction listing")
	dumpCFG := flag.Bool("dump-cfg", false, "Write per-procedure CFG listings under ./cfg")
	noCache := flag.Bool("no-cache", false, "Bypass the optimized-bytecode cache")
	outSuffix := flag.String("suffix", ".opt", "Suffix appended to optimized output files")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: quillopt [options] <file.qbc...>\n\n")
		fmt.Fprintf(os.Stderr, "Optimizes compiled Quill procedures (.qbc) and writes the result next to each input.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  quillopt build/main.qbc            # Optimize one procedure\n")
		fmt.Fprintf(os.Stderr, "  quillopt -print build/*.qbc        # Optimize and show listings\n")
		fmt.Fprintf(os.Stderr, "  quillopt -dump-cfg build/main.qbc  # Also write ./cfg listings\n")
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	verbosity := 0
	if *verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	m, err := manifest.FindAndLoad(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading quill.toml: %v\n", err)
		os.Exit(1)
	}
	if m == nil {
		m = manifest.Default()
	}

	var store *cache.Store
	if m.Cache.Enabled && !*noCache {
		store, err = cache.Open(m.CachePath())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening cache: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
	}

	failed := false
	for _, path := range flag.Args() {
		if err := optimizeFile(path, *outSuffix, m, store, *printListing, *dumpCFG); err != nil {
			fmt.Fprintf(os.Stderr, "Error optimizing %s: %v\n", path, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func optimizeFile(path, suffix string, m *manifest.Manifest, store *cache.Store, printListing, dumpCFG bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	outPath := strings.TrimSuffix(path, ".qbc") + suffix + ".qbc"

	var key string
	if store != nil {
		key = cache.Key(data)
		if cached, ok, err := store.Get(key); err != nil {
			return err
		} else if ok {
			log.Debugf("cache hit for %s", path)
			return os.WriteFile(outPath, cached, 0o644)
		}
	}

	proc, err := bytecode.UnmarshalProcedure(data)
	if err != nil {
		return err
	}

	if m.Optimizer.Peephole {
		proc.Items = optimizer.Peephole(proc.Items)
	}
	items := proc.Items
	if m.Optimizer.BuildCFG {
		blocks, err := optimizer.Convert(proc.Items, proc.Name)
		if err != nil {
			return err
		}
		if dumpCFG || m.Optimizer.DumpCFG {
			if err := optimizer.DumpCFG(blocks, proc.Name); err != nil {
				return err
			}
		}
		items = optimizer.FlattenBlocks(blocks)
	}

	out, err := bytecode.MarshalProcedure(&bytecode.Procedure{Name: proc.Name, Items: items})
	if err != nil {
		return err
	}
	if store != nil {
		if err := store.Put(key, proc.Name, out); err != nil {
			return err
		}
	}
	if printListing {
		fmt.Printf("; === %s ===\n%s\n", proc.Name, optimizer.FormatItems(items))
	}
	log.Infof("optimized %s (%d items)", proc.Name, len(items))
	return os.WriteFile(outPath, out, 0o644)
}
