// Package manifest handles quill.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a quill.toml project configuration.
type Manifest struct {
	Project   Project   `toml:"project"`
	Optimizer Optimizer `toml:"optimizer"`
	Cache     Cache     `toml:"cache"`

	// Dir is the directory containing the quill.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Optimizer configures the bytecode optimization passes.
type Optimizer struct {
	Peephole bool   `toml:"peephole"`
	BuildCFG bool   `toml:"build-cfg"`
	DumpCFG  bool   `toml:"dump-cfg"`
	DumpDir  string `toml:"dump-dir"`
}

// Cache configures the optimized-bytecode cache.
type Cache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Load parses a quill.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "quill.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m := defaults()
	if err := toml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	return m, nil
}

// FindAndLoad walks up from startDir to find a quill.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "quill.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Default returns the configuration used when no quill.toml exists.
func Default() *Manifest {
	return defaults()
}

func defaults() *Manifest {
	return &Manifest{
		Optimizer: Optimizer{
			Peephole: true,
			BuildCFG: true,
			DumpDir:  "cfg",
		},
		Cache: Cache{
			Path: filepath.Join(".quill", "bytecode.db"),
		},
	}
}

// CachePath returns the cache database path, resolved against the manifest
// directory when relative.
func (m *Manifest) CachePath() string {
	if filepath.IsAbs(m.Cache.Path) || m.Dir == "" {
		return m.Cache.Path
	}
	return filepath.Join(m.Dir, m.Cache.Path)
}
