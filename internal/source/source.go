// Package source provides file-tree providers for the analysis engine.
// The engine itself performs no filesystem I/O; it consumes a Tree and
// reads byte contents through it.
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// Tree supplies repo-relative paths and byte contents for a project root
type Tree interface {
	// Files returns all file paths in deterministic (sorted) order
	Files() []string
	// Read returns the byte contents of one file
	Read(path string) ([]byte, error)
}

// MemTree is an in-memory Tree, used in tests and by collaborators that
// already hold file contents.
type MemTree struct {
	files map[string][]byte
}

// NewMemTree creates a MemTree from a path -> contents map
func NewMemTree(files map[string]string) *MemTree {
	m := make(map[string][]byte, len(files))
	for path, content := range files {
		m[normalize(path)] = []byte(content)
	}
	return &MemTree{files: m}
}

// Files returns all paths in sorted order
func (t *MemTree) Files() []string {
	paths := make([]string, 0, len(t.files))
	for path := range t.files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Read returns the contents of one file
func (t *MemTree) Read(path string) ([]byte, error) {
	content, ok := t.files[normalize(path)]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", path)
	}
	return content, nil
}

// excludedParts are path segments never analyzed: build output plus
// test/bench/example sources the pattern engine must not count as
// production evidence.
var excludedParts = []string{
	"target", ".git", "tests", "test", "benches", "bench", "examples", "example", "fuzz",
}

// DirTreeOptions configures filesystem tree walking
type DirTreeOptions struct {
	// Ignore is a list of glob patterns for paths to skip (e.g. "vendor/**")
	Ignore []string
	// IncludeTests keeps tests/benches/examples in the walk
	IncludeTests bool
}

// DirTree is a filesystem-backed Tree rooted at a project directory
type DirTree struct {
	root  string
	paths []string
}

// NewDirTree walks root and snapshots the set of analyzable files:
// .rs sources, Cargo manifests, and a root-level PACKAGES.toml.
func NewDirTree(root string, opts DirTreeOptions) (*DirTree, error) {
	globs := make([]glob.Glob, 0, len(opts.Ignore))
	for _, pattern := range opts.Ignore {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("bad ignore pattern %q: %w", pattern, err)
		}
		globs = append(globs, g)
	}

	var paths []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = normalize(rel)

		if info.IsDir() {
			if rel == "." {
				return nil
			}
			if isExcluded(rel, opts.IncludeTests) || matchesAny(globs, rel) {
				return filepath.SkipDir
			}
			return nil
		}

		// PACKAGES.toml is the root-level explicit workspace override;
		// nested ones are not honored.
		if !strings.HasSuffix(rel, ".rs") && filepath.Base(rel) != "Cargo.toml" && rel != "PACKAGES.toml" {
			return nil
		}
		if isExcluded(rel, opts.IncludeTests) || matchesAny(globs, rel) {
			return nil
		}

		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(paths)
	return &DirTree{root: root, paths: paths}, nil
}

// Files returns the snapshotted paths in sorted order
func (t *DirTree) Files() []string {
	out := make([]string, len(t.paths))
	copy(out, t.paths)
	return out
}

// Read returns the contents of one file
func (t *DirTree) Read(path string) ([]byte, error) {
	return os.ReadFile(filepath.Join(t.root, filepath.FromSlash(path)))
}

func isExcluded(rel string, includeTests bool) bool {
	for _, part := range strings.Split(rel, "/") {
		if part == "target" || part == ".git" {
			return true
		}
		if includeTests {
			continue
		}
		for _, ex := range excludedParts {
			if part == ex {
				return true
			}
		}
	}
	if !includeTests && (strings.HasSuffix(rel, "_test.rs") || strings.HasSuffix(rel, "_tests.rs") || strings.HasSuffix(rel, "_bench.rs")) {
		return true
	}
	return false
}

func matchesAny(globs []glob.Glob, rel string) bool {
	for _, g := range globs {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

func normalize(path string) string {
	return strings.TrimPrefix(filepath.ToSlash(path), "./")
}
