// Package workspace discovers Cargo packages and their declared
// inter-package dependencies from manifest files.
package workspace

import (
	"path"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"cratescope/internal/diag"
	"cratescope/internal/logging"
	"cratescope/internal/source"
)

// Package is one discovered Cargo package. Immutable after creation.
type Package struct {
	Name        string `json:"name"`
	RootPath    string `json:"rootPath"`
	Description string `json:"description,omitempty"`
	// Dependencies are declared dependency names only; no version resolution
	Dependencies []string `json:"dependencies,omitempty"`
}

// DependencyEdge is a declared dependency between two workspace packages
type DependencyEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Workspace is the resolver output: the ordered package list plus the
// dependency edges between workspace members.
type Workspace struct {
	Packages []Package        `json:"packages"`
	Edges    []DependencyEdge `json:"edges,omitempty"`
	// Cycles lists declared dependency cycles, one slice of package names
	// per cycle. Cycles are diagnostics, not errors: hand-authored manifest
	// declarations are not guaranteed acyclic.
	Cycles [][]string `json:"cycles,omitempty"`
}

// PackageCount returns the number of discovered packages
func (w *Workspace) PackageCount() int {
	return len(w.Packages)
}

// IsMultiPackage reports whether more than one package was discovered
func (w *Workspace) IsMultiPackage() bool {
	return len(w.Packages) > 1
}

// PackageFor returns the name of the package owning a repo-relative file
// path, resolved by the longest matching package root. Empty string when
// no package root contains the file.
func (w *Workspace) PackageFor(file string) string {
	best := ""
	bestLen := -1
	for _, pkg := range w.Packages {
		root := pkg.RootPath
		if root == "." || root == "" {
			if bestLen < 0 {
				best = pkg.Name
				bestLen = 0
			}
			continue
		}
		if (file == root || strings.HasPrefix(file, root+"/")) && len(root) > bestLen {
			best = pkg.Name
			bestLen = len(root)
		}
	}
	return best
}

// cargoManifest mirrors the subset of Cargo.toml the resolver reads
type cargoManifest struct {
	Package *struct {
		Name        string `toml:"name"`
		Description string `toml:"description"`
	} `toml:"package"`
	Dependencies      map[string]interface{} `toml:"dependencies"`
	DevDependencies   map[string]interface{} `toml:"dev-dependencies"`
	BuildDependencies map[string]interface{} `toml:"build-dependencies"`
	Workspace         *struct {
		Members []string `toml:"members"`
	} `toml:"workspace"`
}

// Resolver discovers packages from a file tree
type Resolver struct {
	logger *logging.Logger
}

// NewResolver creates a resolver
func NewResolver(logger *logging.Logger) *Resolver {
	return &Resolver{logger: logger.WithComponent("workspace")}
}

// Resolve locates every Cargo.toml in the tree, extracts package names and
// declared dependency names, and builds the workspace dependency graph.
// Malformed manifests are skipped with a ParseDiagnostic; the run continues.
func (r *Resolver) Resolve(tree source.Tree, diags *diag.Collector) *Workspace {
	var packages []Package

	for _, file := range tree.Files() {
		if path.Base(file) != "Cargo.toml" {
			continue
		}

		data, err := tree.Read(file)
		if err != nil {
			diags.Addf(diag.ParseDiagnostic, file, "", "unreadable manifest: %v", err)
			continue
		}

		var manifest cargoManifest
		if err := toml.Unmarshal(data, &manifest); err != nil {
			diags.Addf(diag.ParseDiagnostic, file, "", "malformed manifest: %v", err)
			continue
		}

		if manifest.Package == nil || manifest.Package.Name == "" {
			// Virtual workspace root: declares members but no package
			if manifest.Workspace == nil {
				diags.Addf(diag.ParseDiagnostic, file, "", "manifest declares no package")
			}
			continue
		}

		pkg := Package{
			Name:         manifest.Package.Name,
			RootPath:     manifestRoot(file),
			Description:  manifest.Package.Description,
			Dependencies: dependencyNames(manifest),
		}
		packages = append(packages, pkg)

		r.logger.Debug("Discovered package", map[string]interface{}{
			"name":     pkg.Name,
			"rootPath": pkg.RootPath,
			"deps":     len(pkg.Dependencies),
		})
	}

	ws := &Workspace{Packages: packages}
	ws.Edges = memberEdges(packages)
	ws.Cycles = findCycles(packages, ws.Edges)

	for _, cycle := range ws.Cycles {
		diags.Addf(diag.DependencyCycle, "", strings.Join(cycle, " -> "),
			"declared package dependencies form a cycle")
	}

	return ws
}

// Override replaces the resolved packages with an authoritative external
// package/dependency list (e.g. cargo-metadata output supplied by a
// collaborator), rebuilding edges and cycle diagnostics.
func (r *Resolver) Override(ws *Workspace, packages []Package, diags *diag.Collector) *Workspace {
	out := &Workspace{Packages: packages}
	out.Edges = memberEdges(packages)
	out.Cycles = findCycles(packages, out.Edges)
	for _, cycle := range out.Cycles {
		diags.Addf(diag.DependencyCycle, "", strings.Join(cycle, " -> "),
			"declared package dependencies form a cycle")
	}
	r.logger.Info("Workspace overridden by external metadata", map[string]interface{}{
		"packages": len(packages),
	})
	return out
}

func manifestRoot(file string) string {
	dir := path.Dir(file)
	if dir == "" {
		return "."
	}
	return dir
}

func dependencyNames(m cargoManifest) []string {
	seen := make(map[string]bool)
	var names []string
	for _, deps := range []map[string]interface{}{m.Dependencies, m.DevDependencies, m.BuildDependencies} {
		for name := range deps {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// memberEdges keeps only dependencies that resolve to another discovered
// package; external crates are not workspace edges.
func memberEdges(packages []Package) []DependencyEdge {
	members := make(map[string]bool, len(packages))
	for _, pkg := range packages {
		members[pkg.Name] = true
	}

	var edges []DependencyEdge
	for _, pkg := range packages {
		for _, dep := range pkg.Dependencies {
			if members[dep] && dep != pkg.Name {
				edges = append(edges, DependencyEdge{From: pkg.Name, To: dep})
			}
		}
	}
	return edges
}

// findCycles runs a three-color DFS over the declared adjacency and
// returns each cycle found, as the chain of package names closing it.
func findCycles(packages []Package, edges []DependencyEdge) [][]string {
	adj := make(map[string][]string)
	for _, e := range edges {
		adj[e.From] = append(adj[e.From], e.To)
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int)
	var cycles [][]string
	var stack []string

	var visit func(node string)
	visit = func(node string) {
		color[node] = gray
		stack = append(stack, node)

		for _, next := range adj[node] {
			switch color[next] {
			case white:
				visit(next)
			case gray:
				// Slice the stack from the first occurrence of next
				for i, n := range stack {
					if n == next {
						cycle := make([]string, len(stack)-i)
						copy(cycle, stack[i:])
						cycles = append(cycles, cycle)
						break
					}
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[node] = black
	}

	// Deterministic order: iterate packages as discovered
	for _, pkg := range packages {
		if color[pkg.Name] == white {
			visit(pkg.Name)
		}
	}
	return cycles
}
