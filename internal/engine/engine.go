// Package engine orchestrates the analysis pipeline: crawl, extract,
// infer, assemble, pattern-match, score. Extraction fans out over a
// worker pool; everything after the extraction barrier runs over the
// complete entity set.
package engine

import (
	"context"
	"path"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"cratescope/internal/diag"
	"cratescope/internal/entity"
	"cratescope/internal/extract"
	"cratescope/internal/graph"
	"cratescope/internal/infer"
	"cratescope/internal/logging"
	"cratescope/internal/patterns"
	"cratescope/internal/source"
	"cratescope/internal/styles"
	"cratescope/internal/summarize"
	"cratescope/internal/workspace"
)

// Options configures one analysis run.
type Options struct {
	// ProjectName labels the report; defaults to "project".
	ProjectName string
	// Workers sizes the extraction pool; defaults to GOMAXPROCS.
	Workers int
	// SyntaxBackend selects AST-backed extraction when the tree-sitter
	// parser is compiled in; files fall back to the lexical scanner on
	// parse failure, and non-CGO builds always use the scanner.
	SyntaxBackend bool
	// ExtraCatalog holds signatures appended to the builtin catalog.
	ExtraCatalog *patterns.Catalog
	// Predicates overrides the graph predicate table; nil uses defaults.
	Predicates map[string]patterns.Predicate
	// Metadata, when set, is an authoritative external package list that
	// overrides manifest resolution.
	Metadata []workspace.Package
	// Summarizer, when set, appends narrative text to the report.
	Summarizer summarize.Summarizer
}

// Report is the complete output of one run. Diagnostics always travel
// with the report; only total-input failures are returned as errors.
type Report struct {
	RunID       string                  `json:"runId"`
	Project     string                  `json:"project"`
	GeneratedAt time.Time               `json:"generatedAt"`
	Workspace   *workspace.Workspace    `json:"workspace"`
	Graph       *graph.Graph            `json:"graph"`
	Patterns    []patterns.Match        `json:"patterns,omitempty"`
	Styles      []styles.Score          `json:"styles,omitempty"`
	Concurrency []styles.PrimitiveCount `json:"concurrency,omitempty"`
	Summary     string                  `json:"summary,omitempty"`
	Diagnostics []diag.Diagnostic       `json:"diagnostics,omitempty"`
}

// Engine runs analyses. Stateless between runs; safe to reuse.
type Engine struct {
	logger *logging.Logger
}

// New creates an engine.
func New(logger *logging.Logger) *Engine {
	return &Engine{logger: logger.WithComponent("engine")}
}

type fileResult struct {
	index    int
	entities []entity.Entity
	content  string
}

// Analyze runs the full pipeline over the given tree.
func (e *Engine) Analyze(ctx context.Context, tree source.Tree, opts Options) (*Report, error) {
	started := time.Now()
	diags := diag.NewCollector()

	project := opts.ProjectName
	if project == "" {
		project = "project"
	}

	// Crawl: workspace resolution from manifests, with optional overrides
	resolver := workspace.NewResolver(e.logger)
	ws := resolver.Resolve(tree, diags)
	if declared, err := workspace.LoadDeclaredPackages(tree); err != nil {
		diags.Addf(diag.ParseDiagnostic, workspace.DeclarationFile, "", "unusable declarations: %v", err)
	} else if declared != nil {
		ws = resolver.Override(ws, declared, diags)
	}
	if opts.Metadata != nil {
		ws = resolver.Override(ws, opts.Metadata, diags)
	}

	rsFiles, manifestText := partitionFiles(tree, diags)

	// Extract: one pure task per file, no shared mutable state
	results, err := e.extractAll(ctx, tree, ws, rsFiles, opts, diags)
	if err != nil {
		return nil, err
	}

	// First barrier: inference needs the complete name table
	if err := ctx.Err(); err != nil {
		return nil, diag.NewScopeError(diag.Cancelled, "run cancelled before inference", err)
	}

	var entities []entity.Entity
	var code strings.Builder
	for _, res := range results {
		entities = append(entities, res.entities...)
		code.WriteString(res.content)
		code.WriteByte('\n')
	}

	if ws.PackageCount() == 0 && len(entities) == 0 {
		return nil, diag.NewScopeError(diag.EmptyProject,
			"no packages or entities found under project root", nil)
	}

	edges := infer.Edges(entities, diags)

	// Second barrier: assembly and readers need the complete edge set
	if err := ctx.Err(); err != nil {
		return nil, diag.NewScopeError(diag.Cancelled, "run cancelled before assembly", err)
	}

	g, err := graph.Assemble(entities, edges, diags)
	if err != nil {
		return nil, err
	}

	preds := opts.Predicates
	if preds == nil {
		preds = patterns.DefaultPredicates()
	}
	catalog := patterns.BuiltinCatalog()
	if opts.ExtraCatalog != nil {
		catalog = catalog.Merge(*opts.ExtraCatalog)
	}
	in := &patterns.Input{Code: code.String(), Manifest: manifestText, Graph: g}
	matches := patterns.NewEngine(preds, diags).Evaluate(catalog, in)

	concurrency := styles.CountPrimitives(in.Code, in.Manifest)
	ranked := styles.Rank(&styles.Input{
		Matches:     matches,
		Graph:       g,
		Workspace:   ws,
		Code:        in.Code,
		Manifest:    in.Manifest,
		Concurrency: concurrency,
	})

	report := &Report{
		RunID:       uuid.NewString(),
		Project:     project,
		GeneratedAt: time.Now().UTC(),
		Workspace:   ws,
		Graph:       g,
		Patterns:    matches,
		Styles:      ranked,
		Concurrency: concurrency,
	}

	if opts.Summarizer != nil {
		digest := buildDigest(report)
		summary, err := opts.Summarizer.Summarize(ctx, digest)
		if err != nil {
			diags.Addf(diag.CollaboratorFailure, "", "summarizer", "summarization failed: %v", err)
		} else {
			report.Summary = summary
		}
	}

	report.Diagnostics = diags.Items()

	e.logger.Info("Analysis complete", map[string]interface{}{
		"runId":    report.RunID,
		"packages": ws.PackageCount(),
		"entities": len(entities),
		"edges":    len(edges),
		"duration": time.Since(started).String(),
	})
	return report, nil
}

// partitionFiles splits the tree into Rust sources and concatenated
// manifest text, in tree order.
func partitionFiles(tree source.Tree, diags *diag.Collector) ([]string, string) {
	var rsFiles []string
	var manifest strings.Builder
	for _, file := range tree.Files() {
		switch {
		case strings.HasSuffix(file, ".rs"):
			rsFiles = append(rsFiles, file)
		case path.Base(file) == "Cargo.toml":
			data, err := tree.Read(file)
			if err != nil {
				diags.Addf(diag.ParseDiagnostic, file, "", "unreadable manifest: %v", err)
				continue
			}
			manifest.Write(data)
			manifest.WriteByte('\n')
		}
	}
	return rsFiles, manifest.String()
}

// extractAll runs per-file extraction on a worker pool and merges results
// back into tree order, so downstream output does not depend on
// scheduling.
func (e *Engine) extractAll(ctx context.Context, tree source.Tree, ws *workspace.Workspace, files []string, opts Options, diags *diag.Collector) ([]fileResult, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(files) {
		workers = len(files)
	}
	if len(files) == 0 {
		return nil, nil
	}

	jobs := make(chan int)
	out := make(chan fileResult, len(files))
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Tree-sitter parsers are not safe for concurrent use, so
			// each worker owns one.
			var parser *extract.SyntaxParser
			if opts.SyntaxBackend && extract.IsAvailable() {
				parser = extract.NewSyntaxParser()
			}
			for idx := range jobs {
				file := files[idx]
				data, err := tree.Read(file)
				if err != nil {
					diags.Addf(diag.ParseDiagnostic, file, "", "unreadable source: %v", err)
					out <- fileResult{index: idx}
					continue
				}
				pkg := ws.PackageFor(file)
				out <- fileResult{
					index:    idx,
					entities: extractFile(ctx, parser, file, pkg, data, diags),
					content:  string(data),
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range files {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	var results []fileResult
	for res := range out {
		results = append(results, res)
	}
	if err := ctx.Err(); err != nil {
		return nil, diag.NewScopeError(diag.Cancelled, "run cancelled during extraction", err)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].index < results[j].index })
	return results, nil
}

// extractFile prefers the syntax backend when one was constructed and
// degrades to the lexical scanner on parse failure.
func extractFile(ctx context.Context, parser *extract.SyntaxParser, file, pkg string, data []byte, diags *diag.Collector) []entity.Entity {
	if parser != nil {
		entities, err := parser.ParseFile(ctx, file, pkg, data)
		if err == nil {
			return entities
		}
		diags.Addf(diag.ParseDiagnostic, file, "", "syntax backend failed, using lexical scan: %v", err)
	}
	return extract.File(file, pkg, data, diags)
}

func buildDigest(report *Report) *summarize.Digest {
	digest := &summarize.Digest{
		Project:  report.Project,
		Packages: report.Workspace.PackageCount(),
		Stats:    report.Graph.Stats,
	}
	for _, c := range report.Graph.Clusters {
		digest.Clusters = append(digest.Clusters, c.Name)
	}
	if len(report.Patterns) > 3 {
		digest.TopPatterns = report.Patterns[:3]
	} else {
		digest.TopPatterns = report.Patterns
	}
	if len(report.Styles) > 3 {
		digest.TopStyles = report.Styles[:3]
	} else {
		digest.TopStyles = report.Styles
	}
	return digest
}
