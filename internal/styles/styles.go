// Package styles scores architecture styles over the combined evidence of
// a run: pattern matches, graph statistics, workspace shape, and
// concurrency-primitive counts. Styles are scored independently; several
// can coexist at high confidence and no single winner is forced.
package styles

import (
	"fmt"
	"sort"
	"strings"

	"cratescope/internal/entity"
	"cratescope/internal/graph"
	"cratescope/internal/patterns"
	"cratescope/internal/workspace"
)

// Score is one ranked architecture style.
type Score struct {
	Style       string   `json:"style"`
	Confidence  float64  `json:"confidence"`
	Evidence    []string `json:"evidence"`
	Description string   `json:"description"`
}

// Input bundles the evidence a scorer may consult.
type Input struct {
	Matches     []patterns.Match
	Graph       *graph.Graph
	Workspace   *workspace.Workspace
	Code        string
	Manifest    string
	Concurrency []PrimitiveCount
}

// indicatorStyle is a style scored by literal indicator breadth, optionally
// reinforced by a pattern match of the same family.
type indicatorStyle struct {
	name        string
	indicators  []string
	pattern     string
	description string
}

var indicatorStyles = []indicatorStyle{
	{
		name:        "Plugin Architecture",
		indicators:  []string{"plugin", "Plugin", "add_plugin", "PluginGroup"},
		description: "Core system with extensible plugin-based functionality",
	},
	{
		name:        "Event-Driven",
		indicators:  []string{"Event", "EventReader", "EventWriter", "on_event", "emit"},
		description: "Components communicate through events and messages",
	},
	{
		name:        "Actor Model",
		indicators:  []string{"actix", "xactor", "ractor", "Addr<", "Handler<"},
		pattern:     "Actor Model",
		description: "Concurrent computation using actors with message mailboxes",
	},
	{
		name:        "Reactor/Event-Loop",
		indicators:  []string{"Future", "Poll::", "Waker", "async fn", ".await", "executor"},
		pattern:     "Async Runtime",
		description: "Async I/O with an event loop driving futures",
	},
	{
		name:        "Work-Stealing Scheduler",
		indicators:  []string{"work_steal", "multi_thread", "Runtime::new", "tokio::runtime"},
		description: "Load-balanced task scheduling across worker threads",
	},
	{
		name:        "ECS (Entity-Component-System)",
		indicators:  []string{"bevy_ecs", "specs", "legion", "hecs", "World", "Query<"},
		pattern:     "ECS (Entity-Component-System)",
		description: "Data-oriented design with entities, components, and systems",
	},
}

const (
	indicatorThreshold     = 0.3
	workspaceBase          = 0.5
	workspaceStep          = 0.1
	workspacePlateau       = 0.9
	monolithModuleFloor    = 10
	monolithConfidence     = 0.7
	hexagonalMinPackages   = 2
	hexagonalSparsePenalty = 0.5
)

var hexagonalVocab = []string{"port", "adapter", "domain", "infrastructure", "storage", "backend"}

// Rank scores every style against the input and returns them sorted by
// confidence, then name.
func Rank(in *Input) []Score {
	var scores []Score

	if s := scoreWorkspace(in); s != nil {
		scores = append(scores, *s)
	}
	if s := scoreMonolith(in); s != nil {
		scores = append(scores, *s)
	}
	if s := scoreHexagonal(in); s != nil {
		scores = append(scores, *s)
	}
	for _, style := range indicatorStyles {
		if s := scoreIndicators(in, style); s != nil {
			scores = append(scores, *s)
		}
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Confidence != scores[j].Confidence {
			return scores[i].Confidence > scores[j].Confidence
		}
		return scores[i].Style < scores[j].Style
	})
	return scores
}

// scoreWorkspace scales with package count past the multi-package
// threshold and plateaus so huge workspaces do not dominate.
func scoreWorkspace(in *Input) *Score {
	if in.Workspace == nil {
		return nil
	}
	n := in.Workspace.PackageCount()
	if n <= 1 {
		return nil
	}
	confidence := workspaceBase + workspaceStep*float64(n-2)
	if confidence > workspacePlateau {
		confidence = workspacePlateau
	}
	return &Score{
		Style:       "Multi-Crate Workspace",
		Confidence:  confidence,
		Evidence:    []string{fmt.Sprintf("workspace with %d packages", n)},
		Description: "Multiple crates in a workspace, each with specific responsibility",
	}
}

func scoreMonolith(in *Input) *Score {
	if in.Workspace == nil || in.Workspace.PackageCount() != 1 || in.Graph == nil {
		return nil
	}
	modules := in.Graph.Stats.EntitiesByKind[entity.KindModule]
	if modules <= monolithModuleFloor {
		return nil
	}
	return &Score{
		Style:       "Modular Monolith",
		Confidence:  monolithConfidence,
		Evidence:    []string{fmt.Sprintf("single crate with %d module declarations", modules)},
		Description: "Single crate with well-organized internal modules by domain",
	}
}

// scoreHexagonal scales with vocabulary-hit breadth; hits concentrated in
// a single package are discounted because ports-and-adapters is about
// separation across boundaries.
func scoreHexagonal(in *Input) *Score {
	if in.Graph == nil {
		return nil
	}

	found := make(map[string]bool)
	pkgsWithHits := make(map[string]bool)
	for i := range in.Graph.Entities {
		e := &in.Graph.Entities[i]
		haystack := strings.ToLower(e.File + " " + e.Name)
		for _, word := range hexagonalVocab {
			if strings.Contains(haystack, word) {
				found[word] = true
				pkgsWithHits[e.Package] = true
			}
		}
	}
	if len(found) == 0 {
		return nil
	}

	confidence := float64(len(found)) / float64(len(hexagonalVocab))
	if len(pkgsWithHits) < hexagonalMinPackages {
		confidence *= hexagonalSparsePenalty
	}
	if confidence < indicatorThreshold {
		return nil
	}

	words := make([]string, 0, len(found))
	for w := range found {
		words = append(words, w)
	}
	sort.Strings(words)
	evidence := make([]string, 0, len(words)+1)
	for _, w := range words {
		evidence = append(evidence, "vocabulary: "+w)
	}
	evidence = append(evidence, fmt.Sprintf("hits across %d packages", len(pkgsWithHits)))

	return &Score{
		Style:       "Hexagonal/Ports-Adapters",
		Confidence:  confidence,
		Evidence:    evidence,
		Description: "Domain logic separated from infrastructure through traits",
	}
}

func scoreIndicators(in *Input, style indicatorStyle) *Score {
	combined := in.Code + "\n" + in.Manifest
	var found []string
	for _, ind := range style.indicators {
		if strings.Contains(combined, ind) {
			found = append(found, ind)
		}
	}

	confidence := float64(len(found)) / float64(len(style.indicators))
	evidence := make([]string, 0, len(found)+1)
	for _, f := range found {
		evidence = append(evidence, "indicator: "+f)
	}

	// A strong pattern match in the same family lifts the style even if
	// literal indicators are sparse.
	if style.pattern != "" {
		if m := patterns.ByName(in.Matches, style.pattern); m != nil && m.Confidence > confidence {
			confidence = m.Confidence
			evidence = append(evidence, fmt.Sprintf("pattern: %s (%.2f)", m.Name, m.Confidence))
		}
	}

	if confidence < indicatorThreshold {
		return nil
	}
	return &Score{
		Style:       style.name,
		Confidence:  confidence,
		Evidence:    evidence,
		Description: style.description,
	}
}
