package patterns

import (
	"fmt"
	"sort"
	"strings"

	"cratescope/internal/entity"
	"cratescope/internal/graph"
)

// BuiltinCatalog returns the default signature set. Adding a signature
// here (or via LoadCatalog) requires no engine change.
func BuiltinCatalog() Catalog {
	return Catalog{Signatures: []Signature{
		{
			Name: "Tower Service",
			Rules: []Rule{
				KeywordRule{Keyword: "ServiceBuilder"},
				KeywordRule{Keyword: "tower::"},
				KeywordRule{Keyword: "tower", Import: true},
				KeywordRule{Keyword: "tower_http", Import: true},
				KeywordRule{Keyword: "tower_service", Import: true},
			},
		},
		{
			Name: "Actor Model",
			Rules: []Rule{
				KeywordRule{Keyword: "Addr<"},
				KeywordRule{Keyword: "Handler<"},
				KeywordRule{Keyword: "Recipient<"},
				KeywordRule{Keyword: "actix", Import: true},
				KeywordRule{Keyword: "xactor", Import: true},
				KeywordRule{Keyword: "ractor", Import: true},
			},
		},
		{
			Name: "ECS (Entity-Component-System)",
			Rules: []Rule{
				KeywordRule{Keyword: "Query<"},
				KeywordRule{Keyword: "Commands"},
				KeywordRule{Keyword: "Res<"},
				KeywordRule{Keyword: "ResMut<"},
				KeywordRule{Keyword: "bevy_ecs", Import: true},
				KeywordRule{Keyword: "specs", Import: true},
				KeywordRule{Keyword: "legion", Import: true},
				KeywordRule{Keyword: "hecs", Import: true},
			},
		},
		{
			Name: "Type-State",
			Rules: []Rule{
				RegexRule{Pattern: `struct\s+\w+<\w+>`},
				RegexRule{Pattern: `impl\s+\w+<\w+>`},
				RegexRule{Pattern: `fn\s+\w+\(self\)\s*->\s*\w+<\w+>`},
			},
		},
		{
			Name: "Builder",
			Rules: []Rule{
				KeywordRule{Keyword: "Builder"},
				KeywordRule{Keyword: "build()"},
				KeywordRule{Keyword: "with_"},
				RegexRule{Pattern: `fn\s+builder\s*\(`},
				RegexRule{Pattern: `fn\s+build\s*\(self\)`},
				GraphRule{Predicate: PredBuilderMethodPair},
			},
		},
		{
			Name: "Error Handling (thiserror)",
			Rules: []Rule{
				KeywordRule{Keyword: "thiserror", Import: true},
				RegexRule{Pattern: `#\[derive\([^)]*Error[^)]*\)\]`},
			},
		},
		{
			Name: "Error Handling (anyhow)",
			Rules: []Rule{
				KeywordRule{Keyword: "anyhow", Import: true},
				KeywordRule{Keyword: ".context("},
				KeywordRule{Keyword: "anyhow!"},
				KeywordRule{Keyword: "bail!"},
			},
		},
		{
			Name: "Async Runtime",
			Rules: []Rule{
				KeywordRule{Keyword: "tokio", Import: true},
				KeywordRule{Keyword: "async_std", Import: true},
				KeywordRule{Keyword: "#[tokio::main]"},
				KeywordRule{Keyword: ".await"},
				GraphRule{Predicate: PredAsyncFunctions},
			},
		},
		{
			Name: "CRDT",
			Rules: []Rule{
				KeywordRule{Keyword: "CRDT"},
				KeywordRule{Keyword: "Replica"},
				KeywordRule{Keyword: "yrs", Import: true},
				KeywordRule{Keyword: "automerge", Import: true},
			},
		},
	}}
}

// Predicate names in the default table.
const (
	PredBuilderMethodPair = "builder-method-pair"
	PredAsyncFunctions    = "async-functions"
	PredTraitFanout       = "trait-fanout"
)

const traitFanoutThreshold = 3

// DefaultPredicates returns the built-in graph-shape predicate table.
func DefaultPredicates() map[string]Predicate {
	return map[string]Predicate{
		// A type exposing both a constructor-like entry point and a
		// consuming build step.
		PredBuilderMethodPair: func(g *graph.Graph) (bool, string) {
			for i := range g.Entities {
				e := &g.Entities[i]
				if e.Kind != entity.KindImpl || e.Impl == nil {
					continue
				}
				body := e.Impl.Body
				hasBuild := strings.Contains(body, "fn build")
				hasEntry := strings.Contains(body, "fn new") || strings.Contains(body, "fn builder") || strings.Contains(body, "fn with_")
				if hasBuild && hasEntry {
					return true, fmt.Sprintf("%s exposes constructor and build()", e.Impl.TypeName)
				}
			}
			return false, ""
		},
		PredAsyncFunctions: func(g *graph.Graph) (bool, string) {
			n := 0
			for i := range g.Entities {
				e := &g.Entities[i]
				if e.Kind == entity.KindFunction && e.Function != nil && e.Function.Async {
					n++
				}
			}
			if n == 0 {
				return false, ""
			}
			return true, fmt.Sprintf("%d async functions", n)
		},
		// One trait implemented by several distinct types.
		PredTraitFanout: func(g *graph.Graph) (bool, string) {
			fanout := make(map[string]int)
			for _, e := range g.Edges {
				if e.Kind == entity.EdgeImplements {
					fanout[e.To]++
				}
			}
			var qualifying []string
			for id, n := range fanout {
				if n >= traitFanoutThreshold && g.EntityByID(id) != nil {
					qualifying = append(qualifying, id)
				}
			}
			if len(qualifying) == 0 {
				return false, ""
			}
			// Stable evidence: several traits may qualify, report the
			// sorted-first.
			sort.Strings(qualifying)
			t := g.EntityByID(qualifying[0])
			return true, fmt.Sprintf("trait %s has %d implementors", t.Name, fanout[qualifying[0]])
		},
	}
}
