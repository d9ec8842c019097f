package patterns

import (
	"fmt"
	"math"
	"testing"

	"cratescope/internal/diag"
	"cratescope/internal/entity"
	"cratescope/internal/graph"
)

func newEngine() *Engine {
	return NewEngine(DefaultPredicates(), diag.NewCollector())
}

func TestConfidenceIsSatisfiedOverTotal(t *testing.T) {
	catalog := Catalog{Signatures: []Signature{{
		Name: "Half",
		Rules: []Rule{
			KeywordRule{Keyword: "present"},
			KeywordRule{Keyword: "absent"},
		},
	}}}
	matches := newEngine().Evaluate(catalog, &Input{Code: "present here"})
	if len(matches) != 1 {
		t.Fatalf("matches = %+v", matches)
	}
	if math.Abs(matches[0].Confidence-0.5) > 1e-9 {
		t.Errorf("confidence = %v, want 0.5", matches[0].Confidence)
	}
	if matches[0].Satisfied != 1 || matches[0].Total != 2 {
		t.Errorf("counts = %d/%d", matches[0].Satisfied, matches[0].Total)
	}
}

func TestZeroSatisfiedOmitted(t *testing.T) {
	catalog := Catalog{Signatures: []Signature{{
		Name:  "Never",
		Rules: []Rule{KeywordRule{Keyword: "nothing_matches_this"}},
	}}}
	matches := newEngine().Evaluate(catalog, &Input{Code: "unrelated"})
	if len(matches) != 0 {
		t.Errorf("matches = %+v, want none", matches)
	}
}

func TestImportRuleMatchesManifestAndUseLines(t *testing.T) {
	rule := KeywordRule{Keyword: "tokio", Import: true}
	eng := newEngine()

	if ok, _ := rule.Evaluate(eng, &Input{Manifest: "tokio = \"1\""}); !ok {
		t.Error("manifest dependency should satisfy import rule")
	}
	if ok, _ := rule.Evaluate(eng, &Input{Code: "use tokio::sync::mpsc;"}); !ok {
		t.Error("use line should satisfy import rule")
	}
	if ok, _ := rule.Evaluate(eng, &Input{Code: "let tokio = 1;"}); ok {
		t.Error("bare identifier should not satisfy import rule")
	}

	hyphen := KeywordRule{Keyword: "tower_http", Import: true}
	if ok, _ := hyphen.Evaluate(eng, &Input{Manifest: "tower-http = \"0.5\""}); !ok {
		t.Error("hyphenated manifest name should satisfy underscore import rule")
	}
}

func TestRegexRuleCachesCompilation(t *testing.T) {
	eng := newEngine()
	rule := RegexRule{Pattern: `fn\s+build\s*\(self\)`}
	in := &Input{Code: "fn build(self) -> Widget {"}
	for i := 0; i < 3; i++ {
		if ok, _ := rule.Evaluate(eng, in); !ok {
			t.Fatalf("iteration %d: pattern should match", i)
		}
	}
	if _, ok := eng.regexCache.Get(rule.Pattern); !ok {
		t.Error("compiled pattern should be cached")
	}
}

func TestInvalidRegexRecordedNotFatal(t *testing.T) {
	diags := diag.NewCollector()
	eng := NewEngine(DefaultPredicates(), diags)
	rule := RegexRule{Pattern: `([unclosed`}
	if ok, _ := rule.Evaluate(eng, &Input{Code: "anything"}); ok {
		t.Error("invalid regex must not match")
	}
	if diags.Count() == 0 {
		t.Error("invalid regex should be recorded as a diagnostic")
	}
}

func TestGraphRuleBuilderPredicate(t *testing.T) {
	impl := entity.Entity{
		ID: "i", Kind: entity.KindImpl, Name: "Widget", Package: "p", File: "src/lib.rs",
		Visibility: entity.Private,
		Impl: &entity.ImplDetail{
			TypeName: "Widget",
			Body:     "fn new() -> Self { } fn build(self) -> Widget { }",
		},
	}
	g, err := graph.Assemble([]entity.Entity{impl}, nil, diag.NewCollector())
	if err != nil {
		t.Fatal(err)
	}

	rule := GraphRule{Predicate: PredBuilderMethodPair}
	ok, desc := rule.Evaluate(newEngine(), &Input{Graph: g})
	if !ok {
		t.Fatal("builder predicate should fire")
	}
	if desc == "" {
		t.Error("evidence description should name the type")
	}
}

func TestGraphRuleTraitFanoutStableEvidence(t *testing.T) {
	entities := []entity.Entity{
		{ID: "ta", Kind: entity.KindTrait, Name: "Alpha", Package: "p", File: "src/a.rs", Visibility: entity.Public},
		{ID: "tb", Kind: entity.KindTrait, Name: "Beta", Package: "p", File: "src/b.rs", Visibility: entity.Public},
	}
	var edges []entity.Edge
	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("s%d", i)
		entities = append(entities, entity.Entity{
			ID: id, Kind: entity.KindStruct, Name: "S" + id, Package: "p", File: "src/a.rs", Visibility: entity.Private,
		})
		edges = append(edges,
			entity.Edge{From: id, To: "ta", Kind: entity.EdgeImplements, Weight: 1},
			entity.Edge{From: id, To: "tb", Kind: entity.EdgeImplements, Weight: 1})
	}
	g, err := graph.Assemble(entities, edges, diag.NewCollector())
	if err != nil {
		t.Fatal(err)
	}

	// Both traits qualify; the evidence must name the same one on every
	// run regardless of map iteration order.
	rule := GraphRule{Predicate: PredTraitFanout}
	want := "trait Alpha has 3 implementors"
	for i := 0; i < 20; i++ {
		ok, desc := rule.Evaluate(newEngine(), &Input{Graph: g})
		if !ok {
			t.Fatal("fanout predicate should fire")
		}
		if desc != want {
			t.Fatalf("evidence = %q, want %q", desc, want)
		}
	}
}

func TestGraphRuleUnknownPredicate(t *testing.T) {
	rule := GraphRule{Predicate: "no-such-predicate"}
	if ok, _ := rule.Evaluate(newEngine(), &Input{Graph: &graph.Graph{}}); ok {
		t.Error("unknown predicate must not satisfy")
	}
}

func TestBuiltinCatalogAsyncRuntime(t *testing.T) {
	in := &Input{
		Code:     "#[tokio::main]\nasync fn main() { server().await; }\n",
		Manifest: "[dependencies]\ntokio = { version = \"1\", features = [\"full\"] }\n",
	}
	matches := newEngine().Evaluate(BuiltinCatalog(), in)
	m := ByName(matches, "Async Runtime")
	if m == nil {
		t.Fatalf("Async Runtime not detected in %+v", matches)
	}
	if m.Confidence <= 0 || m.Confidence > 1 {
		t.Errorf("confidence out of range: %v", m.Confidence)
	}
	if len(m.Evidence) != m.Satisfied {
		t.Errorf("evidence entries = %d, satisfied = %d", len(m.Evidence), m.Satisfied)
	}
}

func TestBuiltinCatalogThiserror(t *testing.T) {
	in := &Input{
		Code:     "#[derive(Debug, Error)]\npub enum AppError { }\n",
		Manifest: "thiserror = \"1\"\n",
	}
	matches := newEngine().Evaluate(BuiltinCatalog(), in)
	m := ByName(matches, "Error Handling (thiserror)")
	if m == nil {
		t.Fatal("thiserror pattern not detected")
	}
	if m.Satisfied != 2 {
		t.Errorf("satisfied = %d, want 2", m.Satisfied)
	}
}

func TestEvaluateDeterministicOrder(t *testing.T) {
	in := &Input{
		Code:     "async fn go() { x.await } Builder with_ build()",
		Manifest: "tokio = \"1\"\nanyhow = \"1\"",
	}
	eng := newEngine()
	first := eng.Evaluate(BuiltinCatalog(), in)
	for run := 0; run < 3; run++ {
		again := eng.Evaluate(BuiltinCatalog(), in)
		if len(again) != len(first) {
			t.Fatalf("run %d: %d matches, want %d", run, len(again), len(first))
		}
		for i := range first {
			if again[i].Name != first[i].Name || again[i].Confidence != first[i].Confidence {
				t.Errorf("run %d match %d = %+v, want %+v", run, i, again[i], first[i])
			}
		}
	}
	for i := 1; i < len(first); i++ {
		if first[i].Confidence > first[i-1].Confidence {
			t.Errorf("matches not sorted by confidence: %+v", first)
		}
	}
}

func TestEvaluationIsPure(t *testing.T) {
	in := &Input{Code: "struct S<T> {} impl S<T> {}", Manifest: ""}
	eng := newEngine()
	a := eng.Evaluate(BuiltinCatalog(), in)
	b := eng.Evaluate(BuiltinCatalog(), in)
	if len(a) != len(b) {
		t.Fatalf("evaluation not idempotent: %d vs %d", len(a), len(b))
	}
}
