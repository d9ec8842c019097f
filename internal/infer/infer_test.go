package infer

import (
	"testing"

	"cratescope/internal/diag"
	"cratescope/internal/entity"
	"cratescope/internal/extract"
)

func extractAll(t *testing.T, files map[string]struct{ pkg, src string }) []entity.Entity {
	t.Helper()
	diags := diag.NewCollector()
	var all []entity.Entity
	for path, f := range files {
		all = append(all, extract.File(path, f.pkg, []byte(f.src), diags)...)
	}
	return all
}

func countEdges(edges []entity.Edge, kind entity.EdgeKind) int {
	n := 0
	for _, e := range edges {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func findEdge(edges []entity.Edge, kind entity.EdgeKind, from, to string) *entity.Edge {
	for i := range edges {
		if edges[i].Kind == kind && edges[i].From == from && edges[i].To == to {
			return &edges[i]
		}
	}
	return nil
}

func TestParamTypeReference(t *testing.T) {
	entities := extractAll(t, map[string]struct{ pkg, src string }{
		"src/lib.rs": {"demo", "struct Foo { a: i32 }\n\nfn bar(f: Foo) {}\n"},
	})
	if len(entities) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(entities))
	}

	diags := diag.NewCollector()
	edges := Edges(entities, diags)

	if countEdges(edges, entity.EdgeReferences) != 1 {
		t.Fatalf("expected exactly 1 references edge, got %+v", edges)
	}
	var foo, bar string
	for _, e := range entities {
		switch e.Name {
		case "Foo":
			foo = e.ID
		case "bar":
			bar = e.ID
		}
	}
	if findEdge(edges, entity.EdgeReferences, bar, foo) == nil {
		t.Errorf("missing references edge bar -> Foo in %+v", edges)
	}
}

func TestPrimitivesAndSelfExcluded(t *testing.T) {
	entities := extractAll(t, map[string]struct{ pkg, src string }{
		"src/lib.rs": {"demo", `
struct Node {
    next: Option<Box<Node>>,
    count: u64,
    items: Vec<String>,
}
`},
	})
	edges := Edges(entities, diag.NewCollector())
	if countEdges(edges, entity.EdgeReferences) != 0 {
		t.Errorf("self and primitive references should be excluded, got %+v", edges)
	}
}

func TestUnresolvableDerive(t *testing.T) {
	entities := extractAll(t, map[string]struct{ pkg, src string }{
		"src/lib.rs": {"demo", "#[derive(Serialize)]\nstruct Payload { id: u64 }\n"},
	})
	edges := Edges(entities, diag.NewCollector())

	derives := countEdges(edges, entity.EdgeDerives)
	if derives != 1 {
		t.Fatalf("expected 1 derives edge, got %d", derives)
	}
	e := findEdge(edges, entity.EdgeDerives, entities[0].ID, entity.ExternalID("Serialize"))
	if e == nil {
		t.Errorf("derive should target external placeholder, got %+v", edges)
	}
}

func TestResolvedDerive(t *testing.T) {
	entities := extractAll(t, map[string]struct{ pkg, src string }{
		"src/lib.rs": {"demo", `
trait Summarize {
    fn summary(&self) -> String;
}

#[derive(Summarize)]
struct Article { title: String }
`},
	})
	edges := Edges(entities, diag.NewCollector())

	var article, summarize string
	for _, e := range entities {
		switch e.Name {
		case "Article":
			article = e.ID
		case "Summarize":
			summarize = e.ID
		}
	}
	if findEdge(edges, entity.EdgeDerives, article, summarize) == nil {
		t.Errorf("derive should resolve to the declared trait, got %+v", edges)
	}
}

func TestAmbiguityPrefersSamePackage(t *testing.T) {
	entities := extractAll(t, map[string]struct{ pkg, src string }{
		"core/src/lib.rs": {"core", "pub struct Error { code: i32 }\n"},
		"api/src/lib.rs":  {"api", "pub struct Error { status: u16 }\n\nfn fail(e: Error) {}\n"},
	})

	diags := diag.NewCollector()
	edges := Edges(entities, diags)

	var apiError, fail string
	for _, e := range entities {
		if e.Name == "Error" && e.Package == "api" {
			apiError = e.ID
		}
		if e.Name == "fail" {
			fail = e.ID
		}
	}
	if findEdge(edges, entity.EdgeReferences, fail, apiError) == nil {
		t.Errorf("reference should resolve to same-package Error, got %+v", edges)
	}
	// Two packages declare Error, so the reference is ambiguous even
	// though the same-package rule decides it. Exactly one diagnostic:
	// the single reference site must not be double-counted.
	if n := diags.CountByKind(diag.ResolutionAmbiguity); n != 1 {
		t.Errorf("ambiguity diagnostics = %d, want 1: %+v", n, diags.Items())
	}
}

func TestAmbiguityRecordedOncePerSite(t *testing.T) {
	entities := extractAll(t, map[string]struct{ pkg, src string }{
		"core/src/lib.rs": {"core", "pub struct Error { code: i32 }\n"},
		"api/src/lib.rs":  {"api", "pub struct Error { status: u16 }\n\nfn fail(a: Error, b: Error) -> Error { a }\n"},
	})

	diags := diag.NewCollector()
	Edges(entities, diags)

	// Three type-position mentions of the same ambiguous name from one
	// file collapse to one diagnostic.
	if n := diags.CountByKind(diag.ResolutionAmbiguity); n != 1 {
		t.Errorf("ambiguity diagnostics = %d, want 1: %+v", n, diags.Items())
	}
}

func TestAmbiguityRecordedAcrossPackages(t *testing.T) {
	entities := extractAll(t, map[string]struct{ pkg, src string }{
		"core/src/lib.rs":  {"core", "pub struct Error { code: i32 }\n"},
		"store/src/lib.rs": {"store", "pub struct Error { reason: String }\n"},
		"api/src/lib.rs":   {"api", "fn fail(e: Error) {}\n"},
	})

	diags := diag.NewCollector()
	edges := Edges(entities, diags)

	if diags.CountByKind(diag.ResolutionAmbiguity) == 0 {
		t.Fatal("expected a resolution-ambiguity diagnostic")
	}
	// First declaration order: core/src/lib.rs sorts before store/src/lib.rs
	var coreError, fail string
	for _, e := range entities {
		if e.Name == "Error" && e.Package == "core" {
			coreError = e.ID
		}
		if e.Name == "fail" {
			fail = e.ID
		}
	}
	if findEdge(edges, entity.EdgeReferences, fail, coreError) == nil {
		t.Errorf("ambiguous reference should resolve to first declaration, got %+v", edges)
	}
}

func TestImplementsEdge(t *testing.T) {
	entities := extractAll(t, map[string]struct{ pkg, src string }{
		"src/lib.rs": {"demo", `
trait Render {
    fn render(&self) -> String;
}

struct Page;

impl Render for Page {
    fn render(&self) -> String { String::new() }
}
`},
	})
	edges := Edges(entities, diag.NewCollector())

	var page, render string
	for _, e := range entities {
		switch {
		case e.Kind == entity.KindStruct && e.Name == "Page":
			page = e.ID
		case e.Kind == entity.KindTrait && e.Name == "Render":
			render = e.ID
		}
	}
	if findEdge(edges, entity.EdgeImplements, page, render) == nil {
		t.Errorf("missing implements edge Page -> Render, got %+v", edges)
	}
}

func TestImplementsExternalTrait(t *testing.T) {
	entities := extractAll(t, map[string]struct{ pkg, src string }{
		"src/lib.rs": {"demo", "struct Page;\n\nimpl Display for Page {\n    fn fmt(&self) {}\n}\n"},
	})
	edges := Edges(entities, diag.NewCollector())

	var page string
	for _, e := range entities {
		if e.Kind == entity.KindStruct {
			page = e.ID
		}
	}
	if findEdge(edges, entity.EdgeImplements, page, entity.ExternalID("Display")) == nil {
		t.Errorf("implements should fall back to external placeholder, got %+v", edges)
	}
}

func TestContainsEdges(t *testing.T) {
	entities := extractAll(t, map[string]struct{ pkg, src string }{
		"src/lib.rs": {"demo", `
mod server {
    pub struct Handler;

    impl Handler {
        pub fn handle(&self) {}
    }
}
`},
	})
	edges := Edges(entities, diag.NewCollector())

	var mod, handler, impl, handle string
	for _, e := range entities {
		switch e.Kind {
		case entity.KindModule:
			mod = e.ID
		case entity.KindStruct:
			handler = e.ID
		case entity.KindImpl:
			impl = e.ID
		case entity.KindFunction:
			handle = e.ID
		}
	}
	if findEdge(edges, entity.EdgeContains, mod, handler) == nil {
		t.Errorf("missing contains edge module -> Handler, got %+v", edges)
	}
	if findEdge(edges, entity.EdgeContains, impl, handle) == nil {
		t.Errorf("contains should pick the smallest enclosing span (impl, not module), got %+v", edges)
	}
	if findEdge(edges, entity.EdgeContains, mod, handle) != nil {
		t.Error("module should not directly contain handle")
	}
}

func TestUsesEdgeWeights(t *testing.T) {
	entities := extractAll(t, map[string]struct{ pkg, src string }{
		"src/lib.rs": {"demo", `
struct Cache;

fn warm() {
    let a = Cache;
    let b = Cache;
}
`},
	})
	edges := Edges(entities, diag.NewCollector())

	var cache, warm string
	for _, e := range entities {
		switch e.Name {
		case "Cache":
			cache = e.ID
		case "warm":
			warm = e.ID
		}
	}
	e := findEdge(edges, entity.EdgeUses, warm, cache)
	if e == nil {
		t.Fatalf("missing uses edge, got %+v", edges)
	}
	if e.Weight != 2 {
		t.Errorf("uses weight = %d, want 2", e.Weight)
	}
}

func TestExternalTargets(t *testing.T) {
	edges := []entity.Edge{
		{From: "a", To: entity.ExternalID("Serialize"), Kind: entity.EdgeDerives, Weight: 1},
		{From: "b", To: entity.ExternalID("Debug"), Kind: entity.EdgeDerives, Weight: 1},
		{From: "a", To: "b", Kind: entity.EdgeReferences, Weight: 1},
	}
	got := ExternalTargets(edges)
	want := []string{entity.ExternalID("Debug"), entity.ExternalID("Serialize")}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("external targets = %v, want %v", got, want)
	}
}
