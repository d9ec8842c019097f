package extract

import (
	"strings"
	"testing"

	"cratescope/internal/diag"
	"cratescope/internal/entity"
)

func extractOne(t *testing.T, src string) []entity.Entity {
	t.Helper()
	diags := diag.NewCollector()
	return File("src/lib.rs", "demo", []byte(src), diags)
}

func findByName(entities []entity.Entity, kind entity.Kind, name string) *entity.Entity {
	for i := range entities {
		if entities[i].Kind == kind && entities[i].Name == name {
			return &entities[i]
		}
	}
	return nil
}

func TestStructAndFunction(t *testing.T) {
	src := `
pub struct Foo {
    a: i32,
}

fn bar(f: Foo) -> bool {
    f.a > 0
}
`
	entities := extractOne(t, src)
	if len(entities) != 2 {
		t.Fatalf("expected 2 entities, got %d: %+v", len(entities), entities)
	}

	foo := findByName(entities, entity.KindStruct, "Foo")
	if foo == nil {
		t.Fatal("struct Foo not found")
	}
	if foo.Visibility != entity.Public {
		t.Errorf("Foo visibility = %s, want public", foo.Visibility)
	}
	if len(foo.Struct.Fields) != 1 || foo.Struct.Fields[0].Name != "a" || foo.Struct.Fields[0].Type != "i32" {
		t.Errorf("Foo fields = %+v", foo.Struct.Fields)
	}

	bar := findByName(entities, entity.KindFunction, "bar")
	if bar == nil {
		t.Fatal("fn bar not found")
	}
	if bar.Visibility != entity.Private {
		t.Errorf("bar visibility = %s, want private", bar.Visibility)
	}
	if len(bar.Function.Params) != 1 || bar.Function.Params[0].Name != "f" || bar.Function.Params[0].Type != "Foo" {
		t.Errorf("bar params = %+v", bar.Function.Params)
	}
	if bar.Function.ReturnType != "bool" {
		t.Errorf("bar return type = %q, want bool", bar.Function.ReturnType)
	}
}

func TestEntityOrderAndIDs(t *testing.T) {
	src := "struct A;\nstruct B;\nfn c() {}\n"
	entities := extractOne(t, src)
	if len(entities) != 3 {
		t.Fatalf("expected 3 entities, got %d", len(entities))
	}
	wantNames := []string{"A", "B", "c"}
	for i, want := range wantNames {
		if entities[i].Name != want {
			t.Errorf("entity %d = %s, want %s", i, entities[i].Name, want)
		}
		if entities[i].ID != entity.ProvisionalID("src/lib.rs", i, want) {
			t.Errorf("entity %d id = %s", i, entities[i].ID)
		}
	}
}

func TestDerivesAttachToFollowingType(t *testing.T) {
	src := `
#[derive(Debug, Clone, serde::Serialize)]
pub struct Config {
    name: String,
}

#[derive(Debug)]
#[non_exhaustive]
pub enum Mode {
    Fast,
    Slow,
}

struct Plain;
`
	entities := extractOne(t, src)

	cfg := findByName(entities, entity.KindStruct, "Config")
	if cfg == nil {
		t.Fatal("Config not found")
	}
	want := []string{"Debug", "Clone", "Serialize"}
	if len(cfg.Struct.Derives) != len(want) {
		t.Fatalf("Config derives = %v, want %v", cfg.Struct.Derives, want)
	}
	for i, d := range want {
		if cfg.Struct.Derives[i] != d {
			t.Errorf("derive %d = %s, want %s", i, cfg.Struct.Derives[i], d)
		}
	}

	mode := findByName(entities, entity.KindEnum, "Mode")
	if mode == nil {
		t.Fatal("Mode not found")
	}
	if len(mode.Enum.Derives) != 1 || mode.Enum.Derives[0] != "Debug" {
		t.Errorf("Mode derives = %v, want [Debug]", mode.Enum.Derives)
	}
	if len(mode.Enum.Variants) != 2 {
		t.Errorf("Mode variants = %+v", mode.Enum.Variants)
	}

	plain := findByName(entities, entity.KindStruct, "Plain")
	if plain == nil {
		t.Fatal("Plain not found")
	}
	if len(plain.Struct.Derives) != 0 {
		t.Errorf("Plain derives = %v, want none", plain.Struct.Derives)
	}
}

func TestEnumVariantPayloads(t *testing.T) {
	src := `
enum Event {
    Started,
    Progress(u32, u32),
    Done { code: i32 },
}
`
	entities := extractOne(t, src)
	ev := findByName(entities, entity.KindEnum, "Event")
	if ev == nil {
		t.Fatal("Event not found")
	}
	if len(ev.Enum.Variants) != 3 {
		t.Fatalf("variants = %+v", ev.Enum.Variants)
	}
	names := []string{"Started", "Progress", "Done"}
	for i, want := range names {
		if ev.Enum.Variants[i].Name != want {
			t.Errorf("variant %d = %s, want %s", i, ev.Enum.Variants[i].Name, want)
		}
	}
}

func TestTupleStruct(t *testing.T) {
	entities := extractOne(t, "pub struct Pair(pub i32, String);\n")
	p := findByName(entities, entity.KindStruct, "Pair")
	if p == nil {
		t.Fatal("Pair not found")
	}
	if !p.Struct.TupleStruct {
		t.Error("Pair should be a tuple struct")
	}
	if len(p.Struct.Fields) != 2 || p.Struct.Fields[0].Name != "0" || p.Struct.Fields[0].Type != "i32" {
		t.Errorf("Pair fields = %+v", p.Struct.Fields)
	}
}

func TestTraitAndImpls(t *testing.T) {
	src := `
pub trait Storage {
    fn get(&self, key: &str) -> Option<String>;
    fn put(&mut self, key: String, value: String);
}

struct MemStore;

impl Storage for MemStore {
    fn get(&self, key: &str) -> Option<String> { None }
    fn put(&mut self, key: String, value: String) {}
}

impl MemStore {
    fn new() -> Self { MemStore }
}
`
	entities := extractOne(t, src)

	tr := findByName(entities, entity.KindTrait, "Storage")
	if tr == nil {
		t.Fatal("trait Storage not found")
	}
	if len(tr.Trait.Methods) != 2 {
		t.Errorf("trait methods = %v", tr.Trait.Methods)
	}

	var traitImpl, inherent *entity.Entity
	for i := range entities {
		if entities[i].Kind != entity.KindImpl {
			continue
		}
		if entities[i].Impl.TraitName == "Storage" {
			traitImpl = &entities[i]
		} else if entities[i].Impl.TraitName == "" {
			inherent = &entities[i]
		}
	}
	if traitImpl == nil {
		t.Fatal("impl Storage for MemStore not found")
	}
	if traitImpl.Impl.TypeName != "MemStore" {
		t.Errorf("trait impl type = %s", traitImpl.Impl.TypeName)
	}
	if inherent == nil {
		t.Fatal("inherent impl MemStore not found")
	}
	if inherent.Impl.TypeName != "MemStore" {
		t.Errorf("inherent impl type = %s", inherent.Impl.TypeName)
	}
}

func TestAsyncAndSelfParams(t *testing.T) {
	src := `
pub async fn fetch(&self, url: &str, retries: u8) -> Result<(), Error> {
    Ok(())
}
`
	entities := extractOne(t, src)
	f := findByName(entities, entity.KindFunction, "fetch")
	if f == nil {
		t.Fatal("fetch not found")
	}
	if !f.Function.Async {
		t.Error("fetch should be async")
	}
	if len(f.Function.Params) != 2 {
		t.Fatalf("params = %+v, self receiver should be skipped", f.Function.Params)
	}
	if f.Function.Params[0].Name != "url" || f.Function.Params[1].Name != "retries" {
		t.Errorf("params = %+v", f.Function.Params)
	}
}

func TestModules(t *testing.T) {
	src := `
pub mod api;

mod internal {
    pub fn helper() {}
}
`
	entities := extractOne(t, src)
	api := findByName(entities, entity.KindModule, "api")
	if api == nil {
		t.Fatal("mod api not found")
	}
	if api.Visibility != entity.Public {
		t.Errorf("api visibility = %s", api.Visibility)
	}
	internal := findByName(entities, entity.KindModule, "internal")
	if internal == nil {
		t.Fatal("mod internal not found")
	}
	if findByName(entities, entity.KindFunction, "helper") == nil {
		t.Error("nested fn helper not found")
	}
}

func TestCommentsAndStringsIgnored(t *testing.T) {
	src := `
// struct NotReal { }
/* fn also_not_real() {} */
fn real() {
    let s = "struct Fake;";
    let c = 'x';
}
`
	entities := extractOne(t, src)
	if len(entities) != 1 {
		t.Fatalf("expected only fn real, got %+v", entities)
	}
	if entities[0].Name != "real" {
		t.Errorf("entity = %s", entities[0].Name)
	}
}

func TestUnbalancedBodyTruncates(t *testing.T) {
	src := "struct Broken {\n    a: i32,\n"
	diags := diag.NewCollector()
	entities := File("src/lib.rs", "demo", []byte(src), diags)
	if len(entities) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(entities))
	}
	if !entities[0].Truncated {
		t.Error("Broken should be marked truncated")
	}
	if diags.CountByKind(diag.ParseDiagnostic) == 0 {
		t.Error("expected a parse diagnostic")
	}
}

func TestCrateVisibility(t *testing.T) {
	entities := extractOne(t, "pub(crate) struct Inner;\n")
	inner := findByName(entities, entity.KindStruct, "Inner")
	if inner == nil {
		t.Fatal("Inner not found")
	}
	if inner.Visibility != entity.PackagePrivate {
		t.Errorf("visibility = %s, want package-private", inner.Visibility)
	}
}

func TestDeterministicAcrossRuns(t *testing.T) {
	src := `
pub struct A { x: B }
pub struct B { y: u8 }
fn f(a: A) {}
impl A { fn m(&self) {} }
`
	first := extractOne(t, src)
	for run := 0; run < 5; run++ {
		again := extractOne(t, src)
		if len(again) != len(first) {
			t.Fatalf("run %d: %d entities, want %d", run, len(again), len(first))
		}
		for i := range first {
			if again[i].ID != first[i].ID || again[i].Name != first[i].Name {
				t.Errorf("run %d entity %d: %s/%s, want %s/%s",
					run, i, again[i].ID, again[i].Name, first[i].ID, first[i].Name)
			}
		}
	}
}

func TestMaskPreservesOffsets(t *testing.T) {
	src := "let a = \"hi\"; // tail\nlet b = 1;"
	masked := maskNonCode(src)
	if len(masked) != len(src) {
		t.Fatalf("masked length %d, want %d", len(masked), len(src))
	}
	if strings.Contains(string(masked), "hi") {
		t.Error("string literal content should be blanked")
	}
	if strings.Contains(string(masked), "tail") {
		t.Error("comment content should be blanked")
	}
	if !strings.Contains(string(masked), "let b = 1;") {
		t.Error("code outside literals should survive")
	}
}

func TestSplitTopLevel(t *testing.T) {
	parts := splitTopLevel("HashMap<String, u32>, Vec<(i32, i32)>, bool", ',')
	if len(parts) != 3 {
		t.Fatalf("parts = %q", parts)
	}
	if strings.TrimSpace(parts[0]) != "HashMap<String, u32>" {
		t.Errorf("part 0 = %q", parts[0])
	}
}
