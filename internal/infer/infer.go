// Package infer derives typed relationships between extracted entities.
// It works purely on names and spans: a name table of every extracted
// entity, a resolution heuristic for unqualified identifiers, and a set
// of edge producers for each relationship kind.
package infer

import (
	"regexp"
	"sort"
	"strings"

	"cratescope/internal/diag"
	"cratescope/internal/entity"
)

// primitiveNames are Rust primitives and ubiquitous std containers that
// never produce reference edges.
var primitiveNames = map[string]bool{
	"bool": true, "char": true, "str": true,
	"i8": true, "i16": true, "i32": true, "i64": true, "i128": true, "isize": true,
	"u8": true, "u16": true, "u32": true, "u64": true, "u128": true, "usize": true,
	"f32": true, "f64": true,
	"String": true, "Vec": true, "Option": true, "Result": true, "Box": true,
	"Rc": true, "Arc": true, "RefCell": true, "Cell": true, "Mutex": true,
	"RwLock": true, "HashMap": true, "HashSet": true, "BTreeMap": true,
	"BTreeSet": true, "VecDeque": true, "Cow": true, "PhantomData": true,
	"Self": true, "self": true, "Some": true, "None": true, "Ok": true, "Err": true,
}

var identRe = regexp.MustCompile(`[A-Za-z_]\w*`)

// Table resolves entity names to declared entities. Candidates for each
// name are kept in declaration order (file path, then file-local index),
// which makes resolution deterministic regardless of extraction order.
type Table struct {
	byName    map[string][]*entity.Entity
	entities  []entity.Entity
	diags     *diag.Collector
	ambiguous map[ambiguityKey]bool
}

// ambiguityKey dedupes ambiguity diagnostics per reference site, so a
// name referenced many times from one file records one diagnostic.
type ambiguityKey struct {
	file, name string
}

// NewTable builds a name table over the global entity set. The input
// slice is sorted in place into declaration order.
func NewTable(entities []entity.Entity, diags *diag.Collector) *Table {
	sort.Slice(entities, func(i, j int) bool {
		if entities[i].File != entities[j].File {
			return entities[i].File < entities[j].File
		}
		return entities[i].Span[0] < entities[j].Span[0]
	})

	t := &Table{
		byName:    make(map[string][]*entity.Entity),
		entities:  entities,
		diags:     diags,
		ambiguous: make(map[ambiguityKey]bool),
	}
	for i := range entities {
		e := &entities[i]
		// Impl blocks share their type's name; they are not resolution
		// targets, only edge sources.
		if e.Kind == entity.KindImpl {
			continue
		}
		t.byName[e.Name] = append(t.byName[e.Name], e)
	}
	return t
}

// Resolve maps an unqualified name seen from fromPkg to a declared entity.
// Same-package candidates win; among equals the first declaration wins.
// Any name matching more than one declared entity records a
// ResolutionAmbiguity diagnostic, even when the same-package rule makes
// the pick unambiguous.
func (t *Table) Resolve(name, fromPkg, fromFile string) *entity.Entity {
	candidates := t.byName[name]
	switch len(candidates) {
	case 0:
		return nil
	case 1:
		return candidates[0]
	}

	var samePkg []*entity.Entity
	for _, c := range candidates {
		if c.Package == fromPkg {
			samePkg = append(samePkg, c)
		}
	}
	pool := candidates
	if len(samePkg) > 0 {
		pool = samePkg
	}
	key := ambiguityKey{file: fromFile, name: name}
	if !t.ambiguous[key] {
		t.ambiguous[key] = true
		t.diags.Addf(diag.ResolutionAmbiguity, fromFile, name,
			"name matches %d entities; resolved to %s", len(candidates), pool[0].ID)
	}
	return pool[0]
}

// edgeKey deduplicates edges; occurrences accumulate into Weight.
type edgeKey struct {
	from, to string
	kind     entity.EdgeKind
}

// Inferencer accumulates edges over the entity set.
type Inferencer struct {
	table   *Table
	weights map[edgeKey]int
	diags   *diag.Collector
}

// New creates an inferencer over a prepared name table.
func New(t *Table, diags *diag.Collector) *Inferencer {
	return &Inferencer{
		table:   t,
		weights: make(map[edgeKey]int),
		diags:   diags,
	}
}

// Run produces all edges for the table's entity set, sorted
// deterministically.
func (inf *Inferencer) Run() []entity.Edge {
	entities := inf.table.entities
	for i := range entities {
		e := &entities[i]
		switch e.Kind {
		case entity.KindStruct:
			inf.referenceEdges(e, fieldTypes(e.Struct.Fields))
			inf.deriveEdges(e, e.Struct.Derives)
		case entity.KindEnum:
			inf.referenceEdges(e, fieldTypes(e.Enum.Variants))
			inf.deriveEdges(e, e.Enum.Derives)
		case entity.KindFunction:
			types := fieldTypes(e.Function.Params)
			if e.Function.ReturnType != "" {
				types = append(types, e.Function.ReturnType)
			}
			inf.referenceEdges(e, types)
			inf.usesEdges(e, e.Function.Body)
		case entity.KindImpl:
			inf.implementsEdges(e)
		}
	}
	inf.containsEdges(entities)
	return inf.edges()
}

func fieldTypes(fields []entity.Field) []string {
	var types []string
	for _, f := range fields {
		if f.Type != "" {
			types = append(types, f.Type)
		}
	}
	return types
}

// referenceEdges links type-position identifiers to declared entities.
// Unresolvable names in type position are skipped; they are usually
// upstream crate types, not missing graph nodes.
func (inf *Inferencer) referenceEdges(from *entity.Entity, typeTexts []string) {
	for _, text := range typeTexts {
		for _, name := range identRe.FindAllString(text, -1) {
			if primitiveNames[name] || name == from.Name {
				continue
			}
			target := inf.table.Resolve(name, from.Package, from.File)
			if target == nil || target.ID == from.ID {
				continue
			}
			inf.add(from.ID, target.ID, entity.EdgeReferences)
		}
	}
}

// deriveEdges produces one edge per derived trait. A derive naming no
// extracted trait still yields an edge, to an external placeholder;
// derives are never dropped.
func (inf *Inferencer) deriveEdges(from *entity.Entity, derives []string) {
	for _, name := range derives {
		target := inf.table.Resolve(name, from.Package, from.File)
		to := entity.ExternalID(name)
		if target != nil && target.Kind == entity.KindTrait {
			to = target.ID
		}
		inf.add(from.ID, to, entity.EdgeDerives)
	}
}

// implementsEdges links the implementing type to the trait for
// `impl Trait for Type`. Either endpoint may fall back: the type to the
// impl block itself, the trait to an external placeholder.
func (inf *Inferencer) implementsEdges(impl *entity.Entity) {
	if impl.Impl == nil || impl.Impl.TraitName == "" {
		return
	}
	from := impl.ID
	if typ := inf.table.Resolve(impl.Impl.TypeName, impl.Package, impl.File); typ != nil {
		from = typ.ID
	}
	to := entity.ExternalID(impl.Impl.TraitName)
	if tr := inf.table.Resolve(impl.Impl.TraitName, impl.Package, impl.File); tr != nil && tr.Kind == entity.KindTrait {
		to = tr.ID
	}
	inf.add(from, to, entity.EdgeImplements)
}

// usesEdges links a function to every declared entity whose name appears
// in its body. Weight counts occurrences.
func (inf *Inferencer) usesEdges(from *entity.Entity, body string) {
	if body == "" {
		return
	}
	for _, name := range identRe.FindAllString(body, -1) {
		if primitiveNames[name] || name == from.Name {
			continue
		}
		if len(name) > 0 && name[0] >= 'a' && name[0] <= 'z' {
			// lowercase identifiers in bodies are overwhelmingly locals;
			// only link them when they resolve to a declared function
			target := inf.table.Resolve(name, from.Package, from.File)
			if target == nil || target.Kind != entity.KindFunction || target.ID == from.ID {
				continue
			}
			inf.add(from.ID, target.ID, entity.EdgeUses)
			continue
		}
		target := inf.table.Resolve(name, from.Package, from.File)
		if target == nil || target.ID == from.ID {
			continue
		}
		inf.add(from.ID, target.ID, entity.EdgeUses)
	}
}

// containsEdges links each entity to the smallest enclosing declaration
// in the same file.
func (inf *Inferencer) containsEdges(entities []entity.Entity) {
	byFile := make(map[string][]*entity.Entity)
	for i := range entities {
		byFile[entities[i].File] = append(byFile[entities[i].File], &entities[i])
	}

	var files []string
	for f := range byFile {
		files = append(files, f)
	}
	sort.Strings(files)

	for _, f := range files {
		list := byFile[f]
		for _, child := range list {
			var parent *entity.Entity
			for _, cand := range list {
				if cand.ID == child.ID {
					continue
				}
				if cand.Span[0] <= child.Span[0] && child.Span[1] <= cand.Span[1] &&
					(cand.Span[1]-cand.Span[0]) > (child.Span[1]-child.Span[0]) {
					if parent == nil || (cand.Span[1]-cand.Span[0]) < (parent.Span[1]-parent.Span[0]) {
						parent = cand
					}
				}
			}
			if parent != nil {
				inf.add(parent.ID, child.ID, entity.EdgeContains)
			}
		}
	}
}

func (inf *Inferencer) add(from, to string, kind entity.EdgeKind) {
	inf.weights[edgeKey{from: from, to: to, kind: kind}]++
}

func (inf *Inferencer) edges() []entity.Edge {
	out := make([]entity.Edge, 0, len(inf.weights))
	for k, w := range inf.weights {
		out = append(out, entity.Edge{From: k.from, To: k.to, Kind: k.kind, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// Edges is the package entry point: builds the name table, runs every
// producer, and returns the deterministic edge list.
func Edges(entities []entity.Entity, diags *diag.Collector) []entity.Edge {
	t := NewTable(entities, diags)
	return New(t, diags).Run()
}

// ExternalTargets returns the distinct external placeholder ids referenced
// by the edge list, sorted.
func ExternalTargets(edges []entity.Edge) []string {
	seen := make(map[string]bool)
	for _, e := range edges {
		if entity.IsExternal(e.To) {
			seen[e.To] = true
		}
		if entity.IsExternal(e.From) {
			seen[e.From] = true
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// DisplayName strips the external prefix for rendering.
func DisplayName(id string) string {
	return strings.TrimPrefix(id, entity.ExternalPrefix)
}
