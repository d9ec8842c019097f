// Package patterns implements the data-driven design-pattern detector.
// A Catalog of PatternSignatures is evaluated against raw source text,
// manifest text, and the assembled graph; each signature's confidence is
// the fraction of its evidence rules that are satisfied. Evaluation is
// pure: the same inputs always produce the same matches.
package patterns

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"cratescope/internal/diag"
	"cratescope/internal/graph"
)

// Input bundles everything a rule may inspect. Code is the concatenated
// production source text; Manifest the concatenated Cargo.toml text.
type Input struct {
	Code     string
	Manifest string
	Graph    *graph.Graph
}

// Rule is one independent piece of evidence for a signature.
type Rule interface {
	// Evaluate reports whether the evidence is present, with a short
	// human-readable description when it is.
	Evaluate(eng *Engine, in *Input) (bool, string)
}

// KeywordRule checks literal presence of a keyword or import. Import
// rules match either the manifest (dependency declaration) or a `use`
// line in code.
type KeywordRule struct {
	Keyword string `yaml:"keyword"`
	Import  bool   `yaml:"import,omitempty"`
}

func (r KeywordRule) Evaluate(eng *Engine, in *Input) (bool, string) {
	if r.Import {
		hyphenated := strings.ReplaceAll(r.Keyword, "_", "-")
		if strings.Contains(in.Manifest, r.Keyword) || strings.Contains(in.Manifest, hyphenated) ||
			strings.Contains(in.Code, "use "+r.Keyword) {
			return true, "import: " + r.Keyword
		}
		return false, ""
	}
	if strings.Contains(in.Code, r.Keyword) {
		return true, "keyword: " + r.Keyword
	}
	return false, ""
}

// RegexRule checks a regular expression against the code. Compiled
// expressions are cached across signatures and runs.
type RegexRule struct {
	Pattern string `yaml:"pattern"`
}

func (r RegexRule) Evaluate(eng *Engine, in *Input) (bool, string) {
	re, err := eng.compile(r.Pattern)
	if err != nil {
		return false, ""
	}
	if re.MatchString(in.Code) {
		return true, "pattern: " + truncate(r.Pattern, 40)
	}
	return false, ""
}

// Predicate is a named graph-shape check. Predicates live in a table
// passed to the engine so the catalog itself stays pure data.
type Predicate func(g *graph.Graph) (bool, string)

// GraphRule resolves a predicate by name and applies it to the graph.
type GraphRule struct {
	Predicate string `yaml:"predicate"`
}

func (r GraphRule) Evaluate(eng *Engine, in *Input) (bool, string) {
	pred, ok := eng.predicates[r.Predicate]
	if !ok || in.Graph == nil {
		return false, ""
	}
	ok, evidence := pred(in.Graph)
	if !ok {
		return false, ""
	}
	return true, "graph: " + evidence
}

// Signature is one named pattern with its independent evidence rules.
type Signature struct {
	Name  string
	Rules []Rule
}

// Catalog is the full signature set for a run. It is a value built at
// run start; there is no global registry.
type Catalog struct {
	Signatures []Signature
}

// Match is one detected pattern with its evidence trail.
type Match struct {
	Name       string   `json:"name"`
	Confidence float64  `json:"confidence"`
	Satisfied  int      `json:"satisfied"`
	Total      int      `json:"total"`
	Evidence   []string `json:"evidence"`
}

const regexCacheSize = 128

// Engine evaluates catalogs. Safe to reuse across runs; the regex cache
// is the only state and compilation is deterministic.
type Engine struct {
	regexCache *lru.Cache[string, *regexp.Regexp]
	predicates map[string]Predicate
	diags      *diag.Collector
}

// NewEngine creates an engine with the given predicate table.
func NewEngine(predicates map[string]Predicate, diags *diag.Collector) *Engine {
	cache, _ := lru.New[string, *regexp.Regexp](regexCacheSize)
	return &Engine{
		regexCache: cache,
		predicates: predicates,
		diags:      diags,
	}
}

func (eng *Engine) compile(pattern string) (*regexp.Regexp, error) {
	if re, ok := eng.regexCache.Get(pattern); ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		if eng.diags != nil {
			eng.diags.Addf(diag.ParseDiagnostic, "", pattern, "invalid signature regex: %v", err)
		}
		return nil, fmt.Errorf("compile %q: %w", pattern, err)
	}
	eng.regexCache.Add(pattern, re)
	return re, nil
}

// Evaluate runs every signature against the input. Signatures with zero
// satisfied rules are omitted. Results are sorted by confidence, then
// name, so output is deterministic.
func (eng *Engine) Evaluate(catalog Catalog, in *Input) []Match {
	var matches []Match
	for _, sig := range catalog.Signatures {
		if len(sig.Rules) == 0 {
			continue
		}
		var evidence []string
		satisfied := 0
		for _, rule := range sig.Rules {
			ok, desc := rule.Evaluate(eng, in)
			if ok {
				satisfied++
				evidence = append(evidence, desc)
			}
		}
		if satisfied == 0 {
			continue
		}
		matches = append(matches, Match{
			Name:       sig.Name,
			Confidence: float64(satisfied) / float64(len(sig.Rules)),
			Satisfied:  satisfied,
			Total:      len(sig.Rules),
			Evidence:   evidence,
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		return matches[i].Name < matches[j].Name
	})
	return matches
}

// ByName returns the match with the given name, or nil.
func ByName(matches []Match, name string) *Match {
	for i := range matches {
		if matches[i].Name == name {
			return &matches[i]
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
