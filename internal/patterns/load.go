package patterns

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// catalogFile is the on-disk YAML schema for user-supplied signatures.
//
//	signatures:
//	  - name: My Pattern
//	    keywords: ["SomeType<"]
//	    imports: ["some_crate"]
//	    patterns: ['fn\s+handle\s*\(']
//	    graph: ["trait-fanout"]
type catalogFile struct {
	Signatures []signatureSpec `yaml:"signatures"`
}

type signatureSpec struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords,omitempty"`
	Imports  []string `yaml:"imports,omitempty"`
	Patterns []string `yaml:"patterns,omitempty"`
	Graph    []string `yaml:"graph,omitempty"`
}

// LoadCatalog parses extra signatures from YAML. The result can be
// appended to the builtin catalog; signatures are data, the engine never
// changes.
func LoadCatalog(data []byte) (Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Catalog{}, fmt.Errorf("parse signature catalog: %w", err)
	}

	var catalog Catalog
	for _, spec := range file.Signatures {
		if spec.Name == "" {
			return Catalog{}, fmt.Errorf("signature without a name")
		}
		sig := Signature{Name: spec.Name}
		for _, kw := range spec.Keywords {
			sig.Rules = append(sig.Rules, KeywordRule{Keyword: kw})
		}
		for _, imp := range spec.Imports {
			sig.Rules = append(sig.Rules, KeywordRule{Keyword: imp, Import: true})
		}
		for _, pat := range spec.Patterns {
			sig.Rules = append(sig.Rules, RegexRule{Pattern: pat})
		}
		for _, pred := range spec.Graph {
			sig.Rules = append(sig.Rules, GraphRule{Predicate: pred})
		}
		if len(sig.Rules) == 0 {
			return Catalog{}, fmt.Errorf("signature %q has no rules", spec.Name)
		}
		catalog.Signatures = append(catalog.Signatures, sig)
	}
	return catalog, nil
}

// Merge appends other's signatures to c and returns the combined catalog.
func (c Catalog) Merge(other Catalog) Catalog {
	combined := Catalog{Signatures: make([]Signature, 0, len(c.Signatures)+len(other.Signatures))}
	combined.Signatures = append(combined.Signatures, c.Signatures...)
	combined.Signatures = append(combined.Signatures, other.Signatures...)
	return combined
}
