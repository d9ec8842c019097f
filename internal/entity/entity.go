// Package entity defines the immutable data model for the knowledge graph:
// extracted entities and the typed edges between them.
package entity

import (
	"fmt"
	"strings"
)

// Kind classifies an extracted entity
type Kind string

const (
	// KindFunction is a free function or method
	KindFunction Kind = "function"
	// KindStruct is a struct definition
	KindStruct Kind = "struct"
	// KindEnum is an enum definition
	KindEnum Kind = "enum"
	// KindTrait is a trait definition
	KindTrait Kind = "trait"
	// KindImpl is an impl block (inherent or trait impl)
	KindImpl Kind = "impl"
	// KindModule is a module declaration
	KindModule Kind = "module"
)

// Visibility classifies who can see an entity
type Visibility string

const (
	// Public is `pub`
	Public Visibility = "public"
	// PackagePrivate is `pub(crate)` or `pub(super)`
	PackagePrivate Visibility = "package-private"
	// Private is the default visibility
	Private Visibility = "private"
)

// Field is a named field, parameter, or variant with its raw type text
type Field struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// FunctionDetail holds the attribute schema for function entities
type FunctionDetail struct {
	Params     []Field `json:"params,omitempty"`
	ReturnType string  `json:"returnType,omitempty"`
	Async      bool    `json:"async,omitempty"`
	// Body is the raw body text captured by balanced-delimiter matching.
	// Used by the relationship inferencer, omitted from serialized graphs.
	Body string `json:"-"`
}

// StructDetail holds the attribute schema for struct entities
type StructDetail struct {
	Fields  []Field  `json:"fields,omitempty"`
	Derives []string `json:"derives,omitempty"`
	// TupleStruct is true for `struct Foo(A, B);` where fields are positional
	TupleStruct bool `json:"tupleStruct,omitempty"`
}

// EnumDetail holds the attribute schema for enum entities
type EnumDetail struct {
	Variants []Field  `json:"variants,omitempty"`
	Derives  []string `json:"derives,omitempty"`
}

// TraitDetail holds the attribute schema for trait entities
type TraitDetail struct {
	Methods []string `json:"methods,omitempty"`
}

// ImplDetail holds the attribute schema for impl entities
type ImplDetail struct {
	// TypeName is the implementing type
	TypeName string `json:"typeName"`
	// TraitName is set for `impl Trait for Type`, empty for inherent impls
	TraitName string `json:"traitName,omitempty"`
	// Body is the raw impl body, used by the relationship inferencer
	Body string `json:"-"`
}

// Entity is one extracted symbol-level declaration. Entities are created
// once during extraction and never mutated. Exactly one of the detail
// fields matching Kind is populated; the record is a closed tagged variant,
// not an open attribute bag.
type Entity struct {
	ID         string     `json:"id"`
	Kind       Kind       `json:"kind"`
	Name       string     `json:"name"`
	Package    string     `json:"package"`
	File       string     `json:"file"`
	Line       int        `json:"line"`
	Visibility Visibility `json:"visibility"`
	// Truncated is set when balanced-delimiter matching failed and the
	// entity was captured best-effort
	Truncated bool `json:"truncated,omitempty"`

	Function *FunctionDetail `json:"function,omitempty"`
	Struct   *StructDetail   `json:"struct,omitempty"`
	Enum     *EnumDetail     `json:"enum,omitempty"`
	Trait    *TraitDetail    `json:"trait,omitempty"`
	Impl     *ImplDetail     `json:"impl,omitempty"`

	// Span is the [start, end) byte range of the declaration within File.
	// Used for containment inference, omitted from serialized graphs.
	Span [2]int `json:"-"`
}

// EdgeKind classifies a relationship between two entities
type EdgeKind string

const (
	// EdgeContains is physical nesting of one entity inside another's body
	EdgeContains EdgeKind = "contains"
	// EdgeReferences is a field or parameter type naming another entity
	EdgeReferences EdgeKind = "references"
	// EdgeImplements is `impl Trait for Type`
	EdgeImplements EdgeKind = "implements"
	// EdgeDerives is one edge per trait named in a derive list
	EdgeDerives EdgeKind = "derives"
	// EdgeUses is a function body mentioning another entity's name
	EdgeUses EdgeKind = "uses"
)

// Edge is a directed, typed relationship between two entities. Both
// endpoints must resolve to existing entities or a synthetic external
// placeholder; assembly enforces this.
type Edge struct {
	From   string   `json:"from"`
	To     string   `json:"to"`
	Kind   EdgeKind `json:"kind"`
	Weight int      `json:"weight"`
}

// ExternalPrefix prefixes ids of synthetic placeholder nodes standing in
// for referenced symbols that resolve to no extracted entity.
const ExternalPrefix = "external:"

// ExternalID returns the placeholder id for an unresolved symbol name
func ExternalID(name string) string {
	return ExternalPrefix + name
}

// IsExternal reports whether an id names a synthetic placeholder
func IsExternal(id string) bool {
	return strings.HasPrefix(id, ExternalPrefix)
}

// ProvisionalID returns the file-local id assigned during extraction:
// stable for identical input bytes, unique within a run.
func ProvisionalID(file string, index int, name string) string {
	return fmt.Sprintf("%s#%d:%s", file, index, name)
}
