//go:build cgo

package extract

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"

	"cratescope/internal/entity"
)

// SyntaxParser wraps tree-sitter for AST-backed extraction. It refines the
// lexical scanner's output with exact declaration spans when CGO is
// available; both backends produce the same entity shape.
type SyntaxParser struct {
	parser *sitter.Parser
}

// NewSyntaxParser creates a new tree-sitter parser for Rust sources.
func NewSyntaxParser() *SyntaxParser {
	p := sitter.NewParser()
	p.SetLanguage(rust.GetLanguage())
	return &SyntaxParser{parser: p}
}

// IsAvailable reports whether AST-backed extraction can be used.
func IsAvailable() bool {
	return true
}

// declNodeKinds maps tree-sitter node types to entity kinds.
var declNodeKinds = map[string]entity.Kind{
	"function_item": entity.KindFunction,
	"struct_item":   entity.KindStruct,
	"enum_item":     entity.KindEnum,
	"trait_item":    entity.KindTrait,
	"impl_item":     entity.KindImpl,
	"mod_item":      entity.KindModule,
}

// ParseFile extracts declarations from one file using the syntax tree.
func (p *SyntaxParser) ParseFile(ctx context.Context, file, pkg string, src []byte) ([]entity.Entity, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", file, err)
	}

	var entities []entity.Entity
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if kind, ok := declNodeKinds[n.Type()]; ok {
			if e, ok := p.buildEntity(n, kind, file, pkg, src); ok {
				entities = append(entities, e)
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if child := n.Child(i); child != nil {
				walk(child)
			}
		}
	}
	walk(tree.RootNode())

	for i := range entities {
		entities[i].ID = entity.ProvisionalID(file, i, entities[i].Name)
	}
	return entities, nil
}

func (p *SyntaxParser) buildEntity(n *sitter.Node, kind entity.Kind, file, pkg string, src []byte) (entity.Entity, bool) {
	e := entity.Entity{
		Kind:       kind,
		Package:    pkg,
		File:       file,
		Line:       int(n.StartPoint().Row) + 1,
		Visibility: nodeVisibility(n, src),
		Span:       [2]int{int(n.StartByte()), int(n.EndByte())},
	}

	if name := n.ChildByFieldName("name"); name != nil {
		e.Name = string(src[name.StartByte():name.EndByte()])
	}

	switch kind {
	case entity.KindFunction:
		body := ""
		if b := n.ChildByFieldName("body"); b != nil {
			body = string(src[b.StartByte():b.EndByte()])
		}
		e.Function = &entity.FunctionDetail{
			Async: hasChildText(n, src, "async"),
			Body:  maskBody(body),
		}
		if ret := n.ChildByFieldName("return_type"); ret != nil {
			e.Function.ReturnType = string(src[ret.StartByte():ret.EndByte()])
		}
		if params := n.ChildByFieldName("parameters"); params != nil {
			raw := string(src[params.StartByte():params.EndByte()])
			raw = strings.TrimPrefix(strings.TrimSuffix(raw, ")"), "(")
			e.Function.Params = parseParams(raw)
		}
	case entity.KindStruct:
		detail := &entity.StructDetail{Derives: nodeDerives(n, src)}
		if b := n.ChildByFieldName("body"); b != nil {
			detail.Fields = parseBodyFields(string(src[b.StartByte():b.EndByte()]))
		}
		e.Struct = detail
	case entity.KindEnum:
		detail := &entity.EnumDetail{Derives: nodeDerives(n, src)}
		if b := n.ChildByFieldName("body"); b != nil {
			raw := strings.TrimSpace(string(src[b.StartByte():b.EndByte()]))
			raw = strings.TrimSuffix(strings.TrimPrefix(raw, "{"), "}")
			detail.Variants = parseVariants(raw)
		}
		e.Enum = detail
	case entity.KindTrait:
		e.Trait = &entity.TraitDetail{}
	case entity.KindImpl:
		impl := &entity.ImplDetail{}
		if typ := n.ChildByFieldName("type"); typ != nil {
			impl.TypeName = baseTypeName(string(src[typ.StartByte():typ.EndByte()]))
		}
		if tr := n.ChildByFieldName("trait"); tr != nil {
			impl.TraitName = baseTypeName(string(src[tr.StartByte():tr.EndByte()]))
		}
		if b := n.ChildByFieldName("body"); b != nil {
			impl.Body = maskBody(string(src[b.StartByte():b.EndByte()]))
		}
		e.Name = impl.TypeName
		e.Impl = impl
	}

	if e.Name == "" {
		return entity.Entity{}, false
	}
	return e, true
}

func nodeVisibility(n *sitter.Node, src []byte) entity.Visibility {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || child.Type() != "visibility_modifier" {
			continue
		}
		text := string(src[child.StartByte():child.EndByte()])
		if strings.Contains(text, "(") {
			return entity.PackagePrivate
		}
		return entity.Public
	}
	return entity.Private
}

func hasChildText(n *sitter.Node, src []byte, text string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child != nil && string(src[child.StartByte():child.EndByte()]) == text {
			return true
		}
	}
	return false
}

func baseTypeName(s string) string {
	if idx := strings.IndexByte(s, '<'); idx >= 0 {
		s = s[:idx]
	}
	if idx := strings.LastIndex(s, "::"); idx >= 0 {
		s = s[idx+2:]
	}
	return strings.TrimSpace(s)
}

// nodeDerives collects derive traits from attribute items immediately
// preceding a declaration node.
func nodeDerives(n *sitter.Node, src []byte) []string {
	var out []string
	for sib := n.PrevNamedSibling(); sib != nil && sib.Type() == "attribute_item"; sib = sib.PrevNamedSibling() {
		text := string(src[sib.StartByte():sib.EndByte()])
		for _, loc := range deriveRe.FindAllStringSubmatchIndex(text, -1) {
			out = append(parseDeriveList(text[loc[2]:loc[3]]), out...)
		}
	}
	return out
}

// parseBodyFields handles both record bodies `{...}` and tuple bodies
// `(...)` with the lexical field parsers, so both backends agree.
func parseBodyFields(raw string) []entity.Field {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(raw, "{"):
		return parseFields(strings.TrimSuffix(strings.TrimPrefix(raw, "{"), "}"))
	case strings.HasPrefix(raw, "("):
		return parseTupleFields(strings.TrimSuffix(strings.TrimPrefix(raw, "("), ")"))
	}
	return nil
}

func maskBody(body string) string {
	return string(maskNonCode(body))
}
