// Package export renders analysis output for consumption outside the
// engine: report and graph JSON, optionally zstd-compressed, plus
// Mermaid and DOT renderings of the package dependency graph. Export is
// presentation only; nothing here feeds back into analysis.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"cratescope/internal/workspace"
)

// WriteJSON serializes v as indented JSON to w.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// WriteCompressedJSON serializes v as zstd-compressed JSON to w. Use the
// .json.zst suffix for files written this way.
func WriteCompressedJSON(w io.Writer, v interface{}) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}
	if err := WriteJSON(zw, v); err != nil {
		zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("flush zstd writer: %w", err)
	}
	return nil
}

// ReadCompressedJSON decodes zstd-compressed JSON from r into v.
func ReadCompressedJSON(r io.Reader, v interface{}) error {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("create zstd reader: %w", err)
	}
	defer zr.Close()
	if err := json.NewDecoder(zr).Decode(v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

// ToMermaid renders the workspace package dependency graph as a Mermaid
// top-down diagram.
func ToMermaid(ws *workspace.Workspace) string {
	var b strings.Builder
	b.WriteString("graph TD\n")
	for _, pkg := range ws.Packages {
		b.WriteString("    " + mermaidID(pkg.Name) + "\n")
	}
	for _, edge := range ws.Edges {
		fmt.Fprintf(&b, "    %s --> %s\n", mermaidID(edge.From), mermaidID(edge.To))
	}
	return b.String()
}

// ToDOT renders the package dependency graph in Graphviz DOT format.
func ToDOT(ws *workspace.Workspace) string {
	var b strings.Builder
	b.WriteString("digraph dependencies {\n")
	for _, edge := range ws.Edges {
		fmt.Fprintf(&b, "    %q -> %q\n", edge.From, edge.To)
	}
	b.WriteString("}\n")
	return b.String()
}

// WriteMermaidReport writes a markdown document with the dependency
// diagram and an in-degree table.
func WriteMermaidReport(w io.Writer, ws *workspace.Workspace) error {
	inDegree := make(map[string]int)
	for _, edge := range ws.Edges {
		inDegree[edge.To]++
	}

	var b strings.Builder
	b.WriteString("# Dependency Graph\n\n```mermaid\n")
	b.WriteString(ToMermaid(ws))
	b.WriteString("```\n\n## Statistics\n\n")
	fmt.Fprintf(&b, "| Metric | Value |\n|--------|-------|\n")
	fmt.Fprintf(&b, "| Total Crates | %d |\n", len(ws.Packages))
	fmt.Fprintf(&b, "| Dependencies | %d |\n\n", len(ws.Edges))

	b.WriteString("## Core Components (High In-Degree)\n\n")
	b.WriteString("| Crate | In-Degree |\n|-------|-----------|\n")
	for _, pkg := range rankByInDegree(ws.Packages, inDegree) {
		fmt.Fprintf(&b, "| %s | %d |\n", pkg, inDegree[pkg])
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func rankByInDegree(packages []workspace.Package, inDegree map[string]int) []string {
	names := make([]string, 0, len(packages))
	for _, pkg := range packages {
		names = append(names, pkg.Name)
	}
	sort.Slice(names, func(i, j int) bool {
		if inDegree[names[i]] != inDegree[names[j]] {
			return inDegree[names[i]] > inDegree[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > 10 {
		names = names[:10]
	}
	return names
}

func mermaidID(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}
