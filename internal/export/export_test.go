package export

import (
	"bytes"
	"strings"
	"testing"

	"cratescope/internal/workspace"
)

func chainWorkspace() *workspace.Workspace {
	return &workspace.Workspace{
		Packages: []workspace.Package{
			{Name: "app-cli", RootPath: "app-cli"},
			{Name: "core", RootPath: "core"},
			{Name: "store", RootPath: "store"},
		},
		Edges: []workspace.DependencyEdge{
			{From: "app-cli", To: "core"},
			{From: "store", To: "core"},
		},
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, map[string]int{"entities": 3}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "\"entities\": 3") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestCompressedJSONRoundTrip(t *testing.T) {
	payload := map[string]interface{}{
		"project": "demo",
		"count":   float64(7),
	}
	var buf bytes.Buffer
	if err := WriteCompressedJSON(&buf, payload); err != nil {
		t.Fatal(err)
	}
	if buf.Len() == 0 {
		t.Fatal("compressed output is empty")
	}

	var restored map[string]interface{}
	if err := ReadCompressedJSON(&buf, &restored); err != nil {
		t.Fatal(err)
	}
	if restored["project"] != "demo" || restored["count"] != float64(7) {
		t.Errorf("restored = %+v", restored)
	}
}

func TestToMermaid(t *testing.T) {
	out := ToMermaid(chainWorkspace())
	if !strings.HasPrefix(out, "graph TD\n") {
		t.Errorf("missing header: %q", out)
	}
	if !strings.Contains(out, "app_cli --> core") {
		t.Errorf("hyphens should become underscores: %q", out)
	}
	if !strings.Contains(out, "store --> core") {
		t.Errorf("missing edge: %q", out)
	}
}

func TestToDOT(t *testing.T) {
	out := ToDOT(chainWorkspace())
	if !strings.Contains(out, `"app-cli" -> "core"`) {
		t.Errorf("dot output = %q", out)
	}
	if !strings.HasSuffix(out, "}\n") {
		t.Errorf("unterminated digraph: %q", out)
	}
}

func TestWriteMermaidReport(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMermaidReport(&buf, chainWorkspace()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "```mermaid") {
		t.Error("missing mermaid fence")
	}
	if !strings.Contains(out, "| Total Crates | 3 |") {
		t.Errorf("missing stats table: %q", out)
	}
	// core has in-degree 2 and should rank first
	idx := strings.Index(out, "| core | 2 |")
	if idx < 0 {
		t.Fatalf("missing core row: %q", out)
	}
	if other := strings.Index(out, "| app-cli | 0 |"); other >= 0 && other < idx {
		t.Error("in-degree ranking should put core first")
	}
}
