// Package summarize is the seam for the optional narrative collaborator.
// The engine hands over a digest of the finished analysis and receives
// opaque text back; nothing a summarizer returns ever feeds back into
// graph structure or confidences.
package summarize

import (
	"context"
	"fmt"
	"strings"

	"cratescope/internal/graph"
	"cratescope/internal/patterns"
	"cratescope/internal/styles"
)

// Digest is the serialized graph summary sent to a summarizer.
type Digest struct {
	Project     string           `json:"project"`
	Packages    int              `json:"packages"`
	Stats       graph.Stats      `json:"stats"`
	Clusters    []string         `json:"clusters"`
	TopPatterns []patterns.Match `json:"topPatterns,omitempty"`
	TopStyles   []styles.Score   `json:"topStyles,omitempty"`
}

// Summarizer turns a digest into free-text narrative. Implementations may
// call external services; errors degrade to a diagnostic upstream, never
// to a failed run.
type Summarizer interface {
	Summarize(ctx context.Context, digest *Digest) (string, error)
}

// TemplateSummarizer is the built-in fallback: a deterministic plain-text
// rendering of the digest, no external calls.
type TemplateSummarizer struct{}

// Summarize renders the digest as readable text.
func (TemplateSummarizer) Summarize(ctx context.Context, digest *Digest) (string, error) {
	if digest == nil {
		return "", fmt.Errorf("nil digest")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d packages, %d entities, %d edges across %d clusters.\n",
		digest.Project, digest.Packages, digest.Stats.EntityCount,
		digest.Stats.EdgeCount, len(digest.Clusters))

	if len(digest.TopStyles) > 0 {
		b.WriteString("Architecture: ")
		for i, s := range digest.TopStyles {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s (%.0f%%)", s.Style, s.Confidence*100)
		}
		b.WriteString(".\n")
	}

	if len(digest.TopPatterns) > 0 {
		b.WriteString("Patterns: ")
		for i, m := range digest.TopPatterns {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s (%.0f%%)", m.Name, m.Confidence*100)
		}
		b.WriteString(".\n")
	}

	if len(digest.Stats.HotSpots) > 0 {
		b.WriteString("Hot spots: ")
		for i, h := range digest.Stats.HotSpots {
			if i >= 3 {
				break
			}
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s (%d inbound)", h.Name, h.Inbound)
		}
		b.WriteString(".\n")
	}
	return b.String(), nil
}
