//go:build !cgo

package extract

import (
	"context"
	"errors"

	"cratescope/internal/entity"
)

// ErrNoCGO is returned when AST-backed extraction is unavailable.
var ErrNoCGO = errors.New("syntax-tree extraction requires CGO (tree-sitter)")

// SyntaxParser wraps tree-sitter parsing functionality.
// This is a stub implementation for non-CGO builds; callers fall back to
// the lexical scanner.
type SyntaxParser struct{}

// NewSyntaxParser creates a new tree-sitter parser.
// Returns nil when CGO is disabled.
func NewSyntaxParser() *SyntaxParser {
	return nil
}

// IsAvailable reports whether AST-backed extraction can be used.
// Returns false when CGO is disabled.
func IsAvailable() bool {
	return false
}

// ParseFile is a stub that always fails.
func (p *SyntaxParser) ParseFile(ctx context.Context, file, pkg string, src []byte) ([]entity.Entity, error) {
	return nil, ErrNoCGO
}
