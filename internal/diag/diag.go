// Package diag defines the error taxonomy and diagnostic collection for the
// analysis engine. Non-fatal issues become Diagnostics attached to the run
// report; only total-input failures surface as errors.
package diag

import (
	"fmt"
	"sort"
	"sync"
)

// ErrorCode represents stable error codes for fatal failure modes
type ErrorCode string

const (
	// EmptyProject indicates no package or entity could be extracted at all
	EmptyProject ErrorCode = "EMPTY_PROJECT"
	// StructuralInconsistency indicates the assembled graph violated an invariant
	StructuralInconsistency ErrorCode = "STRUCTURAL_INCONSISTENCY"
	// Cancelled indicates the run was cancelled at a pipeline barrier
	Cancelled ErrorCode = "CANCELLED"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// ScopeError represents a fatal engine error with a stable code
type ScopeError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error
}

// NewScopeError creates a new ScopeError
func NewScopeError(code ErrorCode, message string, cause error) *ScopeError {
	return &ScopeError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Error implements the error interface
func (e *ScopeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *ScopeError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *ScopeError) WithDetails(details interface{}) *ScopeError {
	e.Details = details
	return e
}

// Kind classifies a non-fatal diagnostic
type Kind string

const (
	// ParseDiagnostic covers malformed manifests and truncated entities
	ParseDiagnostic Kind = "parse"
	// ResolutionAmbiguity is recorded whenever a reference identifier matches
	// more than one candidate entity
	ResolutionAmbiguity Kind = "resolution-ambiguity"
	// DependencyCycle is recorded when declared package dependencies form a cycle
	DependencyCycle Kind = "dependency-cycle"
	// CollaboratorFailure covers optional collaborator errors (e.g. AI
	// summarization); never fatal to the core report
	CollaboratorFailure Kind = "collaborator-failure"
)

// Diagnostic records one non-fatal issue encountered during a run
type Diagnostic struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	// File is the repo-relative file the issue applies to, if any
	File string `json:"file,omitempty"`
	// Subject is the entity, package, or pattern the issue applies to, if any
	Subject string `json:"subject,omitempty"`
}

func (d Diagnostic) String() string {
	switch {
	case d.File != "" && d.Subject != "":
		return fmt.Sprintf("%s: %s (%s in %s)", d.Kind, d.Message, d.Subject, d.File)
	case d.File != "":
		return fmt.Sprintf("%s: %s (%s)", d.Kind, d.Message, d.File)
	case d.Subject != "":
		return fmt.Sprintf("%s: %s (%s)", d.Kind, d.Message, d.Subject)
	default:
		return fmt.Sprintf("%s: %s", d.Kind, d.Message)
	}
}

// Collector accumulates diagnostics from all pipeline phases. Safe for
// concurrent use; per-file extraction workers report into one collector.
type Collector struct {
	mu    sync.Mutex
	items []Diagnostic
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{}
}

// Add records a diagnostic
func (c *Collector) Add(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, d)
}

// Addf records a diagnostic with a formatted message
func (c *Collector) Addf(kind Kind, file, subject, format string, args ...interface{}) {
	c.Add(Diagnostic{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		File:    file,
		Subject: subject,
	})
}

// Items returns a stable-ordered copy of all recorded diagnostics.
// Ordering is by kind, then file, then subject, then message, so reports
// are deterministic regardless of worker scheduling.
func (c *Collector) Items() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Diagnostic, len(c.items))
	copy(out, c.items)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		if out[i].Subject != out[j].Subject {
			return out[i].Subject < out[j].Subject
		}
		return out[i].Message < out[j].Message
	})
	return out
}

// Count returns the number of recorded diagnostics
func (c *Collector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// CountByKind returns the number of diagnostics of the given kind
func (c *Collector) CountByKind(kind Kind) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, d := range c.items {
		if d.Kind == kind {
			n++
		}
	}
	return n
}
