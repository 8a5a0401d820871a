// Package diagnostic implements the severity-tagged diagnostic channel
// extraction reports through: source-located messages distinct from the
// operational run logging in internal/telemetry.
package diagnostic

import (
	"fmt"
	"sort"
	"strings"

	"github.com/andsch11/fremgen/internal/position"
)

// Severity classifies how serious a Diagnostic is.
type Severity int

const (
	SeverityNote Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "note"
	}
}

// Category tags the taxonomy entry a Diagnostic belongs to.
type Category string

const (
	CategoryUninstantiatedTemplate Category = "uninstantiated-template"
	CategoryReservedNamespace      Category = "reserved-namespace"
	CategoryEmptyStruct            Category = "empty-struct"
	CategoryUnionRejected          Category = "union-rejected"
	CategoryNotTriviallyCopyable   Category = "not-trivially-copyable"
	CategoryUnknownType            Category = "unknown-type"
	CategoryCycle                  Category = "type-cycle"
	CategoryDuplicateAlias         Category = "duplicate-alias"
	CategoryArchiveVersion         Category = "archive-version-mismatch"
	CategoryArgument               Category = "argument-error"
	CategoryParse                  Category = "parse-error"
	CategoryIncrementalReload      Category = "incremental-reload"
)

// Diagnostic is one source-located extraction message.
type Diagnostic struct {
	Severity Severity
	Category Category
	Message  string
	Span     position.Span
}

func (d Diagnostic) String() string {
	if d.Span.IsValid() {
		return fmt.Sprintf("%s: %s: %s [%s]", d.Span.Start, d.Severity, d.Message, d.Category)
	}
	return fmt.Sprintf("%s: %s [%s]", d.Severity, d.Message, d.Category)
}

// Sink collects diagnostics for a single extraction run and supports
// per-category suppression.
type Sink struct {
	diags      []Diagnostic
	suppressed map[Category]bool
}

// NewSink creates an empty Sink.
func NewSink() *Sink {
	return &Sink{suppressed: make(map[Category]bool)}
}

// Suppress silences every future diagnostic of category cat.
func (s *Sink) Suppress(cat Category) {
	s.suppressed[cat] = true
}

// Add records d unless its category is suppressed.
func (s *Sink) Add(d Diagnostic) {
	if s.suppressed[d.Category] {
		return
	}
	s.diags = append(s.diags, d)
}

// Errorf is a convenience wrapper around Add for SeverityError.
func (s *Sink) Errorf(cat Category, span position.Span, format string, args ...any) {
	s.Add(Diagnostic{Severity: SeverityError, Category: cat, Message: fmt.Sprintf(format, args...), Span: span})
}

// Warnf is a convenience wrapper around Add for SeverityWarning.
func (s *Sink) Warnf(cat Category, span position.Span, format string, args ...any) {
	s.Add(Diagnostic{Severity: SeverityWarning, Category: cat, Message: fmt.Sprintf(format, args...), Span: span})
}

// Notef is a convenience wrapper around Add for SeverityNote.
func (s *Sink) Notef(cat Category, span position.Span, format string, args ...any) {
	s.Add(Diagnostic{Severity: SeverityNote, Category: cat, Message: fmt.Sprintf(format, args...), Span: span})
}

// All returns every recorded diagnostic, sorted by source position.
func (s *Sink) All() []Diagnostic {
	out := make([]Diagnostic, len(s.diags))
	copy(out, s.diags)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Span.Start.Before(out[j].Span.Start)
	})
	return out
}

// HasErrors reports whether any SeverityError diagnostic was recorded.
func (s *Sink) HasErrors() bool {
	for _, d := range s.diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Count returns the number of diagnostics at or above minSeverity.
func (s *Sink) Count(minSeverity Severity) int {
	n := 0
	for _, d := range s.diags {
		if d.Severity >= minSeverity {
			n++
		}
	}
	return n
}

// FormatSummary renders a one-line count summary, e.g.
// "2 errors, 1 warning".
func (s *Sink) FormatSummary() string {
	var errs, warns, notes int
	for _, d := range s.diags {
		switch d.Severity {
		case SeverityError:
			errs++
		case SeverityWarning:
			warns++
		default:
			notes++
		}
	}
	var parts []string
	if errs > 0 {
		parts = append(parts, plural(errs, "error"))
	}
	if warns > 0 {
		parts = append(parts, plural(warns, "warning"))
	}
	if notes > 0 {
		parts = append(parts, plural(notes, "note"))
	}
	if len(parts) == 0 {
		return "no diagnostics"
	}
	return strings.Join(parts, ", ")
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
