// Package diag collects compiler diagnostics.
//
// It plays the role the teacher (web2go) fills with ad hoc []string/[]error
// slices on the scanner and parser (scanner.errs, parser.errs); here the
// four error kinds of the front end (lexical/syntax, semantic, lowering,
// internal) share one typed sink instead of each phase growing its own.
package diag

import (
	"fmt"
	"go/token"
	"sort"
	"strings"
)

// Severity classifies a Diagnostic.
type Severity int

const (
	Error Severity = iota
	Warning
	Internal
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Internal:
		return "internal error"
	default:
		return "error"
	}
}

// Diagnostic is one reported problem, tied to a source position.
type Diagnostic struct {
	Pos      token.Position
	Severity Severity
	Message  string
}

func (d Diagnostic) String() string {
	if d.Pos.IsValid() {
		return fmt.Sprintf("%v: %s: %s", d.Pos, d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Severity, d.Message)
}

// Sink accumulates diagnostics for a single compilation. It is append-only;
// phases never remove or mutate an earlier phase's entries.
type Sink struct {
	list []Diagnostic
}

// NewSink returns an empty diagnostic sink.
func NewSink() *Sink { return &Sink{} }

// Add records a diagnostic at pos with the given severity.
func (s *Sink) Add(pos token.Position, sev Severity, format string, args ...interface{}) {
	s.list = append(s.list, Diagnostic{Pos: pos, Severity: sev, Message: fmt.Sprintf(format, args...)})
}

// Errorf records an Error-severity diagnostic. It is the common case used by
// the parser and type registry for kind-1/kind-2 problems (spec §7).
func (s *Sink) Errorf(pos token.Position, format string, args ...interface{}) {
	s.Add(pos, Error, format, args...)
}

// Internalf records an Internal-severity diagnostic, used by the lowerer for
// conditions the spec documents as "should be unreachable after a successful
// parse" (kind 3) without aborting the run.
func (s *Sink) Internalf(pos token.Position, format string, args ...interface{}) {
	s.Add(pos, Internal, format, args...)
}

// Count returns how many diagnostics of the given severity have been
// recorded.
func (s *Sink) Count(sev Severity) int {
	n := 0
	for _, d := range s.list {
		if d.Severity == sev {
			n++
		}
	}
	return n
}

// HasErrors reports whether any Error or Internal diagnostic was recorded.
// A nonzero count here suppresses code emission (spec §7).
func (s *Sink) HasErrors() bool {
	return s.Count(Error) > 0 || s.Count(Internal) > 0
}

// List returns all recorded diagnostics in report order.
func (s *Sink) List() []Diagnostic { return append([]Diagnostic(nil), s.list...) }

// Sorted returns all recorded diagnostics ordered by source position, with
// file/line/column ties broken by insertion order.
func (s *Sink) Sorted() []Diagnostic {
	r := s.List()
	sort.SliceStable(r, func(i, j int) bool {
		a, b := r[i].Pos, r[j].Pos
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
	return r
}

// Err returns an aggregate error for every recorded Error/Internal
// diagnostic, or nil if there are none.
func (s *Sink) Err() error {
	if !s.HasErrors() {
		return nil
	}
	var b strings.Builder
	for i, d := range s.Sorted() {
		if d.Severity == Warning {
			continue
		}
		if i != 0 {
			b.WriteByte('\n')
		}
		b.WriteString(d.String())
	}
	return fmt.Errorf("%s", b.String())
}
