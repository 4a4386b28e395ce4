package transform

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/redshift-lineage/pkg/token"
)

// ErrGrammarMismatch is matched by every *Error.
var ErrGrammarMismatch = errors.New("grammar mismatch")

// Error is a fatal transformation error: the parse tree has a shape the
// transformer does not expect, such as an unknown operator.
type Error struct {
	Span      token.Span
	Construct string
	Message   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("unexpected %s at line %d, column %d: %s",
		e.Construct, e.Span.Start.Line, e.Span.Start.Column, e.Message)
}

// Unwrap returns ErrGrammarMismatch.
func (e *Error) Unwrap() error {
	return ErrGrammarMismatch
}

// Severity classifies a Diagnostic.
type Severity int

// Severity levels.
const (
	SeverityWarning Severity = iota
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// Diagnostic reports a statement that was skipped.
type Diagnostic struct {
	Severity Severity
	Span     token.Span
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s at line %d, column %d: %s", d.Severity, d.Span.Start.Line, d.Span.Start.Column, d.Message)
}
