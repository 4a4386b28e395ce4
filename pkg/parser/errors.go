package parser

import (
	"fmt"

	"github.com/leapstack-labs/redshift-lineage/pkg/token"
)

// ParseError represents a parsing error with position information.
type ParseError struct {
	Pos     token.Position
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// LexError represents a lexical analysis error.
type LexError struct {
	Pos     token.Position
	Message string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lexer error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Common error messages
const (
	ErrUnexpectedToken     = "unexpected token %s, expected %s"
	ErrUnexpectedInput     = "unexpected %q"
	ErrIllegalCharacter    = "illegal character %q"
	ErrUnterminatedString  = "unterminated string literal"
	ErrUnterminatedIdent   = "unterminated quoted identifier"
	ErrUnterminatedComment = "unterminated block comment"
	ErrExpectedExpression  = "expected expression, found %s"
	ErrExpectedIdentifier  = "expected identifier, found %s"
	ErrExpectedSelect      = "expected SELECT, VALUES or WITH, found %s"
	ErrUnbalancedParens    = "unbalanced parentheses"
)

// sprintfUnexpected formats ErrUnexpectedToken for a free-form expectation.
func sprintfUnexpected(tok token.Token, expected string) string {
	return fmt.Sprintf(ErrUnexpectedToken, describe(tok), expected)
}
