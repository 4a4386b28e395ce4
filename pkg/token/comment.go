package token

import "strings"

// CommentKind tells "--" comments from "/* */" comments.
type CommentKind int

const (
	LineComment  CommentKind = iota // -- to end of line
	BlockComment                    // /* ... */, may nest
)

// Comment is a comment collected by the lexer. Comments never reach the
// parse tree.
type Comment struct {
	Kind CommentKind
	// Text is the raw source, delimiters included.
	Text string
	Span Span
}

// IsLineComment reports whether c is a "--" comment.
func (c *Comment) IsLineComment() bool { return c.Kind == LineComment }

// IsBlockComment reports whether c is a "/* */" comment.
func (c *Comment) IsBlockComment() bool { return c.Kind == BlockComment }

// Body returns the comment text without its outer delimiters and
// surrounding blanks.
func (c *Comment) Body() string {
	body := c.Text
	switch c.Kind {
	case LineComment:
		body = strings.TrimPrefix(body, "--")
	case BlockComment:
		body = strings.TrimSuffix(strings.TrimPrefix(body, "/*"), "*/")
	}
	return strings.TrimSpace(body)
}
