package parser_test

import (
	"testing"

	"github.com/leapstack-labs/redshift-lineage/pkg/parser"
	"github.com/leapstack-labs/redshift-lineage/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenTypes(toks []token.Token) []token.TokenType {
	out := make([]token.TokenType, len(toks))
	for i, tok := range toks {
		out[i] = tok.Type
	}
	return out
}

func TestTokenizeBasic(t *testing.T) {
	toks := parser.Tokenize(`SELECT a.b, "Q""x" FROM t;`)
	assert.Equal(t, []token.TokenType{
		token.SELECT, token.IDENT, token.DOT, token.IDENT, token.COMMA,
		token.IDENT, token.FROM, token.IDENT, token.SEMICOLON, token.EOF,
	}, tokenTypes(toks))

	quoted := toks[5]
	assert.Equal(t, `Q"x`, quoted.Literal)
	assert.Equal(t, `"Q""x"`, quoted.Raw)
	assert.True(t, quoted.Quoted)
}

func TestTokenizeOperators(t *testing.T) {
	tests := []struct {
		input string
		want  token.TokenType
	}{
		{"<=", token.LE},
		{">=", token.GE},
		{"<>", token.NE},
		{"!=", token.NE},
		{"::", token.TYPECAST},
		{"||", token.OP},
		{"|/", token.OP},
		{"||/", token.OP},
		{"<<", token.OP},
		{">>", token.OP},
		{"~*", token.OP},
		{"!~*", token.OP},
		{"&", token.OP},
		{"^", token.CARET},
		{"%", token.PERCENT},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			toks := parser.Tokenize(tt.input)
			require.Len(t, toks, 2)
			assert.Equal(t, tt.want, toks[0].Type)
			assert.Equal(t, tt.input, toks[0].Literal)
		})
	}
}

func TestTokenizeLiterals(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    token.TokenType
		literal string
	}{
		{"integer", "42", token.NUMBER, "42"},
		{"decimal", "3.14", token.NUMBER, "3.14"},
		{"leading dot", ".5", token.NUMBER, ".5"},
		{"exponent", "1e-5", token.NUMBER, "1e-5"},
		{"string", "'it''s'", token.STRING, "it's"},
		{"dollar string", "$body$ a 'b' $body$", token.STRING, " a 'b' "},
		{"param", "$1", token.PARAM, "$1"},
		{"keyword case kept", "Select", token.SELECT, "Select"},
		{"minus keyword", "MINUS", token.SETMINUS, "MINUS"},
		{"identifier with dollar", "a$b", token.IDENT, "a$b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks := parser.Tokenize(tt.input)
			require.Len(t, toks, 2)
			assert.Equal(t, tt.want, toks[0].Type)
			assert.Equal(t, tt.literal, toks[0].Literal)
		})
	}
}

func TestTokenizeExponentNeedsDigits(t *testing.T) {
	toks := parser.Tokenize("1e")
	assert.Equal(t, []token.TokenType{token.NUMBER, token.IDENT, token.EOF}, tokenTypes(toks))
	assert.Equal(t, "1", toks[0].Literal)
}

func TestTokenPositions(t *testing.T) {
	toks := parser.Tokenize("SELECT a\n  FROM foo")
	require.Len(t, toks, 5)

	from := toks[2]
	assert.Equal(t, token.FROM, from.Type)
	assert.Equal(t, 2, from.Pos.Line)
	assert.Equal(t, 3, from.Pos.Column)
	assert.Equal(t, 11, from.Pos.Offset)

	foo := toks[3]
	assert.Equal(t, 2, foo.EndPos.Line)
	assert.Equal(t, 11, foo.EndPos.Column)
	assert.Equal(t, 19, foo.EndPos.Offset)
}

func TestTokenPositionsCountRunes(t *testing.T) {
	toks := parser.Tokenize("SELECT é, a FROM t")
	require.Len(t, toks, 7)

	comma := toks[2]
	assert.Equal(t, token.COMMA, comma.Type)
	assert.Equal(t, 9, comma.Pos.Column)
	assert.Equal(t, 9, comma.Pos.Offset)

	tbl := toks[5]
	assert.Equal(t, "t", tbl.Raw)
	assert.Equal(t, 18, tbl.Pos.Column)
	assert.Equal(t, 19, tbl.EndPos.Column)
	assert.Equal(t, 19, tbl.EndPos.Offset)
}

func TestLexerComments(t *testing.T) {
	l := parser.NewLexer("-- head\nSELECT /* a /* nested */ b */ 1")
	var types []token.TokenType
	for {
		tok := l.NextToken()
		types = append(types, tok.Type)
		if tok.Type == token.EOF {
			break
		}
	}

	assert.Equal(t, []token.TokenType{token.SELECT, token.NUMBER, token.EOF}, types)
	require.Len(t, l.Comments, 2)
	assert.True(t, l.Comments[0].IsLineComment())
	assert.Equal(t, "-- head", l.Comments[0].Text)
	assert.True(t, l.Comments[1].IsBlockComment())
	assert.Equal(t, "/* a /* nested */ b */", l.Comments[1].Text)
	assert.Equal(t, "head", l.Comments[0].Body())
	assert.Equal(t, "a /* nested */ b", l.Comments[1].Body())
	assert.Empty(t, l.Errors())
}

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"unterminated string", "SELECT 'abc", parser.ErrUnterminatedString},
		{"unterminated identifier", `SELECT "abc`, parser.ErrUnterminatedIdent},
		{"unterminated comment", "SELECT /* abc", parser.ErrUnterminatedComment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := parser.NewLexer(tt.input)
			for l.NextToken().Type != token.EOF {
			}
			require.Len(t, l.Errors(), 1)
			assert.Contains(t, l.Errors()[0].Error(), tt.want)
		})
	}
}
