package token_test

import (
	"testing"

	"github.com/leapstack-labs/redshift-lineage/pkg/token"
	"github.com/stretchr/testify/assert"
)

func TestLookupIdent(t *testing.T) {
	assert.Equal(t, token.SELECT, token.LookupIdent("select"))
	assert.Equal(t, token.SETMINUS, token.LookupIdent("minus"))
	assert.Equal(t, token.QUALIFY, token.LookupIdent("qualify"))
	assert.Equal(t, token.IDENT, token.LookupIdent("users"))
	assert.Equal(t, token.IDENT, token.LookupIdent("SELECT"), "lookup expects lowercase input")
}

func TestKeywordClasses(t *testing.T) {
	assert.True(t, token.IsKeyword(token.ALL))
	assert.True(t, token.IsKeyword(token.ZONE))
	assert.False(t, token.IsKeyword(token.IDENT))

	assert.True(t, token.IsReserved(token.FROM))
	assert.True(t, token.IsReserved(token.LEFT))
	assert.False(t, token.IsReserved(token.TIME))
	assert.False(t, token.IsReserved(token.ROWS))

	assert.True(t, token.IsOperator(token.PLUS))
	assert.True(t, token.IsOperator(token.RBRACKET))
	assert.False(t, token.IsOperator(token.SELECT))
}

func TestTokenTypeString(t *testing.T) {
	assert.Equal(t, "SELECT", token.SELECT.String())
	assert.Equal(t, "MINUS", token.SETMINUS.String())
	assert.Equal(t, "::", token.TYPECAST.String())
	assert.Equal(t, "TOKEN(-1)", token.TokenType(-1).String())
}

func TestSpan(t *testing.T) {
	a := token.Span{
		Start: token.Position{Line: 1, Column: 1, Offset: 0},
		End:   token.Position{Line: 1, Column: 7, Offset: 6},
	}
	b := token.Span{
		Start: token.Position{Line: 2, Column: 3, Offset: 10},
		End:   token.Position{Line: 2, Column: 6, Offset: 13},
	}

	cover := a.Cover(b)
	assert.Equal(t, a.Start, cover.Start)
	assert.Equal(t, b.End, cover.End)
	assert.Equal(t, cover, b.Cover(a))

	assert.True(t, a.Start.Before(b.Start))
	assert.False(t, b.End.Before(a.End))
	assert.False(t, a.Start.Before(a.Start))
	assert.True(t, a.IsValid())
	assert.False(t, token.Span{}.IsValid())
}
