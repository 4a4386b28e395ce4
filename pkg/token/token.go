// Package token defines the lexical tokens of the Redshift SQL dialect.
//
// Keywords are matched case-insensitively. Most keywords are non-reserved
// and may still be used as identifiers; IsReserved reports the ones that
// cannot appear as a bare column name or alias.
package token

import "fmt"

// TokenType represents the type of a lexical token.
//
//nolint:revive // Accept stutter as token.TokenType is clear and widely used
type TokenType int32

//nolint:revive // token names are intentionally ALL_CAPS for SQL token conventions
const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL

	// Literals
	IDENT  // identifier, quoted or not
	NUMBER // 123, 45.67, 1e10
	STRING // 'hello', $$hello$$
	PARAM  // $1

	// Operators
	PLUS      // +
	MINUS     // -
	STAR      // *
	SLASH     // /
	PERCENT   // %
	CARET     // ^
	EQ        // =
	NE        // != or <>
	LT        // <
	GT        // >
	LE        // <=
	GE        // >=
	TYPECAST  // ::
	OP        // any other operator: ||, ~, <<, |/ ...
	DOT       // .
	COMMA     // ,
	SEMICOLON // ;
	COLON     // :
	LPAREN    // (
	RPAREN    // )
	LBRACKET  // [
	RBRACKET  // ]

	// Keywords (alphabetical)
	ALL
	ALTER
	AND
	ANY
	AS
	ASC
	AT
	BETWEEN
	BOTH
	BY
	CASCADE
	CASE
	CAST
	COLLATE
	CREATE
	CROSS
	DEFAULT
	DELETE
	DESC
	DISTINCT
	DROP
	ELSE
	END
	ESCAPE
	EXCEPT
	EXISTS
	EXTRACT
	FALSE
	FILTER
	FIRST
	FOR
	FROM
	FULL
	GROUP
	HAVING
	IF
	IGNORE
	ILIKE
	IN
	INNER
	INSERT
	INTERSECT
	INTO
	IS
	ISNULL
	JOIN
	LAST
	LEADING
	LEFT
	LIKE
	LIMIT
	LOCAL
	MATERIALIZED
	SETMINUS // MINUS, the Redshift synonym of EXCEPT
	NATURAL
	NO
	NOT
	NOTNULL
	NULL
	NULLS
	OFFSET
	ON
	OPERATOR
	OR
	ORDER
	OUTER
	OVER
	PARTITION
	POSITION
	QUALIFY
	RANGE
	RECURSIVE
	RENAME
	REPLACE
	RESPECT
	RESTRICT
	RIGHT
	ROWS
	SELECT
	SIMILAR
	SOME
	SUBSTRING
	SYMMETRIC
	TABLE
	TEMP
	TEMPORARY
	THEN
	TIME
	TO
	TOP
	TRAILING
	TRIM
	TRUE
	UNION
	UNKNOWN
	USING
	VALUES
	VIEW
	WHEN
	WHERE
	WINDOW
	WITH
	WITHIN
	ZONE
)

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

var tokenNames = map[TokenType]string{
	EOF:     "EOF",
	ILLEGAL: "ILLEGAL",

	IDENT:  "IDENT",
	NUMBER: "NUMBER",
	STRING: "STRING",
	PARAM:  "PARAM",

	PLUS:      "+",
	MINUS:     "-",
	STAR:      "*",
	SLASH:     "/",
	PERCENT:   "%",
	CARET:     "^",
	EQ:        "=",
	NE:        "!=",
	LT:        "<",
	GT:        ">",
	LE:        "<=",
	GE:        ">=",
	TYPECAST:  "::",
	OP:        "OP",
	DOT:       ".",
	COMMA:     ",",
	SEMICOLON: ";",
	COLON:     ":",
	LPAREN:    "(",
	RPAREN:    ")",
	LBRACKET:  "[",
	RBRACKET:  "]",
}

// keywords maps lowercase keyword strings to their token types.
var keywords = map[string]TokenType{
	"all":          ALL,
	"alter":        ALTER,
	"and":          AND,
	"any":          ANY,
	"as":           AS,
	"asc":          ASC,
	"at":           AT,
	"between":      BETWEEN,
	"both":         BOTH,
	"by":           BY,
	"cascade":      CASCADE,
	"case":         CASE,
	"cast":         CAST,
	"collate":      COLLATE,
	"create":       CREATE,
	"cross":        CROSS,
	"default":      DEFAULT,
	"delete":       DELETE,
	"desc":         DESC,
	"distinct":     DISTINCT,
	"drop":         DROP,
	"else":         ELSE,
	"end":          END,
	"escape":       ESCAPE,
	"except":       EXCEPT,
	"exists":       EXISTS,
	"extract":      EXTRACT,
	"false":        FALSE,
	"filter":       FILTER,
	"first":        FIRST,
	"for":          FOR,
	"from":         FROM,
	"full":         FULL,
	"group":        GROUP,
	"having":       HAVING,
	"if":           IF,
	"ignore":       IGNORE,
	"ilike":        ILIKE,
	"in":           IN,
	"inner":        INNER,
	"insert":       INSERT,
	"intersect":    INTERSECT,
	"into":         INTO,
	"is":           IS,
	"isnull":       ISNULL,
	"join":         JOIN,
	"last":         LAST,
	"leading":      LEADING,
	"left":         LEFT,
	"like":         LIKE,
	"limit":        LIMIT,
	"local":        LOCAL,
	"materialized": MATERIALIZED,
	"minus":        SETMINUS,
	"natural":      NATURAL,
	"no":           NO,
	"not":          NOT,
	"notnull":      NOTNULL,
	"null":         NULL,
	"nulls":        NULLS,
	"offset":       OFFSET,
	"on":           ON,
	"operator":     OPERATOR,
	"or":           OR,
	"order":        ORDER,
	"outer":        OUTER,
	"over":         OVER,
	"partition":    PARTITION,
	"position":     POSITION,
	"qualify":      QUALIFY,
	"range":        RANGE,
	"recursive":    RECURSIVE,
	"rename":       RENAME,
	"replace":      REPLACE,
	"respect":      RESPECT,
	"restrict":     RESTRICT,
	"right":        RIGHT,
	"rows":         ROWS,
	"select":       SELECT,
	"similar":      SIMILAR,
	"some":         SOME,
	"substring":    SUBSTRING,
	"symmetric":    SYMMETRIC,
	"table":        TABLE,
	"temp":         TEMP,
	"temporary":    TEMPORARY,
	"then":         THEN,
	"time":         TIME,
	"to":           TO,
	"top":          TOP,
	"trailing":     TRAILING,
	"trim":         TRIM,
	"true":         TRUE,
	"union":        UNION,
	"unknown":      UNKNOWN,
	"using":        USING,
	"values":       VALUES,
	"view":         VIEW,
	"when":         WHEN,
	"where":        WHERE,
	"window":       WINDOW,
	"with":         WITH,
	"within":       WITHIN,
	"zone":         ZONE,
}

func init() {
	for word, t := range keywords {
		if t == SETMINUS {
			tokenNames[t] = "MINUS"
			continue
		}
		tokenNames[t] = upper(word)
	}
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

// reserved lists the keywords that can never be a bare identifier.
var reserved = map[TokenType]bool{
	ALL: true, AND: true, ANY: true, AS: true, ASC: true, BETWEEN: true,
	BOTH: true, CASE: true, CAST: true, COLLATE: true, CREATE: true,
	CROSS: true, DEFAULT: true, DESC: true, DISTINCT: true, ELSE: true,
	END: true, EXCEPT: true, FALSE: true, FOR: true, FROM: true, FULL: true,
	GROUP: true, HAVING: true, ILIKE: true, IN: true, INNER: true,
	INTERSECT: true, INTO: true, IS: true, ISNULL: true, JOIN: true,
	LEADING: true, LEFT: true, LIKE: true, LIMIT: true, SETMINUS: true,
	NATURAL: true, NOT: true, NOTNULL: true, NULL: true, OFFSET: true,
	ON: true, OR: true, ORDER: true, OUTER: true, QUALIFY: true,
	RIGHT: true, SELECT: true, SIMILAR: true, SOME: true, SYMMETRIC: true,
	TABLE: true, THEN: true, TO: true, TOP: true, TRAILING: true,
	TRUE: true, UNION: true, USING: true, WHEN: true, WHERE: true,
	WINDOW: true, WITH: true,
}

// LookupIdent returns the token type for the given lowercase identifier.
// If the identifier is a keyword, the keyword token type is returned.
// Otherwise, IDENT is returned.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword returns true if the token type is a keyword.
func IsKeyword(t TokenType) bool {
	return t >= ALL && t <= ZONE
}

// IsReserved returns true if the keyword cannot be used as a bare identifier.
func IsReserved(t TokenType) bool {
	return reserved[t]
}

// IsOperator returns true if the token type is an operator or punctuation.
func IsOperator(t TokenType) bool {
	return t >= PLUS && t <= RBRACKET
}

// Token represents a lexical token with position information.
type Token struct {
	Type    TokenType
	Literal string // unescaped text; keywords keep their source spelling
	Raw     string // exact source text, including quotes
	Quoted  bool   // identifier was written in double quotes
	Pos     Position
	EndPos  Position // position just past the last character
}

// Span returns the source range covered by the token.
func (t Token) Span() Span {
	return Span{Start: t.Pos, End: t.EndPos}
}
