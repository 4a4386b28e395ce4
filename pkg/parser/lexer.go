package parser

import (
	"strings"

	"github.com/leapstack-labs/redshift-lineage/pkg/token"
)

// Lexer tokenizes Redshift SQL input.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)

	// Comments collected during lexing
	Comments []*token.Comment

	errors []error
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// Errors returns the lexical errors found so far.
func (l *Lexer) Errors() []error {
	return l.errors
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
	if !isContinuation(l.ch) {
		l.col++
	}
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// peekCharN returns the character n positions after the current one.
func (l *Lexer) peekCharN(n int) byte {
	if l.pos+n >= len(l.input) {
		return 0
	}
	return l.input[l.pos+n]
}

// currentPos returns the current position.
func (l *Lexer) currentPos() token.Position {
	return token.Position{
		Line:   l.line,
		Column: l.col,
		Offset: l.pos,
	}
}

func (l *Lexer) addError(pos token.Position, msg string) {
	l.errors = append(l.errors, &LexError{Pos: pos, Message: msg})
}

// NextToken returns the next token.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	start := l.currentPos()
	tok := l.scan()
	tok.Pos = start
	tok.Raw = l.input[start.Offset:l.pos]
	if tok.Type == token.EOF {
		tok.Raw = ""
	}
	tok.EndPos = endOf(start, tok.Raw)
	return tok
}

// scan reads one token starting at the current character. It leaves the
// lexer positioned on the first character after the token.
func (l *Lexer) scan() token.Token {
	switch l.ch {
	case 0:
		return token.Token{Type: token.EOF}
	case '+':
		return l.single(token.PLUS)
	case '-':
		return l.single(token.MINUS)
	case '*':
		return l.single(token.STAR)
	case '/':
		return l.single(token.SLASH)
	case '%':
		return l.single(token.PERCENT)
	case '^':
		return l.single(token.CARET)
	case '=':
		return l.single(token.EQ)
	case ',':
		return l.single(token.COMMA)
	case ';':
		return l.single(token.SEMICOLON)
	case '(':
		return l.single(token.LPAREN)
	case ')':
		return l.single(token.RPAREN)
	case '[':
		return l.single(token.LBRACKET)
	case ']':
		return l.single(token.RBRACKET)
	case '<':
		switch l.peekChar() {
		case '=':
			return l.double(token.LE)
		case '>':
			return l.double(token.NE)
		case '<':
			return l.double(token.OP)
		}
		return l.single(token.LT)
	case '>':
		switch l.peekChar() {
		case '=':
			return l.double(token.GE)
		case '>':
			return l.double(token.OP)
		}
		return l.single(token.GT)
	case '!':
		switch {
		case l.peekChar() == '=':
			return l.double(token.NE)
		case l.peekChar() == '~' && l.peekCharN(2) == '*':
			return l.triple(token.OP)
		case l.peekChar() == '~':
			return l.double(token.OP)
		}
		return l.single(token.ILLEGAL)
	case '|':
		switch {
		case l.peekChar() == '|' && l.peekCharN(2) == '/':
			return l.triple(token.OP)
		case l.peekChar() == '|', l.peekChar() == '/':
			return l.double(token.OP)
		}
		return l.single(token.OP)
	case '~':
		if l.peekChar() == '*' || l.peekChar() == '~' {
			return l.double(token.OP)
		}
		return l.single(token.OP)
	case '&', '#', '@':
		return l.single(token.OP)
	case ':':
		if l.peekChar() == ':' {
			return l.double(token.TYPECAST)
		}
		return l.single(token.COLON)
	case '.':
		if isDigit(l.peekChar()) {
			return token.Token{Type: token.NUMBER, Literal: l.readNumber()}
		}
		return l.single(token.DOT)
	case '\'':
		return token.Token{Type: token.STRING, Literal: l.readQuoted('\'')}
	case '"':
		return token.Token{Type: token.IDENT, Literal: l.readQuoted('"'), Quoted: true}
	case '$':
		if isDigit(l.peekChar()) {
			start := l.pos
			l.readChar()
			for isDigit(l.ch) {
				l.readChar()
			}
			return token.Token{Type: token.PARAM, Literal: l.input[start:l.pos]}
		}
		if s, ok := l.readDollarQuoted(); ok {
			return token.Token{Type: token.STRING, Literal: s}
		}
		return l.single(token.ILLEGAL)
	}

	switch {
	case isIdentStart(l.ch):
		literal := l.readIdentifier()
		return token.Token{Type: token.LookupIdent(strings.ToLower(literal)), Literal: literal}
	case isDigit(l.ch):
		return token.Token{Type: token.NUMBER, Literal: l.readNumber()}
	}
	return l.single(token.ILLEGAL)
}

func (l *Lexer) single(t token.TokenType) token.Token {
	lit := string(l.ch)
	l.readChar()
	return token.Token{Type: t, Literal: lit}
}

func (l *Lexer) double(t token.TokenType) token.Token {
	lit := l.input[l.pos : l.pos+2]
	l.readChar()
	l.readChar()
	return token.Token{Type: t, Literal: lit}
}

func (l *Lexer) triple(t token.TokenType) token.Token {
	lit := l.input[l.pos : l.pos+3]
	l.readChar()
	l.readChar()
	l.readChar()
	return token.Token{Type: t, Literal: lit}
}

// skipWhitespaceAndComments skips whitespace and collects comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' || l.ch == '\f' {
			l.readChar()
		}

		if l.ch == '-' && l.peekChar() == '-' {
			l.collectLineComment()
			continue
		}

		if l.ch == '/' && l.peekChar() == '*' {
			l.collectBlockComment()
			continue
		}

		break
	}
}

// collectLineComment collects a line comment.
func (l *Lexer) collectLineComment() {
	startPos := l.currentPos()
	startOffset := l.pos

	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}

	l.Comments = append(l.Comments, &token.Comment{
		Kind: token.LineComment,
		Text: l.input[startOffset:l.pos],
		Span: token.Span{Start: startPos, End: l.currentPos()},
	})
}

// collectBlockComment collects a block comment. Block comments nest.
func (l *Lexer) collectBlockComment() {
	startPos := l.currentPos()
	startOffset := l.pos

	l.readChar() // skip '/'
	l.readChar() // skip '*'

	depth := 1
	for l.ch != 0 && depth > 0 {
		switch {
		case l.ch == '*' && l.peekChar() == '/':
			depth--
			l.readChar()
		case l.ch == '/' && l.peekChar() == '*':
			depth++
			l.readChar()
		}
		l.readChar()
	}
	if depth > 0 {
		l.addError(startPos, ErrUnterminatedComment)
	}

	l.Comments = append(l.Comments, &token.Comment{
		Kind: token.BlockComment,
		Text: l.input[startOffset:l.pos],
		Span: token.Span{Start: startPos, End: l.currentPos()},
	})
}

// readQuoted reads a string literal or quoted identifier delimited by quote.
// A doubled quote is an escaped quote: 'it''s' -> it's
func (l *Lexer) readQuoted(quote byte) string {
	startPos := l.currentPos()
	l.readChar() // skip opening quote

	var result strings.Builder
	for {
		if l.ch == 0 {
			if quote == '\'' {
				l.addError(startPos, ErrUnterminatedString)
			} else {
				l.addError(startPos, ErrUnterminatedIdent)
			}
			break
		}
		if l.ch == quote {
			if l.peekChar() == quote {
				result.WriteByte(quote)
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // skip closing quote
			break
		}
		result.WriteByte(l.ch)
		l.readChar()
	}
	return result.String()
}

// readDollarQuoted reads a $tag$ ... $tag$ string. It reports false, without
// consuming input, when the current '$' does not open a dollar quote.
func (l *Lexer) readDollarQuoted() (string, bool) {
	rest := l.input[l.pos:]
	end := strings.IndexByte(rest[1:], '$')
	if end < 0 {
		return "", false
	}
	tag := rest[:end+2]
	for i := 1; i < len(tag)-1; i++ {
		if !isIdentStart(tag[i]) && !isDigit(tag[i]) {
			return "", false
		}
	}

	startPos := l.currentPos()
	for range tag {
		l.readChar()
	}
	bodyStart := l.pos
	closing := strings.Index(l.input[bodyStart:], tag)
	if closing < 0 {
		l.addError(startPos, ErrUnterminatedString)
		for l.ch != 0 {
			l.readChar()
		}
		return l.input[bodyStart:], true
	}
	for i := 0; i < closing+len(tag); i++ {
		l.readChar()
	}
	return l.input[bodyStart : bodyStart+closing], true
}

// readIdentifier reads an unquoted identifier.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isIdentStart(l.ch) || isDigit(l.ch) || l.ch == '$' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads a numeric literal (integer, decimal, or scientific).
func (l *Lexer) readNumber() string {
	start := l.pos

	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' && l.peekChar() != '.' {
		l.readChar() // skip '.'
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	// Exponent part (1e10, 1E-5), only when digits follow
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(l.peekCharN(2))) {
			l.readChar() // skip 'e' or 'E'
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}

	return l.input[start:l.pos]
}

// isIdentStart returns true if ch can start an unquoted identifier.
// Bytes of multi-byte UTF-8 sequences are accepted as letters.
func isIdentStart(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch == '_' || ch >= 0x80
}

// isContinuation reports whether b is a trailing byte of a multi-byte
// UTF-8 sequence. Columns count runes, so such bytes do not advance them.
func isContinuation(b byte) bool {
	return b&0xC0 == 0x80
}

// isDigit returns true if ch is a digit.
func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// endOf returns the position just past raw when raw starts at start.
func endOf(start token.Position, raw string) token.Position {
	end := start
	for i := 0; i < len(raw); i++ {
		switch {
		case raw[i] == '\n':
			end.Line++
			end.Column = 1
		case !isContinuation(raw[i]):
			end.Column++
		}
	}
	end.Offset = start.Offset + len(raw)
	return end
}

// Tokenize returns all tokens from the input, ending with EOF.
func Tokenize(input string) []token.Token {
	l := NewLexer(input)
	var tokens []token.Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return tokens
}
