// Package parser turns Redshift SQL text into a concrete parse tree.
//
// # Usage
//
//	root, err := parser.Parse("SELECT id INTO new_users FROM users;")
//	if err != nil {
//	    // handle error
//	}
//	for _, stmt := range root.ChildrenOf(cst.RuleStmt) {
//	    // ...
//	}
//
// # Grammar Overview
//
// The parser is a recursive descent parser. It does not build an AST:
// every grammar rule becomes a cst.Node whose children are sub-rules and
// tokens in source order. Expressions are layered one rule per precedence
// level and operators are left unfolded.
//
//	root       → stmt (";" stmt)* [";"]
//	stmt       → select_stmt | insert_stmt | delete_stmt | create_stmt
//	           | alter_stmt | drop_stmt | other_stmt
//
// See each file for detailed grammar rules for that section.
package parser

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/redshift-lineage/pkg/cst"
	"github.com/leapstack-labs/redshift-lineage/pkg/token"
)

// Parser parses SQL into a concrete parse tree.
type Parser struct {
	input  string
	lexer  *Lexer
	tokens []token.Token
	pos    int // index of the current token
	errors []error
}

// NewParser creates a new parser for the given SQL input.
// The whole input is tokenized up front.
func NewParser(sql string) *Parser {
	l := NewLexer(sql)
	var tokens []token.Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return &Parser{
		input:  sql,
		lexer:  l,
		tokens: tokens,
	}
}

// Parse parses a SQL script and returns its root node.
func Parse(sql string) (*cst.Node, error) {
	p := NewParser(sql)
	root := p.ParseRoot()
	if err := p.Err(); err != nil {
		return nil, err
	}
	return root, nil
}

// Comments returns the comments seen by the lexer.
func (p *Parser) Comments() []*token.Comment {
	return p.lexer.Comments
}

// Err returns the first lexical or syntax error, if any.
func (p *Parser) Err() error {
	if errs := p.lexer.Errors(); len(errs) > 0 {
		return errs[0]
	}
	if len(p.errors) > 0 {
		return p.errors[0]
	}
	return nil
}

// ParseRoot parses every statement of the script. Parsing stops at the
// first syntax error.
func (p *Parser) ParseRoot() *cst.Node {
	root := p.open(cst.RuleRoot)
	for !p.failed() {
		for p.accept(root, token.SEMICOLON) {
		}
		if p.check(token.EOF) {
			break
		}
		root.Children = append(root.Children, p.parseStatement())
		if !p.check(token.SEMICOLON) && !p.check(token.EOF) {
			p.addError(fmt.Sprintf(ErrUnexpectedInput, p.cur().Raw))
		}
	}
	return p.close(root)
}

// ---------- Token Helpers ----------

// cur returns the current token.
func (p *Parser) cur() token.Token {
	return p.tokens[p.pos]
}

// peekAt returns the token n positions ahead of the current one.
func (p *Parser) peekAt(n int) token.Token {
	if p.pos+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+n]
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
}

// check returns true if the current token is of the given type.
func (p *Parser) check(t token.TokenType) bool {
	return p.cur().Type == t
}

// checkPeek returns true if the next token is of the given type.
func (p *Parser) checkPeek(t token.TokenType) bool {
	return p.peekAt(1).Type == t
}

// checkAny returns true if the current token is any of the given types.
func (p *Parser) checkAny(types ...token.TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			return true
		}
	}
	return false
}

// consume appends the current token to n and advances.
func (p *Parser) consume(n *cst.Node) {
	if p.check(token.ILLEGAL) {
		p.addError(fmt.Sprintf(ErrIllegalCharacter, p.cur().Raw))
	}
	n.Children = append(n.Children, cst.NewTerminal(p.cur()))
	p.nextToken()
}

// accept consumes the current token into n if it matches.
func (p *Parser) accept(n *cst.Node, t token.TokenType) bool {
	if p.check(t) {
		p.consume(n)
		return true
	}
	return false
}

// expect consumes the current token into n if it matches, otherwise adds an error.
func (p *Parser) expect(n *cst.Node, t token.TokenType) bool {
	if p.accept(n, t) {
		return true
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.cur()), t))
	return false
}

// addError adds a parse error at the current token.
func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, &ParseError{
		Pos:     p.cur().Pos,
		Message: msg,
	})
}

// failed reports whether any error has been recorded.
func (p *Parser) failed() bool {
	return len(p.errors) > 0 || len(p.lexer.Errors()) > 0
}

// speculate runs fn and rewinds the parser if fn reports an error.
// It returns fn's node on success and nil otherwise.
func (p *Parser) speculate(fn func() *cst.Node) *cst.Node {
	mark, nerr := p.pos, len(p.errors)
	n := fn()
	if len(p.errors) > nerr {
		p.pos = mark
		p.errors = p.errors[:nerr]
		return nil
	}
	return n
}

// describe renders a token for error messages.
func describe(tok token.Token) string {
	if tok.Type == token.EOF {
		return "EOF"
	}
	return fmt.Sprintf("%q", tok.Raw)
}

// ---------- Node Helpers ----------

// open starts a rule node at the current token.
func (p *Parser) open(r cst.Rule) *cst.Node {
	return &cst.Node{Rule: r, Start: p.cur()}
}

// openAt starts a rule node at an already parsed child.
func (p *Parser) openAt(r cst.Rule, first *cst.Node) *cst.Node {
	return &cst.Node{Rule: r, Start: first.Start, Children: []*cst.Node{first}}
}

// close finishes a rule node at the previously consumed token.
func (p *Parser) close(n *cst.Node) *cst.Node {
	if p.pos == 0 {
		n.Stop = n.Start
		return n
	}
	last := p.tokens[p.pos-1]
	if last.EndPos.Offset <= n.Start.Pos.Offset {
		n.Stop = n.Start
		return n
	}
	n.Stop = last
	n.Text = p.input[n.Start.Pos.Offset:last.EndPos.Offset]
	return n
}

// add appends child to n when child is not nil.
func add(n, child *cst.Node) {
	if child != nil {
		n.Children = append(n.Children, child)
	}
}

// ---------- Keyword Helpers ----------

// isColID returns true if tok can be used as a bare identifier.
func isColID(tok token.Token) bool {
	return tok.Type == token.IDENT || (token.IsKeyword(tok.Type) && !token.IsReserved(tok.Type))
}

// isColLabel returns true if tok can be used after AS or a dot.
func isColLabel(tok token.Token) bool {
	return tok.Type == token.IDENT || token.IsKeyword(tok.Type)
}

// isWord returns true if tok is an unquoted word equal to w (case-insensitive).
func isWord(tok token.Token, w string) bool {
	return !tok.Quoted && (tok.Type == token.IDENT || token.IsKeyword(tok.Type)) && strings.EqualFold(tok.Literal, w)
}

// selectAhead reports whether the current "(" opens a parenthesized query,
// looking through any further opening parentheses.
func (p *Parser) selectAhead() bool {
	k := 0
	for p.peekAt(k).Type == token.LPAREN {
		k++
	}
	switch p.peekAt(k).Type {
	case token.SELECT, token.WITH, token.VALUES:
		return true
	}
	return false
}

// findTopLevel returns the offset from the current token of the first token
// of type t outside parentheses, or -1 if the statement ends first.
func (p *Parser) findTopLevel(t token.TokenType) int {
	depth := 0
	for k := 0; ; k++ {
		tok := p.peekAt(k)
		if depth == 0 && tok.Type == t {
			return k
		}
		switch tok.Type {
		case token.EOF:
			return -1
		case token.SEMICOLON:
			if depth == 0 {
				return -1
			}
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
		}
		if p.pos+k >= len(p.tokens)-1 {
			return -1
		}
	}
}

// skipBalanced consumes tokens into n until one of the stop types appears
// outside parentheses, or the statement ends.
func (p *Parser) skipBalanced(n *cst.Node, stop ...token.TokenType) {
	depth := 0
	for !p.check(token.EOF) {
		if depth == 0 && (p.check(token.SEMICOLON) || p.checkAny(stop...)) {
			return
		}
		switch {
		case p.check(token.LPAREN):
			depth++
		case p.check(token.RPAREN):
			if depth == 0 {
				return
			}
			depth--
		}
		p.consume(n)
	}
}
