package parser

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/redshift-lineage/pkg/cst"
	"github.com/leapstack-labs/redshift-lineage/pkg/token"
)

// Primary expression parsing: literals, column refs, function calls.
//
// Grammar:
//
//	primary       → constant | PARAM | case_expr | cast_func | exists_expr
//	              | common_func | typed_constant | func_call | column_ref
//	              | select_with_parens [indirection] | "(" a_expr ")"
//	              | "(" a_expr ("," a_expr)+ ")"
//	constant      → NUMBER | STRING | TRUE | FALSE | NULL | DEFAULT
//	typed_constant → typename STRING
//	column_ref    → col_id ("." col_label | "[" a_expr "]")* ["." "*"]
//	func_call     → func_name "(" [ALL | DISTINCT] ["*" | expr_list] [sort_clause]
//	                [null_treatment] ")" [WITHIN GROUP "(" sort_clause ")"]
//	                [FILTER "(" WHERE a_expr ")"] [null_treatment] [OVER over]
//	over          → col_id | window_spec
//	window_spec   → "(" [col_id] [PARTITION BY expr_list] [sort_clause] [frame] ")"

// niladicFuncs are SQL value functions written without parentheses.
var niladicFuncs = map[string]bool{
	"current_date":      true,
	"current_time":      true,
	"current_timestamp": true,
	"current_user":      true,
	"localtime":         true,
	"localtimestamp":    true,
	"session_user":      true,
	"sysdate":           true,
	"user":              true,
}

// parsePrimary parses a primary expression.
func (p *Parser) parsePrimary() *cst.Node {
	tok := p.cur()
	switch tok.Type {
	case token.NUMBER, token.STRING, token.TRUE, token.FALSE, token.NULL, token.DEFAULT:
		n := p.open(cst.RuleConstant)
		p.consume(n)
		return p.close(n)

	case token.PARAM:
		n := p.open(cst.RuleParam)
		p.consume(n)
		return p.close(n)

	case token.CASE:
		return p.parseCaseExpr()

	case token.CAST:
		return p.parseCastFunc()

	case token.LPAREN:
		return p.parseParenPrimary()

	case token.EXISTS:
		if p.checkPeek(token.LPAREN) {
			n := p.open(cst.RuleExistsExpr)
			p.consume(n)
			add(n, p.parseSelectWithParens())
			return p.close(n)
		}

	case token.EXTRACT, token.POSITION, token.SUBSTRING, token.TRIM:
		if p.checkPeek(token.LPAREN) {
			return p.parseCommonFuncCall()
		}
	}

	if !tok.Quoted && tok.Type == token.IDENT && niladicFuncs[strings.ToLower(tok.Literal)] && !p.checkPeek(token.LPAREN) {
		n := p.open(cst.RuleCommonFuncCall)
		p.consume(n)
		return p.close(n)
	}
	if p.funcAhead() {
		return p.parseFuncCall()
	}
	if isColID(tok) && !tok.Quoted && p.checkPeek(token.STRING) {
		n := p.open(cst.RuleTypedConstant)
		add(n, p.parseTypename())
		p.expect(n, token.STRING)
		return p.close(n)
	}
	if isColID(tok) {
		return p.parseColumnRef()
	}

	p.addError(fmt.Sprintf(ErrExpectedExpression, describe(tok)))
	return nil
}

// parseParenPrimary parses a scalar subquery, a row constructor or a
// parenthesized expression.
func (p *Parser) parseParenPrimary() *cst.Node {
	if p.selectAhead() {
		sel := p.speculate(func() *cst.Node {
			n := p.open(cst.RuleSelectExpr)
			add(n, p.parseSelectWithParens())
			if p.check(token.DOT) || p.check(token.LBRACKET) {
				add(n, p.parseIndirection())
			}
			return p.close(n)
		})
		if sel != nil {
			return sel
		}
	}

	n := p.open(cst.RuleParenExpr)
	p.expect(n, token.LPAREN)
	add(n, p.parseAExpr())
	if p.check(token.COMMA) {
		n.Rule = cst.RuleImplicitRow
		for !p.failed() && p.accept(n, token.COMMA) {
			add(n, p.parseAExpr())
		}
	}
	p.expect(n, token.RPAREN)
	return p.close(n)
}

// parseIndirection parses ("." col_label | "[" a_expr [":" a_expr] "]")+.
func (p *Parser) parseIndirection() *cst.Node {
	n := p.open(cst.RuleIndirection)
	for !p.failed() {
		switch {
		case p.check(token.DOT) && isColLabel(p.peekAt(1)):
			p.consume(n)
			p.consume(n)
		case p.check(token.LBRACKET):
			p.consume(n)
			add(n, p.parseAExpr())
			if p.accept(n, token.COLON) {
				add(n, p.parseAExpr())
			}
			p.expect(n, token.RBRACKET)
		default:
			return p.close(n)
		}
	}
	return n
}

func (p *Parser) parseColumnRef() *cst.Node {
	n := p.open(cst.RuleColumnRef)
	p.consume(n)
	for !p.failed() {
		switch {
		case p.check(token.DOT) && isColLabel(p.peekAt(1)):
			p.consume(n)
			p.consume(n)
		case p.check(token.DOT) && p.checkPeek(token.STAR):
			p.consume(n)
			p.consume(n)
			return p.close(n)
		case p.check(token.LBRACKET):
			add(n, p.parseIndirection())
		default:
			return p.close(n)
		}
	}
	return n
}

func (p *Parser) parseCaseExpr() *cst.Node {
	n := p.open(cst.RuleCaseExpr)
	p.expect(n, token.CASE)
	if !p.check(token.WHEN) {
		add(n, p.parseAExpr())
	}
	for !p.failed() && p.check(token.WHEN) {
		w := p.open(cst.RuleWhenClause)
		p.consume(w)
		add(w, p.parseAExpr())
		p.expect(w, token.THEN)
		add(w, p.parseAExpr())
		add(n, p.close(w))
	}
	if n.Child(cst.RuleWhenClause) == nil && !p.failed() {
		p.addError(sprintfUnexpected(p.cur(), "WHEN"))
	}
	if p.check(token.ELSE) {
		e := p.open(cst.RuleElseClause)
		p.consume(e)
		add(e, p.parseAExpr())
		add(n, p.close(e))
	}
	p.expect(n, token.END)
	return p.close(n)
}

// parseCastFunc parses CAST "(" a_expr AS typename ")".
func (p *Parser) parseCastFunc() *cst.Node {
	n := p.open(cst.RuleCastFunc)
	p.expect(n, token.CAST)
	p.expect(n, token.LPAREN)
	add(n, p.parseAExpr())
	p.expect(n, token.AS)
	add(n, p.parseTypename())
	p.expect(n, token.RPAREN)
	return p.close(n)
}

// parseCommonFuncCall parses EXTRACT, POSITION, SUBSTRING and TRIM, whose
// arguments are separated by keywords as well as commas.
func (p *Parser) parseCommonFuncCall() *cst.Node {
	n := p.open(cst.RuleCommonFuncCall)
	name := p.cur().Type
	p.consume(n)
	p.expect(n, token.LPAREN)

	if name == token.EXTRACT && (isColLabel(p.cur()) || p.check(token.STRING)) && p.checkPeek(token.FROM) {
		p.consume(n)
	}
	first := true
	for !p.failed() && !p.check(token.RPAREN) {
		switch {
		case p.checkAny(token.COMMA, token.FROM, token.FOR, token.BOTH, token.LEADING, token.TRAILING):
			p.consume(n)
		case name == token.POSITION && p.check(token.IN):
			p.consume(n)
		case name == token.POSITION && first:
			add(n, p.parseAExprUnaryNot())
		default:
			add(n, p.parseAExpr())
		}
		first = false
	}
	p.expect(n, token.RPAREN)
	return p.close(n)
}

// funcAhead reports whether a possibly qualified function name followed by
// "(" starts at the current token.
func (p *Parser) funcAhead() bool {
	tok := p.cur()
	if !isColID(tok) && tok.Type != token.LEFT && tok.Type != token.RIGHT {
		return false
	}
	k := 0
	for p.peekAt(k+1).Type == token.DOT && isColLabel(p.peekAt(k+2)) {
		k += 2
	}
	return p.peekAt(k+1).Type == token.LPAREN
}

func (p *Parser) parseFuncCall() *cst.Node {
	n := p.open(cst.RuleFuncCall)

	name := p.open(cst.RuleFuncName)
	p.consume(name)
	for p.check(token.DOT) && isColLabel(p.peekAt(1)) {
		p.consume(name)
		p.consume(name)
	}
	add(n, p.close(name))

	args := p.open(cst.RuleFuncArgs)
	p.expect(args, token.LPAREN)
	if !p.accept(args, token.ALL) {
		p.accept(args, token.DISTINCT)
	}
	switch {
	case p.accept(args, token.STAR):
	case p.check(token.RPAREN):
	default:
		add(args, p.parseExprList())
	}
	if p.check(token.ORDER) {
		add(args, p.parseSortClause())
	}
	add(args, p.parseNullTreatment())
	p.expect(args, token.RPAREN)
	add(n, p.close(args))

	if p.check(token.WITHIN) {
		w := p.open(cst.RuleWithinGroup)
		p.consume(w)
		p.expect(w, token.GROUP)
		p.expect(w, token.LPAREN)
		add(w, p.parseSortClause())
		p.expect(w, token.RPAREN)
		add(n, p.close(w))
	}
	if p.check(token.FILTER) && p.checkPeek(token.LPAREN) {
		f := p.open(cst.RuleFilterClause)
		p.consume(f)
		p.consume(f)
		p.expect(f, token.WHERE)
		add(f, p.parseAExpr())
		p.expect(f, token.RPAREN)
		add(n, p.close(f))
	}
	add(n, p.parseNullTreatment())
	if p.check(token.OVER) {
		add(n, p.parseOverClause())
	}
	return p.close(n)
}

// parseNullTreatment parses an optional IGNORE NULLS or RESPECT NULLS.
func (p *Parser) parseNullTreatment() *cst.Node {
	if !p.checkAny(token.IGNORE, token.RESPECT) || !p.checkPeek(token.NULLS) {
		return nil
	}
	n := p.open(cst.RuleNullTreatment)
	p.consume(n)
	p.consume(n)
	return p.close(n)
}

func (p *Parser) parseOverClause() *cst.Node {
	n := p.open(cst.RuleOverClause)
	p.expect(n, token.OVER)
	if p.check(token.LPAREN) {
		add(n, p.parseWindowSpec())
	} else {
		p.parseColID(n)
	}
	return p.close(n)
}

func (p *Parser) parseWindowSpec() *cst.Node {
	n := p.open(cst.RuleWindowSpec)
	p.expect(n, token.LPAREN)
	if isColID(p.cur()) && !p.checkAny(token.PARTITION, token.ROWS, token.RANGE) {
		p.consume(n)
	}
	if p.check(token.PARTITION) {
		part := p.open(cst.RulePartitionClause)
		p.consume(part)
		p.expect(part, token.BY)
		add(part, p.parseExprList())
		add(n, p.close(part))
	}
	if p.check(token.ORDER) {
		add(n, p.parseSortClause())
	}
	if p.checkAny(token.ROWS, token.RANGE) {
		frame := p.open(cst.RuleFrameClause)
		p.skipBalanced(frame)
		add(n, p.close(frame))
	}
	p.expect(n, token.RPAREN)
	return p.close(n)
}

// typeWords are words that continue a multi-word type name.
var typeWords = map[string]bool{
	"precision": true,
	"varying":   true,
}

// parseTypename parses a possibly qualified, parameterized type name such
// as varchar(256), double precision or timestamp with time zone.
func (p *Parser) parseTypename() *cst.Node {
	n := p.open(cst.RuleTypename)
	if !isColLabel(p.cur()) {
		p.addError(sprintfUnexpected(p.cur(), "type name"))
		return n
	}
	p.consume(n)
	for p.check(token.DOT) && isColLabel(p.peekAt(1)) {
		p.consume(n)
		p.consume(n)
	}
	for p.cur().Type == token.IDENT && !p.cur().Quoted && typeWords[strings.ToLower(p.cur().Literal)] {
		p.consume(n)
	}
	if p.accept(n, token.LPAREN) {
		add(n, p.parseExprList())
		p.expect(n, token.RPAREN)
	}
	if (p.check(token.WITH) || isWord(p.cur(), "without")) && p.checkPeek(token.TIME) {
		p.consume(n)
		p.consume(n)
		p.expect(n, token.ZONE)
	}
	for p.check(token.LBRACKET) && p.checkPeek(token.RBRACKET) {
		p.consume(n)
		p.consume(n)
	}
	return p.close(n)
}
