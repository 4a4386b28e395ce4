package parser

import (
	"github.com/leapstack-labs/redshift-lineage/pkg/cst"
	"github.com/leapstack-labs/redshift-lineage/pkg/token"
)

// Expression parsing.
//
// Every precedence level produces its own node, so a bare column reference
// is wrapped once per level. Operators are kept as terminals between the
// operands and folded later. Levels, lowest to highest:
//
//	a_expr_or         → a_expr_and (OR a_expr_and)*
//	a_expr_and        → a_expr_between (AND a_expr_between)*
//	a_expr_between    → a_expr_in [[NOT] BETWEEN [SYMMETRIC] a_expr_in AND a_expr_in]
//	a_expr_in         → a_expr_unary_not [[NOT] IN (in_list | select_with_parens)]
//	a_expr_unary_not  → NOT a_expr_unary_not | a_expr_isnull
//	a_expr_isnull     → a_expr_is_not (ISNULL | NOTNULL)*
//	a_expr_is_not     → a_expr_compare (IS [NOT] (NULL | TRUE | FALSE | UNKNOWN
//	                    | DISTINCT FROM a_expr_compare))*
//	a_expr_compare    → a_expr_like [cmp_op (a_expr_like | quantifier)]
//	a_expr_like       → a_expr_qual_op [[NOT] (LIKE | ILIKE | SIMILAR TO) a_expr_qual_op
//	                    [ESCAPE a_expr_qual_op]]
//	a_expr_qual_op    → a_expr_unary_qualop (qual_op a_expr_unary_qualop)*
//	a_expr_unary_qualop → [qual_op] a_expr_add
//	a_expr_add        → a_expr_mul (("+" | "-") a_expr_mul)*
//	a_expr_mul        → a_expr_caret (("*" | "/" | "%") a_expr_caret)*
//	a_expr_caret      → a_expr_unary_sign ("^" a_expr_unary_sign)*
//	a_expr_unary_sign → ("+" | "-") a_expr_unary_sign | a_expr_at_time_zone
//	a_expr_at_time_zone → a_expr_collate (AT TIME ZONE a_expr_collate)*
//	a_expr_collate    → a_expr_typecast [COLLATE any_name]
//	a_expr_typecast   → primary ("::" typename)*

// parseAExpr parses a full expression.
func (p *Parser) parseAExpr() *cst.Node {
	return p.parseLeftAssoc(cst.RuleAExprOr, p.parseAExprAnd, token.OR)
}

func (p *Parser) parseAExprAnd() *cst.Node {
	return p.parseLeftAssoc(cst.RuleAExprAnd, p.parseAExprBetween, token.AND)
}

// parseLeftAssoc parses next (op next)* into a node of rule r.
func (p *Parser) parseLeftAssoc(r cst.Rule, next func() *cst.Node, ops ...token.TokenType) *cst.Node {
	n := p.open(r)
	add(n, next())
	for !p.failed() && p.checkAny(ops...) {
		p.consume(n)
		add(n, next())
	}
	return p.close(n)
}

func (p *Parser) parseAExprBetween() *cst.Node {
	n := p.open(cst.RuleAExprBetween)
	add(n, p.parseAExprIn())
	if p.failed() {
		return n
	}
	if p.check(token.BETWEEN) || (p.check(token.NOT) && p.checkPeek(token.BETWEEN)) {
		p.accept(n, token.NOT)
		p.consume(n)
		p.accept(n, token.SYMMETRIC)
		add(n, p.parseAExprIn())
		p.expect(n, token.AND)
		add(n, p.parseAExprIn())
	}
	return p.close(n)
}

func (p *Parser) parseAExprIn() *cst.Node {
	n := p.open(cst.RuleAExprIn)
	add(n, p.parseAExprUnaryNot())
	if p.failed() {
		return n
	}
	if p.check(token.IN) || (p.check(token.NOT) && p.checkPeek(token.IN)) {
		p.accept(n, token.NOT)
		p.consume(n)
		add(n, p.parseInSource())
	}
	return p.close(n)
}

// parseInSource parses the parenthesized right side of IN.
func (p *Parser) parseInSource() *cst.Node {
	if !p.check(token.LPAREN) {
		p.addError(sprintfUnexpected(p.cur(), "("))
		return nil
	}
	if p.selectAhead() {
		if swp := p.speculate(p.parseSelectWithParens); swp != nil {
			return swp
		}
	}
	n := p.open(cst.RuleInList)
	p.consume(n)
	add(n, p.parseExprList())
	p.expect(n, token.RPAREN)
	return p.close(n)
}

func (p *Parser) parseAExprUnaryNot() *cst.Node {
	n := p.open(cst.RuleAExprUnaryNot)
	if p.accept(n, token.NOT) {
		add(n, p.parseAExprUnaryNot())
	} else {
		add(n, p.parseAExprIsNull())
	}
	return p.close(n)
}

func (p *Parser) parseAExprIsNull() *cst.Node {
	n := p.open(cst.RuleAExprIsNull)
	add(n, p.parseAExprIsNot())
	for !p.failed() && p.checkAny(token.ISNULL, token.NOTNULL) {
		p.consume(n)
	}
	return p.close(n)
}

func (p *Parser) parseAExprIsNot() *cst.Node {
	n := p.open(cst.RuleAExprIsNot)
	add(n, p.parseAExprCompare())
	for !p.failed() && p.accept(n, token.IS) {
		p.accept(n, token.NOT)
		switch {
		case p.checkAny(token.NULL, token.TRUE, token.FALSE, token.UNKNOWN):
			p.consume(n)
		case p.check(token.DISTINCT):
			p.consume(n)
			p.expect(n, token.FROM)
			add(n, p.parseAExprCompare())
		default:
			p.addError(sprintfUnexpected(p.cur(), "NULL, TRUE, FALSE, UNKNOWN or DISTINCT FROM"))
		}
	}
	return p.close(n)
}

func (p *Parser) parseAExprCompare() *cst.Node {
	n := p.open(cst.RuleAExprCompare)
	add(n, p.parseAExprLike())
	if p.failed() {
		return n
	}
	if p.checkAny(token.EQ, token.NE, token.LT, token.GT, token.LE, token.GE) {
		p.consume(n)
		if p.checkAny(token.ANY, token.ALL, token.SOME) && p.checkPeek(token.LPAREN) {
			add(n, p.parseSubqueryQuantifier())
		} else {
			add(n, p.parseAExprLike())
		}
	}
	return p.close(n)
}

// parseSubqueryQuantifier parses (ANY | ALL | SOME) "(" (query | a_expr) ")".
func (p *Parser) parseSubqueryQuantifier() *cst.Node {
	n := p.open(cst.RuleSubqueryQuantifier)
	p.consume(n)
	if p.selectAhead() {
		if swp := p.speculate(p.parseSelectWithParens); swp != nil {
			add(n, swp)
			return p.close(n)
		}
	}
	p.expect(n, token.LPAREN)
	add(n, p.parseAExpr())
	p.expect(n, token.RPAREN)
	return p.close(n)
}

func (p *Parser) parseAExprLike() *cst.Node {
	n := p.open(cst.RuleAExprLike)
	add(n, p.parseAExprQualOp())
	if p.failed() {
		return n
	}
	k := 0
	if p.check(token.NOT) {
		k = 1
	}
	switch p.peekAt(k).Type {
	case token.LIKE, token.ILIKE:
		p.accept(n, token.NOT)
		p.consume(n)
	case token.SIMILAR:
		p.accept(n, token.NOT)
		p.consume(n)
		p.expect(n, token.TO)
	default:
		return p.close(n)
	}
	add(n, p.parseAExprQualOp())
	if p.accept(n, token.ESCAPE) {
		add(n, p.parseAExprQualOp())
	}
	return p.close(n)
}

func (p *Parser) parseAExprQualOp() *cst.Node {
	n := p.open(cst.RuleAExprQualOp)
	add(n, p.parseAExprUnaryQualOp())
	for !p.failed() && p.qualOpAhead() {
		add(n, p.parseQualOp())
		add(n, p.parseAExprUnaryQualOp())
	}
	return p.close(n)
}

func (p *Parser) parseAExprUnaryQualOp() *cst.Node {
	n := p.open(cst.RuleAExprUnaryQualOp)
	if p.qualOpAhead() {
		add(n, p.parseQualOp())
	}
	add(n, p.parseAExprAdd())
	return p.close(n)
}

// qualOpAhead reports whether a custom or qualified operator starts here.
func (p *Parser) qualOpAhead() bool {
	return p.check(token.OP) || (p.check(token.OPERATOR) && p.checkPeek(token.LPAREN))
}

// parseQualOp parses an operator symbol or OPERATOR "(" [schema "."] op ")".
func (p *Parser) parseQualOp() *cst.Node {
	n := p.open(cst.RuleQualOp)
	if p.accept(n, token.OP) {
		return p.close(n)
	}
	p.expect(n, token.OPERATOR)
	p.expect(n, token.LPAREN)
	for isColLabel(p.cur()) && p.checkPeek(token.DOT) {
		p.consume(n)
		p.consume(n)
	}
	if token.IsOperator(p.cur().Type) && !p.checkAny(token.LPAREN, token.RPAREN, token.COMMA, token.SEMICOLON) {
		p.consume(n)
	} else {
		p.addError(sprintfUnexpected(p.cur(), "operator"))
	}
	p.expect(n, token.RPAREN)
	return p.close(n)
}

func (p *Parser) parseAExprAdd() *cst.Node {
	return p.parseLeftAssoc(cst.RuleAExprAdd, p.parseAExprMul, token.PLUS, token.MINUS)
}

func (p *Parser) parseAExprMul() *cst.Node {
	return p.parseLeftAssoc(cst.RuleAExprMul, p.parseAExprCaret, token.STAR, token.SLASH, token.PERCENT)
}

func (p *Parser) parseAExprCaret() *cst.Node {
	return p.parseLeftAssoc(cst.RuleAExprCaret, p.parseAExprUnarySign, token.CARET)
}

func (p *Parser) parseAExprUnarySign() *cst.Node {
	n := p.open(cst.RuleAExprUnarySign)
	if p.accept(n, token.PLUS) || p.accept(n, token.MINUS) {
		add(n, p.parseAExprUnarySign())
	} else {
		add(n, p.parseAExprAtTimeZone())
	}
	return p.close(n)
}

func (p *Parser) parseAExprAtTimeZone() *cst.Node {
	n := p.open(cst.RuleAExprAtTimeZone)
	add(n, p.parseAExprCollate())
	for !p.failed() && p.check(token.AT) && p.checkPeek(token.TIME) {
		p.consume(n)
		p.consume(n)
		p.expect(n, token.ZONE)
		add(n, p.parseAExprCollate())
	}
	return p.close(n)
}

func (p *Parser) parseAExprCollate() *cst.Node {
	n := p.open(cst.RuleAExprCollate)
	add(n, p.parseAExprTypecast())
	if !p.failed() && p.accept(n, token.COLLATE) {
		add(n, p.parseAnyName())
	}
	return p.close(n)
}

func (p *Parser) parseAExprTypecast() *cst.Node {
	n := p.open(cst.RuleAExprTypecast)
	add(n, p.parsePrimary())
	for !p.failed() && p.accept(n, token.TYPECAST) {
		add(n, p.parseTypename())
	}
	return p.close(n)
}

// parseAnyName parses a dotted name of labels or a string literal.
func (p *Parser) parseAnyName() *cst.Node {
	n := p.open(cst.RuleAnyName)
	if p.accept(n, token.STRING) {
		return p.close(n)
	}
	if !isColLabel(p.cur()) {
		p.addError(sprintfUnexpected(p.cur(), "name"))
		return n
	}
	p.consume(n)
	for p.check(token.DOT) && isColLabel(p.peekAt(1)) {
		p.consume(n)
		p.consume(n)
	}
	return p.close(n)
}

// parseExprList parses a_expr ("," a_expr)*.
func (p *Parser) parseExprList() *cst.Node {
	n := p.open(cst.RuleExprList)
	add(n, p.parseAExpr())
	for !p.failed() && p.accept(n, token.COMMA) {
		add(n, p.parseAExpr())
	}
	return p.close(n)
}
