package parser

import (
	"fmt"

	"github.com/leapstack-labs/redshift-lineage/pkg/cst"
	"github.com/leapstack-labs/redshift-lineage/pkg/token"
)

// SELECT statement parsing.
//
// Grammar:
//
//	select_stmt    → [with_clause] select_clause [sort_clause] [limit_clause] [offset_clause]
//	with_clause    → WITH [RECURSIVE] cte ("," cte)*
//	cte            → col_id ["(" name_list ")"] AS select_with_parens
//	select_clause  → intersect_term (set_operator intersect_term)*
//	set_operator   → (UNION | EXCEPT | MINUS) [ALL | DISTINCT]
//	intersect_term → select_primary (INTERSECT [ALL | DISTINCT] select_primary)*
//	select_primary → simple_select | values_clause | select_with_parens
//	simple_select  → SELECT [TOP n] [ALL | DISTINCT] target_list [into_clause]
//	                 [from_clause] [WHERE a_expr] [GROUP BY expr_list]
//	                 [HAVING a_expr] [QUALIFY a_expr] [window_clause]
//	target         → "*" | col_id ("." col_label)* "." "*" | a_expr [[AS] col_label]

// parseSelectStmt parses a full query. with is a WITH clause already
// consumed by the caller, or nil.
func (p *Parser) parseSelectStmt(with *cst.Node) *cst.Node {
	var n *cst.Node
	switch {
	case with != nil:
		n = p.openAt(cst.RuleSelectStmt, with)
	case p.check(token.WITH):
		n = p.open(cst.RuleSelectStmt)
		add(n, p.parseWithClause())
	default:
		n = p.open(cst.RuleSelectStmt)
	}

	add(n, p.parseSelectClause())
	if p.failed() {
		return n
	}
	if p.check(token.ORDER) {
		add(n, p.parseSortClause())
	}
	for i := 0; i < 2; i++ {
		switch {
		case p.check(token.LIMIT) && n.Child(cst.RuleLimitClause) == nil:
			add(n, p.parseLimitClause())
		case p.check(token.OFFSET) && n.Child(cst.RuleOffsetClause) == nil:
			add(n, p.parseOffsetClause())
		}
	}
	return p.close(n)
}

// parseSelectWithParens parses "(" query ")", where the query may itself
// be parenthesized.
func (p *Parser) parseSelectWithParens() *cst.Node {
	n := p.open(cst.RuleSelectWithParens)
	p.expect(n, token.LPAREN)
	if p.check(token.LPAREN) {
		inner := p.speculate(func() *cst.Node {
			swp := p.parseSelectWithParens()
			if !p.check(token.RPAREN) {
				p.addError(fmt.Sprintf(ErrUnexpectedInput, p.cur().Raw))
			}
			return swp
		})
		if inner != nil {
			add(n, inner)
			p.expect(n, token.RPAREN)
			return p.close(n)
		}
	}
	add(n, p.parseSelectStmt(nil))
	p.expect(n, token.RPAREN)
	return p.close(n)
}

func (p *Parser) parseWithClause() *cst.Node {
	n := p.open(cst.RuleWithClause)
	p.expect(n, token.WITH)
	p.accept(n, token.RECURSIVE)
	add(n, p.parseCommonTableExpr())
	for !p.failed() && p.accept(n, token.COMMA) {
		add(n, p.parseCommonTableExpr())
	}
	return p.close(n)
}

func (p *Parser) parseCommonTableExpr() *cst.Node {
	n := p.open(cst.RuleCommonTableExpr)
	p.parseColID(n)
	if p.check(token.LPAREN) {
		cols := p.open(cst.RuleColumnList)
		p.consume(cols)
		add(cols, p.parseNameList())
		p.expect(cols, token.RPAREN)
		add(n, p.close(cols))
	}
	p.expect(n, token.AS)
	if !p.check(token.LPAREN) {
		p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.cur()), token.LPAREN))
		return n
	}
	add(n, p.parseSelectWithParens())
	return p.close(n)
}

func (p *Parser) parseSelectClause() *cst.Node {
	n := p.open(cst.RuleSelectClause)
	add(n, p.parseSimpleSelectIntersect())
	for !p.failed() && p.checkAny(token.UNION, token.EXCEPT, token.SETMINUS) {
		op := p.open(cst.RuleSetOperator)
		p.consume(op)
		if !p.accept(op, token.ALL) {
			p.accept(op, token.DISTINCT)
		}
		add(n, p.close(op))
		add(n, p.parseSimpleSelectIntersect())
	}
	return p.close(n)
}

func (p *Parser) parseSimpleSelectIntersect() *cst.Node {
	n := p.open(cst.RuleSimpleSelectIntersect)
	add(n, p.parseSelectPrimary())
	for !p.failed() && p.check(token.INTERSECT) {
		op := p.open(cst.RuleSetOperator)
		p.consume(op)
		if !p.accept(op, token.ALL) {
			p.accept(op, token.DISTINCT)
		}
		add(n, p.close(op))
		add(n, p.parseSelectPrimary())
	}
	return p.close(n)
}

func (p *Parser) parseSelectPrimary() *cst.Node {
	switch p.cur().Type {
	case token.SELECT:
		return p.parseSimpleSelect()
	case token.VALUES:
		return p.parseValuesClause()
	case token.LPAREN:
		return p.parseSelectWithParens()
	}
	p.addError(fmt.Sprintf(ErrExpectedSelect, describe(p.cur())))
	return nil
}

func (p *Parser) parseSimpleSelect() *cst.Node {
	n := p.open(cst.RuleSimpleSelect)
	p.expect(n, token.SELECT)

	if p.check(token.TOP) {
		add(n, p.parseTopClause())
	}
	if !p.accept(n, token.ALL) && p.accept(n, token.DISTINCT) && p.check(token.ON) {
		p.consume(n)
		p.expect(n, token.LPAREN)
		add(n, p.parseExprList())
		p.expect(n, token.RPAREN)
	}
	if p.check(token.TOP) && n.Child(cst.RuleTopClause) == nil {
		add(n, p.parseTopClause())
	}

	add(n, p.parseTargetList())
	if p.check(token.INTO) {
		add(n, p.parseIntoClause())
	}
	if p.check(token.FROM) {
		add(n, p.parseFromClause())
	}
	if p.check(token.WHERE) {
		add(n, p.parseWhereClause())
	}
	if p.check(token.GROUP) {
		add(n, p.parseGroupClause())
	}
	if p.check(token.HAVING) {
		c := p.open(cst.RuleHavingClause)
		p.consume(c)
		add(c, p.parseAExpr())
		add(n, p.close(c))
	}
	if p.check(token.QUALIFY) {
		c := p.open(cst.RuleQualifyClause)
		p.consume(c)
		add(c, p.parseAExpr())
		add(n, p.close(c))
	}
	if p.check(token.WINDOW) {
		add(n, p.parseWindowClause())
	}
	return p.close(n)
}

func (p *Parser) parseTopClause() *cst.Node {
	n := p.open(cst.RuleTopClause)
	p.expect(n, token.TOP)
	if p.check(token.LPAREN) {
		add(n, p.parseAExpr())
	} else {
		p.expect(n, token.NUMBER)
	}
	return p.close(n)
}

func (p *Parser) parseTargetList() *cst.Node {
	n := p.open(cst.RuleTargetList)
	add(n, p.parseTarget())
	for !p.failed() && p.accept(n, token.COMMA) {
		add(n, p.parseTarget())
	}
	return p.close(n)
}

// starAhead reports whether a qualified star (a.b.*) starts at the current token.
func (p *Parser) starAhead() bool {
	if !isColID(p.cur()) {
		return false
	}
	for k := 0; p.peekAt(k+1).Type == token.DOT; k += 2 {
		next := p.peekAt(k + 2)
		if next.Type == token.STAR {
			return true
		}
		if !isColLabel(next) {
			return false
		}
	}
	return false
}

func (p *Parser) parseTarget() *cst.Node {
	if p.check(token.STAR) || p.starAhead() {
		n := p.open(cst.RuleTargetStar)
		for !p.check(token.STAR) {
			p.consume(n)
		}
		p.consume(n)
		return p.close(n)
	}

	n := p.open(cst.RuleTargetLabel)
	add(n, p.parseAExpr())
	if p.accept(n, token.AS) {
		if isColLabel(p.cur()) {
			p.consume(n)
		} else {
			p.addError(fmt.Sprintf(ErrExpectedIdentifier, describe(p.cur())))
		}
	} else if isColID(p.cur()) {
		p.consume(n)
	}
	return p.close(n)
}

// parseIntoClause parses INTO [TEMP | TEMPORARY] [TABLE] qualified_name.
func (p *Parser) parseIntoClause() *cst.Node {
	n := p.open(cst.RuleIntoClause)
	p.expect(n, token.INTO)
	if !p.accept(n, token.TEMP) {
		p.accept(n, token.TEMPORARY)
	}
	p.accept(n, token.TABLE)
	add(n, p.parseQualifiedName())
	return p.close(n)
}

func (p *Parser) parseValuesClause() *cst.Node {
	n := p.open(cst.RuleValuesClause)
	p.expect(n, token.VALUES)
	add(n, p.parseValuesRow())
	for !p.failed() && p.accept(n, token.COMMA) {
		add(n, p.parseValuesRow())
	}
	return p.close(n)
}

func (p *Parser) parseValuesRow() *cst.Node {
	n := p.open(cst.RuleValuesRow)
	p.expect(n, token.LPAREN)
	add(n, p.parseExprList())
	p.expect(n, token.RPAREN)
	return p.close(n)
}

func (p *Parser) parseWhereClause() *cst.Node {
	n := p.open(cst.RuleWhereClause)
	p.expect(n, token.WHERE)
	add(n, p.parseAExpr())
	return p.close(n)
}

// parseGroupClause parses GROUP BY [ALL | DISTINCT] items. ROLLUP and CUBE
// parse as function calls; GROUPING SETS is kept as two words followed by
// a parenthesized list.
func (p *Parser) parseGroupClause() *cst.Node {
	n := p.open(cst.RuleGroupClause)
	p.expect(n, token.GROUP)
	p.expect(n, token.BY)
	if !p.accept(n, token.ALL) {
		p.accept(n, token.DISTINCT)
	}
	p.parseGroupItem(n)
	for !p.failed() && p.accept(n, token.COMMA) {
		p.parseGroupItem(n)
	}
	return p.close(n)
}

func (p *Parser) parseGroupItem(n *cst.Node) {
	if isWord(p.cur(), "grouping") && isWord(p.peekAt(1), "sets") {
		p.consume(n)
		p.consume(n)
	}
	if p.check(token.LPAREN) && p.checkPeek(token.RPAREN) {
		p.consume(n)
		p.consume(n)
		return
	}
	add(n, p.parseAExpr())
}

func (p *Parser) parseWindowClause() *cst.Node {
	n := p.open(cst.RuleWindowClause)
	p.expect(n, token.WINDOW)
	add(n, p.parseWindowDefinition())
	for !p.failed() && p.accept(n, token.COMMA) {
		add(n, p.parseWindowDefinition())
	}
	return p.close(n)
}

func (p *Parser) parseWindowDefinition() *cst.Node {
	n := p.open(cst.RuleWindowDefinition)
	p.parseColID(n)
	p.expect(n, token.AS)
	add(n, p.parseWindowSpec())
	return p.close(n)
}

func (p *Parser) parseSortClause() *cst.Node {
	n := p.open(cst.RuleSortClause)
	p.expect(n, token.ORDER)
	p.expect(n, token.BY)
	add(n, p.parseSortBy())
	for !p.failed() && p.accept(n, token.COMMA) {
		add(n, p.parseSortBy())
	}
	return p.close(n)
}

// parseSortBy parses a_expr [ASC | DESC] [NULLS (FIRST | LAST)].
func (p *Parser) parseSortBy() *cst.Node {
	n := p.open(cst.RuleSortBy)
	add(n, p.parseAExpr())
	if !p.accept(n, token.ASC) {
		p.accept(n, token.DESC)
	}
	if p.accept(n, token.NULLS) {
		if !p.accept(n, token.FIRST) {
			p.expect(n, token.LAST)
		}
	}
	return p.close(n)
}

func (p *Parser) parseLimitClause() *cst.Node {
	n := p.open(cst.RuleLimitClause)
	p.expect(n, token.LIMIT)
	if !p.accept(n, token.ALL) {
		add(n, p.parseAExpr())
	}
	return p.close(n)
}

func (p *Parser) parseOffsetClause() *cst.Node {
	n := p.open(cst.RuleOffsetClause)
	p.expect(n, token.OFFSET)
	add(n, p.parseAExpr())
	if isWord(p.cur(), "row") || p.check(token.ROWS) {
		p.consume(n)
	}
	return p.close(n)
}
