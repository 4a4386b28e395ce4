package parser

import (
	"github.com/leapstack-labs/redshift-lineage/pkg/cst"
	"github.com/leapstack-labs/redshift-lineage/pkg/token"
)

// FROM clause parsing: relations, subqueries, parenthesized joins, JOINs.
//
// Grammar:
//
//	from_clause → FROM table_ref ("," table_ref)*
//	table_ref   → table_primary (join)*
//	table_primary → qualified_name [alias]
//	            | select_with_parens [alias]
//	            | "(" table_ref ")" [alias]
//	alias       → [AS] col_id ["(" name_list ")"]
//	join        → CROSS JOIN table_primary
//	            | NATURAL [join_type] JOIN table_primary
//	            | [join_type] JOIN table_primary (ON a_expr | USING "(" name_list ")")
//	join_type   → INNER | (LEFT | RIGHT | FULL) [OUTER]

func (p *Parser) parseFromClause() *cst.Node {
	n := p.open(cst.RuleFromClause)
	p.expect(n, token.FROM)
	add(n, p.parseTableRef())
	for !p.failed() && p.accept(n, token.COMMA) {
		add(n, p.parseTableRef())
	}
	return p.close(n)
}

// parseTableRef parses a table primary followed by any number of joins.
func (p *Parser) parseTableRef() *cst.Node {
	n := p.parseTablePrimary()
	if n == nil {
		return nil
	}
	for !p.failed() {
		join := p.parseJoin()
		if join == nil {
			break
		}
		add(n, join)
	}
	return p.close(n)
}

// parseTablePrimary parses a single table reference with its alias.
// The returned TableRef node is left open for trailing joins.
func (p *Parser) parseTablePrimary() *cst.Node {
	n := p.open(cst.RuleTableRef)
	if p.check(token.LPAREN) {
		if p.selectAhead() {
			if swp := p.speculate(p.parseSelectWithParens); swp != nil {
				add(n, swp)
				add(n, p.parseOptAlias())
				return p.close(n)
			}
		}
		nested := p.open(cst.RuleNestedTableRef)
		p.consume(nested)
		add(nested, p.parseTableRef())
		p.expect(nested, token.RPAREN)
		add(n, p.close(nested))
		add(n, p.parseOptAlias())
		return p.close(n)
	}

	rel := p.open(cst.RuleRelationExpr)
	add(rel, p.parseQualifiedName())
	add(n, p.close(rel))
	add(n, p.parseOptAlias())
	return p.close(n)
}

// parseOptAlias parses an optional [AS] alias; it returns nil when absent.
func (p *Parser) parseOptAlias() *cst.Node {
	if !p.check(token.AS) && !isColID(p.cur()) {
		return nil
	}
	n := p.open(cst.RuleAliasClause)
	p.accept(n, token.AS)
	p.parseColID(n)
	if p.check(token.LPAREN) {
		cols := p.open(cst.RuleColumnList)
		p.consume(cols)
		add(cols, p.parseNameList())
		p.expect(cols, token.RPAREN)
		add(n, p.close(cols))
	}
	return p.close(n)
}

// parseJoin parses one join, or returns nil if none starts here.
func (p *Parser) parseJoin() *cst.Node {
	switch {
	case p.check(token.CROSS):
		n := p.open(cst.RuleCrossJoin)
		p.consume(n)
		p.expect(n, token.JOIN)
		add(n, p.parseTablePrimary())
		return p.close(n)

	case p.check(token.NATURAL):
		n := p.open(cst.RuleNaturalJoin)
		p.consume(n)
		add(n, p.parseJoinType())
		p.expect(n, token.JOIN)
		add(n, p.parseTablePrimary())
		return p.close(n)

	case p.checkAny(token.JOIN, token.INNER, token.LEFT, token.RIGHT, token.FULL):
		n := p.open(cst.RuleQualifiedJoin)
		add(n, p.parseJoinType())
		p.expect(n, token.JOIN)
		add(n, p.parseTablePrimary())
		switch {
		case p.check(token.ON):
			on := p.open(cst.RuleJoinOn)
			p.consume(on)
			add(on, p.parseAExpr())
			add(n, p.close(on))
		case p.check(token.USING):
			using := p.open(cst.RuleJoinUsing)
			p.consume(using)
			p.expect(using, token.LPAREN)
			add(using, p.parseNameList())
			p.expect(using, token.RPAREN)
			add(n, p.close(using))
		default:
			p.addError(sprintfUnexpected(p.cur(), "ON or USING"))
		}
		return p.close(n)
	}
	return nil
}

// parseJoinType parses an optional join type; it returns nil for a bare JOIN.
func (p *Parser) parseJoinType() *cst.Node {
	switch {
	case p.check(token.INNER):
		n := p.open(cst.RuleJoinType)
		p.consume(n)
		return p.close(n)
	case p.checkAny(token.LEFT, token.RIGHT, token.FULL):
		n := p.open(cst.RuleJoinType)
		p.consume(n)
		p.accept(n, token.OUTER)
		return p.close(n)
	}
	return nil
}
