package parser

import (
	"fmt"

	"github.com/leapstack-labs/redshift-lineage/pkg/cst"
	"github.com/leapstack-labs/redshift-lineage/pkg/token"
)

// Statement parsing.
//
// Grammar:
//
//	insert_stmt  → [with_clause] INSERT INTO qualified_name [AS col_id]
//	               ["(" name_list ")"] (select_stmt | DEFAULT VALUES)
//	delete_stmt  → [with_clause] DELETE [FROM] qualified_name [[AS] col_id]
//	               [USING table_ref ("," table_ref)*] [WHERE a_expr]
//	create_ctas  → CREATE [LOCAL] [TEMP | TEMPORARY] TABLE [IF NOT EXISTS]
//	               qualified_name ["(" name_list ")"] [table_attributes] AS select_stmt
//	create_table → CREATE [LOCAL] [TEMP | TEMPORARY] TABLE [IF NOT EXISTS]
//	               qualified_name "(" column_definitions ")" [table_attributes]
//	create_view  → CREATE [OR REPLACE] [MATERIALIZED] VIEW qualified_name
//	               ["(" name_list ")"] [view_options] AS select_stmt
//	               [WITH NO SCHEMA BINDING]
//	alter_rename → ALTER TABLE qualified_name RENAME TO col_id
//	drop_stmt    → DROP (TABLE | VIEW | MATERIALIZED VIEW) [IF EXISTS]
//	               qualified_name ("," qualified_name)* [CASCADE | RESTRICT]
//	other_stmt   → any tokens up to the next top-level ";"

// parseStatement parses one statement wrapped in a Stmt node.
func (p *Parser) parseStatement() *cst.Node {
	stmt := p.open(cst.RuleStmt)
	add(stmt, p.parseStatementBody())
	return p.close(stmt)
}

func (p *Parser) parseStatementBody() *cst.Node {
	switch p.cur().Type {
	case token.WITH:
		with := p.parseWithClause()
		switch p.cur().Type {
		case token.INSERT:
			return p.parseInsertStmt(with)
		case token.DELETE:
			return p.parseDeleteStmt(with)
		}
		return p.parseSelectStmt(with)
	case token.SELECT, token.VALUES, token.LPAREN:
		return p.parseSelectStmt(nil)
	case token.INSERT:
		return p.parseInsertStmt(nil)
	case token.DELETE:
		return p.parseDeleteStmt(nil)
	case token.CREATE:
		return p.parseCreateStmt()
	case token.ALTER:
		if n := p.speculate(p.parseAlterRenameStmt); n != nil {
			return n
		}
	case token.DROP:
		if n := p.speculate(p.parseDropStmt); n != nil {
			return n
		}
	}
	return p.parseOtherStmt()
}

// parseOtherStmt swallows a statement the grammar does not model.
func (p *Parser) parseOtherStmt() *cst.Node {
	n := p.open(cst.RuleOtherStmt)
	p.skipBalanced(n)
	return p.close(n)
}

// parseInsertStmt parses INSERT INTO ... with an optional leading WITH clause.
func (p *Parser) parseInsertStmt(with *cst.Node) *cst.Node {
	var n *cst.Node
	if with != nil {
		n = p.openAt(cst.RuleInsertStmt, with)
	} else {
		n = p.open(cst.RuleInsertStmt)
	}
	p.expect(n, token.INSERT)
	p.expect(n, token.INTO)

	target := p.open(cst.RuleInsertTarget)
	add(target, p.parseQualifiedName())
	if p.accept(target, token.AS) {
		p.parseColID(target)
	}
	add(n, p.close(target))

	if p.check(token.LPAREN) && !p.selectAhead() {
		cols := p.open(cst.RuleColumnList)
		p.expect(cols, token.LPAREN)
		add(cols, p.parseNameList())
		p.expect(cols, token.RPAREN)
		add(n, p.close(cols))
	}

	if p.check(token.DEFAULT) && p.checkPeek(token.VALUES) {
		p.consume(n)
		p.consume(n)
		return p.close(n)
	}
	add(n, p.parseSelectStmt(nil))
	return p.close(n)
}

// parseDeleteStmt parses DELETE with an optional leading WITH clause.
func (p *Parser) parseDeleteStmt(with *cst.Node) *cst.Node {
	var n *cst.Node
	if with != nil {
		n = p.openAt(cst.RuleDeleteStmt, with)
	} else {
		n = p.open(cst.RuleDeleteStmt)
	}
	p.expect(n, token.DELETE)
	p.accept(n, token.FROM)

	target := p.open(cst.RuleDeleteTarget)
	add(target, p.parseQualifiedName())
	add(target, p.parseOptAlias())
	add(n, p.close(target))

	if p.check(token.USING) {
		using := p.open(cst.RuleDeleteUsing)
		p.consume(using)
		add(using, p.parseTableRef())
		for p.accept(using, token.COMMA) {
			add(using, p.parseTableRef())
		}
		add(n, p.close(using))
	}
	if p.check(token.WHERE) {
		add(n, p.parseWhereClause())
	}
	return p.close(n)
}

// parseCreateStmt dispatches CREATE TABLE/VIEW forms; other CREATE
// statements are returned as OtherStmt.
func (p *Parser) parseCreateStmt() *cst.Node {
	k := 1
	if p.peekAt(k).Type == token.OR && p.peekAt(k+1).Type == token.REPLACE {
		k += 2
	}
	if p.peekAt(k).Type == token.MATERIALIZED {
		k++
	}
	if p.peekAt(k).Type == token.VIEW {
		return p.parseCreateViewStmt()
	}

	k = 1
	if p.peekAt(k).Type == token.LOCAL {
		k++
	}
	if p.peekAt(k).Type == token.TEMP || p.peekAt(k).Type == token.TEMPORARY {
		k++
	}
	if p.peekAt(k).Type != token.TABLE {
		return p.parseOtherStmt()
	}
	if p.findTopLevel(token.AS) >= 0 {
		return p.parseCreateTableAsStmt()
	}
	if p.findTopLevel(token.LPAREN) >= 0 {
		return p.parseCreateTableStmt()
	}
	return p.parseOtherStmt()
}

// parseCreateTableHead parses CREATE [LOCAL] [TEMP] TABLE [IF NOT EXISTS] name.
func (p *Parser) parseCreateTableHead(n *cst.Node) {
	p.expect(n, token.CREATE)
	p.accept(n, token.LOCAL)
	if !p.accept(n, token.TEMP) {
		p.accept(n, token.TEMPORARY)
	}
	p.expect(n, token.TABLE)
	if p.check(token.IF) {
		p.consume(n)
		p.expect(n, token.NOT)
		p.expect(n, token.EXISTS)
	}
	add(n, p.parseQualifiedName())
}

func (p *Parser) parseCreateTableAsStmt() *cst.Node {
	n := p.open(cst.RuleCreateTableAsStmt)
	p.parseCreateTableHead(n)
	if p.check(token.LPAREN) {
		cols := p.open(cst.RuleColumnList)
		p.consume(cols)
		add(cols, p.parseNameList())
		p.expect(cols, token.RPAREN)
		add(n, p.close(cols))
	}
	if !p.check(token.AS) {
		attrs := p.open(cst.RuleTableAttributes)
		p.skipBalanced(attrs, token.AS)
		add(n, p.close(attrs))
	}
	p.expect(n, token.AS)
	add(n, p.parseSelectStmt(nil))
	return p.close(n)
}

func (p *Parser) parseCreateTableStmt() *cst.Node {
	n := p.open(cst.RuleCreateTableStmt)
	p.parseCreateTableHead(n)

	defs := p.open(cst.RuleColumnDefinitions)
	p.expect(defs, token.LPAREN)
	p.skipBalanced(defs)
	p.expect(defs, token.RPAREN)
	add(n, p.close(defs))

	if !p.check(token.SEMICOLON) && !p.check(token.EOF) {
		attrs := p.open(cst.RuleTableAttributes)
		p.skipBalanced(attrs)
		add(n, p.close(attrs))
	}
	return p.close(n)
}

func (p *Parser) parseCreateViewStmt() *cst.Node {
	n := p.open(cst.RuleCreateViewStmt)
	p.expect(n, token.CREATE)
	if p.accept(n, token.OR) {
		p.expect(n, token.REPLACE)
	}
	p.accept(n, token.MATERIALIZED)
	p.expect(n, token.VIEW)
	add(n, p.parseQualifiedName())
	if p.check(token.LPAREN) {
		cols := p.open(cst.RuleColumnList)
		p.consume(cols)
		add(cols, p.parseNameList())
		p.expect(cols, token.RPAREN)
		add(n, p.close(cols))
	}
	if !p.check(token.AS) {
		opts := p.open(cst.RuleViewOptions)
		p.skipBalanced(opts, token.AS)
		add(n, p.close(opts))
	}
	p.expect(n, token.AS)
	add(n, p.parseSelectStmt(nil))
	if p.check(token.WITH) && p.checkPeek(token.NO) {
		opts := p.open(cst.RuleViewOptions)
		p.skipBalanced(opts)
		add(n, p.close(opts))
	}
	return p.close(n)
}

func (p *Parser) parseAlterRenameStmt() *cst.Node {
	n := p.open(cst.RuleAlterRenameStmt)
	p.expect(n, token.ALTER)
	p.expect(n, token.TABLE)
	add(n, p.parseQualifiedName())
	p.expect(n, token.RENAME)
	p.expect(n, token.TO)
	p.parseColID(n)
	if !p.check(token.SEMICOLON) && !p.check(token.EOF) {
		p.addError(fmt.Sprintf(ErrUnexpectedInput, p.cur().Raw))
	}
	return p.close(n)
}

func (p *Parser) parseDropStmt() *cst.Node {
	n := p.open(cst.RuleDropStmt)
	p.expect(n, token.DROP)
	switch {
	case p.accept(n, token.TABLE), p.accept(n, token.VIEW):
	case p.accept(n, token.MATERIALIZED):
		p.expect(n, token.VIEW)
	default:
		p.addError(fmt.Sprintf(ErrUnexpectedInput, p.cur().Raw))
		return n
	}
	if p.accept(n, token.IF) {
		p.expect(n, token.EXISTS)
	}
	add(n, p.parseQualifiedName())
	for p.accept(n, token.COMMA) {
		add(n, p.parseQualifiedName())
	}
	if !p.accept(n, token.CASCADE) {
		p.accept(n, token.RESTRICT)
	}
	return p.close(n)
}

// ---------- Names ----------

// parseQualifiedName parses col_id ("." col_label)*.
func (p *Parser) parseQualifiedName() *cst.Node {
	n := p.open(cst.RuleQualifiedName)
	p.parseColID(n)
	for p.check(token.DOT) && isColLabel(p.peekAt(1)) {
		p.consume(n)
		p.consume(n)
	}
	return p.close(n)
}

// parseNameList parses col_id ("," col_id)*.
func (p *Parser) parseNameList() *cst.Node {
	n := p.open(cst.RuleNameList)
	p.parseColID(n)
	for p.accept(n, token.COMMA) {
		p.parseColID(n)
	}
	return p.close(n)
}

// parseColID consumes one identifier into n.
func (p *Parser) parseColID(n *cst.Node) {
	if isColID(p.cur()) {
		p.consume(n)
		return
	}
	p.addError(fmt.Sprintf(ErrExpectedIdentifier, describe(p.cur())))
}
