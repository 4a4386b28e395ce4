package cst

import "fmt"

// Rule identifies the grammar rule (or rule alternative) that produced a
// node.
type Rule int

// Grammar rules.
const (
	Terminal Rule = iota

	// Script and statements
	RuleRoot
	RuleStmt
	RuleSelectStmt
	RuleInsertStmt
	RuleDeleteStmt
	RuleCreateTableAsStmt
	RuleCreateViewStmt
	RuleCreateTableStmt
	RuleAlterRenameStmt
	RuleDropStmt
	RuleOtherStmt

	// Statement parts
	RuleInsertTarget
	RuleColumnList
	RuleDeleteTarget
	RuleDeleteUsing
	RuleTableAttributes
	RuleColumnDefinitions
	RuleViewOptions
	RuleQualifiedName
	RuleNameList

	// Select structure
	RuleSelectWithParens
	RuleWithClause
	RuleCommonTableExpr
	RuleSelectClause
	RuleSimpleSelectIntersect
	RuleSimpleSelect
	RuleValuesClause
	RuleValuesRow
	RuleSetOperator
	RuleTopClause
	RuleTargetList
	RuleTargetStar
	RuleTargetLabel
	RuleIntoClause
	RuleFromClause
	RuleTableRef
	RuleRelationExpr
	RuleNestedTableRef
	RuleAliasClause
	RuleCrossJoin
	RuleQualifiedJoin
	RuleNaturalJoin
	RuleJoinType
	RuleJoinOn
	RuleJoinUsing
	RuleWhereClause
	RuleGroupClause
	RuleHavingClause
	RuleQualifyClause
	RuleWindowClause
	RuleWindowDefinition
	RuleSortClause
	RuleSortBy
	RuleLimitClause
	RuleOffsetClause

	// Expression precedence ladder, lowest to highest
	RuleAExprOr
	RuleAExprAnd
	RuleAExprBetween
	RuleAExprIn
	RuleAExprUnaryNot
	RuleAExprIsNull
	RuleAExprIsNot
	RuleAExprCompare
	RuleAExprLike
	RuleAExprQualOp
	RuleAExprUnaryQualOp
	RuleAExprAdd
	RuleAExprMul
	RuleAExprCaret
	RuleAExprUnarySign
	RuleAExprAtTimeZone
	RuleAExprCollate
	RuleAExprTypecast

	// Expression parts
	RuleInList
	RuleSubqueryQuantifier
	RuleQualOp
	RuleTypename
	RuleAnyName
	RuleExprList
	RuleIndirection

	// Primary expressions
	RuleColumnRef
	RuleConstant
	RuleTypedConstant
	RuleParam
	RuleParenExpr
	RuleImplicitRow
	RuleSelectExpr
	RuleExistsExpr
	RuleCaseExpr
	RuleWhenClause
	RuleElseClause
	RuleFuncCall
	RuleFuncName
	RuleFuncArgs
	RuleWithinGroup
	RuleFilterClause
	RuleNullTreatment
	RuleOverClause
	RuleWindowSpec
	RulePartitionClause
	RuleFrameClause
	RuleCastFunc
	RuleCommonFuncCall
)

var ruleNames = map[Rule]string{
	Terminal: "Terminal",

	RuleRoot:              "Root",
	RuleStmt:              "Stmt",
	RuleSelectStmt:        "SelectStmt",
	RuleInsertStmt:        "InsertStmt",
	RuleDeleteStmt:        "DeleteStmt",
	RuleCreateTableAsStmt: "CreateTableAsStmt",
	RuleCreateViewStmt:    "CreateViewStmt",
	RuleCreateTableStmt:   "CreateTableStmt",
	RuleAlterRenameStmt:   "AlterRenameStmt",
	RuleDropStmt:          "DropStmt",
	RuleOtherStmt:         "OtherStmt",

	RuleInsertTarget:      "InsertTarget",
	RuleColumnList:        "ColumnList",
	RuleDeleteTarget:      "DeleteTarget",
	RuleDeleteUsing:       "DeleteUsing",
	RuleTableAttributes:   "TableAttributes",
	RuleColumnDefinitions: "ColumnDefinitions",
	RuleViewOptions:       "ViewOptions",
	RuleQualifiedName:     "QualifiedName",
	RuleNameList:          "NameList",

	RuleSelectWithParens:      "SelectWithParens",
	RuleWithClause:            "WithClause",
	RuleCommonTableExpr:       "CommonTableExpr",
	RuleSelectClause:          "SelectClause",
	RuleSimpleSelectIntersect: "SimpleSelectIntersect",
	RuleSimpleSelect:          "SimpleSelect",
	RuleValuesClause:          "ValuesClause",
	RuleValuesRow:             "ValuesRow",
	RuleSetOperator:           "SetOperator",
	RuleTopClause:             "TopClause",
	RuleTargetList:            "TargetList",
	RuleTargetStar:            "TargetStar",
	RuleTargetLabel:           "TargetLabel",
	RuleIntoClause:            "IntoClause",
	RuleFromClause:            "FromClause",
	RuleTableRef:              "TableRef",
	RuleRelationExpr:          "RelationExpr",
	RuleNestedTableRef:        "NestedTableRef",
	RuleAliasClause:           "AliasClause",
	RuleCrossJoin:             "CrossJoin",
	RuleQualifiedJoin:         "QualifiedJoin",
	RuleNaturalJoin:           "NaturalJoin",
	RuleJoinType:              "JoinType",
	RuleJoinOn:                "JoinOn",
	RuleJoinUsing:             "JoinUsing",
	RuleWhereClause:           "WhereClause",
	RuleGroupClause:           "GroupClause",
	RuleHavingClause:          "HavingClause",
	RuleQualifyClause:         "QualifyClause",
	RuleWindowClause:          "WindowClause",
	RuleWindowDefinition:      "WindowDefinition",
	RuleSortClause:            "SortClause",
	RuleSortBy:                "SortBy",
	RuleLimitClause:           "LimitClause",
	RuleOffsetClause:          "OffsetClause",

	RuleAExprOr:          "AExprOr",
	RuleAExprAnd:         "AExprAnd",
	RuleAExprBetween:     "AExprBetween",
	RuleAExprIn:          "AExprIn",
	RuleAExprUnaryNot:    "AExprUnaryNot",
	RuleAExprIsNull:      "AExprIsNull",
	RuleAExprIsNot:       "AExprIsNot",
	RuleAExprCompare:     "AExprCompare",
	RuleAExprLike:        "AExprLike",
	RuleAExprQualOp:      "AExprQualOp",
	RuleAExprUnaryQualOp: "AExprUnaryQualOp",
	RuleAExprAdd:         "AExprAdd",
	RuleAExprMul:         "AExprMul",
	RuleAExprCaret:       "AExprCaret",
	RuleAExprUnarySign:   "AExprUnarySign",
	RuleAExprAtTimeZone:  "AExprAtTimeZone",
	RuleAExprCollate:     "AExprCollate",
	RuleAExprTypecast:    "AExprTypecast",

	RuleInList:             "InList",
	RuleSubqueryQuantifier: "SubqueryQuantifier",
	RuleQualOp:             "QualOp",
	RuleTypename:           "Typename",
	RuleAnyName:            "AnyName",
	RuleExprList:           "ExprList",
	RuleIndirection:        "Indirection",

	RuleColumnRef:       "ColumnRef",
	RuleConstant:        "Constant",
	RuleTypedConstant:   "TypedConstant",
	RuleParam:           "Param",
	RuleParenExpr:       "ParenExpr",
	RuleImplicitRow:     "ImplicitRow",
	RuleSelectExpr:      "SelectExpr",
	RuleExistsExpr:      "ExistsExpr",
	RuleCaseExpr:        "CaseExpr",
	RuleWhenClause:      "WhenClause",
	RuleElseClause:      "ElseClause",
	RuleFuncCall:        "FuncCall",
	RuleFuncName:        "FuncName",
	RuleFuncArgs:        "FuncArgs",
	RuleWithinGroup:     "WithinGroup",
	RuleFilterClause:    "FilterClause",
	RuleNullTreatment:   "NullTreatment",
	RuleOverClause:      "OverClause",
	RuleWindowSpec:      "WindowSpec",
	RulePartitionClause: "PartitionClause",
	RuleFrameClause:     "FrameClause",
	RuleCastFunc:        "CastFunc",
	RuleCommonFuncCall:  "CommonFuncCall",
}

// String returns the rule name.
func (r Rule) String() string {
	if name, ok := ruleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Rule(%d)", r)
}
