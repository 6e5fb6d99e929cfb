package sql

import (
	"strings"

	"github.com/sqlsandbox/sandboxdb/pkg/catalog"
)

// AST node types for SQL statements

// Statement is the interface for all SQL statements.
type Statement interface {
	statementNode()
}

// Expression is the interface for all SQL expressions.
type Expression interface {
	exprNode()
}

// ColumnDef represents a column definition in CREATE TABLE.
type ColumnDef struct {
	Name       string
	Type       catalog.DataType
	NotNull    bool
	PrimaryKey bool
	Unique     bool
	Default    Expression     // nil when absent
	References *ForeignKeyDef // inline REFERENCES clause
}

// ForeignKeyDef is a single-column foreign key.
type ForeignKeyDef struct {
	Column    string
	RefTable  string
	RefColumn string // empty means the referenced table's primary key
}

// CreateTableStmt represents CREATE TABLE statement.
type CreateTableStmt struct {
	TableName   string
	IfNotExists bool
	Columns     []ColumnDef
	PrimaryKey  []string // table-level PRIMARY KEY (...)
	ForeignKeys []ForeignKeyDef
	Uniques     [][]string
}

func (s *CreateTableStmt) statementNode() {}

// DropTableStmt represents DROP TABLE statement.
type DropTableStmt struct {
	TableName string
	IfExists  bool
}

func (s *DropTableStmt) statementNode() {}

// InsertStmt represents INSERT INTO statement.
type InsertStmt struct {
	TableName string
	Columns   []string // optional column list
	Rows      [][]Expression
}

func (s *InsertStmt) statementNode() {}

// TableRef names a table in FROM or JOIN, with an optional alias.
type TableRef struct {
	Name  string
	Alias string
}

// RefName is the name columns are qualified with: the alias if present.
func (t TableRef) RefName() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}

// JoinKind distinguishes INNER from LEFT joins.
type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeft
)

func (k JoinKind) String() string {
	if k == JoinLeft {
		return "LEFT"
	}
	return "INNER"
}

// JoinClause represents [INNER|LEFT] JOIN table ON condition.
type JoinClause struct {
	Kind  JoinKind
	Table TableRef
	On    Expression
}

// SelectColumn represents a column in SELECT.
type SelectColumn struct {
	Star      bool   // true if * or table.*
	StarTable string // qualifier of table.*
	Expr      Expression
	Alias     string
}

// OrderByClause represents one ORDER BY key.
type OrderByClause struct {
	Expr Expression
	Desc bool
}

// SelectStmt represents SELECT statement.
type SelectStmt struct {
	Distinct bool
	Columns  []SelectColumn
	From     TableRef
	Joins    []JoinClause
	Where    Expression
	GroupBy  []Expression
	OrderBy  []OrderByClause
	Limit    *int64
	Offset   *int64
}

func (s *SelectStmt) statementNode() {}

// UpdateStmt represents UPDATE statement.
type UpdateStmt struct {
	TableName   string
	Assignments []Assignment
	Where       Expression
}

func (s *UpdateStmt) statementNode() {}

// Assignment represents SET column = value.
type Assignment struct {
	Column string
	Value  Expression
}

// DeleteStmt represents DELETE statement.
type DeleteStmt struct {
	TableName string
	Where     Expression
}

func (s *DeleteStmt) statementNode() {}

// ExplainStmt represents EXPLAIN <select>.
type ExplainStmt struct {
	Statement Statement
}

func (s *ExplainStmt) statementNode() {}

// Expressions

// LiteralExpr represents a literal value (int, real, string, bool, null).
type LiteralExpr struct {
	Value catalog.Value
}

func (e *LiteralExpr) exprNode() {}

// ColumnRef represents a column reference in an expression.
type ColumnRef struct {
	Table string // optional qualifier
	Name  string
}

func (e *ColumnRef) exprNode() {}

// BinaryExpr represents a binary operation (e.g., a = b, a AND b).
type BinaryExpr struct {
	Left  Expression
	Op    TokenType
	Right Expression
}

func (e *BinaryExpr) exprNode() {}

// UnaryExpr represents a unary operation (NOT x, -x).
type UnaryExpr struct {
	Op   TokenType
	Expr Expression
}

func (e *UnaryExpr) exprNode() {}

// IsNullExpr represents x IS [NOT] NULL.
type IsNullExpr struct {
	Expr Expression
	Not  bool
}

func (e *IsNullExpr) exprNode() {}

// InExpr represents x [NOT] IN (a, b, ...).
type InExpr struct {
	Expr Expression
	List []Expression
	Not  bool
}

func (e *InExpr) exprNode() {}

// LikeExpr represents x [NOT] LIKE pattern.
type LikeExpr struct {
	Expr    Expression
	Pattern Expression
	Not     bool
}

func (e *LikeExpr) exprNode() {}

// BetweenExpr represents x [NOT] BETWEEN low AND high.
type BetweenExpr struct {
	Expr Expression
	Low  Expression
	High Expression
	Not  bool
}

func (e *BetweenExpr) exprNode() {}

// AggregateFunc represents COUNT/SUM/AVG/MIN/MAX.
type AggregateFunc struct {
	Func     TokenType
	Star     bool // COUNT(*)
	Distinct bool
	Arg      Expression
}

func (e *AggregateFunc) exprNode() {}

// exprToString renders an expression back to SQL; used for result headers
// and plan descriptions.
func exprToString(expr Expression) string {
	switch e := expr.(type) {
	case *LiteralExpr:
		return e.Value.SQL()
	case *ColumnRef:
		if e.Table != "" {
			return e.Table + "." + e.Name
		}
		return e.Name
	case *BinaryExpr:
		return operandString(e.Left, e.Op, false) + " " + tokenToOperator(e.Op) + " " + operandString(e.Right, e.Op, true)
	case *UnaryExpr:
		if e.Op == TOKEN_NOT {
			return "NOT " + exprToString(e.Expr)
		}
		return "-" + exprToString(e.Expr)
	case *IsNullExpr:
		if e.Not {
			return exprToString(e.Expr) + " IS NOT NULL"
		}
		return exprToString(e.Expr) + " IS NULL"
	case *InExpr:
		items := make([]string, len(e.List))
		for i, item := range e.List {
			items[i] = exprToString(item)
		}
		op := " IN ("
		if e.Not {
			op = " NOT IN ("
		}
		return exprToString(e.Expr) + op + strings.Join(items, ", ") + ")"
	case *LikeExpr:
		op := " LIKE "
		if e.Not {
			op = " NOT LIKE "
		}
		return exprToString(e.Expr) + op + exprToString(e.Pattern)
	case *BetweenExpr:
		op := " BETWEEN "
		if e.Not {
			op = " NOT BETWEEN "
		}
		return exprToString(e.Expr) + op + exprToString(e.Low) + " AND " + exprToString(e.High)
	case *AggregateFunc:
		if e.Star {
			return e.Func.String() + "(*)"
		}
		arg := exprToString(e.Arg)
		if e.Distinct {
			arg = "DISTINCT " + arg
		}
		return e.Func.String() + "(" + arg + ")"
	default:
		return "?"
	}
}

// operandString parenthesizes a nested binary operand that binds looser than
// its parent (or equally tight on the right, since operators are left-associative).
func operandString(child Expression, parent TokenType, right bool) string {
	s := exprToString(child)
	if b, ok := child.(*BinaryExpr); ok {
		cp, pp := precedence(b.Op), precedence(parent)
		if cp < pp || (right && cp == pp) {
			return "(" + s + ")"
		}
	}
	return s
}

func precedence(op TokenType) int {
	switch op {
	case TOKEN_OR:
		return 1
	case TOKEN_AND:
		return 2
	case TOKEN_EQ, TOKEN_NE, TOKEN_LT, TOKEN_LE, TOKEN_GT, TOKEN_GE:
		return 4
	case TOKEN_PLUS, TOKEN_MINUS:
		return 5
	case TOKEN_STAR, TOKEN_SLASH, TOKEN_PERCENT:
		return 6
	default:
		return 7
	}
}

func tokenToOperator(op TokenType) string {
	switch op {
	case TOKEN_EQ:
		return "="
	case TOKEN_NE:
		return "<>"
	case TOKEN_LT:
		return "<"
	case TOKEN_LE:
		return "<="
	case TOKEN_GT:
		return ">"
	case TOKEN_GE:
		return ">="
	case TOKEN_PLUS:
		return "+"
	case TOKEN_MINUS:
		return "-"
	case TOKEN_STAR:
		return "*"
	case TOKEN_SLASH:
		return "/"
	case TOKEN_PERCENT:
		return "%"
	case TOKEN_AND:
		return "AND"
	case TOKEN_OR:
		return "OR"
	default:
		return op.String()
	}
}
