package sql

import (
	"fmt"
	"strings"

	"github.com/sqlsandbox/sandboxdb/pkg/catalog"
)

// Expr is a bound expression. Column references are resolved to positions
// in the row flowing through the operator that evaluates the expression.
type Expr interface {
	Type() catalog.DataType
	String() string
}

// ColExpr reads the value at Index of the current row.
type ColExpr struct {
	Index int
	Name  string
	Typ   catalog.DataType
}

func (e *ColExpr) Type() catalog.DataType { return e.Typ }
func (e *ColExpr) String() string         { return e.Name }

// ConstExpr is a literal.
type ConstExpr struct {
	Value catalog.Value
}

func (e *ConstExpr) Type() catalog.DataType { return e.Value.Type }
func (e *ConstExpr) String() string         { return e.Value.SQL() }

// BinaryOp is an arithmetic, comparison or logical operator.
type BinaryOp struct {
	Op          TokenType
	Left, Right Expr
	Typ         catalog.DataType
}

func (e *BinaryOp) Type() catalog.DataType { return e.Typ }
func (e *BinaryOp) String() string {
	return "(" + e.Left.String() + " " + tokenToOperator(e.Op) + " " + e.Right.String() + ")"
}

// UnaryOp is NOT or unary minus.
type UnaryOp struct {
	Op   TokenType
	Expr Expr
}

func (e *UnaryOp) Type() catalog.DataType {
	if e.Op == TOKEN_NOT {
		return catalog.TypeBoolean
	}
	return e.Expr.Type()
}

func (e *UnaryOp) String() string {
	if e.Op == TOKEN_NOT {
		return "NOT " + e.Expr.String()
	}
	return "-" + e.Expr.String()
}

// IsNullOp is x IS [NOT] NULL.
type IsNullOp struct {
	Expr Expr
	Not  bool
}

func (e *IsNullOp) Type() catalog.DataType { return catalog.TypeBoolean }
func (e *IsNullOp) String() string {
	if e.Not {
		return e.Expr.String() + " IS NOT NULL"
	}
	return e.Expr.String() + " IS NULL"
}

// InOp is x [NOT] IN (list).
type InOp struct {
	Expr Expr
	List []Expr
	Not  bool
}

func (e *InOp) Type() catalog.DataType { return catalog.TypeBoolean }
func (e *InOp) String() string {
	items := make([]string, len(e.List))
	for i, item := range e.List {
		items[i] = item.String()
	}
	op := " IN ("
	if e.Not {
		op = " NOT IN ("
	}
	return e.Expr.String() + op + strings.Join(items, ", ") + ")"
}

// LikeOp is x [NOT] LIKE pattern.
type LikeOp struct {
	Expr, Pattern Expr
	Not           bool
}

func (e *LikeOp) Type() catalog.DataType { return catalog.TypeBoolean }
func (e *LikeOp) String() string {
	if e.Not {
		return e.Expr.String() + " NOT LIKE " + e.Pattern.String()
	}
	return e.Expr.String() + " LIKE " + e.Pattern.String()
}

// BetweenOp is x [NOT] BETWEEN low AND high.
type BetweenOp struct {
	Expr, Low, High Expr
	Not             bool
}

func (e *BetweenOp) Type() catalog.DataType { return catalog.TypeBoolean }
func (e *BetweenOp) String() string {
	op := " BETWEEN "
	if e.Not {
		op = " NOT BETWEEN "
	}
	return e.Expr.String() + op + e.Low.String() + " AND " + e.High.String()
}

// AggExpr is an aggregate call. It only appears inside AggregateOp; the
// expressions above the aggregate read its result through a ColExpr.
type AggExpr struct {
	Func     TokenType
	Star     bool
	Distinct bool
	Arg      Expr
	Typ      catalog.DataType
}

func (e *AggExpr) Type() catalog.DataType { return e.Typ }
func (e *AggExpr) String() string {
	if e.Star {
		return e.Func.String() + "(*)"
	}
	arg := e.Arg.String()
	if e.Distinct {
		arg = "DISTINCT " + arg
	}
	return e.Func.String() + "(" + arg + ")"
}

// Operator is one stage of a SELECT pipeline.
type Operator interface {
	Describe() string
}

// ScanOp reads a table in insertion order.
type ScanOp struct {
	Table   *catalog.Table
	RefName string
}

func (o *ScanOp) Describe() string {
	return "Scan " + tableLabel(o.Table.Name, o.RefName)
}

// JoinOp nested-loop joins the incoming rows with a table.
type JoinOp struct {
	Kind    JoinKind
	Table   *catalog.Table
	RefName string
	On      Expr
}

func (o *JoinOp) Describe() string {
	return fmt.Sprintf("Join %s %s ON %s", o.Kind, tableLabel(o.Table.Name, o.RefName), o.On)
}

// FilterOp keeps rows whose predicate is true.
type FilterOp struct {
	Predicate Expr
}

func (o *FilterOp) Describe() string {
	return "Filter " + o.Predicate.String()
}

// AggregateOp groups rows and emits one row per group:
// the group key values followed by the aggregate results.
type AggregateOp struct {
	Groups     []Expr
	Aggregates []*AggExpr
}

func (o *AggregateOp) Describe() string {
	return fmt.Sprintf("Aggregate group=[%s] aggregates=[%s]", joinExprs(o.Groups), joinExprs(aggsAsExprs(o.Aggregates)))
}

// SortKey is one ORDER BY key.
type SortKey struct {
	Expr Expr
	Desc bool
}

// SortOp stably sorts rows.
type SortOp struct {
	Keys []SortKey
}

func (o *SortOp) Describe() string {
	parts := make([]string, len(o.Keys))
	for i, k := range o.Keys {
		dir := "ASC"
		if k.Desc {
			dir = "DESC"
		}
		parts[i] = k.Expr.String() + " " + dir
	}
	return "Sort " + strings.Join(parts, ", ")
}

// ProjectOp computes the output columns.
type ProjectOp struct {
	Exprs []Expr
}

func (o *ProjectOp) Describe() string {
	return "Project " + joinExprs(o.Exprs)
}

// DistinctOp drops repeated output rows, keeping the first occurrence.
type DistinctOp struct{}

func (o *DistinctOp) Describe() string { return "Distinct" }

// LimitOp skips Offset rows and keeps at most Limit rows.
type LimitOp struct {
	Limit  *int64
	Offset int64
}

func (o *LimitOp) Describe() string {
	s := "Limit"
	if o.Limit != nil {
		s += fmt.Sprintf(" %d", *o.Limit)
	} else {
		s += " ALL"
	}
	if o.Offset > 0 {
		s += fmt.Sprintf(" OFFSET %d", o.Offset)
	}
	return s
}

func tableLabel(name, ref string) string {
	if ref != "" && !strings.EqualFold(ref, name) {
		return name + " AS " + ref
	}
	return name
}

func joinExprs(exprs []Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

func aggsAsExprs(aggs []*AggExpr) []Expr {
	out := make([]Expr, len(aggs))
	for i, a := range aggs {
		out[i] = a
	}
	return out
}

// Plan is the bound, executable form of a statement.
type Plan interface {
	Explain() string
}

// SelectPlan is a fixed pipeline:
// Scan, Join*, Filter, Aggregate, Sort, Project, Distinct, Limit.
type SelectPlan struct {
	Operators []Operator
	Columns   []string
}

func (p *SelectPlan) Explain() string {
	return strings.Join(p.Lines(), "\n")
}

// Lines returns one description per operator, in execution order.
func (p *SelectPlan) Lines() []string {
	lines := make([]string, len(p.Operators))
	for i, op := range p.Operators {
		lines[i] = op.Describe()
	}
	return lines
}

// ExplainPlan wraps a SELECT whose pipeline is described instead of run.
type ExplainPlan struct {
	Select *SelectPlan
}

func (p *ExplainPlan) Explain() string { return p.Select.Explain() }

// InsertPlan holds one full-width expression row per VALUES tuple.
// Omitted columns have already been filled with their default or NULL.
type InsertPlan struct {
	Table *catalog.Table
	Rows  [][]Expr
}

func (p *InsertPlan) Explain() string {
	return fmt.Sprintf("Insert %s rows=%d", p.Table.Name, len(p.Rows))
}

// SetClause assigns Expr to the column at Index.
type SetClause struct {
	Index int
	Expr  Expr
}

// UpdatePlan rewrites matching rows of one table.
type UpdatePlan struct {
	Table *catalog.Table
	Where Expr // nil matches every row
	Sets  []SetClause
}

func (p *UpdatePlan) Explain() string {
	s := "Update " + p.Table.Name
	if p.Where != nil {
		s += " WHERE " + p.Where.String()
	}
	return s
}

// DeletePlan removes matching rows of one table.
type DeletePlan struct {
	Table *catalog.Table
	Where Expr
}

func (p *DeletePlan) Explain() string {
	s := "Delete " + p.Table.Name
	if p.Where != nil {
		s += " WHERE " + p.Where.String()
	}
	return s
}

// CreateTablePlan registers a validated table definition.
type CreateTablePlan struct {
	Table       *catalog.Table
	IfNotExists bool
}

func (p *CreateTablePlan) Explain() string { return "CreateTable " + p.Table.Name }

// DropTablePlan removes a table.
type DropTablePlan struct {
	Name     string
	IfExists bool
}

func (p *DropTablePlan) Explain() string { return "DropTable " + p.Name }
