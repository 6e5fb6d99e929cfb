package sql

import (
	"strings"

	"github.com/sqlsandbox/sandboxdb/pkg/catalog"
)

// Planner binds parsed statements against a catalog and produces plans.
//
// Binding resolves every table and column name, type-checks expressions,
// validates grouping, and lays the SELECT operators out in a fixed order:
//  1. Scan the FROM table, then Join each joined table (nested loop)
//  2. Filter by WHERE
//  3. Aggregate when the query groups or uses aggregate functions
//  4. Sort by ORDER BY
//  5. Project, then Distinct and Limit
//
// There is no cost model; the order is always correct for the supported
// grammar because nothing filters on aggregate results.
type Planner struct {
	cat *catalog.Catalog
}

// NewPlanner creates a planner over a catalog.
func NewPlanner(cat *catalog.Catalog) *Planner {
	return &Planner{cat: cat}
}

// Bind is shorthand for NewPlanner(cat).Plan(stmt).
func Bind(stmt Statement, cat *catalog.Catalog) (Plan, error) {
	return NewPlanner(cat).Plan(stmt)
}

// Plan binds one statement.
func (p *Planner) Plan(stmt Statement) (Plan, error) {
	switch s := stmt.(type) {
	case *SelectStmt:
		return p.planSelect(s)
	case *ExplainStmt:
		sel, ok := s.Statement.(*SelectStmt)
		if !ok {
			return nil, bindErrorf(InvalidConstraint, "EXPLAIN supports SELECT only")
		}
		plan, err := p.planSelect(sel)
		if err != nil {
			return nil, err
		}
		return &ExplainPlan{Select: plan}, nil
	case *InsertStmt:
		return p.planInsert(s)
	case *UpdateStmt:
		return p.planUpdate(s)
	case *DeleteStmt:
		return p.planDelete(s)
	case *CreateTableStmt:
		return p.planCreateTable(s)
	case *DropTableStmt:
		if !s.IfExists && !p.cat.HasTable(s.TableName) {
			return nil, bindErrorf(UnknownTable, "table %q does not exist", s.TableName)
		}
		return &DropTablePlan{Name: s.TableName, IfExists: s.IfExists}, nil
	default:
		return nil, bindErrorf(InvalidConstraint, "unsupported statement %T", stmt)
	}
}

func (p *Planner) lookupTable(name string) (*catalog.Table, error) {
	t, err := p.cat.GetTable(name)
	if err != nil {
		return nil, &BindError{Code: UnknownTable, Message: "table \"" + name + "\" does not exist", Err: err}
	}
	return t, nil
}

// scope is the set of tables visible to an expression. Their columns are laid
// out left to right in one row.
type scope struct {
	tables []scopeTable
	width  int
}

type scopeTable struct {
	ref    string
	table  *catalog.Table
	offset int
}

func (s *scope) add(ref string, t *catalog.Table) error {
	for _, st := range s.tables {
		if strings.EqualFold(st.ref, ref) {
			return bindErrorf(DuplicateTable, "table name %q specified more than once", ref)
		}
	}
	s.tables = append(s.tables, scopeTable{ref: ref, table: t, offset: s.width})
	s.width += len(t.Columns)
	return nil
}

func (s *scope) column(st scopeTable, idx int) *ColExpr {
	col := st.table.Columns[idx]
	return &ColExpr{Index: st.offset + idx, Name: st.ref + "." + col.Name, Typ: col.Type}
}

func (s *scope) resolve(ref *ColumnRef) (*ColExpr, error) {
	if ref.Table != "" {
		for _, st := range s.tables {
			if strings.EqualFold(st.ref, ref.Table) {
				if _, idx := st.table.ColumnByName(ref.Name); idx >= 0 {
					return s.column(st, idx), nil
				}
				return nil, bindErrorf(UnknownColumn, "column %q does not exist in table %q", ref.Name, ref.Table)
			}
		}
		return nil, bindErrorf(UnknownTable, "unknown table or alias %q", ref.Table)
	}

	var found *ColExpr
	for _, st := range s.tables {
		if _, idx := st.table.ColumnByName(ref.Name); idx >= 0 {
			if found != nil {
				return nil, bindErrorf(AmbiguousColumn, "column reference %q is ambiguous", ref.Name)
			}
			found = s.column(st, idx)
		}
	}
	if found == nil {
		return nil, bindErrorf(UnknownColumn, "column %q does not exist", ref.Name)
	}
	return found, nil
}

// binder carries the rules for one expression context.
type binder struct {
	scope *scope
	// aggClause names the clause when aggregates are forbidden in it.
	aggClause   string
	inAggregate bool
}

func (b *binder) bind(expr Expression) (Expr, error) {
	switch e := expr.(type) {
	case *LiteralExpr:
		return &ConstExpr{Value: e.Value}, nil

	case *ColumnRef:
		if b.scope == nil {
			return nil, bindErrorf(UnknownColumn, "column %q cannot be used here", exprToString(e))
		}
		return b.scope.resolve(e)

	case *BinaryExpr:
		left, err := b.bind(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := b.bind(e.Right)
		if err != nil {
			return nil, err
		}
		typ, err := binaryType(e.Op, left, right)
		if err != nil {
			return nil, err
		}
		return &BinaryOp{Op: e.Op, Left: left, Right: right, Typ: typ}, nil

	case *UnaryExpr:
		inner, err := b.bind(e.Expr)
		if err != nil {
			return nil, err
		}
		if e.Op == TOKEN_NOT {
			if err := requireBoolean(inner, "NOT"); err != nil {
				return nil, err
			}
		} else if err := requireNumeric(inner, "unary -"); err != nil {
			return nil, err
		}
		return &UnaryOp{Op: e.Op, Expr: inner}, nil

	case *IsNullExpr:
		inner, err := b.bind(e.Expr)
		if err != nil {
			return nil, err
		}
		return &IsNullOp{Expr: inner, Not: e.Not}, nil

	case *InExpr:
		inner, err := b.bind(e.Expr)
		if err != nil {
			return nil, err
		}
		op := &InOp{Expr: inner, Not: e.Not}
		for _, item := range e.List {
			bound, err := b.bind(item)
			if err != nil {
				return nil, err
			}
			if err := requireComparable(inner, bound); err != nil {
				return nil, err
			}
			op.List = append(op.List, bound)
		}
		return op, nil

	case *LikeExpr:
		inner, err := b.bind(e.Expr)
		if err != nil {
			return nil, err
		}
		pattern, err := b.bind(e.Pattern)
		if err != nil {
			return nil, err
		}
		for _, side := range []Expr{inner, pattern} {
			if t := side.Type(); t != catalog.TypeText && t != catalog.TypeNull {
				return nil, bindErrorf(TypeMismatch, "LIKE requires TEXT operands, got %s", t)
			}
		}
		return &LikeOp{Expr: inner, Pattern: pattern, Not: e.Not}, nil

	case *BetweenExpr:
		inner, err := b.bind(e.Expr)
		if err != nil {
			return nil, err
		}
		low, err := b.bind(e.Low)
		if err != nil {
			return nil, err
		}
		high, err := b.bind(e.High)
		if err != nil {
			return nil, err
		}
		if err := requireComparable(inner, low); err != nil {
			return nil, err
		}
		if err := requireComparable(inner, high); err != nil {
			return nil, err
		}
		return &BetweenOp{Expr: inner, Low: low, High: high, Not: e.Not}, nil

	case *AggregateFunc:
		return b.bindAggregate(e)
	}
	return nil, bindErrorf(InvalidConstraint, "unsupported expression %T", expr)
}

func (b *binder) bindAggregate(e *AggregateFunc) (Expr, error) {
	name := exprToString(e)
	if b.aggClause != "" {
		return nil, bindErrorf(InvalidGrouping, "aggregate %s is not allowed in %s", name, b.aggClause)
	}
	if b.inAggregate {
		return nil, bindErrorf(InvalidGrouping, "aggregate calls cannot be nested: %s", name)
	}
	agg := &AggExpr{Func: e.Func, Star: e.Star, Distinct: e.Distinct, Typ: catalog.TypeInteger}
	if e.Star {
		return agg, nil
	}

	b.inAggregate = true
	arg, err := b.bind(e.Arg)
	b.inAggregate = false
	if err != nil {
		return nil, err
	}
	agg.Arg = arg

	switch e.Func {
	case TOKEN_COUNT:
	case TOKEN_AVG:
		if err := requireNumeric(arg, name); err != nil {
			return nil, err
		}
		agg.Typ = catalog.TypeReal
	default:
		if err := requireNumeric(arg, name); err != nil {
			return nil, err
		}
		agg.Typ = arg.Type()
	}
	return agg, nil
}

func isComparisonOp(op TokenType) bool {
	switch op {
	case TOKEN_EQ, TOKEN_NE, TOKEN_LT, TOKEN_LE, TOKEN_GT, TOKEN_GE:
		return true
	}
	return false
}

func binaryType(op TokenType, left, right Expr) (catalog.DataType, error) {
	switch {
	case op == TOKEN_AND || op == TOKEN_OR:
		if err := requireBoolean(left, tokenToOperator(op)); err != nil {
			return 0, err
		}
		if err := requireBoolean(right, tokenToOperator(op)); err != nil {
			return 0, err
		}
		return catalog.TypeBoolean, nil
	case isComparisonOp(op):
		if err := requireComparable(left, right); err != nil {
			return 0, err
		}
		return catalog.TypeBoolean, nil
	default:
		if err := requireNumeric(left, tokenToOperator(op)); err != nil {
			return 0, err
		}
		if err := requireNumeric(right, tokenToOperator(op)); err != nil {
			return 0, err
		}
		return arithmeticType(left.Type(), right.Type()), nil
	}
}

func arithmeticType(a, b catalog.DataType) catalog.DataType {
	switch {
	case a == catalog.TypeReal || b == catalog.TypeReal:
		return catalog.TypeReal
	case a == catalog.TypeInteger || b == catalog.TypeInteger:
		return catalog.TypeInteger
	default:
		return catalog.TypeNull
	}
}

func requireBoolean(e Expr, context string) error {
	if t := e.Type(); t != catalog.TypeBoolean && t != catalog.TypeNull {
		return bindErrorf(TypeMismatch, "%s requires a BOOLEAN operand, got %s in %s", context, t, e)
	}
	return nil
}

func requireNumeric(e Expr, context string) error {
	if t := e.Type(); !t.IsNumeric() && t != catalog.TypeNull {
		return bindErrorf(TypeMismatch, "%s requires a numeric operand, got %s in %s", context, t, e)
	}
	return nil
}

func requireComparable(left, right Expr) error {
	if !catalog.Comparable(left.Type(), right.Type()) {
		return bindErrorf(TypeMismatch, "cannot compare %s with %s (%s, %s)", left.Type(), right.Type(), left, right)
	}
	return nil
}

func assignable(from, to catalog.DataType) bool {
	return from == catalog.TypeNull || from == to || (from == catalog.TypeInteger && to == catalog.TypeReal)
}

func containsAggregate(e Expr) bool {
	switch x := e.(type) {
	case *AggExpr:
		return true
	case *BinaryOp:
		return containsAggregate(x.Left) || containsAggregate(x.Right)
	case *UnaryOp:
		return containsAggregate(x.Expr)
	case *IsNullOp:
		return containsAggregate(x.Expr)
	case *InOp:
		if containsAggregate(x.Expr) {
			return true
		}
		for _, item := range x.List {
			if containsAggregate(item) {
				return true
			}
		}
	case *LikeOp:
		return containsAggregate(x.Expr) || containsAggregate(x.Pattern)
	case *BetweenOp:
		return containsAggregate(x.Expr) || containsAggregate(x.Low) || containsAggregate(x.High)
	}
	return false
}

func (p *Planner) planSelect(stmt *SelectStmt) (*SelectPlan, error) {
	sc := &scope{}
	plan := &SelectPlan{}

	from, err := p.lookupTable(stmt.From.Name)
	if err != nil {
		return nil, err
	}
	if err := sc.add(stmt.From.RefName(), from); err != nil {
		return nil, err
	}
	plan.Operators = append(plan.Operators, &ScanOp{Table: from, RefName: stmt.From.RefName()})

	for _, j := range stmt.Joins {
		t, err := p.lookupTable(j.Table.Name)
		if err != nil {
			return nil, err
		}
		if err := sc.add(j.Table.RefName(), t); err != nil {
			return nil, err
		}
		on, err := (&binder{scope: sc, aggClause: "JOIN ... ON"}).bind(j.On)
		if err != nil {
			return nil, err
		}
		if err := requireBoolean(on, "JOIN ... ON"); err != nil {
			return nil, err
		}
		plan.Operators = append(plan.Operators, &JoinOp{Kind: j.Kind, Table: t, RefName: j.Table.RefName(), On: on})
	}

	if stmt.Where != nil {
		where, err := (&binder{scope: sc, aggClause: "WHERE"}).bind(stmt.Where)
		if err != nil {
			return nil, err
		}
		if err := requireBoolean(where, "WHERE"); err != nil {
			return nil, err
		}
		plan.Operators = append(plan.Operators, &FilterOp{Predicate: where})
	}

	// Projection, expanding stars.
	var (
		projections []Expr
		aliases     = map[string]Expr{}
	)
	proj := &binder{scope: sc}
	for _, col := range stmt.Columns {
		if col.Star {
			matched := false
			for _, st := range sc.tables {
				if col.StarTable != "" && !strings.EqualFold(st.ref, col.StarTable) {
					continue
				}
				matched = true
				for i := range st.table.Columns {
					projections = append(projections, sc.column(st, i))
					plan.Columns = append(plan.Columns, st.table.Columns[i].Name)
				}
			}
			if !matched {
				return nil, bindErrorf(UnknownTable, "unknown table or alias %q", col.StarTable)
			}
			continue
		}
		bound, err := proj.bind(col.Expr)
		if err != nil {
			return nil, err
		}
		projections = append(projections, bound)
		plan.Columns = append(plan.Columns, outputName(col, bound))
		if col.Alias != "" {
			aliases[strings.ToLower(col.Alias)] = bound
		}
	}

	var keys []SortKey
	for _, ob := range stmt.OrderBy {
		var bound Expr
		if ref, ok := ob.Expr.(*ColumnRef); ok && ref.Table == "" {
			bound = aliases[strings.ToLower(ref.Name)]
		}
		if bound == nil {
			if bound, err = proj.bind(ob.Expr); err != nil {
				return nil, err
			}
		}
		keys = append(keys, SortKey{Expr: bound, Desc: ob.Desc})
	}

	var groups []Expr
	groupBinder := &binder{scope: sc, aggClause: "GROUP BY"}
	for _, g := range stmt.GroupBy {
		bound, err := groupBinder.bind(g)
		if err != nil {
			return nil, err
		}
		groups = append(groups, bound)
	}

	aggregating := len(groups) > 0
	for _, e := range projections {
		aggregating = aggregating || containsAggregate(e)
	}
	for _, k := range keys {
		aggregating = aggregating || containsAggregate(k.Expr)
	}

	if aggregating {
		layout := newAggLayout(groups)
		for i, e := range projections {
			if projections[i], err = layout.lift(e); err != nil {
				return nil, err
			}
		}
		for i := range keys {
			if keys[i].Expr, err = layout.lift(keys[i].Expr); err != nil {
				return nil, err
			}
		}
		plan.Operators = append(plan.Operators, &AggregateOp{Groups: groups, Aggregates: layout.aggs})
	}

	if len(keys) > 0 {
		plan.Operators = append(plan.Operators, &SortOp{Keys: keys})
	}
	plan.Operators = append(plan.Operators, &ProjectOp{Exprs: projections})
	if stmt.Distinct {
		plan.Operators = append(plan.Operators, &DistinctOp{})
	}
	if stmt.Limit != nil || stmt.Offset != nil {
		op := &LimitOp{Limit: stmt.Limit}
		if stmt.Offset != nil {
			op.Offset = *stmt.Offset
		}
		plan.Operators = append(plan.Operators, op)
	}
	return plan, nil
}

// outputName is the column header: the alias, the bare column name, or the
// expression text.
func outputName(col SelectColumn, bound Expr) string {
	if col.Alias != "" {
		return col.Alias
	}
	if ref, ok := col.Expr.(*ColumnRef); ok {
		if c, ok := bound.(*ColExpr); ok {
			if i := strings.LastIndexByte(c.Name, '.'); i >= 0 {
				return c.Name[i+1:]
			}
		}
		return ref.Name
	}
	return exprToString(col.Expr)
}

// aggLayout maps pre-aggregation expressions onto the rows AggregateOp emits:
// group values first, then aggregate results.
type aggLayout struct {
	groups   []Expr
	groupIdx map[string]int
	aggs     []*AggExpr
	aggIdx   map[string]int
}

func newAggLayout(groups []Expr) *aggLayout {
	l := &aggLayout{groups: groups, groupIdx: map[string]int{}, aggIdx: map[string]int{}}
	for i, g := range groups {
		if _, dup := l.groupIdx[g.String()]; !dup {
			l.groupIdx[g.String()] = i
		}
	}
	return l
}

func (l *aggLayout) lift(e Expr) (Expr, error) {
	if i, ok := l.groupIdx[e.String()]; ok {
		if _, isConst := e.(*ConstExpr); !isConst {
			return &ColExpr{Index: i, Name: e.String(), Typ: e.Type()}, nil
		}
	}

	var err error
	switch x := e.(type) {
	case *AggExpr:
		key := x.String()
		j, ok := l.aggIdx[key]
		if !ok {
			j = len(l.aggs)
			l.aggs = append(l.aggs, x)
			l.aggIdx[key] = j
		}
		return &ColExpr{Index: len(l.groups) + j, Name: key, Typ: x.Typ}, nil
	case *ColExpr:
		return nil, bindErrorf(InvalidGrouping, "column %s must appear in the GROUP BY clause or be used in an aggregate function", x.Name)
	case *ConstExpr:
		return x, nil
	case *BinaryOp:
		out := *x
		if out.Left, err = l.lift(x.Left); err != nil {
			return nil, err
		}
		if out.Right, err = l.lift(x.Right); err != nil {
			return nil, err
		}
		return &out, nil
	case *UnaryOp:
		out := *x
		out.Expr, err = l.lift(x.Expr)
		return &out, err
	case *IsNullOp:
		out := *x
		out.Expr, err = l.lift(x.Expr)
		return &out, err
	case *InOp:
		out := &InOp{Not: x.Not}
		if out.Expr, err = l.lift(x.Expr); err != nil {
			return nil, err
		}
		for _, item := range x.List {
			lifted, err := l.lift(item)
			if err != nil {
				return nil, err
			}
			out.List = append(out.List, lifted)
		}
		return out, nil
	case *LikeOp:
		out := *x
		if out.Expr, err = l.lift(x.Expr); err != nil {
			return nil, err
		}
		out.Pattern, err = l.lift(x.Pattern)
		return &out, err
	case *BetweenOp:
		out := *x
		if out.Expr, err = l.lift(x.Expr); err != nil {
			return nil, err
		}
		if out.Low, err = l.lift(x.Low); err != nil {
			return nil, err
		}
		out.High, err = l.lift(x.High)
		return &out, err
	}
	return nil, bindErrorf(InvalidGrouping, "unsupported expression %s in grouped query", e)
}

func (p *Planner) planInsert(stmt *InsertStmt) (*InsertPlan, error) {
	t, err := p.lookupTable(stmt.TableName)
	if err != nil {
		return nil, err
	}

	// targets[i] is the table column receiving the i-th value of each tuple.
	targets := make([]int, 0, len(t.Columns))
	if len(stmt.Columns) == 0 {
		for i := range t.Columns {
			targets = append(targets, i)
		}
	} else {
		seen := map[int]bool{}
		for _, name := range stmt.Columns {
			_, idx := t.ColumnByName(name)
			if idx < 0 {
				return nil, bindErrorf(UnknownColumn, "column %q does not exist in table %q", name, t.Name)
			}
			if seen[idx] {
				return nil, bindErrorf(DuplicateColumn, "column %q specified more than once", name)
			}
			seen[idx] = true
			targets = append(targets, idx)
		}
	}

	values := &binder{aggClause: "VALUES"}
	plan := &InsertPlan{Table: t}
	for n, tuple := range stmt.Rows {
		if len(tuple) != len(targets) {
			return nil, bindErrorf(ArityMismatch, "row %d has %d values but %d columns were expected", n+1, len(tuple), len(targets))
		}
		row := make([]Expr, len(t.Columns))
		for i, col := range t.Columns {
			if col.DefaultValue != nil {
				row[i] = &ConstExpr{Value: *col.DefaultValue}
			} else {
				row[i] = &ConstExpr{Value: catalog.Null(col.Type)}
			}
		}
		for i, expr := range tuple {
			bound, err := values.bind(expr)
			if err != nil {
				return nil, err
			}
			col := t.Columns[targets[i]]
			if !assignable(bound.Type(), col.Type) {
				return nil, bindErrorf(TypeMismatch, "cannot insert %s value %s into %s column %q", bound.Type(), bound, col.Type, col.Name)
			}
			row[targets[i]] = bound
		}
		plan.Rows = append(plan.Rows, row)
	}
	return plan, nil
}

func (p *Planner) singleTableScope(name string) (*catalog.Table, *scope, error) {
	t, err := p.lookupTable(name)
	if err != nil {
		return nil, nil, err
	}
	sc := &scope{}
	if err := sc.add(t.Name, t); err != nil {
		return nil, nil, err
	}
	return t, sc, nil
}

func bindWhere(sc *scope, where Expression) (Expr, error) {
	if where == nil {
		return nil, nil
	}
	bound, err := (&binder{scope: sc, aggClause: "WHERE"}).bind(where)
	if err != nil {
		return nil, err
	}
	if err := requireBoolean(bound, "WHERE"); err != nil {
		return nil, err
	}
	return bound, nil
}

func (p *Planner) planUpdate(stmt *UpdateStmt) (*UpdatePlan, error) {
	t, sc, err := p.singleTableScope(stmt.TableName)
	if err != nil {
		return nil, err
	}
	plan := &UpdatePlan{Table: t}
	seen := map[int]bool{}
	set := &binder{scope: sc, aggClause: "UPDATE ... SET"}
	for _, a := range stmt.Assignments {
		col, idx := t.ColumnByName(a.Column)
		if idx < 0 {
			return nil, bindErrorf(UnknownColumn, "column %q does not exist in table %q", a.Column, t.Name)
		}
		if seen[idx] {
			return nil, bindErrorf(DuplicateColumn, "column %q assigned more than once", a.Column)
		}
		seen[idx] = true
		bound, err := set.bind(a.Value)
		if err != nil {
			return nil, err
		}
		if !assignable(bound.Type(), col.Type) {
			return nil, bindErrorf(TypeMismatch, "cannot assign %s value %s to %s column %q", bound.Type(), bound, col.Type, col.Name)
		}
		plan.Sets = append(plan.Sets, SetClause{Index: idx, Expr: bound})
	}
	if plan.Where, err = bindWhere(sc, stmt.Where); err != nil {
		return nil, err
	}
	return plan, nil
}

func (p *Planner) planDelete(stmt *DeleteStmt) (*DeletePlan, error) {
	t, sc, err := p.singleTableScope(stmt.TableName)
	if err != nil {
		return nil, err
	}
	where, err := bindWhere(sc, stmt.Where)
	if err != nil {
		return nil, err
	}
	return &DeletePlan{Table: t, Where: where}, nil
}

func (p *Planner) planCreateTable(stmt *CreateTableStmt) (*CreateTablePlan, error) {
	if existing, err := p.cat.GetTable(stmt.TableName); err == nil {
		if stmt.IfNotExists {
			return &CreateTablePlan{Table: existing, IfNotExists: true}, nil
		}
		return nil, &BindError{Code: DuplicateTable, Message: "table \"" + stmt.TableName + "\" already exists", Err: catalog.ErrTableExists}
	}

	t := &catalog.Table{Name: stmt.TableName}
	if len(stmt.PrimaryKey) > 0 {
		t.PrimaryKey = append([]string(nil), stmt.PrimaryKey...)
	}
	constant := &binder{aggClause: "DEFAULT"}
	for _, def := range stmt.Columns {
		col := catalog.Column{Name: def.Name, Type: def.Type, NotNull: def.NotNull}
		if def.PrimaryKey {
			if len(t.PrimaryKey) > 0 {
				return nil, bindErrorf(InvalidConstraint, "table %q has more than one primary key", stmt.TableName)
			}
			t.PrimaryKey = []string{def.Name}
		}
		if def.Unique {
			t.Uniques = append(t.Uniques, catalog.UniqueConstraint{Columns: []string{def.Name}})
		}
		if def.Default != nil {
			bound, err := constant.bind(def.Default)
			if err != nil {
				return nil, err
			}
			v, err := evalExpr(bound, nil)
			if err != nil {
				return nil, err
			}
			v, err = catalog.Coerce(v, def.Type)
			if err != nil {
				return nil, bindErrorf(TypeMismatch, "default for column %q: %v", def.Name, err)
			}
			col.DefaultValue = &v
		}
		t.Columns = append(t.Columns, col)
		if def.References != nil {
			t.ForeignKeys = append(t.ForeignKeys, catalog.ForeignKey{
				Column: def.Name, RefTable: def.References.RefTable, RefColumn: def.References.RefColumn,
			})
		}
	}
	for _, u := range stmt.Uniques {
		t.Uniques = append(t.Uniques, catalog.UniqueConstraint{Columns: u})
	}
	for _, fk := range stmt.ForeignKeys {
		t.ForeignKeys = append(t.ForeignKeys, catalog.ForeignKey{Column: fk.Column, RefTable: fk.RefTable, RefColumn: fk.RefColumn})
	}

	// REFERENCES t without a column targets t's primary key.
	for i, fk := range t.ForeignKeys {
		if fk.RefColumn != "" {
			continue
		}
		ref := t
		if !strings.EqualFold(fk.RefTable, t.Name) {
			var err error
			if ref, err = p.lookupTable(fk.RefTable); err != nil {
				return nil, err
			}
		}
		if len(ref.PrimaryKey) != 1 {
			return nil, bindErrorf(InvalidConstraint, "table %q has no single-column primary key for %s to reference", ref.Name, fk.Column)
		}
		t.ForeignKeys[i].RefColumn = ref.PrimaryKey[0]
	}
	return &CreateTablePlan{Table: t, IfNotExists: stmt.IfNotExists}, nil
}
