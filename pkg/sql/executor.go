package sql

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sqlsandbox/sandboxdb/pkg/catalog"
	"github.com/sqlsandbox/sandboxdb/pkg/storage"
)

// Executor runs bound plans against a Store.
type Executor struct {
	store *storage.Store
}

// NewExecutor creates a new Executor.
func NewExecutor(store *storage.Store) *Executor {
	return &Executor{store: store}
}

// Execute runs a plan and returns its outcome.
// A failed statement leaves the store unchanged.
func (e *Executor) Execute(plan Plan) (*Outcome, error) {
	switch p := plan.(type) {
	case *SelectPlan:
		rows, err := e.executeSelect(p)
		if err != nil {
			return nil, err
		}
		return rowsOutcome(p.Columns, rows), nil
	case *ExplainPlan:
		lines := p.Select.Lines()
		rows := make([][]catalog.Value, len(lines))
		for i, line := range lines {
			rows[i] = []catalog.Value{catalog.NewText(line)}
		}
		return rowsOutcome([]string{"plan"}, rows), nil
	case *InsertPlan:
		return e.executeInsert(p)
	case *UpdatePlan:
		return e.executeUpdate(p)
	case *DeletePlan:
		return e.executeDelete(p)
	case *CreateTablePlan:
		return e.executeCreate(p)
	case *DropTablePlan:
		return e.executeDrop(p)
	default:
		return nil, fmt.Errorf("unsupported plan type: %T", plan)
	}
}

func (e *Executor) executeCreate(p *CreateTablePlan) (*Outcome, error) {
	if p.IfNotExists && e.store.Catalog().HasTable(p.Table.Name) {
		return schemaChangedOutcome(), nil
	}
	if err := e.store.CreateTable(p.Table); err != nil {
		return nil, storageError(err)
	}
	return schemaChangedOutcome(), nil
}

func (e *Executor) executeDrop(p *DropTablePlan) (*Outcome, error) {
	if p.IfExists && !e.store.Catalog().HasTable(p.Name) {
		return schemaChangedOutcome(), nil
	}
	if err := e.store.DropTable(p.Name); err != nil {
		return nil, storageError(err)
	}
	return schemaChangedOutcome(), nil
}

func (e *Executor) executeInsert(p *InsertPlan) (*Outcome, error) {
	rows := make([]storage.Row, len(p.Rows))
	for i, exprs := range p.Rows {
		row := make(storage.Row, len(exprs))
		for j, expr := range exprs {
			v, err := evalExpr(expr, nil)
			if err != nil {
				return nil, err
			}
			row[j] = v
		}
		rows[i] = row
	}
	n, err := e.store.Insert(p.Table.Name, rows)
	if err != nil {
		return nil, storageError(err)
	}
	return mutatedOutcome(n), nil
}

// matchingRows returns the positions of rows satisfying where.
func matchingRows(rows []storage.Row, where Expr) ([]int, error) {
	var positions []int
	for i, row := range rows {
		if where != nil {
			v, err := evalExpr(where, row)
			if err != nil {
				return nil, err
			}
			if !isTrue(v) {
				continue
			}
		}
		positions = append(positions, i)
	}
	return positions, nil
}

func (e *Executor) executeUpdate(p *UpdatePlan) (*Outcome, error) {
	rows, err := e.store.Rows(p.Table.Name)
	if err != nil {
		return nil, storageError(err)
	}
	positions, err := matchingRows(rows, p.Where)
	if err != nil {
		return nil, err
	}

	changes := make([]storage.RowChange, 0, len(positions))
	for _, pos := range positions {
		old := rows[pos]
		updated := old.Clone()
		// Every SET expression sees the row as it was before the update.
		for _, set := range p.Sets {
			v, err := evalExpr(set.Expr, old)
			if err != nil {
				return nil, err
			}
			updated[set.Index] = v
		}
		changes = append(changes, storage.RowChange{Pos: pos, Row: updated})
	}

	n, err := e.store.Update(p.Table.Name, changes)
	if err != nil {
		return nil, storageError(err)
	}
	return mutatedOutcome(n), nil
}

func (e *Executor) executeDelete(p *DeletePlan) (*Outcome, error) {
	rows, err := e.store.Rows(p.Table.Name)
	if err != nil {
		return nil, storageError(err)
	}
	positions, err := matchingRows(rows, p.Where)
	if err != nil {
		return nil, err
	}
	n, err := e.store.Delete(p.Table.Name, positions)
	if err != nil {
		return nil, storageError(err)
	}
	return mutatedOutcome(n), nil
}

// storageError translates storage and catalog failures into engine errors.
func storageError(err error) error {
	var consErr *storage.ConstraintError
	switch {
	case errors.As(err, &consErr):
		return err
	case errors.Is(err, storage.ErrTypeMismatch):
		return &ExecError{Code: TypeCoercionFailure, Message: err.Error(), Err: err}
	case errors.Is(err, storage.ErrRowArity):
		return &BindError{Code: ArityMismatch, Message: err.Error(), Err: err}
	case errors.Is(err, catalog.ErrTableNotFound):
		return &BindError{Code: UnknownTable, Message: err.Error(), Err: err}
	case errors.Is(err, catalog.ErrTableExists):
		return &BindError{Code: DuplicateTable, Message: err.Error(), Err: err}
	case errors.Is(err, catalog.ErrDuplicateColumn):
		return &BindError{Code: DuplicateColumn, Message: err.Error(), Err: err}
	case errors.Is(err, catalog.ErrColumnNotFound):
		return &BindError{Code: UnknownColumn, Message: err.Error(), Err: err}
	case errors.Is(err, catalog.ErrInvalidConstraint):
		return &BindError{Code: InvalidConstraint, Message: err.Error(), Err: err}
	}
	return err
}

// executeSelect runs the operator pipeline in order. Each operator consumes
// the rows of the previous one.
func (e *Executor) executeSelect(p *SelectPlan) ([][]catalog.Value, error) {
	var (
		rows [][]catalog.Value
		err  error
	)
	for _, op := range p.Operators {
		switch o := op.(type) {
		case *ScanOp:
			rows, err = e.scan(o)
		case *JoinOp:
			rows, err = e.join(rows, o)
		case *FilterOp:
			rows, err = filterRows(rows, o.Predicate)
		case *AggregateOp:
			rows, err = aggregateRows(rows, o)
		case *SortOp:
			err = sortRows(rows, o.Keys)
		case *ProjectOp:
			rows, err = projectRows(rows, o.Exprs)
		case *DistinctOp:
			rows = deduplicateRows(rows)
		case *LimitOp:
			rows = limitRows(rows, o)
		default:
			err = fmt.Errorf("unsupported operator: %T", op)
		}
		if err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func (e *Executor) scan(o *ScanOp) ([][]catalog.Value, error) {
	stored, err := e.store.Rows(o.Table.Name)
	if err != nil {
		return nil, storageError(err)
	}
	rows := make([][]catalog.Value, len(stored))
	for i, r := range stored {
		rows[i] = r
	}
	return rows, nil
}

// join is a nested loop: for each left row in order, the matching right rows
// in insertion order. LEFT joins pad unmatched left rows with NULLs.
func (e *Executor) join(left [][]catalog.Value, o *JoinOp) ([][]catalog.Value, error) {
	right, err := e.store.Rows(o.Table.Name)
	if err != nil {
		return nil, storageError(err)
	}
	var padding []catalog.Value
	if o.Kind == JoinLeft {
		padding = make([]catalog.Value, len(o.Table.Columns))
		for i, col := range o.Table.Columns {
			padding[i] = catalog.Null(col.Type)
		}
	}

	var out [][]catalog.Value
	for _, l := range left {
		matched := false
		for _, r := range right {
			combined := make([]catalog.Value, 0, len(l)+len(r))
			combined = append(append(combined, l...), r...)
			v, err := evalExpr(o.On, combined)
			if err != nil {
				return nil, err
			}
			if isTrue(v) {
				matched = true
				out = append(out, combined)
			}
		}
		if !matched && o.Kind == JoinLeft {
			combined := make([]catalog.Value, 0, len(l)+len(padding))
			out = append(out, append(append(combined, l...), padding...))
		}
	}
	return out, nil
}

func filterRows(rows [][]catalog.Value, pred Expr) ([][]catalog.Value, error) {
	var out [][]catalog.Value
	for _, row := range rows {
		v, err := evalExpr(pred, row)
		if err != nil {
			return nil, err
		}
		if isTrue(v) {
			out = append(out, row)
		}
	}
	return out, nil
}

// groupState holds the key values and aggregators of one group.
type groupState struct {
	key         []catalog.Value
	aggregators []*aggregator
}

// aggregateRows groups rows in order of first appearance. NULL group keys
// compare equal. Without GROUP BY there is exactly one group, even for no rows.
func aggregateRows(rows [][]catalog.Value, o *AggregateOp) ([][]catalog.Value, error) {
	groups := make(map[string]*groupState)
	var groupOrder []string

	newGroup := func(key []catalog.Value) *groupState {
		g := &groupState{key: key, aggregators: make([]*aggregator, len(o.Aggregates))}
		for i, agg := range o.Aggregates {
			g.aggregators[i] = newAggregator(agg)
		}
		return g
	}
	if len(o.Groups) == 0 {
		groups[""] = newGroup(nil)
		groupOrder = append(groupOrder, "")
	}

	for _, row := range rows {
		key := make([]catalog.Value, len(o.Groups))
		for i, g := range o.Groups {
			v, err := evalExpr(g, row)
			if err != nil {
				return nil, err
			}
			key[i] = v
		}
		keyStr := catalog.RowKey(key)
		grp, ok := groups[keyStr]
		if !ok {
			grp = newGroup(key)
			groups[keyStr] = grp
			groupOrder = append(groupOrder, keyStr)
		}
		for _, a := range grp.aggregators {
			if err := a.add(row); err != nil {
				return nil, err
			}
		}
	}

	out := make([][]catalog.Value, 0, len(groupOrder))
	for _, keyStr := range groupOrder {
		grp := groups[keyStr]
		row := make([]catalog.Value, 0, len(grp.key)+len(grp.aggregators))
		row = append(row, grp.key...)
		for _, a := range grp.aggregators {
			row = append(row, a.result())
		}
		out = append(out, row)
	}
	return out, nil
}

type aggregator struct {
	agg      *AggExpr
	count    int64
	sumInt   int64
	sumReal  float64
	hasValue bool
	best     catalog.Value
	seen     map[string]bool
}

func newAggregator(agg *AggExpr) *aggregator {
	a := &aggregator{agg: agg}
	if agg.Distinct {
		a.seen = make(map[string]bool)
	}
	return a
}

func (a *aggregator) add(row []catalog.Value) error {
	if a.agg.Star {
		a.count++
		return nil
	}
	v, err := evalExpr(a.agg.Arg, row)
	if err != nil {
		return err
	}
	if v.IsNull {
		return nil
	}
	if a.seen != nil {
		if a.seen[v.Key()] {
			return nil
		}
		a.seen[v.Key()] = true
	}

	a.count++
	switch a.agg.Func {
	case TOKEN_SUM, TOKEN_AVG:
		if !v.Type.IsNumeric() {
			return execErrorf(TypeCoercionFailure, "%s over %s value", a.agg.Func, v.Type)
		}
		a.sumReal += v.AsFloat()
		if !isFinite(a.sumReal) {
			return execErrorf(RealOverflow, "real overflow in %s", a.agg.Func)
		}
		if v.Type == catalog.TypeInteger && a.agg.Func == TOKEN_SUM {
			sum, err := integerArithmetic(TOKEN_PLUS, a.sumInt, v.Int)
			if err != nil {
				return err
			}
			a.sumInt = sum.Int
		}
	case TOKEN_MIN, TOKEN_MAX:
		if !a.hasValue {
			a.best = v
			break
		}
		cmp, err := v.Compare(a.best)
		if err != nil {
			return &ExecError{Code: TypeCoercionFailure, Message: err.Error(), Err: err}
		}
		if (a.agg.Func == TOKEN_MIN && cmp < 0) || (a.agg.Func == TOKEN_MAX && cmp > 0) {
			a.best = v
		}
	}
	a.hasValue = true
	return nil
}

// result returns the aggregate value. SUM, AVG, MIN and MAX of no
// non-NULL input are NULL; COUNT is 0.
func (a *aggregator) result() catalog.Value {
	switch a.agg.Func {
	case TOKEN_COUNT:
		return catalog.NewInteger(a.count)
	case TOKEN_SUM:
		if !a.hasValue {
			return catalog.Null(a.agg.Typ)
		}
		if a.agg.Typ == catalog.TypeInteger {
			return catalog.NewInteger(a.sumInt)
		}
		return catalog.NewReal(a.sumReal)
	case TOKEN_AVG:
		if !a.hasValue {
			return catalog.Null(catalog.TypeReal)
		}
		return catalog.NewReal(a.sumReal / float64(a.count))
	default:
		if !a.hasValue {
			return catalog.Null(a.agg.Typ)
		}
		return a.best
	}
}

// sortRows stably sorts rows in place. NULL sorts before every other value,
// so it comes first ascending and last descending.
func sortRows(rows [][]catalog.Value, keys []SortKey) error {
	sortKeys := make([][]catalog.Value, len(rows))
	for i, row := range rows {
		vals := make([]catalog.Value, len(keys))
		for k, key := range keys {
			v, err := evalExpr(key.Expr, row)
			if err != nil {
				return err
			}
			vals[k] = v
		}
		sortKeys[i] = vals
	}

	idx := make([]int, len(rows))
	for i := range idx {
		idx[i] = i
	}
	var cmpErr error
	sort.SliceStable(idx, func(a, b int) bool {
		for k, key := range keys {
			cmp, err := compareForSort(sortKeys[idx[a]][k], sortKeys[idx[b]][k])
			if err != nil && cmpErr == nil {
				cmpErr = err
			}
			if cmp == 0 {
				continue
			}
			if key.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	if cmpErr != nil {
		return cmpErr
	}

	sorted := make([][]catalog.Value, len(rows))
	for i, j := range idx {
		sorted[i] = rows[j]
	}
	copy(rows, sorted)
	return nil
}

func compareForSort(a, b catalog.Value) (int, error) {
	switch {
	case a.IsNull && b.IsNull:
		return 0, nil
	case a.IsNull:
		return -1, nil
	case b.IsNull:
		return 1, nil
	}
	cmp, err := a.Compare(b)
	if err != nil {
		return 0, &ExecError{Code: TypeCoercionFailure, Message: err.Error(), Err: err}
	}
	return cmp, nil
}

func projectRows(rows [][]catalog.Value, exprs []Expr) ([][]catalog.Value, error) {
	out := make([][]catalog.Value, len(rows))
	for i, row := range rows {
		projected := make([]catalog.Value, len(exprs))
		for j, expr := range exprs {
			v, err := evalExpr(expr, row)
			if err != nil {
				return nil, err
			}
			projected[j] = v
		}
		out[i] = projected
	}
	return out, nil
}

// deduplicateRows keeps the first occurrence of each distinct row.
// NULLs compare equal here, as in GROUP BY.
func deduplicateRows(rows [][]catalog.Value) [][]catalog.Value {
	if len(rows) <= 1 {
		return rows
	}
	seen := make(map[string]bool)
	result := make([][]catalog.Value, 0, len(rows))
	for _, row := range rows {
		key := catalog.RowKey(row)
		if !seen[key] {
			seen[key] = true
			result = append(result, row)
		}
	}
	return result
}

func limitRows(rows [][]catalog.Value, o *LimitOp) [][]catalog.Value {
	if o.Offset >= int64(len(rows)) {
		return rows[:0]
	}
	rows = rows[o.Offset:]
	if o.Limit != nil && *o.Limit < int64(len(rows)) {
		rows = rows[:*o.Limit]
	}
	return rows
}
