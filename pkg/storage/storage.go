// Package storage keeps table rows in memory and enforces constraints on mutation.
package storage

import (
	"fmt"
	"strings"

	"github.com/sqlsandbox/sandboxdb/pkg/catalog"
)

// Row is a fixed-arity tuple aligned with its table's columns.
type Row []catalog.Value

// Clone returns a copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// RowSet holds a table's rows in insertion order.
type RowSet struct {
	rows []Row
}

// Len returns the number of rows.
func (rs *RowSet) Len() int {
	return len(rs.rows)
}

// RowChange replaces the row at Pos with Row.
type RowChange struct {
	Pos int
	Row Row
}

// Store owns the row data of every table in a catalog.
// It is not safe for concurrent use; callers serialize access.
type Store struct {
	cat    *catalog.Catalog
	tables map[string]*RowSet
}

// NewStore creates an empty store bound to a catalog.
func NewStore(cat *catalog.Catalog) *Store {
	s := &Store{cat: cat, tables: make(map[string]*RowSet)}
	for _, name := range cat.ListTables() {
		s.tables[strings.ToLower(name)] = &RowSet{}
	}
	return s
}

// Catalog returns the catalog describing the store's tables.
func (s *Store) Catalog() *catalog.Catalog {
	return s.cat
}

// CreateTable registers the table in the catalog and allocates its row set.
func (s *Store) CreateTable(t *catalog.Table) error {
	if err := s.cat.CreateTable(t); err != nil {
		return err
	}
	s.tables[strings.ToLower(t.Name)] = &RowSet{}
	return nil
}

// DropTable removes a table and discards its rows.
func (s *Store) DropTable(name string) error {
	if err := s.cat.DropTable(name); err != nil {
		return err
	}
	delete(s.tables, strings.ToLower(name))
	return nil
}

func (s *Store) rowSet(name string) (*catalog.Table, *RowSet, error) {
	t, err := s.cat.GetTable(name)
	if err != nil {
		return nil, nil, err
	}
	rs, ok := s.tables[strings.ToLower(name)]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q has no row storage", catalog.ErrTableNotFound, name)
	}
	return t, rs, nil
}

// Rows returns the table's rows in insertion order.
// The returned rows must not be modified.
func (s *Store) Rows(table string) ([]Row, error) {
	_, rs, err := s.rowSet(table)
	if err != nil {
		return nil, err
	}
	return rs.rows, nil
}

// Count returns the number of rows in a table.
func (s *Store) Count(table string) (int, error) {
	_, rs, err := s.rowSet(table)
	if err != nil {
		return 0, err
	}
	return rs.Len(), nil
}

// Insert validates every row and appends them all, or none.
func (s *Store) Insert(table string, rows []Row) (int, error) {
	t, rs, err := s.rowSet(table)
	if err != nil {
		return 0, err
	}
	prepared := make([]Row, len(rows))
	for i, r := range rows {
		if prepared[i], err = conform(t, r); err != nil {
			return 0, err
		}
	}

	after := make([]Row, 0, len(rs.rows)+len(prepared))
	after = append(after, rs.rows...)
	after = append(after, prepared...)

	if err := checkUnique(t, after, len(rs.rows)); err != nil {
		return 0, err
	}
	if err := s.checkOutgoing(t, prepared, after); err != nil {
		return 0, err
	}

	rs.rows = after
	return len(prepared), nil
}

// Update applies all row replacements, or none.
func (s *Store) Update(table string, changes []RowChange) (int, error) {
	t, rs, err := s.rowSet(table)
	if err != nil {
		return 0, err
	}
	after := make([]Row, len(rs.rows))
	copy(after, rs.rows)
	changed := make([]Row, 0, len(changes))
	for _, ch := range changes {
		if ch.Pos < 0 || ch.Pos >= len(after) {
			return 0, fmt.Errorf("row position %d out of range for table %q", ch.Pos, t.Name)
		}
		r, err := conform(t, ch.Row)
		if err != nil {
			return 0, err
		}
		after[ch.Pos] = r
		changed = append(changed, r)
	}

	if err := checkUnique(t, after, 0); err != nil {
		return 0, err
	}
	if err := s.checkOutgoing(t, changed, after); err != nil {
		return 0, err
	}
	if err := s.checkIncoming(t, rs.rows, after); err != nil {
		return 0, err
	}

	rs.rows = after
	return len(changes), nil
}

// Delete removes the rows at the given positions, or none.
func (s *Store) Delete(table string, positions []int) (int, error) {
	t, rs, err := s.rowSet(table)
	if err != nil {
		return 0, err
	}
	drop := make(map[int]bool, len(positions))
	for _, p := range positions {
		if p < 0 || p >= len(rs.rows) {
			return 0, fmt.Errorf("row position %d out of range for table %q", p, t.Name)
		}
		drop[p] = true
	}
	after := make([]Row, 0, len(rs.rows)-len(drop))
	for i, r := range rs.rows {
		if !drop[i] {
			after = append(after, r)
		}
	}

	if err := s.checkIncoming(t, rs.rows, after); err != nil {
		return 0, err
	}

	rs.rows = after
	return len(drop), nil
}

// conform checks arity, widens values to the column types and enforces NOT NULL.
func conform(t *catalog.Table, r Row) (Row, error) {
	if len(r) != len(t.Columns) {
		return nil, fmt.Errorf("%w: table %q expects %d values, got %d", ErrRowArity, t.Name, len(t.Columns), len(r))
	}
	out := make(Row, len(r))
	for i, col := range t.Columns {
		v, err := catalog.Coerce(r[i], col.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: column %s.%s: %v", ErrTypeMismatch, t.Name, col.Name, err)
		}
		if v.IsNull && !col.Nullable() {
			return nil, &ConstraintError{Code: NotNullViolation, Table: t.Name, Columns: []string{col.Name}}
		}
		out[i] = v
	}
	return out, nil
}

// checkUnique verifies every unique key over rows. Only duplicates involving a
// row at index >= from are reported, since earlier rows were already valid.
// NULLs never collide.
func checkUnique(t *catalog.Table, rows []Row, from int) error {
	for _, key := range t.UniqueKeys() {
		seen := make(map[string]int, len(rows))
		for i, r := range rows {
			vals, ok := keyValues(r, key.Columns)
			if !ok {
				continue
			}
			k := catalog.RowKey(vals)
			if j, dup := seen[k]; dup && (i >= from || j >= from) {
				return &ConstraintError{
					Code:    UniqueViolation,
					Table:   t.Name,
					Columns: columnNames(t, key.Columns),
					Detail:  "duplicate value " + describeKey(vals),
				}
			}
			seen[k] = i
		}
	}
	return nil
}

// checkOutgoing verifies that changed rows only reference existing keys.
// after is the post-mutation state of t, used for self-references.
func (s *Store) checkOutgoing(t *catalog.Table, changed, after []Row) error {
	for _, fk := range t.ForeignKeys {
		_, colIdx := t.ColumnByName(fk.Column)
		refTable, refRows, err := s.targetRows(t, fk.RefTable, after)
		if err != nil {
			return err
		}
		_, refIdx := refTable.ColumnByName(fk.RefColumn)
		present := valueSet(refRows, refIdx)
		for _, r := range changed {
			v := r[colIdx]
			if v.IsNull {
				continue
			}
			if !present[v.Key()] {
				return &ConstraintError{
					Code:    ForeignKeyViolation,
					Table:   t.Name,
					Columns: []string{fk.Column},
					Detail:  fmt.Sprintf("no %s.%s = %s", refTable.Name, fk.RefColumn, v.SQL()),
				}
			}
		}
	}
	return nil
}

// checkIncoming rejects mutations of t that would leave other rows pointing at
// keys that no longer exist.
func (s *Store) checkIncoming(t *catalog.Table, before, after []Row) error {
	for _, child := range s.cat.Referencing(t.Name) {
		for _, fk := range child.ForeignKeys {
			if !strings.EqualFold(fk.RefTable, t.Name) {
				continue
			}
			_, refIdx := t.ColumnByName(fk.RefColumn)
			remaining := valueSet(after, refIdx)
			removed := make(map[string]bool)
			for _, r := range before {
				if v := r[refIdx]; !v.IsNull && !remaining[v.Key()] {
					removed[v.Key()] = true
				}
			}
			if len(removed) == 0 {
				continue
			}
			childRows := after
			if !strings.EqualFold(child.Name, t.Name) {
				childRows = s.tables[strings.ToLower(child.Name)].rows
			}
			_, childIdx := child.ColumnByName(fk.Column)
			for _, r := range childRows {
				if v := r[childIdx]; !v.IsNull && removed[v.Key()] {
					return &ConstraintError{
						Code:    ForeignKeyViolation,
						Table:   child.Name,
						Columns: []string{fk.Column},
						Detail:  fmt.Sprintf("row still references %s.%s = %s", t.Name, fk.RefColumn, v.SQL()),
					}
				}
			}
		}
	}
	return nil
}

func (s *Store) targetRows(t *catalog.Table, refName string, after []Row) (*catalog.Table, []Row, error) {
	if strings.EqualFold(refName, t.Name) {
		return t, after, nil
	}
	ref, rs, err := s.rowSet(refName)
	if err != nil {
		return nil, nil, err
	}
	return ref, rs.rows, nil
}

func valueSet(rows []Row, idx int) map[string]bool {
	set := make(map[string]bool, len(rows))
	for _, r := range rows {
		if v := r[idx]; !v.IsNull {
			set[v.Key()] = true
		}
	}
	return set
}

func keyValues(r Row, cols []int) ([]catalog.Value, bool) {
	vals := make([]catalog.Value, len(cols))
	for i, c := range cols {
		if r[c].IsNull {
			return nil, false
		}
		vals[i] = r[c]
	}
	return vals, true
}

func columnNames(t *catalog.Table, idx []int) []string {
	names := make([]string, len(idx))
	for i, c := range idx {
		names[i] = t.Columns[c].Name
	}
	return names
}

func describeKey(vals []catalog.Value) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = v.SQL()
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
