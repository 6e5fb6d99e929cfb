package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrTableNotFound is returned when a table doesn't exist.
	ErrTableNotFound = errors.New("table not found")
	// ErrTableExists is returned when creating a table whose name is taken.
	ErrTableExists = errors.New("table already exists")
	// ErrColumnNotFound is returned when a constraint names a missing column.
	ErrColumnNotFound = errors.New("column not found")
	// ErrDuplicateColumn is returned when a table declares a column twice.
	ErrDuplicateColumn = errors.New("duplicate column")
	// ErrInvalidConstraint is returned for malformed key definitions.
	ErrInvalidConstraint = errors.New("invalid constraint")
)

// Column defines a column in a table schema.
type Column struct {
	Name         string
	Type         DataType
	NotNull      bool
	PrimaryKey   bool
	DefaultValue *Value // nil when the column has no default
}

// Nullable reports whether the column accepts NULL.
func (c *Column) Nullable() bool {
	return !c.NotNull && !c.PrimaryKey
}

// ForeignKey links one column to a key column of another (or the same) table.
type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

// UniqueConstraint is a set of columns whose non-NULL combination must be unique.
type UniqueConstraint struct {
	Columns []string
}

// Table holds the definition of one table.
type Table struct {
	Name        string
	Columns     []Column
	PrimaryKey  []string
	ForeignKeys []ForeignKey
	Uniques     []UniqueConstraint
}

// Clone returns a deep copy of the table definition.
func (t *Table) Clone() *Table {
	c := &Table{
		Name:        t.Name,
		Columns:     slices.Clone(t.Columns),
		PrimaryKey:  slices.Clone(t.PrimaryKey),
		ForeignKeys: slices.Clone(t.ForeignKeys),
	}
	for i := range c.Columns {
		if d := c.Columns[i].DefaultValue; d != nil {
			v := *d
			c.Columns[i].DefaultValue = &v
		}
	}
	if t.Uniques != nil {
		c.Uniques = make([]UniqueConstraint, len(t.Uniques))
		for i, u := range t.Uniques {
			c.Uniques[i] = UniqueConstraint{Columns: slices.Clone(u.Columns)}
		}
	}
	return c
}

// ColumnByName finds a column by name (case-insensitive).
func (t *Table) ColumnByName(name string) (*Column, int) {
	for i := range t.Columns {
		if strings.EqualFold(t.Columns[i].Name, name) {
			return &t.Columns[i], i
		}
	}
	return nil, -1
}

// ColumnNames returns the declared column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// UniqueKey is one uniqueness rule resolved to column positions.
type UniqueKey struct {
	Name    string
	Columns []int
	Primary bool
}

// UniqueKeys returns the primary key followed by every UNIQUE constraint.
func (t *Table) UniqueKeys() []UniqueKey {
	var keys []UniqueKey
	if len(t.PrimaryKey) > 0 {
		keys = append(keys, UniqueKey{Name: "PRIMARY KEY", Columns: t.indexes(t.PrimaryKey), Primary: true})
	}
	for _, u := range t.Uniques {
		keys = append(keys, UniqueKey{Name: "UNIQUE", Columns: t.indexes(u.Columns)})
	}
	return keys
}

func (t *Table) indexes(names []string) []int {
	idx := make([]int, 0, len(names))
	for _, n := range names {
		if _, i := t.ColumnByName(n); i >= 0 {
			idx = append(idx, i)
		}
	}
	return idx
}

// IsSingleColumnKey reports whether the named column alone is the primary key
// or a unique constraint, which makes it a valid foreign-key target.
func (t *Table) IsSingleColumnKey(column string) bool {
	if len(t.PrimaryKey) == 1 && strings.EqualFold(t.PrimaryKey[0], column) {
		return true
	}
	for _, u := range t.Uniques {
		if len(u.Columns) == 1 && strings.EqualFold(u.Columns[0], column) {
			return true
		}
	}
	return false
}

// Catalog manages table metadata in memory.
// It is not safe for concurrent use; callers serialize access.
type Catalog struct {
	tables map[string]*Table
	order  []string
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{tables: make(map[string]*Table)}
}

func normalize(name string) string {
	return strings.ToLower(name)
}

// CreateTable validates and registers a new table definition.
func (c *Catalog) CreateTable(t *Table) error {
	key := normalize(t.Name)
	if _, exists := c.tables[key]; exists {
		return fmt.Errorf("%w: %q", ErrTableExists, t.Name)
	}
	if err := c.validate(t); err != nil {
		return err
	}
	for _, pk := range t.PrimaryKey {
		col, _ := t.ColumnByName(pk)
		col.PrimaryKey = true
		col.NotNull = true
	}
	c.tables[key] = t
	c.order = append(c.order, key)
	return nil
}

func (c *Catalog) validate(t *Table) error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("%w: table %q has no columns", ErrInvalidConstraint, t.Name)
	}
	seen := make(map[string]bool, len(t.Columns))
	for _, col := range t.Columns {
		k := normalize(col.Name)
		if seen[k] {
			return fmt.Errorf("%w: %q in table %q", ErrDuplicateColumn, col.Name, t.Name)
		}
		seen[k] = true
		if col.DefaultValue != nil {
			if _, err := Coerce(*col.DefaultValue, col.Type); err != nil {
				return fmt.Errorf("%w: default for column %q: %v", ErrInvalidConstraint, col.Name, err)
			}
		}
	}
	if err := requireColumns(t, t.PrimaryKey, "PRIMARY KEY"); err != nil {
		return err
	}
	for _, u := range t.Uniques {
		if err := requireColumns(t, u.Columns, "UNIQUE"); err != nil {
			return err
		}
	}
	for _, fk := range t.ForeignKeys {
		col, _ := t.ColumnByName(fk.Column)
		if col == nil {
			return fmt.Errorf("%w: %q in FOREIGN KEY of table %q", ErrColumnNotFound, fk.Column, t.Name)
		}
		ref := t
		if !strings.EqualFold(fk.RefTable, t.Name) {
			var err error
			if ref, err = c.GetTable(fk.RefTable); err != nil {
				return err
			}
		}
		refCol, _ := ref.ColumnByName(fk.RefColumn)
		if refCol == nil {
			return fmt.Errorf("%w: %q in table %q", ErrColumnNotFound, fk.RefColumn, ref.Name)
		}
		if !ref.IsSingleColumnKey(fk.RefColumn) {
			return fmt.Errorf("%w: %s.%s is not a primary key or unique column", ErrInvalidConstraint, ref.Name, refCol.Name)
		}
		if refCol.Type != col.Type {
			return fmt.Errorf("%w: foreign key %s (%s) does not match %s.%s (%s)",
				ErrInvalidConstraint, col.Name, col.Type, ref.Name, refCol.Name, refCol.Type)
		}
	}
	return nil
}

func requireColumns(t *Table, names []string, what string) error {
	if len(names) == 0 && what == "UNIQUE" {
		return fmt.Errorf("%w: empty UNIQUE column list in table %q", ErrInvalidConstraint, t.Name)
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if col, _ := t.ColumnByName(n); col == nil {
			return fmt.Errorf("%w: %q in %s of table %q", ErrColumnNotFound, n, what, t.Name)
		}
		if seen[normalize(n)] {
			return fmt.Errorf("%w: column %q repeated in %s", ErrInvalidConstraint, n, what)
		}
		seen[normalize(n)] = true
	}
	return nil
}

// DropTable removes a table from the catalog.
// Tables still referenced by another table's foreign key cannot be dropped.
func (c *Catalog) DropTable(name string) error {
	key := normalize(name)
	if _, exists := c.tables[key]; !exists {
		return fmt.Errorf("%w: %q", ErrTableNotFound, name)
	}
	for _, other := range c.Referencing(name) {
		if normalize(other.Name) != key {
			return fmt.Errorf("%w: table %q is referenced by %q", ErrInvalidConstraint, name, other.Name)
		}
	}
	delete(c.tables, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// GetTable returns metadata for a table.
func (c *Catalog) GetTable(name string) (*Table, error) {
	t, exists := c.tables[normalize(name)]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrTableNotFound, name)
	}
	return t, nil
}

// HasTable reports whether the table exists.
func (c *Catalog) HasTable(name string) bool {
	_, exists := c.tables[normalize(name)]
	return exists
}

// ListTables returns all table names in creation order.
func (c *Catalog) ListTables() []string {
	names := make([]string, 0, len(c.order))
	for _, k := range c.order {
		names = append(names, c.tables[k].Name)
	}
	return names
}

// Referencing returns the tables holding a foreign key that points at name,
// including name itself when it references itself.
func (c *Catalog) Referencing(name string) []*Table {
	var out []*Table
	for _, k := range c.order {
		t := c.tables[k]
		for _, fk := range t.ForeignKeys {
			if strings.EqualFold(fk.RefTable, name) {
				out = append(out, t)
				break
			}
		}
	}
	return out
}
