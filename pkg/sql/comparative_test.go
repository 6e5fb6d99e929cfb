//go:build comparative

package sql

import (
	dbsql "database/sql"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/duckdb/duckdb-go/v2"
)

// The seed uses type names both engines map to the same Go scan types:
// BIGINT -> int64, DOUBLE -> float64, VARCHAR -> string.
var comparativeSeed = []string{
	"CREATE TABLE users (id BIGINT PRIMARY KEY, name VARCHAR NOT NULL, city VARCHAR, age BIGINT)",
	"CREATE TABLE orders (order_id BIGINT PRIMARY KEY, user_id BIGINT REFERENCES users(id), amount DOUBLE, paid BOOLEAN)",
	"INSERT INTO users VALUES (1, 'Alice', 'NYC', 30), (2, 'Bob', 'LA', 25), (3, 'Carol', 'NYC', NULL), (4, 'Dan', NULL, 41), (5, 'Eve', 'SF', 25)",
	"INSERT INTO orders VALUES (10, 1, 12.5, TRUE), (11, 1, 3.0, FALSE), (12, 2, 40.0, TRUE), (13, 4, NULL, NULL), (14, 5, 7.25, TRUE)",
}

var comparativeQueries = []struct {
	sql     string
	ordered bool
}{
	{"SELECT * FROM users", false},
	{"SELECT name FROM users ORDER BY name", true},
	{"SELECT name, age FROM users WHERE age > 24 AND city <> 'LA' ORDER BY id", true},
	{"SELECT name FROM users WHERE city IS NULL OR age IS NULL", false},
	{"SELECT id FROM users WHERE age IN (25, 41)", false},
	{"SELECT id FROM users WHERE age NOT IN (25, NULL)", false},
	{"SELECT id FROM users WHERE age BETWEEN 25 AND 30", false},
	{"SELECT name FROM users WHERE name LIKE '%o%'", false},
	{"SELECT id * 2 + 1, -age, age % 7 FROM users", false},
	{"SELECT u.name, o.amount FROM users u JOIN orders o ON u.id = o.user_id", false},
	{"SELECT u.name, o.order_id FROM users u LEFT JOIN orders o ON u.id = o.user_id", false},
	{"SELECT u.name FROM users u LEFT JOIN orders o ON u.id = o.user_id WHERE o.order_id IS NULL", false},
	{"SELECT city, COUNT(*) FROM users GROUP BY city", false},
	{"SELECT COUNT(*), COUNT(age), COUNT(DISTINCT age), MIN(age), MAX(age) FROM users", false},
	{"SELECT SUM(amount), AVG(amount), MIN(amount) FROM orders", false},
	{"SELECT user_id, SUM(amount) FROM orders GROUP BY user_id", false},
	{"SELECT paid, COUNT(*) FROM orders GROUP BY paid", false},
	{"SELECT COUNT(*) FROM orders WHERE amount > 100", false},
	{"SELECT DISTINCT city FROM users", false},
	{"SELECT DISTINCT age FROM users WHERE age IS NOT NULL ORDER BY age DESC", true},
	{"SELECT name FROM users ORDER BY id LIMIT 2 OFFSET 1", true},
	{"SELECT u.city, SUM(o.amount) AS total FROM users u JOIN orders o ON u.id = o.user_id WHERE o.paid GROUP BY u.city ORDER BY total DESC", true},
	{"SELECT name FROM users WHERE NOT (age > 26)", false},
}

func openDuckDB(t *testing.T) *dbsql.DB {
	t.Helper()
	db, err := dbsql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	for _, stmt := range comparativeSeed {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return db
}

func duckRows(t *testing.T, db *dbsql.DB, q string) [][]any {
	t.Helper()
	rs, err := db.Query(q)
	require.NoError(t, err, q)
	defer rs.Close()

	cols, err := rs.Columns()
	require.NoError(t, err)
	var out [][]any
	for rs.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		require.NoError(t, rs.Scan(ptrs...))
		out = append(out, vals)
	}
	require.NoError(t, rs.Err())
	return out
}

func sortedRows(rows [][]any) []string {
	keys := make([]string, len(rows))
	for i, r := range rows {
		keys[i] = fmt.Sprintf("%#v", r)
	}
	sort.Strings(keys)
	return keys
}

func TestComparativeWithDuckDB(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.Reset(comparativeSeed))
	duck := openDuckDB(t)

	for _, tt := range comparativeQueries {
		t.Run(tt.sql, func(t *testing.T) {
			ours := query(t, s, tt.sql)
			theirs := duckRows(t, duck, tt.sql)
			if tt.ordered {
				assert.Equal(t, theirs, ours)
				return
			}
			assert.Equal(t, sortedRows(theirs), sortedRows(ours))
		})
	}
}

func TestComparativeConstraintRejections(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.Reset(comparativeSeed))
	duck := openDuckDB(t)

	statements := []string{
		"INSERT INTO users VALUES (1, 'Dup', 'NYC', 1)",
		"INSERT INTO users VALUES (9, NULL, 'NYC', 1)",
		"INSERT INTO orders VALUES (99, 42, 1.0, TRUE)",
		"DELETE FROM users WHERE id = 1",
	}
	for _, stmt := range statements {
		_, ourErr := s.Execute(stmt)
		_, duckErr := duck.Exec(stmt)
		assert.Error(t, duckErr, stmt)
		assert.Equal(t, KindConstraint, KindOf(ourErr), stmt)
	}
	assert.Equal(t, sortedRows(duckRows(t, duck, "SELECT * FROM users")), sortedRows(query(t, s, "SELECT * FROM users")))
}
