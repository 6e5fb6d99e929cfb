package sql

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlsandbox/sandboxdb/pkg/catalog"
)

func newNumbersSession(t *testing.T) *Session {
	t.Helper()
	s := NewSession()
	require.NoError(t, s.Reset([]string{
		"CREATE TABLE n (id INT PRIMARY KEY, i INT, r REAL, s TEXT, b BOOLEAN)",
		"INSERT INTO n VALUES (1, 7, 2.5, 'apple', TRUE), (2, 0, 0.0, 'Banana', FALSE), (3, NULL, NULL, NULL, NULL)",
	}))
	return s
}

func TestArithmetic(t *testing.T) {
	s := newNumbersSession(t)
	tests := []struct {
		expr string
		want any
	}{
		{"i + 1", int64(8)},
		{"i / 2", int64(3)},
		{"-i / 2", int64(-3)},
		{"i % 3", int64(1)},
		{"i * r", 17.5},
		{"i / 2.0", 3.5},
		{"r - 0.5", 2.0},
		{"-(i - 10)", int64(3)},
		{"i + NULL", nil},
		{"2 + 3 * 4", int64(14)},
		{"(2 + 3) * 4", int64(20)},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			rows := query(t, s, "SELECT "+tt.expr+" FROM n WHERE id = 1")
			require.Len(t, rows, 1)
			assert.Equal(t, tt.want, rows[0][0])
		})
	}
}

func TestExecErrors(t *testing.T) {
	s := newNumbersSession(t)
	tests := []struct {
		name string
		sql  string
		code ExecCode
	}{
		{"integer division by zero", "SELECT 1 / i FROM n WHERE id = 2", DivisionByZero},
		{"real division by zero", "SELECT r / r FROM n WHERE id = 2", DivisionByZero},
		{"modulo by zero", "SELECT id % i FROM n", DivisionByZero},
		{"addition overflow", "SELECT 9223372036854775807 + id FROM n", IntegerOverflow},
		{"multiplication overflow", "SELECT 9223372036854775807 * 2 FROM n", IntegerOverflow},
		{"negation overflow", "SELECT -(-9223372036854775808) FROM n", IntegerOverflow},
		{"division in where", "DELETE FROM n WHERE 10 / i > 1", DivisionByZero},
		{"real multiplication overflow", "SELECT r * 1e308 * 10 FROM n WHERE id = 1", RealOverflow},
		{"real addition overflow", "SELECT 1.7e308 + 1.7e308 FROM n", RealOverflow},
		{"real overflow in insert", "INSERT INTO n VALUES (4, 1, 1e308 * 10, 'x', TRUE)", RealOverflow},
		{"real overflow in update", "UPDATE n SET r = r * 1e308 WHERE id = 1", RealOverflow},
		{"real overflow in where", "SELECT id FROM n WHERE r * 1e308 * 10 - r * 1e308 * 10 = 5.0", RealOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Execute(tt.sql)
			var execErr *ExecError
			require.True(t, errors.As(err, &execErr), "expected ExecError, got %v", err)
			assert.Equal(t, tt.code, execErr.Code)
			assert.Equal(t, KindExec, KindOf(err))
		})
	}

	n, _ := s.RowCount("n")
	assert.Equal(t, 3, n, "failed DELETE must not remove rows")
}

func TestSumOverflow(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.Reset([]string{
		"CREATE TABLE big (v INT)",
		"INSERT INTO big VALUES (9223372036854775807), (1)",
	}))
	_, err := s.Execute("SELECT SUM(v) FROM big")
	assert.Equal(t, "IntegerOverflow", Report(err).Code)
	assert.Equal(t, [][]any{{4611686018427387904.0}}, query(t, s, "SELECT AVG(v) FROM big"))
}

func TestRealSumOverflow(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.Reset([]string{
		"CREATE TABLE big (v REAL)",
		"INSERT INTO big VALUES (1.5e308), (1.5e308)",
	}))
	for _, q := range []string{"SELECT SUM(v) FROM big", "SELECT AVG(v) FROM big"} {
		_, err := s.Execute(q)
		assert.Equal(t, "RealOverflow", Report(err).Code, q)
	}
	assert.Equal(t, [][]any{{1.5e308}}, query(t, s, "SELECT MAX(v) FROM big"))
}

func TestPredicates(t *testing.T) {
	s := newNumbersSession(t)
	tests := []struct {
		where string
		want  []any
	}{
		{"s LIKE 'a%'", []any{int64(1)}},
		{"s LIKE 'b_n%'", []any{int64(2)}},
		{"s NOT LIKE '%an%'", []any{int64(1)}},
		{"i IN (0, 7)", []any{int64(1), int64(2)}},
		{"i NOT IN (0, NULL)", nil},
		{"i NOT IN (0, 1)", []any{int64(1)}},
		{"r BETWEEN 0 AND 1", []any{int64(2)}},
		{"r NOT BETWEEN 0 AND 1", []any{int64(1)}},
		{"b", []any{int64(1)}},
		{"NOT b", []any{int64(2)}},
		{"b IS NULL", []any{int64(3)}},
		{"b OR i IS NULL", []any{int64(1), int64(3)}},
		{"b AND i > 0", []any{int64(1)}},
		{"i >= 0 AND r < 1", []any{int64(2)}},
		{"i = 7.0", []any{int64(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.where, func(t *testing.T) {
			rows := query(t, s, "SELECT id FROM n WHERE "+tt.where)
			var got []any
			for _, r := range rows {
				got = append(got, r[0])
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUpdateUsesOldRowValues(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.Reset([]string{
		"CREATE TABLE p (a INT, b INT)",
		"INSERT INTO p VALUES (1, 2), (3, 4)",
	}))
	out := exec(t, s, "UPDATE p SET a = b, b = a")
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, [][]any{{int64(2), int64(1)}, {int64(4), int64(3)}}, query(t, s, "SELECT * FROM p"))

	out = exec(t, s, "UPDATE p SET a = a * 10 WHERE b = 99")
	assert.Equal(t, 0, out.Count)
}

func TestUpdateConstraintIsAllOrNothing(t *testing.T) {
	s := newShopSession(t)
	exec(t, s, "INSERT INTO users VALUES (3, 'Carol', 'SF')")

	_, err := s.Execute("UPDATE users SET id = 5 WHERE id >= 2")
	assert.Equal(t, "UniqueViolation", Report(err).Code)

	_, err = s.Execute("UPDATE users SET id = 10 WHERE id = 1")
	assert.Equal(t, "ForeignKeyViolation", Report(err).Code, "referenced key may not change")

	assert.Equal(t, [][]any{{int64(1)}, {int64(2)}, {int64(3)}}, query(t, s, "SELECT id FROM users"))

	out := exec(t, s, "UPDATE users SET id = id + 10 WHERE id >= 2")
	assert.Equal(t, 2, out.Count)
}

func TestDistinctAndLimit(t *testing.T) {
	s := newShopSession(t)
	exec(t, s, "INSERT INTO users VALUES (3, 'Carol', 'NYC'), (4, 'Dan', 'SF'), (5, 'Eve', 'LA')")
	assert.Equal(t, [][]any{{"NYC"}, {"LA"}, {"SF"}}, query(t, s, "SELECT DISTINCT city FROM users"))
	assert.Equal(t, [][]any{{"Bob"}, {"Carol"}}, query(t, s, "SELECT name FROM users LIMIT 2 OFFSET 1"))
	assert.Equal(t, [][]any{{int64(5)}}, query(t, s, "SELECT id FROM users ORDER BY id DESC LIMIT 1"))
	assert.Empty(t, query(t, s, "SELECT id FROM users LIMIT 5 OFFSET 10"))
	assert.Empty(t, query(t, s, "SELECT id FROM users LIMIT 0"))
}

func TestMultipleJoins(t *testing.T) {
	s := newShopSession(t)
	exec(t, s, "CREATE TABLE items (order_id INT REFERENCES orders(order_id), sku TEXT)")
	exec(t, s, "INSERT INTO items VALUES (1, 'pen'), (1, 'ink')")
	assert.Equal(t, [][]any{
		{"Alice", "pen"}, {"Alice", "ink"}, {"Bob", nil},
	}, query(t, s, "SELECT u.name, i.sku FROM users u LEFT JOIN orders o ON o.user_id = u.id LEFT JOIN items i ON i.order_id = o.order_id"))
}

func TestMatchLike(t *testing.T) {
	tests := []struct {
		s, pattern string
		want       bool
	}{
		{"hello", "hello", true},
		{"hello", "HE%", true},
		{"hello", "%llo", true},
		{"hello", "h_llo", true},
		{"hello", "h_lo", false},
		{"", "%", true},
		{"abc", "a%c%", true},
		{"abc", "a%d", false},
	}
	for _, tt := range tests {
		if got := matchLike(tt.s, tt.pattern); got != tt.want {
			t.Errorf("matchLike(%q, %q) = %v, want %v", tt.s, tt.pattern, got, tt.want)
		}
	}
}

func TestThreeValuedConnectives(t *testing.T) {
	tr, fa, un := catalog.NewBoolean(true), catalog.NewBoolean(false), unknown()
	tests := []struct {
		name string
		got  catalog.Value
		want catalog.Value
	}{
		{"true and unknown", and3(tr, un), un},
		{"false and unknown", and3(fa, un), fa},
		{"true or unknown", or3(tr, un), tr},
		{"false or unknown", or3(fa, un), un},
		{"not unknown", not3(un), un},
	}
	for _, tt := range tests {
		if tt.got.IsNull != tt.want.IsNull || tt.got.Bool != tt.want.Bool {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}
