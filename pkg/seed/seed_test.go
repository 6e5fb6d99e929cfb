package seed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlsandbox/sandboxdb/pkg/sql"
)

func TestDefaultPack(t *testing.T) {
	p := Default()
	assert.Equal(t, "shop", p.Name)

	stmts, err := p.Statements()
	require.NoError(t, err)
	require.Len(t, stmts, 4)
	assert.Contains(t, stmts[0], "CREATE TABLE users")
	assert.Contains(t, stmts[3], "INSERT INTO orders")

	s := sql.NewSession()
	require.NoError(t, p.Apply(s))
	tables, err := s.Tables()
	require.NoError(t, err)
	assert.Equal(t, []string{"users", "orders"}, tables)
	n, err := s.RowCount("users")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestParse(t *testing.T) {
	p, err := Parse([]byte(`
name: tiny
statements:
  - CREATE TABLE t (a INT)
  - ""
script: |
  INSERT INTO t VALUES (1);
  INSERT INTO t VALUES (2);;
`))
	require.NoError(t, err)
	stmts, err := p.Statements()
	require.NoError(t, err)
	assert.Equal(t, []string{"CREATE TABLE t (a INT)", "INSERT INTO t VALUES (1)", "INSERT INTO t VALUES (2)"}, stmts)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte("name: [unclosed"))
	assert.Error(t, err)

	_, err = Parse([]byte("name: nothing\n"))
	assert.ErrorIs(t, err, ErrEmptyPack)

	_, err = Parse([]byte("name: bad\nscript: \"SELECT 'oops\"\n"))
	assert.Error(t, err, "unterminated string in script")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "pack.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("statements:\n  - CREATE TABLE a (x INT)\n"), 0644))
	p, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "pack.yaml", p.Name, "name defaults to the file name")

	jsonPath := filepath.Join(dir, "pack.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"name":"j","statements":["CREATE TABLE b (y INT)"]}`), 0644))
	p, err = Load(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "j", p.Name)

	sqlPath := filepath.Join(dir, "pack.sql")
	require.NoError(t, os.WriteFile(sqlPath, []byte("CREATE TABLE c (z INT);\nINSERT INTO c VALUES (1);\n"), 0644))
	p, err = Load(sqlPath)
	require.NoError(t, err)
	stmts, err := p.Statements()
	require.NoError(t, err)
	assert.Len(t, stmts, 2)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyReportsFailingStatement(t *testing.T) {
	p := &Pack{Name: "broken", Setup: []string{"CREATE TABLE t (a INT)", "INSERT INTO nope VALUES (1)"}}
	s := sql.NewSession()
	err := p.Apply(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed broken")
	assert.Contains(t, err.Error(), "seed statement 2")
	assert.Equal(t, sql.KindBind, sql.KindOf(err))
}

func TestMarshalRoundTrip(t *testing.T) {
	data, err := Default().Marshal()
	require.NoError(t, err)
	p, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, Default(), p)
	assert.Equal(t, Default(), mustParse(t, DefaultYAML()))
}

func mustParse(t *testing.T, data []byte) *Pack {
	t.Helper()
	p, err := Parse(data)
	require.NoError(t, err)
	return p
}
