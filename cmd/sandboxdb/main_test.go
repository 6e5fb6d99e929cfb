package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgFile, seedFile, format = "", "", ""
	t.Setenv("SANDBOX_LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := runCmd(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "sandboxdb 0.1.0")
}

func TestExecCommand(t *testing.T) {
	out, err := runCmd(t, "exec", "SELECT name FROM users ORDER BY name")
	require.NoError(t, err)
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, "(2 rows)")
}

func TestExecCommandJSON(t *testing.T) {
	out, err := runCmd(t, "exec", "--format", "json", "SELECT city, COUNT(*) FROM users GROUP BY city")
	require.NoError(t, err)

	var payload struct {
		Columns []string `json:"columns"`
		Rows    [][]any  `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace([]byte(out)), &payload))
	assert.Equal(t, []string{"city", "COUNT(*)"}, payload.Columns)
	assert.Equal(t, [][]any{{"NYC", float64(1)}, {"LA", float64(1)}}, payload.Rows)
}

func TestExecCommandReportsFailure(t *testing.T) {
	out, err := runCmd(t, "exec", "INSERT INTO users (id, name, city) VALUES (1, 'X', 'Y')")
	assert.ErrorIs(t, err, errStatementFailed)
	assert.Contains(t, out, "UniqueViolation")
}

func TestRunCommand(t *testing.T) {
	script := filepath.Join(t.TempDir(), "lesson.sql")
	require.NoError(t, os.WriteFile(script, []byte(`
DELETE FROM users WHERE id = 2;
INSERT INTO orders (order_id, user_id, amount) VALUES (2, 2, 5.0);
SELECT COUNT(*) FROM orders;
`), 0644))

	out, err := runCmd(t, "run", script)
	assert.EqualError(t, err, "1 statement(s) failed")
	assert.Contains(t, out, "1 row affected")
	assert.Contains(t, out, "ForeignKeyViolation")
	assert.Contains(t, out, "(1 row)")
}

func TestInitThenExecWithCustomSeed(t *testing.T) {
	dir := t.TempDir()
	out, err := runCmd(t, "init", dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "seed.yaml"))
	assert.FileExists(t, filepath.Join(dir, "sandboxdb.yaml"))
	assert.Contains(t, out, "Created config file")

	out, err = runCmd(t, "exec", "--config", filepath.Join(dir, "sandboxdb.yaml"), "SELECT COUNT(*) FROM orders")
	require.NoError(t, err)
	assert.Contains(t, out, "(1 row)")

	custom := filepath.Join(dir, "tiny.sql")
	require.NoError(t, os.WriteFile(custom, []byte("CREATE TABLE t (a INT); INSERT INTO t VALUES (41);"), 0644))
	out, err = runCmd(t, "exec", "--seed", custom, "SELECT a + 1 FROM t")
	require.NoError(t, err)
	assert.Contains(t, out, "42")
}

func TestInitConvertsSeed(t *testing.T) {
	dir := t.TempDir()
	custom := filepath.Join(dir, "tiny.sql")
	require.NoError(t, os.WriteFile(custom, []byte("CREATE TABLE t (a INT); INSERT INTO t VALUES (41);"), 0644))

	_, err := runCmd(t, "init", "--seed", custom, filepath.Join(dir, "sandbox"))
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dir, "sandbox", "seed.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "name: tiny.sql")

	out, err := runCmd(t, "exec", "--config", filepath.Join(dir, "sandbox", "sandboxdb.yaml"), "SELECT a + 1 FROM t")
	require.NoError(t, err)
	assert.Contains(t, out, "42")
}

func TestBadSeedFails(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.sql")
	require.NoError(t, os.WriteFile(bad, []byte("CREATE TABLE t (a INT); INSERT INTO nope VALUES (1);"), 0644))
	_, err := runCmd(t, "exec", "--seed", bad, "SELECT 1 FROM t")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed statement 2")
}
