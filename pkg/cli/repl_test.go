package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/sqlsandbox/sandboxdb/pkg/seed"
	"github.com/sqlsandbox/sandboxdb/pkg/sql"
)

func runREPL(t *testing.T, input string, opts Options) string {
	t.Helper()
	session := sql.NewSession()
	pack := seed.Default()
	if err := pack.Apply(session); err != nil {
		t.Fatalf("seed: %v", err)
	}
	var output bytes.Buffer
	repl := NewREPL(strings.NewReader(input), &output, nil, session, pack, opts)
	if err := repl.Run(); err != nil {
		t.Fatalf("REPL.Run() error = %v", err)
	}
	return output.String()
}

func TestREPLCommands(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string // substrings that should appear in output
	}{
		{
			name:     "help command",
			input:    "\\?\n",
			expected: []string{"Meta commands", "\\dt", "EXPLAIN"},
		},
		{
			name:     "list tables",
			input:    "\\dt\n",
			expected: []string{"users", "orders", "(2 table(s))"},
		},
		{
			name:     "describe",
			input:    "\\d orders\n",
			expected: []string{"Table: orders", "amount", "REAL", "PRIMARY KEY (order_id)", "FOREIGN KEY (user_id) REFERENCES users(id)"},
		},
		{
			name:     "describe unknown table",
			input:    "\\d nope\n",
			expected: []string{"Error [BindError/UnknownTable]"},
		},
		{
			name:     "describe usage",
			input:    "\\d\n",
			expected: []string{"Usage: \\d <table>"},
		},
		{
			name:     "unknown command",
			input:    "\\foo\n",
			expected: []string{"Unknown command: \\foo"},
		},
		{
			name:     "select",
			input:    "SELECT name FROM users ORDER BY name;\n",
			expected: []string{" name  ", "───────", " Alice ", " Bob ", "(2 rows)"},
		},
		{
			name:     "insert",
			input:    "INSERT INTO users VALUES (3, 'Carol', 'SF');\n",
			expected: []string{"1 row affected"},
		},
		{
			name:     "create",
			input:    "CREATE TABLE t (a INT);\n",
			expected: []string{"schema changed"},
		},
		{
			name:     "constraint error",
			input:    "INSERT INTO users (id, name, city) VALUES (1, 'X', 'Y');\n",
			expected: []string{"Error [ConstraintError/UniqueViolation]"},
		},
		{
			name:     "parse error",
			input:    "SELECT FROM;\n",
			expected: []string{"Error [ParseError]"},
		},
		{
			name:     "explain",
			input:    "EXPLAIN SELECT * FROM users WHERE id = 1;\n",
			expected: []string{"plan", "Scan users", "Filter (users.id = 1)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := runREPL(t, tt.input, Options{Quiet: true})
			for _, exp := range tt.expected {
				if !strings.Contains(result, exp) {
					t.Errorf("expected output to contain %q, got:\n%s", exp, result)
				}
			}
		})
	}
}

func TestREPLMultilineInput(t *testing.T) {
	result := runREPL(t, "SELECT\nname\nFROM users\nWHERE id = 2;\n", Options{Quiet: true})
	if !strings.Contains(result, "Bob") || !strings.Contains(result, "(1 row)") {
		t.Errorf("multiline SELECT should be processed, got:\n%s", result)
	}
}

func TestREPLRunsTrailingStatementAtEOF(t *testing.T) {
	result := runREPL(t, "SELECT COUNT(*) FROM users", Options{Quiet: true})
	if !strings.Contains(result, "(1 row)") {
		t.Errorf("statement without semicolon should run at EOF, got:\n%s", result)
	}
}

func TestREPLSeveralStatementsOnOneLine(t *testing.T) {
	result := runREPL(t, "DELETE FROM orders; SELECT COUNT(*) FROM orders;\n", Options{Quiet: true})
	if !strings.Contains(result, "1 row affected") || !strings.Contains(result, " 0 ") {
		t.Errorf("both statements should run, got:\n%s", result)
	}
}

func TestREPLReset(t *testing.T) {
	result := runREPL(t, "DELETE FROM orders;\n\\reset\nSELECT COUNT(*) AS n FROM orders;\n", Options{Quiet: true})
	if !strings.Contains(result, "Session reset from seed \"shop\"") {
		t.Errorf("expected reset confirmation, got:\n%s", result)
	}
	if !strings.Contains(result, " 1 ") {
		t.Errorf("reset should restore the seeded order, got:\n%s", result)
	}
}

func TestREPLQuitStopsReading(t *testing.T) {
	result := runREPL(t, "\\q\nSELECT name FROM users;\n", Options{})
	if strings.Contains(result, "Alice") {
		t.Errorf("input after \\q must be ignored, got:\n%s", result)
	}
	if !strings.Contains(result, "Goodbye") {
		t.Error("expected goodbye message on exit")
	}
}

func TestREPLWelcomeBanner(t *testing.T) {
	result := runREPL(t, "", Options{Prompt: "db> "})
	if !strings.Contains(result, "sandboxdb "+Version) || !strings.Contains(result, `seed "shop"`) {
		t.Errorf("expected welcome banner, got:\n%s", result)
	}
	if !strings.Contains(result, "db> ") {
		t.Errorf("expected custom prompt, got:\n%s", result)
	}
}

func TestREPLJSONFormat(t *testing.T) {
	result := runREPL(t, "\\format json\nSELECT id FROM users;\nINSERT INTO users VALUES (1, 'X', 'Y');\n", Options{Quiet: true})
	lines := strings.Split(strings.TrimSpace(result), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got:\n%s", result)
	}

	var rows struct {
		Columns []string `json:"columns"`
		Rows    [][]any  `json:"rows"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &rows); err != nil {
		t.Fatalf("rows line is not JSON: %v", err)
	}
	if len(rows.Rows) != 2 || rows.Columns[0] != "id" {
		t.Errorf("unexpected rows payload: %+v", rows)
	}

	var failure struct {
		Error sql.ErrorReport `json:"error"`
	}
	if err := json.Unmarshal([]byte(lines[2]), &failure); err != nil {
		t.Fatalf("error line is not JSON: %v", err)
	}
	if failure.Error.Kind != "ConstraintError" || failure.Error.Code != "UniqueViolation" {
		t.Errorf("unexpected error payload: %+v", failure.Error)
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("JSON"); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat(JSON) = %v, %v", f, err)
	}
	if f, err := ParseFormat(""); err != nil || f != FormatTable {
		t.Errorf("ParseFormat(\"\") = %v, %v", f, err)
	}
	if _, err := ParseFormat("csv"); err == nil {
		t.Error("expected error for csv")
	}
}

func TestPrinterTruncatesWideColumns(t *testing.T) {
	var out bytes.Buffer
	p := &Printer{Out: &out, MaxWidth: 6}
	p.printTable([]string{"word"}, [][]string{{"extraordinary"}, {"héllo"}})
	if !strings.Contains(out.String(), " ext... ") {
		t.Errorf("expected truncated cell, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), " héllo  ") {
		t.Errorf("expected rune-aware padding, got:\n%s", out.String())
	}
}

func TestPrintErrorWithoutCode(t *testing.T) {
	var out bytes.Buffer
	p := &Printer{Out: &out}
	p.PrintError(sql.ErrNotInitialized)
	if !strings.Contains(out.String(), "Error [NotInitialized]") {
		t.Errorf("got %q", out.String())
	}
	out.Reset()
	p.PrintError(errors.New("boom"))
	if !strings.Contains(out.String(), "Error [InternalError]: boom") {
		t.Errorf("got %q", out.String())
	}
}

func TestVersion(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
}
