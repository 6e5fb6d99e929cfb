package sql

import (
	"errors"
	"reflect"
	"testing"
)

// TestLexer verifies the tokenizer works correctly.
func TestLexer(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []TokenType
	}{
		{
			name:     "simple select",
			input:    "SELECT * FROM users",
			expected: []TokenType{TOKEN_SELECT, TOKEN_STAR, TOKEN_FROM, TOKEN_IDENT, TOKEN_EOF},
		},
		{
			name:     "keywords are case-insensitive",
			input:    "select Id from Users where ID = 1",
			expected: []TokenType{TOKEN_SELECT, TOKEN_IDENT, TOKEN_FROM, TOKEN_IDENT, TOKEN_WHERE, TOKEN_IDENT, TOKEN_EQ, TOKEN_INT, TOKEN_EOF},
		},
		{
			name:     "insert statement",
			input:    "INSERT INTO users VALUES (1, 'alice', 2.5)",
			expected: []TokenType{TOKEN_INSERT, TOKEN_INTO, TOKEN_IDENT, TOKEN_VALUES, TOKEN_LPAREN, TOKEN_INT, TOKEN_COMMA, TOKEN_STRING, TOKEN_COMMA, TOKEN_REAL, TOKEN_RPAREN, TOKEN_EOF},
		},
		{
			name:     "type names are identifiers",
			input:    "CREATE TABLE users (id INT PRIMARY KEY)",
			expected: []TokenType{TOKEN_CREATE, TOKEN_TABLE, TOKEN_IDENT, TOKEN_LPAREN, TOKEN_IDENT, TOKEN_IDENT, TOKEN_PRIMARY, TOKEN_KEY, TOKEN_RPAREN, TOKEN_EOF},
		},
		{
			name:     "comparison operators",
			input:    "a > 1 AND b < 2 OR c >= 3 AND d <= 4 AND e <> 5 AND f != 6",
			expected: []TokenType{TOKEN_IDENT, TOKEN_GT, TOKEN_INT, TOKEN_AND, TOKEN_IDENT, TOKEN_LT, TOKEN_INT, TOKEN_OR, TOKEN_IDENT, TOKEN_GE, TOKEN_INT, TOKEN_AND, TOKEN_IDENT, TOKEN_LE, TOKEN_INT, TOKEN_AND, TOKEN_IDENT, TOKEN_NE, TOKEN_INT, TOKEN_AND, TOKEN_IDENT, TOKEN_NE, TOKEN_INT, TOKEN_EOF},
		},
		{
			name:     "comments are discarded",
			input:    "SELECT -- the name\n name /* block */ FROM t;",
			expected: []TokenType{TOKEN_SELECT, TOKEN_IDENT, TOKEN_FROM, TOKEN_IDENT, TOKEN_SEMICOLON, TOKEN_EOF},
		},
		{
			name:     "qualified column",
			input:    "u.name",
			expected: []TokenType{TOKEN_IDENT, TOKEN_DOT, TOKEN_IDENT, TOKEN_EOF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Tokenize(tt.input)
			if err != nil {
				t.Fatalf("Tokenize(%q) error: %v", tt.input, err)
			}
			var got []TokenType
			for _, tok := range tokens {
				got = append(got, tok.Type)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("got tokens: %v", got)
				t.Errorf("expected:   %v", tt.expected)
			}
		})
	}
}

func TestLexerLiterals(t *testing.T) {
	tokens, err := Tokenize(`'it''s' 42 3.25 .5 1e3 "Order"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []struct {
		typ TokenType
		lit string
		pos int
	}{
		{TOKEN_STRING, "it's", 0},
		{TOKEN_INT, "42", 8},
		{TOKEN_REAL, "3.25", 11},
		{TOKEN_REAL, ".5", 16},
		{TOKEN_REAL, "1e3", 19},
		{TOKEN_IDENT, "Order", 23},
	}
	for i, w := range want {
		if tokens[i].Type != w.typ || tokens[i].Literal != w.lit || tokens[i].Pos != w.pos {
			t.Errorf("token[%d] = %v %q @%d, want %v %q @%d", i, tokens[i].Type, tokens[i].Literal, tokens[i].Pos, w.typ, w.lit, w.pos)
		}
	}
}

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		pos   int
	}{
		{"unterminated string", "SELECT 'abc", 7},
		{"unknown character", "SELECT # FROM t", 7},
		{"unterminated block comment", "SELECT /* x", 7},
		{"malformed number", "SELECT 12abc", 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.input)
			var lexErr *LexError
			if !errors.As(err, &lexErr) {
				t.Fatalf("expected LexError, got %v", err)
			}
			if lexErr.Position != tt.pos {
				t.Errorf("position = %d, want %d", lexErr.Position, tt.pos)
			}
		})
	}
}

// TestParser verifies the parser accepts and rejects statements.
func TestParser(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "simple select", input: "SELECT * FROM users;", wantErr: false},
		{name: "select with where", input: "SELECT id, name FROM users WHERE id = 1;", wantErr: false},
		{name: "insert single", input: "INSERT INTO users VALUES (1, 'alice');", wantErr: false},
		{name: "insert multi", input: "INSERT INTO users (id, name) VALUES (1, 'alice'), (2, 'bob')", wantErr: false},
		{name: "create table", input: "CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR(20) NOT NULL, score REAL DEFAULT -1.5);", wantErr: false},
		{name: "create with table constraints", input: "CREATE TABLE o (id INT, uid INT, PRIMARY KEY (id), UNIQUE (uid), FOREIGN KEY (uid) REFERENCES users(id))", wantErr: false},
		{name: "drop table", input: "DROP TABLE IF EXISTS users;", wantErr: false},
		{name: "update", input: "UPDATE users SET name = 'bob', score = score + 1 WHERE id = 1;", wantErr: false},
		{name: "delete", input: "DELETE FROM users WHERE id = 1;", wantErr: false},
		{name: "delete all", input: "DELETE FROM users;", wantErr: false},
		{name: "join", input: "SELECT u.name, o.amount FROM users u LEFT JOIN orders AS o ON u.id = o.user_id", wantErr: false},
		{name: "group order limit", input: "SELECT city, COUNT(*) AS n FROM users GROUP BY city ORDER BY n DESC, city LIMIT 5 OFFSET 1", wantErr: false},
		{name: "predicates", input: "SELECT * FROM t WHERE a IS NOT NULL AND b IN (1, 2) AND c NOT LIKE 'x%' AND d BETWEEN 1 AND 3", wantErr: false},
		{name: "explain", input: "EXPLAIN SELECT * FROM t", wantErr: false},
		{name: "missing from", input: "SELECT name ( FROM users", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "unknown type", input: "CREATE TABLE t (a BLOB)", wantErr: true},
		{name: "trailing garbage", input: "SELECT * FROM t x y", wantErr: true},
		{name: "two primary key clauses", input: "CREATE TABLE t (a INT, PRIMARY KEY (a), PRIMARY KEY (a))", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Parse(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestParseErrorMessage(t *testing.T) {
	_, err := Parse("SELECT name ( FROM users")
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if perr.Expected != "FROM" || perr.Found != "'('" || perr.Position != 12 {
		t.Errorf("got %+v", perr)
	}
	if got, want := perr.Error(), "expected FROM, found '(' at position 12"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	_, err = Parse("SELECT * FROM")
	if !errors.As(err, &perr) || perr.Found != "end of input" {
		t.Errorf("expected end of input, got %v", err)
	}

	_, err = Parse("CREATE TABLE select (a INT)")
	if !errors.As(err, &perr) || perr.Found != "keyword 'select'" {
		t.Errorf("expected reserved word to be named, got %v", err)
	}
}

func TestParseTokensMatchesParse(t *testing.T) {
	tokens, err := Tokenize("SELECT id FROM users WHERE id = 1;")
	if err != nil {
		t.Fatalf("Tokenize error: %v", err)
	}
	fromTokens, err := ParseTokens(tokens)
	if err != nil {
		t.Fatalf("ParseTokens error: %v", err)
	}
	fromText, err := Parse("SELECT id FROM users WHERE id = 1;")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if !reflect.DeepEqual(fromTokens, fromText) {
		t.Errorf("ParseTokens = %+v, Parse = %+v", fromTokens, fromText)
	}
}

func TestParseRejectsMultipleStatements(t *testing.T) {
	_, err := Parse("SELECT * FROM a; SELECT * FROM b")
	if !errors.Is(err, ErrMultipleStatements) {
		t.Fatalf("expected ErrMultipleStatements, got %v", err)
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %T", err)
	}

	if _, err := Parse("SELECT * FROM a;"); err != nil {
		t.Errorf("trailing semicolon rejected: %v", err)
	}
}

func TestParseSelectShape(t *testing.T) {
	stmt, err := Parse("SELECT DISTINCT u.*, name AS n, COUNT(DISTINCT city) FROM users u JOIN orders o ON u.id = o.user_id WHERE NOT a = 1 OR b = 2 GROUP BY name ORDER BY n DESC LIMIT 3")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	sel, ok := stmt.(*SelectStmt)
	if !ok {
		t.Fatalf("got %T", stmt)
	}
	if !sel.Distinct || len(sel.Columns) != 3 {
		t.Fatalf("columns: %+v", sel.Columns)
	}
	if !sel.Columns[0].Star || sel.Columns[0].StarTable != "u" {
		t.Errorf("star column: %+v", sel.Columns[0])
	}
	if sel.Columns[1].Alias != "n" {
		t.Errorf("alias: %+v", sel.Columns[1])
	}
	if agg, ok := sel.Columns[2].Expr.(*AggregateFunc); !ok || !agg.Distinct || agg.Func != TOKEN_COUNT {
		t.Errorf("aggregate: %#v", sel.Columns[2].Expr)
	}
	if sel.From.RefName() != "u" || len(sel.Joins) != 1 || sel.Joins[0].Kind != JoinInner {
		t.Errorf("from/join: %+v %+v", sel.From, sel.Joins)
	}
	if got := exprToString(sel.Where); got != "NOT a = 1 OR b = 2" {
		t.Errorf("where = %q", got)
	}
	if sel.Limit == nil || *sel.Limit != 3 || !sel.OrderBy[0].Desc {
		t.Errorf("order/limit: %+v %v", sel.OrderBy, sel.Limit)
	}
}

func TestExprToStringPrecedence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"SELECT (a + b) * c FROM t", "(a + b) * c"},
		{"SELECT a - (b - c) FROM t", "a - (b - c)"},
		{"SELECT a * b + c FROM t", "a * b + c"},
		{"SELECT -5 FROM t", "-5"},
		{"SELECT 'it''s' FROM t", "'it''s'"},
	}
	for _, tt := range tests {
		stmt, err := Parse(tt.input)
		if err != nil {
			t.Fatalf("parse %q: %v", tt.input, err)
		}
		got := exprToString(stmt.(*SelectStmt).Columns[0].Expr)
		if got != tt.want {
			t.Errorf("%q: got %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSplitStatements(t *testing.T) {
	got, err := SplitStatements("CREATE TABLE t (a TEXT);\n INSERT INTO t VALUES ('x;y'); -- done;\n;SELECT * FROM t")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	want := []string{"CREATE TABLE t (a TEXT)", "INSERT INTO t VALUES ('x;y')", "SELECT * FROM t"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}

	if _, err := SplitStatements("SELECT 'open"); err == nil {
		t.Error("expected error for unterminated string")
	}
}
