package sql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sqlsandbox/sandboxdb/pkg/catalog"
)

// Parser parses one SQL statement from a token stream.
type Parser struct {
	tokens []Token
	idx    int
	cur    Token
	peek   Token
}

// NewParser creates a parser over tokens produced by Tokenize.
func NewParser(tokens []Token) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != TOKEN_EOF {
		end := 0
		if len(tokens) > 0 {
			end = tokens[len(tokens)-1].Pos + len([]rune(tokens[len(tokens)-1].Literal))
		}
		tokens = append(tokens, Token{Type: TOKEN_EOF, Pos: end})
	}
	p := &Parser{tokens: tokens, idx: -1}
	// Read two tokens to initialize cur and peek
	p.nextToken()
	return p
}

// Parse tokenizes and parses a single SQL statement.
func Parse(input string) (Statement, error) {
	tokens, err := Tokenize(input)
	if err != nil {
		return nil, err
	}
	return ParseTokens(tokens)
}

func (p *Parser) nextToken() {
	if p.idx < len(p.tokens)-1 {
		p.idx++
	}
	p.cur = p.tokens[p.idx]
	if p.idx+1 < len(p.tokens) {
		p.peek = p.tokens[p.idx+1]
	} else {
		p.peek = p.cur
	}
}

func (p *Parser) curTokenIs(t TokenType) bool {
	return p.cur.Type == t
}

func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peek.Type == t
}

func describeToken(tok Token) string {
	if tok.Type == TOKEN_EOF {
		return "end of input"
	}
	if tok.Type == TOKEN_STRING {
		return "'" + strings.ReplaceAll(tok.Literal, "'", "''") + "'"
	}
	if tok.Type.IsKeyword() {
		return "keyword '" + tok.Literal + "'"
	}
	return "'" + tok.Literal + "'"
}

func (p *Parser) errorf(expected string) *ParseError {
	return &ParseError{Position: p.cur.Pos, Expected: expected, Found: describeToken(p.cur)}
}

func (p *Parser) expect(t TokenType) error {
	if p.curTokenIs(t) {
		p.nextToken()
		return nil
	}
	return p.errorf(t.String())
}

// accept consumes the current token if it has type t.
func (p *Parser) accept(t TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	return false
}

// Parse parses a single SQL statement. A trailing semicolon is allowed;
// anything after it is rejected with ErrMultipleStatements.
func (p *Parser) Parse() (Statement, error) {
	var (
		stmt Statement
		err  error
	)
	switch p.cur.Type {
	case TOKEN_SELECT:
		stmt, err = p.parseSelect()
	case TOKEN_INSERT:
		stmt, err = p.parseInsert()
	case TOKEN_UPDATE:
		stmt, err = p.parseUpdate()
	case TOKEN_DELETE:
		stmt, err = p.parseDelete()
	case TOKEN_CREATE:
		stmt, err = p.parseCreate()
	case TOKEN_DROP:
		stmt, err = p.parseDrop()
	case TOKEN_EXPLAIN:
		stmt, err = p.parseExplain()
	default:
		return nil, p.errorf("SELECT, INSERT, UPDATE, DELETE, CREATE, DROP or EXPLAIN")
	}
	if err != nil {
		return nil, err
	}

	sawSemicolon := false
	for p.accept(TOKEN_SEMICOLON) {
		sawSemicolon = true
	}
	if !p.curTokenIs(TOKEN_EOF) {
		perr := p.errorf("end of input")
		if sawSemicolon {
			perr.Err = ErrMultipleStatements
		}
		return nil, perr
	}
	return stmt, nil
}

func (p *Parser) parseIdentifier(what string) (string, error) {
	if !p.curTokenIs(TOKEN_IDENT) {
		return "", p.errorf(what)
	}
	name := p.cur.Literal
	p.nextToken()
	return name, nil
}

func (p *Parser) parseIdentifierList(what string) ([]string, error) {
	if err := p.expect(TOKEN_LPAREN); err != nil {
		return nil, err
	}
	var names []string
	for {
		name, err := p.parseIdentifier(what)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
		if !p.accept(TOKEN_COMMA) {
			break
		}
	}
	if err := p.expect(TOKEN_RPAREN); err != nil {
		return nil, err
	}
	return names, nil
}

// parseSelect parses
// SELECT [DISTINCT] cols FROM t [joins] [WHERE] [GROUP BY] [ORDER BY] [LIMIT [OFFSET]].
func (p *Parser) parseSelect() (*SelectStmt, error) {
	p.nextToken() // consume SELECT
	stmt := &SelectStmt{}

	if p.accept(TOKEN_DISTINCT) {
		stmt.Distinct = true
	}

	cols, err := p.parseSelectColumns()
	if err != nil {
		return nil, err
	}
	stmt.Columns = cols

	if err := p.expect(TOKEN_FROM); err != nil {
		return nil, err
	}
	if stmt.From, err = p.parseTableRef(); err != nil {
		return nil, err
	}

	for p.curTokenIs(TOKEN_JOIN) || p.curTokenIs(TOKEN_INNER) || p.curTokenIs(TOKEN_LEFT) {
		join, err := p.parseJoinClause()
		if err != nil {
			return nil, err
		}
		stmt.Joins = append(stmt.Joins, join)
	}

	if p.accept(TOKEN_WHERE) {
		if stmt.Where, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}

	if p.accept(TOKEN_GROUP) {
		if err := p.expect(TOKEN_BY); err != nil {
			return nil, err
		}
		for {
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			stmt.GroupBy = append(stmt.GroupBy, expr)
			if !p.accept(TOKEN_COMMA) {
				break
			}
		}
	}

	if p.accept(TOKEN_ORDER) {
		if err := p.expect(TOKEN_BY); err != nil {
			return nil, err
		}
		if stmt.OrderBy, err = p.parseOrderByList(); err != nil {
			return nil, err
		}
	}

	if p.accept(TOKEN_LIMIT) {
		if stmt.Limit, err = p.parseCount("LIMIT"); err != nil {
			return nil, err
		}
		if p.accept(TOKEN_OFFSET) {
			if stmt.Offset, err = p.parseCount("OFFSET"); err != nil {
				return nil, err
			}
		}
	}

	return stmt, nil
}

func (p *Parser) parseCount(clause string) (*int64, error) {
	if !p.curTokenIs(TOKEN_INT) {
		return nil, p.errorf("non-negative integer after " + clause)
	}
	n, err := strconv.ParseInt(p.cur.Literal, 10, 64)
	if err != nil {
		return nil, p.errorf("non-negative integer after " + clause)
	}
	p.nextToken()
	return &n, nil
}

func (p *Parser) parseSelectColumns() ([]SelectColumn, error) {
	var cols []SelectColumn
	for {
		col, err := p.parseSelectColumn()
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
		if !p.accept(TOKEN_COMMA) {
			return cols, nil
		}
	}
}

func (p *Parser) parseSelectColumn() (SelectColumn, error) {
	if p.accept(TOKEN_STAR) {
		return SelectColumn{Star: true}, nil
	}
	if p.curTokenIs(TOKEN_IDENT) && p.peekTokenIs(TOKEN_DOT) {
		idx := p.idx
		if p.idx+2 < len(p.tokens) && p.tokens[idx+2].Type == TOKEN_STAR {
			table := p.cur.Literal
			p.nextToken() // table
			p.nextToken() // .
			p.nextToken() // *
			return SelectColumn{Star: true, StarTable: table}, nil
		}
	}
	if p.curTokenIs(TOKEN_FROM) || p.curTokenIs(TOKEN_EOF) {
		return SelectColumn{}, p.errorf("column, expression or '*'")
	}

	expr, err := p.parseExpression()
	if err != nil {
		return SelectColumn{}, err
	}
	col := SelectColumn{Expr: expr}
	if alias, ok, err := p.parseAlias(); err != nil {
		return SelectColumn{}, err
	} else if ok {
		col.Alias = alias
	}
	return col, nil
}

// parseAlias parses an optional [AS] alias.
func (p *Parser) parseAlias() (string, bool, error) {
	if p.accept(TOKEN_AS) {
		name, err := p.parseIdentifier("alias")
		return name, err == nil, err
	}
	if p.curTokenIs(TOKEN_IDENT) {
		name := p.cur.Literal
		p.nextToken()
		return name, true, nil
	}
	return "", false, nil
}

func (p *Parser) parseTableRef() (TableRef, error) {
	name, err := p.parseIdentifier("table name")
	if err != nil {
		return TableRef{}, err
	}
	ref := TableRef{Name: name}
	alias, ok, err := p.parseAlias()
	if err != nil {
		return TableRef{}, err
	}
	if ok {
		ref.Alias = alias
	}
	return ref, nil
}

// parseJoinClause parses [INNER | LEFT [OUTER]] JOIN table [alias] ON expr.
func (p *Parser) parseJoinClause() (JoinClause, error) {
	join := JoinClause{Kind: JoinInner}
	switch {
	case p.accept(TOKEN_INNER):
	case p.accept(TOKEN_LEFT):
		join.Kind = JoinLeft
		p.accept(TOKEN_OUTER)
	}
	if err := p.expect(TOKEN_JOIN); err != nil {
		return JoinClause{}, err
	}
	ref, err := p.parseTableRef()
	if err != nil {
		return JoinClause{}, err
	}
	join.Table = ref
	if err := p.expect(TOKEN_ON); err != nil {
		return JoinClause{}, err
	}
	if join.On, err = p.parseExpression(); err != nil {
		return JoinClause{}, err
	}
	return join, nil
}

func (p *Parser) parseOrderByList() ([]OrderByClause, error) {
	var clauses []OrderByClause
	for {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		ob := OrderByClause{Expr: expr}
		if p.accept(TOKEN_DESC) {
			ob.Desc = true
		} else {
			p.accept(TOKEN_ASC)
		}
		clauses = append(clauses, ob)
		if !p.accept(TOKEN_COMMA) {
			return clauses, nil
		}
	}
}

// parseInsert parses INSERT INTO t [(cols)] VALUES (...), (...).
func (p *Parser) parseInsert() (*InsertStmt, error) {
	p.nextToken() // consume INSERT
	if err := p.expect(TOKEN_INTO); err != nil {
		return nil, err
	}
	name, err := p.parseIdentifier("table name")
	if err != nil {
		return nil, err
	}
	stmt := &InsertStmt{TableName: name}

	if p.curTokenIs(TOKEN_LPAREN) {
		if stmt.Columns, err = p.parseIdentifierList("column name"); err != nil {
			return nil, err
		}
	}

	if err := p.expect(TOKEN_VALUES); err != nil {
		return nil, err
	}
	for {
		if err := p.expect(TOKEN_LPAREN); err != nil {
			return nil, err
		}
		var row []Expression
		for {
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			row = append(row, expr)
			if !p.accept(TOKEN_COMMA) {
				break
			}
		}
		if err := p.expect(TOKEN_RPAREN); err != nil {
			return nil, err
		}
		stmt.Rows = append(stmt.Rows, row)
		if !p.accept(TOKEN_COMMA) {
			return stmt, nil
		}
	}
}

// parseUpdate parses UPDATE t SET col = expr, ... [WHERE expr].
func (p *Parser) parseUpdate() (*UpdateStmt, error) {
	p.nextToken() // consume UPDATE
	name, err := p.parseIdentifier("table name")
	if err != nil {
		return nil, err
	}
	stmt := &UpdateStmt{TableName: name}
	if err := p.expect(TOKEN_SET); err != nil {
		return nil, err
	}
	for {
		col, err := p.parseIdentifier("column name")
		if err != nil {
			return nil, err
		}
		if err := p.expect(TOKEN_EQ); err != nil {
			return nil, err
		}
		val, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		stmt.Assignments = append(stmt.Assignments, Assignment{Column: col, Value: val})
		if !p.accept(TOKEN_COMMA) {
			break
		}
	}
	if p.accept(TOKEN_WHERE) {
		if stmt.Where, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

// parseDelete parses DELETE FROM t [WHERE expr].
func (p *Parser) parseDelete() (*DeleteStmt, error) {
	p.nextToken() // consume DELETE
	if err := p.expect(TOKEN_FROM); err != nil {
		return nil, err
	}
	name, err := p.parseIdentifier("table name")
	if err != nil {
		return nil, err
	}
	stmt := &DeleteStmt{TableName: name}
	if p.accept(TOKEN_WHERE) {
		if stmt.Where, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func (p *Parser) parseDrop() (*DropTableStmt, error) {
	p.nextToken() // consume DROP
	if err := p.expect(TOKEN_TABLE); err != nil {
		return nil, err
	}
	stmt := &DropTableStmt{}
	if p.accept(TOKEN_IF) {
		if err := p.expect(TOKEN_EXISTS); err != nil {
			return nil, err
		}
		stmt.IfExists = true
	}
	name, err := p.parseIdentifier("table name")
	if err != nil {
		return nil, err
	}
	stmt.TableName = name
	return stmt, nil
}

func (p *Parser) parseExplain() (*ExplainStmt, error) {
	p.nextToken() // consume EXPLAIN
	if !p.curTokenIs(TOKEN_SELECT) {
		return nil, p.errorf("SELECT")
	}
	sel, err := p.parseSelect()
	if err != nil {
		return nil, err
	}
	return &ExplainStmt{Statement: sel}, nil
}

// parseCreate parses CREATE TABLE [IF NOT EXISTS] name (elements...).
func (p *Parser) parseCreate() (*CreateTableStmt, error) {
	p.nextToken() // consume CREATE
	if err := p.expect(TOKEN_TABLE); err != nil {
		return nil, err
	}
	stmt := &CreateTableStmt{}
	if p.accept(TOKEN_IF) {
		if err := p.expect(TOKEN_NOT); err != nil {
			return nil, err
		}
		if err := p.expect(TOKEN_EXISTS); err != nil {
			return nil, err
		}
		stmt.IfNotExists = true
	}
	name, err := p.parseIdentifier("table name")
	if err != nil {
		return nil, err
	}
	stmt.TableName = name

	if err := p.expect(TOKEN_LPAREN); err != nil {
		return nil, err
	}
	for {
		switch {
		case p.accept(TOKEN_PRIMARY):
			if err := p.expect(TOKEN_KEY); err != nil {
				return nil, err
			}
			if stmt.PrimaryKey != nil {
				return nil, p.errorf("a single PRIMARY KEY clause")
			}
			if stmt.PrimaryKey, err = p.parseIdentifierList("column name"); err != nil {
				return nil, err
			}
		case p.accept(TOKEN_UNIQUE):
			cols, err := p.parseIdentifierList("column name")
			if err != nil {
				return nil, err
			}
			stmt.Uniques = append(stmt.Uniques, cols)
		case p.accept(TOKEN_FOREIGN):
			fk, err := p.parseForeignKeyDef()
			if err != nil {
				return nil, err
			}
			stmt.ForeignKeys = append(stmt.ForeignKeys, fk)
		default:
			col, err := p.parseColumnDef()
			if err != nil {
				return nil, err
			}
			stmt.Columns = append(stmt.Columns, col)
		}
		if !p.accept(TOKEN_COMMA) {
			break
		}
	}
	if err := p.expect(TOKEN_RPAREN); err != nil {
		return nil, err
	}
	return stmt, nil
}

// parseForeignKeyDef parses KEY (col) REFERENCES t [(col)] after FOREIGN.
func (p *Parser) parseForeignKeyDef() (ForeignKeyDef, error) {
	if err := p.expect(TOKEN_KEY); err != nil {
		return ForeignKeyDef{}, err
	}
	cols, err := p.parseIdentifierList("column name")
	if err != nil {
		return ForeignKeyDef{}, err
	}
	if len(cols) != 1 {
		return ForeignKeyDef{}, &ParseError{Position: p.cur.Pos, Expected: "single-column FOREIGN KEY", Found: fmt.Sprintf("%d columns", len(cols))}
	}
	ref, err := p.parseReferences()
	if err != nil {
		return ForeignKeyDef{}, err
	}
	ref.Column = cols[0]
	return ref, nil
}

func (p *Parser) parseReferences() (ForeignKeyDef, error) {
	if err := p.expect(TOKEN_REFERENCES); err != nil {
		return ForeignKeyDef{}, err
	}
	table, err := p.parseIdentifier("referenced table name")
	if err != nil {
		return ForeignKeyDef{}, err
	}
	fk := ForeignKeyDef{RefTable: table}
	if p.curTokenIs(TOKEN_LPAREN) {
		cols, err := p.parseIdentifierList("referenced column name")
		if err != nil {
			return ForeignKeyDef{}, err
		}
		if len(cols) != 1 {
			return ForeignKeyDef{}, &ParseError{Position: p.cur.Pos, Expected: "single referenced column", Found: fmt.Sprintf("%d columns", len(cols))}
		}
		fk.RefColumn = cols[0]
	}
	return fk, nil
}

// parseColumnDef parses name TYPE [(n[,m])] [constraints...].
func (p *Parser) parseColumnDef() (ColumnDef, error) {
	name, err := p.parseIdentifier("column name or table constraint")
	if err != nil {
		return ColumnDef{}, err
	}
	col := ColumnDef{Name: name}

	if !p.curTokenIs(TOKEN_IDENT) {
		return ColumnDef{}, p.errorf("column type")
	}
	dt, ok := catalog.ParseDataType(p.cur.Literal)
	if !ok {
		return ColumnDef{}, p.errorf("column type (INTEGER, REAL, TEXT or BOOLEAN)")
	}
	col.Type = dt
	p.nextToken()
	if p.accept(TOKEN_LPAREN) {
		// Length and precision modifiers are accepted and ignored.
		for {
			if !p.curTokenIs(TOKEN_INT) {
				return ColumnDef{}, p.errorf("integer type modifier")
			}
			p.nextToken()
			if !p.accept(TOKEN_COMMA) {
				break
			}
		}
		if err := p.expect(TOKEN_RPAREN); err != nil {
			return ColumnDef{}, err
		}
	}

	for {
		switch {
		case p.accept(TOKEN_NOT):
			if err := p.expect(TOKEN_NULL); err != nil {
				return ColumnDef{}, err
			}
			col.NotNull = true
		case p.accept(TOKEN_NULL):
		case p.accept(TOKEN_PRIMARY):
			if err := p.expect(TOKEN_KEY); err != nil {
				return ColumnDef{}, err
			}
			col.PrimaryKey = true
		case p.accept(TOKEN_UNIQUE):
			col.Unique = true
		case p.accept(TOKEN_DEFAULT):
			if col.Default, err = p.parseUnaryExpr(); err != nil {
				return ColumnDef{}, err
			}
		case p.curTokenIs(TOKEN_REFERENCES):
			fk, err := p.parseReferences()
			if err != nil {
				return ColumnDef{}, err
			}
			fk.Column = name
			col.References = &fk
		default:
			return col, nil
		}
	}
}

// Expressions, lowest precedence first.

func (p *Parser) parseExpression() (Expression, error) {
	return p.parseOrExpr()
}

func (p *Parser) parseOrExpr() (Expression, error) {
	left, err := p.parseAndExpr()
	if err != nil {
		return nil, err
	}
	for p.accept(TOKEN_OR) {
		right, err := p.parseAndExpr()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Op: TOKEN_OR, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAndExpr() (Expression, error) {
	left, err := p.parseNotExpr()
	if err != nil {
		return nil, err
	}
	for p.accept(TOKEN_AND) {
		right, err := p.parseNotExpr()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Op: TOKEN_AND, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNotExpr() (Expression, error) {
	if p.accept(TOKEN_NOT) {
		expr, err := p.parseNotExpr()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: TOKEN_NOT, Expr: expr}, nil
	}
	return p.parseComparisonExpr()
}

func isComparison(t TokenType) bool {
	switch t {
	case TOKEN_EQ, TOKEN_NE, TOKEN_LT, TOKEN_LE, TOKEN_GT, TOKEN_GE:
		return true
	}
	return false
}

func (p *Parser) parseComparisonExpr() (Expression, error) {
	left, err := p.parseAddExpr()
	if err != nil {
		return nil, err
	}

	if isComparison(p.cur.Type) {
		op := p.cur.Type
		p.nextToken()
		right, err := p.parseAddExpr()
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Left: left, Op: op, Right: right}, nil
	}

	if p.accept(TOKEN_IS) {
		not := p.accept(TOKEN_NOT)
		if err := p.expect(TOKEN_NULL); err != nil {
			return nil, err
		}
		return &IsNullExpr{Expr: left, Not: not}, nil
	}

	not := false
	if p.curTokenIs(TOKEN_NOT) && (p.peekTokenIs(TOKEN_IN) || p.peekTokenIs(TOKEN_LIKE) || p.peekTokenIs(TOKEN_BETWEEN)) {
		p.nextToken()
		not = true
	}

	switch {
	case p.accept(TOKEN_IN):
		if err := p.expect(TOKEN_LPAREN); err != nil {
			return nil, err
		}
		in := &InExpr{Expr: left, Not: not}
		for {
			item, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			in.List = append(in.List, item)
			if !p.accept(TOKEN_COMMA) {
				break
			}
		}
		if err := p.expect(TOKEN_RPAREN); err != nil {
			return nil, err
		}
		return in, nil
	case p.accept(TOKEN_LIKE):
		pattern, err := p.parseAddExpr()
		if err != nil {
			return nil, err
		}
		return &LikeExpr{Expr: left, Pattern: pattern, Not: not}, nil
	case p.accept(TOKEN_BETWEEN):
		low, err := p.parseAddExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TOKEN_AND); err != nil {
			return nil, err
		}
		high, err := p.parseAddExpr()
		if err != nil {
			return nil, err
		}
		return &BetweenExpr{Expr: left, Low: low, High: high, Not: not}, nil
	}

	return left, nil
}

func (p *Parser) parseAddExpr() (Expression, error) {
	left, err := p.parseMulExpr()
	if err != nil {
		return nil, err
	}
	for p.curTokenIs(TOKEN_PLUS) || p.curTokenIs(TOKEN_MINUS) {
		op := p.cur.Type
		p.nextToken()
		right, err := p.parseMulExpr()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Op: op, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMulExpr() (Expression, error) {
	left, err := p.parseUnaryExpr()
	if err != nil {
		return nil, err
	}
	for p.curTokenIs(TOKEN_STAR) || p.curTokenIs(TOKEN_SLASH) || p.curTokenIs(TOKEN_PERCENT) {
		op := p.cur.Type
		p.nextToken()
		right, err := p.parseUnaryExpr()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Op: op, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnaryExpr() (Expression, error) {
	switch {
	case p.curTokenIs(TOKEN_MINUS):
		p.nextToken()
		// Fold negative numeric literals so -9223372036854775808 stays an integer.
		if p.curTokenIs(TOKEN_INT) || p.curTokenIs(TOKEN_REAL) {
			return p.parseNumber("-")
		}
		expr, err := p.parseUnaryExpr()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: TOKEN_MINUS, Expr: expr}, nil
	case p.curTokenIs(TOKEN_PLUS):
		p.nextToken()
		return p.parseUnaryExpr()
	}
	return p.parsePrimaryExpression()
}

func (p *Parser) parseNumber(sign string) (Expression, error) {
	lit := sign + p.cur.Literal
	if p.curTokenIs(TOKEN_INT) {
		n, err := strconv.ParseInt(lit, 10, 64)
		if err != nil {
			return nil, p.errorf("integer within the 64-bit range")
		}
		p.nextToken()
		return &LiteralExpr{Value: catalog.NewInteger(n)}, nil
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return nil, p.errorf("valid number")
	}
	p.nextToken()
	return &LiteralExpr{Value: catalog.NewReal(f)}, nil
}

func (p *Parser) isAggregateToken() bool {
	switch p.cur.Type {
	case TOKEN_COUNT, TOKEN_SUM, TOKEN_AVG, TOKEN_MIN, TOKEN_MAX:
		return true
	}
	return false
}

func (p *Parser) parsePrimaryExpression() (Expression, error) {
	switch p.cur.Type {
	case TOKEN_INT, TOKEN_REAL:
		return p.parseNumber("")
	case TOKEN_STRING:
		v := catalog.NewText(p.cur.Literal)
		p.nextToken()
		return &LiteralExpr{Value: v}, nil
	case TOKEN_TRUE, TOKEN_FALSE:
		v := catalog.NewBoolean(p.curTokenIs(TOKEN_TRUE))
		p.nextToken()
		return &LiteralExpr{Value: v}, nil
	case TOKEN_NULL:
		p.nextToken()
		return &LiteralExpr{Value: catalog.Null(catalog.TypeNull)}, nil
	case TOKEN_IDENT:
		name := p.cur.Literal
		p.nextToken()
		if p.accept(TOKEN_DOT) {
			col, err := p.parseIdentifier("column name")
			if err != nil {
				return nil, err
			}
			return &ColumnRef{Table: name, Name: col}, nil
		}
		return &ColumnRef{Name: name}, nil
	case TOKEN_LPAREN:
		p.nextToken()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TOKEN_RPAREN); err != nil {
			return nil, err
		}
		return expr, nil
	}
	if p.isAggregateToken() {
		return p.parseAggregateExpression()
	}
	return nil, p.errorf("expression")
}

// parseAggregateExpression parses COUNT(*), COUNT([DISTINCT] x), SUM(x), ...
func (p *Parser) parseAggregateExpression() (Expression, error) {
	agg := &AggregateFunc{Func: p.cur.Type}
	p.nextToken()
	if err := p.expect(TOKEN_LPAREN); err != nil {
		return nil, err
	}
	if agg.Func == TOKEN_COUNT && p.accept(TOKEN_STAR) {
		agg.Star = true
	} else {
		agg.Distinct = p.accept(TOKEN_DISTINCT)
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		agg.Arg = arg
	}
	if err := p.expect(TOKEN_RPAREN); err != nil {
		return nil, err
	}
	return agg, nil
}

// SplitStatements splits a script into individual statements on top-level
// semicolons. Semicolons inside string literals and comments do not split.
func SplitStatements(script string) ([]string, error) {
	tokens, err := Tokenize(script)
	if err != nil {
		return nil, err
	}
	text := []rune(script)
	var (
		out   []string
		start = -1
	)
	for _, tok := range tokens {
		switch tok.Type {
		case TOKEN_SEMICOLON, TOKEN_EOF:
			if start >= 0 {
				end := tok.Pos
				if tok.Type == TOKEN_EOF {
					end = len(text)
				}
				if stmt := strings.TrimSpace(string(text[start:end])); stmt != "" {
					out = append(out, stmt)
				}
				start = -1
			}
		default:
			if start < 0 {
				start = tok.Pos
			}
		}
	}
	return out, nil
}

// ParseTokens parses a single statement from an already tokenized input.
func ParseTokens(tokens []Token) (Statement, error) {
	return NewParser(tokens).Parse()
}
