// Package sql provides SQL parsing, binding and execution for sandboxdb.
package sql

import (
	"strings"
	"unicode"
)

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TOKEN_EOF TokenType = iota
	TOKEN_ILLEGAL

	// Literals
	TOKEN_IDENT  // identifiers: table names, column names
	TOKEN_INT    // integer literals
	TOKEN_REAL   // real literals 1.5, .5, 1e3
	TOKEN_STRING // string literals 'hello'

	// Operators and delimiters
	TOKEN_COMMA     // ,
	TOKEN_SEMICOLON // ;
	TOKEN_LPAREN    // (
	TOKEN_RPAREN    // )
	TOKEN_DOT       // .
	TOKEN_STAR      // *
	TOKEN_PLUS      // +
	TOKEN_MINUS     // -
	TOKEN_SLASH     // /
	TOKEN_PERCENT   // %
	TOKEN_EQ        // =
	TOKEN_NE        // != or <>
	TOKEN_LT        // <
	TOKEN_LE        // <=
	TOKEN_GT        // >
	TOKEN_GE        // >=

	// Keywords
	TOKEN_SELECT
	TOKEN_FROM
	TOKEN_WHERE
	TOKEN_JOIN
	TOKEN_INNER
	TOKEN_LEFT
	TOKEN_OUTER
	TOKEN_ON
	TOKEN_GROUP
	TOKEN_BY
	TOKEN_ORDER
	TOKEN_ASC
	TOKEN_DESC
	TOKEN_LIMIT
	TOKEN_OFFSET
	TOKEN_DISTINCT
	TOKEN_INSERT
	TOKEN_INTO
	TOKEN_VALUES
	TOKEN_CREATE
	TOKEN_TABLE
	TOKEN_DROP
	TOKEN_IF
	TOKEN_EXISTS
	TOKEN_PRIMARY
	TOKEN_KEY
	TOKEN_FOREIGN
	TOKEN_REFERENCES
	TOKEN_UNIQUE
	TOKEN_DEFAULT
	TOKEN_NOT
	TOKEN_NULL
	TOKEN_TRUE
	TOKEN_FALSE
	TOKEN_UPDATE
	TOKEN_SET
	TOKEN_DELETE
	TOKEN_AND
	TOKEN_OR
	TOKEN_AS
	TOKEN_IS
	TOKEN_IN
	TOKEN_LIKE
	TOKEN_BETWEEN
	TOKEN_EXPLAIN

	// Aggregate function keywords
	TOKEN_COUNT
	TOKEN_SUM
	TOKEN_AVG
	TOKEN_MIN
	TOKEN_MAX
)

var keywords = map[string]TokenType{
	"SELECT":     TOKEN_SELECT,
	"FROM":       TOKEN_FROM,
	"WHERE":      TOKEN_WHERE,
	"JOIN":       TOKEN_JOIN,
	"INNER":      TOKEN_INNER,
	"LEFT":       TOKEN_LEFT,
	"OUTER":      TOKEN_OUTER,
	"ON":         TOKEN_ON,
	"GROUP":      TOKEN_GROUP,
	"BY":         TOKEN_BY,
	"ORDER":      TOKEN_ORDER,
	"ASC":        TOKEN_ASC,
	"DESC":       TOKEN_DESC,
	"LIMIT":      TOKEN_LIMIT,
	"OFFSET":     TOKEN_OFFSET,
	"DISTINCT":   TOKEN_DISTINCT,
	"INSERT":     TOKEN_INSERT,
	"INTO":       TOKEN_INTO,
	"VALUES":     TOKEN_VALUES,
	"CREATE":     TOKEN_CREATE,
	"TABLE":      TOKEN_TABLE,
	"DROP":       TOKEN_DROP,
	"IF":         TOKEN_IF,
	"EXISTS":     TOKEN_EXISTS,
	"PRIMARY":    TOKEN_PRIMARY,
	"KEY":        TOKEN_KEY,
	"FOREIGN":    TOKEN_FOREIGN,
	"REFERENCES": TOKEN_REFERENCES,
	"UNIQUE":     TOKEN_UNIQUE,
	"DEFAULT":    TOKEN_DEFAULT,
	"NOT":        TOKEN_NOT,
	"NULL":       TOKEN_NULL,
	"TRUE":       TOKEN_TRUE,
	"FALSE":      TOKEN_FALSE,
	"UPDATE":     TOKEN_UPDATE,
	"SET":        TOKEN_SET,
	"DELETE":     TOKEN_DELETE,
	"AND":        TOKEN_AND,
	"OR":         TOKEN_OR,
	"AS":         TOKEN_AS,
	"IS":         TOKEN_IS,
	"IN":         TOKEN_IN,
	"LIKE":       TOKEN_LIKE,
	"BETWEEN":    TOKEN_BETWEEN,
	"EXPLAIN":    TOKEN_EXPLAIN,
	"COUNT":      TOKEN_COUNT,
	"SUM":        TOKEN_SUM,
	"AVG":        TOKEN_AVG,
	"MIN":        TOKEN_MIN,
	"MAX":        TOKEN_MAX,
}

var tokenNames = map[TokenType]string{
	TOKEN_EOF:       "end of input",
	TOKEN_ILLEGAL:   "illegal token",
	TOKEN_IDENT:     "identifier",
	TOKEN_INT:       "integer",
	TOKEN_REAL:      "number",
	TOKEN_STRING:    "string",
	TOKEN_COMMA:     "','",
	TOKEN_SEMICOLON: "';'",
	TOKEN_LPAREN:    "'('",
	TOKEN_RPAREN:    "')'",
	TOKEN_DOT:       "'.'",
	TOKEN_STAR:      "'*'",
	TOKEN_PLUS:      "'+'",
	TOKEN_MINUS:     "'-'",
	TOKEN_SLASH:     "'/'",
	TOKEN_PERCENT:   "'%'",
	TOKEN_EQ:        "'='",
	TOKEN_NE:        "'<>'",
	TOKEN_LT:        "'<'",
	TOKEN_LE:        "'<='",
	TOKEN_GT:        "'>'",
	TOKEN_GE:        "'>='",
}

func init() {
	for word, tt := range keywords {
		tokenNames[tt] = word
	}
}

// String returns the name used for the token type in error messages.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "unknown"
}

// IsKeyword reports whether the token type is a reserved word.
func (t TokenType) IsKeyword() bool {
	return t >= TOKEN_SELECT
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string
	Pos     int // 0-based character offset into the input
}

// Lexer tokenizes SQL input.
type Lexer struct {
	input   []rune
	pos     int  // current position
	readPos int  // next position to read
	ch      rune // current character
	err     *LexError
}

// NewLexer creates a new Lexer for the input string.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: []rune(input)}
	l.readChar()
	return l
}

// Tokenize converts SQL text to a token stream ending with TOKEN_EOF.
func Tokenize(input string) ([]Token, error) {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		if tok.Type == TOKEN_ILLEGAL {
			return nil, l.Err()
		}
		tokens = append(tokens, tok)
		if tok.Type == TOKEN_EOF {
			return tokens, nil
		}
	}
}

// Err returns the error behind the last TOKEN_ILLEGAL.
func (l *Lexer) Err() error {
	if l.err == nil {
		return nil
	}
	return l.err
}

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) atEnd() bool {
	return l.pos >= len(l.input)
}

// skipIgnored consumes whitespace and comments.
func (l *Lexer) skipIgnored() bool {
	for {
		switch {
		case !l.atEnd() && unicode.IsSpace(l.ch):
			l.readChar()
		case l.ch == '-' && l.peekChar() == '-':
			for !l.atEnd() && l.ch != '\n' {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			start := l.pos
			l.readChar()
			l.readChar()
			for !(l.ch == '*' && l.peekChar() == '/') {
				if l.atEnd() {
					l.err = &LexError{Position: start, Message: "unterminated block comment"}
					return false
				}
				l.readChar()
			}
			l.readChar()
			l.readChar()
		default:
			return true
		}
	}
}

func (l *Lexer) illegal(pos int, msg string) Token {
	l.err = &LexError{Position: pos, Message: msg}
	return Token{Type: TOKEN_ILLEGAL, Literal: string(l.input[pos:min(pos+1, len(l.input))]), Pos: pos}
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() Token {
	if !l.skipIgnored() {
		return Token{Type: TOKEN_ILLEGAL, Pos: l.err.Position}
	}

	var tok Token
	tok.Pos = l.pos

	if l.atEnd() {
		tok.Type = TOKEN_EOF
		return tok
	}

	single := func(t TokenType) Token {
		tok := Token{Type: t, Literal: string(l.ch), Pos: l.pos}
		l.readChar()
		return tok
	}
	double := func(t TokenType) Token {
		tok := Token{Type: t, Literal: string([]rune{l.ch, l.peekChar()}), Pos: l.pos}
		l.readChar()
		l.readChar()
		return tok
	}

	switch l.ch {
	case ',':
		return single(TOKEN_COMMA)
	case ';':
		return single(TOKEN_SEMICOLON)
	case '(':
		return single(TOKEN_LPAREN)
	case ')':
		return single(TOKEN_RPAREN)
	case '*':
		return single(TOKEN_STAR)
	case '+':
		return single(TOKEN_PLUS)
	case '-':
		return single(TOKEN_MINUS)
	case '/':
		return single(TOKEN_SLASH)
	case '%':
		return single(TOKEN_PERCENT)
	case '=':
		return single(TOKEN_EQ)
	case '<':
		switch l.peekChar() {
		case '=':
			return double(TOKEN_LE)
		case '>':
			return double(TOKEN_NE)
		}
		return single(TOKEN_LT)
	case '>':
		if l.peekChar() == '=' {
			return double(TOKEN_GE)
		}
		return single(TOKEN_GT)
	case '!':
		if l.peekChar() == '=' {
			return double(TOKEN_NE)
		}
		return l.illegal(l.pos, "unexpected character '!'")
	case '\'':
		return l.readString()
	case '"':
		return l.readQuotedIdentifier()
	case '.':
		if isDigit(l.peekChar()) {
			return l.readNumber()
		}
		return single(TOKEN_DOT)
	}

	switch {
	case isLetter(l.ch):
		tok.Literal = l.readIdentifier()
		tok.Type = lookupKeyword(tok.Literal)
		return tok
	case isDigit(l.ch):
		return l.readNumber()
	default:
		return l.illegal(l.pos, "unexpected character '"+string(l.ch)+"'")
	}
}

func (l *Lexer) readIdentifier() string {
	pos := l.pos
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return string(l.input[pos:l.pos])
}

func (l *Lexer) readNumber() Token {
	start := l.pos
	tt := TOKEN_INT
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' {
		tt = TOKEN_REAL
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		tt = TOKEN_REAL
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		if !isDigit(l.ch) {
			return l.illegal(start, "malformed number: missing exponent digits")
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if isLetter(l.ch) {
		return l.illegal(start, "malformed number "+string(l.input[start:l.pos+1]))
	}
	return Token{Type: tt, Literal: string(l.input[start:l.pos]), Pos: start}
}

// readString reads a single-quoted literal; '' inside it is an escaped quote.
func (l *Lexer) readString() Token {
	start := l.pos
	l.readChar() // consume opening quote
	var sb strings.Builder
	for {
		if l.atEnd() {
			return l.illegal(start, "unterminated string literal")
		}
		if l.ch == '\'' {
			if l.peekChar() == '\'' {
				sb.WriteRune('\'')
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // consume closing quote
			return Token{Type: TOKEN_STRING, Literal: sb.String(), Pos: start}
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
}

func (l *Lexer) readQuotedIdentifier() Token {
	start := l.pos
	l.readChar()
	var sb strings.Builder
	for {
		if l.atEnd() {
			return l.illegal(start, "unterminated quoted identifier")
		}
		if l.ch == '"' {
			if l.peekChar() == '"' {
				sb.WriteRune('"')
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar()
			if sb.Len() == 0 {
				return l.illegal(start, "empty quoted identifier")
			}
			return Token{Type: TOKEN_IDENT, Literal: sb.String(), Pos: start}
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
}

func isLetter(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_'
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func lookupKeyword(ident string) TokenType {
	if tok, ok := keywords[strings.ToUpper(ident)]; ok {
		return tok
	}
	return TOKEN_IDENT
}
