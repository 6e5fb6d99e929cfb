package sql

import (
	"errors"
	"fmt"

	"github.com/sqlsandbox/sandboxdb/pkg/storage"
)

var (
	// ErrNotInitialized is returned when a session is used before Reset succeeds.
	ErrNotInitialized = errors.New("session not initialized: call Reset first")
	// ErrMultipleStatements is wrapped by the ParseError raised when one call
	// contains more than one statement.
	ErrMultipleStatements = errors.New("only one statement may be executed per call")
)

// LexError reports malformed input at the character level.
type LexError struct {
	Position int
	Message  string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("%s at position %d", e.Message, e.Position)
}

// ParseError reports a grammar violation at a token.
type ParseError struct {
	Position int
	Expected string
	Found    string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: found %s at position %d", e.Err, e.Found, e.Position)
	}
	return fmt.Sprintf("expected %s, found %s at position %d", e.Expected, e.Found, e.Position)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// BindCode classifies semantic errors found before execution.
type BindCode int

const (
	UnknownTable BindCode = iota + 1
	UnknownColumn
	AmbiguousColumn
	TypeMismatch
	InvalidGrouping
	DuplicateTable
	DuplicateColumn
	ArityMismatch
	InvalidConstraint
)

var bindCodeNames = map[BindCode]string{
	UnknownTable:      "UnknownTable",
	UnknownColumn:     "UnknownColumn",
	AmbiguousColumn:   "AmbiguousColumn",
	TypeMismatch:      "TypeMismatch",
	InvalidGrouping:   "InvalidGrouping",
	DuplicateTable:    "DuplicateTable",
	DuplicateColumn:   "DuplicateColumn",
	ArityMismatch:     "ArityMismatch",
	InvalidConstraint: "InvalidConstraint",
}

func (c BindCode) String() string {
	if name, ok := bindCodeNames[c]; ok {
		return name
	}
	return "UnknownBindError"
}

// BindError reports a statement that is well-formed but meaningless against
// the current catalog.
type BindError struct {
	Code    BindCode
	Message string
	Err     error
}

func (e *BindError) Error() string {
	return e.Message
}

func (e *BindError) Unwrap() error {
	return e.Err
}

func bindErrorf(code BindCode, format string, args ...any) *BindError {
	return &BindError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ExecCode classifies runtime evaluation errors.
type ExecCode int

const (
	DivisionByZero ExecCode = iota + 1
	TypeCoercionFailure
	IntegerOverflow
	RealOverflow
)

func (c ExecCode) String() string {
	switch c {
	case DivisionByZero:
		return "DivisionByZero"
	case TypeCoercionFailure:
		return "TypeCoercionFailure"
	case IntegerOverflow:
		return "IntegerOverflow"
	case RealOverflow:
		return "RealOverflow"
	default:
		return "UnknownExecError"
	}
}

// ExecError reports a value-dependent failure during execution.
type ExecError struct {
	Code    ExecCode
	Message string
	Err     error
}

func (e *ExecError) Error() string {
	return e.Message
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

func execErrorf(code ExecCode, format string, args ...any) *ExecError {
	return &ExecError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ConstraintError is raised by the storage engine when a mutation would break
// a NOT NULL, UNIQUE/PRIMARY KEY or FOREIGN KEY constraint.
type ConstraintError = storage.ConstraintError

// ErrorKind is the top-level category of an engine error.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindLex
	KindParse
	KindBind
	KindConstraint
	KindExec
	KindNotInitialized
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return ""
	case KindLex:
		return "LexError"
	case KindParse:
		return "ParseError"
	case KindBind:
		return "BindError"
	case KindConstraint:
		return "ConstraintError"
	case KindExec:
		return "ExecError"
	case KindNotInitialized:
		return "NotInitialized"
	default:
		return "InternalError"
	}
}

// KindOf classifies an error returned by the engine.
func KindOf(err error) ErrorKind {
	var (
		lexErr   *LexError
		parseErr *ParseError
		bindErr  *BindError
		consErr  *ConstraintError
		execErr  *ExecError
	)
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNotInitialized):
		return KindNotInitialized
	case errors.As(err, &lexErr):
		return KindLex
	case errors.As(err, &parseErr):
		return KindParse
	case errors.As(err, &bindErr):
		return KindBind
	case errors.As(err, &consErr):
		return KindConstraint
	case errors.As(err, &execErr):
		return KindExec
	default:
		return KindInternal
	}
}

// ErrorReport is the host-facing view of an engine error.
type ErrorReport struct {
	Kind     string `json:"kind"`
	Code     string `json:"code,omitempty"`
	Message  string `json:"message"`
	Position *int   `json:"position,omitempty"`
	Token    string `json:"token,omitempty"`
}

// Report converts an error into an ErrorReport.
func Report(err error) ErrorReport {
	if err == nil {
		return ErrorReport{}
	}
	r := ErrorReport{Kind: KindOf(err).String(), Message: err.Error()}
	var (
		lexErr   *LexError
		parseErr *ParseError
		bindErr  *BindError
		consErr  *ConstraintError
		execErr  *ExecError
	)
	switch {
	case errors.As(err, &lexErr):
		pos := lexErr.Position
		r.Position = &pos
	case errors.As(err, &parseErr):
		pos := parseErr.Position
		r.Position = &pos
		r.Token = parseErr.Found
		if errors.Is(err, ErrMultipleStatements) {
			r.Code = "MultipleStatements"
		}
	case errors.As(err, &bindErr):
		r.Code = bindErr.Code.String()
	case errors.As(err, &consErr):
		r.Code = consErr.Code.String()
	case errors.As(err, &execErr):
		r.Code = execErr.Code.String()
	}
	return r
}
