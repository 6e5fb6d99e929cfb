package storage

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTypeMismatch is returned when a value cannot be stored in its column.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrRowArity is returned when a row has the wrong number of values.
	ErrRowArity = errors.New("row arity mismatch")
)

// ConstraintCode identifies which constraint a mutation violated.
type ConstraintCode int

const (
	NotNullViolation ConstraintCode = iota + 1
	UniqueViolation
	ForeignKeyViolation
)

// String returns the code name.
func (c ConstraintCode) String() string {
	switch c {
	case NotNullViolation:
		return "NotNullViolation"
	case UniqueViolation:
		return "UniqueViolation"
	case ForeignKeyViolation:
		return "ForeignKeyViolation"
	default:
		return "UnknownConstraint"
	}
}

// ConstraintError reports a rejected INSERT, UPDATE or DELETE.
// The statement that produced it left every table unchanged.
type ConstraintError struct {
	Code    ConstraintCode
	Table   string
	Columns []string
	Detail  string
}

func (e *ConstraintError) Error() string {
	var kind string
	switch e.Code {
	case NotNullViolation:
		kind = "NOT NULL"
	case UniqueViolation:
		kind = "UNIQUE"
	case ForeignKeyViolation:
		kind = "FOREIGN KEY"
	default:
		kind = "unknown"
	}
	msg := fmt.Sprintf("%s constraint failed: %s.%s", kind, e.Table, strings.Join(e.Columns, ", "))
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}
