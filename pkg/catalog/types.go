// Package catalog provides the type system, schema definitions, and catalog management.
package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DataType represents a column data type.
type DataType int

const (
	// TypeNull is the type of an untyped NULL literal. Columns never carry it.
	TypeNull DataType = iota
	TypeInteger
	TypeReal
	TypeText
	TypeBoolean
)

// String returns the SQL name of the type.
func (t DataType) String() string {
	switch t {
	case TypeInteger:
		return "INTEGER"
	case TypeReal:
		return "REAL"
	case TypeText:
		return "TEXT"
	case TypeBoolean:
		return "BOOLEAN"
	default:
		return "NULL"
	}
}

// IsNumeric reports whether the type is Integer or Real.
func (t DataType) IsNumeric() bool {
	return t == TypeInteger || t == TypeReal
}

// ParseDataType converts a declared type name to a DataType.
// Length modifiers such as VARCHAR(20) are stripped by the parser before this call.
func ParseDataType(s string) (DataType, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INT", "INTEGER", "BIGINT", "SMALLINT", "TINYINT":
		return TypeInteger, true
	case "REAL", "FLOAT", "DOUBLE", "NUMERIC", "DECIMAL":
		return TypeReal, true
	case "TEXT", "VARCHAR", "CHAR", "STRING", "CLOB":
		return TypeText, true
	case "BOOL", "BOOLEAN":
		return TypeBoolean, true
	default:
		return TypeNull, false
	}
}

// Comparable reports whether values of the two types may be compared.
// An untyped NULL is comparable with everything.
func Comparable(a, b DataType) bool {
	if a == TypeNull || b == TypeNull {
		return true
	}
	if a.IsNumeric() && b.IsNumeric() {
		return true
	}
	return a == b
}

// Value represents a typed value that can be stored in a column.
type Value struct {
	Type   DataType
	IsNull bool
	Int    int64
	Real   float64
	Text   string
	Bool   bool
}

// NewInteger creates an INTEGER value.
func NewInteger(v int64) Value {
	return Value{Type: TypeInteger, Int: v}
}

// NewReal creates a REAL value.
func NewReal(v float64) Value {
	return Value{Type: TypeReal, Real: v}
}

// NewText creates a TEXT value.
func NewText(v string) Value {
	return Value{Type: TypeText, Text: v}
}

// NewBoolean creates a BOOLEAN value.
func NewBoolean(v bool) Value {
	return Value{Type: TypeBoolean, Bool: v}
}

// Null creates a NULL value of the given type.
func Null(t DataType) Value {
	return Value{Type: t, IsNull: true}
}

// AsFloat returns the numeric value widened to float64.
func (v Value) AsFloat() float64 {
	if v.Type == TypeInteger {
		return float64(v.Int)
	}
	return v.Real
}

// String returns a human-readable representation.
func (v Value) String() string {
	if v.IsNull {
		return "NULL"
	}
	switch v.Type {
	case TypeInteger:
		return strconv.FormatInt(v.Int, 10)
	case TypeReal:
		return formatReal(v.Real)
	case TypeText:
		return v.Text
	case TypeBoolean:
		if v.Bool {
			return "true"
		}
		return "false"
	default:
		return "?"
	}
}

// SQL renders the value as a SQL literal.
func (v Value) SQL() string {
	if v.IsNull {
		return "NULL"
	}
	switch v.Type {
	case TypeText:
		return "'" + strings.ReplaceAll(v.Text, "'", "''") + "'"
	case TypeBoolean:
		if v.Bool {
			return "TRUE"
		}
		return "FALSE"
	default:
		return v.String()
	}
}

func formatReal(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// MarshalJSON encodes the value as the host's native type; NULL becomes JSON null.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsNull {
		return []byte("null"), nil
	}
	switch v.Type {
	case TypeInteger:
		return json.Marshal(v.Int)
	case TypeReal:
		return json.Marshal(v.Real)
	case TypeText:
		return json.Marshal(v.Text)
	case TypeBoolean:
		return json.Marshal(v.Bool)
	default:
		return nil, fmt.Errorf("cannot encode value of type %s", v.Type)
	}
}

// Compare orders two non-NULL values of comparable types.
// It returns -1, 0 or 1, and an error when the types cannot be compared.
func (v Value) Compare(other Value) (int, error) {
	switch {
	case v.Type.IsNumeric() && other.Type.IsNumeric():
		if v.Type == TypeInteger && other.Type == TypeInteger {
			return cmpOrdered(v.Int, other.Int), nil
		}
		return cmpOrdered(v.AsFloat(), other.AsFloat()), nil
	case v.Type != other.Type:
		return 0, fmt.Errorf("cannot compare %s with %s", v.Type, other.Type)
	case v.Type == TypeText:
		return strings.Compare(v.Text, other.Text), nil
	case v.Type == TypeBoolean:
		switch {
		case v.Bool == other.Bool:
			return 0, nil
		case !v.Bool:
			return -1, nil
		default:
			return 1, nil
		}
	default:
		return 0, fmt.Errorf("cannot compare type %s", v.Type)
	}
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Key returns a string usable as a map key for equality grouping.
// Numerically equal Integer and Real values share a key; all NULLs share a key.
func (v Value) Key() string {
	if v.IsNull {
		return "N"
	}
	switch v.Type {
	case TypeInteger:
		return "I" + strconv.FormatInt(v.Int, 10)
	case TypeReal:
		if v.Real == math.Trunc(v.Real) && math.Abs(v.Real) < 1<<63 {
			return "I" + strconv.FormatInt(int64(v.Real), 10)
		}
		return "R" + strconv.FormatFloat(v.Real, 'g', -1, 64)
	case TypeText:
		// Length-prefixed so a text containing the RowKey separator
		// cannot spill into the next component.
		return "T" + strconv.Itoa(len(v.Text)) + ":" + v.Text
	case TypeBoolean:
		if v.Bool {
			return "B1"
		}
		return "B0"
	default:
		return "?"
	}
}

// RowKey joins the keys of several values into one composite key.
func RowKey(values []Value) string {
	var sb strings.Builder
	for i, v := range values {
		if i > 0 {
			sb.WriteByte(0)
		}
		sb.WriteString(v.Key())
	}
	return sb.String()
}

// Coerce converts v so it can be stored in a column of type t.
// NULL passes through, Integer widens to Real, anything else must match exactly.
func Coerce(v Value, t DataType) (Value, error) {
	if v.IsNull {
		return Null(t), nil
	}
	if v.Type == t {
		return v, nil
	}
	if v.Type == TypeInteger && t == TypeReal {
		return NewReal(float64(v.Int)), nil
	}
	return Value{}, fmt.Errorf("cannot store %s value in %s column", v.Type, t)
}
