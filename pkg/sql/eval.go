package sql

import (
	"fmt"
	"math"
	"strings"

	"github.com/sqlsandbox/sandboxdb/pkg/catalog"
)

// evalExpr evaluates a bound expression against one row.
// Boolean results use three-valued logic: UNKNOWN is a NULL boolean.
func evalExpr(expr Expr, row []catalog.Value) (catalog.Value, error) {
	switch e := expr.(type) {
	case *ConstExpr:
		return e.Value, nil

	case *ColExpr:
		if e.Index < 0 || e.Index >= len(row) {
			return catalog.Value{}, fmt.Errorf("column %s out of range", e.Name)
		}
		return row[e.Index], nil

	case *BinaryOp:
		switch {
		case e.Op == TOKEN_AND || e.Op == TOKEN_OR:
			return evalLogical(e, row)
		case isComparisonOp(e.Op):
			left, right, err := evalPair(e.Left, e.Right, row)
			if err != nil {
				return catalog.Value{}, err
			}
			return compareValues(e.Op, left, right)
		default:
			left, right, err := evalPair(e.Left, e.Right, row)
			if err != nil {
				return catalog.Value{}, err
			}
			return arithmetic(e.Op, left, right)
		}

	case *UnaryOp:
		v, err := evalExpr(e.Expr, row)
		if err != nil {
			return catalog.Value{}, err
		}
		if e.Op == TOKEN_NOT {
			if v.IsNull {
				return unknown(), nil
			}
			if v.Type != catalog.TypeBoolean {
				return catalog.Value{}, execErrorf(TypeCoercionFailure, "NOT applied to %s value", v.Type)
			}
			return catalog.NewBoolean(!v.Bool), nil
		}
		return negate(v)

	case *IsNullOp:
		v, err := evalExpr(e.Expr, row)
		if err != nil {
			return catalog.Value{}, err
		}
		return catalog.NewBoolean(v.IsNull != e.Not), nil

	case *InOp:
		return evalIn(e, row)

	case *LikeOp:
		v, pattern, err := evalPair(e.Expr, e.Pattern, row)
		if err != nil {
			return catalog.Value{}, err
		}
		if v.IsNull || pattern.IsNull {
			return unknown(), nil
		}
		if v.Type != catalog.TypeText || pattern.Type != catalog.TypeText {
			return catalog.Value{}, execErrorf(TypeCoercionFailure, "LIKE applied to %s and %s", v.Type, pattern.Type)
		}
		return catalog.NewBoolean(matchLike(v.Text, pattern.Text) != e.Not), nil

	case *BetweenOp:
		v, err := evalExpr(e.Expr, row)
		if err != nil {
			return catalog.Value{}, err
		}
		low, high, err := evalPair(e.Low, e.High, row)
		if err != nil {
			return catalog.Value{}, err
		}
		ge, err := compareValues(TOKEN_GE, v, low)
		if err != nil {
			return catalog.Value{}, err
		}
		le, err := compareValues(TOKEN_LE, v, high)
		if err != nil {
			return catalog.Value{}, err
		}
		result := and3(ge, le)
		if e.Not {
			return not3(result), nil
		}
		return result, nil

	case *AggExpr:
		return catalog.Value{}, fmt.Errorf("aggregate %s evaluated outside of aggregation", e)
	}
	return catalog.Value{}, fmt.Errorf("unsupported expression %T", expr)
}

func evalPair(a, b Expr, row []catalog.Value) (catalog.Value, catalog.Value, error) {
	left, err := evalExpr(a, row)
	if err != nil {
		return catalog.Value{}, catalog.Value{}, err
	}
	right, err := evalExpr(b, row)
	if err != nil {
		return catalog.Value{}, catalog.Value{}, err
	}
	return left, right, nil
}

// isTrue reports whether a predicate result passes a filter.
// FALSE and UNKNOWN both reject.
func isTrue(v catalog.Value) bool {
	return !v.IsNull && v.Type == catalog.TypeBoolean && v.Bool
}

func unknown() catalog.Value {
	return catalog.Null(catalog.TypeBoolean)
}

func and3(a, b catalog.Value) catalog.Value {
	switch {
	case !a.IsNull && !a.Bool, !b.IsNull && !b.Bool:
		return catalog.NewBoolean(false)
	case a.IsNull || b.IsNull:
		return unknown()
	default:
		return catalog.NewBoolean(true)
	}
}

func or3(a, b catalog.Value) catalog.Value {
	switch {
	case !a.IsNull && a.Bool, !b.IsNull && b.Bool:
		return catalog.NewBoolean(true)
	case a.IsNull || b.IsNull:
		return unknown()
	default:
		return catalog.NewBoolean(false)
	}
}

func not3(v catalog.Value) catalog.Value {
	if v.IsNull {
		return v
	}
	return catalog.NewBoolean(!v.Bool)
}

func evalLogical(e *BinaryOp, row []catalog.Value) (catalog.Value, error) {
	left, err := evalExpr(e.Left, row)
	if err != nil {
		return catalog.Value{}, err
	}
	if !left.IsNull && left.Type != catalog.TypeBoolean {
		return catalog.Value{}, execErrorf(TypeCoercionFailure, "%s applied to %s value", tokenToOperator(e.Op), left.Type)
	}
	// FALSE AND x and TRUE OR x do not depend on x.
	if !left.IsNull && left.Bool == (e.Op == TOKEN_OR) {
		return left, nil
	}
	right, err := evalExpr(e.Right, row)
	if err != nil {
		return catalog.Value{}, err
	}
	if !right.IsNull && right.Type != catalog.TypeBoolean {
		return catalog.Value{}, execErrorf(TypeCoercionFailure, "%s applied to %s value", tokenToOperator(e.Op), right.Type)
	}
	if e.Op == TOKEN_AND {
		return and3(left, right), nil
	}
	return or3(left, right), nil
}

func compareValues(op TokenType, left, right catalog.Value) (catalog.Value, error) {
	if left.IsNull || right.IsNull {
		return unknown(), nil
	}
	cmp, err := left.Compare(right)
	if err != nil {
		return catalog.Value{}, &ExecError{Code: TypeCoercionFailure, Message: err.Error(), Err: err}
	}
	var result bool
	switch op {
	case TOKEN_EQ:
		result = cmp == 0
	case TOKEN_NE:
		result = cmp != 0
	case TOKEN_LT:
		result = cmp < 0
	case TOKEN_LE:
		result = cmp <= 0
	case TOKEN_GT:
		result = cmp > 0
	case TOKEN_GE:
		result = cmp >= 0
	default:
		return catalog.Value{}, fmt.Errorf("unsupported comparison operator: %v", op)
	}
	return catalog.NewBoolean(result), nil
}

func evalIn(e *InOp, row []catalog.Value) (catalog.Value, error) {
	v, err := evalExpr(e.Expr, row)
	if err != nil {
		return catalog.Value{}, err
	}
	result := catalog.NewBoolean(false)
	for _, item := range e.List {
		candidate, err := evalExpr(item, row)
		if err != nil {
			return catalog.Value{}, err
		}
		eq, err := compareValues(TOKEN_EQ, v, candidate)
		if err != nil {
			return catalog.Value{}, err
		}
		if result = or3(result, eq); isTrue(result) {
			break
		}
	}
	if e.Not {
		return not3(result), nil
	}
	return result, nil
}

func negate(v catalog.Value) (catalog.Value, error) {
	if v.IsNull {
		return v, nil
	}
	switch v.Type {
	case catalog.TypeInteger:
		if v.Int == math.MinInt64 {
			return catalog.Value{}, execErrorf(IntegerOverflow, "integer overflow: -(%d)", v.Int)
		}
		return catalog.NewInteger(-v.Int), nil
	case catalog.TypeReal:
		return catalog.NewReal(-v.Real), nil
	}
	return catalog.Value{}, execErrorf(TypeCoercionFailure, "cannot negate %s value", v.Type)
}

// arithmetic applies + - * / % with Integer/Real widening.
// Results are overflow-checked and integer division truncates.
func arithmetic(op TokenType, left, right catalog.Value) (catalog.Value, error) {
	if left.IsNull || right.IsNull {
		return catalog.Null(arithmeticType(left.Type, right.Type)), nil
	}
	if !left.Type.IsNumeric() || !right.Type.IsNumeric() {
		return catalog.Value{}, execErrorf(TypeCoercionFailure, "cannot apply %s to %s and %s", tokenToOperator(op), left.Type, right.Type)
	}
	if left.Type == catalog.TypeInteger && right.Type == catalog.TypeInteger {
		return integerArithmetic(op, left.Int, right.Int)
	}

	a, b := left.AsFloat(), right.AsFloat()
	var r float64
	switch op {
	case TOKEN_PLUS:
		r = a + b
	case TOKEN_MINUS:
		r = a - b
	case TOKEN_STAR:
		r = a * b
	case TOKEN_SLASH:
		if b == 0 {
			return catalog.Value{}, execErrorf(DivisionByZero, "division by zero")
		}
		r = a / b
	case TOKEN_PERCENT:
		if b == 0 {
			return catalog.Value{}, execErrorf(DivisionByZero, "modulo by zero")
		}
		r = math.Mod(a, b)
	default:
		return catalog.Value{}, fmt.Errorf("unsupported arithmetic operator: %v", op)
	}
	if !isFinite(r) {
		return catalog.Value{}, execErrorf(RealOverflow, "real overflow: %g %s %g", a, tokenToOperator(op), b)
	}
	return catalog.NewReal(r), nil
}

// isFinite reports whether f can be stored: Inf and NaN never reach a table.
func isFinite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

func integerArithmetic(op TokenType, a, b int64) (catalog.Value, error) {
	overflow := func() (catalog.Value, error) {
		return catalog.Value{}, execErrorf(IntegerOverflow, "integer overflow: %d %s %d", a, tokenToOperator(op), b)
	}
	switch op {
	case TOKEN_PLUS:
		if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
			return overflow()
		}
		return catalog.NewInteger(a + b), nil
	case TOKEN_MINUS:
		if (b < 0 && a > math.MaxInt64+b) || (b > 0 && a < math.MinInt64+b) {
			return overflow()
		}
		return catalog.NewInteger(a - b), nil
	case TOKEN_STAR:
		if a == 0 || b == 0 {
			return catalog.NewInteger(0), nil
		}
		p := a * b
		if p/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
			return overflow()
		}
		return catalog.NewInteger(p), nil
	case TOKEN_SLASH:
		if b == 0 {
			return catalog.Value{}, execErrorf(DivisionByZero, "division by zero")
		}
		if a == math.MinInt64 && b == -1 {
			return overflow()
		}
		return catalog.NewInteger(a / b), nil
	case TOKEN_PERCENT:
		if b == 0 {
			return catalog.Value{}, execErrorf(DivisionByZero, "modulo by zero")
		}
		if b == -1 {
			return catalog.NewInteger(0), nil
		}
		return catalog.NewInteger(a % b), nil
	}
	return catalog.Value{}, fmt.Errorf("unsupported arithmetic operator: %v", op)
}

// matchLike implements LIKE with % (any run) and _ (one character).
// Matching ignores case.
func matchLike(s, pattern string) bool {
	str := []rune(strings.ToLower(s))
	pat := []rune(strings.ToLower(pattern))

	si, pi := 0, 0
	starPi, starSi := -1, 0
	for si < len(str) {
		switch {
		case pi < len(pat) && (pat[pi] == '_' || pat[pi] == str[si]):
			si++
			pi++
		case pi < len(pat) && pat[pi] == '%':
			starPi, starSi = pi, si
			pi++
		case starPi >= 0:
			starSi++
			si = starSi
			pi = starPi + 1
		default:
			return false
		}
	}
	for pi < len(pat) && pat[pi] == '%' {
		pi++
	}
	return pi == len(pat)
}
