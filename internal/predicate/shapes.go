package predicate

import (
	"strconv"
	"strings"
)

// eval is the pure shape-matching function behind Evaluator.Eval. Supported
// shapes (spec §4.2, all case-insensitive; @P is a parameter reference):
//
//  1. "@P IS NULL" / "@P IS NOT NULL"
//  2. "@P <op> <literal>" where op is one of = != <> > >= < <=  and literal
//     is a number or a single-quoted string.
//
// Anything else — multi-operand expressions, function calls, subqueries,
// column references, an unbound parameter, or a bound-but-null parameter
// compared with an ordering/equality operator — returns Unpredictable.
func eval(snippet string, binding Binding) Verdict {
	s := strings.TrimSpace(snippet)
	if s == "" {
		return Unpredictable
	}

	if v, ok := matchIsNull(s, binding); ok {
		return v
	}
	if v, ok := matchComparison(s, binding); ok {
		return v
	}
	return Unpredictable
}

func matchIsNull(s string, binding Binding) (Verdict, bool) {
	up := strings.ToUpper(s)
	if !strings.HasPrefix(up, "@") {
		return Unpredictable, false
	}

	var paramEnd int
	for paramEnd = 0; paramEnd < len(s); paramEnd++ {
		c := s[paramEnd]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '@' {
			continue
		}
		break
	}
	param := s[:paramEnd]
	rest := strings.ToUpper(strings.TrimSpace(s[paramEnd:]))

	switch rest {
	case "IS NULL":
		v, bound := binding.Get(param)
		if !bound {
			return Unpredictable, true
		}
		if v == nil {
			return True, true
		}
		return False, true
	case "IS NOT NULL":
		v, bound := binding.Get(param)
		if !bound {
			return Unpredictable, true
		}
		if v == nil {
			return False, true
		}
		return True, true
	default:
		return Unpredictable, false
	}
}

var comparisonOps = []string{">=", "<=", "!=", "<>", "=", ">", "<"}

func matchComparison(s string, binding Binding) (Verdict, bool) {
	if !strings.HasPrefix(s, "@") {
		return Unpredictable, false
	}

	for _, op := range comparisonOps {
		idx := strings.Index(s, op)
		if idx <= 0 {
			continue
		}
		left := strings.TrimSpace(s[:idx])
		right := strings.TrimSpace(s[idx+len(op):])
		if !isParamRef(left) || right == "" {
			continue
		}
		return evalComparison(left, op, right, binding), true
	}
	return Unpredictable, false
}

func isParamRef(s string) bool {
	if !strings.HasPrefix(s, "@") {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			continue
		}
		return false
	}
	return len(s) > 1
}

func evalComparison(param, op, literal string, binding Binding) Verdict {
	value, bound := binding.Get(param)
	if !bound {
		return Unpredictable
	}
	if value == nil {
		// SQL three-valued logic: NULL compared with anything is unknown,
		// never false.
		return Unpredictable
	}

	quoted := isQuotedString(literal)
	lit := stripQuotes(literal)

	if lhs, ok := asFloat(value); ok {
		if rhs, err := strconv.ParseFloat(lit, 64); err == nil {
			return boolVerdict(compareFloat(lhs, op, rhs))
		}
	}

	// The literal is unquoted but the bound value and the literal could not
	// both be read as numbers: the shapes don't line up closely enough to be confident, so
	// report unpredictable rather than guess via string comparison.
	if !quoted {
		return Unpredictable
	}

	lhsStr := toStr(value)
	return boolVerdict(compareString(lhsStr, op, lit))
}

func isQuotedString(s string) bool {
	return len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\''
}

func stripQuotes(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	}
	return s
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func compareFloat(lhs float64, op string, rhs float64) bool {
	switch op {
	case "=":
		return lhs == rhs
	case "!=", "<>":
		return lhs != rhs
	case ">":
		return lhs > rhs
	case ">=":
		return lhs >= rhs
	case "<":
		return lhs < rhs
	case "<=":
		return lhs <= rhs
	default:
		return false
	}
}

func compareString(lhs, op, rhs string) bool {
	c := strings.Compare(strings.ToLower(lhs), strings.ToLower(rhs))
	switch op {
	case "=":
		return c == 0
	case "!=", "<>":
		return c != 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	default:
		return false
	}
}

func boolVerdict(b bool) Verdict {
	if b {
		return True
	}
	return False
}
