package question

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	inExpr  = regexp.MustCompile(`^\s*([A-Za-z0-9_]+)\s+in\s+\[(.*)\]\s*$`)
	cmpExpr = regexp.MustCompile(`^\s*([A-Za-z0-9_]+)\s*(==|<=|>=|<|>)\s*(.+?)\s*$`)
)

// EvalCondition evaluates a node condition against earlier answers of the
// same domain. Two forms are understood:
//
//	sleep_a_quality in [poor, very_poor]
//	sleep_a_hours <= 5
//
// An empty condition always holds. A missing left-hand answer, a malformed
// expression or a non-numeric operand for an ordering comparison fails.
func EvalCondition(expr string, responses Responses) bool {
	if strings.TrimSpace(expr) == "" {
		return true
	}

	if m := inExpr.FindStringSubmatch(expr); m != nil {
		a, ok := responses[m[1]]
		if !ok {
			return false
		}
		set := splitList(m[2])
		if a.Type == TypeTags {
			for _, tag := range a.Tags {
				if set[tag] {
					return true
				}
			}
			return false
		}
		return set[a.String()]
	}

	m := cmpExpr.FindStringSubmatch(expr)
	if m == nil {
		return false
	}
	a, ok := responses[m[1]]
	if !ok {
		return false
	}
	op, rhs := m[2], unquote(m[3])

	want, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		// Only equality is defined for non-numeric operands.
		return op == "==" && a.String() == rhs
	}
	got, ok := a.Scalar()
	if !ok {
		got, err = strconv.ParseFloat(strings.TrimSpace(a.String()), 64)
		if err != nil {
			return false
		}
	}

	switch op {
	case "==":
		return got == want
	case "<=":
		return got <= want
	case ">=":
		return got >= want
	case "<":
		return got < want
	case ">":
		return got > want
	}
	return false
}

func splitList(s string) map[string]bool {
	out := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		part = unquote(strings.TrimSpace(part))
		if part != "" {
			out[part] = true
		}
	}
	return out
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
