package luacode

import (
	"math"
	"strconv"
	"strings"
)

// formatInt renders an integer the way Lua's tostring does: plain
// decimal, no suffix.
func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

// formatFloat renders a float the way Lua's tostring does: the
// "%.14g" format, with a trailing ".0" appended when the result would
// otherwise look like an integer.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'g', 14, 64)
	if exp := strings.IndexAny(s, "eE"); exp >= 0 {
		return fixExponent(s, exp)
	}
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// fixExponent rewrites Go's exponent form (e.g. "1e+20") into Lua/C's
// "%g" form ("1e+20" already matches, but Go omits the sign-padded
// two-digit exponent that C guarantees; this normalizes that).
func fixExponent(s string, expIdx int) string {
	mantissa, exp := s[:expIdx], s[expIdx+1:]
	sign := "+"
	if len(exp) > 0 && (exp[0] == '+' || exp[0] == '-') {
		if exp[0] == '-' {
			sign = "-"
		}
		exp = exp[1:]
	}
	for len(exp) < 2 {
		exp = "0" + exp
	}
	return mantissa + "e" + sign + exp
}
