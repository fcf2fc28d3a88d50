package vm

import (
	"math"
	"strconv"
)

// Numeric text conversions. Scripts observe these directly through variable
// printing, config files and arithmetic on strings. Integers use strtoul-style
// base detection and floats use strtod-style prefix parsing.

// FormatInt formats an integer as plain decimal.
func FormatInt(i int32) string {
	return strconv.FormatInt(int64(i), 10)
}

// FormatFloat formats f as "%d" when it is integral and "%.7g" otherwise.
func FormatFloat(f float32) string {
	d := float64(f)
	switch {
	case math.IsNaN(d):
		return "nan"
	case math.IsInf(d, 1):
		return "inf"
	case math.IsInf(d, -1):
		return "-inf"
	}
	if t := math.Trunc(d); t == d && t >= math.MinInt32 && t <= math.MaxInt32 {
		return strconv.FormatInt(int64(t), 10)
	}
	return strconv.FormatFloat(d, 'g', 7, 64)
}

// ParseInt parses the longest integer prefix of s the way strtoul does with
// base 0 (leading 0x for hex, leading 0 for octal) and truncates to 32 bits.
// Text with no numeric prefix yields 0.
func ParseInt(s string) int32 {
	v, _ := parseUint(s)
	return int32(uint32(v))
}

// ParseFloat parses the longest float prefix of s. A string whose prefix is
// zero and is followed by x or X is re-read as an integer.
func ParseFloat(s string) float32 {
	return float32(ParseNumber(s))
}

// ParseNumber is ParseFloat at double precision.
func ParseNumber(s string) float64 {
	v, end := parseDouble(s)
	if v != 0 || end == 0 || end >= len(s) || (s[end] != 'x' && s[end] != 'X') {
		return v
	}
	return float64(ParseInt(s))
}

// CheckNumber reports whether s starts like a number literal.
func CheckNumber(s string) bool {
	if len(s) == 0 {
		return false
	}
	if isDigit(s[0]) {
		return true
	}
	switch s[0] {
	case '+', '-':
		return len(s) > 1 && (isDigit(s[1]) || (s[1] == '.' && len(s) > 2 && isDigit(s[2])))
	case '.':
		return len(s) > 1 && isDigit(s[1])
	}
	return false
}

// parseBool is the numeric-aware truth test for strings.
func parseBool(s string) bool {
	at := func(i int) byte {
		if i < len(s) {
			return s[i]
		}
		return 0
	}
	switch at(0) {
	case '+', '-':
		switch at(1) {
		case '0':
		case '.':
			return !isDigit(at(2)) || ParseFloat(s) != 0
		default:
			return true
		}
		fallthrough
	case '0':
		v, end := parseUint(s)
		if int32(uint32(v)) != 0 {
			return true
		}
		switch at(end) {
		case 'e', '.':
			return ParseFloat(s) != 0
		}
		return false
	case '.':
		return !isDigit(at(1)) || ParseFloat(s) != 0
	case 0:
		return false
	}
	return true
}

// parseUint mirrors strtoul(s, &end, 0). It returns the value (negated
// two's-complement style for a leading '-') and the index just past the
// parsed text, or 0 if nothing was parsed.
func parseUint(s string) (uint64, int) {
	i := skipSpace(s, 0)
	neg := false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}

	base := uint64(10)
	switch {
	case i+2 < len(s) && s[i] == '0' && (s[i+1] == 'x' || s[i+1] == 'X') && isHexDigit(s[i+2]):
		base = 16
		i += 2
	case i < len(s) && s[i] == '0':
		base = 8
	}

	start := i
	var v uint64
	overflow := false
	for ; i < len(s); i++ {
		d, ok := digitValue(s[i])
		if !ok || d >= base {
			break
		}
		if v > (math.MaxUint64-d)/base {
			overflow = true
		}
		v = v*base + d
	}
	if i == start {
		return 0, 0
	}
	if overflow {
		return math.MaxUint64, i
	}
	if neg {
		v = -v
	}
	return v, i
}

// parseDouble mirrors strtod(s, &end) for decimal, hex, inf and nan forms.
func parseDouble(s string) (float64, int) {
	i := skipSpace(s, 0)
	sign := 1.0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		if s[i] == '-' {
			sign = -1
		}
		i++
	}

	if n := matchFold(s[i:], "infinity"); n == 8 {
		return math.Inf(int(sign)), i + 8
	} else if n >= 3 {
		return math.Inf(int(sign)), i + 3
	}
	if matchFold(s[i:], "nan") == 3 {
		end := i + 3
		if end < len(s) && s[end] == '(' {
			for j := end + 1; j < len(s); j++ {
				if s[j] == ')' {
					end = j + 1
					break
				}
				if !isAlnum(s[j]) && s[j] != '_' {
					break
				}
			}
		}
		return math.NaN(), end
	}

	if i+1 < len(s) && s[i] == '0' && (s[i+1] == 'x' || s[i+1] == 'X') {
		if v, end, ok := parseHexFloat(s, i+2); ok {
			return sign * v, end
		}
	}

	start := i
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return 0, 0
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if j < len(s) && isDigit(s[j]) {
			for j < len(s) && isDigit(s[j]) {
				j++
			}
			i = j
		}
	}
	v, err := strconv.ParseFloat(s[start:i], 64)
	if err != nil && !math.IsInf(v, 0) {
		v = 0
	}
	return sign * v, i
}

// parseHexFloat reads hex mantissa digits, an optional fraction and an
// optional binary exponent starting at s[i].
func parseHexFloat(s string, i int) (float64, int, bool) {
	var mant float64
	digits := 0
	exp := 0
	for i < len(s) && isHexDigit(s[i]) {
		d, _ := digitValue(s[i])
		mant = mant*16 + float64(d)
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isHexDigit(s[i]) {
			d, _ := digitValue(s[i])
			mant = mant*16 + float64(d)
			exp -= 4
			i++
			digits++
		}
	}
	if digits == 0 {
		return 0, 0, false
	}
	if i < len(s) && (s[i] == 'p' || s[i] == 'P') {
		j := i + 1
		esign := 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			if s[j] == '-' {
				esign = -1
			}
			j++
		}
		if j < len(s) && isDigit(s[j]) {
			e := 0
			for j < len(s) && isDigit(s[j]) {
				if e < 100000 {
					e = e*10 + int(s[j]-'0')
				}
				j++
			}
			exp += esign * e
			i = j
		}
	}
	return math.Ldexp(mant, exp), i, true
}

func skipSpace(s string, i int) int {
	for i < len(s) {
		switch s[i] {
		case ' ', '\t', '\n', '\v', '\f', '\r':
			i++
		default:
			return i
		}
	}
	return i
}

// matchFold returns how many leading bytes of s match word, ignoring ASCII case.
func matchFold(s, word string) int {
	n := 0
	for n < len(s) && n < len(word) {
		c := s[n]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != word[n] {
			break
		}
		n++
	}
	return n
}

func digitValue(c byte) (uint64, bool) {
	switch {
	case c >= '0' && c <= '9':
		return uint64(c - '0'), true
	case c >= 'a' && c <= 'f':
		return uint64(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return uint64(c-'A') + 10, true
	}
	return 0, false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isAlpha(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isAlnum(c byte) bool { return isAlpha(c) || isDigit(c) }

func isHexDigit(c byte) bool {
	_, ok := digitValue(c)
	return ok
}
