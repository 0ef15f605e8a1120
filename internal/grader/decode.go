package grader

import "strings"

// decodePayload interprets the literal backslash escapes test-case
// payloads are stored with (\n, \t, \xhh, \uXXXX, octal and friends)
// and strips at most one pair of surrounding double quotes. Unknown or
// malformed escapes are kept as-is rather than rejected.
func decodePayload(s string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return stripOuterQuotes(s)
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			i++
			continue
		}

		switch esc := s[i+1]; esc {
		case 'n':
			b.WriteByte('\n')
			i += 2
		case 't':
			b.WriteByte('\t')
			i += 2
		case 'r':
			b.WriteByte('\r')
			i += 2
		case '\\':
			b.WriteByte('\\')
			i += 2
		case '\'':
			b.WriteByte('\'')
			i += 2
		case '"':
			b.WriteByte('"')
			i += 2
		case 'a':
			b.WriteByte('\a')
			i += 2
		case 'b':
			b.WriteByte('\b')
			i += 2
		case 'f':
			b.WriteByte('\f')
			i += 2
		case 'v':
			b.WriteByte('\v')
			i += 2
		case 'x':
			if v, n := hexValue(s[i+2:], 2); n == 2 {
				b.WriteByte(byte(v))
				i += 4
			} else {
				b.WriteByte(c)
				i++
			}
		case 'u':
			if v, n := hexValue(s[i+2:], 4); n == 4 {
				b.WriteRune(rune(v))
				i += 6
			} else {
				b.WriteByte(c)
				i++
			}
		case 'U':
			if v, n := hexValue(s[i+2:], 8); n == 8 && v <= 0x10FFFF {
				b.WriteRune(rune(v))
				i += 10
			} else {
				b.WriteByte(c)
				i++
			}
		default:
			if esc >= '0' && esc <= '7' {
				v, n := octalValue(s[i+1:])
				b.WriteRune(rune(v))
				i += 1 + n
			} else {
				b.WriteByte('\\')
				b.WriteByte(esc)
				i += 2
			}
		}
	}
	return stripOuterQuotes(b.String())
}

// stripOuterQuotes removes exactly one surrounding pair of double
// quotes, if both are present. Quotes that belong to the content stay.
func stripOuterQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// hexValue parses up to want hex digits, returning the value and how
// many digits were consumed.
func hexValue(s string, want int) (int, int) {
	v := 0
	n := 0
	for n < want && n < len(s) {
		d, ok := hexDigit(s[n])
		if !ok {
			break
		}
		v = v<<4 | d
		n++
	}
	return v, n
}

func hexDigit(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	}
	return 0, false
}

// octalValue parses one to three octal digits.
func octalValue(s string) (int, int) {
	v := 0
	n := 0
	for n < 3 && n < len(s) && s[n] >= '0' && s[n] <= '7' {
		v = v<<3 | int(s[n]-'0')
		n++
	}
	return v, n
}
