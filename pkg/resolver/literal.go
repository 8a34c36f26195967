package resolver

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gnana997/propgen/pkg/typesys"
)

// parseNumber reads a numeric literal, including a leading minus sign, base
// prefixes and digit separators.
func parseNumber(text string) (typesys.Literal, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(text), "_", "")
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	if s == "" {
		return typesys.Literal{}, false
	}

	var v float64
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "0x"), strings.HasPrefix(lower, "0o"), strings.HasPrefix(lower, "0b"):
		n, err := strconv.ParseInt(lower, 0, 64)
		if err != nil {
			return typesys.Literal{}, false
		}
		v = float64(n)
	default:
		f, err := strconv.ParseFloat(strings.TrimSuffix(lower, "n"), 64)
		if err != nil {
			return typesys.Literal{}, false
		}
		v = f
	}
	if neg {
		v = -v
	}
	return typesys.NumberLiteral(v), true
}

// unquoteString strips the quotes of a string literal and decodes the
// common escape sequences.
func unquoteString(s string) string {
	if len(s) < 2 {
		return s
	}
	q := s[0]
	if (q != '"' && q != '\'' && q != '`') || s[len(s)-1] != q {
		return s
	}
	body := s[1 : len(s)-1]
	if !strings.Contains(body, `\`) {
		return body
	}

	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 == len(body) {
			b.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '0':
			b.WriteByte(0)
		case 'u':
			if i+4 < len(body) {
				if n, err := strconv.ParseUint(body[i+1:i+5], 16, 32); err == nil {
					var buf [utf8.UTFMax]byte
					w := utf8.EncodeRune(buf[:], rune(n))
					b.Write(buf[:w])
					i += 4
					continue
				}
			}
			b.WriteByte('u')
		default:
			b.WriteByte(body[i])
		}
	}
	return b.String()
}
