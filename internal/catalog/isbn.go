package catalog

import (
	"strings"

	"github.com/fkhayef/librarycore/internal/apperror"
)

// NormalizeISBN strips separators, validates the check digit and returns
// the ISBN-13 form. ISBN-10 input is converted with the 978 prefix.
func NormalizeISBN(raw string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9':
			return r
		case r == 'x' || r == 'X':
			return 'X'
		case r == '-' || r == ' ':
			return -1
		}
		return '?'
	}, raw)

	switch len(digits) {
	case 10:
		if !validISBN10(digits) {
			return "", apperror.Invalid("invalid ISBN-10 %q", raw)
		}
		body := "978" + digits[:9]
		return body + string(isbn13CheckDigit(body)), nil
	case 13:
		if strings.ContainsAny(digits, "X?") || isbn13CheckDigit(digits[:12]) != digits[12] {
			return "", apperror.Invalid("invalid ISBN-13 %q", raw)
		}
		return digits, nil
	}
	return "", apperror.Invalid("invalid ISBN %q", raw)
}

func validISBN10(s string) bool {
	sum := 0
	for i := 0; i < 10; i++ {
		c := s[i]
		var v int
		switch {
		case c >= '0' && c <= '9':
			v = int(c - '0')
		case c == 'X' && i == 9:
			v = 10
		default:
			return false
		}
		sum += v * (10 - i)
	}
	return sum%11 == 0
}

func isbn13CheckDigit(body string) byte {
	sum := 0
	for i := 0; i < 12; i++ {
		v := int(body[i] - '0')
		if i%2 == 1 {
			v *= 3
		}
		sum += v
	}
	return byte('0' + (10-sum%10)%10)
}
