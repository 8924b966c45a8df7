package dedup

import (
	"strings"
)

// NormalizePhone strips everything but digits so formatting differences
// never hide an identity match. A leading 00 international prefix is
// dropped like a leading +.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	digits := b.String()
	if strings.HasPrefix(digits, "00") {
		digits = digits[2:]
	}

	return digits
}
