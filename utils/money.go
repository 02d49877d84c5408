package utils

import (
	"strconv"
	"strings"
)

// FormatCOP renders a peso amount for product sheets, e.g. 12500 -> "$12.500"
func FormatCOP(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return sign + "$" + groupThousands(strconv.FormatInt(amount, 10), '.')
}

func groupThousands(digits string, sep byte) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	b.Grow(len(digits) + len(digits)/3)
	for i := 0; i < len(digits); i++ {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(sep)
		}
		b.WriteByte(digits[i])
	}
	return b.String()
}
