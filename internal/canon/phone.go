package canon

import (
	"fmt"
	"strings"
)

// NormalizePhone parses a US phone number into "+1-XXX-XXX-XXXX" form.
// It strips all non-digit characters, drops a leading "1" country code,
// and requires exactly 10 digits remain with an area code not starting
// with 0 or 1.
func NormalizePhone(raw string) (string, error) {
	digits := onlyDigits(raw)

	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}

	if len(digits) != 10 {
		return "", fmt.Errorf("normalize phone %q: expected 10 digits, got %d", raw, len(digits))
	}
	if digits[0] == '0' || digits[0] == '1' {
		return "", fmt.Errorf("normalize phone %q: area code cannot start with %c", raw, digits[0])
	}

	return fmt.Sprintf("+1-%s-%s-%s", digits[0:3], digits[3:6], digits[6:10]), nil
}

func onlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
