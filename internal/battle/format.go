package battle

import (
	"fmt"
	"strings"
)

// FormatISK renders whole ISK with thousands separators,
// e.g. 1234567.89 => "1,234,568 ISK".
func FormatISK(amount float64) string {
	s := fmt.Sprintf("%.0f", amount)
	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	head := len(s) % 3
	if head == 0 {
		head = 3
	}
	var sb strings.Builder
	if negative {
		sb.WriteByte('-')
	}
	sb.WriteString(s[:head])
	for i := head; i < len(s); i += 3 {
		sb.WriteByte(',')
		sb.WriteString(s[i : i+3])
	}
	sb.WriteString(" ISK")
	return sb.String()
}
