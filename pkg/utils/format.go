package utils

import "strings"

// FormatGrouped inserts thousands separators into a decimal number string,
// e.g. "394328000000" → "394,328,000,000" and "-1234.5" → "-1,234.5".
// Values that are not plain decimal numbers (dates, names, exponent
// notation) are returned unchanged.
func FormatGrouped(s string) string {
	raw := s
	sign := ""
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		sign, s = s[:1], s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	if !isDigits(intPart) || (frac != "" && !isDigits(frac[1:])) {
		return raw
	}
	if sign == "+" {
		sign = ""
	}
	return sign + groupThousands(intPart) + frac
}

// groupThousands formats a run of digits with Western grouping (3s).
func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
