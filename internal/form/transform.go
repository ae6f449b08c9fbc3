package form

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	upper   = cases.Upper(language.Indonesian)
	printer = message.NewPrinter(language.Indonesian)
)

// Transform applies the input rule of a field to a raw value
func Transform(field, value string) string {
	switch field {
	case FieldKodeToko:
		return NormalizeStoreCode(value)
	case FieldNIK:
		return DigitsOnly(value)
	case FieldNominal:
		return FormatNominal(value)
	default:
		return value
	}
}

// NormalizeStoreCode upper-cases a store code
func NormalizeStoreCode(s string) string {
	return upper.String(strings.TrimSpace(s))
}

// DigitsOnly drops everything but ASCII digits
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatNominal keeps the digits of an amount and groups them by thousands
// with dots, e.g. "Rp 1234567" becomes "1.234.567"
func FormatNominal(s string) string {
	digits := DigitsOnly(s)
	if digits == "" {
		return ""
	}
	if n, err := strconv.ParseInt(digits, 10, 64); err == nil {
		return printer.Sprintf("%d", n)
	}

	// longer than int64; group by hand
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FormatDisplayDate turns yyyy-mm-dd into dd-mm-yyyy; anything else is
// returned unchanged
func FormatDisplayDate(s string) string {
	parts := strings.Split(s, "-")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return s
	}
	return parts[2] + "-" + parts[1] + "-" + parts[0]
}
