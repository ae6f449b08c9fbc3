package compose

import (
	"strings"
	"time"
	"unicode"

	"github.com/markusprap/mcp-berita-acara/internal/roles"
)

// Filename defaults
const (
	DefaultSeparator   = "_"
	PlaceholderCode    = "TOKO"
	ReportFallbackCode = "Document"
)

// SignedFilename names a signed document:
//
//	BA<sep>VARIANCE<sep><CODE><sep><DDMMYY><sep>TTD<sep><ABBR>.pdf
//
// An empty or unusable code becomes the TOKO placeholder.
func SignedFilename(code string, date time.Time, role roles.Role, sep string) string {
	if sep == "" {
		sep = DefaultSeparator
	}
	code = cleanCode(code)
	if code == "" {
		code = PlaceholderCode
	}
	parts := []string{"BA", "VARIANCE", code, date.Format("020106"), "TTD", role.Abbreviation()}
	return strings.Join(parts, sep) + ".pdf"
}

// ReportFilename names a composed report: Berita_Acara_<CODE>.pdf, with
// "Document" standing in for a missing code
func ReportFilename(code string) string {
	code = cleanCode(code)
	if code == "" {
		code = ReportFallbackCode
	}
	return "Berita_Acara_" + code + ".pdf"
}

// cleanCode upper-cases a store code and drops anything that is not a
// letter or digit
func cleanCode(code string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(code)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
