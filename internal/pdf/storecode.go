package pdf

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	signedNamePattern = regexp.MustCompile(`(?i)^BA[ _]VARIANCE[ _]([A-Z0-9]+)[ _]`)
	reportNamePattern = regexp.MustCompile(`(?i)^Berita[ _]Acara[ _]([A-Z0-9]+)\.pdf$`)
	storeLinePattern  = regexp.MustCompile(`(?i)Kode\s*/\s*Nama\s*Toko\s*:?\s*([A-Z0-9]+)`)
)

// storeCode finds the store code of a Berita Acara, first in the file name
// produced by an earlier step, then in the "Kode / Nama Toko" line of page 1.
// It returns "" when neither has one.
func storeCode(name string, r *pdf.Reader) string {
	if code := codeFromName(name); code != "" {
		return code
	}
	return codeFromText(r)
}

func codeFromName(name string) string {
	base := filepath.Base(name)
	for _, re := range []*regexp.Regexp{signedNamePattern, reportNamePattern} {
		if m := re.FindStringSubmatch(base); m != nil {
			code := strings.ToUpper(m[1])
			if code == "DOCUMENT" || code == "TOKO" {
				return ""
			}
			return code
		}
	}
	return ""
}

func codeFromText(r *pdf.Reader) (code string) {
	// malformed content streams can panic inside the text extractor
	defer func() {
		if recover() != nil {
			code = ""
		}
	}()

	if r.NumPage() < 1 {
		return ""
	}
	page := r.Page(1)
	if page.V.IsNull() {
		return ""
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	if m := storeLinePattern.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(m[1])
	}
	return ""
}
