package form

import (
	"bytes"
	"embed"
	"encoding/base64"
	"fmt"
	"html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/markusprap/mcp-berita-acara/internal/roles"
)

// ElementID is the id of the element captured into the report
const ElementID = "berita-acara"

//go:embed templates/berita_acara.html
var templateFS embed.FS

var (
	page   = template.Must(template.ParseFS(templateFS, "templates/berita_acara.html"))
	strict = bluemonday.StrictPolicy()
)

type approval struct {
	Caption string
	Title   string
}

type view struct {
	Data          Data
	TanggalVarian string
	TanggalDibuat string
	Signature     template.URL
	Approvals     []approval
}

// Render fills the Berita Acara template. signaturePNG may be nil, in which
// case the "Dibuat" box is left blank.
func Render(d Data, signaturePNG []byte) ([]byte, error) {
	d.Normalize()
	clean := Data{
		KodeToko:      plain(d.KodeToko),
		NamaToko:      plain(d.NamaToko),
		NamaPersonil:  plain(d.NamaPersonil),
		NIK:           d.NIK,
		Jabatan:       plain(d.Jabatan),
		Nominal:       d.Nominal,
		TanggalVarian: plain(d.TanggalVarian),
		Kronologi:     plain(d.Kronologi),
		Lokasi:        plain(d.Lokasi),
		TanggalDibuat: plain(d.TanggalDibuat),
		WaktuDibuat:   plain(d.WaktuDibuat),
	}

	v := view{
		Data:          clean,
		TanggalVarian: FormatDisplayDate(clean.TanggalVarian),
		TanggalDibuat: FormatDisplayDate(clean.TanggalDibuat),
		Approvals:     approvals(),
	}
	if len(signaturePNG) > 0 {
		// #nosec G203 -- base64 of PNG bytes, no markup
		v.Signature = template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(signaturePNG))
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, v); err != nil {
		return nil, fmt.Errorf("render form: %w", err)
	}
	return buf.Bytes(), nil
}

// plain strips any markup from free text; the template escapes the rest
func plain(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

func approvals() []approval {
	out := make([]approval, 0, 5)
	for _, r := range roles.All() {
		caption := "Diketahui"
		if r.RequiresNameLabel() {
			caption = "Disetujui"
		}
		out = append(out, approval{Caption: caption, Title: strings.ToUpper(r.String())})
	}
	return out
}
