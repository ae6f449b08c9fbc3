// Package pdftest builds small PDF fixtures for tests.
package pdftest

import (
	"bytes"
	"testing"

	"github.com/phpdave11/gofpdf"
)

// A4 page size in points
const (
	A4Width  = 595.28
	A4Height = 841.89
)

// Document returns an A4 portrait PDF with the given number of pages. Each
// line of text is written on page 1, top to bottom.
func Document(tb testing.TB, pages int, lines ...string) []byte {
	tb.Helper()

	doc := gofpdf.New("P", "pt", "A4", "")
	doc.SetFont("Helvetica", "", 12)
	for i := 0; i < pages; i++ {
		doc.AddPage()
		if i == 0 {
			for j, line := range lines {
				doc.Text(56, 72+float64(j)*18, line)
			}
		}
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		tb.Fatalf("build fixture: %v", err)
	}
	return buf.Bytes()
}

// BA returns a one-page document shaped like a printed Berita Acara
func BA(tb testing.TB, storeCode string) []byte {
	tb.Helper()
	return Document(tb, 1,
		"BERITA ACARA",
		"Kode / Nama Toko : "+storeCode+" / TOKO CONTOH",
		"Nama Personil : Andi",
	)
}
