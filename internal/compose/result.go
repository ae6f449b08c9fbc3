// Package compose produces the two kinds of output document: a paginated
// report built from the captured form and photo attachments, and a signed
// copy of an existing Berita Acara.
package compose

// Result is a finished composition. A new composition supersedes it; it is
// never modified in place.
type Result struct {
	PDF       []byte   `json:"-"`
	Filename  string   `json:"filename"`
	PageCount int      `json:"page_count"`
	Previews  [][]byte `json:"-"`
}
