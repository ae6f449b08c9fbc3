package pdf

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	baerrors "github.com/markusprap/mcp-berita-acara/internal/errors"
)

// MIMEType is the only content type accepted as a source document
const MIMEType = "application/pdf"

// Document describes an accepted source document
type Document struct {
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	Pages     int    `json:"pages"`
	StoreCode string `json:"store_code,omitempty"`
}

// Validator handles source document intake checks
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a new validator with the given size limit
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{
		maxFileSize: maxFileSize,
	}
}

// ValidateBytes checks an uploaded document. Anything that is not a PDF is
// rejected without further work; a PDF that cannot be parsed, or has no
// pages, is a load error.
func (v *Validator) ValidateBytes(name string, data []byte) (*Document, error) {
	const op = "validate document"

	if len(data) == 0 {
		return nil, baerrors.Newf(baerrors.KindDocumentLoad, op, "file is empty: %s", name)
	}
	if ct := http.DetectContentType(data); ct != MIMEType {
		return nil, baerrors.Newf(baerrors.KindInputRejected, op, "file is not a PDF (%s): %s", ct, name)
	}
	if v.maxFileSize > 0 && int64(len(data)) > v.maxFileSize {
		return nil, baerrors.Newf(baerrors.KindInputRejected, op, "file too large: %d bytes (max: %d bytes)",
			len(data), v.maxFileSize)
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, baerrors.New(baerrors.KindDocumentLoad, op, fmt.Errorf("invalid PDF file: %w", err))
	}
	pages := r.NumPage()
	if pages < 1 {
		return nil, baerrors.Newf(baerrors.KindDocumentLoad, op, "document has no pages: %s", name)
	}

	return &Document{
		Name:      filepath.Base(name),
		Size:      int64(len(data)),
		Pages:     pages,
		StoreCode: storeCode(name, r),
	}, nil
}

// ValidateFile reads and checks a document on disk
func (v *Validator) ValidateFile(path string) (*Document, []byte, error) {
	const op = "validate file"

	if path == "" {
		return nil, nil, baerrors.Newf(baerrors.KindInputRejected, op, "path cannot be empty")
	}
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return nil, nil, baerrors.Newf(baerrors.KindInputRejected, op, "file is not a PDF: %s", path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, baerrors.New(baerrors.KindDocumentLoad, op, fmt.Errorf("cannot access file: %w", err))
	}
	if info.IsDir() {
		return nil, nil, baerrors.Newf(baerrors.KindInputRejected, op, "path is a directory, not a file: %s", path)
	}
	if v.maxFileSize > 0 && info.Size() > v.maxFileSize {
		return nil, nil, baerrors.Newf(baerrors.KindInputRejected, op, "file too large: %d bytes (max: %d bytes)",
			info.Size(), v.maxFileSize)
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path is confined by the caller
	if err != nil {
		return nil, nil, baerrors.New(baerrors.KindDocumentLoad, op, err)
	}

	doc, err := v.ValidateBytes(path, data)
	if err != nil {
		return nil, nil, err
	}
	return doc, data, nil
}
