package pdf

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageSize is a page size in points
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Config returns the pdfcpu configuration used everywhere in this module.
// Relaxed validation accepts the slightly malformed files office scanners
// and browser print dialogs produce.
func Config() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// PageSizes reads the page dimensions of every page
func PageSizes(data []byte) ([]PageSize, error) {
	dims, err := api.PageDims(bytes.NewReader(data), Config())
	if err != nil {
		return nil, fmt.Errorf("failed to read page dimensions: %w", err)
	}
	sizes := make([]PageSize, len(dims))
	for i, d := range dims {
		sizes[i] = PageSize{Width: d.Width, Height: d.Height}
	}
	return sizes, nil
}

// FirstPageSize returns the size of page 1
func FirstPageSize(data []byte) (PageSize, error) {
	sizes, err := PageSizes(data)
	if err != nil {
		return PageSize{}, err
	}
	if len(sizes) == 0 {
		return PageSize{}, fmt.Errorf("document has no pages")
	}
	if !(sizes[0].Width > 0) || !(sizes[0].Height > 0) {
		return PageSize{}, fmt.Errorf("page 1 has invalid size %vx%v", sizes[0].Width, sizes[0].Height)
	}
	return sizes[0], nil
}

// PageCount returns the number of pages as pdfcpu sees them
func PageCount(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), Config())
	if err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	return n, nil
}
