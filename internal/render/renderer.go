// Package render rasterizes page 1 of a source PDF for the placement preview.
package render

import (
	"context"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"

	baerrors "github.com/markusprap/mcp-berita-acara/internal/errors"
	"github.com/markusprap/mcp-berita-acara/internal/geometry"
	"github.com/markusprap/mcp-berita-acara/internal/pdf"
)

// MaxPreviewSide bounds either side of a rendered preview, in display pixels
const MaxPreviewSide = 4096

// PagePreview is the rendered first page. It is derived state and is
// rebuilt whenever the document or the container width changes.
type PagePreview struct {
	Source       []byte
	NativeWidth  float64
	NativeHeight float64
	Scale        geometry.Scale
	Bitmap       *image.RGBA
}

// DisplaySize returns the canvas size in display pixels
func (p *PagePreview) DisplaySize() (float64, float64) {
	s := float64(p.Scale)
	return p.NativeWidth * s, p.NativeHeight * s
}

// PageRasterizer draws one page of a PDF at the given resolution
type PageRasterizer interface {
	RasterizePage(data []byte, page int, dpi float64) (*image.RGBA, error)
}

// Renderer produces page previews
type Renderer struct {
	raster PageRasterizer
}

// NewRenderer creates a renderer backed by MuPDF
func NewRenderer() *Renderer {
	return &Renderer{raster: MuPDF{}}
}

// NewRendererWith creates a renderer with a custom page rasterizer
func NewRendererWith(r PageRasterizer) *Renderer {
	return &Renderer{raster: r}
}

// Render rasterizes page 1 so that it is containerWidth display pixels wide
func (r *Renderer) Render(ctx context.Context, data []byte, containerWidth float64) (*PagePreview, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, baerrors.Newf(baerrors.KindDocumentLoad, "render", "empty document")
	}

	// the caller's buffer is never handed to a parser
	src := append([]byte(nil), data...)

	size, err := pdf.FirstPageSize(src)
	if err != nil {
		return nil, baerrors.New(baerrors.KindDocumentLoad, "render", err)
	}

	scale, err := geometry.NewScale(containerWidth, size.Width)
	if err != nil {
		return nil, err
	}
	if w, h := size.Width*float64(scale), size.Height*float64(scale); w > MaxPreviewSide || h > MaxPreviewSide {
		return nil, baerrors.Newf(baerrors.KindInputRejected, "render",
			"preview of %.0fx%.0f px exceeds %d px", w, h, MaxPreviewSide)
	}

	bitmap, err := r.raster.RasterizePage(src, 0, 72*float64(scale))
	if err != nil {
		return nil, baerrors.New(baerrors.KindDocumentLoad, "render", err)
	}

	return &PagePreview{
		Source:       src,
		NativeWidth:  size.Width,
		NativeHeight: size.Height,
		Scale:        scale,
		Bitmap:       bitmap,
	}, nil
}

// MuPDF rasterizes pages with go-fitz
type MuPDF struct{}

// RasterizePage renders page (zero-based) at dpi
func (MuPDF) RasterizePage(data []byte, page int, dpi float64) (*image.RGBA, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer doc.Close()

	if n := doc.NumPage(); page < 0 || page >= n {
		return nil, fmt.Errorf("page %d out of range (document has %d pages)", page+1, n)
	}

	img, err := doc.ImageDPI(page, dpi)
	if err != nil {
		return nil, fmt.Errorf("failed to rasterize page %d: %w", page+1, err)
	}
	return img, nil
}
