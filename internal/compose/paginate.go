package compose

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"github.com/phpdave11/gofpdf"
	_ "golang.org/x/image/webp"

	baerrors "github.com/markusprap/mcp-berita-acara/internal/errors"
)

// JPEGQuality is used when attachments are re-encoded for the report
const JPEGQuality = 80

// pageEpsilon absorbs float error when deciding whether content spills onto
// another page, in mm
const pageEpsilon = 1e-6

var gofpdfTypes = map[string]string{
	"png":  "PNG",
	"jpeg": "JPG",
}

// Paginator lays out a captured form image and photo attachments on A4
// portrait pages
type Paginator struct {
	// Margin around attachment photos, in mm
	Margin float64
}

// NewPaginator creates a paginator with edge-to-edge attachments
func NewPaginator() *Paginator {
	return &Paginator{}
}

// Paginate builds the report PDF. The form image is scaled to the page width
// and continued on as many pages as it needs; every attachment then gets a
// page of its own, centered and scaled to fit. Nothing is returned unless
// the whole document was produced.
func (p *Paginator) Paginate(form []byte, attachments [][]byte) (*Result, error) {
	const op = "paginate"

	formCfg, format, err := image.DecodeConfig(bytes.NewReader(form))
	if err != nil {
		return nil, baerrors.New(baerrors.KindRender, op, fmt.Errorf("form image: %w", err))
	}
	if formCfg.Width == 0 || formCfg.Height == 0 {
		return nil, baerrors.Newf(baerrors.KindRender, op, "form image is empty")
	}
	formType, ok := gofpdfTypes[format]
	if !ok {
		return nil, baerrors.Newf(baerrors.KindRender, op, "form image: unsupported format %s", format)
	}

	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	pageW, pageH := doc.GetPageSize()

	doc.RegisterImageOptionsReader("form", gofpdf.ImageOptions{ImageType: formType}, bytes.NewReader(form))
	imgH := float64(formCfg.Height) * pageW / float64(formCfg.Width)

	previews := [][]byte{form}

	// The whole image is drawn on every page, shifted up by one page height
	// each time; the page boundary does the cropping.
	position := 0.0
	heightLeft := imgH
	doc.AddPage()
	doc.ImageOptions("form", 0, position, pageW, imgH, false, gofpdf.ImageOptions{}, 0, "")
	heightLeft -= pageH
	for heightLeft > pageEpsilon {
		position -= pageH
		doc.AddPage()
		doc.ImageOptions("form", 0, position, pageW, imgH, false, gofpdf.ImageOptions{}, 0, "")
		heightLeft -= pageH
	}

	for i, a := range attachments {
		jpg, w, h, err := reencodeJPEG(a)
		if err != nil {
			return nil, baerrors.New(baerrors.KindRender, op, fmt.Errorf("attachment %d: %w", i+1, err))
		}
		previews = append(previews, jpg)

		name := fmt.Sprintf("attachment-%d", i+1)
		doc.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "JPG"}, bytes.NewReader(jpg))

		boxW, boxH := pageW-2*p.Margin, pageH-2*p.Margin
		ratio := min(boxW/float64(w), boxH/float64(h))
		dw, dh := float64(w)*ratio, float64(h)*ratio

		doc.AddPage()
		doc.ImageOptions(name, (pageW-dw)/2, (pageH-dh)/2, dw, dh, false, gofpdf.ImageOptions{}, 0, "")
	}

	if err := doc.Error(); err != nil {
		return nil, baerrors.New(baerrors.KindRender, op, err)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, baerrors.New(baerrors.KindRender, op, err)
	}

	return &Result{
		PDF:       buf.Bytes(),
		PageCount: doc.PageCount(),
		Previews:  previews,
	}, nil
}

// reencodeJPEG decodes any supported photo format and re-encodes it as a
// JPEG, returning its pixel size
func reencodeJPEG(data []byte) ([]byte, int, int, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, err
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, 0, 0, fmt.Errorf("image is empty")
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, 0, 0, err
	}
	return buf.Bytes(), b.Dx(), b.Dy(), nil
}
