package signature

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	"image/png"

	xdraw "golang.org/x/image/draw"

	baerrors "github.com/markusprap/mcp-berita-acara/internal/errors"
)

// Image is an exported signature. Treat it as read-only; a new capture
// produces a new Image.
type Image struct {
	PNG  []byte
	RGBA *image.RGBA
}

// Width returns the pixel width
func (i *Image) Width() int {
	return i.RGBA.Bounds().Dx()
}

// Height returns the pixel height
func (i *Image) Height() int {
	return i.RGBA.Bounds().Dy()
}

// MaxImageSide bounds either side of an uploaded signature image
const MaxImageSide = 4096

// LoadImage wraps an externally drawn PNG or JPEG. A fully transparent
// image counts as an empty signature. The header is checked before any
// pixels are decoded.
func LoadImage(data []byte) (*Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, baerrors.New(baerrors.KindInputRejected, "decode signature", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > MaxImageSide || cfg.Height > MaxImageSide {
		return nil, baerrors.Newf(baerrors.KindInputRejected, "decode signature",
			"image of %dx%d px is outside %dx%d", cfg.Width, cfg.Height, MaxImageSide, MaxImageSide)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, baerrors.New(baerrors.KindInputRejected, "decode signature", err)
	}

	b := src.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), src, b.Min, draw.Src)

	if transparent(rgba) {
		return nil, baerrors.New(baerrors.KindEmptySignature, "load signature", nil)
	}

	// Re-encode so non-PNG uploads embed the same way as drawn ones
	var buf bytes.Buffer
	if err := png.Encode(&buf, rgba); err != nil {
		return nil, fmt.Errorf("encode signature: %w", err)
	}
	return &Image{PNG: buf.Bytes(), RGBA: rgba}, nil
}

// Resample returns a copy scaled to w x h pixels
func (i *Image) Resample(w, h int) (*Image, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("resample signature: invalid size %dx%d", w, h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), i.RGBA, i.RGBA.Bounds(), xdraw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode signature: %w", err)
	}
	return &Image{PNG: buf.Bytes(), RGBA: dst}, nil
}

func transparent(img *image.RGBA) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 {
			return false
		}
	}
	return true
}
