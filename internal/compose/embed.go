package compose

import (
	"bytes"
	"fmt"
	"math"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	baerrors "github.com/markusprap/mcp-berita-acara/internal/errors"
	"github.com/markusprap/mcp-berita-acara/internal/geometry"
	"github.com/markusprap/mcp-berita-acara/internal/pdf"
	"github.com/markusprap/mcp-berita-acara/internal/roles"
	"github.com/markusprap/mcp-berita-acara/internal/signature"
)

// Name label layout relative to the signature's bottom-left corner, in points
const (
	LabelFontSize = 8
	LabelOffsetX  = 10.0
	LabelOffsetY  = -12.0
)

// oversample is the number of signature pixels per point of stamp width
const oversample = 4

// EmbedRequest carries everything needed to sign page 1 of a document
type EmbedRequest struct {
	Original   []byte
	Signature  *signature.Image
	Placement  geometry.DisplayRect
	Scale      geometry.Scale
	PageHeight float64 // native page height in points; read from Original when zero
	Identity   roles.Identity
}

// Embedder stamps signatures onto existing documents
type Embedder struct{}

// NewEmbedder creates an embedder
func NewEmbedder() *Embedder {
	return &Embedder{}
}

// Embed returns a new document with the signature, and for roles that carry
// one the signer's name, drawn on page 1. The input bytes are left as
// they are, so embedding twice from the same source never accumulates
// stamps.
func (e *Embedder) Embed(req EmbedRequest) (*Result, error) {
	const op = "embed"

	if req.Signature == nil || req.Signature.RGBA == nil {
		return nil, baerrors.New(baerrors.KindEmbed, op, baerrors.EmptySignature)
	}
	src := append([]byte(nil), req.Original...)

	size, err := pdf.FirstPageSize(src)
	if err != nil {
		return nil, baerrors.New(baerrors.KindEmbed, op, err)
	}
	pageHeight := req.PageHeight
	if !(pageHeight > 0) {
		pageHeight = size.Height
	}

	rect, err := geometry.PlacementToPDF(req.Placement, req.Scale, pageHeight)
	if err != nil {
		return nil, baerrors.New(baerrors.KindEmbed, op, err)
	}

	stamps, err := e.stamps(rect, req.Signature, req.Identity)
	if err != nil {
		return nil, baerrors.New(baerrors.KindEmbed, op, err)
	}

	var out bytes.Buffer
	m := map[int][]*model.Watermark{1: stamps}
	if err := api.AddWatermarksSliceMap(bytes.NewReader(src), &out, m, pdf.Config()); err != nil {
		return nil, baerrors.New(baerrors.KindEmbed, op, fmt.Errorf("stamp page 1: %w", err))
	}

	n, err := pdf.PageCount(out.Bytes())
	if err != nil {
		return nil, baerrors.New(baerrors.KindEmbed, op, err)
	}

	return &Result{PDF: out.Bytes(), PageCount: n}, nil
}

// stamps builds the image stamp and the optional name label
func (e *Embedder) stamps(rect geometry.PDFRect, sig *signature.Image, id roles.Identity) ([]*model.Watermark, error) {
	pxW := int(math.Round(rect.Width * oversample))
	pxH := int(math.Round(rect.Height * oversample))
	fitted, err := sig.Resample(pxW, pxH)
	if err != nil {
		return nil, err
	}

	// Scale is absolute: one image pixel is one point before scaling
	desc := fmt.Sprintf("pos:bl, off:%.2f %.2f, scale:%.4f abs, rot:0, op:1",
		rect.X, rect.Y, rect.Width/float64(pxW))
	img, err := api.ImageWatermarkForReader(bytes.NewReader(fitted.PNG), desc, true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("signature stamp: %w", err)
	}
	out := []*model.Watermark{img}

	if label := id.NameLabel(); label != "" {
		desc := fmt.Sprintf("font:Helvetica, points:%d, pos:bl, off:%.2f %.2f, scale:1 abs, rot:0, fillcolor:#000000, op:1",
			LabelFontSize, rect.X+LabelOffsetX, rect.Y+LabelOffsetY)
		txt, err := api.TextWatermark(label, desc, true, false, types.POINTS)
		if err != nil {
			return nil, fmt.Errorf("name label: %w", err)
		}
		out = append(out, txt)
	}
	return out, nil
}
