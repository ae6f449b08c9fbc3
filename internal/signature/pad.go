// Package signature records free-hand pen strokes and turns them into a
// transparent raster image.
package signature

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"golang.org/x/image/vector"

	baerrors "github.com/markusprap/mcp-berita-acara/internal/errors"
	"github.com/markusprap/mcp-berita-acara/internal/geometry"
)

// Capture widget size in device pixels
const (
	DefaultWidth  = 320
	DefaultHeight = 200

	DefaultPenWidth = 2.5

	// Largest pad and pen accepted from callers
	MaxWidth    = 2048
	MaxHeight   = 2048
	MaxPenWidth = 64
)

// Stroke is one continuous pen-down ... pen-up path in pad pixels
type Stroke []geometry.DisplayPoint

// Pad is a drawing surface of fixed pixel size
type Pad struct {
	width    int
	height   int
	penWidth float64

	strokes []Stroke
	current Stroke
	drawing bool
}

// Option configures a Pad
type Option func(*Pad)

// WithPenWidth sets the stroke width in pixels
func WithPenWidth(w float64) Option {
	return func(p *Pad) {
		if w > 0 && w <= MaxPenWidth {
			p.penWidth = w
		}
	}
}

// PadSize checks a requested pad size. Zero selects the default; negative
// sizes and sizes beyond MaxWidth x MaxHeight are rejected.
func PadSize(width, height float64) (int, int, error) {
	ok := func(v, max float64) bool { return v >= 0 && v <= max }
	if !ok(width, MaxWidth) || !ok(height, MaxHeight) {
		return 0, 0, baerrors.Newf(baerrors.KindInputRejected, "signature pad",
			"pad size %vx%v is outside %dx%d", width, height, MaxWidth, MaxHeight)
	}
	return int(width), int(height), nil
}

// NewPad creates an empty pad; non-positive sizes fall back to the defaults
// and larger ones are cut to MaxWidth x MaxHeight
func NewPad(width, height int, opts ...Option) *Pad {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	width = min(width, MaxWidth)
	height = min(height, MaxHeight)
	p := &Pad{
		width:    width,
		height:   height,
		penWidth: DefaultPenWidth,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Size returns the pad size in pixels
func (p *Pad) Size() (int, int) {
	return p.width, p.height
}

// BeginStroke puts the pen down at pt
func (p *Pad) BeginStroke(pt geometry.DisplayPoint) {
	if p.drawing {
		p.EndStroke()
	}
	p.drawing = true
	p.current = Stroke{pt}
}

// AddPoint extends the current stroke; ignored while the pen is up
func (p *Pad) AddPoint(pt geometry.DisplayPoint) {
	if !p.drawing {
		return
	}
	p.current = append(p.current, pt)
}

// EndStroke lifts the pen and commits the current stroke
func (p *Pad) EndStroke() {
	if !p.drawing {
		return
	}
	if len(p.current) > 0 {
		p.strokes = append(p.strokes, p.current)
	}
	p.current = nil
	p.drawing = false
}

// AddStroke records a complete stroke at once
func (p *Pad) AddStroke(points ...geometry.DisplayPoint) {
	if len(points) == 0 {
		return
	}
	s := make(Stroke, len(points))
	copy(s, points)
	p.strokes = append(p.strokes, s)
}

// Clear discards all strokes
func (p *Pad) Clear() {
	p.strokes = nil
	p.current = nil
	p.drawing = false
}

// IsEmpty reports whether nothing has been drawn
func (p *Pad) IsEmpty() bool {
	return len(p.strokes) == 0 && len(p.current) == 0
}

// Strokes returns a copy of the committed strokes
func (p *Pad) Strokes() []Stroke {
	out := make([]Stroke, len(p.strokes))
	for i, s := range p.strokes {
		out[i] = append(Stroke(nil), s...)
	}
	return out
}

// Export rasterizes the strokes at the pad's pixel size on a transparent
// background. The strokes stay on the pad.
func (p *Pad) Export() (*Image, error) {
	if p.IsEmpty() {
		return nil, baerrors.New(baerrors.KindEmptySignature, "export signature", nil)
	}

	strokes := p.strokes
	if len(p.current) > 0 {
		strokes = append(append([]Stroke(nil), strokes...), p.current)
	}

	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	ink := image.NewUniform(color.Black)
	r := vector.NewRasterizer(p.width, p.height)
	half := p.penWidth / 2

	// Each dab and segment is rasterized on its own so overlapping shapes
	// with opposite winding never cancel each other out.
	fill := func(build func(r *vector.Rasterizer)) {
		r.Reset(p.width, p.height)
		build(r)
		r.Draw(img, img.Bounds(), ink, image.Point{})
	}

	for _, s := range strokes {
		s = p.clip(s)
		for i, pt := range s {
			fill(func(r *vector.Rasterizer) { dab(r, pt, half) })
			if i == 0 {
				continue
			}
			prev := s[i-1]
			if prev == pt {
				continue
			}
			fill(func(r *vector.Rasterizer) { segment(r, prev, pt, half) })
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode signature: %w", err)
	}
	return &Image{PNG: buf.Bytes(), RGBA: img}, nil
}

// clip pulls points into a band of one pad size around the pad, so far-off
// points cost no more rasterizer rows than the pad has. NaN points are dropped.
func (p *Pad) clip(s Stroke) Stroke {
	w, h := float64(p.width), float64(p.height)
	out := make(Stroke, 0, len(s))
	for _, pt := range s {
		if math.IsNaN(pt.X) || math.IsNaN(pt.Y) {
			continue
		}
		out = append(out, geometry.DisplayPoint{
			X: math.Max(-w, math.Min(2*w, pt.X)),
			Y: math.Max(-h, math.Min(2*h, pt.Y)),
		})
	}
	return out
}

// dab fills a round pen tip centered on pt
func dab(r *vector.Rasterizer, pt geometry.DisplayPoint, radius float64) {
	const steps = 16
	r.MoveTo(float32(pt.X+radius), float32(pt.Y))
	for i := 1; i < steps; i++ {
		a := 2 * math.Pi * float64(i) / steps
		r.LineTo(float32(pt.X+radius*math.Cos(a)), float32(pt.Y+radius*math.Sin(a)))
	}
	r.ClosePath()
}

// segment fills the quad swept by the pen between a and b
func segment(r *vector.Rasterizer, a, b geometry.DisplayPoint, half float64) {
	dx, dy := b.X-a.X, b.Y-a.Y
	l := math.Hypot(dx, dy)
	nx, ny := -dy/l*half, dx/l*half

	r.MoveTo(float32(a.X+nx), float32(a.Y+ny))
	r.LineTo(float32(b.X+nx), float32(b.Y+ny))
	r.LineTo(float32(b.X-nx), float32(b.Y-ny))
	r.LineTo(float32(a.X-nx), float32(a.Y-ny))
	r.ClosePath()
}
