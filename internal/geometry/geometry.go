// Package geometry converts between the three coordinate spaces used when
// placing a signature on a page:
//
//   - display space: on-screen pixels of the rendered preview, origin top-left
//   - native space: unscaled page units (points), origin top-left
//   - PDF space: points, origin bottom-left
//
// Each space has its own types so a missing scale division or a missing
// vertical flip does not type-check.
package geometry

import (
	"errors"
	"fmt"
	"math"
)

// ErrScaleNotMeasured is returned when a conversion is attempted before the
// rendering container has a usable size.
var ErrScaleNotMeasured = errors.New("display scale not measured")

// Scale is the ratio of display pixels to native points
type Scale float64

// NewScale computes containerWidth / nativeWidth
func NewScale(containerWidth, nativeWidth float64) (Scale, error) {
	if !(containerWidth > 0) || math.IsInf(containerWidth, 0) {
		return 0, fmt.Errorf("%w: container width %v", ErrScaleNotMeasured, containerWidth)
	}
	if !(nativeWidth > 0) || math.IsInf(nativeWidth, 0) {
		return 0, fmt.Errorf("%w: native width %v", ErrScaleNotMeasured, nativeWidth)
	}
	return Scale(containerWidth / nativeWidth), nil
}

// Valid reports whether the scale can be used for conversions
func (s Scale) Valid() bool {
	f := float64(s)
	return f > 0 && !math.IsInf(f, 0)
}

func (s Scale) check() error {
	if !s.Valid() {
		return fmt.Errorf("%w: scale %v", ErrScaleNotMeasured, float64(s))
	}
	return nil
}

// DisplayPoint is a point in display pixels, origin top-left
type DisplayPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NativePoint is a point in unscaled page points, origin top-left
type NativePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PDFPoint is a point in PDF user space, origin bottom-left
type PDFPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DisplayRect is a rectangle in display pixels; X,Y is the top-left corner
type DisplayRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PDFRect is a rectangle in PDF space; X,Y is the bottom-left corner
type PDFRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Add returns p translated by (dx, dy)
func (p DisplayPoint) Add(dx, dy float64) DisplayPoint {
	return DisplayPoint{X: p.X + dx, Y: p.Y + dy}
}

// Sub returns the vector from q to p
func (p DisplayPoint) Sub(q DisplayPoint) DisplayPoint {
	return DisplayPoint{X: p.X - q.X, Y: p.Y - q.Y}
}

// Origin returns the top-left corner
func (r DisplayRect) Origin() DisplayPoint {
	return DisplayPoint{X: r.X, Y: r.Y}
}

// Contains reports whether p lies inside the rectangle, edges included
func (r DisplayRect) Contains(p DisplayPoint) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Within reports whether the rectangle lies fully inside a canvas of the given size
func (r DisplayRect) Within(width, height float64) bool {
	return r.X >= 0 && r.Y >= 0 && r.X+r.Width <= width && r.Y+r.Height <= height
}

func (r DisplayRect) String() string {
	return fmt.Sprintf("display(%.1f,%.1f %.1fx%.1f)", r.X, r.Y, r.Width, r.Height)
}

func (r PDFRect) String() string {
	return fmt.Sprintf("pdf(%.2f,%.2f %.2fx%.2f)", r.X, r.Y, r.Width, r.Height)
}

// ToNative divides a display point by the scale
func ToNative(p DisplayPoint, s Scale) (NativePoint, error) {
	if err := s.check(); err != nil {
		return NativePoint{}, err
	}
	f := float64(s)
	return NativePoint{X: p.X / f, Y: p.Y / f}, nil
}

// ToDisplay multiplies a native point by the scale
func ToDisplay(p NativePoint, s Scale) (DisplayPoint, error) {
	if err := s.check(); err != nil {
		return DisplayPoint{}, err
	}
	f := float64(s)
	return DisplayPoint{X: p.X * f, Y: p.Y * f}, nil
}

// ToPDF flips the vertical axis of a native point
func ToPDF(p NativePoint, pageHeight float64) PDFPoint {
	return PDFPoint{X: p.X, Y: pageHeight - p.Y}
}

// FromPDF flips the vertical axis of a PDF point back to native space
func FromPDF(p PDFPoint, pageHeight float64) NativePoint {
	return NativePoint{X: p.X, Y: pageHeight - p.Y}
}

// DisplayToPDF maps a display point straight to PDF space
func DisplayToPDF(p DisplayPoint, s Scale, pageHeight float64) (PDFPoint, error) {
	n, err := ToNative(p, s)
	if err != nil {
		return PDFPoint{}, err
	}
	return ToPDF(n, pageHeight), nil
}

// PDFToDisplay maps a PDF point straight to display space
func PDFToDisplay(p PDFPoint, s Scale, pageHeight float64) (DisplayPoint, error) {
	return ToDisplay(FromPDF(p, pageHeight), s)
}

// PlacementToPDF converts a placement rectangle whose Y is its top edge in
// display space into a PDF rectangle anchored at its bottom-left corner:
//
//	pdfY = pageHeight - Y/scale - Height/scale
func PlacementToPDF(r DisplayRect, s Scale, pageHeight float64) (PDFRect, error) {
	if err := s.check(); err != nil {
		return PDFRect{}, err
	}
	f := float64(s)
	return PDFRect{
		X:      r.X / f,
		Y:      pageHeight - r.Y/f - r.Height/f,
		Width:  r.Width / f,
		Height: r.Height / f,
	}, nil
}

// PDFRectToDisplay is the inverse of PlacementToPDF
func PDFRectToDisplay(r PDFRect, s Scale, pageHeight float64) (DisplayRect, error) {
	if err := s.check(); err != nil {
		return DisplayRect{}, err
	}
	f := float64(s)
	return DisplayRect{
		X:      r.X * f,
		Y:      (pageHeight - r.Y - r.Height) * f,
		Width:  r.Width * f,
		Height: r.Height * f,
	}, nil
}
