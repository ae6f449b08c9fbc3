// Package placement tracks the draggable, resizable signature rectangle over
// a rendered page preview. All coordinates are display pixels.
package placement

import (
	"errors"
	"fmt"
	"math"

	"github.com/markusprap/mcp-berita-acara/internal/geometry"
)

// Rectangle constraints in display pixels
const (
	AspectRatio = 0.45
	MinWidth    = 50.0
	MaxWidth    = 200.0
	HandleSize  = 16.0
)

// ErrCanvasTooSmall is returned when the smallest rectangle cannot fit
var ErrCanvasTooSmall = errors.New("canvas too small for signature placement")

// State of the controller
type State int

const (
	Idle State = iota
	Placed
	Committed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Placed:
		return "placed"
	case Committed:
		return "committed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Mode is the gesture in progress while Placed
type Mode int

const (
	ModeNone Mode = iota
	ModeDrag
	ModeResize
)

// Controller owns the single placement rectangle
type Controller struct {
	canvasW, canvasH float64

	state State
	rect  geometry.DisplayRect

	mode        Mode
	grab        geometry.DisplayPoint
	resizeStart geometry.DisplayPoint
	startWidth  float64
}

// New returns an idle controller for a canvas of the given size
func New(canvasWidth, canvasHeight float64) (*Controller, error) {
	c := &Controller{}
	if err := c.SetCanvas(canvasWidth, canvasHeight); err != nil {
		return nil, err
	}
	return c, nil
}

// SetCanvas changes the canvas size and re-clamps the rectangle
func (c *Controller) SetCanvas(width, height float64) error {
	if !(width >= MinWidth) || !(height >= MinWidth*AspectRatio) || math.IsInf(width, 0) || math.IsInf(height, 0) {
		return fmt.Errorf("%w: %vx%v", ErrCanvasTooSmall, width, height)
	}
	c.canvasW, c.canvasH = width, height
	if c.state != Idle {
		c.rect = c.fit(c.rect)
	}
	return nil
}

// Canvas returns the canvas size
func (c *Controller) Canvas() (float64, float64) {
	return c.canvasW, c.canvasH
}

// State returns the current state
func (c *Controller) State() State { return c.state }

// Mode returns the gesture in progress
func (c *Controller) Mode() Mode { return c.mode }

// Rect returns the current rectangle; ok is false while Idle
func (c *Controller) Rect() (geometry.DisplayRect, bool) {
	return c.rect, c.state != Idle
}

// Place resets the rectangle to r, normalized to the constraints, and makes
// it interactive. Used whenever a new signature image is captured.
func (c *Controller) Place(r geometry.DisplayRect) geometry.DisplayRect {
	c.rect = c.fit(r)
	c.state = Placed
	c.mode = ModeNone
	return c.rect
}

// PointerDown starts a drag inside the rectangle or a resize on its
// bottom-right handle. It reports whether a gesture started.
func (c *Controller) PointerDown(p geometry.DisplayPoint) bool {
	if c.state != Placed {
		return false
	}
	switch {
	case c.onHandle(p):
		c.mode = ModeResize
		c.resizeStart = p
		c.startWidth = c.rect.Width
	case c.rect.Contains(p):
		c.mode = ModeDrag
		c.grab = p.Sub(c.rect.Origin())
	default:
		c.mode = ModeNone
		return false
	}
	return true
}

// PointerMove updates the gesture in progress
func (c *Controller) PointerMove(p geometry.DisplayPoint) geometry.DisplayRect {
	if c.state != Placed {
		return c.rect
	}
	switch c.mode {
	case ModeDrag:
		pos := p.Sub(c.grab)
		c.rect.X, c.rect.Y = pos.X, pos.Y
		c.rect = c.clampPosition(c.rect)
	case ModeResize:
		c.rect = c.resize(c.startWidth + (p.X - c.resizeStart.X))
	}
	return c.rect
}

// PointerUp ends the gesture in progress
func (c *Controller) PointerUp() {
	c.mode = ModeNone
}

// Commit freezes the placement for composition
func (c *Controller) Commit() (geometry.DisplayRect, error) {
	if c.state != Placed {
		return geometry.DisplayRect{}, fmt.Errorf("commit placement in state %s", c.state)
	}
	c.mode = ModeNone
	c.state = Committed
	return c.rect, nil
}

// Reopen makes a committed placement interactive again
func (c *Controller) Reopen() {
	if c.state == Committed {
		c.state = Placed
	}
}

// Reset discards the rectangle
func (c *Controller) Reset() {
	c.state = Idle
	c.mode = ModeNone
	c.rect = geometry.DisplayRect{}
}

func (c *Controller) onHandle(p geometry.DisplayPoint) bool {
	h := geometry.DisplayRect{
		X:      c.rect.X + c.rect.Width - HandleSize,
		Y:      c.rect.Y + c.rect.Height - HandleSize,
		Width:  HandleSize,
		Height: HandleSize,
	}
	return h.Contains(p)
}

// resize keeps the top-left corner fixed when there is room, otherwise the
// rectangle is shifted back inside the canvas.
func (c *Controller) resize(width float64) geometry.DisplayRect {
	r := c.rect
	avail := math.Min(c.canvasW-r.X, (c.canvasH-r.Y)/AspectRatio)
	w := clamp(width, MinWidth, MaxWidth)
	if avail >= MinWidth {
		w = math.Min(w, avail)
	} else {
		w = MinWidth
	}
	r.Width = w
	r.Height = w * AspectRatio
	return c.clampPosition(r)
}

// fit normalizes an arbitrary rectangle: width bounded, aspect fixed,
// position clamped.
func (c *Controller) fit(r geometry.DisplayRect) geometry.DisplayRect {
	w := r.Width
	if !(w > 0) {
		w = MinWidth
	}
	w = clamp(w, MinWidth, MaxWidth)
	w = math.Max(MinWidth, math.Min(w, math.Min(c.canvasW, c.canvasH/AspectRatio)))
	r.Width = w
	r.Height = w * AspectRatio
	return c.clampPosition(r)
}

func (c *Controller) clampPosition(r geometry.DisplayRect) geometry.DisplayRect {
	r.X = clamp(r.X, 0, c.canvasW-r.Width)
	r.Y = clamp(r.Y, 0, c.canvasH-r.Height)
	return r
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
