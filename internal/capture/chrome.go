// Package capture turns the filled Berita Acara HTML into a bitmap of the
// form region.
package capture

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	baerrors "github.com/markusprap/mcp-berita-acara/internal/errors"
	"github.com/markusprap/mcp-berita-acara/internal/form"
)

// Rasterizer captures the form element of an HTML document as PNG
type Rasterizer interface {
	Rasterize(ctx context.Context, html []byte) ([]byte, error)
	Close() error
}

var _ Rasterizer = (*ChromeRasterizer)(nil)

// The form is always laid out as on a desktop, whatever device asked for it
const (
	ViewportWidth     = 1280
	ViewportHeight    = 1800
	DeviceScaleFactor = 2
	DefaultTimeout    = 30 * time.Second
)

// Sentinel errors for browser failures
var (
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageLoad       = errors.New("failed to load form")
	ErrCapture        = errors.New("failed to capture form")
)

// ChromeRasterizer renders through headless Chrome. The browser starts on
// first use and is reused until Close.
type ChromeRasterizer struct {
	mu      sync.Mutex
	browser *rod.Browser
	bin     string
	timeout time.Duration
}

// NewChromeRasterizer creates a rasterizer. bin overrides the browser
// binary; ROD_BROWSER_BIN is consulted when it is empty.
func NewChromeRasterizer(bin string, timeout time.Duration) *ChromeRasterizer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if bin == "" {
		bin = os.Getenv("ROD_BROWSER_BIN")
	}
	return &ChromeRasterizer{bin: bin, timeout: timeout}
}

func (c *ChromeRasterizer) ensureBrowser() (*rod.Browser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browser != nil {
		return c.browser, nil
	}

	l := launcher.New()
	if c.bin != "" {
		l = l.Bin(c.bin)
	}
	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || c.bin != "" {
		l = l.NoSandbox(true)
	}
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	c.browser = b
	return b, nil
}

// Close releases the browser
func (c *ChromeRasterizer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browser != nil {
		err := c.browser.Close()
		c.browser = nil
		return err
	}
	return nil
}

// Rasterize loads html at a 1280px viewport with device scale factor 2 and
// screenshots the whole form element, growing the viewport when the form is
// taller than it. The PNG is twice the element's CSS size.
func (c *ChromeRasterizer) Rasterize(ctx context.Context, html []byte) ([]byte, error) {
	png, err := c.rasterize(ctx, html)
	if err != nil {
		return nil, baerrors.New(baerrors.KindRender, "capture form", err)
	}
	return png, nil
}

func (c *ChromeRasterizer) rasterize(ctx context.Context, html []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	browser, err := c.ensureBrowser()
	if err != nil {
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	defer page.Close()

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             ViewportWidth,
		Height:            ViewportHeight,
		DeviceScaleFactor: DeviceScaleFactor,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: viewport: %v", ErrPageLoad, err)
	}

	if err := page.SetDocumentContent(string(html)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	if err := page.Timeout(timeout).WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	el, err := page.Timeout(timeout).Element("#" + form.ElementID)
	if err != nil {
		return nil, fmt.Errorf("%w: form element: %v", ErrCapture, err)
	}
	box, err := formBox(el)
	if err != nil {
		return nil, err
	}

	// A form taller than the viewport would be clipped at its bottom edge
	if h := viewportHeightFor(box); h > ViewportHeight {
		err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             ViewportWidth,
			Height:            h,
			DeviceScaleFactor: DeviceScaleFactor,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: viewport: %v", ErrCapture, err)
		}
		if box, err = formBox(el); err != nil {
			return nil, err
		}
	}

	// The clip is in CSS pixels; Chrome applies the device scale factor itself
	png, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format:                proto.PageCaptureScreenshotFormatPng,
		Clip:                  formClip(box),
		CaptureBeyondViewport: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCapture, err)
	}
	return png, nil
}

func formBox(el *rod.Element) (*proto.DOMRect, error) {
	shape, err := el.Shape()
	if err != nil {
		return nil, fmt.Errorf("%w: measure form: %v", ErrCapture, err)
	}
	box := shape.Box()
	if box == nil || box.Width <= 0 || box.Height <= 0 {
		return nil, fmt.Errorf("%w: form element has no size", ErrCapture)
	}
	return box, nil
}

// viewportHeightFor returns the viewport height in CSS pixels that shows the
// whole form without scrolling
func viewportHeightFor(box *proto.DOMRect) int {
	h := int(math.Ceil(box.Y + box.Height))
	if h < ViewportHeight {
		return ViewportHeight
	}
	return h
}

func formClip(box *proto.DOMRect) *proto.PageViewport {
	return &proto.PageViewport{
		X:      box.X,
		Y:      box.Y,
		Width:  box.Width,
		Height: box.Height,
		Scale:  1,
	}
}
