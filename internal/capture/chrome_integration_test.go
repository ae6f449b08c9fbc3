//go:build integration

package capture

import (
	"bytes"
	"context"
	"image"
	_ "image/png"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markusprap/mcp-berita-acara/internal/form"
)

// measureForm lays html out the way Rasterize does and returns the form box
func measureForm(t *testing.T, r *ChromeRasterizer, html []byte) *proto.DOMRect {
	t.Helper()
	browser, err := r.ensureBrowser()
	require.NoError(t, err)

	page, err := browser.Page(proto.TargetCreateTarget{})
	require.NoError(t, err)
	defer page.Close()

	require.NoError(t, page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             ViewportWidth,
		Height:            ViewportHeight,
		DeviceScaleFactor: DeviceScaleFactor,
	}))
	require.NoError(t, page.SetDocumentContent(string(html)))
	require.NoError(t, page.WaitLoad())

	el, err := page.Element("#" + form.ElementID)
	require.NoError(t, err)
	box, err := formBox(el)
	require.NoError(t, err)
	return box
}

func capture(t *testing.T, r *ChromeRasterizer, data form.Data) (image.Config, *proto.DOMRect) {
	t.Helper()
	html, err := form.Render(data, nil)
	require.NoError(t, err)

	png, err := r.Rasterize(context.Background(), html)
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(png))
	require.NoError(t, err)
	require.Equal(t, "png", format)
	return cfg, measureForm(t, r, html)
}

func TestChromeRasterizer_CapturesFormAtDoubleScale(t *testing.T) {
	r := NewChromeRasterizer("", time.Minute)
	defer r.Close()

	cfg, box := capture(t, r, form.Data{KodeToko: "A12B", NamaToko: "Toko Contoh"})

	assert.InDelta(t, math.Round(box.Width*DeviceScaleFactor), cfg.Width, 2)
	assert.InDelta(t, math.Round(box.Height*DeviceScaleFactor), cfg.Height, 2)
}

func TestChromeRasterizer_CapturesTallFormInFull(t *testing.T) {
	r := NewChromeRasterizer("", time.Minute)
	defer r.Close()

	kronologi := strings.Repeat("Selisih stok ditemukan saat stock opname.\n", 120)
	cfg, box := capture(t, r, form.Data{KodeToko: "A12B", NamaToko: "Toko Contoh", Kronologi: kronologi})

	require.Greater(t, box.Y+box.Height, float64(ViewportHeight), "form must be taller than the viewport")
	assert.InDelta(t, math.Round(box.Height*DeviceScaleFactor), cfg.Height, 2)
	assert.InDelta(t, math.Round(box.Width*DeviceScaleFactor), cfg.Width, 2)
}

func TestChromeRasterizer_MissingElement(t *testing.T) {
	r := NewChromeRasterizer("", 5*time.Second)
	defer r.Close()

	_, err := r.Rasterize(context.Background(), []byte("<html><body>nothing</body></html>"))
	assert.Error(t, err)
}
