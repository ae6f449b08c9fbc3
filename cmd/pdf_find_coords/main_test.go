package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markusprap/mcp-berita-acara/internal/geometry"
	"github.com/markusprap/mcp-berita-acara/internal/pdf/pdftest"
	"github.com/markusprap/mcp-berita-acara/internal/render"
)

type blankRaster struct{}

func (blankRaster) RasterizePage(_ []byte, _ int, dpi float64) (*image.RGBA, error) {
	w := int(math.Round(pdftest.A4Width * dpi / 72))
	h := int(math.Round(pdftest.A4Height * dpi / 72))
	return image.NewRGBA(image.Rect(0, 0, w, h)), nil
}

func TestParseClicks(t *testing.T) {
	points, err := parseClicks([]string{"10,20", " 1.5 , 2.25"})
	require.NoError(t, err)
	assert.Equal(t, []geometry.DisplayPoint{{X: 10, Y: 20}, {X: 1.5, Y: 2.25}}, points)

	for _, bad := range []string{"10", "a,1", "1,b"} {
		_, err := parseClicks([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestFindCoords(t *testing.T) {
	data := pdftest.BA(t, "A12B")
	r := render.NewRendererWith(blankRaster{})

	// native width, so the scale is 1 and only the vertical flip applies
	rep, err := findCoords(context.Background(), r, data, pdftest.A4Width,
		[]geometry.DisplayPoint{{X: 100, Y: pdftest.A4Height - 100}})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, rep.Scale, 1e-6)
	require.Len(t, rep.Clicks, 1)
	assert.InDelta(t, 100, rep.Clicks[0].PDF.X, 1e-3)
	assert.InDelta(t, 100, rep.Clicks[0].PDF.Y, 1e-3)

	require.Len(t, rep.Roles, 5)
	as := rep.Roles[0]
	assert.Equal(t, "AS", as.Role)
	assert.InDelta(t, as.PDF.X, as.Display.X, 1e-3)
	assert.InDelta(t, pdftest.A4Height-as.PDF.Y-as.PDF.Height, as.Display.Y, 1e-3)
}

func TestFindCoords_Errors(t *testing.T) {
	r := render.NewRendererWith(blankRaster{})
	_, err := findCoords(context.Background(), r, nil, 600, nil)
	assert.Error(t, err)

	_, err = findCoords(context.Background(), r, pdftest.BA(t, "A12B"), 0, nil)
	assert.ErrorIs(t, err, geometry.ErrScaleNotMeasured)
}

func TestOutputResults(t *testing.T) {
	rep, err := findCoords(context.Background(), render.NewRendererWith(blankRaster{}),
		pdftest.BA(t, "A12B"), 600, []geometry.DisplayPoint{{X: 50, Y: 60}})
	require.NoError(t, err)

	var text bytes.Buffer
	require.NoError(t, outputResults(&text, rep, "text"))
	assert.Contains(t, text.String(), "Default signature boxes:")
	assert.Contains(t, text.String(), "click (50.0, 60.0)")

	var js bytes.Buffer
	require.NoError(t, outputResults(&js, rep, "json"))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Len(t, decoded["roles"], 5)
	assert.NotContains(t, decoded, "preview")

	assert.Error(t, outputResults(&js, rep, "xml"))
}

func TestWritePreview(t *testing.T) {
	rep, err := findCoords(context.Background(), render.NewRendererWith(blankRaster{}),
		pdftest.BA(t, "A12B"), 300, nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "page1.png")
	require.NoError(t, writePreview(path, rep.preview))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
