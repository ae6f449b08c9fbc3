package geometry

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const a4Height = 841.89

func TestNewScale(t *testing.T) {
	tests := []struct {
		name      string
		container float64
		native    float64
		want      Scale
		wantErr   bool
	}{
		{"a4 at 600px", 600, 595.28, Scale(600 / 595.28), false},
		{"unmeasured container", 0, 595.28, 0, true},
		{"negative container", -10, 595.28, 0, true},
		{"zero native width", 600, 0, 0, true},
		{"nan container", math.NaN(), 595.28, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewScale(tt.container, tt.native)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrScaleNotMeasured)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, float64(tt.want), float64(got), 1e-12)
		})
	}
}

func TestConversionsRejectUnmeasuredScale(t *testing.T) {
	for _, s := range []Scale{0, -1, Scale(math.NaN()), Scale(math.Inf(1))} {
		_, err := ToNative(DisplayPoint{X: 1, Y: 1}, s)
		assert.ErrorIs(t, err, ErrScaleNotMeasured)

		_, err = PlacementToPDF(DisplayRect{Width: 100, Height: 45}, s, a4Height)
		assert.ErrorIs(t, err, ErrScaleNotMeasured)
	}
}

func TestPlacementToPDF_FlipsAndSubtractsHeight(t *testing.T) {
	// 2x preview of an A4 page, signature 200x90 display px at (100, 200)
	r := DisplayRect{X: 100, Y: 200, Width: 200, Height: 90}

	got, err := PlacementToPDF(r, 2, a4Height)
	require.NoError(t, err)

	assert.InDelta(t, 50, got.X, 1e-9)
	assert.InDelta(t, a4Height-100-45, got.Y, 1e-9)
	assert.InDelta(t, 100, got.Width, 1e-9)
	assert.InDelta(t, 45, got.Height, 1e-9)
}

func TestPlacementRoundTrip(t *testing.T) {
	r := DisplayRect{X: 12.5, Y: 301.25, Width: 120, Height: 54}
	s := Scale(600 / 595.28)

	p, err := PlacementToPDF(r, s, a4Height)
	require.NoError(t, err)
	back, err := PDFRectToDisplay(p, s, a4Height)
	require.NoError(t, err)

	assert.InDelta(t, r.X, back.X, 1e-9)
	assert.InDelta(t, r.Y, back.Y, 1e-9)
	assert.InDelta(t, r.Width, back.Width, 1e-9)
	assert.InDelta(t, r.Height, back.Height, 1e-9)
}

func TestPointRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		s := Scale(0.1 + rng.Float64()*4)
		pageHeight := 200 + rng.Float64()*1000
		p := DisplayPoint{X: rng.Float64() * 1200, Y: rng.Float64() * 1600}

		pdfPoint, err := DisplayToPDF(p, s, pageHeight)
		require.NoError(t, err)
		back, err := PDFToDisplay(pdfPoint, s, pageHeight)
		require.NoError(t, err)

		assert.InDelta(t, p.X, back.X, 1e-9)
		assert.InDelta(t, p.Y, back.Y, 1e-9)
	}
}

func TestToPDF_OriginsMapToOppositeCorners(t *testing.T) {
	top := ToPDF(NativePoint{X: 0, Y: 0}, a4Height)
	assert.Equal(t, PDFPoint{X: 0, Y: a4Height}, top)

	bottom := ToPDF(NativePoint{X: 0, Y: a4Height}, a4Height)
	assert.Equal(t, PDFPoint{X: 0, Y: 0}, bottom)
}

func TestDisplayRect_ContainsAndWithin(t *testing.T) {
	r := DisplayRect{X: 10, Y: 10, Width: 100, Height: 45}

	assert.True(t, r.Contains(DisplayPoint{X: 10, Y: 10}))
	assert.True(t, r.Contains(DisplayPoint{X: 110, Y: 55}))
	assert.False(t, r.Contains(DisplayPoint{X: 111, Y: 20}))

	assert.True(t, r.Within(110, 55))
	assert.False(t, r.Within(109, 55))
	assert.False(t, DisplayRect{X: -1, Width: 5, Height: 5}.Within(100, 100))
}
