package pdf

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func TestEncoder_SinglePageKeepsPixelDimensions(t *testing.T) {
	var out bytes.Buffer
	err := NewEncoder().Encode(&out, []image.Image{solid(64, 48, color.NRGBA{R: 255, A: 255})})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out.Bytes(), []byte("%PDF-")))

	inspector := NewInspector()
	count, err := inspector.PageCount(bytes.NewReader(out.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	sizes, err := inspector.PageSizes(bytes.NewReader(out.Bytes()))
	require.NoError(t, err)
	require.Len(t, sizes, 1)
	assert.InDelta(t, 64, sizes[0].Width, 0.01)
	assert.InDelta(t, 48, sizes[0].Height, 0.01)
}

func TestEncoder_MultiPagePreservesOrder(t *testing.T) {
	pages := []image.Image{
		solid(10, 11, color.NRGBA{R: 1, A: 255}),
		solid(20, 22, color.NRGBA{G: 1, A: 255}),
		solid(30, 15, color.NRGBA{B: 1, A: 255}),
	}
	var out bytes.Buffer
	require.NoError(t, NewEncoder().Encode(&out, pages))

	sizes, err := NewInspector().PageSizes(bytes.NewReader(out.Bytes()))
	require.NoError(t, err)
	require.Len(t, sizes, 3)
	for i, p := range pages {
		assert.InDelta(t, float64(p.Bounds().Dx()), sizes[i].Width, 0.01, "page %d width", i+1)
		assert.InDelta(t, float64(p.Bounds().Dy()), sizes[i].Height, 0.01, "page %d height", i+1)
	}
}

func TestEncoder_Errors(t *testing.T) {
	var out bytes.Buffer

	err := NewEncoder().Encode(&out, nil)
	assert.ErrorIs(t, err, ErrNoPages)

	err = NewEncoder().Encode(&out, []image.Image{solid(2, 2, color.NRGBA{A: 255}), nil})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page 2")

	err = NewEncoder().Encode(&out, []image.Image{image.NewNRGBA(image.Rect(0, 0, 0, 0))})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty image")
}

func TestInspector_RejectsGarbage(t *testing.T) {
	_, err := NewInspector().PageCount(bytes.NewReader([]byte("definitely not a pdf")))
	assert.Error(t, err)
}
