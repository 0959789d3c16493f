package worker

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResolution(t *testing.T) {
	w, h, ok := parseResolution("2048x2048")
	require.True(t, ok)
	assert.Equal(t, 2048, w)
	assert.Equal(t, 2048, h)

	_, _, ok = parseResolution("not-a-resolution")
	assert.False(t, ok)

	_, _, ok = parseResolution("0x0")
	assert.False(t, ok)
}

func TestFinalizeOutputResizesAndStripsMetadata(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 400, 300))
	for y := 0; y < 300; y++ {
		for x := 0; x < 400; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 255), G: uint8(y % 255), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}))

	out, err := finalizeOutput(buf.Bytes(), "100x100")
	require.NoError(t, err)

	decoded, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	bounds := decoded.Bounds()
	assert.LessOrEqual(t, bounds.Dx(), 100)
	assert.LessOrEqual(t, bounds.Dy(), 100)
}

func TestFinalizeOutputWithoutResolutionStillReencodes(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 50, 50))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}))

	out, err := finalizeOutput(buf.Bytes(), "")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
