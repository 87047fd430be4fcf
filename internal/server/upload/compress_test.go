package upload

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, solid(w, h), &jpeg.Options{Quality: 95}))
	return buf.Bytes()
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(w, h)))
	return buf.Bytes()
}

func decodeSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	return cfg.Width, cfg.Height
}

func TestScaledSize(t *testing.T) {
	tests := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{2000, 1000, 1024, 1024, 512},
		{1000, 2000, 1024, 512, 1024},
		{600, 1800, 1024, 341, 1024},
		{800, 600, 1024, 800, 600},
		{1024, 1024, 1024, 1024, 1024},
		{5000, 3, 1024, 1024, 1},
	}
	for _, tt := range tests {
		w, h := ScaledSize(tt.w, tt.h, tt.max)
		assert.Equal(t, tt.wantW, w, "%dx%d", tt.w, tt.h)
		assert.Equal(t, tt.wantH, h, "%dx%d", tt.w, tt.h)
	}
}

func TestCompress_JPEGLandscape(t *testing.T) {
	in := &File{Name: "photo.jpg", ContentType: "image/jpeg", Data: encodeJPEG(t, 2000, 1000)}

	out := Compress(in, DefaultMaxWidth, DefaultQuality)

	require.NotSame(t, in, out)
	assert.Equal(t, "photo.jpg", out.Name)
	assert.Equal(t, "image/jpeg", out.ContentType)
	w, h := decodeSize(t, out.Data)
	assert.Equal(t, 1024, w)
	assert.Equal(t, 512, h)
}

func TestCompress_PNGPortraitKeepsAspect(t *testing.T) {
	in := &File{Name: "tall.png", ContentType: "image/png", Data: encodePNG(t, 600, 1800)}

	out := Compress(in, 1024, 0.8)

	w, h := decodeSize(t, out.Data)
	assert.LessOrEqual(t, w, 1024)
	assert.LessOrEqual(t, h, 1024)
	assert.InDelta(t, 600.0/1800.0, float64(w)/float64(h), 0.01)
	assert.Equal(t, "image/png", out.ContentType)
}

func TestCompress_SmallImageNotUpscaled(t *testing.T) {
	in := &File{Name: "icon.png", ContentType: "image/png", Data: encodePNG(t, 64, 32)}

	out := Compress(in, 1024, 0.8)

	w, h := decodeSize(t, out.Data)
	assert.Equal(t, 64, w)
	assert.Equal(t, 32, h)
}

func TestCompress_FallsBackToOriginal(t *testing.T) {
	t.Run("undecodable", func(t *testing.T) {
		in := &File{Name: "x.jpg", ContentType: "image/jpeg", Data: []byte("definitely not an image")}
		assert.Same(t, in, Compress(in, 1024, 0.8))
	})

	t.Run("no encoder for type", func(t *testing.T) {
		in := &File{Name: "x.webp", ContentType: "image/webp", Data: encodePNG(t, 2000, 10)}
		assert.Same(t, in, Compress(in, 1024, 0.8))
	})

	t.Run("non-positive width", func(t *testing.T) {
		in := &File{Name: "x.png", ContentType: "image/png", Data: encodePNG(t, 10, 10)}
		assert.Same(t, in, Compress(in, 0, 0.8))
	})
}

func TestJPEGQuality(t *testing.T) {
	assert.Equal(t, 80, jpegQuality(0.8))
	assert.Equal(t, 1, jpegQuality(0))
	assert.Equal(t, 100, jpegQuality(1.7))
}
