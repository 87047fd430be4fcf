package upload

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"math"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Defaults applied by the HTTP layer when the caller does not choose.
const (
	DefaultMaxWidth = 1024
	DefaultQuality  = 0.8
)

// Compress scales the image so its larger side is at most maxWidth, keeping
// the aspect ratio, and re-encodes it at quality (0..1, JPEG only). Images
// already small enough are re-encoded without scaling. The result keeps the
// name and content type of f.
//
// Compression is best effort: when f cannot be decoded or re-encoded, f
// itself is returned.
func Compress(f *File, maxWidth int, quality float64) *File {
	if maxWidth <= 0 {
		return f
	}

	src, _, err := image.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return f
	}

	w, h := ScaledSize(src.Bounds().Dx(), src.Bounds().Dy(), maxWidth)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	switch f.ContentType {
	case "image/jpeg", "image/jpg":
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality(quality)})
	case "image/png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		err = enc.Encode(&buf, dst)
	default:
		// no encoder available (e.g. WebP)
		return f
	}
	if err != nil {
		return f
	}

	return &File{Name: f.Name, ContentType: f.ContentType, Data: buf.Bytes()}
}

// ScaledSize returns the dimensions after applying a uniform scale factor
// that brings the larger side down to maxWidth. It never upscales.
func ScaledSize(width, height, maxWidth int) (int, int) {
	larger := max(width, height)
	if larger <= maxWidth || larger == 0 {
		return width, height
	}

	scale := float64(maxWidth) / float64(larger)
	w := max(1, int(math.Round(float64(width)*scale)))
	h := max(1, int(math.Round(float64(height)*scale)))
	return min(w, maxWidth), min(h, maxWidth)
}

func jpegQuality(q float64) int {
	v := int(math.Round(q * 100))
	return min(max(v, 1), 100)
}
