package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"

	"golang.org/x/image/draw"
)

// PrepareImage converts a rendered page to grayscale and, when maxPixels > 0,
// scales it down so width*height stays within maxPixels.
func PrepareImage(src image.Image, maxPixels int) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxPixels > 0 && w*h > maxPixels {
		scale := math.Sqrt(float64(maxPixels) / float64(w*h))
		w = max(1, int(float64(w)*scale))
		h = max(1, int(float64(h)*scale))
	}
	dst := image.NewGray(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// EncodePNG encodes img losslessly for the OCR engine.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// prepareFile rewrites a PNG produced by pdftoppm in place.
func prepareFile(path string, maxPixels int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	img, err := png.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	data, err := EncodePNG(PrepareImage(img, maxPixels))
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
