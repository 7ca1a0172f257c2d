package ocr

import (
	"image"
	"image/color"
	"testing"
)

func TestNormalize(t *testing.T) {
	in := "Name:  John Smith   \r\n-----\r\n\r\n\r\n\r\nDOB: 01/05/1990  \n"
	want := "Name:  John Smith\n\nDOB: 01/05/1990"
	if got := Normalize(in); got != want {
		t.Fatalf("Normalize = %q, want %q", got, want)
	}
	if Normalize("") != "" {
		t.Fatal("empty input changed")
	}
}

func TestPrepareImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 200, 100))
	src.Set(10, 10, color.White)

	same := PrepareImage(src, 0)
	if same.Bounds().Dx() != 200 || same.Bounds().Dy() != 100 {
		t.Fatalf("unexpected resize: %v", same.Bounds())
	}
	if same.GrayAt(10, 10).Y != 255 {
		t.Fatalf("pixel lost in grayscale conversion: %v", same.GrayAt(10, 10))
	}

	small := PrepareImage(src, 5000)
	b := small.Bounds()
	if b.Dx()*b.Dy() > 5000 || b.Dx() < 90 {
		t.Fatalf("downscaled bounds = %v", b)
	}
}

func TestPageNumber(t *testing.T) {
	for in, want := range map[string]int{
		"/tmp/x/page-1.png":   1,
		"/tmp/x/page-010.png": 10,
		"/tmp/x/page.png":     0,
	} {
		if got := pageNumber(in); got != want {
			t.Errorf("pageNumber(%q) = %d, want %d", in, got, want)
		}
	}
}
