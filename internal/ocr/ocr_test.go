package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/order-intake/internal/testutil"
)

type call struct {
	name string
	args []string
}

// stubRunner fakes binaries: missing names fail LookPath, and run funcs
// produce output (and files) per binary.
type stubRunner struct {
	missing map[string]bool
	run     map[string]func(args []string) ([]byte, error)
	calls   []call
}

func (s *stubRunner) LookPath(name string) (string, error) {
	if s.missing[name] {
		return "", fmt.Errorf("exec: %q: not found", name)
	}
	return "/usr/bin/" + name, nil
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.calls = append(s.calls, call{name: name, args: args})
	fn, ok := s.run[name]
	if !ok {
		return nil, []byte("unexpected command"), fmt.Errorf("unexpected command %s", name)
	}
	out, err := fn(args)
	if err != nil {
		return nil, []byte(err.Error()), err
	}
	return out, nil, nil
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestTextLayerReadsEmbeddedText(t *testing.T) {
	doc := testutil.BuildPDF(
		[]string{"Patient Name: John Smith", "Order 77"},
		nil,
		[]string{"Date of Birth: 01/15/1990"},
	)
	r := &stubRunner{}
	tl := NewTextLayer(Config{}, r, nil)

	pages, err := tl.PageTexts(context.Background(), doc)
	if err != nil {
		t.Fatalf("PageTexts: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("pages = %d, want 3", len(pages))
	}
	if !strings.Contains(pages[0], "John Smith") || !strings.Contains(pages[2], "01/15/1990") {
		t.Fatalf("unexpected text: %q", pages)
	}
	if strings.TrimSpace(pages[1]) != "" {
		t.Fatalf("blank page has text %q", pages[1])
	}
	if len(r.calls) != 0 {
		t.Fatalf("pdftotext called for a parseable pdf: %+v", r.calls)
	}
}

func TestTextLayerKeepsPositionedLines(t *testing.T) {
	cases := []struct {
		name   string
		stream string
		want   string
	}{
		{
			name:   "Td",
			stream: "BT /F1 12 Tf 72 720 Td (Patient Name: John Smith) Tj 0 -14 Td (Date of Birth: 01/15/1990) Tj ET",
			want:   "Patient Name: John Smith\nDate of Birth: 01/15/1990",
		},
		{
			name:   "Tm",
			stream: "BT /F1 12 Tf 1 0 0 1 72 720 Tm (Patient Name: John Smith) Tj 1 0 0 1 72 706 Tm (Date of Birth: 01/15/1990) Tj ET",
			want:   "Patient Name: John Smith\nDate of Birth: 01/15/1990",
		},
		{
			name:   "scaled Tm",
			stream: "BT /F1 1 Tf 12 0 0 12 72 720 Tm (Name: Ada Lovelace) Tj 0 -1.2 Td (DOB: 12/10/1815) Tj ET",
			want:   "Name: Ada Lovelace\nDOB: 12/10/1815",
		},
		{
			name:   "columns on one row",
			stream: "BT /F1 12 Tf 72 720 Td (Name:) Tj 60 0 Td (Grace Hopper) Tj 200 0 Td (Order 77) Tj ET",
			want:   "Name:  Grace Hopper  Order 77",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tl := NewTextLayer(Config{}, &stubRunner{}, nil)
			pages, err := tl.PageTexts(context.Background(), testutil.BuildPDFStreams(tc.stream))
			if err != nil {
				t.Fatalf("PageTexts: %v", err)
			}
			if len(pages) != 1 || strings.TrimSpace(pages[0]) != tc.want {
				t.Fatalf("text = %q, want %q", pages, tc.want)
			}
		})
	}
}

func TestJoinGlyphs(t *testing.T) {
	run := func(x, y, w float64, s string) []pdf.Text {
		var out []pdf.Text
		for _, r := range s {
			out = append(out, pdf.Text{FontSize: 10, X: x, Y: y, W: w, S: string(r)})
			x += w
		}
		return out
	}
	cat := func(runs ...[]pdf.Text) []pdf.Text {
		var out []pdf.Text
		for _, r := range runs {
			out = append(out, r...)
		}
		return out
	}

	cases := []struct {
		name   string
		glyphs []pdf.Text
		want   string
	}{
		{"empty", nil, ""},
		{"zero width run", run(72, 700, 0, "Jane Doe"), "Jane Doe"},
		{"new baseline", cat(run(72, 700, 5, "Name"), run(72, 686, 5, "DOB")), "Name\nDOB"},
		{"word gap", cat(run(72, 700, 5, "Jane"), run(95, 700, 5, "Doe")), "Jane Doe"},
		{"column gap", cat(run(72, 700, 5, "Name:"), run(150, 700, 5, "Jane")), "Name:  Jane"},
		{"newline glyphs skipped", cat(run(72, 700, 5, "A"), []pdf.Text{{S: "\n"}}, run(77, 700, 5, "B")), "AB"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := joinGlyphs(tc.glyphs); got != tc.want {
				t.Fatalf("joinGlyphs = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestTextLayerFallsBackToPdftotext(t *testing.T) {
	r := &stubRunner{run: map[string]func([]string) ([]byte, error){
		"pdftotext": func(args []string) ([]byte, error) {
			if _, err := os.Stat(args[len(args)-2]); err != nil {
				return nil, err
			}
			return []byte("first page\fsecond page\f"), nil
		},
	}}
	tl := NewTextLayer(Config{}, r, nil)

	pages, err := tl.PageTexts(context.Background(), []byte("%PDF-1.4 truncated"))
	if err != nil {
		t.Fatalf("PageTexts: %v", err)
	}
	if len(pages) != 2 || pages[0] != "first page" || pages[1] != "second page" {
		t.Fatalf("pages = %q", pages)
	}
}

func TestTextLayerRejectsGarbage(t *testing.T) {
	r := &stubRunner{missing: map[string]bool{"pdftotext": true}}
	tl := NewTextLayer(Config{}, r, nil)
	if _, err := tl.PageTexts(context.Background(), []byte("not a pdf at all")); err == nil {
		t.Fatal("expected error for garbage input")
	}
}

func TestExecOCRRecognizesPagesInOrder(t *testing.T) {
	var renderDir string
	r := &stubRunner{run: map[string]func([]string) ([]byte, error){}}
	r.run["pdftoppm"] = func(args []string) ([]byte, error) {
		prefix := args[len(args)-1]
		renderDir = filepath.Dir(prefix)
		for _, n := range []string{"01", "02", "10"} {
			writePNG(t, prefix+"-"+n+".png", 40, 20)
		}
		return nil, nil
	}
	r.run["tesseract"] = func(args []string) ([]byte, error) {
		return []byte("text of " + filepath.Base(args[0]) + "\r\n\n\n\n____\n"), nil
	}

	o := NewExecOCR(Config{DPI: 200, MaxPixels: 400}, r, nil)
	pages, err := o.RecognizePages(context.Background(), []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("RecognizePages: %v", err)
	}
	want := []string{"text of page-01.png", "text of page-02.png", "text of page-10.png"}
	if strings.Join(pages, "|") != strings.Join(want, "|") {
		t.Fatalf("pages = %q, want %q", pages, want)
	}
	if got := strings.Join(r.calls[0].args[:3], " "); got != "-r 200 -png" {
		t.Fatalf("pdftoppm args = %q", r.calls[0].args)
	}
	if _, err := os.Stat(renderDir); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("temp dir %s not removed: %v", renderDir, err)
	}
}

func TestExecOCRMaxPages(t *testing.T) {
	r := &stubRunner{run: map[string]func([]string) ([]byte, error){
		"pdftoppm": func(args []string) ([]byte, error) {
			prefix := args[len(args)-1]
			for i := 1; i <= 3; i++ {
				writePNG(t, fmt.Sprintf("%s-%d.png", prefix, i), 4, 4)
			}
			return nil, nil
		},
		"tesseract": func([]string) ([]byte, error) { return []byte("x"), nil },
	}}
	o := NewExecOCR(Config{MaxPages: 2}, r, nil)
	pages, err := o.RecognizePages(context.Background(), []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("RecognizePages: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(pages))
	}
	if !strings.Contains(strings.Join(r.calls[0].args, " "), "-l 2") {
		t.Fatalf("pdftoppm not limited: %q", r.calls[0].args)
	}
}

func TestExecOCRUnavailable(t *testing.T) {
	r := &stubRunner{missing: map[string]bool{"tesseract": true}}
	o := NewExecOCR(Config{}, r, nil)
	if o.Available() {
		t.Fatal("Available with tesseract missing")
	}
	_, err := o.RecognizePages(context.Background(), []byte("%PDF-1.4"))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if len(r.calls) != 0 {
		t.Fatalf("binaries ran: %+v", r.calls)
	}
}

func TestExecOCRAllPagesFail(t *testing.T) {
	r := &stubRunner{run: map[string]func([]string) ([]byte, error){
		"pdftoppm": func(args []string) ([]byte, error) {
			writePNG(t, args[len(args)-1]+"-1.png", 4, 4)
			return nil, nil
		},
		"tesseract": func([]string) ([]byte, error) { return nil, errors.New("boom") },
	}}
	o := NewExecOCR(Config{}, r, nil)
	if _, err := o.RecognizePages(context.Background(), []byte("%PDF-1.4")); err == nil {
		t.Fatal("expected error when every page fails")
	}
}

func TestNativeStubOrEngine(t *testing.T) {
	n, err := NewNativeOCR(Config{}, nil)
	if err != nil {
		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("err = %v, want ErrUnavailable", err)
		}
		return
	}
	if !n.Available() {
		t.Fatal("native engine built but not available")
	}
}
