package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"
)

// TextLayer reads the embedded text of every page. It parses in-process first
// and falls back to pdftotext when the parser rejects the document.
type TextLayer struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewTextLayer(cfg Config, runner Runner, logger *slog.Logger) *TextLayer {
	logger = quietLogger(logger)
	if runner == nil {
		runner = NewExecRunner(logger)
	}
	return &TextLayer{cfg: cfg.withDefaults(), runner: runner, logger: logger}
}

func (t *TextLayer) PageTexts(ctx context.Context, doc []byte) ([]string, error) {
	pages, err := parsePages(doc)
	if err == nil {
		return pages, nil
	}
	t.logger.Debug("in-process text layer failed", "error", err)

	if _, lerr := t.runner.LookPath(t.cfg.Pdftotext); lerr != nil {
		return nil, err
	}
	pages, perr := t.pdfToText(ctx, doc)
	if perr != nil {
		return nil, errors.Join(err, perr)
	}
	return pages, nil
}

// parsePages converts parser panics on malformed input into errors.
func parsePages(doc []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(doc), int64(len(doc)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	n := r.NumPage()
	if n == 0 {
		return nil, errors.New("pdf has no pages")
	}
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		txt, err := pageText(p)
		if err != nil {
			if txt, err = p.GetPlainText(nil); err != nil {
				txt = ""
			}
		}
		pages = append(pages, txt)
	}
	return pages, nil
}

// pageText rebuilds the page's lines from glyph positions. GetPlainText only
// breaks lines on T* and quote operators, so text laid out with Td or Tm would
// otherwise run together.
func pageText(p pdf.Page) (txt string, err error) {
	defer func() {
		if r := recover(); r != nil {
			txt, err = "", fmt.Errorf("page content: %v", r)
		}
	}()
	return joinGlyphs(p.Content().Text), nil
}

// joinGlyphs walks glyphs in content order. A baseline change starts a new
// line, a jump of more than one em becomes a two-space column gap and a
// smaller jump becomes a single space.
func joinGlyphs(glyphs []pdf.Text) string {
	var (
		b       strings.Builder
		started bool
		lineY   float64
		nextX   float64
	)
	for _, g := range glyphs {
		if g.S == "" || g.S == "\n" {
			continue
		}
		em := math.Abs(g.FontSize)
		if em == 0 {
			em = 10
		}
		gap := g.X - nextX
		switch {
		case !started:
			started = true
		case math.Abs(g.Y-lineY) > em/2:
			b.WriteByte('\n')
		case math.Abs(gap) > em:
			b.WriteString("  ")
		case gap > em/5 && !strings.HasSuffix(b.String(), " ") && g.S != " ":
			b.WriteByte(' ')
		}
		lineY = g.Y
		nextX = g.X + g.W
		b.WriteString(g.S)
	}
	return b.String()
}

func (t *TextLayer) pdfToText(ctx context.Context, doc []byte) ([]string, error) {
	var pages []string
	err := withTempPDF(doc, t.logger, func(_, path string) error {
		// pdftotext -layout -enc UTF-8 -eol unix <path> -
		out, errb, err := t.runner.Run(ctx, t.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
		if err != nil {
			return fmt.Errorf("pdftotext: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 512))
		}
		// form feed terminates every page
		pages = strings.Split(strings.TrimSuffix(string(out), "\f"), "\f")
		return nil
	})
	return pages, err
}
