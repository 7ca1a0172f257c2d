package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ExecOCR renders pages with pdftoppm and recognizes them with tesseract.
type ExecOCR struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExecOCR(cfg Config, runner Runner, logger *slog.Logger) *ExecOCR {
	logger = quietLogger(logger)
	if runner == nil {
		runner = NewExecRunner(logger)
	}
	return &ExecOCR{cfg: cfg.withDefaults(), runner: runner, logger: logger}
}

// Available reports whether both binaries resolve on PATH.
func (o *ExecOCR) Available() bool {
	if _, err := o.runner.LookPath(o.cfg.Pdftoppm); err != nil {
		return false
	}
	_, err := o.runner.LookPath(o.cfg.Tesseract)
	return err == nil
}

// RecognizePages returns one normalized text per rendered page, in page order.
// Page images live in a temp dir that is removed before returning.
func (o *ExecOCR) RecognizePages(ctx context.Context, doc []byte) ([]string, error) {
	if !o.Available() {
		return nil, fmt.Errorf("%w: %s or %s not found", ErrUnavailable, o.cfg.Pdftoppm, o.cfg.Tesseract)
	}

	var pages []string
	err := withTempPDF(doc, o.logger, func(dir, in string) error {
		imgs, err := o.render(ctx, dir, in)
		if err != nil {
			return err
		}
		var failed int
		for _, img := range imgs {
			if err := ctx.Err(); err != nil {
				return err
			}
			if o.cfg.MaxPixels > 0 {
				if err := prepareFile(img, o.cfg.MaxPixels); err != nil {
					o.logger.Warn("page preprocessing failed", "image", filepath.Base(img), "error", err)
				}
			}
			txt, err := o.tesseract(ctx, img)
			if err != nil {
				failed++
				o.logger.Warn("page ocr failed", "image", filepath.Base(img), "error", err)
				pages = append(pages, "")
				continue
			}
			pages = append(pages, txt)
		}
		if failed == len(imgs) {
			return fmt.Errorf("ocr failed on all %d pages", failed)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pages, nil
}

func (o *ExecOCR) render(ctx context.Context, dir, in string) ([]string, error) {
	prefix := filepath.Join(dir, "page")
	// pdftoppm -r 300 -png [-l N] <in.pdf> <tmp/page>
	args := []string{"-r", strconv.Itoa(o.cfg.DPI), "-png"}
	if o.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(o.cfg.MaxPages))
	}
	args = append(args, in, prefix)
	if _, errb, err := o.runner.Run(ctx, o.cfg.Pdftoppm, args...); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 512))
	}

	// collect generated pngs (page-1.png, page-2.png, ...)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Slice(matches, func(i, j int) bool {
		return pageNumber(matches[i]) < pageNumber(matches[j])
	})
	if o.cfg.MaxPages > 0 && len(matches) > o.cfg.MaxPages {
		matches = matches[:o.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no images")
	}
	return matches, nil
}

func (o *ExecOCR) tesseract(ctx context.Context, img string) (string, error) {
	// tesseract <file> stdout -l <lang> [--psm N] [--oem N] [--tessdata-dir D] --dpi N
	args := []string{img, "stdout", "-l", o.cfg.TesseractLang}
	if o.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(o.cfg.PSM))
	}
	if o.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(o.cfg.OEM))
	}
	if o.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", o.cfg.TessdataDir)
	}
	args = append(args, "--dpi", strconv.Itoa(o.cfg.DPI))

	out, errb, err := o.runner.Run(ctx, o.cfg.Tesseract, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 512))
	}
	return Normalize(string(out)), nil
}

// pageNumber parses N from ".../page-N.png"; pdftoppm zero-pads N by page count.
func pageNumber(path string) int {
	base := strings.TrimSuffix(filepath.Base(path), ".png")
	i := strings.LastIndexByte(base, '-')
	n, err := strconv.Atoi(base[i+1:])
	if err != nil {
		return 0
	}
	return n
}
