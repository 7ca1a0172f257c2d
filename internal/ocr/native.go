//go:build native_ocr

package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/gen2brain/go-fitz"
	"github.com/otiai10/gosseract/v2"
)

// NativeOCR renders pages with MuPDF and recognizes them with libtesseract,
// without spawning processes or touching the filesystem.
type NativeOCR struct {
	cfg    Config
	logger *slog.Logger
}

func NewNativeOCR(cfg Config, logger *slog.Logger) (*NativeOCR, error) {
	return &NativeOCR{cfg: cfg.withDefaults(), logger: quietLogger(logger)}, nil
}

func (n *NativeOCR) Available() bool { return true }

func (n *NativeOCR) RecognizePages(ctx context.Context, doc []byte) ([]string, error) {
	d, err := fitz.NewFromMemory(doc)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer d.Close()

	count := d.NumPage()
	if n.cfg.MaxPages > 0 && count > n.cfg.MaxPages {
		count = n.cfg.MaxPages
	}

	// one client per call; gosseract clients are not safe for concurrent use
	client := gosseract.NewClient()
	defer client.Close()
	if n.cfg.TessdataDir != "" {
		if err := client.SetTessdataPrefix(n.cfg.TessdataDir); err != nil {
			return nil, fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(n.cfg.TesseractLang); err != nil {
		return nil, fmt.Errorf("set language: %w", err)
	}
	if n.cfg.PSM > 0 {
		if err := client.SetPageSegMode(gosseract.PageSegMode(n.cfg.PSM)); err != nil {
			return nil, fmt.Errorf("set psm: %w", err)
		}
	}

	pages := make([]string, 0, count)
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := d.ImageDPI(i, float64(n.cfg.DPI))
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", i+1, err)
		}
		data, err := EncodePNG(PrepareImage(img, n.cfg.MaxPixels))
		if err != nil {
			return nil, err
		}
		if err := client.SetImageFromBytes(data); err != nil {
			return nil, fmt.Errorf("set image: %w", err)
		}
		if err := client.SetVariable(gosseract.SettableVariable("user_defined_dpi"), strconv.Itoa(n.cfg.DPI)); err != nil {
			return nil, fmt.Errorf("set dpi: %w", err)
		}
		txt, err := client.Text()
		if err != nil {
			return nil, fmt.Errorf("recognize page %d: %w", i+1, err)
		}
		n.logger.Debug("page recognized", "page", i+1, "chars", len(txt))
		pages = append(pages, Normalize(txt))
	}
	return pages, nil
}
