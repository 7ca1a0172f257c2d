package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/joseph-ayodele/order-intake/internal/ocr"
)

// ocrEngine is satisfied by ocr.ExecOCR and ocr.NativeOCR.
type ocrEngine interface {
	Available() bool
	RecognizePages(ctx context.Context, pdf []byte) ([]string, error)
}

// OCRAdapter maps an ocr engine onto the OCR stage and its error kinds.
type OCRAdapter struct {
	engine ocrEngine
}

func NewOCRAdapter(engine ocrEngine) *OCRAdapter {
	return &OCRAdapter{engine: engine}
}

func (a *OCRAdapter) Available() bool {
	return a.engine != nil && a.engine.Available()
}

func (a *OCRAdapter) RecognizePages(ctx context.Context, pdf []byte) ([]string, error) {
	if !a.Available() {
		return nil, ErrOCRUnavailable
	}
	pages, err := a.engine.RecognizePages(ctx, pdf)
	if errors.Is(err, ocr.ErrUnavailable) {
		return nil, fmt.Errorf("%w: %w", ErrOCRUnavailable, err)
	}
	return pages, err
}
