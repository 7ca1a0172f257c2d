package extract

import (
	"context"
	"time"

	"github.com/joseph-ayodele/order-intake/constants"
)

// TextLayer is Stage 1a: PDF bytes -> embedded text, one entry per page.
type TextLayer interface {
	PageTexts(ctx context.Context, pdf []byte) ([]string, error)
}

// OCR is Stage 1b: PDF bytes -> recognized text, one entry per rendered page.
type OCR interface {
	Available() bool
	RecognizePages(ctx context.Context, pdf []byte) ([]string, error)
}

// Acquisition is the result of Stage 1.
type Acquisition struct {
	Text           string
	Pages          int
	Method         constants.ExtractionMethod
	TextLayerFound bool
}

// ExtractedFields is the result of Stage 2. All fields are set or none is returned.
type ExtractedFields struct {
	FirstName   string
	LastName    string
	DateOfBirth time.Time
}
