package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/order-intake/constants"
)

// PageSeparator joins per-page text in page order.
const PageSeparator = "\n\f\n"

// headerWindow is how far into the file the %PDF- marker may appear.
const headerWindow = 1024

// Extractor turns PDF bytes into ExtractedFields. It keeps no per-call state;
// one instance may serve concurrent uploads.
type Extractor struct {
	text         TextLayer
	ocr          OCR
	locator      *Locator
	minTextChars int
}

type Option func(*Extractor)

// WithMinTextChars sets how many non-space characters a text layer needs
// before OCR is skipped. Values below 1 are ignored.
func WithMinTextChars(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.minTextChars = n
		}
	}
}

// WithLocator replaces the default last-token-surname locator.
func WithLocator(l *Locator) Option {
	return func(e *Extractor) {
		if l != nil {
			e.locator = l
		}
	}
}

// NewExtractor wires the two acquisition stages. ocr may be nil, in which case
// image-only documents fail with ErrOCRUnavailable.
func NewExtractor(text TextLayer, ocr OCR, opts ...Option) *Extractor {
	e := &Extractor{
		text:         text,
		ocr:          ocr,
		locator:      NewLocator(constants.SplitLastToken),
		minTextChars: 1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract runs both stages and returns the located fields.
func (e *Extractor) Extract(ctx context.Context, pdf []byte) (ExtractedFields, error) {
	fields, _, err := e.ExtractDetailed(ctx, pdf)
	return fields, err
}

// ExtractDetailed is Extract that also returns the intermediate Acquisition.
// The Acquisition is populated whenever Stage 1 succeeded.
func (e *Extractor) ExtractDetailed(ctx context.Context, pdf []byte) (ExtractedFields, Acquisition, error) {
	acq, err := e.Acquire(ctx, pdf)
	if err != nil {
		return ExtractedFields{}, Acquisition{}, err
	}
	fields, err := e.locator.Locate(acq.Text)
	if err != nil {
		return ExtractedFields{}, acq, err
	}
	return fields, acq, nil
}

// Acquire is Stage 1: the text layer when it has usable text, OCR otherwise.
func (e *Extractor) Acquire(ctx context.Context, pdf []byte) (Acquisition, error) {
	if len(pdf) == 0 {
		return Acquisition{}, fmt.Errorf("%w: empty document", ErrUnreadableDocument)
	}
	if !hasPDFHeader(pdf) {
		return Acquisition{}, fmt.Errorf("%w: missing %s header", ErrUnreadableDocument, constants.PDFMagic)
	}
	if err := ctx.Err(); err != nil {
		return Acquisition{}, err
	}

	pages, err := e.text.PageTexts(ctx, pdf)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Acquisition{}, ctxErr
		}
		return Acquisition{}, fmt.Errorf("%w: text layer: %w", ErrUnreadableDocument, err)
	}
	text := strings.Join(pages, PageSeparator)
	if HasUsableText(text, e.minTextChars) {
		return Acquisition{
			Text:           text,
			Pages:          len(pages),
			Method:         constants.MethodPDFText,
			TextLayerFound: true,
		}, nil
	}

	if e.ocr == nil || !e.ocr.Available() {
		return Acquisition{}, fmt.Errorf("%w: document has no text layer", ErrOCRUnavailable)
	}
	pages, err = e.ocr.RecognizePages(ctx, pdf)
	switch {
	case err == nil:
	case errors.Is(err, ErrOCRUnavailable):
		return Acquisition{}, err
	case ctx.Err() != nil:
		return Acquisition{}, ctx.Err()
	default:
		return Acquisition{}, fmt.Errorf("%w: ocr: %w", ErrUnreadableDocument, err)
	}
	return Acquisition{
		Text:   strings.Join(pages, PageSeparator),
		Pages:  len(pages),
		Method: constants.MethodPDFOCR,
	}, nil
}

func hasPDFHeader(doc []byte) bool {
	if len(doc) > headerWindow {
		doc = doc[:headerWindow]
	}
	return bytes.Contains(doc, []byte(constants.PDFMagic))
}

// HasUsableText reports whether text holds at least min non-space characters.
func HasUsableText(text string, min int) bool {
	if min < 1 {
		min = 1
	}
	return utf8.RuneCountInString(strings.Join(strings.Fields(text), "")) >= min
}
