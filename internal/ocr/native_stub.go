//go:build !native_ocr

package ocr

import (
	"context"
	"fmt"
	"log/slog"
)

// NativeOCR is compiled out; build with -tags native_ocr to enable it.
type NativeOCR struct{}

func NewNativeOCR(Config, *slog.Logger) (*NativeOCR, error) {
	return nil, fmt.Errorf("%w: built without the native_ocr tag", ErrUnavailable)
}

func (*NativeOCR) Available() bool { return false }

func (*NativeOCR) RecognizePages(context.Context, []byte) ([]string, error) {
	return nil, ErrUnavailable
}
