package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joseph-ayodele/order-intake/constants"
	"github.com/joseph-ayodele/order-intake/internal/bootstrap"
	"github.com/joseph-ayodele/order-intake/internal/common"
	"github.com/joseph-ayodele/order-intake/internal/extract"
)

// Exit codes, one per extraction error kind.
const (
	exitOK = iota
	exitUsage
	exitUnreadable
	exitOCRUnavailable
	exitFieldsNotFound
	exitOther
)

type output struct {
	FirstName   string                     `json:"first_name,omitempty"`
	LastName    string                     `json:"last_name,omitempty"`
	DateOfBirth string                     `json:"date_of_birth,omitempty"`
	Method      constants.ExtractionMethod `json:"method,omitempty"`
	Pages       int                        `json:"pages,omitempty"`
	Error       string                     `json:"error,omitempty"`
	Detail      string                     `json:"detail,omitempty"`
	DurationMS  int64                      `json:"duration_ms"`
}

func main() {
	cfg := common.LoadConfig()
	logger := bootstrap.NewLogger(cfg.Log, os.Stderr)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "extractpdf <file.pdf>")
		os.Exit(exitUsage)
	}
	doc, err := os.ReadFile(os.Args[1])
	if err != nil {
		logger.Error("read file", "path", os.Args[1], "error", err)
		os.Exit(exitUsage)
	}

	extractor, err := bootstrap.NewExtractor(cfg, logger)
	if err != nil {
		logger.Error("failed to build extractor", "error", err)
		os.Exit(exitUsage)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := common.WithTimeout(ctx, cfg.Extract.Timeout)
	defer cancel()

	start := time.Now()
	fields, acq, err := extractor.ExtractDetailed(ctx, doc)
	out := output{
		Method:     acq.Method,
		Pages:      acq.Pages,
		DurationMS: time.Since(start).Milliseconds(),
	}
	code := exitOK
	if err != nil {
		out.Error = extract.Kind(err)
		out.Detail = err.Error()
		code = exitCode(out.Error)
	} else {
		out.FirstName = fields.FirstName
		out.LastName = fields.LastName
		out.DateOfBirth = fields.DateOfBirth.Format(time.DateOnly)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(code)
}

func exitCode(kind string) int {
	switch kind {
	case extract.ErrUnreadableDocument.Error():
		return exitUnreadable
	case extract.ErrOCRUnavailable.Error():
		return exitOCRUnavailable
	case extract.ErrFieldsNotFound.Error():
		return exitFieldsNotFound
	}
	return exitOther
}
