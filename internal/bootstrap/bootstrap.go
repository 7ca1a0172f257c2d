// Package bootstrap builds the pieces every binary needs from a loaded Config.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/order-intake/internal/common"
	"github.com/joseph-ayodele/order-intake/internal/extract"
	"github.com/joseph-ayodele/order-intake/internal/ocr"
	repo "github.com/joseph-ayodele/order-intake/internal/repository"
)

// NewLogger builds a text or JSON slog logger from LOG_FORMAT and LOG_LEVEL.
func NewLogger(cfg common.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// OpenDatabase connects, migrates and pings the configured database.
func OpenDatabase(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*repo.DB, error) {
	db, err := repo.Open(ctx, repo.Config{
		URL:             cfg.DatabaseURL(),
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		DialTimeout:     cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := db.HealthCheck(ctx, cfg.Database.DialTimeout); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// OCRConfig maps the environment settings onto the ocr package.
func OCRConfig(cfg common.OCRConfig) ocr.Config {
	return ocr.Config{
		Pdftotext:     cfg.Pdftotext,
		Pdftoppm:      cfg.Pdftoppm,
		Tesseract:     cfg.Tesseract,
		TesseractLang: cfg.TesseractLang,
		TessdataDir:   cfg.TessdataDir,
		DPI:           cfg.DPI,
		MaxPages:      cfg.MaxPages,
		MaxPixels:     cfg.MaxPixels,
		PSM:           cfg.PSM,
		OEM:           cfg.OEM,
	}
}

// NewExtractor wires the text layer, the configured OCR engine and the locator.
// A native engine that cannot start leaves OCR unavailable instead of failing.
func NewExtractor(cfg *common.Config, logger *slog.Logger) (*extract.Extractor, error) {
	policy, err := extract.ParseSplitPolicy(cfg.Extract.NameSplitPolicy)
	if err != nil {
		return nil, err
	}
	oc := OCRConfig(cfg.OCR)
	runner := ocr.NewExecRunner(logger)

	var engine extract.OCR
	switch cfg.OCR.Engine {
	case "native":
		native, err := ocr.NewNativeOCR(oc, logger)
		if err != nil {
			logger.Warn("native ocr unavailable", "error", err)
			engine = extract.NewOCRAdapter(nil)
		} else {
			engine = extract.NewOCRAdapter(native)
		}
	default:
		engine = extract.NewOCRAdapter(ocr.NewExecOCR(oc, runner, logger))
	}
	if !engine.Available() {
		logger.Warn("ocr engine not available, scanned documents will be rejected", "engine", cfg.OCR.Engine)
	}

	return extract.NewExtractor(
		ocr.NewTextLayer(oc, runner, logger),
		engine,
		extract.WithMinTextChars(cfg.Extract.MinTextChars),
		extract.WithLocator(extract.NewLocator(policy)),
	), nil
}
