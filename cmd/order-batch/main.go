package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/order-intake/internal/async"
	"github.com/joseph-ayodele/order-intake/internal/bootstrap"
	"github.com/joseph-ayodele/order-intake/internal/common"
	"github.com/joseph-ayodele/order-intake/internal/export"
	"github.com/joseph-ayodele/order-intake/internal/ingest"
	repo "github.com/joseph-ayodele/order-intake/internal/repository"
	"github.com/joseph-ayodele/order-intake/internal/services/order"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		inmem      = flag.Bool("inmem", false, "use in-memory SQLite database")
		dir        = flag.String("dir", "", "directory of order PDFs (required)")
		watch      = flag.Bool("watch", false, "keep running and ingest new PDFs as they appear")
		workers    = flag.Int("workers", 4, "number of concurrent extractions")
		force      = flag.Bool("force", false, "create orders even for documents already stored")
		skipHidden = flag.Bool("skip-hidden", true, "ignore dot files and directories")
		out        = flag.String("out", "", "write an XLSX export of the orders created today")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if st, err := os.Stat(*dir); err != nil || !st.IsDir() {
		printError("Error: --dir must be an existing directory: %s\n", *dir)
		os.Exit(1)
	}

	cfg := common.LoadConfig()
	if *inmem {
		cfg.Database.URL = "file:order-batch?mode=memory&cache=shared"
	}
	logger := bootstrap.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := bootstrap.OpenDatabase(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	extractor, err := bootstrap.NewExtractor(cfg, logger)
	if err != nil {
		logger.Error("failed to build extractor", "error", err)
		os.Exit(1)
	}

	ordersRepo := repo.NewOrderRepository(db, logger)
	orderService := order.NewService(ordersRepo, extractor, cfg.Extract.Timeout, logger)
	ingestor := ingest.NewFSIngestor(orderService, cfg.Server.MaxUploadBytes, logger)

	var queue async.Queue = async.NewWorkerQueue(ingestor.Handle, logger,
		async.WithWorkers(*workers),
		async.WithQueueSize(*workers*16),
		async.WithProcessTimeout(cfg.Extract.Timeout+30*time.Second),
	)
	runID := uuid.NewString()
	enqueue := func(path string) error {
		return queue.Enqueue(ctx, async.Job{Path: path, Force: *force, TraceID: runID})
	}

	started := time.Now().UTC()
	logger.Info("starting ingestion", "dir", *dir, "watch", *watch, "workers", *workers, "run_id", runID)

	if *watch {
		paths, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Roots:       []string{*dir},
			InitialScan: true,
			SkipHidden:  *skipHidden,
		}, logger)
		if err != nil {
			logger.Error("failed to start watcher", "error", err)
			os.Exit(1)
		}
		go func() {
			for err := range errs {
				logger.Warn("watcher error", "error", err)
			}
		}()
		for p := range paths {
			if err := enqueue(p); err != nil {
				break
			}
		}
	} else {
		stats, err := ingest.Walk(*dir, *skipHidden, enqueue)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("failed to walk directory", "error", err)
		}
		logger.Info("directory scanned", "scanned", stats.Scanned, "matched", stats.Matched)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	queue.Shutdown(shutdownCtx)

	succeeded, duplicate, failed := ingestor.Tally().Snapshot()
	logger.Info("ingestion complete", "succeeded", succeeded, "duplicate", duplicate, "failed", failed)

	if *out != "" {
		if err := writeExport(context.Background(), export.NewService(ordersRepo, logger), *out, started); err != nil {
			logger.Error("failed to export orders", "error", err)
			os.Exit(1)
		}
	}

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Orders created: %d\n", succeeded)
	fmt.Printf("- Duplicates skipped: %d\n", duplicate)
	fmt.Printf("- Failures: %d\n", failed)
	for _, r := range ingestor.Tally().Results {
		if r.Err != "" {
			fmt.Printf("  ! %s: %s\n", r.SourcePath, r.Err)
		}
	}
	if *out != "" {
		fmt.Printf("- Output: %s\n", *out)
	}
	if failed > 0 {
		os.Exit(3)
	}
}

// writeExport exports the orders created from start's date through today.
func writeExport(ctx context.Context, svc *export.Service, path string, start time.Time) error {
	data, err := svc.ExportOrdersXLSX(ctx, &start, nil)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
