package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/joseph-ayodele/order-intake/internal/async"
	"github.com/joseph-ayodele/order-intake/internal/services/order"
)

// FSIngestor turns PDFs on the local filesystem into orders. Identical
// contents are processed once per ingestor.
type FSIngestor struct {
	orders   OrderCreator
	logger   *slog.Logger
	maxBytes int64
	tally    *Tally

	mu   sync.Mutex
	seen map[string]struct{}
}

func NewFSIngestor(orders OrderCreator, maxBytes int64, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBytes <= 0 {
		maxBytes = 20 << 20
	}
	return &FSIngestor{
		orders:   orders,
		logger:   logger,
		maxBytes: maxBytes,
		tally:    &Tally{},
		seen:     make(map[string]struct{}),
	}
}

// Tally returns the results recorded by Handle.
func (i *FSIngestor) Tally() *Tally { return i.tally }

// claim reports whether sum is new to this ingestor and marks it seen.
func (i *FSIngestor) claim(sum string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.seen[sum]; ok {
		return false
	}
	i.seen[sum] = struct{}{}
	return true
}

func readLimited(path string, max int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	b, err := io.ReadAll(io.LimitReader(f, max+1))
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	if int64(len(b)) > max {
		return nil, fmt.Errorf("file exceeds %d bytes", max)
	}
	return b, nil
}

// IngestPath creates an order from one file. Contents already ingested by
// this ingestor, or already stored unless force is set, come back as duplicates.
func (i *FSIngestor) IngestPath(ctx context.Context, path string, force bool) (Result, error) {
	out := Result{SourcePath: path}
	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	out.SourcePath = abs
	if err := order.ValidateUpload(filepath.Base(abs)); err != nil {
		return out, err
	}

	content, err := readLimited(abs, i.maxBytes)
	if err != nil {
		return out, err
	}
	out.SHA256 = order.SHA256(content)

	if !i.claim(out.SHA256) {
		out.Duplicate = true
		return out, nil
	}
	if !force {
		exists, err := i.orders.Seen(ctx, content)
		if err != nil {
			return out, err
		}
		if exists {
			out.Duplicate = true
			return out, nil
		}
	}

	o, err := i.orders.CreateFromPDF(ctx, order.UploadRequest{Filename: abs, Content: content})
	if err != nil {
		return out, err
	}
	out.OrderID = o.ID
	return out, nil
}

// Handle is an async.Handler that ingests the job's file and records the outcome.
func (i *FSIngestor) Handle(ctx context.Context, job async.Job) error {
	r, err := i.IngestPath(ctx, job.Path, job.Force)
	if err != nil {
		r.Err = err.Error()
	}
	i.tally.Add(r)
	switch {
	case err != nil:
		return err
	case r.Duplicate:
		i.logger.Info("skipping duplicate", "path", r.SourcePath, "sha256", r.SHA256)
	default:
		i.logger.Info("order created from file", "path", r.SourcePath, "order_id", r.OrderID)
	}
	return nil
}
