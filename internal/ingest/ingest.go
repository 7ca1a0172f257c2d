package ingest

import (
	"context"
	"sync"

	"github.com/joseph-ayodele/order-intake/internal/entity"
	"github.com/joseph-ayodele/order-intake/internal/services/order"
)

// OrderCreator is the part of the order service ingest depends on.
type OrderCreator interface {
	CreateFromPDF(ctx context.Context, req order.UploadRequest) (*entity.Order, error)
	Seen(ctx context.Context, content []byte) (bool, error)
}

// Result is the per-file ingest outcome.
type Result struct {
	SourcePath string
	SHA256     string
	OrderID    int64
	Duplicate  bool
	Err        string
}

// DirStats summarizes a directory walk.
type DirStats struct {
	Scanned uint32
	Matched uint32
}

// Tally accumulates results from concurrent workers.
type Tally struct {
	mu        sync.Mutex
	Results   []Result
	Succeeded int
	Duplicate int
	Failed    int
}

func (t *Tally) Add(r Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Results = append(t.Results, r)
	switch {
	case r.Err != "":
		t.Failed++
	case r.Duplicate:
		t.Duplicate++
	default:
		t.Succeeded++
	}
}

// Snapshot returns the counters under the lock.
func (t *Tally) Snapshot() (succeeded, duplicate, failed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Succeeded, t.Duplicate, t.Failed
}
