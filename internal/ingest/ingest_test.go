package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/joseph-ayodele/order-intake/internal/async"
	"github.com/joseph-ayodele/order-intake/internal/entity"
	"github.com/joseph-ayodele/order-intake/internal/services/order"
)

type fakeOrders struct {
	mu      sync.Mutex
	created []string
	stored  map[string]bool
	fail    map[string]bool
}

func (f *fakeOrders) CreateFromPDF(_ context.Context, req order.UploadRequest) (*entity.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[filepath.Base(req.Filename)] {
		return nil, errors.New("fields_not_found")
	}
	f.created = append(f.created, filepath.Base(req.Filename))
	return &entity.Order{ID: int64(len(f.created))}, nil
}

func (f *fakeOrders) Seen(_ context.Context, content []byte) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stored[order.SHA256(content)], nil
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWalk(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.pdf"), "a")
	writeFile(t, filepath.Join(root, "sub", "b.PDF"), "b")
	writeFile(t, filepath.Join(root, "notes.txt"), "x")
	writeFile(t, filepath.Join(root, ".hidden", "c.pdf"), "c")
	writeFile(t, filepath.Join(root, ".d.pdf"), "d")

	var got []string
	stats, err := Walk(root, true, func(p string) error {
		rel, _ := filepath.Rel(root, p)
		got = append(got, rel)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	sort.Strings(got)
	want := []string{"a.pdf", filepath.Join("sub", "b.PDF")}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("visited %v, want %v", got, want)
	}
	if stats.Matched != 2 {
		t.Fatalf("stats = %+v", stats)
	}

	n := 0
	if _, err := Walk(root, false, func(string) error { n++; return nil }); err != nil || n != 4 {
		t.Fatalf("walk with hidden: n=%d err=%v", n, err)
	}
	if _, err := Walk(filepath.Join(root, "missing"), true, func(string) error { return nil }); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestFSIngestorDeduplicates(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "one.pdf"), "same bytes")
	writeFile(t, filepath.Join(root, "copy.pdf"), "same bytes")
	writeFile(t, filepath.Join(root, "old.pdf"), "stored before")
	writeFile(t, filepath.Join(root, "bad.pdf"), "unreadable")

	orders := &fakeOrders{
		stored: map[string]bool{order.SHA256([]byte("stored before")): true},
		fail:   map[string]bool{"bad.pdf": true},
	}
	ing := NewFSIngestor(orders, 1<<20, quiet())
	q := async.NewWorkerQueue(ing.Handle, quiet(), async.WithWorkers(2))
	if _, err := Walk(root, true, func(p string) error {
		return q.Enqueue(context.Background(), async.Job{Path: p})
	}); err != nil {
		t.Fatal(err)
	}
	q.Shutdown(context.Background())

	ok, dup, failed := ing.Tally().Snapshot()
	if ok != 1 || dup != 2 || failed != 1 {
		t.Fatalf("tally ok=%d dup=%d failed=%d", ok, dup, failed)
	}
	if len(orders.created) != 1 {
		t.Fatalf("created %v", orders.created)
	}

	// force bypasses the stored check but not the per-run one
	r, err := ing.IngestPath(context.Background(), filepath.Join(root, "old.pdf"), true)
	if err != nil || !r.Duplicate {
		t.Fatalf("re-ingest in same run = %+v, %v", r, err)
	}
	fresh := NewFSIngestor(orders, 1<<20, quiet())
	r, err = fresh.IngestPath(context.Background(), filepath.Join(root, "old.pdf"), true)
	if err != nil || r.Duplicate || r.OrderID == 0 {
		t.Fatalf("forced ingest = %+v, %v", r, err)
	}
}

func TestFSIngestorLimits(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "big.pdf"), "0123456789")
	writeFile(t, filepath.Join(root, "doc.txt"), "x")

	ing := NewFSIngestor(&fakeOrders{}, 5, quiet())
	if _, err := ing.IngestPath(context.Background(), filepath.Join(root, "big.pdf"), false); err == nil {
		t.Fatal("expected size error")
	}
	if _, err := ing.IngestPath(context.Background(), filepath.Join(root, "doc.txt"), false); err == nil {
		t.Fatal("expected extension error")
	}
}

func TestWatcherEmitsNewFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "existing.pdf"), "e")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, SkipHidden: true, Debounce: 20 * time.Millisecond}, quiet())
	if err != nil {
		t.Fatalf("StartWatcher: %v", err)
	}

	next := func() string {
		t.Helper()
		select {
		case p := <-events:
			return filepath.Base(p)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for watcher event")
		}
		return ""
	}
	if got := next(); got != "existing.pdf" {
		t.Fatalf("initial scan emitted %q", got)
	}

	writeFile(t, filepath.Join(root, "ignored.txt"), "x")
	writeFile(t, filepath.Join(root, "new.pdf"), "n")
	if got := next(); got != "new.pdf" {
		t.Fatalf("emitted %q, want new.pdf", got)
	}

	cancel()
	for range events {
	}
}
