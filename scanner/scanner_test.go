package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/romvault/romvault/hashcache"
	"github.com/romvault/romvault/hashqueue"
	"github.com/romvault/romvault/types"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestScanEnqueuesEveryFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.nes"), "aaa")
	writeFile(t, filepath.Join(dir, "b.nes"), "bbbb")

	fp, _ := types.NewFingerprint("deadbeef", "", "")
	pool := hashqueue.New(2, func(job *types.HashJob) (types.Fingerprint, int64, error) {
		return fp, 1, nil
	}, nil)
	defer pool.Shutdown()

	s := New(pool)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res, err := s.Scan(ctx, Options{Root: dir, Priority: types.PriorityNormal})
	if err != nil {
		t.Fatal(err)
	}
	if res.FilesEnqueued != 2 {
		t.Fatalf("expected 2 files enqueued, got %d", res.FilesEnqueued)
	}
}

func TestScanCheckpointRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cpPath := filepath.Join(dir, "checkpoint.json")

	cp := Checkpoint{LastPath: "/roms/a.nes", ProcessedItems: 3, ProcessedBytes: 1024}
	if err := SaveCheckpoint(cpPath, cp); err != nil {
		t.Fatal(err)
	}

	got, err := LoadCheckpoint(cpPath)
	if err != nil {
		t.Fatal(err)
	}
	if got != cp {
		t.Fatalf("checkpoint mismatch: got %+v, want %+v", got, cp)
	}
}

func TestLoadCheckpointMissingFileReturnsZeroValue(t *testing.T) {
	got, err := LoadCheckpoint(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatal(err)
	}
	if got != (Checkpoint{}) {
		t.Fatalf("expected zero-value checkpoint, got %+v", got)
	}
}

func TestScanIncrementalSkipsCachedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.nes")
	writeFile(t, path, "aaa")

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}

	fp, _ := types.NewFingerprint("deadbeef", "", "")
	pool := hashqueue.New(1, func(job *types.HashJob) (types.Fingerprint, int64, error) {
		return fp, 1, nil
	}, nil)
	defer pool.Shutdown()

	cache, err := hashcache.New(100)
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()
	cache.Put(path, hashcache.Record{Fingerprint: fp, ModTime: fi.ModTime(), Size: fi.Size()})

	s := New(pool)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res, err := s.Scan(ctx, Options{Root: dir, Priority: types.PriorityNormal, Incremental: true, Cache: cache})
	if err != nil {
		t.Fatal(err)
	}
	if res.FilesSkipped != 1 {
		t.Fatalf("expected 1 file skipped, got %d", res.FilesSkipped)
	}
	if res.FilesEnqueued != 0 {
		t.Fatalf("expected 0 files enqueued, got %d", res.FilesEnqueued)
	}
}
