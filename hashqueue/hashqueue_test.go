package hashqueue

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/romvault/romvault/types"
)

func fakeHasher(delay time.Duration, fp types.Fingerprint, err error) Hasher {
	return func(job *types.HashJob) (types.Fingerprint, int64, error) {
		if delay > 0 {
			time.Sleep(delay)
		}
		return fp, 42, err
	}
}

// tempFile creates a real file so Enqueue's preflight stat succeeds.
func tempFile(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEnqueueAndResult(t *testing.T) {
	want, _ := types.NewFingerprint("deadbeef", "", "")
	p := New(2, fakeHasher(0, want, nil), nil)
	defer p.Shutdown()

	path := tempFile(t, "a.nes", 42)
	job := &types.HashJob{ID: "job-1", FilePath: path, Priority: types.PriorityNormal}
	if err := p.Enqueue(job); err != nil {
		t.Fatal(err)
	}
	if job.TotalBytes != 42 {
		t.Fatalf("expected TotalBytes=42 recorded at enqueue time, got %d", job.TotalBytes)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	res, err := p.Result(ctx, "job-1")
	if err != nil {
		t.Fatal(err)
	}
	if res.State != types.HashCompleted {
		t.Fatalf("expected completed, got %s", res.State)
	}
	if res.Result == nil || !res.Result.Equal(want) {
		t.Fatalf("unexpected result: %+v", res.Result)
	}
}

func TestEnqueueMissingFileFailsNotFound(t *testing.T) {
	p := New(1, fakeHasher(0, types.Fingerprint{}, nil), nil)
	defer p.Shutdown()

	err := p.Enqueue(&types.HashJob{ID: "missing", FilePath: "/does/not/exist-romvault", Priority: types.PriorityNormal})
	if err == nil {
		t.Fatal("expected an error enqueuing a nonexistent file")
	}
}

func TestPriorityOrderingDrainsCriticalFirst(t *testing.T) {
	fp, _ := types.NewFingerprint("cafebabe", "", "")
	dir := t.TempDir()
	// Single worker forces strict ordering to be observable.
	p := New(1, fakeHasher(5*time.Millisecond, fp, nil), nil)
	defer p.Shutdown()

	busy := filepath.Join(dir, "busy")
	bg := filepath.Join(dir, "bg")
	crit := filepath.Join(dir, "crit")
	for _, f := range []string{busy, bg, crit} {
		if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	// Occupy the sole worker first so the next three jobs queue up
	// together and ordering among them is then deterministic.
	_ = p.Enqueue(&types.HashJob{ID: "busy", FilePath: busy, Priority: types.PriorityNormal})
	time.Sleep(time.Millisecond)

	_ = p.Enqueue(&types.HashJob{ID: "bg", FilePath: bg, Priority: types.PriorityBackground})
	_ = p.Enqueue(&types.HashJob{ID: "crit", FilePath: crit, Priority: types.PriorityCritical})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	critDone := make(chan time.Time, 1)
	bgDone := make(chan time.Time, 1)
	go func() {
		r, _ := p.Result(ctx, "crit")
		critDone <- *r.CompletedAt
	}()
	go func() {
		r, _ := p.Result(ctx, "bg")
		bgDone <- *r.CompletedAt
	}()

	ct := <-critDone
	bt := <-bgDone
	if !ct.Before(bt) {
		t.Fatalf("expected critical job to finish before background job: crit=%v bg=%v", ct, bt)
	}
}

func TestCancelQueuedJob(t *testing.T) {
	fp, _ := types.NewFingerprint("00000000", "", "")
	dir := t.TempDir()
	p := New(1, fakeHasher(20*time.Millisecond, fp, nil), nil)
	defer p.Shutdown()

	busy := filepath.Join(dir, "x")
	toCancel := filepath.Join(dir, "y")
	_ = os.WriteFile(busy, []byte("x"), 0o644)
	_ = os.WriteFile(toCancel, []byte("y"), 0o644)

	_ = p.Enqueue(&types.HashJob{ID: "busy", FilePath: busy, Priority: types.PriorityNormal})
	_ = p.Enqueue(&types.HashJob{ID: "to-cancel", FilePath: toCancel, Priority: types.PriorityNormal})

	if err := p.Cancel("to-cancel"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	res, err := p.Result(ctx, "to-cancel")
	if err != nil {
		t.Fatal(err)
	}
	if res.State != types.HashCancelled {
		t.Fatalf("expected cancelled, got %s", res.State)
	}
}

func TestStatusUnknownJob(t *testing.T) {
	p := New(1, fakeHasher(0, types.Fingerprint{}, nil), nil)
	defer p.Shutdown()
	if _, ok := p.Status("nope"); ok {
		t.Fatal("expected unknown job to report not-found")
	}
}

func TestEnqueueBatchAndCancel(t *testing.T) {
	fp, _ := types.NewFingerprint("11111111", "", "")
	dir := t.TempDir()
	p := New(1, fakeHasher(20*time.Millisecond, fp, nil), nil)
	defer p.Shutdown()

	var jobs []*types.HashJob
	for _, name := range []string{"one", "two", "three"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
		jobs = append(jobs, &types.HashJob{ID: name, FilePath: path, Priority: types.PriorityNormal})
	}

	batchID, errs := p.EnqueueBatch(jobs)
	for _, err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}
	for _, j := range jobs {
		if j.BatchID != batchID {
			t.Fatalf("expected job %s to carry batch id %s, got %s", j.ID, batchID, j.BatchID)
		}
	}

	if err := p.CancelBatch(batchID); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	// "one" was already mid-process when the batch was cancelled (the
	// lone worker had already dequeued it); "two" and "three" were still
	// queued and must come back cancelled.
	for _, id := range []string{"two", "three"} {
		res, err := p.Result(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if res.State != types.HashCancelled {
			t.Fatalf("expected %s to be cancelled, got %s", id, res.State)
		}
	}
}

func TestCancelBatchUnknown(t *testing.T) {
	p := New(1, fakeHasher(0, types.Fingerprint{}, nil), nil)
	defer p.Shutdown()
	if err := p.CancelBatch("nope"); err == nil {
		t.Fatal("expected unknown batch id to error")
	}
}
