// Package scanner walks a volume's filesystem tree, submits a HashJob
// per file (and per archive member, via archivefmt) to a hashqueue
// Pool, and checkpoints progress so a scan can resume after a restart.
// Grounded on archive.purgeMaster, which drives godirwalk.Walk over a
// depot root (archive/purge.go), and on worker.Work's own resume-log
// pattern in archive/depot.go (resumeLogFile/resumeLogWriter) for the
// write-then-rename checkpoint idea generalized here into
// Checkpoint.Save.
package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/karrick/godirwalk"

	"github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/romvault/romvault/archivefmt"
	"github.com/romvault/romvault/hashcache"
	"github.com/romvault/romvault/hashqueue"
	"github.com/romvault/romvault/memorypressure"
	"github.com/romvault/romvault/progress"
	"github.com/romvault/romvault/rverr"
	"github.com/romvault/romvault/types"
)

// CheckpointOptions is the subset of Options worth persisting alongside
// a Checkpoint, so a resumed run can be recognized as belonging to the
// same logical scan rather than an unrelated one pointed at the same
// checkpoint file.
type CheckpointOptions struct {
	Root         string `json:"root"`
	Incremental  bool   `json:"incremental"`
	ScanArchives bool   `json:"scan_archives"`
}

// Checkpoint is the resumable state of one scan, periodically
// persisted to disk so a crash or pause loses at most one interval.
type Checkpoint struct {
	ScanJobID         uuid.UUID         `json:"scan_job_id"`
	ScanPath          string            `json:"scan_path"`
	Options           CheckpointOptions `json:"options"`
	CreatedAt         time.Time         `json:"created_at"`
	LastPath          string            `json:"last_path"`
	ProcessedItems    int64             `json:"processed_items"`
	ProcessedBytes    int64             `json:"processed_bytes"`
	PendingDirectories []string         `json:"pending_directories"`
}

// SaveCheckpoint writes c to path atomically: serialize to a sibling
// temp file, fsync, then rename over the destination so a reader
// never observes a partially written checkpoint.
func SaveCheckpoint(path string, c Checkpoint) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return rverr.Wrap(rverr.IOError, path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return rverr.Wrap(rverr.IOError, path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return rverr.Wrap(rverr.IOError, path, err)
	}
	if err := f.Close(); err != nil {
		return rverr.Wrap(rverr.IOError, path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return rverr.Wrap(rverr.IOError, path, err)
	}
	return nil
}

// LoadCheckpoint reads a previously saved Checkpoint, or the zero
// value if none exists yet.
func LoadCheckpoint(path string) (Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Checkpoint{}, nil
		}
		return Checkpoint{}, rverr.Wrap(rverr.IOError, path, err)
	}
	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return Checkpoint{}, rverr.Wrap(rverr.ParseError, path, err)
	}
	return c, nil
}

// Options configures one Scan invocation.
type Options struct {
	// Root is the directory tree to walk.
	Root string
	// Priority is stamped on every HashJob this scan enqueues.
	Priority types.HashPriority
	// Incremental, when set, skips files the Cache already has a
	// fresh fingerprint for instead of re-enqueuing them, and
	// classifies everything else as newly found or modified.
	Incremental bool
	Cache       *hashcache.Cache
	// PriorKnownPaths, when Incremental is set, is the set of paths a
	// previous scan of this root recorded (e.g. loaded from a
	// catalogstore StoredRomFile listing for the volume). Anything in
	// this list not observed during the walk increments
	// DeletedFilesDetected in the Result.
	PriorKnownPaths []string
	// ScanArchives enables per-member enumeration of archive files
	// recognized by archivefmt, in addition to the archive file itself.
	ScanArchives bool
	// Recursive, when false, only enumerates Root's immediate entries
	// instead of descending into subdirectories.
	Recursive bool
	// IncludeGlobs, if non-empty, restricts enumeration to files whose
	// base name matches at least one pattern. ExcludeGlobs is checked
	// first and always wins over an include match.
	IncludeGlobs []string
	ExcludeGlobs []string
	// ComputeHashes submits a HashJob per enumerated file; false limits
	// a run to enumeration only (e.g. duplicate scanning by listing),
	// never touching the hash pool.
	ComputeHashes bool
	// MaxParallelIO bounds how many files have an outstanding
	// stat/enqueue/hash-wait in flight at once; below 1 it defaults to 4.
	MaxParallelIO int
	// CheckpointPath, if non-empty, is written to periodically and
	// consulted at the start of the scan to resume past LastPath.
	CheckpointPath     string
	CheckpointInterval time.Duration
	// CheckpointEveryN, if positive, forces a checkpoint write every N
	// processed files in addition to CheckpointInterval's time trigger.
	CheckpointEveryN int64
	// Pressure, if set, is polled before each enqueue; the scanner
	// blocks (via WaitForRelief) rather than enqueuing into a system
	// already under critical memory pressure.
	Pressure *memorypressure.Monitor
	// DriveID, if set, is stamped on the ScanJob this run registers so
	// JobRegistry.HasActiveJobForDrive can see it.
	DriveID *uuid.UUID
	// OnScanned, if set, is invoked once per enumerated file (and once
	// per archive member) with its emitted ScannedFile record.
	OnScanned func(types.ScannedFile)
}

// Scanner drives directory walks into a hashqueue.Pool.
type Scanner struct {
	pool *hashqueue.Pool
	jobs *JobRegistry
}

// New binds a Scanner to the Pool it will submit HashJobs to.
func New(pool *hashqueue.Pool) *Scanner {
	return &Scanner{pool: pool, jobs: NewJobRegistry()}
}

// Jobs exposes the registry of ScanJobs this Scanner has run or is
// running, so callers can gate new work with HasActiveJobForDrive.
func (s *Scanner) Jobs() *JobRegistry { return s.jobs }

// Result summarizes one completed (or cancelled) scan run.
type Result struct {
	FilesVisited         int64
	FilesEnqueued        int64
	FilesSkipped         int64
	BytesEnqueued        int64
	NewFilesFound        int64
	ModifiedFilesFound   int64
	DeletedFilesDetected int64
	ScanErrors           []types.ScanError
	Cancelled            bool
	FinalCheckpoint      Checkpoint
	Job                  types.ScanJob
}

// completionTracker lets a bounded pool of concurrent workers report
// finished paths out of order while still exposing a safe-to-checkpoint
// LastPath: the end of the longest unbroken prefix of dispatched paths
// that have all completed. Dispatch order is the walk's own sorted
// order, so that prefix is always resumable.
type completionTracker struct {
	mu         sync.Mutex
	dispatched []string
	done       map[string]bool
	ptr        int
	confirmed  string
}

func newCompletionTracker() *completionTracker {
	return &completionTracker{done: make(map[string]bool)}
}

func (t *completionTracker) dispatch(path string) {
	t.mu.Lock()
	t.dispatched = append(t.dispatched, path)
	t.mu.Unlock()
}

func (t *completionTracker) complete(path string) {
	t.mu.Lock()
	t.done[path] = true
	for t.ptr < len(t.dispatched) && t.done[t.dispatched[t.ptr]] {
		t.confirmed = t.dispatched[t.ptr]
		delete(t.done, t.dispatched[t.ptr])
		t.ptr++
	}
	if t.ptr > 4096 {
		t.dispatched = t.dispatched[t.ptr:]
		t.ptr = 0
	}
	t.mu.Unlock()
}

func (t *completionTracker) snapshot() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.confirmed
}

// Scan walks opts.Root, enqueuing one HashJob per regular file (and,
// when opts.ScanArchives is set, one per archive member) into the
// bound pool, checkpointing periodically, and resuming from any prior
// checkpoint at opts.CheckpointPath. Enumeration is directory-first and
// lexicographically ordered per directory: godirwalk's default sorted
// mode, never Unsorted, since resume depends on that order being
// deterministic.
func (s *Scanner) Scan(ctx context.Context, opts Options) (Result, error) {
	var resumeFrom string
	var prevJobID uuid.UUID
	if opts.CheckpointPath != "" {
		cp, err := LoadCheckpoint(opts.CheckpointPath)
		if err != nil {
			return Result{}, err
		}
		resumeFrom = cp.LastPath
		prevJobID = cp.ScanJobID
	}

	job := &types.ScanJob{
		ID:             uuid.New(),
		Kind:           "scan",
		TargetVolumeID: opts.DriveID,
		TargetPath:     opts.Root,
		Status:         types.ScanQueued,
		QueuedAt:       time.Now(),
	}
	if resumeFrom != "" {
		if prevJobID != uuid.Nil {
			job.ID = prevJobID
		}
		job.Status = types.ScanPaused
		job.LastProcessedPath = resumeFrom
		if err := job.Resume(); err != nil {
			return Result{}, rverr.Wrap(rverr.Internal, opts.Root, err)
		}
	} else if err := job.Start(); err != nil {
		return Result{}, rverr.Wrap(rverr.Internal, opts.Root, err)
	}
	s.jobs.register(job)
	defer s.jobs.unregister(job.ID)

	pt := progress.New(1)
	var res Result
	var resMu sync.Mutex
	interval := opts.CheckpointInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	lastCheckpoint := time.Now()
	var checkpointCount int64

	var seenMu sync.Mutex
	var seen map[string]struct{}
	if opts.Incremental && len(opts.PriorKnownPaths) > 0 {
		seen = make(map[string]struct{}, len(opts.PriorKnownPaths))
	}

	maxParallel := opts.MaxParallelIO
	if maxParallel < 1 {
		maxParallel = 4
	}
	sem := make(chan struct{}, maxParallel)
	var wg sync.WaitGroup
	tracker := newCompletionTracker()

	var dirStack []string

	recordError := func(path string, err error) {
		glog.Errorf("scanner: failed to process %s: %v", path, err)
		resMu.Lock()
		res.ScanErrors = append(res.ScanErrors, types.ScanError{
			Path:    path,
			Kind:    string(rverr.KindOf(err)),
			Message: err.Error(),
		})
		resMu.Unlock()
	}

	maybeCheckpoint := func(force bool) {
		if opts.CheckpointPath == "" {
			return
		}
		due := time.Since(lastCheckpoint) >= interval
		if opts.CheckpointEveryN > 0 {
			due = due || atomic.LoadInt64(&checkpointCount) >= opts.CheckpointEveryN
		}
		if !due && !force {
			return
		}
		wg.Wait()
		last := tracker.snapshot()
		if last == "" {
			return
		}
		seenMu.Lock()
		pending := append([]string(nil), dirStack...)
		seenMu.Unlock()
		cp := Checkpoint{
			ScanJobID: job.ID,
			ScanPath:  opts.Root,
			Options: CheckpointOptions{
				Root:         opts.Root,
				Incremental:  opts.Incremental,
				ScanArchives: opts.ScanArchives,
			},
			CreatedAt:          time.Now(),
			LastPath:           last,
			ProcessedItems:     atomic.LoadInt64(&res.FilesVisited),
			ProcessedBytes:     atomic.LoadInt64(&res.BytesEnqueued),
			PendingDirectories: pending,
		}
		if err := SaveCheckpoint(opts.CheckpointPath, cp); err != nil {
			glog.Warningf("scanner: failed to checkpoint: %v", err)
		} else {
			resMu.Lock()
			res.FinalCheckpoint = cp
			resMu.Unlock()
		}
		lastCheckpoint = time.Now()
		atomic.StoreInt64(&checkpointCount, 0)
	}

	dispatch := func(path string, fi os.FileInfo) {
		tracker.dispatch(path)
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			if opts.Pressure != nil {
				if err := opts.Pressure.WaitForRelief(ctx, memorypressure.LevelHigh); err != nil {
					tracker.complete(path)
					return
				}
			}

			if err := s.visit(ctx, path, fi, opts, &res); err != nil {
				recordError(path, err)
			}
			tracker.complete(path)
			atomic.AddInt64(&checkpointCount, 1)
		}()
	}

	walkErr := godirwalk.Walk(opts.Root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			select {
			case <-ctx.Done():
				res.Cancelled = true
				return filepath.SkipDir
			default:
			}

			isDir, err := de.IsDirOrSymlinkToDir()
			if err == nil && isDir {
				if !opts.Recursive && path != opts.Root {
					return filepath.SkipDir
				}
				seenMu.Lock()
				dirStack = append(dirStack, path)
				seenMu.Unlock()
				return nil
			}
			if de.IsDir() {
				return nil
			}

			base := filepath.Base(path)
			if matchesAny(opts.ExcludeGlobs, base) {
				return nil
			}
			if len(opts.IncludeGlobs) > 0 && !matchesAny(opts.IncludeGlobs, base) {
				return nil
			}

			// Resume support: skip everything lexicographically at or
			// before the last processed path from a prior, interrupted
			// run. A plain string comparison matches godirwalk's sorted,
			// directory-first traversal order, and tolerates the
			// checkpointed file having since been deleted: there is no
			// exact match to wait for, so the rest of the tree is never
			// silently dropped.
			if resumeFrom != "" && path <= resumeFrom {
				return nil
			}

			if seen != nil {
				seenMu.Lock()
				seen[path] = struct{}{}
				seenMu.Unlock()
			}

			fi, err := os.Stat(path)
			if err != nil {
				recordError(path, err)
				return nil
			}

			atomic.AddInt64(&res.FilesVisited, 1)
			dispatch(path, fi)

			maybeCheckpoint(false)

			return nil
		},
		PostChildrenCallback: func(path string, de *godirwalk.Dirent) error {
			seenMu.Lock()
			if n := len(dirStack); n > 0 && dirStack[n-1] == path {
				dirStack = dirStack[:n-1]
			}
			seenMu.Unlock()
			return nil
		},
	})

	wg.Wait()

	if walkErr != nil && !res.Cancelled {
		job.Fail()
		res.Job = *job
		return res, rverr.Wrap(rverr.IOError, opts.Root, walkErr)
	}

	pt.Finished()

	if seen != nil {
		for _, p := range opts.PriorKnownPaths {
			if _, ok := seen[p]; !ok {
				res.DeletedFilesDetected++
			}
		}
	}

	maybeCheckpoint(true)

	if res.Cancelled {
		job.Pause(res.FinalCheckpoint.LastPath)
	} else {
		job.Complete()
	}
	res.Job = *job

	return res, nil
}

func matchesAny(patterns []string, name string) bool {
	for _, pat := range patterns {
		if ok, err := filepath.Match(pat, name); err == nil && ok {
			return true
		}
	}
	return false
}

func (s *Scanner) visit(ctx context.Context, path string, fi os.FileInfo, opts Options, res *Result) error {
	if opts.Incremental && opts.Cache != nil {
		if rec, ok := opts.Cache.Peek(path); ok {
			if rec.ModTime.Equal(fi.ModTime()) && rec.Size == fi.Size() {
				atomic.AddInt64(&res.FilesSkipped, 1)
				return nil
			}
			atomic.AddInt64(&res.ModifiedFilesFound, 1)
		} else {
			atomic.AddInt64(&res.NewFilesFound, 1)
		}
	}

	jobID, err := s.enqueue(ctx, path, opts)
	if err != nil {
		return err
	}
	atomic.AddInt64(&res.FilesEnqueued, 1)
	atomic.AddInt64(&res.BytesEnqueued, fi.Size())

	s.emit(opts, types.ScannedFile{
		Path:      path,
		Size:      fi.Size(),
		ModTime:   fi.ModTime(),
		HashJobID: jobID,
	})

	if opts.ScanArchives && archivefmt.IsArchive(path) {
		entries, err := archivefmt.Entries(path)
		if err != nil {
			return err
		}

		// One archive's members enqueue under a single BatchID, so a
		// caller that loses interest in this archive mid-hash can
		// cancel every remaining member with one CancelBatch call
		// instead of tracking each member job individually.
		var jobs []*types.HashJob
		if opts.ComputeHashes {
			for _, e := range entries {
				jobs = append(jobs, &types.HashJob{
					ID:                fmt.Sprintf("%s::%s", path, e.Name),
					FilePath:          path,
					ArchiveMemberName: e.Name,
					Priority:          opts.Priority,
				})
			}
		}
		var enqueueErrs []error
		if len(jobs) > 0 {
			_, enqueueErrs = s.pool.EnqueueBatch(jobs)
		}

		for _, e := range entries {
			memberID := fmt.Sprintf("%s::%s", path, e.Name)
			atomic.AddInt64(&res.FilesEnqueued, 1)
			atomic.AddInt64(&res.BytesEnqueued, e.Size)
			s.emit(opts, types.ScannedFile{
				Path:          path,
				IsArchived:    true,
				ArchivePath:   path,
				PathInArchive: e.Name,
				Size:          e.Size,
				HashJobID:     memberID,
			})
		}
		for _, err := range enqueueErrs {
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func (s *Scanner) emit(opts Options, sf types.ScannedFile) {
	if opts.OnScanned != nil {
		opts.OnScanned(sf)
	}
}

func (s *Scanner) enqueue(ctx context.Context, path string, opts Options) (string, error) {
	if !opts.ComputeHashes {
		return "", nil
	}
	job := &types.HashJob{
		ID:       path,
		FilePath: path,
		Priority: opts.Priority,
	}
	if err := s.pool.Enqueue(job); err != nil {
		return "", err
	}
	return job.ID, nil
}
