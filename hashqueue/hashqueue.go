// Package hashqueue is the priority hash job pool: jobs enter through
// Enqueue/EnqueueBatch, a bounded set of workers drains them
// highest-priority-first, and callers watch progress/completion either
// by polling Status or subscribing to Events.
//
// Grounded on the worker.Work/Master/Worker/slave pattern
// (worker/worker.go): that pattern is one fixed pool draining one
// channel for the length of a single run. Here the pool is long-lived
// and serves four priority channels instead of one, so the single
// runSlave loop becomes a priority-aware dispatch loop, and Master's
// NewWorker/Process split becomes the Hasher function type below.
package hashqueue

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/romvault/romvault/archivefmt"
	"github.com/romvault/romvault/hashcache"
	"github.com/romvault/romvault/hashing"
	"github.com/romvault/romvault/progress"
	"github.com/romvault/romvault/rverr"
	"github.com/romvault/romvault/types"
)

// Hasher computes the fingerprint for one job; swappable in tests.
type Hasher func(job *types.HashJob) (types.Fingerprint, int64, error)

// DefaultHasher hashes job.FilePath from disk, skipping job.SkipBytes,
// exactly as hashing.HashFile does for the CLI's verify/scan paths. A
// job naming an ArchiveMemberName is instead hashed by streaming that
// one member out of the archive via archivefmt.
func DefaultHasher(job *types.HashJob) (types.Fingerprint, int64, error) {
	if job.ArchiveMemberName != "" {
		return hashArchiveMember(job)
	}
	res, err := hashing.HashFile(job.FilePath, int64(job.SkipBytes), nil, nil)
	return res.Fingerprint, res.Size, err
}

func hashArchiveMember(job *types.HashJob) (types.Fingerprint, int64, error) {
	entries, err := archivefmt.Entries(job.FilePath)
	if err != nil {
		return types.Fingerprint{}, 0, err
	}
	for _, e := range entries {
		if e.Name != job.ArchiveMemberName {
			continue
		}
		rc, err := e.Open()
		if err != nil {
			return types.Fingerprint{}, 0, rverr.Wrap(rverr.IOError, job.FilePath, err)
		}
		defer rc.Close()
		fp, n, err := hashing.Hash(&hashing.Source{R: rc, Total: e.Size}, hashing.Options{Total: e.Size})
		return fp, n, err
	}
	return types.Fingerprint{}, 0, rverr.New(rverr.NotFound, "archive member not found: "+job.ArchiveMemberName)
}

// EventKind distinguishes the two event shapes a subscriber receives.
type EventKind string

const (
	EventProgress  EventKind = "progress"
	EventCompleted EventKind = "completed"
)

// Event is published once per job progress tick and once on completion.
type Event struct {
	Kind EventKind
	Job  types.HashJob
}

// Pool is a long-lived, priority-ordered hash job dispatcher.
type Pool struct {
	numWorkers int
	hasher     Hasher
	cache      *hashcache.Cache

	queues  [4]chan *types.HashJob
	events  chan Event
	cancels map[string]chan struct{}

	mu      sync.Mutex
	jobs    map[string]*types.HashJob
	batches map[string][]string

	wg       sync.WaitGroup
	quitOnce sync.Once
	quit     chan struct{}
}

// New creates a Pool with numWorkers concurrent hashing goroutines.
// cache may be nil, in which case results are not memoized.
func New(numWorkers int, hasher Hasher, cache *hashcache.Cache) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if hasher == nil {
		hasher = DefaultHasher
	}
	p := &Pool{
		numWorkers: numWorkers,
		hasher:     hasher,
		cache:      cache,
		events:     make(chan Event, 256),
		cancels:    make(map[string]chan struct{}),
		jobs:       make(map[string]*types.HashJob),
		batches:    make(map[string][]string),
		quit:       make(chan struct{}),
	}
	for i := range p.queues {
		p.queues[i] = make(chan *types.HashJob, 1024)
	}
	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go p.runWorker(i)
	}
	return p
}

// Events returns the channel subscribers watch for progress/completion.
func (p *Pool) Events() <-chan Event { return p.events }

// Enqueue admits one job for dispatch. It stats the target first: a
// job naming an ArchiveMemberName is sized from its archive's member
// list, everything else from the file itself on disk. TotalBytes is
// set to that size minus SkipBytes, and a missing target fails
// not_found before the job is ever visible to Status. The job's State
// is set to HashQueued and QueuedAt stamped only once the size is known.
func (p *Pool) Enqueue(job *types.HashJob) error {
	if job.ID == "" {
		return rverr.New(rverr.Internal, "hash job requires an id")
	}

	size, err := jobSize(job)
	if err != nil {
		return err
	}
	job.TotalBytes = size - int64(job.SkipBytes)
	job.State = types.HashQueued
	job.QueuedAt = time.Now()

	p.mu.Lock()
	p.jobs[job.ID] = job
	p.cancels[job.ID] = make(chan struct{})
	if job.BatchID != "" {
		p.batches[job.BatchID] = append(p.batches[job.BatchID], job.ID)
	}
	p.mu.Unlock()

	idx := queueIndex(job.Priority)
	select {
	case p.queues[idx] <- job:
		return nil
	case <-p.quit:
		return rverr.New(rverr.Cancelled, "pool is shut down")
	}
}

// jobSize resolves the byte count Enqueue records as TotalBytes,
// failing not_found when the target file or archive member is absent.
func jobSize(job *types.HashJob) (int64, error) {
	if job.ArchiveMemberName != "" {
		entries, err := archivefmt.Entries(job.FilePath)
		if err != nil {
			return 0, err
		}
		for _, e := range entries {
			if e.Name == job.ArchiveMemberName {
				return e.Size, nil
			}
		}
		return 0, rverr.New(rverr.NotFound, "archive member not found: "+job.ArchiveMemberName)
	}
	_, size, err := hashing.StatFile(job.FilePath)
	return size, err
}

// EnqueueBatch enqueues every job under one freshly generated BatchID
// (jobs that already carry one keep it), returning that id alongside a
// parallel slice of per-job errors (nil where that job enqueued
// successfully). CancelBatch(batchID) later cancels every job here
// still queued or in progress.
func (p *Pool) EnqueueBatch(jobs []*types.HashJob) (string, []error) {
	batchID := uuid.New().String()
	errs := make([]error, len(jobs))
	for i, job := range jobs {
		if job.BatchID == "" {
			job.BatchID = batchID
		}
		errs[i] = p.Enqueue(job)
	}
	return batchID, errs
}

// CancelBatch cancels every job enqueued under batchID that has not
// already reached a terminal state.
func (p *Pool) CancelBatch(batchID string) error {
	p.mu.Lock()
	jobIDs := append([]string(nil), p.batches[batchID]...)
	p.mu.Unlock()
	if len(jobIDs) == 0 {
		return rverr.New(rverr.NotFound, "unknown batch: "+batchID)
	}
	for _, id := range jobIDs {
		if err := p.Cancel(id); err != nil {
			return err
		}
	}
	return nil
}

// Status returns a snapshot of the job's current state, or false if no
// such job is known to the pool.
func (p *Pool) Status(jobID string) (types.HashJob, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	job, ok := p.jobs[jobID]
	if !ok {
		return types.HashJob{}, false
	}
	return *job, true
}

// Result blocks until jobID reaches a terminal state or ctx is done.
func (p *Pool) Result(ctx context.Context, jobID string) (types.HashJob, error) {
	for {
		job, ok := p.Status(jobID)
		if !ok {
			return types.HashJob{}, rverr.New(rverr.NotFound, "unknown hash job: "+jobID)
		}
		if terminal(job.State) {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func terminal(s types.HashJobState) bool {
	return s == types.HashCompleted || s == types.HashFailed || s == types.HashCancelled
}

// Cancel requests cooperative cancellation of a queued or in-progress
// job. It is a no-op if the job already finished.
func (p *Pool) Cancel(jobID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	job, ok := p.jobs[jobID]
	if !ok {
		return rverr.New(rverr.NotFound, "unknown hash job: "+jobID)
	}
	if terminal(job.State) {
		return nil
	}
	if c, ok := p.cancels[jobID]; ok {
		select {
		case <-c:
		default:
			close(c)
		}
	}
	return nil
}

// Shutdown stops accepting new work and waits for in-flight jobs to
// drain. Jobs already queued are still dequeued and processed before
// the workers exit.
func (p *Pool) Shutdown() {
	p.quitOnce.Do(func() { close(p.quit) })
	for i := range p.queues {
		close(p.queues[i])
	}
	p.wg.Wait()
	close(p.events)
}

func queueIndex(pri types.HashPriority) int {
	idx := int(pri)
	if idx < 0 {
		idx = 0
	}
	if idx > 3 {
		idx = 3
	}
	return idx
}

// runWorker dequeues strictly highest-priority-first: it polls queues
// 3 (critical) down to 0 (background) without blocking before falling
// back to a blocking select across all four, so a steady trickle of
// critical jobs never starves behind a backlog of background ones.
func (p *Pool) runWorker(idx int) {
	defer p.wg.Done()
	pt := progress.New(1)

	for {
		job, ok := p.dequeue()
		if !ok {
			return
		}
		p.process(job, pt)
	}
}

func (p *Pool) dequeue() (*types.HashJob, bool) {
	for pri := 3; pri >= 0; pri-- {
		select {
		case job, ok := <-p.queues[pri]:
			if ok {
				return job, true
			}
		default:
		}
	}

	select {
	case job, ok := <-p.queues[3]:
		return job, ok
	case job, ok := <-p.queues[2]:
		return job, ok
	case job, ok := <-p.queues[1]:
		return job, ok
	case job, ok := <-p.queues[0]:
		return job, ok
	}
}

func (p *Pool) process(job *types.HashJob, pt progress.Tracker) {
	now := time.Now()

	p.mu.Lock()
	cancelC := p.cancels[job.ID]
	job.State = types.HashInProgress
	job.StartedAt = &now
	p.mu.Unlock()

	select {
	case <-cancelC:
		p.finish(job, types.HashCancelled, types.Fingerprint{}, 0, nil)
		return
	default:
	}

	fp, size, err := p.hasher(job)

	finishedAt := time.Now()
	state := types.HashCompleted
	if err != nil {
		state = types.HashFailed
		glog.Errorf("hash job %s failed for %s: %v", job.ID, job.FilePath, err)
	}

	select {
	case <-cancelC:
		state = types.HashCancelled
	default:
	}

	job.CompletedAt = &finishedAt
	p.finish(job, state, fp, size, err)
}

func (p *Pool) finish(job *types.HashJob, state types.HashJobState, fp types.Fingerprint, size int64, err error) {
	p.mu.Lock()
	job.State = state
	job.TotalBytes = size
	job.BytesProcessed = size
	if state == types.HashCompleted {
		job.Result = &fp
	}
	job.Err = err
	snapshot := *job
	p.mu.Unlock()

	if state == types.HashCompleted && p.cache != nil {
		if info, statErr := statPath(job.FilePath); statErr == nil {
			p.cache.Put(job.FilePath, hashcache.Record{
				Fingerprint: fp,
				ModTime:     info.modTime,
				Size:        info.size,
			})
		}
	}

	p.publish(Event{Kind: EventCompleted, Job: snapshot})
}

func (p *Pool) publish(ev Event) {
	select {
	case p.events <- ev:
	default:
		glog.Warningf("hashqueue event channel full, dropping event for job %s", ev.Job.ID)
	}
}

type fileStat struct {
	modTime time.Time
	size    int64
}

func statPath(path string) (fileStat, error) {
	fi, _, err := hashing.StatFile(path)
	if err != nil {
		return fileStat{}, err
	}
	return fileStat{modTime: fi.ModTime(), size: fi.Size()}, nil
}
