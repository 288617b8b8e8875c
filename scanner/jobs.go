package scanner

import (
	"sync"

	"github.com/google/uuid"

	"github.com/romvault/romvault/types"
)

// JobRegistry tracks every ScanJob a Scanner has in flight, so callers
// (the CLI, rpcsurface) can answer "is a scan already running against
// this drive" without threading their own bookkeeping through Scan.
// Adopts the list-of-active-jobs contract: HasActiveJobForDrive scans
// the registered jobs rather than keeping one single-slot pointer, so a
// Scanner backing several volumes can gate each independently.
type JobRegistry struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*types.ScanJob
}

// NewJobRegistry constructs an empty registry.
func NewJobRegistry() *JobRegistry {
	return &JobRegistry{jobs: make(map[uuid.UUID]*types.ScanJob)}
}

func (r *JobRegistry) register(job *types.ScanJob) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
}

func (r *JobRegistry) unregister(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
}

// active reports whether status is still occupying a drive's single
// scan slot (queued work counts, same as a running one).
func active(status types.ScanJobStatus) bool {
	switch status {
	case types.ScanQueued, types.ScanRunning, types.ScanPaused:
		return true
	default:
		return false
	}
}

// HasActiveJobForDrive reports whether any registered job targets
// driveID and has not reached a terminal status.
func (r *JobRegistry) HasActiveJobForDrive(driveID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.TargetVolumeID != nil && *j.TargetVolumeID == driveID && active(j.Status) {
			return true
		}
	}
	return false
}

// Jobs returns a snapshot of every currently registered ScanJob.
func (r *JobRegistry) Jobs() []types.ScanJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.ScanJob, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, *j)
	}
	return out
}
