package types

import (
	"time"

	"github.com/google/uuid"
)

// ScanJobStatus is the persisted lifecycle state of a ScanJob.
type ScanJobStatus string

const (
	ScanQueued    ScanJobStatus = "queued"
	ScanRunning   ScanJobStatus = "running"
	ScanPaused    ScanJobStatus = "paused"
	ScanCompleted ScanJobStatus = "completed"
	ScanFailed    ScanJobStatus = "failed"
	ScanCancelled ScanJobStatus = "cancelled"
)

// ScanJob is the persisted record of one scan run, enough to resume it.
type ScanJob struct {
	ID                uuid.UUID
	Kind              string
	TargetVolumeID    *uuid.UUID
	TargetPath        string
	Status            ScanJobStatus
	QueuedAt          time.Time
	StartedAt         *time.Time
	CompletedAt       *time.Time
	ProcessedItems    int64
	TotalItems        int64
	ProcessedBytes    int64
	TotalBytes        int64
	LastProcessedPath string
	ResumeCount       int
	Phase             string
}

var scanTransitions = map[ScanJobStatus][]ScanJobStatus{
	ScanQueued:    {ScanRunning},
	ScanRunning:   {ScanPaused, ScanCompleted, ScanFailed, ScanCancelled},
	ScanPaused:    {ScanRunning},
	ScanCompleted: {},
	ScanFailed:    {},
	ScanCancelled: {},
}

// CanTransition reports whether moving from the job's current status to
// next is a legal transition in scanTransitions.
func (j *ScanJob) CanTransition(next ScanJobStatus) bool {
	for _, allowed := range scanTransitions[j.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Pause is valid only while Running.
func (j *ScanJob) Pause(lastPath string) error {
	if !j.CanTransition(ScanPaused) {
		return &ValidationError{Field: "status", Value: string(j.Status)}
	}
	j.Status = ScanPaused
	if lastPath != "" {
		j.LastProcessedPath = lastPath
	}
	return nil
}

// Resume is valid from Paused or Failed; it bumps ResumeCount.
func (j *ScanJob) Resume() error {
	if j.Status != ScanPaused && j.Status != ScanFailed {
		return &ValidationError{Field: "status", Value: string(j.Status)}
	}
	j.Status = ScanRunning
	j.ResumeCount++
	return nil
}

// Complete is valid only while Running.
func (j *ScanJob) Complete() error {
	if !j.CanTransition(ScanCompleted) {
		return &ValidationError{Field: "status", Value: string(j.Status)}
	}
	j.Status = ScanCompleted
	now := time.Now()
	j.CompletedAt = &now
	return nil
}

// Fail is valid only while Running.
func (j *ScanJob) Fail() error {
	if !j.CanTransition(ScanFailed) {
		return &ValidationError{Field: "status", Value: string(j.Status)}
	}
	j.Status = ScanFailed
	now := time.Now()
	j.CompletedAt = &now
	return nil
}

// Start is valid only from Queued; it stamps StartedAt.
func (j *ScanJob) Start() error {
	if !j.CanTransition(ScanRunning) {
		return &ValidationError{Field: "status", Value: string(j.Status)}
	}
	j.Status = ScanRunning
	now := time.Now()
	j.StartedAt = &now
	return nil
}

// HashPriority orders HashJobs within the hash pool's dispatch queues.
type HashPriority int

const (
	PriorityBackground HashPriority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

// HashJobState is the in-memory lifecycle of a HashJob.
type HashJobState string

const (
	HashQueued     HashJobState = "queued"
	HashInProgress HashJobState = "in_progress"
	HashCompleted  HashJobState = "completed"
	HashFailed     HashJobState = "failed"
	HashCancelled  HashJobState = "cancelled"
)

// HashJob is an in-memory unit of hashing work tracked by the hash pool.
// A job targeting an archive member sets ArchiveMemberName; FilePath
// is then the archive's own path on disk.
type HashJob struct {
	ID                string
	FilePath          string
	ArchiveMemberName string
	Priority          HashPriority
	SkipBytes         uint32
	State             HashJobState
	BatchID           string
	QueuedAt          time.Time
	StartedAt         *time.Time
	CompletedAt       *time.Time
	TotalBytes        int64
	BytesProcessed    int64
	Result            *Fingerprint
	Err               error
}
