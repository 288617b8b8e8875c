package rpcsurface

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/romvault/romvault/scanner"
	"github.com/romvault/romvault/types"
)

// StartScanArgs mirrors scanner.Options' externally controllable
// fields; Cache and Pressure are bound server-side, not passed over
// the wire. EnumerateOnly inverts ComputeHashes so the common case
// (walk and hash) needs no flag: a caller opts out of hashing instead
// of having to remember to opt in.
type StartScanArgs struct {
	Root               string
	DriveID            *uuid.UUID
	Priority           types.HashPriority
	Incremental        bool
	ScanArchives       bool
	EnumerateOnly      bool
	MaxParallelIO      int
	IncludeGlobs       []string
	ExcludeGlobs       []string
	NonRecursive       bool
	CheckpointPath     string
	CheckpointInterval time.Duration
	CheckpointEveryN   int64
}

type StartScanReply struct {
	Started bool
	Message string
}

var (
	scanMu     sync.Mutex
	scanCancel context.CancelFunc
)

// StartScan launches one scan in the background, the same
// fire-and-poll shape as service.go's startRefreshDats: only one scan
// may be in flight at a time, and a caller already holding that slot
// gets Started=false with an explanatory Message instead of an error.
func (s *Service) StartScan(r *http.Request, args *StartScanArgs, reply *StartScanReply) error {
	if args.DriveID != nil && s.Scanner.Jobs().HasActiveJobForDrive(*args.DriveID) {
		reply.Started = false
		reply.Message = "a scan is already active for this drive"
		return nil
	}
	if !s.beginJob("scan") {
		reply.Started = false
		reply.Message = "a job is already running"
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	scanMu.Lock()
	scanCancel = cancel
	scanMu.Unlock()

	stopTicker := make(chan struct{})
	go s.tickProgress(stopTicker, true)

	go func() {
		defer s.endJob()
		defer close(stopTicker)

		opts := scanner.Options{
			Root:               args.Root,
			DriveID:            args.DriveID,
			Priority:           args.Priority,
			Incremental:        args.Incremental,
			ScanArchives:       args.ScanArchives,
			ComputeHashes:      !args.EnumerateOnly,
			MaxParallelIO:      args.MaxParallelIO,
			IncludeGlobs:       args.IncludeGlobs,
			ExcludeGlobs:       args.ExcludeGlobs,
			Recursive:          !args.NonRecursive,
			CheckpointPath:     args.CheckpointPath,
			CheckpointInterval: args.CheckpointInterval,
			CheckpointEveryN:   args.CheckpointEveryN,
			Pressure:           s.Pressure,
		}

		res, err := s.Scanner.Scan(ctx, opts)
		if err != nil {
			glog.Errorf("rpcsurface: scan of %s failed: %v", args.Root, err)
			s.broadcast(&ProgressMessage{JobName: "scan", Stopping: true, TerminalMessage: err.Error()})
			return
		}
		s.broadcast(&ProgressMessage{
			JobName:         "scan",
			Stopping:        true,
			FilesSoFar:      res.FilesEnqueued,
			BytesSoFar:      res.BytesEnqueued,
			TerminalMessage: "scan finished",
		})
	}()

	reply.Started = true
	return nil
}

type StopScanArgs struct{}

type StopScanReply struct {
	Stopped bool
}

// StopScan cancels whatever scan is currently in flight, if any.
func (s *Service) StopScan(r *http.Request, args *StopScanArgs, reply *StopScanReply) error {
	scanMu.Lock()
	cancel := scanCancel
	scanMu.Unlock()
	if cancel == nil {
		reply.Stopped = false
		return nil
	}
	cancel()
	reply.Stopped = true
	return nil
}

type ListScanJobsArgs struct{}

type ListScanJobsReply struct {
	Jobs []types.ScanJob
}

// ListScanJobs reports every ScanJob the bound Scanner has registered,
// running or not; a client checking whether a given drive is already
// being scanned can do so without waiting on StartScan to fail.
func (s *Service) ListScanJobs(r *http.Request, args *ListScanJobsArgs, reply *ListScanJobsReply) error {
	reply.Jobs = s.Scanner.Jobs().Jobs()
	return nil
}

type StatusArgs struct{}

type StatusReply struct {
	Busy        bool
	JobName     string
	MemoryLevel string
	MemoryRatio float64
}

func (s *Service) Status(r *http.Request, args *StatusArgs, reply *StatusReply) error {
	name, busy := s.currentJob()
	reply.Busy = busy
	reply.JobName = name
	if s.Pressure != nil {
		reply.MemoryLevel = s.Pressure.Level().String()
		reply.MemoryRatio = s.Pressure.Ratio()
	}
	return nil
}
