// Package rpcsurface exposes catalogstore, hashqueue, scanner,
// datparser, selector, and organizer as one JSON-RPC service plus a
// websocket progress channel, the same external collaborator shape
// cmds/rombaserver/main.go wires up: gorilla/rpc/v2 with the json2
// codec registered under /jsonrpc/, and golang.org/x/net/websocket
// registered under /progress. service.go's RombaService/ProgressNessage
// pair is re-expressed here as Service/ProgressMessage. Listeners are
// still a map of per-client buffered channels guarded by a mutex;
// broadcast() sends to them under a read lock and never blocks on a
// slow one, dropping the tick for a client whose buffer is full.
package rpcsurface

import (
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/romvault/romvault/catalogstore"
	"github.com/romvault/romvault/hashqueue"
	"github.com/romvault/romvault/memorypressure"
	"github.com/romvault/romvault/organizer"
	"github.com/romvault/romvault/scanner"
)

// ProgressMessage is one broadcast tick, covering either an active
// scan/hash/organize run or the idle state between them.
type ProgressMessage struct {
	JobName         string
	Running         bool
	FilesSoFar      int64
	TotalFiles      int64
	BytesSoFar      int64
	TotalBytes      int64
	Starting        bool
	Stopping        bool
	TerminalMessage string
}

// Service is the bound set of collaborators one RPC surface serves.
// Every exported method has the gorilla/rpc/v2 signature
// (http.Request, *Args, *Reply) error.
type Service struct {
	Store    catalogstore.Store
	Pool     *hashqueue.Pool
	Scanner  *scanner.Scanner
	Pressure *memorypressure.Monitor
	Journal  organizer.JournalStore

	jobMu   sync.Mutex
	busy    bool
	jobName string

	subMu       sync.RWMutex
	subscribers map[string]chan *ProgressMessage
}

// NewService binds a Service to its collaborators. Pool, Scanner, and
// Pressure may be nil for a Service that only ever serves catalog
// lookups (e.g. a read-only mirror).
func NewService(store catalogstore.Store, pool *hashqueue.Pool, sc *scanner.Scanner, pressure *memorypressure.Monitor, journal organizer.JournalStore) *Service {
	return &Service{
		Store:       store,
		Pool:        pool,
		Scanner:     sc,
		Pressure:    pressure,
		Journal:     journal,
		subscribers: make(map[string]chan *ProgressMessage),
	}
}

func (s *Service) beginJob(name string) bool {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	s.jobName = name
	return true
}

func (s *Service) endJob() {
	s.jobMu.Lock()
	s.busy = false
	s.jobName = ""
	s.jobMu.Unlock()
}

func (s *Service) currentJob() (string, bool) {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	return s.jobName, s.busy
}

func (s *Service) subscribe(id string) chan *ProgressMessage {
	c := make(chan *ProgressMessage, 8)
	s.subMu.Lock()
	s.subscribers[id] = c
	s.subMu.Unlock()
	return c
}

func (s *Service) unsubscribe(id string) {
	s.subMu.Lock()
	c, ok := s.subscribers[id]
	delete(s.subscribers, id)
	s.subMu.Unlock()
	if ok {
		close(c)
	}
}

// broadcast fans msg out to every subscriber without blocking on a
// slow or dead one: a full channel buffer just drops the tick.
func (s *Service) broadcast(msg *ProgressMessage) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	for _, c := range s.subscribers {
		select {
		case c <- msg:
		default:
			glog.Warning("rpcsurface: dropped progress tick, subscriber buffer full")
		}
	}
}

func (s *Service) tickProgress(stop <-chan struct{}, starting bool) {
	if starting {
		name, _ := s.currentJob()
		s.broadcast(&ProgressMessage{JobName: name, Running: true, Starting: true})
	}
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			name, busy := s.currentJob()
			s.broadcast(&ProgressMessage{JobName: name, Running: busy})
		case <-stop:
			return
		}
	}
}
