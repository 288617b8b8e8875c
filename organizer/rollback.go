package organizer

import (
	"os"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/romvault/romvault/rverr"
	"github.com/romvault/romvault/types"
)

// RollbackResult reports per-entry outcome of restoring one operation.
type RollbackResult struct {
	OperationID uuid.UUID
	Restored    int
	Failed      int
	Errors      []error
	AllRestored bool
}

// Rollback undoes a moved-files operation: for each journal entry whose
// file is still at CurrentPath, it moves the file back to OriginalPath.
// Best-effort: a failing entry is recorded and the next entry is still
// attempted.
func Rollback(journal JournalStore, opID uuid.UUID) (RollbackResult, error) {
	op, found, err := journal.Load(opID)
	if err != nil {
		return RollbackResult{}, rverr.Wrap(rverr.IOError, opID.String(), err)
	}
	if !found {
		return RollbackResult{}, rverr.New(rverr.NotFound, "no organization operation with that id")
	}
	if !op.CanRollback {
		return RollbackResult{}, rverr.New(rverr.Conflict, "operation cannot be rolled back")
	}
	if op.IsRolledBack {
		return RollbackResult{}, rverr.New(rverr.Conflict, "operation already rolled back")
	}

	res := RollbackResult{OperationID: opID}
	for _, entry := range op.RollbackEntries {
		if !entry.WasMoved {
			continue
		}
		if _, err := os.Stat(entry.CurrentPath); err != nil {
			res.Failed++
			res.Errors = append(res.Errors, rverr.Wrap(rverr.NotFound, entry.CurrentPath, err))
			continue
		}
		if err := moveFile(entry.CurrentPath, entry.OriginalPath); err != nil {
			res.Failed++
			res.Errors = append(res.Errors, rverr.Wrap(rverr.IOError, entry.CurrentPath, err))
			glog.Errorf("organize: rollback failed to restore %s -> %s: %v", entry.CurrentPath, entry.OriginalPath, err)
			continue
		}
		res.Restored++
	}

	res.AllRestored = res.Failed == 0
	if res.AllRestored {
		now := time.Now()
		op.IsRolledBack = true
		op.RolledBackAt = &now
		if err := journal.Save(op); err != nil {
			glog.Errorf("organize: failed to persist rolled-back journal: %v", err)
		}
		removeEmptyDirs(op.DestinationRoot)
	}

	return res, nil
}

// memJournal is a process-memory JournalStore, a guarded map used here
// for tests and as the default when no persistent store is wired in.
type memJournal struct {
	mu  sync.RWMutex
	ops map[uuid.UUID]types.OrganizationOperation
}

// NewMemJournal constructs an in-memory JournalStore.
func NewMemJournal() JournalStore {
	return &memJournal{ops: make(map[uuid.UUID]types.OrganizationOperation)}
}

func (j *memJournal) Save(op types.OrganizationOperation) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ops[op.ID] = op
	return nil
}

func (j *memJournal) Load(id uuid.UUID) (types.OrganizationOperation, bool, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	op, ok := j.ops[id]
	return op, ok, nil
}
