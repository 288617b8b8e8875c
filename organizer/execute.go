package organizer

import (
	"os"
	"path/filepath"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/romvault/romvault/rverr"
	"github.com/romvault/romvault/types"
)

// JournalStore persists an in-progress OrganizationOperation so a crash
// mid-execute leaves the system recoverable: Execute must persist the
// journal before performing the first operation and after each entry.
// Kept as a small interface instead of a concrete file format since
// cmd/romvault-server wires a real backing store and tests use an
// in-memory one.
type JournalStore interface {
	Save(op types.OrganizationOperation) error
	Load(id uuid.UUID) (types.OrganizationOperation, bool, error)
}

// Execute runs plan's operations in order, persisting journal after
// every successful move so interruption never loses already-moved
// files.
func Execute(plan *Plan, journal JournalStore) (Result, error) {
	start := time.Now()

	op := types.OrganizationOperation{
		ID:              NewOperationID(),
		PerformedAt:     start,
		SourceRoot:      plan.Input.SourcePath,
		DestinationRoot: plan.Input.DestinationRoot,
		WasMove:         plan.Input.MoveFiles,
	}
	if err := journal.Save(op); err != nil {
		return Result{}, rverr.Wrap(rverr.IOError, plan.Input.SourcePath, err)
	}

	res := Result{Operation: op}

	for _, fo := range plan.Operations {
		switch fo.Type {
		case OpSkip, OpExtract:
			res.FilesSkipped++
			continue
		}

		if fo.WouldOverwrite {
			res.FilesFailed++
			res.Errors = append(res.Errors, rverr.New(rverr.Conflict, "destination exists and differs: "+fo.DestinationPath))
			continue
		}

		var err error
		switch fo.Type {
		case OpMove:
			err = moveFile(fo.SourcePath, fo.DestinationPath)
		case OpCopy:
			if fo.DestinationExists {
				err = os.ErrExist
			} else {
				err = copyFile(fo.SourcePath, fo.DestinationPath)
			}
		}

		if err != nil {
			res.FilesFailed++
			res.Errors = append(res.Errors, rverr.Wrap(rverr.IOError, fo.SourcePath, err))
			glog.Errorf("organize: failed to %s %s -> %s: %v", fo.Type, fo.SourcePath, fo.DestinationPath, err)
			continue
		}

		res.FilesProcessed++
		res.BytesProcessed += fo.Size

		if fo.Type == OpMove {
			op.RollbackEntries = append(op.RollbackEntries, types.RollbackEntry{
				CurrentPath:  fo.DestinationPath,
				OriginalPath: fo.SourcePath,
				WasMoved:     true,
			})
			op.FileCount++
			op.TotalBytes += fo.Size
			if err := journal.Save(op); err != nil {
				glog.Errorf("organize: failed to persist journal after moving %s: %v", fo.SourcePath, err)
			}
		}
	}

	if plan.Input.MoveFiles && plan.Input.DeleteEmptyFolders {
		removeEmptyDirs(plan.Input.SourcePath)
	}

	op.CanRollback = plan.Input.MoveFiles && len(op.RollbackEntries) > 0
	if err := journal.Save(op); err != nil {
		glog.Errorf("organize: failed to persist final journal: %v", err)
	}

	res.Operation = op
	res.CanRollback = op.CanRollback
	res.Success = len(res.Errors) == 0
	res.Duration = time.Since(start)

	return res, nil
}

// removeEmptyDirs walks root deepest-first, removing directories left
// empty by the moves Execute just performed.
func removeEmptyDirs(root string) {
	var dirs []string
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || !info.IsDir() {
			return nil
		}
		dirs = append(dirs, path)
		return nil
	})
	for i := len(dirs) - 1; i >= 0; i-- {
		entries, err := os.ReadDir(dirs[i])
		if err != nil || len(entries) > 0 {
			continue
		}
		if dirs[i] == root {
			continue
		}
		if err := os.Remove(dirs[i]); err != nil {
			glog.V(2).Infof("organize: could not remove empty dir %s: %v", dirs[i], err)
		}
	}
}
