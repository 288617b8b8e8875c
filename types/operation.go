package types

import (
	"time"

	"github.com/google/uuid"
)

// RollbackEntry is one undoable move recorded in an organization journal.
type RollbackEntry struct {
	CurrentPath  string
	OriginalPath string
	WasMoved     bool
}

// OrganizationOperation is the persisted record of one organize run,
// doubling as its own rollback journal.
type OrganizationOperation struct {
	ID              uuid.UUID
	PerformedAt     time.Time
	SourceRoot      string
	DestinationRoot string
	TemplateName    string
	WasMove         bool
	FileCount       int
	TotalBytes      int64
	CanRollback     bool
	RollbackEntries []RollbackEntry
	IsRolledBack    bool
	RolledBackAt    *time.Time
}
