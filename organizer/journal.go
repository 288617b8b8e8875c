package organizer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/romvault/romvault/types"
)

// FileJournal persists each OrganizationOperation as its own JSON file
// under dir, one atomic temp-then-rename write per Save call (the same
// crash-safety pattern scanner.SaveCheckpoint uses), so cmd/romvault's
// rollback subcommand can recover an operation's journal after a
// restart.
type FileJournal struct {
	mu  sync.Mutex
	dir string
}

// NewFileJournal returns a JournalStore rooted at dir, creating it if
// necessary.
func NewFileJournal(dir string) (*FileJournal, error) {
	if err := os.MkdirAll(dir, 0777); err != nil {
		return nil, err
	}
	return &FileJournal{dir: dir}, nil
}

func (j *FileJournal) path(id uuid.UUID) string {
	return filepath.Join(j.dir, id.String()+".json")
}

func (j *FileJournal) Save(op types.OrganizationOperation) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	dst := j.path(op.ID)
	tmp := dst + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(op); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}

func (j *FileJournal) Load(id uuid.UUID) (types.OrganizationOperation, bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.Open(j.path(id))
	if os.IsNotExist(err) {
		return types.OrganizationOperation{}, false, nil
	}
	if err != nil {
		return types.OrganizationOperation{}, false, err
	}
	defer f.Close()

	var op types.OrganizationOperation
	if err := json.NewDecoder(f).Decode(&op); err != nil {
		return types.OrganizationOperation{}, false, err
	}
	return op, true, nil
}
