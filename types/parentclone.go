package types

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ParentCloneIndex maps clone game names to their parent and back, built
// once per catalog import and snapshotted for consistent concurrent reads
// (Design Note: "shared mutable dictionaries ... re-express as concurrent
// maps with per-key updates and explicit snapshotting").
type ParentCloneIndex struct {
	CatalogID uuid.UUID
	BuiltAt   time.Time

	mu            sync.RWMutex
	cloneToParent map[string]string
	parentToClone map[string]map[string]struct{}
}

func NewParentCloneIndex(catalogID uuid.UUID) *ParentCloneIndex {
	return &ParentCloneIndex{
		CatalogID:     catalogID,
		BuiltAt:       time.Now(),
		cloneToParent: make(map[string]string),
		parentToClone: make(map[string]map[string]struct{}),
	}
}

func key(name string) string { return strings.ToLower(name) }

// Add records that clone is a clone of parent. Resolution is lazy:
// parent need not already exist in the index when Add is called.
func (idx *ParentCloneIndex) Add(clone, parent string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	ck, pk := key(clone), key(parent)
	idx.cloneToParent[ck] = pk
	set, ok := idx.parentToClone[pk]
	if !ok {
		set = make(map[string]struct{})
		idx.parentToClone[pk] = set
	}
	set[ck] = struct{}{}
}

// ParentOf returns the parent name for a clone, or "" if clone has no
// recorded parent (it is itself a parent, or unknown).
func (idx *ParentCloneIndex) ParentOf(name string) (string, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	p, ok := idx.cloneToParent[key(name)]
	return p, ok
}

// ClonesOf returns a snapshot slice of clone names for a parent.
func (idx *ParentCloneIndex) ClonesOf(parent string) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	set := idx.parentToClone[key(parent)]
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}
