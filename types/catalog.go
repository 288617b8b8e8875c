package types

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Provider identifies the preservation project that published a Catalog.
type Provider string

const (
	ProviderNoIntro Provider = "NoIntro"
	ProviderRedump  Provider = "Redump"
	ProviderTOSEC   Provider = "TOSEC"
	ProviderMAME    Provider = "MAME"
	ProviderCustom  Provider = "Custom"
)

// EntryStatus is the catalog-declared health of a CatalogEntry.
type EntryStatus string

const (
	StatusGood     EntryStatus = "good"
	StatusVerified EntryStatus = "verified"
	StatusBadDump  EntryStatus = "baddump"
	StatusNoDump   EntryStatus = "nodump"
)

// Catalog is one imported DAT file.
type Catalog struct {
	ID           uuid.UUID
	Filename     string
	DisplayName  string
	Description  string
	Version      string
	Provider     Provider
	CategoryPath string
	System       string
	GameCount    int
	RomCount     int
	TotalSize    uint64
	IsEnabled    bool
	ImportedAt   time.Time
}

// GameEntry is one logical game inside a Catalog.
type GameEntry struct {
	StableID     string
	Name         string
	Description  string
	Year         string
	Publisher    string
	Region       string
	Languages    string
	CloneOf      string
	RomOf        string
	IsBios       bool
	IsDevice     bool
	IsMechanical bool
	Category     string
	CatalogID    uuid.UUID
}

// CatalogEntry is one ROM row inside a GameEntry.
type CatalogEntry struct {
	StableID     string
	Name         string
	ExpectedSize uint64
	Fingerprint  Fingerprint
	Status       EntryStatus
	Serial       string
	IsBios       bool
	Merge        string
	ParentGameID string
}

// Validate enforces the invariant that at least one hash is present.
func (e *CatalogEntry) Validate() error {
	if e.Fingerprint.IsEmpty() {
		return &ValidationError{Field: "fingerprint", Value: e.Name}
	}
	return nil
}

// GameSlice sorts GameEntry values by name, mirroring types.go's own
// GameSlice/RomSlice sort.Interface helpers.
type GameSlice []*GameEntry

func (s GameSlice) Len() int           { return len(s) }
func (s GameSlice) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
func (s GameSlice) Less(i, j int) bool { return s[i].Name < s[j].Name }

func (s GameSlice) SortByName() { sort.Sort(s) }

// RecomputeCounts recomputes GameCount/RomCount/TotalSize for a catalog
// given its games and their entries, enforcing the invariants from §3:
// rom_count = sum of per-game rom counts, game_count = len(games).
func (c *Catalog) RecomputeCounts(games []*GameEntry, entriesByGame map[string][]*CatalogEntry) {
	c.GameCount = len(games)
	romCount := 0
	var totalSize uint64
	for _, g := range games {
		entries := entriesByGame[g.StableID]
		romCount += len(entries)
		for _, e := range entries {
			totalSize += e.ExpectedSize
		}
	}
	c.RomCount = romCount
	c.TotalSize = totalSize
}
