package catalogstore

import (
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/romvault/romvault/rverr"
	"github.com/romvault/romvault/types"
)

type indexedEntry struct {
	catalogID uuid.UUID
	entry     types.CatalogEntry
}

// MemStore is an in-process Store with no persistence, used by the CLI
// for one-shot verify runs and by tests, where LevelStore's disk-backed
// persistence has no equivalent need. Kept to the standard library
// because the only requirement here is a guarded map, and pulling in
// a third-party map/cache library for that would add nothing a
// sync.RWMutex doesn't already give for free.
type MemStore struct {
	mu sync.RWMutex

	catalogs map[uuid.UUID]types.Catalog
	games    map[uuid.UUID][]types.GameEntry
	// byKind["sha1"]["<hex>"] -> entries sharing that hash.
	byKind map[string]map[string][]indexedEntry
}

// NewMemStore constructs an empty in-memory Store.
func NewMemStore() *MemStore {
	return &MemStore{
		catalogs: make(map[uuid.UUID]types.Catalog),
		games:    make(map[uuid.UUID][]types.GameEntry),
		byKind: map[string]map[string][]indexedEntry{
			"sha1":  make(map[string][]indexedEntry),
			"md5":   make(map[string][]indexedEntry),
			"crc32": make(map[string][]indexedEntry),
		},
	}
}

func (m *MemStore) ImportCatalog(cat types.Catalog, games []types.GameEntry, entries []types.CatalogEntry) error {
	if err := validateImport(cat, entries); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.catalogs[cat.ID] = cat
	m.games[cat.ID] = games

	for _, e := range entries {
		kind, key := fingerprintKey(e.Fingerprint)
		if kind == "" {
			continue
		}
		m.byKind[kind][key] = append(m.byKind[kind][key], indexedEntry{catalogID: cat.ID, entry: e})
	}
	return nil
}

func (m *MemStore) GetCatalog(id uuid.UUID) (types.Catalog, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cat, ok := m.catalogs[id]
	return cat, ok, nil
}

func (m *MemStore) ListCatalogs() ([]types.Catalog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Catalog, 0, len(m.catalogs))
	for _, cat := range m.catalogs {
		out = append(out, cat)
	}
	return out, nil
}

func (m *MemStore) DeleteCatalog(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.catalogs[id]; !ok {
		return rverr.New(rverr.NotFound, "unknown catalog: "+id.String())
	}
	delete(m.catalogs, id)
	delete(m.games, id)
	for kind, byKey := range m.byKind {
		for key, indexed := range byKey {
			filtered := indexed[:0]
			for _, ie := range indexed {
				if ie.catalogID != id {
					filtered = append(filtered, ie)
				}
			}
			if len(filtered) == 0 {
				delete(m.byKind[kind], key)
			} else {
				m.byKind[kind][key] = filtered
			}
		}
	}
	return nil
}

func (m *MemStore) FindByFingerprint(fp types.Fingerprint) ([]CatalogMatch, error) {
	kind, key := fingerprintKey(fp)
	if kind == "" {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	indexed := m.byKind[kind][key]
	out := make([]CatalogMatch, len(indexed))
	for i, ie := range indexed {
		out[i] = CatalogMatch{CatalogID: ie.catalogID, Entry: ie.entry}
	}
	sortMatches(out, func(id uuid.UUID) bool { return m.catalogs[id].IsEnabled })
	return out, nil
}

func (m *MemStore) FindByFingerprints(fps []types.Fingerprint) ([][]CatalogMatch, error) {
	out := make([][]CatalogMatch, len(fps))
	for i, fp := range fps {
		matches, err := m.FindByFingerprint(fp)
		if err != nil {
			return nil, err
		}
		out[i] = matches
	}
	return out, nil
}

func (m *MemStore) Duplicates() ([]DuplicateGroup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var groups []DuplicateGroup
	for kind, byKey := range m.byKind {
		for key, indexed := range byKey {
			if len(indexed) < 2 {
				continue
			}
			fp, _ := fingerprintForKind(kind, key)
			entries := make([]types.CatalogEntry, len(indexed))
			for i, ie := range indexed {
				entries[i] = ie.entry
			}
			groups = append(groups, DuplicateGroup{
				Fingerprint: fp,
				MatchedOn:   kind,
				Entries:     entries,
			})
		}
	}
	return groups, nil
}

func fingerprintForKind(kind, key string) (types.Fingerprint, error) {
	switch kind {
	case "sha1":
		return types.NewFingerprint("", "", key)
	case "md5":
		return types.NewFingerprint("", key, "")
	default:
		return types.NewFingerprint(key, "", "")
	}
}

func (m *MemStore) PrintStats() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return "catalogs=" + strconv.Itoa(len(m.catalogs)) +
		" sha1_keys=" + strconv.Itoa(len(m.byKind["sha1"])) +
		" md5_keys=" + strconv.Itoa(len(m.byKind["md5"])) +
		" crc32_keys=" + strconv.Itoa(len(m.byKind["crc32"]))
}

func (m *MemStore) Close() error { return nil }
