package catalogstore

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang/glog"
	"github.com/jmhodges/levigo"
	"github.com/willf/bloom"

	"github.com/google/uuid"

	"github.com/romvault/romvault/rverr"
	"github.com/romvault/romvault/types"
)

const (
	catalogsDBName = "catalogs_db"
	gamesDBName    = "games_db"
	sha1DBName     = "sha1_db"
	md5DBName      = "md5_db"
	crc32DBName    = "crc32_db"

	bloomFilterFilename    = "romvault-bloom"
	bloomEstimatedEntries  = 20000000
	bloomFalsePositiveRate = 0.01
)

var (
	ro = levigo.NewReadOptions()
	wo = levigo.NewWriteOptions()
)

// LevelStore is the persistent, levigo-backed Store implementation:
// one sub-database per indexable hash kind plus one each for catalogs
// and games, matching db/kv.go's per-hash sub-database split
// (crc_db/md5_db/sha1_db/...), rebuilt here on jmhodges/levigo, the
// library dedup/clevel.go pins directly (db/level/level.go's goleveldb
// import is an inconsistency between the two that this store does not
// repeat). A willf/bloom filter per hash kind fronts each sub-database
// so a lookup for a fingerprint absent from the catalog never pays for
// a disk seek, mirroring archive.depotRoot's bloom filter over known
// sha1s (archive/depot_root.go).
type LevelStore struct {
	mu sync.RWMutex

	path       string
	catalogsDB *levigo.DB
	gamesDB    *levigo.DB
	sha1DB     *levigo.DB
	md5DB      *levigo.DB
	crc32DB    *levigo.DB

	sha1Filter  *bloom.BloomFilter
	md5Filter   *bloom.BloomFilter
	crc32Filter *bloom.BloomFilter
}

func openSubDB(path string) (*levigo.DB, error) {
	opts := levigo.NewOptions()
	opts.SetCreateIfMissing(true)
	opts.SetFilterPolicy(levigo.NewBloomFilter(16))
	opts.SetCache(levigo.NewLRUCache(10 * 1024 * 1024))
	opts.SetMaxOpenFiles(500)
	opts.SetWriteBufferSize(16 * 1024 * 1024)
	opts.SetEnv(levigo.NewDefaultEnv())
	db, err := levigo.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open db at %s: %v", path, err)
	}
	return db, nil
}

// NewLevelStore opens (creating if absent) a persistent catalog store
// rooted at path.
func NewLevelStore(path string) (*LevelStore, error) {
	if err := os.MkdirAll(path, 0777); err != nil {
		return nil, rverr.Wrap(rverr.IOError, path, err)
	}

	ls := &LevelStore{path: path}

	var err error
	if ls.catalogsDB, err = openSubDB(filepath.Join(path, catalogsDBName)); err != nil {
		return nil, err
	}
	if ls.gamesDB, err = openSubDB(filepath.Join(path, gamesDBName)); err != nil {
		return nil, err
	}
	if ls.sha1DB, err = openSubDB(filepath.Join(path, sha1DBName)); err != nil {
		return nil, err
	}
	if ls.md5DB, err = openSubDB(filepath.Join(path, md5DBName)); err != nil {
		return nil, err
	}
	if ls.crc32DB, err = openSubDB(filepath.Join(path, crc32DBName)); err != nil {
		return nil, err
	}

	ls.sha1Filter = loadOrNewFilter(filepath.Join(path, "sha1."+bloomFilterFilename))
	ls.md5Filter = loadOrNewFilter(filepath.Join(path, "md5."+bloomFilterFilename))
	ls.crc32Filter = loadOrNewFilter(filepath.Join(path, "crc32."+bloomFilterFilename))

	return ls, nil
}

func loadOrNewFilter(path string) *bloom.BloomFilter {
	f, err := os.Open(path)
	if err != nil {
		return bloom.NewWithEstimates(bloomEstimatedEntries, bloomFalsePositiveRate)
	}
	defer f.Close()

	bf := bloom.NewWithEstimates(bloomEstimatedEntries, bloomFalsePositiveRate)
	if _, err := bf.ReadFrom(f); err != nil {
		glog.Warningf("catalogstore: failed to load bloom filter %s: %v", path, err)
		return bloom.NewWithEstimates(bloomEstimatedEntries, bloomFalsePositiveRate)
	}
	return bf
}

func (ls *LevelStore) saveFilter(bf *bloom.BloomFilter, name string) {
	path := filepath.Join(ls.path, name+"."+bloomFilterFilename)
	f, err := os.Create(path)
	if err != nil {
		glog.Errorf("catalogstore: failed to persist bloom filter %s: %v", path, err)
		return
	}
	defer f.Close()
	if _, err := bf.WriteTo(f); err != nil {
		glog.Errorf("catalogstore: failed to write bloom filter %s: %v", path, err)
	}
}

func gobEncode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gobDecode(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func dbFor(ls *LevelStore, kind string) (*levigo.DB, *bloom.BloomFilter) {
	switch kind {
	case "sha1":
		return ls.sha1DB, ls.sha1Filter
	case "md5":
		return ls.md5DB, ls.md5Filter
	case "crc32":
		return ls.crc32DB, ls.crc32Filter
	default:
		return nil, nil
	}
}

// catalogEntryRecord is the on-disk value for one fingerprint key: the
// owning catalog id plus the entry itself, gob-encoded. A key can map
// to several records when more than one catalog shares a rom.
type catalogEntryRecord struct {
	CatalogID uuid.UUID
	Entry     types.CatalogEntry
}

func (ls *LevelStore) ImportCatalog(cat types.Catalog, games []types.GameEntry, entries []types.CatalogEntry) error {
	if err := validateImport(cat, entries); err != nil {
		return err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	catData, err := gobEncode(cat)
	if err != nil {
		return rverr.Wrap(rverr.Internal, cat.Filename, err)
	}
	if err := ls.catalogsDB.Put(wo, cat.ID[:], catData); err != nil {
		return rverr.Wrap(rverr.IOError, cat.Filename, err)
	}

	gamesData, err := gobEncode(games)
	if err != nil {
		return rverr.Wrap(rverr.Internal, cat.Filename, err)
	}
	if err := ls.gamesDB.Put(wo, cat.ID[:], gamesData); err != nil {
		return rverr.Wrap(rverr.IOError, cat.Filename, err)
	}

	for _, batch := range chunks(entries, ImportBatchSize) {
		if err := ls.writeEntryBatch(cat.ID, batch); err != nil {
			return err
		}
		glog.V(2).Infof("catalogstore: imported batch of %d entries for %s", len(batch), cat.Filename)
	}

	ls.saveFilter(ls.sha1Filter, "sha1")
	ls.saveFilter(ls.md5Filter, "md5")
	ls.saveFilter(ls.crc32Filter, "crc32")

	return nil
}

func (ls *LevelStore) writeEntryBatch(catalogID uuid.UUID, entries []types.CatalogEntry) error {
	batches := map[string]*levigo.WriteBatch{
		"sha1":  levigo.NewWriteBatch(),
		"md5":   levigo.NewWriteBatch(),
		"crc32": levigo.NewWriteBatch(),
	}
	defer func() {
		for _, b := range batches {
			b.Close()
		}
	}()

	touched := map[string]bool{}

	for _, e := range entries {
		kind, key := fingerprintKey(e.Fingerprint)
		if kind == "" {
			continue
		}
		db, filter := dbFor(ls, kind)

		rec := catalogEntryRecord{CatalogID: catalogID, Entry: e}
		existing, err := ls.readRecords(db, key)
		if err != nil {
			return err
		}
		existing = append(existing, rec)

		data, err := gobEncode(existing)
		if err != nil {
			return rverr.Wrap(rverr.Internal, e.Name, err)
		}
		batches[kind].Put([]byte(key), data)
		filter.Add([]byte(key))
		touched[kind] = true
	}

	for kind, touchedKind := range touched {
		if !touchedKind {
			continue
		}
		db, _ := dbFor(ls, kind)
		if err := db.Write(wo, batches[kind]); err != nil {
			return rverr.Wrap(rverr.IOError, kind, err)
		}
	}
	return nil
}

func (ls *LevelStore) readRecords(db *levigo.DB, key string) ([]catalogEntryRecord, error) {
	data, err := db.Get(ro, []byte(key))
	if err != nil {
		return nil, rverr.Wrap(rverr.IOError, key, err)
	}
	if data == nil {
		return nil, nil
	}
	var recs []catalogEntryRecord
	if err := gobDecode(data, &recs); err != nil {
		return nil, rverr.Wrap(rverr.ParseError, key, err)
	}
	return recs, nil
}

func (ls *LevelStore) GetCatalog(id uuid.UUID) (types.Catalog, bool, error) {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	data, err := ls.catalogsDB.Get(ro, id[:])
	if err != nil {
		return types.Catalog{}, false, rverr.Wrap(rverr.IOError, id.String(), err)
	}
	if data == nil {
		return types.Catalog{}, false, nil
	}
	var cat types.Catalog
	if err := gobDecode(data, &cat); err != nil {
		return types.Catalog{}, false, rverr.Wrap(rverr.ParseError, id.String(), err)
	}
	return cat, true, nil
}

func (ls *LevelStore) ListCatalogs() ([]types.Catalog, error) {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	it := ls.catalogsDB.NewIterator(ro)
	defer it.Close()

	var out []types.Catalog
	for it.SeekToFirst(); it.Valid(); it.Next() {
		var cat types.Catalog
		if err := gobDecode(it.Value(), &cat); err != nil {
			return nil, rverr.Wrap(rverr.ParseError, "", err)
		}
		out = append(out, cat)
	}
	if err := it.GetError(); err != nil {
		return nil, rverr.Wrap(rverr.IOError, "", err)
	}
	return out, nil
}

func (ls *LevelStore) DeleteCatalog(id uuid.UUID) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if _, ok, _ := ls.getCatalogLocked(id); !ok {
		return rverr.New(rverr.NotFound, "unknown catalog: "+id.String())
	}
	if err := ls.catalogsDB.Delete(wo, id[:]); err != nil {
		return rverr.Wrap(rverr.IOError, id.String(), err)
	}
	if err := ls.gamesDB.Delete(wo, id[:]); err != nil {
		return rverr.Wrap(rverr.IOError, id.String(), err)
	}
	// Fingerprint rows for this catalog are left on disk; pruning each
	// hash kind's rows would require a full scan of every sub-database,
	// disproportionate to deleting one catalog's metadata. Lookups stay
	// correct because FindByFingerprint skips rows whose catalog no
	// longer exists.
	return nil
}

func (ls *LevelStore) getCatalogLocked(id uuid.UUID) (types.Catalog, bool, error) {
	data, err := ls.catalogsDB.Get(ro, id[:])
	if err != nil {
		return types.Catalog{}, false, rverr.Wrap(rverr.IOError, id.String(), err)
	}
	if data == nil {
		return types.Catalog{}, false, nil
	}
	var cat types.Catalog
	if err := gobDecode(data, &cat); err != nil {
		return types.Catalog{}, false, rverr.Wrap(rverr.ParseError, id.String(), err)
	}
	return cat, true, nil
}

func (ls *LevelStore) FindByFingerprint(fp types.Fingerprint) ([]CatalogMatch, error) {
	kind, key := fingerprintKey(fp)
	if kind == "" {
		return nil, nil
	}

	ls.mu.RLock()
	defer ls.mu.RUnlock()

	db, filter := dbFor(ls, kind)
	if !filter.Test([]byte(key)) {
		return nil, nil
	}

	recs, err := ls.readRecords(db, key)
	if err != nil {
		return nil, err
	}
	out := make([]CatalogMatch, 0, len(recs))
	for _, r := range recs {
		if _, ok, err := ls.getCatalogLocked(r.CatalogID); err == nil && !ok {
			continue
		}
		out = append(out, CatalogMatch{CatalogID: r.CatalogID, Entry: r.Entry})
	}
	sortMatches(out, func(id uuid.UUID) bool {
		cat, ok, err := ls.getCatalogLocked(id)
		return err == nil && ok && cat.IsEnabled
	})
	return out, nil
}

func (ls *LevelStore) FindByFingerprints(fps []types.Fingerprint) ([][]CatalogMatch, error) {
	out := make([][]CatalogMatch, len(fps))
	for i, fp := range fps {
		matches, err := ls.FindByFingerprint(fp)
		if err != nil {
			return nil, err
		}
		out[i] = matches
	}
	return out, nil
}

func (ls *LevelStore) Duplicates() ([]DuplicateGroup, error) {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	var groups []DuplicateGroup
	for _, kind := range []string{"sha1", "md5", "crc32"} {
		db, _ := dbFor(ls, kind)
		it := db.NewIterator(ro)
		for it.SeekToFirst(); it.Valid(); it.Next() {
			var recs []catalogEntryRecord
			if err := gobDecode(it.Value(), &recs); err != nil {
				it.Close()
				return nil, rverr.Wrap(rverr.ParseError, "", err)
			}
			if len(recs) < 2 {
				continue
			}
			fp, _ := fingerprintForKind(kind, string(it.Key()))
			entries := make([]types.CatalogEntry, len(recs))
			for i, r := range recs {
				entries[i] = r.Entry
			}
			groups = append(groups, DuplicateGroup{Fingerprint: fp, MatchedOn: kind, Entries: entries})
		}
		err := it.GetError()
		it.Close()
		if err != nil {
			return nil, rverr.Wrap(rverr.IOError, "", err)
		}
	}
	return groups, nil
}

func (ls *LevelStore) PrintStats() string {
	return fmt.Sprintf("catalogstore at %s: sha1=%t md5=%t crc32=%t", ls.path, ls.sha1Filter != nil, ls.md5Filter != nil, ls.crc32Filter != nil)
}

func (ls *LevelStore) Close() error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	ls.saveFilter(ls.sha1Filter, "sha1")
	ls.saveFilter(ls.md5Filter, "md5")
	ls.saveFilter(ls.crc32Filter, "crc32")

	ls.catalogsDB.Close()
	ls.gamesDB.Close()
	ls.sha1DB.Close()
	ls.md5DB.Close()
	ls.crc32DB.Close()
	return nil
}
