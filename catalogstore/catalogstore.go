// Package catalogstore is the persisted, fingerprint-indexed store of
// imported DAT catalogs. Grounded on db.RomDB/db.KVStore's split
// (db/db.go, db/kv.go): one logical store backed by per-hash-kind
// sub-databases (crc/md5/sha1/crcsha1/md5sha1), generalized here to a
// smaller Store interface built around types.Catalog/GameEntry/
// CatalogEntry instead of types.Dat/Rom.
package catalogstore

import (
	"sort"

	"github.com/google/uuid"

	"github.com/romvault/romvault/rverr"
	"github.com/romvault/romvault/types"
)

// ImportBatchSize caps how many entries are written per underlying
// batch, mirroring db.MaxBatchSize's flush threshold (db/db.go)
// adapted to a per-entry count instead of a byte budget.
const ImportBatchSize = 5000

// Store is the catalog-side persistence contract: import whole
// catalogs, look games up by fingerprint, and list what is known.
type Store interface {
	ImportCatalog(cat types.Catalog, games []types.GameEntry, entries []types.CatalogEntry) error
	GetCatalog(id uuid.UUID) (types.Catalog, bool, error)
	ListCatalogs() ([]types.Catalog, error)
	DeleteCatalog(id uuid.UUID) error
	FindByFingerprint(fp types.Fingerprint) ([]CatalogMatch, error)
	FindByFingerprints(fps []types.Fingerprint) ([][]CatalogMatch, error)
	Duplicates() ([]DuplicateGroup, error)
	PrintStats() string
	Close() error
}

// CatalogMatch is one fingerprint hit, paired with the catalog it came
// from: CatalogEntry itself carries no back-reference to its owning
// Catalog, so a lookup that needs to report matched_catalog_id (the
// verification step does) has to carry the two together.
type CatalogMatch struct {
	CatalogID uuid.UUID
	Entry     types.CatalogEntry
}

// DuplicateGroup is every CatalogEntry sharing one fingerprint tier.
type DuplicateGroup struct {
	Fingerprint types.Fingerprint
	MatchedOn   string
	Entries     []types.CatalogEntry
}

// fingerprintKey picks the most specific available hash to index by,
// following Fingerprint.Matches' own sha1 > md5 > crc32 priority.
// Entries are indexed only under this one key, and FindByFingerprint
// looks up only the query's own most specific hash: an entry that lacks
// that hash kind (e.g. a CRC32-only entry queried with a fingerprint
// that also carries a SHA-1) is not found.
func fingerprintKey(fp types.Fingerprint) (kind, key string) {
	switch {
	case fp.Sha1 != "":
		return "sha1", fp.Sha1
	case fp.Md5 != "":
		return "md5", fp.Md5
	case fp.Crc32 != "":
		return "crc32", fp.Crc32
	default:
		return "", ""
	}
}

// sortMatches orders matches with enabled-catalog hits first, stable so
// ties keep their original (import insertion) order, per
// find_entries_by_fingerprint's ranking rule.
func sortMatches(matches []CatalogMatch, enabled func(uuid.UUID) bool) {
	sort.SliceStable(matches, func(i, j int) bool {
		return enabled(matches[i].CatalogID) && !enabled(matches[j].CatalogID)
	})
}

func validateImport(cat types.Catalog, entries []types.CatalogEntry) error {
	if cat.ID == uuid.Nil {
		return rverr.New(rverr.Internal, "catalog import requires a non-nil id")
	}
	for i, e := range entries {
		if err := e.Validate(); err != nil {
			return rverr.Wrap(rverr.ParseError, cat.Filename, err)
		}
		_ = i
	}
	return nil
}

// chunks splits entries into ImportBatchSize-sized slices for callers
// that flush a batch at a time (the level-backed Store; the in-memory
// one just takes them all at once).
func chunks(entries []types.CatalogEntry, size int) [][]types.CatalogEntry {
	if size <= 0 {
		size = ImportBatchSize
	}
	var out [][]types.CatalogEntry
	for len(entries) > 0 {
		n := size
		if n > len(entries) {
			n = len(entries)
		}
		out = append(out, entries[:n])
		entries = entries[n:]
	}
	return out
}
