package catalogstore

import (
	"sort"

	"github.com/romvault/romvault/types"
)

// FileDuplicateGroup is every StoredRomFile on disk sharing one full
// fingerprint — the on-disk counterpart to DuplicateGroup, which groups
// imported catalog entries instead of scanned files.
type FileDuplicateGroup struct {
	Fingerprint types.Fingerprint
	Files       []types.StoredRomFile
	WastedBytes uint64
}

// FindDuplicateFiles groups files by full fingerprint (crc32, md5 and
// sha1 all equal, where an absent component only equals another absent
// one; files with no hash at all are skipped); groups smaller than two
// members aren't
// duplicates. wasted_bytes is the group's total size minus its largest
// member's size, since exactly one copy is worth keeping. Results are
// ordered descending by wasted_bytes, ties broken by descending group
// size.
func FindDuplicateFiles(files []types.StoredRomFile) []FileDuplicateGroup {
	byKey := make(map[string][]types.StoredRomFile)
	var order []string

	for _, f := range files {
		if f.Fingerprint == nil || f.Fingerprint.IsEmpty() {
			continue
		}
		key := f.Fingerprint.Crc32 + "|" + f.Fingerprint.Md5 + "|" + f.Fingerprint.Sha1
		if _, ok := byKey[key]; !ok {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], f)
	}

	var groups []FileDuplicateGroup
	for _, key := range order {
		members := byKey[key]
		if len(members) < 2 {
			continue
		}
		var total, largest uint64
		for _, m := range members {
			total += m.Size
			if m.Size > largest {
				largest = m.Size
			}
		}
		groups = append(groups, FileDuplicateGroup{
			Fingerprint: *members[0].Fingerprint,
			Files:       members,
			WastedBytes: total - largest,
		})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].WastedBytes != groups[j].WastedBytes {
			return groups[i].WastedBytes > groups[j].WastedBytes
		}
		return len(groups[i].Files) > len(groups[j].Files)
	})
	return groups
}
