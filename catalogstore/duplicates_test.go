package catalogstore

import (
	"testing"

	"github.com/romvault/romvault/types"
)

func TestFindDuplicateFilesWastedBytes(t *testing.T) {
	fp := mustFP(t, "dddddddddddddddddddddddddddddddddddddddd")
	files := []types.StoredRomFile{
		{RelativePath: "/a/rom.nes", Size: 1048576, Fingerprint: &fp},
		{RelativePath: "/b/rom.nes", Size: 1048576, Fingerprint: &fp},
	}

	groups := FindDuplicateFiles(files)
	if len(groups) != 1 {
		t.Fatalf("expected one duplicate group, got %d", len(groups))
	}
	if groups[0].WastedBytes != 1048576 {
		t.Fatalf("expected wasted_bytes=1048576, got %d", groups[0].WastedBytes)
	}
	if len(groups[0].Files) != 2 {
		t.Fatalf("expected 2 members, got %d", len(groups[0].Files))
	}
}

func TestFindDuplicateFilesIgnoresUniqueFiles(t *testing.T) {
	fp1 := mustFP(t, "111111111111111111111111111111111111111a")
	fp2 := mustFP(t, "222222222222222222222222222222222222222b")
	files := []types.StoredRomFile{
		{RelativePath: "/a/one.nes", Size: 100, Fingerprint: &fp1},
		{RelativePath: "/b/two.nes", Size: 200, Fingerprint: &fp2},
	}
	if groups := FindDuplicateFiles(files); len(groups) != 0 {
		t.Fatalf("expected no duplicate groups, got %+v", groups)
	}
}

func TestFindDuplicateFilesOrdersByWastedBytesDescending(t *testing.T) {
	small := mustFP(t, "333333333333333333333333333333333333333c")
	big := mustFP(t, "444444444444444444444444444444444444444d")
	files := []types.StoredRomFile{
		{RelativePath: "/a/small1", Size: 10, Fingerprint: &small},
		{RelativePath: "/a/small2", Size: 10, Fingerprint: &small},
		{RelativePath: "/a/big1", Size: 1000, Fingerprint: &big},
		{RelativePath: "/a/big2", Size: 1000, Fingerprint: &big},
	}
	groups := FindDuplicateFiles(files)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].WastedBytes != 1000 || groups[1].WastedBytes != 10 {
		t.Fatalf("expected descending wasted bytes, got %+v", groups)
	}
}
