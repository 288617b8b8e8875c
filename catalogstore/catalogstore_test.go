package catalogstore

import (
	"testing"

	"github.com/google/uuid"

	"github.com/romvault/romvault/types"
)

func mustFP(t *testing.T, sha1 string) types.Fingerprint {
	t.Helper()
	fp, err := types.NewFingerprint("", "", sha1)
	if err != nil {
		t.Fatal(err)
	}
	return fp
}

func TestImportAndFindByFingerprint(t *testing.T) {
	s := NewMemStore()
	catID := uuid.New()
	fp := mustFP(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	cat := types.Catalog{ID: catID, Filename: "test.dat"}
	games := []types.GameEntry{{StableID: "g1", Name: "Game One", CatalogID: catID}}
	entries := []types.CatalogEntry{{StableID: "r1", Name: "rom.nes", Fingerprint: fp, ParentGameID: "g1"}}

	if err := s.ImportCatalog(cat, games, entries); err != nil {
		t.Fatal(err)
	}

	found, err := s.FindByFingerprint(fp)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 || found[0].Entry.Name != "rom.nes" || found[0].CatalogID != catID {
		t.Fatalf("unexpected result: %+v", found)
	}
}

func TestImportRejectsEmptyFingerprint(t *testing.T) {
	s := NewMemStore()
	cat := types.Catalog{ID: uuid.New(), Filename: "bad.dat"}
	entries := []types.CatalogEntry{{StableID: "r1", Name: "rom.nes"}}

	if err := s.ImportCatalog(cat, nil, entries); err == nil {
		t.Fatal("expected error for entry with no hashes")
	}
}

func TestDuplicatesGroupsSharedFingerprint(t *testing.T) {
	s := NewMemStore()
	fp := mustFP(t, "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	cat1 := types.Catalog{ID: uuid.New(), Filename: "a.dat"}
	cat2 := types.Catalog{ID: uuid.New(), Filename: "b.dat"}

	e := types.CatalogEntry{StableID: "r1", Name: "rom.nes", Fingerprint: fp}
	if err := s.ImportCatalog(cat1, nil, []types.CatalogEntry{e}); err != nil {
		t.Fatal(err)
	}
	if err := s.ImportCatalog(cat2, nil, []types.CatalogEntry{e}); err != nil {
		t.Fatal(err)
	}

	groups, err := s.Duplicates()
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 || len(groups[0].Entries) != 2 {
		t.Fatalf("expected one duplicate group of 2, got %+v", groups)
	}
}

func TestDeleteCatalogRemovesItsEntries(t *testing.T) {
	s := NewMemStore()
	fp := mustFP(t, "cccccccccccccccccccccccccccccccccccccccc")
	cat := types.Catalog{ID: uuid.New(), Filename: "a.dat"}
	e := types.CatalogEntry{StableID: "r1", Name: "rom.nes", Fingerprint: fp}

	if err := s.ImportCatalog(cat, nil, []types.CatalogEntry{e}); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteCatalog(cat.ID); err != nil {
		t.Fatal(err)
	}

	found, err := s.FindByFingerprint(fp)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 0 {
		t.Fatalf("expected no entries after delete, got %+v", found)
	}

	if err := s.DeleteCatalog(cat.ID); err == nil {
		t.Fatal("expected not_found deleting an already-deleted catalog")
	}
}

func TestIsLikelyBadDump(t *testing.T) {
	cases := map[string]bool{
		"Super Mario Bros [b].nes": true,
		"Castlevania [b1].nes":     true,
		"Super Mario Bros.nes":     false,
		"Contra (bad).nes":         false,
		"Zelda [!].nes":            false,
	}
	for name, want := range cases {
		if got := IsLikelyBadDump(name); got != want {
			t.Errorf("IsLikelyBadDump(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestMarkerPrecedenceBadDumpWinsOverVerified(t *testing.T) {
	markers := ExtractMarkers("Contra (Japan) [!][b1].nes")
	if !markers[MarkerBadDump] {
		t.Fatal("expected baddump marker")
	}
	if markers[MarkerVerified] {
		t.Fatal("expected verified marker dropped when baddump co-occurs")
	}
}

func TestVerifyPrefersBadDumpOverOtherMatches(t *testing.T) {
	good := CatalogMatch{CatalogID: uuid.New(), Entry: types.CatalogEntry{StableID: "good", Status: types.StatusGood}}
	bad := CatalogMatch{CatalogID: uuid.New(), Entry: types.CatalogEntry{StableID: "bad", Status: types.StatusBadDump}}

	status, entryID, catID, source := Verify([]CatalogMatch{good, bad}, "Contra.nes")
	if status != types.VerificationBadDump || entryID != "bad" || catID == nil || *catID != bad.CatalogID {
		t.Fatalf("unexpected verify result: status=%v entryID=%v catID=%v", status, entryID, catID)
	}
	if source != types.SourceDatFile {
		t.Fatalf("expected dat_file source, got %v", source)
	}
}

func TestVerifyNotInCatalog(t *testing.T) {
	status, _, catID, source := Verify(nil, "Contra.nes")
	if status != types.VerificationNotInCatalog || catID != nil || source != types.SourceNone {
		t.Fatalf("unexpected verify result: %v %v %v", status, catID, source)
	}
}
