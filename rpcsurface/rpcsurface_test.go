package rpcsurface

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/romvault/romvault/catalogstore"
	"github.com/romvault/romvault/hashqueue"
	"github.com/romvault/romvault/organizer"
	"github.com/romvault/romvault/scanner"
)

func newTestService() *Service {
	store := catalogstore.NewMemStore()
	pool := hashqueue.New(1, nil, nil)
	sc := scanner.New(pool)
	journal := organizer.NewMemJournal()
	return NewService(store, pool, sc, nil, journal)
}

const sampleDat = `clrmamepro (
	name "Test Set"
	description "Test Set"
	version 20260101
)

game (
	name "Super Mario Bros. (USA)"
	description "Super Mario Bros. (USA)"
	rom ( name "mario.nes" size 40976 crc 3337ec46 md5 811b027eaf99c2def7b933c5208636de sha1 ea343f4e445a9050d4b4fbac2c77d0693b1d0922 )
)
`

func TestImportDatThenLookup(t *testing.T) {
	svc := newTestService()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.dat")
	if err := os.WriteFile(path, []byte(sampleDat), 0644); err != nil {
		t.Fatal(err)
	}

	var importReply ImportDatReply
	if err := svc.ImportDat(nil, &ImportDatArgs{Path: path}, &importReply); err != nil {
		t.Fatal(err)
	}
	if importReply.GameCount != 1 || importReply.RomCount != 1 {
		t.Fatalf("unexpected import reply: %+v", importReply)
	}

	var listReply ListCatalogsReply
	if err := svc.ListCatalogs(nil, &ListCatalogsArgs{}, &listReply); err != nil {
		t.Fatal(err)
	}
	if len(listReply.Catalogs) != 1 {
		t.Fatalf("expected 1 catalog, got %d", len(listReply.Catalogs))
	}
}

func TestStatusReportsIdleWithNoJobRunning(t *testing.T) {
	svc := newTestService()

	var reply StatusReply
	if err := svc.Status(nil, &StatusArgs{}, &reply); err != nil {
		t.Fatal(err)
	}
	if reply.Busy {
		t.Fatal("expected Busy=false with no job started")
	}
}

func TestStopScanWithNoneRunningReportsNotStopped(t *testing.T) {
	svc := newTestService()
	scanMu.Lock()
	scanCancel = nil
	scanMu.Unlock()

	var reply StopScanReply
	if err := svc.StopScan(nil, &StopScanArgs{}, &reply); err != nil {
		t.Fatal(err)
	}
	if reply.Stopped {
		t.Fatal("expected Stopped=false when no scan is in flight")
	}
}
