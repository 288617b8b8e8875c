package datparser

import (
	"os"
	"path/filepath"
	"testing"
)

const cmpSample = `clrmamepro (
	name "Test System"
	description "Test System Description"
	version 20260101
)

game (
	name "Super Game"
	description "Super Game (USA)"
	year 1991
	publisher "Example Co"
	rom ( name "Super Game.nes" size 131072 crc 12345678 md5 00000000000000000000000000000000 sha1 1111111111111111111111111111111111111111 )
)

game (
	name "Super Game (Japan)"
	cloneof "Super Game"
	romof "Super Game"
	rom ( name "Super Game (Japan).nes" size 131072 crc 87654321 sha1 2222222222222222222222222222222222222222 flags baddump )
)
`

const xmlSample = `<?xml version="1.0"?>
<!DOCTYPE datafile PUBLIC "-//Logiqx//DTD ROM Management Datafile//EN" "http://www.logiqx.com/Dats/datafile.dtd">
<datafile>
	<header>
		<name>Test System</name>
		<description>Test System Description</description>
		<version>20260101</version>
	</header>
	<game name="Super Game">
		<description>Super Game (USA)</description>
		<year>1991</year>
		<manufacturer>Example Co</manufacturer>
		<rom name="Super Game.nes" size="131072" crc="12345678" md5="00000000000000000000000000000000" sha1="1111111111111111111111111111111111111111"/>
	</game>
	<game name="Super Game (Japan)" cloneof="Super Game" romof="Super Game">
		<rom name="Super Game (Japan).nes" size="131072" crc="87654321" sha1="2222222222222222222222222222222222222222" status="baddump"/>
	</game>
</datafile>
`

func writeSample(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseCMP(t *testing.T) {
	path := writeSample(t, "test.dat", cmpSample)
	res, err := Parse(path)
	if err != nil {
		t.Fatal(err)
	}
	if res.Catalog.DisplayName != "Test System" {
		t.Errorf("DisplayName = %q", res.Catalog.DisplayName)
	}
	if len(res.Games) != 2 {
		t.Fatalf("expected 2 games, got %d", len(res.Games))
	}
	if res.Games[1].CloneOf != "Super Game" {
		t.Errorf("clone parent = %q, want %q", res.Games[1].CloneOf, "Super Game")
	}
	if len(res.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(res.Entries))
	}
	if res.Entries[0].Fingerprint.Crc32 != "12345678" {
		t.Errorf("crc32 = %q", res.Entries[0].Fingerprint.Crc32)
	}
}

func TestParseCMPBadDumpFlag(t *testing.T) {
	path := writeSample(t, "test.dat", cmpSample)
	res, err := Parse(path)
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, e := range res.Entries {
		if e.Name == "Super Game (Japan).nes" {
			found = true
			if string(e.Status) != "baddump" {
				t.Errorf("status = %v, want baddump", e.Status)
			}
		}
	}
	if !found {
		t.Fatal("expected entry not found")
	}
}

func TestParseXML(t *testing.T) {
	path := writeSample(t, "test.xml", xmlSample)
	res, err := Parse(path)
	if err != nil {
		t.Fatal(err)
	}
	if res.Catalog.DisplayName != "Test System" {
		t.Errorf("DisplayName = %q", res.Catalog.DisplayName)
	}
	if len(res.Games) != 2 {
		t.Fatalf("expected 2 games, got %d", len(res.Games))
	}
	if res.Games[1].RomOf != "Super Game" {
		t.Errorf("romof = %q", res.Games[1].RomOf)
	}
}

func TestParseCMPMalformedReturnsParseError(t *testing.T) {
	path := writeSample(t, "bad.dat", "game (\n name \"missing close brace\"\n")
	_, err := Parse(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if ErrorFilePath(err) != path {
		t.Errorf("ErrorFilePath(err) = %q, want %q", ErrorFilePath(err), path)
	}
}

func TestIsXMLSniffsLeadingWhitespace(t *testing.T) {
	path := writeSample(t, "test.xml", "\n\n  "+xmlSample)
	res, err := Parse(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Games) != 2 {
		t.Fatalf("expected 2 games, got %d", len(res.Games))
	}
}

func TestDeterministicCatalogID(t *testing.T) {
	path1 := writeSample(t, "a.dat", cmpSample)
	path2 := writeSample(t, "b.dat", cmpSample)

	r1, err := Parse(path1)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := Parse(path2)
	if err != nil {
		t.Fatal(err)
	}
	if r1.Catalog.ID != r2.Catalog.ID {
		t.Errorf("expected identical catalog ids for identical content, got %v vs %v", r1.Catalog.ID, r2.Catalog.ID)
	}
}
