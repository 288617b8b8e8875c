package archivefmt

import "testing"

func TestDetectFormat(t *testing.T) {
	cases := map[string]Format{
		"game.zip":  FormatZip,
		"game.7z":   FormatSevenZip,
		"game.tar":  FormatTar,
		"game.gz":   FormatGZ,
		"game.bz2":  FormatBZ2,
		"game.xz":   FormatXZ,
		"game.lz":   FormatLZ,
		"game.rar":  FormatRAR,
		"game.nes":  "",
		"game":      "",
	}
	for name, want := range cases {
		if got := DetectFormat(name); got != want {
			t.Errorf("DetectFormat(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestIsArchive(t *testing.T) {
	if !IsArchive("foo.zip") {
		t.Fatal("expected foo.zip to be an archive")
	}
	if IsArchive("foo.nes") {
		t.Fatal("expected foo.nes to not be an archive")
	}
}

func TestRARUnsupported(t *testing.T) {
	_, err := Entries("foo.rar")
	if err == nil {
		t.Fatal("expected unsupported_format error for .rar")
	}
}
