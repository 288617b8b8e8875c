package header

import (
	"bytes"
	"testing"
)

func TestDetectNESMagic(t *testing.T) {
	data := append([]byte{0x4E, 0x45, 0x53, 0x1A}, make([]byte, 100)...)
	r := bytes.NewReader(data)
	info, err := Detect(r, ".nes", int64(len(data)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info == nil || info.HeaderSizeBytes != 16 || !info.IsStandard {
		t.Fatalf("expected standard 16-byte iNES header, got %+v", info)
	}
}

func TestDetectSMCCopierHeuristic(t *testing.T) {
	size := int64(512 + 1024*4)
	r := bytes.NewReader(make([]byte, 200))
	info, err := Detect(r, ".smc", size)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info == nil || info.HeaderSizeBytes != 512 {
		t.Fatalf("expected 512-byte copier header, got %+v", info)
	}
}

func TestDetectNoHeader(t *testing.T) {
	r := bytes.NewReader(make([]byte, 300))
	info, err := Detect(r, ".smc", 300)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info != nil {
		t.Fatalf("expected no header, got %+v", info)
	}
}

func TestDetectPreservesStreamPosition(t *testing.T) {
	data := append([]byte{0x4E, 0x45, 0x53, 0x1A}, make([]byte, 100)...)
	r := bytes.NewReader(data)
	if _, err := r.Seek(42, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := Detect(r, ".nes", int64(len(data))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pos, _ := r.Seek(0, 1)
	if pos != 42 {
		t.Fatalf("expected stream position restored to 42, got %d", pos)
	}
}

func TestStandardHeaderSize(t *testing.T) {
	if StandardHeaderSize(".nes") != 16 {
		t.Fatalf("expected .nes standard size 16")
	}
	if StandardHeaderSize(".unknown") != 0 {
		t.Fatalf("expected unknown extension size 0")
	}
}
