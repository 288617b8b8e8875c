package hashing

import (
	"bytes"
	"testing"
)

func TestHashKnownVector(t *testing.T) {
	// "abc" has well-known reference digests.
	data := []byte("abc")
	src := &Source{R: bytes.NewReader(data), Total: int64(len(data))}
	fp, n, err := Hash(src, Options{Total: int64(len(data))})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != int64(len(data)) {
		t.Fatalf("expected %d bytes processed, got %d", len(data), n)
	}
	if fp.Sha1 != "a9993e364706816aba3e25717850c26c9cd0d89d" {
		t.Fatalf("unexpected sha1: %s", fp.Sha1)
	}
	if fp.Md5 != "900150983cd24fb0d6963f7d28e17f72" {
		t.Fatalf("unexpected md5: %s", fp.Md5)
	}
	if fp.Crc32 != "352441c2" {
		t.Fatalf("unexpected crc32: %s", fp.Crc32)
	}
}

func TestHashDeterministic(t *testing.T) {
	data := bytes.Repeat([]byte{0x5a}, 5*ChunkSize+17)
	fp1, _, err := Hash(&Source{R: bytes.NewReader(data)}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	fp2, _, err := Hash(&Source{R: bytes.NewReader(data)}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !fp1.Equal(fp2) {
		t.Fatalf("expected identical fingerprints across two passes")
	}
}

func TestSkipBytesNonSeekable(t *testing.T) {
	data := []byte("HEADERabc")
	src := &Source{R: bytes.NewReader(data)}
	fp, n, err := Hash(src, Options{SkipBytes: 6})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 bytes hashed after skip, got %d", n)
	}
	if fp.Sha1 != "a9993e364706816aba3e25717850c26c9cd0d89d" {
		t.Fatalf("expected hash of 'abc' after skipping header, got %s", fp.Sha1)
	}
}

func TestSkipBytesShortInput(t *testing.T) {
	src := &Source{R: bytes.NewReader([]byte("short"))}
	_, _, err := Hash(src, Options{SkipBytes: 100})
	if err == nil {
		t.Fatalf("expected short_input error")
	}
}
