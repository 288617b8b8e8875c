package hashcache

import (
	"testing"
	"time"

	"github.com/romvault/romvault/types"
)

func TestPutGetRoundTrip(t *testing.T) {
	c, err := New(1000)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	mt := time.Now()
	fp, _ := types.NewFingerprint("deadbeef", "", "")
	c.Put("/roms/a.nes", Record{Fingerprint: fp, ModTime: mt, Size: 16})

	rec, ok := c.Get("/roms/a.nes", mt, 16)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if !rec.Fingerprint.Equal(fp) {
		t.Fatalf("unexpected fingerprint: %+v", rec.Fingerprint)
	}
}

func TestGetRevalidationMismatchEvicts(t *testing.T) {
	c, err := New(1000)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	mt := time.Now()
	fp, _ := types.NewFingerprint("deadbeef", "", "")
	c.Put("/roms/a.nes", Record{Fingerprint: fp, ModTime: mt, Size: 16})

	if _, ok := c.Get("/roms/a.nes", mt.Add(time.Second), 16); ok {
		t.Fatal("expected cache miss on mtime mismatch")
	}
	if _, ok := c.Get("/roms/a.nes", mt, 16); ok {
		t.Fatal("expected entry evicted after revalidation failure")
	}
}

func TestGetMiss(t *testing.T) {
	c, err := New(1000)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if _, ok := c.Get("/nope", time.Now(), 0); ok {
		t.Fatal("expected miss for unknown path")
	}
}
