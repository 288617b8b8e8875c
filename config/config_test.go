package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleINI = `
[general]
cores = 8
verbosity = 2

[scan]
parallelio = 6

[hashpool]
workers = 3

[catalogstore]
dbpath = catalog.db

[server]
port = 9090
`

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "romvault.ini")
	if err := os.WriteFile(path, []byte(sampleINI), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.General.Cores != 8 {
		t.Errorf("Cores = %d, want 8", cfg.General.Cores)
	}
	if cfg.Scan.ParallelIO != 6 {
		t.Errorf("Scan.ParallelIO = %d, want 6", cfg.Scan.ParallelIO)
	}
	if cfg.HashPool.Workers != 3 {
		t.Errorf("HashPool.Workers = %d, want 3", cfg.HashPool.Workers)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if !filepath.IsAbs(cfg.CatalogStore.DbPath) {
		t.Errorf("CatalogStore.DbPath should be resolved absolute, got %q", cfg.CatalogStore.DbPath)
	}
	// Untouched default survives the merge.
	if cfg.Organize.Workers != 1 {
		t.Errorf("Organize.Workers = %d, want default 1", cfg.Organize.Workers)
	}
}

func TestDefaultMatchesConcurrencyDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Scan.ParallelIO != 4 {
		t.Errorf("default Scan.ParallelIO = %d, want 4", cfg.Scan.ParallelIO)
	}
	if cfg.HashPool.Workers != 2 {
		t.Errorf("default HashPool.Workers = %d, want 2", cfg.HashPool.Workers)
	}
	if cfg.Organize.Workers != 1 {
		t.Errorf("default Organize.Workers = %d, want 1", cfg.Organize.Workers)
	}
}
