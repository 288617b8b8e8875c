// Package config loads romvault's INI configuration file with
// scalingdata/gcfg into a plain nested struct, one section per
// subsystem: scan, hash pool, catalog store, memory pressure,
// organize, and server.
package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"github.com/scalingdata/gcfg"
)

// Config is the top-level INI document, one struct field per [section].
type Config struct {
	General struct {
		LogDir    string
		TmpDir    string
		Cores     int
		Verbosity int
	}

	Scan struct {
		ParallelIO         int
		ScanArchives       bool
		CheckpointPath     string
		CheckpointInterval int // seconds
	}

	HashPool struct {
		Workers int
	}

	CatalogStore struct {
		DbPath     string
		DatsDir    string
		Persistent bool
	}

	MemoryPressure struct {
		SampleIntervalMs int
		ElevatedPct      int
		HighPct          int
		CriticalPct      int
	}

	Organize struct {
		Workers            int
		DeleteEmptyFolders bool
		JournalDir         string
	}

	Server struct {
		Host   string
		Port   int
		WebDir string
	}
}

// Default seeds the stated concurrency defaults (scan parallel I/O = 4,
// hash pool = 2 workers, organization execution = 1 worker) and the
// memory-pressure percentage bands, so an INI file only needs to
// override what it wants to change.
func Default() *Config {
	cfg := new(Config)
	cfg.General.Cores = 4
	cfg.General.Verbosity = 1
	cfg.General.LogDir = "log"
	cfg.General.TmpDir = "tmp"

	cfg.Scan.ParallelIO = 4
	cfg.Scan.ScanArchives = true
	cfg.Scan.CheckpointInterval = 30

	cfg.HashPool.Workers = 2

	cfg.CatalogStore.Persistent = true

	cfg.MemoryPressure.SampleIntervalMs = 2000
	cfg.MemoryPressure.ElevatedPct = 70
	cfg.MemoryPressure.HighPct = 85
	cfg.MemoryPressure.CriticalPct = 95

	cfg.Organize.Workers = 1

	cfg.Server.Host = "localhost"
	cfg.Server.Port = 8080

	return cfg
}

// Load reads path into a Default()-seeded Config, then resolves every
// directory field to an absolute path.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := gcfg.ReadFileInto(cfg, path); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	for _, field := range []*string{
		&cfg.General.LogDir,
		&cfg.General.TmpDir,
		&cfg.CatalogStore.DbPath,
		&cfg.CatalogStore.DatsDir,
		&cfg.Organize.JournalDir,
		&cfg.Server.WebDir,
	} {
		if *field == "" {
			continue
		}
		abs, err := filepath.Abs(*field)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", *field, err)
		}
		*field = abs
	}

	return cfg, nil
}

// FindDefault looks for romvault.ini in the working directory, then
// ~/.romvault/romvault.ini.
func FindDefault() (string, error) {
	const filename = "romvault.ini"

	if _, err := os.Stat(filename); err == nil {
		return filename, nil
	}

	u, err := user.Current()
	if err != nil {
		return "", err
	}
	home := filepath.Join(u.HomeDir, ".romvault", filename)
	if _, err := os.Stat(home); err == nil {
		return home, nil
	}
	return "", fmt.Errorf("couldn't find %s in working directory or %s", filename, filepath.Dir(home))
}
