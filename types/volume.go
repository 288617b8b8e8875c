package types

import (
	"time"

	"github.com/google/uuid"
)

// VolumeKind classifies the storage medium backing a Volume.
type VolumeKind string

const (
	VolumeFixed     VolumeKind = "fixed"
	VolumeRemovable VolumeKind = "removable"
	VolumeNetwork   VolumeKind = "network"
	VolumeOptical   VolumeKind = "optical"
	VolumeUnknown   VolumeKind = "unknown"
)

// Volume is a registered storage root, grounded on archive.Depot's
// multi-root size accounting: every Volume tracks its own size budget
// rather than sharing one global root.
type Volume struct {
	ID          uuid.UUID
	Label       string
	RootPath    string
	Kind        VolumeKind
	IsOnline    bool
	LastSeenAt  time.Time
	TotalSize   uint64
	FreeSpace   uint64
	AutoScan    bool
}

// MarkOnline flips the volume online and stamps LastSeenAt; it never
// deletes the record.
func (v *Volume) MarkOnline(at time.Time) {
	v.IsOnline = true
	v.LastSeenAt = at
}

// MarkOffline flips the volume offline without discarding any ROM
// records that reference it.
func (v *Volume) MarkOffline(at time.Time) {
	v.IsOnline = false
	v.LastSeenAt = at
}

// VerificationStatus is the outcome of matching a StoredRomFile's
// fingerprint against the catalog store.
type VerificationStatus string

const (
	VerificationUnknown      VerificationStatus = "unknown"
	VerificationVerified     VerificationStatus = "verified"
	VerificationUnverified   VerificationStatus = "unverified"
	VerificationNotInCatalog VerificationStatus = "notInCatalog"
	VerificationBadDump      VerificationStatus = "badDump"
)

// VerificationSource records which signal decided a StoredRomFile's
// VerificationStatus: the catalog match, the filename's own dump-quality
// markers, or both in agreement.
type VerificationSource string

const (
	SourceNone     VerificationSource = ""
	SourceCombined VerificationSource = "combined"
	SourceDatFile  VerificationSource = "dat_file"
	SourceFilename VerificationSource = "filename"
)

// StoredRomFile is one file (or archive member) discovered on a Volume.
type StoredRomFile struct {
	ID                 uuid.UUID
	VolumeID           uuid.UUID
	RelativePath       string
	Filename           string
	Size               uint64
	Fingerprint        *Fingerprint
	ScannedAt          time.Time
	HashedAt           *time.Time
	LastModified       time.Time
	IsArchived         bool
	ArchivePath        string
	PathInArchive      string
	VerificationStatus VerificationStatus
	VerificationSource VerificationSource
	MatchedCatalogID   *uuid.UUID
	MatchedEntryID     string
}

// Validate enforces is_archived ⇒ archive_path ≠ ∅ ∧ path_in_archive ≠ ∅.
func (f *StoredRomFile) Validate() error {
	if f.IsArchived && (f.ArchivePath == "" || f.PathInArchive == "") {
		return &ValidationError{Field: "archive_path/path_in_archive", Value: f.Filename}
	}
	return nil
}
