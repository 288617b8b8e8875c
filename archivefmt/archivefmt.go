// Package archivefmt opens archive members as byte sources for the
// hashing and scan engines. ZIP uses a native reader; every other
// supported format goes through a generic streaming adapter. Grounded
// on archive.archiveZip/archiveGzip/archive7Zip (archive/archive.go),
// which dispatch by extension and hand each member to a readerOpener
// callback, the same shape as Adapter.Entries below.
package archivefmt

import (
	"archive/tar"
	"compress/bzip2"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
	"github.com/uwedeportivo/sevenzip"
	"github.com/uwedeportivo/torrentzip/czip"

	"github.com/romvault/romvault/rverr"
)

// Entry is one member inside an archive, bounded by the archive handle's
// lifetime: callers must fully read and Close it before asking for the
// next entry.
type Entry struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// Format identifies a supported archive container.
type Format string

const (
	FormatZip Format = "zip"
	FormatSevenZip Format = "7z"
	FormatTar Format = "tar"
	FormatGZ  Format = "gz"
	FormatBZ2 Format = "bz2"
	FormatXZ  Format = "xz"
	FormatLZ  Format = "lz"
	FormatRAR Format = "rar"
)

var extToFormat = map[string]Format{
	".zip": FormatZip,
	".7z":  FormatSevenZip,
	".tar": FormatTar,
	".gz":  FormatGZ,
	".tgz": FormatGZ,
	".bz2": FormatBZ2,
	".xz":  FormatXZ,
	".lz":  FormatLZ,
	".rar": FormatRAR,
}

// DetectFormat maps a file extension to a Format, or "" if unsupported.
func DetectFormat(path string) Format {
	return extToFormat[strings.ToLower(filepath.Ext(path))]
}

// IsArchive reports whether path has a recognized archive extension.
func IsArchive(path string) bool {
	return DetectFormat(path) != ""
}

// Entries lists the members of path, dispatching on its extension. The
// returned slice's Open funcs remain valid only as long as the archive
// handle backing them is open; Entries itself closes nothing, so callers
// own the lifetime of whatever Open() returns and must Close each Entry
// before opening the next (single-pass adapters such as tar/gz/bz2/xz
// cannot be read out of order).
func Entries(path string) ([]Entry, error) {
	switch DetectFormat(path) {
	case FormatZip:
		return zipEntries(path)
	case FormatSevenZip:
		return sevenZipEntries(path)
	case FormatTar:
		return tarEntries(path, func(p string) (io.ReadCloser, error) { return os.Open(p) })
	case FormatGZ:
		return gzEntries(path)
	case FormatBZ2:
		return bz2Entries(path)
	case FormatXZ, FormatLZ:
		return xzEntries(path)
	case FormatRAR:
		// No RAR-capable Go library is available; rather than
		// fabricate a dependency, this is a documented, flagged gap
		// (DESIGN.md Open Questions).
		return nil, rverr.Wrap(rverr.UnsupportedFormat, path, errUnsupportedRAR)
	default:
		return nil, rverr.Wrap(rverr.UnsupportedFormat, path, errUnsupportedExt)
	}
}

var (
	errUnsupportedRAR = unsupported("rar")
	errUnsupportedExt = unsupported("extension")
)

type unsupportedErr string

func (e unsupportedErr) Error() string { return "unsupported archive format: " + string(e) }

func unsupported(s string) error { return unsupportedErr(s) }

func zipEntries(path string) ([]Entry, error) {
	zr, err := czip.OpenReader(path)
	if err != nil {
		return nil, rverr.Wrap(rverr.IOError, path, err)
	}
	entries := make([]Entry, 0, len(zr.File))
	for _, f := range zr.File {
		f := f
		entries = append(entries, Entry{
			Name: f.Name,
			Size: int64(f.FileHeader.UncompressedSize64),
			Open: func() (io.ReadCloser, error) { return f.Open() },
		})
	}
	// zr is intentionally never closed here: each Entry.Open lazily
	// reopens a member stream from the central directory already
	// parsed into zr.File, matching czip's read-many-members design.
	return entries, nil
}

func sevenZipEntries(path string) ([]Entry, error) {
	zr, err := sevenzip.Open(path)
	if err != nil {
		return nil, rverr.Wrap(rverr.IOError, path, err)
	}
	entries := make([]Entry, 0, len(zr.File))
	for _, f := range zr.File {
		f := f
		entries = append(entries, Entry{
			Name: f.Name,
			Size: int64(f.FileHeader.Size),
			Open: func() (io.ReadCloser, error) {
				rc, err := f.OpenUnsafe()
				if err != nil {
					return nil, err
				}
				return io.NopCloser(rc), nil
			},
		})
	}
	return entries, nil
}

func tarEntries(path string, open func(string) (io.ReadCloser, error)) ([]Entry, error) {
	f, err := open(path)
	if err != nil {
		return nil, rverr.Wrap(rverr.IOError, path, err)
	}
	defer f.Close()

	tr := tar.NewReader(f)
	var entries []Entry
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, rverr.Wrap(rverr.IOError, path, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name := hdr.Name
		size := hdr.Size
		entries = append(entries, Entry{
			Name: name,
			Size: size,
			// tar has no random access, so re-opening seeks forward
			// from a fresh reader to the matching header each time.
			// Bounded by one archive handle at a time.
			Open: func() (io.ReadCloser, error) { return openTarMember(path, name) },
		})
	}
	return entries, nil
}

func openTarMember(path, name string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	tr := tar.NewReader(f)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			f.Close()
			return nil, rverr.New(rverr.NotFound, "tar member not found: "+name)
		}
		if err != nil {
			f.Close()
			return nil, err
		}
		if hdr.Name == name {
			return &tarMemberReader{tr: tr, f: f}, nil
		}
	}
}

type tarMemberReader struct {
	tr *tar.Reader
	f  *os.File
}

func (t *tarMemberReader) Read(p []byte) (int, error) { return t.tr.Read(p) }
func (t *tarMemberReader) Close() error                { return t.f.Close() }

// gzEntries treats a .gz file as a single-member archive, grounded on
// archiveGzip (one compressed file per .gz).
func gzEntries(path string) ([]Entry, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return []Entry{{
		Name: name,
		Open: func() (io.ReadCloser, error) {
			f, err := os.Open(path)
			if err != nil {
				return nil, err
			}
			gzr, err := gzip.NewReader(f)
			if err != nil {
				f.Close()
				return nil, err
			}
			return &readCloserWrap{gzr, f}, nil
		},
	}}, nil
}

func bz2Entries(path string) ([]Entry, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return []Entry{{
		Name: name,
		Open: func() (io.ReadCloser, error) {
			f, err := os.Open(path)
			if err != nil {
				return nil, err
			}
			return &readCloserWrap{bzip2.NewReader(f), f}, nil
		},
	}}, nil
}

func xzEntries(path string) ([]Entry, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return []Entry{{
		Name: name,
		Open: func() (io.ReadCloser, error) {
			f, err := os.Open(path)
			if err != nil {
				return nil, err
			}
			xr, err := xz.NewReader(f)
			if err != nil {
				f.Close()
				return nil, err
			}
			return &readCloserWrap{xr, f}, nil
		},
	}}, nil
}

type readCloserWrap struct {
	r io.Reader
	f *os.File
}

func (w *readCloserWrap) Read(p []byte) (int, error) { return w.r.Read(p) }
func (w *readCloserWrap) Close() error                { return w.f.Close() }
