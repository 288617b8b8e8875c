package hashing

import (
	"errors"
	"os"

	"github.com/romvault/romvault/rverr"
	"github.com/romvault/romvault/types"
)

// OpenFile opens path and classifies stat/open failures into the rverr
// taxonomy, mirroring the not_found/permission_denied distinctions the
// scanner and hash pool both need.
func OpenFile(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, rverr.Wrap(rverr.NotFound, path, err)
		}
		if errors.Is(err, os.ErrPermission) {
			return nil, 0, rverr.Wrap(rverr.PermissionDenied, path, err)
		}
		return nil, 0, rverr.Wrap(rverr.IOError, path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, rverr.Wrap(rverr.IOError, path, err)
	}
	return f, fi.Size(), nil
}

// StatFile stats path, classifying errors the same way OpenFile does,
// so callers that only need (mtime, size) don't need to open the file.
func StatFile(path string) (os.FileInfo, int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, rverr.Wrap(rverr.NotFound, path, err)
		}
		if errors.Is(err, os.ErrPermission) {
			return nil, 0, rverr.Wrap(rverr.PermissionDenied, path, err)
		}
		return nil, 0, rverr.Wrap(rverr.IOError, path, err)
	}
	return fi, fi.Size(), nil
}

// FileResult is the outcome of hashing a plain file on disk.
type FileResult struct {
	Fingerprint types.Fingerprint
	Size        int64
}

// HashFile is the common case: hash a plain file on disk with an
// optional skip_bytes prefix and progress callback.
func HashFile(path string, skipBytes int64, onProgress ProgressFunc, cancel <-chan struct{}) (FileResult, error) {
	f, size, err := OpenFile(path)
	if err != nil {
		return FileResult{}, err
	}
	defer f.Close()

	src := &Source{R: f, Seekable: f, Total: size}
	fp, total, err := Hash(src, Options{
		SkipBytes:  skipBytes,
		Total:      size - skipBytes,
		OnProgress: onProgress,
		Cancel:     cancel,
	})
	if err != nil {
		return FileResult{}, err
	}
	return FileResult{Fingerprint: fp, Size: total}, nil
}
