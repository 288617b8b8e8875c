// Package hashing computes the CRC32/MD5/SHA-1 fingerprint triple in a
// single streaming pass. Grounded on archive.Hashes / archive.hashesForReader
// (archive/util.go): three digesters fed by one io.MultiWriter,
// klauspost/crc32 for the fast CRC path. Generalized here with a
// reusable chunk buffer, skip_bytes handling, and a progress callback
// those single-shot helpers did not need.
package hashing

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"hash"
	"io"
	"sync"

	"github.com/klauspost/crc32"

	"github.com/romvault/romvault/rverr"
	"github.com/romvault/romvault/types"
)

// ChunkSize is the size of each pooled read buffer ("≥64 KiB chunks");
// a single Read may return fewer bytes.
const ChunkSize = 64 * 1024

var bufPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, ChunkSize)
		return &b
	},
}

// Progress is reported at chunk boundaries.
type Progress struct {
	BytesProcessed int64
	TotalBytes     int64
}

// ProgressFunc is invoked after each chunk is digested.
type ProgressFunc func(Progress)

// Source is a seekable-or-not byte source to hash. Seek is optional: if
// the underlying reader does not support it, leave Seekable nil and
// skip_bytes is discarded by reading past it instead.
type Source struct {
	R        io.Reader
	Seekable io.Seeker // nil if not seekable
	Total    int64
}

// Options configure one hashing pass.
type Options struct {
	SkipBytes int64
	Total     int64
	OnProgress ProgressFunc
	Cancel    <-chan struct{}
}

// Hash computes the fingerprint triple over src, honoring SkipBytes and
// reporting Progress at chunk boundaries. It never buffers the whole
// input in memory.
func Hash(src *Source, opts Options) (types.Fingerprint, int64, error) {
	if opts.SkipBytes > 0 {
		if err := skip(src, opts.SkipBytes); err != nil {
			return types.Fingerprint{}, 0, err
		}
	}

	hCrc := crc32.NewIEEE()
	hMd5 := md5.New()
	hSha1 := sha1.New()
	digesters := []hash.Hash{hCrc, hMd5, hSha1}

	bufp := bufPool.Get().(*[]byte)
	defer bufPool.Put(bufp)
	buf := *bufp

	var total int64
	for {
		if opts.Cancel != nil {
			select {
			case <-opts.Cancel:
				return types.Fingerprint{}, 0, rverr.New(rverr.Cancelled, "hashing cancelled")
			default:
			}
		}

		n, err := src.R.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			for _, d := range digesters {
				d.Write(chunk)
			}
			total += int64(n)
			if opts.OnProgress != nil {
				opts.OnProgress(Progress{BytesProcessed: total, TotalBytes: opts.Total})
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return types.Fingerprint{}, 0, rverr.Wrap(rverr.IOError, "", err)
		}
	}

	fp := types.Fingerprint{
		Crc32: hex.EncodeToString(hCrc.Sum(nil)),
		Md5:   hex.EncodeToString(hMd5.Sum(nil)),
		Sha1:  hex.EncodeToString(hSha1.Sum(nil)),
	}
	return fp, total, nil
}

// skip positions src forward by n bytes, seeking if possible or
// discarding otherwise. A non-seekable source that hits EOF before the
// skip completes fails short_input.
func skip(src *Source, n int64) error {
	if src.Seekable != nil {
		_, err := src.Seekable.Seek(n, io.SeekCurrent)
		if err != nil {
			return rverr.Wrap(rverr.IOError, "", err)
		}
		return nil
	}
	discarded, err := io.CopyN(io.Discard, src.R, n)
	if err != nil || discarded < n {
		return rverr.New(rverr.ShortInput, "stream ended before skip_bytes prefix consumed")
	}
	return nil
}
