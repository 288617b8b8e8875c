// Copyright (c) 2013 Uwe Hoffmann. All rights reserved.

/*
Redistribution and use in source and binary forms, with or without
modification, are permitted provided that the following conditions are
met:

   * Redistributions of source code must retain the above copyright
notice, this list of conditions and the following disclaimer.
   * Redistributions in binary form must reproduce the above
copyright notice, this list of conditions and the following disclaimer
in the documentation and/or other materials provided with the
distribution.
   * Neither the name of Google Inc. nor the names of its
contributors may be used to endorse or promote products derived from
this software without specific prior written permission.

THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS
"AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT
LIMITED TO, THE IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR
A PARTICULAR PURPOSE ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT
OWNER OR CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT
LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR SERVICES; LOSS OF USE,
DATA, OR PROFITS; OR BUSINESS INTERRUPTION) HOWEVER CAUSED AND ON ANY
THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT
(INCLUDING NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH DAMAGE.
*/

package types

import "strings"

// Fingerprint is the immutable CRC32/MD5/SHA-1 hash triple identifying a
// ROM's content. Hex strings are always lowercase; an empty string means
// that component is absent.
type Fingerprint struct {
	Crc32 string
	Md5   string
	Sha1  string
}

const (
	crc32HexLen = 8
	md5HexLen   = 32
	sha1HexLen  = 40
)

func isLowerHex(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

// NewFingerprint validates and constructs a Fingerprint. Empty strings are
// allowed for any component (absent hash); non-empty components must be
// exact-length lowercase hex.
func NewFingerprint(crc32, md5, sha1 string) (Fingerprint, error) {
	fp := Fingerprint{
		Crc32: strings.ToLower(crc32),
		Md5:   strings.ToLower(md5),
		Sha1:  strings.ToLower(sha1),
	}
	if fp.Crc32 != "" && (len(fp.Crc32) != crc32HexLen || !isLowerHex(fp.Crc32)) {
		return Fingerprint{}, &ValidationError{Field: "crc32", Value: crc32}
	}
	if fp.Md5 != "" && (len(fp.Md5) != md5HexLen || !isLowerHex(fp.Md5)) {
		return Fingerprint{}, &ValidationError{Field: "md5", Value: md5}
	}
	if fp.Sha1 != "" && (len(fp.Sha1) != sha1HexLen || !isLowerHex(fp.Sha1)) {
		return Fingerprint{}, &ValidationError{Field: "sha1", Value: sha1}
	}
	return fp, nil
}

// ValidationError reports a malformed fingerprint component.
type ValidationError struct {
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + " value: " + e.Value
}

// IsEmpty reports whether none of the three hashes are present.
func (fp Fingerprint) IsEmpty() bool {
	return fp.Crc32 == "" && fp.Md5 == "" && fp.Sha1 == ""
}

// Matches reports whether fp and other share at least one non-empty,
// equal component, checked in priority order SHA-1 > MD5 > CRC32. The
// returned tier names which component decided the match, or "" if none.
func (fp Fingerprint) Matches(other Fingerprint) (bool, string) {
	if fp.Sha1 != "" && other.Sha1 != "" && fp.Sha1 == other.Sha1 {
		return true, "sha1"
	}
	if fp.Md5 != "" && other.Md5 != "" && fp.Md5 == other.Md5 {
		return true, "md5"
	}
	if fp.Crc32 != "" && other.Crc32 != "" && fp.Crc32 == other.Crc32 {
		return true, "crc32"
	}
	return false, ""
}

// Equal reports structural equality over all three components.
func (fp Fingerprint) Equal(other Fingerprint) bool {
	return fp.Crc32 == other.Crc32 && fp.Md5 == other.Md5 && fp.Sha1 == other.Sha1
}
