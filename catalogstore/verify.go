package catalogstore

import (
	"regexp"

	"github.com/google/uuid"

	"github.com/romvault/romvault/types"
)

// Marker is one filename-encoded dump-quality flag from the
// No-Intro/GoodTools convention.
type Marker string

const (
	MarkerVerified     Marker = "verified"
	MarkerBadDump      Marker = "baddump"
	MarkerAlternate    Marker = "alternate"
	MarkerOverdump     Marker = "overdump"
	MarkerHack         Marker = "hack"
	MarkerPirate       Marker = "pirate"
	MarkerTrainer      Marker = "trainer"
	MarkerFixed        Marker = "fixed"
	MarkerTranslation  Marker = "translation"
	MarkerCracked      Marker = "cracked"
	MarkerBadChecksum  Marker = "bad_checksum"
	MarkerUnlicensed   Marker = "unlicensed"
	MarkerPrototype    Marker = "prototype"
	MarkerBeta         Marker = "beta"
	MarkerSample       Marker = "sample"
	MarkerDemo         Marker = "demo"
	MarkerPublicDomain Marker = "public_domain"
)

// markerPatterns is the closed set of recognized tokens. Trainer and
// Translation are deliberately case-sensitive ([t] vs [T]) since that
// case distinction is the only thing telling the two conventions
// apart; every other pattern is matched case-insensitively.
var markerPatterns = []struct {
	marker Marker
	re     *regexp.Regexp
}{
	{MarkerVerified, regexp.MustCompile(`\[!\]`)},
	{MarkerBadDump, regexp.MustCompile(`(?i)\[b\d*\]`)},
	{MarkerAlternate, regexp.MustCompile(`(?i)\[a\d*\]`)},
	{MarkerOverdump, regexp.MustCompile(`(?i)\[o\d+\]`)},
	{MarkerHack, regexp.MustCompile(`(?i)\[h[^\]]*\]`)},
	{MarkerPirate, regexp.MustCompile(`(?i)\[p\d*\]`)},
	{MarkerTrainer, regexp.MustCompile(`\[t\d*\]`)},
	{MarkerFixed, regexp.MustCompile(`(?i)\[f\d*\]`)},
	{MarkerTranslation, regexp.MustCompile(`\[T[^\]]*\]`)},
	{MarkerCracked, regexp.MustCompile(`(?i)\[c\]`)},
	{MarkerBadChecksum, regexp.MustCompile(`(?i)\[x\]`)},
	{MarkerUnlicensed, regexp.MustCompile(`(?i)\(unl\)`)},
	{MarkerPrototype, regexp.MustCompile(`(?i)\(proto\)`)},
	{MarkerBeta, regexp.MustCompile(`(?i)\(beta\)`)},
	{MarkerSample, regexp.MustCompile(`(?i)\(sample\)`)},
	{MarkerDemo, regexp.MustCompile(`(?i)\(demo\)`)},
	{MarkerPublicDomain, regexp.MustCompile(`(?i)\(pd\)`)},
}

// ExtractMarkers returns every dump-quality marker present in filename.
// When both verified and baddump markers appear in the same name,
// baddump wins and verified is dropped from the result.
func ExtractMarkers(filename string) map[Marker]bool {
	out := make(map[Marker]bool, len(markerPatterns))
	for _, mp := range markerPatterns {
		if mp.re.MatchString(filename) {
			out[mp.marker] = true
		}
	}
	if out[MarkerBadDump] {
		delete(out, MarkerVerified)
	}
	return out
}

// IsLikelyBadDump reports whether filename's markers resolve to
// baddump once verified/baddump precedence is applied.
func IsLikelyBadDump(filename string) bool {
	return ExtractMarkers(filename)[MarkerBadDump]
}

// Verify applies the catalog store's tiered verification rule to one
// file: matches are the catalog hits for its fingerprint (already
// ranked sha1 > md5 > crc32, enabled catalogs first, by FindByFingerprint),
// filename is the file's own name for marker extraction. It returns the
// resulting status, the matched entry's stable id (empty if none), the
// owning catalog id (nil if none), and which signal decided the result.
func Verify(matches []CatalogMatch, filename string) (types.VerificationStatus, string, *uuid.UUID, types.VerificationSource) {
	markers := ExtractMarkers(filename)
	filenameBadDump := markers[MarkerBadDump]

	if len(matches) == 0 {
		if filenameBadDump {
			return types.VerificationBadDump, "", nil, types.SourceFilename
		}
		return types.VerificationNotInCatalog, "", nil, types.SourceNone
	}

	for _, m := range matches {
		if m.Entry.Status == types.StatusBadDump {
			source := types.SourceDatFile
			if filenameBadDump {
				source = types.SourceCombined
			}
			catID := m.CatalogID
			return types.VerificationBadDump, m.Entry.StableID, &catID, source
		}
	}

	best := matches[0]
	catID := best.CatalogID
	return types.VerificationVerified, best.Entry.StableID, &catID, types.SourceDatFile
}
