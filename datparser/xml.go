package datparser

import (
	"crypto/sha1"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"github.com/google/uuid"

	"github.com/romvault/romvault/types"
)

// xmlDatafile mirrors the Logiqx DTD used by NoIntro/Redump/TOSEC
// exports: <datafile><header>...</header><game>...</game>*</datafile>.
type xmlDatafile struct {
	XMLName xml.Name     `xml:"datafile"`
	Header  xmlHeader    `xml:"header"`
	Games   []xmlGameRow `xml:"game"`
}

type xmlHeader struct {
	Name        string `xml:"name"`
	Description string `xml:"description"`
	Version     string `xml:"version"`
	Author      string `xml:"author"`
}

type xmlGameRow struct {
	Name        string    `xml:"name,attr"`
	CloneOf     string    `xml:"cloneof,attr"`
	RomOf       string    `xml:"romof,attr"`
	IsBios      string    `xml:"isbios,attr"`
	IsDevice    string    `xml:"isdevice,attr"`
	Description string    `xml:"description"`
	Year        string    `xml:"year"`
	Publisher   string    `xml:"manufacturer"`
	Category    string    `xml:"category"`
	Roms        []xmlRom  `xml:"rom"`
}

type xmlRom struct {
	Name   string `xml:"name,attr"`
	Size   string `xml:"size,attr"`
	Crc    string `xml:"crc,attr"`
	Md5    string `xml:"md5,attr"`
	Sha1   string `xml:"sha1,attr"`
	Status string `xml:"status,attr"`
	Merge  string `xml:"merge,attr"`
}

// parseXML decodes a Logiqx XML dat into the same Catalog/GameEntry/
// CatalogEntry shape parseCMP produces, so callers downstream of Parse
// never need to know which grammar a .dat file happened to use.
func parseXML(r io.Reader, path string) (types.Catalog, []types.GameEntry, []types.CatalogEntry, []byte, error) {
	h := sha1.New()
	tr := io.TeeReader(r, h)

	var doc xmlDatafile
	dec := xml.NewDecoder(tr)
	if err := dec.Decode(&doc); err != nil {
		derrStr := fmt.Sprintf("error decoding XML dat %s: %v", path, err)
		return types.Catalog{}, nil, nil, nil, XMLParseError.NewWith(derrStr, setErrorFilePath(path))
	}
	// Drain whatever is left so the sha1 covers the full file even
	// though the decoder may stop reading right after the closing tag.
	_, _ = io.Copy(io.Discard, tr)

	cat := types.Catalog{
		Filename:    path,
		DisplayName: doc.Header.Name,
		Description: doc.Header.Description,
		Version:     doc.Header.Version,
	}

	games := make([]types.GameEntry, 0, len(doc.Games))
	var entries []types.CatalogEntry

	for _, g := range doc.Games {
		ge := types.GameEntry{
			StableID:    g.Name,
			Name:        g.Name,
			Description: g.Description,
			Year:        g.Year,
			Publisher:   g.Publisher,
			CloneOf:     g.CloneOf,
			RomOf:       g.RomOf,
			IsBios:      g.IsBios == "yes",
			IsDevice:    g.IsDevice == "yes",
			Category:    g.Category,
		}
		games = append(games, ge)

		for _, rr := range g.Roms {
			fp, err := types.NewFingerprint(rr.Crc, rr.Md5, rr.Sha1)
			if err != nil {
				derrStr := fmt.Sprintf("rom %q in game %q: %v", rr.Name, g.Name, err)
				return types.Catalog{}, nil, nil, nil, XMLParseError.NewWith(derrStr, setErrorFilePath(path))
			}
			var size uint64
			if rr.Size != "" {
				sz, serr := strconv.ParseUint(rr.Size, 10, 64)
				if serr != nil {
					derrStr := fmt.Sprintf("rom %q in game %q: bad size %q", rr.Name, g.Name, rr.Size)
					return types.Catalog{}, nil, nil, nil, XMLParseError.NewWith(derrStr, setErrorFilePath(path))
				}
				size = sz
			}
			entries = append(entries, types.CatalogEntry{
				StableID:     rr.Name,
				Name:         rr.Name,
				ExpectedSize: size,
				Fingerprint:  fp,
				Status:       normalizeStatus(rr.Status),
				Merge:        rr.Merge,
				ParentGameID: ge.StableID,
			})
		}
	}

	return cat, games, entries, h.Sum(nil), nil
}

// NewCatalogID derives a deterministic catalog id from the sha1 of its
// raw bytes, so re-importing an unchanged dat file is idempotent.
func NewCatalogID(raw []byte) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, raw)
}
