package datparser

import (
	"crypto/sha1"
	"fmt"
	"hash"
	"io"
	"strconv"
	"strings"

	"github.com/golang/glog"

	"github.com/romvault/romvault/types"
)

type cmpParser struct {
	ll  *lexer
	cat *types.Catalog

	games   []types.GameEntry
	entries map[string][]types.CatalogEntry // keyed by game StableID
}

func (p *cmpParser) consumeStringValue() (string, error) {
	i := p.ll.nextItem()
	switch {
	case i.typ == itemQuotedString:
		return i.val[1 : len(i.val)-1], nil
	case i.typ == itemValue:
		return i.val, nil
	case i.typ > itemValue:
		return i.val, nil
	default:
		return "", fmt.Errorf("expected quoted string or value, got %v", i)
	}
}

func stringValue2Int(input string) (int64, error) {
	if input == "-" {
		return 0, nil
	}
	return strconv.ParseInt(input, 10, 64)
}

func stringValue2HexString(input string, expectedLen int) (string, error) {
	input = strings.TrimSpace(input)
	if input == "-" || input == "" {
		return "", nil
	}
	input = strings.TrimPrefix(input, "0x")
	input = strings.ToLower(input)
	if len(input) < expectedLen {
		input = strings.Repeat("0", expectedLen-len(input)) + input
	}
	for _, r := range input {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return "", fmt.Errorf("invalid hex digit %q", r)
		}
	}
	return input, nil
}

func (p *cmpParser) consumeIntegerValue() (int64, error) {
	i := p.ll.nextItem()
	if i.typ == itemValue {
		return stringValue2Int(i.val)
	}
	if i.typ == itemQuotedString {
		return stringValue2Int(i.val[1 : len(i.val)-1])
	}
	return 0, fmt.Errorf("expected value, got %v", i)
}

func (p *cmpParser) consumeHexValue(expectedLen int) (string, error) {
	i := p.ll.nextItem()
	if i.typ == itemValue {
		return stringValue2HexString(i.val, expectedLen)
	}
	if i.typ == itemQuotedString {
		return stringValue2HexString(i.val[1:len(i.val)-1], expectedLen)
	}
	return "", fmt.Errorf("expected value, got %v", i)
}

func (p *cmpParser) match(i item, typ itemType) error {
	if i.typ == typ {
		return nil
	}
	return fmt.Errorf("expected token of type %v, got %v instead", typ, i)
}

func (p *cmpParser) headerStmt() error {
	i := p.ll.nextItem()
	if err := p.match(i, itemOpenBrace); err != nil {
		return err
	}

	var err error
	for i = p.ll.nextItem(); i.typ != itemCloseBrace && i.typ != itemEOF && i.typ != itemError; i = p.ll.nextItem() {
		switch i.typ {
		case itemName:
			p.cat.DisplayName, err = p.consumeStringValue()
		case itemDescription:
			p.cat.Description, err = p.consumeStringValue()
		case itemVersion:
			p.cat.Version, err = p.consumeStringValue()
		case itemAuthor, itemCategory:
			_, err = p.consumeStringValue()
		}
		if err != nil {
			return err
		}
	}
	return p.terminal(i)
}

func (p *cmpParser) terminal(i item) error {
	if i.typ == itemEOF {
		return fmt.Errorf("unexpected end of input")
	}
	if i.typ == itemError {
		return fmt.Errorf("lexer error: %v", i)
	}
	return nil
}

func (p *cmpParser) gameStmt() (*types.GameEntry, error) {
	i := p.ll.nextItem()
	if err := p.match(i, itemOpenBrace); err != nil {
		return nil, err
	}

	g := &types.GameEntry{}
	var entries []types.CatalogEntry
	var err error

	for i = p.ll.nextItem(); i.typ != itemCloseBrace && i.typ != itemEOF && i.typ != itemError; i = p.ll.nextItem() {
		switch i.typ {
		case itemName:
			g.Name, err = p.consumeStringValue()
			g.StableID = g.Name
		case itemDescription:
			g.Description, err = p.consumeStringValue()
		case itemCloneOf:
			g.CloneOf, err = p.consumeStringValue()
		case itemRomOf:
			g.RomOf, err = p.consumeStringValue()
		case itemYear:
			g.Year, err = p.consumeStringValue()
		case itemPublisher:
			g.Publisher, err = p.consumeStringValue()
		case itemCategory:
			g.Category, err = p.consumeStringValue()
		case itemRom:
			var e *types.CatalogEntry
			e, err = p.romStmt()
			if e != nil {
				e.ParentGameID = g.StableID
				entries = append(entries, *e)
			}
		}
		if err != nil {
			return nil, err
		}
	}
	if err := p.terminal(i); err != nil {
		return nil, err
	}

	// ParentGameID was stamped before g.Name might be finalized by a
	// later "name" token order in malformed input; re-stamp now that
	// the game statement is complete.
	for idx := range entries {
		entries[idx].ParentGameID = g.StableID
	}
	p.entries[g.StableID] = append(p.entries[g.StableID], entries...)

	return g, nil
}

func (p *cmpParser) romStmt() (*types.CatalogEntry, error) {
	i := p.ll.nextItem()
	if err := p.match(i, itemOpenBrace); err != nil {
		return nil, err
	}

	e := &types.CatalogEntry{Status: types.StatusGood}
	var crc, md5, sha1Hex string
	var err error

	for i = p.ll.nextItem(); i.typ != itemCloseBrace && i.typ != itemEOF && i.typ != itemError; i = p.ll.nextItem() {
		switch i.typ {
		case itemName:
			e.Name, err = p.consumeStringValue()
			e.StableID = e.Name
		case itemFlags:
			var status string
			status, err = p.consumeStringValue()
			e.Status = normalizeStatus(status)
		case itemSize:
			var sz int64
			sz, err = p.consumeIntegerValue()
			e.ExpectedSize = uint64(sz)
		case itemCrc:
			crc, err = p.consumeHexValue(8)
		case itemMd5:
			md5, err = p.consumeHexValue(32)
		case itemSha1:
			sha1Hex, err = p.consumeHexValue(40)
		}
		if err != nil {
			glog.Errorf("failed to parse rom field for %s in %s: %v", e.Name, p.ll.name, err)
			return nil, err
		}
	}
	if err := p.terminal(i); err != nil {
		return nil, err
	}

	fp, fpErr := types.NewFingerprint(crc, md5, sha1Hex)
	if fpErr != nil {
		return nil, fpErr
	}
	e.Fingerprint = fp
	return e, nil
}

func normalizeStatus(flag string) types.EntryStatus {
	switch strings.ToLower(flag) {
	case "baddump":
		return types.StatusBadDump
	case "nodump":
		return types.StatusNoDump
	case "verified":
		return types.StatusVerified
	default:
		return types.StatusGood
	}
}

func (p *cmpParser) parse() error {
	var i item
	for i = p.ll.nextItem(); i.typ != itemEOF && i.typ != itemError; i = p.ll.nextItem() {
		switch i.typ {
		case itemClrMamePro:
			if err := p.headerStmt(); err != nil {
				return err
			}
		case itemGame:
			g, err := p.gameStmt()
			if err != nil {
				return err
			}
			if g != nil {
				p.games = append(p.games, *g)
			}
		}
	}
	if i.typ == itemError {
		return fmt.Errorf("lexer error: %v", i)
	}
	return nil
}

type hashingReader struct {
	ir io.Reader
	h  hash.Hash
}

func (r hashingReader) Read(buf []byte) (int, error) {
	n, err := r.ir.Read(buf)
	if err == nil {
		r.h.Write(buf[:n])
	}
	return n, err
}

// parseCMP parses a ClrMamePro brace-delimited DAT, returning the
// catalog metadata, its games, a flattened entry slice, and the sha1
// of the raw file bytes (used as the catalog's stable id seed).
func parseCMP(r io.Reader, path string) (types.Catalog, []types.GameEntry, []types.CatalogEntry, []byte, error) {
	hr := hashingReader{ir: r, h: sha1.New()}

	ll := lex("dat - "+path, hr)
	p := &cmpParser{
		ll:      ll,
		cat:     &types.Catalog{Filename: path},
		entries: make(map[string][]types.CatalogEntry),
	}

	if err := p.parse(); err != nil {
		derrStr := fmt.Sprintf("error in file %s on line %d: %v", path, p.ll.lineNumber(), err)
		derr := ParseError.NewWith(derrStr, setErrorFilePath(path), setErrorLineNumber(p.ll.lineNumber()))
		return types.Catalog{}, nil, nil, nil, derr
	}

	var flat []types.CatalogEntry
	for _, g := range p.games {
		flat = append(flat, p.entries[g.StableID]...)
	}

	return *p.cat, p.games, flat, hr.h.Sum(nil), nil
}
