package datparser

import (
	"bufio"
	"fmt"
	"os"

	"github.com/romvault/romvault/types"
)

// ParseResult is the fully decoded contents of one dat file, ready for
// catalogstore.Store.ImportCatalog.
type ParseResult struct {
	Catalog types.Catalog
	Games   []types.GameEntry
	Entries []types.CatalogEntry
}

// Parse sniffs path's content and dispatches to the CMP or XML grammar,
// mirroring the isXML-then-branch shape in parser/parse.go.
// The catalog's ID is derived from the sha1 of the raw file bytes, so
// importing byte-identical dats twice yields the same ID.
func Parse(path string) (ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ParseResult{}, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	xmlLike, err := isXML(br)
	if err != nil {
		return ParseResult{}, fmt.Errorf("sniffing %s: %w", path, err)
	}

	var (
		cat     types.Catalog
		games   []types.GameEntry
		entries []types.CatalogEntry
		raw     []byte
	)
	if xmlLike {
		cat, games, entries, raw, err = parseXML(br, path)
	} else {
		cat, games, entries, raw, err = parseCMP(br, path)
	}
	if err != nil {
		return ParseResult{}, err
	}

	cat.ID = NewCatalogID(raw)
	for i := range games {
		games[i].CatalogID = cat.ID
	}

	entriesByGame := make(map[string][]*types.CatalogEntry)
	for i := range entries {
		entriesByGame[entries[i].ParentGameID] = append(entriesByGame[entries[i].ParentGameID], &entries[i])
	}
	gamePtrs := make([]*types.GameEntry, len(games))
	for i := range games {
		gamePtrs[i] = &games[i]
	}
	cat.RecomputeCounts(gamePtrs, entriesByGame)

	return ParseResult{Catalog: cat, Games: games, Entries: entries}, nil
}

// isXML peeks past leading whitespace to see whether the dat opens with
// an XML declaration or root tag, without consuming bytes the grammar
// parsers still need to read.
func isXML(br *bufio.Reader) (bool, error) {
	for {
		b, err := br.Peek(1)
		if err != nil {
			return false, nil
		}
		switch b[0] {
		case ' ', '\t', '\n', '\r':
			if _, err := br.Discard(1); err != nil {
				return false, err
			}
			continue
		case '<':
			return true, nil
		default:
			return false, nil
		}
	}
}
