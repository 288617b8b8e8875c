package rpcsurface

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/romvault/romvault/datparser"
	"github.com/romvault/romvault/types"
)

// ImportDatArgs names one dat file on the server's filesystem to parse
// and import. The RPC boundary takes a path rather than file contents,
// matching service.go's own terminal-command style of operating on
// server-local paths.
type ImportDatArgs struct {
	Path string
}

type ImportDatReply struct {
	CatalogID uuid.UUID
	GameCount int
	RomCount  int
}

// ImportDat parses Path with datparser and imports the result into the
// bound Store.
func (s *Service) ImportDat(r *http.Request, args *ImportDatArgs, reply *ImportDatReply) error {
	res, err := datparser.Parse(args.Path)
	if err != nil {
		return err
	}
	if err := s.Store.ImportCatalog(res.Catalog, res.Games, res.Entries); err != nil {
		return err
	}
	reply.CatalogID = res.Catalog.ID
	reply.GameCount = res.Catalog.GameCount
	reply.RomCount = res.Catalog.RomCount
	return nil
}

type ListCatalogsArgs struct{}

type ListCatalogsReply struct {
	Catalogs []types.Catalog
}

func (s *Service) ListCatalogs(r *http.Request, args *ListCatalogsArgs, reply *ListCatalogsReply) error {
	cats, err := s.Store.ListCatalogs()
	if err != nil {
		return err
	}
	reply.Catalogs = cats
	return nil
}

type DeleteCatalogArgs struct {
	ID uuid.UUID
}

type DeleteCatalogReply struct{}

func (s *Service) DeleteCatalog(r *http.Request, args *DeleteCatalogArgs, reply *DeleteCatalogReply) error {
	return s.Store.DeleteCatalog(args.ID)
}

// LookupArgs carries whichever hashes a client has available; a zero
// value field means that hash wasn't computed or isn't known.
type LookupArgs struct {
	Fingerprint types.Fingerprint
}

type LookupMatch struct {
	CatalogID uuid.UUID
	Entry     types.CatalogEntry
}

type LookupReply struct {
	Matches []LookupMatch
}

func (s *Service) Lookup(r *http.Request, args *LookupArgs, reply *LookupReply) error {
	matches, err := s.Store.FindByFingerprint(args.Fingerprint)
	if err != nil {
		return err
	}
	for _, m := range matches {
		reply.Matches = append(reply.Matches, LookupMatch{CatalogID: m.CatalogID, Entry: m.Entry})
	}
	return nil
}

type DuplicatesArgs struct{}

type DuplicatesReply struct {
	Groups []catalogDuplicateGroup
}

type catalogDuplicateGroup struct {
	Fingerprint types.Fingerprint
	MatchedOn   string
	Entries     []types.CatalogEntry
}

func (s *Service) Duplicates(r *http.Request, args *DuplicatesArgs, reply *DuplicatesReply) error {
	groups, err := s.Store.Duplicates()
	if err != nil {
		return err
	}
	for _, g := range groups {
		reply.Groups = append(reply.Groups, catalogDuplicateGroup{
			Fingerprint: g.Fingerprint,
			MatchedOn:   g.MatchedOn,
			Entries:     g.Entries,
		})
	}
	return nil
}

type StatsArgs struct{}

type StatsReply struct {
	Summary string
}

func (s *Service) Stats(r *http.Request, args *StatsArgs, reply *StatsReply) error {
	reply.Summary = s.Store.PrintStats()
	return nil
}
