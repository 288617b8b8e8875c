package rpcsurface

import (
	"net/http"

	"github.com/romvault/romvault/selector"
)

type GroupAndSelectArgs struct {
	Candidates []selector.Candidate
	Options    selector.Options
}

type GroupAndSelectReply struct {
	Groups []selector.Group
}

// GroupAndSelect exposes the 1G1R grouping/scoring pass over RPC so a
// client can preview the winning variant per group before committing
// to an organize run.
func (s *Service) GroupAndSelect(r *http.Request, args *GroupAndSelectArgs, reply *GroupAndSelectReply) error {
	reply.Groups = selector.GroupAndSelect(args.Candidates, args.Options)
	return nil
}
