package rpcsurface

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/romvault/romvault/organizer"
)

type PlanArgs struct {
	Input organizer.PlanInput
}

type PlanReply struct {
	Plan *organizer.Plan
}

// Plan builds an organization plan without touching the filesystem.
func (s *Service) Plan(r *http.Request, args *PlanArgs, reply *PlanReply) error {
	if args.Input.BuildContext == nil {
		args.Input.BuildContext = organizer.DefaultContextBuilder
	}
	plan, err := organizer.Plan(args.Input)
	if err != nil {
		return err
	}
	reply.Plan = plan
	return nil
}

type ExecuteArgs struct {
	Plan organizer.Plan
}

type ExecuteReply struct {
	Result organizer.Result
}

// Execute runs a previously built Plan against the bound journal.
func (s *Service) Execute(r *http.Request, args *ExecuteArgs, reply *ExecuteReply) error {
	res, err := organizer.Execute(&args.Plan, s.Journal)
	if err != nil {
		return err
	}
	reply.Result = res
	return nil
}

type RollbackArgs struct {
	OperationID uuid.UUID
}

type RollbackReply struct {
	Result organizer.RollbackResult
}

func (s *Service) Rollback(r *http.Request, args *RollbackArgs, reply *RollbackReply) error {
	res, err := organizer.Rollback(s.Journal, args.OperationID)
	if err != nil {
		return err
	}
	reply.Result = res
	return nil
}
