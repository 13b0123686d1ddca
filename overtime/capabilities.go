/*
capabilities.go - Single place where roles become permissions

PURPOSE:
  Every guard in the transition table resolves through these functions.
  No call site re-derives booleans from role strings; adding a role or a
  capability means editing exactly this file.

LATEST SUPERVISOR:
  Approval rights extend to the supervisor recorded on the submitter's
  most recently filed request of the same kind. This keeps older requests
  approvable after a supervisor reassignment, when their stored
  Supervisor field is stale.

SEE ALSO:
  - types.go: Role and KindRules definitions
  - machine.go: Guard call sites
*/
package overtime

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Managerial reports whether the actor holds any people-leading role.
// Used at insert time: only managerial actors may file orders on behalf
// of an employee.
func Managerial(a Actor) bool {
	return a.HasRole(RoleManager, RoleTeamLeader, RolePlantManager)
}

// canDecideStage1 reports whether the actor may approve or reject a
// pending request: assigned supervisor, latest supervisor, HR or admin.
func (m *Machine) canDecideStage1(ctx context.Context, a Actor, r *Request) bool {
	if a.HasRole(RoleHR, RoleAdmin) {
		return true
	}
	return m.isSupervisorOf(ctx, a, r)
}

// canDecideStage2 reports whether the actor may approve a request at
// pending-plant-manager. Stage-2 approval is plant-manager/admin for both
// kinds; rejection rights are kind-dependent (see canRejectStage2).
func canDecideStage2(a Actor) bool {
	return a.HasRole(RolePlantManager, RoleAdmin)
}

func canRejectStage2(a Actor, rules KindRules) bool {
	return a.HasRole(rules.Stage2Rejectors...)
}

// canAccount: settlement into payroll records is an HR/admin action.
func canAccount(a Actor) bool { return a.HasRole(RoleHR, RoleAdmin) }

// canDelete: hard delete is admin-only.
func canDelete(a Actor) bool { return a.HasRole(RoleAdmin) }

// isSupervisorOf reports whether the actor is the request's assigned
// supervisor or the submitter's latest supervisor.
func (m *Machine) isSupervisorOf(ctx context.Context, a Actor, r *Request) bool {
	if a.ID == r.Supervisor {
		return true
	}
	latest, err := m.Store.LatestBySubmitter(ctx, r.Kind, r.SubmittedBy)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.log().Warn("latest supervisor lookup failed",
				zap.String("submitter", string(r.SubmittedBy)), zap.Error(err))
		}
		return false
	}
	return latest.Supervisor == a.ID
}

// canCorrect implements the correction permission matrix. Accounted is
// checked by the caller first; this function assumes status != accounted.
func canCorrect(a Actor, r *Request, rules KindRules) bool {
	if a.HasRole(RoleAdmin) {
		return true
	}
	if a.ID == r.SubmittedBy && r.Status == StatusPending {
		return true
	}
	if a.HasRole(rules.CorrectorRole) &&
		(r.Status == StatusPending || r.Status == StatusApproved) {
		return true
	}
	return false
}

// canCancel: pre-approval withdrawal belongs to the requester only.
func canCancel(a Actor, r *Request) bool {
	return a.ID == r.SubmittedBy || a.ID == r.CreatedBy
}
