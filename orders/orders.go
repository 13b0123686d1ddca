/*
Package orders implements the individual overtime order kind.

PURPOSE:
  An order is a manager-initiated overtime claim with an explicit work
  time range, filed on behalf of an employee. Orders share the whole
  approval machine with submissions; this package owns only creation and
  its validation.

LIFECYCLE AT CREATION:
  An order starts at pending. When the creator is the assigned
  supervisor, stage 1 runs immediately in the same call, so the document
  lands at approved (time off), approved with supervisorFinalApproval
  (payout within quota), or pending-plant-manager (payout over quota),
  exactly as if the supervisor had approved right after filing.

SEE ALSO:
  - overtime/machine.go: Shared transitions
  - submissions: The self-initiated kind
*/
package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/overtime-engine/overtime"
)

// Data is the creation payload for one order.
type Data struct {
	Employee   overtime.Identity // whose overtime is being ordered
	Supervisor overtime.Identity
	WorkStart  time.Time
	WorkEnd    time.Time
	Hours      decimal.Decimal
	Payment    bool
	Reason     string
}

// Service creates orders on top of the shared machine.
type Service struct {
	Machine *overtime.Machine
}

// Insert validates and persists a new order. Only managerial callers,
// HR or admins may file orders.
func (s *Service) Insert(ctx context.Context, actor overtime.Actor, data Data) (*overtime.Request, error) {
	if !overtime.Managerial(actor) && !actor.HasRole(overtime.RoleHR, overtime.RoleAdmin) {
		return nil, overtime.ErrUnauthorized
	}
	if data.Employee.IsZero() || data.Supervisor.IsZero() {
		return nil, overtime.ErrNotFound
	}
	if !overtime.ValidHours(data.Hours) || data.Hours.IsNegative() {
		return nil, overtime.ErrInvalidHours
	}
	if data.WorkStart.IsZero() || data.WorkEnd.IsZero() || !data.WorkEnd.After(data.WorkStart) {
		return nil, overtime.ErrInvalidDate
	}

	now := time.Now()
	if s.Machine.Now != nil {
		now = s.Machine.Now()
	}
	r := &overtime.Request{
		ID:          uuid.NewString(),
		Kind:        overtime.KindOrder,
		InternalID:  overtime.NextInternalID(ctx, s.Machine.Store, overtime.KindOrder, now, s.Machine.Log),
		SubmittedBy: data.Employee,
		CreatedBy:   actor.ID,
		Supervisor:  data.Supervisor,
		Status:      overtime.StatusPending,
		Payment:     data.Payment,
		Hours:       data.Hours,
		WorkStart:   &data.WorkStart,
		WorkEnd:     &data.WorkEnd,
		Reason:      data.Reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.Machine.Store.InsertRequest(ctx, r); err != nil {
		return nil, overtime.WrapOp("insertOrder", err)
	}

	// Filing on behalf: the supervisor's own order does not wait for a
	// second call to pass stage 1.
	if actor.ID == data.Supervisor {
		if _, err := s.Machine.Approve(ctx, actor, r.ID); err != nil {
			return nil, err
		}
		created, err := s.Machine.Store.FindRequest(ctx, r.ID)
		return created, overtime.WrapOp("insertOrder", err)
	}
	return r, nil
}
