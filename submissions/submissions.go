/*
Package submissions implements the self-initiated overtime kind.

PURPOSE:
  A submission is an employee's own claim for a single day of overtime,
  or a payout-withdrawal request that converts accrued hours to money.
  Withdrawals carry negative hours and are checked against the
  submitter's balance at insert time:

    balance = sum of hours over the submitter's submissions whose status
              is neither cancelled nor rejected

  Requesting more than the balance yields exceeds_balance; requesting
  against an empty or negative balance yields no_balance. Nothing is
  inserted on either error.

SEE ALSO:
  - overtime/machine.go: Shared transitions (incl. convertToPayout)
  - orders: The manager-initiated kind
*/
package submissions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/overtime-engine/overtime"
)

// Data is the creation payload for one day-based submission.
type Data struct {
	Supervisor      overtime.Identity
	Date            time.Time
	Hours           decimal.Decimal
	Payment         bool
	ScheduledDayOff *time.Time
	Reason          string
}

// PayoutData is the creation payload for a payout withdrawal. Hours is
// the positive amount requested; the stored submission carries it
// negated.
type PayoutData struct {
	Supervisor overtime.Identity
	Hours      decimal.Decimal
	Reason     string
}

// Service creates submissions on top of the shared machine.
type Service struct {
	Machine *overtime.Machine
}

func (s *Service) now() time.Time {
	if s.Machine.Now != nil {
		return s.Machine.Now()
	}
	return time.Now()
}

// Insert validates and persists a new day-based submission by the actor.
func (s *Service) Insert(ctx context.Context, actor overtime.Actor, data Data) (*overtime.Request, error) {
	if data.Supervisor.IsZero() {
		return nil, overtime.ErrNotFound
	}
	if !overtime.ValidHours(data.Hours) || data.Hours.IsNegative() {
		return nil, overtime.ErrInvalidHours
	}
	if data.Date.IsZero() {
		return nil, overtime.ErrInvalidDate
	}

	now := s.now()
	r := &overtime.Request{
		ID:          uuid.NewString(),
		Kind:        overtime.KindSubmission,
		InternalID:  overtime.NextInternalID(ctx, s.Machine.Store, overtime.KindSubmission, now, s.Machine.Log),
		SubmittedBy: actor.ID,
		CreatedBy:   actor.ID,
		Supervisor:  data.Supervisor,
		Status:      overtime.StatusPending,
		Payment:     data.Payment,
		Hours:       data.Hours,
		Date:        &data.Date,
		Reason:      data.Reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if data.ScheduledDayOff != nil {
		d := *data.ScheduledDayOff
		r.ScheduledDayOff = &d
	}

	if err := s.Machine.Store.InsertRequest(ctx, r); err != nil {
		return nil, overtime.WrapOp("insertSubmission", err)
	}
	return r, nil
}

// InsertPayout files a withdrawal of accrued hours as money.
func (s *Service) InsertPayout(ctx context.Context, actor overtime.Actor, data PayoutData) (*overtime.Request, error) {
	if data.Supervisor.IsZero() {
		return nil, overtime.ErrNotFound
	}
	if !overtime.ValidHours(data.Hours) || !data.Hours.IsPositive() {
		return nil, overtime.ErrInvalidHours
	}

	balance, err := s.Machine.Store.BalanceHours(ctx, actor.ID)
	if err != nil {
		return nil, overtime.WrapOp("insertPayoutRequest", err)
	}
	if !balance.IsPositive() {
		return nil, overtime.ErrNoBalance
	}
	if data.Hours.GreaterThan(balance) {
		return nil, overtime.ErrExceedsBalance
	}

	now := s.now()
	r := &overtime.Request{
		ID:          uuid.NewString(),
		Kind:        overtime.KindSubmission,
		InternalID:  overtime.NextInternalID(ctx, s.Machine.Store, overtime.KindSubmission, now, s.Machine.Log),
		SubmittedBy: actor.ID,
		CreatedBy:   actor.ID,
		Supervisor:  data.Supervisor,
		Status:      overtime.StatusPending,
		Payment:     true,
		Hours:       data.Hours.Neg(),
		Reason:      data.Reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.Machine.Store.InsertRequest(ctx, r); err != nil {
		return nil, overtime.WrapOp("insertPayoutRequest", err)
	}
	return r, nil
}

// Balance reports the submitter's accrued hours.
func (s *Service) Balance(ctx context.Context, submitter overtime.Identity) (decimal.Decimal, error) {
	balance, err := s.Machine.Store.BalanceHours(ctx, submitter)
	return balance, overtime.WrapOp("balance", err)
}
