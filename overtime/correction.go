/*
correction.go - Unified edit path with immutable history

PURPOSE:
  Corrections are the only way to edit a stored request after creation.
  The engine diffs the incoming data against the stored document, applies
  only genuine changes, and appends exactly one history entry per call.
  Prior entries are never edited or reordered.

PERMISSIONS (by caller and current status):
  author (submitter)        pending only
  kind corrector role       pending, approved   (HR for submissions,
                                                 plant manager for orders)
  admin                     anything except accounted
  accounted                 immutable for everyone

STATUS SIDE CHANNELS:
  markAsCancelled=true additionally moves the request to cancelled and
  records statusChanged. Correcting an already-cancelled SUBMISSION
  without markAsCancelled restores it to pending (un-cancel) and records
  the reverse move. Orders stay cancelled; the asymmetry is intentional
  and covered by separate tests.

SEE ALSO:
  - types.go: CorrectionEntry shape
  - machine.go: SupervisorSetScheduledDayOff also appends history
*/
package overtime

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// CorrectionData carries the incoming field values. Nil pointers mean
// "leave as is"; set pointers are diffed against the stored document and
// only genuine differences are applied and recorded.
type CorrectionData struct {
	Supervisor      *Identity
	Hours           *decimal.Decimal
	Reason          *string
	Payment         *bool
	ScheduledDayOff *time.Time
	WorkStart       *time.Time
	WorkEnd         *time.Time
	Date            *time.Time
}

// Correct applies an edit, appends one history entry and optionally
// cancels the request.
func (m *Machine) Correct(ctx context.Context, actor Actor, id string, data CorrectionData, reason string, markAsCancelled bool) error {
	if reason == "" {
		return ErrReasonRequired
	}

	r, err := m.Store.FindRequest(ctx, id)
	if err != nil {
		return opErr("correct", err)
	}
	return opErr("correct", m.correctLoaded(ctx, actor, r, data, reason, markAsCancelled))
}

func (m *Machine) correctLoaded(ctx context.Context, actor Actor, r *Request, data CorrectionData, reason string, markAsCancelled bool) error {
	if r.Status == StatusAccounted {
		return ErrCannotCorrectAccounted
	}
	rules, ok := RulesFor(r.Kind)
	if !ok {
		return ErrInvalidStatus
	}
	if !canCorrect(actor, r, rules) {
		return ErrUnauthorized
	}
	if data.Hours != nil && !ValidHours(*data.Hours) {
		return ErrInvalidHours
	}

	now := m.now()
	prev := r.Status
	entry := CorrectionEntry{
		CorrectedAt: now,
		CorrectedBy: actor.ID,
		Reason:      reason,
		Changes:     map[string]FieldChange{},
	}

	applyDiff(&entry, data, r)

	switch {
	case markAsCancelled && r.Status != StatusCancelled:
		entry.StatusChanged = &StatusChange{From: r.Status, To: StatusCancelled}
		if r.CancelledAt == nil {
			at := now
			r.CancelledAt = &at
			r.CancelledBy = actor.ID
		}
		r.CancellationReason = reason
		r.Status = StatusCancelled

	case !markAsCancelled && r.Status == StatusCancelled && rules.RestoreOnCorrectCancelled:
		// Un-cancel: submissions only.
		entry.StatusChanged = &StatusChange{From: StatusCancelled, To: StatusPending}
		r.Status = StatusPending
	}

	r.CorrectionHistory = append(r.CorrectionHistory, entry)
	at := now
	r.EditedAt = &at
	r.EditedBy = actor.ID

	if err := m.persist(ctx, r, prev, now); err != nil {
		return err
	}

	if actor.ID != r.SubmittedBy {
		m.notify(ctx, r, StageCorrected, actor.ID, reason)
	}
	return nil
}

// applyDiff writes genuinely-changed fields into the entry and onto the
// document. Fields whose incoming value equals the stored one are left
// untouched and unrecorded.
func applyDiff(entry *CorrectionEntry, data CorrectionData, r *Request) {
	if data.Supervisor != nil && *data.Supervisor != r.Supervisor {
		entry.Changes["supervisor"] = FieldChange{From: string(r.Supervisor), To: string(*data.Supervisor)}
		r.Supervisor = *data.Supervisor
	}
	if data.Hours != nil && !data.Hours.Equal(r.Hours) {
		entry.Changes["hours"] = FieldChange{From: r.Hours.String(), To: data.Hours.String()}
		r.Hours = *data.Hours
	}
	if data.Reason != nil && *data.Reason != r.Reason {
		entry.Changes["reason"] = FieldChange{From: r.Reason, To: *data.Reason}
		r.Reason = *data.Reason
	}
	if data.Payment != nil && *data.Payment != r.Payment {
		entry.Changes["payment"] = FieldChange{From: renderBool(r.Payment), To: renderBool(*data.Payment)}
		r.Payment = *data.Payment
	}
	if data.ScheduledDayOff != nil && !sameDay(data.ScheduledDayOff, r.ScheduledDayOff) {
		entry.Changes["scheduledDayOff"] = FieldChange{From: renderDay(r.ScheduledDayOff), To: renderDay(data.ScheduledDayOff)}
		d := *data.ScheduledDayOff
		r.ScheduledDayOff = &d
	}
	if data.WorkStart != nil && !sameInstant(data.WorkStart, r.WorkStart) {
		entry.Changes["workStartTime"] = FieldChange{From: renderInstant(r.WorkStart), To: renderInstant(data.WorkStart)}
		t := *data.WorkStart
		r.WorkStart = &t
	}
	if data.WorkEnd != nil && !sameInstant(data.WorkEnd, r.WorkEnd) {
		entry.Changes["workEndTime"] = FieldChange{From: renderInstant(r.WorkEnd), To: renderInstant(data.WorkEnd)}
		t := *data.WorkEnd
		r.WorkEnd = &t
	}
	if data.Date != nil && !sameDay(data.Date, r.Date) {
		entry.Changes["date"] = FieldChange{From: renderDay(r.Date), To: renderDay(data.Date)}
		d := *data.Date
		r.Date = &d
	}
}

func renderBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func renderInstant(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func sameDay(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
