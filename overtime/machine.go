/*
machine.go - The approval state machine

PURPOSE:
  Implements every lifecycle transition shared by orders and submissions.
  Guards run before any write; the write itself is a single conditional
  document update keyed on the status the machine just read, so a lost
  race surfaces as ErrConcurrentModification instead of a double apply.

TRANSITION TABLE:
  pending ──approve──▶ approved                      (non-payout, stage 1)
  pending ──approve──▶ approved                      (payout, caller is PM/admin)
  pending ──approve──▶ approved + supervisorFinal    (payout, quota fast path)
  pending ──approve──▶ pending-plant-manager         (payout, quota exceeded)
  pending-plant-manager ──approve──▶ approved        (PM/admin)
  pending | pending-plant-manager ──reject──▶ rejected
  approved ──markAsAccounted──▶ accounted            (HR/admin)
  approved ──convertToPayout──▶ approved, payment=true (submissions, PM/admin)
  pending-plant-manager ──setScheduledDayOff──▶ approved, payment=false
  pending | pending-plant-manager ──cancel──▶ cancelled (requester)
  any except accounted ──delete──▶ (gone)            (admin)

STAMPS:
  Each {phase}At/{phase}By pair is written at most once. Approving an
  already-approved request returns ErrInvalidStatus; nothing is ever
  re-stamped.

NOTIFICATIONS:
  Emitted only after the update persisted. Failures are logged, never
  returned.

SEE ALSO:
  - capabilities.go: All permission checks
  - correction.go: The separate edit path
  - bulk.go: Batch application of these transitions
*/
package overtime

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// MACHINE
// =============================================================================

// Machine executes approval transitions against the store.
type Machine struct {
	Store     RequestStore
	Directory EmployeeDirectory
	Quota     *QuotaCalculator
	Notifier  Notifier
	Log       *zap.Logger

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

func (m *Machine) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *Machine) log() *zap.Logger {
	if m.Log != nil {
		return m.Log
	}
	return zap.NewNop()
}

// ApprovalOutcome tags which stage an approval landed on.
type ApprovalOutcome string

const (
	// OutcomeApproved: the request reached approved in this call.
	OutcomeApproved ApprovalOutcome = "approved"
	// OutcomeSupervisorApproved: stage 1 done, escalated to the plant
	// manager because quota did not cover the hours.
	OutcomeSupervisorApproved ApprovalOutcome = "supervisor-approved"
	// OutcomePlantManagerApproved: stage-2 sign-off completed the
	// approval.
	OutcomePlantManagerApproved ApprovalOutcome = "plant-manager-approved"
)

// quotaState carries a caller's quota across a batch so in-batch
// approvals see cumulative consumption before anything is re-read.
type quotaState struct {
	quota  SupervisorQuota
	loaded bool
}

func (m *Machine) loadQuota(ctx context.Context, qs *quotaState, supervisor Identity) error {
	if qs.loaded {
		return nil
	}
	q, err := m.Quota.Quota(ctx, supervisor)
	if err != nil {
		return err
	}
	qs.quota = q
	qs.loaded = true
	return nil
}

// =============================================================================
// APPROVE
// =============================================================================

// Approve advances the request one approval stage on behalf of the actor.
func (m *Machine) Approve(ctx context.Context, actor Actor, id string) (ApprovalOutcome, error) {
	r, err := m.Store.FindRequest(ctx, id)
	if err != nil {
		return "", opErr("approve", err)
	}
	var qs quotaState
	outcome, err := m.approveLoaded(ctx, actor, r, &qs)
	return outcome, opErr("approve", err)
}

func (m *Machine) approveLoaded(ctx context.Context, actor Actor, r *Request, qs *quotaState) (ApprovalOutcome, error) {
	now := m.now()

	switch r.Status {
	case StatusPending:
		if !m.canDecideStage1(ctx, actor, r) {
			return "", ErrUnauthorized
		}

		if !r.Payment {
			// Single-stage time-off approval.
			m.stampApproved(r, actor.ID, now)
			r.Status = StatusApproved
			if err := m.persist(ctx, r, StatusPending, now); err != nil {
				return "", err
			}
			m.notify(ctx, r, StageFinal, actor.ID, "")
			return OutcomeApproved, nil
		}

		if canDecideStage2(actor) {
			// A plant manager or admin approving a payout collapses both
			// stages into one call.
			m.stampSupervisorApproved(r, actor.ID, now)
			m.stampPlantManagerApproved(r, actor.ID, now)
			m.stampApproved(r, actor.ID, now)
			r.Status = StatusApproved
			if err := m.persist(ctx, r, StatusPending, now); err != nil {
				return "", err
			}
			m.notify(ctx, r, StageFinal, actor.ID, "")
			return OutcomeApproved, nil
		}

		// Quota fast path: the supervisor may finalize directly when the
		// hours fit within their remaining monthly budget.
		if err := m.loadQuota(ctx, qs, actor.ID); err != nil {
			return "", err
		}
		if qs.quota.Fits(r.Hours) {
			m.stampSupervisorApproved(r, actor.ID, now)
			m.stampApproved(r, actor.ID, now)
			r.SupervisorFinalApproval = true
			r.Status = StatusApproved
			if err := m.persist(ctx, r, StatusPending, now); err != nil {
				return "", err
			}
			qs.quota.Used = qs.quota.Used.Add(r.Hours.Abs())
			qs.quota.Remaining = qs.quota.Remaining.Sub(r.Hours.Abs())
			m.notify(ctx, r, StageFinal, actor.ID, "")
			return OutcomeApproved, nil
		}

		// Over quota: escalate.
		m.stampSupervisorApproved(r, actor.ID, now)
		r.Status = StatusPendingPlantManager
		if err := m.persist(ctx, r, StatusPending, now); err != nil {
			return "", err
		}
		m.notify(ctx, r, StageSupervisor, actor.ID, "")
		return OutcomeSupervisorApproved, nil

	case StatusPendingPlantManager:
		if !canDecideStage2(actor) {
			return "", ErrUnauthorized
		}
		m.stampPlantManagerApproved(r, actor.ID, now)
		m.stampApproved(r, actor.ID, now)
		r.Status = StatusApproved
		if err := m.persist(ctx, r, StatusPendingPlantManager, now); err != nil {
			return "", err
		}
		m.notify(ctx, r, StageFinal, actor.ID, "")
		return OutcomePlantManagerApproved, nil

	default:
		return "", ErrInvalidStatus
	}
}

// =============================================================================
// REJECT
// =============================================================================

// Reject turns the request down with a mandatory reason.
func (m *Machine) Reject(ctx context.Context, actor Actor, id, reason string) error {
	if reason == "" {
		return ErrReasonRequired
	}
	r, err := m.Store.FindRequest(ctx, id)
	if err != nil {
		return opErr("reject", err)
	}
	return opErr("reject", m.rejectLoaded(ctx, actor, r, reason))
}

func (m *Machine) rejectLoaded(ctx context.Context, actor Actor, r *Request, reason string) error {
	rules, ok := RulesFor(r.Kind)
	if !ok {
		return ErrInvalidStatus
	}

	switch r.Status {
	case StatusPending:
		if !m.canDecideStage1(ctx, actor, r) {
			return ErrUnauthorized
		}
	case StatusPendingPlantManager:
		if !canRejectStage2(actor, rules) {
			return ErrUnauthorized
		}
	default:
		return ErrInvalidStatus
	}

	now := m.now()
	prev := r.Status
	if r.RejectedAt == nil {
		at := now
		r.RejectedAt = &at
		r.RejectedBy = actor.ID
	}
	r.RejectionReason = reason
	r.Status = StatusRejected
	if err := m.persist(ctx, r, prev, now); err != nil {
		return err
	}
	m.notify(ctx, r, StageRejected, actor.ID, reason)
	return nil
}

// =============================================================================
// MARK AS ACCOUNTED
// =============================================================================

// MarkAsAccounted settles an approved request into payroll records.
func (m *Machine) MarkAsAccounted(ctx context.Context, actor Actor, id string) error {
	r, err := m.Store.FindRequest(ctx, id)
	if err != nil {
		return opErr("markAsAccounted", err)
	}
	return opErr("markAsAccounted", m.accountLoaded(ctx, actor, r))
}

func (m *Machine) accountLoaded(ctx context.Context, actor Actor, r *Request) error {
	if !canAccount(actor) {
		return ErrUnauthorized
	}
	if r.Status != StatusApproved {
		return ErrInvalidStatus
	}
	now := m.now()
	if r.AccountedAt == nil {
		at := now
		r.AccountedAt = &at
		r.AccountedBy = actor.ID
	}
	r.Status = StatusAccounted
	return m.persist(ctx, r, StatusApproved, now)
}

// =============================================================================
// CANCEL - requester-initiated withdrawal
// =============================================================================

// Cancel withdraws a request before any final decision. The reason is
// optional and stored verbatim when given.
func (m *Machine) Cancel(ctx context.Context, actor Actor, id, reason string) error {
	r, err := m.Store.FindRequest(ctx, id)
	if err != nil {
		return opErr("cancel", err)
	}
	return opErr("cancel", m.cancelLoaded(ctx, actor, r, reason))
}

func (m *Machine) cancelLoaded(ctx context.Context, actor Actor, r *Request, reason string) error {
	if !canCancel(actor, r) {
		return ErrUnauthorized
	}
	if r.Status != StatusPending && r.Status != StatusPendingPlantManager {
		return ErrCannotCancel
	}
	now := m.now()
	prev := r.Status
	if r.CancelledAt == nil {
		at := now
		r.CancelledAt = &at
		r.CancelledBy = actor.ID
	}
	r.CancellationReason = reason
	r.Status = StatusCancelled
	return m.persist(ctx, r, prev, now)
}

// =============================================================================
// CONVERT TO PAYOUT - submissions only
// =============================================================================

// ConvertToPayout flips an approved time-off submission (no scheduled day
// off yet) into a monetary payout.
func (m *Machine) ConvertToPayout(ctx context.Context, actor Actor, id string) error {
	r, err := m.Store.FindRequest(ctx, id)
	if err != nil {
		return opErr("convertToPayout", err)
	}

	rules, ok := RulesFor(r.Kind)
	if !ok || !rules.AllowPayoutConversion {
		return ErrInvalidStatus
	}
	if !canDecideStage2(actor) {
		return opErr("convertToPayout", ErrUnauthorized)
	}
	if r.Status != StatusApproved || r.Payment || r.ScheduledDayOff != nil {
		return opErr("convertToPayout", ErrInvalidStatus)
	}

	now := m.now()
	r.Payment = true
	if r.PayoutConvertedAt == nil {
		at := now
		r.PayoutConvertedAt = &at
		r.PayoutConvertedBy = actor.ID
	}
	return opErr("convertToPayout", m.persist(ctx, r, StatusApproved, now))
}

// =============================================================================
// SUPERVISOR SET SCHEDULED DAY OFF
// =============================================================================

// SupervisorSetScheduledDayOff resolves an escalated payout by granting a
// day off instead: payment flips to false, the day is set, the request is
// approved, and a correction entry records the whole change.
func (m *Machine) SupervisorSetScheduledDayOff(ctx context.Context, actor Actor, id string, day time.Time, reason string) error {
	if reason == "" {
		return ErrReasonRequired
	}
	now := m.now()
	if day.IsZero() || !day.After(now) {
		return ErrInvalidDate
	}

	r, err := m.Store.FindRequest(ctx, id)
	if err != nil {
		return opErr("supervisorSetScheduledDayOff", err)
	}
	if r.Status != StatusPendingPlantManager {
		return ErrInvalidStatus
	}
	if !m.isSupervisorOf(ctx, actor, r) {
		return ErrUnauthorized
	}

	entry := CorrectionEntry{
		CorrectedAt:   now,
		CorrectedBy:   actor.ID,
		Reason:        reason,
		StatusChanged: &StatusChange{From: r.Status, To: StatusApproved},
		Changes:       map[string]FieldChange{},
	}
	if r.Payment {
		entry.Changes["payment"] = FieldChange{From: "true", To: "false"}
	}
	entry.Changes["scheduledDayOff"] = FieldChange{
		From: renderDay(r.ScheduledDayOff),
		To:   day.Format("2006-01-02"),
	}

	r.Payment = false
	r.ScheduledDayOff = &day
	m.stampApproved(r, actor.ID, now)
	r.Status = StatusApproved
	r.CorrectionHistory = append(r.CorrectionHistory, entry)

	return opErr("supervisorSetScheduledDayOff",
		m.persist(ctx, r, StatusPendingPlantManager, now))
}

// =============================================================================
// DELETE - administrative hard delete
// =============================================================================

// Delete removes the request entirely. Accounted requests are kept
// forever.
func (m *Machine) Delete(ctx context.Context, actor Actor, id string) error {
	if !canDelete(actor) {
		return ErrUnauthorized
	}
	r, err := m.Store.FindRequest(ctx, id)
	if err != nil {
		return opErr("delete", err)
	}
	if r.Status == StatusAccounted {
		return ErrInvalidStatus
	}
	return opErr("delete", m.Store.DeleteRequest(ctx, r.ID))
}

// =============================================================================
// INTERNALS
// =============================================================================

func (m *Machine) persist(ctx context.Context, r *Request, expect Status, now time.Time) error {
	r.UpdatedAt = now
	return m.Store.UpdateRequest(ctx, r, expect)
}

func (m *Machine) stampApproved(r *Request, by Identity, at time.Time) {
	if r.ApprovedAt == nil {
		t := at
		r.ApprovedAt = &t
		r.ApprovedBy = by
	}
}

func (m *Machine) stampSupervisorApproved(r *Request, by Identity, at time.Time) {
	if r.SupervisorApprovedAt == nil {
		t := at
		r.SupervisorApprovedAt = &t
		r.SupervisorApprovedBy = by
	}
}

func (m *Machine) stampPlantManagerApproved(r *Request, by Identity, at time.Time) {
	if r.PlantManagerApprovedAt == nil {
		t := at
		r.PlantManagerApprovedAt = &t
		r.PlantManagerApprovedBy = by
	}
}

// notify emits a post-commit event. Failures are logged and swallowed.
func (m *Machine) notify(ctx context.Context, r *Request, stage Stage, actor Identity, reason string) {
	if m.Notifier == nil {
		return
	}
	n := Notification{
		To:         r.SubmittedBy,
		Stage:      stage,
		Kind:       r.Kind,
		RequestID:  r.ID,
		InternalID: r.InternalID,
		Actor:      actor,
		Reason:     reason,
	}
	if err := m.Notifier.Send(ctx, n); err != nil {
		m.log().Warn("notification send failed",
			zap.String("request", r.ID),
			zap.String("stage", string(stage)),
			zap.Error(err))
	}
}

func renderDay(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
