package overtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/overtime-engine/notify"
	"github.com/warp/overtime-engine/overtime"
	"github.com/warp/overtime-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.Local)

type engine struct {
	store    *sqlite.Store
	machine  *overtime.Machine
	recorder *notify.Recorder
}

// newTestEngine wires a machine against an in-memory store with a fixed
// clock and a 40h monthly quota for supervisor sup-1 (5 reports × 8h).
func newTestEngine(t *testing.T) *engine {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	require.NoError(t, store.SaveEmployee(ctx, overtime.Employee{ID: "sup-1", Name: "Supervisor One"}))
	for _, id := range []string{"emp-1", "emp-2", "emp-3", "emp-4", "emp-5"} {
		require.NoError(t, store.SaveEmployee(ctx, overtime.Employee{
			ID: overtime.Identity(id), Name: "Employee " + id, ManagerID: "sup-1",
		}))
	}

	recorder := &notify.Recorder{}
	quota := &overtime.QuotaCalculator{
		Store:            store,
		Directory:        store,
		HoursPerEmployee: decimal.NewFromInt(8),
		Now:              func() time.Time { return testNow },
	}
	machine := &overtime.Machine{
		Store:     store,
		Directory: store,
		Quota:     quota,
		Notifier:  recorder,
		Log:       zap.NewNop(),
		Now:       func() time.Time { return testNow },
	}
	return &engine{store: store, machine: machine, recorder: recorder}
}

var (
	actorAdmin = overtime.Actor{ID: "admin-1", Roles: []overtime.Role{overtime.RoleAdmin}}
	actorHR    = overtime.Actor{ID: "hr-1", Roles: []overtime.Role{overtime.RoleHR}}
	actorPM    = overtime.Actor{ID: "pm-1", Roles: []overtime.Role{overtime.RolePlantManager}}
	actorSup   = overtime.Actor{ID: "sup-1", Roles: []overtime.Role{overtime.RoleManager}}
	actorEmp   = overtime.Actor{ID: "emp-1"}
)

type option func(*overtime.Request)

func withStatus(s overtime.Status) option { return func(r *overtime.Request) { r.Status = s } }
func withPayment() option                 { return func(r *overtime.Request) { r.Payment = true } }
func withHours(h float64) option {
	return func(r *overtime.Request) { r.Hours = decimal.NewFromFloat(h) }
}
func withSupervisor(id overtime.Identity) option {
	return func(r *overtime.Request) { r.Supervisor = id }
}
func withSubmitter(id overtime.Identity) option {
	return func(r *overtime.Request) { r.SubmittedBy = id; r.CreatedBy = id }
}
func withInternalID(id string) option { return func(r *overtime.Request) { r.InternalID = id } }
func withCreatedAt(at time.Time) option {
	return func(r *overtime.Request) { r.CreatedAt = at; r.UpdatedAt = at }
}

func (e *engine) insertOrder(t *testing.T, opts ...option) *overtime.Request {
	t.Helper()
	start := testNow.Add(-4 * time.Hour)
	end := testNow.Add(-2 * time.Hour)
	r := &overtime.Request{
		ID:          uuid.NewString(),
		Kind:        overtime.KindOrder,
		InternalID:  uuid.NewString()[:8] + "/26",
		SubmittedBy: "emp-1",
		CreatedBy:   "sup-1",
		Supervisor:  "sup-1",
		Status:      overtime.StatusPending,
		Hours:       decimal.NewFromInt(2),
		WorkStart:   &start,
		WorkEnd:     &end,
		Reason:      "line backlog",
		CreatedAt:   testNow,
		UpdatedAt:   testNow,
	}
	for _, o := range opts {
		o(r)
	}
	require.NoError(t, e.store.InsertRequest(context.Background(), r))
	return r
}

func (e *engine) insertSubmission(t *testing.T, opts ...option) *overtime.Request {
	t.Helper()
	day := testNow.AddDate(0, 0, -1)
	r := &overtime.Request{
		ID:          uuid.NewString(),
		Kind:        overtime.KindSubmission,
		InternalID:  uuid.NewString()[:8] + "/26",
		SubmittedBy: "emp-1",
		CreatedBy:   "emp-1",
		Supervisor:  "sup-1",
		Status:      overtime.StatusPending,
		Hours:       decimal.NewFromInt(3),
		Date:        &day,
		Reason:      "weekend maintenance",
		CreatedAt:   testNow,
		UpdatedAt:   testNow,
	}
	for _, o := range opts {
		o(r)
	}
	require.NoError(t, e.store.InsertRequest(context.Background(), r))
	return r
}

// seedFastPathUsage inserts an already fast-path-approved order so that
// sup-1's quota usage for the current month equals hours.
func (e *engine) seedFastPathUsage(t *testing.T, hours float64) {
	t.Helper()
	approvedAt := testNow.Add(-48 * time.Hour)
	r := e.insertOrder(t, withPayment(), withHours(hours), withSubmitter("emp-2"))
	r.Status = overtime.StatusApproved
	r.SupervisorFinalApproval = true
	r.SupervisorApprovedAt = &approvedAt
	r.SupervisorApprovedBy = "sup-1"
	r.ApprovedAt = &approvedAt
	r.ApprovedBy = "sup-1"
	require.NoError(t, e.store.UpdateRequest(context.Background(), r, overtime.StatusPending))
}

func (e *engine) reload(t *testing.T, id string) *overtime.Request {
	t.Helper()
	r, err := e.store.FindRequest(context.Background(), id)
	require.NoError(t, err)
	return r
}

// =============================================================================
// APPROVAL - TIME OFF (single stage)
// =============================================================================

func TestApprove_TimeOff_BySupervisor(t *testing.T) {
	// GIVEN: A pending non-payout order assigned to sup-1
	// WHEN: sup-1 approves
	// THEN: approved in one step, stamped, submitter notified
	e := newTestEngine(t)
	r := e.insertOrder(t)

	outcome, err := e.machine.Approve(context.Background(), actorSup, r.ID)
	require.NoError(t, err)
	assert.Equal(t, overtime.OutcomeApproved, outcome)

	got := e.reload(t, r.ID)
	assert.Equal(t, overtime.StatusApproved, got.Status)
	assert.Equal(t, overtime.Identity("sup-1"), got.ApprovedBy)
	require.NotNil(t, got.ApprovedAt)
	assert.False(t, got.SupervisorFinalApproval)

	sent := e.recorder.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, overtime.StageFinal, sent[0].Stage)
	assert.Equal(t, overtime.Identity("emp-1"), sent[0].To)
}

func TestApprove_TimeOff_ByHR(t *testing.T) {
	e := newTestEngine(t)
	r := e.insertSubmission(t)

	outcome, err := e.machine.Approve(context.Background(), actorHR, r.ID)
	require.NoError(t, err)
	assert.Equal(t, overtime.OutcomeApproved, outcome)
}

func TestApprove_Unauthorized(t *testing.T) {
	// GIVEN: A pending order supervised by sup-1
	// WHEN: An unrelated employee tries to approve
	// THEN: unauthorized, nothing changes
	e := newTestEngine(t)
	r := e.insertOrder(t)

	_, err := e.machine.Approve(context.Background(), overtime.Actor{ID: "emp-3"}, r.ID)
	assert.ErrorIs(t, err, overtime.ErrUnauthorized)
	assert.Equal(t, overtime.StatusPending, e.reload(t, r.ID).Status)
	assert.Empty(t, e.recorder.Sent())
}

func TestApprove_NotFound(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.machine.Approve(context.Background(), actorAdmin, "missing-id")
	assert.ErrorIs(t, err, overtime.ErrNotFound)
}

func TestApprove_Idempotence_SecondCallFails(t *testing.T) {
	// Approving twice must not double-stamp approvedAt.
	e := newTestEngine(t)
	r := e.insertOrder(t)

	_, err := e.machine.Approve(context.Background(), actorSup, r.ID)
	require.NoError(t, err)
	first := e.reload(t, r.ID)

	_, err = e.machine.Approve(context.Background(), actorSup, r.ID)
	assert.ErrorIs(t, err, overtime.ErrInvalidStatus)
	assert.Equal(t, first.ApprovedAt, e.reload(t, r.ID).ApprovedAt)
}

// =============================================================================
// APPROVAL - PAYOUT (quota fast path and escalation)
// =============================================================================

func TestApprove_Payout_QuotaFastPath(t *testing.T) {
	// GIVEN: sup-1 with limit 40, used 35
	// WHEN: sup-1 approves a pending 3h payout order
	// THEN: approved with supervisorFinalApproval, usage becomes 38
	e := newTestEngine(t)
	e.seedFastPathUsage(t, 35)
	r := e.insertOrder(t, withPayment(), withHours(3))

	outcome, err := e.machine.Approve(context.Background(), actorSup, r.ID)
	require.NoError(t, err)
	assert.Equal(t, overtime.OutcomeApproved, outcome)

	got := e.reload(t, r.ID)
	assert.Equal(t, overtime.StatusApproved, got.Status)
	assert.True(t, got.SupervisorFinalApproval)
	assert.Equal(t, overtime.Identity("sup-1"), got.SupervisorApprovedBy)

	quota, err := e.machine.Quota.Quota(context.Background(), "sup-1")
	require.NoError(t, err)
	assert.True(t, quota.Used.Equal(decimal.NewFromInt(38)), "used = %s", quota.Used)
}

func TestApprove_Payout_EscalatesOverQuota(t *testing.T) {
	// GIVEN: sup-1 with limit 40, used 35
	// WHEN: sup-1 approves a pending 10h payout order
	// THEN: escalated to pending-plant-manager, no final-approval flag
	e := newTestEngine(t)
	e.seedFastPathUsage(t, 35)
	r := e.insertOrder(t, withPayment(), withHours(10))

	outcome, err := e.machine.Approve(context.Background(), actorSup, r.ID)
	require.NoError(t, err)
	assert.Equal(t, overtime.OutcomeSupervisorApproved, outcome)

	got := e.reload(t, r.ID)
	assert.Equal(t, overtime.StatusPendingPlantManager, got.Status)
	assert.False(t, got.SupervisorFinalApproval)
	assert.Equal(t, overtime.Identity("sup-1"), got.SupervisorApprovedBy)
	assert.Nil(t, got.ApprovedAt)

	sent := e.recorder.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, overtime.StageSupervisor, sent[0].Stage)
}

func TestApprove_Payout_NoQuotaConfigured_AlwaysEscalates(t *testing.T) {
	// Zero hours-per-employee means zero delegated authority.
	e := newTestEngine(t)
	e.machine.Quota.HoursPerEmployee = decimal.Zero
	r := e.insertOrder(t, withPayment(), withHours(0.5))

	outcome, err := e.machine.Approve(context.Background(), actorSup, r.ID)
	require.NoError(t, err)
	assert.Equal(t, overtime.OutcomeSupervisorApproved, outcome)
	assert.Equal(t, overtime.StatusPendingPlantManager, e.reload(t, r.ID).Status)
}

func TestApprove_Payout_ByPlantManager_SingleStep(t *testing.T) {
	// A plant manager approving a pending payout collapses both stages.
	e := newTestEngine(t)
	r := e.insertOrder(t, withPayment(), withHours(12))

	outcome, err := e.machine.Approve(context.Background(), actorPM, r.ID)
	require.NoError(t, err)
	assert.Equal(t, overtime.OutcomeApproved, outcome)

	got := e.reload(t, r.ID)
	assert.Equal(t, overtime.StatusApproved, got.Status)
	assert.Equal(t, overtime.Identity("pm-1"), got.SupervisorApprovedBy)
	assert.Equal(t, overtime.Identity("pm-1"), got.PlantManagerApprovedBy)
	assert.Equal(t, overtime.Identity("pm-1"), got.ApprovedBy)
	assert.False(t, got.SupervisorFinalApproval)
}

func TestApprove_PendingPlantManager_Stage2(t *testing.T) {
	// GIVEN: An escalated payout
	// WHEN: The plant manager signs off
	// THEN: approved with both the stage-2 and final stamps
	e := newTestEngine(t)
	e.machine.Quota.HoursPerEmployee = decimal.Zero
	r := e.insertOrder(t, withPayment(), withHours(6))
	_, err := e.machine.Approve(context.Background(), actorSup, r.ID)
	require.NoError(t, err)

	outcome, err := e.machine.Approve(context.Background(), actorPM, r.ID)
	require.NoError(t, err)
	assert.Equal(t, overtime.OutcomePlantManagerApproved, outcome)

	got := e.reload(t, r.ID)
	assert.Equal(t, overtime.StatusApproved, got.Status)
	assert.Equal(t, overtime.Identity("sup-1"), got.SupervisorApprovedBy)
	assert.Equal(t, overtime.Identity("pm-1"), got.PlantManagerApprovedBy)
}

func TestApprove_PendingPlantManager_SupervisorCannot(t *testing.T) {
	e := newTestEngine(t)
	r := e.insertOrder(t, withPayment(), withStatus(overtime.StatusPendingPlantManager))

	_, err := e.machine.Approve(context.Background(), actorSup, r.ID)
	assert.ErrorIs(t, err, overtime.ErrUnauthorized)
}

// =============================================================================
// LATEST SUPERVISOR
// =============================================================================

func TestApprove_LatestSupervisor_ExtendsRights(t *testing.T) {
	// GIVEN: An old pending order still naming sup-1, while emp-1's most
	//        recent order names sup-2
	// WHEN: sup-2 approves the old order
	// THEN: allowed, the newest assignment wins
	e := newTestEngine(t)
	require.NoError(t, e.store.SaveEmployee(context.Background(),
		overtime.Employee{ID: "sup-2", Name: "Supervisor Two"}))

	old := e.insertOrder(t, withCreatedAt(testNow.Add(-72*time.Hour)))
	e.insertOrder(t, withSupervisor("sup-2"), withCreatedAt(testNow))

	actorSup2 := overtime.Actor{ID: "sup-2", Roles: []overtime.Role{overtime.RoleManager}}
	outcome, err := e.machine.Approve(context.Background(), actorSup2, old.ID)
	require.NoError(t, err)
	assert.Equal(t, overtime.OutcomeApproved, outcome)
}

func TestApprove_StaleSupervisor_NoLongerLatest_StillAssigned(t *testing.T) {
	// The assigned supervisor keeps rights on their own request even
	// after a newer request names someone else.
	e := newTestEngine(t)
	old := e.insertOrder(t, withCreatedAt(testNow.Add(-72*time.Hour)))
	e.insertOrder(t, withSupervisor("sup-2"), withCreatedAt(testNow))

	_, err := e.machine.Approve(context.Background(), actorSup, old.ID)
	require.NoError(t, err)
}

// =============================================================================
// REJECTION
// =============================================================================

func TestReject_ByAdmin_SetsReasonAndNotifies(t *testing.T) {
	// GIVEN: A pending submission
	// WHEN: An admin rejects with a reason
	// THEN: rejected with stamps and reason, submitter notified
	e := newTestEngine(t)
	r := e.insertSubmission(t)

	err := e.machine.Reject(context.Background(), actorAdmin, r.ID, "insufficient justification")
	require.NoError(t, err)

	got := e.reload(t, r.ID)
	assert.Equal(t, overtime.StatusRejected, got.Status)
	assert.Equal(t, "insufficient justification", got.RejectionReason)
	assert.Equal(t, overtime.Identity("admin-1"), got.RejectedBy)
	require.NotNil(t, got.RejectedAt)

	sent := e.recorder.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, overtime.StageRejected, sent[0].Stage)
}

func TestReject_ReasonRequired(t *testing.T) {
	e := newTestEngine(t)
	r := e.insertOrder(t)

	err := e.machine.Reject(context.Background(), actorAdmin, r.ID, "")
	assert.ErrorIs(t, err, overtime.ErrReasonRequired)
	assert.Equal(t, overtime.StatusPending, e.reload(t, r.ID).Status)
}

func TestReject_Stage2_OrderByHR_Unauthorized(t *testing.T) {
	// Orders at stage 2 are rejected by the plant manager or an admin;
	// HR has no say there.
	e := newTestEngine(t)
	r := e.insertOrder(t, withPayment(), withStatus(overtime.StatusPendingPlantManager))

	err := e.machine.Reject(context.Background(), actorHR, r.ID, "not needed")
	assert.ErrorIs(t, err, overtime.ErrUnauthorized)
}

func TestReject_Stage2_SubmissionByHR_Allowed(t *testing.T) {
	e := newTestEngine(t)
	r := e.insertSubmission(t, withPayment(), withStatus(overtime.StatusPendingPlantManager))

	err := e.machine.Reject(context.Background(), actorHR, r.ID, "duplicate claim")
	require.NoError(t, err)
	assert.Equal(t, overtime.StatusRejected, e.reload(t, r.ID).Status)
}

func TestReject_Approved_InvalidStatus(t *testing.T) {
	e := newTestEngine(t)
	r := e.insertOrder(t, withStatus(overtime.StatusApproved))

	err := e.machine.Reject(context.Background(), actorAdmin, r.ID, "too late")
	assert.ErrorIs(t, err, overtime.ErrInvalidStatus)
}

// =============================================================================
// ACCOUNTING
// =============================================================================

func TestMarkAsAccounted_FromApproved(t *testing.T) {
	e := newTestEngine(t)
	r := e.insertOrder(t, withStatus(overtime.StatusApproved))

	require.NoError(t, e.machine.MarkAsAccounted(context.Background(), actorHR, r.ID))

	got := e.reload(t, r.ID)
	assert.Equal(t, overtime.StatusAccounted, got.Status)
	assert.Equal(t, overtime.Identity("hr-1"), got.AccountedBy)
}

func TestMarkAsAccounted_FromPending_InvalidStatus(t *testing.T) {
	// pending → accounted is not an edge of the machine.
	e := newTestEngine(t)
	r := e.insertOrder(t)

	err := e.machine.MarkAsAccounted(context.Background(), actorHR, r.ID)
	assert.ErrorIs(t, err, overtime.ErrInvalidStatus)
}

func TestMarkAsAccounted_SupervisorCannot(t *testing.T) {
	e := newTestEngine(t)
	r := e.insertOrder(t, withStatus(overtime.StatusApproved))

	err := e.machine.MarkAsAccounted(context.Background(), actorSup, r.ID)
	assert.ErrorIs(t, err, overtime.ErrUnauthorized)
}

// =============================================================================
// CANCELLATION
// =============================================================================

func TestCancel_ByRequester_FromPending(t *testing.T) {
	e := newTestEngine(t)
	r := e.insertSubmission(t)

	require.NoError(t, e.machine.Cancel(context.Background(), actorEmp, r.ID, "filed by mistake"))

	got := e.reload(t, r.ID)
	assert.Equal(t, overtime.StatusCancelled, got.Status)
	assert.Equal(t, "filed by mistake", got.CancellationReason)
	assert.Equal(t, overtime.Identity("emp-1"), got.CancelledBy)
}

func TestCancel_AfterApproval_CannotCancel(t *testing.T) {
	e := newTestEngine(t)
	r := e.insertSubmission(t, withStatus(overtime.StatusApproved))

	err := e.machine.Cancel(context.Background(), actorEmp, r.ID, "")
	assert.ErrorIs(t, err, overtime.ErrCannotCancel)
}

func TestCancel_ByStranger_Unauthorized(t *testing.T) {
	e := newTestEngine(t)
	r := e.insertSubmission(t)

	err := e.machine.Cancel(context.Background(), overtime.Actor{ID: "emp-4"}, r.ID, "")
	assert.ErrorIs(t, err, overtime.ErrUnauthorized)
}

// =============================================================================
// CONVERT TO PAYOUT
// =============================================================================

func TestConvertToPayout_ApprovedSubmission(t *testing.T) {
	e := newTestEngine(t)
	r := e.insertSubmission(t, withStatus(overtime.StatusApproved))

	require.NoError(t, e.machine.ConvertToPayout(context.Background(), actorPM, r.ID))

	got := e.reload(t, r.ID)
	assert.Equal(t, overtime.StatusApproved, got.Status)
	assert.True(t, got.Payment)
	assert.Equal(t, overtime.Identity("pm-1"), got.PayoutConvertedBy)
	require.NotNil(t, got.PayoutConvertedAt)
}

func TestConvertToPayout_Order_InvalidStatus(t *testing.T) {
	// Orders never convert.
	e := newTestEngine(t)
	r := e.insertOrder(t, withStatus(overtime.StatusApproved))

	err := e.machine.ConvertToPayout(context.Background(), actorPM, r.ID)
	assert.ErrorIs(t, err, overtime.ErrInvalidStatus)
}

func TestConvertToPayout_SupervisorCannot(t *testing.T) {
	e := newTestEngine(t)
	r := e.insertSubmission(t, withStatus(overtime.StatusApproved))

	err := e.machine.ConvertToPayout(context.Background(), actorSup, r.ID)
	assert.ErrorIs(t, err, overtime.ErrUnauthorized)
}

func TestConvertToPayout_AlreadyPayment_InvalidStatus(t *testing.T) {
	e := newTestEngine(t)
	r := e.insertSubmission(t, withPayment(), withStatus(overtime.StatusApproved))

	err := e.machine.ConvertToPayout(context.Background(), actorPM, r.ID)
	assert.ErrorIs(t, err, overtime.ErrInvalidStatus)
}

// =============================================================================
// SUPERVISOR SET SCHEDULED DAY OFF
// =============================================================================

func TestSetScheduledDayOff_ResolvesEscalation(t *testing.T) {
	// GIVEN: A payout submission escalated to the plant manager
	// WHEN: The supervisor offers a future day off instead
	// THEN: approved as time off, with a correction entry recording the
	//       payment flip, the day and the status change
	e := newTestEngine(t)
	r := e.insertSubmission(t, withPayment(), withStatus(overtime.StatusPendingPlantManager))
	day := testNow.AddDate(0, 0, 7)

	err := e.machine.SupervisorSetScheduledDayOff(context.Background(), actorSup, r.ID, day, "payout budget exhausted")
	require.NoError(t, err)

	got := e.reload(t, r.ID)
	assert.Equal(t, overtime.StatusApproved, got.Status)
	assert.False(t, got.Payment)
	require.NotNil(t, got.ScheduledDayOff)

	require.Len(t, got.CorrectionHistory, 1)
	entry := got.CorrectionHistory[0]
	assert.Equal(t, "payout budget exhausted", entry.Reason)
	require.NotNil(t, entry.StatusChanged)
	assert.Equal(t, overtime.StatusPendingPlantManager, entry.StatusChanged.From)
	assert.Equal(t, overtime.StatusApproved, entry.StatusChanged.To)
	assert.Contains(t, entry.Changes, "payment")
	assert.Contains(t, entry.Changes, "scheduledDayOff")
}

func TestSetScheduledDayOff_PastDate(t *testing.T) {
	e := newTestEngine(t)
	r := e.insertSubmission(t, withPayment(), withStatus(overtime.StatusPendingPlantManager))

	err := e.machine.SupervisorSetScheduledDayOff(context.Background(), actorSup, r.ID,
		testNow.AddDate(0, 0, -1), "make-up day")
	assert.ErrorIs(t, err, overtime.ErrInvalidDate)
}

func TestSetScheduledDayOff_ReasonRequired(t *testing.T) {
	e := newTestEngine(t)
	r := e.insertSubmission(t, withPayment(), withStatus(overtime.StatusPendingPlantManager))

	err := e.machine.SupervisorSetScheduledDayOff(context.Background(), actorSup, r.ID,
		testNow.AddDate(0, 0, 7), "")
	assert.ErrorIs(t, err, overtime.ErrReasonRequired)
}

func TestSetScheduledDayOff_NotSupervisor(t *testing.T) {
	e := newTestEngine(t)
	r := e.insertSubmission(t, withPayment(), withStatus(overtime.StatusPendingPlantManager))

	err := e.machine.SupervisorSetScheduledDayOff(context.Background(), actorHR, r.ID,
		testNow.AddDate(0, 0, 7), "make-up day")
	assert.ErrorIs(t, err, overtime.ErrUnauthorized)
}

// =============================================================================
// DELETE
// =============================================================================

func TestDelete_AdminOnly(t *testing.T) {
	e := newTestEngine(t)
	r := e.insertOrder(t)

	err := e.machine.Delete(context.Background(), actorHR, r.ID)
	assert.ErrorIs(t, err, overtime.ErrUnauthorized)

	require.NoError(t, e.machine.Delete(context.Background(), actorAdmin, r.ID))
	_, err = e.store.FindRequest(context.Background(), r.ID)
	assert.ErrorIs(t, err, overtime.ErrNotFound)
}

func TestDelete_Accounted_Refused(t *testing.T) {
	e := newTestEngine(t)
	r := e.insertOrder(t, withStatus(overtime.StatusAccounted))

	err := e.machine.Delete(context.Background(), actorAdmin, r.ID)
	assert.ErrorIs(t, err, overtime.ErrInvalidStatus)
}

// =============================================================================
// NOTIFICATION FAILURES
// =============================================================================

func TestApprove_NotificationFailure_DoesNotFailTransition(t *testing.T) {
	e := newTestEngine(t)
	e.recorder.FailWith = assert.AnError
	r := e.insertOrder(t)

	_, err := e.machine.Approve(context.Background(), actorSup, r.ID)
	require.NoError(t, err)
	assert.Equal(t, overtime.StatusApproved, e.reload(t, r.ID).Status)
}
