package overtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/overtime-engine/overtime"
)

func TestQuota_Limit(t *testing.T) {
	// 5 reports × 8h per employee.
	e := newTestEngine(t)

	quota, err := e.machine.Quota.Quota(context.Background(), "sup-1")
	require.NoError(t, err)
	assert.True(t, quota.Limit.Equal(decimal.NewFromInt(40)), "limit = %s", quota.Limit)
	assert.True(t, quota.Used.IsZero())
	assert.True(t, quota.Remaining.Equal(decimal.NewFromInt(40)))
}

func TestQuota_UnknownSupervisor_ZeroLimit(t *testing.T) {
	e := newTestEngine(t)

	quota, err := e.machine.Quota.Quota(context.Background(), "nobody")
	require.NoError(t, err)
	assert.True(t, quota.Limit.IsZero())
}

func TestQuota_NoConfiguration_ZeroLimit(t *testing.T) {
	e := newTestEngine(t)
	e.machine.Quota.HoursPerEmployee = decimal.Zero

	quota, err := e.machine.Quota.Quota(context.Background(), "sup-1")
	require.NoError(t, err)
	assert.True(t, quota.Limit.IsZero())
}

func TestQuota_UsedCombinesOrdersAndWithdrawals(t *testing.T) {
	// GIVEN: A fast-path order of 10h and a fast-path withdrawal of -4h
	//        both stamped this month
	// WHEN: Usage is computed
	// THEN: used = 10 + |-4| = 14
	e := newTestEngine(t)
	e.seedFastPathUsage(t, 10)

	approvedAt := testNow.Add(-24 * time.Hour)
	w := e.insertSubmission(t, withPayment(), withHours(-4), withSubmitter("emp-3"))
	w.Status = overtime.StatusApproved
	w.SupervisorFinalApproval = true
	w.SupervisorApprovedAt = &approvedAt
	w.SupervisorApprovedBy = "sup-1"
	w.ApprovedAt = &approvedAt
	w.ApprovedBy = "sup-1"
	require.NoError(t, e.store.UpdateRequest(context.Background(), w, overtime.StatusPending))

	quota, err := e.machine.Quota.Quota(context.Background(), "sup-1")
	require.NoError(t, err)
	assert.True(t, quota.Used.Equal(decimal.NewFromInt(14)), "used = %s", quota.Used)
	assert.True(t, quota.Remaining.Equal(decimal.NewFromInt(26)))
}

func TestQuota_EscalatedApprovalsDoNotCount(t *testing.T) {
	// An order approved through the plant manager consumed no delegation.
	e := newTestEngine(t)
	e.machine.Quota.HoursPerEmployee = decimal.Zero
	r := e.insertOrder(t, withPayment(), withHours(6))
	_, err := e.machine.Approve(context.Background(), actorSup, r.ID)
	require.NoError(t, err)
	_, err = e.machine.Approve(context.Background(), actorPM, r.ID)
	require.NoError(t, err)

	e.machine.Quota.HoursPerEmployee = decimal.NewFromInt(8)
	quota, err := e.machine.Quota.Quota(context.Background(), "sup-1")
	require.NoError(t, err)
	assert.True(t, quota.Used.IsZero(), "used = %s", quota.Used)
}

func TestQuota_PreviousMonthDoesNotCount(t *testing.T) {
	// The window resets at local midnight on day 1.
	e := newTestEngine(t)
	lastMonth := testNow.AddDate(0, -1, 0)
	r := e.insertOrder(t, withPayment(), withHours(10), withSubmitter("emp-2"))
	r.Status = overtime.StatusApproved
	r.SupervisorFinalApproval = true
	r.SupervisorApprovedAt = &lastMonth
	r.SupervisorApprovedBy = "sup-1"
	r.ApprovedAt = &lastMonth
	r.ApprovedBy = "sup-1"
	require.NoError(t, e.store.UpdateRequest(context.Background(), r, overtime.StatusPending))

	quota, err := e.machine.Quota.Quota(context.Background(), "sup-1")
	require.NoError(t, err)
	assert.True(t, quota.Used.IsZero())
}

func TestMonthWindow(t *testing.T) {
	at := time.Date(2026, time.March, 17, 15, 42, 0, 0, time.Local)
	from, to := overtime.MonthWindow(at)
	assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.Local), from)
	assert.Equal(t, time.Date(2026, time.April, 1, 0, 0, 0, 0, time.Local), to)
}

func TestSupervisorQuota_Fits(t *testing.T) {
	q := overtime.SupervisorQuota{
		Limit:     decimal.NewFromInt(40),
		Used:      decimal.NewFromInt(35),
		Remaining: decimal.NewFromInt(5),
	}
	assert.True(t, q.Fits(decimal.NewFromInt(5)))
	assert.False(t, q.Fits(decimal.NewFromInt(6)))
	// Withdrawals are negative; their magnitude is what must fit.
	assert.True(t, q.Fits(decimal.NewFromInt(-5)))
	assert.False(t, q.Fits(decimal.NewFromInt(-6)))
}
