/*
quota.go - Supervisor monthly payout-approval quota

PURPOSE:
  A supervisor may grant FINAL approval to payout requests directly
  (skipping the plant-manager stage) as long as the hours fit within a
  monthly delegated budget:

    limit     = subordinate headcount × configured hours per employee
    used      = fast-path hours already approved this calendar month
    remaining = limit - used

  A limit of zero means "no delegated authority": every payout this
  supervisor touches escalates to the plant manager. That is the
  deliberate behavior when configuration is absent, non-positive, or the
  supervisor cannot be resolved in the directory.

USED HOURS:
  Two independent sources count, both restricted to status approved or
  accounted with the approval stamp inside the current month:
  - orders the supervisor fast-path approved (supervisorFinalApproval)
  - payout-withdrawal submissions (absolute value of negative hours)

  The month boundary is local midnight on day 1. Usage is recomputed on
  every call; it is never cached.

SEE ALSO:
  - machine.go: The fast-path decision point
  - bulk.go: In-memory decrement across a batch
*/
package overtime

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// QuotaCalculator derives SupervisorQuota values on demand.
type QuotaCalculator struct {
	Store     RequestStore
	Directory EmployeeDirectory

	// HoursPerEmployee comes from configuration. Zero or negative
	// disables delegation entirely.
	HoursPerEmployee decimal.Decimal

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

func (q *QuotaCalculator) now() time.Time {
	if q.Now != nil {
		return q.Now()
	}
	return time.Now()
}

// MonthlyLimit computes headcount × hours-per-employee. Returns zero when
// the supervisor is unknown or configuration is missing/non-positive.
func (q *QuotaCalculator) MonthlyLimit(ctx context.Context, supervisor Identity) (decimal.Decimal, error) {
	if !q.HoursPerEmployee.IsPositive() {
		return decimal.Zero, nil
	}
	if _, err := q.Directory.FindEmployee(ctx, supervisor); err != nil {
		if errors.Is(err, ErrNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	n, err := q.Directory.CountReports(ctx, supervisor)
	if err != nil {
		return decimal.Zero, err
	}
	return q.HoursPerEmployee.Mul(decimal.NewFromInt(int64(n))), nil
}

// UsedThisMonth sums the supervisor's fast-path approvals inside the
// current calendar month.
func (q *QuotaCalculator) UsedThisMonth(ctx context.Context, supervisor Identity) (decimal.Decimal, error) {
	from, to := MonthWindow(q.now())
	return q.Store.UsedQuotaHours(ctx, supervisor, from, to)
}

// Quota returns the derived triple for one supervisor.
func (q *QuotaCalculator) Quota(ctx context.Context, supervisor Identity) (SupervisorQuota, error) {
	limit, err := q.MonthlyLimit(ctx, supervisor)
	if err != nil {
		return SupervisorQuota{}, err
	}
	used, err := q.UsedThisMonth(ctx, supervisor)
	if err != nil {
		return SupervisorQuota{}, err
	}
	return SupervisorQuota{Limit: limit, Used: used, Remaining: limit.Sub(used)}, nil
}

// MonthWindow returns [first day of t's month, first day of the next
// month) at local midnight.
func MonthWindow(t time.Time) (from, to time.Time) {
	from = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return from, from.AddDate(0, 1, 0)
}
