/*
bulk.go - Applying one transition across many requests

PURPOSE:
  Bulk operations load all targets once, evaluate the same per-item
  guards as the single-request machine independently, apply the eligible
  items and skip the rest silently. Partial success is success: the
  result reports how many of the requested items were applied. Only a
  batch where nothing qualified is an error.

QUOTA ACROSS A BATCH:
  For payout approvals the caller's quota is fetched once and decremented
  in memory as items are fast-path approved, so later items in the same
  batch see the consumption of earlier ones. Iteration order is input
  order.

FAILURE ISOLATION:
  A storage fault on one item is logged and counted as skipped; it never
  aborts the remainder. Notification failures are already swallowed
  inside the machine.
*/
package overtime

import (
	"context"

	"go.uber.org/zap"
)

// BulkResult reports aggregate application of a bulk operation.
type BulkResult struct {
	Applied int
	Total   int
}

// BulkApprove approves every eligible request in ids, in input order.
func (m *Machine) BulkApprove(ctx context.Context, actor Actor, ids []string) (BulkResult, error) {
	requests, err := m.Store.FindRequests(ctx, ids)
	if err != nil {
		return BulkResult{}, opErr("bulkApprove", err)
	}

	var qs quotaState
	res := BulkResult{Total: len(ids)}
	for _, r := range requests {
		if _, err := m.approveLoaded(ctx, actor, r, &qs); err != nil {
			m.skip(ctx, "bulkApprove", r.ID, err)
			continue
		}
		res.Applied++
	}
	if res.Applied == 0 {
		return res, ErrNoEligibleRequests
	}
	return res, nil
}

// BulkReject rejects every eligible request with the shared reason.
func (m *Machine) BulkReject(ctx context.Context, actor Actor, ids []string, reason string) (BulkResult, error) {
	if reason == "" {
		return BulkResult{}, ErrReasonRequired
	}
	requests, err := m.Store.FindRequests(ctx, ids)
	if err != nil {
		return BulkResult{}, opErr("bulkReject", err)
	}

	res := BulkResult{Total: len(ids)}
	for _, r := range requests {
		if err := m.rejectLoaded(ctx, actor, r, reason); err != nil {
			m.skip(ctx, "bulkReject", r.ID, err)
			continue
		}
		res.Applied++
	}
	if res.Applied == 0 {
		return res, ErrNoEligibleRequests
	}
	return res, nil
}

// BulkMarkAsAccounted settles every eligible approved request.
func (m *Machine) BulkMarkAsAccounted(ctx context.Context, actor Actor, ids []string) (BulkResult, error) {
	requests, err := m.Store.FindRequests(ctx, ids)
	if err != nil {
		return BulkResult{}, opErr("bulkMarkAsAccounted", err)
	}

	res := BulkResult{Total: len(ids)}
	for _, r := range requests {
		if err := m.accountLoaded(ctx, actor, r); err != nil {
			m.skip(ctx, "bulkMarkAsAccounted", r.ID, err)
			continue
		}
		res.Applied++
	}
	if res.Applied == 0 {
		return res, ErrNoEligibleRequests
	}
	return res, nil
}

// BulkCancel withdraws every eligible request of the caller.
func (m *Machine) BulkCancel(ctx context.Context, actor Actor, ids []string) (BulkResult, error) {
	requests, err := m.Store.FindRequests(ctx, ids)
	if err != nil {
		return BulkResult{}, opErr("bulkCancel", err)
	}

	res := BulkResult{Total: len(ids)}
	for _, r := range requests {
		if err := m.cancelLoaded(ctx, actor, r, ""); err != nil {
			m.skip(ctx, "bulkCancel", r.ID, err)
			continue
		}
		res.Applied++
	}
	if res.Applied == 0 {
		return res, ErrNoEligibleRequests
	}
	return res, nil
}

// skip logs a non-client per-item failure; guard misses stay silent.
func (m *Machine) skip(ctx context.Context, op, id string, err error) {
	if IsClientError(err) || IsNotFound(err) {
		return
	}
	m.log().Warn("bulk item skipped on storage fault",
		zap.String("op", op), zap.String("request", id), zap.Error(err))
}
