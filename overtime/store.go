/*
store.go - Persistence interfaces for requests and the employee directory

PURPOSE:
  Defines the boundary between the approval engine and the database. The
  engine only needs document-store semantics: find one by id, insert,
  conditional update, delete, and a few aggregate sums. Implementations
  live under store/ (SQLite for production and tests via ":memory:").

CONDITIONAL UPDATES:
  UpdateRequest takes the status the engine read before computing the new
  document. The store applies the write only if the stored status still
  matches; otherwise it reports ErrConcurrentModification (or ErrNotFound
  if the id vanished). This closes the read-modify-write race without
  in-process locking.

SEE ALSO:
  - store/sqlite/sqlite.go: Concrete implementation
  - machine.go: The single consumer of these interfaces
*/
package overtime

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// REQUEST STORE
// =============================================================================

// RequestStore persists overtime requests of both kinds.
type RequestStore interface {
	// FindRequest returns the request or ErrNotFound.
	FindRequest(ctx context.Context, id string) (*Request, error)

	// FindRequests returns the subset of ids that exist, in input order.
	// Missing ids are silently dropped; bulk operations count them as
	// ineligible.
	FindRequests(ctx context.Context, ids []string) ([]*Request, error)

	// InsertRequest persists a new document. ErrDuplicateInternalID on a
	// (kind, internal id) collision.
	InsertRequest(ctx context.Context, r *Request) error

	// UpdateRequest overwrites the document only if its stored status
	// still equals expectStatus. ErrNotFound if the id vanished,
	// ErrConcurrentModification if the status moved underneath us.
	UpdateRequest(ctx context.Context, r *Request, expectStatus Status) error

	// DeleteRequest hard-deletes. Administrative use only; the engine
	// guards who may call it.
	DeleteRequest(ctx context.Context, id string) error

	// LatestBySubmitter returns the most recently created request of the
	// given kind by this submitter, or ErrNotFound. Used for the
	// latest-supervisor rule.
	LatestBySubmitter(ctx context.Context, kind Kind, submitter Identity) (*Request, error)

	// InternalIDs returns every internal id of the kind ending in the
	// given two-digit year suffix.
	InternalIDs(ctx context.Context, kind Kind, yearSuffix string) ([]string, error)

	// UsedQuotaHours sums the supervisor's fast-path consumption inside
	// [from, to): hours of orders approved with supervisorFinalApproval,
	// plus absolute hours of negative-hour submissions fast-path
	// approved. Only statuses approved and accounted count.
	UsedQuotaHours(ctx context.Context, supervisor Identity, from, to time.Time) (decimal.Decimal, error)

	// BalanceHours sums submission hours for the submitter over all
	// requests whose status is neither cancelled nor rejected.
	BalanceHours(ctx context.Context, submitter Identity) (decimal.Decimal, error)

	// PendingForSupervisor lists requests awaiting this supervisor's
	// stage-1 decision, oldest first.
	PendingForSupervisor(ctx context.Context, supervisor Identity) ([]*Request, error)

	// BySubmitter lists the submitter's requests, newest first.
	BySubmitter(ctx context.Context, submitter Identity) ([]*Request, error)
}

// =============================================================================
// EMPLOYEE DIRECTORY
// =============================================================================

// Employee is a directory record. ManagerID links subordinates to their
// supervisor for quota headcount.
type Employee struct {
	ID        Identity
	Name      string
	Email     string
	ManagerID Identity
}

// EmployeeDirectory resolves identities and reporting lines.
type EmployeeDirectory interface {
	// FindEmployee returns the record or ErrNotFound.
	FindEmployee(ctx context.Context, id Identity) (*Employee, error)

	// CountReports counts employees whose manager is the given identity.
	CountReports(ctx context.Context, manager Identity) (int, error)
}
