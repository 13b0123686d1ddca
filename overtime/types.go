/*
Package overtime provides the core overtime approval engine.

PURPOSE:
  This package contains the shared types and algorithms for tracking
  employee overtime and routing its compensation (paid out in money or
  scheduled as time off) through a multi-party approval workflow with
  quota-based delegation. Two request kinds share everything here:
  individual orders (manager-initiated, time-range based) and submissions
  (self-initiated, day-based, including payout withdrawals).

KEY CONCEPTS IN THIS FILE (types.go):
  - Request: An overtime claim with its full approval state
  - Status: Closed set of lifecycle states (see machine.go for edges)
  - Role/Actor: Closed role set and the caller identity
  - CorrectionEntry: Immutable audit record of an edit
  - KindRules: Per-kind knobs of the shared workflow

DESIGN PRINCIPLES:
  1. Closed enums: Status, Role and error kinds are exhaustive sets;
     switches over them are written to fail loudly on unknown values.
  2. Precision: Hours use decimal.Decimal, never float64.
  3. Append-only history: Correction entries are appended, never edited.
  4. Stamps written once: {phase}At / {phase}By fields are set exactly
     once per transition and never overwritten on replay.

USAGE:
  m := &overtime.Machine{Store: store, Directory: dir, Quota: quota, ...}
  outcome, err := m.Approve(ctx, actor, requestID)

SEE ALSO:
  - machine.go: The approval state machine
  - quota.go: Supervisor monthly payout quota
  - correction.go: Unified edit path with history
  - bulk.go: Multi-request coordination
*/
package overtime

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTITIES & ROLES
// =============================================================================

// Identity is an opaque caller or employee identifier. Authentication is
// out of scope; identities arrive already verified.
type Identity string

func (id Identity) IsZero() bool { return id == "" }

// Role is a closed set. There is deliberately no substring matching on
// role names anywhere in this package; capability checks go through
// capabilities.go.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleHR           Role = "hr"
	RolePlantManager Role = "plant-manager"
	RoleManager      Role = "manager"
	RoleTeamLeader   Role = "team-leader"
)

// KnownRoles lists every valid role, in no particular order.
var KnownRoles = []Role{RoleAdmin, RoleHR, RolePlantManager, RoleManager, RoleTeamLeader}

// ParseRole maps a string to a Role, reporting whether it is known.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	for _, k := range KnownRoles {
		if r == k {
			return r, true
		}
	}
	return "", false
}

// Actor is the authenticated caller: identity plus role set.
type Actor struct {
	ID    Identity
	Roles []Role
}

// HasRole reports whether the actor carries any of the given roles.
func (a Actor) HasRole(roles ...Role) bool {
	for _, have := range a.Roles {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// =============================================================================
// REQUEST KIND
// =============================================================================

// Kind discriminates the two request flavors sharing this engine.
type Kind string

const (
	// KindOrder is a manager-initiated overtime claim with an explicit
	// work time range.
	KindOrder Kind = "order"

	// KindSubmission is a self-initiated claim for a single day, or a
	// payout-withdrawal request against an accrued balance (negative
	// hours).
	KindSubmission Kind = "submission"
)

// KindRules captures the few places where the two kinds genuinely differ.
// The table is exhaustive and lives here so a new kind forces a review of
// every knob at once.
type KindRules struct {
	Kind Kind

	// Stage2Rejectors may reject a request sitting at pending-plant-manager.
	Stage2Rejectors []Role

	// CorrectorRole may correct at status pending or approved (admin is
	// always allowed separately, at any status except accounted).
	CorrectorRole Role

	// RestoreOnCorrectCancelled: correcting a cancelled request without
	// markAsCancelled restores it to pending. True only for submissions;
	// the asymmetry is intentional and tested.
	RestoreOnCorrectCancelled bool

	// AllowPayoutConversion: convertToPayout is a submission-only
	// operation.
	AllowPayoutConversion bool
}

var kindRules = map[Kind]KindRules{
	KindOrder: {
		Kind:                      KindOrder,
		Stage2Rejectors:           []Role{RolePlantManager, RoleAdmin},
		CorrectorRole:             RolePlantManager,
		RestoreOnCorrectCancelled: false,
		AllowPayoutConversion:     false,
	},
	KindSubmission: {
		Kind:                      KindSubmission,
		Stage2Rejectors:           []Role{RolePlantManager, RoleHR, RoleAdmin},
		CorrectorRole:             RoleHR,
		RestoreOnCorrectCancelled: true,
		AllowPayoutConversion:     true,
	},
}

// RulesFor returns the per-kind rule set. Unknown kinds do not exist in a
// well-formed store; callers treat the false return as corruption.
func RulesFor(kind Kind) (KindRules, bool) {
	r, ok := kindRules[kind]
	return r, ok
}

// =============================================================================
// STATUS - closed lifecycle set
// =============================================================================

type Status string

const (
	StatusPending             Status = "pending"
	StatusPendingPlantManager Status = "pending-plant-manager"
	StatusApproved            Status = "approved"
	StatusRejected            Status = "rejected"
	StatusAccounted           Status = "accounted"
	StatusCancelled           Status = "cancelled"
)

// KnownStatuses lists every reachable status.
var KnownStatuses = []Status{
	StatusPending, StatusPendingPlantManager, StatusApproved,
	StatusRejected, StatusAccounted, StatusCancelled,
}

// Terminal reports whether no approval action can move the request
// further. Rejected is terminal for the machine but reachable by the
// correction engine.
func (s Status) Terminal() bool {
	return s == StatusAccounted || s == StatusCancelled || s == StatusRejected
}

func (s Status) Valid() bool {
	for _, k := range KnownStatuses {
		if s == k {
			return true
		}
	}
	return false
}

// =============================================================================
// HOURS - decimal quantity in 0.5 increments
// =============================================================================

var halfHour = decimal.NewFromFloat(0.5)

// NewHours builds a decimal hour quantity from a float input.
func NewHours(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

// ValidHours reports whether h is a non-zero multiple of 0.5. Negative
// values are legal (payout withdrawals).
func ValidHours(h decimal.Decimal) bool {
	if h.IsZero() {
		return false
	}
	return h.Mod(halfHour).IsZero()
}

// =============================================================================
// REQUEST - the shared document for both kinds
// =============================================================================

// Request is the persisted overtime document. Pointer time fields are nil
// until the corresponding transition stamps them; once set they are never
// overwritten.
type Request struct {
	ID         string
	Kind       Kind
	InternalID string // "N/YY", assigned once at insert

	SubmittedBy Identity // whose overtime this is
	CreatedBy   Identity // differs from SubmittedBy when filed on behalf
	Supervisor  Identity // stage-1 approver

	Status  Status
	Payment bool // true: monetary payout; false (+ScheduledDayOff): time off
	Hours   decimal.Decimal

	// Time extent, kind-dependent.
	Date            *time.Time // submission: the day worked
	WorkStart       *time.Time // order: shift start
	WorkEnd         *time.Time // order: shift end
	ScheduledDayOff *time.Time

	Reason string

	// Approval trail. Each pair is written exactly once.
	SupervisorApprovedAt    *time.Time
	SupervisorApprovedBy    Identity
	SupervisorFinalApproval bool // quota fast-path final approval
	PlantManagerApprovedAt  *time.Time
	PlantManagerApprovedBy  Identity
	ApprovedAt              *time.Time
	ApprovedBy              Identity
	RejectedAt              *time.Time
	RejectedBy              Identity
	RejectionReason         string
	AccountedAt             *time.Time
	AccountedBy             Identity
	CancelledAt             *time.Time
	CancelledBy             Identity
	CancellationReason      string
	PayoutConvertedAt       *time.Time
	PayoutConvertedBy       Identity
	EditedAt                *time.Time
	EditedBy                Identity

	CorrectionHistory []CorrectionEntry

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CountsTowardBalance: a request accrues to its submitter's balance unless
// it was withdrawn or turned down.
func (r *Request) CountsTowardBalance() bool {
	return r.Status != StatusCancelled && r.Status != StatusRejected
}

// =============================================================================
// CORRECTION HISTORY
// =============================================================================

// FieldChange records one field's before/after pair, string-rendered.
type FieldChange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// StatusChange records a status move caused by a correction.
type StatusChange struct {
	From Status `json:"from"`
	To   Status `json:"to"`
}

// CorrectionEntry is one immutable audit record. Changes holds only
// fields whose values genuinely differ from the pre-correction document.
type CorrectionEntry struct {
	CorrectedAt   time.Time              `json:"correctedAt"`
	CorrectedBy   Identity               `json:"correctedBy"`
	Reason        string                 `json:"reason"`
	StatusChanged *StatusChange          `json:"statusChanged,omitempty"`
	Changes       map[string]FieldChange `json:"changes"`
}

// =============================================================================
// SUPERVISOR QUOTA - derived, never persisted
// =============================================================================

// SupervisorQuota is the monthly payout-approval budget of one supervisor.
type SupervisorQuota struct {
	Limit     decimal.Decimal
	Used      decimal.Decimal
	Remaining decimal.Decimal
}

// Fits reports whether the given (absolute) hour amount still fits.
func (q SupervisorQuota) Fits(hours decimal.Decimal) bool {
	return hours.Abs().LessThanOrEqual(q.Remaining)
}
