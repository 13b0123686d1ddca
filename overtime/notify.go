/*
notify.go - Post-commit notification events

PURPOSE:
  Email sends are modeled as events emitted AFTER a transition has been
  persisted. A notification failure can therefore never be mistaken for a
  transition failure: the machine logs it and moves on. Delivery itself
  is out of scope; implementations live in the notify package.

SEE ALSO:
  - notify/notify.go: zap-backed sender and a recording fake for tests
*/
package overtime

import "context"

// Stage tags what the notification is about.
type Stage string

const (
	// StageSupervisor: stage-1 sign-off happened, plant manager is next.
	StageSupervisor Stage = "supervisor"
	// StageFinal: the request reached approved.
	StageFinal Stage = "final"
	StageRejected  Stage = "rejected"
	StageCorrected Stage = "corrected"
)

// Notification carries the structured parameters of one send.
type Notification struct {
	To         Identity
	Stage      Stage
	Kind       Kind
	RequestID  string
	InternalID string
	Actor      Identity
	Reason     string
}

// Notifier delivers fire-and-forget. Errors are logged by the caller,
// never propagated into operation results.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}
