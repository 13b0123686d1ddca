/*
Package notify provides notifier implementations for the overtime engine.

PURPOSE:
  Delivery is fire-and-forget: the machine emits a Notification after a
  transition persisted, and whatever happens here can never fail the
  transition. The default implementation writes structured log lines;
  wiring a real mail gateway means implementing overtime.Notifier and
  swapping it in at startup.

SEE ALSO:
  - overtime/notify.go: The Notification shape and Notifier interface
*/
package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/warp/overtime-engine/overtime"
)

// =============================================================================
// LOG NOTIFIER - the default sender
// =============================================================================

// LogNotifier records every send as a structured log line.
type LogNotifier struct {
	Log *zap.Logger
}

var _ overtime.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogNotifier{Log: log}
}

func (n *LogNotifier) Send(_ context.Context, msg overtime.Notification) error {
	n.Log.Info("notification",
		zap.String("to", string(msg.To)),
		zap.String("stage", string(msg.Stage)),
		zap.String("kind", string(msg.Kind)),
		zap.String("request", msg.RequestID),
		zap.String("internalId", msg.InternalID),
		zap.String("actor", string(msg.Actor)),
		zap.String("reason", msg.Reason))
	return nil
}

// =============================================================================
// RECORDER - test double
// =============================================================================

// Recorder keeps every notification in memory. Safe for concurrent use.
type Recorder struct {
	mu   sync.Mutex
	sent []overtime.Notification

	// FailWith, when set, is returned from every Send. The machine must
	// log and swallow it.
	FailWith error
}

var _ overtime.Notifier = (*Recorder)(nil)

func (r *Recorder) Send(_ context.Context, msg overtime.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return r.FailWith
}

// Sent returns a copy of everything recorded so far.
func (r *Recorder) Sent() []overtime.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]overtime.Notification, len(r.sent))
	copy(out, r.sent)
	return out
}
