// Package engine binds the alert cache, notification queue, emergency mode,
// and undo coordinator to a transport's push stream, and exposes the action
// surface the rendering layer calls. One Engine owns one of each store and
// exactly one transport subscription.
package engine

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/campuscast/alertsync/alert"
	"github.com/campuscast/alertsync/cache"
	"github.com/campuscast/alertsync/emergency"
	"github.com/campuscast/alertsync/notify"
	"github.com/campuscast/alertsync/transport"
	"github.com/campuscast/alertsync/undo"
)

// Engine is the real-time alert synchronization engine. Construct with New,
// connect with Start, release with Close. All methods are safe for
// concurrent use.
type Engine struct {
	tr    transport.Transport
	cache *cache.Cache
	queue *notify.Queue
	mode  *emergency.Mode
	undo  *undo.Coordinator
	log   *zap.SugaredLogger

	// subMu guards the single push-stream subscription.
	subMu sync.Mutex
	sub   transport.Subscription
}

// New wires an engine to the given transport. The stores are connected here:
// cache inserts feed the notification queue, cache removals purge the queue
// and the open undo session.
func New(tr transport.Transport, opts Options) (*Engine, error) {
	if tr == nil {
		return nil, errors.New("transport cannot be nil")
	}

	opts.normalize()
	if err := opts.validate(); err != nil {
		return nil, errors.Wrap(err, "invalid engine options")
	}

	log := opts.Logger.Sugar()

	e := &Engine{
		tr:    tr,
		queue: notify.NewQueue(opts.Scheduler, opts.Cuer, opts.DisplayDuration, log),
		mode:  emergency.NewMode(opts.Cuer, log),
		log:   log,
	}
	e.cache = cache.New(tr, log)
	e.undo = undo.New(e.cache, opts.Scheduler, opts.UndoSeconds, log)

	// A new arrival lands in the cache and the announcement queue in one
	// ingest step; a removal purges both the pending announcement and the
	// undo session reference immediately.
	e.cache.OnInsert(func(a *alert.Alert) {
		e.queue.Enqueue(a)
	})
	e.cache.OnRemove(func(alertID string) {
		e.queue.Dismiss(alertID)
		e.undo.Discard(alertID)
	})

	return e, nil
}

// Start subscribes to the transport's push stream. Calling Start again while
// subscribed is a no-op, so repeated initialization from multiple UI mount
// points keeps exactly one subscription.
func (e *Engine) Start() {
	e.subMu.Lock()
	defer e.subMu.Unlock()

	if e.sub != nil {
		e.log.Debugw("Already subscribed to push stream")
		return
	}

	e.sub = e.tr.Subscribe(e.handleEvent)
	e.log.Infow("Subscribed to push stream")
}

// Close tears the engine down: unsubscribes, cancels every outstanding timer
// (notification expiries, undo countdown and finalize), and resets the
// stores. No cancelled callback will fire afterwards.
func (e *Engine) Close() {
	e.subMu.Lock()
	if e.sub != nil {
		e.sub.Unsubscribe()
		e.sub = nil
	}
	e.subMu.Unlock()

	e.undo.Close()
	e.queue.Reset()
	e.mode.Reset()
	e.cache.Reset()

	e.log.Infow("Engine closed")
}

// handleEvent applies one push-stream event. Events are applied in arrival
// order; the switch covers the closed event union, and anything else is a
// protocol error worth logging, never a crash.
func (e *Engine) handleEvent(ev transport.Event) {
	switch ev.Kind {
	case transport.EventNewAlert:
		if ev.NewAlert == nil || ev.NewAlert.Alert == nil {
			e.log.Errorw("Malformed new_alert event")
			return
		}
		e.cache.IngestCreated(ev.NewAlert.Alert)

	case transport.EventReactionUpdate:
		if ev.Reaction == nil {
			e.log.Errorw("Malformed reaction_update event")
			return
		}
		e.cache.ApplyReactionUpdate(ev.Reaction.AlertID, ev.Reaction.ReactionCounts)

	case transport.EventAcknowledgmentUpdate:
		if ev.Acknowledgment == nil {
			e.log.Errorw("Malformed acknowledgment_update event")
			return
		}
		e.cache.ApplyAcknowledgmentUpdate(ev.Acknowledgment.AlertID, ev.Acknowledgment.Count)

	case transport.EventAlertDeleted:
		if ev.Deleted == nil {
			e.log.Errorw("Malformed alert_deleted event")
			return
		}
		e.cache.Remove(ev.Deleted.AlertID)

	default:
		e.log.Errorw("Unknown event kind", "kind", ev.Kind)
	}
}

// FetchAlerts refreshes the alert cache with the given filter.
func (e *Engine) FetchAlerts(ctx context.Context, filter transport.Filter) error {
	return e.cache.FetchAll(ctx, filter)
}

// CreateAlert publishes a new alert and ingests it locally on success.
func (e *Engine) CreateAlert(ctx context.Context, draft alert.Draft) (*alert.Alert, error) {
	return e.cache.CreateAlert(ctx, draft)
}

// AddReaction records an emoji reaction on an alert.
func (e *Engine) AddReaction(ctx context.Context, alertID, emoji string) error {
	return e.cache.AddReaction(ctx, alertID, emoji)
}

// Acknowledge records the current user's acknowledgment of an alert.
func (e *Engine) Acknowledge(ctx context.Context, alertID string) error {
	return e.cache.Acknowledge(ctx, alertID)
}

// DeleteAlerts confirms a bulk delete and opens the undo window.
// The returned IDs are the server-confirmed subset of the request.
func (e *Engine) DeleteAlerts(ctx context.Context, ids []string) ([]string, error) {
	return e.undo.Confirm(ctx, ids)
}

// UndoDelete reverses the open bulk delete. A failed restore is returned as
// an error so the UI never pretends the reversal succeeded.
func (e *Engine) UndoDelete(ctx context.Context) error {
	return e.undo.Undo(ctx)
}

// DismissNotification removes a pending announcement before it expires.
func (e *Engine) DismissNotification(alertID string) {
	e.queue.Dismiss(alertID)
}

// ToggleEmergency flips the campus-wide emergency mode.
func (e *Engine) ToggleEmergency(actorID string) {
	e.mode.Toggle(actorID)
}

// Alerts returns a snapshot of the cached alerts, newest first.
func (e *Engine) Alerts() []*alert.Alert {
	return e.cache.Alerts()
}

// Alert returns a snapshot of one cached alert.
func (e *Engine) Alert(alertID string) (*alert.Alert, bool) {
	return e.cache.Get(alertID)
}

// Loading reports whether an alert fetch is in flight.
func (e *Engine) Loading() bool {
	return e.cache.Loading()
}

// Notifications returns the pending announcements in FIFO order.
func (e *Engine) Notifications() []notify.Entry {
	return e.queue.Entries()
}

// Emergency returns a snapshot of the emergency mode state.
func (e *Engine) Emergency() emergency.Snapshot {
	return e.mode.State()
}

// UndoRemaining returns the visible undo countdown, or false when no undo
// window is open.
func (e *Engine) UndoRemaining() (int, bool) {
	return e.undo.Remaining()
}

// UndoActive reports whether a bulk-delete undo window is open.
func (e *Engine) UndoActive() bool {
	return e.undo.Active()
}
