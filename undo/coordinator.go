// Package undo coordinates bulk alert deletes with a bounded grace period
// for reversal. A session owns a visible countdown and a finalize timer;
// both start together and are only ever cancelled together.
package undo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/campuscast/alertsync/scheduler"
)

const (
	// UndoWindowSeconds is the length of the undo countdown.
	UndoWindowSeconds = 5

	// CountdownInterval is how often the visible counter decrements.
	CountdownInterval = time.Second
)

// ErrSessionActive is returned when a delete is confirmed while another undo
// window is still open. The UI allows one session at a time.
var ErrSessionActive = errors.New("a bulk delete session is already active")

// ErrNoSession is returned when Undo is called with no open window.
var ErrNoSession = errors.New("no bulk delete session to undo")

// Deleter is the slice of the alert cache the coordinator drives.
type Deleter interface {
	// BulkDelete deletes the given alerts and returns the confirmed subset.
	BulkDelete(ctx context.Context, ids []string) ([]string, error)

	// BulkRestore reverses a recent bulk delete.
	BulkRestore(ctx context.Context, ids []string) error
}

// session is one in-flight undo window.
type session struct {
	id         string
	deletedIDs []string
	remaining  int
	timers     *scheduler.Group
}

// Coordinator runs the delete-then-undo protocol. At most one session exists
// at a time; its countdown and finalize timers live in one scheduler.Group,
// so every terminal path (undo, finalize, teardown) cancels both or neither.
type Coordinator struct {
	mu sync.Mutex

	deleter     Deleter
	sched       scheduler.Scheduler
	current     *session
	undoSeconds int

	// onTick, if set, observes each countdown decrement for display.
	onTick func(remaining int)

	// onFinalized, if set, observes a session closing with the delete kept.
	onFinalized func(deletedIDs []string)

	log *zap.SugaredLogger
}

// New creates a coordinator. undoSeconds <= 0 selects the default window.
func New(deleter Deleter, sched scheduler.Scheduler, undoSeconds int, log *zap.SugaredLogger) *Coordinator {
	if undoSeconds <= 0 {
		undoSeconds = UndoWindowSeconds
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Coordinator{
		deleter:     deleter,
		sched:       sched,
		undoSeconds: undoSeconds,
		log:         log,
	}
}

// OnTick registers an observer for countdown decrements.
func (c *Coordinator) OnTick(fn func(remaining int)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTick = fn
}

// OnFinalized registers an observer for sessions that close with the delete
// made permanent.
func (c *Coordinator) OnFinalized(fn func(deletedIDs []string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFinalized = fn
}

// Confirm executes the bulk delete and opens the undo window. If the delete
// call fails, no session is created and no timer starts; the caller keeps
// its confirmation UI open for retry. On success the returned IDs are the
// server-confirmed subset of the request.
func (c *Coordinator) Confirm(ctx context.Context, ids []string) ([]string, error) {
	c.mu.Lock()
	if c.current != nil {
		c.mu.Unlock()
		return nil, ErrSessionActive
	}
	c.mu.Unlock()

	// Suspension point: the delete round trip runs without the lock.
	deletedIDs, err := c.deleter.BulkDelete(ctx, ids)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.current != nil {
		// Another Confirm won the race during the round trip. The alerts are
		// already gone server-side; fold them into the open session so undo
		// still covers them.
		c.current.deletedIDs = append(c.current.deletedIDs, deletedIDs...)
		c.mu.Unlock()
		c.log.Warnw("Merged concurrent bulk delete into open session", "count", len(deletedIDs))
		return deletedIDs, nil
	}

	sess := &session{
		id:         uuid.NewString(),
		deletedIDs: deletedIDs,
		remaining:  c.undoSeconds,
		timers:     scheduler.NewGroup(),
	}
	c.current = sess

	// Countdown and finalize timers always start together. The countdown
	// stops decrementing at zero but its handle is only cancelled through
	// the group, alongside the finalize handle.
	sess.timers.Add(c.sched.Every(CountdownInterval, func() {
		c.tick(sess)
	}))
	sess.timers.Add(c.sched.After(time.Duration(c.undoSeconds)*CountdownInterval, func() {
		c.finalize(sess)
	}))
	c.mu.Unlock()

	c.log.Infow("Undo window opened",
		"sessionId", sess.id,
		"requested", len(ids),
		"deleted", len(deletedIDs),
		"seconds", c.undoSeconds)
	return deletedIDs, nil
}

// Undo cancels both timers, restores the deleted alerts, and closes the
// session. A failed restore still closes the window but the error is
// returned so the UI can tell the user the reversal did not take effect.
func (c *Coordinator) Undo(ctx context.Context) error {
	c.mu.Lock()
	sess := c.current
	if sess == nil {
		c.mu.Unlock()
		return ErrNoSession
	}
	c.current = nil
	sess.timers.CancelAll()
	deletedIDs := sess.deletedIDs
	c.mu.Unlock()

	if err := c.deleter.BulkRestore(ctx, deletedIDs); err != nil {
		c.log.Errorw("Undo failed, alerts remain deleted",
			"sessionId", sess.id,
			"count", len(deletedIDs),
			"error", err.Error())
		return errors.Wrap(err, "undo failed")
	}

	c.log.Infow("Bulk delete undone", "sessionId", sess.id, "count", len(deletedIDs))
	return nil
}

// Discard removes an alert ID from the open session, if any. Called when a
// push-stream delete lands for an alert that is also part of the undo
// window, so a later undo doesn't try to restore it.
func (c *Coordinator) Discard(alertID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return
	}

	for i, id := range c.current.deletedIDs {
		if id == alertID {
			c.current.deletedIDs = append(c.current.deletedIDs[:i], c.current.deletedIDs[i+1:]...)
			return
		}
	}
}

// tick decrements the visible countdown. At zero it stops changing state and
// waits for the finalize timer, which fires on the same clock boundary.
func (c *Coordinator) tick(sess *session) {
	var remaining int

	c.mu.Lock()
	if c.current != sess {
		c.mu.Unlock()
		return
	}
	if sess.remaining > 0 {
		sess.remaining--
	}
	remaining = sess.remaining
	onTick := c.onTick
	c.mu.Unlock()

	if onTick != nil {
		onTick(remaining)
	}
}

// finalize closes the session with the delete kept. Both timers are
// cancelled through the group; the expired finalize handle is inert, the
// countdown handle is stopped.
func (c *Coordinator) finalize(sess *session) {
	c.mu.Lock()
	if c.current != sess {
		c.mu.Unlock()
		return
	}
	c.current = nil
	sess.timers.CancelAll()
	onFinalized := c.onFinalized
	c.mu.Unlock()

	if onFinalized != nil {
		onFinalized(sess.deletedIDs)
	}

	c.log.Infow("Bulk delete finalized", "sessionId", sess.id, "count", len(sess.deletedIDs))
}

// Active reports whether an undo window is open.
func (c *Coordinator) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

// Remaining returns the visible countdown value, or zero with false when no
// session is open.
func (c *Coordinator) Remaining() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return 0, false
	}
	return c.current.remaining, true
}

// DeletedIDs returns a copy of the open session's confirmed IDs.
func (c *Coordinator) DeletedIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return nil
	}
	ids := make([]string, len(c.current.deletedIDs))
	copy(ids, c.current.deletedIDs)
	return ids
}

// TimersActive reports whether the open session's timer group is live.
// With no session it reports false, so the pair is observably both-present
// or both-absent at every point.
func (c *Coordinator) TimersActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return false
	}
	return c.current.timers.Active()
}

// Close abandons any open session without restoring, for engine teardown.
// Both timers are cancelled so no callback fires against the dead session.
func (c *Coordinator) Close() {
	c.mu.Lock()
	sess := c.current
	c.current = nil
	c.mu.Unlock()

	if sess != nil {
		sess.timers.CancelAll()
		c.log.Debugw("Undo session abandoned on teardown", "sessionId", sess.id)
	}
}
