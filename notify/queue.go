// Package notify maintains the transient announcement queue: short-lived,
// deduplicated entries derived from newly arrived alerts, each with a fixed
// display lifetime.
package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/campuscast/alertsync/alert"
	"github.com/campuscast/alertsync/scheduler"
)

// DefaultDisplayDuration is how long an entry stays queued before it expires
// on its own.
const DefaultDisplayDuration = 5000 * time.Millisecond

// Entry is one pending announcement, a view onto its source alert.
type Entry struct {
	// AlertID matches the source alert's identifier
	AlertID string

	// Priority is copied from the source alert
	Priority alert.Priority

	// Title is the announcement headline
	Title string

	// Message is the display text derived from the alert body
	Message string

	// EnqueuedAt is when the entry entered the queue
	EnqueuedAt time.Time
}

// Queue is the notification queue. Entries are FIFO; an alert ID can hold at
// most one entry at a time, and each entry expires DisplayDuration after it
// was enqueued unless dismissed first. A cleared ID is released and may be
// announced again by a later arrival.
type Queue struct {
	mu sync.Mutex

	entries []Entry

	// pending tracks IDs currently represented in the queue. An ID enters at
	// enqueue time and leaves only when its entry is cleared; while present,
	// repeated enqueues for the ID are suppressed (transport replay guard).
	pending map[string]scheduler.Handle

	sched    scheduler.Scheduler
	cuer     Cuer
	duration time.Duration
	log      *zap.SugaredLogger
}

// NewQueue creates a notification queue.
// A nil cuer disables sound cues; duration <= 0 selects the default.
func NewQueue(sched scheduler.Scheduler, cuer Cuer, duration time.Duration, log *zap.SugaredLogger) *Queue {
	if cuer == nil {
		cuer = NopCuer{}
	}
	if duration <= 0 {
		duration = DefaultDisplayDuration
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Queue{
		pending:  make(map[string]scheduler.Handle),
		sched:    sched,
		cuer:     cuer,
		duration: duration,
		log:      log,
	}
}

// Enqueue appends an announcement for the alert unless one is already
// pending for the same ID. A successful enqueue of an emergency or important
// alert triggers exactly one sound cue; the dedup guard means re-delivery of
// the same alert can never cue twice within its display window.
func (q *Queue) Enqueue(a *alert.Alert) bool {
	q.mu.Lock()

	if _, exists := q.pending[a.ID]; exists {
		q.mu.Unlock()
		q.log.Debugw("Suppressing duplicate announcement", "alertId", a.ID)
		return false
	}

	entry := Entry{
		AlertID:    a.ID,
		Priority:   a.Priority,
		Title:      a.Title,
		Message:    formatMessage(a.Body),
		EnqueuedAt: time.Now(),
	}
	q.entries = append(q.entries, entry)

	alertID := a.ID
	handle := q.sched.After(q.duration, func() {
		q.expire(alertID)
	})
	q.pending[a.ID] = handle

	urgent := a.Priority.Urgent()
	q.mu.Unlock()

	if urgent {
		q.cuer.AlertCue(entry.Priority)
	}

	q.log.Debugw("Announcement enqueued", "alertId", a.ID, "priority", a.Priority)
	return true
}

// Dismiss removes the entry for the alert before its timeout fires.
// Dismissing an absent ID is a no-op.
func (q *Queue) Dismiss(alertID string) {
	if q.remove(alertID) {
		q.log.Debugw("Announcement dismissed", "alertId", alertID)
	}
}

// expire removes the entry when its display window elapses.
func (q *Queue) expire(alertID string) {
	if q.remove(alertID) {
		q.log.Debugw("Announcement expired", "alertId", alertID)
	}
}

// remove clears the entry and releases the ID. All dequeue paths (timeout,
// dismissal, cache removal) funnel through here, so each is idempotent and
// each cancels the expiry handle.
func (q *Queue) remove(alertID string) bool {
	q.mu.Lock()

	handle, exists := q.pending[alertID]
	if !exists {
		q.mu.Unlock()
		return false
	}
	delete(q.pending, alertID)

	for i, entry := range q.entries {
		if entry.AlertID == alertID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			break
		}
	}
	q.mu.Unlock()

	handle.Cancel()
	return true
}

// Entries returns a copy of the queued announcements in FIFO order.
func (q *Queue) Entries() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries := make([]Entry, len(q.entries))
	copy(entries, q.entries)
	return entries
}

// Head returns the oldest pending announcement, if any.
func (q *Queue) Head() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return Entry{}, false
	}
	return q.entries[0], true
}

// Len returns the number of pending announcements.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Pending reports whether an announcement for the alert is currently queued.
func (q *Queue) Pending(alertID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, exists := q.pending[alertID]
	return exists
}

// Reset clears the queue and cancels every outstanding expiry handle.
// Called on engine teardown so no timer fires against a dead queue.
func (q *Queue) Reset() {
	q.mu.Lock()
	handles := make([]scheduler.Handle, 0, len(q.pending))
	for _, h := range q.pending {
		handles = append(handles, h)
	}
	q.pending = make(map[string]scheduler.Handle)
	q.entries = nil
	q.mu.Unlock()

	for _, h := range handles {
		h.Cancel()
	}
}
