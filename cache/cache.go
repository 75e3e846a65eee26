// Package cache maintains the authoritative, de-duplicated set of alerts
// visible to the current user and reconciles incoming mutations against it.
package cache

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/campuscast/alertsync/alert"
	"github.com/campuscast/alertsync/transport"
)

// InsertHook observes every newly ingested alert. The engine wires the
// notification queue here so a new arrival is announced in the same
// ingest step.
type InsertHook func(*alert.Alert)

// RemoveHook observes every removal by alert ID. The engine wires the
// notification queue purge and the undo session discard here.
type RemoveHook func(alertID string)

// Cache is the canonical in-memory alert store: single source of truth for
// list views. All mutations are single critical sections; no lock is held
// across a transport round trip.
type Cache struct {
	mu sync.RWMutex

	// alerts is kept newest-first; index holds the same records by ID.
	// At most one record exists per identifier.
	alerts []*alert.Alert
	index  map[string]*alert.Alert

	loading    bool
	lastFilter transport.Filter

	tr        transport.Transport
	onInsert  []InsertHook
	onRemove  []RemoveHook
	log       *zap.SugaredLogger
}

// New creates an empty cache backed by the given transport.
func New(tr transport.Transport, log *zap.SugaredLogger) *Cache {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Cache{
		index: make(map[string]*alert.Alert),
		tr:    tr,
		log:   log,
	}
}

// OnInsert registers a hook invoked after each successful ingest.
// Hooks must be registered before the cache starts receiving events.
func (c *Cache) OnInsert(hook InsertHook) {
	c.onInsert = append(c.onInsert, hook)
}

// OnRemove registers a hook invoked after each removal.
func (c *Cache) OnRemove(hook RemoveHook) {
	c.onRemove = append(c.onRemove, hook)
}

// FetchAll queries the transport and, on success, replaces the entire cache
// contents with the result. A full replace, not a merge, so the filter is
// honestly reflected. On failure the previous contents stay visible and only
// the loading flag is cleared; the error is returned for inline display and
// logged, never thrown further.
func (c *Cache) FetchAll(ctx context.Context, filter transport.Filter) error {
	c.mu.Lock()
	c.loading = true
	c.lastFilter = filter
	c.mu.Unlock()

	alerts, err := c.tr.FetchAlerts(ctx, filter)

	c.mu.Lock()
	c.loading = false
	if err != nil {
		c.mu.Unlock()
		c.log.Errorw("Failed to fetch alerts", "error", err.Error())
		return errors.Wrap(err, "failed to fetch alerts")
	}

	c.alerts = alerts
	c.index = make(map[string]*alert.Alert, len(alerts))
	for _, a := range alerts {
		c.index[a.ID] = a
	}
	c.mu.Unlock()

	c.log.Debugw("Alert cache refreshed", "count", len(alerts))
	return nil
}

// IngestCreated reconciles a new-alert arrival: the alert is prepended
// (newest first) and handed to the insert hooks, which feed the notification
// queue. Re-delivery of an ID already in the cache is absorbed as a no-op so
// a reconnect replay cannot create a second record.
func (c *Cache) IngestCreated(a *alert.Alert) bool {
	c.mu.Lock()
	if _, exists := c.index[a.ID]; exists {
		c.mu.Unlock()
		c.log.Debugw("Skipping duplicate alert", "alertId", a.ID)
		return false
	}

	record := a.Clone()
	c.alerts = append([]*alert.Alert{record}, c.alerts...)
	c.index[record.ID] = record
	c.mu.Unlock()

	for _, hook := range c.onInsert {
		hook(record)
	}

	c.log.Debugw("Alert ingested", "alertId", a.ID, "priority", a.Priority)
	return true
}

// ApplyReactionUpdate replaces the reaction counts on the matching record,
// mutating it in place. Absent IDs are a silent no-op: the alert may have
// been deleted or not yet fetched.
func (c *Cache) ApplyReactionUpdate(alertID string, counts map[string]int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	a, exists := c.index[alertID]
	if !exists {
		return
	}

	copied := make(map[string]int, len(counts))
	for emoji, count := range counts {
		copied[emoji] = count
	}
	a.ReactionCounts = copied
}

// ApplyAcknowledgmentUpdate sets the acknowledgment count on the matching
// record. Absent IDs are a silent no-op.
func (c *Cache) ApplyAcknowledgmentUpdate(alertID string, count int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	a, exists := c.index[alertID]
	if !exists {
		return
	}

	a.AcknowledgmentCount = count
}

// Remove deletes the alert and notifies the remove hooks, which purge any
// pending announcement and any in-flight undo session reference immediately
// rather than waiting for timers. Removing an absent ID is a no-op.
func (c *Cache) Remove(alertID string) bool {
	c.mu.Lock()
	if _, exists := c.index[alertID]; !exists {
		c.mu.Unlock()
		return false
	}

	delete(c.index, alertID)
	for i, a := range c.alerts {
		if a.ID == alertID {
			c.alerts = append(c.alerts[:i], c.alerts[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	for _, hook := range c.onRemove {
		hook(alertID)
	}

	c.log.Debugw("Alert removed", "alertId", alertID)
	return true
}

// BulkDelete asks the transport to delete the given alerts and removes the
// server-confirmed subset from the cache. The confirmed IDs are returned;
// they may be fewer than requested if some alerts were already gone.
func (c *Cache) BulkDelete(ctx context.Context, ids []string) ([]string, error) {
	resp, err := c.tr.BulkDelete(ctx, ids)
	if err != nil {
		c.log.Errorw("Bulk delete failed", "requested", len(ids), "error", err.Error())
		return nil, errors.Wrap(err, "failed to delete alerts")
	}

	for _, id := range resp.DeletedIDs {
		c.Remove(id)
	}

	c.log.Infow("Alerts deleted", "requested", len(ids), "deleted", len(resp.DeletedIDs))
	return resp.DeletedIDs, nil
}

// BulkRestore reverses a bulk delete and refreshes the cache with a full
// refetch of the last-used filter. Restored alerts may carry server-side
// fields the client never saw, so reinserting reconstructed records would be
// dishonest; a refetch is the only faithful recovery.
func (c *Cache) BulkRestore(ctx context.Context, ids []string) error {
	if err := c.tr.BulkRestore(ctx, ids); err != nil {
		c.log.Errorw("Bulk restore failed", "count", len(ids), "error", err.Error())
		return errors.Wrap(err, "failed to restore alerts")
	}

	c.mu.RLock()
	filter := c.lastFilter
	c.mu.RUnlock()

	if err := c.FetchAll(ctx, filter); err != nil {
		return errors.Wrap(err, "alerts restored but refetch failed")
	}

	c.log.Infow("Alerts restored", "count", len(ids))
	return nil
}

// CreateAlert publishes a draft through the transport and ingests the stored
// record on success, so the author sees their own alert immediately.
func (c *Cache) CreateAlert(ctx context.Context, draft alert.Draft) (*alert.Alert, error) {
	created, err := c.tr.CreateAlert(ctx, draft)
	if err != nil {
		c.log.Errorw("Failed to create alert", "title", draft.Title, "error", err.Error())
		return nil, errors.Wrap(err, "failed to create alert")
	}

	c.IngestCreated(created)
	return created.Clone(), nil
}

// AddReaction records a reaction through the transport and reconciles the
// returned counts into the cache.
func (c *Cache) AddReaction(ctx context.Context, alertID, emoji string) error {
	counts, err := c.tr.AddReaction(ctx, alertID, emoji)
	if err != nil {
		c.log.Errorw("Failed to add reaction", "alertId", alertID, "emoji", emoji, "error", err.Error())
		return errors.Wrap(err, "failed to add reaction")
	}

	c.ApplyReactionUpdate(alertID, counts)
	return nil
}

// Acknowledge records an acknowledgment through the transport and reconciles
// the returned count into the cache.
func (c *Cache) Acknowledge(ctx context.Context, alertID string) error {
	count, err := c.tr.Acknowledge(ctx, alertID)
	if err != nil {
		c.log.Errorw("Failed to acknowledge alert", "alertId", alertID, "error", err.Error())
		return errors.Wrap(err, "failed to acknowledge alert")
	}

	c.ApplyAcknowledgmentUpdate(alertID, count)
	return nil
}

// Alerts returns a snapshot of the cached alerts, newest first.
// Records are cloned so callers can't mutate the cache through the snapshot.
func (c *Cache) Alerts() []*alert.Alert {
	c.mu.RLock()
	defer c.mu.RUnlock()

	alerts := make([]*alert.Alert, len(c.alerts))
	for i, a := range c.alerts {
		alerts[i] = a.Clone()
	}
	return alerts
}

// Get returns a snapshot of one alert by ID.
func (c *Cache) Get(alertID string) (*alert.Alert, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	a, exists := c.index[alertID]
	if !exists {
		return nil, false
	}
	return a.Clone(), true
}

// Len returns the number of cached alerts.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.alerts)
}

// Loading reports whether a fetch is in flight.
func (c *Cache) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// Reset drops all cached alerts without invoking hooks, for engine teardown.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.alerts = nil
	c.index = make(map[string]*alert.Alert)
	c.loading = false
}
