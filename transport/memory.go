package transport

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/campuscast/alertsync/alert"
)

// Memory is an in-memory Transport implementation backed by a mutex-guarded
// alert store. It behaves like a well-behaved server: fetches honor filters,
// creates are validated and echoed to the push stream, and bulk deletes
// confirm only the IDs that actually existed. Tests and simulations use it
// directly; it also doubles as the reference for what the engine expects from
// a real transport.
type Memory struct {
	mu       sync.RWMutex
	alerts   []*alert.Alert // newest first
	trash    map[string]*alert.Alert
	handlers map[int]Handler
	nextSub  int
	failure  error
}

// NewMemory creates an empty in-memory transport.
func NewMemory() *Memory {
	return &Memory{
		trash:    make(map[string]*alert.Alert),
		handlers: make(map[int]Handler),
	}
}

// Seed replaces the stored alert set without emitting events.
// Alerts are stored newest-first in the given order.
func (m *Memory) Seed(alerts []*alert.Alert) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.alerts = make([]*alert.Alert, len(alerts))
	for i, a := range alerts {
		m.alerts[i] = a.Clone()
	}
}

// SetFailure makes every request method return err until cleared with nil.
// Used to simulate network or server failures.
func (m *Memory) SetFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failure = err
}

// Push injects an event into the push stream, as if the server had sent it.
// Calling Push twice with the same event reproduces a reconnect replay.
func (m *Memory) Push(ev Event) {
	m.broadcast(ev)
}

// memorySubscription implements Subscription for Memory.
type memorySubscription struct {
	m  *Memory
	id int
}

func (s *memorySubscription) Unsubscribe() {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	delete(s.m.handlers, s.id)
}

// Subscribe registers a push-stream handler.
func (m *Memory) Subscribe(handler Handler) Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	m.handlers[id] = handler

	return &memorySubscription{m: m, id: id}
}

// SubscriberCount returns the number of registered handlers.
func (m *Memory) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handlers)
}

// FetchAlerts returns the alerts matching the filter, newest first.
func (m *Memory) FetchAlerts(ctx context.Context, filter Filter) ([]*alert.Alert, error) {
	if err := m.checkRequest(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]*alert.Alert, 0, len(m.alerts))
	for _, a := range m.alerts {
		if matchesFilter(a, filter) {
			matched = append(matched, a.Clone())
		}
	}

	return matched, nil
}

// CreateAlert validates the draft, stores the new alert, and echoes it to the
// push stream the way the server fans out to every connected client.
func (m *Memory) CreateAlert(ctx context.Context, draft alert.Draft) (*alert.Alert, error) {
	if err := m.checkRequest(ctx); err != nil {
		return nil, err
	}

	if err := alert.ValidateDraft(draft); err != nil {
		return nil, errors.Wrap(err, "alert rejected")
	}

	stored := &alert.Alert{
		ID:          uuid.NewString(),
		Title:       draft.Title,
		Body:        draft.Body,
		Priority:    draft.Priority,
		Category:    draft.Category,
		SenderID:    draft.SenderID,
		SenderName:  draft.SenderName,
		CreatedAt:   time.Now().UTC(),
		Active:      true,
		TargetRoles: draft.TargetRoles,
	}

	m.mu.Lock()
	m.alerts = append([]*alert.Alert{stored}, m.alerts...)
	m.mu.Unlock()

	m.broadcast(NewAlertEvent(stored.Clone()))

	return stored.Clone(), nil
}

// AddReaction increments the emoji count on the alert and returns the
// complete updated mapping.
func (m *Memory) AddReaction(ctx context.Context, alertID, emoji string) (map[string]int, error) {
	if err := m.checkRequest(ctx); err != nil {
		return nil, err
	}
	if emoji == "" {
		return nil, errors.New("reaction rejected: missing emoji")
	}

	m.mu.Lock()
	a := m.find(alertID)
	if a == nil {
		m.mu.Unlock()
		return nil, errors.Errorf("alert %s not found", alertID)
	}

	if a.ReactionCounts == nil {
		a.ReactionCounts = make(map[string]int)
	}
	a.ReactionCounts[emoji]++

	counts := make(map[string]int, len(a.ReactionCounts))
	for k, v := range a.ReactionCounts {
		counts[k] = v
	}
	m.mu.Unlock()

	m.broadcast(ReactionUpdateEvent(alertID, counts))

	return counts, nil
}

// Acknowledge increments the acknowledgment count and returns the new total.
func (m *Memory) Acknowledge(ctx context.Context, alertID string) (int, error) {
	if err := m.checkRequest(ctx); err != nil {
		return 0, err
	}

	m.mu.Lock()
	a := m.find(alertID)
	if a == nil {
		m.mu.Unlock()
		return 0, errors.Errorf("alert %s not found", alertID)
	}

	a.AcknowledgmentCount++
	count := a.AcknowledgmentCount
	m.mu.Unlock()

	m.broadcast(AcknowledgmentUpdateEvent(alertID, count))

	return count, nil
}

// BulkDelete removes the requested alerts and reports the subset that
// actually existed. Deleted records are kept aside so BulkRestore can bring
// them back with their field values intact.
func (m *Memory) BulkDelete(ctx context.Context, ids []string) (BulkDeleteResponse, error) {
	if err := m.checkRequest(ctx); err != nil {
		return BulkDeleteResponse{}, err
	}

	requested := make(map[string]bool, len(ids))
	for _, id := range ids {
		requested[id] = true
	}

	m.mu.Lock()
	deleted := make([]string, 0, len(ids))
	kept := m.alerts[:0]
	for _, a := range m.alerts {
		if requested[a.ID] {
			m.trash[a.ID] = a
			deleted = append(deleted, a.ID)
			continue
		}
		kept = append(kept, a)
	}
	m.alerts = kept
	m.mu.Unlock()

	return BulkDeleteResponse{DeletedIDs: deleted}, nil
}

// BulkRestore puts previously deleted alerts back into the store.
// IDs with no stashed record are ignored, matching the server's tolerance for
// restore requests that race an expiry.
func (m *Memory) BulkRestore(ctx context.Context, ids []string) error {
	if err := m.checkRequest(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		if a, ok := m.trash[id]; ok {
			delete(m.trash, id)
			m.alerts = append([]*alert.Alert{a}, m.alerts...)
		}
	}

	return nil
}

// checkRequest applies the injected failure and context cancellation.
func (m *Memory) checkRequest(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.failure
}

// find returns the stored alert or nil. Caller must hold mu.
func (m *Memory) find(alertID string) *alert.Alert {
	for _, a := range m.alerts {
		if a.ID == alertID {
			return a
		}
	}
	return nil
}

// broadcast invokes every handler outside the store lock, sequentially, so
// handlers can call back into the transport without deadlocking.
func (m *Memory) broadcast(ev Event) {
	m.mu.RLock()
	handlers := make([]Handler, 0, len(m.handlers))
	for _, h := range m.handlers {
		handlers = append(handlers, h)
	}
	m.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}

func matchesFilter(a *alert.Alert, f Filter) bool {
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(a.Title), needle) &&
			!strings.Contains(strings.ToLower(a.Body), needle) {
			return false
		}
	}
	if f.Category != "" && a.Category != f.Category {
		return false
	}
	if f.Priority != "" && a.Priority != f.Priority {
		return false
	}
	if !f.StartDate.IsZero() && a.CreatedAt.Before(f.StartDate) {
		return false
	}
	if !f.EndDate.IsZero() && a.CreatedAt.After(f.EndDate) {
		return false
	}
	if f.SenderID != "" && a.SenderID != f.SenderID {
		return false
	}
	return true
}
