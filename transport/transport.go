package transport

import (
	"context"
	"time"

	"github.com/campuscast/alertsync/alert"
)

// Handler receives server-pushed events in arrival order.
type Handler func(Event)

// Filter carries the query parameters for fetching alerts.
// Zero values mean "no constraint".
type Filter struct {
	// Search matches against alert title and body
	Search string `json:"search,omitempty"`

	// Category restricts results to a single category tag
	Category string `json:"category,omitempty"`

	// Priority restricts results to a single priority
	Priority alert.Priority `json:"priority,omitempty"`

	// StartDate excludes alerts created before this time
	StartDate time.Time `json:"startDate,omitempty"`

	// EndDate excludes alerts created after this time
	EndDate time.Time `json:"endDate,omitempty"`

	// SenderID restricts results to a single sender
	SenderID string `json:"senderId,omitempty"`
}

// BulkDeleteResponse reports which of the requested alerts the server
// actually deleted. This may be a strict subset of the requested IDs if some
// were already gone.
type BulkDeleteResponse struct {
	DeletedIDs []string `json:"deleted_ids"`
}

// Subscription represents a registered push-stream handler.
type Subscription interface {
	// Unsubscribe deregisters the handler. It is safe to call more than once.
	Unsubscribe()
}

// Transport is the boundary between the engine and the campus alert server.
// Implementations deliver a push stream of Events to subscribed handlers and
// expose the request/response surface for alert CRUD. All request methods
// block until the server responds or ctx is done.
type Transport interface {
	// Subscribe registers a handler for server-pushed events.
	// The engine maintains exactly one subscription; implementations must
	// invoke handlers sequentially, in arrival order.
	Subscribe(handler Handler) Subscription

	// FetchAlerts returns the alerts matching the filter, newest first.
	FetchAlerts(ctx context.Context, filter Filter) ([]*alert.Alert, error)

	// CreateAlert publishes a new alert and returns the stored record.
	CreateAlert(ctx context.Context, draft alert.Draft) (*alert.Alert, error)

	// AddReaction records an emoji reaction and returns the updated counts.
	AddReaction(ctx context.Context, alertID, emoji string) (map[string]int, error)

	// Acknowledge records an acknowledgment and returns the updated count.
	Acknowledge(ctx context.Context, alertID string) (int, error)

	// BulkDelete deletes the given alerts and reports the confirmed subset.
	BulkDelete(ctx context.Context, ids []string) (BulkDeleteResponse, error)

	// BulkRestore reverses a recent bulk delete for the given IDs.
	BulkRestore(ctx context.Context, ids []string) error
}
