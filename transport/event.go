package transport

import (
	"encoding/json"
	"fmt"

	"github.com/campuscast/alertsync/alert"
)

// EventKind discriminates the closed set of server-pushed event types.
// Adding a kind here requires updating Event's codec and every dispatch
// switch; the engine treats an unlisted kind as a protocol error.
type EventKind string

const (
	// EventNewAlert announces a freshly published alert
	EventNewAlert EventKind = "new_alert"

	// EventReactionUpdate carries the full updated reaction counts for an alert
	EventReactionUpdate EventKind = "reaction_update"

	// EventAcknowledgmentUpdate carries the updated acknowledgment count
	EventAcknowledgmentUpdate EventKind = "acknowledgment_update"

	// EventAlertDeleted announces that an alert was removed server-side
	EventAlertDeleted EventKind = "alert_deleted"
)

// NewAlertPayload is the payload for EventNewAlert.
type NewAlertPayload struct {
	Alert *alert.Alert `json:"alert"`
}

// ReactionUpdatePayload is the payload for EventReactionUpdate.
// ReactionCounts is the complete new mapping, not a delta.
type ReactionUpdatePayload struct {
	AlertID        string         `json:"alert_id"`
	ReactionCounts map[string]int `json:"reaction_counts"`
}

// AcknowledgmentUpdatePayload is the payload for EventAcknowledgmentUpdate.
type AcknowledgmentUpdatePayload struct {
	AlertID string `json:"alert_id"`
	Count   int    `json:"count"`
}

// AlertDeletedPayload is the payload for EventAlertDeleted.
type AlertDeletedPayload struct {
	AlertID string `json:"alert_id"`
}

// Event is one server-pushed event. Exactly one payload field is non-nil,
// selected by Kind.
type Event struct {
	Kind           EventKind
	NewAlert       *NewAlertPayload
	Reaction       *ReactionUpdatePayload
	Acknowledgment *AcknowledgmentUpdatePayload
	Deleted        *AlertDeletedPayload
}

// wireEvent is the on-the-wire envelope: {"type": ..., "payload": {...}}
type wireEvent struct {
	Type    EventKind       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// UnmarshalJSON decodes the {type, payload} envelope into a typed Event.
// Unknown types fail decoding rather than producing a zero event, so a
// protocol drift is caught at the boundary.
func (e *Event) UnmarshalJSON(data []byte) error {
	var wire wireEvent
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	e.Kind = wire.Type

	switch wire.Type {
	case EventNewAlert:
		e.NewAlert = &NewAlertPayload{}
		return json.Unmarshal(wire.Payload, e.NewAlert)
	case EventReactionUpdate:
		e.Reaction = &ReactionUpdatePayload{}
		return json.Unmarshal(wire.Payload, e.Reaction)
	case EventAcknowledgmentUpdate:
		e.Acknowledgment = &AcknowledgmentUpdatePayload{}
		return json.Unmarshal(wire.Payload, e.Acknowledgment)
	case EventAlertDeleted:
		e.Deleted = &AlertDeletedPayload{}
		return json.Unmarshal(wire.Payload, e.Deleted)
	default:
		return fmt.Errorf("unknown event type '%s'", wire.Type)
	}
}

// MarshalJSON encodes the event back into the {type, payload} envelope.
func (e Event) MarshalJSON() ([]byte, error) {
	var payload any

	switch e.Kind {
	case EventNewAlert:
		payload = e.NewAlert
	case EventReactionUpdate:
		payload = e.Reaction
	case EventAcknowledgmentUpdate:
		payload = e.Acknowledgment
	case EventAlertDeleted:
		payload = e.Deleted
	default:
		return nil, fmt.Errorf("unknown event type '%s'", e.Kind)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(wireEvent{Type: e.Kind, Payload: raw})
}

// NewAlertEvent builds an EventNewAlert.
func NewAlertEvent(a *alert.Alert) Event {
	return Event{Kind: EventNewAlert, NewAlert: &NewAlertPayload{Alert: a}}
}

// ReactionUpdateEvent builds an EventReactionUpdate.
func ReactionUpdateEvent(alertID string, counts map[string]int) Event {
	return Event{Kind: EventReactionUpdate, Reaction: &ReactionUpdatePayload{AlertID: alertID, ReactionCounts: counts}}
}

// AcknowledgmentUpdateEvent builds an EventAcknowledgmentUpdate.
func AcknowledgmentUpdateEvent(alertID string, count int) Event {
	return Event{Kind: EventAcknowledgmentUpdate, Acknowledgment: &AcknowledgmentUpdatePayload{AlertID: alertID, Count: count}}
}

// AlertDeletedEvent builds an EventAlertDeleted.
func AlertDeletedEvent(alertID string) Event {
	return Event{Kind: EventAlertDeleted, Deleted: &AlertDeletedPayload{AlertID: alertID}}
}
