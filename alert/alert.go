package alert

import "time"

// Priority classifies how urgently an alert should be surfaced to students.
type Priority string

const (
	// PriorityEmergency is reserved for immediate campus-wide threats.
	PriorityEmergency Priority = "emergency"

	// PriorityImportant marks alerts that warrant a sound cue but not
	// emergency handling.
	PriorityImportant Priority = "important"

	// PriorityInfo marks routine informational broadcasts.
	PriorityInfo Priority = "info"

	// PriorityReminder marks low-urgency reminders (deadlines, events).
	PriorityReminder Priority = "reminder"
)

// Valid reports whether p is one of the known priority values.
func (p Priority) Valid() bool {
	switch p {
	case PriorityEmergency, PriorityImportant, PriorityInfo, PriorityReminder:
		return true
	}
	return false
}

// Urgent reports whether alerts with this priority trigger a notification
// sound cue when announced.
func (p Priority) Urgent() bool {
	return p == PriorityEmergency || p == PriorityImportant
}

// Alert represents a single prioritized broadcast message.
// This is the canonical in-memory form; one record exists per ID.
type Alert struct {
	// ID is the unique stable identifier for this alert (UUID v4)
	ID string `json:"id"`

	// Title is the short headline shown in lists and announcements
	Title string `json:"title"`

	// Body is the full rich-text message content
	Body string `json:"body"`

	// Priority is the urgency classification of the alert
	Priority Priority `json:"priority"`

	// Category is a free-form tag (e.g. "weather", "facilities")
	Category string `json:"category,omitempty"`

	// SenderID identifies the administrator or faculty member who published it
	SenderID string `json:"senderId"`

	// SenderName is the display name of the sender
	SenderName string `json:"senderName,omitempty"`

	// CreatedAt is when the alert was published
	CreatedAt time.Time `json:"createdAt"`

	// Active indicates whether the alert is still in effect
	Active bool `json:"active"`

	// ReactionCounts maps emoji to the number of students who reacted with it
	ReactionCounts map[string]int `json:"reactionCounts,omitempty"`

	// AcknowledgmentCount is the number of students who acknowledged the alert
	AcknowledgmentCount int `json:"acknowledgmentCount"`

	// EffectivenessScore is an optional 0-100 delivery effectiveness rating
	EffectivenessScore *int `json:"effectivenessScore,omitempty"`

	// TargetRoles optionally restricts the audience (e.g. "student", "faculty")
	TargetRoles []string `json:"targetRoles,omitempty"`
}

// Clone returns a deep copy of the alert.
// Reaction counts and target roles are copied so callers can't mutate the
// cached record through a snapshot.
func (a *Alert) Clone() *Alert {
	clone := *a

	if a.ReactionCounts != nil {
		clone.ReactionCounts = make(map[string]int, len(a.ReactionCounts))
		for emoji, count := range a.ReactionCounts {
			clone.ReactionCounts[emoji] = count
		}
	}

	if a.TargetRoles != nil {
		clone.TargetRoles = make([]string, len(a.TargetRoles))
		copy(clone.TargetRoles, a.TargetRoles)
	}

	if a.EffectivenessScore != nil {
		score := *a.EffectivenessScore
		clone.EffectivenessScore = &score
	}

	return &clone
}

// Draft is the payload for publishing a new alert.
type Draft struct {
	// Title is the short headline (required)
	Title string `json:"title"`

	// Body is the full message content (required)
	Body string `json:"body"`

	// Priority is the urgency classification (required, must be a known value)
	Priority Priority `json:"priority"`

	// Category is an optional free-form tag
	Category string `json:"category,omitempty"`

	// SenderID identifies the publishing actor (required)
	SenderID string `json:"senderId"`

	// SenderName is the sender's display name
	SenderName string `json:"senderName,omitempty"`

	// TargetRoles optionally restricts the audience
	TargetRoles []string `json:"targetRoles,omitempty"`
}
