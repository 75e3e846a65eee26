package alert

import (
	"fmt"

	"github.com/google/uuid"
)

// MaxTitleLength caps alert titles; longer titles are rejected, not truncated.
const MaxTitleLength = 200

// Validate checks a fully-formed alert record.
// This mirrors the rules the server applies on publish, so a rejected payload
// fails the same way locally and remotely.
func Validate(a *Alert) error {
	if a == nil {
		return fmt.Errorf("alert cannot be nil")
	}

	if err := validateID(a.ID); err != nil {
		return err
	}

	if err := validateContent(a.Title, a.Body); err != nil {
		return err
	}

	if !a.Priority.Valid() {
		return fmt.Errorf("unknown priority '%s'", a.Priority)
	}

	if a.SenderID == "" {
		return fmt.Errorf("missing required field 'senderId'")
	}

	if a.EffectivenessScore != nil {
		if score := *a.EffectivenessScore; score < 0 || score > 100 {
			return fmt.Errorf("effectiveness score must be between 0 and 100 (got %d)", score)
		}
	}

	return nil
}

// ValidateDraft checks a draft before it is submitted for publishing.
func ValidateDraft(d Draft) error {
	if err := validateContent(d.Title, d.Body); err != nil {
		return err
	}

	if !d.Priority.Valid() {
		return fmt.Errorf("unknown priority '%s'", d.Priority)
	}

	if d.SenderID == "" {
		return fmt.Errorf("missing required field 'senderId'")
	}

	return nil
}

// validateID checks that the ID is a valid UUID
func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("missing required field 'id'")
	}

	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid UUID format for id: %w", err)
	}

	return nil
}

// validateContent checks the user-visible text fields
func validateContent(title, body string) error {
	if title == "" {
		return fmt.Errorf("missing required field 'title'")
	}
	if len(title) > MaxTitleLength {
		return fmt.Errorf("title exceeds %d characters (got %d)", MaxTitleLength, len(title))
	}
	if body == "" {
		return fmt.Errorf("missing required field 'body'")
	}
	return nil
}
