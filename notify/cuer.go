package notify

import "github.com/campuscast/alertsync/alert"

// Cuer is the boundary to the audio layer. The engine decides when a cue is
// owed; playing the sound is the rendering surface's problem.
type Cuer interface {
	// AlertCue plays the announcement sound for an urgent alert.
	AlertCue(priority alert.Priority)

	// EmergencyCue plays the campus-wide emergency activation sound.
	EmergencyCue()
}

// NopCuer discards all cues. It is the default when no audio layer is wired.
type NopCuer struct{}

func (NopCuer) AlertCue(alert.Priority) {}

func (NopCuer) EmergencyCue() {}
