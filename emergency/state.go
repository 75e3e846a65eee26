// Package emergency holds the campus-wide emergency mode flag. The mode is
// independent of any individual alert: an operator can declare an emergency
// before a matching alert exists.
package emergency

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/campuscast/alertsync/notify"
)

// Snapshot is a point-in-time view of the emergency mode.
// ActivatedBy and ActivatedAt are set if and only if Active is true.
type Snapshot struct {
	// Active indicates whether a campus-wide emergency is declared
	Active bool `json:"active"`

	// ActivatedBy identifies the actor who declared the emergency
	ActivatedBy string `json:"activatedBy,omitempty"`

	// ActivatedAt is when the emergency was declared
	ActivatedAt time.Time `json:"activatedAt,omitempty"`
}

// Mode is the process-wide emergency state. Two states, Inactive and Active;
// Toggle drives the only transition exposed to the UI.
type Mode struct {
	mu    sync.Mutex
	state Snapshot
	cuer  notify.Cuer
	log   *zap.SugaredLogger
}

// NewMode creates an inactive emergency mode.
func NewMode(cuer notify.Cuer, log *zap.SugaredLogger) *Mode {
	if cuer == nil {
		cuer = notify.NopCuer{}
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Mode{cuer: cuer, log: log}
}

// Activate declares a campus-wide emergency and plays the activation cue.
// Activating while already active is permitted and re-stamps the actor and
// timestamp: last activator wins.
func (m *Mode) Activate(actorID string) {
	m.mu.Lock()
	m.state = Snapshot{
		Active:      true,
		ActivatedBy: actorID,
		ActivatedAt: time.Now(),
	}
	m.mu.Unlock()

	m.cuer.EmergencyCue()
	m.log.Infow("Emergency mode activated", "actorId", actorID)
}

// Deactivate clears the emergency mode unconditionally, including the
// activation metadata.
func (m *Mode) Deactivate() {
	m.mu.Lock()
	m.state = Snapshot{}
	m.mu.Unlock()

	m.log.Infow("Emergency mode deactivated")
}

// Toggle flips the mode. The read and the write happen inside one critical
// section, so two near-simultaneous toggles serialize into an
// activate/deactivate pair instead of double-activating. Last call wins.
func (m *Mode) Toggle(actorID string) {
	m.mu.Lock()
	wasActive := m.state.Active
	if wasActive {
		m.state = Snapshot{}
	} else {
		m.state = Snapshot{
			Active:      true,
			ActivatedBy: actorID,
			ActivatedAt: time.Now(),
		}
	}
	m.mu.Unlock()

	if wasActive {
		m.log.Infow("Emergency mode deactivated", "actorId", actorID)
	} else {
		m.cuer.EmergencyCue()
		m.log.Infow("Emergency mode activated", "actorId", actorID)
	}
}

// Active reports whether an emergency is currently declared.
func (m *Mode) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Active
}

// State returns a snapshot of the current mode.
func (m *Mode) State() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Reset returns the mode to inactive without logging, for engine teardown.
func (m *Mode) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Snapshot{}
}
