package engine

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/campuscast/alertsync/notify"
	"github.com/campuscast/alertsync/scheduler"
)

// Options configures an Engine. The zero value is usable: defaults are
// applied by normalize before validation.
type Options struct {
	// DisplayDuration is how long a notification stays queued before it
	// expires on its own. Defaults to notify.DefaultDisplayDuration.
	DisplayDuration time.Duration

	// UndoSeconds is the length of the bulk-delete undo window.
	// Defaults to undo.UndoWindowSeconds.
	UndoSeconds int

	// Scheduler supplies cancellable timers. Defaults to wall-clock timers;
	// tests substitute scheduler.Manual.
	Scheduler scheduler.Scheduler

	// Cuer receives sound cues. Defaults to notify.NopCuer.
	Cuer notify.Cuer

	// Logger is the root logger. Defaults to zap.NewNop().
	Logger *zap.Logger
}

// normalize fills unset fields with defaults.
func (o *Options) normalize() {
	if o.DisplayDuration == 0 {
		o.DisplayDuration = notify.DefaultDisplayDuration
	}
	if o.Scheduler == nil {
		o.Scheduler = scheduler.NewTimers()
	}
	if o.Cuer == nil {
		o.Cuer = notify.NopCuer{}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// validate rejects option values that would break timer semantics.
func (o *Options) validate() error {
	if o.DisplayDuration < 0 {
		return errors.Errorf("display duration cannot be negative (got %s)", o.DisplayDuration)
	}
	if o.UndoSeconds < 0 {
		return errors.Errorf("undo window cannot be negative (got %d seconds)", o.UndoSeconds)
	}
	return nil
}
