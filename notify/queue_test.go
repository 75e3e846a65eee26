package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuscast/alertsync/alert"
	"github.com/campuscast/alertsync/scheduler"
)

// recordingCuer captures cue invocations for assertions.
type recordingCuer struct {
	alertCues     []alert.Priority
	emergencyCues int
}

func (c *recordingCuer) AlertCue(priority alert.Priority) {
	c.alertCues = append(c.alertCues, priority)
}

func (c *recordingCuer) EmergencyCue() {
	c.emergencyCues++
}

func queuedAlert(id string, priority alert.Priority) *alert.Alert {
	return &alert.Alert{
		ID:       id,
		Title:    "Campus notice",
		Body:     "Something happened on campus.",
		Priority: priority,
	}
}

func TestQueueEnqueue(t *testing.T) {
	t.Run("entries queue in arrival order", func(t *testing.T) {
		sched := scheduler.NewManual()
		q := NewQueue(sched, nil, 0, nil)

		require.True(t, q.Enqueue(queuedAlert("a-1", alert.PriorityInfo)))
		require.True(t, q.Enqueue(queuedAlert("a-2", alert.PriorityReminder)))

		entries := q.Entries()
		require.Len(t, entries, 2)
		assert.Equal(t, "a-1", entries[0].AlertID)
		assert.Equal(t, "a-2", entries[1].AlertID)

		head, ok := q.Head()
		require.True(t, ok)
		assert.Equal(t, "a-1", head.AlertID)
	})

	t.Run("duplicate id is suppressed while pending", func(t *testing.T) {
		sched := scheduler.NewManual()
		q := NewQueue(sched, nil, 0, nil)

		require.True(t, q.Enqueue(queuedAlert("a-1", alert.PriorityInfo)))
		assert.False(t, q.Enqueue(queuedAlert("a-1", alert.PriorityInfo)))
		assert.Equal(t, 1, q.Len())
	})

	t.Run("cleared id can be announced again", func(t *testing.T) {
		sched := scheduler.NewManual()
		q := NewQueue(sched, nil, 0, nil)

		require.True(t, q.Enqueue(queuedAlert("a-1", alert.PriorityInfo)))
		q.Dismiss("a-1")
		assert.True(t, q.Enqueue(queuedAlert("a-1", alert.PriorityInfo)))
	})

	t.Run("long bodies are collapsed and truncated", func(t *testing.T) {
		sched := scheduler.NewManual()
		q := NewQueue(sched, nil, 0, nil)

		a := queuedAlert("a-1", alert.PriorityInfo)
		a.Body = "line one\nline two\n" + strings.Repeat("x", 2*MaxMessageLength)
		require.True(t, q.Enqueue(a))

		head, ok := q.Head()
		require.True(t, ok)
		assert.True(t, strings.HasPrefix(head.Message, "line one line two "))
		assert.Len(t, head.Message, MaxMessageLength)
		assert.True(t, strings.HasSuffix(head.Message, "..."))
	})
}

func TestQueueExpiry(t *testing.T) {
	t.Run("entry expires after the display duration", func(t *testing.T) {
		sched := scheduler.NewManual()
		q := NewQueue(sched, nil, 0, nil)

		require.True(t, q.Enqueue(queuedAlert("a-1", alert.PriorityInfo)))

		sched.Advance(DefaultDisplayDuration - time.Millisecond)
		assert.Equal(t, 1, q.Len())

		sched.Advance(time.Millisecond)
		assert.Equal(t, 0, q.Len())
		assert.False(t, q.Pending("a-1"))
	})

	t.Run("each entry expires on its own clock", func(t *testing.T) {
		sched := scheduler.NewManual()
		q := NewQueue(sched, nil, 0, nil)

		require.True(t, q.Enqueue(queuedAlert("a-1", alert.PriorityInfo)))
		sched.Advance(2 * time.Second)
		require.True(t, q.Enqueue(queuedAlert("a-2", alert.PriorityInfo)))

		sched.Advance(3 * time.Second)
		assert.False(t, q.Pending("a-1"))
		assert.True(t, q.Pending("a-2"))

		sched.Advance(2 * time.Second)
		assert.Equal(t, 0, q.Len())
	})

	t.Run("dismissal cancels the expiry timer", func(t *testing.T) {
		sched := scheduler.NewManual()
		q := NewQueue(sched, nil, 0, nil)

		require.True(t, q.Enqueue(queuedAlert("a-1", alert.PriorityInfo)))
		q.Dismiss("a-1")
		assert.Equal(t, 0, sched.Pending())

		// The old timer must not clear a fresh entry for the same ID
		require.True(t, q.Enqueue(queuedAlert("a-1", alert.PriorityInfo)))
		sched.Advance(time.Millisecond)
		assert.Equal(t, 1, q.Len())
	})

	t.Run("dismissing an absent id is a no-op", func(t *testing.T) {
		sched := scheduler.NewManual()
		q := NewQueue(sched, nil, 0, nil)

		q.Dismiss("ghost")
		assert.Equal(t, 0, q.Len())
	})

	t.Run("custom duration is honored", func(t *testing.T) {
		sched := scheduler.NewManual()
		q := NewQueue(sched, nil, 2*time.Second, nil)

		require.True(t, q.Enqueue(queuedAlert("a-1", alert.PriorityInfo)))
		sched.Advance(2 * time.Second)
		assert.Equal(t, 0, q.Len())
	})
}

func TestQueueCues(t *testing.T) {
	t.Run("urgent priorities cue exactly once", func(t *testing.T) {
		sched := scheduler.NewManual()
		cuer := &recordingCuer{}
		q := NewQueue(sched, cuer, 0, nil)

		require.True(t, q.Enqueue(queuedAlert("a-1", alert.PriorityEmergency)))
		require.True(t, q.Enqueue(queuedAlert("a-2", alert.PriorityImportant)))
		assert.Equal(t, []alert.Priority{alert.PriorityEmergency, alert.PriorityImportant}, cuer.alertCues)
	})

	t.Run("suppressed duplicates never cue", func(t *testing.T) {
		sched := scheduler.NewManual()
		cuer := &recordingCuer{}
		q := NewQueue(sched, cuer, 0, nil)

		require.True(t, q.Enqueue(queuedAlert("a-1", alert.PriorityEmergency)))
		assert.False(t, q.Enqueue(queuedAlert("a-1", alert.PriorityEmergency)))
		assert.Len(t, cuer.alertCues, 1)
	})

	t.Run("non-urgent priorities are silent", func(t *testing.T) {
		sched := scheduler.NewManual()
		cuer := &recordingCuer{}
		q := NewQueue(sched, cuer, 0, nil)

		require.True(t, q.Enqueue(queuedAlert("a-1", alert.PriorityInfo)))
		require.True(t, q.Enqueue(queuedAlert("a-2", alert.PriorityReminder)))
		assert.Empty(t, cuer.alertCues)
	})
}

func TestQueueReset(t *testing.T) {
	sched := scheduler.NewManual()
	q := NewQueue(sched, nil, 0, nil)

	require.True(t, q.Enqueue(queuedAlert("a-1", alert.PriorityInfo)))
	require.True(t, q.Enqueue(queuedAlert("a-2", alert.PriorityInfo)))

	q.Reset()
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 0, sched.Pending())

	// Stale timers must not touch entries enqueued after the reset
	require.True(t, q.Enqueue(queuedAlert("a-1", alert.PriorityInfo)))
	sched.Advance(time.Millisecond)
	assert.Equal(t, 1, q.Len())
}
