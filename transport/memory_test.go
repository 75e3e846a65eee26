package transport

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuscast/alertsync/alert"
)

func seedAlert(id, title string, priority alert.Priority) *alert.Alert {
	return &alert.Alert{
		ID:       id,
		Title:    title,
		Body:     "details for " + title,
		Priority: priority,
		Category: "general",
		SenderID: "dean-office",
		Active:   true,
	}
}

func TestMemoryFetchAlerts(t *testing.T) {
	ctx := context.Background()

	t.Run("empty filter returns everything", func(t *testing.T) {
		m := NewMemory()
		m.Seed([]*alert.Alert{
			seedAlert("a-1", "Gym closure", alert.PriorityInfo),
			seedAlert("a-2", "Exam schedule posted", alert.PriorityReminder),
		})

		alerts, err := m.FetchAlerts(ctx, Filter{})
		require.NoError(t, err)
		assert.Len(t, alerts, 2)
	})

	t.Run("priority filter narrows results", func(t *testing.T) {
		m := NewMemory()
		m.Seed([]*alert.Alert{
			seedAlert("a-1", "Gym closure", alert.PriorityInfo),
			seedAlert("a-2", "Gas leak", alert.PriorityEmergency),
		})

		alerts, err := m.FetchAlerts(ctx, Filter{Priority: alert.PriorityEmergency})
		require.NoError(t, err)
		require.Len(t, alerts, 1)
		assert.Equal(t, "a-2", alerts[0].ID)
	})

	t.Run("search matches title and body case-insensitively", func(t *testing.T) {
		m := NewMemory()
		m.Seed([]*alert.Alert{
			seedAlert("a-1", "Gym closure", alert.PriorityInfo),
			seedAlert("a-2", "Parking update", alert.PriorityInfo),
		})

		alerts, err := m.FetchAlerts(ctx, Filter{Search: "GYM"})
		require.NoError(t, err)
		require.Len(t, alerts, 1)
		assert.Equal(t, "a-1", alerts[0].ID)
	})

	t.Run("date range excludes out-of-window alerts", func(t *testing.T) {
		old := seedAlert("a-1", "Old notice", alert.PriorityInfo)
		old.CreatedAt = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
		recent := seedAlert("a-2", "Recent notice", alert.PriorityInfo)
		recent.CreatedAt = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

		m := NewMemory()
		m.Seed([]*alert.Alert{recent, old})

		alerts, err := m.FetchAlerts(ctx, Filter{
			StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		require.Len(t, alerts, 1)
		assert.Equal(t, "a-2", alerts[0].ID)
	})

	t.Run("injected failure is returned", func(t *testing.T) {
		m := NewMemory()
		m.SetFailure(errors.New("gateway timeout"))

		_, err := m.FetchAlerts(ctx, Filter{})
		assert.ErrorContains(t, err, "gateway timeout")

		m.SetFailure(nil)
		_, err = m.FetchAlerts(ctx, Filter{})
		assert.NoError(t, err)
	})

	t.Run("snapshots do not alias the store", func(t *testing.T) {
		m := NewMemory()
		m.Seed([]*alert.Alert{seedAlert("a-1", "Gym closure", alert.PriorityInfo)})

		alerts, err := m.FetchAlerts(ctx, Filter{})
		require.NoError(t, err)
		alerts[0].Title = "mutated"

		again, err := m.FetchAlerts(ctx, Filter{})
		require.NoError(t, err)
		assert.Equal(t, "Gym closure", again[0].Title)
	})
}

func TestMemoryCreateAlert(t *testing.T) {
	ctx := context.Background()

	t.Run("valid draft is stored and pushed", func(t *testing.T) {
		m := NewMemory()

		var pushed []Event
		m.Subscribe(func(ev Event) {
			pushed = append(pushed, ev)
		})

		created, err := m.CreateAlert(ctx, alert.Draft{
			Title:    "Road closed for commencement",
			Body:     "Main campus drive closed Saturday morning.",
			Priority: alert.PriorityImportant,
			SenderID: "events-office",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.True(t, created.Active)

		alerts, err := m.FetchAlerts(ctx, Filter{})
		require.NoError(t, err)
		require.Len(t, alerts, 1)

		require.Len(t, pushed, 1)
		assert.Equal(t, EventNewAlert, pushed[0].Kind)
		assert.Equal(t, created.ID, pushed[0].NewAlert.Alert.ID)
	})

	t.Run("invalid draft is rejected without side effects", func(t *testing.T) {
		m := NewMemory()

		_, err := m.CreateAlert(ctx, alert.Draft{
			Title:    "No body",
			Priority: alert.PriorityInfo,
			SenderID: "someone",
		})
		assert.ErrorContains(t, err, "alert rejected")

		alerts, fetchErr := m.FetchAlerts(ctx, Filter{})
		require.NoError(t, fetchErr)
		assert.Empty(t, alerts)
	})
}

func TestMemoryReactionsAndAcks(t *testing.T) {
	ctx := context.Background()

	t.Run("reactions accumulate and are broadcast", func(t *testing.T) {
		m := NewMemory()
		m.Seed([]*alert.Alert{seedAlert("a-1", "Gym closure", alert.PriorityInfo)})

		var pushed []Event
		m.Subscribe(func(ev Event) {
			pushed = append(pushed, ev)
		})

		counts, err := m.AddReaction(ctx, "a-1", "👍")
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"👍": 1}, counts)

		counts, err = m.AddReaction(ctx, "a-1", "👍")
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"👍": 2}, counts)

		require.Len(t, pushed, 2)
		assert.Equal(t, EventReactionUpdate, pushed[1].Kind)
		assert.Equal(t, 2, pushed[1].Reaction.ReactionCounts["👍"])
	})

	t.Run("reacting to a missing alert fails", func(t *testing.T) {
		m := NewMemory()
		_, err := m.AddReaction(ctx, "ghost", "👍")
		assert.ErrorContains(t, err, "not found")
	})

	t.Run("acknowledgments count up", func(t *testing.T) {
		m := NewMemory()
		m.Seed([]*alert.Alert{seedAlert("a-1", "Gym closure", alert.PriorityInfo)})

		count, err := m.Acknowledge(ctx, "a-1")
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		count, err = m.Acknowledge(ctx, "a-1")
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})
}

func TestMemoryBulkDeleteRestore(t *testing.T) {
	ctx := context.Background()

	t.Run("delete confirms only existing ids", func(t *testing.T) {
		m := NewMemory()
		m.Seed([]*alert.Alert{
			seedAlert("a-1", "One", alert.PriorityInfo),
			seedAlert("a-2", "Two", alert.PriorityInfo),
		})

		resp, err := m.BulkDelete(ctx, []string{"a-1", "a-2", "a-404"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a-1", "a-2"}, resp.DeletedIDs)

		alerts, err := m.FetchAlerts(ctx, Filter{})
		require.NoError(t, err)
		assert.Empty(t, alerts)
	})

	t.Run("restore brings back deleted records with their fields", func(t *testing.T) {
		m := NewMemory()
		a := seedAlert("a-1", "One", alert.PriorityImportant)
		a.AcknowledgmentCount = 12
		m.Seed([]*alert.Alert{a})

		resp, err := m.BulkDelete(ctx, []string{"a-1"})
		require.NoError(t, err)
		require.Equal(t, []string{"a-1"}, resp.DeletedIDs)

		require.NoError(t, m.BulkRestore(ctx, []string{"a-1"}))

		alerts, err := m.FetchAlerts(ctx, Filter{})
		require.NoError(t, err)
		require.Len(t, alerts, 1)
		assert.Equal(t, 12, alerts[0].AcknowledgmentCount)
	})

	t.Run("restore of unknown ids is tolerated", func(t *testing.T) {
		m := NewMemory()
		assert.NoError(t, m.BulkRestore(ctx, []string{"never-existed"}))
	})
}

func TestMemorySubscriptions(t *testing.T) {
	t.Run("unsubscribe stops delivery and is idempotent", func(t *testing.T) {
		m := NewMemory()

		received := 0
		sub := m.Subscribe(func(Event) { received++ })
		assert.Equal(t, 1, m.SubscriberCount())

		m.Push(AlertDeletedEvent("a-1"))
		assert.Equal(t, 1, received)

		sub.Unsubscribe()
		sub.Unsubscribe()
		assert.Equal(t, 0, m.SubscriberCount())

		m.Push(AlertDeletedEvent("a-2"))
		assert.Equal(t, 1, received)
	})

	t.Run("cancelled context fails requests", func(t *testing.T) {
		m := NewMemory()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := m.FetchAlerts(ctx, Filter{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
