package scheduler

import (
	"sort"
	"sync"
	"time"
)

// Manual is a deterministic Scheduler for tests. Nothing fires until the
// virtual clock is advanced with Advance, so timer behavior can be asserted
// without sleeping.
type Manual struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	tasks []*manualTask
}

type manualTask struct {
	h        *manualHandle
	due      time.Duration
	interval time.Duration // zero for one-shot tasks
	seq      int
	fn       func()
}

type manualHandle struct {
	mu        sync.Mutex
	cancelled bool
}

func (h *manualHandle) Cancel() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cancelled = true
}

func (h *manualHandle) isCancelled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancelled
}

// NewManual creates a manual scheduler with the virtual clock at zero.
func NewManual() *Manual {
	return &Manual{}
}

// After schedules fn to run once when the virtual clock reaches now+d.
func (m *Manual) After(d time.Duration, fn func()) Handle {
	return m.add(d, 0, fn)
}

// Every schedules fn to run each time another d elapses on the virtual clock.
func (m *Manual) Every(d time.Duration, fn func()) Handle {
	return m.add(d, d, fn)
}

func (m *Manual) add(d, interval time.Duration, fn func()) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	h := &manualHandle{}
	m.tasks = append(m.tasks, &manualTask{
		h:        h,
		due:      m.now + d,
		interval: interval,
		seq:      m.seq,
		fn:       fn,
	})
	m.seq++

	return h
}

// Advance moves the virtual clock forward by d, firing due tasks in due-time
// order (insertion order breaks ties). Callbacks run outside the scheduler
// lock, so they may schedule or cancel freely.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		task := m.nextDue(target)
		if task == nil {
			break
		}
		if !task.h.isCancelled() {
			task.fn()
		}
	}

	m.mu.Lock()
	m.now = target
	m.mu.Unlock()
}

// nextDue pops the earliest task due at or before target, advancing the
// virtual clock to its due time. Recurring tasks are rescheduled before the
// callback runs, mirroring a real ticker.
func (m *Manual) nextDue(target time.Duration) *manualTask {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Drop cancelled tasks first so they neither fire nor linger
	live := m.tasks[:0]
	for _, t := range m.tasks {
		if !t.h.isCancelled() {
			live = append(live, t)
		}
	}
	m.tasks = live

	sort.SliceStable(m.tasks, func(i, j int) bool {
		if m.tasks[i].due != m.tasks[j].due {
			return m.tasks[i].due < m.tasks[j].due
		}
		return m.tasks[i].seq < m.tasks[j].seq
	})

	for i, t := range m.tasks {
		if t.due > target {
			break
		}

		m.now = t.due
		if t.interval > 0 {
			next := *t
			next.due = t.due + t.interval
			m.tasks[i] = &next
		} else {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
		}
		return t
	}

	return nil
}

// Pending returns the number of live scheduled tasks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, t := range m.tasks {
		if !t.h.isCancelled() {
			count++
		}
	}
	return count
}
