package scheduler

import "sync"

// Group owns a set of handles that must live and die together, such as the
// undo window's countdown and finalize timers. Handles are only ever
// cancelled through CancelAll, so no code path can cancel one member of the
// pair and leave the other running.
type Group struct {
	mu        sync.Mutex
	handles   []Handle
	cancelled bool
}

// NewGroup creates an empty handle group.
func NewGroup() *Group {
	return &Group{}
}

// Add schedules ownership of a handle. If the group was already cancelled,
// the handle is cancelled immediately.
func (g *Group) Add(h Handle) {
	g.mu.Lock()
	if g.cancelled {
		g.mu.Unlock()
		h.Cancel()
		return
	}
	g.handles = append(g.handles, h)
	g.mu.Unlock()
}

// CancelAll cancels every owned handle. Safe to call more than once.
func (g *Group) CancelAll() {
	g.mu.Lock()
	if g.cancelled {
		g.mu.Unlock()
		return
	}
	g.cancelled = true
	handles := g.handles
	g.handles = nil
	g.mu.Unlock()

	for _, h := range handles {
		h.Cancel()
	}
}

// Active reports whether the group still owns live handles.
func (g *Group) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.cancelled && len(g.handles) > 0
}

// Len returns the number of owned handles.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.handles)
}
