package voice

import (
	"sync"
	"time"
)

// LifecycleGuard tracks whether the owning voice session is still allowed to
// mutate observable state, and owns every timer scheduled on the session's
// behalf. Every deferred continuation re-checks liveness at fire time, so a
// callback can never outlive the session it was scheduled for.
type LifecycleGuard struct {
	mu     sync.Mutex
	torn   bool
	timers map[*time.Timer]struct{}
}

func NewLifecycleGuard() *LifecycleGuard {
	return &LifecycleGuard{timers: make(map[*time.Timer]struct{})}
}

// Live reports whether the session may still act.
func (g *LifecycleGuard) Live() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.torn
}

// ScheduledCall is a pending continuation registered with the guard.
type ScheduledCall struct {
	g *LifecycleGuard
	t *time.Timer
}

// Cancel stops the continuation if it has not fired yet.
func (c *ScheduledCall) Cancel() {
	if c == nil {
		return
	}
	c.g.mu.Lock()
	c.t.Stop()
	delete(c.g.timers, c.t)
	c.g.mu.Unlock()
}

// Schedule runs fn after d unless the session is torn down or the call is
// cancelled first. The liveness check happens when the timer fires, not when
// it is scheduled. Returns nil if the session is already torn down.
func (g *LifecycleGuard) Schedule(d time.Duration, fn func()) *ScheduledCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.torn {
		return nil
	}
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		g.mu.Lock()
		_, pending := g.timers[t]
		delete(g.timers, t)
		live := !g.torn
		g.mu.Unlock()
		if !pending || !live {
			return
		}
		fn()
	})
	g.timers[t] = struct{}{}
	return &ScheduledCall{g: g, t: t}
}

// CancelTimers drains every pending continuation without running it.
func (g *LifecycleGuard) CancelTimers() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for t := range g.timers {
		t.Stop()
		delete(g.timers, t)
	}
}

// MarkTornDown cancels all pending continuations and then flips liveness off.
// The flag is set last so no observer that passed a liveness check can still
// find a live timer. Idempotent.
func (g *LifecycleGuard) MarkTornDown() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.torn {
		return
	}
	for t := range g.timers {
		t.Stop()
		delete(g.timers, t)
	}
	g.torn = true
}
