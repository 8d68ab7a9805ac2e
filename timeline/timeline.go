// Package timeline plays the events of one draw back over time.
//
// The events are worked out up front by game.Resolve. A Scheduler only
// decides when each one is handed back to its owner, which applies it.
package timeline

import (
	"sync"
	"time"

	"github.com/minaorangina/horserace/game"
)

const (
	// DefaultStep is the gap between a stage reveal and its retreat.
	DefaultStep = 450 * time.Millisecond
	// DefaultSettle is how long a draw stays on screen before the race settles.
	DefaultSettle = 350 * time.Millisecond
)

// Timing holds the delays used to lay out a draw.
type Timing struct {
	Step   time.Duration
	Settle time.Duration
}

func DefaultTiming() Timing {
	return Timing{Step: DefaultStep, Settle: DefaultSettle}
}

// Step is one point on a timeline. The final step of every timeline
// carries the winner event if there is one.
type Step struct {
	At       time.Duration
	Event    game.Event
	HasEvent bool
	Final    bool
}

// Plan lays the events of one draw out on a timeline. The advance is
// immediate, stage k reveals at Step*(k+1) and retreats one Step later.
// The final step comes Settle after the last retreat, or after Settle
// alone when nothing was revealed.
func Plan(events []game.Event, t Timing) []Step {
	steps := make([]Step, 0, len(events)+1)
	stages := 0
	var winner *game.Event

	for i, e := range events {
		switch e.Kind {
		case game.Advance:
			steps = append(steps, Step{At: 0, Event: e, HasEvent: true})
		case game.RevealStage:
			stages++
			steps = append(steps, Step{At: t.Step * time.Duration(stages), Event: e, HasEvent: true})
		case game.Retreat:
			steps = append(steps, Step{At: t.Step * time.Duration(stages+1), Event: e, HasEvent: true})
		case game.WinnerDetermined:
			winner = &events[i]
		}
	}

	final := Step{At: t.Settle, Final: true}
	if stages > 0 {
		final.At = t.Step*time.Duration(stages+1) + t.Settle
	}
	if winner != nil {
		final.Event = *winner
		final.HasEvent = true
	}
	return append(steps, final)
}

// Handle identifies one scheduled timeline.
type Handle struct {
	id        uint64
	steps     []Step
	next      int
	timer     Timer
	cancelled bool
	done      bool
}

func (h *Handle) ID() uint64 {
	return h.id
}

// Scheduler replays planned steps through an apply function.
//
// The scheduler shares its owner's lock: Schedule, Cancel and Animating
// must be called with the lock held, and apply is always called with it
// held. At most one timeline is active at a time.
type Scheduler struct {
	mu     sync.Locker
	clock  Clock
	timing Timing
	apply  func(Step)

	active *Handle
	seq    uint64
}

func NewScheduler(mu sync.Locker, clock Clock, timing Timing, apply func(Step)) *Scheduler {
	if clock == nil {
		clock = RealClock()
	}
	return &Scheduler{
		mu:     mu,
		clock:  clock,
		timing: timing,
		apply:  apply,
	}
}

func (s *Scheduler) Timing() Timing {
	return s.timing
}

// Schedule cancels whatever is still playing and starts a timeline for
// events. Steps due immediately are applied before it returns.
func (s *Scheduler) Schedule(events []game.Event) *Handle {
	s.Cancel(s.active)

	s.seq++
	h := &Handle{id: s.seq, steps: Plan(events, s.timing)}
	s.active = h
	s.run(h, 0)
	return h
}

// run applies every step of h due at or before now, then arms a timer for
// the next one.
func (s *Scheduler) run(h *Handle, now time.Duration) {
	for h.next < len(h.steps) && h.steps[h.next].At <= now {
		step := h.steps[h.next]
		h.next++
		if step.Final {
			h.done = true
		}
		s.apply(step)
		if h.cancelled {
			return
		}
	}
	if h.done || h.next >= len(h.steps) {
		h.done = true
		return
	}

	at := h.steps[h.next].At
	h.timer = s.clock.AfterFunc(at-now, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if h.cancelled || h.done {
			return
		}
		h.timer = nil
		s.run(h, at)
	})
}

// Cancel drops every step of h that has not run yet. It is safe to call
// more than once, with nil, or after the timeline finished.
func (s *Scheduler) Cancel(h *Handle) bool {
	if s.active == h {
		s.active = nil
	}
	if h == nil || h.cancelled || h.done {
		return false
	}
	h.cancelled = true
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	return true
}

// CancelActive cancels the active timeline, if any.
func (s *Scheduler) CancelActive() bool {
	return s.Cancel(s.active)
}

// Animating reports whether a timeline is still playing.
func (s *Scheduler) Animating() bool {
	return s.active != nil && !s.active.cancelled && !s.active.done
}
