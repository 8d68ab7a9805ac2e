package engine

import (
	"errors"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/minaorangina/horserace/deck"
	"github.com/minaorangina/horserace/game"
	"github.com/minaorangina/horserace/protocol"
	"github.com/minaorangina/horserace/timeline"
)

var (
	ErrNotStarted = errors.New("race has not been started")
	ErrClosed     = errors.New("race is closed")
)

// Observer receives every change to a race. Send is called with the race
// locked, so it must not block or call back into the race. Observers that
// are also io.Closers are closed when the race is.
type Observer interface {
	ID() string
	Send(msg protocol.OutboundMessage) error
}

// Options configures a RaceEngine. The zero value is usable.
type Options struct {
	Logger *zap.Logger
	Clock  timeline.Clock
	Timing timeline.Timing
	RNG    deck.RNG
}

// RaceEngine owns one race.
//
// Draws are resolved straight away into the committed state. Observers
// see a second copy, the view, which the timeline moves forward one event
// at a time until it catches up with the committed state.
type RaceEngine struct {
	mu  sync.Mutex
	id  string
	log *zap.Logger
	rng deck.RNG

	phase     Phase
	bets      []game.Bet
	committed game.State
	view      game.State
	flashing  []int
	animation *protocol.Animation

	scheduler *timeline.Scheduler
	observers []Observer
	closed    bool
}

// New constructs a race in the setup phase
func New(id string, opts Options) *RaceEngine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Timing == (timeline.Timing{}) {
		opts.Timing = timeline.DefaultTiming()
	}
	if opts.RNG == nil {
		opts.RNG = deck.NewRNG(0)
	}

	e := &RaceEngine{
		id:        id,
		log:       opts.Logger.With(zap.String("race_id", id)),
		rng:       opts.RNG,
		committed: emptyState(),
		view:      emptyState(),
	}
	e.scheduler = timeline.NewScheduler(&e.mu, opts.Clock, opts.Timing, e.applyStep)
	return e
}

func emptyState() game.State {
	return game.State{Positions: game.NewPositions()}
}

func (e *RaceEngine) ID() string {
	return e.id
}

// Start deals a new race for the given roster. Any race in progress is
// thrown away.
func (e *RaceEngine) Start(bets []game.Bet) error {
	bets, err := game.ValidateBets(bets)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	state, err := game.NewState(deck.Build(e.rng))
	if err != nil {
		return err
	}

	e.scheduler.CancelActive()
	e.bets = bets
	e.committed = state
	e.view = state.Clone()
	e.flashing = nil
	e.animation = nil
	e.phase = Racing

	e.log.Info("race started", zap.Int("participants", len(bets)), zap.Stringer("side_stack", cards(state.SideStack)))
	e.broadcast(protocol.OutboundMessage{Command: protocol.Snapshot, State: e.viewLocked()})
	return nil
}

// Bets returns the roster the race was started with.
func (e *RaceEngine) Bets() []game.Bet {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]game.Bet{}, e.bets...)
}

// Draw pulls the next card and plays out its consequences. Drawing while
// the last draw is still playing, from an empty deck or after a winner
// is a no-op and returns no events.
func (e *RaceEngine) Draw() ([]game.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}
	if e.phase == Setup {
		return nil, ErrNotStarted
	}
	if e.scheduler.Animating() {
		e.log.Debug("draw ignored, timeline still playing")
		return nil, nil
	}

	next, events, err := game.Draw(e.committed)
	if err != nil {
		e.log.Debug("draw ignored", zap.Error(err))
		return nil, nil
	}
	e.committed = next

	drawn := *next.CurrentCard
	e.view.Deck = next.Deck.Clone()
	e.view.CurrentCard = &drawn
	e.flashing = nil

	e.log.Debug("card drawn",
		zap.Stringer("card", drawn),
		zap.Int("deck_count", next.Deck.Len()),
		zap.Int("events", len(events)),
	)
	e.broadcast(protocol.OutboundMessage{Command: protocol.Drawn, Card: &drawn, State: e.viewLocked()})

	e.scheduler.Schedule(events)
	return events, nil
}

// applyStep moves the view forward. The scheduler calls it with e.mu held.
func (e *RaceEngine) applyStep(step timeline.Step) {
	if step.HasEvent {
		ev := step.Event
		game.Apply(&e.view, ev)

		switch ev.Kind {
		case game.Advance:
			e.animation = &protocol.Animation{Suit: ev.Suit, Direction: protocol.Forward}
		case game.RevealStage:
			e.flashing = append(e.flashing, ev.Stage)
		case game.Retreat:
			e.flashing = without(e.flashing, ev.Stage)
			e.animation = &protocol.Animation{Suit: ev.Suit, Direction: protocol.Backward}
		case game.WinnerDetermined:
			e.phase = Finished
			e.log.Info("winner", zap.String("suit", ev.Suit.Name()))
		}

		e.broadcast(protocol.OutboundMessage{
			Command: protocol.CmdForEvent(ev.Kind),
			Event:   &ev,
			State:   e.viewLocked(),
		})
	}

	if step.Final {
		e.animation = nil
		e.flashing = nil
		e.view = e.committed.Clone()

		msg := protocol.OutboundMessage{Command: protocol.Settled}
		if summary, ok := e.payoutsLocked(); ok {
			msg.Payouts = &summary
		}
		msg.State = e.viewLocked()
		e.broadcast(msg)
	}
}

func without(xs []int, x int) []int {
	out := xs[:0]
	for _, v := range xs {
		if v != x {
			out = append(out, v)
		}
	}
	return out
}

// Reset cancels anything still playing and goes back to setup. The roster
// is kept so the next Start can reuse it.
func (e *RaceEngine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.scheduler.CancelActive()
	e.committed = emptyState()
	e.view = emptyState()
	e.flashing = nil
	e.animation = nil
	e.phase = Setup

	e.log.Info("race reset")
	e.broadcast(protocol.OutboundMessage{Command: protocol.Snapshot, State: e.viewLocked()})
}

// Close stops the timeline and drops every observer. A closed race
// refuses Start and Draw.
func (e *RaceEngine) Close() {
	e.mu.Lock()
	e.scheduler.CancelActive()
	e.closed = true
	observers := e.observers
	e.observers = nil
	e.mu.Unlock()

	for _, o := range observers {
		c, ok := o.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			e.log.Debug("could not close observer", zap.String("observer_id", o.ID()), zap.Error(err))
		}
	}
}

func (e *RaceEngine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

func (e *RaceEngine) Animating() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scheduler.Animating()
}

func (e *RaceEngine) CanDraw() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canDrawLocked()
}

func (e *RaceEngine) canDrawLocked() bool {
	return e.phase == Racing &&
		!e.scheduler.Animating() &&
		e.committed.Deck.Len() > 0 &&
		!e.committed.Finished()
}

// State returns a copy of the committed state.
func (e *RaceEngine) State() game.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.committed.Clone()
}

// View returns what observers currently see.
func (e *RaceEngine) View() protocol.RaceView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.viewLocked()
}

func (e *RaceEngine) viewLocked() *protocol.RaceView {
	v := &protocol.RaceView{
		RaceID:        e.id,
		Phase:         e.phase.String(),
		Positions:     e.view.Positions.Clone(),
		SideCount:     len(e.view.SideStack),
		RevealedCards: e.view.RevealedCards(),
		Flashing:      append([]int{}, e.flashing...),
		DeckCount:     e.view.Deck.Len(),
		Animating:     e.scheduler.Animating(),
		CanDraw:       e.canDrawLocked(),
		Bets:          append([]game.Bet{}, e.bets...),
	}
	if e.view.CurrentCard != nil {
		c := *e.view.CurrentCard
		v.CurrentCard = &c
	}
	if e.view.Winner != nil {
		w := *e.view.Winner
		v.Winner = &w
	}
	if e.animation != nil {
		a := *e.animation
		v.Animation = &a
	}
	return v
}

// Payouts settles the race once observers have seen the winner.
func (e *RaceEngine) Payouts() (game.PayoutSummary, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.payoutsLocked()
}

func (e *RaceEngine) payoutsLocked() (game.PayoutSummary, bool) {
	if e.view.Winner == nil {
		return game.PayoutSummary{}, false
	}
	return game.Payouts(*e.view.Winner, e.bets), true
}

// Subscribe adds an observer and sends it the current view.
func (e *RaceEngine) Subscribe(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.observers = append(e.observers, o)
	e.send(o, protocol.OutboundMessage{Command: protocol.Snapshot, State: e.viewLocked()})
}

func (e *RaceEngine) Unsubscribe(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, o := range e.observers {
		if o.ID() == id {
			e.observers = append(e.observers[:i], e.observers[i+1:]...)
			return
		}
	}
}

// ObserverCount reports how many observers are subscribed.
func (e *RaceEngine) ObserverCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.observers)
}

func (e *RaceEngine) broadcast(msg protocol.OutboundMessage) {
	for _, o := range e.observers {
		e.send(o, msg)
	}
}

func (e *RaceEngine) send(o Observer, msg protocol.OutboundMessage) {
	msg.RaceID = e.id
	if err := o.Send(msg); err != nil {
		e.log.Warn("could not send to observer",
			zap.String("observer_id", o.ID()),
			zap.Stringer("command", msg.Command),
			zap.Error(err),
		)
	}
}

type cards []deck.Card

func (cs cards) String() string {
	s := ""
	for i, c := range cs {
		if i > 0 {
			s += " "
		}
		s += c.String()
	}
	return s
}
