package game

import (
	"errors"

	"github.com/minaorangina/horserace/deck"
)

var (
	ErrEmptyDeck       = errors.New("no cards left to draw")
	ErrAlreadyFinished = errors.New("race already has a winner")
)

// Resolve works out everything that follows from drawing c: the horse
// advances, side stack stages reveal for as long as every horse is past the
// next stage, and a winner is declared once a horse reaches the finish line.
//
// It does not touch s. A state that already has a winner is returned
// unchanged with no events.
func Resolve(s State, c deck.Card) (State, []Event) {
	next := s.Clone()
	if next.Finished() {
		return next, nil
	}
	if next.Positions == nil {
		next.Positions = NewPositions()
	}

	events := []Event{advanceEvent(c.Suit)}
	next.Positions[c.Suit]++
	card := c
	next.CurrentCard = &card

	limit := next.stageLimit()
	for stage := next.Revealed; stage < limit && next.Positions.Min() > stage; stage++ {
		stageCard := next.SideStack[stage]
		events = append(events, revealEvent(stage, stageCard))
		next.Revealed = stage + 1

		if next.Positions[stageCard.Suit] > 0 {
			events = append(events, retreatEvent(stageCard.Suit, stage))
			next.Positions[stageCard.Suit]--
		}
	}

	if winner, ok := leader(next.Positions); ok {
		next.Winner = &winner
		events = append(events, winnerEvent(winner))
	}

	return next, events
}

// Draw takes the top card off the state's deck and resolves it.
func Draw(s State) (State, []Event, error) {
	if s.Finished() {
		return s, nil, ErrAlreadyFinished
	}
	if s.Deck.Len() == 0 {
		return s, nil, ErrEmptyDeck
	}

	remaining := s.Deck.Clone()
	card, err := remaining.Draw()
	if err != nil {
		return s, nil, err
	}

	s = s.Clone()
	s.Deck = remaining
	next, events := Resolve(s, card)
	return next, events, nil
}

// Apply mutates s by a single event. It is the only way a view of the race
// is moved forward between draws, so replaying the events from Resolve in
// order reproduces the state Resolve returned (bar the deck and current card).
func Apply(s *State, e Event) {
	if s.Positions == nil {
		s.Positions = NewPositions()
	}

	switch e.Kind {
	case Advance:
		if s.Positions[e.Suit] < FinishLine {
			s.Positions[e.Suit]++
		}
	case RevealStage:
		if e.Stage+1 > s.Revealed {
			s.Revealed = e.Stage + 1
		}
	case Retreat:
		if s.Positions[e.Suit] > 0 {
			s.Positions[e.Suit]--
		}
	case WinnerDetermined:
		if s.Winner == nil {
			w := e.Suit
			s.Winner = &w
		}
	}
}

// leader returns the first suit, in enumeration order, at or past the finish line.
func leader(p Positions) (deck.Suit, bool) {
	for _, s := range deck.Suits() {
		if p[s] >= FinishLine {
			return s, true
		}
	}
	return 0, false
}
