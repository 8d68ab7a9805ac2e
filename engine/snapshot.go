package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/minaorangina/horserace/game"
	"github.com/minaorangina/horserace/protocol"
)

// Snapshot is everything needed to bring a race back.
type Snapshot struct {
	RaceID string     `json:"raceID"`
	Phase  Phase      `json:"phase"`
	State  game.State `json:"state"`
	Bets   []game.Bet `json:"bets"`
}

// Snapshot captures the committed state. A draw that is still playing is
// captured as already played.
func (e *RaceEngine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	phase := e.phase
	if e.committed.Finished() {
		phase = Finished
	}
	return Snapshot{
		RaceID: e.id,
		Phase:  phase,
		State:  e.committed.Clone(),
		Bets:   append([]game.Bet{}, e.bets...),
	}
}

// Restore replaces the race with a snapshot. Anything out of range is
// clamped; the corrections made are logged and returned so the caller can
// offer a reset.
func (e *RaceEngine) Restore(s Snapshot) ([]game.Correction, error) {
	var bets []game.Bet
	if len(s.Bets) > 0 {
		var err error
		bets, err = game.ValidateBets(s.Bets)
		if err != nil {
			return nil, fmt.Errorf("restoring race %s: %w", s.RaceID, err)
		}
	}

	state, fixes := game.Normalize(s.State)

	phase := Racing
	switch {
	case state.Finished():
		phase = Finished
	case len(state.SideStack) == 0 && state.Deck.Len() == 0 && state.CurrentCard == nil:
		phase = Setup
	}
	if phase != s.Phase {
		fixes = append(fixes, game.Correction{
			Field:  "phase",
			Detail: fmt.Sprintf("was %s, state says %s", s.Phase, phase),
		})
	}
	if phase == Setup {
		state = emptyState()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.scheduler.CancelActive()
	e.phase = phase
	e.bets = bets
	e.committed = state
	e.view = state.Clone()
	e.flashing = nil
	e.animation = nil

	for _, fix := range fixes {
		e.log.Warn("restored state corrected", zap.String("field", fix.Field), zap.String("detail", fix.Detail))
	}
	e.log.Info("race restored", zap.Stringer("phase", phase), zap.Int("corrections", len(fixes)))
	e.broadcast(protocol.OutboundMessage{Command: protocol.Snapshot, State: e.viewLocked()})
	return fixes, nil
}
