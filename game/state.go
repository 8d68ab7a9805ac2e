package game

import (
	"github.com/minaorangina/horserace/deck"
)

// FinishLine is the position a horse has to reach to win. The track has
// slots 0..FinishLine.
const FinishLine = 5

// MaxStages caps how many side stack cards can ever be revealed.
const MaxStages = deck.SideStackSize

// Positions maps each horse to its slot on the track.
type Positions map[deck.Suit]int

// NewPositions returns every horse on the start line.
func NewPositions() Positions {
	p := Positions{}
	for _, s := range deck.Suits() {
		p[s] = 0
	}
	return p
}

// Min returns the position of the horse furthest behind.
func (p Positions) Min() int {
	min := -1
	for _, s := range deck.Suits() {
		if v := p[s]; min == -1 || v < min {
			min = v
		}
	}
	return min
}

func (p Positions) Clone() Positions {
	out := make(Positions, len(p))
	for s, v := range p {
		out[s] = v
	}
	return out
}

// State is the committed record of a race. It is plain data so it can be
// persisted and restored as is.
type State struct {
	Positions   Positions   `json:"horsePositions"`
	SideStack   []deck.Card `json:"sideCards"`
	Revealed    int         `json:"revealed"`
	Deck        deck.Deck   `json:"deck"`
	CurrentCard *deck.Card  `json:"currentCard"`
	Winner      *deck.Suit  `json:"winner"`
}

// NewState starts a race from a shuffled deck: the first cards become the
// side stack and the rest is the racing deck.
func NewState(d deck.Deck) (State, error) {
	d = d.Clone()
	side, err := d.SplitSideStack()
	if err != nil {
		return State{}, err
	}
	return State{
		Positions: NewPositions(),
		SideStack: side,
		Deck:      d,
	}, nil
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := State{
		Positions: s.Positions.Clone(),
		Revealed:  s.Revealed,
		Deck:      s.Deck.Clone(),
	}
	if s.SideStack != nil {
		out.SideStack = append([]deck.Card{}, s.SideStack...)
	}
	if s.CurrentCard != nil {
		c := *s.CurrentCard
		out.CurrentCard = &c
	}
	if s.Winner != nil {
		w := *s.Winner
		out.Winner = &w
	}
	return out
}

// RevealedCards returns the side stack cards turned over so far.
func (s State) RevealedCards() []deck.Card {
	n := s.Revealed
	if n > len(s.SideStack) {
		n = len(s.SideStack)
	}
	if n <= 0 {
		return []deck.Card{}
	}
	return append([]deck.Card{}, s.SideStack[:n]...)
}

// Finished reports whether a winner has been declared.
func (s State) Finished() bool {
	return s.Winner != nil
}

// stageLimit is the number of stages that can be revealed for this side stack.
func (s State) stageLimit() int {
	if len(s.SideStack) < MaxStages {
		return len(s.SideStack)
	}
	return MaxStages
}
