package game

import (
	"fmt"

	"github.com/minaorangina/horserace/deck"
)

// Correction records one thing Normalize had to fix in a restored state.
type Correction struct {
	Field  string `json:"field"`
	Detail string `json:"detail"`
}

func (c Correction) String() string {
	return c.Field + ": " + c.Detail
}

// Normalize clamps a state loaded from outside back inside the race's
// invariants. The returned corrections are empty for a well-formed state.
func Normalize(s State) (State, []Correction) {
	out := s.Clone()
	var fixes []Correction

	if out.Positions == nil {
		out.Positions = Positions{}
	}
	for suit := range out.Positions {
		if !suit.Valid() {
			delete(out.Positions, suit)
			fixes = append(fixes, Correction{"horsePositions", fmt.Sprintf("dropped unknown suit %d", int(suit))})
		}
	}
	for _, suit := range deck.Suits() {
		v, ok := out.Positions[suit]
		switch {
		case !ok:
			out.Positions[suit] = 0
			fixes = append(fixes, Correction{"horsePositions", fmt.Sprintf("%s missing, set to 0", suit.Name())})
		case v < 0:
			out.Positions[suit] = 0
			fixes = append(fixes, Correction{"horsePositions", fmt.Sprintf("%s was %d, clamped to 0", suit.Name(), v)})
		case v > FinishLine:
			out.Positions[suit] = FinishLine
			fixes = append(fixes, Correction{"horsePositions", fmt.Sprintf("%s was %d, clamped to %d", suit.Name(), v, FinishLine)})
		}
	}

	if len(out.SideStack) > MaxStages {
		fixes = append(fixes, Correction{"sideCards", fmt.Sprintf("had %d cards, kept the first %d", len(out.SideStack), MaxStages)})
		out.SideStack = out.SideStack[:MaxStages]
	}

	if limit := out.stageLimit(); out.Revealed > limit {
		fixes = append(fixes, Correction{"revealed", fmt.Sprintf("was %d, clamped to %d", out.Revealed, limit)})
		out.Revealed = limit
	} else if out.Revealed < 0 {
		fixes = append(fixes, Correction{"revealed", fmt.Sprintf("was %d, clamped to 0", out.Revealed)})
		out.Revealed = 0
	}

	if out.Winner != nil && !out.Winner.Valid() {
		fixes = append(fixes, Correction{"winner", fmt.Sprintf("unknown suit %d cleared", int(*out.Winner))})
		out.Winner = nil
	}
	if out.Winner == nil {
		if w, ok := leader(out.Positions); ok {
			out.Winner = &w
			fixes = append(fixes, Correction{"winner", fmt.Sprintf("%s is at the finish line, declared winner", w.Name())})
		}
	}

	return out, fixes
}
