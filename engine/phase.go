package engine

import "fmt"

// Phase is where a race is in its life
// setup -> no cards dealt yet
// racing -> cards are being drawn
// finished -> a horse has won
type Phase int

const (
	Setup Phase = iota
	Racing
	Finished
)

var phaseNames = map[Phase]string{
	Setup:    "setup",
	Racing:   "racing",
	Finished: "finished",
}

func (p Phase) String() string {
	return phaseNames[p]
}

func (p Phase) MarshalText() ([]byte, error) {
	name, ok := phaseNames[p]
	if !ok {
		return nil, fmt.Errorf("unknown phase %d", int(p))
	}
	return []byte(name), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	for phase, name := range phaseNames {
		if name == string(text) {
			*p = phase
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", string(text))
}
