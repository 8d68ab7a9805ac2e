package game

import (
	"fmt"

	"github.com/minaorangina/horserace/deck"
)

// EventKind identifies one step of a draw's consequences.
type EventKind int

const (
	Advance EventKind = iota
	RevealStage
	Retreat
	WinnerDetermined
)

var eventKindNames = map[EventKind]string{
	Advance:          "advance",
	RevealStage:      "reveal",
	Retreat:          "retreat",
	WinnerDetermined: "winner",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "unknown"
}

func (k EventKind) MarshalText() ([]byte, error) {
	name, ok := eventKindNames[k]
	if !ok {
		return nil, fmt.Errorf("unknown event kind %d", int(k))
	}
	return []byte(name), nil
}

func (k *EventKind) UnmarshalText(text []byte) error {
	for kind, name := range eventKindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown event kind %q", string(text))
}

// Event is one atomic, ordered step produced by Resolve.
//
// Suit is the horse the event concerns. For RevealStage it is the suit of
// the revealed card, Stage is the side stack index and Card the card itself.
type Event struct {
	Kind  EventKind  `json:"kind"`
	Suit  deck.Suit  `json:"suit"`
	Stage int        `json:"stage"`
	Card  *deck.Card `json:"card,omitempty"`
}

func advanceEvent(s deck.Suit) Event {
	return Event{Kind: Advance, Suit: s}
}

func revealEvent(stage int, c deck.Card) Event {
	return Event{Kind: RevealStage, Suit: c.Suit, Stage: stage, Card: &c}
}

func retreatEvent(s deck.Suit, stage int) Event {
	return Event{Kind: Retreat, Suit: s, Stage: stage}
}

func winnerEvent(s deck.Suit) Event {
	return Event{Kind: WinnerDetermined, Suit: s}
}

func (e Event) String() string {
	switch e.Kind {
	case RevealStage:
		card := "?"
		if e.Card != nil {
			card = e.Card.String()
		}
		return fmt.Sprintf("reveal(%d, %s)", e.Stage, card)
	default:
		return fmt.Sprintf("%s(%s)", e.Kind, e.Suit)
	}
}
