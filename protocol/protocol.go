package protocol

import (
	"fmt"

	"github.com/minaorangina/horserace/deck"
	"github.com/minaorangina/horserace/game"
)

type Cmd int

const (
	Null Cmd = iota
	Error
	// sent by the race
	Snapshot
	Drawn
	Advance
	Reveal
	Retreat
	Winner
	Settled
	// sent by observers
	Start
	Draw
	Reset
)

var CmdNames = map[Cmd]string{
	Null:     "Null",
	Error:    "Error",
	Snapshot: "Snapshot",
	Drawn:    "Drawn",
	Advance:  "Advance",
	Reveal:   "Reveal",
	Retreat:  "Retreat",
	Winner:   "Winner",
	Settled:  "Settled",
	Start:    "Start",
	Draw:     "Draw",
	Reset:    "Reset",
}

var NameToCmd = map[string]Cmd{
	"Null":     Null,
	"Error":    Error,
	"Snapshot": Snapshot,
	"Drawn":    Drawn,
	"Advance":  Advance,
	"Reveal":   Reveal,
	"Retreat":  Retreat,
	"Winner":   Winner,
	"Settled":  Settled,
	"Start":    Start,
	"Draw":     Draw,
	"Reset":    Reset,
}

func (c Cmd) String() string {
	return CmdNames[c]
}

func (c Cmd) MarshalText() ([]byte, error) {
	name, ok := CmdNames[c]
	if !ok {
		return nil, fmt.Errorf("unknown command %d", int(c))
	}
	return []byte(name), nil
}

func (c *Cmd) UnmarshalText(text []byte) error {
	cmd, ok := NameToCmd[string(text)]
	if !ok {
		return fmt.Errorf("unknown command %q", string(text))
	}
	*c = cmd
	return nil
}

// CmdForEvent maps a resolution event to the message announcing it.
func CmdForEvent(k game.EventKind) Cmd {
	switch k {
	case game.Advance:
		return Advance
	case game.RevealStage:
		return Reveal
	case game.Retreat:
		return Retreat
	case game.WinnerDetermined:
		return Winner
	}
	return Null
}

// Direction of the horse currently moving.
type Direction string

const (
	Forward  Direction = "advance"
	Backward Direction = "retreat"
)

// Animation says which horse is moving and which way. It is cosmetic only.
type Animation struct {
	Suit      deck.Suit `json:"suit"`
	Direction Direction `json:"direction"`
}

// RaceView is what observers see of a race at one instant.
type RaceView struct {
	RaceID        string         `json:"raceID"`
	Phase         string         `json:"phase"`
	Positions     game.Positions `json:"horsePositions"`
	SideCount     int            `json:"sideCount"`
	RevealedCards []deck.Card    `json:"revealedSideCards"`
	Flashing      []int          `json:"flashingBonusIndices"`
	CurrentCard   *deck.Card     `json:"currentCard"`
	Winner        *deck.Suit     `json:"winner"`
	DeckCount     int            `json:"deckCount"`
	Animation     *Animation     `json:"horseAnimation"`
	Animating     bool           `json:"isAnimating"`
	CanDraw       bool           `json:"canDraw"`
	Bets          []game.Bet     `json:"bets"`
}

// OutboundMessage is a message from a race to its observers
type OutboundMessage struct {
	RaceID  string              `json:"raceID"`
	Command Cmd                 `json:"command"`
	State   *RaceView           `json:"state,omitempty"`
	Event   *game.Event         `json:"event,omitempty"`
	Card    *deck.Card          `json:"card,omitempty"`
	Payouts *game.PayoutSummary `json:"payouts,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// InboundMessage is a message from an observer to a race
type InboundMessage struct {
	Command Cmd        `json:"command"`
	Bets    []game.Bet `json:"bets,omitempty"`
}
