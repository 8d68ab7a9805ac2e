package game

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/minaorangina/horserace/deck"
)

const (
	MinStake   = 1
	MaxStake   = 20
	MaxNameLen = 20
)

var (
	ErrNoParticipants = errors.New("at least one participant is required")
	ErrInvalidName    = errors.New("invalid participant name")
	ErrDuplicateName  = errors.New("duplicate participant name")
	ErrInvalidStake   = errors.New("invalid drink stake")
)

// Bet is one participant's pick for the race.
type Bet struct {
	Name   string    `json:"name"`
	Suit   deck.Suit `json:"suit"`
	Drinks int       `json:"drinks"`
}

// ValidateBets checks a roster and returns it with names trimmed.
func ValidateBets(bets []Bet) ([]Bet, error) {
	if len(bets) == 0 {
		return nil, ErrNoParticipants
	}

	out := make([]Bet, 0, len(bets))
	seen := map[string]bool{}
	for _, b := range bets {
		b.Name = strings.TrimSpace(b.Name)
		if n := utf8.RuneCountInString(b.Name); n == 0 || n > MaxNameLen {
			return nil, fmt.Errorf("%w: %q must be 1-%d characters", ErrInvalidName, b.Name, MaxNameLen)
		}
		key := strings.ToLower(b.Name)
		if seen[key] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, b.Name)
		}
		seen[key] = true

		if b.Drinks < MinStake || b.Drinks > MaxStake {
			return nil, fmt.Errorf("%w: %s staked %d, must be %d-%d", ErrInvalidStake, b.Name, b.Drinks, MinStake, MaxStake)
		}
		if !b.Suit.Valid() {
			return nil, fmt.Errorf("%s: %w", b.Name, deck.ErrInvalidSuit)
		}
		out = append(out, b)
	}
	return out, nil
}

// Payout is what a winning participant hands out.
type Payout struct {
	Name   string `json:"name"`
	Drinks int    `json:"drinks"`
}

// PayoutSummary settles a finished race. When nobody backed the winner,
// Winners is empty and EveryoneDrinks is set instead.
type PayoutSummary struct {
	Winner         deck.Suit `json:"winner"`
	Winners        []Payout  `json:"winners"`
	EveryoneDrinks int       `json:"everyoneDrinks,omitempty"`
}

// Payouts doubles the stake of everyone who backed the winner.
func Payouts(winner deck.Suit, bets []Bet) PayoutSummary {
	summary := PayoutSummary{Winner: winner, Winners: []Payout{}}
	for _, b := range bets {
		if b.Suit == winner {
			summary.Winners = append(summary.Winners, Payout{Name: b.Name, Drinks: b.Drinks * 2})
		}
	}
	if len(summary.Winners) == 0 {
		summary.EveryoneDrinks = len(bets)
	}
	return summary
}
