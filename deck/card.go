package deck

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidSuit = errors.New("invalid suit")
	ErrInvalidRank = errors.New("invalid rank")
)

// Suit represents a suit in a deck of cards.
// Each suit is also a horse in the race.
type Suit int

// Suits are listed in their canonical enumeration order. Anything that
// has to pick one suit out of several (e.g. the winner check) walks them
// in this order.
const (
	Hearts Suit = iota
	Diamonds
	Clubs
	Spades
)

var suitGlyphs = []string{"♥", "♦", "♣", "♠"}

var suitNames = []string{"Hearts", "Diamonds", "Clubs", "Spades"}

// Suits returns every suit in enumeration order.
func Suits() []Suit {
	return []Suit{Hearts, Diamonds, Clubs, Spades}
}

// Valid reports whether s is one of the four suits.
func (s Suit) Valid() bool {
	return s >= Hearts && s <= Spades
}

func (s Suit) String() string {
	if !s.Valid() {
		return "?"
	}
	return suitGlyphs[s]
}

// Name returns the English name of the suit.
func (s Suit) Name() string {
	if !s.Valid() {
		return "Unknown"
	}
	return suitNames[s]
}

// Red reports whether the suit is printed in red.
func (s Suit) Red() bool {
	return s == Hearts || s == Diamonds
}

// ParseSuit accepts a glyph, a name or an initial, case-insensitively.
func ParseSuit(raw string) (Suit, error) {
	v := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(raw)), "\ufe0f")
	for i, glyph := range suitGlyphs {
		name := strings.ToLower(suitNames[i])
		if v == glyph || v == name || v == strings.TrimSuffix(name, "s") || v == name[:1] {
			return Suit(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidSuit, raw)
}

// MarshalText encodes the suit as its glyph, so suits can be used as JSON
// values and map keys.
func (s Suit) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSuit, int(s))
	}
	return []byte(suitGlyphs[s]), nil
}

func (s *Suit) UnmarshalText(text []byte) error {
	parsed, err := ParseSuit(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Rank represents a rank in a deck of cards. Aces rank high.
type Rank int

var rankNames = []string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}

const (
	Two Rank = iota
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

// Ranks returns every rank from Two to Ace.
func Ranks() []Rank {
	ranks := make([]Rank, 0, len(rankNames))
	for r := Two; r <= Ace; r++ {
		ranks = append(ranks, r)
	}
	return ranks
}

func (r Rank) Valid() bool {
	return r >= Two && r <= Ace
}

func (r Rank) String() string {
	if !r.Valid() {
		return "?"
	}
	return rankNames[r]
}

// ParseRank accepts "2".."10", "J", "Q", "K" and "A".
func ParseRank(raw string) (Rank, error) {
	v := strings.ToUpper(strings.TrimSpace(raw))
	for i, name := range rankNames {
		if v == name {
			return Rank(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidRank, raw)
}

func (r Rank) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRank, int(r))
	}
	return []byte(rankNames[r]), nil
}

func (r *Rank) UnmarshalText(text []byte) error {
	parsed, err := ParseRank(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Card is a playing card. Cards are plain values and never change once built.
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"value"`
}

// NewCard constructs a card
func NewCard(rank Rank, suit Suit) (Card, error) {
	if !rank.Valid() {
		return Card{}, fmt.Errorf("%w: %d", ErrInvalidRank, int(rank))
	}
	if !suit.Valid() {
		return Card{}, fmt.Errorf("%w: %d", ErrInvalidSuit, int(suit))
	}
	return Card{Suit: suit, Rank: rank}, nil
}

func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}
