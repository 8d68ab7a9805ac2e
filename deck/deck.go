package deck

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// SideStackSize is the number of cards set aside before racing starts.
const SideStackSize = 5

var (
	ErrEmptyDeck = errors.New("deck is empty")
	ErrShortDeck = errors.New("deck has too few cards for a side stack")
)

// RNG abstracts random number generation so tests can force a deck order.
type RNG interface {
	// Intn returns a non-negative random int in [0, n).
	Intn(n int) int
}

type stdRNG struct {
	r *rand.Rand
}

func (s stdRNG) Intn(n int) int {
	if s.r == nil {
		return rand.IntN(n)
	}
	return s.r.IntN(n)
}

// NewRNG returns an RNG backed by math/rand/v2. A zero seed gives an
// auto-seeded source; any other seed gives a reproducible sequence.
func NewRNG(seed uint64) RNG {
	if seed == 0 {
		return stdRNG{}
	}
	return stdRNG{r: rand.New(rand.NewPCG(seed, seed))}
}

// Deck represents a deck of cards. The head of the slice is the top of the deck.
type Deck []Card

// New creates the canonical, unshuffled 52 card deck.
func New() Deck {
	cards := make(Deck, 0, len(suitGlyphs)*len(rankNames))
	for _, suit := range Suits() {
		for _, rank := range Ranks() {
			cards = append(cards, Card{Suit: suit, Rank: rank})
		}
	}
	return cards
}

// Build creates a full deck and shuffles it.
func Build(rng RNG) Deck {
	d := New()
	d.Shuffle(rng)
	return d
}

// Shuffle shuffles the deck in place, swapping from the end (Fisher-Yates).
func (d Deck) Shuffle(rng RNG) {
	if rng == nil {
		rng = NewRNG(0)
	}
	for i := len(d) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		d[i], d[j] = d[j], d[i]
	}
}

// Draw removes and returns the top card.
// Callers are expected to check Len first; drawing from an empty deck is an error.
func (d *Deck) Draw() (Card, error) {
	if len(*d) == 0 {
		return Card{}, ErrEmptyDeck
	}
	top := (*d)[0]
	*d = (*d)[1:]
	return top, nil
}

// SplitSideStack takes the top SideStackSize cards off the deck and returns them.
func (d *Deck) SplitSideStack() ([]Card, error) {
	if len(*d) < SideStackSize {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrShortDeck, len(*d), SideStackSize)
	}
	side := make([]Card, SideStackSize)
	copy(side, (*d)[:SideStackSize])
	*d = (*d)[SideStackSize:]
	return side, nil
}

func (d Deck) Len() int {
	return len(d)
}

// Clone returns a copy that does not share storage with d.
func (d Deck) Clone() Deck {
	if d == nil {
		return nil
	}
	out := make(Deck, len(d))
	copy(out, d)
	return out
}
