package engine

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/minaorangina/horserace/deck"
	"github.com/minaorangina/horserace/game"
	"github.com/minaorangina/horserace/protocol"
	"github.com/minaorangina/horserace/timeline"
)

const (
	step   = timeline.DefaultStep
	settle = timeline.DefaultSettle
)

// canonicalRNG leaves the deck unshuffled: the side stack is 2♥ to 6♥ and
// the racing deck starts with 7♥.
type canonicalRNG struct{}

func (canonicalRNG) Intn(n int) int { return n - 1 }

type spyObserver struct {
	id   string
	mu   sync.Mutex
	msgs []protocol.OutboundMessage
	err  error
}

func (o *spyObserver) ID() string { return o.id }

func (o *spyObserver) Send(msg protocol.OutboundMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, msg)
	return o.err
}

func (o *spyObserver) commands() []protocol.Cmd {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := []protocol.Cmd{}
	for _, m := range o.msgs {
		out = append(out, m.Command)
	}
	return out
}

func (o *spyObserver) last() protocol.OutboundMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.msgs[len(o.msgs)-1]
}

func (o *spyObserver) clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = nil
}

// hangupObserver unsubscribes itself when closed, like a websocket client.
type hangupObserver struct {
	spyObserver
	race   *RaceEngine
	closed int
}

func (o *hangupObserver) Close() error {
	o.closed++
	o.race.Unsubscribe(o.id)
	return nil
}

var someBets = []game.Bet{
	{Name: "Ada", Suit: deck.Hearts, Drinks: 3},
	{Name: "Grace", Suit: deck.Spades, Drinks: 2},
}

func newTestRace(t *testing.T) (*RaceEngine, *timeline.ManualClock, *spyObserver) {
	t.Helper()
	clock := timeline.NewManualClock()
	race := New("race-1", Options{
		Logger: zaptest.NewLogger(t),
		Clock:  clock,
		RNG:    canonicalRNG{},
	})
	spy := &spyObserver{id: "spy"}
	race.Subscribe(spy)
	t.Cleanup(race.Close)
	return race, clock, spy
}

// cascadeSnapshot is a race where drawing 7♠ reveals two stages at once.
func cascadeSnapshot() Snapshot {
	side := []deck.Card{
		{Suit: deck.Hearts, Rank: deck.Two},
		{Suit: deck.Diamonds, Rank: deck.Three},
		{Suit: deck.Clubs, Rank: deck.Four},
		{Suit: deck.Spades, Rank: deck.Five},
		{Suit: deck.Hearts, Rank: deck.Six},
	}
	return Snapshot{
		RaceID: "race-1",
		Phase:  Racing,
		Bets:   someBets,
		State: game.State{
			Positions: game.Positions{deck.Hearts: 3, deck.Diamonds: 3, deck.Clubs: 3, deck.Spades: 2},
			SideStack: side,
			Deck:      deck.Deck{{Suit: deck.Spades, Rank: deck.Seven}, {Suit: deck.Spades, Rank: deck.Eight}},
		},
	}
}

func TestRaceStart(t *testing.T) {
	t.Run("cannot draw before starting", func(t *testing.T) {
		race, _, _ := newTestRace(t)
		_, err := race.Draw()
		assert.ErrorIs(t, err, ErrNotStarted)
		assert.False(t, race.CanDraw())
	})

	t.Run("rejects a bad roster", func(t *testing.T) {
		race, _, _ := newTestRace(t)
		err := race.Start(nil)
		assert.ErrorIs(t, err, game.ErrNoParticipants)
		assert.Equal(t, Setup, race.Phase())
	})

	t.Run("deals the side stack and the deck", func(t *testing.T) {
		race, _, spy := newTestRace(t)
		require.NoError(t, race.Start(someBets))

		v := race.View()
		assert.Equal(t, "racing", v.Phase)
		assert.Equal(t, 47, v.DeckCount)
		assert.Equal(t, 5, v.SideCount)
		assert.Empty(t, v.RevealedCards)
		assert.True(t, v.CanDraw)
		assert.Equal(t, []protocol.Cmd{protocol.Snapshot, protocol.Snapshot}, spy.commands())
		assert.Equal(t, "race-1", spy.last().RaceID)
	})
}

func TestRaceDraw(t *testing.T) {
	t.Run("plays a single advance", func(t *testing.T) {
		race, clock, spy := newTestRace(t)
		require.NoError(t, race.Start(someBets))
		spy.clear()

		events, err := race.Draw()
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, game.Advance, events[0].Kind)
		assert.Equal(t, deck.Hearts, events[0].Suit)

		v := race.View()
		assert.Equal(t, 1, v.Positions[deck.Hearts])
		assert.True(t, v.Animating)
		assert.False(t, v.CanDraw)
		require.NotNil(t, v.Animation)
		assert.Equal(t, protocol.Animation{Suit: deck.Hearts, Direction: protocol.Forward}, *v.Animation)
		assert.Equal(t, "7♥", v.CurrentCard.String())

		clock.Advance(settle)

		v = race.View()
		assert.False(t, v.Animating)
		assert.True(t, v.CanDraw)
		assert.Nil(t, v.Animation)
		assert.Equal(t, []protocol.Cmd{protocol.Drawn, protocol.Advance, protocol.Settled}, spy.commands())
	})

	t.Run("ignores draws while animating", func(t *testing.T) {
		race, clock, _ := newTestRace(t)
		require.NoError(t, race.Start(someBets))

		_, err := race.Draw()
		require.NoError(t, err)

		events, err := race.Draw()
		assert.NoError(t, err)
		assert.Nil(t, events)
		assert.Equal(t, 46, race.View().DeckCount)

		clock.Advance(settle)
		events, err = race.Draw()
		require.NoError(t, err)
		assert.Len(t, events, 1)
	})

	t.Run("declares the winner when the timeline ends", func(t *testing.T) {
		race, clock, spy := newTestRace(t)
		require.NoError(t, race.Start(someBets))

		var events []game.Event
		for i := 0; i < 5; i++ {
			var err error
			events, err = race.Draw()
			require.NoError(t, err)
			clock.Advance(settle - time.Millisecond)
			if i < 4 {
				clock.Advance(time.Millisecond)
			}
		}

		require.Len(t, events, 2)
		assert.Equal(t, game.WinnerDetermined, events[1].Kind)

		assert.NotNil(t, race.State().Winner, "committed straight away")
		assert.Nil(t, race.View().Winner, "observers wait for the timeline")
		_, ok := race.Payouts()
		assert.False(t, ok)

		clock.Advance(time.Millisecond)

		v := race.View()
		require.NotNil(t, v.Winner)
		assert.Equal(t, deck.Hearts, *v.Winner)
		assert.Equal(t, "finished", v.Phase)
		assert.False(t, v.CanDraw)

		summary, ok := race.Payouts()
		require.True(t, ok)
		assert.Equal(t, []game.Payout{{Name: "Ada", Drinks: 6}}, summary.Winners)

		last := spy.last()
		assert.Equal(t, protocol.Settled, last.Command)
		require.NotNil(t, last.Payouts)
		assert.Equal(t, deck.Hearts, last.Payouts.Winner)

		events, err := race.Draw()
		assert.NoError(t, err)
		assert.Nil(t, events)
	})

	t.Run("empty deck is a no-op", func(t *testing.T) {
		race, _, spy := newTestRace(t)
		snap := cascadeSnapshot()
		snap.State.Deck = deck.Deck{}
		_, err := race.Restore(snap)
		require.NoError(t, err)
		spy.clear()

		before := race.State()
		events, err := race.Draw()
		assert.NoError(t, err)
		assert.Nil(t, events)
		assert.Equal(t, before, race.State())
		assert.False(t, race.CanDraw())
		assert.Empty(t, spy.commands())
	})
}

func TestRaceCascade(t *testing.T) {
	race, clock, spy := newTestRace(t)
	_, err := race.Restore(cascadeSnapshot())
	require.NoError(t, err)
	spy.clear()

	events, err := race.Draw()
	require.NoError(t, err)
	require.Len(t, events, 5)

	v := race.View()
	assert.Equal(t, 3, v.Positions[deck.Spades])
	assert.Empty(t, v.RevealedCards)

	clock.Advance(step)
	v = race.View()
	assert.Len(t, v.RevealedCards, 1)
	assert.Equal(t, []int{0}, v.Flashing)
	assert.Equal(t, 3, v.Positions[deck.Hearts], "retreat has not fired yet")

	clock.Advance(step)
	v = race.View()
	assert.Equal(t, 2, v.Positions[deck.Hearts])
	assert.Len(t, v.RevealedCards, 2)
	assert.Equal(t, []int{1}, v.Flashing)
	require.NotNil(t, v.Animation)
	assert.Equal(t, protocol.Backward, v.Animation.Direction)

	clock.Advance(step)
	v = race.View()
	assert.Equal(t, 2, v.Positions[deck.Diamonds])
	assert.Empty(t, v.Flashing)
	assert.True(t, v.Animating)

	clock.Advance(settle)
	v = race.View()
	assert.False(t, v.Animating)
	assert.Equal(t, race.State().Positions, v.Positions)

	assert.Equal(t, []protocol.Cmd{
		protocol.Drawn,
		protocol.Advance,
		protocol.Reveal,
		protocol.Retreat,
		protocol.Reveal,
		protocol.Retreat,
		protocol.Settled,
	}, spy.commands())
}

func TestRaceReset(t *testing.T) {
	t.Run("cancels a timeline mid-flight", func(t *testing.T) {
		race, clock, spy := newTestRace(t)
		_, err := race.Restore(cascadeSnapshot())
		require.NoError(t, err)

		_, err = race.Draw()
		require.NoError(t, err)
		clock.Advance(step)

		race.Reset()
		spy.clear()
		clock.Advance(10 * time.Second)

		assert.Empty(t, spy.commands())
		v := race.View()
		assert.Equal(t, "setup", v.Phase)
		assert.False(t, v.Animating)
		assert.Equal(t, 0, v.Positions.Min())
		assert.Equal(t, 0, v.Positions[deck.Spades])
		assert.Empty(t, v.RevealedCards)
		assert.Zero(t, clock.Pending())

		race.Reset()
		_, err = race.Draw()
		assert.ErrorIs(t, err, ErrNotStarted)
	})

	t.Run("keeps the roster for the next start", func(t *testing.T) {
		race, _, _ := newTestRace(t)
		require.NoError(t, race.Start(someBets))
		race.Reset()
		assert.Equal(t, someBets, race.Bets())
	})

	t.Run("close silences observers", func(t *testing.T) {
		race, clock, spy := newTestRace(t)
		require.NoError(t, race.Start(someBets))
		_, err := race.Draw()
		require.NoError(t, err)

		race.Close()
		spy.clear()
		clock.Advance(time.Second)
		assert.Empty(t, spy.commands())
	})
}

func TestRaceClose(t *testing.T) {
	race, _, _ := newTestRace(t)
	require.NoError(t, race.Start(someBets))

	conn := &hangupObserver{spyObserver: spyObserver{id: "conn"}, race: race}
	race.Subscribe(conn)
	require.Equal(t, 2, race.ObserverCount())

	race.Close()
	assert.Equal(t, 1, conn.closed)
	assert.Zero(t, race.ObserverCount())

	_, err := race.Draw()
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, race.Start(someBets), ErrClosed)

	race.Close()
	assert.Equal(t, 1, conn.closed, "already dropped")
}

func TestRaceSnapshot(t *testing.T) {
	t.Run("resumes from json", func(t *testing.T) {
		clock := timeline.NewManualClock()
		original := New("a", Options{Clock: clock, RNG: deck.NewRNG(11)})
		require.NoError(t, original.Start(someBets))
		for i := 0; i < 4; i++ {
			_, err := original.Draw()
			require.NoError(t, err)
			clock.Advance(5 * time.Second)
		}

		data, err := json.Marshal(original.Snapshot())
		require.NoError(t, err)

		var snap Snapshot
		require.NoError(t, json.Unmarshal(data, &snap))

		resumed := New("b", Options{Clock: clock})
		fixes, err := resumed.Restore(snap)
		require.NoError(t, err)
		assert.Empty(t, fixes)
		assert.Equal(t, original.State(), resumed.State())
		assert.Equal(t, someBets, resumed.Bets())

		for original.CanDraw() {
			want, err := original.Draw()
			require.NoError(t, err)
			got, err := resumed.Draw()
			require.NoError(t, err)
			assert.Equal(t, want, got)
			clock.Advance(5 * time.Second)
		}
		assert.Equal(t, original.State().Winner, resumed.State().Winner)
	})

	t.Run("setup snapshot restores cleanly", func(t *testing.T) {
		race, _, _ := newTestRace(t)
		fixes, err := race.Restore(race.Snapshot())
		require.NoError(t, err)
		assert.Empty(t, fixes)
		assert.Equal(t, Setup, race.Phase())
	})

	t.Run("clamps and logs malformed state", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		race := New("bad", Options{Logger: zap.New(core), Clock: timeline.NewManualClock()})

		snap := cascadeSnapshot()
		snap.State.Positions = game.Positions{deck.Hearts: -1, deck.Diamonds: 9, deck.Clubs: 1, deck.Spades: 1}
		snap.State.Revealed = 8

		fixes, err := race.Restore(snap)
		require.NoError(t, err)
		assert.NotEmpty(t, fixes)
		assert.Equal(t, len(fixes), logs.FilterMessage("restored state corrected").Len())

		s := race.State()
		assert.Equal(t, 0, s.Positions[deck.Hearts])
		assert.Equal(t, game.FinishLine, s.Positions[deck.Diamonds])
		assert.Equal(t, 5, s.Revealed)
		require.NotNil(t, s.Winner)
		assert.Equal(t, Finished, race.Phase())
	})

	t.Run("keeps the winner of a race with nothing left to deal", func(t *testing.T) {
		race, _, _ := newTestRace(t)
		hearts := deck.Hearts
		snap := Snapshot{
			RaceID: "race-1",
			Phase:  Finished,
			Bets:   someBets,
			State: game.State{
				Positions: game.Positions{deck.Hearts: 5, deck.Diamonds: 0, deck.Clubs: 0, deck.Spades: 0},
				Winner:    &hearts,
			},
		}

		fixes, err := race.Restore(snap)
		require.NoError(t, err)
		assert.Empty(t, fixes)
		assert.Equal(t, Finished, race.Phase())

		v := race.View()
		require.NotNil(t, v.Winner)
		assert.Equal(t, deck.Hearts, *v.Winner)
		assert.Equal(t, 5, v.Positions[deck.Hearts])

		summary, ok := race.Payouts()
		require.True(t, ok)
		assert.Equal(t, []game.Payout{{Name: "Ada", Drinks: 6}}, summary.Winners)
	})

	t.Run("rejects a snapshot with a bad roster", func(t *testing.T) {
		race, _, _ := newTestRace(t)
		snap := cascadeSnapshot()
		snap.Bets = []game.Bet{{Name: "", Suit: deck.Hearts, Drinks: 1}}
		_, err := race.Restore(snap)
		assert.ErrorIs(t, err, game.ErrInvalidName)
	})
}

func TestObservers(t *testing.T) {
	t.Run("subscribing sends the current view", func(t *testing.T) {
		race, _, _ := newTestRace(t)
		late := &spyObserver{id: "late"}
		race.Subscribe(late)
		assert.Equal(t, []protocol.Cmd{protocol.Snapshot}, late.commands())
	})

	t.Run("unsubscribed observers hear nothing", func(t *testing.T) {
		race, _, spy := newTestRace(t)
		race.Unsubscribe(spy.ID())
		spy.clear()
		require.NoError(t, race.Start(someBets))
		assert.Empty(t, spy.commands())
	})

	t.Run("a failing observer does not stop the race", func(t *testing.T) {
		race, clock, spy := newTestRace(t)
		broken := &spyObserver{id: "broken", err: errors.New("gone")}
		race.Subscribe(broken)
		require.NoError(t, race.Start(someBets))

		_, err := race.Draw()
		require.NoError(t, err)
		clock.Advance(time.Second)
		assert.Equal(t, protocol.Settled, spy.last().Command)
	})
}
