package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/minaorangina/horserace/deck"
	"github.com/minaorangina/horserace/engine"
	"github.com/minaorangina/horserace/game"
	"github.com/minaorangina/horserace/timeline"
)

const (
	actionDraw  = "Draw a card"
	actionStart = "New race"
	actionReset = "Reset"
	actionQuit  = "Quit"
)

// betFlags collects -bet name:suit:drinks values
type betFlags []game.Bet

func (b *betFlags) String() string {
	parts := []string{}
	for _, bet := range *b {
		parts = append(parts, fmt.Sprintf("%s:%s:%d", bet.Name, bet.Suit.Name(), bet.Drinks))
	}
	return strings.Join(parts, ",")
}

func (b *betFlags) Set(raw string) error {
	fields := strings.Split(raw, ":")
	if len(fields) != 3 {
		return fmt.Errorf("want name:suit:drinks, got %q", raw)
	}
	suit, err := deck.ParseSuit(fields[1])
	if err != nil {
		return err
	}
	drinks, err := strconv.Atoi(fields[2])
	if err != nil {
		return fmt.Errorf("drinks: %w", err)
	}
	*b = append(*b, game.Bet{Name: fields[0], Suit: suit, Drinks: drinks})
	return nil
}

func main() {
	var bets betFlags
	seed := flag.Uint64("seed", 0, "deck seed, 0 for a random deck")
	step := flag.Duration("step", timeline.DefaultStep, "delay between race steps")
	settle := flag.Duration("settle", timeline.DefaultSettle, "pause before the race settles")
	logPath := flag.String("log", "", "write debug logs to this file")
	flag.Var(&bets, "bet", "a bet as name:suit:drinks, may be repeated")
	flag.Parse()

	logger := zap.NewNop()
	if *logPath != "" {
		cfg := zap.NewDevelopmentConfig()
		cfg.OutputPaths = []string{*logPath}
		l, err := cfg.Build()
		if err != nil {
			pterm.Fatal.Println(err)
		}
		logger = l
	}
	defer logger.Sync()

	roster := []game.Bet(bets)
	if len(roster) == 0 {
		roster = askForBets()
	}

	race := engine.New(ksuid.New().String(), engine.Options{
		Logger: logger,
		Timing: timeline.Timing{Step: *step, Settle: *settle},
		RNG:    deck.NewRNG(*seed),
	})
	defer race.Close()

	term := newTerminal()
	race.Subscribe(term)
	go term.render()
	defer term.stop()

	if err := race.Start(roster); err != nil {
		term.stop()
		pterm.Error.Println(err)
		os.Exit(1)
	}

	for {
		action, _ := pterm.DefaultInteractiveSelect.
			WithDefaultText("What next?").
			WithOptions(actionsFor(race)).
			Show()

		switch action {
		case actionDraw:
			events, err := race.Draw()
			if err != nil {
				pterm.Error.Println(err)
				continue
			}
			if events != nil {
				<-term.settled
			}
		case actionStart:
			if err := race.Start(race.Bets()); err != nil {
				pterm.Error.Println(err)
			}
		case actionReset:
			race.Reset()
		case actionQuit:
			return
		}
	}
}

func actionsFor(race *engine.RaceEngine) []string {
	switch {
	case race.CanDraw():
		return []string{actionDraw, actionReset, actionQuit}
	case race.Phase() == engine.Setup:
		return []string{actionStart, actionQuit}
	default:
		return []string{actionStart, actionReset, actionQuit}
	}
}

func askForBets() []game.Bet {
	pterm.DefaultHeader.Println("Place your bets")

	suits := []string{}
	for _, s := range deck.Suits() {
		suits = append(suits, s.String()+" "+s.Name())
	}

	var bets []game.Bet
	for {
		name, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText("Name (blank when everyone is in)").
			Show()
		name = strings.TrimSpace(name)
		if name == "" {
			if len(bets) == 0 {
				pterm.Warning.Println("Someone has to bet.")
				continue
			}
			return bets
		}

		picked, _ := pterm.DefaultInteractiveSelect.
			WithDefaultText("Horse").
			WithOptions(suits).
			Show()
		suit, err := deck.ParseSuit(strings.Fields(picked)[0])
		if err != nil {
			pterm.Error.Println(err)
			continue
		}

		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText(fmt.Sprintf("Drinks (%d-%d)", game.MinStake, game.MaxStake)).
			WithDefaultValue("1").
			Show()
		drinks, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			pterm.Error.Println("Drinks must be a number.")
			continue
		}

		candidate := append(append([]game.Bet{}, bets...), game.Bet{Name: name, Suit: suit, Drinks: drinks})
		if _, err := game.ValidateBets(candidate); err != nil {
			pterm.Error.Println(err)
			continue
		}
		bets = candidate
	}
}
