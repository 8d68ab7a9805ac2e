package display

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	"github.com/minaorangina/horserace/deck"
	"github.com/minaorangina/horserace/game"
	"github.com/minaorangina/horserace/protocol"
)

const (
	horse      = "🐎"
	emptySlot  = "·"
	hiddenCard = "▒▒"
)

func suitStyle(s deck.Suit) pterm.Color {
	if s.Red() {
		return pterm.FgLightRed
	}
	return pterm.FgLightWhite
}

// RenderTrack draws the race as a box of lanes, one per horse, with the
// side stack underneath.
func RenderTrack(v protocol.RaceView) string {
	var b strings.Builder

	for _, s := range deck.Suits() {
		b.WriteString(renderLane(v, s))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(renderSideStack(v))
	b.WriteString("\n")
	b.WriteString(renderStatus(v))

	title := pterm.LightYellow("|HORSE RACE|")
	return pterm.DefaultBox.
		WithTitle(title).
		WithTitleTopCenter().
		WithHorizontalPadding(2).
		Sprint(b.String())
}

func renderLane(v protocol.RaceView, s deck.Suit) string {
	pos := v.Positions[s]
	slots := make([]string, 0, game.FinishLine+1)
	for i := 0; i <= game.FinishLine; i++ {
		if i == pos {
			slots = append(slots, horse)
		} else {
			slots = append(slots, emptySlot)
		}
	}

	lane := suitStyle(s).Sprint(s.String()) + " │ " + strings.Join(slots, " ") + " │"
	if v.Animation != nil && v.Animation.Suit == s {
		if v.Animation.Direction == protocol.Forward {
			lane += pterm.LightGreen(" »")
		} else {
			lane += pterm.LightRed(" «")
		}
	}
	if v.Winner != nil && *v.Winner == s {
		lane += " " + pterm.LightGreen("WINNER")
	}
	return lane
}

func renderSideStack(v protocol.RaceView) string {
	parts := make([]string, 0, v.SideCount)
	for i := 0; i < v.SideCount; i++ {
		if i >= len(v.RevealedCards) {
			parts = append(parts, hiddenCard)
			continue
		}
		c := v.RevealedCards[i]
		text := suitStyle(c.Suit).Sprint(c.String())
		if flashing(v.Flashing, i) {
			text = pterm.BgYellow.Sprint(c.String())
		}
		parts = append(parts, text)
	}
	return "Side: " + strings.Join(parts, " ")
}

func flashing(indices []int, i int) bool {
	for _, idx := range indices {
		if idx == i {
			return true
		}
	}
	return false
}

func renderStatus(v protocol.RaceView) string {
	current := "-"
	if v.CurrentCard != nil {
		current = v.CurrentCard.String()
	}
	return fmt.Sprintf("Card: %s   Deck: %d", current, v.DeckCount)
}

// RenderPayouts describes who drinks once the race is over.
func RenderPayouts(p game.PayoutSummary) string {
	if len(p.Winners) == 0 {
		return pterm.Sprintfln("Nobody backed %s. Everyone drinks %d!", p.Winner.Name(), p.EveryoneDrinks)
	}
	var b strings.Builder
	b.WriteString(pterm.Sprintfln("%s wins!", p.Winner.Name()))
	for _, w := range p.Winners {
		b.WriteString(pterm.Sprintfln("%s hands out %d drinks", pterm.LightCyan(w.Name), w.Drinks))
	}
	return b.String()
}
