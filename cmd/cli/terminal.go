package main

import (
	"errors"
	"sync"

	"github.com/pterm/pterm"

	"github.com/minaorangina/horserace/display"
	"github.com/minaorangina/horserace/engine"
	"github.com/minaorangina/horserace/protocol"
)

var _ engine.Observer = (*terminal)(nil)

// terminal redraws the track whenever the race changes.
type terminal struct {
	id       string
	messages chan protocol.OutboundMessage
	settled  chan struct{}
	done     chan struct{}
	once     sync.Once
}

func newTerminal() *terminal {
	return &terminal{
		id:       "terminal",
		messages: make(chan protocol.OutboundMessage, 64),
		settled:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

func (t *terminal) ID() string {
	return t.id
}

func (t *terminal) Send(msg protocol.OutboundMessage) error {
	select {
	case t.messages <- msg:
		return nil
	default:
		return errors.New("terminal is behind")
	}
}

func (t *terminal) render() {
	area, _ := pterm.DefaultArea.Start()
	defer area.Stop()

	for {
		select {
		case <-t.done:
			return
		case msg := <-t.messages:
			if msg.State == nil {
				continue
			}
			text := display.RenderTrack(*msg.State)
			if msg.Payouts != nil {
				text += "\n" + display.RenderPayouts(*msg.Payouts)
			}
			area.Update(text)

			if msg.Command == protocol.Settled {
				select {
				case t.settled <- struct{}{}:
				default:
				}
			}
		}
	}
}

func (t *terminal) stop() {
	t.once.Do(func() { close(t.done) })
}
