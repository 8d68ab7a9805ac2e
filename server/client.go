package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/minaorangina/horserace/engine"
	"github.com/minaorangina/horserace/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Messages buffered per client before it is considered too slow.
	sendBuffer = 64
)

var (
	ErrClientGone = errors.New("client disconnected")
	ErrClientSlow = errors.New("client is not keeping up")
)

// wsClient watches a race over a websocket and may send it commands
type wsClient struct {
	id     string
	conn   *websocket.Conn
	race   *engine.RaceEngine
	server *RaceServer
	log    *zap.Logger

	send chan []byte
	done chan struct{}
	once sync.Once
}

func newWSClient(id string, conn *websocket.Conn, race *engine.RaceEngine, s *RaceServer) *wsClient {
	return &wsClient{
		id:     id,
		conn:   conn,
		race:   race,
		server: s,
		log:    s.log.With(zap.String("race_id", race.ID()), zap.String("observer_id", id)),
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

func (c *wsClient) ID() string {
	return c.id
}

// Send queues a message. It never blocks, since the race calls it while locked.
func (c *wsClient) Send(msg protocol.OutboundMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrClientGone
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		return ErrClientSlow
	}
}

// Close hangs up on the peer. The race calls it when it is closed.
func (c *wsClient) Close() error {
	c.close()
	return nil
}

func (c *wsClient) close() {
	c.once.Do(func() {
		close(c.done)
		c.race.Unsubscribe(c.id)
		c.conn.Close()
	})
}

// HandleWS upgrades to a websocket and subscribes it to the race
func (s *RaceServer) HandleWS(w http.ResponseWriter, r *http.Request) {
	race, ok := s.raceFromRequest(w, r)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("could not upgrade to websocket", zap.Error(err))
		return
	}

	c := newWSClient(NewID(), conn, race, s)
	race.Subscribe(c)
	c.log.Debug("observer connected")

	go c.writePump()
	go c.readPump()
}

func (c *wsClient) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("observer read failed", zap.Error(err))
			}
			return
		}

		var msg protocol.InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.reply(err)
			continue
		}
		c.handle(msg)
	}
}

func (c *wsClient) handle(msg protocol.InboundMessage) {
	var err error
	switch msg.Command {
	case protocol.Draw:
		_, err = c.race.Draw()
	case protocol.Start:
		bets := msg.Bets
		if len(bets) == 0 {
			bets = c.race.Bets()
		}
		err = c.race.Start(bets)
	case protocol.Reset:
		c.race.Reset()
	default:
		err = errors.New("unsupported command " + msg.Command.String())
	}

	if err != nil {
		c.reply(err)
		return
	}
	c.server.save(context.Background(), c.race)
}

func (c *wsClient) reply(err error) {
	if sendErr := c.Send(protocol.OutboundMessage{
		RaceID:  c.race.ID(),
		Command: protocol.Error,
		Error:   err.Error(),
	}); sendErr != nil {
		c.log.Debug("could not send error", zap.Error(sendErr))
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
