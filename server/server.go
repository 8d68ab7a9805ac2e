package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/handlers"
	"github.com/gorilla/websocket"
	uuid "github.com/satori/go.uuid"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/minaorangina/horserace/deck"
	"github.com/minaorangina/horserace/engine"
	"github.com/minaorangina/horserace/store"
	"github.com/minaorangina/horserace/timeline"
)

// Options configures a RaceServer. Races and Snapshots default to the
// in-memory stores.
type Options struct {
	Races          store.RaceStore
	Snapshots      store.SnapshotStore
	Logger         *zap.Logger
	Clock          timeline.Clock
	Timing         timeline.Timing
	DeckSeed       uint64
	AllowedOrigins []string
}

// RaceServer serves races over HTTP and websockets
type RaceServer struct {
	http.Server
	races     store.RaceStore
	snapshots store.SnapshotStore
	log       *zap.Logger
	opts      Options
	upgrader  websocket.Upgrader
}

// NewID constructs an observer ID
func NewID() string {
	return uuid.NewV4().String()
}

// NewServer creates a new RaceServer
func NewServer(opts Options) *RaceServer {
	if opts.Races == nil {
		opts.Races = store.NewInMemoryRaceStore()
	}
	if opts.Snapshots == nil {
		opts.Snapshots = store.NewInMemorySnapshotStore()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	s := &RaceServer{
		races:     opts.Races,
		snapshots: opts.Snapshots,
		log:       opts.Logger,
		opts:      opts,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	router := chi.NewRouter()
	router.Get("/healthz", s.HandleHealth)
	router.Route("/races", func(r chi.Router) {
		r.Post("/", s.HandleNewRace)
		r.Route("/{raceID}", func(r chi.Router) {
			r.Get("/", s.HandleGetRace)
			r.Post("/start", s.HandleStart)
			r.Post("/draw", s.HandleDraw)
			r.Post("/reset", s.HandleReset)
			r.Get("/payouts", s.HandlePayouts)
			r.Get("/snapshot", s.HandleSnapshot)
			r.Get("/ws", s.HandleWS)
		})
	})

	var h http.Handler = router
	h = handlers.CORS(
		handlers.AllowedOrigins(opts.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(h)
	h = handlers.CustomLoggingHandler(io.Discard, h, s.logRequest)
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(zap.NewStdLog(s.log)))(h)

	s.Handler = h
	return s
}

// ServeHTTP serves http
func (s *RaceServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Handler.ServeHTTP(w, r)
}

func (s *RaceServer) logRequest(_ io.Writer, p handlers.LogFormatterParams) {
	s.log.Info("request",
		zap.String("method", p.Request.Method),
		zap.String("path", p.URL.Path),
		zap.Int("status", p.StatusCode),
		zap.Int("size", p.Size),
		zap.Duration("latency", time.Since(p.TimeStamp)),
	)
}

func (s *RaceServer) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.opts.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (s *RaceServer) newRace() *engine.RaceEngine {
	return s.raceWithID(ksuid.New().String())
}

func (s *RaceServer) raceWithID(id string) *engine.RaceEngine {
	var rng deck.RNG
	if s.opts.DeckSeed != 0 {
		rng = deck.NewRNG(s.opts.DeckSeed)
	}
	return engine.New(id, engine.Options{
		Logger: s.log,
		Clock:  s.opts.Clock,
		Timing: s.opts.Timing,
		RNG:    rng,
	})
}

// findRace returns a live race, bringing it back from its snapshot if
// it is not in memory.
func (s *RaceServer) findRace(ctx context.Context, raceID string) (*engine.RaceEngine, error) {
	if race := s.races.FindRace(raceID); race != nil {
		return race, nil
	}

	snap, err := s.snapshots.Load(ctx, raceID)
	if errors.Is(err, store.ErrSnapshotNotFound) {
		return nil, store.ErrUnknownRaceID
	}
	if err != nil {
		return nil, err
	}

	race := s.raceWithID(raceID)
	if _, err := race.Restore(snap); err != nil {
		return nil, err
	}
	if err := s.races.AddRace(race); err != nil {
		if errors.Is(err, store.ErrRaceExists) {
			race.Close()
			return s.races.FindRace(raceID), nil
		}
		return nil, err
	}
	s.log.Info("race resumed from snapshot", zap.String("race_id", raceID))
	return race, nil
}

// save persists the committed state of a race. Failing to save does not
// fail the request.
func (s *RaceServer) save(ctx context.Context, race *engine.RaceEngine) {
	if err := s.snapshots.Save(ctx, race.Snapshot()); err != nil {
		s.log.Warn("could not save snapshot", zap.String("race_id", race.ID()), zap.Error(err))
	}
}

// CloseRaces closes every live race.
func (s *RaceServer) CloseRaces() {
	for _, id := range s.races.RaceIDs() {
		if err := s.races.RemoveRace(id); err != nil {
			s.log.Debug("could not remove race", zap.String("race_id", id), zap.Error(err))
		}
	}
}
