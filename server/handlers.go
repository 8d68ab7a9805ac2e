package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/minaorangina/horserace/deck"
	"github.com/minaorangina/horserace/engine"
	"github.com/minaorangina/horserace/game"
	"github.com/minaorangina/horserace/protocol"
	"github.com/minaorangina/horserace/store"
)

type NewRaceReq struct {
	Bets []game.Bet `json:"bets"`
}

type NewRaceRes struct {
	RaceID string            `json:"race_id"`
	View   protocol.RaceView `json:"view"`
}

type DrawRes struct {
	Events []game.Event      `json:"events"`
	View   protocol.RaceView `json:"view"`
}

type ErrorRes struct {
	Error string `json:"error"`
}

func (s *RaceServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleNewRace creates a race and starts it with the given bets
func (s *RaceServer) HandleNewRace(w http.ResponseWriter, r *http.Request) {
	var data NewRaceReq
	if err := decodeBody(r, &data); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	race := s.newRace()
	if err := race.Start(data.Bets); err != nil {
		race.Close()
		writeError(w, statusFor(err), err)
		return
	}

	if err := s.races.AddRace(race); err != nil {
		race.Close()
		s.log.Error("could not store race", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.save(r.Context(), race)

	writeJSON(w, http.StatusCreated, NewRaceRes{RaceID: race.ID(), View: race.View()})
}

func (s *RaceServer) HandleGetRace(w http.ResponseWriter, r *http.Request) {
	race, ok := s.raceFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, race.View())
}

// HandleStart deals a fresh race. Without a body the previous roster is reused.
func (s *RaceServer) HandleStart(w http.ResponseWriter, r *http.Request) {
	race, ok := s.raceFromRequest(w, r)
	if !ok {
		return
	}

	var data NewRaceReq
	if err := decodeBody(r, &data); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	bets := data.Bets
	if len(bets) == 0 {
		bets = race.Bets()
	}

	if err := race.Start(bets); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	s.save(r.Context(), race)

	writeJSON(w, http.StatusOK, race.View())
}

func (s *RaceServer) HandleDraw(w http.ResponseWriter, r *http.Request) {
	race, ok := s.raceFromRequest(w, r)
	if !ok {
		return
	}

	events, err := race.Draw()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if events == nil {
		events = []game.Event{}
	} else {
		s.save(r.Context(), race)
	}

	writeJSON(w, http.StatusOK, DrawRes{Events: events, View: race.View()})
}

func (s *RaceServer) HandleReset(w http.ResponseWriter, r *http.Request) {
	race, ok := s.raceFromRequest(w, r)
	if !ok {
		return
	}

	race.Reset()
	s.save(r.Context(), race)

	writeJSON(w, http.StatusOK, race.View())
}

func (s *RaceServer) HandlePayouts(w http.ResponseWriter, r *http.Request) {
	race, ok := s.raceFromRequest(w, r)
	if !ok {
		return
	}

	summary, ok := race.Payouts()
	if !ok {
		writeError(w, http.StatusConflict, errors.New("race has no winner yet"))
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *RaceServer) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	race, ok := s.raceFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, race.Snapshot())
}

func (s *RaceServer) raceFromRequest(w http.ResponseWriter, r *http.Request) (*engine.RaceEngine, bool) {
	raceID := chi.URLParam(r, "raceID")
	race, err := s.findRace(r.Context(), raceID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return nil, false
	}
	return race, true
}

func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return io.EOF
	}
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrUnknownRaceID):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrClosed):
		return http.StatusGone
	case errors.Is(err, engine.ErrNotStarted):
		return http.StatusConflict
	case errors.Is(err, game.ErrNoParticipants),
		errors.Is(err, game.ErrInvalidName),
		errors.Is(err, game.ErrDuplicateName),
		errors.Is(err, game.ErrInvalidStake),
		errors.Is(err, deck.ErrInvalidSuit):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorRes{Error: err.Error()})
}
