package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/minaorangina/horserace/engine"
)

var (
	ErrUnknownRaceID    = errors.New("unknown race ID")
	ErrRaceExists       = errors.New("race already exists")
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// RaceStore holds the races currently being played.
type RaceStore interface {
	FindRace(raceID string) *engine.RaceEngine
	AddRace(race *engine.RaceEngine) error
	RemoveRace(raceID string) error
	RaceIDs() []string
}

// InMemoryRaceStore maps race id to race engine
type InMemoryRaceStore struct {
	mu    sync.RWMutex
	races map[string]*engine.RaceEngine
}

// NewInMemoryRaceStore constructs an InMemoryRaceStore
func NewInMemoryRaceStore() *InMemoryRaceStore {
	return &InMemoryRaceStore{
		races: map[string]*engine.RaceEngine{},
	}
}

func (s *InMemoryRaceStore) FindRace(raceID string) *engine.RaceEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()

	race, ok := s.races[raceID]
	if !ok {
		return nil
	}
	return race
}

func (s *InMemoryRaceStore) AddRace(race *engine.RaceEngine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.races[race.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrRaceExists, race.ID())
	}
	s.races[race.ID()] = race
	return nil
}

// RemoveRace closes the race and forgets it.
func (s *InMemoryRaceStore) RemoveRace(raceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	race, ok := s.races[raceID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRaceID, raceID)
	}
	race.Close()
	delete(s.races, raceID)
	return nil
}

func (s *InMemoryRaceStore) RaceIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.races))
	for id := range s.races {
		ids = append(ids, id)
	}
	return ids
}
