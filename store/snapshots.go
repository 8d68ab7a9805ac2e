package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/minaorangina/horserace/engine"
)

// SnapshotStore persists race snapshots so races outlive the process.
type SnapshotStore interface {
	Save(ctx context.Context, snap engine.Snapshot) error
	Load(ctx context.Context, raceID string) (engine.Snapshot, error)
	Delete(ctx context.Context, raceID string) error
}

// InMemorySnapshotStore keeps snapshots as encoded JSON, the same form
// they have in the database.
type InMemorySnapshotStore struct {
	mu    sync.Mutex
	snaps map[string][]byte
}

func NewInMemorySnapshotStore() *InMemorySnapshotStore {
	return &InMemorySnapshotStore{snaps: map[string][]byte{}}
}

func (s *InMemorySnapshotStore) Save(ctx context.Context, snap engine.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot %s: %w", snap.RaceID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[snap.RaceID] = data
	return nil
}

func (s *InMemorySnapshotStore) Load(ctx context.Context, raceID string) (engine.Snapshot, error) {
	s.mu.Lock()
	data, ok := s.snaps[raceID]
	s.mu.Unlock()

	if !ok {
		return engine.Snapshot{}, fmt.Errorf("%w: %s", ErrSnapshotNotFound, raceID)
	}

	var snap engine.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return engine.Snapshot{}, fmt.Errorf("decoding snapshot %s: %w", raceID, err)
	}
	return snap, nil
}

func (s *InMemorySnapshotStore) Delete(ctx context.Context, raceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, raceID)
	return nil
}
