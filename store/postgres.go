package store

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minaorangina/horserace/engine"
)

//go:embed schema.sql
var schema embed.FS

// PostgresSnapshotStore keeps one row per race, overwritten on every save.
type PostgresSnapshotStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and checks the connection.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresSnapshotStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &PostgresSnapshotStore{pool: pool}, nil
}

func (s *PostgresSnapshotStore) Close() {
	s.pool.Close()
}

// Migrate creates the snapshot table if it is missing.
func (s *PostgresSnapshotStore) Migrate(ctx context.Context) error {
	sqlBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, string(sqlBytes))
	return err
}

func (s *PostgresSnapshotStore) Save(ctx context.Context, snap engine.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot %s: %w", snap.RaceID, err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO race_snapshots(race_id, phase, snapshot)
		VALUES ($1, $2, $3)
		ON CONFLICT (race_id) DO UPDATE
		  SET phase = EXCLUDED.phase,
		      snapshot = EXCLUDED.snapshot,
		      updated_at = now()
	`, snap.RaceID, snap.Phase.String(), data)
	return err
}

func (s *PostgresSnapshotStore) Load(ctx context.Context, raceID string) (engine.Snapshot, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `
		SELECT snapshot FROM race_snapshots WHERE race_id = $1
	`, raceID).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return engine.Snapshot{}, fmt.Errorf("%w: %s", ErrSnapshotNotFound, raceID)
		}
		return engine.Snapshot{}, err
	}

	var snap engine.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return engine.Snapshot{}, fmt.Errorf("decoding snapshot %s: %w", raceID, err)
	}
	return snap, nil
}

func (s *PostgresSnapshotStore) Delete(ctx context.Context, raceID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM race_snapshots WHERE race_id = $1`, raceID)
	return err
}
