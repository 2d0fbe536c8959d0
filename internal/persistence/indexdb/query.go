package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"voxelportals.ai/internal/sim/world"
)

// PairHistory returns the events of a pair ordered by tick. An empty typ
// matches every event type; limit <= 0 means no limit.
func (s *SQLiteIndex) PairHistory(ctx context.Context, pairID, typ string, limit int) ([]world.Event, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT raw_json FROM portal_events
		 WHERE pair_id = ? AND (? = '' OR type = ?)
		 ORDER BY tick, seq LIMIT ?`,
		pairID, typ, typ, limit)
	if err != nil {
		return nil, fmt.Errorf("query pair history: %w", err)
	}
	defer rows.Close()
	var out []world.Event
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var e world.Event
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// RepositionHistory lists where a pair's tail end has been moved to.
func (s *SQLiteIndex) RepositionHistory(ctx context.Context, pairID string, limit int) ([]world.Event, error) {
	return s.PairHistory(ctx, pairID, world.EventReposition, limit)
}

// TeleportCount counts how often a player went through any portal.
func (s *SQLiteIndex) TeleportCount(ctx context.Context, playerID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM portal_events WHERE type = ? AND player_id = ?`,
		world.EventTeleport, playerID).Scan(&n)
	return n, err
}

// LatestSnapshot returns the newest recorded snapshot; ok is false when none
// has been recorded.
func (s *SQLiteIndex) LatestSnapshot(ctx context.Context) (tick uint64, path string, ok bool, err error) {
	var t int64
	err = s.db.QueryRowContext(ctx, `SELECT tick, path FROM snapshots ORDER BY tick DESC LIMIT 1`).Scan(&t, &path)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", false, nil
	}
	if err != nil {
		return 0, "", false, err
	}
	return uint64(t), path, true, nil
}

// SnapshotRecord describes a snapshot the index has seen.
type SnapshotRecord struct {
	Tick       uint64 `json:"tick"`
	Path       string `json:"path"`
	Dimensions int    `json:"dimensions"`
	Chunks     int    `json:"chunks"`
	Portals    int    `json:"portals"`
	Players    int    `json:"players"`
}

// Snapshots lists recorded snapshots, newest first.
func (s *SQLiteIndex) Snapshots(ctx context.Context, limit int) ([]SnapshotRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT tick, path, dimensions, chunks, portals, players FROM snapshots ORDER BY tick DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()
	var out []SnapshotRecord
	for rows.Next() {
		var r SnapshotRecord
		var tick int64
		if err := rows.Scan(&tick, &r.Path, &r.Dimensions, &r.Chunks, &r.Portals, &r.Players); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		out = append(out, r)
	}
	return out, rows.Err()
}
