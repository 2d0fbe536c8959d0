package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"voxelportals.ai/internal/persistence/snapshot"
	"voxelportals.ai/internal/sim/tuning"
	"voxelportals.ai/internal/sim/world"
)

// SQLiteIndex is a queryable secondary index of portal events and snapshots.
// The JSONL event log stays the source of truth; writes are dropped when the
// writer falls behind.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Uint64
}

type reqKind int

const (
	reqEvent reqKind = iota + 1
	reqSnapshot
	reqSync
)

type req struct {
	kind reqKind

	event    world.Event
	snapshot SnapshotRecord
	done     chan struct{}
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS config (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS portal_events (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			tick INTEGER NOT NULL,
			type TEXT NOT NULL,
			pair_id TEXT NOT NULL,
			dimension TEXT NOT NULL,
			from_x INTEGER, from_y INTEGER, from_z INTEGER,
			to_x INTEGER, to_y INTEGER, to_z INTEGER,
			player_id TEXT,
			to_dimension TEXT,
			swapped INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_portal_events_pair_tick ON portal_events(pair_id, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_portal_events_player_tick ON portal_events(player_id, tick);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			tick INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			dimensions INTEGER NOT NULL,
			chunks INTEGER NOT NULL,
			portals INTEGER NOT NULL,
			players INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	_, err := db.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`)
	return err
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// Dropped counts writes discarded because the writer was behind.
func (s *SQLiteIndex) Dropped() uint64 { return s.dropped.Load() }

func (s *SQLiteIndex) WriteEvent(e world.Event) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqEvent, event: e}:
	default:
		s.dropped.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := SnapshotRecord{
		Tick:       snap.Header.Tick,
		Path:       path,
		Dimensions: len(snap.Dimensions),
		Portals:    len(snap.Portals),
		Players:    len(snap.Players),
	}
	for _, d := range snap.Dimensions {
		r.Chunks += len(d.Chunks)
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropped.Add(1)
	}
}

// Sync blocks until everything queued before it is committed.
func (s *SQLiteIndex) Sync(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{kind: reqSync, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpsertTuning stores the tuning actually applied.
func (s *SQLiteIndex) UpsertTuning(tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(tune)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(b)
	_, err = s.db.Exec(`INSERT OR REPLACE INTO config(name,digest,json,updated_at) VALUES(?,?,?,?)`,
		"tuning", hex.EncodeToString(sum[:]), string(b), time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()
	insertEvent, _ := s.db.Prepare(`INSERT INTO portal_events(tick,type,pair_id,dimension,from_x,from_y,from_z,to_x,to_y,to_z,player_id,to_dimension,swapped,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(tick,path,dimensions,chunks,portals,players) VALUES(?,?,?,?,?,?)`)
	defer func() {
		if insertEvent != nil {
			_ = insertEvent.Close()
		}
		if insertSnapshot != nil {
			_ = insertSnapshot.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second
	)
	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	handle := func(r req) {
		if r.kind == reqSync {
			commit()
			close(r.done)
			return
		}
		begin()
		if tx == nil {
			return
		}
		switch r.kind {
		case reqEvent:
			if insertEvent == nil {
				return
			}
			e := r.event
			raw, _ := json.Marshal(e)
			fx, fy, fz := nullableVec(e.From)
			tx2, ty, tz := nullableVec(e.To)
			if _, err := tx.Stmt(insertEvent).Exec(
				int64(e.Tick), e.Type, e.PairID, e.Dimension,
				fx, fy, fz, tx2, ty, tz,
				nullableString(e.PlayerID), nullableString(e.ToDimension),
				e.Swapped, string(raw),
			); err != nil {
				rollback()
				return
			}
			opCount++
		case reqSnapshot:
			if insertSnapshot == nil {
				return
			}
			sr := r.snapshot
			if _, err := tx.Stmt(insertSnapshot).Exec(int64(sr.Tick), sr.Path, sr.Dimensions, sr.Chunks, sr.Portals, sr.Players); err != nil {
				rollback()
				return
			}
			opCount++
		}
		if opCount >= commitEvery {
			commit()
		}
	}

	// Commit idle transactions so readers are not starved of the connection.
	ticker := time.NewTicker(commitMaxWait / 4)
	defer ticker.Stop()
	for {
		select {
		case r, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			handle(r)
		case <-ticker.C:
			if time.Since(lastCommit) >= commitMaxWait {
				commit()
			}
		}
	}
}

func nullableVec(v *[3]int) (x, y, z any) {
	if v == nil {
		return nil, nil, nil
	}
	return v[0], v[1], v[2]
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
