package indexdb

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"voxelportals.ai/internal/persistence/snapshot"
	"voxelportals.ai/internal/sim/tuning"
	"voxelportals.ai/internal/sim/world"
)

func TestSQLiteIndex_PortalEvents(t *testing.T) {
	ctx := context.Background()
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer idx.Close()

	a := [3]int{0, 64, 0}
	b := [3]int{-2, 64, 0}
	events := []world.Event{
		{Tick: 5, Type: world.EventTeleport, PairID: "P1", Dimension: "OVERWORLD", PlayerID: "p1", ToDimension: "END"},
		{Tick: 5, Type: world.EventTravelStart, PairID: "P1", Dimension: "END", Swapped: 4},
		{Tick: 200, Type: world.EventReposition, PairID: "P1", Dimension: "END", From: &a, To: &b},
		{Tick: 1200, Type: world.EventReposition, PairID: "P1", Dimension: "END", From: &b, To: &a},
		{Tick: 1300, Type: world.EventReposition, PairID: "P2", Dimension: "NETHER", From: &a, To: &b},
	}
	for _, e := range events {
		if err := idx.WriteEvent(e); err != nil {
			t.Fatalf("WriteEvent: %v", err)
		}
	}
	if err := idx.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	hist, err := idx.RepositionHistory(ctx, "P1", 0)
	if err != nil {
		t.Fatalf("RepositionHistory: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("history=%d want 2", len(hist))
	}
	if hist[0].Tick != 200 || hist[0].To == nil || *hist[0].To != b {
		t.Fatalf("first move=%+v", hist[0])
	}
	if hist[1].Tick != 1200 || *hist[1].To != a {
		t.Fatalf("second move=%+v", hist[1])
	}

	all, err := idx.PairHistory(ctx, "P1", "", 2)
	if err != nil {
		t.Fatalf("PairHistory: %v", err)
	}
	if len(all) != 2 || all[0].Type != world.EventTeleport || all[1].Swapped != 4 {
		t.Fatalf("pair history=%+v", all)
	}

	n, err := idx.TeleportCount(ctx, "p1")
	if err != nil || n != 1 {
		t.Fatalf("teleports=%d err=%v", n, err)
	}
	if idx.Dropped() != 0 {
		t.Fatalf("dropped=%d", idx.Dropped())
	}
}

func TestSQLiteIndex_SnapshotsAndTuning(t *testing.T) {
	ctx := context.Background()
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer idx.Close()

	if _, _, ok, err := idx.LatestSnapshot(ctx); err != nil || ok {
		t.Fatalf("empty index ok=%v err=%v", ok, err)
	}
	if err := idx.UpsertTuning(tuning.Defaults()); err != nil {
		t.Fatalf("UpsertTuning: %v", err)
	}
	for _, tick := range []uint64{100, 300, 200} {
		idx.RecordSnapshot(fmt.Sprintf("snap-%d", tick), snapshot.SnapshotV1{
			Header:     snapshot.Header{Version: snapshot.Version, Tick: tick},
			Dimensions: []snapshot.DimensionV1{{ID: "END", Chunks: make([]snapshot.ChunkV1, 3)}},
		})
	}
	if err := idx.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	tick, path, ok, err := idx.LatestSnapshot(ctx)
	if err != nil || !ok || tick != 300 || path != "snap-300" {
		t.Fatalf("latest tick=%d path=%s ok=%v err=%v", tick, path, ok, err)
	}
	recs, err := idx.Snapshots(ctx, 2)
	if err != nil {
		t.Fatalf("Snapshots: %v", err)
	}
	if len(recs) != 2 || recs[0].Tick != 300 || recs[1].Tick != 200 || recs[0].Chunks != 3 || recs[0].Dimensions != 1 {
		t.Fatalf("snapshots=%+v", recs)
	}
}

func TestSQLiteIndex_ClosedIsNoop(t *testing.T) {
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := idx.WriteEvent(world.Event{Tick: 1}); err != nil {
		t.Fatalf("WriteEvent after close: %v", err)
	}
	if err := idx.Sync(context.Background()); err != nil {
		t.Fatalf("Sync after close: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
