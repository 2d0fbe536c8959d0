package snapshot

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	otp := [3]int{1, 64, -2}
	in := SnapshotV1{
		Header:   Header{Version: Version, Tick: 42},
		TickRate: 20,
		Blocks:   []string{"AIR", "STONE"},
		Dimensions: []DimensionV1{{
			ID: "END", MinY: 0, MaxY: 256, Unbounded: true,
			Chunks: []ChunkV1{{CX: -1, CY: 4, CZ: 0, Blocks: make([]uint16, 4096)}},
		}},
		Portals: []PortalV1{
			{PairID: "P1", Plane: "horizontal", Blocks: [][3]int{{0, 0, 0}}, LocalDimension: "END", IsTailEnd: true, OriginalTailPos: &otp},
			{PairID: "P1", Plane: "horizontal", Blocks: [][3]int{{0, 0, 0}}, LocalDimension: "OVERWORLD"},
		},
		Players: []PlayerV1{{ID: "p1", Dimension: "END", Pos: [3]float64{0.5, 65, 0.5}, Yaw: 90}},
	}
	in.Dimensions[0].Chunks[0].Blocks[100] = 1

	path := Path(dir, in.Header.Tick)
	if err := WriteSnapshot(path, in); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temporary file left behind: %v", err)
	}
	h, err := ReadHeader(path)
	if err != nil || h.Tick != 42 || h.Version != Version {
		t.Fatalf("header=%+v err=%v", h, err)
	}
	out, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if out.Dimensions[0].Chunks[0].Blocks[100] != 1 || out.Dimensions[0].Chunks[0].CX != -1 {
		t.Fatalf("chunk not preserved")
	}
	if out.Portals[0].OriginalTailPos == nil || *out.Portals[0].OriginalTailPos != otp {
		t.Fatalf("original tail pos=%v", out.Portals[0].OriginalTailPos)
	}
	if out.Portals[1].OriginalTailPos != nil {
		t.Fatalf("absent original tail pos decoded as %v", *out.Portals[1].OriginalTailPos)
	}
	if out.Players[0].Yaw != 90 {
		t.Fatalf("player yaw=%v", out.Players[0].Yaw)
	}
}

func TestLatest(t *testing.T) {
	dir := t.TempDir()
	if p, err := Latest(dir); err != nil || p != "" {
		t.Fatalf("empty dir latest=%q err=%v", p, err)
	}
	for _, tick := range []uint64{9, 120, 11} {
		if err := WriteSnapshot(Path(dir, tick), SnapshotV1{Header: Header{Version: Version, Tick: tick}}); err != nil {
			t.Fatalf("WriteSnapshot: %v", err)
		}
	}
	p, err := Latest(dir)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if filepath.Base(p) != filepath.Base(Path(dir, 120)) {
		t.Fatalf("latest=%s", p)
	}
}

func TestReadRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.snap.zst")
	if err := WriteSnapshot(path, SnapshotV1{Header: Header{Version: 7}}); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if _, err := ReadSnapshot(path); err == nil {
		t.Fatalf("expected version error")
	}
}
