package portal

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"voxelportals.ai/internal/sim/geom"
)

// shell fills the 26 voxels around pos.
func shell(w *fakeWorld, pos geom.Vec3i) {
	for x := -1; x <= 1; x++ {
		for y := -1; y <= 1; y++ {
			for z := -1; z <= 1; z++ {
				if x == 0 && y == 0 && z == 0 {
					continue
				}
				w.SetBlock(pos.Add(geom.Vec3i{X: x, Y: y, Z: z}), testStone)
			}
		}
	}
}

func TestIsObstructed(t *testing.T) {
	_, worlds, _, tail := testPair(t)
	end := worlds["end"]
	if tail.IsObstructed(end) {
		t.Fatalf("empty world should not obstruct")
	}
	// Beside the footprint is fine; only the normal direction matters.
	end.SetBlock(geom.Vec3i{X: 1, Y: 64, Z: 0}, testStone)
	if tail.IsObstructed(end) {
		t.Fatalf("in-plane neighbour should not obstruct")
	}
	end.SetBlock(geom.Vec3i{X: 0, Y: 66, Z: 0}, testStone)
	if !tail.IsObstructed(end) {
		t.Fatalf("block two above the surface should obstruct")
	}
}

func TestTail_RepositionsAfterObstructionTimer(t *testing.T) {
	_, worlds, head, tail := testPair(t)
	shell(worlds["end"], geom.Vec3i{Y: 64})

	for i := 1; i < 200; i++ {
		if rep := tail.Tick(worlds); rep.Move != nil {
			t.Fatalf("tick %d: moved early to %v", i, rep.Move.To)
		}
	}
	rep := tail.Tick(worlds)
	if rep.Move == nil {
		t.Fatalf("expected a move on tick 200")
	}
	want := geom.Vec3i{X: -2, Y: 64, Z: 0}
	if got := tail.Geometry().LocalPosition; got != want {
		t.Fatalf("tail pos=%v want %v", got, want)
	}
	if got := head.Geometry().RemotePosition; got != want {
		t.Fatalf("head remote pos=%v want %v", got, want)
	}
	if tail.OriginalTailPos() != (geom.Vec3i{Y: 64}) {
		t.Fatalf("original tail pos changed to %v", tail.OriginalTailPos())
	}
	if tail.IsObstructed(worlds["end"]) {
		t.Fatalf("new position still obstructed")
	}
}

func TestUpdatePosition_IdempotentWhenFreeAtAnchor(t *testing.T) {
	_, worlds, head, tail := testPair(t)
	before, beforeHead := tail.Geometry(), head.Geometry()
	if _, ok := tail.UpdatePosition(worlds); ok {
		t.Fatalf("expected no move")
	}
	if !tail.Geometry().Equal(before) || !head.Geometry().Equal(beforeHead) {
		t.Fatalf("geometry rewritten")
	}
}

func TestUpdatePosition_MissingRemoteIsNoop(t *testing.T) {
	reg, worlds, head, tail := testPair(t)
	shell(worlds["end"], geom.Vec3i{Y: 64})
	reg.Remove(head)
	if _, ok := tail.UpdatePosition(worlds); ok {
		t.Fatalf("expected no move without remote")
	}
	if tail.Geometry().LocalPosition != (geom.Vec3i{Y: 64}) {
		t.Fatalf("tail moved without remote")
	}
}

func TestTail_ReturnsToPreferredPosition(t *testing.T) {
	_, worlds, head, tail := testPair(t)
	end := worlds["end"]
	shell(end, geom.Vec3i{Y: 64})
	for i := 0; i < 200; i++ {
		tail.Tick(worlds)
	}
	if tail.Geometry().LocalPosition == tail.OriginalTailPos() {
		t.Fatalf("expected tail to move away first")
	}
	end.blocks = map[geom.Vec3i]uint16{}

	for i := 200; i < 1200; i++ {
		tail.Tick(worlds)
	}
	if got := tail.Geometry().LocalPosition; got != tail.OriginalTailPos() {
		t.Fatalf("tail pos=%v want back at %v", got, tail.OriginalTailPos())
	}
	if head.Geometry().RemotePosition != tail.Geometry().LocalPosition {
		t.Fatalf("pair out of sync")
	}
}

func TestPairSymmetryAfterMove(t *testing.T) {
	_, worlds, head, tail := testPair(t)
	shell(worlds["end"], geom.Vec3i{Y: 64})
	if _, ok := tail.UpdatePosition(worlds); !ok {
		t.Fatalf("expected move")
	}
	hg, tg := head.Geometry(), tail.Geometry()
	if hg.RemotePosition != tg.LocalPosition || tg.RemotePosition != hg.LocalPosition {
		t.Fatalf("positions not symmetric: head=%+v tail=%+v", hg, tg)
	}
	if hg.RemoteRotation != tg.LocalRotation || tg.RemoteRotation != hg.LocalRotation {
		t.Fatalf("rotations not symmetric")
	}
	if !hg.ToRemote().Equal(tg) {
		t.Fatalf("head.ToRemote() != tail geometry")
	}
}

func TestHeadEndNeverRepositions(t *testing.T) {
	_, worlds, head, _ := testPair(t)
	shell(worlds["overworld"], geom.Vec3i{X: 10, Y: 70, Z: 10})
	for i := 0; i < 1200; i++ {
		if rep := head.Tick(worlds); rep.Move != nil {
			t.Fatalf("head moved on tick %d", i)
		}
	}
}

func TestSetTravelingInProgress_SwapsOnlyExpectedBlocks(t *testing.T) {
	_, worlds, _, tail := testPair(t)
	end := worlds["end"]
	player := geom.Vec3i{X: 0, Y: 64, Z: 1}
	end.SetBlock(player, testStone)

	if n := tail.SetTravelingInProgress(end, true); n != 3 {
		t.Fatalf("swapped=%d want 3", n)
	}
	if end.GetBlock(player) != testStone {
		t.Fatalf("player block overwritten")
	}
	for _, f := range []geom.Facing{geom.North, geom.West, geom.East} {
		if got := end.GetBlock(geom.Vec3i{Y: 64}.Add(f.Vec())); got != testFrame {
			t.Fatalf("%v neighbour=%d want frame", f, got)
		}
	}
	if n := tail.SetTravelingInProgress(end, true); n != 0 {
		t.Fatalf("repeated set swapped %d", n)
	}

	// A frame block replaced in the meantime is left alone.
	end.SetBlock(geom.Vec3i{X: 1, Y: 64}, testStone)
	if n := tail.SetTravelingInProgress(end, false); n != 2 {
		t.Fatalf("clear swapped=%d want 2", n)
	}
	if end.GetBlock(geom.Vec3i{X: 1, Y: 64}) != testStone {
		t.Fatalf("changed block reverted")
	}
	if end.GetBlock(geom.Vec3i{X: -1, Y: 64}) != testAir {
		t.Fatalf("frame not reverted")
	}
}

func TestTravelingGrace_DecaysOncePerTickWhileNearby(t *testing.T) {
	_, worlds, _, tail := testPair(t)
	end := worlds["end"]
	tail.SetTravelingInProgress(end, true)
	// Close to the centre but not inside the footprint.
	end.observers = []Observer{observerAt("p", mgl64.Vec3{3.5, 64, 0.5})}

	for i := 1; i < 20; i++ {
		tail.Tick(worlds)
		if got := tail.TravelTimer(); got != 20-i {
			t.Fatalf("tick %d: timer=%d want %d", i, got, 20-i)
		}
		if !tail.TravelingInProgress() {
			t.Fatalf("tick %d: cleared early", i)
		}
	}
	rep := tail.Tick(worlds)
	if !rep.TravelEnded || tail.TravelingInProgress() {
		t.Fatalf("expected traveling to end on tick 20")
	}
	if end.GetBlock(geom.Vec3i{X: 1, Y: 64}) != testAir {
		t.Fatalf("frame not reverted")
	}
}

func TestTravelingGrace_HeldWhileInside(t *testing.T) {
	_, worlds, _, tail := testPair(t)
	end := worlds["end"]
	tail.SetTravelingInProgress(end, true)
	end.observers = []Observer{observerAt("p", mgl64.Vec3{0.5, 64.2, 0.5})}
	for i := 0; i < 100; i++ {
		tail.Tick(worlds)
	}
	if !tail.TravelingInProgress() || tail.TravelTimer() != 20 {
		t.Fatalf("traveling=%v timer=%d want true/20", tail.TravelingInProgress(), tail.TravelTimer())
	}
}

func TestTravelingGrace_ClearsWhenNobodyNearby(t *testing.T) {
	_, worlds, _, tail := testPair(t)
	end := worlds["end"]
	tail.SetTravelingInProgress(end, true)
	end.observers = []Observer{observerAt("far", mgl64.Vec3{30, 64, 0})}
	rep := tail.Tick(worlds)
	if !rep.TravelEnded || tail.TravelingInProgress() {
		t.Fatalf("expected immediate clear without nearby observers")
	}
}

func TestDestroy_RevertsFrameAndUnregisters(t *testing.T) {
	reg, worlds, head, tail := testPair(t)
	end := worlds["end"]
	tail.SetTravelingInProgress(end, true)
	if n := tail.Destroy(end); n != 4 {
		t.Fatalf("Destroy swapped %d want 4", n)
	}
	if reg.Lookup(tail.Key()) != nil {
		t.Fatalf("tail still registered")
	}
	if head.Remote() != nil {
		t.Fatalf("head still resolves destroyed tail")
	}
}
