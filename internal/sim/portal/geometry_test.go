package portal

import (
	"testing"

	"voxelportals.ai/internal/sim/geom"
)

func TestGeometry_ToRemoteIsInvolution(t *testing.T) {
	g := NewGeometry(Vertical, []geom.Vec3i{{}, {X: 1}, {Y: 1}, {X: 1, Y: 1}}, "a", geom.Vec3i{X: 1, Y: 2, Z: 3}, 1, "b", geom.Vec3i{X: -4, Y: 5, Z: 6}, 270)
	if !g.ToRemote().ToRemote().Equal(g) {
		t.Fatalf("ToRemote twice changed geometry")
	}
	r := g.ToRemote()
	if r.LocalPosition != g.RemotePosition || r.LocalRotation != 3 || r.LocalDimension != "b" {
		t.Fatalf("ToRemote=%+v", r)
	}
}

func TestGeometry_LocalBlocksFollowRotation(t *testing.T) {
	g := NewGeometry(Vertical, []geom.Vec3i{{}, {X: 1}}, "a", geom.Vec3i{Y: 10}, 1, "b", geom.Vec3i{}, 0)
	blocks := g.LocalBlocks()
	want := []geom.Vec3i{{Y: 10}, {Y: 10, Z: 1}}
	if len(blocks) != 2 || blocks[0] != want[0] || blocks[1] != want[1] {
		t.Fatalf("LocalBlocks=%v want %v", blocks, want)
	}
	if g.LocalFacing() != geom.West {
		t.Fatalf("facing=%v want west", g.LocalFacing())
	}
	box := g.LocalBoundingBox()
	if box != geom.Box(0, 10, 0, 1, 11, 2) {
		t.Fatalf("bounding box=%v", box)
	}
}

func TestGeometry_BoundaryFacingsStayInPlane(t *testing.T) {
	for rot := 0; rot < 4; rot++ {
		g := NewGeometry(Vertical, []geom.Vec3i{{}}, "a", geom.Vec3i{}, rot, "b", geom.Vec3i{}, 0)
		normal := g.LocalFacing()
		for _, f := range g.BoundaryFacings() {
			if f == normal || f == normal.Opposite() {
				t.Fatalf("rot=%d: boundary facing %v is along the normal", rot, f)
			}
		}
		got := g.BoundaryFacings()
		if len(got) != 4 || got[0] != geom.Up || got[1] != geom.Down {
			t.Fatalf("rot=%d: facings=%v want up, down and both sides", rot, got)
		}
	}

	h := NewGeometry(Horizontal, []geom.Vec3i{{}}, "a", geom.Vec3i{}, 0, "b", geom.Vec3i{}, 0)
	got := h.BoundaryFacings()
	if len(got) != len(geom.Horizontals) {
		t.Fatalf("horizontal facings=%v want %v", got, geom.Horizontals)
	}
	for i, f := range geom.Horizontals {
		if got[i] != f {
			t.Fatalf("horizontal facings=%v want %v", got, geom.Horizontals)
		}
	}
}

func TestGeometry_LocalToRemote(t *testing.T) {
	g := NewGeometry(Vertical, []geom.Vec3i{{}}, "a", geom.Vec3i{X: 10, Y: 64, Z: 10}, 0, "b", geom.Vec3i{X: -5, Y: 30, Z: 2}, 1)
	got := g.ToRemotePos(g.LocalPosition.Center())
	if !got.ApproxEqualThreshold(g.RemotePosition.Center(), 1e-9) {
		t.Fatalf("centre maps to %v", got)
	}
	// One block in front of the local face lands one block in front of the
	// remote face.
	front := g.LocalPosition.Center().Add(g.LocalFacing().Vec3())
	want := g.RemotePosition.Center().Add(g.RemoteFacing().Vec3())
	if got := g.ToRemotePos(front); !got.ApproxEqualThreshold(want, 1e-9) {
		t.Fatalf("front maps to %v want %v", got, want)
	}
	if g.YawDelta() != 90 {
		t.Fatalf("yaw delta=%v", g.YawDelta())
	}
}
