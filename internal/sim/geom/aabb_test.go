package geom

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestAABB_TouchingFacesDoNotIntersect(t *testing.T) {
	a := BlockBox(Vec3i{})
	b := BlockBox(Vec3i{X: 1})
	if a.Intersects(b) {
		t.Fatalf("adjacent blocks should not intersect")
	}
	if !a.Grow(mgl64.Vec3{0.5, 0, 0}).Intersects(b) {
		t.Fatalf("grown block should intersect its neighbour")
	}
}

func TestAABB_GrowUsesAbsoluteComponents(t *testing.T) {
	b := BlockBox(Vec3i{}).Grow(North.Vec3().Mul(2))
	want := Box(0, 0, -2, 1, 1, 3)
	if b != want {
		t.Fatalf("Grow(north*2)=%v want %v", b, want)
	}
}

func TestAABB_Voxels(t *testing.T) {
	lo, hi, ok := Box(-0.5, 0, 0, 1, 2, 0.25).Voxels()
	if !ok {
		t.Fatalf("expected non-empty range")
	}
	if lo != (Vec3i{X: -1, Y: 0, Z: 0}) || hi != (Vec3i{X: 0, Y: 1, Z: 0}) {
		t.Fatalf("Voxels()=%v..%v", lo, hi)
	}
	if _, _, ok := Box(0, 0, 0, 0, 1, 1).Voxels(); ok {
		t.Fatalf("flat box should have no voxels")
	}
}
