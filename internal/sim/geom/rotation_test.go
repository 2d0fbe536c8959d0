package geom

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestNormalizeRotation_AcceptsDegreesAndQuarterTurns(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{in: 0, want: 0},
		{in: 1, want: 1},
		{in: 3, want: 3},
		{in: 4, want: 0},
		{in: -1, want: 3},
		{in: 90, want: 1},
		{in: 180, want: 2},
		{in: 270, want: 3},
		{in: -90, want: 3},
	}
	for _, c := range cases {
		if got := NormalizeRotation(c.in); got != c.want {
			t.Fatalf("NormalizeRotation(%d)=%d want %d", c.in, got, c.want)
		}
	}
}

func TestRotateOffset_MatchesHorizontalFacing(t *testing.T) {
	south := South.Vec()
	for rot := 0; rot < 4; rot++ {
		got := RotateOffset(south, rot)
		if want := HorizontalFacing(rot).Vec(); got != want {
			t.Fatalf("rot=%d: RotateOffset(south)=%v want %v", rot, got, want)
		}
	}
}

func TestRotYaw_AgreesWithQuarterTurns(t *testing.T) {
	v := mgl64.Vec3{2, 1, 5}
	for rot := 0; rot < 4; rot++ {
		m := RotYaw(Degrees(rot))
		got := m.Mul4x1(v.Vec4(1)).Vec3()
		want := RotateVec3(v, rot)
		if !got.ApproxEqualThreshold(want, 1e-9) {
			t.Fatalf("rot=%d: RotYaw=%v RotateVec3=%v", rot, got, want)
		}
		wi := RotateOffset(Vec3i{X: 2, Y: 1, Z: 5}, rot).Vec3()
		if !wi.ApproxEqualThreshold(want, 1e-9) {
			t.Fatalf("rot=%d: RotateOffset=%v RotateVec3=%v", rot, wi, want)
		}
	}
}
