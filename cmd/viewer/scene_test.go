package main

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"voxelportals.ai/internal/render/pass"
	"voxelportals.ai/internal/render/portalview"
	"voxelportals.ai/internal/sim/geom"
	"voxelportals.ai/internal/sim/portal"
)

func near(a, b float32) bool { return math.Abs(float64(a-b)) < 1e-4 }

func TestProjection_ForwardIsUp(t *testing.T) {
	cam := pass.Viewer{World: "OVERWORLD", Pos: mgl64.Vec3{0, eyeHeight, 0}}.Camera()
	p := newProjection(cam, 200, 100, 10)
	if p.bodyY != 0 {
		t.Fatalf("bodyY=%d want 0", p.bodyY)
	}
	if x, y := p.project(0, 5); !near(x, 100) || !near(y, 0) {
		t.Fatalf("project(0,5)=(%v,%v) want (100,0)", x, y)
	}
	if x, y := p.project(1, 0); !near(x, 90) || !near(y, 50) {
		t.Fatalf("project(1,0)=(%v,%v) want (90,50)", x, y)
	}
	if want := int(math.Ceil(math.Hypot(200, 100)/2/10)) + 1; p.radius != want {
		t.Fatalf("radius=%d want %d", p.radius, want)
	}
}

func TestProjection_FollowsYaw(t *testing.T) {
	cam := pass.Viewer{World: "OVERWORLD", Pos: mgl64.Vec3{0, eyeHeight, 0}, Yaw: 90}.Camera()
	p := newProjection(cam, 100, 100, 10)
	f := portalview.CameraForward(cam)
	x, y := p.project(f[0]*3, f[2]*3)
	if !near(x, 50) || !near(y, 20) {
		t.Fatalf("forward point at (%v,%v) want (50,20)", x, y)
	}
}

func TestProjection_StraightDown(t *testing.T) {
	cam := pass.Viewer{World: "OVERWORLD", Pos: mgl64.Vec3{0, eyeHeight, 0}, Pitch: 90}.Camera()
	p := newProjection(cam, 100, 100, 10)
	if l := math.Hypot(p.fwd[0], p.fwd[1]); math.Abs(l-1) > 1e-9 {
		t.Fatalf("fwd=%v not normalized", p.fwd)
	}
}

func TestWindowQuad(t *testing.T) {
	g := portal.NewGeometry(portal.Vertical, []geom.Vec3i{{}, {Y: 1}}, "OVERWORLD", geom.Vec3i{Y: 64}, 0, "NETHER", geom.Vec3i{X: 10, Y: 32, Z: 10}, 0)

	q, ok := windowQuad(g, mgl64.Vec3{0.5, 65.62, -3}, 8)
	if !ok {
		t.Fatalf("no quad")
	}
	want := [4][2]float64{{0, 0.5}, {1, 0.5}, {1, 8.5}, {0, 8.5}}
	if q != want {
		t.Fatalf("quad=%v want %v", q, want)
	}

	q, _ = windowQuad(g, mgl64.Vec3{0.5, 65.62, 3}, 8)
	if q[2] != [2]float64{1, -7.5} {
		t.Fatalf("far corner=%v want [1 -7.5]", q[2])
	}

	if _, ok := windowQuad(g, mgl64.Vec3{0.5, 65.62, 0.5}, 8); ok {
		t.Fatalf("eye in the portal plane should not open a window")
	}

	h := portal.NewGeometry(portal.Horizontal, []geom.Vec3i{{}, {X: 1}}, "OVERWORLD", geom.Vec3i{Y: 64}, 0, "END", geom.Vec3i{Y: 60}, 0)
	q, ok = windowQuad(h, mgl64.Vec3{0, 70, 0}, 8)
	if !ok || q[0] != [2]float64{0, 0} || q[2] != [2]float64{2, 1} {
		t.Fatalf("horizontal quad=%v ok=%v", q, ok)
	}
}
