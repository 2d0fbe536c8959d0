package portal

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"voxelportals.ai/internal/sim/geom"
)

const (
	testAir   uint16 = 0
	testStone uint16 = 1
	testFrame uint16 = 7
)

type fakeWorld struct {
	blocks    map[geom.Vec3i]uint16
	bounds    VerticalBounds
	observers []Observer
	queries   int
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		blocks: map[geom.Vec3i]uint16{},
		bounds: VerticalBounds{Min: 3, Max: 253},
	}
}

func (w *fakeWorld) GetBlock(pos geom.Vec3i) uint16 { return w.blocks[pos] }

func (w *fakeWorld) SetBlock(pos geom.Vec3i, b uint16) {
	if b == testAir {
		delete(w.blocks, pos)
		return
	}
	w.blocks[pos] = b
}

func (w *fakeWorld) HasCollision(box geom.AABB) bool {
	w.queries++
	lo, hi, ok := box.Voxels()
	if !ok {
		return false
	}
	for x := lo.X; x <= hi.X; x++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for z := lo.Z; z <= hi.Z; z++ {
				pos := geom.Vec3i{X: x, Y: y, Z: z}
				if w.blocks[pos] != testAir && geom.BlockBox(pos).Intersects(box) {
					return true
				}
			}
		}
	}
	return false
}

func (w *fakeWorld) HeightBounds() VerticalBounds { return w.bounds }
func (w *fakeWorld) Observers() []Observer        { return w.observers }

type fakeWorlds map[string]*fakeWorld

func (ws fakeWorlds) World(dim string) World {
	w, ok := ws[dim]
	if !ok {
		return nil
	}
	return w
}

type fakeTraveler struct {
	id      string
	dim     string
	pos     mgl64.Vec3
	prev    mgl64.Vec3
	yaw     float64
	refuse  bool
	arrived int
}

func (t *fakeTraveler) ID() string          { return t.id }
func (t *fakeTraveler) Dimension() string   { return t.dim }
func (t *fakeTraveler) Pos() mgl64.Vec3     { return t.pos }
func (t *fakeTraveler) PrevPos() mgl64.Vec3 { return t.prev }
func (t *fakeTraveler) Yaw() float64        { return t.yaw }

func (t *fakeTraveler) Box() geom.AABB {
	return geom.Box(t.pos[0]-0.3, t.pos[1], t.pos[2]-0.3, t.pos[0]+0.3, t.pos[1]+1.8, t.pos[2]+0.3)
}

func (t *fakeTraveler) Transfer(dim string, pos mgl64.Vec3, yaw float64) bool {
	if t.refuse {
		return false
	}
	t.dim, t.pos, t.prev, t.yaw = dim, pos, pos, yaw
	t.arrived++
	return true
}

func observerAt(id string, pos mgl64.Vec3) Observer {
	return Observer{
		ID:  id,
		Pos: pos,
		Box: geom.Box(pos[0]-0.3, pos[1], pos[2]-0.3, pos[0]+0.3, pos[1]+1.8, pos[2]+0.3),
	}
}

// testPair builds a one-way pair whose head is a single horizontal block at
// (10,70,10) in "overworld" and whose tail is at (0,64,0) in "end".
func testPair(t testing.TB) (*Registry, fakeWorlds, *Instance, *Instance) {
	t.Helper()
	reg := NewRegistry()
	worlds := fakeWorlds{"overworld": newFakeWorld(), "end": newFakeWorld()}
	g := NewGeometry(Horizontal, []geom.Vec3i{{}}, "overworld", geom.Vec3i{X: 10, Y: 70, Z: 10}, 0, "end", geom.Vec3i{X: 0, Y: 64, Z: 0}, 0)
	cfg := DefaultConfig()
	cfg.FrameBlock = testFrame
	cfg.Air = testAir
	head, tail, err := NewPair(reg, "P1", g, cfg, nil)
	if err != nil {
		t.Fatalf("NewPair: %v", err)
	}
	return reg, worlds, head, tail
}
