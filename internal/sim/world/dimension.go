package world

import (
	"sort"

	"voxelportals.ai/internal/sim/geom"
	"voxelportals.ai/internal/sim/portal"
	"voxelportals.ai/internal/sim/world/terrain/store"
)

// Dimension is one voxel world. It satisfies portal.World.
type Dimension struct {
	id        string
	unbounded bool
	margin    int
	chunks    *store.ChunkStore
	rt        *Runtime
}

func (d *Dimension) ID() string                { return d.id }
func (d *Dimension) Unbounded() bool           { return d.unbounded }
func (d *Dimension) Chunks() *store.ChunkStore { return d.chunks }

func (d *Dimension) HasCollision(box geom.AABB) bool   { return d.chunks.HasCollision(box) }
func (d *Dimension) GetBlock(pos geom.Vec3i) uint16    { return d.chunks.GetBlock(pos) }
func (d *Dimension) SetBlock(pos geom.Vec3i, b uint16) { d.chunks.SetBlock(pos, b) }

// HeightBounds keeps portals the vertical margin away from the build limits.
func (d *Dimension) HeightBounds() portal.VerticalBounds {
	return portal.VerticalBounds{
		Min:       d.chunks.Gen.MinY + d.margin,
		Max:       d.chunks.Gen.MaxY - d.margin,
		Unbounded: d.unbounded,
	}
}

// Observers lists the players in this dimension ordered by id.
func (d *Dimension) Observers() []portal.Observer {
	if d.rt == nil {
		return nil
	}
	var out []portal.Observer
	for _, p := range d.rt.players {
		if p.dim != d.id {
			continue
		}
		out = append(out, portal.Observer{ID: p.id, Pos: p.pos, Box: p.Box()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
