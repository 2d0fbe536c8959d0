package portal

import (
	"github.com/go-gl/mathgl/mgl64"

	"voxelportals.ai/internal/sim/geom"
)

// CollisionQuery answers whether solid world geometry intersects a box.
type CollisionQuery interface {
	HasCollision(box geom.AABB) bool
}

// BlockAccess reads and writes single voxels.
type BlockAccess interface {
	GetBlock(pos geom.Vec3i) uint16
	SetBlock(pos geom.Vec3i, b uint16)
}

// VerticalBounds limits the y range a portal may be moved into.
type VerticalBounds struct {
	Min       int
	Max       int
	Unbounded bool
}

func (b VerticalBounds) Allows(y int) bool {
	return b.Unbounded || (y >= b.Min && y <= b.Max)
}

// Observer is a viewer whose proximity keeps a tail end visible.
type Observer struct {
	ID  string
	Pos mgl64.Vec3
	Box geom.AABB
}

// World is the part of a dimension the portal logic consumes.
type World interface {
	CollisionQuery
	BlockAccess
	HeightBounds() VerticalBounds
	Observers() []Observer
}

// Worlds resolves dimensions by id. It returns nil for unloaded dimensions.
type Worlds interface {
	World(dimension string) World
}
