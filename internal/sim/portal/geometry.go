package portal

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"voxelportals.ai/internal/sim/geom"
)

// Plane is the orientation of a portal's surface before rotation.
type Plane uint8

const (
	// Vertical portals stand in the XY plane and face south at rotation 0.
	Vertical Plane = iota
	// Horizontal portals lie in the XZ plane and face up.
	Horizontal
)

func (p Plane) String() string {
	if p == Horizontal {
		return "horizontal"
	}
	return "vertical"
}

// Geometry describes both ends of a portal from the point of view of one end.
// It is an immutable value: With* methods return modified copies and the
// shared Blocks slice is never written after NewGeometry.
type Geometry struct {
	Plane Plane
	// Blocks are the portal voxels relative to the position at rotation 0.
	Blocks []geom.Vec3i

	LocalDimension string
	LocalPosition  geom.Vec3i
	LocalRotation  int

	RemoteDimension string
	RemotePosition  geom.Vec3i
	RemoteRotation  int
}

// NewGeometry normalizes rotations and stores a sorted copy of blocks.
func NewGeometry(plane Plane, blocks []geom.Vec3i, localDim string, localPos geom.Vec3i, localRot int, remoteDim string, remotePos geom.Vec3i, remoteRot int) Geometry {
	bs := append([]geom.Vec3i(nil), blocks...)
	sort.Slice(bs, func(i, j int) bool {
		if bs[i].Y != bs[j].Y {
			return bs[i].Y < bs[j].Y
		}
		if bs[i].X != bs[j].X {
			return bs[i].X < bs[j].X
		}
		return bs[i].Z < bs[j].Z
	})
	return Geometry{
		Plane:           plane,
		Blocks:          bs,
		LocalDimension:  localDim,
		LocalPosition:   localPos,
		LocalRotation:   geom.NormalizeRotation(localRot),
		RemoteDimension: remoteDim,
		RemotePosition:  remotePos,
		RemoteRotation:  geom.NormalizeRotation(remoteRot),
	}
}

// ToRemote returns the same portal seen from its other end.
func (g Geometry) ToRemote() Geometry {
	return Geometry{
		Plane:           g.Plane,
		Blocks:          g.Blocks,
		LocalDimension:  g.RemoteDimension,
		LocalPosition:   g.RemotePosition,
		LocalRotation:   g.RemoteRotation,
		RemoteDimension: g.LocalDimension,
		RemotePosition:  g.LocalPosition,
		RemoteRotation:  g.LocalRotation,
	}
}

func (g Geometry) WithLocalPosition(pos geom.Vec3i) Geometry {
	g.LocalPosition = pos
	return g
}

// Equal compares two geometries including their block shapes.
func (g Geometry) Equal(o Geometry) bool {
	if g.Plane != o.Plane || len(g.Blocks) != len(o.Blocks) {
		return false
	}
	for i := range g.Blocks {
		if g.Blocks[i] != o.Blocks[i] {
			return false
		}
	}
	return g.LocalDimension == o.LocalDimension && g.LocalPosition == o.LocalPosition && g.LocalRotation == o.LocalRotation &&
		g.RemoteDimension == o.RemoteDimension && g.RemotePosition == o.RemotePosition && g.RemoteRotation == o.RemoteRotation
}

func placeBlocks(rel []geom.Vec3i, pos geom.Vec3i, rot int) []geom.Vec3i {
	out := make([]geom.Vec3i, len(rel))
	for i, b := range rel {
		out[i] = pos.Add(geom.RotateOffset(b, rot))
	}
	return out
}

func (g Geometry) LocalBlocks() []geom.Vec3i {
	return placeBlocks(g.Blocks, g.LocalPosition, g.LocalRotation)
}

func (g Geometry) RemoteBlocks() []geom.Vec3i {
	return placeBlocks(g.Blocks, g.RemotePosition, g.RemoteRotation)
}

func facingOf(plane Plane, rot int) geom.Facing {
	if plane == Horizontal {
		return geom.Up
	}
	return geom.HorizontalFacing(rot)
}

func (g Geometry) LocalFacing() geom.Facing  { return facingOf(g.Plane, g.LocalRotation) }
func (g Geometry) RemoteFacing() geom.Facing { return facingOf(g.Plane, g.RemoteRotation) }

// LocalDetailedBounds is the per-voxel collision shape of the local footprint.
func (g Geometry) LocalDetailedBounds() []geom.AABB {
	blocks := g.LocalBlocks()
	out := make([]geom.AABB, len(blocks))
	for i, b := range blocks {
		out[i] = geom.BlockBox(b)
	}
	return out
}

func (g Geometry) LocalBoundingBox() geom.AABB {
	blocks := g.LocalBlocks()
	if len(blocks) == 0 {
		return geom.BlockBox(g.LocalPosition)
	}
	box := geom.BlockBox(blocks[0])
	for _, b := range blocks[1:] {
		box = box.Union(geom.BlockBox(b))
	}
	return box
}

// BoundaryFacings lists the in-plane directions around the footprint, i.e.
// where a frame would sit. Vertical ends are framed above, below and to both
// sides, never in front of or behind the face, so a frame never blocks the
// walk-in side.
func (g Geometry) BoundaryFacings() []geom.Facing {
	if g.Plane == Horizontal {
		return geom.Horizontals[:]
	}
	side := geom.HorizontalFacing(g.LocalRotation + 1)
	return []geom.Facing{geom.Up, geom.Down, side, side.Opposite()}
}

// LocalToRemote maps world positions near the local end onto the matching
// positions near the remote end. Rotation pivots around the centre of the
// origin voxel so that it agrees with the block placement.
func (g Geometry) LocalToRemote() mgl64.Mat4 {
	from := g.LocalPosition.Center()
	to := g.RemotePosition.Center()
	return mgl64.Translate3D(to[0], to[1], to[2]).
		Mul4(geom.RotYaw(g.YawDelta())).
		Mul4(mgl64.Translate3D(-from[0], -from[1], -from[2]))
}

// YawDelta is the yaw change in degrees applied when passing local to remote.
func (g Geometry) YawDelta() float64 {
	return geom.Degrees(g.RemoteRotation - g.LocalRotation)
}

func (g Geometry) ToRemotePos(p mgl64.Vec3) mgl64.Vec3 {
	return g.LocalToRemote().Mul4x1(p.Vec4(1)).Vec3()
}
