package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB is an axis-aligned box in world units. Boxes are half-open for
// intersection purposes: touching faces do not intersect.
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

func Box(x0, y0, z0, x1, y1, z1 float64) AABB {
	return AABB{
		Min: mgl64.Vec3{math.Min(x0, x1), math.Min(y0, y1), math.Min(z0, z1)},
		Max: mgl64.Vec3{math.Max(x0, x1), math.Max(y0, y1), math.Max(z0, z1)},
	}
}

// BlockBox is the full unit cube of a voxel.
func BlockBox(v Vec3i) AABB {
	return AABB{Min: v.Vec3(), Max: v.Vec3().Add(mgl64.Vec3{1, 1, 1})}
}

func (b AABB) Offset(d mgl64.Vec3) AABB {
	return AABB{Min: b.Min.Add(d), Max: b.Max.Add(d)}
}

func (b AABB) OffsetVoxel(d Vec3i) AABB { return b.Offset(d.Vec3()) }

// Grow expands the box on both sides of every axis by the absolute value of
// the matching component of g.
func (b AABB) Grow(g mgl64.Vec3) AABB {
	a := mgl64.Vec3{math.Abs(g[0]), math.Abs(g[1]), math.Abs(g[2])}
	return AABB{Min: b.Min.Sub(a), Max: b.Max.Add(a)}
}

func (b AABB) Intersects(o AABB) bool {
	return b.Min[0] < o.Max[0] && b.Max[0] > o.Min[0] &&
		b.Min[1] < o.Max[1] && b.Max[1] > o.Min[1] &&
		b.Min[2] < o.Max[2] && b.Max[2] > o.Min[2]
}

func (b AABB) Union(o AABB) AABB {
	return AABB{
		Min: mgl64.Vec3{math.Min(b.Min[0], o.Min[0]), math.Min(b.Min[1], o.Min[1]), math.Min(b.Min[2], o.Min[2])},
		Max: mgl64.Vec3{math.Max(b.Max[0], o.Max[0]), math.Max(b.Max[1], o.Max[1]), math.Max(b.Max[2], o.Max[2])},
	}
}

func (b AABB) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Contains reports whether p lies inside the box (min inclusive, max exclusive).
func (b AABB) Contains(p mgl64.Vec3) bool {
	return p[0] >= b.Min[0] && p[0] < b.Max[0] &&
		p[1] >= b.Min[1] && p[1] < b.Max[1] &&
		p[2] >= b.Min[2] && p[2] < b.Max[2]
}

// Voxels returns the range of voxel coordinates the box overlaps, inclusive.
// ok is false for an empty box.
func (b AABB) Voxels() (lo, hi Vec3i, ok bool) {
	lo = Vec3i{X: int(math.Floor(b.Min[0])), Y: int(math.Floor(b.Min[1])), Z: int(math.Floor(b.Min[2]))}
	hi = Vec3i{X: int(math.Ceil(b.Max[0])) - 1, Y: int(math.Ceil(b.Max[1])) - 1, Z: int(math.Ceil(b.Max[2])) - 1}
	ok = hi.X >= lo.X && hi.Y >= lo.Y && hi.Z >= lo.Z
	return lo, hi, ok
}
