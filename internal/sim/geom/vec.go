package geom

import "github.com/go-gl/mathgl/mgl64"

// Vec3i is an integer voxel coordinate.
type Vec3i struct {
	X int
	Y int
	Z int
}

func (v Vec3i) Add(o Vec3i) Vec3i { return Vec3i{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z} }
func (v Vec3i) Sub(o Vec3i) Vec3i { return Vec3i{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z} }

func (v Vec3i) ToArray() [3]int { return [3]int{v.X, v.Y, v.Z} }

func FromArray(a [3]int) Vec3i { return Vec3i{X: a[0], Y: a[1], Z: a[2]} }

// Vec3 returns the position of the voxel's minimum corner.
func (v Vec3i) Vec3() mgl64.Vec3 { return mgl64.Vec3{float64(v.X), float64(v.Y), float64(v.Z)} }

// Center returns the centre of the voxel's unit cube.
func (v Vec3i) Center() mgl64.Vec3 {
	return mgl64.Vec3{float64(v.X) + 0.5, float64(v.Y) + 0.5, float64(v.Z) + 0.5}
}

func Manhattan(a, b Vec3i) int {
	return AbsInt(a.X-b.X) + AbsInt(a.Y-b.Y) + AbsInt(a.Z-b.Z)
}

func AbsInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func FloorDiv(a, b int) int {
	// b > 0
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

func Mod(a, b int) int {
	// b > 0
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
