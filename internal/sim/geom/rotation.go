package geom

import "github.com/go-gl/mathgl/mgl64"

// NormalizeRotation converts a rotation value into a stable quarter-turn
// count in [0,3].
//
// It accepts either quarter-turns (0..3) or degrees (multiples of 90).
func NormalizeRotation(r int) int {
	// Treat large multiples of 90 as degrees.
	if r%90 == 0 && (r > 3 || r < -3) {
		r = r / 90
	}
	r %= 4
	if r < 0 {
		r += 4
	}
	return r
}

// RotateXZ rotates an (x,z) offset around the Y axis by rot*90 degrees of
// yaw (south turns to west). rot must be a normalized quarter-turn count in [0,3].
func RotateXZ(x, z, rot int) (rx, rz int) {
	switch rot & 3 {
	case 0:
		return x, z
	case 1:
		return -z, x
	case 2:
		return -x, -z
	default: // 3
		return z, -x
	}
}

func RotateOffset(off Vec3i, rot int) Vec3i {
	rx, rz := RotateXZ(off.X, off.Z, rot)
	return Vec3i{X: rx, Y: off.Y, Z: rz}
}

// Degrees returns the yaw angle of a quarter-turn count.
func Degrees(rot int) float64 { return float64(NormalizeRotation(rot) * 90) }

// RotYaw is the homogeneous rotation matching RotateXZ for an arbitrary yaw
// in degrees.
func RotYaw(deg float64) mgl64.Mat4 {
	return mgl64.HomogRotate3DY(mgl64.DegToRad(-deg))
}

// RotateVec3 applies a quarter-turn yaw rotation to a float vector.
func RotateVec3(v mgl64.Vec3, rot int) mgl64.Vec3 {
	switch NormalizeRotation(rot) {
	case 0:
		return v
	case 1:
		return mgl64.Vec3{-v[2], v[1], v[0]}
	case 2:
		return mgl64.Vec3{-v[0], v[1], -v[2]}
	default:
		return mgl64.Vec3{v[2], v[1], -v[0]}
	}
}
