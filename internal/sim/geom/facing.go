package geom

import "github.com/go-gl/mathgl/mgl64"

type Facing uint8

const (
	Down Facing = iota
	Up
	North
	South
	West
	East
)

var Horizontals = [4]Facing{South, West, North, East}

func (f Facing) Vec() Vec3i {
	switch f {
	case Down:
		return Vec3i{Y: -1}
	case Up:
		return Vec3i{Y: 1}
	case North:
		return Vec3i{Z: -1}
	case South:
		return Vec3i{Z: 1}
	case West:
		return Vec3i{X: -1}
	default:
		return Vec3i{X: 1}
	}
}

func (f Facing) Vec3() mgl64.Vec3 { return f.Vec().Vec3() }

func (f Facing) Opposite() Facing {
	switch f {
	case Down:
		return Up
	case Up:
		return Down
	case North:
		return South
	case South:
		return North
	case West:
		return East
	default:
		return West
	}
}

// FacingOf returns the facing of a unit axis vector.
func FacingOf(v Vec3i) (Facing, bool) {
	for _, f := range [6]Facing{Down, Up, North, South, West, East} {
		if f.Vec() == v {
			return f, true
		}
	}
	return 0, false
}

// HorizontalFacing returns the horizontal facing a quarter-turn yaw points at.
// Rotation 0 faces south.
func HorizontalFacing(rot int) Facing {
	return Horizontals[NormalizeRotation(rot)]
}

func (f Facing) String() string {
	switch f {
	case Down:
		return "down"
	case Up:
		return "up"
	case North:
		return "north"
	case South:
		return "south"
	case West:
		return "west"
	case East:
		return "east"
	}
	return "unknown"
}
