package portal

import (
	"math"

	"voxelportals.ai/internal/sim/geom"
)

// FindBestUnobstructedSpace searches the cube of offsets within radius of
// anchor for the placement closest to it (Manhattan distance) whose shape is
// free of collisions. shapeAt returns the boxes to test for a given offset
// from anchor. Offsets are visited y, then x, then z ascending and the first
// candidate found at a distance wins. When nothing in the cube is free the
// anchor itself is returned.
func FindBestUnobstructedSpace(anchor geom.Vec3i, shapeAt func(off geom.Vec3i) []geom.AABB, q CollisionQuery, bounds VerticalBounds, radius int) geom.Vec3i {
	bestDist := math.MaxInt
	best := anchor
	found := false
	for yOff := -radius; yOff <= radius; yOff++ {
		if !bounds.Allows(anchor.Y + yOff) {
			continue
		}
		for xOff := -radius; xOff <= radius; xOff++ {
			for zOff := -radius; zOff <= radius; zOff++ {
				dist := geom.AbsInt(xOff) + geom.AbsInt(yOff) + geom.AbsInt(zOff)
				if dist >= bestDist {
					continue
				}
				off := geom.Vec3i{X: xOff, Y: yOff, Z: zOff}
				if !shapeFree(shapeAt(off), q) {
					continue
				}
				bestDist = dist
				best = anchor.Add(off)
				found = true
			}
		}
	}
	if !found {
		return anchor
	}
	return best
}

func shapeFree(boxes []geom.AABB, q CollisionQuery) bool {
	for _, b := range boxes {
		if q.HasCollision(b) {
			return false
		}
	}
	return true
}
