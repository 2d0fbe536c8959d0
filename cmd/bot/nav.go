package main

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"voxelportals.ai/internal/observerproto"
)

type phase int

const (
	seeking phase = iota
	approaching
	crossing
)

// standoff is how far in front of and behind a portal plane the walker
// lines up before and after crossing.
const standoff = 1.5

// facings maps a vertical portal rotation to its facing direction.
var facings = [4]mgl64.Vec3{{0, 0, 1}, {-1, 0, 0}, {0, 0, -1}, {1, 0, 0}}

// walker steers a player through the nearest enterable portal of its
// current dimension, one waypoint at a time.
type walker struct {
	dim    string
	target string
	phase  phase
	via    mgl64.Vec3
	exit   mgl64.Vec3
}

// next returns where the player should be after one step of at most speed
// blocks, and the yaw it should face. ok is false when there is nothing to
// walk to.
func (w *walker) next(self observerproto.PlayerState, portals []observerproto.PortalState, speed float64) (pos mgl64.Vec3, yaw float64, ok bool) {
	pos = mgl64.Vec3{self.Pos[0], self.Pos[1], self.Pos[2]}
	if self.Dimension != w.dim {
		w.dim = self.Dimension
		w.target = ""
		w.phase = seeking
	}
	if w.phase == seeking && !w.pick(pos, portals) {
		return pos, self.Yaw, false
	}

	goal := w.via
	if w.phase == crossing {
		goal = w.exit
	}
	d := goal.Sub(pos)
	if l := d.Len(); l <= speed {
		switch w.phase {
		case approaching:
			w.phase = crossing
		case crossing:
			// Walked through without being moved; try again.
			w.phase = seeking
		}
		if l == 0 {
			return goal, self.Yaw, true
		}
		return goal, yawOf(d), true
	}
	return pos.Add(d.Mul(speed / d.Len())), yawOf(d), true
}

// pick chooses the nearest vertical head end in the walker's dimension and
// sets the waypoints on the side the player is already on.
func (w *walker) pick(pos mgl64.Vec3, portals []observerproto.PortalState) bool {
	best := -1.0
	for _, p := range portals {
		if p.Dimension != w.dim || p.IsTailEnd || p.Plane != "vertical" {
			continue
		}
		c := mgl64.Vec3{float64(p.Pos[0]) + 0.5, float64(p.Pos[1]), float64(p.Pos[2]) + 0.5}
		dist := c.Sub(pos).LenSqr()
		if best >= 0 && dist >= best {
			continue
		}
		best = dist
		n := facings[((p.Rotation%4)+4)%4]
		side := 1.0
		if pos.Sub(c).Dot(n) < 0 {
			side = -1
		}
		w.target = p.PairID
		w.via = c.Add(n.Mul(side * standoff))
		w.exit = c.Sub(n.Mul(side * standoff))
	}
	if best < 0 {
		return false
	}
	w.phase = approaching
	return true
}

// yawOf is the yaw in degrees that faces along d; yaw 0 looks down +Z.
func yawOf(d mgl64.Vec3) float64 {
	return -mgl64.RadToDeg(math.Atan2(d[0], d[2]))
}
