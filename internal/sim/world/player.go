package world

import (
	"github.com/go-gl/mathgl/mgl64"

	"voxelportals.ai/internal/sim/geom"
)

const (
	playerWidth  = 0.6
	playerHeight = 1.8
)

// Player is a connected viewer. It is both a portal observer and a traveler.
type Player struct {
	id    string
	dim   string
	pos   mgl64.Vec3
	prev  mgl64.Vec3
	yaw   float64
	pitch float64

	rt *Runtime
}

func (p *Player) ID() string          { return p.id }
func (p *Player) Dimension() string   { return p.dim }
func (p *Player) Pos() mgl64.Vec3     { return p.pos }
func (p *Player) PrevPos() mgl64.Vec3 { return p.prev }
func (p *Player) Yaw() float64        { return p.yaw }
func (p *Player) Pitch() float64      { return p.pitch }

// Box is the collision box with pos at the centre of the feet.
func (p *Player) Box() geom.AABB {
	h := playerWidth / 2
	return geom.Box(p.pos[0]-h, p.pos[1], p.pos[2]-h, p.pos[0]+h, p.pos[1]+playerHeight, p.pos[2]+h)
}

// Transfer places the player, possibly in another dimension. It fails when the
// target dimension is not loaded.
func (p *Player) Transfer(dimension string, pos mgl64.Vec3, yaw float64) bool {
	if p.rt == nil || p.rt.dims[dimension] == nil {
		return false
	}
	p.dim = dimension
	p.pos = pos
	p.prev = pos
	p.yaw = yaw
	return true
}

// PlayerInfo is a copy of a player's state safe to hand out.
type PlayerInfo struct {
	ID        string
	Dimension string
	Pos       mgl64.Vec3
	Yaw       float64
	Pitch     float64
}

func (p *Player) info() PlayerInfo {
	return PlayerInfo{ID: p.id, Dimension: p.dim, Pos: p.pos, Yaw: p.yaw, Pitch: p.pitch}
}
