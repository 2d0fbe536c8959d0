package portal

import (
	"github.com/go-gl/mathgl/mgl64"

	"voxelportals.ai/internal/sim/geom"
)

// Traveler is an entity that can pass through a portal.
type Traveler interface {
	ID() string
	Dimension() string
	Pos() mgl64.Vec3
	// PrevPos is the position at the start of the current tick.
	PrevPos() mgl64.Vec3
	Yaw() float64
	Box() geom.AABB
	// Transfer moves the entity, possibly into another dimension, and reports
	// whether it arrived.
	Transfer(dimension string, pos mgl64.Vec3, yaw float64) bool
}

// Teleport records a completed pass through a portal.
type Teleport struct {
	PairID     string
	TravelerID string
	From       string
	To         string
	Pos        mgl64.Vec3
	// Swapped counts frame blocks placed at the arrival end.
	Swapped int
}

// Agent moves travelers across a portal pair.
type Agent struct {
	portal *Instance
}

// CheckTeleportees teleports every traveler that crossed the portal surface
// since its previous position. Tail ends cannot be entered so nothing is
// checked for them.
func (a *Agent) CheckTeleportees(worlds Worlds, travelers []Traveler) []Teleport {
	p := a.portal
	if p.isTailEnd {
		return nil
	}
	g := p.geometry
	center := g.LocalBoundingBox().Center()
	normal := g.LocalFacing().Vec3()
	bounds := g.LocalDetailedBounds()

	var out []Teleport
	for _, t := range travelers {
		if t.Dimension() != g.LocalDimension {
			continue
		}
		before := t.PrevPos().Sub(center).Dot(normal)
		after := t.Pos().Sub(center).Dot(normal)
		if before == 0 || (before > 0) == (after > 0) {
			continue
		}
		box := t.Box()
		touching := false
		for _, b := range bounds {
			if b.Intersects(box) {
				touching = true
				break
			}
		}
		if !touching {
			continue
		}
		from := g.LocalFacing()
		if before < 0 {
			from = from.Opposite()
		}
		if tp, ok := a.Teleport(worlds, t, from); ok {
			out = append(out, tp)
		}
	}
	return out
}

// Teleport moves t to the remote end. from is the side of the portal the
// traveler came from. On success the remote end of a one-way pair is marked as
// traveling in progress so it stays visible while the traveler arrives.
func (a *Agent) Teleport(worlds Worlds, t Traveler, from geom.Facing) (Teleport, bool) {
	p := a.portal
	if p.isTailEnd {
		return Teleport{}, false
	}
	remote := p.Remote()
	if remote == nil {
		return Teleport{}, false
	}
	tp, ok := a.transfer(t, from)
	if !ok {
		return Teleport{}, false
	}
	if p.cfg.OneWay {
		tp.Swapped = remote.SetTravelingInProgress(blockAccess(worlds, remote.geometry.LocalDimension), true)
	}
	return tp, true
}

func (a *Agent) transfer(t Traveler, from geom.Facing) (Teleport, bool) {
	g := a.portal.geometry
	facing := g.LocalFacing()
	if from != facing && from != facing.Opposite() {
		return Teleport{}, false
	}
	pos := g.ToRemotePos(t.Pos())
	yaw := t.Yaw() + g.YawDelta()
	if !t.Transfer(g.RemoteDimension, pos, yaw) {
		return Teleport{}, false
	}
	return Teleport{
		PairID:     a.portal.pairID,
		TravelerID: t.ID(),
		From:       g.LocalDimension,
		To:         g.RemoteDimension,
		Pos:        pos,
	}, true
}

// Visible reports whether the end should be drawn for a camera. cull tests
// the portal's bounding box against the view; nil accepts everything.
func (a *Agent) Visible(cull func(geom.AABB) bool) bool {
	if !a.portal.Eligible() {
		return false
	}
	return cull == nil || cull(a.portal.geometry.LocalBoundingBox())
}
