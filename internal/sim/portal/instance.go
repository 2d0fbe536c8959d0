package portal

import (
	"voxelportals.ai/internal/sim/geom"
	"voxelportals.ai/internal/sim/ticktimer"
)

type Profiler = ticktimer.Profiler

// Instance is one end of a portal pair.
type Instance struct {
	cfg      Config
	pairID   string
	geometry Geometry
	registry *Registry
	agent    *Agent

	isTailEnd bool
	// originalTailPos is where the tail end wants to be. Repositioning is
	// always seeded here.
	originalTailPos geom.Vec3i

	travelingInProgress bool
	travelTimer         int

	obstructionCheck  *ticktimer.TickTimer
	preferredPosCheck *ticktimer.TickTimer
}

func New(pairID string, g Geometry, isTailEnd bool, cfg Config, prof Profiler) *Instance {
	cfg.applyDefaults()
	p := &Instance{
		cfg:               cfg,
		pairID:            pairID,
		geometry:          g,
		isTailEnd:         isTailEnd,
		obstructionCheck:  ticktimer.New(cfg.ObstructionCheckTicks, prof),
		preferredPosCheck: ticktimer.New(cfg.PreferredPosCheckTicks, prof),
	}
	if isTailEnd {
		p.originalTailPos = g.LocalPosition
	} else {
		p.originalTailPos = g.RemotePosition
	}
	p.agent = &Agent{portal: p}
	return p
}

func (p *Instance) PairID() string              { return p.pairID }
func (p *Instance) Geometry() Geometry          { return p.geometry }
func (p *Instance) Config() Config              { return p.cfg }
func (p *Instance) Agent() *Agent               { return p.agent }
func (p *Instance) IsTailEnd() bool             { return p.isTailEnd }
func (p *Instance) OriginalTailPos() geom.Vec3i { return p.originalTailPos }
func (p *Instance) TravelingInProgress() bool   { return p.travelingInProgress }
func (p *Instance) TravelTimer() int            { return p.travelTimer }

func (p *Instance) Key() Key {
	return Key{PairID: p.pairID, Dimension: p.geometry.LocalDimension}
}

func (p *Instance) RemoteKey() Key {
	return Key{PairID: p.pairID, Dimension: p.geometry.RemoteDimension}
}

// Remote resolves the other end of the pair, or nil if it is not loaded.
func (p *Instance) Remote() *Instance {
	return p.registry.Lookup(p.RemoteKey())
}

// Eligible reports whether the end may be drawn at all. Tail ends are only
// drawn while someone is arriving through them.
func (p *Instance) Eligible() bool {
	return !p.isTailEnd || p.travelingInProgress
}

// SetTravelingInProgress changes the traveling flag and swaps the blocks
// around the footprint between air and the frame block. Only blocks that still
// hold the expected previous state are replaced. It returns the number of
// blocks swapped; w may be nil when the dimension is not loaded.
func (p *Instance) SetTravelingInProgress(w BlockAccess, v bool) int {
	if p.travelingInProgress == v {
		return 0
	}
	p.travelingInProgress = v
	if v {
		if p.travelTimer == 0 {
			p.travelTimer = p.cfg.TravelGraceTicks
		}
	} else {
		p.travelTimer = 0
	}
	if w == nil {
		return 0
	}
	oldB, newB := p.cfg.FrameBlock, p.cfg.Air
	if v {
		oldB, newB = p.cfg.Air, p.cfg.FrameBlock
	}
	blocks := p.geometry.LocalBlocks()
	inPortal := make(map[geom.Vec3i]struct{}, len(blocks))
	for _, b := range blocks {
		inPortal[b] = struct{}{}
	}
	facings := p.geometry.BoundaryFacings()
	swapped := 0
	for _, b := range blocks {
		for _, f := range facings {
			n := b.Add(f.Vec())
			if _, ok := inPortal[n]; ok {
				continue
			}
			if w.GetBlock(n) == oldB {
				w.SetBlock(n, newB)
				swapped++
			}
		}
	}
	return swapped
}

// setGeometry replaces the geometry. Any fake frame is removed first since it
// belongs to the old footprint.
func (p *Instance) setGeometry(w BlockAccess, g Geometry) int {
	swapped := p.SetTravelingInProgress(w, false)
	p.geometry = g
	return swapped
}

// IsObstructed reports whether world geometry intersects the footprint grown
// along the portal normal.
func (p *Instance) IsObstructed(q CollisionQuery) bool {
	g := p.geometry
	grow := g.LocalFacing().Vec3().Mul(p.cfg.GrowMargin)
	if !q.HasCollision(g.LocalBoundingBox().Grow(grow)) {
		return false
	}
	for _, b := range g.LocalDetailedBounds() {
		if q.HasCollision(b.Grow(grow)) {
			return true
		}
	}
	return false
}

// FindBestUnobstructedSpace returns the free placement nearest to the
// original tail position, or that position if none is free.
func (p *Instance) FindBestUnobstructedSpace(w World) geom.Vec3i {
	g := p.geometry
	anchor := p.originalTailPos
	grow := g.LocalFacing().Vec3().Mul(p.cfg.GrowMargin)
	shift := anchor.Sub(g.LocalPosition).Vec3()

	base := g.LocalDetailedBounds()
	for i := range base {
		base[i] = base[i].Offset(shift).Grow(grow)
	}
	buf := make([]geom.AABB, len(base))
	shapeAt := func(off geom.Vec3i) []geom.AABB {
		for i, b := range base {
			buf[i] = b.OffsetVoxel(off)
		}
		return buf
	}
	return FindBestUnobstructedSpace(anchor, shapeAt, w, w.HeightBounds(), p.cfg.SearchRadius)
}

// Move records a repositioning of a pair.
type Move struct {
	PairID    string
	Dimension string
	From      geom.Vec3i
	To        geom.Vec3i
	// Swapped counts frame blocks reverted on either end.
	Swapped int
}

// UpdatePosition moves this end to the best free spot near its original
// position and rewrites the remote end to match. Nothing changes when the
// best spot is the current one or the remote end is not loaded.
func (p *Instance) UpdatePosition(worlds Worlds) (Move, bool) {
	w := worlds.World(p.geometry.LocalDimension)
	if w == nil {
		return Move{}, false
	}
	newPos := p.FindBestUnobstructedSpace(w)
	if newPos == p.geometry.LocalPosition {
		return Move{}, false
	}
	remote := p.Remote()
	if remote == nil {
		return Move{}, false
	}
	mv := Move{
		PairID:    p.pairID,
		Dimension: p.geometry.LocalDimension,
		From:      p.geometry.LocalPosition,
		To:        newPos,
	}
	g := p.geometry.WithLocalPosition(newPos)
	mv.Swapped += p.setGeometry(w, g)
	mv.Swapped += remote.setGeometry(blockAccess(worlds, remote.geometry.LocalDimension), g.ToRemote())
	return mv, true
}

// TickReport describes what a tick changed.
type TickReport struct {
	Move        *Move
	TravelEnded bool
	Swapped     int
}

// Tick advances the end by one simulation tick.
func (p *Instance) Tick(worlds Worlds) TickReport {
	var rep TickReport
	if !p.cfg.OneWay || !p.isTailEnd {
		return rep
	}
	w := worlds.World(p.geometry.LocalDimension)
	if w == nil {
		return rep
	}

	if p.travelingInProgress {
		p.tickTraveling(w, &rep)
	}

	p.obstructionCheck.Tick("checkPortalObstruction", func() {
		if p.IsObstructed(w) {
			if mv, ok := p.UpdatePosition(worlds); ok {
				rep.Move = &mv
			}
		}
	})
	p.preferredPosCheck.Tick("findImprovedPortalPosition", func() {
		if p.geometry.LocalPosition != p.originalTailPos {
			if mv, ok := p.UpdatePosition(worlds); ok {
				rep.Move = &mv
			}
		}
	})
	return rep
}

func (p *Instance) tickTraveling(w World, rep *TickReport) {
	center := p.geometry.LocalBoundingBox().Center()
	bounds := p.geometry.LocalDetailedBounds()
	nearby, inside := false, false
	for _, o := range w.Observers() {
		if center.Sub(o.Pos).LenSqr() < p.cfg.NearbyDistSq {
			nearby = true
		}
		for _, b := range bounds {
			if b.Intersects(o.Box) {
				inside = true
				break
			}
		}
	}
	if !inside && p.travelTimer > 0 {
		p.travelTimer--
	}
	if !nearby || p.travelTimer == 0 {
		rep.Swapped += p.SetTravelingInProgress(w, false)
		rep.TravelEnded = true
	}
}

// Destroy unregisters the end and removes any fake frame it placed.
func (p *Instance) Destroy(w BlockAccess) int {
	swapped := p.SetTravelingInProgress(w, false)
	if p.registry != nil {
		p.registry.Remove(p)
	}
	return swapped
}

func blockAccess(worlds Worlds, dim string) BlockAccess {
	w := worlds.World(dim)
	if w == nil {
		return nil
	}
	return w
}
