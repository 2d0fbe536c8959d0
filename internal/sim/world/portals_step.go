package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"voxelportals.ai/internal/sim/portal"
)

// checkTeleports runs every enterable end against the players that moved
// this tick.
func (r *Runtime) checkTeleports(nowTick uint64) {
	if len(r.players) == 0 {
		return
	}
	players := r.sortedPlayers()
	travelers := make([]portal.Traveler, len(players))
	for i, p := range players {
		travelers[i] = p
	}
	for _, p := range r.registry.All() {
		if p.IsTailEnd() {
			continue
		}
		remote := p.Remote()
		wasTraveling := remote != nil && remote.TravelingInProgress()
		for _, tp := range p.Agent().CheckTeleportees(r, travelers) {
			r.emit(Event{
				Tick:        nowTick,
				Type:        EventTeleport,
				PairID:      tp.PairID,
				Dimension:   tp.From,
				To:          vecPtr(floorVec(tp.Pos)),
				PlayerID:    tp.TravelerID,
				ToDimension: tp.To,
			})
			r.logger.Printf("player %s teleported %s -> %s via %s", tp.TravelerID, tp.From, tp.To, tp.PairID)
			if remote == nil || wasTraveling || !remote.TravelingInProgress() {
				continue
			}
			wasTraveling = true
			r.emit(Event{
				Tick:      nowTick,
				Type:      EventTravelStart,
				PairID:    tp.PairID,
				Dimension: remote.Geometry().LocalDimension,
				Swapped:   tp.Swapped,
			})
			r.logger.Printf("portal %s traveling started (%d frame blocks)", remote.Key(), tp.Swapped)
		}
	}
}

// tickPortals advances every loaded end one tick and reports what changed.
func (r *Runtime) tickPortals(nowTick uint64) {
	for _, p := range r.registry.All() {
		rep := p.Tick(r)
		if mv := rep.Move; mv != nil {
			r.emit(Event{
				Tick:      nowTick,
				Type:      EventReposition,
				PairID:    mv.PairID,
				Dimension: mv.Dimension,
				From:      vecPtr(mv.From.ToArray()),
				To:        vecPtr(mv.To.ToArray()),
				Swapped:   mv.Swapped,
			})
			r.logger.Printf("portal %s@%s repositioned %v -> %v", mv.PairID, mv.Dimension, mv.From.ToArray(), mv.To.ToArray())
		}
		if rep.TravelEnded {
			r.emit(Event{
				Tick:      nowTick,
				Type:      EventTravelEnd,
				PairID:    p.PairID(),
				Dimension: p.Geometry().LocalDimension,
				Swapped:   rep.Swapped,
			})
			r.logger.Printf("portal %s traveling ended (%d frame blocks)", p.Key(), rep.Swapped)
		}
	}
}

func floorVec(v mgl64.Vec3) [3]int {
	return [3]int{int(math.Floor(v[0])), int(math.Floor(v[1])), int(math.Floor(v[2]))}
}
