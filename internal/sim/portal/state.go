package portal

import "voxelportals.ai/internal/sim/geom"

// State is the persisted form of an Instance.
type State struct {
	PairID    string
	Geometry  Geometry
	IsTailEnd bool
	// OriginalTailPos is nil for data written before it was tracked.
	OriginalTailPos *geom.Vec3i

	TravelingInProgress bool
	TravelTimer         int

	ObstructionCheckRemaining  int
	PreferredPosCheckRemaining int
}

func (p *Instance) State() State {
	otp := p.originalTailPos
	return State{
		PairID:                     p.pairID,
		Geometry:                   p.geometry,
		IsTailEnd:                  p.isTailEnd,
		OriginalTailPos:            &otp,
		TravelingInProgress:        p.travelingInProgress,
		TravelTimer:                p.travelTimer,
		ObstructionCheckRemaining:  p.obstructionCheck.Remaining(),
		PreferredPosCheckRemaining: p.preferredPosCheck.Remaining(),
	}
}

// Restore rebuilds an Instance from persisted state. A missing original tail
// position is backfilled from the local position of a tail end, or from the
// remote position of a head end.
func Restore(st State, cfg Config, prof Profiler) *Instance {
	p := New(st.PairID, st.Geometry, st.IsTailEnd, cfg, prof)
	if st.OriginalTailPos != nil {
		p.originalTailPos = *st.OriginalTailPos
	}
	// Fake frame blocks were saved with the world; only the flag comes back.
	p.travelingInProgress = st.TravelingInProgress
	if p.travelingInProgress {
		p.travelTimer = st.TravelTimer
	}
	if st.ObstructionCheckRemaining > 0 {
		p.obstructionCheck.Restore(st.ObstructionCheckRemaining)
	}
	if st.PreferredPosCheckRemaining > 0 {
		p.preferredPosCheck.Restore(st.PreferredPosCheckRemaining)
	}
	return p
}
