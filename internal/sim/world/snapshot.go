package world

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"voxelportals.ai/internal/persistence/snapshot"
	"voxelportals.ai/internal/sim/geom"
	"voxelportals.ai/internal/sim/portal"
	"voxelportals.ai/internal/sim/world/terrain/store"
)

// ExportSnapshot captures the world between ticks. The header tick is the
// next tick to run.
func (r *Runtime) ExportSnapshot() snapshot.SnapshotV1 {
	return r.exportSnapshot(r.tick.Load())
}

func (r *Runtime) exportSnapshot(tick uint64) snapshot.SnapshotV1 {
	s := snapshot.SnapshotV1{
		Header:         snapshot.Header{Version: snapshot.Version, Tick: tick},
		TickRate:       r.tun.TickRateHz,
		VerticalMargin: r.tun.VerticalMargin,
		Blocks:         append([]string(nil), r.tun.Blocks...),
	}

	var dims []*Dimension
	for _, d := range r.dims {
		dims = append(dims, d)
	}
	for _, d := range r.unloaded {
		dims = append(dims, d)
	}
	sort.Slice(dims, func(i, j int) bool { return dims[i].id < dims[j].id })
	for _, d := range dims {
		cs := d.chunks
		s.Dimensions = append(s.Dimensions, snapshot.DimensionV1{
			ID:        d.id,
			MinY:      cs.Gen.MinY,
			MaxY:      cs.Gen.MaxY,
			Unbounded: d.unbounded,
			Chunks:    store.ExportLoadedChunks(cs.Chunks, cs.LoadedChunkKeys()),
		})
	}

	var states []portal.State
	for _, p := range r.registry.All() {
		states = append(states, p.State())
	}
	for _, parked := range r.parked {
		states = append(states, parked...)
	}
	sort.Slice(states, func(i, j int) bool {
		a, b := states[i], states[j]
		if a.PairID != b.PairID {
			return a.PairID < b.PairID
		}
		return a.Geometry.LocalDimension < b.Geometry.LocalDimension
	})
	for _, st := range states {
		s.Portals = append(s.Portals, PortalToV1(st))
	}

	for _, p := range r.sortedPlayers() {
		s.Players = append(s.Players, snapshot.PlayerV1{
			ID:        p.id,
			Dimension: p.dim,
			Pos:       [3]float64{p.pos[0], p.pos[1], p.pos[2]},
			Yaw:       p.yaw,
			Pitch:     p.pitch,
		})
	}
	return s
}

// ImportSnapshot replaces the whole world state. Dimensions must be known to
// the tuning; portals are restored into loaded dimensions.
func (r *Runtime) ImportSnapshot(s snapshot.SnapshotV1) error {
	if s.Header.Version != snapshot.Version {
		return fmt.Errorf("unsupported snapshot version: %d", s.Header.Version)
	}
	if len(s.Blocks) > 0 {
		for i, b := range s.Blocks {
			if i >= len(r.tun.Blocks) || r.tun.Blocks[i] != b {
				return fmt.Errorf("snapshot block palette differs from tuning at %d (%s)", i, b)
			}
		}
	}

	dims := map[string]*Dimension{}
	for _, dv := range s.Dimensions {
		spec, ok := r.tun.DimensionSpecByID(dv.ID)
		if !ok {
			return fmt.Errorf("snapshot dimension %s not configured", dv.ID)
		}
		cs, err := store.ImportChunks(r.genFor(dv.ID, dv.MinY, dv.MaxY), dv.Chunks)
		if err != nil {
			return fmt.Errorf("dimension %s: %w", dv.ID, err)
		}
		dims[dv.ID] = r.newDimension(dv.ID, dv.Unbounded || spec.Unbounded, cs)
	}
	for _, spec := range r.tun.Dimensions {
		if dims[spec.ID] == nil {
			dims[spec.ID] = r.newDimension(spec.ID, spec.Unbounded, store.NewChunkStore(r.genFor(spec.ID, spec.MinY, spec.MaxY)))
		}
	}

	reg := portal.NewRegistry()
	for i, pv := range s.Portals {
		st, err := PortalFromV1(pv)
		if err != nil {
			return fmt.Errorf("portal %d: %w", i, err)
		}
		if dims[st.Geometry.LocalDimension] == nil {
			return fmt.Errorf("portal %s: unknown dimension %s", st.PairID, st.Geometry.LocalDimension)
		}
		if err := reg.Add(portal.Restore(st, r.pcfg, r.prof)); err != nil {
			return err
		}
	}

	players := map[string]*Player{}
	for _, pv := range s.Players {
		if dims[pv.Dimension] == nil {
			return fmt.Errorf("player %s: unknown dimension %s", pv.ID, pv.Dimension)
		}
		pos := mgl64.Vec3{pv.Pos[0], pv.Pos[1], pv.Pos[2]}
		players[pv.ID] = &Player{id: pv.ID, dim: pv.Dimension, pos: pos, prev: pos, yaw: pv.Yaw, pitch: pv.Pitch, rt: r}
	}

	r.dims = dims
	r.unloaded = map[string]*Dimension{}
	r.parked = map[string][]portal.State{}
	r.registry = reg
	r.players = players
	r.tick.Store(s.Header.Tick)
	r.refreshMeta()
	return nil
}

// PortalToV1 converts portal state into its persisted record.
func PortalToV1(st portal.State) snapshot.PortalV1 {
	g := st.Geometry
	blocks := make([][3]int, len(g.Blocks))
	for i, b := range g.Blocks {
		blocks[i] = b.ToArray()
	}
	pv := snapshot.PortalV1{
		PairID:                     st.PairID,
		Plane:                      g.Plane.String(),
		Blocks:                     blocks,
		LocalDimension:             g.LocalDimension,
		LocalPos:                   g.LocalPosition.ToArray(),
		LocalRotation:              g.LocalRotation,
		RemoteDimension:            g.RemoteDimension,
		RemotePos:                  g.RemotePosition.ToArray(),
		RemoteRotation:             g.RemoteRotation,
		IsTailEnd:                  st.IsTailEnd,
		TravelingInProgress:        st.TravelingInProgress,
		TravelTimer:                st.TravelTimer,
		ObstructionCheckRemaining:  st.ObstructionCheckRemaining,
		PreferredPosCheckRemaining: st.PreferredPosCheckRemaining,
	}
	if st.OriginalTailPos != nil {
		pv.OriginalTailPos = vecPtr(st.OriginalTailPos.ToArray())
	}
	return pv
}

// PortalFromV1 parses a persisted record. Records without an original tail
// position are returned with a nil OriginalTailPos for Restore to backfill.
func PortalFromV1(pv snapshot.PortalV1) (portal.State, error) {
	var plane portal.Plane
	switch pv.Plane {
	case "vertical", "":
		plane = portal.Vertical
	case "horizontal":
		plane = portal.Horizontal
	default:
		return portal.State{}, fmt.Errorf("unknown plane %q", pv.Plane)
	}
	if pv.PairID == "" {
		return portal.State{}, fmt.Errorf("empty pair id")
	}
	if pv.LocalDimension == pv.RemoteDimension {
		return portal.State{}, fmt.Errorf("pair %s: both ends in %s", pv.PairID, pv.LocalDimension)
	}
	blocks := make([]geom.Vec3i, len(pv.Blocks))
	for i, b := range pv.Blocks {
		blocks[i] = geom.FromArray(b)
	}
	st := portal.State{
		PairID: pv.PairID,
		Geometry: portal.NewGeometry(plane, blocks,
			pv.LocalDimension, geom.FromArray(pv.LocalPos), pv.LocalRotation,
			pv.RemoteDimension, geom.FromArray(pv.RemotePos), pv.RemoteRotation),
		IsTailEnd:                  pv.IsTailEnd,
		TravelingInProgress:        pv.TravelingInProgress,
		TravelTimer:                pv.TravelTimer,
		ObstructionCheckRemaining:  pv.ObstructionCheckRemaining,
		PreferredPosCheckRemaining: pv.PreferredPosCheckRemaining,
	}
	if pv.OriginalTailPos != nil {
		otp := geom.FromArray(*pv.OriginalTailPos)
		st.OriginalTailPos = &otp
	}
	return st, nil
}
