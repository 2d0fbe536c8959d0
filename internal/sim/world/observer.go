package world

import (
	"encoding/json"

	"voxelportals.ai/internal/observerproto"
)

const maxPendingObserverEvents = 256

type ObserverJoinRequest struct {
	SessionID string
	// Out receives encoded PORTALS frames; the runtime closes it on leave.
	Out chan []byte
	Sub observerproto.SubscribeMsg
}

type ObserverSubscribeRequest struct {
	SessionID string
	Sub       observerproto.SubscribeMsg
}

type observerClient struct {
	id    string
	out   chan []byte
	every uint64
	dims  map[string]bool

	pending []observerproto.EventInfo
}

func (c *observerClient) apply(sub observerproto.SubscribeMsg) {
	c.every = 1
	if sub.EveryTicks > 1 {
		c.every = uint64(sub.EveryTicks)
	}
	c.dims = nil
	if len(sub.Dimensions) > 0 {
		c.dims = map[string]bool{}
		for _, d := range sub.Dimensions {
			c.dims[d] = true
		}
	}
}

func (c *observerClient) wants(dim string) bool {
	return c.dims == nil || c.dims[dim]
}

func (r *Runtime) handleObserverJoin(req ObserverJoinRequest) {
	if req.SessionID == "" || req.Out == nil {
		return
	}
	// Replace existing session id if any.
	if old := r.observers[req.SessionID]; old != nil {
		close(old.out)
	}
	c := &observerClient{id: req.SessionID, out: req.Out}
	c.apply(req.Sub)
	r.observers[req.SessionID] = c
}

func (r *Runtime) handleObserverSubscribe(req ObserverSubscribeRequest) {
	if c := r.observers[req.SessionID]; c != nil {
		c.apply(req.Sub)
	}
}

func (r *Runtime) handleObserverLeave(sessionID string) {
	c := r.observers[sessionID]
	if c == nil {
		return
	}
	delete(r.observers, sessionID)
	close(c.out)
}

func (r *Runtime) closeObservers() {
	for id, c := range r.observers {
		delete(r.observers, id)
		close(c.out)
	}
}

func (r *Runtime) publishObservers(nowTick uint64) {
	if len(r.observers) == 0 {
		return
	}
	var portals []observerproto.PortalState
	var players []observerproto.PlayerState
	built := false

	for _, c := range r.observers {
		for _, e := range r.tickEvents {
			if !c.wants(e.Dimension) && !c.wants(e.ToDimension) {
				continue
			}
			c.pending = append(c.pending, e.info())
		}
		if n := len(c.pending); n > maxPendingObserverEvents {
			c.pending = append(c.pending[:0], c.pending[n-maxPendingObserverEvents:]...)
		}
		if nowTick%c.every != 0 {
			continue
		}
		if !built {
			portals, players = r.PortalStates(), r.playerStates()
			built = true
		}
		msg := observerproto.PortalsMsg{
			Type:            "PORTALS",
			ProtocolVersion: observerproto.Version,
			Tick:            nowTick,
			Events:          c.pending,
		}
		for _, p := range portals {
			if c.wants(p.Dimension) {
				msg.Portals = append(msg.Portals, p)
			}
		}
		for _, p := range players {
			if c.wants(p.Dimension) {
				msg.Players = append(msg.Players, p)
			}
		}
		b, err := json.Marshal(msg)
		if err != nil {
			r.logger.Printf("observer %s: %v", c.id, err)
			continue
		}
		sendLatest(c.out, b)
		c.pending = nil
	}
}

// PortalStates describes every loaded portal end.
func (r *Runtime) PortalStates() []observerproto.PortalState {
	all := r.registry.All()
	out := make([]observerproto.PortalState, 0, len(all))
	for _, p := range all {
		g := p.Geometry()
		out = append(out, observerproto.PortalState{
			PairID:              p.PairID(),
			Dimension:           g.LocalDimension,
			RemoteDimension:     g.RemoteDimension,
			Plane:               g.Plane.String(),
			Pos:                 g.LocalPosition.ToArray(),
			Rotation:            g.LocalRotation,
			IsTailEnd:           p.IsTailEnd(),
			OriginalTailPos:     p.OriginalTailPos().ToArray(),
			TravelingInProgress: p.TravelingInProgress(),
			TravelTimer:         p.TravelTimer(),
			Eligible:            p.Eligible(),
		})
	}
	return out
}

func (r *Runtime) playerStates() []observerproto.PlayerState {
	out := make([]observerproto.PlayerState, 0, len(r.players))
	for _, p := range r.sortedPlayers() {
		out = append(out, observerproto.PlayerState{
			ID:        p.id,
			Dimension: p.dim,
			Pos:       [3]float64{p.pos[0], p.pos[1], p.pos[2]},
			Yaw:       p.yaw,
		})
	}
	return out
}

// Bootstrap describes the world for observers. It is safe to call while the
// loop runs.
func (r *Runtime) Bootstrap() observerproto.BootstrapResponse {
	r.metaMu.RLock()
	meta := r.meta
	r.metaMu.RUnlock()

	resp := observerproto.BootstrapResponse{
		ProtocolVersion: observerproto.Version,
		Tick:            r.tick.Load(),
		TickRateHz:      r.tun.TickRateHz,
		BlockPalette:    append([]string(nil), r.tun.Blocks...),
		Pairs:           append([]string(nil), meta.pairs...),
	}
	for _, d := range r.tun.Dimensions {
		resp.Dimensions = append(resp.Dimensions, observerproto.DimensionInfo{
			ID:        d.ID,
			MinY:      d.MinY,
			MaxY:      d.MaxY,
			Unbounded: d.Unbounded,
			Loaded:    meta.loaded[d.ID],
		})
	}
	return resp
}
