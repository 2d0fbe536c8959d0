package world

import (
	"context"
	"time"
)

type stepInput struct {
	joins  []JoinRequest
	leaves []string
	moves  []MoveRequest
	blocks []SetBlockRequest
}

func (r *Runtime) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.tun.TickDuration())
	defer ticker.Stop()

	var in stepInput
	var pendingDims []dimensionReq
	var pendingSnaps []snapshotReq

	for {
		select {
		case <-ctx.Done():
			r.closeObservers()
			r.Stop()
			return ctx.Err()
		case <-r.stop:
			r.closeObservers()
			return nil
		case req := <-r.join:
			in.joins = append(in.joins, req)
		case id := <-r.leave:
			in.leaves = append(in.leaves, id)
		case req := <-r.move:
			in.moves = append(in.moves, req)
		case req := <-r.setBlock:
			in.blocks = append(in.blocks, req)
		case req := <-r.dimension:
			pendingDims = append(pendingDims, req)
		case req := <-r.snapshotReq:
			pendingSnaps = append(pendingSnaps, req)
		case req := <-r.observerJoin:
			r.handleObserverJoin(req)
		case req := <-r.observerSub:
			r.handleObserverSubscribe(req)
		case id := <-r.observerLeave:
			r.handleObserverLeave(id)
		case <-ticker.C:
			r.step(in)
			for _, req := range pendingDims {
				var err error
				if req.load {
					err = r.LoadDimension(req.id)
				} else {
					err = r.UnloadDimension(req.id)
				}
				req.resp <- err
			}
			for _, req := range pendingSnaps {
				req.resp <- r.ExportSnapshot()
			}
			in.joins = in.joins[:0]
			in.leaves = in.leaves[:0]
			in.moves = in.moves[:0]
			in.blocks = in.blocks[:0]
			pendingDims = pendingDims[:0]
			pendingSnaps = pendingSnaps[:0]
		}
	}
}

func (r *Runtime) Stop() { r.stopOnce.Do(func() { close(r.stop) }) }

// StepOnce advances the world by a single tick using the same ordering as Run.
// Callers apply moves and joins directly beforehand.
func (r *Runtime) StepOnce() uint64 {
	tick := r.tick.Load()
	r.step(stepInput{})
	return tick
}

func (r *Runtime) step(in stepInput) {
	nowTick := r.tick.Load()
	r.tickEvents = r.tickEvents[:0]

	for _, j := range in.joins {
		err := r.AddPlayer(j)
		if err != nil {
			r.logger.Printf("join %s: %v", j.PlayerID, err)
		}
		if j.Resp != nil {
			select {
			case j.Resp <- err:
			default:
			}
		}
	}
	for _, id := range in.leaves {
		r.RemovePlayer(id)
	}
	for _, mv := range in.moves {
		if err := r.MovePlayer(mv); err != nil {
			r.logger.Printf("move: %v", err)
		}
	}
	for _, b := range in.blocks {
		if err := r.SetBlock(b); err != nil {
			r.logger.Printf("set block: %v", err)
		}
	}

	r.checkTeleports(nowTick)
	r.tickPortals(nowTick)

	for _, p := range r.players {
		p.prev = p.pos
	}

	r.publishObservers(nowTick)
	r.maybeSnapshot(nowTick + 1)
	r.tick.Add(1)
}

func (r *Runtime) emit(e Event) {
	for _, s := range r.sinks {
		if err := s.WriteEvent(e); err != nil {
			r.logger.Printf("event sink: %v", err)
		}
	}
	r.tickEvents = append(r.tickEvents, e)
}

func (r *Runtime) maybeSnapshot(next uint64) {
	every := r.tun.SnapshotEveryTicks
	if r.snapshotSink == nil || every <= 0 || next%uint64(every) != 0 {
		return
	}
	snap := r.exportSnapshot(next)
	select {
	case r.snapshotSink <- snap:
	default:
		r.logger.Printf("snapshot sink busy; skipped snapshot at tick %d", next)
	}
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
