package main

import (
	"fmt"
	"sort"

	"voxelportals.ai/internal/persistence/snapshot"
	"voxelportals.ai/internal/sim/world"
)

type endKey struct {
	PairID    string
	Dimension string
}

func (k endKey) String() string { return k.PairID + "@" + k.Dimension }

// positions indexes the local position of every portal end in a snapshot.
func positions(snap snapshot.SnapshotV1) map[endKey][3]int {
	out := make(map[endKey][3]int, len(snap.Portals))
	for _, p := range snap.Portals {
		out[endKey{p.PairID, p.LocalDimension}] = p.LocalPos
	}
	return out
}

// window keeps the events in [from, to). A zero to means no upper bound.
func window(events []world.Event, from, to uint64, pairID string) []world.Event {
	var out []world.Event
	for _, e := range events {
		if e.Tick < from || (to != 0 && e.Tick >= to) {
			continue
		}
		if pairID != "" && e.PairID != pairID {
			continue
		}
		out = append(out, e)
	}
	return out
}

// foldRepositions applies REPOSITION events on top of the snapshot positions.
// Each move must start where the previous one left the end.
func foldRepositions(start map[endKey][3]int, events []world.Event) (map[endKey][3]int, int, error) {
	cur := make(map[endKey][3]int, len(start))
	for k, v := range start {
		cur[k] = v
	}
	moves := 0
	var lastTick uint64
	for i, e := range events {
		if i > 0 && e.Tick < lastTick {
			return cur, moves, fmt.Errorf("event %d: tick %d before %d", i, e.Tick, lastTick)
		}
		lastTick = e.Tick
		if e.Type != world.EventReposition {
			continue
		}
		if e.From == nil || e.To == nil {
			return cur, moves, fmt.Errorf("tick %d: reposition of %s@%s without positions", e.Tick, e.PairID, e.Dimension)
		}
		k := endKey{e.PairID, e.Dimension}
		pos, ok := cur[k]
		if !ok {
			return cur, moves, fmt.Errorf("tick %d: reposition of unknown end %s", e.Tick, k)
		}
		if pos != *e.From {
			return cur, moves, fmt.Errorf("tick %d: %s moved from %v but was at %v", e.Tick, k, *e.From, pos)
		}
		cur[k] = *e.To
		moves++
	}
	return cur, moves, nil
}

// diffPositions lists ends whose folded position disagrees with want.
func diffPositions(got, want map[endKey][3]int) []string {
	var out []string
	for k, w := range want {
		g, ok := got[k]
		switch {
		case !ok:
			out = append(out, fmt.Sprintf("%s: missing, want %v", k, w))
		case g != w:
			out = append(out, fmt.Sprintf("%s: got %v want %v", k, g, w))
		}
	}
	sort.Strings(out)
	return out
}

type summary struct {
	ByType map[string]int
	ByPair map[string]int
}

func summarize(events []world.Event) summary {
	s := summary{ByType: map[string]int{}, ByPair: map[string]int{}}
	for _, e := range events {
		s.ByType[e.Type]++
		s.ByPair[e.PairID]++
	}
	return s
}

func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
