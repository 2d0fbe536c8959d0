// Command replay checks a portal event log against snapshots and can rebuild
// the sqlite index from it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"voxelportals.ai/internal/persistence/indexdb"
	persistlog "voxelportals.ai/internal/persistence/log"
	"voxelportals.ai/internal/persistence/snapshot"
	"voxelportals.ai/internal/sim/world"
)

func main() {
	var (
		snapPath  = flag.String("snapshot", "", "path to .snap.zst")
		dataDir   = flag.String("data", "", "data dir containing events/portal-*.jsonl.zst (optional)")
		against   = flag.String("against", "", "later snapshot the event log must lead to (optional)")
		pairID    = flag.String("pair", "", "only consider this pair (optional)")
		toTick    = flag.Uint64("to_tick", 0, "ignore events at or after this tick (optional)")
		indexPath = flag.String("index", "", "rebuild a sqlite index at this path (optional)")
	)
	flag.Parse()

	if *snapPath == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot")
		os.Exit(2)
	}

	snap, err := snapshot.ReadSnapshot(*snapPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	fmt.Printf("snapshot v%d tick=%d dimensions=%d portals=%d players=%d\n",
		snap.Header.Version, snap.Header.Tick, len(snap.Dimensions), len(snap.Portals), len(snap.Players))

	if *dataDir == "" {
		return
	}

	all, err := persistlog.ReadEvents(*dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read events:", err)
		os.Exit(1)
	}

	var later *snapshot.SnapshotV1
	end := *toTick
	if *against != "" {
		s, err := snapshot.ReadSnapshot(*against)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read -against snapshot:", err)
			os.Exit(1)
		}
		if s.Header.Tick < snap.Header.Tick {
			fmt.Fprintf(os.Stderr, "-against tick %d is before snapshot tick %d\n", s.Header.Tick, snap.Header.Tick)
			os.Exit(2)
		}
		later = &s
		end = s.Header.Tick
	}

	events := window(all, snap.Header.Tick, end, *pairID)
	sum := summarize(events)
	fmt.Printf("events=%d (of %d logged)\n", len(events), len(all))
	for _, k := range sortedKeys(sum.ByType) {
		fmt.Printf("  type %-18s %d\n", k, sum.ByType[k])
	}
	for _, k := range sortedKeys(sum.ByPair) {
		fmt.Printf("  pair %-18s %d\n", k, sum.ByPair[k])
	}

	start := positions(snap)
	folded, moves, err := foldRepositions(start, events)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	if later != nil {
		want := positions(*later)
		if *pairID != "" {
			for k := range want {
				if k.PairID != *pairID {
					delete(want, k)
				}
			}
		}
		if diffs := diffPositions(folded, want); len(diffs) > 0 {
			for _, d := range diffs {
				fmt.Fprintln(os.Stderr, "mismatch:", d)
			}
			os.Exit(1)
		}
		fmt.Printf("replay ok: %d repositions lead from tick %d to tick %d\n", moves, snap.Header.Tick, later.Header.Tick)
	} else {
		fmt.Printf("replay ok: %d repositions applied\n", moves)
	}

	if *indexPath != "" {
		if err := rebuildIndex(*indexPath, *snapPath, snap, events); err != nil {
			fmt.Fprintln(os.Stderr, "index:", err)
			os.Exit(1)
		}
		fmt.Printf("index rebuilt at %s\n", *indexPath)
	}
}

func rebuildIndex(path, snapPath string, snap snapshot.SnapshotV1, events []world.Event) error {
	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	idx.RecordSnapshot(snapPath, snap)
	for i, e := range events {
		if err := idx.WriteEvent(e); err != nil {
			idx.Close()
			return err
		}
		// The writer drops instead of blocking; drain it in batches.
		if (i+1)%4096 == 0 {
			if err := idx.Sync(ctx); err != nil {
				idx.Close()
				return err
			}
		}
	}
	if err := idx.Sync(ctx); err != nil {
		idx.Close()
		return err
	}
	if n := idx.Dropped(); n > 0 {
		idx.Close()
		return fmt.Errorf("%d events dropped", n)
	}
	return idx.Close()
}
