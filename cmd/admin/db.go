package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"voxelportals.ai/internal/persistence/indexdb"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	pairID := fs.String("pair", "", "pair id (history, repositions)")
	typ := fs.String("type", "", "event type filter (history)")
	playerID := fs.String("player", "", "player id (teleports)")
	_ = fs.Parse(args)

	q := "snapshots"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "portals.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer idx.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	requirePair := func() string {
		id := strings.TrimSpace(*pairID)
		if id == "" {
			fmt.Fprintln(os.Stderr, "missing -pair")
			os.Exit(2)
		}
		return id
	}

	switch q {
	case "snapshots":
		recs, err := idx.Snapshots(ctx, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, r := range recs {
			printJSON(r)
		}

	case "latest":
		tick, p, ok, err := idx.LatestSnapshot(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		if !ok {
			fmt.Fprintln(os.Stderr, "no snapshots recorded")
			os.Exit(2)
		}
		printJSON(map[string]any{"tick": tick, "path": p})

	case "history":
		events, err := idx.PairHistory(ctx, requirePair(), strings.TrimSpace(*typ), *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, e := range events {
			printJSON(e)
		}

	case "repositions":
		events, err := idx.RepositionHistory(ctx, requirePair(), *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, e := range events {
			printJSON(e)
		}

	case "teleports":
		id := strings.TrimSpace(*playerID)
		if id == "" {
			fmt.Fprintln(os.Stderr, "missing -player")
			os.Exit(2)
		}
		n, err := idx.TeleportCount(ctx, id)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		printJSON(map[string]any{"player_id": id, "teleports": n})

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data|-db PATH] [-limit N] snapshots|latest|history|repositions|teleports")
		os.Exit(2)
	}
}
