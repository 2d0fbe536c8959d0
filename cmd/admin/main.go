// Command admin inspects a portald data directory and drives the server's
// loopback admin endpoints.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"voxelportals.ai/internal/persistence/archive"
	"voxelportals.ai/internal/persistence/snapshot"
)

const usage = `usage: admin <command> [flags]

  snapshots [-data DIR]                 list snapshot files with their ticks
  archives  [-data DIR]                 list archived snapshots
  db        [-data DIR|-db PATH] QUERY  query the index (snapshots|latest|history|repositions|teleports)
  state     [-url URL]                  print the running world state
  snapshot  [-url URL]                  ask the server to write a snapshot now
  load      [-url URL] DIMENSION        load a dimension
  unload    [-url URL] DIMENSION        unload a dimension
  history   [-url URL] [-type T] PAIR   print a pair's recorded events`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	args := os.Args[2:]
	switch os.Args[1] {
	case "snapshots":
		snapshotsCmd(args)
	case "archives":
		archivesCmd(args)
	case "db":
		dbCmd(args)
	case "state":
		stateCmd(args)
	case "snapshot":
		snapshotCmd(args)
	case "load":
		dimensionCmd("load", args)
	case "unload":
		dimensionCmd("unload", args)
	case "history":
		historyCmd(args)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}

type snapshotFile struct {
	Tick uint64 `json:"tick"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}

func snapshotsCmd(args []string) {
	fs := flag.NewFlagSet("snapshots", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	files, err := listSnapshots(*dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list:", err)
		os.Exit(1)
	}
	for _, f := range files {
		printJSON(f)
	}
}

// listSnapshots reads the header of every snapshot under dataDir, oldest
// first. Files with an unreadable header are skipped.
func listSnapshots(dataDir string) ([]snapshotFile, error) {
	matches, err := filepath.Glob(filepath.Join(dataDir, "snapshots", "*.snap.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	out := make([]snapshotFile, 0, len(matches))
	for _, m := range matches {
		h, err := snapshot.ReadHeader(m)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skip %s: %v\n", filepath.Base(m), err)
			continue
		}
		f := snapshotFile{Tick: h.Tick, Path: m}
		if st, err := os.Stat(m); err == nil {
			f.Size = st.Size()
		}
		out = append(out, f)
	}
	return out, nil
}

func archivesCmd(args []string) {
	fs := flag.NewFlagSet("archives", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	metas, err := listArchives(*dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list:", err)
		os.Exit(1)
	}
	for _, m := range metas {
		printJSON(m)
	}
}

func listArchives(dataDir string) ([]archive.Meta, error) {
	ents, err := os.ReadDir(filepath.Join(dataDir, "archives"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []archive.Meta
	for _, e := range ents {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "tick_") {
			continue
		}
		m, err := archive.ReadMeta(filepath.Join(dataDir, "archives", e.Name()))
		if err != nil {
			fmt.Fprintf(os.Stderr, "skip %s: %v\n", e.Name(), err)
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tick < out[j].Tick })
	return out, nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
