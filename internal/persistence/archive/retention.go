// Package archive keeps the snapshot directory bounded and copies selected
// snapshots into a long-lived archive.
package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"voxelportals.ai/internal/persistence/snapshot"
)

type Meta struct {
	Tick       uint64   `json:"tick"`
	Snapshot   string   `json:"snapshot"`
	CreatedAt  string   `json:"created_at"`
	Dimensions []string `json:"dimensions"`
	Portals    int      `json:"portals"`
	Players    int      `json:"players"`
}

// Policy decides what happens to snapshots after they are written. Keep is
// the number of regular snapshots left in place; zero keeps everything.
// Every snapshot whose tick is a multiple of ArchiveEveryTicks is copied to
// <dir>/archives/tick_<N>/ first.
type Policy struct {
	Dir               string
	Keep              int
	ArchiveEveryTicks uint64
}

// Apply archives snapPath if due and prunes older snapshots. It returns the
// archived copy, or "" when the snapshot was not archived.
func (p Policy) Apply(snapPath string, snap snapshot.SnapshotV1) (archived string, err error) {
	if p.ArchiveEveryTicks > 0 && snap.Header.Tick > 0 && snap.Header.Tick%p.ArchiveEveryTicks == 0 {
		archived, err = archiveSnapshot(p.Dir, snapPath, snap)
		if err != nil {
			return "", err
		}
	}
	if _, err := p.Prune(); err != nil {
		return archived, err
	}
	return archived, nil
}

// Prune removes all but the newest Keep snapshots and returns the removed paths.
func (p Policy) Prune() ([]string, error) {
	if p.Keep <= 0 {
		return nil, nil
	}
	matches, err := filepath.Glob(filepath.Join(p.Dir, "snapshots", "*.snap.zst"))
	if err != nil {
		return nil, err
	}
	if len(matches) <= p.Keep {
		return nil, nil
	}
	// Names are zero-padded ticks, so lexical order is tick order.
	sort.Strings(matches)
	var removed []string
	for _, m := range matches[:len(matches)-p.Keep] {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("prune %s: %w", filepath.Base(m), err)
		}
		removed = append(removed, m)
	}
	return removed, nil
}

func archiveSnapshot(dir, snapPath string, snap snapshot.SnapshotV1) (string, error) {
	archiveDir := filepath.Join(dir, "archives", fmt.Sprintf("tick_%d", snap.Header.Tick))
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", err
	}
	dst := filepath.Join(archiveDir, filepath.Base(snapPath))
	if err := copyFile(snapPath, dst); err != nil {
		return "", err
	}

	meta := Meta{
		Tick:      snap.Header.Tick,
		Snapshot:  filepath.Base(dst),
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
		Portals:   len(snap.Portals),
		Players:   len(snap.Players),
	}
	for _, d := range snap.Dimensions {
		meta.Dimensions = append(meta.Dimensions, d.ID)
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return dst, err
	}
	return dst, os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644)
}

// ReadMeta loads the metadata written next to an archived snapshot.
func ReadMeta(archiveDir string) (Meta, error) {
	var m Meta
	b, err := os.ReadFile(filepath.Join(archiveDir, "meta.json"))
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(b, &m)
	return m, err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
