package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	Tick    uint64 `json:"tick"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	TickRate       int      `json:"tick_rate_hz"`
	VerticalMargin int      `json:"vertical_margin"`
	Blocks         []string `json:"blocks"`

	Dimensions []DimensionV1 `json:"dimensions"`
	Portals    []PortalV1    `json:"portals"`
	Players    []PlayerV1    `json:"players"`
}

type DimensionV1 struct {
	ID        string    `json:"id"`
	MinY      int       `json:"min_y"`
	MaxY      int       `json:"max_y"`
	Unbounded bool      `json:"unbounded,omitempty"`
	Chunks    []ChunkV1 `json:"chunks"`
}

// ChunkV1 is a 16x16x16 cube; Blocks is indexed x fastest, then z, then y.
type ChunkV1 struct {
	CX     int      `json:"cx"`
	CY     int      `json:"cy"`
	CZ     int      `json:"cz"`
	Blocks []uint16 `json:"blocks"`
}

// PortalV1 is one end of a portal pair.
type PortalV1 struct {
	PairID string   `json:"pair_id"`
	Plane  string   `json:"plane"`
	Blocks [][3]int `json:"blocks"`

	LocalDimension  string `json:"local_dimension"`
	LocalPos        [3]int `json:"local_pos"`
	LocalRotation   int    `json:"local_rotation"`
	RemoteDimension string `json:"remote_dimension"`
	RemotePos       [3]int `json:"remote_pos"`
	RemoteRotation  int    `json:"remote_rotation"`

	IsTailEnd bool `json:"is_tail_end"`
	// OriginalTailPos is absent in records written before it was tracked.
	OriginalTailPos *[3]int `json:"original_tail_pos,omitempty"`

	TravelingInProgress bool `json:"traveling_in_progress,omitempty"`
	TravelTimer         int  `json:"travel_timer,omitempty"`

	ObstructionCheckRemaining  int `json:"obstruction_check_remaining,omitempty"`
	PreferredPosCheckRemaining int `json:"preferred_pos_check_remaining,omitempty"`
}

type PlayerV1 struct {
	ID        string     `json:"id"`
	Dimension string     `json:"dimension"`
	Pos       [3]float64 `json:"pos"`
	Yaw       float64    `json:"yaw"`
	Pitch     float64    `json:"pitch"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := encode(f, snap); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func encode(f *os.File, snap SnapshotV1) error {
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// ReadHeader decodes only the leading JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()
	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// The gob body repeats the header.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("snapshot version %d not supported", snap.Header.Version)
	}
	return snap, nil
}

// Path returns the file name used for a snapshot taken at tick.
func Path(dir string, tick uint64) string {
	return filepath.Join(dir, "snapshots", fmt.Sprintf("%020d.snap.zst", tick))
}

// Latest returns the newest snapshot under dir, or "" when there is none.
func Latest(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "snapshots", "*.snap.zst"))
	if err != nil {
		return "", err
	}
	latest := ""
	for _, m := range matches {
		if m > latest {
			latest = m
		}
	}
	return latest, nil
}
