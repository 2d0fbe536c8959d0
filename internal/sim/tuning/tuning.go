package tuning

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"voxelportals.ai/internal/sim/geom"
	"voxelportals.ai/internal/sim/portal"
)

type Tuning struct {
	TickRateHz         int `yaml:"tick_rate_hz"`
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`
	TransitionMs       int `yaml:"transition_ms"`
	MaxViewDepth       int `yaml:"max_view_depth"`
	VerticalMargin     int `yaml:"vertical_margin"`

	// Blocks is the block palette; the index is the block id and 0 is air.
	Blocks []string `yaml:"blocks"`

	Portals Portals `yaml:"portals"`

	DefaultDimension string          `yaml:"default_dimension"`
	Dimensions       []DimensionSpec `yaml:"dimensions"`
	Pairs            []PairSpec      `yaml:"pairs,omitempty"`
}

type Portals struct {
	OneWay                 bool   `yaml:"one_way"`
	FrameBlock             string `yaml:"frame_block"`
	ObstructionCheckTicks  int    `yaml:"obstruction_check_ticks"`
	PreferredPosCheckTicks int    `yaml:"preferred_pos_check_ticks"`
	TravelGraceTicks       int    `yaml:"travel_grace_ticks"`
	NearbyDistSq           int    `yaml:"nearby_dist_sq"`
	SearchRadius           int    `yaml:"search_radius"`
	GrowMargin             int    `yaml:"grow_margin"`
}

type DimensionSpec struct {
	ID        string `yaml:"id"`
	MinY      int    `yaml:"min_y"`
	MaxY      int    `yaml:"max_y"`
	Unbounded bool   `yaml:"unbounded"`
	// Floor fills y in [MinY, FloorY] with FloorBlock when a fresh world is
	// generated. FloorBlock "" leaves the dimension empty.
	FloorY     int        `yaml:"floor_y"`
	FloorBlock string     `yaml:"floor_block"`
	Spawn      [3]float64 `yaml:"spawn"`
}

type PairSpec struct {
	ID     string   `yaml:"id"`
	Plane  string   `yaml:"plane"`
	Blocks [][3]int `yaml:"blocks"`
	Head   EndSpec  `yaml:"head"`
	Tail   EndSpec  `yaml:"tail"`
}

type EndSpec struct {
	Dimension string `yaml:"dimension"`
	Pos       [3]int `yaml:"pos"`
	Rotation  int    `yaml:"rotation"`
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	if strings.TrimSpace(path) == "" {
		t.Normalize()
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz:         20,
		SnapshotEveryTicks: 6000,
		TransitionMs:       10000,
		MaxViewDepth:       3,
		VerticalMargin:     3,
		Blocks:             []string{"AIR", "STONE", "DIRT", "GRASS", "OBSIDIAN", "END_STONE", "NETHERRACK", "PORTAL_FRAME"},
		Portals: Portals{
			OneWay:                 true,
			FrameBlock:             "PORTAL_FRAME",
			ObstructionCheckTicks:  200,
			PreferredPosCheckTicks: 1200,
			TravelGraceTicks:       20,
			NearbyDistSq:           100,
			SearchRadius:           10,
			GrowMargin:             2,
		},
		DefaultDimension: "OVERWORLD",
		Dimensions: []DimensionSpec{
			{ID: "OVERWORLD", MinY: 0, MaxY: 256, FloorY: 63, FloorBlock: "GRASS", Spawn: [3]float64{0.5, 64, 0.5}},
			{ID: "NETHER", MinY: 0, MaxY: 128, FloorY: 31, FloorBlock: "NETHERRACK", Spawn: [3]float64{0.5, 32, 0.5}},
			{ID: "END", MinY: 0, MaxY: 256, Unbounded: true, Spawn: [3]float64{0.5, 64, 0.5}},
		},
	}
}

// Normalize fills zero values with defaults and canonicalizes identifiers.
func (t *Tuning) Normalize() {
	if t == nil {
		return
	}
	d := Defaults()
	if t.TickRateHz <= 0 {
		t.TickRateHz = d.TickRateHz
	}
	if t.TransitionMs <= 0 {
		t.TransitionMs = d.TransitionMs
	}
	if t.MaxViewDepth <= 0 {
		t.MaxViewDepth = d.MaxViewDepth
	}
	if t.VerticalMargin < 0 {
		t.VerticalMargin = 0
	}
	if len(t.Blocks) == 0 {
		t.Blocks = d.Blocks
	}
	for i := range t.Blocks {
		t.Blocks[i] = strings.ToUpper(strings.TrimSpace(t.Blocks[i]))
	}
	p := &t.Portals
	if p.FrameBlock == "" {
		p.FrameBlock = d.Portals.FrameBlock
	}
	p.FrameBlock = strings.ToUpper(strings.TrimSpace(p.FrameBlock))
	if p.ObstructionCheckTicks <= 0 {
		p.ObstructionCheckTicks = d.Portals.ObstructionCheckTicks
	}
	if p.PreferredPosCheckTicks <= 0 {
		p.PreferredPosCheckTicks = d.Portals.PreferredPosCheckTicks
	}
	if p.TravelGraceTicks <= 0 {
		p.TravelGraceTicks = d.Portals.TravelGraceTicks
	}
	if p.NearbyDistSq <= 0 {
		p.NearbyDistSq = d.Portals.NearbyDistSq
	}
	if p.SearchRadius < 0 {
		p.SearchRadius = 0
	}
	if len(t.Dimensions) == 0 {
		t.Dimensions = d.Dimensions
	}
	for i := range t.Dimensions {
		t.Dimensions[i].ID = strings.TrimSpace(t.Dimensions[i].ID)
		t.Dimensions[i].FloorBlock = strings.ToUpper(strings.TrimSpace(t.Dimensions[i].FloorBlock))
	}
	if strings.TrimSpace(t.DefaultDimension) == "" && len(t.Dimensions) > 0 {
		t.DefaultDimension = t.Dimensions[0].ID
	}
	for i := range t.Pairs {
		t.Pairs[i].Plane = strings.ToLower(strings.TrimSpace(t.Pairs[i].Plane))
		if t.Pairs[i].Plane == "" {
			t.Pairs[i].Plane = "vertical"
		}
		if len(t.Pairs[i].Blocks) == 0 {
			t.Pairs[i].Blocks = [][3]int{{0, 0, 0}}
		}
	}
}

func (t Tuning) Validate() error {
	if t.TickRateHz <= 0 {
		return fmt.Errorf("tick_rate_hz must be > 0")
	}
	if t.SnapshotEveryTicks < 0 {
		return fmt.Errorf("snapshot_every_ticks must be >= 0")
	}
	if len(t.Blocks) == 0 || t.Blocks[0] != "AIR" {
		return fmt.Errorf("blocks[0] must be AIR")
	}
	if len(t.Blocks) > 1<<16 {
		return fmt.Errorf("blocks: palette too large (%d)", len(t.Blocks))
	}
	seenBlock := map[string]bool{}
	for i, b := range t.Blocks {
		if b == "" {
			return fmt.Errorf("blocks[%d] must not be empty", i)
		}
		if seenBlock[b] {
			return fmt.Errorf("duplicate block: %s", b)
		}
		seenBlock[b] = true
	}
	if _, ok := t.BlockID(t.Portals.FrameBlock); !ok {
		return fmt.Errorf("portals.frame_block %q not in blocks", t.Portals.FrameBlock)
	}
	if t.Portals.GrowMargin < 0 {
		return fmt.Errorf("portals.grow_margin must be >= 0")
	}

	dims := map[string]DimensionSpec{}
	for _, d := range t.Dimensions {
		if d.ID == "" {
			return fmt.Errorf("dimension id must not be empty")
		}
		if _, dup := dims[d.ID]; dup {
			return fmt.Errorf("duplicate dimension id: %s", d.ID)
		}
		if d.MaxY-d.MinY <= 2*t.VerticalMargin {
			return fmt.Errorf("dimension %s: height %d leaves no room inside vertical_margin %d", d.ID, d.MaxY-d.MinY, t.VerticalMargin)
		}
		if d.FloorBlock != "" {
			if _, ok := t.BlockID(d.FloorBlock); !ok {
				return fmt.Errorf("dimension %s floor_block %q not in blocks", d.ID, d.FloorBlock)
			}
		}
		dims[d.ID] = d
	}
	if _, ok := dims[t.DefaultDimension]; !ok {
		return fmt.Errorf("default_dimension %q not found in dimensions", t.DefaultDimension)
	}

	pairs := map[string]bool{}
	for i, p := range t.Pairs {
		if strings.TrimSpace(p.ID) == "" {
			return fmt.Errorf("pairs[%d] id must not be empty", i)
		}
		if pairs[p.ID] {
			return fmt.Errorf("duplicate pair id: %s", p.ID)
		}
		pairs[p.ID] = true
		if _, err := parsePlane(p.Plane); err != nil {
			return fmt.Errorf("pair %s: %w", p.ID, err)
		}
		for _, end := range []EndSpec{p.Head, p.Tail} {
			if _, ok := dims[end.Dimension]; !ok {
				return fmt.Errorf("pair %s dimension %q not found", p.ID, end.Dimension)
			}
		}
		if p.Head.Dimension == p.Tail.Dimension {
			return fmt.Errorf("pair %s must link two different dimensions", p.ID)
		}
	}
	return nil
}

// BlockID resolves a palette name.
func (t Tuning) BlockID(name string) (uint16, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for i, b := range t.Blocks {
		if b == name {
			return uint16(i), true
		}
	}
	return 0, false
}

func (t Tuning) BlockName(id uint16) string {
	if int(id) < len(t.Blocks) {
		return t.Blocks[id]
	}
	return fmt.Sprintf("BLOCK_%d", id)
}

func (t Tuning) DimensionSpecByID(id string) (DimensionSpec, bool) {
	for _, d := range t.Dimensions {
		if d.ID == id {
			return d, true
		}
	}
	return DimensionSpec{}, false
}

func (t Tuning) TickDuration() time.Duration {
	return time.Second / time.Duration(t.TickRateHz)
}

func (t Tuning) TransitionDuration() time.Duration {
	return time.Duration(t.TransitionMs) * time.Millisecond
}

// PortalConfig converts the portal section for the simulation.
func (t Tuning) PortalConfig() portal.Config {
	frame, _ := t.BlockID(t.Portals.FrameBlock)
	return portal.Config{
		OneWay:                 t.Portals.OneWay,
		FrameBlock:             frame,
		Air:                    0,
		ObstructionCheckTicks:  t.Portals.ObstructionCheckTicks,
		PreferredPosCheckTicks: t.Portals.PreferredPosCheckTicks,
		TravelGraceTicks:       t.Portals.TravelGraceTicks,
		NearbyDistSq:           float64(t.Portals.NearbyDistSq),
		SearchRadius:           t.Portals.SearchRadius,
		GrowMargin:             float64(t.Portals.GrowMargin),
	}
}

// Geometry builds the head geometry of a configured pair.
func (p PairSpec) Geometry() (portal.Geometry, error) {
	plane, err := parsePlane(p.Plane)
	if err != nil {
		return portal.Geometry{}, err
	}
	blocks := make([]geom.Vec3i, len(p.Blocks))
	for i, b := range p.Blocks {
		blocks[i] = geom.FromArray(b)
	}
	return portal.NewGeometry(plane, blocks,
		p.Head.Dimension, geom.FromArray(p.Head.Pos), p.Head.Rotation,
		p.Tail.Dimension, geom.FromArray(p.Tail.Pos), p.Tail.Rotation), nil
}

func parsePlane(s string) (portal.Plane, error) {
	switch s {
	case "vertical":
		return portal.Vertical, nil
	case "horizontal":
		return portal.Horizontal, nil
	default:
		return 0, fmt.Errorf("unknown plane %q", s)
	}
}
