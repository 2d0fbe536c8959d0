package portal

// Config parameterizes a portal pair. One-way pairs have a head end that can
// be entered and a tail end that only appears while someone is arriving.
type Config struct {
	OneWay bool

	// FrameBlock is placed around a tail end while traveling is in progress.
	FrameBlock uint16
	Air        uint16

	ObstructionCheckTicks  int
	PreferredPosCheckTicks int
	TravelGraceTicks       int
	// NearbyDistSq is the squared distance from the portal centre within which
	// an observer keeps traveling in progress.
	NearbyDistSq float64

	SearchRadius int
	// GrowMargin is how far obstruction checks extend along the portal normal.
	GrowMargin float64
}

func DefaultConfig() Config {
	c := Config{OneWay: true}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.ObstructionCheckTicks <= 0 {
		c.ObstructionCheckTicks = 10 * 20
	}
	if c.PreferredPosCheckTicks <= 0 {
		c.PreferredPosCheckTicks = 60 * 20
	}
	if c.TravelGraceTicks <= 0 {
		c.TravelGraceTicks = 20
	}
	if c.NearbyDistSq <= 0 {
		c.NearbyDistSq = 100
	}
	if c.SearchRadius <= 0 {
		c.SearchRadius = 10
	}
	if c.GrowMargin <= 0 {
		c.GrowMargin = 2
	}
}
