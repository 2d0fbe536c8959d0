package observerproto

// Version is the observer protocol version.
const Version = "1.0"

// Client -> Server. First message on the observer WS connection, and can be re-sent to update settings.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// EveryTicks throttles PORTALS frames; 0 or 1 means every tick.
	EveryTicks int `json:"every_ticks,omitempty"`
	// Dimensions restricts the portals and players reported. Empty means all.
	Dimensions []string `json:"dimensions,omitempty"`
}

// HTTP response for GET /v1/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string          `json:"protocol_version"`
	Tick            uint64          `json:"tick"`
	TickRateHz      int             `json:"tick_rate_hz"`
	BlockPalette    []string        `json:"block_palette"`
	Dimensions      []DimensionInfo `json:"dimensions"`
	Pairs           []string        `json:"pairs"`
}

type DimensionInfo struct {
	ID        string `json:"id"`
	MinY      int    `json:"min_y"`
	MaxY      int    `json:"max_y"`
	Unbounded bool   `json:"unbounded,omitempty"`
	Loaded    bool   `json:"loaded"`
}

// Server -> Client. Sent every EveryTicks ticks.
type PortalsMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`

	Portals []PortalState `json:"portals"`
	Players []PlayerState `json:"players"`
	// Events holds everything emitted since the previous frame for this session.
	Events []EventInfo `json:"events,omitempty"`
}

type PortalState struct {
	PairID          string `json:"pair_id"`
	Dimension       string `json:"dimension"`
	RemoteDimension string `json:"remote_dimension"`
	Plane           string `json:"plane"`
	Pos             [3]int `json:"pos"`
	Rotation        int    `json:"rotation"`
	IsTailEnd       bool   `json:"is_tail_end"`
	OriginalTailPos [3]int `json:"original_tail_pos"`

	TravelingInProgress bool `json:"traveling_in_progress"`
	TravelTimer         int  `json:"travel_timer"`
	Eligible            bool `json:"eligible"`
}

type PlayerState struct {
	ID        string     `json:"id"`
	Dimension string     `json:"dimension"`
	Pos       [3]float64 `json:"pos"`
	Yaw       float64    `json:"yaw"`
}

type EventInfo struct {
	Tick        uint64  `json:"tick"`
	Type        string  `json:"type"`
	PairID      string  `json:"pair_id"`
	Dimension   string  `json:"dimension"`
	From        *[3]int `json:"from,omitempty"`
	To          *[3]int `json:"to,omitempty"`
	PlayerID    string  `json:"player_id,omitempty"`
	ToDimension string  `json:"to_dimension,omitempty"`
	Swapped     int     `json:"swapped,omitempty"`
}
