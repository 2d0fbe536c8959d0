package world

import "voxelportals.ai/internal/observerproto"

// Portal event types.
const (
	EventReposition  = "PORTAL_REPOSITION"
	EventTeleport    = "PORTAL_TELEPORT"
	EventTravelStart = "PORTAL_TRAVEL_START"
	EventTravelEnd   = "PORTAL_TRAVEL_END"
)

// Event is one observable change to a portal pair. Dimension is the end the
// event happened at.
type Event struct {
	Tick      uint64 `json:"tick"`
	Type      string `json:"type"`
	PairID    string `json:"pair_id"`
	Dimension string `json:"dimension"`

	From *[3]int `json:"from,omitempty"`
	To   *[3]int `json:"to,omitempty"`

	PlayerID    string `json:"player_id,omitempty"`
	ToDimension string `json:"to_dimension,omitempty"`
	Swapped     int    `json:"swapped,omitempty"`
}

// EventSink receives every event in emission order.
type EventSink interface {
	WriteEvent(e Event) error
}

func (e Event) info() observerproto.EventInfo {
	return observerproto.EventInfo{
		Tick:        e.Tick,
		Type:        e.Type,
		PairID:      e.PairID,
		Dimension:   e.Dimension,
		From:        e.From,
		To:          e.To,
		PlayerID:    e.PlayerID,
		ToDimension: e.ToDimension,
		Swapped:     e.Swapped,
	}
}

func vecPtr(a [3]int) *[3]int { return &a }
