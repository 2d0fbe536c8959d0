package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	PlayerID        string `json:"player_id"`
	// Dimension and Pos are optional; the dimension spawn is used otherwise.
	Dimension string      `json:"dimension,omitempty"`
	Pos       *[3]float64 `json:"pos,omitempty"`
	Yaw       float64     `json:"yaw,omitempty"`
	// EveryTicks is the state frame cadence, 1 by default.
	EveryTicks int `json:"every_ticks,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	SessionID       string     `json:"session_id"`
	PlayerID        string     `json:"player_id"`
	Dimension       string     `json:"dimension"`
	Pos             [3]float64 `json:"pos"`
	TickRateHz      int        `json:"tick_rate_hz"`
}

// MOVE (client -> server) sets where the player is now.
type MoveMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Dimension       string     `json:"dimension"`
	Pos             [3]float64 `json:"pos"`
	Yaw             float64    `json:"yaw"`
	Pitch           float64    `json:"pitch,omitempty"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

func NewError(code, message string) ErrorMsg {
	return ErrorMsg{Type: TypeError, ProtocolVersion: Version, Code: code, Message: message}
}
