package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// World routing/state.
	ErrWorldBusy        = "E_WORLD_BUSY"
	ErrUnknownDimension = "E_UNKNOWN_DIMENSION"
	ErrConflict         = "E_CONFLICT"
	ErrInternal         = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:  {},
	ErrWorldBusy:        {},
	ErrUnknownDimension: {},
	ErrConflict:         {},
	ErrInternal:         {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
