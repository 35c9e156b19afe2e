package display

// WebSocket message types. Clients send ping; the server answers pong and
// pushes invalidate when a school's revision moves.
const (
	MsgPing       = "ping"
	MsgPong       = "pong"
	MsgInvalidate = "invalidate"
)

// Close codes returned during the handshake. All three are permanent for the
// connecting client: reconnecting with the same parameters cannot succeed.
const (
	CloseMissingParams = 4400
	CloseUnknownScreen = 4403
	CloseScreenBound   = 4408
	CloseInternalError = 4500
)

// WSMessage is the single envelope used in both directions on the display
// socket. Revision is set only on invalidate messages.
type WSMessage struct {
	Type     string `json:"type"`
	Revision int64  `json:"revision,omitempty"`
}
