// Package api defines the wire types shared between the HTTP surface,
// the data channel, and the browser client.
package api

// SessionDescription mirrors the browser's RTCSessionDescription.
type SessionDescription struct {
	Sdp  string `json:"sdp"`
	Type string `json:"type"`
}

// OfferResponse is the answer to a negotiation request.
type OfferResponse struct {
	Sdp       string `json:"sdp"`
	Type      string `json:"type"`
	SessionId string `json:"sessionId"`
}

type StatusResponse struct {
	IsLoading bool `json:"is_loading"`
}

// TurnResponse carries short-lived TURN credentials in the REST
// format most relay servers accept.
type TurnResponse struct {
	Username   string   `json:"username"`
	Credential string   `json:"credential"`
	TTL        int      `json:"ttl"`
	TurnUrls   []string `json:"turn_urls"`
	StunUrls   []string `json:"stun_urls"`
}

// Control message kinds on the data channel.
const (
	Heartbeat = "heartbeat"
	KeyDown   = "keydown"
	KeyUp     = "keyup"
	MouseMove = "mousemove"
	MouseDown = "mousedown"
	MouseUp   = "mouseup"
)

// ControlMessage is a single event from the browser. Fields besides
// Type are set depending on the kind.
type ControlMessage struct {
	Type      string `json:"type"`
	Key       int    `json:"key"`
	MovementX int    `json:"movementX"`
	MovementY int    `json:"movementY"`
	Button    int    `json:"button"`
}

// SchemaResponse pairs the params schema with rendering hints.
type SchemaResponse struct {
	Schema   any `json:"schema"`
	UISchema any `json:"ui_schema,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
