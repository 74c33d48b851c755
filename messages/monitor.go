package messages

import "encoding/json"

// Error codes
const (
	ErrCodeInvalidMessage = "INVALID_MESSAGE"
)

// Message types
const (
	TypeTurn   = "turn"
	TypeStatus = "status"
	TypeError  = "error"
)

// ClientMessage is a message from a monitor client
type ClientMessage struct {
	Type    string          `json:"type"` // "control"
	Payload json.RawMessage `json:"payload"`
}

// ControlPayload contains monitor control commands
type ControlPayload struct {
	Action string `json:"action"`           // "ping", "subscribe"
	CallID string `json:"callId,omitempty"` // subscribe filter; empty means every call
}

// ServerMessage is a message sent to monitor clients
type ServerMessage struct {
	Type    string      `json:"type"` // "turn", "status", "error"
	CallID  string      `json:"callId,omitempty"`
	Payload interface{} `json:"payload"`
}

// StatusPayload contains status updates
type StatusPayload struct {
	Status  string `json:"status"` // "connected", "pong", "subscribed"
	Message string `json:"message,omitempty"`
}

// ErrorPayload contains error information
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewTurnMessage wraps a turn event
func NewTurnMessage(callID string, event interface{}) *ServerMessage {
	return &ServerMessage{
		Type:    TypeTurn,
		CallID:  callID,
		Payload: event,
	}
}

// NewStatusMessage creates a status message
func NewStatusMessage(status, message string) *ServerMessage {
	return &ServerMessage{
		Type: TypeStatus,
		Payload: StatusPayload{
			Status:  status,
			Message: message,
		},
	}
}

// NewErrorMessage creates an error message
func NewErrorMessage(code, message string) *ServerMessage {
	return &ServerMessage{
		Type: TypeError,
		Payload: ErrorPayload{
			Code:    code,
			Message: message,
		},
	}
}
