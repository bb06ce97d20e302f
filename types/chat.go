package types

// Turn is one conversation entry, role "user" or "assistant".
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /api/chat.
// SessionID may be empty; the server mints one.
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// ChatResponse is the reply to a chat turn.
type ChatResponse struct {
	SessionID string `json:"session_id"`
	Intent    string `json:"intent"`
	Reply     string `json:"reply"`
}

// Event is a UI notification emitted by the dispatcher alongside a reply,
// broadcast to every connected websocket client.
type Event struct {
	Kind string            `json:"kind"` // "appointment_created" | "navigate_stats" | "report_requested"
	Data map[string]string `json:"data,omitempty"`
}

// Websocket message types.
const (
	WSTypeChat  = "chat"
	WSTypeStop  = "stop"
	WSTypeChunk = "chunk"
	WSTypeDone  = "done"
	WSTypeEvent = "event"
	WSTypeError = "error"
)

// WSClientMessage is what a browser sends over /ws.
type WSClientMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

// WSServerMessage is what the server pushes over /ws.
type WSServerMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Intent    string `json:"intent,omitempty"`
	Data      string `json:"data,omitempty"`
	Event     *Event `json:"event,omitempty"`
}
