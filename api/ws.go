package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinic-assistant/logger"
	"github.com/clinicdesk/clinic-assistant/types"
	"github.com/clinicdesk/clinic-assistant/websocket"
)

// wsConn holds the cancel handle for a connection's in-flight turn. One
// generation at a time per connection; "stop" cancels it.
type wsConn struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

func (c *wsConn) setCancel(fn context.CancelFunc) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return false
	}
	c.cancel = fn
	return true
}

func (c *wsConn) clearCancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancel = nil
}

func (c *wsConn) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.For("api").Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	state := &wsConn{}
	websocket.Serve(s.hub, conn,
		func(c *websocket.Client, data []byte) { s.handleWSMessage(c, state, data) },
		func(*websocket.Client) { state.stop() },
	)
}

func (s *Server) handleWSMessage(c *websocket.Client, state *wsConn, data []byte) {
	var msg types.WSClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		sendWS(c, types.WSServerMessage{Type: types.WSTypeError, Data: "invalid message"})
		return
	}

	switch msg.Type {
	case types.WSTypeChat:
		if msg.Message == "" {
			sendWS(c, types.WSServerMessage{Type: types.WSTypeError, Data: "message is required"})
			return
		}
		sessionID := msg.SessionID
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		ctx, cancel := context.WithCancel(context.Background())
		if !state.setCancel(cancel) {
			cancel()
			sendWS(c, types.WSServerMessage{Type: types.WSTypeError, SessionID: sessionID, Data: "a reply is already in progress"})
			return
		}
		go s.runTurn(ctx, c, state, sessionID, msg.Message)

	case types.WSTypeStop:
		state.stop()

	default:
		sendWS(c, types.WSServerMessage{Type: types.WSTypeError, Data: "unknown message type"})
	}
}

// runTurn streams one turn back to the client: zero or more chunk frames,
// then a done frame carrying the intent and full reply.
func (s *Server) runTurn(ctx context.Context, c *websocket.Client, state *wsConn, sessionID, text string) {
	defer state.clearCancel()

	resp := s.engine.StreamTurn(ctx, sessionID, text, func(chunk string) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		sendWS(c, types.WSServerMessage{Type: types.WSTypeChunk, SessionID: sessionID, Data: chunk})
		return nil
	})

	sendWS(c, types.WSServerMessage{
		Type:      types.WSTypeDone,
		SessionID: sessionID,
		Intent:    resp.Intent,
		Data:      resp.Reply,
	})
}

func sendWS(c *websocket.Client, msg types.WSServerMessage) {
	frame, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.Send(frame)
}
