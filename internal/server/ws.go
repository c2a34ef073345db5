package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/joss/taskd/internal/errorsx"
	"github.com/joss/taskd/internal/logging"
)

// handleAgentWS runs one agent request per text message, in order.
func (s *Server) handleAgentWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxBodyBytes)

	s.metrics.WSOpened()
	defer s.metrics.WSClosed()

	ctx := r.Context()
	log := s.log.WithContext(ctx)
	log.Info("ws_connected", map[string]any{"remote": r.RemoteAddr})

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("ws_read_ended", map[string]any{"reason": err.Error()})
			}
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}

		msgCtx := logging.WithRequestID(ctx, "")
		var reply any
		var req agentRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			reply = errorBody{Error: errorsx.Wrap(err, errorsx.ReasonValidation).Error()}
		} else if resp, err := s.runAgent(msgCtx, req); err != nil {
			reply = errorBody{Error: err.Error()}
		} else {
			reply = resp
		}

		if err := conn.WriteJSON(reply); err != nil {
			log.Warn("ws_write_failed", nil, err)
			break
		}
	}
	log.Info("ws_closed", nil)
}
