package server

import (
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zeusync/runhole/internal/core/observability/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// handleWebSocket admits the client, upgrades the connection and runs one
// session for its lifetime.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Check(r); err != nil {
		s.logger.Warn("Connection rejected", log.String("remote_addr", r.RemoteAddr), log.Error(err))
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	if err := s.admit(); err != nil {
		s.logger.Warn("Session refused", log.String("remote_addr", r.RemoteAddr), log.Error(err))
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.leave()
		s.logger.Warn("WebSocket upgrade failed", log.Error(err))
		return
	}
	conn.SetReadLimit(s.config.Server.MaxMessageSize)

	s.serve(&wsLink{conn: conn, timeout: s.config.Server.WriteTimeout}, r.RemoteAddr, "websocket")
}

type wsLink struct {
	conn    *websocket.Conn
	timeout time.Duration
}

// ReadMessage reports a normal close frame as io.EOF.
func (l *wsLink) ReadMessage() ([]byte, error) {
	_, data, err := l.conn.ReadMessage()
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return nil, io.EOF
	}
	return data, err
}

func (l *wsLink) WriteMessage(data []byte) error {
	if err := l.conn.SetWriteDeadline(time.Now().Add(l.timeout)); err != nil {
		return err
	}
	return l.conn.WriteMessage(websocket.TextMessage, data)
}

func (l *wsLink) Close(reason string, failure error) {
	code := websocket.CloseNormalClosure
	if failure != nil {
		code = websocket.CloseInternalServerErr
	}
	deadline := time.Now().Add(l.timeout)
	_ = l.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	_ = l.conn.Close()
}
