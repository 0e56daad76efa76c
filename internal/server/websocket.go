package server

import (
	"net/http"
	"time"
)

// handleSessionWS streams the state of the caller's session. The first
// message is the current state; every later transition follows. The stream
// ends when the client disconnects or the session is closed.
func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	c, header := s.ensureSession(r)

	conn, err := s.upgrader.Upgrade(w, r, header)
	if err != nil {
		s.logger.Warn("upgrading to websocket", "error", err)
		return
	}
	defer conn.Close()

	states, unsubscribe := c.Subscribe(subscriberBuffer)
	defer unsubscribe()

	// The client sends nothing; reading only detects the disconnect.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case st, ok := <-states:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(st); err != nil {
				s.logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-gone:
			return
		case <-s.ctx.Done():
			return
		}
	}
}
