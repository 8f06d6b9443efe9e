package gateway

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/clinicdesk/campaign-gateway/internal/logger"
	"github.com/clinicdesk/campaign-gateway/internal/model"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// frame is the named-event envelope sent to the dashboard.
type frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Session is one authenticated WebSocket connection. ClinicID comes from
// the API key; UserID is optional and narrows routing to events addressed
// to that user (clinic broadcasts always match).
type Session struct {
	hub      *Hub
	conn     *websocket.Conn
	clinicID int64
	userID   *int64

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// Attach registers a new session for an upgraded connection and starts its
// pumps. The caller hands over ownership of conn.
func (h *Hub) Attach(conn *websocket.Conn, clinicID int64, userID *int64) *Session {
	s := &Session{
		hub:      h,
		conn:     conn,
		clinicID: clinicID,
		userID:   userID,
		send:     make(chan []byte, h.sessionBuffer),
		done:     make(chan struct{}),
	}
	h.register(s)
	go s.writePump()
	go s.readPump()
	return s
}

func (s *Session) matches(n model.Notification) bool {
	if s.clinicID != n.ClinicID {
		return false
	}
	if n.UserID == nil || s.userID == nil {
		return true
	}
	return *s.userID == *n.UserID
}

// Notify queues the event for delivery. A session whose buffer is full is
// stuck; it gets dropped so fan-out to others is never blocked.
func (s *Session) Notify(n model.Notification) {
	b, err := json.Marshal(frame{Event: "notification", Data: n})
	if err != nil {
		return
	}
	select {
	case <-s.done:
	case s.send <- b:
	default:
		logger.Log.Warn("gateway: dropping stuck session", zap.Int64("clinic", s.clinicID))
		s.close()
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		s.hub.unregister(s)
		close(s.done)
	})
}

func (s *Session) writePump() {
	ping := time.NewTicker(s.hub.pingInterval)
	defer func() {
		ping.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case <-s.done:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.hub.writeTimeout))
			_ = s.conn.WriteMessage(websocket.CloseMessage, nil)
			return
		case b := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.hub.writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				s.close()
				return
			}
		case <-ping.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.hub.writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close()
				return
			}
		}
	}
}

// readPump drains client frames (the dashboard only sends pongs and close)
// and tears the session down when the peer goes away.
func (s *Session) readPump() {
	s.conn.SetReadLimit(4096)
	deadline := func() time.Time { return time.Now().Add(2 * s.hub.pingInterval) }
	_ = s.conn.SetReadDeadline(deadline())
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(deadline())
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			s.close()
			return
		}
		_ = s.conn.SetReadDeadline(deadline())
	}
}
