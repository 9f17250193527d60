package realtime

import (
	"context"
	"encoding/json"
	"time"

	"chat-server/internal/models"
	"chat-server/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Session is the in-memory state for one connected, authenticated client.
// It is created only after the credential verifier accepts the handshake and
// destroyed exactly once, on transport closure. A reconnecting client always
// gets a fresh Session.
type Session struct {
	id         string
	user       models.User
	conn       *websocket.Conn
	send       chan []byte
	gw         *Gateway
	dispatcher *Dispatcher

	// rooms the session is currently subscribed to. Owned by the gateway
	// run loop, like the gateway's own maps.
	rooms map[string]struct{}
}

func NewSession(gw *Gateway, dispatcher *Dispatcher, conn *websocket.Conn, user *models.User) *Session {
	return &Session{
		id:         uuid.NewString(),
		user:       *user,
		conn:       conn,
		send:       make(chan []byte, 256),
		gw:         gw,
		dispatcher: dispatcher,
		rooms:      make(map[string]struct{}),
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) User() models.User {
	return s.user
}

// ReadPump reads inbound frames and hands them to the dispatcher until the
// connection dies, then tears the session down.
func (s *Session) ReadPump() {
	defer func() {
		s.gw.Unregister(s)
		s.conn.Close()
	}()

	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket error: %v", err)
			}
			break
		}

		var event models.ClientEvent
		if err := json.Unmarshal(frame, &event); err != nil {
			logger.Warn("malformed frame from session %s: %v", s.id, err)
			continue
		}

		s.dispatcher.Dispatch(context.Background(), s, event)
	}
}

// WritePump drains the send channel onto the wire and keeps the connection
// alive with pings. A write failure ends the pump; the read side notices the
// dead connection and runs the normal disconnect path.
func (s *Session) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				logger.Error("Write error: %v", err)
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
