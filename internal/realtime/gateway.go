package realtime

import (
	"encoding/json"

	"chat-server/internal/models"
	"chat-server/pkg/logger"
)

// Gateway is the process-wide broadcast multiplexer. It owns every live
// session, the room subscription index, and the presence registry. All of
// that state is mutated from a single run-loop goroutine; callers enqueue
// operations and never touch the maps directly, so no locking is needed.
//
// Sends are fire and forget: there is no delivery acknowledgment, and a
// session whose buffer is full is force-closed rather than retried.
type Gateway struct {
	ops  chan func()
	done chan struct{}

	// Loop-owned state below. Never touched outside Run.
	sessions map[string]*Session
	rooms    map[string]map[string]*Session
	presence *PresenceRegistry
}

func NewGateway() *Gateway {
	return &Gateway{
		ops:      make(chan func(), 64),
		done:     make(chan struct{}),
		sessions: make(map[string]*Session),
		rooms:    make(map[string]map[string]*Session),
		presence: NewPresenceRegistry(),
	}
}

// Run processes enqueued operations until Close is called. It must run in
// its own goroutine before any session is registered.
func (g *Gateway) Run() {
	for {
		select {
		case op := <-g.ops:
			op()
		case <-g.done:
			for _, s := range g.sessions {
				close(s.send)
			}
			g.sessions = make(map[string]*Session)
			g.rooms = make(map[string]map[string]*Session)
			return
		}
	}
}

// Close stops the run loop and closes every live session's send channel.
func (g *Gateway) Close() {
	select {
	case <-g.done:
	default:
		close(g.done)
	}
}

func (g *Gateway) do(op func()) {
	select {
	case g.ops <- op:
	case <-g.done:
	}
}

// Register adds an authenticated session, marks its user online, and
// announces the new presence snapshot to everyone.
func (g *Gateway) Register(s *Session) {
	g.do(func() {
		g.sessions[s.id] = s
		g.presence.MarkOnline(s.user.Profile())
		g.broadcastPresence()
		logger.Info("user %s connected (session %s)", s.user.ID, s.id)
	})
}

// Unregister destroys a session: every room subscription is dropped, the
// send channel is closed so the write pump exits, the user's presence
// reference is released, and the updated snapshot is announced. Idempotent;
// a session is only torn down once.
func (g *Gateway) Unregister(s *Session) {
	g.do(func() {
		if _, ok := g.sessions[s.id]; !ok {
			return
		}
		g.remove(s)
		close(s.send)
		g.presence.MarkOffline(s.user.ID)
		g.broadcastPresence()
		logger.Info("user %s disconnected (session %s)", s.user.ID, s.id)
	})
}

// Join subscribes the session to a room. Joining twice is a no-op.
func (g *Gateway) Join(s *Session, roomID string) {
	g.do(func() {
		if _, ok := g.sessions[s.id]; !ok {
			return
		}
		subs, ok := g.rooms[roomID]
		if !ok {
			subs = make(map[string]*Session)
			g.rooms[roomID] = subs
		}
		subs[s.id] = s
		s.rooms[roomID] = struct{}{}
		logger.Info("user %s joined channel %s", s.user.ID, roomID)
	})
}

// Leave removes the session's subscription. Leaving a room that was never
// joined is a no-op.
func (g *Gateway) Leave(s *Session, roomID string) {
	g.do(func() {
		subs, ok := g.rooms[roomID]
		if !ok {
			return
		}
		if _, ok := subs[s.id]; !ok {
			return
		}
		delete(subs, s.id)
		if len(subs) == 0 {
			delete(g.rooms, roomID)
		}
		delete(s.rooms, roomID)
		logger.Info("user %s left channel %s", s.user.ID, roomID)
	})
}

// SendToOne delivers an event to a single session, if it is still connected.
func (g *Gateway) SendToOne(sessionID, event string, data any) {
	g.do(func() {
		s, ok := g.sessions[sessionID]
		if !ok {
			return
		}
		frame, err := encodeEvent(event, data)
		if err != nil {
			logger.Error("error marshaling %s event: %v", event, err)
			return
		}
		g.deliver(s, frame)
	})
}

// SendToRoom delivers an event to every current subscriber of the room.
// Subscribers are resolved here, at broadcast time, so sessions that left
// after the caller decided to send receive nothing. excludeSessionID may be
// empty to reach everyone, including the originating session.
func (g *Gateway) SendToRoom(roomID, event string, data any, excludeSessionID string) {
	g.do(func() {
		subs, ok := g.rooms[roomID]
		if !ok {
			return
		}
		frame, err := encodeEvent(event, data)
		if err != nil {
			logger.Error("error marshaling %s event: %v", event, err)
			return
		}
		for id, s := range subs {
			if id == excludeSessionID {
				continue
			}
			g.deliver(s, frame)
		}
	})
}

// SendToAll delivers an event to every connected session regardless of room
// subscriptions.
func (g *Gateway) SendToAll(event string, data any) {
	g.do(func() {
		frame, err := encodeEvent(event, data)
		if err != nil {
			logger.Error("error marshaling %s event: %v", event, err)
			return
		}
		for _, s := range g.sessions {
			g.deliver(s, frame)
		}
	})
}

// OnlineUsers returns the current presence snapshot. Blocks until the run
// loop serves the query, so it also acts as a barrier for prior operations.
func (g *Gateway) OnlineUsers() []models.PresenceEntry {
	reply := make(chan []models.PresenceEntry, 1)
	g.do(func() {
		reply <- g.presence.Snapshot()
	})
	select {
	case snapshot := <-reply:
		return snapshot
	case <-g.done:
		return nil
	}
}

// RoomSubscribers returns the session ids currently subscribed to a room.
func (g *Gateway) RoomSubscribers(roomID string) []string {
	reply := make(chan []string, 1)
	g.do(func() {
		subs := g.rooms[roomID]
		ids := make([]string, 0, len(subs))
		for id := range subs {
			ids = append(ids, id)
		}
		reply <- ids
	})
	select {
	case ids := <-reply:
		return ids
	case <-g.done:
		return nil
	}
}

// deliver hands a frame to one session's write pump. A session that cannot
// keep up loses its connection; the transport layer treats the closed
// channel as a disconnect.
func (g *Gateway) deliver(s *Session, frame []byte) {
	select {
	case s.send <- frame:
	default:
		logger.Warn("dropping slow session %s (user %s)", s.id, s.user.ID)
		g.remove(s)
		close(s.send)
		g.presence.MarkOffline(s.user.ID)
		g.broadcastPresence()
	}
}

// remove unlinks the session from the session table and every room index.
// Loop-only.
func (g *Gateway) remove(s *Session) {
	delete(g.sessions, s.id)
	for roomID := range s.rooms {
		subs := g.rooms[roomID]
		delete(subs, s.id)
		if len(subs) == 0 {
			delete(g.rooms, roomID)
		}
	}
	s.rooms = make(map[string]struct{})
}

// broadcastPresence pushes the full online_users snapshot to every session.
// Loop-only. Called after every presence change, connect and disconnect
// alike, per the global presence feed contract.
func (g *Gateway) broadcastPresence() {
	frame, err := encodeEvent(models.EventOnlineUsers, g.presence.Snapshot())
	if err != nil {
		logger.Error("error marshaling presence snapshot: %v", err)
		return
	}
	for _, s := range g.sessions {
		g.deliver(s, frame)
	}
}

func encodeEvent(event string, data any) ([]byte, error) {
	return json.Marshal(models.ServerEvent{Event: event, Data: data})
}
