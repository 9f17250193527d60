package realtime

import (
	"context"
	"errors"
	"time"

	"chat-server/internal/database"
	"chat-server/internal/models"
	"chat-server/pkg/logger"
)

// RoomManager handles live room subscriptions. Live subscription is
// independent of durable channel membership: leaving a channel's member list
// does not kick open subscriptions, and subscribing does not add the user to
// the member list.
type RoomManager struct {
	gw            *Gateway
	channels      database.ChannelRepository
	lookupTimeout time.Duration
}

func NewRoomManager(gw *Gateway, channels database.ChannelRepository, lookupTimeout time.Duration) *RoomManager {
	return &RoomManager{gw: gw, channels: channels, lookupTimeout: lookupTimeout}
}

// Join subscribes the session to a room. Private channels require durable
// membership, mirroring the HTTP join endpoint's rule; a denied join is
// logged and dropped. Room ids that resolve to no channel are allowed
// through, since rooms are opaque identifiers to this layer. Store lookups
// are bounded so a hung read cannot stall the session goroutine.
func (m *RoomManager) Join(ctx context.Context, s *Session, roomID string) {
	ctx, cancel := context.WithTimeout(ctx, m.lookupTimeout)
	defer cancel()

	channel, err := m.channels.GetChannelByID(ctx, roomID)
	switch {
	case errors.Is(err, database.ErrNotFound):
	case err != nil:
		logger.Error("error looking up channel %s for join: %v", roomID, err)
		return
	case channel.Type == models.ChannelPrivate:
		isMember, err := m.channels.IsMember(ctx, roomID, s.user.ID)
		if err != nil {
			logger.Error("error checking membership of %s in %s: %v", s.user.ID, roomID, err)
			return
		}
		if !isMember {
			logger.Warn("user %s denied subscription to private channel %s", s.user.ID, roomID)
			return
		}
	}

	m.gw.Join(s, roomID)
}

// Leave drops the session's subscription. No membership or existence check;
// leaving a room that was never joined is a no-op.
func (m *RoomManager) Leave(s *Session, roomID string) {
	m.gw.Leave(s, roomID)
}
