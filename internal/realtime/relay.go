package realtime

import (
	"context"
	"strings"
	"time"

	"chat-server/internal/database"
	"chat-server/internal/models"
	"chat-server/pkg/logger"
)

// Relay persists inbound messages and fans them out to room subscribers.
// Delivery is at-most-once: a failed persist means the message is never
// broadcast, and nothing is retried.
type Relay struct {
	gw             *Gateway
	messages       database.MessageRepository
	users          database.UserRepository
	persistTimeout time.Duration
}

func NewRelay(gw *Gateway, messages database.MessageRepository, users database.UserRepository, persistTimeout time.Duration) *Relay {
	return &Relay{
		gw:             gw,
		messages:       messages,
		users:          users,
		persistTimeout: persistTimeout,
	}
}

// Submit persists the message, attaches the sender's profile, and broadcasts
// it to every subscriber of the room at broadcast time, the sender included.
// A persist failure is reported only to the originating session via
// message_failed; other subscribers never see the message.
func (r *Relay) Submit(ctx context.Context, s *Session, channelID, content string) {
	if strings.TrimSpace(content) == "" {
		r.gw.SendToOne(s.id, models.EventMessageFailed, models.MessageFailedPayload{
			ChannelID: channelID,
			Reason:    "message content is empty",
		})
		return
	}

	persistCtx, cancel := context.WithTimeout(ctx, r.persistTimeout)
	defer cancel()

	msg, err := r.messages.CreateMessage(persistCtx, channelID, s.user.ID, content)
	if err != nil {
		logger.Warn("failed to persist message from %s to %s: %v", s.user.ID, channelID, err)
		r.gw.SendToOne(s.id, models.EventMessageFailed, models.MessageFailedPayload{
			ChannelID: channelID,
			Reason:    "failed to save message",
		})
		return
	}

	// Denormalize the sender profile into the event so subscribers never
	// have to look it up. Fall back to the session's cached identity if
	// the store read fails or times out.
	lookupCtx, cancelLookup := context.WithTimeout(ctx, r.persistTimeout)
	defer cancelLookup()

	profile := s.user.Profile()
	if sender, err := r.users.GetUserByID(lookupCtx, s.user.ID); err == nil {
		profile = sender.Profile()
	} else {
		logger.Warn("error resolving sender profile for %s: %v", s.user.ID, err)
	}
	msg.Sender = &profile

	r.gw.SendToRoom(channelID, models.EventReceiveMessage, msg, "")
}

// NotifyTyping fires a transient typing event to everyone in the room except
// the sender. Nothing is persisted, debounced, or rate limited.
func (r *Relay) NotifyTyping(s *Session, channelID string) {
	r.gw.SendToRoom(channelID, models.EventTyping, models.TypingPayload{
		UserID:    s.user.ID,
		Username:  s.user.Username,
		ChannelID: channelID,
	}, s.id)
}

// NotifyStopTyping is the counterpart of NotifyTyping. The username is
// omitted from the payload, matching the typing indicator wire format.
func (r *Relay) NotifyStopTyping(s *Session, channelID string) {
	r.gw.SendToRoom(channelID, models.EventStopTyping, models.TypingPayload{
		UserID:    s.user.ID,
		ChannelID: channelID,
	}, s.id)
}
