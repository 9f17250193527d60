package realtime

import (
	"context"
	"encoding/json"

	"chat-server/internal/models"
	"chat-server/pkg/logger"
)

type handlerFunc func(ctx context.Context, s *Session, data json.RawMessage)

// Dispatcher routes inbound client events to their handlers. Unknown events
// and malformed payloads are logged and dropped; the connection stays up.
type Dispatcher struct {
	handlers map[string]handlerFunc
}

func NewDispatcher(rooms *RoomManager, relay *Relay) *Dispatcher {
	return &Dispatcher{
		handlers: map[string]handlerFunc{
			models.EventJoinChannel: func(ctx context.Context, s *Session, data json.RawMessage) {
				roomID, ok := decodeRoomID(s, data)
				if ok {
					rooms.Join(ctx, s, roomID)
				}
			},
			models.EventLeaveChannel: func(ctx context.Context, s *Session, data json.RawMessage) {
				roomID, ok := decodeRoomID(s, data)
				if ok {
					rooms.Leave(s, roomID)
				}
			},
			models.EventSendMessage: func(ctx context.Context, s *Session, data json.RawMessage) {
				var payload models.SendMessagePayload
				if err := json.Unmarshal(data, &payload); err != nil {
					logger.Warn("bad send_message payload from session %s: %v", s.id, err)
					return
				}
				relay.Submit(ctx, s, payload.ChannelID, payload.Content)
			},
			models.EventTyping: func(ctx context.Context, s *Session, data json.RawMessage) {
				roomID, ok := decodeRoomID(s, data)
				if ok {
					relay.NotifyTyping(s, roomID)
				}
			},
			models.EventStopTyping: func(ctx context.Context, s *Session, data json.RawMessage) {
				roomID, ok := decodeRoomID(s, data)
				if ok {
					relay.NotifyStopTyping(s, roomID)
				}
			},
		},
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, s *Session, event models.ClientEvent) {
	handler, ok := d.handlers[event.Event]
	if !ok {
		logger.Debug("unknown event %q from session %s", event.Event, s.id)
		return
	}
	handler(ctx, s, event.Data)
}

func decodeRoomID(s *Session, data json.RawMessage) (string, bool) {
	var roomID string
	if err := json.Unmarshal(data, &roomID); err != nil || roomID == "" {
		logger.Warn("bad room id payload from session %s", s.id)
		return "", false
	}
	return roomID, true
}
