package models

import "encoding/json"

// Inbound event names (client -> server).
const (
	EventJoinChannel  = "join_channel"
	EventLeaveChannel = "leave_channel"
	EventSendMessage  = "send_message"
	EventTyping       = "typing"
	EventStopTyping   = "stop_typing"
)

// Outbound event names (server -> client).
const (
	EventOnlineUsers    = "online_users"
	EventReceiveMessage = "receive_message"
	EventMessageFailed  = "message_failed"
)

// ClientEvent is one inbound frame. Data is left raw so the dispatcher can
// decode it per event name.
type ClientEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ServerEvent is one outbound frame.
type ServerEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type SendMessagePayload struct {
	ChannelID string `json:"channelId"`
	Content   string `json:"content"`
}

type TypingPayload struct {
	UserID    string `json:"userId"`
	Username  string `json:"username,omitempty"`
	ChannelID string `json:"channelId"`
}

type MessageFailedPayload struct {
	ChannelID string `json:"channelId"`
	Reason    string `json:"reason"`
}
