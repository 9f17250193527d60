package models

import "time"

type Message struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channelId"`
	SenderID  string    `json:"senderId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	// Sender is the denormalized sender profile, attached at broadcast or
	// read time so receivers never have to look it up.
	Sender *Profile `json:"sender,omitempty"`
}
