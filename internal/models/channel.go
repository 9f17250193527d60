package models

import "time"

type ChannelType string

const (
	ChannelPublic  ChannelType = "public"
	ChannelPrivate ChannelType = "private"
)

type Channel struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Type        ChannelType `json:"type"`
	Members     []Profile   `json:"members"`
	CreatedBy   string      `json:"createdBy,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
}

type CreateChannelRequest struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Type        ChannelType `json:"type"`
	Members     []string    `json:"members"`
}

type UpdateChannelRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}
