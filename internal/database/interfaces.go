package database

import (
	"context"

	"chat-server/internal/models"
)

type UserRepository interface {
	CreateUser(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

type ChannelRepository interface {
	CreateChannel(ctx context.Context, req *models.CreateChannelRequest, creatorID string) (*models.Channel, error)
	GetChannelByID(ctx context.Context, id string) (*models.Channel, error)
	GetChannelByName(ctx context.Context, name string) (*models.Channel, error)
	ListChannelsForUser(ctx context.Context, userID string) ([]*models.Channel, error)
	UpdateChannel(ctx context.Context, id string, name, description *string) (*models.Channel, error)
	DeleteChannel(ctx context.Context, id string) error
	AddMember(ctx context.Context, channelID, userID string) error
	RemoveMember(ctx context.Context, channelID, userID string) error
	IsMember(ctx context.Context, channelID, userID string) (bool, error)
}

type MessageRepository interface {
	CreateMessage(ctx context.Context, channelID, senderID, content string) (*models.Message, error)
	ListRecentMessages(ctx context.Context, channelID string, limit int) ([]*models.Message, error)
}

type Database interface {
	UserRepository
	ChannelRepository
	MessageRepository
	Close() error
}
