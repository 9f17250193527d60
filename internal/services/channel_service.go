package services

import (
	"context"
	"errors"
	"fmt"

	"chat-server/internal/database"
	"chat-server/internal/models"
)

var (
	ErrChannelNotFound = errors.New("channel not found")
	ErrChannelExists   = errors.New("channel already exists")
	ErrNameRequired    = errors.New("channel name is required")
	ErrPrivateChannel  = errors.New("cannot join private channel directly")
	ErrAlreadyMember   = errors.New("user already in channel")
	ErrNotMember       = errors.New("not a member of this channel")
	ErrNotCreator      = errors.New("only the channel creator can delete this channel")
)

type ChannelService struct {
	db database.Database
}

func NewChannelService(db database.Database) *ChannelService {
	return &ChannelService{db: db}
}

// ListChannels returns every channel visible to the user: all public ones
// plus private ones the user is a member of.
func (s *ChannelService) ListChannels(ctx context.Context, userID string) ([]*models.Channel, error) {
	return s.db.ListChannelsForUser(ctx, userID)
}

func (s *ChannelService) CreateChannel(ctx context.Context, req *models.CreateChannelRequest, creatorID string) (*models.Channel, error) {
	if req.Name == "" {
		return nil, ErrNameRequired
	}
	if req.Type == "" {
		req.Type = models.ChannelPublic
	}
	if req.Type != models.ChannelPublic && req.Type != models.ChannelPrivate {
		return nil, fmt.Errorf("invalid channel type %q", req.Type)
	}

	if _, err := s.db.GetChannelByName(ctx, req.Name); err == nil {
		return nil, ErrChannelExists
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	return s.db.CreateChannel(ctx, req, creatorID)
}

func (s *ChannelService) GetChannel(ctx context.Context, channelID string) (*models.Channel, error) {
	channel, err := s.db.GetChannelByID(ctx, channelID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrChannelNotFound
	}
	return channel, err
}

// JoinChannel adds the user to the durable member list. Private channels
// cannot be joined directly; their members are set at creation.
func (s *ChannelService) JoinChannel(ctx context.Context, channelID, userID string) (*models.Channel, error) {
	channel, err := s.GetChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}

	if channel.Type == models.ChannelPrivate {
		return nil, ErrPrivateChannel
	}

	isMember, err := s.db.IsMember(ctx, channelID, userID)
	if err != nil {
		return nil, err
	}
	if isMember {
		return nil, ErrAlreadyMember
	}

	if err := s.db.AddMember(ctx, channelID, userID); err != nil {
		return nil, err
	}

	return s.GetChannel(ctx, channelID)
}

// LeaveChannel removes the user from the member list. Leaving a channel the
// user is not a member of is a no-op.
func (s *ChannelService) LeaveChannel(ctx context.Context, channelID, userID string) (*models.Channel, error) {
	if _, err := s.GetChannel(ctx, channelID); err != nil {
		return nil, err
	}

	if err := s.db.RemoveMember(ctx, channelID, userID); err != nil {
		return nil, err
	}

	return s.GetChannel(ctx, channelID)
}

// UpdateChannel lets any member change the name or description.
func (s *ChannelService) UpdateChannel(ctx context.Context, channelID, userID string, req *models.UpdateChannelRequest) (*models.Channel, error) {
	if _, err := s.GetChannel(ctx, channelID); err != nil {
		return nil, err
	}

	isMember, err := s.db.IsMember(ctx, channelID, userID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, ErrNotMember
	}

	var name *string
	if req.Name != "" {
		name = &req.Name
	}

	return s.db.UpdateChannel(ctx, channelID, name, req.Description)
}

// DeleteChannel is creator-only.
func (s *ChannelService) DeleteChannel(ctx context.Context, channelID, userID string) error {
	channel, err := s.GetChannel(ctx, channelID)
	if err != nil {
		return err
	}

	if channel.CreatedBy != userID {
		return ErrNotCreator
	}

	return s.db.DeleteChannel(ctx, channelID)
}

// GetMessages returns the channel's recent messages, oldest first, with the
// sender profile denormalized. Access follows visibility: public channels
// are readable by anyone authenticated, private ones by members only.
func (s *ChannelService) GetMessages(ctx context.Context, channelID, userID string, limit int) ([]*models.Message, error) {
	channel, err := s.GetChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}

	if channel.Type == models.ChannelPrivate {
		isMember, err := s.db.IsMember(ctx, channelID, userID)
		if err != nil {
			return nil, err
		}
		if !isMember {
			return nil, ErrNotMember
		}
	}

	return s.db.ListRecentMessages(ctx, channelID, limit)
}
