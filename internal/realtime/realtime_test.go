package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"chat-server/internal/database"
	"chat-server/internal/models"

	"github.com/google/uuid"
)

// fakeStore is an in-memory stand-in for the persistence collaborator. It
// implements the repository interfaces the realtime components consume.
type fakeStore struct {
	mu          sync.Mutex
	channels    map[string]*models.Channel
	members     map[string]map[string]bool
	users       map[string]*models.User
	messages    []*models.Message
	failCreate  bool
	hangLookups bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		channels: make(map[string]*models.Channel),
		members:  make(map[string]map[string]bool),
		users:    make(map[string]*models.User),
	}
}

func (f *fakeStore) addChannel(id string, channelType models.ChannelType, memberIDs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels[id] = &models.Channel{ID: id, Name: id, Type: channelType}
	f.members[id] = make(map[string]bool)
	for _, userID := range memberIDs {
		f.members[id][userID] = true
	}
}

func (f *fakeStore) addUser(u *models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = u
}

// stall blocks until ctx expires when hangLookups is set, simulating an
// unresponsive store. Reports whether it stalled.
func (f *fakeStore) stall(ctx context.Context) bool {
	f.mu.Lock()
	hang := f.hangLookups
	f.mu.Unlock()
	if hang {
		<-ctx.Done()
	}
	return hang
}

func (f *fakeStore) GetChannelByID(ctx context.Context, id string) (*models.Channel, error) {
	if f.stall(ctx) {
		return nil, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	channel, ok := f.channels[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	copied := *channel
	return &copied, nil
}

func (f *fakeStore) IsMember(ctx context.Context, channelID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.members[channelID][userID], nil
}

func (f *fakeStore) CreateMessage(ctx context.Context, channelID, senderID, content string) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return nil, errors.New("storage unavailable")
	}
	msg := &models.Message{
		ID:        uuid.NewString(),
		ChannelID: channelID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	f.messages = append(f.messages, msg)
	copied := *msg
	return &copied, nil
}

func (f *fakeStore) messageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func (f *fakeStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if f.stall(ctx) {
		return nil, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

// Unused repository methods, present to satisfy the interfaces.
func (f *fakeStore) CreateChannel(context.Context, *models.CreateChannelRequest, string) (*models.Channel, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeStore) GetChannelByName(context.Context, string) (*models.Channel, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeStore) ListChannelsForUser(context.Context, string) ([]*models.Channel, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeStore) UpdateChannel(context.Context, string, *string, *string) (*models.Channel, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeStore) DeleteChannel(context.Context, string) error {
	return errors.New("not implemented")
}
func (f *fakeStore) AddMember(context.Context, string, string) error {
	return errors.New("not implemented")
}
func (f *fakeStore) RemoveMember(context.Context, string, string) error {
	return errors.New("not implemented")
}
func (f *fakeStore) ListRecentMessages(context.Context, string, int) ([]*models.Message, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeStore) CreateUser(context.Context, *models.RegisterRequest) (*models.User, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeStore) GetUserByEmail(context.Context, string) (*models.User, error) {
	return nil, errors.New("not implemented")
}

var _ database.ChannelRepository = (*fakeStore)(nil)
var _ database.MessageRepository = (*fakeStore)(nil)
var _ database.UserRepository = (*fakeStore)(nil)

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	gw := NewGateway()
	go gw.Run()
	t.Cleanup(gw.Close)
	return gw
}

func testUser(n int) *models.User {
	return &models.User{
		ID:       fmt.Sprintf("user-%d", n),
		Username: fmt.Sprintf("user%d", n),
		Email:    fmt.Sprintf("user%d@example.com", n),
	}
}

// connect registers a fresh session for the user. No network connection is
// involved; tests read frames straight off the session's send channel.
func connect(t *testing.T, gw *Gateway, user *models.User) *Session {
	t.Helper()
	s := NewSession(gw, nil, nil, user)
	gw.Register(s)
	return s
}

// rawEvent mirrors models.ServerEvent with the payload left undecoded so
// tests can unmarshal it into the expected type.
type rawEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// recvEvent waits for the next outbound frame on the session.
func recvEvent(t *testing.T, s *Session) rawEvent {
	t.Helper()
	select {
	case frame, ok := <-s.send:
		if !ok {
			t.Fatal("session send channel closed while waiting for event")
		}
		var event rawEvent
		if err := json.Unmarshal(frame, &event); err != nil {
			t.Fatalf("malformed outbound frame: %v", err)
		}
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return rawEvent{}
	}
}

// recvEventNamed skips frames until one with the given event name arrives.
// Useful when presence snapshots are interleaved with the event under test.
func recvEventNamed(t *testing.T, s *Session, name string) rawEvent {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case frame, ok := <-s.send:
			if !ok {
				t.Fatalf("session send channel closed while waiting for %q", name)
			}
			var event rawEvent
			if err := json.Unmarshal(frame, &event); err != nil {
				t.Fatalf("malformed outbound frame: %v", err)
			}
			if event.Event == name {
				return event
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q event", name)
		}
	}
}

// sync waits until the gateway's run loop has processed everything enqueued
// before the call.
func (g *Gateway) sync() {
	g.OnlineUsers()
}

// drain discards any frames already buffered for the session.
func drain(s *Session) {
	for {
		select {
		case _, ok := <-s.send:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// expectNoEvent asserts that no frame with the given name is pending.
func expectNoEvent(t *testing.T, s *Session, name string) {
	t.Helper()
	for {
		select {
		case frame, ok := <-s.send:
			if !ok {
				return
			}
			var event rawEvent
			if err := json.Unmarshal(frame, &event); err != nil {
				t.Fatalf("malformed outbound frame: %v", err)
			}
			if event.Event == name {
				t.Fatalf("unexpected %q event: %s", name, event.Data)
			}
		default:
			return
		}
	}
}
