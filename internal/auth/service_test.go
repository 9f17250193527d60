package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"chat-server/internal/config"
	"chat-server/internal/database"
	"chat-server/internal/models"

	"golang.org/x/crypto/bcrypt"
)

// fakeDB implements the user lookups the auth service needs; the embedded
// interface panics on anything else.
type fakeDB struct {
	database.Database
	users map[string]*models.User
}

func newFakeDB() *fakeDB {
	return &fakeDB{users: make(map[string]*models.User)}
}

func (f *fakeDB) CreateUser(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		ID:           fmt.Sprintf("user-%d", len(f.users)+1),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, database.ErrNotFound
}

func (f *fakeDB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	copied := *user
	copied.PasswordHash = ""
	return &copied, nil
}

func newTestService(db database.Database) *Service {
	return NewService(db, &config.Config{
		JWT: config.JWTConfig{
			Secret:    []byte("test-secret"),
			ExpiresIn: time.Hour,
		},
	})
}

func register(t *testing.T, s *Service) *models.LoginResponse {
	t.Helper()
	resp, err := s.Register(context.Background(), &models.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return resp
}

func TestRegisterValidation(t *testing.T) {
	s := newTestService(newFakeDB())

	cases := []struct {
		name string
		req  models.RegisterRequest
	}{
		{"missing fields", models.RegisterRequest{Username: "alice"}},
		{"bad email", models.RegisterRequest{Username: "alice", Email: "not-an-email", Password: "longenough"}},
		{"short password", models.RegisterRequest{Username: "alice", Email: "a@example.com", Password: "short"}},
		{"short username", models.RegisterRequest{Username: "ab", Email: "a@example.com", Password: "longenough"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.Register(context.Background(), &tc.req); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestRegisterAndAuthenticate(t *testing.T) {
	s := newTestService(newFakeDB())
	resp := register(t, s)

	if resp.Token == "" {
		t.Fatal("expected a token")
	}

	user, err := s.Authenticate(context.Background(), resp.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if user.ID != resp.User.ID || user.Username != "alice" || user.Email != "alice@example.com" {
		t.Errorf("unexpected identity: %+v", user)
	}
	if user.PasswordHash != "" {
		t.Error("password hash leaked through authentication")
	}
}

func TestLogin(t *testing.T) {
	s := newTestService(newFakeDB())
	register(t, s)

	resp, err := s.Login(context.Background(), &models.LoginRequest{
		Email:    "alice@example.com",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.User.PasswordHash != "" {
		t.Error("password hash leaked through login response")
	}

	if _, err := s.Login(context.Background(), &models.LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong",
	}); err == nil {
		t.Error("wrong password should fail")
	}

	if _, err := s.Login(context.Background(), &models.LoginRequest{
		Email:    "nobody@example.com",
		Password: "correct horse",
	}); err == nil {
		t.Error("unknown email should fail")
	}
}

func TestAuthenticateMissingToken(t *testing.T) {
	s := newTestService(newFakeDB())

	if _, err := s.Authenticate(context.Background(), ""); !errors.Is(err, ErrMissingToken) {
		t.Errorf("expected ErrMissingToken, got %v", err)
	}
}

func TestAuthenticateInvalidToken(t *testing.T) {
	s := newTestService(newFakeDB())

	if _, err := s.Authenticate(context.Background(), "garbage.token.here"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestAuthenticateExpiredToken(t *testing.T) {
	db := newFakeDB()
	expired := NewService(db, &config.Config{
		JWT: config.JWTConfig{
			Secret:    []byte("test-secret"),
			ExpiresIn: -time.Hour,
		},
	})
	resp := register(t, expired)

	fresh := newTestService(db)
	if _, err := fresh.Authenticate(context.Background(), resp.Token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestAuthenticateWrongSecret(t *testing.T) {
	db := newFakeDB()
	s := newTestService(db)
	resp := register(t, s)

	other := NewService(db, &config.Config{
		JWT: config.JWTConfig{
			Secret:    []byte("different-secret"),
			ExpiresIn: time.Hour,
		},
	})
	if _, err := other.Authenticate(context.Background(), resp.Token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for foreign signature, got %v", err)
	}
}

func TestAuthenticateUnknownUser(t *testing.T) {
	db := newFakeDB()
	s := newTestService(db)
	resp := register(t, s)

	// The account disappears after the token was issued.
	delete(db.users, resp.User.ID)

	if _, err := s.Authenticate(context.Background(), resp.Token); !errors.Is(err, ErrUnknownUser) {
		t.Errorf("expected ErrUnknownUser, got %v", err)
	}
}
