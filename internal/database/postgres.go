package database

import (
	"context"
	"errors"
	"fmt"

	"chat-server/internal/models"
	"chat-server/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// ErrNotFound is returned when a lookup by identifier matches no row.
var ErrNotFound = errors.New("not found")

type PostgresDB struct {
	pool *pgxpool.Pool
}

func NewPostgresDB(databaseURL string) (*PostgresDB, error) {
	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to database successfully")
	return &PostgresDB{pool: pool}, nil
}

func (db *PostgresDB) Close() error {
	db.pool.Close()
	return nil
}

// User Repository Implementation
func (db *PostgresDB) CreateUser(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	query := `
		INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, username, email, created_at`

	user := &models.User{PasswordHash: string(hash)}
	err = db.pool.QueryRow(ctx, query, uuid.NewString(), req.Username, req.Email, string(hash)).Scan(
		&user.ID, &user.Username, &user.Email, &user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

func (db *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT id, username, email, password_hash, created_at FROM users WHERE email = $1`

	user := &models.User{}
	err := db.pool.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (db *PostgresDB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT id, username, email, created_at FROM users WHERE id = $1`

	user := &models.User{}
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.Email, &user.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return user, nil
}

// Channel Repository Implementation
func (db *PostgresDB) CreateChannel(ctx context.Context, req *models.CreateChannelRequest, creatorID string) (*models.Channel, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO channels (id, name, description, type, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, name, description, type, created_by, created_at`

	channel := &models.Channel{}
	err = tx.QueryRow(ctx, query, uuid.NewString(), req.Name, req.Description, req.Type, creatorID).Scan(
		&channel.ID, &channel.Name, &channel.Description, &channel.Type, &channel.CreatedBy, &channel.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	// Creator is always a member.
	memberIDs := append([]string{creatorID}, req.Members...)
	seen := make(map[string]bool, len(memberIDs))
	for _, userID := range memberIDs {
		if seen[userID] {
			continue
		}
		seen[userID] = true
		if _, err := tx.Exec(ctx,
			`INSERT INTO channel_members (channel_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			channel.ID, userID); err != nil {
			return nil, fmt.Errorf("failed to add channel member: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	channel.Members, err = db.loadMembers(ctx, channel.ID)
	if err != nil {
		return nil, err
	}

	return channel, nil
}

func (db *PostgresDB) GetChannelByID(ctx context.Context, id string) (*models.Channel, error) {
	query := `SELECT id, name, description, type, created_by, created_at FROM channels WHERE id = $1`

	channel := &models.Channel{}
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&channel.ID, &channel.Name, &channel.Description, &channel.Type, &channel.CreatedBy, &channel.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	channel.Members, err = db.loadMembers(ctx, channel.ID)
	if err != nil {
		return nil, err
	}

	return channel, nil
}

func (db *PostgresDB) GetChannelByName(ctx context.Context, name string) (*models.Channel, error) {
	query := `SELECT id, name, description, type, created_by, created_at FROM channels WHERE name = $1`

	channel := &models.Channel{}
	err := db.pool.QueryRow(ctx, query, name).Scan(
		&channel.ID, &channel.Name, &channel.Description, &channel.Type, &channel.CreatedBy, &channel.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return channel, nil
}

func (db *PostgresDB) ListChannelsForUser(ctx context.Context, userID string) ([]*models.Channel, error) {
	query := `
		SELECT DISTINCT c.id, c.name, c.description, c.type, c.created_by, c.created_at
		FROM channels c
		LEFT JOIN channel_members m ON c.id = m.channel_id AND m.user_id = $1
		WHERE c.type = 'public' OR m.user_id IS NOT NULL
		ORDER BY c.name`

	rows, err := db.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []*models.Channel
	for rows.Next() {
		channel := &models.Channel{}
		if err := rows.Scan(&channel.ID, &channel.Name, &channel.Description, &channel.Type, &channel.CreatedBy, &channel.CreatedAt); err != nil {
			return nil, err
		}
		channels = append(channels, channel)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, channel := range channels {
		channel.Members, err = db.loadMembers(ctx, channel.ID)
		if err != nil {
			return nil, err
		}
	}

	return channels, nil
}

func (db *PostgresDB) UpdateChannel(ctx context.Context, id string, name, description *string) (*models.Channel, error) {
	query := `
		UPDATE channels
		SET name = COALESCE($2, name), description = COALESCE($3, description)
		WHERE id = $1
		RETURNING id, name, description, type, created_by, created_at`

	channel := &models.Channel{}
	err := db.pool.QueryRow(ctx, query, id, name, description).Scan(
		&channel.ID, &channel.Name, &channel.Description, &channel.Type, &channel.CreatedBy, &channel.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	channel.Members, err = db.loadMembers(ctx, channel.ID)
	if err != nil {
		return nil, err
	}

	return channel, nil
}

func (db *PostgresDB) DeleteChannel(ctx context.Context, id string) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM channel_members WHERE channel_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM messages WHERE channel_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM channels WHERE id = $1`, id); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (db *PostgresDB) AddMember(ctx context.Context, channelID, userID string) error {
	query := `
		INSERT INTO channel_members (channel_id, user_id) VALUES ($1, $2)
		ON CONFLICT (channel_id, user_id) DO NOTHING`

	_, err := db.pool.Exec(ctx, query, channelID, userID)
	return err
}

func (db *PostgresDB) RemoveMember(ctx context.Context, channelID, userID string) error {
	query := `DELETE FROM channel_members WHERE channel_id = $1 AND user_id = $2`
	_, err := db.pool.Exec(ctx, query, channelID, userID)
	return err
}

func (db *PostgresDB) IsMember(ctx context.Context, channelID, userID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM channel_members WHERE channel_id = $1 AND user_id = $2)`

	var exists bool
	err := db.pool.QueryRow(ctx, query, channelID, userID).Scan(&exists)
	return exists, err
}

func (db *PostgresDB) loadMembers(ctx context.Context, channelID string) ([]models.Profile, error) {
	query := `
		SELECT u.id, u.username, u.email
		FROM channel_members m
		JOIN users u ON m.user_id = u.id
		WHERE m.channel_id = $1
		ORDER BY u.username`

	rows, err := db.pool.Query(ctx, query, channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.Profile
	for rows.Next() {
		var member models.Profile
		if err := rows.Scan(&member.ID, &member.Username, &member.Email); err != nil {
			return nil, err
		}
		members = append(members, member)
	}

	return members, rows.Err()
}

// Message Repository Implementation
func (db *PostgresDB) CreateMessage(ctx context.Context, channelID, senderID, content string) (*models.Message, error) {
	query := `
		INSERT INTO messages (id, channel_id, sender_id, content, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, channel_id, sender_id, content, created_at`

	msg := &models.Message{}
	err := db.pool.QueryRow(ctx, query, uuid.NewString(), channelID, senderID, content).Scan(
		&msg.ID, &msg.ChannelID, &msg.SenderID, &msg.Content, &msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	return msg, nil
}

func (db *PostgresDB) ListRecentMessages(ctx context.Context, channelID string, limit int) ([]*models.Message, error) {
	query := `
		SELECT m.id, m.channel_id, m.sender_id, m.content, m.created_at, u.id, u.username, u.email
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.channel_id = $1
		ORDER BY m.created_at DESC
		LIMIT $2`

	rows, err := db.pool.Query(ctx, query, channelID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		msg := &models.Message{Sender: &models.Profile{}}
		if err := rows.Scan(&msg.ID, &msg.ChannelID, &msg.SenderID, &msg.Content, &msg.CreatedAt,
			&msg.Sender.ID, &msg.Sender.Username, &msg.Sender.Email); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to show oldest first
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}
