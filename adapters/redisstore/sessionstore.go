// Package redisstore provides a session token store shared between processes.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/artpar/rentdesk/adapters/seal"
	"github.com/artpar/rentdesk/ports"
	"github.com/redis/go-redis/v9"
)

// DefaultKey is used when Config.Key is empty.
const DefaultKey = "rentdesk:session"

// Config configures the redis session store.
type Config struct {
	Addr     string
	Username string
	Password string
	DB       int
	Key      string
	TTL      time.Duration // zero keeps the session until cleared
}

// SessionStore implements ports.TokenStore on a single redis key.
type SessionStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	sealer seal.Sealer
}

type record struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// NewSessionStore connects to redis and verifies the connection.
func NewSessionStore(ctx context.Context, cfg Config, sealer seal.Sealer) (*SessionStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	key := cfg.Key
	if key == "" {
		key = DefaultKey
	}
	return &SessionStore{client: client, key: key, ttl: cfg.TTL, sealer: sealer}, nil
}

// Load returns the stored session, or the zero session when none is stored.
func (s *SessionStore) Load(ctx context.Context) (ports.Session, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ports.Session{}, nil
	}
	if err != nil {
		return ports.Session{}, fmt.Errorf("load session: %w", err)
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return ports.Session{}, fmt.Errorf("decode session: %w", err)
	}
	token, err := s.sealer.Open(rec.Token)
	if err != nil {
		return ports.Session{}, fmt.Errorf("load session: %w", err)
	}
	return ports.Session{Token: token, UserID: rec.UserID, Email: rec.Email, Role: rec.Role}, nil
}

// Save replaces the stored session.
func (s *SessionStore) Save(ctx context.Context, sess ports.Session) error {
	token, err := s.sealer.Seal(sess.Token)
	if err != nil {
		return fmt.Errorf("seal token: %w", err)
	}
	data, err := json.Marshal(record{Token: token, UserID: sess.UserID, Email: sess.Email, Role: sess.Role})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key, data, s.ttl).Err()
}

// Clear removes the stored session.
func (s *SessionStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

// Close releases the redis connection.
func (s *SessionStore) Close() error {
	return s.client.Close()
}

// Ensure interface compliance.
var _ ports.TokenStore = (*SessionStore)(nil)
