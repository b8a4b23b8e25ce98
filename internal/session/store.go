package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// SessionPrefix is the Redis key prefix for all session hashes.
	SessionPrefix = "session:"

	// SessionTTL is the time-to-live for session keys in Redis, refreshed
	// on access.
	SessionTTL = 1 * time.Hour
)

// Session is an authenticated caller, as stored in Redis.
type Session struct {
	Token     string `redis:"token"`
	UserID    string `redis:"user_id"`
	Username  string `redis:"username"`
	CSRFToken string `redis:"csrf_token"` // echoed by mutating requests
	CreatedAt int64  `redis:"created_at"` // unix timestamp
	LastSeen  int64  `redis:"last_seen"`  // unix timestamp
}

// Store manages session state in Redis.
type Store struct {
	client *redis.Client
}

// NewStore creates a session store connected to Redis at the given address.
func NewStore(redisAddr string) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("session: redis connection failed: %w", err)
	}

	return &Store{client: client}, nil
}

// NewStoreWithClient wraps an existing Redis client.
func NewStoreWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Create mints a new session for the given user with fresh session and CSRF
// tokens and a 1h TTL.
func (s *Store) Create(ctx context.Context, userID, username string) (*Session, error) {
	now := time.Now().Unix()
	sess := &Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		Username:  username,
		CSRFToken: uuid.NewString(),
		CreatedAt: now,
		LastSeen:  now,
	}

	key := SessionPrefix + sess.Token
	fields := map[string]interface{}{
		"token":      sess.Token,
		"user_id":    sess.UserID,
		"username":   sess.Username,
		"csrf_token": sess.CSRFToken,
		"created_at": sess.CreatedAt,
		"last_seen":  sess.LastSeen,
	}

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, SessionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("session: create: %w", err)
	}
	return sess, nil
}

// Get retrieves a session by token. Returns nil if not found or expired.
func (s *Store) Get(ctx context.Context, token string) (*Session, error) {
	key := SessionPrefix + token
	var sess Session
	if err := s.client.HGetAll(ctx, key).Scan(&sess); err != nil {
		return nil, err
	}
	if sess.Token == "" {
		return nil, nil // not found
	}
	return &sess, nil
}

// Touch updates last_seen and refreshes the TTL.
func (s *Store) Touch(ctx context.Context, token string) error {
	key := SessionPrefix + token
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, "last_seen", time.Now().Unix())
	pipe.Expire(ctx, key, SessionTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Delete removes a session from Redis.
func (s *Store) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, SessionPrefix+token).Err()
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Client returns the underlying Redis client for use by other packages.
func (s *Store) Client() *redis.Client {
	return s.client
}
