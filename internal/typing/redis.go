package typing

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// TypingPrefix is the Redis key prefix for typing entries:
//
//	Key:   typing:<conversation>:<user_id>
//	Value: "1"
//	TTL:   typing TTL
//
// Redis key expiry is the staleness mechanism itself; there is nothing to
// sweep.
const TypingPrefix = "typing:"

// RedisStore is the Redis-backed Store implementation shared by all API
// server instances.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a typing store using the provided Redis client.
// A non-positive ttl falls back to DefaultTTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) entryKey(key ConversationKey, userID string) string {
	return TypingPrefix + key.String() + ":" + userID
}

// MarkTyping writes the entry with a fresh TTL. SET with expiry is a single
// atomic command, so concurrent refreshes of the same entry cannot race.
func (s *RedisStore) MarkTyping(ctx context.Context, key ConversationKey, userID string) error {
	return s.client.Set(ctx, s.entryKey(key, userID), "1", s.ttl).Err()
}

// ClearTyping deletes the entry. Deleting a missing key is a no-op in Redis,
// which matches the idempotent contract.
func (s *RedisStore) ClearTyping(ctx context.Context, key ConversationKey, userID string) error {
	return s.client.Del(ctx, s.entryKey(key, userID)).Err()
}

// globEscape backslash-escapes glob metacharacters so SCAN matches the
// prefix literally. Key segments already percent-encode ':' but may still
// carry characters like '*' or '[' from usernames.
func globEscape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// QueryTyping scans the conversation's key space and returns the user IDs of
// live entries. Anything SCAN returns is by definition unexpired.
func (s *RedisStore) QueryTyping(ctx context.Context, key ConversationKey, excludeUserID string) ([]string, error) {
	prefix := TypingPrefix + key.String() + ":"
	users := []string{}

	iter := s.client.Scan(ctx, 0, globEscape(prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		userID := strings.TrimPrefix(iter.Val(), prefix)
		if userID == "" || userID == excludeUserID {
			continue
		}
		users = append(users, userID)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	sort.Strings(users)
	return users, nil
}
