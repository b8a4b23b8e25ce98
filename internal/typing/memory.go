package typing

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps typing entries in process memory. Expired entries are
// invisible to reads whether or not they have been physically purged; the
// sweeper only reclaims memory, it is not part of the correctness story.
//
// Suitable for single-instance deployments and tests. Multi-instance
// deployments should use the Redis store so all API servers see one set of
// entries.
type MemoryStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]map[string]time.Time // conversation -> user -> expiry
	now     func() time.Time                // injectable clock for tests
}

// NewMemoryStore creates an empty in-memory store. A non-positive ttl falls
// back to DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]map[string]time.Time),
		now:     time.Now,
	}
}

// MarkTyping upserts the entry under the write lock, so concurrent refreshes
// of the same (conversation, user) pair cannot interleave.
func (s *MemoryStore) MarkTyping(_ context.Context, key ConversationKey, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.entries[key.String()]
	if !ok {
		conv = make(map[string]time.Time)
		s.entries[key.String()] = conv
	}
	conv[userID] = s.now().Add(s.ttl)
	return nil
}

// ClearTyping removes the entry if present.
func (s *MemoryStore) ClearTyping(_ context.Context, key ConversationKey, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.entries[key.String()]
	if !ok {
		return nil
	}
	delete(conv, userID)
	if len(conv) == 0 {
		delete(s.entries, key.String())
	}
	return nil
}

// QueryTyping returns live entries for the conversation as of the current
// clock, excluding the caller. Entries past their expiry are skipped even if
// the sweeper has not run yet.
func (s *MemoryStore) QueryTyping(_ context.Context, key ConversationKey, excludeUserID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	users := []string{}
	for userID, expires := range s.entries[key.String()] {
		if userID == excludeUserID {
			continue
		}
		if !expires.After(now) {
			continue
		}
		users = append(users, userID)
	}
	sort.Strings(users)
	return users, nil
}

// Sweep physically removes expired entries and returns how many were purged.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	purged := 0
	for convKey, conv := range s.entries {
		for userID, expires := range conv {
			if !expires.After(now) {
				delete(conv, userID)
				purged++
			}
		}
		if len(conv) == 0 {
			delete(s.entries, convKey)
		}
	}
	return purged
}

// StartSweeper runs a background purge loop until the context is cancelled.
// Call it in a goroutine from main.
func (s *MemoryStore) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[typing] sweeper stopped")
			return
		case <-ticker.C:
			if purged := s.Sweep(); purged > 0 {
				log.Printf("[typing] sweeper purged %d expired entries", purged)
			}
		}
	}
}
