// Package typing implements the ephemeral typing-presence store for the
// network messaging views. An entry records that a user is composing a
// message in a conversation; entries expire on their own after a short TTL
// so that a lost stop signal can never leave a stale indicator behind.
package typing

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DefaultTTL is how long a typing entry lives without a refresh. It sits
// above the client's 2s poll interval so an entry refreshed by ongoing
// keystrokes never flickers out between polls.
const DefaultTTL = 4 * time.Second

// ConversationKey routes a typing entry to its conversation. It is either a
// room (group conversation) or an unordered pair of usernames (direct
// message). The variant is fixed at construction; callers never branch on
// raw identifiers after that.
type ConversationKey struct {
	room   int64
	userA  string
	userB  string
	direct bool
}

// RoomKey returns the key for a group conversation room.
func RoomKey(roomID int64) ConversationKey {
	return ConversationKey{room: roomID}
}

// DirectKey returns the key for a two-party direct-message conversation.
// The pair is unordered: DirectKey(a, b) and DirectKey(b, a) are the same key.
func DirectKey(userA, userB string) ConversationKey {
	if userB < userA {
		userA, userB = userB, userA
	}
	return ConversationKey{userA: userA, userB: userB, direct: true}
}

// IsDirect reports whether the key names a direct-message conversation.
func (k ConversationKey) IsDirect() bool {
	return k.direct
}

// String returns the canonical storage form of the key, e.g. "room:42" or
// "dm:alice:bob". Username segments are percent-encoded so that a ':' in a
// username cannot shift the segment boundaries: DirectKey("a:b", "c") and
// DirectKey("a", "b:c") render to distinct strings.
func (k ConversationKey) String() string {
	if k.direct {
		return "dm:" + escapeSegment(k.userA) + ":" + escapeSegment(k.userB)
	}
	return fmt.Sprintf("room:%d", k.room)
}

// segmentEscaper encodes the two characters that would be ambiguous inside
// a key: the segment separator and the escape character itself.
var segmentEscaper = strings.NewReplacer("%", "%25", ":", "%3A")

func escapeSegment(s string) string {
	return segmentEscaper.Replace(s)
}

// Store is the authoritative record of who is typing where. All operations
// are best-effort from the caller's point of view: a failure to record or
// clear a signal must never block message composition, and a failed query
// is treated as "nobody is typing".
type Store interface {
	// MarkTyping inserts or refreshes the entry for (key, userID) with a
	// fresh TTL. Repeated calls extend the expiry; they never error or
	// duplicate the entry.
	MarkTyping(ctx context.Context, key ConversationKey, userID string) error

	// ClearTyping removes the entry for (key, userID). Clearing an absent
	// entry is a no-op.
	ClearTyping(ctx context.Context, key ConversationKey, userID string) error

	// QueryTyping returns the IDs of users with a live entry in the
	// conversation, excluding excludeUserID (a user is never shown as
	// typing to themselves). The result is sorted and never nil.
	QueryTyping(ctx context.Context, key ConversationKey, excludeUserID string) ([]string, error)
}
