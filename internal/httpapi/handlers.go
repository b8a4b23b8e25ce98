package httpapi

import (
	"context"
	"log"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/mahmudurrahman-beep/network/internal/metrics"
	"github.com/mahmudurrahman-beep/network/internal/session"
	"github.com/mahmudurrahman-beep/network/internal/typing"
)

// target identifies the conversation addressed by the request path. A fully
// numeric path segment is a room ID; anything else is a username (legacy
// direct-message mode).
type target struct {
	roomID   int64
	username string
	room     bool
}

func parseTarget(segment string) target {
	if id, err := strconv.ParseInt(segment, 10, 64); err == nil {
		return target{roomID: id, room: true}
	}
	return target{username: segment}
}

// resolveKey turns the request target into a conversation key, enforcing
// room existence, room membership, and username existence. An unknown room
// is 404 before any membership decision; a known room the caller does not
// belong to is 403. A nil key with code 0 means the lookup infrastructure
// failed: the caller should fail toward silence rather than reject the
// request.
func (s *Server) resolveKey(ctx context.Context, tgt target, sess *session.Session) (key typing.ConversationKey, code int, ok bool) {
	if tgt.room {
		exists, err := s.dir.RoomExists(ctx, tgt.roomID)
		if err != nil {
			log.Printf("[typing] room lookup failed room=%d: %v", tgt.roomID, err)
			return typing.ConversationKey{}, 0, false
		}
		if !exists {
			return typing.ConversationKey{}, http.StatusNotFound, false
		}
		member, err := s.dir.IsMember(ctx, tgt.roomID, sess.UserID)
		if err != nil {
			log.Printf("[typing] membership check failed room=%d user=%s: %v", tgt.roomID, sess.UserID, err)
			return typing.ConversationKey{}, 0, false
		}
		if !member {
			return typing.ConversationKey{}, http.StatusForbidden, false
		}
		return typing.RoomKey(tgt.roomID), 0, true
	}

	other, err := s.dir.UserByName(ctx, tgt.username)
	if err != nil {
		log.Printf("[typing] user lookup failed username=%s: %v", tgt.username, err)
		return typing.ConversationKey{}, 0, false
	}
	if other == nil {
		return typing.ConversationKey{}, http.StatusNotFound, false
	}
	return typing.DirectKey(sess.Username, other.Username), 0, true
}

// handleStart marks the caller as typing. The signal is a best-effort side
// channel: store failures are logged and counted but the response is still
// an ack, so a flaky store can never break message composition.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.handleSignal(w, r, "start")
}

// handleStop clears the caller's typing state. Same best-effort policy as
// handleStart; clearing an absent entry is already a no-op in the store.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.handleSignal(w, r, "stop")
}

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request, signal string) {
	sess := sessionFrom(r.Context())
	tgt := parseTarget(r.PathValue("target"))

	key, code, ok := s.resolveKey(r.Context(), tgt, sess)
	if !ok {
		if code != 0 {
			writeError(w, code, http.StatusText(code))
			return
		}
		// Lookup infrastructure down: ack without recording. The TTL
		// backstop keeps the stale-state window bounded either way.
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	var err error
	if signal == "start" {
		err = s.store.MarkTyping(r.Context(), key, sess.UserID)
	} else {
		err = s.store.ClearTyping(r.Context(), key, sess.UserID)
	}
	if err != nil {
		metrics.StoreErrors.WithLabelValues(map[string]string{"start": "mark", "stop": "clear"}[signal]).Inc()
		log.Printf("[typing] %s failed conversation=%s user=%s: %v", signal, key, sess.UserID, err)
	} else {
		metrics.SignalsTotal.WithLabelValues(signal).Inc()
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleCheck reports who is typing in the conversation, excluding the
// caller. Room mode resolves display names; legacy mode reports only the
// boolean. Any failure reads as "nobody is typing".
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sess := sessionFrom(r.Context())
	tgt := parseTarget(r.PathValue("target"))

	key, code, ok := s.resolveKey(r.Context(), tgt, sess)
	if !ok {
		if code != 0 {
			writeError(w, code, http.StatusText(code))
			return
		}
		metrics.ChecksTotal.WithLabelValues("error").Inc()
		s.writeCheck(w, tgt, nil)
		return
	}

	typingIDs, err := s.store.QueryTyping(r.Context(), key, sess.UserID)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("query").Inc()
		metrics.ChecksTotal.WithLabelValues("error").Inc()
		log.Printf("[typing] check failed conversation=%s: %v", key, err)
		s.writeCheck(w, tgt, nil)
		return
	}

	var names []string
	if tgt.room && len(typingIDs) > 0 {
		names, err = s.typistNames(r.Context(), tgt.roomID, typingIDs)
		if err != nil {
			metrics.ChecksTotal.WithLabelValues("error").Inc()
			log.Printf("[typing] name resolution failed room=%d: %v", tgt.roomID, err)
			s.writeCheck(w, tgt, nil)
			return
		}
	} else if !tgt.room && len(typingIDs) > 0 {
		// Legacy mode carries no per-user attribution; any live entry
		// flips the boolean.
		names = typingIDs
	}

	if len(names) > 0 {
		metrics.ChecksTotal.WithLabelValues("typing").Inc()
	} else {
		metrics.ChecksTotal.WithLabelValues("quiet").Inc()
	}
	metrics.CheckLatency.Observe(time.Since(start).Seconds())

	s.writeCheck(w, tgt, names)
}

// typistNames maps typing user IDs to display names via the room roster.
// IDs the roster no longer contains (user left mid-poll) are dropped.
func (s *Server) typistNames(ctx context.Context, roomID int64, typingIDs []string) ([]string, error) {
	members, err := s.dir.Members(ctx, roomID)
	if err != nil {
		return nil, err
	}

	nameByID := make(map[string]string, len(members))
	for _, m := range members {
		nameByID[m.ID] = m.Username
	}

	names := []string{}
	for _, id := range typingIDs {
		if name, ok := nameByID[id]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// writeCheck writes the mode-appropriate check response. Room mode always
// carries the users array (possibly empty); legacy mode omits it.
func (s *Server) writeCheck(w http.ResponseWriter, tgt target, names []string) {
	if tgt.room {
		if names == nil {
			names = []string{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"is_typing": len(names) > 0,
			"users":     names,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"is_typing": len(names) > 0})
}
