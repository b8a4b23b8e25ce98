package httpapi

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mahmudurrahman-beep/network/internal/metrics"
	"github.com/mahmudurrahman-beep/network/internal/ratelimit"
	"github.com/mahmudurrahman-beep/network/internal/session"
)

type contextKey string

const sessionContextKey contextKey = "session"

// sessionFrom returns the authenticated session stored by requireAuth.
func sessionFrom(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionContextKey).(*session.Session)
	return sess
}

// statusRecorder captures the response status for access logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withAccessLog tags every request with a short request ID and logs method,
// path, status, and duration.
func (s *Server) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()[:8]
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		log.Printf("[httpapi] req=%s %s %s status=%d duration=%s",
			reqID, r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Microsecond))
	})
}

// bearerToken extracts the session token from the Authorization header or,
// failing that, the sessionid cookie set by the main application.
func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if c, err := r.Cookie("sessionid"); err == nil {
		return c.Value
	}
	return ""
}

// requireAuth resolves the caller's session and stores it in the request
// context. Unauthenticated requests get 401.
func (s *Server) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		sess, err := s.sessions.Get(r.Context(), token)
		if err != nil {
			log.Printf("[httpapi] session lookup failed: %v", err)
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if sess == nil {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		// Sliding session expiry; failure here is not worth failing the
		// request over.
		if err := s.sessions.Touch(r.Context(), token); err != nil {
			log.Printf("[httpapi] session touch failed: %v", err)
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireCSRF enforces the double-submit token on mutating routes. The
// read-only check route is never wrapped with this.
func (s *Server) requireCSRF(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r.Context())
		token := r.Header.Get("X-CSRFToken")
		if token == "" || sess == nil || token != sess.CSRFToken {
			writeError(w, http.StatusForbidden, "csrf verification failed")
			return
		}
		next.ServeHTTP(w, r)
	}
}

// rateLimit applies the given rule per user. A nil limiter disables the
// check entirely; limiter errors fail open inside Allow.
func (s *Server) rateLimit(rule ratelimit.Rule, endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil {
			sess := sessionFrom(r.Context())
			allowed, _ := s.limiter.Allow(r.Context(), sess.UserID, rule)
			if !allowed {
				metrics.RateLimited.WithLabelValues(endpoint).Inc()
				writeError(w, http.StatusTooManyRequests, "rate_limited")
				return
			}
		}
		next.ServeHTTP(w, r)
	}
}
