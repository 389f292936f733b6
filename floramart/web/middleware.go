package web

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/floramart/floramart/floramart/database/models"
)

type ctxKey int

const (
	ctxKeyUserID ctxKey = iota
	ctxKeyRole
)

func userID(r *http.Request) int64 {
	id, _ := r.Context().Value(ctxKeyUserID).(int64)
	return id
}

func userRole(r *http.Request) models.UserRole {
	role, _ := r.Context().Value(ctxKeyRole).(models.UserRole)
	return role
}

// requireAuth validates the bearer token and stashes the caller's identity in
// the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "authorization header required", Code: codeUnauthorized})
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")

		claims, err := s.auth.VerifyToken(token)
		if err != nil {
			respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid or expired token", Code: codeUnauthorized})
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyUserID, claims.UserID)
		ctx = context.WithValue(ctx, ctxKeyRole, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requireRole(roles ...models.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := userRole(r)
			for _, allowed := range roles {
				if role == allowed || role == models.UserRoleAdmin {
					next.ServeHTTP(w, r)
					return
				}
			}
			respondJSON(w, http.StatusForbidden, errorResponse{Error: "insufficient permissions", Code: "forbidden"})
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		slog.Info("Request completed",
			slog.String("type", "http"),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("took", time.Since(start)))
	})
}

type rateWindow struct {
	count   int64
	resetAt time.Time
}

// rateLimiter enforces a fixed-window request cap per client IP.
type rateLimiter struct {
	limit   int64
	window  time.Duration
	clients *xsync.MapOf[string, *rateWindow]
}

func newRateLimiter(limit int64, window time.Duration) *rateLimiter {
	if limit <= 0 {
		limit = 100
	}
	if window <= 0 {
		window = time.Minute
	}
	return &rateLimiter{
		limit:   limit,
		window:  window,
		clients: xsync.NewMapOf[string, *rateWindow](),
	}
}

func (rl *rateLimiter) allow(clientIP string, now time.Time) bool {
	allowed := true
	rl.clients.Compute(clientIP, func(old *rateWindow, loaded bool) (*rateWindow, bool) {
		if !loaded || now.After(old.resetAt) {
			return &rateWindow{count: 1, resetAt: now.Add(rl.window)}, false
		}
		if old.count >= rl.limit {
			allowed = false
			return old, false
		}
		return &rateWindow{count: old.count + 1, resetAt: old.resetAt}, false
	})
	return allowed
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !rl.allow(ip, time.Now()) {
			respondJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded", Code: "invalid_state"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx > 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
