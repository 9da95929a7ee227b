package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/time/rate"

	"nutribyte/fitness-app/internal/service"
)

// Constants for context keys
const (
	ContextUserIDKey = "userID"
)

// AuthMiddleware creates a Gin middleware for JWT authentication.
func AuthMiddleware(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, KindUnauthorized, "Authorization header is missing")
			return
		}

		// Expecting "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			abortWithError(c, http.StatusUnauthorized, KindUnauthorized, "Authorization header format must be Bearer {token}")
			return
		}

		userID, err := authService.ParseToken(parts[1])
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, KindUnauthorized, err.Error())
			return
		}

		// --- Token is valid ---
		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

// Helper function to get User ID from context (used by handlers)
func getUserIDFromContext(c *gin.Context) (primitive.ObjectID, error) {
	idRaw, exists := c.Get(ContextUserIDKey)
	if !exists {
		return primitive.NilObjectID, errors.New("user ID not found in context")
	}
	id, ok := idRaw.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("invalid user ID type in context")
	}
	return id, nil
}

// mustUserID writes an error and returns false when no user is authenticated.
func mustUserID(c *gin.Context) (primitive.ObjectID, bool) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, KindInternal, "Failed to get user ID from token")
		return primitive.NilObjectID, false
	}
	return userID, true
}

// RequestLogger logs one line per request.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		}
		if userID, err := getUserIDFromContext(c); err == nil {
			attrs = append(attrs, "userId", userID.Hex())
		}

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "HTTP request", attrs...)
	}
}

// UserRateLimiter hands out one token bucket per authenticated user.
type UserRateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	idle     time.Duration
	limiters map[primitive.ObjectID]*userLimiter
	now      func() time.Time
}

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewUserRateLimiter allows n requests per window for each user. A
// non-positive n disables limiting.
func NewUserRateLimiter(n int, window time.Duration) *UserRateLimiter {
	l := &UserRateLimiter{
		limit:    rate.Inf,
		burst:    n,
		idle:     window,
		limiters: make(map[primitive.ObjectID]*userLimiter),
		now:      time.Now,
	}
	if n > 0 && window > 0 {
		l.limit = rate.Every(window / time.Duration(n))
	}
	return l
}

// Allow reports whether userID may make another request now.
func (l *UserRateLimiter) Allow(userID primitive.ObjectID) bool {
	if l.limit == rate.Inf {
		return true
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.limiters[userID]
	if !ok {
		l.evictIdle(now)
		entry = &userLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[userID] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// evictIdle drops buckets that have refilled completely. Caller holds the lock.
func (l *UserRateLimiter) evictIdle(now time.Time) {
	for id, entry := range l.limiters {
		if now.Sub(entry.lastSeen) > l.idle {
			delete(l.limiters, id)
		}
	}
}

// Middleware rejects requests over the limit with 429. Must run after AuthMiddleware.
func (l *UserRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := mustUserID(c)
		if !ok {
			return
		}
		if !l.Allow(userID) {
			abortWithError(c, http.StatusTooManyRequests, KindRateLimited,
				fmt.Sprintf("Too many generation requests, the limit is %d per %s", l.burst, l.idle))
			return
		}
		c.Next()
	}
}
