package ratelimit

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"codeberg.org/restage/server/internal/errors"
	"codeberg.org/restage/server/internal/logger"
)

const (
	keyPrefix = "restage:ratelimit"

	// used when no rate is configured
	DefaultRate = "20-M"
)

// builds a limiter for a ulule formatted rate ("20-M", "1000-H").
// counters live in redis when a client is given so every instance shares them.
func New(rate string, client *redis.Client) (*limiter.Limiter, error) {
	if rate == "" {
		rate = DefaultRate
	}

	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", rate, err)
	}

	opts := limiter.StoreOptions{Prefix: keyPrefix}

	var store limiter.Store

	if client != nil {
		store, err = sredis.NewStoreWithOptions(client, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis limiter store: %w", err)
		}
	} else {
		store = memory.NewStoreWithOptions(opts)
	}

	return limiter.New(store, parsed), nil
}

// returns middleware that limits each authenticated user, falling back to client IP.
// must run after the auth middleware.
func Middleware(lim *limiter.Limiter) gin.HandlerFunc {
	return mgin.NewMiddleware(lim,
		mgin.WithKeyGetter(userKey),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			logger.FromContext(c.Request.Context()).Warn("rate limit reached",
				"key", userKey(c),
				"path", c.Request.URL.Path,
			)

			errors.TooManyRequests(c, "rate limit exceeded, try again later")
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			// a broken store must not block paying users
			logger.ErrorErr(err, "rate limiter store failed", "path", c.Request.URL.Path)
			c.Next()
		}),
	)
}

func userKey(c *gin.Context) string {
	if userID := c.GetString("user_id"); userID != "" {
		return "user:" + userID
	}

	return "ip:" + c.ClientIP()
}
