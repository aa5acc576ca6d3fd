// Package middleware provides HTTP middleware for the Tally Echo server.
// ratelimit.go implements a per-IP fixed-window limiter whose counters live
// in Redis, so every replica behind the load balancer shares one budget.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// rateLimitKeyPrefix + scope + ":" + ip -> request count in the current window.
const rateLimitKeyPrefix = "ratelimit:"

// RateLimit returns middleware that allows maxRequests per client IP within
// each window, keyed under scope so different route groups get separate
// budgets. Over-limit requests get a 429 with a Retry-After header.
//
// When Redis is unreachable the request is let through and a warning is
// logged; an outage of the limiter must not take login down with it.
func RateLimit(rdb *redis.Client, scope string, maxRequests int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rateLimitKeyPrefix + scope + ":" + c.RealIP()

			count, ttl, err := hit(c.Request().Context(), rdb, key, window)
			if err != nil {
				slog.Warn("rate limiter unavailable, allowing request",
					slog.String("scope", scope),
					slog.Any("error", err),
				)
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(maxRequests))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(max(int64(maxRequests)-count, 0), 10))

			if count > int64(maxRequests) {
				h.Set("Retry-After", strconv.Itoa(retryAfterSeconds(ttl, window)))
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error":   "too_many_requests",
					"message": "Too many attempts. Please try again later.",
				})
			}
			return next(c)
		}
	}
}

// hit increments the counter at key, starting a new window on the first hit,
// and returns the new count with the time left in the window.
func hit(ctx context.Context, rdb *redis.Client, key string, window time.Duration) (int64, time.Duration, error) {
	pipe := rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("incrementing %s: %w", key, err)
	}
	return incr.Val(), ttl.Val(), nil
}

// retryAfterSeconds rounds the remaining window up to whole seconds. Redis
// reports negative TTLs for keys without expiry, so fall back to the window.
func retryAfterSeconds(ttl, window time.Duration) int {
	if ttl <= 0 {
		ttl = window
	}
	return int((ttl + time.Second - 1) / time.Second)
}
