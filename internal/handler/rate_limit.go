package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/repurpost/oauth-service/internal/domain"
	"github.com/repurpost/oauth-service/internal/dto"
	"github.com/repurpost/oauth-service/internal/service"
	"github.com/repurpost/oauth-service/pkg/observability"
	"go.uber.org/zap"
)

// KeyFunc derives the rate limit key from a request
type KeyFunc func(*gin.Context) string

// RateLimitMiddleware enforces the caller tier's fixed-window policy. The
// tier is resolved before the key is built and becomes part of the key, so
// different tiers never share a bucket.
func RateLimitMiddleware(limiter *service.RateLimiter, metrics *observability.Metrics, logger *zap.Logger, keyFunc KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		tier := tierFromContext(c)
		policy := limiter.PolicyFor(tier)
		key := fmt.Sprintf("%s:%s", tier, keyFunc(c))

		result, err := limiter.Check(c.Request.Context(), key, policy)
		if err != nil {
			// Fail open on store errors rather than taking every limited
			// route down with the store
			logger.Error("Rate limit check failed", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			metrics.RecordRateLimitRejection(c.Request.Context(), tier.String())

			retryAfter := int64(result.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))

			c.JSON(http.StatusTooManyRequests, dto.RateLimitExceededResponse{
				Error:      "Too many requests",
				Code:       "RATE_LIMIT_EXCEEDED",
				Limit:      result.Limit,
				Current:    result.Current,
				RetryAfter: retryAfter,
				ResetAt:    result.ResetAt,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// IPKey derives the rate limit key from the client IP
func IPKey(c *gin.Context) string {
	// X-Forwarded-For can contain multiple IPs, take the first one
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		ips := strings.Split(forwarded, ",")
		return strings.TrimSpace(ips[0])
	}
	return c.ClientIP()
}

// ProfileKey derives the key from the authenticated profile, falling back to
// the client IP on unauthenticated routes
func ProfileKey(c *gin.Context) string {
	if profileID, exists := c.Get(ContextProfileID); exists {
		return profileID.(string)
	}
	return IPKey(c)
}

// ProfileAndIPKey combines profile and IP so a single profile cannot launder
// quota across source addresses
func ProfileAndIPKey(c *gin.Context) string {
	if profileID, exists := c.Get(ContextProfileID); exists {
		return fmt.Sprintf("%s:%s", profileID.(string), IPKey(c))
	}
	return IPKey(c)
}

func tierFromContext(c *gin.Context) domain.Tier {
	if v, exists := c.Get(ContextTier); exists {
		if tier, ok := v.(domain.Tier); ok {
			return tier
		}
	}
	return domain.TierFree
}
