package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PrometheusHandler returns a Gin handler for Prometheus metrics
func PrometheusHandler(handler http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if handler != nil {
			handler.ServeHTTP(c.Writer, c.Request)
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "metrics handler not initialized",
			})
		}
	}
}

// Metrics holds the service's domain counters
type Metrics struct {
	tokenRefreshes      metric.Int64Counter
	rateLimitRejections metric.Int64Counter
}

// NewMetrics registers domain counters on the global meter provider
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("oauth-service")

	tokenRefreshes, err := meter.Int64Counter("oauth_token_refreshes_total",
		metric.WithDescription("Token refresh attempts by provider and outcome"))
	if err != nil {
		return nil, fmt.Errorf("failed to create token refresh counter: %w", err)
	}

	rateLimitRejections, err := meter.Int64Counter("rate_limit_rejections_total",
		metric.WithDescription("Requests rejected by the rate limiter, by tier"))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit rejection counter: %w", err)
	}

	return &Metrics{
		tokenRefreshes:      tokenRefreshes,
		rateLimitRejections: rateLimitRejections,
	}, nil
}

// RecordTokenRefresh records a refresh attempt outcome for a provider
func (m *Metrics) RecordTokenRefresh(ctx context.Context, provider, outcome string) {
	if m == nil {
		return
	}
	m.tokenRefreshes.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("outcome", outcome),
		))
}

// RecordRateLimitRejection records a rejected request for a tier
func (m *Metrics) RecordRateLimitRejection(ctx context.Context, tier string) {
	if m == nil {
		return
	}
	m.rateLimitRejections.Add(ctx, 1,
		metric.WithAttributes(attribute.String("tier", tier)))
}
