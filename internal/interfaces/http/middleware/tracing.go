// Package middleware provides HTTP middleware for the ledger API.
package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type TracingConfig struct {
	ServiceName string
	Enabled     bool
	// SkipPaths are served without a span
	SkipPaths []string
}

func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "clinic-ledger",
		Enabled:     true,
		SkipPaths:   []string{"/health", "/metrics"},
	}
}

// Tracing opens a server span per request through otelgin, named
// "METHOD route" such as "POST /api/v1/entries/:id/approve"
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	skip := cfg.SkipPaths
	return otelgin.Middleware(cfg.ServiceName, otelgin.WithFilter(func(r *http.Request) bool {
		return !slices.Contains(skip, r.URL.Path)
	}))
}

// SpanEnricher tags the request span with the request and caller IDs and
// fails it on a 5xx. It must run after Tracing and JWT.
func SpanEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}

		for key, value := range map[string]string{
			"request_id": GetRequestID(c),
			"user_id":    GetJWTUserID(c),
		} {
			if value != "" {
				span.SetAttributes(attribute.String(key, value))
			}
		}

		c.Next()

		if status := c.Writer.Status(); status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
