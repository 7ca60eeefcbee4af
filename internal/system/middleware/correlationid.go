package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medilink/health-exchange-api/internal/system/constants"
	"github.com/medilink/health-exchange-api/internal/system/utils"
)

type contextKey string

// CorrelationIDContextKey is the context key under which the request
// correlation ID is stored.
const CorrelationIDContextKey contextKey = "correlation_id"

// CorrelationIDMiddleware attaches a correlation ID to every gin request.
func CorrelationIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := extractCorrelationID(c.Request)
		if correlationID == "" {
			correlationID = utils.GenerateUUID()
		}
		c.Set(string(CorrelationIDContextKey), correlationID)
		c.Header(constants.CorrelationIDHeaderName, correlationID)
		c.Next()
	}
}

// WrapWithCorrelationID wraps an http.Handler with correlation ID handling.
// The ID is taken from the incoming request headers when present, generated
// otherwise, and echoed back on the response.
func WrapWithCorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := extractCorrelationID(r)
		if correlationID == "" {
			correlationID = utils.GenerateUUID()
		}

		w.Header().Set(constants.CorrelationIDHeaderName, correlationID)

		ctx := context.WithValue(r.Context(), CorrelationIDContextKey, correlationID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetCorrelationID returns the correlation ID stored in the context, if any.
func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationIDContextKey).(string); ok {
		return id
	}
	return ""
}

func extractCorrelationID(r *http.Request) string {
	headers := []string{constants.CorrelationIDHeaderName, "X-Request-ID", "X-Trace-ID"}
	for _, header := range headers {
		if id := r.Header.Get(header); id != "" {
			return id
		}
	}
	return ""
}
