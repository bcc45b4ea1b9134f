package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/computeuse/backend/internal/shared/id"
)

// RequestIDHeader is the canonical request id header.
const RequestIDHeader = "X-Request-ID"

// requestIDKey is the gin context key the request id is stored under.
const requestIDKey = "request_id"

// maxInboundIDLength bounds ids accepted from upstream proxies.
const maxInboundIDLength = 64

// RequestID tags every request with a ULID-backed id and echoes it in the
// response headers. An inbound id is kept so requests stay correlated across
// proxy hops.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" || len(rid) > maxInboundIDLength {
			rid = id.NewRequestID().String()
		}

		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(RequestIDHeader, rid)

		c.Next()
	}
}

// GetRequestID returns the id tagged on the request, or empty when the
// middleware did not run.
func GetRequestID(c *gin.Context) string {
	if v, ok := c.Get(requestIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
