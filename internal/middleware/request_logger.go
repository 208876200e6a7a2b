package middleware

import (
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/network-index/internal/utils"
)

// RequestIDHeader carries the request id in and out
const RequestIDHeader = "X-Request-ID"

// RequestIDKey is the gin.Context key holding the request id
const RequestIDKey = "request_id"

var uuidPattern = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

// RequestLogger logs one line per request with its id, templated path, latency and client details
func RequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		status := c.Writer.Status()
		device := utils.ParseUserAgent(utils.GetUserAgent(c))

		fields := logrus.Fields{
			"request_id":  requestID,
			"method":      c.Request.Method,
			"path":        TemplatePath(c),
			"status":      status,
			"latency_ms":  time.Since(start).Milliseconds(),
			"client_ip":   utils.GetRealIP(c),
			"device_type": device.DeviceType,
			"browser":     device.Browser,
			"os":          device.OS,
			"is_bot":      device.IsBot,
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		entry := logger.WithFields(fields)
		switch {
		case status >= 500:
			entry.Error("[INCOMING API - ERROR]")
		case status >= 400:
			entry.Warn("[INCOMING API - ERROR]")
		default:
			entry.Info("[INCOMING API]")
		}
	}
}

// TemplatePath returns the matched route template, or the raw path with UUIDs replaced by :id
func TemplatePath(c *gin.Context) string {
	if path := c.FullPath(); path != "" {
		return path
	}
	return uuidPattern.ReplaceAllString(c.Request.URL.Path, ":id")
}

// GetRequestID returns the request id assigned by RequestLogger
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}
